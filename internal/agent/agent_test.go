package agent

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

// stubAgent is a Core-backed agent whose ExecuteTask result is scripted.
type stubAgent struct {
	*Core
	succeed bool
}

func newStubAgent(id string, caps []Capability, succeed bool) *stubAgent {
	return &stubAgent{
		Core:    NewCore(id, id, RoleContentGenerator, caps, zap.NewNop()),
		succeed: succeed,
	}
}

func (s *stubAgent) Initialize(_ InitConfig) error { s.MarkReady(); return nil }

func (s *stubAgent) ExecuteTask(_ context.Context, task *Task) *TaskResult {
	s.BeginTask(task)
	var result *TaskResult
	if s.succeed {
		result = Succeed("ok", nil)
	} else {
		result = Fail("nein", "scripted failure")
	}
	s.EndTask(result.Success)
	return result
}

func TestLifecycleTransitions(t *testing.T) {
	a := newStubAgent("a1", nil, true)
	if got := a.Status().State; got != StateInitializing {
		t.Fatalf("expected initializing, got %s", got)
	}

	a.Initialize(InitConfig{})
	if got := a.Status().State; got != StateIdle {
		t.Fatalf("expected idle after init, got %s", got)
	}

	task := NewTask(TaskDocumentGeneration, nil, PriorityMedium, "u1")
	a.ExecuteTask(context.Background(), task)
	st := a.Status()
	if st.State != StateIdle {
		t.Errorf("expected idle after success, got %s", st.State)
	}
	if st.SuccessCount != 1 {
		t.Errorf("expected success count 1, got %d", st.SuccessCount)
	}
	if st.CurrentTask != "" {
		t.Errorf("expected cleared current task, got %q", st.CurrentTask)
	}

	a.Shutdown()
	if got := a.Status().State; got != StateOffline {
		t.Fatalf("expected offline, got %s", got)
	}
}

func TestErrorStateHealsOnSuccess(t *testing.T) {
	a := newStubAgent("a1", nil, false)
	a.Initialize(InitConfig{})

	a.ExecuteTask(context.Background(), NewTask(TaskDocumentGeneration, nil, PriorityMedium, "u1"))
	st := a.Status()
	if st.State != StateError {
		t.Fatalf("expected error state, got %s", st.State)
	}
	if st.ErrorCount != 1 {
		t.Errorf("expected error count 1, got %d", st.ErrorCount)
	}

	// The next successful task heals ERROR.
	a.succeed = true
	a.ExecuteTask(context.Background(), NewTask(TaskDocumentGeneration, nil, PriorityMedium, "u1"))
	if got := a.Status().State; got != StateIdle {
		t.Fatalf("expected idle after recovery, got %s", got)
	}
}

func TestMarkReadyOnlyFromInitializing(t *testing.T) {
	a := newStubAgent("a1", nil, true)
	a.Shutdown()
	a.MarkReady()
	if got := a.Status().State; got != StateOffline {
		t.Fatalf("offline is terminal, got %s", got)
	}
}

func TestSendMessageRequiresConnection(t *testing.T) {
	sender := newStubAgent("sender", nil, true)
	receiver := newStubAgent("receiver", nil, true)

	if err := sender.SendMessage("receiver", &Message{Kind: "ping"}); err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}

	sender.ConnectTo(receiver)
	if err := sender.SendMessage("receiver", &Message{Kind: "ping", Payload: "hallo"}); err != nil {
		t.Fatalf("send after connect: %v", err)
	}

	inbox := receiver.Inbox()
	if len(inbox) != 1 {
		t.Fatalf("expected 1 inbox entry, got %d", len(inbox))
	}
	if inbox[0].SenderID != "sender" {
		t.Errorf("expected sender ID, got %q", inbox[0].SenderID)
	}
	if inbox[0].Message.Timestamp.IsZero() {
		t.Error("expected timestamp to be filled in")
	}
}

func TestRegistryFirstMatchWins(t *testing.T) {
	reg := NewRegistry(zap.NewNop())

	first := newStubAgent("first", []Capability{CapabilityContentGeneration}, true)
	second := newStubAgent("second", []Capability{CapabilityContentGeneration}, true)
	reg.Register(first)
	reg.Register(second)

	got, ok := reg.Find(CapabilityContentGeneration)
	if !ok {
		t.Fatal("expected a match")
	}
	if got.ID() != "first" {
		t.Errorf("expected first-registered agent, got %q", got.ID())
	}

	if _, ok := reg.Find(CapabilityCodeGeneration); ok {
		t.Error("expected no match for unregistered capability")
	}

	if n := len(reg.All()); n != 2 {
		t.Errorf("expected 2 registered agents, got %d", n)
	}
}

func TestTaskParamHelpers(t *testing.T) {
	task := NewTask(TaskDocumentGeneration, map[string]any{
		"topic":     "Wahlrecht",
		"libraries": []any{"matplotlib", "pandas"},
		"count":     3,
	}, "", "u1")

	if task.Priority != PriorityMedium {
		t.Errorf("expected default priority medium, got %s", task.Priority)
	}
	if got := task.StringParam("topic", ""); got != "Wahlrecht" {
		t.Errorf("StringParam topic = %q", got)
	}
	if got := task.StringParam("missing", "fallback"); got != "fallback" {
		t.Errorf("StringParam fallback = %q", got)
	}
	if got := task.StringParam("count", "fallback"); got != "fallback" {
		t.Errorf("non-string param must fall back, got %q", got)
	}
	libs := task.StringsParam("libraries")
	if len(libs) != 2 || libs[0] != "matplotlib" {
		t.Errorf("StringsParam = %v", libs)
	}
}
