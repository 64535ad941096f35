package system

import (
	"context"
	"strings"
	"testing"

	"github.com/civitas-labs/agora/internal/agent"
	"github.com/civitas-labs/agora/internal/intent"
	"github.com/civitas-labs/agora/internal/ledger"
	"github.com/civitas-labs/agora/internal/provider"
	"go.uber.org/zap"
)

// scriptedProvider routes on prompt content so one fake can serve the
// recognizer and both generators.
type scriptedProvider struct{}

func (p *scriptedProvider) ID() string   { return "scripted" }
func (p *scriptedProvider) Name() string { return "Scripted" }

func (p *scriptedProvider) ListModels(ctx context.Context) ([]provider.Model, error) {
	return nil, nil
}

func (p *scriptedProvider) HealthCheck(ctx context.Context) error { return nil }

func (p *scriptedProvider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	prompt := req.Messages[len(req.Messages)-1].Content
	reply := func(content string) (*provider.ChatResponse, error) {
		return &provider.ChatResponse{ID: "r1", Model: req.Model, Content: content}, nil
	}

	switch {
	case strings.Contains(prompt, "Absichtserkennung"):
		// Recognition and follow-up analysis: decide by the embedded
		// user text.
		switch {
		case strings.Contains(prompt, "Lernplan"):
			return reply(`{"intent":"generateLearningPlan","parameters":{"topic":"Digitale Rechte"},"requiresFollowUp":false,"followUpQuestions":[],"bestApproach":"learning-path"}`)
		case strings.Contains(prompt, "Suche"):
			return reply(`{"intent":"searchInformation","parameters":{"topic":"Europawahl"},"requiresFollowUp":false,"followUpQuestions":[],"bestApproach":"document"}`)
		case strings.Contains(prompt, "Dokument"):
			return reply(`{"intent":"createDocument","parameters":{"topic":"Pressefreiheit"},"requiresFollowUp":false,"followUpQuestions":[],"bestApproach":"document"}`)
		default:
			return reply("???")
		}
	case strings.Contains(prompt, "Erstelle einen Lernplan zum Thema"):
		return reply(`{"description":"Ein Plan.","modules":[{"title":"Grundlagen","description":"Start","duration":"1 Woche","resources":["Text"],"activities":["Quiz"]},{"title":"Vertiefung","description":"Mehr","duration":"2 Wochen","resources":["Artikel"],"activities":["Essay"]}]}`)
	case strings.Contains(prompt, "Bestätigung"):
		return reply("Alles klar!")
	default:
		return reply("Ein sachlicher Text zum angefragten Thema.")
	}
}

func newTestSystem(t *testing.T) *System {
	t.Helper()
	logger := zap.NewNop()
	router := provider.NewRouter(logger)
	router.Register(&scriptedProvider{})

	sys := New(router, Options{}, logger)
	if err := sys.Initialize("test-key", "de"); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return sys
}

func TestProcessVoiceCommandLearningPath(t *testing.T) {
	sys := newTestSystem(t)

	result, err := sys.ProcessVoiceCommand(context.Background(),
		"Erstelle einen Lernplan zu digitalen Rechten", "u1", "de")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.WorkflowID == "" {
		t.Error("expected workflow ID")
	}
	art := result.GeneratedContent
	if art == nil || art.Kind != agent.ArtifactLearningPath {
		t.Fatalf("expected learning path artifact, got %+v", art)
	}
	if art.Title != "Lernplan: Digitale Rechte" {
		t.Errorf("title = %q", art.Title)
	}
	if !strings.Contains(result.Response, art.Title) {
		t.Errorf("response must reference the artifact title, got %q", result.Response)
	}
	if len(art.Path.Modules) != 2 {
		t.Errorf("modules = %d", len(art.Path.Modules))
	}
	if !result.RequiresFollowUp || len(result.FollowUpQuestions) == 0 {
		t.Error("coordination results carry canned follow-ups")
	}

	records := sys.WorkflowStatus()
	if len(records) != 1 {
		t.Fatalf("expected 1 ledger record, got %d", len(records))
	}
	if records[0].Status != ledger.StatusCompleted {
		t.Errorf("status = %q", records[0].Status)
	}
}

func TestEveryCommandLeavesOneLedgerRecord(t *testing.T) {
	sys := newTestSystem(t)
	ctx := context.Background()

	// Success, validation failure, and an unreadable command.
	sys.ProcessVoiceCommand(ctx, "Erstelle ein Dokument über Pressefreiheit", "u1", "de")
	sys.ProcessVoiceCommand(ctx, "   ", "u1", "de")
	sys.ProcessVoiceCommand(ctx, "blubb", "u2", "de")

	records := sys.WorkflowStatus()
	if len(records) != 3 {
		t.Fatalf("expected 3 ledger records, got %d", len(records))
	}
	if records[0].Status != ledger.StatusCompleted {
		t.Errorf("record 0 status = %q", records[0].Status)
	}
	if records[1].Status != ledger.StatusFailed {
		t.Errorf("empty command must be recorded failed, got %q", records[1].Status)
	}
	if records[2].Status != ledger.StatusCompleted {
		t.Errorf("unknown intent still completes with a follow-up, got %q", records[2].Status)
	}

	if n := len(sys.WorkflowsByUser("u1")); n != 2 {
		t.Errorf("u1 records = %d", n)
	}
}

func TestEmptyCommandReturnsError(t *testing.T) {
	sys := newTestSystem(t)
	_, err := sys.ProcessVoiceCommand(context.Background(), "", "u1", "de")
	if err != ErrEmptyCommand {
		t.Fatalf("expected ErrEmptyCommand, got %v", err)
	}
}

func TestUnknownIntentAsksFollowUp(t *testing.T) {
	sys := newTestSystem(t)
	result, err := sys.ProcessVoiceCommand(context.Background(), "blubb", "u1", "de")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.RequiresFollowUp || len(result.FollowUpQuestions) == 0 {
		t.Error("unknown input must request a follow-up")
	}
	if result.GeneratedContent != nil {
		t.Error("no artifact for unknown input")
	}
}

func TestSearchWithoutIndexDegrades(t *testing.T) {
	sys := newTestSystem(t)
	result, err := sys.ProcessVoiceCommand(context.Background(),
		"Suche Informationen zur Europawahl", "u1", "de")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.Contains(result.Response, "nicht verfügbar") {
		t.Errorf("response = %q", result.Response)
	}
	records := sys.WorkflowStatus()
	if len(records) != 1 || records[0].Status != ledger.StatusCompleted {
		t.Errorf("records = %+v", records)
	}
}

func TestProcessFollowUpDialog(t *testing.T) {
	sys := newTestSystem(t)

	result, err := sys.ProcessFollowUpDialog(context.Background(),
		"Erstelle ein Dokument über Pressefreiheit",
		"Bitte ein Dokument für Jugendliche",
		"u1",
		intent.DialogContext{
			Intent:       intent.IntentCreateDocument,
			Parameters:   map[string]any{"topic": "Pressefreiheit"},
			BestApproach: intent.ApproachDocument,
		})
	if err != nil {
		t.Fatalf("follow-up: %v", err)
	}
	if !strings.HasPrefix(result.Response, "Alles klar!") {
		t.Errorf("response must start with the acknowledgment, got %q", result.Response)
	}
	if result.GeneratedContent == nil || result.GeneratedContent.Kind != agent.ArtifactDocument {
		t.Fatalf("expected document artifact, got %+v", result.GeneratedContent)
	}

	records := sys.WorkflowStatus()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].InitialQuery == "" || records[0].UserResponse == "" {
		t.Error("follow-up records must carry the dialog fields")
	}
}

func TestAgentsSnapshot(t *testing.T) {
	sys := newTestSystem(t)
	agents := sys.Agents()
	if len(agents) != 4 {
		t.Fatalf("expected 4 agents, got %d", len(agents))
	}
	for _, a := range agents {
		if a.Status.State != agent.StateIdle {
			t.Errorf("agent %s: state = %s", a.ID, a.Status.State)
		}
	}
}
