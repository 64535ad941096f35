package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/civitas-labs/agora/internal/provider"
	"github.com/civitas-labs/agora/internal/system"
	"go.uber.org/zap"
)

// scriptedProvider answers recognition prompts with a fixed document
// intent and everything else with plain text.
type scriptedProvider struct{}

func (p *scriptedProvider) ID() string   { return "scripted" }
func (p *scriptedProvider) Name() string { return "Scripted" }

func (p *scriptedProvider) ListModels(ctx context.Context) ([]provider.Model, error) {
	return nil, nil
}

func (p *scriptedProvider) HealthCheck(ctx context.Context) error { return nil }

func (p *scriptedProvider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	prompt := req.Messages[len(req.Messages)-1].Content
	content := "Ein sachlicher Text über das angefragte Thema."
	if strings.Contains(prompt, "Absichtserkennung") {
		content = `{"intent":"createDocument","parameters":{"topic":"Grundrechte","language":"de"},"requiresFollowUp":false,"followUpQuestions":[],"bestApproach":"document"}`
	}
	return &provider.ChatResponse{ID: "r1", Model: req.Model, Content: content}, nil
}

// newTestHandler wires a Handler with the in-memory core only (no
// Postgres/Neo4j/Qdrant/Redis).
func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop()

	router := provider.NewRouter(logger)
	router.Register(&scriptedProvider{})

	sys := system.New(router, system.Options{}, logger)
	if err := sys.Initialize("test-key", "de"); err != nil {
		t.Fatalf("initialize system: %v", err)
	}

	h := NewHandler(sys, router, logger)
	return h.Router()
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func getJSON(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// --- Tests ---

func TestHealthCheck(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t))
	defer ts.Close()

	resp := getJSON(t, ts, "/api/health")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]interface{}
	decodeJSON(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if body["search"] != false {
		t.Errorf("expected search disabled, got %v", body["search"])
	}
}

func TestVoiceCommand(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t))
	defer ts.Close()

	resp := postJSON(t, ts, "/api/voice-command", map[string]string{
		"command": "Erstelle ein Dokument über Grundrechte",
		"user_id": "user-1",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result map[string]interface{}
	decodeJSON(t, resp, &result)
	if result["workflow_id"] == "" {
		t.Error("expected non-empty workflow_id")
	}
	if result["response"] == "" {
		t.Error("expected non-empty response")
	}
	if result["generated_content"] == nil {
		t.Error("expected generated content")
	}

	// The run must be visible in the workflow history.
	resp = getJSON(t, ts, "/api/workflows")
	var records []map[string]interface{}
	decodeJSON(t, resp, &records)
	if len(records) != 1 {
		t.Fatalf("expected 1 workflow record, got %d", len(records))
	}
	if records[0]["status"] != "completed" {
		t.Errorf("expected status completed, got %v", records[0]["status"])
	}
}

func TestVoiceCommandValidation(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t))
	defer ts.Close()

	// Missing user_id.
	resp := postJSON(t, ts, "/api/voice-command", map[string]string{"command": "Hallo"})
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 for missing user_id, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Empty command: rejected, but still recorded.
	resp = postJSON(t, ts, "/api/voice-command", map[string]string{
		"command": "   ", "user_id": "user-1",
	})
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 for empty command, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = getJSON(t, ts, "/api/workflows?user_id=user-1")
	var records []map[string]interface{}
	decodeJSON(t, resp, &records)
	if len(records) != 1 {
		t.Fatalf("expected 1 workflow record, got %d", len(records))
	}
	if records[0]["status"] != "failed" {
		t.Errorf("expected status failed, got %v", records[0]["status"])
	}
}

func TestListAgents(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t))
	defer ts.Close()

	resp := getJSON(t, ts, "/api/agents")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var agents []map[string]interface{}
	decodeJSON(t, resp, &agents)
	if len(agents) != 4 {
		t.Fatalf("expected 4 agents, got %d", len(agents))
	}
	for _, a := range agents {
		status := a["status"].(map[string]interface{})
		if status["state"] != "idle" {
			t.Errorf("agent %v: expected state idle, got %v", a["id"], status["state"])
		}
	}
}

func TestListProviders(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t))
	defer ts.Close()

	resp := getJSON(t, ts, "/api/providers")
	var providers []map[string]string
	decodeJSON(t, resp, &providers)
	if len(providers) != 1 {
		t.Fatalf("expected 1 provider, got %d", len(providers))
	}
	if providers[0]["id"] != "scripted" {
		t.Errorf("expected provider scripted, got %q", providers[0]["id"])
	}
}
