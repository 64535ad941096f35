package content

import (
	"context"
	"errors"
	"testing"

	"github.com/civitas-labs/agora/internal/agent"
	"github.com/civitas-labs/agora/internal/provider"
	"go.uber.org/zap"
)

type fakeGen struct {
	out string
	err error
}

func (f *fakeGen) Generate(_ context.Context, _ string, _ provider.GenerateOptions) (string, error) {
	return f.out, f.err
}

func newTestGenerator(t *testing.T, gen provider.TextGenerator) *Generator {
	t.Helper()
	g := NewGenerator(gen, zap.NewNop())
	if err := g.Initialize(agent.InitConfig{Credential: "test-key"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return g
}

func TestInitializeRequiresCredential(t *testing.T) {
	g := NewGenerator(&fakeGen{}, zap.NewNop())
	if err := g.Initialize(agent.InitConfig{}); err == nil {
		t.Fatal("expected error for missing credential")
	}
	if got := g.Status().State; got != agent.StateInitializing {
		t.Errorf("failed init must leave status unaffected, got %s", got)
	}
}

func TestGenerateDocument(t *testing.T) {
	g := newTestGenerator(t, &fakeGen{out: "## Einleitung\nDie Pressefreiheit ist..."})

	task := agent.NewTask(agent.TaskDocumentGeneration, map[string]any{
		"topic": "Pressefreiheit in Europa",
	}, agent.PriorityMedium, "u1")
	result := g.ExecuteTask(context.Background(), task)

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Err)
	}
	art := result.Content
	if art == nil || art.Kind != agent.ArtifactDocument {
		t.Fatalf("expected document artifact, got %+v", art)
	}
	if art.Title != "Pressefreiheit in Europa" {
		t.Errorf("title must be the topic, got %q", art.Title)
	}
	meta := art.Document.Metadata
	if meta.Language != "de" {
		t.Errorf("language must default to de, got %q", meta.Language)
	}
	if meta.TargetAudience != "Allgemeine Öffentlichkeit" {
		t.Errorf("audience default missing, got %q", meta.TargetAudience)
	}
	if len(meta.Tags) == 0 || meta.Tags[0] != "pressefreiheit in europa" {
		t.Errorf("tags must start with the lowercased topic, got %v", meta.Tags)
	}
}

func TestGenerateDocumentMissingTopic(t *testing.T) {
	g := newTestGenerator(t, &fakeGen{out: "egal"})
	task := agent.NewTask(agent.TaskDocumentGeneration, nil, agent.PriorityMedium, "u1")
	result := g.ExecuteTask(context.Background(), task)
	if result.Success {
		t.Fatal("expected failure for missing topic")
	}
	if g.Status().State != agent.StateError {
		t.Errorf("failed task must leave ERROR state, got %s", g.Status().State)
	}
}

func TestGenerateLearningPathParsesModules(t *testing.T) {
	g := newTestGenerator(t, &fakeGen{
		out: `{"description":"Ein Plan.","modules":[{"title":"Modul 1","description":"Start","duration":"1 Woche","resources":["Text"],"activities":["Quiz"]}]}`,
	})

	task := agent.NewTask(agent.TaskLearningPathCreation, map[string]any{
		"topic": "Digitale Rechte",
	}, agent.PriorityMedium, "u1")
	result := g.ExecuteTask(context.Background(), task)

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Err)
	}
	art := result.Content
	if art.Kind != agent.ArtifactLearningPath {
		t.Fatalf("kind = %s", art.Kind)
	}
	if art.Title != "Lernplan: Digitale Rechte" {
		t.Errorf("title = %q", art.Title)
	}
	if len(art.Path.Modules) != 1 || art.Path.Modules[0].Title != "Modul 1" {
		t.Errorf("modules = %+v", art.Path.Modules)
	}
}

func TestGenerateLearningPathFallsBackToModules(t *testing.T) {
	// Generator failure must still yield a usable plan.
	g := newTestGenerator(t, &fakeGen{err: errors.New("provider down")})

	task := agent.NewTask(agent.TaskLearningPathCreation, map[string]any{
		"topic": "Kommunalpolitik",
	}, agent.PriorityMedium, "u1")
	result := g.ExecuteTask(context.Background(), task)

	if !result.Success {
		t.Fatalf("expected success via fallback, got %q", result.Err)
	}
	if len(result.Content.Path.Modules) == 0 {
		t.Fatal("a learning path must always carry at least one module")
	}
}

func TestUnknownTaskType(t *testing.T) {
	g := newTestGenerator(t, &fakeGen{out: "egal"})
	task := agent.NewTask(agent.TaskMap, nil, agent.PriorityMedium, "u1")
	result := g.ExecuteTask(context.Background(), task)
	if result.Success {
		t.Fatal("expected failure for foreign task type")
	}
	if result.Err != "unknown task type generate-map" {
		t.Errorf("err = %q", result.Err)
	}
}

func TestDeriveTags(t *testing.T) {
	tags := DeriveTags("Wahlrecht ab 16")
	if tags[0] != "wahlrecht ab 16" {
		t.Errorf("first tag must be the lowercased topic, got %q", tags[0])
	}
	// Short words are dropped; long words become tags.
	for _, tag := range tags[1:] {
		if len([]rune(tag)) < 4 {
			t.Errorf("short word leaked into tags: %q", tag)
		}
	}
	if len(tags) != 2 || tags[1] != "wahlrecht" {
		t.Errorf("tags = %v", tags)
	}
}
