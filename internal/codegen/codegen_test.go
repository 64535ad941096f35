package codegen

import (
	"context"
	"strings"
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

func TestValidateLanguage(t *testing.T) {
	g := newTestGenerator(t, &fakeGen{})

	cases := map[string]string{
		"PYTHON":     "python",
		"py":         "python",
		"js":         "javascript",
		"TypeScript": "typescript",
		"R":          "r",
		"cobol":      "python",
		"":           "python",
	}
	for in, want := range cases {
		if got := g.ValidateLanguage(in); got != want {
			t.Errorf("ValidateLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateLibraries(t *testing.T) {
	g := newTestGenerator(t, &fakeGen{})

	// Unsupported entries are dropped silently.
	got := g.ValidateLibraries("python", []string{"matplotlib", "unbekanntelib"})
	if len(got) != 1 || got[0] != "matplotlib" {
		t.Errorf("got %v", got)
	}

	// Empty request yields the language defaults.
	defaults := g.ValidateLibraries("python", nil)
	if len(defaults) == 0 {
		t.Fatal("expected default libraries")
	}
	// The returned slice must be a copy, not the shared default.
	defaults[0] = "mutated"
	again := g.ValidateLibraries("python", nil)
	if again[0] == "mutated" {
		t.Error("default library slice must not be shared")
	}
}

func TestExtractCodeFencedBlock(t *testing.T) {
	text := "Hier ist der Code:\n```python\nimport matplotlib.pyplot as plt\nplt.plot([1,2])\n```\nViel Erfolg!"
	got := ExtractCode(text, "python")
	if !strings.HasPrefix(got, "import matplotlib") {
		t.Errorf("got %q", got)
	}
	if strings.Contains(got, "Viel Erfolg") {
		t.Error("prose must not leak into extracted code")
	}
}

func TestExtractCodeJoinsMultipleBlocks(t *testing.T) {
	text := "```python\nimport pandas as pd\n```\nund dann\n```python\nprint(pd.__version__)\n```"
	got := ExtractCode(text, "python")
	if !strings.Contains(got, "import pandas") || !strings.Contains(got, "print(") {
		t.Errorf("both blocks must survive, got %q", got)
	}
}

func TestExtractCodeHeuristic(t *testing.T) {
	text := "Der folgende Code hilft:\nimport numpy as np\nnp.zeros(3)\nDas war alles."
	got := ExtractCode(text, "python")
	if !strings.Contains(got, "import numpy") {
		t.Errorf("heuristic must keep code lines, got %q", got)
	}
	if strings.Contains(got, "Der folgende Code") {
		t.Error("prose lines must be dropped by the heuristic")
	}
}

func TestExtractCodeLastResortReturnsRaw(t *testing.T) {
	text := "nur Prosa, keinerlei Code"
	if got := ExtractCode(text, "python"); got != text {
		t.Errorf("last resort must return the raw text, got %q", got)
	}
}

func TestGenerateVisualizationCode(t *testing.T) {
	g := newTestGenerator(t, &fakeGen{
		out: "```python\nimport matplotlib.pyplot as plt\nplt.bar([1], [2])\n```",
	})

	task := agent.NewTask(agent.TaskVisualizationCode, map[string]any{
		"purpose":   "Wahlbeteiligung nach Altersgruppe",
		"language":  "PYTHON",
		"libraries": []any{"matplotlib", "unbekanntelib"},
	}, agent.PriorityMedium, "u1")
	result := g.ExecuteTask(context.Background(), task)

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Err)
	}
	art := result.Content
	if art.Kind != agent.ArtifactCode {
		t.Fatalf("kind = %s", art.Kind)
	}
	if art.Code.Language != "python" {
		t.Errorf("language = %q", art.Code.Language)
	}
	if len(art.Code.Metadata.Dependencies) != 1 || art.Code.Metadata.Dependencies[0] != "matplotlib" {
		t.Errorf("dependencies = %v", art.Code.Metadata.Dependencies)
	}
	if !strings.Contains(art.Title, "Wahlbeteiligung") {
		t.Errorf("title = %q", art.Title)
	}
}

func TestGenerateDashboardBundle(t *testing.T) {
	g := newTestGenerator(t, &fakeGen{
		out: "```python\nimport dash\napp = dash.Dash()\n```",
	})

	task := agent.NewTask(agent.TaskInteractiveDashboard, map[string]any{
		"purpose": "Haushaltsdaten",
	}, agent.PriorityMedium, "u1")
	result := g.ExecuteTask(context.Background(), task)

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Err)
	}
	art := result.Content
	if art.Kind != agent.ArtifactDashboard {
		t.Fatalf("kind = %s", art.Kind)
	}
	if _, ok := art.Bundle.Files["main.py"]; !ok {
		t.Errorf("dashboard defaults to python, files = %v", art.Bundle.Files)
	}
}

func TestGenerateMapDefaultsToHTML(t *testing.T) {
	g := newTestGenerator(t, &fakeGen{
		out: "```html\n<!DOCTYPE html>\n<div id=\"map\"></div>\n```",
	})

	task := agent.NewTask(agent.TaskMap, map[string]any{
		"purpose": "Wahllokale in Köln",
	}, agent.PriorityMedium, "u1")
	result := g.ExecuteTask(context.Background(), task)

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Err)
	}
	if _, ok := result.Content.Bundle.Files["index.html"]; !ok {
		t.Errorf("map bundles default to html, files = %v", result.Content.Bundle.Files)
	}
}

func TestMissingPurposeFails(t *testing.T) {
	g := newTestGenerator(t, &fakeGen{out: "egal"})
	task := agent.NewTask(agent.TaskVisualizationCode, nil, agent.PriorityMedium, "u1")
	result := g.ExecuteTask(context.Background(), task)
	if result.Success {
		t.Fatal("expected failure for missing purpose")
	}
}
