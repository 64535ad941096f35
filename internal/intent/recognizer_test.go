package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/civitas-labs/agora/internal/provider"
	"go.uber.org/zap"
)

// fakeGen returns a fixed output or error for every call.
type fakeGen struct {
	out string
	err error
}

func (f *fakeGen) Generate(_ context.Context, _ string, _ provider.GenerateOptions) (string, error) {
	return f.out, f.err
}

func TestRecognizeIntentIsTotal(t *testing.T) {
	r := NewRecognizer(&fakeGen{err: errors.New("provider down")}, zap.NewNop())

	a := r.RecognizeIntent(context.Background(), "Erstelle ein Dokument", "u1", "")
	if a == nil {
		t.Fatal("recognition must never return nil")
	}
	if a.Intent != IntentUnknown {
		t.Errorf("intent = %q, want unknown", a.Intent)
	}
	if a.Parameters["language"] != "de" {
		t.Errorf("language must default to de, got %v", a.Parameters["language"])
	}
	if !a.RequiresFollowUp {
		t.Error("safe default must request a follow-up")
	}
}

func TestRecognizeIntentParsesModelOutput(t *testing.T) {
	r := NewRecognizer(&fakeGen{
		out: `{"intent":"generateMap","parameters":{"topic":"Wahlkreise"},"requiresFollowUp":false,"followUpQuestions":[],"bestApproach":"code"}`,
	}, zap.NewNop())

	a := r.RecognizeIntent(context.Background(), "Zeig mir die Wahlkreise auf einer Karte", "u1", "de")
	if a.Intent != IntentGenerateMap {
		t.Errorf("intent = %q", a.Intent)
	}
	if a.BestApproach != ApproachCode {
		t.Errorf("approach = %q", a.BestApproach)
	}
	if a.Parameters["language"] != "de" {
		t.Error("language parameter must be ensured")
	}
	if !a.NeedsCoordination {
		t.Error("map generation needs coordination")
	}
}

func TestAnalyzeFollowUpMergesParameters(t *testing.T) {
	r := NewRecognizer(&fakeGen{
		out: `{"intent":"createDocument","parameters":{"target_audience":"Jugendliche"},"requiresFollowUp":false,"followUpQuestions":[],"bestApproach":"document"}`,
	}, zap.NewNop())

	dc := DialogContext{
		Intent:       IntentCreateDocument,
		Parameters:   map[string]any{"topic": "Grundgesetz", "language": "de"},
		BestApproach: ApproachDocument,
	}
	a := r.AnalyzeFollowUp(context.Background(), "Erstelle ein Dokument zum Grundgesetz", "Für Jugendliche bitte", dc)

	// Prior parameters survive, the new one is added.
	if a.Parameters["topic"] != "Grundgesetz" {
		t.Errorf("prior topic lost: %v", a.Parameters["topic"])
	}
	if a.Parameters["target_audience"] != "Jugendliche" {
		t.Errorf("new parameter missing: %v", a.Parameters["target_audience"])
	}
	if !a.NeedsCoordination {
		t.Error("merged analysis must need coordination")
	}
}

func TestAnalyzeFollowUpKeepsPriorIntentOnGarbage(t *testing.T) {
	r := NewRecognizer(&fakeGen{out: "???"}, zap.NewNop())

	dc := DialogContext{
		Intent:       IntentGenerateLearningPlan,
		Parameters:   map[string]any{"topic": "Datenschutz"},
		BestApproach: ApproachLearningPath,
	}
	a := r.AnalyzeFollowUp(context.Background(), "Lernplan zu Datenschutz", "ja, gerne", dc)

	if a.Intent != IntentGenerateLearningPlan {
		t.Errorf("prior intent must survive garbage output, got %q", a.Intent)
	}
	if a.BestApproach != ApproachLearningPath {
		t.Errorf("approach = %q", a.BestApproach)
	}
	if a.Parameters["topic"] != "Datenschutz" {
		t.Errorf("prior topic lost: %v", a.Parameters["topic"])
	}
	if a.RequiresFollowUp {
		t.Error("restored context must not loop back into a follow-up")
	}
}

func TestGenerateFollowUpResponseDegrades(t *testing.T) {
	r := NewRecognizer(&fakeGen{err: errors.New("provider down")}, zap.NewNop())
	got := r.GenerateFollowUpResponse(context.Background(), defaultAnalysis(), "für Kinder")
	if got != "Alles klar, ich habe Ihre Angaben übernommen." {
		t.Errorf("expected canned acknowledgment, got %q", got)
	}
}
