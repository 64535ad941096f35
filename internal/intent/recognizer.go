package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/civitas-labs/agora/internal/agent"
	"github.com/civitas-labs/agora/internal/provider"
	"go.uber.org/zap"
)

// Recognizer turns raw natural-language input into an Analysis and can
// revise it given a follow-up answer. All parsing failures degrade
// through the three-tier fallback; recognition is total and never
// returns an error to its caller.
type Recognizer struct {
	*agent.Core
	gen provider.TextGenerator
}

// NewRecognizer creates the voice/intent agent.
func NewRecognizer(gen provider.TextGenerator, logger *zap.Logger) *Recognizer {
	return &Recognizer{
		Core: agent.NewCore(
			"intent-recognizer",
			"Intent-Erkennung",
			agent.RoleVoiceAssistant,
			[]agent.Capability{agent.CapabilityIntentRecognition},
			logger,
		),
		gen: gen,
	}
}

// Initialize verifies that a generation credential is present. On failure
// it leaves the status unaffected so the caller can proceed degraded.
func (r *Recognizer) Initialize(cfg agent.InitConfig) error {
	if cfg.Credential == "" {
		return fmt.Errorf("intent recognizer: missing credential")
	}
	r.MarkReady()
	return nil
}

const recognitionPrompt = `Du bist ein Assistent zur Absichtserkennung. Analysiere die Nutzereingabe und ordne sie genau einer dieser Absichten zu:
createDocument, generateLearningPlan, analyzeData, createVisualization, searchInformation, generatePresentation, generateHtmlPage, generateDashboard, generateMap

Nutzereingabe (%s): %s

Antworte ausschließlich mit einem JSON-Objekt in dieser Form:
{"intent":"...","parameters":{"topic":"...","language":"%s"},"requiresFollowUp":false,"followUpQuestions":[],"bestApproach":"document|code|learning-path|combined"}`

// RecognizeIntent classifies a user utterance. Upstream output is
// untrusted free text, so parsing degrades strict JSON → key/value
// scrape → safe default rather than failing.
func (r *Recognizer) RecognizeIntent(ctx context.Context, text, userID, language string) *Analysis {
	if language == "" {
		language = "de"
	}
	prompt := fmt.Sprintf(recognitionPrompt, language, text, language)

	out, err := r.gen.Generate(ctx, prompt, provider.GenerateOptions{
		Temperature: 0.1,
		MaxTokens:   1024,
	})
	if err != nil {
		r.Logger().Warn("intent generation failed, using safe default",
			zap.String("user", userID), zap.Error(err))
		return defaultAnalysis()
	}

	analysis := r.parseResponse(out)
	if _, ok := analysis.Parameters["language"]; !ok {
		analysis.Parameters["language"] = language
	}
	r.Logger().Info("recognized intent",
		zap.String("intent", analysis.Intent),
		zap.String("approach", string(analysis.BestApproach)),
		zap.String("user", userID))
	return analysis
}

// parseResponse applies the three-tier fallback chain.
func (r *Recognizer) parseResponse(out string) *Analysis {
	if a, ok := parseAnalysisJSON(out); ok {
		return a
	}
	if a, ok := scrapeAnalysis(out); ok {
		r.Logger().Warn("intent JSON unparsable, used key/value scrape")
		return a
	}
	r.Logger().Warn("intent output unreadable, using safe default")
	return defaultAnalysis()
}

const followUpPrompt = `Du bist ein Assistent zur Absichtserkennung. Ein Nutzer hat auf eine Rückfrage geantwortet.

Ursprüngliche Anfrage: %s
Bisher erkannte Absicht: %s
Bisherige Parameter: %s
Antwort des Nutzers: %s

Aktualisiere Absicht und Parameter. Antworte ausschließlich mit einem JSON-Objekt:
{"intent":"...","parameters":{...},"requiresFollowUp":false,"followUpQuestions":[],"bestApproach":"document|code|learning-path|combined"}`

// AnalyzeFollowUp re-runs recognition seeded with the prior dialog
// context. Parameters from the old context survive unless the new turn
// explicitly overrides them (merge, not replace).
func (r *Recognizer) AnalyzeFollowUp(ctx context.Context, initialQuery, userResponse string, dc DialogContext) *Analysis {
	priorParams, _ := json.Marshal(dc.Parameters)
	prompt := fmt.Sprintf(followUpPrompt, initialQuery, dc.Intent, string(priorParams), userResponse)

	var analysis *Analysis
	out, err := r.gen.Generate(ctx, prompt, provider.GenerateOptions{
		Temperature: 0.1,
		MaxTokens:   1024,
	})
	if err != nil {
		r.Logger().Warn("follow-up analysis failed, keeping prior context", zap.Error(err))
		analysis = defaultAnalysis()
	} else {
		analysis = r.parseResponse(out)
	}

	// Fall back to the prior intent when this turn could not be read.
	if analysis.Intent == IntentUnknown && dc.Intent != "" {
		analysis.Intent = dc.Intent
		analysis.BestApproach = normalizeApproach(string(dc.BestApproach), dc.Intent)
		analysis.RequiresFollowUp = false
		analysis.FollowUpQuestions = nil
	}
	merged := make(map[string]any, len(dc.Parameters)+len(analysis.Parameters))
	for k, v := range dc.Parameters {
		merged[k] = v
	}
	for k, v := range analysis.Parameters {
		merged[k] = v
	}
	analysis.Parameters = merged
	analysis.NeedsCoordination = NeedsCoordination(analysis.Intent)
	return analysis
}

// GenerateFollowUpResponse produces a short acknowledgment for a
// follow-up answer. A failure here must not fail the overall turn, so it
// degrades to a generic acknowledgment.
func (r *Recognizer) GenerateFollowUpResponse(ctx context.Context, analysis *Analysis, userResponse string) string {
	prompt := fmt.Sprintf(
		"Formuliere eine kurze, freundliche Bestätigung (ein Satz, Deutsch) für diese Nutzerangabe: %q. Erkannte Absicht: %s.",
		userResponse, analysis.Intent)
	out, err := r.gen.Generate(ctx, prompt, provider.GenerateOptions{
		Temperature: 0.6,
		MaxTokens:   128,
	})
	if err != nil || strings.TrimSpace(out) == "" {
		return "Alles klar, ich habe Ihre Angaben übernommen."
	}
	return strings.TrimSpace(out)
}

// ExecuteTask serves intent-recognition tasks dispatched through the
// generic agent contract.
func (r *Recognizer) ExecuteTask(ctx context.Context, task *agent.Task) (result *agent.TaskResult) {
	r.BeginTask(task)
	defer func() {
		if rec := recover(); rec != nil {
			result = agent.Fail("Absichtserkennung fehlgeschlagen.", fmt.Sprintf("panic: %v", rec))
		}
		r.EndTask(result.Success)
	}()

	if task.Type != agent.TaskIntentRecognition {
		return agent.Fail("Unbekannter Aufgabentyp.", fmt.Sprintf("unknown task type %s", task.Type))
	}
	text := task.StringParam("text", "")
	if text == "" {
		return agent.Fail("Es wurde kein Text übergeben.", "missing parameter: text")
	}
	analysis := r.RecognizeIntent(ctx,
		text,
		task.StringParam("user_id", task.Requester),
		task.StringParam("language", "de"))
	summary, _ := json.Marshal(analysis)
	return agent.Succeed(string(summary), nil)
}
