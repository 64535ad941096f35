package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/civitas-labs/agora/internal/agent"
	"github.com/civitas-labs/agora/internal/intent"
	"github.com/civitas-labs/agora/internal/provider"
	"go.uber.org/zap"
)

const defaultLanguage = "de"

// Generator authors documents and learning paths. Titles and tags are
// derived deterministically from the request so they stay reproducible
// even when the underlying generator is not.
type Generator struct {
	*agent.Core
	gen provider.TextGenerator
}

// NewGenerator creates the content-generation agent.
func NewGenerator(gen provider.TextGenerator, logger *zap.Logger) *Generator {
	return &Generator{
		Core: agent.NewCore(
			"content-generator",
			"Inhalts-Generator",
			agent.RoleContentGenerator,
			[]agent.Capability{agent.CapabilityContentGeneration},
			logger,
		),
		gen: gen,
	}
}

// Initialize verifies the shared credential. A failure leaves the status
// unaffected.
func (g *Generator) Initialize(cfg agent.InitConfig) error {
	if cfg.Credential == "" {
		return fmt.Errorf("content generator: missing credential")
	}
	g.MarkReady()
	return nil
}

// ExecuteTask is the only task-execution entry point. Internal failures
// are caught and reported as failed results, never propagated.
func (g *Generator) ExecuteTask(ctx context.Context, task *agent.Task) (result *agent.TaskResult) {
	g.BeginTask(task)
	defer func() {
		if rec := recover(); rec != nil {
			result = agent.Fail("Die Inhaltserstellung ist fehlgeschlagen.", fmt.Sprintf("panic: %v", rec))
		}
		g.EndTask(result.Success)
	}()

	switch task.Type {
	case agent.TaskDocumentGeneration:
		return g.generateDocument(ctx, task)
	case agent.TaskLearningPathCreation:
		return g.generateLearningPath(ctx, task)
	default:
		return agent.Fail("Unbekannter Aufgabentyp.", fmt.Sprintf("unknown task type %s", task.Type))
	}
}

func (g *Generator) generateDocument(ctx context.Context, task *agent.Task) *agent.TaskResult {
	topic := task.StringParam("topic", task.StringParam("intent", ""))
	if topic == "" {
		return agent.Fail("Es wurde kein Thema angegeben.", "missing parameter: topic")
	}
	language := task.StringParam("language", defaultLanguage)
	audience := task.StringParam("target_audience", "Allgemeine Öffentlichkeit")
	category := task.StringParam("category", "")

	prompt := fmt.Sprintf(
		"Verfasse ein gut strukturiertes Dokument zum Thema %q in der Sprache %q für die Zielgruppe %q. "+
			"Nutze Zwischenüberschriften und einen sachlichen, verständlichen Stil.",
		topic, language, audience)

	body, err := g.gen.Generate(ctx, prompt, provider.GenerateOptions{
		Temperature: 0.7,
		MaxTokens:   4096,
	})
	if err != nil {
		g.Logger().Error("document generation failed", zap.String("topic", topic), zap.Error(err))
		return agent.Fail("Das Dokument konnte nicht erstellt werden.", err.Error())
	}

	artifact := &agent.Artifact{
		Kind:      agent.ArtifactDocument,
		Title:     topic,
		CreatedAt: time.Now(),
		Document: &agent.DocumentContent{
			Content: body,
			Metadata: agent.DocumentMeta{
				Author:         g.Name(),
				CreatedAt:      time.Now(),
				Tags:           DeriveTags(topic),
				TargetAudience: audience,
				Language:       language,
				Category:       category,
				Format:         "markdown",
			},
		},
	}
	return agent.Succeed(fmt.Sprintf("Das Dokument %q wurde erstellt.", artifact.Title), artifact)
}

// pathPayload matches the JSON shape the learning-path prompt requests.
type pathPayload struct {
	Description string `json:"description"`
	Modules     []struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Duration    string   `json:"duration"`
		Resources   []string `json:"resources"`
		Activities  []string `json:"activities"`
	} `json:"modules"`
}

func (g *Generator) generateLearningPath(ctx context.Context, task *agent.Task) *agent.TaskResult {
	topic := task.StringParam("topic", task.StringParam("intent", ""))
	if topic == "" {
		return agent.Fail("Es wurde kein Thema angegeben.", "missing parameter: topic")
	}
	difficulty := task.StringParam("difficulty", "Einsteiger")
	duration := task.StringParam("time_to_complete", "4 Wochen")

	prompt := fmt.Sprintf(
		"Erstelle einen Lernplan zum Thema %q (Niveau: %s, Gesamtdauer: %s). "+
			"Antworte ausschließlich mit einem JSON-Objekt: "+
			`{"description":"...","modules":[{"title":"...","description":"...","duration":"...","resources":["..."],"activities":["..."]}]}`,
		topic, difficulty, duration)

	out, err := g.gen.Generate(ctx, prompt, provider.GenerateOptions{
		Temperature: 0.5,
		MaxTokens:   4096,
	})

	title := fmt.Sprintf("Lernplan: %s", topic)
	path := &agent.LearningPathContent{
		Metadata: agent.PathMeta{
			Difficulty:     difficulty,
			TimeToComplete: duration,
			Prerequisites:  task.StringsParam("prerequisites"),
			CreatedAt:      time.Now(),
			Author:         g.Name(),
		},
	}

	if err == nil {
		if block, ok := intent.ExtractJSONObject(out); ok {
			var payload pathPayload
			if json.Unmarshal([]byte(block), &payload) == nil && len(payload.Modules) > 0 {
				path.Description = payload.Description
				for _, m := range payload.Modules {
					path.Modules = append(path.Modules, agent.LearningModule{
						Title:       m.Title,
						Description: m.Description,
						Duration:    m.Duration,
						Resources:   m.Resources,
						Activities:  m.Activities,
					})
				}
			}
		}
	} else {
		g.Logger().Warn("learning path generation failed, using fallback modules",
			zap.String("topic", topic), zap.Error(err))
	}

	// A learning path always carries at least one module.
	if len(path.Modules) == 0 {
		path.Description = fmt.Sprintf("Ein Lernplan zum Thema %s.", topic)
		path.Modules = fallbackModules(topic)
	}

	artifact := &agent.Artifact{
		Kind:      agent.ArtifactLearningPath,
		Title:     title,
		CreatedAt: time.Now(),
		Path:      path,
	}
	return agent.Succeed(
		fmt.Sprintf("Der %s mit %d Modulen wurde erstellt.", artifact.Title, len(path.Modules)),
		artifact)
}

// fallbackModules builds a deterministic three-module outline when the
// generator output could not be parsed.
func fallbackModules(topic string) []agent.LearningModule {
	return []agent.LearningModule{
		{
			Title:       fmt.Sprintf("Grundlagen: %s", topic),
			Description: fmt.Sprintf("Einführung in die wichtigsten Begriffe und Zusammenhänge zu %s.", topic),
			Duration:    "1 Woche",
			Resources:   []string{"Einführungstext", "Glossar"},
			Activities:  []string{"Leseauftrag", "Selbsttest"},
		},
		{
			Title:       fmt.Sprintf("Vertiefung: %s", topic),
			Description: "Vertiefende Auseinandersetzung mit Fallbeispielen und aktuellen Entwicklungen.",
			Duration:    "2 Wochen",
			Resources:   []string{"Fallstudien", "Fachartikel"},
			Activities:  []string{"Gruppendiskussion", "Kurzessay"},
		},
		{
			Title:       "Praxis und Transfer",
			Description: "Anwendung des Gelernten auf eigene Fragestellungen.",
			Duration:    "1 Woche",
			Resources:   []string{"Projektleitfaden"},
			Activities:  []string{"Abschlussprojekt", "Präsentation"},
		},
	}
}

// DeriveTags builds the tag set from the topic: the lowercased topic
// itself plus its longer words.
func DeriveTags(topic string) []string {
	lower := strings.ToLower(strings.TrimSpace(topic))
	tags := []string{lower}
	seen := map[string]bool{lower: true}
	for _, w := range strings.Fields(lower) {
		w = strings.Trim(w, `.,;:!?"'()`)
		if len([]rune(w)) < 4 || seen[w] {
			continue
		}
		seen[w] = true
		tags = append(tags, w)
	}
	return tags
}
