package codegen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/civitas-labs/agora/internal/agent"
	"github.com/civitas-labs/agora/internal/provider"
	"go.uber.org/zap"
)

// Generator produces code artifacts: visualizations, analysis scripts,
// dashboards, presentations, maps, and HTML pages.
type Generator struct {
	*agent.Core
	gen provider.TextGenerator
}

// NewGenerator creates the code-generation agent.
func NewGenerator(gen provider.TextGenerator, logger *zap.Logger) *Generator {
	return &Generator{
		Core: agent.NewCore(
			"code-generator",
			"Code-Generator",
			agent.RoleCodeGenerator,
			[]agent.Capability{agent.CapabilityCodeGeneration},
			logger,
		),
		gen: gen,
	}
}

// Initialize verifies the shared credential. A failure leaves the status
// unaffected.
func (g *Generator) Initialize(cfg agent.InitConfig) error {
	if cfg.Credential == "" {
		return fmt.Errorf("code generator: missing credential")
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
			result = agent.Fail("Die Code-Erstellung ist fehlgeschlagen.", fmt.Sprintf("panic: %v", rec))
		}
		g.EndTask(result.Success)
	}()

	switch task.Type {
	case agent.TaskVisualizationCode:
		return g.generateCode(ctx, task, agent.ArtifactCode, "Visualisierung",
			"Erzeuge Code, der die beschriebenen Daten anschaulich visualisiert.")
	case agent.TaskDataAnalysisCode:
		return g.generateCode(ctx, task, agent.ArtifactCode, "Datenanalyse",
			"Erzeuge Code, der die beschriebenen Daten einliest, aufbereitet und statistisch auswertet.")
	case agent.TaskInteractiveDashboard:
		return g.generateBundle(ctx, task, agent.ArtifactDashboard, "Dashboard",
			"Erzeuge ein interaktives Dashboard mit Filtern und mehreren Diagrammen.")
	case agent.TaskPresentation:
		return g.generateBundle(ctx, task, agent.ArtifactPresentation, "Präsentation",
			"Erzeuge eine HTML-Präsentation mit klar gegliederten Folien.")
	case agent.TaskMap:
		return g.generateBundle(ctx, task, agent.ArtifactMap, "Karte",
			"Erzeuge eine interaktive Karte mit Markern und Pop-ups für die genannten Orte.")
	case agent.TaskHTMLPage:
		return g.generateBundle(ctx, task, agent.ArtifactHTMLPage, "HTML-Seite",
			"Erzeuge eine vollständige, eigenständige HTML-Seite zum genannten Thema.")
	default:
		return agent.Fail("Unbekannter Aufgabentyp.", fmt.Sprintf("unknown task type %s", task.Type))
	}
}

// request gathers the validated inputs shared by all code tasks.
type request struct {
	purpose   string
	language  string
	libraries []string
	details   string
}

func (g *Generator) buildRequest(task *agent.Task, defaultLang string) (*request, error) {
	purpose := task.StringParam("purpose", task.StringParam("topic", task.StringParam("intent", "")))
	if purpose == "" {
		return nil, fmt.Errorf("missing parameter: purpose")
	}
	lang := g.ValidateLanguage(task.StringParam("language", defaultLang))
	libs := g.ValidateLibraries(lang, task.StringsParam("libraries"))
	return &request{
		purpose:   purpose,
		language:  lang,
		libraries: libs,
		details:   task.StringParam("data_description", ""),
	}, nil
}

func (g *Generator) generateSource(ctx context.Context, req *request, instruction string) (string, error) {
	prompt := fmt.Sprintf(
		"%s\nZweck: %s\nSprache: %s\nErlaubte Bibliotheken: %s\n%s\n"+
			"Gib den Code in einem mit %s markierten Codeblock aus.",
		instruction, req.purpose, req.language,
		strings.Join(req.libraries, ", "), req.details, req.language)

	out, err := g.gen.Generate(ctx, prompt, provider.GenerateOptions{
		Temperature: 0.3,
		MaxTokens:   4096,
	})
	if err != nil {
		return "", err
	}
	return ExtractCode(out, req.language), nil
}

// generateCode handles the single-file code task types.
func (g *Generator) generateCode(ctx context.Context, task *agent.Task, kind agent.ArtifactKind, label, instruction string) *agent.TaskResult {
	req, err := g.buildRequest(task, fallbackLanguage)
	if err != nil {
		return agent.Fail("Es wurde kein Zweck angegeben.", err.Error())
	}

	source, err := g.generateSource(ctx, req, instruction)
	if err != nil {
		g.Logger().Error("code generation failed", zap.String("purpose", req.purpose), zap.Error(err))
		return agent.Fail("Der Code konnte nicht erstellt werden.", err.Error())
	}

	artifact := &agent.Artifact{
		Kind:      kind,
		Title:     fmt.Sprintf("%s: %s", label, req.purpose),
		CreatedAt: time.Now(),
		Code: &agent.CodeContent{
			Language: req.language,
			Source:   source,
			Metadata: agent.CodeMeta{
				Purpose:      req.purpose,
				Dependencies: req.libraries,
				CreatedAt:    time.Now(),
				Author:       g.Name(),
				Instructions: runInstructions(req.language),
			},
		},
	}
	return agent.Succeed(fmt.Sprintf("%s %q wurde erstellt.", label, artifact.Title), artifact)
}

// generateBundle handles the multi-file artifact kinds (dashboard,
// presentation, map, HTML page).
func (g *Generator) generateBundle(ctx context.Context, task *agent.Task, kind agent.ArtifactKind, label, instruction string) *agent.TaskResult {
	defaultLang := "html"
	if kind == agent.ArtifactDashboard {
		defaultLang = fallbackLanguage
	}
	req, err := g.buildRequest(task, defaultLang)
	if err != nil {
		return agent.Fail("Es wurde kein Zweck angegeben.", err.Error())
	}

	source, err := g.generateSource(ctx, req, instruction)
	if err != nil {
		g.Logger().Error("bundle generation failed", zap.String("purpose", req.purpose), zap.Error(err))
		return agent.Fail(fmt.Sprintf("Die %s konnte nicht erstellt werden.", label), err.Error())
	}

	artifact := &agent.Artifact{
		Kind:      kind,
		Title:     fmt.Sprintf("%s: %s", label, req.purpose),
		CreatedAt: time.Now(),
		Bundle: &agent.BundleContent{
			Files:      map[string]string{mainFileName(req.language): source},
			Libraries:  req.libraries,
			Complexity: task.StringParam("complexity", "mittel"),
			Metadata: agent.CodeMeta{
				Purpose:      req.purpose,
				Dependencies: req.libraries,
				CreatedAt:    time.Now(),
				Author:       g.Name(),
				Instructions: runInstructions(req.language),
			},
		},
	}
	return agent.Succeed(fmt.Sprintf("%s %q wurde erstellt.", label, artifact.Title), artifact)
}

func mainFileName(lang string) string {
	switch lang {
	case "python":
		return "main.py"
	case "javascript":
		return "main.js"
	case "typescript":
		return "main.ts"
	case "r":
		return "main.R"
	default:
		return "index.html"
	}
}

func runInstructions(lang string) string {
	switch lang {
	case "python":
		return "Abhängigkeiten mit pip installieren, dann: python main.py"
	case "javascript", "typescript":
		return "Abhängigkeiten mit npm installieren, dann im Browser oder mit node ausführen."
	case "r":
		return "Pakete mit install.packages installieren, dann: Rscript main.R"
	default:
		return "Die Datei index.html im Browser öffnen."
	}
}
