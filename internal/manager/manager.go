package manager

import (
	"context"
	"fmt"
	"strings"

	"github.com/civitas-labs/agora/internal/agent"
	"github.com/civitas-labs/agora/internal/intent"
	"go.uber.org/zap"
)

// phase tracks a single coordination call through its state machine:
// ROUTING → DISPATCHED → AGGREGATING → (DONE | FAILED).
type phase string

const (
	phaseRouting     phase = "routing"
	phaseDispatched  phase = "dispatched"
	phaseAggregating phase = "aggregating"
	phaseDone        phase = "done"
	phaseFailed      phase = "failed"
)

// Envelope is the manager-level response wrapped around a worker's
// artifact.
type Envelope struct {
	Success           bool                 `json:"success"`
	Response          string               `json:"response"`
	Content           *agent.Artifact      `json:"generated_content,omitempty"`
	RequiresFollowUp  bool                 `json:"requires_follow_up"`
	FollowUpQuestions []string             `json:"follow_up_questions,omitempty"`
	Context           intent.DialogContext `json:"context"`
	Err               string               `json:"error,omitempty"`
}

// Manager routes recognized intents to the matching specialized worker
// and reconciles the worker's artifact into a user-facing result.
type Manager struct {
	*agent.Core
	registry *agent.Registry
}

// New creates the coordinating agent on top of a capability registry.
func New(registry *agent.Registry, logger *zap.Logger) *Manager {
	return &Manager{
		Core: agent.NewCore(
			"manager",
			"Koordinator",
			agent.RoleManager,
			[]agent.Capability{agent.CapabilityCoordination},
			logger,
		),
		registry: registry,
	}
}

// Initialize needs no credential; the manager never calls a generator
// itself.
func (m *Manager) Initialize(_ agent.InitConfig) error {
	m.MarkReady()
	return nil
}

// ExecuteTask exists to satisfy the agent contract; the manager is
// driven through CoordinateTask, not task dispatch.
func (m *Manager) ExecuteTask(_ context.Context, task *agent.Task) *agent.TaskResult {
	return agent.Fail("Der Koordinator führt keine Aufgaben direkt aus.",
		fmt.Sprintf("unknown task type %s", task.Type))
}

// Ordered keyword sets for approach routing. An intent string can match
// several categories; the first category whose keyword set matches wins,
// so the check order is part of the contract.
var (
	codeKeywords = []string{
		"code", "visual", "diagramm", "chart", "dashboard",
		"karte", "map", "html", "präsentation", "presentation", "analy",
	}
	learningKeywords = []string{
		"lernplan", "lernpfad", "learning", "kurs", "curriculum", "schulung",
	}
)

// DetermineBestApproach picks the specialized path. The task type is
// authoritative when present; otherwise the free-text intent is matched
// against the keyword sets in fixed order, with document as the default.
// Pure function of its inputs.
func (m *Manager) DetermineBestApproach(intentName string, taskType agent.TaskType) intent.Approach {
	switch taskType {
	case agent.TaskVisualizationCode, agent.TaskDataAnalysisCode,
		agent.TaskInteractiveDashboard, agent.TaskPresentation,
		agent.TaskMap, agent.TaskHTMLPage:
		return intent.ApproachCode
	case agent.TaskLearningPathCreation:
		return intent.ApproachLearningPath
	case agent.TaskDocumentGeneration:
		return intent.ApproachDocument
	}

	lower := strings.ToLower(intentName)
	for _, kw := range codeKeywords {
		if strings.Contains(lower, kw) {
			return intent.ApproachCode
		}
	}
	for _, kw := range learningKeywords {
		if strings.Contains(lower, kw) {
			return intent.ApproachLearningPath
		}
	}
	return intent.ApproachDocument
}

// taskTypeFor maps an approach (plus the concrete intent) to the task
// type handed to the worker.
func taskTypeFor(approach intent.Approach, intentName string) agent.TaskType {
	switch approach {
	case intent.ApproachLearningPath:
		return agent.TaskLearningPathCreation
	case intent.ApproachCode:
		switch intentName {
		case intent.IntentAnalyzeData:
			return agent.TaskDataAnalysisCode
		case intent.IntentGenerateDashboard:
			return agent.TaskInteractiveDashboard
		case intent.IntentGeneratePresentation:
			return agent.TaskPresentation
		case intent.IntentGenerateMap:
			return agent.TaskMap
		case intent.IntentGenerateHTMLPage:
			return agent.TaskHTMLPage
		default:
			return agent.TaskVisualizationCode
		}
	default:
		// Combined requests start with the document path.
		return agent.TaskDocumentGeneration
	}
}

func capabilityFor(approach intent.Approach) agent.Capability {
	if approach == intent.ApproachCode {
		return agent.CapabilityCodeGeneration
	}
	return agent.CapabilityContentGeneration
}

// Deterministic follow-up questions per approach. These are canned, not
// model-generated, to keep turnaround fast and the behavior testable.
var followUpsByApproach = map[intent.Approach][]string{
	intent.ApproachDocument: {
		"Möchten Sie Inhalte ergänzen oder vertiefen?",
		"Soll das Dokument in eine andere Sprache übersetzt werden?",
		"Möchten Sie eine andere Zielgruppe ansprechen?",
	},
	intent.ApproachCode: {
		"Möchten Sie eine andere Darstellungsform?",
		"Sollen weitere Daten einbezogen werden?",
		"Möchten Sie den Code in einer anderen Programmiersprache erhalten?",
	},
	intent.ApproachLearningPath: {
		"Soll der Lernplan umfangreicher oder kompakter sein?",
		"Möchten Sie zusätzliche Materialien zu einzelnen Modulen?",
		"Passt das angegebene Niveau für Sie?",
	},
}

const genericFailure = "Die Anfrage konnte leider nicht bearbeitet werden. Bitte versuchen Sie es erneut."

// CoordinateTask routes an analysis to a worker, awaits the result
// synchronously, and aggregates it. Nothing escapes this boundary as a
// panic or error; failures become a structured envelope and increment
// the manager's error counter. No retry is attempted at this layer.
func (m *Manager) CoordinateTask(ctx context.Context, analysis *intent.Analysis, userID string) (env *Envelope) {
	state := phaseRouting
	defer func() {
		if rec := recover(); rec != nil {
			m.Logger().Error("coordination panicked",
				zap.String("phase", string(state)), zap.Any("panic", rec))
			env = m.failure(analysis, fmt.Sprintf("panic: %v", rec))
		}
	}()

	approach := analysis.BestApproach
	if approach == "" || approach == intent.ApproachCombined {
		approach = m.DetermineBestApproach(analysis.Intent, "")
	}
	taskType := taskTypeFor(approach, analysis.Intent)
	capability := capabilityFor(approach)

	worker, ok := m.registry.Find(capability)
	if !ok {
		m.Logger().Error("no agent available",
			zap.String("capability", string(capability)),
			zap.String("intent", analysis.Intent))
		return m.failure(analysis, fmt.Sprintf("%v: %s", agent.ErrNoAgentAvailable, capability))
	}

	params := make(map[string]any, len(analysis.Parameters)+1)
	for k, v := range analysis.Parameters {
		params[k] = v
	}
	params["intent"] = analysis.Intent

	task := agent.NewTask(taskType, params, agent.PriorityMedium, userID)
	state = phaseDispatched
	m.Logger().Info("dispatching task",
		zap.String("task", task.ID),
		zap.String("type", string(taskType)),
		zap.String("worker", worker.ID()))

	result := worker.ExecuteTask(ctx, task)

	state = phaseAggregating
	if !result.Success {
		state = phaseFailed
		return m.failure(analysis, result.Err)
	}

	env = &Envelope{
		Success:           true,
		Response:          m.synthesizeResponse(approach, result),
		Content:           result.Content,
		RequiresFollowUp:  true,
		FollowUpQuestions: followUpsByApproach[approach],
		Context: intent.DialogContext{
			Intent:       analysis.Intent,
			Parameters:   analysis.Parameters,
			BestApproach: approach,
		},
	}
	state = phaseDone
	return env
}

// synthesizeResponse builds the manager's own natural-language reply; it
// always references the artifact's title rather than forwarding the
// worker's text verbatim.
func (m *Manager) synthesizeResponse(approach intent.Approach, result *agent.TaskResult) string {
	title := ""
	if result.Content != nil {
		title = result.Content.Title
	}
	switch approach {
	case intent.ApproachLearningPath:
		modules := 0
		if result.Content != nil && result.Content.Path != nil {
			modules = len(result.Content.Path.Modules)
		}
		return fmt.Sprintf("Ich habe den %q mit %d Modulen zusammengestellt. Sehen Sie sich die Module an und sagen Sie mir, ob etwas angepasst werden soll.", title, modules)
	case intent.ApproachCode:
		return fmt.Sprintf("Ich habe %q erstellt. Hinweise zur Ausführung finden Sie in den Metadaten des Artefakts.", title)
	default:
		return fmt.Sprintf("Ich habe das Dokument %q für Sie erstellt. Sie können es nun prüfen und bei Bedarf anpassen lassen.", title)
	}
}

func (m *Manager) failure(analysis *intent.Analysis, errMsg string) *Envelope {
	m.RecordError()
	return &Envelope{
		Success:          false,
		Response:         genericFailure,
		RequiresFollowUp: false,
		Err:              errMsg,
		Context: intent.DialogContext{
			Intent:       analysis.Intent,
			Parameters:   analysis.Parameters,
			BestApproach: analysis.BestApproach,
		},
	}
}
