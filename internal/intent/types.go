package intent

// Known intents form a closed vocabulary; anything the recognizer cannot
// classify becomes IntentUnknown.
const (
	IntentCreateDocument       = "createDocument"
	IntentGenerateLearningPlan = "generateLearningPlan"
	IntentAnalyzeData          = "analyzeData"
	IntentCreateVisualization  = "createVisualization"
	IntentSearchInformation    = "searchInformation"
	IntentGeneratePresentation = "generatePresentation"
	IntentGenerateHTMLPage     = "generateHtmlPage"
	IntentGenerateDashboard    = "generateDashboard"
	IntentGenerateMap          = "generateMap"
	IntentUnknown              = "unknown"
)

// Approach selects the specialized path the manager routes to.
type Approach string

const (
	ApproachDocument     Approach = "document"
	ApproachCode         Approach = "code"
	ApproachLearningPath Approach = "learning-path"
	ApproachCombined     Approach = "combined"
)

// Analysis is the structured reading of a user utterance. Parameters is
// an open bag validated lazily by each downstream agent.
type Analysis struct {
	Intent            string         `json:"intent"`
	Parameters        map[string]any `json:"parameters"`
	RequiresFollowUp  bool           `json:"requires_follow_up"`
	FollowUpQuestions []string       `json:"follow_up_questions"`
	BestApproach      Approach       `json:"best_approach"`
	NeedsCoordination bool           `json:"needs_coordination"`
}

// DialogContext links a follow-up turn to the analysis of the turn that
// produced it.
type DialogContext struct {
	Intent       string         `json:"intent"`
	Parameters   map[string]any `json:"parameters"`
	BestApproach Approach       `json:"best_approach"`
}

// generationIntents are the intents that require manager coordination.
var generationIntents = map[string]bool{
	IntentCreateDocument:       true,
	IntentGenerateLearningPlan: true,
	IntentAnalyzeData:          true,
	IntentCreateVisualization:  true,
	IntentGeneratePresentation: true,
	IntentGenerateHTMLPage:     true,
	IntentGenerateDashboard:    true,
	IntentGenerateMap:          true,
}

// NeedsCoordination reports whether the intent must be handed to the
// manager. Search and unknown intents are answered directly.
func NeedsCoordination(intentName string) bool {
	return generationIntents[intentName]
}

// normalizeApproach maps free text to a valid Approach, deriving one from
// the intent when the model supplied garbage.
func normalizeApproach(raw string, intentName string) Approach {
	switch Approach(raw) {
	case ApproachDocument, ApproachCode, ApproachLearningPath, ApproachCombined:
		return Approach(raw)
	}
	switch intentName {
	case IntentGenerateLearningPlan:
		return ApproachLearningPath
	case IntentAnalyzeData, IntentCreateVisualization, IntentGeneratePresentation,
		IntentGenerateHTMLPage, IntentGenerateDashboard, IntentGenerateMap:
		return ApproachCode
	}
	return ApproachDocument
}
