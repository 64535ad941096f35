package agent

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies an agent's function in the system.
type Role string

const (
	RoleManager          Role = "manager"
	RoleContentGenerator Role = "content-generator"
	RoleCodeGenerator    Role = "code-generator"
	RoleVoiceAssistant   Role = "voice-assistant"
)

// Capability is a routing tag the manager uses to find a worker.
type Capability string

const (
	CapabilityContentGeneration Capability = "content-generation"
	CapabilityCodeGeneration    Capability = "code-generation"
	CapabilityIntentRecognition Capability = "intent-recognition"
	CapabilityCoordination      Capability = "task-coordination"
)

// TaskType is the closed set of dispatchable task types.
type TaskType string

const (
	TaskDocumentGeneration   TaskType = "document-generation"
	TaskLearningPathCreation TaskType = "learning-path-creation"
	TaskVisualizationCode    TaskType = "generate-visualization-code"
	TaskDataAnalysisCode     TaskType = "generate-data-analysis-code"
	TaskInteractiveDashboard TaskType = "generate-interactive-dashboard"
	TaskPresentation         TaskType = "generate-presentation"
	TaskMap                  TaskType = "generate-map"
	TaskHTMLPage             TaskType = "generate-html-page"
	TaskIntentRecognition    TaskType = "intent-recognition"
)

// Priority orders tasks when a worker has a backlog.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Task is an immutable unit of work. A new Task is created per dispatch;
// it is never mutated in place.
type Task struct {
	ID         string         `json:"id"`
	Type       TaskType       `json:"type"`
	Parameters map[string]any `json:"parameters"`
	Priority   Priority       `json:"priority"`
	CreatedAt  time.Time      `json:"created_at"`
	Requester  string         `json:"requester,omitempty"`
}

// NewTask builds a Task with a fresh ID and a defensive copy of the
// parameter bag.
func NewTask(t TaskType, params map[string]any, prio Priority, requester string) *Task {
	if prio == "" {
		prio = PriorityMedium
	}
	copied := make(map[string]any, len(params))
	for k, v := range params {
		copied[k] = v
	}
	return &Task{
		ID:         uuid.New().String(),
		Type:       t,
		Parameters: copied,
		Priority:   prio,
		CreatedAt:  time.Now(),
		Requester:  requester,
	}
}

// StringParam returns a string parameter, or the fallback when absent or
// not a string.
func (t *Task) StringParam(key, fallback string) string {
	if v, ok := t.Parameters[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// StringsParam returns a []string parameter, tolerating []any bags that
// arrive through JSON decoding.
func (t *Task) StringsParam(key string) []string {
	v, ok := t.Parameters[key]
	if !ok {
		return nil
	}
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// TaskResult reports the outcome of a single task execution. Exactly one
// of Content/Err is meaningful depending on Success.
type TaskResult struct {
	Success     bool      `json:"success"`
	Response    string    `json:"response"`
	Content     *Artifact `json:"content,omitempty"`
	Err         string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Succeed builds a successful TaskResult.
func Succeed(response string, content *Artifact) *TaskResult {
	return &TaskResult{
		Success:     true,
		Response:    response,
		Content:     content,
		CompletedAt: time.Now(),
	}
}

// Fail builds a failed TaskResult.
func Fail(response, errMsg string) *TaskResult {
	return &TaskResult{
		Success:     false,
		Response:    response,
		Err:         errMsg,
		CompletedAt: time.Now(),
	}
}
