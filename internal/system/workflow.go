package system

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/civitas-labs/agora/internal/agent"
	"github.com/civitas-labs/agora/internal/intent"
	"github.com/civitas-labs/agora/internal/ledger"
	"github.com/civitas-labs/agora/internal/store"
	"go.uber.org/zap"
)

// WorkflowResult is what a processed command returns to the caller.
type WorkflowResult struct {
	WorkflowID        string                `json:"workflow_id"`
	Response          string                `json:"response"`
	GeneratedContent  *agent.Artifact       `json:"generated_content,omitempty"`
	RequiresFollowUp  bool                  `json:"requires_follow_up"`
	FollowUpQuestions []string              `json:"follow_up_questions,omitempty"`
	Context           *intent.DialogContext `json:"context,omitempty"`
}

// ErrEmptyCommand rejects blank input before any agent runs.
var ErrEmptyCommand = fmt.Errorf("empty command")

// ProcessVoiceCommand runs one user command through recognition and, if
// needed, coordination. Every call leaves exactly one ledger record,
// including validation failures.
func (s *System) ProcessVoiceCommand(ctx context.Context, command, userID, language string) (*WorkflowResult, error) {
	started := time.Now()
	workflowID := ledger.NewID()

	command = strings.TrimSpace(command)
	if command == "" {
		s.ledger.Append(ledger.Record{
			ID:        workflowID,
			UserID:    userID,
			Command:   command,
			Status:    ledger.StatusFailed,
			Error:     ErrEmptyCommand.Error(),
			StartedAt: started,
		})
		return nil, ErrEmptyCommand
	}

	analysis := s.recognizer.RecognizeIntent(ctx, command, userID, language)

	switch {
	case analysis.Intent == intent.IntentSearchInformation:
		return s.runSearch(ctx, workflowID, command, userID, analysis, started)
	case analysis.NeedsCoordination:
		return s.runCoordination(ctx, workflowID, command, userID, analysis, started)
	default:
		// Unknown or out-of-vocabulary input: ask instead of guessing.
		result := &WorkflowResult{
			WorkflowID:        workflowID,
			Response:          "Ich bin nicht sicher, was Sie erstellen möchten.",
			RequiresFollowUp:  true,
			FollowUpQuestions: analysis.FollowUpQuestions,
			Context: &intent.DialogContext{
				Intent:       analysis.Intent,
				Parameters:   analysis.Parameters,
				BestApproach: analysis.BestApproach,
			},
		}
		s.ledger.Append(ledger.Record{
			ID:        workflowID,
			UserID:    userID,
			Command:   command,
			Status:    ledger.StatusCompleted,
			Result:    result.Response,
			StartedAt: started,
		})
		return result, nil
	}
}

// ProcessFollowUpDialog continues a dialog: the user's answer is merged
// into the prior context, acknowledged, and the updated intent is
// coordinated.
func (s *System) ProcessFollowUpDialog(ctx context.Context, initialQuery, userResponse, userID string, dc intent.DialogContext) (*WorkflowResult, error) {
	started := time.Now()
	workflowID := ledger.NewID()

	analysis := s.recognizer.AnalyzeFollowUp(ctx, initialQuery, userResponse, dc)
	ack := s.recognizer.GenerateFollowUpResponse(ctx, analysis, userResponse)

	if !analysis.NeedsCoordination {
		result := &WorkflowResult{
			WorkflowID:        workflowID,
			Response:          ack,
			RequiresFollowUp:  analysis.RequiresFollowUp,
			FollowUpQuestions: analysis.FollowUpQuestions,
			Context: &intent.DialogContext{
				Intent:       analysis.Intent,
				Parameters:   analysis.Parameters,
				BestApproach: analysis.BestApproach,
			},
		}
		s.ledger.Append(ledger.Record{
			ID:           workflowID,
			UserID:       userID,
			Command:      userResponse,
			InitialQuery: initialQuery,
			UserResponse: userResponse,
			Status:       ledger.StatusCompleted,
			Result:       result.Response,
			StartedAt:    started,
		})
		return result, nil
	}

	env := s.manager.CoordinateTask(ctx, analysis, userID)
	result := &WorkflowResult{
		WorkflowID:        workflowID,
		Response:          ack + " " + env.Response,
		GeneratedContent:  env.Content,
		RequiresFollowUp:  env.RequiresFollowUp,
		FollowUpQuestions: env.FollowUpQuestions,
		Context:           &env.Context,
	}

	rec := ledger.Record{
		ID:           workflowID,
		UserID:       userID,
		Command:      userResponse,
		InitialQuery: initialQuery,
		UserResponse: userResponse,
		Result:       result.Response,
		StartedAt:    started,
	}
	if env.Success {
		rec.Status = ledger.StatusCompleted
		s.archiveArtifact(userID, workflowID, userResponse, analysis.Intent, env.Content)
	} else {
		rec.Status = ledger.StatusFailed
		rec.Error = env.Err
	}
	s.ledger.Append(rec)
	return result, nil
}

// WorkflowStatus returns the full workflow history, oldest first.
func (s *System) WorkflowStatus() []ledger.Record {
	return s.ledger.All()
}

// WorkflowsByUser returns one user's workflow history, oldest first.
func (s *System) WorkflowsByUser(userID string) []ledger.Record {
	return s.ledger.ByUser(userID)
}

func (s *System) runCoordination(ctx context.Context, workflowID, command, userID string, analysis *intent.Analysis, started time.Time) (*WorkflowResult, error) {
	env := s.manager.CoordinateTask(ctx, analysis, userID)

	result := &WorkflowResult{
		WorkflowID:        workflowID,
		Response:          env.Response,
		GeneratedContent:  env.Content,
		RequiresFollowUp:  env.RequiresFollowUp,
		FollowUpQuestions: env.FollowUpQuestions,
		Context:           &env.Context,
	}

	rec := ledger.Record{
		ID:        workflowID,
		UserID:    userID,
		Command:   command,
		Result:    env.Response,
		StartedAt: started,
	}
	if env.Success {
		rec.Status = ledger.StatusCompleted
		s.archiveArtifact(userID, workflowID, command, analysis.Intent, env.Content)
	} else {
		rec.Status = ledger.StatusFailed
		rec.Error = env.Err
	}
	s.ledger.Append(rec)
	return result, nil
}

func (s *System) runSearch(ctx context.Context, workflowID, command, userID string, analysis *intent.Analysis, started time.Time) (*WorkflowResult, error) {
	query := command
	if topic, ok := analysis.Parameters["topic"].(string); ok && topic != "" {
		query = topic
	}

	result := &WorkflowResult{WorkflowID: workflowID}
	rec := ledger.Record{
		ID:        workflowID,
		UserID:    userID,
		Command:   command,
		StartedAt: started,
	}

	if s.index == nil {
		result.Response = "Die Suche ist derzeit nicht verfügbar."
		rec.Status = ledger.StatusCompleted
		rec.Result = result.Response
		s.ledger.Append(rec)
		return result, nil
	}

	hits, err := s.index.Search(ctx, query, 5)
	if err != nil {
		s.logger.Error("search failed", zap.String("query", query), zap.Error(err))
		result.Response = "Die Suche ist fehlgeschlagen. Bitte versuchen Sie es erneut."
		rec.Status = ledger.StatusFailed
		rec.Error = err.Error()
		s.ledger.Append(rec)
		return result, nil
	}

	if len(hits) == 0 {
		result.Response = fmt.Sprintf("Zu %q wurde nichts gefunden.", query)
	} else {
		var b strings.Builder
		fmt.Fprintf(&b, "Ich habe %d passende Inhalte zu %q gefunden:\n", len(hits), query)
		for _, h := range hits {
			fmt.Fprintf(&b, "- %s (%s)\n", h.Title, h.Kind)
		}
		result.Response = strings.TrimRight(b.String(), "\n")
	}
	rec.Status = ledger.StatusCompleted
	rec.Result = result.Response
	s.ledger.Append(rec)
	return result, nil
}

// archiveArtifact fans a finished artifact out to the optional archive,
// knowledge graph, and search index. All of it is fire-and-forget; a
// slow or failing collaborator never delays the user's response.
func (s *System) archiveArtifact(userID, workflowID, command, intentName string, art *agent.Artifact) {
	if art == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if s.store != nil {
			if _, err := s.store.SaveArtifact(ctx, userID, art); err != nil {
				s.logger.Warn("artifact archive failed", zap.String("title", art.Title), zap.Error(err))
			}
			err := s.store.RecordActivity(ctx, store.Activity{
				UserID:     userID,
				WorkflowID: workflowID,
				Command:    command,
				Intent:     intentName,
				Status:     ledger.StatusCompleted,
			})
			if err != nil {
				s.logger.Warn("activity record failed", zap.String("user", userID), zap.Error(err))
			}
		}
		if s.knowledge != nil {
			if err := s.knowledge.RecordArtifact(ctx, userID, art); err != nil {
				s.logger.Warn("knowledge graph update failed", zap.String("title", art.Title), zap.Error(err))
			}
		}
		if s.index != nil {
			if err := s.index.IndexArtifact(ctx, userID, art); err != nil {
				s.logger.Warn("search indexing failed", zap.String("title", art.Title), zap.Error(err))
			}
		}
	}()
}
