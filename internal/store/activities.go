package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Activity is one processed command in a user's history.
type Activity struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	WorkflowID string    `json:"workflow_id"`
	Command    string    `json:"command"`
	Intent     string    `json:"intent"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecordActivity inserts one activity row.
func (s *Store) RecordActivity(ctx context.Context, a Activity) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO activities (id, user_id, workflow_id, command, intent, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.UserID, a.WorkflowID, a.Command, a.Intent, a.Status, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record activity for %s: %w", a.UserID, err)
	}
	return nil
}

// ListActivities returns a user's activity, newest first.
func (s *Store) ListActivities(ctx context.Context, userID string, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, workflow_id, command, COALESCE(intent,''), status, created_at
		FROM activities WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.WorkflowID, &a.Command, &a.Intent, &a.Status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}
