package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/civitas-labs/agora/internal/agent"
	"github.com/google/uuid"
)

// StoredDocument is an archived artifact row.
type StoredDocument struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Kind      string          `json:"kind"`
	Title     string          `json:"title"`
	Language  string          `json:"language"`
	Tags      []string        `json:"tags"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// SaveArtifact archives a generated artifact for a user. The full
// artifact is kept as a JSON payload; kind, title, language, and tags
// are lifted into columns for querying.
func (s *Store) SaveArtifact(ctx context.Context, userID string, art *agent.Artifact) (string, error) {
	payload, err := json.Marshal(art)
	if err != nil {
		return "", fmt.Errorf("marshal artifact: %w", err)
	}

	language := ""
	var tags []string
	if art.Document != nil {
		language = art.Document.Metadata.Language
		tags = art.Document.Metadata.Tags
	}

	id := uuid.New().String()
	_, err = s.db.Exec(ctx, `
		INSERT INTO documents (id, user_id, kind, title, language, tags, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, userID, string(art.Kind), art.Title, language, tags, payload, time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("save artifact %s: %w", art.Title, err)
	}
	return id, nil
}

// ListArtifacts returns a user's archived artifacts, newest first.
func (s *Store) ListArtifacts(ctx context.Context, userID string, limit int) ([]StoredDocument, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, kind, title, COALESCE(language,''), tags, payload, created_at
		FROM documents WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var docs []StoredDocument
	for rows.Next() {
		var d StoredDocument
		if err := rows.Scan(&d.ID, &d.UserID, &d.Kind, &d.Title, &d.Language, &d.Tags, &d.Payload, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// GetArtifact retrieves a single archived artifact by ID.
func (s *Store) GetArtifact(ctx context.Context, id string) (*StoredDocument, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, kind, title, COALESCE(language,''), tags, payload, created_at
		FROM documents WHERE id = $1`, id)

	var d StoredDocument
	if err := row.Scan(&d.ID, &d.UserID, &d.Kind, &d.Title, &d.Language, &d.Tags, &d.Payload, &d.CreatedAt); err != nil {
		return nil, fmt.Errorf("get artifact %s: %w", id, err)
	}
	return &d, nil
}
