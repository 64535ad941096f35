package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/civitas-labs/agora/internal/agent"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const collection = "agora_documents"

// snippetLimit bounds the stored excerpt so payloads stay small.
const snippetLimit = 500

// Index is the semantic document index: generated artifacts go in,
// search-information queries come back out as ranked hits.
type Index struct {
	embedder Embedder
	client   *vectorClient
	logger   *zap.Logger
}

// Hit is one search result.
type Hit struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Kind    string  `json:"kind"`
	Snippet string  `json:"snippet"`
	Score   float32 `json:"score"`
}

// NewIndex dials Qdrant and makes sure the collection exists.
func NewIndex(cfg QdrantConfig, embedder Embedder, logger *zap.Logger) (*Index, error) {
	client, err := dialQdrant(cfg)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	if err := client.ensureCollection(ctx, collection, uint64(embedder.Dimension())); err != nil {
		client.close()
		return nil, err
	}
	return &Index{embedder: embedder, client: client, logger: logger}, nil
}

// IndexArtifact embeds the artifact's searchable text and upserts it.
func (ix *Index) IndexArtifact(ctx context.Context, userID string, art *agent.Artifact) error {
	text := searchableText(art)
	if text == "" {
		return nil
	}

	vectors, err := ix.embedder.Embed(ctx, []string{text})
	if err != nil {
		return fmt.Errorf("index %q: %w", art.Title, err)
	}
	if len(vectors) == 0 {
		return fmt.Errorf("index %q: empty embedding", art.Title)
	}

	err = ix.client.upsert(ctx, collection, uuid.New().String(), vectors[0], map[string]string{
		"title":   art.Title,
		"kind":    string(art.Kind),
		"user_id": userID,
		"snippet": snippet(text),
	})
	if err != nil {
		return fmt.Errorf("index %q: %w", art.Title, err)
	}
	ix.logger.Debug("artifact indexed", zap.String("title", art.Title))
	return nil
}

// Search embeds the query and returns the top-K nearest artifacts.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 5
	}
	vectors, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("search %q: empty embedding", query)
	}

	points, err := ix.client.search(ctx, collection, vectors[0], uint64(topK))
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, Hit{
			ID:      p.id,
			Title:   p.payload["title"],
			Kind:    p.payload["kind"],
			Snippet: p.payload["snippet"],
			Score:   p.score,
		})
	}
	return hits, nil
}

// Close tears down the Qdrant connection.
func (ix *Index) Close() error {
	return ix.client.close()
}

// searchableText flattens an artifact into the text that gets embedded.
func searchableText(art *agent.Artifact) string {
	parts := []string{art.Title}
	switch {
	case art.Document != nil:
		parts = append(parts, art.Document.Content)
		parts = append(parts, art.Document.Metadata.Tags...)
	case art.Path != nil:
		parts = append(parts, art.Path.Description)
		for _, m := range art.Path.Modules {
			parts = append(parts, m.Title, m.Description)
		}
	case art.Code != nil:
		parts = append(parts, art.Code.Metadata.Purpose)
	case art.Bundle != nil:
		parts = append(parts, art.Bundle.Metadata.Purpose)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLimit {
		return text
	}
	return string(runes[:snippetLimit])
}
