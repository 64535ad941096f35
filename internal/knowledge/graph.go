package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/civitas-labs/agora/internal/agent"
	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Graph links generated artifacts to their topics and tags in Neo4j so
// related material can be surfaced across workflows.
type Graph struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// New creates the knowledge graph client.
func New(uri, user, password string, logger *zap.Logger) (*Graph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &Graph{driver: driver, logger: logger}, nil
}

// Ping verifies the Neo4j connection.
func (g *Graph) Ping(ctx context.Context) error {
	return g.driver.VerifyConnectivity(ctx)
}

// Close shuts down the Neo4j driver.
func (g *Graph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// RecordArtifact creates an Artifact node, merges Topic and Tag nodes,
// and links them. Tags come in from the artifact's document metadata.
func (g *Graph) RecordArtifact(ctx context.Context, userID string, art *agent.Artifact) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	id := uuid.New().String()
	_, err := session.Run(ctx,
		`MERGE (u:User {id: $userId})
		 CREATE (a:Artifact {
			id: $id, kind: $kind, title: $title, created_at: datetime()
		 })
		 MERGE (u)-[:CREATED]->(a)
		 MERGE (t:Topic {name: $title})
		 MERGE (a)-[:ABOUT]->(t)`,
		map[string]interface{}{
			"userId": userID,
			"id":     id,
			"kind":   string(art.Kind),
			"title":  art.Title,
		})
	if err != nil {
		return fmt.Errorf("record artifact %s: %w", art.Title, err)
	}

	if art.Document != nil {
		for _, tag := range art.Document.Metadata.Tags {
			_, err := session.Run(ctx,
				`MATCH (a:Artifact {id: $id})
				 MERGE (g:Tag {name: $tag})
				 MERGE (a)-[:TAGGED]->(g)`,
				map[string]interface{}{"id": id, "tag": tag})
			if err != nil {
				return fmt.Errorf("tag artifact %s: %w", art.Title, err)
			}
		}
	}

	g.logger.Debug("artifact recorded in knowledge graph",
		zap.String("title", art.Title), zap.String("kind", string(art.Kind)))
	return nil
}

// RelatedTitle is an artifact related to a topic through shared tags.
type RelatedTitle struct {
	Title     string    `json:"title"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// Related returns artifacts sharing at least one tag with the given
// topic's artifacts, most recent first.
func (g *Graph) Related(ctx context.Context, topic string, limit int) ([]RelatedTitle, error) {
	if limit <= 0 {
		limit = 5
	}
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (a:Artifact)-[:ABOUT]->(:Topic {name: $topic})
		 MATCH (a)-[:TAGGED]->(t:Tag)<-[:TAGGED]-(other:Artifact)
		 WHERE other.id <> a.id
		 RETURN DISTINCT other.title, other.kind, other.created_at
		 ORDER BY other.created_at DESC LIMIT $limit`,
		map[string]interface{}{"topic": topic, "limit": limit})
	if err != nil {
		return nil, err
	}

	var out []RelatedTitle
	for result.Next(ctx) {
		rec := result.Record()
		title, _ := rec.Get("other.title")
		kind, _ := rec.Get("other.kind")
		created, _ := rec.Get("other.created_at")
		rt := RelatedTitle{}
		if s, ok := title.(string); ok {
			rt.Title = s
		}
		if s, ok := kind.(string); ok {
			rt.Kind = s
		}
		if t, ok := created.(time.Time); ok {
			rt.CreatedAt = t
		}
		out = append(out, rt)
	}
	return out, nil
}
