// Package graph persists materialized entities and their provenance into
// the knowledge graph over the bolt protocol.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/teamscribe/scribe/governance"
)

// createEntityQuery writes the entity node, its evidence node and the
// provenance edge in one statement, so the write is atomic: there is
// never an entity without evidence.
const createEntityQuery = `
CREATE (ev:Evidence {
    id: $evidence_id,
    source_type: $source_type,
    platform: $platform,
    external_id: $external_id,
    metadata: $metadata,
    created_at: $evidence_created_at
})
CREATE (n:Entity {
    id: $entity_id,
    entity_type: $entity_type,
    project_id: $project_id,
    title: $title,
    description: $description,
    priority: $priority,
    impact: $impact,
    confidence: $confidence,
    tags: $tags,
    owner: $owner,
    deadline: $deadline,
    created_by_ai: $created_by_ai,
    created_at: $entity_created_at
})
CREATE (n)-[:DERIVED_FROM]->(ev)
RETURN n.id AS entity_id, ev.id AS evidence_id
`

// Writer implements governance.GraphWriter against a Neo4j-compatible
// graph database (Neo4j, Memgraph).
type Writer struct {
	driver neo4j.DriverWithContext
	logger *slog.Logger
}

// NewWriter connects to the graph database and verifies connectivity.
func NewWriter(ctx context.Context, uri, username, password string, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create graph driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify graph connectivity: %w", err)
	}

	logger.Info("connected to knowledge graph", "uri", uri)
	return &Writer{driver: driver, logger: logger}, nil
}

// Close releases the underlying driver.
func (w *Writer) Close(ctx context.Context) error {
	return w.driver.Close(ctx)
}

// CreateEntityWithEvidence writes the node and its evidence record as a
// single atomic unit. On failure nothing is written.
func (w *Writer) CreateEntityWithEvidence(ctx context.Context, node *governance.Node, evidence *governance.Evidence) (string, string, error) {
	metadata, err := json.Marshal(evidence.Metadata)
	if err != nil {
		return "", "", fmt.Errorf("marshal evidence metadata: %w", err)
	}

	params := map[string]any{
		"evidence_id":         evidence.ID,
		"source_type":         evidence.SourceType,
		"platform":            evidence.Platform,
		"external_id":         evidence.ExternalID,
		"metadata":            string(metadata),
		"evidence_created_at": evidence.CreatedAt,
		"entity_id":           node.ID,
		"entity_type":         node.EntityType,
		"project_id":          node.ProjectID,
		"title":               node.Payload.Title,
		"description":         node.Payload.Description,
		"priority":            string(node.Payload.Priority),
		"impact":              node.Payload.Impact,
		"confidence":          node.Payload.Confidence,
		"tags":                node.Payload.Tags,
		"owner":               node.Payload.Owner,
		"deadline":            node.Payload.Deadline,
		"created_by_ai":       node.CreatedByAI,
		"entity_created_at":   node.CreatedAt,
	}

	result, err := neo4j.ExecuteQuery(ctx, w.driver, createEntityQuery, params, neo4j.EagerResultTransformer)
	if err != nil {
		return "", "", fmt.Errorf("execute entity write: %w", err)
	}
	if len(result.Records) == 0 {
		return "", "", fmt.Errorf("entity write returned no records")
	}

	w.logger.Debug("entity written to graph",
		"entity_id", node.ID,
		"entity_type", node.EntityType,
		"evidence_id", evidence.ID)

	return node.ID, evidence.ID, nil
}

// BuildIndices creates lookup indices. Failures are logged and skipped
// since indices may already exist.
func (w *Writer) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX ON :Entity(id);",
		"CREATE INDEX ON :Entity(project_id);",
		"CREATE INDEX ON :Entity(entity_type);",
		"CREATE INDEX ON :Evidence(id);",
		"CREATE INDEX ON :Evidence(external_id);",
	}

	for _, q := range queries {
		if _, err := neo4j.ExecuteQuery(ctx, w.driver, q, nil, neo4j.EagerResultTransformer); err != nil {
			w.logger.Warn("failed to create index", "query", q, "error", err)
		}
	}
	return nil
}
