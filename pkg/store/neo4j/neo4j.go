package neo4j

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/strategraph/strategraph/pkg/logger"
	"github.com/strategraph/strategraph/pkg/store"
)

// reservedProps are node properties managed by the adapter itself and
// never surfaced as entity attributes.
var reservedProps = map[string]bool{
	"key":    true,
	"name":   true,
	"labels": true,
}

// Neo4jStore implements store.GraphStore against a Neo4j database over
// bolt. All writes are MERGE-based upserts keyed by the normalized
// entity name, so concurrent ingestion is safe without extra locking.
type Neo4jStore struct {
	driver    neo4j.DriverWithContext
	database  string
	exportDir string
}

// NewNeo4jStoreParams defines the connection configuration for a Neo4jStore.
type NewNeo4jStoreParams struct {
	URI      string
	Username string
	Password string
	Database string

	// ExportDir receives graph-segment JSON exports. Defaults to "exports".
	ExportDir string
}

// NewNeo4jStore connects to Neo4j and verifies connectivity before
// returning. A store that cannot reach the database is unusable, so the
// failure is reported immediately instead of on first query.
func NewNeo4jStore(ctx context.Context, params NewNeo4jStoreParams) (*Neo4jStore, error) {
	database := params.Database
	if database == "" {
		database = "neo4j"
	}
	exportDir := params.ExportDir
	if exportDir == "" {
		exportDir = "exports"
	}

	driver, err := neo4j.NewDriverWithContext(
		params.URI,
		neo4j.BasicAuth(params.Username, params.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", params.URI, err)
	}

	logger.Info("[Store] connected to neo4j", "uri", params.URI, "database", database)

	return &Neo4jStore{
		driver:    driver,
		database:  database,
		exportDir: exportDir,
	}, nil
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

// Reset removes every node and relationship from the database.
func (s *Neo4jStore) Reset(ctx context.Context) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, "MATCH (n) DETACH DELETE n", nil)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to reset graph: %w", err)
	}

	logger.Warn("[Store] graph reset, all nodes and relationships deleted")
	return nil
}

// Close releases the underlying driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

var relTypeRe = regexp.MustCompile(`[^A-Z0-9_]`)

// sanitizeRelType maps an open-vocabulary relationship type onto a safe
// Cypher identifier. Relationship types cannot be parametrized in
// Cypher, so the sanitized value is interpolated into the query text.
func sanitizeRelType(relType string) string {
	t := strings.ToUpper(strings.TrimSpace(relType))
	t = strings.ReplaceAll(t, " ", "_")
	t = relTypeRe.ReplaceAllString(t, "_")
	if t == "" {
		t = "RELATED_TO"
	}
	return t
}

// entityAttributes extracts the user attributes from a node property
// map, dropping adapter-managed properties.
func entityAttributes(props map[string]any) map[string]any {
	attrs := make(map[string]any)
	for k, v := range props {
		if reservedProps[k] {
			continue
		}
		attrs[k] = v
	}
	return attrs
}

func asStringSlice(v any) []string {
	out := []string{}
	if list, ok := v.([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

// recordEntity converts a returned node into an EntityRecord.
func recordEntity(node neo4j.Node) store.EntityRecord {
	return store.EntityRecord{
		ID:         node.Id,
		Name:       asString(node.Props["name"]),
		Labels:     asStringSlice(node.Props["labels"]),
		Attributes: entityAttributes(node.Props),
	}
}
