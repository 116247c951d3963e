package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/strategraph/strategraph/pkg/store"
)

// UpsertEntity merges an entity by its normalized name key and returns
// the node ID. Labels are unioned, attributes are merged last-write-wins
// per key; the first observed display form of the name is preserved.
func (s *Neo4jStore) UpsertEntity(
	ctx context.Context,
	name string,
	labels []string,
	attrs map[string]any,
) (int64, error) {
	display := store.NormalizeEntityName(name)
	if display == "" {
		return 0, fmt.Errorf("entity name is empty")
	}
	if attrs == nil {
		attrs = map[string]any{}
	}
	if labels == nil {
		labels = []string{}
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MERGE (e:Entity {key: $key})
			ON CREATE SET e.name = $name
			SET e += $attrs,
			    e.labels = [l IN coalesce(e.labels, []) WHERE NOT l IN $labels] + $labels
			RETURN id(e) AS id
		`, map[string]any{
			"key":    store.EntityKey(name),
			"name":   display,
			"labels": labels,
			"attrs":  attrs,
		})
		if err != nil {
			return nil, err
		}

		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}

		id, _ := record.Get("id")
		return id, nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upsert entity %q: %w", display, err)
	}

	return result.(int64), nil
}

// UpsertRelationship merges a directed edge keyed by (from, to, type),
// creating missing endpoints. Upserting the same edge twice yields
// exactly one relationship with merged attributes.
func (s *Neo4jStore) UpsertRelationship(
	ctx context.Context,
	from string,
	to string,
	relType string,
	attrs map[string]any,
) error {
	fromName := store.NormalizeEntityName(from)
	toName := store.NormalizeEntityName(to)
	if fromName == "" || toName == "" {
		return fmt.Errorf("relationship endpoint name is empty")
	}
	if attrs == nil {
		attrs = map[string]any{}
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MERGE (a:Entity {key: $fromKey})
		ON CREATE SET a.name = $fromName, a.labels = []
		MERGE (b:Entity {key: $toKey})
		ON CREATE SET b.name = $toName, b.labels = []
		MERGE (a)-[r:%s]->(b)
		SET r += $attrs
	`, sanitizeRelType(relType))

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, map[string]any{
			"fromKey":  store.EntityKey(from),
			"fromName": fromName,
			"toKey":    store.EntityKey(to),
			"toName":   toName,
			"attrs":    attrs,
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert relationship %s-[%s]->%s: %w",
			fromName, sanitizeRelType(relType), toName, err)
	}

	return nil
}
