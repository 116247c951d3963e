package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/strategraph/strategraph/pkg/store"
)

// Entity returns the stored record for one entity, or
// store.ErrEntityNotFound when no node carries the name key.
func (s *Neo4jStore) Entity(ctx context.Context, name string) (*store.EntityRecord, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (e:Entity {key: $key})
			RETURN e
		`, map[string]any{"key": store.EntityKey(name)})
		if err != nil {
			return nil, err
		}

		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, store.ErrEntityNotFound
		}

		value, _ := res.Record().Get("e")
		node, ok := value.(neo4j.Node)
		if !ok {
			return nil, fmt.Errorf("unexpected result type %T", value)
		}

		record := recordEntity(node)
		return &record, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*store.EntityRecord), nil
}

// Neighbors returns every entity reachable within maxHops of the focus
// entity, with the relationship that reached it. maxHops is clamped to
// [1,3]; Cypher path lengths cannot be parametrized.
func (s *Neo4jStore) Neighbors(ctx context.Context, name string, maxHops int) ([]store.Neighbor, error) {
	if maxHops < 1 {
		maxHops = 1
	}
	if maxHops > 3 {
		maxHops = 3
	}

	if _, err := s.Entity(ctx, name); err != nil {
		return nil, err
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH path = (e:Entity {key: $key})-[*1..%d]-(n:Entity)
		WHERE n <> e
		WITH n, path ORDER BY length(path)
		WITH n, collect(path)[0] AS p
		WITH n, length(p) AS hops, last(relationships(p)) AS r
		RETURN n, hops, type(r) AS rel_type,
		       CASE WHEN endNode(r) = n THEN 'out' ELSE 'in' END AS direction
		ORDER BY hops, n.name
	`, maxHops)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"key": store.EntityKey(name)})
		if err != nil {
			return nil, err
		}

		neighbors := []store.Neighbor{}
		for res.Next(ctx) {
			record := res.Record()
			value, _ := record.Get("n")
			node, ok := value.(neo4j.Node)
			if !ok {
				continue
			}
			hops, _ := record.Get("hops")
			relType, _ := record.Get("rel_type")
			direction, _ := record.Get("direction")

			neighbors = append(neighbors, store.Neighbor{
				Entity:    recordEntity(node),
				RelType:   asString(relType),
				Direction: store.Direction(asString(direction)),
				Hops:      asInt(hops),
			})
		}

		return neighbors, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read neighbors of %q: %w", name, err)
	}

	return result.([]store.Neighbor), nil
}

// Relationships returns every edge touching the focus entity, outgoing
// and incoming.
func (s *Neo4jStore) Relationships(ctx context.Context, name string) ([]store.RelationshipRecord, error) {
	if _, err := s.Entity(ctx, name); err != nil {
		return nil, err
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (e:Entity {key: $key})-[r]->(t:Entity)
			RETURN e.name AS from, t.name AS to, type(r) AS type, properties(r) AS attrs
			UNION ALL
			MATCH (f:Entity)-[r]->(e:Entity {key: $key})
			RETURN f.name AS from, e.name AS to, type(r) AS type, properties(r) AS attrs
		`, map[string]any{"key": store.EntityKey(name)})
		if err != nil {
			return nil, err
		}

		rels := []store.RelationshipRecord{}
		for res.Next(ctx) {
			record := res.Record()
			from, _ := record.Get("from")
			to, _ := record.Get("to")
			relType, _ := record.Get("type")
			attrs, _ := record.Get("attrs")

			attrMap, _ := attrs.(map[string]any)
			if attrMap == nil {
				attrMap = map[string]any{}
			}

			rels = append(rels, store.RelationshipRecord{
				From:       asString(from),
				To:         asString(to),
				Type:       asString(relType),
				Attributes: attrMap,
			})
		}

		return rels, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read relationships of %q: %w", name, err)
	}

	return result.([]store.RelationshipRecord), nil
}

// AggregateStats returns direct connectivity and extended network size
// for one entity.
func (s *Neo4jStore) AggregateStats(ctx context.Context, name string) (*store.EntityStats, error) {
	if _, err := s.Entity(ctx, name); err != nil {
		return nil, err
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (e:Entity {key: $key})
			OPTIONAL MATCH (e)-[r]-()
			WITH e, collect(type(r)) AS rel_types
			OPTIONAL MATCH (e)-[*1..2]-(n:Entity)
			WHERE n <> e
			RETURN rel_types, count(DISTINCT n) AS extended
		`, map[string]any{"key": store.EntityKey(name)})
		if err != nil {
			return nil, err
		}

		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}

		relTypes, _ := record.Get("rel_types")
		extended, _ := record.Get("extended")

		typeCounts := map[string]int{}
		connections := 0
		for _, t := range asStringSlice(relTypes) {
			typeCounts[t]++
			connections++
		}

		return &store.EntityStats{
			ConnectionCount:        connections,
			RelationshipTypeCounts: typeCounts,
			ExtendedNetworkSize:    asInt(extended),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read stats of %q: %w", name, err)
	}

	return result.(*store.EntityStats), nil
}

// GlobalMetrics returns whole-graph statistics.
func (s *Neo4jStore) GlobalMetrics(ctx context.Context) (*store.GraphMetrics, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (n:Entity)
			WITH count(n) AS nodes
			OPTIONAL MATCH ()-[r]->()
			RETURN nodes, count(r) AS rels
		`, nil)
		if err != nil {
			return nil, err
		}

		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		nodesVal, _ := record.Get("nodes")
		relsVal, _ := record.Get("rels")

		metrics := &store.GraphMetrics{
			NodeCount:           asInt(nodesVal),
			RelationshipCount:   asInt(relsVal),
			LabelDistribution:   map[string]int{},
			RelTypeDistribution: map[string]int{},
		}
		if metrics.NodeCount > 1 {
			metrics.Density = float64(metrics.RelationshipCount) /
				float64(metrics.NodeCount*(metrics.NodeCount-1))
		}

		labelRes, err := tx.Run(ctx, `
			MATCH (n:Entity)
			UNWIND coalesce(n.labels, []) AS label
			RETURN label, count(*) AS count
		`, nil)
		if err != nil {
			return nil, err
		}
		for labelRes.Next(ctx) {
			record := labelRes.Record()
			label, _ := record.Get("label")
			count, _ := record.Get("count")
			metrics.LabelDistribution[asString(label)] = asInt(count)
		}
		if err := labelRes.Err(); err != nil {
			return nil, err
		}

		typeRes, err := tx.Run(ctx, `
			MATCH ()-[r]->()
			RETURN type(r) AS type, count(*) AS count
		`, nil)
		if err != nil {
			return nil, err
		}
		for typeRes.Next(ctx) {
			record := typeRes.Record()
			relType, _ := record.Get("type")
			count, _ := record.Get("count")
			metrics.RelTypeDistribution[asString(relType)] = asInt(count)
		}
		if err := typeRes.Err(); err != nil {
			return nil, err
		}

		return metrics, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read global metrics: %w", err)
	}

	return result.(*store.GraphMetrics), nil
}

// ConnectionCounts returns every entity's direct connection count keyed
// by display name.
func (s *Neo4jStore) ConnectionCounts(ctx context.Context) (map[string]int, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (e:Entity)
			RETURN e.name AS name, COUNT {(e)--()} AS connections
		`, nil)
		if err != nil {
			return nil, err
		}

		counts := map[string]int{}
		for res.Next(ctx) {
			record := res.Record()
			name, _ := record.Get("name")
			connections, _ := record.Get("connections")
			counts[asString(name)] = asInt(connections)
		}

		return counts, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read connection counts: %w", err)
	}

	return result.(map[string]int), nil
}

// ListEntities returns entity listings ordered by connectivity.
func (s *Neo4jStore) ListEntities(ctx context.Context, limit int) ([]store.EntityListing, error) {
	if limit <= 0 {
		limit = 50
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (e:Entity)
			RETURN e.name AS name, coalesce(e.labels, []) AS labels,
			       COUNT {(e)--()} AS connections
			ORDER BY connections DESC, name ASC
			LIMIT $limit
		`, map[string]any{"limit": limit})
		if err != nil {
			return nil, err
		}

		listings := []store.EntityListing{}
		for res.Next(ctx) {
			record := res.Record()
			name, _ := record.Get("name")
			labels, _ := record.Get("labels")
			connections, _ := record.Get("connections")

			listings = append(listings, store.EntityListing{
				Name:            asString(name),
				Labels:          asStringSlice(labels),
				ConnectionCount: asInt(connections),
			})
		}

		return listings, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	return result.([]store.EntityListing), nil
}

// EntitySummary returns the full read of one entity: record, grouped
// outgoing and incoming relationships, and attached metrics.
func (s *Neo4jStore) EntitySummary(ctx context.Context, name string) (*store.EntitySummary, error) {
	entity, err := s.Entity(ctx, name)
	if err != nil {
		return nil, err
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		summary := &store.EntitySummary{
			Entity:   entity,
			Outgoing: []store.RelationshipGroup{},
			Incoming: []store.RelationshipGroup{},
			Metrics:  []store.MetricValue{},
		}

		outRes, err := tx.Run(ctx, `
			MATCH (e:Entity {key: $key})-[r]->(t:Entity)
			WITH type(r) AS rel_type, t.name AS other_name,
			     coalesce(t.labels, []) AS other_labels, count(*) AS count
			ORDER BY count DESC, rel_type, other_name
			RETURN rel_type, other_name, other_labels, count
		`, map[string]any{"key": store.EntityKey(name)})
		if err != nil {
			return nil, err
		}
		for outRes.Next(ctx) {
			summary.Outgoing = append(summary.Outgoing, relationshipGroup(outRes.Record()))
		}
		if err := outRes.Err(); err != nil {
			return nil, err
		}

		inRes, err := tx.Run(ctx, `
			MATCH (f:Entity)-[r]->(e:Entity {key: $key})
			WITH type(r) AS rel_type, f.name AS other_name,
			     coalesce(f.labels, []) AS other_labels, count(*) AS count
			ORDER BY count DESC, rel_type, other_name
			RETURN rel_type, other_name, other_labels, count
		`, map[string]any{"key": store.EntityKey(name)})
		if err != nil {
			return nil, err
		}
		for inRes.Next(ctx) {
			summary.Incoming = append(summary.Incoming, relationshipGroup(inRes.Record()))
		}
		if err := inRes.Err(); err != nil {
			return nil, err
		}

		metricRes, err := tx.Run(ctx, `
			MATCH (e:Entity {key: $key})-[:HAS_METRIC]->(m:Entity)
			RETURN m.name AS name, coalesce(m.value, 0.0) AS value,
			       coalesce(m.unit, '') AS unit
			ORDER BY name
		`, map[string]any{"key": store.EntityKey(name)})
		if err != nil {
			return nil, err
		}
		for metricRes.Next(ctx) {
			record := metricRes.Record()
			metricName, _ := record.Get("name")
			value, _ := record.Get("value")
			unit, _ := record.Get("unit")
			summary.Metrics = append(summary.Metrics, store.MetricValue{
				Name:  asString(metricName),
				Value: asFloat(value),
				Unit:  asString(unit),
			})
		}
		if err := metricRes.Err(); err != nil {
			return nil, err
		}

		return summary, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read summary of %q: %w", name, err)
	}

	return result.(*store.EntitySummary), nil
}

func relationshipGroup(record *neo4j.Record) store.RelationshipGroup {
	relType, _ := record.Get("rel_type")
	otherName, _ := record.Get("other_name")
	otherLabels, _ := record.Get("other_labels")
	count, _ := record.Get("count")

	return store.RelationshipGroup{
		RelType:     asString(relType),
		OtherName:   asString(otherName),
		OtherLabels: asStringSlice(otherLabels),
		Count:       asInt(count),
	}
}
