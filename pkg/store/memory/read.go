package memory

import (
	"context"
	"sort"

	"github.com/strategraph/strategraph/pkg/store"
)

// Entity returns the stored record for one entity.
func (s *MemoryStore) Entity(ctx context.Context, name string) (*store.EntityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.entities[store.EntityKey(name)]
	if !ok {
		return nil, store.ErrEntityNotFound
	}

	record := s.record(node)
	return &record, nil
}

// adjacency builds the undirected neighbor map over normalized keys.
// Callers must hold the read lock.
func (s *MemoryStore) adjacency() map[string][]relKey {
	adj := map[string][]relKey{}
	for _, key := range s.sortedRelKeys() {
		adj[key.from] = append(adj[key.from], key)
		adj[key.to] = append(adj[key.to], key)
	}
	return adj
}

// Neighbors returns every entity reachable within maxHops, breadth
// first, with the relationship that first reached it.
func (s *MemoryStore) Neighbors(ctx context.Context, name string, maxHops int) ([]store.Neighbor, error) {
	if maxHops < 1 {
		maxHops = 1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	focusKey := store.EntityKey(name)
	if _, ok := s.entities[focusKey]; !ok {
		return nil, store.ErrEntityNotFound
	}

	adj := s.adjacency()
	type visit struct {
		key       string
		relType   string
		direction store.Direction
		hops      int
	}

	visited := map[string]bool{focusKey: true}
	frontier := []string{focusKey}
	found := []visit{}

	for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
		next := []string{}
		for _, current := range frontier {
			for _, edge := range adj[current] {
				otherKey := edge.to
				direction := store.DirectionOut
				if otherKey == current {
					otherKey = edge.from
					direction = store.DirectionIn
				}
				if visited[otherKey] {
					continue
				}
				visited[otherKey] = true
				found = append(found, visit{
					key:       otherKey,
					relType:   edge.relType,
					direction: direction,
					hops:      hop,
				})
				next = append(next, otherKey)
			}
		}
		frontier = next
	}

	neighbors := make([]store.Neighbor, 0, len(found))
	for _, v := range found {
		node := s.entities[v.key]
		neighbors = append(neighbors, store.Neighbor{
			Entity:    s.record(node),
			RelType:   v.relType,
			Direction: v.direction,
			Hops:      v.hops,
		})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Hops != neighbors[j].Hops {
			return neighbors[i].Hops < neighbors[j].Hops
		}
		return neighbors[i].Entity.Name < neighbors[j].Entity.Name
	})

	return neighbors, nil
}

// Relationships returns every edge touching the focus entity.
func (s *MemoryStore) Relationships(ctx context.Context, name string) ([]store.RelationshipRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	focusKey := store.EntityKey(name)
	if _, ok := s.entities[focusKey]; !ok {
		return nil, store.ErrEntityNotFound
	}

	rels := []store.RelationshipRecord{}
	for _, key := range s.sortedRelKeys() {
		if key.from != focusKey && key.to != focusKey {
			continue
		}
		rels = append(rels, store.RelationshipRecord{
			From:       s.entities[key.from].name,
			To:         s.entities[key.to].name,
			Type:       key.relType,
			Attributes: copyAttrs(s.rels[key]),
		})
	}

	return rels, nil
}

// AggregateStats returns direct connectivity and the 2-hop network size.
func (s *MemoryStore) AggregateStats(ctx context.Context, name string) (*store.EntityStats, error) {
	neighbors, err := s.Neighbors(ctx, name, 2)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	focusKey := store.EntityKey(name)
	typeCounts := map[string]int{}
	connections := 0
	for _, key := range s.sortedRelKeys() {
		if key.from != focusKey && key.to != focusKey {
			continue
		}
		typeCounts[key.relType]++
		connections++
	}

	return &store.EntityStats{
		ConnectionCount:        connections,
		RelationshipTypeCounts: typeCounts,
		ExtendedNetworkSize:    len(neighbors),
	}, nil
}

// GlobalMetrics returns whole-graph statistics.
func (s *MemoryStore) GlobalMetrics(ctx context.Context) (*store.GraphMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics := &store.GraphMetrics{
		NodeCount:           len(s.entities),
		RelationshipCount:   len(s.rels),
		LabelDistribution:   map[string]int{},
		RelTypeDistribution: map[string]int{},
	}
	if metrics.NodeCount > 1 {
		metrics.Density = float64(metrics.RelationshipCount) /
			float64(metrics.NodeCount*(metrics.NodeCount-1))
	}

	for _, key := range s.sortedEntityKeys() {
		for _, label := range s.entities[key].labels {
			metrics.LabelDistribution[label]++
		}
	}
	for key := range s.rels {
		metrics.RelTypeDistribution[key.relType]++
	}

	return metrics, nil
}

// ConnectionCounts returns every entity's direct connection count keyed
// by display name.
func (s *MemoryStore) ConnectionCounts(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int{}
	for _, key := range s.sortedEntityKeys() {
		counts[s.entities[key].name] = 0
	}
	for key := range s.rels {
		counts[s.entities[key.from].name]++
		counts[s.entities[key.to].name]++
	}

	return counts, nil
}

// ListEntities returns entity listings ordered by connectivity, then name.
func (s *MemoryStore) ListEntities(ctx context.Context, limit int) ([]store.EntityListing, error) {
	if limit <= 0 {
		limit = 50
	}

	counts, err := s.ConnectionCounts(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	listings := []store.EntityListing{}
	for _, key := range s.sortedEntityKeys() {
		node := s.entities[key]
		labels := make([]string, len(node.labels))
		copy(labels, node.labels)
		listings = append(listings, store.EntityListing{
			Name:            node.name,
			Labels:          labels,
			ConnectionCount: counts[node.name],
		})
	}

	sort.Slice(listings, func(i, j int) bool {
		if listings[i].ConnectionCount != listings[j].ConnectionCount {
			return listings[i].ConnectionCount > listings[j].ConnectionCount
		}
		return listings[i].Name < listings[j].Name
	})

	if len(listings) > limit {
		listings = listings[:limit]
	}

	return listings, nil
}

// EntitySummary returns the full read of one entity: record, grouped
// outgoing and incoming relationships, and attached metrics.
func (s *MemoryStore) EntitySummary(ctx context.Context, name string) (*store.EntitySummary, error) {
	entity, err := s.Entity(ctx, name)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	focusKey := store.EntityKey(name)
	summary := &store.EntitySummary{
		Entity:   entity,
		Outgoing: []store.RelationshipGroup{},
		Incoming: []store.RelationshipGroup{},
		Metrics:  []store.MetricValue{},
	}

	for _, key := range s.sortedRelKeys() {
		switch {
		case key.from == focusKey:
			other := s.entities[key.to]
			labels := make([]string, len(other.labels))
			copy(labels, other.labels)
			summary.Outgoing = append(summary.Outgoing, store.RelationshipGroup{
				RelType:     key.relType,
				OtherName:   other.name,
				OtherLabels: labels,
				Count:       1,
			})
			if key.relType == "HAS_METRIC" {
				summary.Metrics = append(summary.Metrics, metricValue(other))
			}
		case key.to == focusKey:
			other := s.entities[key.from]
			labels := make([]string, len(other.labels))
			copy(labels, other.labels)
			summary.Incoming = append(summary.Incoming, store.RelationshipGroup{
				RelType:     key.relType,
				OtherName:   other.name,
				OtherLabels: labels,
				Count:       1,
			})
		}
	}

	sort.Slice(summary.Metrics, func(i, j int) bool {
		return summary.Metrics[i].Name < summary.Metrics[j].Name
	})

	return summary, nil
}

func metricValue(node *entityNode) store.MetricValue {
	value := 0.0
	switch v := node.attrs["value"].(type) {
	case float64:
		value = v
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	}
	unit, _ := node.attrs["unit"].(string)
	return store.MetricValue{
		Name:  node.name,
		Value: value,
		Unit:  unit,
	}
}
