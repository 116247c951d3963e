package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/strategraph/strategraph/pkg/store"
)

type entityNode struct {
	id     int64
	name   string
	labels []string
	attrs  map[string]any
}

type relKey struct {
	from    string
	to      string
	relType string
}

// MemoryStore implements store.GraphStore with in-process maps. Reads
// iterate in sorted order so results are stable run to run, which makes
// it the deterministic backend for tests and offline analysis.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	entities map[string]*entityNode
	rels     map[relKey]map[string]any

	exportDir string
}

// NewMemoryStoreParams configures a MemoryStore.
type NewMemoryStoreParams struct {
	// ExportDir receives graph-segment JSON exports. Defaults to "exports".
	ExportDir string
}

// NewMemoryStore creates an empty in-memory graph store.
func NewMemoryStore(params NewMemoryStoreParams) *MemoryStore {
	exportDir := params.ExportDir
	if exportDir == "" {
		exportDir = "exports"
	}
	return &MemoryStore{
		entities:  make(map[string]*entityNode),
		rels:      make(map[relKey]map[string]any),
		exportDir: exportDir,
	}
}

// UpsertEntity merges an entity by its normalized name key. The first
// observed display form wins; attributes merge last-write-wins per key;
// labels union.
func (s *MemoryStore) UpsertEntity(
	ctx context.Context,
	name string,
	labels []string,
	attrs map[string]any,
) (int64, error) {
	display := store.NormalizeEntityName(name)
	if display == "" {
		return 0, fmt.Errorf("entity name is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.upsertLocked(name, display)
	for _, label := range labels {
		found := false
		for _, existing := range node.labels {
			if existing == label {
				found = true
				break
			}
		}
		if !found {
			node.labels = append(node.labels, label)
		}
	}
	for k, v := range attrs {
		node.attrs[k] = v
	}

	return node.id, nil
}

func (s *MemoryStore) upsertLocked(name, display string) *entityNode {
	key := store.EntityKey(name)
	if node, ok := s.entities[key]; ok {
		return node
	}
	s.nextID++
	node := &entityNode{
		id:     s.nextID,
		name:   display,
		labels: []string{},
		attrs:  map[string]any{},
	}
	s.entities[key] = node
	return node
}

// UpsertRelationship merges an edge keyed by (from, to, type), creating
// missing endpoints.
func (s *MemoryStore) UpsertRelationship(
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

	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertLocked(from, fromName)
	s.upsertLocked(to, toName)

	key := relKey{
		from:    store.EntityKey(from),
		to:      store.EntityKey(to),
		relType: relType,
	}
	existing, ok := s.rels[key]
	if !ok {
		existing = map[string]any{}
		s.rels[key] = existing
	}
	for k, v := range attrs {
		existing[k] = v
	}

	return nil
}

// Reset removes every entity and relationship.
func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entities = make(map[string]*entityNode)
	s.rels = make(map[relKey]map[string]any)
	s.nextID = 0
	return nil
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

// sortedEntityKeys returns all entity keys in lexicographic order.
// Callers must hold the read lock.
func (s *MemoryStore) sortedEntityKeys() []string {
	keys := make([]string, 0, len(s.entities))
	for key := range s.entities {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// sortedRelKeys returns all relationship keys ordered by (from, to, type).
// Callers must hold the read lock.
func (s *MemoryStore) sortedRelKeys() []relKey {
	keys := make([]relKey, 0, len(s.rels))
	for key := range s.rels {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		if keys[i].to != keys[j].to {
			return keys[i].to < keys[j].to
		}
		return keys[i].relType < keys[j].relType
	})
	return keys
}

func (s *MemoryStore) record(node *entityNode) store.EntityRecord {
	labels := make([]string, len(node.labels))
	copy(labels, node.labels)
	attrs := make(map[string]any, len(node.attrs))
	for k, v := range node.attrs {
		attrs[k] = v
	}
	return store.EntityRecord{
		ID:         node.id,
		Name:       node.name,
		Labels:     labels,
		Attributes: attrs,
	}
}

func copyAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
