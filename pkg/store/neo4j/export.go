package neo4j

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/strategraph/strategraph/pkg/logger"
	"github.com/strategraph/strategraph/pkg/store"
)

// ExportSegment collects the subgraph within depth hops of the focus
// entity and writes it as a JSON file under the export directory. The
// returned segment carries the written file path.
func (s *Neo4jStore) ExportSegment(ctx context.Context, name string, depth int) (*store.GraphSegment, error) {
	if depth < 1 {
		depth = 1
	}
	if depth > 3 {
		depth = 3
	}

	if _, err := s.Entity(ctx, name); err != nil {
		return nil, err
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, exportSegmentQuery(depth), map[string]any{"key": store.EntityKey(name)})
		if err != nil {
			return nil, err
		}

		segment := &store.GraphSegment{
			Nodes: []store.GraphNode{},
			Links: []store.GraphLink{},
		}

		if !res.Next(ctx) {
			return segment, res.Err()
		}

		record := res.Record()
		nodesVal, _ := record.Get("nodes")
		relsVal, _ := record.Get("rels")

		seen := map[int64]bool{}
		if nodes, ok := nodesVal.([]any); ok {
			for _, value := range nodes {
				node, ok := value.(neo4j.Node)
				if !ok || seen[node.Id] {
					continue
				}
				seen[node.Id] = true
				segment.Nodes = append(segment.Nodes, store.GraphNode{
					ID:         node.Id,
					Name:       asString(node.Props["name"]),
					Labels:     asStringSlice(node.Props["labels"]),
					Attributes: entityAttributes(node.Props),
				})
			}
		}

		if rels, ok := relsVal.([]any); ok {
			for _, value := range rels {
				rel, ok := value.(neo4j.Relationship)
				if !ok {
					continue
				}
				segment.Links = append(segment.Links, store.GraphLink{
					Source: rel.StartId,
					Target: rel.EndId,
					Type:   rel.Type,
				})
			}
		}

		return segment, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export segment of %q: %w", name, err)
	}

	segment := result.(*store.GraphSegment)

	filePath, err := s.writeExport(name, segment)
	if err != nil {
		return nil, err
	}
	segment.ExportedFile = filePath

	logger.Info("[Store] exported graph segment",
		"entity", name, "nodes", len(segment.Nodes), "links", len(segment.Links), "file", filePath)

	return segment, nil
}

// exportSegmentQuery builds the subgraph query. All matched paths are
// collected before the node and relationship aggregations, so the
// query returns exactly one row and no implicit grouping key can split
// the result. The result reader consumes a single record.
func exportSegmentQuery(depth int) string {
	return fmt.Sprintf(`
		MATCH path = (e:Entity {key: $key})-[*1..%d]-(:Entity)
		WITH collect(path) AS paths
		UNWIND paths AS path
		UNWIND nodes(path) AS node
		WITH paths, collect(DISTINCT node) AS nodes
		UNWIND paths AS path
		UNWIND relationships(path) AS rel
		RETURN nodes, collect(DISTINCT rel) AS rels
	`, depth)
}

func (s *Neo4jStore) writeExport(name string, segment *store.GraphSegment) (string, error) {
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	fileName := fmt.Sprintf("entity_%s_%s.json",
		strings.ReplaceAll(store.NormalizeEntityName(name), " ", "_"), timestamp)
	filePath := filepath.Join(s.exportDir, fileName)

	data, err := json.MarshalIndent(map[string]any{
		"nodes": segment.Nodes,
		"links": segment.Links,
	}, "", "  ")
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return filePath, nil
}
