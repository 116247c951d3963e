package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/strategraph/strategraph/internal/util"
	"github.com/strategraph/strategraph/pkg/ai"
	"github.com/strategraph/strategraph/pkg/loader"
	"github.com/strategraph/strategraph/pkg/logger"
	"github.com/strategraph/strategraph/pkg/store"

	"golang.org/x/sync/errgroup"
)

// IngestResult summarizes what a document ingestion wrote to the graph.
type IngestResult struct {
	FileID        string `json:"file_id"`
	Units         int    `json:"units"`
	Triplets      int    `json:"triplets"`
	Entities      int    `json:"entities"`
	Relationships int    `json:"relationships"`
}

// IngestDocument chunks the file, extracts business triplets from every
// unit and merges them into the graph store. Unreadable or empty input
// aborts before any graph mutation. Duplicate triplets within the
// document are collapsed before writing; the upserts themselves are
// idempotent, so re-ingesting the same document is safe.
func (g *GraphClient) IngestDocument(
	ctx context.Context,
	file loader.GraphFile,
	client ai.GraphAIClient,
	st store.GraphStore,
) (*IngestResult, error) {
	units, err := getUnitsFromText(ctx, file, g.tokenEncoder)
	if err != nil {
		return nil, fmt.Errorf("failed to extract units from %s: %w", file.FilePath, err)
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("document %s contains no extractable text", file.FilePath)
	}

	logger.Info("[Graph] processing document", "file", file.FilePath, "units", len(units))

	var mergeMu sync.Mutex
	var triplets []extractTriplet

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelAiRequests)
	for _, unit := range units {
		u := unit
		eg.Go(func() error {
			extracted, err := util.RetryWithContext(gCtx, g.maxRetries, func(ctx context.Context) ([]extractTriplet, error) {
				return extractFromUnit(ctx, u, file, client)
			})
			if err != nil {
				return fmt.Errorf("failed to extract triplets from unit %s: %w", u.id, err)
			}

			mergeMu.Lock()
			triplets = append(triplets, extracted...)
			mergeMu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	deduped := dedupeTriplets(triplets)

	result := &IngestResult{
		FileID:   file.ID,
		Units:    len(units),
		Triplets: len(deduped),
	}

	seenEntities := make(map[string]bool)
	upsertEntity := func(name, entityType string, attrs map[string]any) error {
		key := store.EntityKey(name)
		if !seenEntities[key] {
			seenEntities[key] = true
			result.Entities++
		}
		_, err := st.UpsertEntity(ctx, name, []string{normalizeLabel(entityType)}, attrs)
		return err
	}

	for _, t := range deduped {
		if err := upsertEntity(t.Subject, t.SubjectType, nil); err != nil {
			return nil, fmt.Errorf("failed to upsert entity %q: %w", t.Subject, err)
		}
		// Extracted attributes describe the object (risk levels, metric
		// values), the strength belongs to the edge.
		if err := upsertEntity(t.Object, t.ObjectType, attributeMap(t.Attributes)); err != nil {
			return nil, fmt.Errorf("failed to upsert entity %q: %w", t.Object, err)
		}

		var relAttrs map[string]any
		if t.Strength > 0 {
			relAttrs = map[string]any{"strength": t.Strength}
		}
		if err := st.UpsertRelationship(ctx, t.Subject, t.Object, t.Predicate, relAttrs); err != nil {
			return nil, fmt.Errorf("failed to upsert relationship %s-[%s]->%s: %w",
				t.Subject, t.Predicate, t.Object, err)
		}
		result.Relationships++
	}

	logger.Info("[Graph] document ingested",
		"file", file.FilePath,
		"entities", result.Entities,
		"relationships", result.Relationships)

	return result, nil
}

// IngestDocuments processes multiple files concurrently, bounded by the
// client's file parallelism. The store's merge-by-key upserts make
// concurrent writers safe without application-level locking.
func (g *GraphClient) IngestDocuments(
	ctx context.Context,
	files []loader.GraphFile,
	client ai.GraphAIClient,
	st store.GraphStore,
) ([]*IngestResult, error) {
	results := make([]*IngestResult, len(files))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelFiles)
	for i, file := range files {
		i, file := i, file
		eg.Go(func() error {
			res, err := g.IngestDocument(gCtx, file, client, st)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// dedupeTriplets collapses triplets that share the same normalized
// (subject, predicate, object) key, keeping the first occurrence and
// merging attributes from later ones without overwriting.
func dedupeTriplets(triplets []extractTriplet) []extractTriplet {
	seen := make(map[string]int, len(triplets))
	out := make([]extractTriplet, 0, len(triplets))

	for _, t := range triplets {
		key := store.EntityKey(t.Subject) + "|" + store.EntityKey(t.Predicate) + "|" + store.EntityKey(t.Object)
		idx, ok := seen[key]
		if !ok {
			seen[key] = len(out)
			out = append(out, t)
			continue
		}

		existing := make(map[string]bool, len(out[idx].Attributes))
		for _, a := range out[idx].Attributes {
			existing[a.Key] = true
		}
		for _, a := range t.Attributes {
			if !existing[a.Key] {
				out[idx].Attributes = append(out[idx].Attributes, a)
			}
		}
		if t.Strength > out[idx].Strength {
			out[idx].Strength = t.Strength
		}
	}

	return out
}
