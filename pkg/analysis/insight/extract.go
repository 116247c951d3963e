package insight

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/strategraph/strategraph/pkg/store"
)

// Extractor runs the read-only graph analyses for one focus entity.
// All computation happens in Go over store reads, so every store
// backend yields identical bundles.
type Extractor struct {
	store  store.GraphStore
	config Config
}

// NewExtractorParams defines the inputs for NewExtractor.
type NewExtractorParams struct {
	Store  store.GraphStore
	Config Config
}

// NewExtractor creates an Extractor. Unset config thresholds take
// their defaults.
func NewExtractor(params NewExtractorParams) (*Extractor, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("insight extractor requires a graph store")
	}
	return &Extractor{
		store:  params.Store,
		config: params.Config.withDefaults(),
	}, nil
}

// Extract produces the insight bundle for the named entity. The entity
// must exist; empty analysis results are valid and come back as empty
// lists.
func (e *Extractor) Extract(ctx context.Context, entityName string) (*Bundle, error) {
	entity, err := e.store.Entity(ctx, entityName)
	if err != nil {
		return nil, err
	}

	aggregate, err := e.store.AggregateStats(ctx, entity.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to read aggregate stats: %w", err)
	}
	global, err := e.store.GlobalMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read global metrics: %w", err)
	}

	neighbors, err := e.store.Neighbors(ctx, entity.Name, e.config.MaxHops)
	if err != nil {
		return nil, fmt.Errorf("failed to read neighborhood: %w", err)
	}

	// Direct out/in edges per entity in the neighborhood, fetched once
	// and shared by the chain, cycle and correlation analyses.
	edges := map[string][]store.RelationshipRecord{
		store.EntityKey(entity.Name): nil,
	}
	rels, err := e.store.Relationships(ctx, entity.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to read relationships: %w", err)
	}
	edges[store.EntityKey(entity.Name)] = rels

	for _, n := range neighbors {
		key := store.EntityKey(n.Entity.Name)
		if _, ok := edges[key]; ok {
			continue
		}
		r, err := e.store.Relationships(ctx, n.Entity.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to read relationships of %s: %w", n.Entity.Name, err)
		}
		edges[key] = r
	}

	bundle := &Bundle{
		FocusEntity: entity.Name,
		Stats: Stats{
			Entity:    entity,
			Aggregate: aggregate,
			Global:    global,
		},
		Chains:       e.mineChains(entity.Name, edges),
		Clusters:     e.clusterByAttributes(entity, neighbors),
		Cycles:       e.findCycles(entity.Name, edges),
		Anomalies:    []Anomaly{},
		Correlations: e.findCorrelations(entity.Name, neighbors, edges),
	}

	counts, err := e.store.ConnectionCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read connection counts: %w", err)
	}
	if anomaly := e.detectAnomaly(entity.Name, counts); anomaly != nil {
		bundle.Anomalies = append(bundle.Anomalies, *anomaly)
	}

	return bundle, nil
}

func outEdges(edges map[string][]store.RelationshipRecord, name string) []store.RelationshipRecord {
	var out []store.RelationshipRecord
	key := store.EntityKey(name)
	for _, r := range edges[key] {
		if store.EntityKey(r.From) == key {
			out = append(out, r)
		}
	}
	return out
}

// mineChains counts (first, second) relationship type pairs along
// two-step outgoing paths from the focus entity.
func (e *Extractor) mineChains(focus string, edges map[string][]store.RelationshipRecord) []Chain {
	freq := make(map[[2]string]int)

	for _, first := range outEdges(edges, focus) {
		for _, second := range outEdges(edges, first.To) {
			if store.EntityKey(second.To) == store.EntityKey(focus) {
				continue
			}
			freq[[2]string{first.Type, second.Type}]++
		}
	}

	chains := make([]Chain, 0, len(freq))
	for pair, count := range freq {
		if count < e.config.ChainMinFrequency {
			continue
		}
		significance := SignificanceMedium
		if count > e.config.ChainHighFrequency {
			significance = SignificanceHigh
		} else if count < e.config.ChainLowFrequency {
			significance = SignificanceLow
		}
		chains = append(chains, Chain{
			FirstType:    pair[0],
			SecondType:   pair[1],
			Frequency:    count,
			Significance: significance,
		})
	}

	sort.Slice(chains, func(i, j int) bool {
		if chains[i].Frequency != chains[j].Frequency {
			return chains[i].Frequency > chains[j].Frequency
		}
		if chains[i].FirstType != chains[j].FirstType {
			return chains[i].FirstType < chains[j].FirstType
		}
		return chains[i].SecondType < chains[j].SecondType
	})

	if len(chains) > e.config.TopChains {
		chains = chains[:e.config.TopChains]
	}
	return chains
}

// clusterByAttributes groups the neighborhood by the exact set of
// attribute keys each entity carries, ignoring values.
func (e *Extractor) clusterByAttributes(entity *store.EntityRecord, neighbors []store.Neighbor) []Cluster {
	members := map[string][]string{}
	keysets := map[string][]string{}

	add := func(rec *store.EntityRecord) {
		if len(rec.Attributes) == 0 {
			return
		}
		keys := make([]string, 0, len(rec.Attributes))
		for k := range rec.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sig := strings.Join(keys, "|")
		members[sig] = append(members[sig], rec.Name)
		keysets[sig] = keys
	}

	add(entity)
	for _, n := range neighbors {
		add(&n.Entity)
	}

	clusters := make([]Cluster, 0, len(members))
	for sig, names := range members {
		if len(names) < e.config.ClusterMinMembers {
			continue
		}
		sort.Strings(names)
		clusters = append(clusters, Cluster{
			AttributeKeys: keysets[sig],
			Members:       names,
			MemberCount:   len(names),
		})
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].MemberCount != clusters[j].MemberCount {
			return clusters[i].MemberCount > clusters[j].MemberCount
		}
		return strings.Join(clusters[i].AttributeKeys, "|") < strings.Join(clusters[j].AttributeKeys, "|")
	})
	return clusters
}

// findCycles detects focus -> X -> Y -> focus loops over directed
// edges, reporting each distinct (X, Y, types) combination once.
func (e *Extractor) findCycles(focus string, edges map[string][]store.RelationshipRecord) []Cycle {
	focusKey := store.EntityKey(focus)
	seen := map[string]bool{}
	cycles := []Cycle{}

	for _, first := range outEdges(edges, focus) {
		if store.EntityKey(first.To) == focusKey {
			continue
		}
		for _, second := range outEdges(edges, first.To) {
			if store.EntityKey(second.To) == focusKey ||
				store.EntityKey(second.To) == store.EntityKey(first.To) {
				continue
			}
			for _, third := range outEdges(edges, second.To) {
				if store.EntityKey(third.To) != focusKey {
					continue
				}
				sig := strings.Join([]string{
					store.EntityKey(first.To), store.EntityKey(second.To),
					first.Type, second.Type, third.Type,
				}, "|")
				if seen[sig] {
					continue
				}
				seen[sig] = true
				cycles = append(cycles, Cycle{
					Nodes:    []string{focus, first.To, second.To, focus},
					RelTypes: []string{first.Type, second.Type, third.Type},
				})
			}
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		if cycles[i].Nodes[1] != cycles[j].Nodes[1] {
			return cycles[i].Nodes[1] < cycles[j].Nodes[1]
		}
		if cycles[i].Nodes[2] != cycles[j].Nodes[2] {
			return cycles[i].Nodes[2] < cycles[j].Nodes[2]
		}
		return strings.Join(cycles[i].RelTypes, "|") < strings.Join(cycles[j].RelTypes, "|")
	})
	return cycles
}

// detectAnomaly compares the focus entity's direct connection count
// against the rest of the graph. Returns nil when connectivity is
// unremarkable.
func (e *Extractor) detectAnomaly(focus string, counts map[string]int) *Anomaly {
	focusKey := store.EntityKey(focus)
	focusCount, ok := counts[focusKey]
	if !ok {
		// Backends may key counts by display name.
		for name, c := range counts {
			if store.EntityKey(name) == focusKey {
				focusCount = c
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil
	}

	var others []float64
	for name, c := range counts {
		if store.EntityKey(name) == focusKey {
			continue
		}
		others = append(others, float64(c))
	}
	if len(others) < 2 {
		return nil
	}

	var sum float64
	for _, v := range others {
		sum += v
	}
	mean := sum / float64(len(others))

	var variance float64
	for _, v := range others {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance / float64(len(others)))
	if std == 0 {
		return nil
	}

	z := math.Abs(float64(focusCount)-mean) / std
	if z < e.config.AnomalyModerateZScore {
		return nil
	}

	severity := SeverityModerate
	switch {
	case z > e.config.AnomalyZScore:
		severity = SeverityExtreme
	case z > e.config.AnomalyHighZScore:
		severity = SeverityHigh
	}
	pattern := "highly_connected"
	if float64(focusCount) < mean {
		pattern = "isolated"
	}

	return &Anomaly{
		Entity:             focus,
		ConnectionCount:    focusCount,
		AverageConnections: math.Round(mean*100) / 100,
		ZScore:             math.Round(z*100) / 100,
		Pattern:            pattern,
		Severity:           severity,
	}
}

// findCorrelations counts shared direct neighbors between the focus
// entity and each entity in its neighborhood.
func (e *Extractor) findCorrelations(
	focus string,
	neighbors []store.Neighbor,
	edges map[string][]store.RelationshipRecord,
) []Correlation {
	focusKey := store.EntityKey(focus)

	neighborSet := func(name string) map[string]bool {
		set := map[string]bool{}
		for _, r := range edges[store.EntityKey(name)] {
			set[store.EntityKey(r.From)] = true
			set[store.EntityKey(r.To)] = true
		}
		delete(set, store.EntityKey(name))
		return set
	}

	focusNeighbors := neighborSet(focus)

	correlations := []Correlation{}
	for _, n := range neighbors {
		otherKey := store.EntityKey(n.Entity.Name)
		if otherKey == focusKey {
			continue
		}

		shared := 0
		for k := range neighborSet(n.Entity.Name) {
			if k != focusKey && k != otherKey && focusNeighbors[k] {
				shared++
			}
		}
		if shared < e.config.CooccurrenceMinFrequency {
			continue
		}

		significance := SignificanceLow
		if shared > e.config.CooccurrenceHighFrequency {
			significance = SignificanceHigh
		} else if shared > e.config.CooccurrenceMediumFrequency {
			significance = SignificanceMedium
		}
		correlations = append(correlations, Correlation{
			Entity1:      focus,
			Entity2:      n.Entity.Name,
			Frequency:    shared,
			Significance: significance,
		})
	}

	sort.Slice(correlations, func(i, j int) bool {
		if correlations[i].Frequency != correlations[j].Frequency {
			return correlations[i].Frequency > correlations[j].Frequency
		}
		return correlations[i].Entity2 < correlations[j].Entity2
	})
	if len(correlations) > e.config.TopCorrelations {
		correlations = correlations[:e.config.TopCorrelations]
	}
	return correlations
}
