package insight

import (
	"context"
	"errors"
	"testing"

	"github.com/strategraph/strategraph/pkg/store"
	"github.com/strategraph/strategraph/pkg/store/memory"
)

func newSeededExtractor(t *testing.T) (*Extractor, *memory.MemoryStore) {
	t.Helper()

	s := memory.NewMemoryStore(memory.NewMemoryStoreParams{})
	if err := memory.SeedDemoGraph(context.Background(), s); err != nil {
		t.Fatalf("SeedDemoGraph() error = %v", err)
	}

	e, err := NewExtractor(NewExtractorParams{Store: s})
	if err != nil {
		t.Fatalf("NewExtractor() error = %v", err)
	}
	return e, s
}

func TestNewExtractorRequiresStore(t *testing.T) {
	if _, err := NewExtractor(NewExtractorParams{}); err == nil {
		t.Fatal("NewExtractor() without store should fail")
	}
}

func TestExtractMissingEntity(t *testing.T) {
	e, _ := newSeededExtractor(t)

	if _, err := e.Extract(context.Background(), "Unknown Corp"); !errors.Is(err, store.ErrEntityNotFound) {
		t.Fatalf("Extract() error = %v, want ErrEntityNotFound", err)
	}
}

func TestExtractSparseNeighborhood(t *testing.T) {
	s := memory.NewMemoryStore(memory.NewMemoryStoreParams{})
	ctx := context.Background()

	// A lone entity plus unrelated background entities. Its analysis
	// must come back empty, not as an error.
	for _, name := range []string{"Loner", "Background One", "Background Two"} {
		if _, err := s.UpsertEntity(ctx, name, []string{"Company"}, nil); err != nil {
			t.Fatalf("UpsertEntity() error = %v", err)
		}
	}

	e, err := NewExtractor(NewExtractorParams{Store: s})
	if err != nil {
		t.Fatalf("NewExtractor() error = %v", err)
	}

	bundle, err := e.Extract(ctx, "Loner")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if bundle.Chains == nil || bundle.Clusters == nil || bundle.Cycles == nil ||
		bundle.Anomalies == nil || bundle.Correlations == nil {
		t.Fatal("bundle slices must be non-nil even when empty")
	}
	if len(bundle.Chains)+len(bundle.Clusters)+len(bundle.Cycles)+
		len(bundle.Anomalies)+len(bundle.Correlations) != 0 {
		t.Errorf("sparse neighborhood produced findings: %+v", bundle)
	}
	if bundle.Stats.Aggregate.ConnectionCount != 0 {
		t.Errorf("connection count = %d, want 0", bundle.Stats.Aggregate.ConnectionCount)
	}
}

func TestExtractSeededGraph(t *testing.T) {
	e, _ := newSeededExtractor(t)

	bundle, err := e.Extract(context.Background(), "TechCorp")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if bundle.FocusEntity != "TechCorp" {
		t.Errorf("focus entity = %q, want TechCorp", bundle.FocusEntity)
	}
	if bundle.Stats.Aggregate.ConnectionCount != 10 {
		t.Errorf("connection count = %d, want 10", bundle.Stats.Aggregate.ConnectionCount)
	}

	// The demo graph has three attribute clusters: risks, markets and
	// metrics each share an exact attribute-key set.
	if len(bundle.Clusters) != 3 {
		t.Fatalf("clusters = %d, want 3", len(bundle.Clusters))
	}
	for _, c := range bundle.Clusters {
		if c.MemberCount != 3 {
			t.Errorf("cluster %v has %d members, want 3", c.AttributeKeys, c.MemberCount)
		}
	}

	// TechCorp is the hub of the demo graph and must be flagged.
	if len(bundle.Anomalies) != 1 {
		t.Fatalf("anomalies = %+v, want exactly one", bundle.Anomalies)
	}
	anomaly := bundle.Anomalies[0]
	if anomaly.Pattern != "highly_connected" {
		t.Errorf("anomaly pattern = %q, want highly_connected", anomaly.Pattern)
	}
	if anomaly.Severity != SeverityExtreme {
		t.Errorf("anomaly severity = %q, want %q", anomaly.Severity, SeverityExtreme)
	}
	if anomaly.ConnectionCount != 10 {
		t.Errorf("anomaly connection count = %d, want 10", anomaly.ConnectionCount)
	}
	if anomaly.ZScore <= e.config.AnomalyZScore {
		t.Errorf("z-score = %.2f, want above %.1f", anomaly.ZScore, e.config.AnomalyZScore)
	}

	// Single-occurrence chains fall below the frequency threshold.
	if len(bundle.Chains) != 0 {
		t.Errorf("chains = %+v, want none above threshold", bundle.Chains)
	}
	if len(bundle.Cycles) != 0 {
		t.Errorf("cycles = %+v, want none in the demo graph", bundle.Cycles)
	}
}

func TestExtractChainsAboveThreshold(t *testing.T) {
	s := memory.NewMemoryStore(memory.NewMemoryStoreParams{})
	ctx := context.Background()

	// Hub supplies two distributors, each operating in two markets, so
	// the SUPPLIES -> OPERATES_IN chain occurs four times.
	rels := []struct{ from, to, relType string }{
		{"Hub", "Distributor A", "SUPPLIES"},
		{"Hub", "Distributor B", "SUPPLIES"},
		{"Distributor A", "Market North", "OPERATES_IN"},
		{"Distributor A", "Market South", "OPERATES_IN"},
		{"Distributor B", "Market East", "OPERATES_IN"},
		{"Distributor B", "Market West", "OPERATES_IN"},
	}
	for _, r := range rels {
		if err := s.UpsertRelationship(ctx, r.from, r.to, r.relType, nil); err != nil {
			t.Fatalf("UpsertRelationship() error = %v", err)
		}
	}

	e, err := NewExtractor(NewExtractorParams{Store: s})
	if err != nil {
		t.Fatalf("NewExtractor() error = %v", err)
	}

	bundle, err := e.Extract(ctx, "Hub")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(bundle.Chains) != 1 {
		t.Fatalf("chains = %+v, want exactly one", bundle.Chains)
	}
	chain := bundle.Chains[0]
	if chain.FirstType != "SUPPLIES" || chain.SecondType != "OPERATES_IN" {
		t.Errorf("chain = %s -> %s, want SUPPLIES -> OPERATES_IN", chain.FirstType, chain.SecondType)
	}
	if chain.Frequency != 4 {
		t.Errorf("chain frequency = %d, want 4", chain.Frequency)
	}
	if chain.Significance != SignificanceMedium {
		t.Errorf("chain significance = %q, want %q", chain.Significance, SignificanceMedium)
	}
}

func TestExtractCycles(t *testing.T) {
	s := memory.NewMemoryStore(memory.NewMemoryStoreParams{})
	ctx := context.Background()

	rels := []struct{ from, to, relType string }{
		{"Alpha", "Beta", "SUPPLIES"},
		{"Beta", "Gamma", "SUPPLIES"},
		{"Gamma", "Alpha", "SUPPLIES"},
	}
	for _, r := range rels {
		if err := s.UpsertRelationship(ctx, r.from, r.to, r.relType, nil); err != nil {
			t.Fatalf("UpsertRelationship() error = %v", err)
		}
	}

	e, err := NewExtractor(NewExtractorParams{Store: s})
	if err != nil {
		t.Fatalf("NewExtractor() error = %v", err)
	}

	bundle, err := e.Extract(ctx, "Alpha")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(bundle.Cycles) != 1 {
		t.Fatalf("cycles = %+v, want exactly one", bundle.Cycles)
	}
	cycle := bundle.Cycles[0]
	wantNodes := []string{"Alpha", "Beta", "Gamma", "Alpha"}
	for i, n := range wantNodes {
		if cycle.Nodes[i] != n {
			t.Errorf("cycle node[%d] = %q, want %q", i, cycle.Nodes[i], n)
		}
	}
}

func TestDetectAnomalySeverityBuckets(t *testing.T) {
	e, err := NewExtractor(NewExtractorParams{Store: memory.NewMemoryStore(memory.NewMemoryStoreParams{})})
	if err != nil {
		t.Fatalf("NewExtractor() error = %v", err)
	}

	// Background counts alternate 3 and 5, so the mean is 4 and the
	// standard deviation 1 and the z-score is |count - 4|.
	tests := []struct {
		name         string
		count        int
		wantSeverity string
	}{
		{"below reporting floor", 5, ""},
		{"moderate", 6, SeverityModerate},
		{"high", 7, SeverityHigh},
		{"extreme", 8, SeverityExtreme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts := map[string]int{
				"hub": tt.count,
				"a":   3, "b": 5, "c": 3, "d": 5, "e": 3, "f": 5,
			}
			anomaly := e.detectAnomaly("Hub", counts)
			if tt.wantSeverity == "" {
				if anomaly != nil {
					t.Fatalf("detectAnomaly() = %+v, want nil", anomaly)
				}
				return
			}
			if anomaly == nil {
				t.Fatal("detectAnomaly() = nil, want an anomaly")
			}
			if anomaly.Severity != tt.wantSeverity {
				t.Errorf("severity = %q, want %q", anomaly.Severity, tt.wantSeverity)
			}
			if anomaly.Pattern != "highly_connected" {
				t.Errorf("pattern = %q, want highly_connected", anomaly.Pattern)
			}
		})
	}
}

func TestCorrelationSignificanceThresholdsConfigurable(t *testing.T) {
	s := memory.NewMemoryStore(memory.NewMemoryStoreParams{})
	ctx := context.Background()

	// Focus and Partner share exactly two direct neighbors.
	rels := []struct{ from, to, relType string }{
		{"Focus", "Partner", "ALLIES_WITH"},
		{"Focus", "Shared One", "SUPPLIES"},
		{"Focus", "Shared Two", "SUPPLIES"},
		{"Partner", "Shared One", "SUPPLIES"},
		{"Partner", "Shared Two", "SUPPLIES"},
	}
	for _, r := range rels {
		if err := s.UpsertRelationship(ctx, r.from, r.to, r.relType, nil); err != nil {
			t.Fatalf("UpsertRelationship() error = %v", err)
		}
	}

	tests := []struct {
		name             string
		config           Config
		wantSignificance string
	}{
		{"default thresholds", Config{}, SignificanceLow},
		{"lowered high threshold", Config{CooccurrenceHighFrequency: 1}, SignificanceHigh},
		{"lowered medium threshold", Config{CooccurrenceHighFrequency: 4, CooccurrenceMediumFrequency: 1}, SignificanceMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewExtractor(NewExtractorParams{Store: s, Config: tt.config})
			if err != nil {
				t.Fatalf("NewExtractor() error = %v", err)
			}

			bundle, err := e.Extract(ctx, "Focus")
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}

			var corr *Correlation
			for i := range bundle.Correlations {
				if bundle.Correlations[i].Entity2 == "Partner" {
					corr = &bundle.Correlations[i]
				}
			}
			if corr == nil {
				t.Fatalf("correlations = %+v, want Focus/Partner pair", bundle.Correlations)
			}
			if corr.Frequency != 2 {
				t.Errorf("frequency = %d, want 2", corr.Frequency)
			}
			if corr.Significance != tt.wantSignificance {
				t.Errorf("significance = %q, want %q", corr.Significance, tt.wantSignificance)
			}
		})
	}
}

func TestHighlightsSkipLowSignificance(t *testing.T) {
	bundle := &Bundle{
		FocusEntity: "TechCorp",
		Chains: []Chain{
			{FirstType: "SUPPLIES", SecondType: "OPERATES_IN", Frequency: 4, Significance: SignificanceMedium},
			{FirstType: "EMPLOYS", SecondType: "LOCATED_IN", Frequency: 2, Significance: SignificanceLow},
		},
		Correlations: []Correlation{
			{Entity1: "TechCorp", Entity2: "GlobalNet", Frequency: 2, Significance: SignificanceLow},
		},
	}

	lines := bundle.Highlights()
	if len(lines) != 1 {
		t.Fatalf("highlights = %v, want only the medium-significance chain", lines)
	}
}
