package risk

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/strategraph/strategraph/pkg/analysis/insight"
	"github.com/strategraph/strategraph/pkg/store/memory"
)

func TestCategorizeCutPoints(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.0, LevelLow},
		{0.32, LevelLow},
		{0.33, LevelMedium},
		{0.5, LevelMedium},
		{0.65, LevelMedium},
		{0.66, LevelHigh},
		{1.0, LevelHigh},
	}

	for _, tt := range tests {
		if got := Categorize(tt.score); got != tt.want {
			t.Errorf("Categorize(%.2f) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestCategorizeMonotonic(t *testing.T) {
	rank := map[string]int{LevelLow: 0, LevelMedium: 1, LevelHigh: 2}

	prev := -1
	for score := 0.0; score <= 1.0; score += 0.01 {
		got := rank[Categorize(score)]
		if got < prev {
			t.Fatalf("Categorize not monotonic at %.2f", score)
		}
		prev = got
	}
}

func emptyBundle(entity string) *insight.Bundle {
	return &insight.Bundle{
		FocusEntity:  entity,
		Chains:       []insight.Chain{},
		Clusters:     []insight.Cluster{},
		Cycles:       []insight.Cycle{},
		Anomalies:    []insight.Anomaly{},
		Correlations: []insight.Correlation{},
	}
}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestRuleScorerBaselines(t *testing.T) {
	s := memory.NewMemoryStore(memory.NewMemoryStoreParams{})
	ctx := context.Background()

	if _, err := s.UpsertEntity(ctx, "Quiet Corp", []string{"Company"}, nil); err != nil {
		t.Fatalf("UpsertEntity() error = %v", err)
	}

	scorer, err := NewRuleScorer(NewRuleScorerParams{Store: s})
	if err != nil {
		t.Fatalf("NewRuleScorer() error = %v", err)
	}

	a, err := scorer.Score(ctx, "Quiet Corp", emptyBundle("Quiet Corp"))
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	if !approx(a.Financial, 0.4) || !approx(a.Operational, 0.5) || !approx(a.Market, 0.45) {
		t.Errorf("baseline scores = %.2f/%.2f/%.2f, want 0.40/0.50/0.45",
			a.Financial, a.Operational, a.Market)
	}
	if !approx(a.Overall, 0.4*0.4+0.3*0.5+0.3*0.45) {
		t.Errorf("overall = %f, want weighted combination", a.Overall)
	}
	if !strings.Contains(a.Reasoning, "Quiet Corp") {
		t.Errorf("reasoning %q does not name the entity", a.Reasoning)
	}
	if !strings.Contains(a.Reasoning, "baseline") {
		t.Errorf("reasoning %q should state that baselines were applied", a.Reasoning)
	}
}

func TestRuleScorerSingleOperationalRisk(t *testing.T) {
	s := memory.NewMemoryStore(memory.NewMemoryStoreParams{})
	ctx := context.Background()

	if _, err := s.UpsertEntity(ctx, "TechCorp", []string{"Company"}, nil); err != nil {
		t.Fatalf("UpsertEntity() error = %v", err)
	}
	if _, err := s.UpsertEntity(ctx, "Supplier Concentration", []string{"Risk"}, map[string]any{
		"risk_type": "operational", "level": 0.45,
	}); err != nil {
		t.Fatalf("UpsertEntity() error = %v", err)
	}
	if err := s.UpsertRelationship(ctx, "TechCorp", "Supplier Concentration", "HAS_RISK", nil); err != nil {
		t.Fatalf("UpsertRelationship() error = %v", err)
	}

	scorer, err := NewRuleScorer(NewRuleScorerParams{Store: s})
	if err != nil {
		t.Fatalf("NewRuleScorer() error = %v", err)
	}

	a, err := scorer.Score(ctx, "TechCorp", emptyBundle("TechCorp"))
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	if !approx(a.Operational, 0.45) {
		t.Errorf("operational = %f, want the single factor level 0.45", a.Operational)
	}
	if Categorize(a.Operational) == LevelLow {
		t.Errorf("operational score %.2f categorized Low, want at least Medium", a.Operational)
	}
	if Categorize(a.Overall) == LevelHigh {
		t.Errorf("overall score %.2f categorized High for a single moderate factor", a.Overall)
	}
	if !strings.Contains(a.Reasoning, "Supplier Concentration") {
		t.Errorf("reasoning %q does not name the driving factor", a.Reasoning)
	}
}

func TestRuleScorerAnomalyBumpsOperational(t *testing.T) {
	s := memory.NewMemoryStore(memory.NewMemoryStoreParams{})
	ctx := context.Background()

	if _, err := s.UpsertEntity(ctx, "HubCo", []string{"Company"}, nil); err != nil {
		t.Fatalf("UpsertEntity() error = %v", err)
	}

	scorer, err := NewRuleScorer(NewRuleScorerParams{Store: s})
	if err != nil {
		t.Fatalf("NewRuleScorer() error = %v", err)
	}

	bundle := emptyBundle("HubCo")
	bundle.Anomalies = []insight.Anomaly{{
		Entity: "HubCo", ConnectionCount: 40, ZScore: 4.2,
		Pattern: "highly_connected", Severity: insight.SeverityExtreme,
	}}

	a, err := scorer.Score(ctx, "HubCo", bundle)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	if !approx(a.Operational, 0.65) {
		t.Errorf("operational = %f, want baseline 0.50 plus extreme bump 0.15", a.Operational)
	}
}

func TestRuleScorerCompetitorPressureCapped(t *testing.T) {
	s := memory.NewMemoryStore(memory.NewMemoryStoreParams{})
	ctx := context.Background()

	competitors := []string{"Rival A", "Rival B", "Rival C", "Rival D", "Rival E", "Rival F", "Rival G"}
	for _, c := range competitors {
		if err := s.UpsertRelationship(ctx, "Crowded Corp", c, "COMPETES_WITH", nil); err != nil {
			t.Fatalf("UpsertRelationship() error = %v", err)
		}
	}
	if err := s.UpsertRelationship(ctx, "Crowded Corp", "Niche Market", "OPERATES_IN", nil); err != nil {
		t.Fatalf("UpsertRelationship() error = %v", err)
	}

	scorer, err := NewRuleScorer(NewRuleScorerParams{Store: s})
	if err != nil {
		t.Fatalf("NewRuleScorer() error = %v", err)
	}

	a, err := scorer.Score(ctx, "Crowded Corp", emptyBundle("Crowded Corp"))
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	// 7 competitors over 1 market exceeds the cap, so exactly +0.15.
	if math.Abs(a.Market-0.6) > 1e-9 {
		t.Errorf("market = %f, want baseline 0.45 plus capped pressure 0.15", a.Market)
	}
	if !strings.Contains(a.Reasoning, "competitive pressure") {
		t.Errorf("reasoning %q does not mention competitive pressure", a.Reasoning)
	}
}

func TestAssessmentLabels(t *testing.T) {
	a := &Assessment{Financial: 0.2, Operational: 0.5, Market: 0.7, Overall: 0.45}

	labels := a.Labels()
	if labels["financial"] != LevelLow || labels["operational"] != LevelMedium ||
		labels["market"] != LevelHigh || labels["overall"] != LevelMedium {
		t.Errorf("labels = %v", labels)
	}
}
