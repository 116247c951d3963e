package risk

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/strategraph/strategraph/pkg/analysis/insight"
	"github.com/strategraph/strategraph/pkg/store"
)

// Baseline scores used when a category has no explicit risk factors.
const (
	baselineFinancial   = 0.4
	baselineOperational = 0.5
	baselineMarket      = 0.45
)

// RuleScorer derives risk scores deterministically from the graph:
// explicit HAS_RISK factor levels per category, connectivity anomaly
// severity, and competitive market signals.
type RuleScorer struct {
	store store.GraphStore
}

// NewRuleScorerParams defines the inputs for NewRuleScorer.
type NewRuleScorerParams struct {
	Store store.GraphStore
}

// NewRuleScorer creates a RuleScorer.
func NewRuleScorer(params NewRuleScorerParams) (*RuleScorer, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("rule scorer requires a graph store")
	}
	return &RuleScorer{store: params.Store}, nil
}

// Score computes the assessment for the entity. The result is fully
// determined by the graph contents and the bundle.
func (s *RuleScorer) Score(ctx context.Context, entityName string, bundle *insight.Bundle) (*Assessment, error) {
	factors, err := s.store.RiskFactors(ctx, entityName)
	if err != nil {
		return nil, fmt.Errorf("failed to read risk factors: %w", err)
	}
	rels, err := s.store.Relationships(ctx, entityName)
	if err != nil {
		return nil, fmt.Errorf("failed to read relationships: %w", err)
	}

	var drivers []string

	// Explicit risk factor levels, averaged per category.
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, f := range factors {
		category := strings.ToLower(f.RiskType)
		if category != CategoryFinancial && category != CategoryOperational && category != CategoryMarket {
			continue
		}
		sums[category] += f.Level
		counts[category]++
		drivers = append(drivers, fmt.Sprintf("%s (%s risk, level %.2f)", f.Name, category, f.Level))
	}

	categoryScore := func(category string, baseline float64) float64 {
		if counts[category] == 0 {
			return baseline
		}
		return sums[category] / float64(counts[category])
	}

	financial := categoryScore(CategoryFinancial, baselineFinancial)
	operational := categoryScore(CategoryOperational, baselineOperational)
	market := categoryScore(CategoryMarket, baselineMarket)

	// Connectivity anomalies read as operational exposure.
	for _, a := range bundle.Anomalies {
		switch a.Severity {
		case insight.SeverityExtreme:
			operational += 0.15
		case insight.SeverityHigh:
			operational += 0.1
		case insight.SeverityModerate:
			operational += 0.05
		}
		drivers = append(drivers, fmt.Sprintf("%s connectivity anomaly for %s", a.Severity, a.Entity))
	}

	// Market pressure from the competitive landscape: many competitors
	// over few markets means concentrated exposure.
	competitors := 0
	markets := 0
	var competitorNames []string
	for _, r := range rels {
		switch r.Type {
		case "COMPETES_WITH":
			competitors++
			other := r.To
			if store.EntityKey(other) == store.EntityKey(entityName) {
				other = r.From
			}
			competitorNames = append(competitorNames, other)
		case "OPERATES_IN":
			markets++
		}
	}
	if competitors > 0 {
		pressure := 0.03 * float64(competitors)
		if markets > 0 && competitors > markets {
			pressure += 0.02 * float64(competitors-markets)
		}
		if pressure > 0.15 {
			pressure = 0.15
		}
		market += pressure
		sort.Strings(competitorNames)
		drivers = append(drivers, fmt.Sprintf(
			"competitive pressure across %d markets from %s",
			markets, strings.Join(competitorNames, ", ")))
	}

	financial = clamp01(financial)
	operational = clamp01(operational)
	market = clamp01(market)

	assessment := &Assessment{
		Financial:   financial,
		Operational: operational,
		Market:      market,
		Overall:     overallScore(financial, operational, market),
	}
	assessment.Reasoning = s.reasoning(entityName, assessment, drivers)

	return assessment, nil
}

func (s *RuleScorer) reasoning(entityName string, a *Assessment, drivers []string) string {
	var b strings.Builder
	fmt.Fprintf(&b,
		"Risk for %s derived from the knowledge graph: financial %.2f (%s), operational %.2f (%s), market %.2f (%s), overall %.2f (%s).",
		entityName,
		a.Financial, Categorize(a.Financial),
		a.Operational, Categorize(a.Operational),
		a.Market, Categorize(a.Market),
		a.Overall, Categorize(a.Overall))
	if len(drivers) > 0 {
		fmt.Fprintf(&b, " Contributing factors: %s.", strings.Join(drivers, "; "))
	} else {
		fmt.Fprintf(&b, " No explicit risk factors recorded for %s; baseline industry scores applied.", entityName)
	}
	return b.String()
}
