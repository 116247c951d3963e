package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/strategraph/strategraph/pkg/ai"
	"github.com/strategraph/strategraph/pkg/analysis/insight"
	"github.com/strategraph/strategraph/pkg/analysis/risk"
	"github.com/strategraph/strategraph/pkg/analysis/strategy"
	"github.com/strategraph/strategraph/pkg/logger"
	"github.com/strategraph/strategraph/pkg/store"
)

// ErrEmptyReport is returned when a report without an entity or
// strategies is validated or written.
var ErrEmptyReport = errors.New("report has no entity or strategies")

// MarketContext summarizes the competitive environment around the
// focus entity, derived from the graph.
type MarketContext struct {
	Markets              []string             `json:"markets"`
	CompetitiveLandscape CompetitiveLandscape `json:"competitive_landscape"`
	KeyTrends            []string             `json:"key_trends"`
}

// CompetitiveLandscape lists direct competitors of the focus entity.
type CompetitiveLandscape struct {
	MajorPlayers []string `json:"major_players"`
}

// SupportingData nests the exported entity subgraph and market context.
// Insights carries the full analysis bundle in the long-form report and
// is stripped from the condensed projection.
type SupportingData struct {
	EntityGraph   *store.GraphSegment `json:"entity_graph"`
	MarketContext MarketContext       `json:"market_context"`
	Insights      *insight.Bundle     `json:"insights,omitempty"`
}

// RiskSummary is the categorical risk view written into the report.
// Each category carries its Low/Medium/High label, not the numeric
// score the label was derived from.
type RiskSummary struct {
	Financial   string `json:"financial"`
	Operational string `json:"operational"`
	Market      string `json:"market"`
	Overall     string `json:"overall"`
	Reasoning   string `json:"reasoning"`
}

func summarizeRisk(a *risk.Assessment) RiskSummary {
	labels := a.Labels()
	return RiskSummary{
		Financial:   labels[risk.CategoryFinancial],
		Operational: labels[risk.CategoryOperational],
		Market:      labels[risk.CategoryMarket],
		Overall:     labels["overall"],
		Reasoning:   a.Reasoning,
	}
}

// Report is the terminal artifact of an analysis run. Field names and
// nesting form the external contract consumed by downstream tooling.
type Report struct {
	Entity           string                  `json:"entity"`
	GenerationDate   string                  `json:"generation_date"`
	ExecutiveSummary string                  `json:"executive_summary"`
	Strategies       []strategy.Strategy     `json:"strategies"`
	RiskAssessment   RiskSummary             `json:"risk_assessment"`
	Visualizations   strategy.Visualizations `json:"visualizations"`
	Opportunities    store.Opportunities     `json:"opportunities"`
	SupportingData   SupportingData          `json:"supporting_data"`
}

// Validate checks the report carries the minimum content consumers
// depend on.
func (r *Report) Validate() error {
	if r == nil || strings.TrimSpace(r.Entity) == "" || len(r.Strategies) == 0 {
		return ErrEmptyReport
	}
	return nil
}

// Condensed returns the compact projection of the report: the fixed
// external schema without the nested insight bundle.
func (r *Report) Condensed() *Report {
	condensed := *r
	condensed.SupportingData.Insights = nil
	return &condensed
}

// AssembleParams collects the analysis outputs merged into a report.
type AssembleParams struct {
	Entity        string
	Assessment    *risk.Assessment
	Strategies    *strategy.Result
	Insights      *insight.Bundle
	Opportunities *store.Opportunities
	EntityGraph   *store.GraphSegment
	MarketContext MarketContext
	// SummaryClient is optional; when set the executive summary is
	// generated by the model, with the template as fallback.
	SummaryClient ai.GraphAIClient
	// Now overrides the generation timestamp, for reproducible output.
	Now time.Time
}

// Assemble merges the analysis outputs into a Report. It is a pure
// data transformation except for the optional summary generation.
func Assemble(ctx context.Context, params AssembleParams) (*Report, error) {
	if strings.TrimSpace(params.Entity) == "" {
		return nil, ErrEmptyReport
	}
	if params.Assessment == nil || params.Strategies == nil || len(params.Strategies.Strategies) == 0 {
		return nil, ErrEmptyReport
	}

	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}

	opportunities := store.Opportunities{
		PartnershipOpportunities:     []store.PartnershipOpportunity{},
		MarketExpansionOpportunities: []store.ExpansionOpportunity{},
	}
	if params.Opportunities != nil {
		opportunities = *params.Opportunities
	}

	r := &Report{
		Entity:           params.Entity,
		GenerationDate:   now.Format(time.RFC3339),
		Strategies:       params.Strategies.Strategies,
		RiskAssessment:   summarizeRisk(params.Assessment),
		Visualizations:   params.Strategies.Visualizations,
		Opportunities:    opportunities,
		SupportingData: SupportingData{
			EntityGraph:   params.EntityGraph,
			MarketContext: params.MarketContext,
			Insights:      params.Insights,
		},
	}
	r.ExecutiveSummary = executiveSummary(ctx, params.SummaryClient, r)

	return r, nil
}

// executiveSummary prefers the model-written summary and falls back to
// the template when no client is configured or the call fails.
func executiveSummary(ctx context.Context, client ai.GraphAIClient, r *Report) string {
	templated := templateSummary(r)
	if client == nil {
		return templated
	}

	digest := summaryDigest(r)
	text, err := client.GenerateCompletion(ctx, fmt.Sprintf(ai.SummaryPrompt, r.Entity, digest))
	if err != nil || strings.TrimSpace(text) == "" {
		logger.Warn("[Report] summary generation failed, using template", "error", err)
		return templated
	}
	return strings.TrimSpace(text)
}

func templateSummary(r *Report) string {
	highPriority := 0
	for _, s := range r.Strategies {
		if s.Priority == strategy.PriorityHigh {
			highPriority++
		}
	}

	parts := []string{
		"Financial: " + r.RiskAssessment.Financial,
		"Market: " + r.RiskAssessment.Market,
		"Operational: " + r.RiskAssessment.Operational,
		"Overall: " + r.RiskAssessment.Overall,
	}

	return fmt.Sprintf(
		"This report outlines %d strategic recommendations for %s designed to address identified risks and capitalize on opportunities. "+
			"The risk assessment shows %s. "+
			"%d high-priority strategies require immediate attention. "+
			"The analysis draws on a knowledge graph integrating information from business documents and market intelligence sources.",
		len(r.Strategies), r.Entity, strings.Join(parts, ", "), highPriority)
}

func summaryDigest(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Risk assessment: %s\n\nRecommendations:\n", r.RiskAssessment.Reasoning)
	for i, s := range r.Strategies {
		fmt.Fprintf(&b, "%d. %s (%s priority, %s term): %s\n", i+1, s.Title, s.Priority, s.Timeline, s.Rationale)
	}
	return b.String()
}

// BuildMarketContext derives the market context from the focus
// entity's direct neighborhood.
func BuildMarketContext(ctx context.Context, st store.GraphStore, entity string) (MarketContext, error) {
	mc := MarketContext{
		Markets:              []string{},
		CompetitiveLandscape: CompetitiveLandscape{MajorPlayers: []string{}},
		KeyTrends:            []string{},
	}

	neighbors, err := st.Neighbors(ctx, entity, 1)
	if err != nil {
		return mc, fmt.Errorf("failed to read neighborhood: %w", err)
	}

	hasLabel := func(n store.Neighbor, label string) bool {
		for _, l := range n.Entity.Labels {
			if l == label {
				return true
			}
		}
		return false
	}

	for _, n := range neighbors {
		switch {
		case n.RelType == "COMPETES_WITH" && hasLabel(n, "Company"):
			mc.CompetitiveLandscape.MajorPlayers = append(mc.CompetitiveLandscape.MajorPlayers, n.Entity.Name)
		case hasLabel(n, "Market"):
			mc.Markets = append(mc.Markets, n.Entity.Name)
		case hasLabel(n, "Trend"):
			mc.KeyTrends = append(mc.KeyTrends, n.Entity.Name)
		}
	}

	sort.Strings(mc.Markets)
	sort.Strings(mc.CompetitiveLandscape.MajorPlayers)
	sort.Strings(mc.KeyTrends)
	return mc, nil
}
