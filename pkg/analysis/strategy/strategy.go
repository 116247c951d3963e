package strategy

import (
	"context"

	"github.com/strategraph/strategraph/pkg/analysis/insight"
	"github.com/strategraph/strategraph/pkg/analysis/risk"
	"github.com/strategraph/strategraph/pkg/store"
)

// Timeline buckets with their canonical day ranges: short is 0-90 days,
// medium 90-270, long 270 and beyond.
const (
	TimelineShort  = "short"
	TimelineMedium = "medium"
	TimelineLong   = "long"
)

// Priority labels.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Risk tolerance levels accepted in Options.
const (
	ToleranceLow    = "low"
	ToleranceMedium = "medium"
	ToleranceHigh   = "high"
)

// Options configures a generation run. RiskTolerance defaults to
// medium; Priorities is an ordered list of focus areas such as
// "market" or "finance" that bias strategy ordering and rationale
// wording.
type Options struct {
	RiskTolerance string
	Priorities    []string
}

func (o Options) withDefaults() Options {
	switch o.RiskTolerance {
	case ToleranceLow, ToleranceMedium, ToleranceHigh:
	default:
		o.RiskTolerance = ToleranceMedium
	}
	return o
}

// Strategy is one actionable recommendation.
type Strategy struct {
	Title               string   `json:"title"`
	Rationale           string   `json:"rationale"`
	Benefits            []string `json:"benefits"`
	ImplementationSteps []string `json:"implementation_steps"`
	KPIs                []string `json:"kpis"`
	Timeline            string   `json:"timeline"`
	Priority            string   `json:"priority"`
}

// Input bundles everything a generator draws on.
type Input struct {
	EntityName    string
	Assessment    *risk.Assessment
	Insights      *insight.Bundle
	Opportunities *store.Opportunities
}

// Result pairs the ordered strategy list with its four visualization
// projections, index-aligned with the list.
type Result struct {
	Strategies     []Strategy     `json:"strategies"`
	Visualizations Visualizations `json:"visualizations"`
}

// Generator produces strategy recommendations for a focus entity.
type Generator interface {
	Generate(ctx context.Context, input Input, opts Options) (*Result, error)
}
