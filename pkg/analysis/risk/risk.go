package risk

import (
	"context"

	"github.com/strategraph/strategraph/pkg/analysis/insight"
)

// Category labels for risk scores.
const (
	LevelLow    = "Low"
	LevelMedium = "Medium"
	LevelHigh   = "High"
)

// Risk categories.
const (
	CategoryFinancial   = "financial"
	CategoryOperational = "operational"
	CategoryMarket      = "market"
)

// Overall score weights per category.
const (
	weightFinancial   = 0.4
	weightOperational = 0.3
	weightMarket      = 0.3
)

// Assessment carries the numeric risk scores for one entity. Scores are
// in [0,1]; Reasoning is always non-empty and names the entities that
// drove the scores.
type Assessment struct {
	Financial   float64 `json:"financial"`
	Operational float64 `json:"operational"`
	Market      float64 `json:"market"`
	Overall     float64 `json:"overall"`
	Reasoning   string  `json:"reasoning"`
}

// Categorize maps a numeric score to its label. Cut points are fixed at
// 0.33 and 0.66 for every category, so the mapping is monotonic: a
// higher score never yields a lower label.
func Categorize(score float64) string {
	switch {
	case score < 0.33:
		return LevelLow
	case score < 0.66:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// Labels returns the categorical view of the assessment keyed by
// category name plus "overall".
func (a *Assessment) Labels() map[string]string {
	return map[string]string{
		CategoryFinancial:   Categorize(a.Financial),
		CategoryOperational: Categorize(a.Operational),
		CategoryMarket:      Categorize(a.Market),
		"overall":           Categorize(a.Overall),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func overallScore(financial, operational, market float64) float64 {
	return clamp01(financial*weightFinancial + operational*weightOperational + market*weightMarket)
}

// Scorer produces a risk assessment for a focus entity from its insight
// bundle.
type Scorer interface {
	Score(ctx context.Context, entityName string, bundle *insight.Bundle) (*Assessment, error)
}
