package risk

import (
	"context"
	"fmt"
	"strings"

	"github.com/strategraph/strategraph/pkg/ai"
	"github.com/strategraph/strategraph/pkg/analysis/insight"
	"github.com/strategraph/strategraph/pkg/logger"
	"github.com/strategraph/strategraph/pkg/store"
)

type llmRiskResponse struct {
	Financial   float64 `json:"financial" jsonschema_description:"Financial risk score between 0.0 and 1.0"`
	Operational float64 `json:"operational" jsonschema_description:"Operational risk score between 0.0 and 1.0"`
	Market      float64 `json:"market" jsonschema_description:"Market risk score between 0.0 and 1.0"`
	Overall     float64 `json:"overall" jsonschema_description:"Weighted overall risk score between 0.0 and 1.0"`
	Reasoning   string  `json:"reasoning" jsonschema_description:"Explanation referencing the entities and relationships that drove the scores"`
}

// LLMScorer asks the reasoning model for risk scores from a textual
// graph summary. Any failure, including an empty rationale, falls back
// to the deterministic rule-based scorer.
type LLMScorer struct {
	client   ai.GraphAIClient
	store    store.GraphStore
	fallback *RuleScorer
}

// NewLLMScorerParams defines the inputs for NewLLMScorer.
type NewLLMScorerParams struct {
	Client ai.GraphAIClient
	Store  store.GraphStore
}

// NewLLMScorer creates an LLMScorer with its rule-based fallback.
func NewLLMScorer(params NewLLMScorerParams) (*LLMScorer, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("llm scorer requires an AI client")
	}
	fallback, err := NewRuleScorer(NewRuleScorerParams{Store: params.Store})
	if err != nil {
		return nil, err
	}
	return &LLMScorer{
		client:   params.Client,
		store:    params.Store,
		fallback: fallback,
	}, nil
}

// Score runs the LLM assessment. The overall score is recomputed from
// the category scores so the fixed weights hold regardless of what the
// model returns.
func (s *LLMScorer) Score(ctx context.Context, entityName string, bundle *insight.Bundle) (*Assessment, error) {
	summary, err := s.graphSummary(ctx, entityName, bundle)
	if err != nil {
		return nil, err
	}

	var res llmRiskResponse
	err = s.client.GenerateCompletionWithFormat(
		ctx,
		"assess_business_risk",
		"Score financial, operational, market and overall business risk from a knowledge graph summary.",
		fmt.Sprintf(ai.RiskPrompt, summary),
		&res,
	)
	if err != nil || strings.TrimSpace(res.Reasoning) == "" {
		if err != nil {
			logger.Warn("[Risk] model assessment failed, using rule-based scores", "error", err)
		} else {
			logger.Warn("[Risk] model returned empty reasoning, using rule-based scores")
		}
		return s.fallback.Score(ctx, entityName, bundle)
	}

	financial := clamp01(res.Financial)
	operational := clamp01(res.Operational)
	market := clamp01(res.Market)

	return &Assessment{
		Financial:   financial,
		Operational: operational,
		Market:      market,
		Overall:     overallScore(financial, operational, market),
		Reasoning:   strings.TrimSpace(res.Reasoning),
	}, nil
}

func (s *LLMScorer) graphSummary(ctx context.Context, entityName string, bundle *insight.Bundle) (string, error) {
	factors, err := s.store.RiskFactors(ctx, entityName)
	if err != nil {
		return "", fmt.Errorf("failed to read risk factors: %w", err)
	}
	summary, err := s.store.EntitySummary(ctx, entityName)
	if err != nil {
		return "", fmt.Errorf("failed to read entity summary: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Focus entity: %s\n", entityName)
	if bundle.Stats.Aggregate != nil {
		fmt.Fprintf(&b, "Direct connections: %d, extended network size: %d\n",
			bundle.Stats.Aggregate.ConnectionCount, bundle.Stats.Aggregate.ExtendedNetworkSize)
	}

	if len(factors) > 0 {
		b.WriteString("\nRecorded risk factors:\n")
		for _, f := range factors {
			fmt.Fprintf(&b, "- %s: %s risk, level %.2f", f.Name, f.RiskType, f.Level)
			if f.Description != "" {
				fmt.Fprintf(&b, " (%s)", f.Description)
			}
			b.WriteString("\n")
		}
	}

	if len(summary.Outgoing) > 0 {
		b.WriteString("\nRelationships:\n")
		for _, g := range summary.Outgoing {
			fmt.Fprintf(&b, "- %s -[%s]-> %s\n", entityName, g.RelType, g.OtherName)
		}
	}
	if len(summary.Metrics) > 0 {
		b.WriteString("\nFinancial metrics:\n")
		for _, m := range summary.Metrics {
			fmt.Fprintf(&b, "- %s: %g %s\n", m.Name, m.Value, m.Unit)
		}
	}

	if highlights := bundle.Highlights(); len(highlights) > 0 {
		b.WriteString("\nAnalysis findings:\n")
		for _, h := range highlights {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}

	return b.String(), nil
}
