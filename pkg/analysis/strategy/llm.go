package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/strategraph/strategraph/pkg/ai"
	"github.com/strategraph/strategraph/pkg/analysis/risk"
	"github.com/strategraph/strategraph/pkg/logger"
)

type llmStrategy struct {
	Title               string   `json:"title" jsonschema_description:"Specific action title, 10 words max"`
	Rationale           string   `json:"rationale" jsonschema_description:"2-3 sentences naming the risk or insight motivating the strategy"`
	Benefits            []string `json:"benefits" jsonschema_description:"2-3 expected benefits"`
	ImplementationSteps []string `json:"implementation_steps" jsonschema_description:"3-5 concrete implementation steps in order"`
	KPIs                []string `json:"kpis" jsonschema_description:"2-3 measurable KPIs"`
	Timeline            string   `json:"timeline" jsonschema_description:"One of short, medium, long"`
	Priority            string   `json:"priority" jsonschema_description:"One of high, medium, low"`
}

type llmStrategyResponse struct {
	Strategies []llmStrategy `json:"strategies" jsonschema_description:"Exactly 3 recommendations ordered by priority"`
}

// LLMGenerator asks the reasoning model for strategies. A schema
// violation triggers one stricter re-prompt; any remaining failure
// falls back to the deterministic template generator.
type LLMGenerator struct {
	client   ai.GraphAIClient
	fallback *TemplateGenerator
}

// NewLLMGeneratorParams defines the inputs for NewLLMGenerator.
type NewLLMGeneratorParams struct {
	Client ai.GraphAIClient
}

// NewLLMGenerator creates an LLMGenerator with its template fallback.
func NewLLMGenerator(params NewLLMGeneratorParams) (*LLMGenerator, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("llm generator requires an AI client")
	}
	return &LLMGenerator{
		client:   params.Client,
		fallback: NewTemplateGenerator(),
	}, nil
}

// Generate runs the LLM path with one re-prompt, then the fallback.
func (g *LLMGenerator) Generate(ctx context.Context, input Input, opts Options) (*Result, error) {
	if input.Assessment == nil {
		return nil, fmt.Errorf("llm generator requires a risk assessment")
	}
	opts = opts.withDefaults()

	prompt := g.buildPrompt(input, opts)

	strategies, err := g.request(ctx, prompt)
	if err != nil {
		logger.Warn("[Strategy] model response rejected, re-prompting", "error", err)
		strategies, err = g.request(ctx, prompt+ai.StrategyRepromptSuffix)
	}
	if err != nil {
		logger.Warn("[Strategy] model generation failed, using templates", "error", err)
		return g.fallback.Generate(ctx, input, opts)
	}

	return &Result{
		Strategies:     strategies,
		Visualizations: BuildVisualizations(strategies),
	}, nil
}

func (g *LLMGenerator) request(ctx context.Context, prompt string) ([]Strategy, error) {
	var res llmStrategyResponse
	err := g.client.GenerateCompletionWithFormat(
		ctx,
		"generate_business_strategies",
		"Generate prioritized, actionable business strategy recommendations.",
		prompt,
		&res,
	)
	if err != nil {
		return nil, err
	}
	return validateStrategies(res.Strategies)
}

func validateStrategies(raw []llmStrategy) ([]Strategy, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("model returned no strategies")
	}
	if len(raw) > 3 {
		raw = raw[:3]
	}

	titles := map[string]bool{}
	strategies := make([]Strategy, 0, len(raw))
	for i, s := range raw {
		title := strings.TrimSpace(s.Title)
		if title == "" {
			return nil, fmt.Errorf("strategy %d has an empty title", i)
		}
		if titles[strings.ToLower(title)] {
			return nil, fmt.Errorf("duplicate strategy title %q", title)
		}
		titles[strings.ToLower(title)] = true

		if strings.TrimSpace(s.Rationale) == "" {
			return nil, fmt.Errorf("strategy %q has an empty rationale", title)
		}
		switch s.Timeline {
		case TimelineShort, TimelineMedium, TimelineLong:
		default:
			return nil, fmt.Errorf("strategy %q has invalid timeline %q", title, s.Timeline)
		}
		switch s.Priority {
		case PriorityHigh, PriorityMedium, PriorityLow:
		default:
			return nil, fmt.Errorf("strategy %q has invalid priority %q", title, s.Priority)
		}

		strategies = append(strategies, Strategy{
			Title:               title,
			Rationale:           strings.TrimSpace(s.Rationale),
			Benefits:            s.Benefits,
			ImplementationSteps: s.ImplementationSteps,
			KPIs:                s.KPIs,
			Timeline:            s.Timeline,
			Priority:            s.Priority,
		})
	}
	return strategies, nil
}

func (g *LLMGenerator) buildPrompt(input Input, opts Options) string {
	var entityInfo strings.Builder
	fmt.Fprintf(&entityInfo, "Entity: %s\n", input.EntityName)
	if input.Insights != nil && input.Insights.Stats.Entity != nil {
		for k, v := range input.Insights.Stats.Entity.Attributes {
			fmt.Fprintf(&entityInfo, "- %s: %v\n", k, v)
		}
	}
	if input.Insights != nil && input.Insights.Stats.Aggregate != nil {
		fmt.Fprintf(&entityInfo, "- direct connections: %d\n", input.Insights.Stats.Aggregate.ConnectionCount)
	}

	riskInfo := fmt.Sprintf(
		"financial %.2f (%s), operational %.2f (%s), market %.2f (%s), overall %.2f (%s)\n%s",
		input.Assessment.Financial, risk.Categorize(input.Assessment.Financial),
		input.Assessment.Operational, risk.Categorize(input.Assessment.Operational),
		input.Assessment.Market, risk.Categorize(input.Assessment.Market),
		input.Assessment.Overall, risk.Categorize(input.Assessment.Overall),
		input.Assessment.Reasoning)

	insightInfo := "No significant findings."
	if input.Insights != nil {
		if highlights := input.Insights.Highlights(); len(highlights) > 0 {
			insightInfo = "- " + strings.Join(highlights, "\n- ")
		}
	}

	opportunityInfo := "None identified."
	if input.Opportunities != nil {
		if data, err := json.MarshalIndent(input.Opportunities, "", "  "); err == nil {
			opportunityInfo = string(data)
		}
	}

	return fmt.Sprintf(
		ai.StrategyPrompt,
		input.EntityName,
		opts.RiskTolerance,
		strings.Join(opts.Priorities, ", "),
		entityInfo.String(),
		riskInfo,
		insightInfo,
		opportunityInfo,
	)
}
