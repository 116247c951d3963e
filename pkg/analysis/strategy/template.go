package strategy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/strategraph/strategraph/pkg/analysis/risk"
)

// TemplateGenerator produces deterministic strategies from the risk
// assessment: one per Medium/High risk category, padded with a general
// data-driven strategy to reach three.
type TemplateGenerator struct{}

// NewTemplateGenerator creates a TemplateGenerator.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

type strategyTemplate struct {
	category  string
	title     string
	rationale string
	benefits  []string
	steps     []string
	kpis      []string
	timeline  string
	// defensive strategies are favored under low risk tolerance,
	// growth strategies under high.
	growth bool
}

var templates = []strategyTemplate{
	{
		category:  risk.CategoryFinancial,
		title:     "Optimize Cash Flow Management",
		rationale: "Improve financial stability by focusing on cash flow management to address the identified financial risk",
		benefits: []string{
			"Improved liquidity position",
			"Reduced financial vulnerability",
			"Enhanced investor confidence",
		},
		steps: []string{
			"Conduct comprehensive cash flow analysis",
			"Implement accounts receivable acceleration measures",
			"Review and optimize payment terms with suppliers",
			"Establish cash reserves policy",
		},
		kpis: []string{
			"Days Sales Outstanding (DSO)",
			"Free Cash Flow",
			"Current Ratio",
		},
		timeline: TimelineShort,
	},
	{
		category:  risk.CategoryOperational,
		title:     "Strengthen Operational Resilience",
		rationale: "Address operational vulnerabilities by implementing robust process improvements and contingency planning for the identified operational risk",
		benefits: []string{
			"Reduced operational disruptions",
			"Improved process efficiency",
			"Enhanced service delivery",
		},
		steps: []string{
			"Map critical business processes",
			"Identify single points of failure",
			"Implement redundancy for critical systems",
			"Develop and test business continuity plans",
		},
		kpis: []string{
			"Process Cycle Efficiency",
			"Downtime Frequency and Duration",
			"Error Rates",
		},
		timeline: TimelineMedium,
	},
	{
		category:  risk.CategoryMarket,
		title:     "Diversify Market Exposure",
		rationale: "Reduce market risk by diversifying product offerings and target markets to minimize dependency",
		benefits: []string{
			"Reduced vulnerability to market changes",
			"Access to new revenue streams",
			"Improved competitive positioning",
		},
		steps: []string{
			"Conduct market segmentation analysis",
			"Identify adjacent market opportunities",
			"Develop pilot offerings for new markets",
			"Create phased market entry plan",
		},
		kpis: []string{
			"Revenue Diversification Ratio",
			"Market Share in New Segments",
			"Customer Acquisition Cost",
		},
		timeline: TimelineLong,
		growth:   true,
	},
}

var generalTemplate = strategyTemplate{
	category:  "",
	title:     "Enhance Data-Driven Decision Making",
	rationale: "Improve organizational decision quality through better data collection, analysis, and integration",
	benefits: []string{
		"More informed strategic decisions",
		"Faster response to changing conditions",
		"Improved resource allocation",
	},
	steps: []string{
		"Assess current data availability and quality",
		"Implement integrated business intelligence system",
		"Train management on data interpretation",
		"Establish data-driven review processes",
	},
	kpis: []string{
		"Decision Cycle Time",
		"Forecast Accuracy",
		"Data Utilization Rate",
	},
	timeline: TimelineMedium,
	growth:   true,
}

// priorityCategory maps user-facing focus areas to risk categories.
func priorityCategory(area string) string {
	switch strings.ToLower(strings.TrimSpace(area)) {
	case "finance", "financial":
		return risk.CategoryFinancial
	case "operations", "operational":
		return risk.CategoryOperational
	case "market", "markets":
		return risk.CategoryMarket
	default:
		return ""
	}
}

// Generate builds the deterministic strategy list. Priorities move
// matching strategies to the front in the stated order; risk tolerance
// shifts priority labels between growth and defensive strategies.
func (g *TemplateGenerator) Generate(ctx context.Context, input Input, opts Options) (*Result, error) {
	if input.Assessment == nil {
		return nil, fmt.Errorf("template generator requires a risk assessment")
	}
	opts = opts.withDefaults()

	labels := input.Assessment.Labels()

	var strategies []Strategy
	var meta []strategyTemplate
	for _, tpl := range templates {
		label := labels[tpl.category]
		if label != risk.LevelMedium && label != risk.LevelHigh {
			continue
		}
		strategies = append(strategies, g.instantiate(tpl, input, opts, label))
		meta = append(meta, tpl)
	}
	if len(strategies) < 3 {
		strategies = append(strategies, g.instantiate(generalTemplate, input, opts, ""))
		meta = append(meta, generalTemplate)
	}

	// Priorities pull matching strategies to the front; remaining order
	// is by priority label, then original template order.
	rank := func(i int) int {
		for p, area := range opts.Priorities {
			if cat := priorityCategory(area); cat != "" && cat == meta[i].category {
				return p
			}
		}
		return len(opts.Priorities) + priorityRank(strategies[i].Priority)
	}
	order := make([]int, len(strategies))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rank(order[a]) < rank(order[b])
	})

	sorted := make([]Strategy, len(strategies))
	for i, idx := range order {
		sorted[i] = strategies[idx]
	}

	return &Result{
		Strategies:     sorted,
		Visualizations: BuildVisualizations(sorted),
	}, nil
}

func priorityRank(priority string) int {
	switch priority {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

func (g *TemplateGenerator) instantiate(tpl strategyTemplate, input Input, opts Options, label string) Strategy {
	priority := PriorityMedium
	if label == risk.LevelHigh {
		priority = PriorityHigh
	}

	// Tolerance shifts emphasis: high tolerance favors growth moves,
	// low tolerance favors defensive ones.
	switch opts.RiskTolerance {
	case ToleranceHigh:
		if tpl.growth && priority == PriorityMedium {
			priority = PriorityHigh
		}
	case ToleranceLow:
		if !tpl.growth && priority == PriorityMedium {
			priority = PriorityHigh
		}
	}

	rationale := tpl.rationale + "."
	if tpl.category != "" {
		rationale = fmt.Sprintf("%s The %s risk identified for %s is rated %s.",
			rationale, tpl.category, input.EntityName, label)
	}
	for _, area := range opts.Priorities {
		if priorityCategory(area) == tpl.category && tpl.category != "" {
			rationale = fmt.Sprintf("%s Prioritized in line with the stated %s focus.",
				rationale, strings.ToLower(strings.TrimSpace(area)))
			break
		}
	}

	return Strategy{
		Title:               tpl.title,
		Rationale:           rationale,
		Benefits:            append([]string(nil), tpl.benefits...),
		ImplementationSteps: append([]string(nil), tpl.steps...),
		KPIs:                append([]string(nil), tpl.kpis...),
		Timeline:            tpl.timeline,
		Priority:            priority,
	}
}
