package strategy

import (
	"math"
	"strings"
)

// BubblePoint positions one strategy on the impact/effort matrix.
type BubblePoint struct {
	Title    string  `json:"title"`
	Impact   float64 `json:"impact"`
	Effort   float64 `json:"effort"`
	Priority string  `json:"priority"`
	Size     int     `json:"size"`
}

// BubbleChart is the strategy prioritization projection.
type BubbleChart struct {
	Type        string        `json:"type"`
	Description string        `json:"description"`
	Data        []BubblePoint `json:"data"`
}

// GanttBar schedules one strategy on the implementation timeline.
type GanttBar struct {
	Title     string `json:"title"`
	StartDays int    `json:"start_days"`
	EndDays   int    `json:"end_days"`
	Priority  string `json:"priority"`
	Group     int    `json:"group"`
}

// GanttChart is the implementation timeline projection.
type GanttChart struct {
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Data        []GanttBar `json:"data"`
}

// RadarDataset holds one strategy's risk-reduction vector over the
// chart categories.
type RadarDataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

// RadarChart is the risk mitigation projection.
type RadarChart struct {
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Categories  []string       `json:"categories"`
	Datasets    []RadarDataset `json:"datasets"`
}

// BarDataset holds one series of the financial impact chart.
type BarDataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

// BarChart is the financial impact projection.
type BarChart struct {
	Type        string       `json:"type"`
	Description string       `json:"description"`
	Labels      []string     `json:"labels"`
	Datasets    []BarDataset `json:"datasets"`
}

// Visualizations carries the four chart projections. All inner arrays
// are index-aligned with the strategy list they were built from.
type Visualizations struct {
	StrategyPrioritization BubbleChart `json:"strategy_prioritization"`
	ImplementationTimeline GanttChart  `json:"implementation_timeline"`
	RiskMitigationImpact   RadarChart  `json:"risk_mitigation_impact"`
	FinancialImpact        BarChart    `json:"financial_impact"`
}

var timelineDurations = map[string]int{
	TimelineShort:  90,
	TimelineMedium: 180,
	TimelineLong:   365,
}

var radarCategories = []string{"Financial", "Operational", "Market", "Reputational", "Legal"}

// BuildVisualizations derives the four chart projections from the
// strategy list. The derivation is deterministic, so the same strategies
// always yield the same charts.
func BuildVisualizations(strategies []Strategy) Visualizations {
	viz := Visualizations{
		StrategyPrioritization: BubbleChart{
			Type:        "bubble_chart",
			Description: "Strategy prioritization by impact, effort, and priority",
			Data:        []BubblePoint{},
		},
		ImplementationTimeline: GanttChart{
			Type:        "gantt_chart",
			Description: "Implementation timeline for recommended strategies",
			Data:        []GanttBar{},
		},
		RiskMitigationImpact: RadarChart{
			Type:        "radar_chart",
			Description: "Expected risk reduction by category",
			Categories:  radarCategories,
			Datasets:    []RadarDataset{},
		},
		FinancialImpact: BarChart{
			Type:        "bar_chart",
			Description: "Projected financial impact of strategies",
			Labels:      []string{},
			Datasets: []BarDataset{
				{Label: "Revenue Impact (%)", Data: []float64{}},
				{Label: "Cost Savings (%)", Data: []float64{}},
			},
		},
	}

	position := 0
	for i, s := range strategies {
		viz.StrategyPrioritization.Data = append(viz.StrategyPrioritization.Data,
			bubblePoint(i, s))

		duration := timelineDurations[s.Timeline]
		if duration == 0 {
			duration = timelineDurations[TimelineMedium]
		}
		viz.ImplementationTimeline.Data = append(viz.ImplementationTimeline.Data, GanttBar{
			Title:     s.Title,
			StartDays: position,
			EndDays:   position + duration,
			Priority:  s.Priority,
			Group:     i / 2,
		})
		position += max(30, duration/2)

		viz.RiskMitigationImpact.Datasets = append(viz.RiskMitigationImpact.Datasets, RadarDataset{
			Label: s.Title,
			Data:  riskReductionVector(i, s),
		})

		revenue, savings := financialImpact(i, s)
		viz.FinancialImpact.Labels = append(viz.FinancialImpact.Labels, s.Title)
		viz.FinancialImpact.Datasets[0].Data = append(viz.FinancialImpact.Datasets[0].Data, revenue)
		viz.FinancialImpact.Datasets[1].Data = append(viz.FinancialImpact.Datasets[1].Data, savings)
	}

	return viz
}

func bubblePoint(i int, s Strategy) BubblePoint {
	impact := 0.5 + 0.4*float64(i%3)/2.0
	effort := 0.3 + 0.6*float64((i+1)%3)/2.0

	switch s.Priority {
	case PriorityHigh:
		impact += 0.1
	case PriorityLow:
		impact -= 0.1
	}

	size := 30
	switch s.Priority {
	case PriorityHigh:
		size = 50
	case PriorityLow:
		size = 20
	}

	return BubblePoint{
		Title:    s.Title,
		Impact:   math.Min(0.95, math.Max(0.05, impact)),
		Effort:   math.Min(0.95, math.Max(0.05, effort)),
		Priority: s.Priority,
		Size:     size,
	}
}

var radarKeywords = []struct {
	index int
	boost float64
	terms []string
}{
	{0, 0.3, []string{"financ", "cash", "revenue", "cost", "profit"}},
	{1, 0.3, []string{"operat", "process", "efficien", "product"}},
	{2, 0.3, []string{"market", "customer", "compet", "sales"}},
	{3, 0.2, []string{"brand", "reputat", "public", "customer"}},
	{4, 0.2, []string{"regulat", "compliance", "legal", "risk"}},
}

func riskReductionVector(i int, s Strategy) []float64 {
	text := strings.ToLower(s.Title + " " + s.Rationale)

	values := []float64{0.1, 0.1, 0.1, 0.1, 0.1}
	for _, kw := range radarKeywords {
		for _, term := range kw.terms {
			if strings.Contains(text, term) {
				values[kw.index] += kw.boost
				break
			}
		}
	}

	variation := 0.1*float64(i%3) - 0.1
	for j, v := range values {
		values[j] = math.Round(math.Min(0.8, math.Max(0.1, v+variation))*100) / 100
	}
	return values
}

func financialImpact(i int, s Strategy) (revenue, savings float64) {
	revenue = 0.02
	savings = 0.01

	if s.Priority == PriorityHigh {
		revenue += 0.03
		savings += 0.02
	}
	if s.Timeline == TimelineLong {
		revenue += 0.02
		savings += 0.02
	}

	revenue += 0.01 * float64(i%3)
	savings += 0.01 * float64((i+1)%3)

	return math.Round(revenue*1000) / 10, math.Round(savings*1000) / 10
}
