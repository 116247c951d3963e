package strategy

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/strategraph/strategraph/pkg/ai"
	"github.com/strategraph/strategraph/pkg/loader"
)

// scriptedClient replays one canned response per call so tests can
// drive the re-prompt path.
type scriptedClient struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (c *scriptedClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", c.err
}

func (c *scriptedClient) GenerateCompletionWithFormat(
	ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption,
) error {
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return c.err
	}
	idx := min(c.calls, len(c.responses)-1)
	c.calls++
	return json.Unmarshal([]byte(c.responses[idx]), out)
}

func (c *scriptedClient) GenerateImageDescription(ctx context.Context, prompt string, image loader.GraphBase64) (string, error) {
	return "", c.err
}

func (c *scriptedClient) ResetMetrics() {}

func (c *scriptedClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

const validResponse = `{"strategies":[
	{"title":"Hedge Currency Exposure","rationale":"Revenue is concentrated in volatile markets.","benefits":["Stable earnings"],"implementation_steps":["Engage treasury desk"],"kpis":["Hedged revenue share"],"timeline":"short","priority":"high"},
	{"title":"Automate Order Fulfillment","rationale":"Manual processing drives the operational risk rating.","benefits":["Lower error rate"],"implementation_steps":["Pilot warehouse automation"],"kpis":["Orders per FTE"],"timeline":"medium","priority":"medium"},
	{"title":"Enter Adjacent Verticals","rationale":"Market concentration leaves growth dependent on one segment.","benefits":["New revenue streams"],"implementation_steps":["Scope pilot launch"],"kpis":["New segment revenue"],"timeline":"long","priority":"low"}
]}`

func llmInput() Input {
	return Input{
		EntityName: "TechCorp",
		Assessment: mediumAssessment(),
	}
}

func TestNewLLMGeneratorRequiresClient(t *testing.T) {
	if _, err := NewLLMGenerator(NewLLMGeneratorParams{}); err == nil {
		t.Fatal("NewLLMGenerator() without client should fail")
	}
}

func TestLLMGeneratorUsesModelStrategies(t *testing.T) {
	client := &scriptedClient{responses: []string{validResponse}}
	g, err := NewLLMGenerator(NewLLMGeneratorParams{Client: client})
	if err != nil {
		t.Fatalf("NewLLMGenerator() error = %v", err)
	}

	result, err := g.Generate(context.Background(), llmInput(), Options{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if client.calls != 1 {
		t.Errorf("model calls = %d, want 1", client.calls)
	}
	if len(result.Strategies) != 3 {
		t.Fatalf("strategies = %d, want 3", len(result.Strategies))
	}
	if result.Strategies[0].Title != "Hedge Currency Exposure" {
		t.Errorf("first title = %q", result.Strategies[0].Title)
	}
	if len(result.Visualizations.FinancialImpact.Labels) != 3 {
		t.Errorf("visualizations not aligned with strategies")
	}
}

func TestLLMGeneratorRepromptsOnDuplicateTitles(t *testing.T) {
	duplicate := `{"strategies":[
		{"title":"Expand","rationale":"r","timeline":"short","priority":"high"},
		{"title":"expand","rationale":"r","timeline":"short","priority":"high"}
	]}`
	client := &scriptedClient{responses: []string{duplicate, validResponse}}
	g, err := NewLLMGenerator(NewLLMGeneratorParams{Client: client})
	if err != nil {
		t.Fatalf("NewLLMGenerator() error = %v", err)
	}

	result, err := g.Generate(context.Background(), llmInput(), Options{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if client.calls != 2 {
		t.Fatalf("model calls = %d, want 2", client.calls)
	}
	if !strings.HasSuffix(client.prompts[1], ai.StrategyRepromptSuffix) {
		t.Error("second prompt missing the strict suffix")
	}
	if result.Strategies[0].Title != "Hedge Currency Exposure" {
		t.Errorf("first title = %q, want the re-prompted response", result.Strategies[0].Title)
	}
}

func TestLLMGeneratorFallsBackToTemplates(t *testing.T) {
	empty := `{"strategies":[]}`
	client := &scriptedClient{responses: []string{empty, empty}}
	g, err := NewLLMGenerator(NewLLMGeneratorParams{Client: client})
	if err != nil {
		t.Fatalf("NewLLMGenerator() error = %v", err)
	}

	result, err := g.Generate(context.Background(), llmInput(), Options{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if client.calls != 2 {
		t.Errorf("model calls = %d, want 2", client.calls)
	}
	// The fallback is the deterministic template set for an all-medium
	// assessment.
	if len(result.Strategies) != 3 {
		t.Fatalf("strategies = %d, want 3", len(result.Strategies))
	}
	if result.Strategies[0].Title != "Optimize Cash Flow Management" {
		t.Errorf("first title = %q, want the template strategy", result.Strategies[0].Title)
	}
}

func TestValidateStrategies(t *testing.T) {
	base := llmStrategy{
		Title:     "Improve Margins",
		Rationale: "Costs are rising faster than revenue.",
		Timeline:  TimelineShort,
		Priority:  PriorityHigh,
	}

	tests := []struct {
		name    string
		mutate  func(llmStrategy) []llmStrategy
		wantErr bool
		wantLen int
	}{
		{
			name:    "valid single",
			mutate:  func(s llmStrategy) []llmStrategy { return []llmStrategy{s} },
			wantLen: 1,
		},
		{
			name: "truncates beyond three",
			mutate: func(s llmStrategy) []llmStrategy {
				out := make([]llmStrategy, 4)
				for i := range out {
					out[i] = s
					out[i].Title = s.Title + " " + strings.Repeat("x", i+1)
				}
				return out
			},
			wantLen: 3,
		},
		{
			name:    "empty title",
			mutate:  func(s llmStrategy) []llmStrategy { s.Title = "  "; return []llmStrategy{s} },
			wantErr: true,
		},
		{
			name:    "empty rationale",
			mutate:  func(s llmStrategy) []llmStrategy { s.Rationale = ""; return []llmStrategy{s} },
			wantErr: true,
		},
		{
			name:    "invalid timeline",
			mutate:  func(s llmStrategy) []llmStrategy { s.Timeline = "quarter"; return []llmStrategy{s} },
			wantErr: true,
		},
		{
			name:    "invalid priority",
			mutate:  func(s llmStrategy) []llmStrategy { s.Priority = "urgent"; return []llmStrategy{s} },
			wantErr: true,
		},
		{
			name:    "empty list",
			mutate:  func(llmStrategy) []llmStrategy { return nil },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateStrategies(tt.mutate(base))
			if tt.wantErr {
				if err == nil {
					t.Fatal("validateStrategies() succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("validateStrategies() error = %v", err)
			}
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}
