package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/strategraph/strategraph/pkg/ai"
	"github.com/strategraph/strategraph/pkg/loader"
	"github.com/strategraph/strategraph/pkg/store/memory"
)

type stubAIClient struct {
	response string
	err      error
}

func (c *stubAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return c.response, c.err
}

func (c *stubAIClient) GenerateCompletionWithFormat(
	ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption,
) error {
	if c.err != nil {
		return c.err
	}
	return json.Unmarshal([]byte(c.response), out)
}

func (c *stubAIClient) GenerateImageDescription(ctx context.Context, prompt string, image loader.GraphBase64) (string, error) {
	return c.response, c.err
}

func (c *stubAIClient) ResetMetrics() {}

func (c *stubAIClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func newScoringStore(t *testing.T) *memory.MemoryStore {
	t.Helper()
	s := memory.NewMemoryStore(memory.NewMemoryStoreParams{})
	if _, err := s.UpsertEntity(context.Background(), "TechCorp", []string{"Company"}, nil); err != nil {
		t.Fatalf("UpsertEntity() error = %v", err)
	}
	return s
}

func TestLLMScorerUsesModelScores(t *testing.T) {
	client := &stubAIClient{
		response: `{"financial":0.7,"operational":0.2,"market":0.9,"overall":0.1,"reasoning":"High leverage and crowded market."}`,
	}

	scorer, err := NewLLMScorer(NewLLMScorerParams{Client: client, Store: newScoringStore(t)})
	if err != nil {
		t.Fatalf("NewLLMScorer() error = %v", err)
	}

	a, err := scorer.Score(context.Background(), "TechCorp", emptyBundle("TechCorp"))
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	if !approx(a.Financial, 0.7) || !approx(a.Operational, 0.2) || !approx(a.Market, 0.9) {
		t.Errorf("category scores = %.2f/%.2f/%.2f, want the model's values", a.Financial, a.Operational, a.Market)
	}
	// The overall score is recomputed from the fixed weights, not taken
	// from the model.
	if !approx(a.Overall, 0.4*0.7+0.3*0.2+0.3*0.9) {
		t.Errorf("overall = %f, want weighted recomputation", a.Overall)
	}
	if a.Reasoning != "High leverage and crowded market." {
		t.Errorf("reasoning = %q", a.Reasoning)
	}
}

func TestLLMScorerFallsBackOnError(t *testing.T) {
	client := &stubAIClient{err: fmt.Errorf("model unavailable")}

	scorer, err := NewLLMScorer(NewLLMScorerParams{Client: client, Store: newScoringStore(t)})
	if err != nil {
		t.Fatalf("NewLLMScorer() error = %v", err)
	}

	a, err := scorer.Score(context.Background(), "TechCorp", emptyBundle("TechCorp"))
	if err != nil {
		t.Fatalf("Score() error = %v, want rule-based fallback", err)
	}

	if !approx(a.Financial, 0.4) || !approx(a.Operational, 0.5) || !approx(a.Market, 0.45) {
		t.Errorf("fallback scores = %.2f/%.2f/%.2f, want rule baselines", a.Financial, a.Operational, a.Market)
	}
}

func TestLLMScorerFallsBackOnEmptyReasoning(t *testing.T) {
	client := &stubAIClient{
		response: `{"financial":0.7,"operational":0.2,"market":0.9,"overall":0.5,"reasoning":"  "}`,
	}

	scorer, err := NewLLMScorer(NewLLMScorerParams{Client: client, Store: newScoringStore(t)})
	if err != nil {
		t.Fatalf("NewLLMScorer() error = %v", err)
	}

	a, err := scorer.Score(context.Background(), "TechCorp", emptyBundle("TechCorp"))
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	if a.Reasoning == "" {
		t.Error("fallback assessment must carry rule-based reasoning")
	}
	if !approx(a.Operational, 0.5) {
		t.Errorf("operational = %f, want rule baseline after fallback", a.Operational)
	}
}
