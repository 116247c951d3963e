package ollama

import (
	"github.com/ollama/ollama/api"

	"github.com/strategraph/strategraph/pkg/ai"
)

func (c *GraphOllamaClient) recordMetrics(m api.Metrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += m.PromptEvalCount
	c.metrics.OutputTokens += m.EvalCount
	c.metrics.TotalTokens += m.PromptEvalCount + m.EvalCount
	c.metrics.DurationMs += m.TotalDuration.Milliseconds()
}

// ResetMetrics clears the accumulated model metrics.
func (c *GraphOllamaClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns the accumulated model metrics.
func (c *GraphOllamaClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	return c.metrics
}
