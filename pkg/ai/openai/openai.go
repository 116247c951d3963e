package openai

import (
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"

	"github.com/strategraph/strategraph/pkg/ai"
)

// GraphOpenAIClient implements ai.GraphAIClient against any
// OpenAI-compatible API. Separate clients are kept for chat and vision
// endpoints so they can point at different servers.
type GraphOpenAIClient struct {
	reasoningModel  string
	extractionModel string
	visionModel     string

	chatURL   string
	chatKey   string
	visionURL string
	visionKey string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	// Vision endpoints tend to be memory heavy, only one request at a time.
	visionLock *semaphore.Weighted

	ChatClient   *openai.Client
	VisionClient *openai.Client
}

// NewGraphOpenAIClientParams defines the configuration for creating a
// GraphOpenAIClient.
type NewGraphOpenAIClientParams struct {
	ReasoningModel  string
	ExtractionModel string
	VisionModel     string

	ChatURL   string
	ChatKey   string
	VisionURL string
	VisionKey string
}

// NewGraphOpenAIClient creates an OpenAI-backed AI client configured
// with the provided parameters.
func NewGraphOpenAIClient(params NewGraphOpenAIClientParams) *GraphOpenAIClient {
	chatClient := newOpenaiClient(params.ChatURL, params.ChatKey)
	visionClient := newOpenaiClient(params.VisionURL, params.VisionKey)

	return &GraphOpenAIClient{
		reasoningModel:  params.ReasoningModel,
		extractionModel: params.ExtractionModel,
		visionModel:     params.VisionModel,

		chatURL:   params.ChatURL,
		chatKey:   params.ChatKey,
		visionURL: params.VisionURL,
		visionKey: params.VisionKey,

		visionLock: semaphore.NewWeighted(1),

		ChatClient:   chatClient,
		VisionClient: visionClient,
	}
}

func newOpenaiClient(baseURL string, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

func (c *GraphOpenAIClient) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += m.InputTokens
	c.metrics.OutputTokens += m.OutputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs
}

// ResetMetrics clears the accumulated model metrics.
func (c *GraphOpenAIClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns the accumulated model metrics.
func (c *GraphOpenAIClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	return c.metrics
}
