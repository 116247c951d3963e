package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/ollama/ollama/api"

	"github.com/strategraph/strategraph/pkg/ai"
)

// GraphOllamaClient implements ai.GraphAIClient against a locally-hosted
// Ollama server. Separate models handle reasoning (risk, strategies,
// summaries), extraction (triplets), and vision (image description).
type GraphOllamaClient struct {
	reasoningModel  string
	extractionModel string
	visionModel     string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	baseURL    *url.URL
	httpClient *http.Client

	Client *api.Client
}

// NewGraphOllamaClientParams contains configuration for creating a new
// GraphOllamaClient.
type NewGraphOllamaClientParams struct {
	ReasoningModel  string
	ExtractionModel string
	VisionModel     string

	BaseURL string
	ApiKey  string
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewGraphOllamaClient creates an Ollama-backed AI client. It connects to
// the server at BaseURL, or the Ollama default when BaseURL is empty.
func NewGraphOllamaClient(params NewGraphOllamaClientParams) (*GraphOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		},
	}

	cli := api.NewClient(u, httpClient)

	return &GraphOllamaClient{
		reasoningModel:  params.ReasoningModel,
		extractionModel: params.ExtractionModel,
		visionModel:     params.VisionModel,

		baseURL:    u,
		httpClient: httpClient,

		Client: cli,
	}, nil
}
