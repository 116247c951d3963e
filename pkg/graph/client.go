package graph

// GraphClient drives document ingestion into the knowledge graph. It
// manages token encoding, file processing parallelism, and concurrent
// AI requests.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	tokenEncoder       string
	parallelFiles      int
	parallelAiRequests int
	maxRetries         int
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// TokenEncoder specifies the tiktoken encoding used for chunking.
// ParallelFiles controls how many files can be processed in parallel.
// ParallelAiRequests controls how many AI requests can be executed concurrently.
// MaxRetries bounds retries of failed extraction calls per unit.
type NewGraphClientParams struct {
	TokenEncoder       string
	ParallelFiles      int
	ParallelAiRequests int
	MaxRetries         int
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
//		TokenEncoder:       "cl100k_base",
//		ParallelFiles:      2,
//		ParallelAiRequests: 4,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	encoder := params.TokenEncoder
	if encoder == "" {
		encoder = "cl100k_base"
	}
	parallelFiles := params.ParallelFiles
	if parallelFiles <= 0 {
		parallelFiles = 1
	}
	parallelRequests := params.ParallelAiRequests
	if parallelRequests <= 0 {
		parallelRequests = 4
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	g := &GraphClient{
		tokenEncoder:       encoder,
		parallelFiles:      parallelFiles,
		parallelAiRequests: parallelRequests,
		maxRetries:         maxRetries,
	}

	return g, nil
}
