package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/strategraph/strategraph/internal/config"
	"github.com/strategraph/strategraph/pkg/ai"
	"github.com/strategraph/strategraph/pkg/ai/ollama"
	"github.com/strategraph/strategraph/pkg/ai/openai"
	"github.com/strategraph/strategraph/pkg/analysis/insight"
	"github.com/strategraph/strategraph/pkg/analysis/risk"
	"github.com/strategraph/strategraph/pkg/analysis/strategy"
	"github.com/strategraph/strategraph/pkg/graph"
	"github.com/strategraph/strategraph/pkg/loader"
	"github.com/strategraph/strategraph/pkg/loader/csv"
	"github.com/strategraph/strategraph/pkg/loader/doc"
	"github.com/strategraph/strategraph/pkg/loader/excel"
	"github.com/strategraph/strategraph/pkg/loader/image"
	loaderio "github.com/strategraph/strategraph/pkg/loader/io"
	"github.com/strategraph/strategraph/pkg/loader/pdf"
	"github.com/strategraph/strategraph/pkg/logger"
	"github.com/strategraph/strategraph/pkg/report"
	"github.com/strategraph/strategraph/pkg/store"
	"github.com/strategraph/strategraph/pkg/store/memory"
	storeneo4j "github.com/strategraph/strategraph/pkg/store/neo4j"
)

// Runner owns the store and AI client for one processing session. It is
// created with Open and must be released with Close.
type Runner struct {
	cfg      *config.Config
	store    store.GraphStore
	aiClient ai.GraphAIClient
	graph    *graph.GraphClient
}

// Open builds the configured store and AI client and returns a ready
// Runner. The store connection is verified here, so a misconfigured
// backend fails before any work starts.
func Open(ctx context.Context, cfg *config.Config) (*Runner, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	aiClient, err := openAIClient(cfg)
	if err != nil {
		st.Close(ctx)
		return nil, err
	}

	graphClient, err := graph.NewGraphClient(graph.NewGraphClientParams{
		TokenEncoder:       cfg.Ingest.TokenEncoder,
		ParallelFiles:      cfg.Ingest.ParallelFiles,
		ParallelAiRequests: cfg.Ingest.ParallelAIRequests,
		MaxRetries:         cfg.Ingest.MaxRetries,
	})
	if err != nil {
		st.Close(ctx)
		return nil, err
	}

	return &Runner{
		cfg:      cfg,
		store:    st,
		aiClient: aiClient,
		graph:    graphClient,
	}, nil
}

// Store exposes the underlying graph store for direct reads.
func (r *Runner) Store() store.GraphStore {
	return r.store
}

// AIClient exposes the configured model client.
func (r *Runner) AIClient() ai.GraphAIClient {
	return r.aiClient
}

// Close releases the store connection.
func (r *Runner) Close(ctx context.Context) error {
	return r.store.Close(ctx)
}

func openStore(ctx context.Context, cfg *config.Config) (store.GraphStore, error) {
	switch cfg.Store.Backend {
	case "neo4j":
		return storeneo4j.NewNeo4jStore(ctx, storeneo4j.NewNeo4jStoreParams{
			URI:       cfg.Store.URI,
			Username:  cfg.Store.Username,
			Password:  cfg.Store.Password,
			Database:  cfg.Store.Database,
			ExportDir: cfg.Store.ExportDir,
		})
	case "memory":
		return memory.NewMemoryStore(memory.NewMemoryStoreParams{
			ExportDir: cfg.Store.ExportDir,
		}), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func openAIClient(cfg *config.Config) (ai.GraphAIClient, error) {
	switch cfg.AI.Backend {
	case "ollama":
		return ollama.NewGraphOllamaClient(ollama.NewGraphOllamaClientParams{
			ReasoningModel:  cfg.AI.ReasoningModel,
			ExtractionModel: cfg.AI.ExtractionModel,
			VisionModel:     cfg.AI.VisionModel,
			BaseURL:         cfg.AI.BaseURL,
			ApiKey:          cfg.AI.APIKey,
		})
	case "openai":
		return openai.NewGraphOpenAIClient(openai.NewGraphOpenAIClientParams{
			ReasoningModel:  cfg.AI.ReasoningModel,
			ExtractionModel: cfg.AI.ExtractionModel,
			VisionModel:     cfg.AI.VisionModel,
			ChatURL:         cfg.AI.BaseURL,
			ChatKey:         cfg.AI.APIKey,
			VisionURL:       cfg.AI.BaseURL,
			VisionKey:       cfg.AI.APIKey,
		}), nil
	default:
		return nil, fmt.Errorf("unknown ai backend %q", cfg.AI.Backend)
	}
}

// FileFromPath classifies a file by extension and builds a GraphFile
// with the matching loader chain.
func (r *Runner) FileFromPath(path string, customEntities []string) (loader.GraphFile, error) {
	id, err := gonanoid.New()
	if err != nil {
		return loader.GraphFile{}, fmt.Errorf("failed to generate file id: %w", err)
	}

	base := loaderio.NewIOGraphFileLoader()
	params := loader.NewGraphFileParams{
		ID:             id,
		FilePath:       path,
		MaxTokens:      r.cfg.Ingest.MaxTokens,
		CustomEntities: customEntities,
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		params.Loader = pdf.NewPDFGraphLoader(base)
		return loader.NewGraphDocumentFile(params), nil
	case ".docx", ".doc":
		params.Loader = doc.NewDocGraphLoader(base)
		return loader.NewGraphDocumentFile(params), nil
	case ".csv":
		params.Loader = csv.NewCSVGraphLoader(base)
		return loader.NewGraphCSVFile(params), nil
	case ".xlsx", ".xls":
		params.Loader = excel.NewExcelGraphLoader(base)
		return loader.NewGraphSpreadsheetFile(params), nil
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		params.Loader = image.NewImageGraphLoader(image.NewImageGraphLoaderParams{
			AIClient: r.aiClient,
			Loader:   base,
		})
		return loader.NewGraphImageFile(params), nil
	case ".txt", ".md":
		params.Loader = base
		return loader.NewGraphDocumentFile(params), nil
	default:
		return loader.GraphFile{}, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

// IngestFile extracts triplets from one file and merges them into the
// graph.
func (r *Runner) IngestFile(ctx context.Context, path string, customEntities []string) (*graph.IngestResult, error) {
	file, err := r.FileFromPath(path, customEntities)
	if err != nil {
		return nil, err
	}
	return r.graph.IngestDocument(ctx, file, r.aiClient, r.store)
}

// IngestFiles processes multiple files concurrently.
func (r *Runner) IngestFiles(ctx context.Context, paths []string, customEntities []string) ([]*graph.IngestResult, error) {
	files := make([]loader.GraphFile, 0, len(paths))
	for _, path := range paths {
		file, err := r.FileFromPath(path, customEntities)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return r.graph.IngestDocuments(ctx, files, r.aiClient, r.store)
}

// AnalyzeParams configures one analysis run.
type AnalyzeParams struct {
	Entity        string
	RiskTolerance string
	Priorities    []string

	// ExportDepth bounds the supporting graph segment. Defaults to 2.
	ExportDepth int

	// LongForm includes the full insight bundle in the report.
	LongForm bool

	// UseLLM routes risk scoring, strategy generation and the executive
	// summary through the model instead of the deterministic fallbacks.
	UseLLM bool
}

// Analyze runs the full analysis chain for one entity: insights, risk,
// strategies, opportunities, supporting graph data, and the assembled
// report written to the report directory. It returns the report and the
// path it was written to.
func (r *Runner) Analyze(ctx context.Context, params AnalyzeParams) (*report.Report, string, error) {
	if params.ExportDepth <= 0 {
		params.ExportDepth = 2
	}

	insightCfg := insight.Config{
		ChainMinFrequency:           r.cfg.Insight.ChainMinFrequency,
		ChainHighFrequency:          r.cfg.Insight.ChainHighFrequency,
		ChainLowFrequency:           r.cfg.Insight.ChainLowFrequency,
		TopChains:                   r.cfg.Insight.TopChains,
		ClusterMinMembers:           r.cfg.Insight.ClusterMinMembers,
		AnomalyZScore:               r.cfg.Insight.AnomalyZScore,
		AnomalyHighZScore:           r.cfg.Insight.AnomalyHighZScore,
		AnomalyModerateZScore:       r.cfg.Insight.AnomalyModerateZScore,
		CooccurrenceMinFrequency:    r.cfg.Insight.CooccurrenceMinFrequency,
		CooccurrenceHighFrequency:   r.cfg.Insight.CooccurrenceHighFrequency,
		CooccurrenceMediumFrequency: r.cfg.Insight.CooccurrenceMediumFrequency,
		TopCorrelations:             r.cfg.Insight.TopCorrelations,
		MaxHops:                     r.cfg.Insight.MaxHops,
	}
	extractor, err := insight.NewExtractor(insight.NewExtractorParams{
		Store:  r.store,
		Config: insightCfg,
	})
	if err != nil {
		return nil, "", err
	}

	logger.Info("[Pipeline] analyzing entity", "entity", params.Entity)

	bundle, err := extractor.Extract(ctx, params.Entity)
	if err != nil {
		return nil, "", fmt.Errorf("insight extraction failed for %s: %w", params.Entity, err)
	}

	scorer, generator, summaryClient, err := r.analysisComponents(params.UseLLM)
	if err != nil {
		return nil, "", err
	}

	llmCtx := ctx
	if params.UseLLM && r.cfg.AI.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		llmCtx, cancel = context.WithTimeout(ctx, time.Duration(r.cfg.AI.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	assessment, err := scorer.Score(llmCtx, params.Entity, bundle)
	if err != nil {
		return nil, "", fmt.Errorf("risk assessment failed for %s: %w", params.Entity, err)
	}

	opportunities, err := r.store.Opportunities(ctx, params.Entity)
	if err != nil {
		return nil, "", fmt.Errorf("opportunity detection failed for %s: %w", params.Entity, err)
	}

	strategies, err := generator.Generate(llmCtx, strategy.Input{
		EntityName:    params.Entity,
		Assessment:    assessment,
		Insights:      bundle,
		Opportunities: opportunities,
	}, strategy.Options{
		RiskTolerance: params.RiskTolerance,
		Priorities:    params.Priorities,
	})
	if err != nil {
		return nil, "", fmt.Errorf("strategy generation failed for %s: %w", params.Entity, err)
	}

	segment, err := r.store.ExportSegment(ctx, params.Entity, params.ExportDepth)
	if err != nil {
		return nil, "", fmt.Errorf("graph export failed for %s: %w", params.Entity, err)
	}

	marketContext, err := report.BuildMarketContext(ctx, r.store, params.Entity)
	if err != nil {
		return nil, "", fmt.Errorf("market context failed for %s: %w", params.Entity, err)
	}

	assembleParams := report.AssembleParams{
		Entity:        params.Entity,
		Assessment:    assessment,
		Strategies:    strategies,
		Opportunities: opportunities,
		EntityGraph:   segment,
		MarketContext: marketContext,
		SummaryClient: summaryClient,
	}
	if params.LongForm {
		assembleParams.Insights = bundle
	}

	rep, err := report.Assemble(llmCtx, assembleParams)
	if err != nil {
		return nil, "", err
	}

	path, err := report.Write(rep, r.cfg.ReportDir)
	if err != nil {
		return nil, "", err
	}

	return rep, path, nil
}

// analysisComponents selects the deterministic or model-backed scorer
// and generator. The model variants carry the deterministic ones as
// fallbacks internally.
func (r *Runner) analysisComponents(useLLM bool) (risk.Scorer, strategy.Generator, ai.GraphAIClient, error) {
	ruleScorer, err := risk.NewRuleScorer(risk.NewRuleScorerParams{Store: r.store})
	if err != nil {
		return nil, nil, nil, err
	}

	if !useLLM {
		return ruleScorer, strategy.NewTemplateGenerator(), nil, nil
	}

	llmScorer, err := risk.NewLLMScorer(risk.NewLLMScorerParams{
		Client: r.aiClient,
		Store:  r.store,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	llmGenerator, err := strategy.NewLLMGenerator(strategy.NewLLMGeneratorParams{
		Client: r.aiClient,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return llmScorer, llmGenerator, r.aiClient, nil
}

// SeedDemo populates an empty graph with the bundled demo scenario.
// It refuses to touch a graph that already has entities.
func (r *Runner) SeedDemo(ctx context.Context) error {
	metrics, err := r.store.GlobalMetrics(ctx)
	if err != nil {
		return err
	}
	if metrics.NodeCount > 0 {
		return fmt.Errorf("graph already contains %d entities, refusing to seed", metrics.NodeCount)
	}
	return memory.SeedDemoGraph(ctx, r.store)
}

// Entities lists the stored entities ordered by connectivity.
func (r *Runner) Entities(ctx context.Context, limit int) ([]store.EntityListing, error) {
	return r.store.ListEntities(ctx, limit)
}

// Visualize exports the neighborhood of an entity for rendering.
func (r *Runner) Visualize(ctx context.Context, entity string, depth int) (*store.GraphSegment, error) {
	if depth <= 0 {
		depth = 2
	}
	return r.store.ExportSegment(ctx, entity, depth)
}
