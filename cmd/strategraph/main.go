package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/strategraph/strategraph/internal/config"
	"github.com/strategraph/strategraph/internal/pipeline"
	"github.com/strategraph/strategraph/internal/queue"
	"github.com/strategraph/strategraph/internal/util"
	"github.com/strategraph/strategraph/pkg/logger"
	"github.com/strategraph/strategraph/pkg/logger/console"
)

var (
	configPath string

	riskTolerance string
	priorities    []string
	longForm      bool
	useLLM        bool
	exportDepth   int

	customEntities []string
	viaQueue       bool

	listLimit int
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug := util.GetEnvBool("DEBUG", false)
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	}))

	root := &cobra.Command{
		Use:           "strategraph",
		Short:         "Business knowledge graph and strategy analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config file")

	root.AddCommand(
		analyzeCmd(),
		ingestCmd(),
		entitiesCmd(),
		visualizeCmd(),
		seedCmd(),
		interactiveCmd(),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("Command failed", "err", err)
		os.Exit(1)
	}
}

// withRunner loads the configuration, opens the pipeline and hands it
// to fn, closing the store afterwards.
func withRunner(ctx context.Context, fn func(context.Context, *pipeline.Runner) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	runner, err := pipeline.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer runner.Close(context.Background())

	return fn(ctx, runner)
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <entity>",
		Short: "Run the full analysis chain for one entity and write a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), func(ctx context.Context, runner *pipeline.Runner) error {
				rep, path, err := runner.Analyze(ctx, pipeline.AnalyzeParams{
					Entity:        args[0],
					RiskTolerance: riskTolerance,
					Priorities:    priorities,
					ExportDepth:   exportDepth,
					LongForm:      longForm,
					UseLLM:        useLLM,
				})
				if err != nil {
					return err
				}

				fmt.Printf("Report for %s written to %s\n\n", rep.Entity, path)
				fmt.Println(rep.ExecutiveSummary)
				fmt.Println()
				for i, s := range rep.Strategies {
					fmt.Printf("%d. %s [%s priority, %s term]\n", i+1, s.Title, s.Priority, s.Timeline)
				}
				fmt.Printf(
					"\nRisk: financial %s, operational %s, market %s, overall %s\n",
					rep.RiskAssessment.Financial, rep.RiskAssessment.Operational,
					rep.RiskAssessment.Market, rep.RiskAssessment.Overall,
				)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&riskTolerance, "risk-tolerance", "medium", "risk tolerance: low, medium or high")
	cmd.Flags().StringSliceVar(&priorities, "priorities", nil, "ordered focus areas, e.g. market,finance")
	cmd.Flags().BoolVar(&longForm, "long-form", false, "include the full insight bundle in the report")
	cmd.Flags().BoolVar(&useLLM, "llm", false, "use the model for risk scoring, strategies and the summary")
	cmd.Flags().IntVar(&exportDepth, "depth", 2, "hops of supporting graph context to export")

	return cmd
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Extract entities and relationships from documents into the graph",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if viaQueue {
				return publishIngest(args)
			}

			return withRunner(cmd.Context(), func(ctx context.Context, runner *pipeline.Runner) error {
				results, err := runner.IngestFiles(ctx, args, customEntities)
				if err != nil {
					return err
				}
				for i, res := range results {
					fmt.Printf(
						"%s: %d units, %d triplets, %d entities, %d relationships\n",
						args[i], res.Units, res.Triplets, res.Entities, res.Relationships,
					)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&customEntities, "entities", nil, "entity types to extract instead of the defaults")
	cmd.Flags().BoolVar(&viaQueue, "queue", false, "publish to the worker queue instead of processing inline")

	return cmd
}

// publishIngest hands the file list to the background worker.
func publishIngest(paths []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	conn := queue.Init(cfg.Queue.URL)
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(queue.IngestMsg{
		Paths:          paths,
		CustomEntities: customEntities,
	})
	if err != nil {
		return err
	}

	if err := queue.PublishFIFO(ch, queue.IngestQueue, body); err != nil {
		return err
	}

	fmt.Printf("Queued %d file(s) for ingestion\n", len(paths))
	return nil
}

func entitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List stored entities ordered by connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), func(ctx context.Context, runner *pipeline.Runner) error {
				entities, err := runner.Entities(ctx, listLimit)
				if err != nil {
					return err
				}
				if len(entities) == 0 {
					fmt.Println("No entities found. Ingest documents or run 'strategraph seed' first.")
					return nil
				}
				for _, e := range entities {
					fmt.Printf("%-40s %-30s %d connections\n", e.Name, joinLabels(e.Labels), e.ConnectionCount)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&listLimit, "limit", 50, "maximum number of entities to list")

	return cmd
}

func joinLabels(labels []string) string {
	if len(labels) == 0 {
		return "-"
	}
	out := labels[0]
	for _, l := range labels[1:] {
		out += "," + l
	}
	return out
}

func visualizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visualize <entity>",
		Short: "Export the neighborhood of an entity as visualization JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), func(ctx context.Context, runner *pipeline.Runner) error {
				segment, err := runner.Visualize(ctx, args[0], exportDepth)
				if err != nil {
					return err
				}
				fmt.Printf(
					"Exported %d nodes and %d links to %s\n",
					len(segment.Nodes), len(segment.Links), segment.ExportedFile,
				)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&exportDepth, "depth", 2, "hops of graph context to export")

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate an empty graph with the bundled demo scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), func(ctx context.Context, runner *pipeline.Runner) error {
				if err := runner.SeedDemo(ctx); err != nil {
					return err
				}
				fmt.Println("Demo graph seeded. Try 'strategraph analyze TechCorp'.")
				return nil
			})
		},
	}
}
