package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/strategraph/strategraph/internal/pipeline"
	"github.com/strategraph/strategraph/pkg/logger"
)

// IngestMsg asks the worker to extract one or more files into the graph.
type IngestMsg struct {
	Paths          []string `json:"paths"`
	CustomEntities []string `json:"custom_entities,omitempty"`
}

// AnalyzeMsg asks the worker to run the analysis chain for one entity.
type AnalyzeMsg struct {
	Entity        string   `json:"entity"`
	RiskTolerance string   `json:"risk_tolerance,omitempty"`
	Priorities    []string `json:"priorities,omitempty"`
	LongForm      bool     `json:"long_form,omitempty"`
	UseLLM        bool     `json:"use_llm,omitempty"`
}

// ProcessIngestMessage handles one ingest_queue message.
func ProcessIngestMessage(ctx context.Context, runner *pipeline.Runner, msg string) error {
	data := new(IngestMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("invalid ingest message: %w", err)
	}
	if len(data.Paths) == 0 {
		return fmt.Errorf("ingest message has no paths")
	}

	results, err := runner.IngestFiles(ctx, data.Paths, data.CustomEntities)
	if err != nil {
		return err
	}

	for _, res := range results {
		logger.Info(
			"[Queue] file ingested",
			"file", res.FileID,
			"units", res.Units,
			"triplets", res.Triplets,
			"entities", res.Entities,
			"relationships", res.Relationships,
		)
	}
	return nil
}

// ProcessAnalyzeMessage handles one analyze_queue message.
func ProcessAnalyzeMessage(ctx context.Context, runner *pipeline.Runner, msg string) error {
	data := new(AnalyzeMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("invalid analyze message: %w", err)
	}
	if data.Entity == "" {
		return fmt.Errorf("analyze message has no entity")
	}

	_, path, err := runner.Analyze(ctx, pipeline.AnalyzeParams{
		Entity:        data.Entity,
		RiskTolerance: data.RiskTolerance,
		Priorities:    data.Priorities,
		LongForm:      data.LongForm,
		UseLLM:        data.UseLLM,
	})
	if err != nil {
		return err
	}

	logger.Info("[Queue] analysis complete", "entity", data.Entity, "report", path)
	return nil
}
