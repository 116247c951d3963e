package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strategraph/strategraph/internal/pipeline"
)

func interactiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Guided assessment session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), func(ctx context.Context, runner *pipeline.Runner) error {
				session := &interactiveSession{
					runner: runner,
					in:     bufio.NewScanner(cmd.InOrStdin()),
					out:    cmd.OutOrStdout(),
				}
				return session.run(ctx)
			})
		},
	}
}

type interactiveSession struct {
	runner *pipeline.Runner
	in     *bufio.Scanner
	out    io.Writer
}

func (s *interactiveSession) run(ctx context.Context) error {
	fmt.Fprintln(s.out, "StrateGraph interactive assessment")

	if err := s.offerSeed(ctx); err != nil {
		return err
	}

	for {
		fmt.Fprintln(s.out, "\n1. Run new assessment")
		fmt.Fprintln(s.out, "2. List entities")
		fmt.Fprintln(s.out, "3. Exit")

		switch s.prompt("Choice (1-3): ") {
		case "1":
			if err := s.runAssessment(ctx); err != nil {
				fmt.Fprintf(s.out, "Assessment failed: %v\n", err)
			}
		case "2":
			if err := s.listEntities(ctx); err != nil {
				fmt.Fprintf(s.out, "Listing failed: %v\n", err)
			}
		case "3", "":
			fmt.Fprintln(s.out, "Goodbye.")
			return nil
		default:
			fmt.Fprintln(s.out, "Enter 1, 2 or 3.")
		}
	}
}

// offerSeed populates the demo graph when the store is empty, so a
// first session has something to assess.
func (s *interactiveSession) offerSeed(ctx context.Context) error {
	entities, err := s.runner.Entities(ctx, 1)
	if err != nil {
		return err
	}
	if len(entities) > 0 {
		return nil
	}

	fmt.Fprintln(s.out, "The graph is empty.")
	if !strings.EqualFold(s.prompt("Load the demo scenario? (y/n): "), "y") {
		return nil
	}
	if err := s.runner.SeedDemo(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Demo graph loaded.")
	return nil
}

func (s *interactiveSession) runAssessment(ctx context.Context) error {
	entity, err := s.selectEntity(ctx)
	if err != nil || entity == "" {
		return err
	}

	tolerance := s.selectTolerance()
	priorities := s.collectPriorities()

	fmt.Fprintf(s.out, "\nAnalyzing %s...\n", entity)
	rep, path, err := s.runner.Analyze(ctx, pipeline.AnalyzeParams{
		Entity:        entity,
		RiskTolerance: tolerance,
		Priorities:    priorities,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "\n%s\n\n", rep.ExecutiveSummary)
	for i, st := range rep.Strategies {
		fmt.Fprintf(s.out, "%d. %s [%s priority, %s term]\n", i+1, st.Title, st.Priority, st.Timeline)
	}
	fmt.Fprintf(s.out, "\nReport written to %s\n", path)
	return nil
}

func (s *interactiveSession) selectEntity(ctx context.Context) (string, error) {
	entities, err := s.runner.Entities(ctx, 20)
	if err != nil {
		return "", err
	}
	if len(entities) == 0 {
		fmt.Fprintln(s.out, "No entities found. Ingest documents first.")
		return "", nil
	}

	fmt.Fprintln(s.out, "\nAvailable entities:")
	for i, e := range entities {
		fmt.Fprintf(s.out, "%d. %s (%d connections)\n", i+1, e.Name, e.ConnectionCount)
	}

	choice := s.prompt("Entity number, a name, or 'c' to cancel: ")
	switch {
	case choice == "" || strings.EqualFold(choice, "c"):
		return "", nil
	default:
		if idx, err := strconv.Atoi(choice); err == nil {
			if idx < 1 || idx > len(entities) {
				fmt.Fprintln(s.out, "Invalid selection.")
				return "", nil
			}
			return entities[idx-1].Name, nil
		}
		return choice, nil
	}
}

func (s *interactiveSession) selectTolerance() string {
	fmt.Fprintln(s.out, "\nRisk tolerance:")
	fmt.Fprintln(s.out, "1. Low - conservative, prioritize risk mitigation")
	fmt.Fprintln(s.out, "2. Medium - balanced")
	fmt.Fprintln(s.out, "3. High - aggressive, prioritize growth")

	switch s.prompt("Choice (1-3, default 2): ") {
	case "1":
		return "low"
	case "3":
		return "high"
	default:
		return "medium"
	}
}

func (s *interactiveSession) collectPriorities() []string {
	raw := s.prompt("\nFocus areas in order, comma separated (e.g. market,finance), or empty: ")
	if raw == "" {
		return nil
	}
	var priorities []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			priorities = append(priorities, p)
		}
	}
	return priorities
}

func (s *interactiveSession) listEntities(ctx context.Context) error {
	entities, err := s.runner.Entities(ctx, listLimit)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		fmt.Fprintln(s.out, "No entities found.")
		return nil
	}
	for _, e := range entities {
		fmt.Fprintf(s.out, "%-40s %-30s %d connections\n", e.Name, joinLabels(e.Labels), e.ConnectionCount)
	}
	return nil
}

func (s *interactiveSession) prompt(label string) string {
	fmt.Fprint(s.out, label)
	if !s.in.Scan() {
		return ""
	}
	return strings.TrimSpace(s.in.Text())
}
