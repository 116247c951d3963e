package memory

import (
	"context"
	"fmt"

	"github.com/strategraph/strategraph/pkg/store"
)

type seedEntity struct {
	name   string
	labels []string
	attrs  map[string]any
}

type seedRel struct {
	from    string
	to      string
	relType string
	attrs   map[string]any
}

// SeedDemoGraph populates a store with a small but realistic business
// graph: companies, markets, risks, metrics and strengths. Used by the
// interactive mode when the graph is empty and by the test suite. Works
// against any backend since it only uses upserts.
func SeedDemoGraph(ctx context.Context, s store.GraphStore) error {
	entities := []seedEntity{
		{"TechCorp", []string{"Company"}, map[string]any{
			"industry": "enterprise software", "headquarters": "Berlin", "revenue": 120_000_000.0,
		}},
		{"GlobalNet", []string{"Company"}, map[string]any{
			"industry": "networking", "headquarters": "Amsterdam",
		}},
		{"SecureSoft", []string{"Company"}, map[string]any{
			"industry": "security software",
		}},
		{"DataFlow Systems", []string{"Company"}, map[string]any{
			"industry": "data analytics",
		}},

		{"Enterprise Cloud Security", []string{"Market"}, map[string]any{"growth_potential": 0.9}},
		{"SMB Security Solutions", []string{"Market"}, map[string]any{"growth_potential": 0.75}},
		{"Government Cybersecurity", []string{"Market"}, map[string]any{"growth_potential": 0.85}},

		{"Supply Chain Disruption", []string{"Risk"}, map[string]any{
			"risk_type": "operational", "level": 0.65,
			"description": "Key component suppliers concentrated in one region",
		}},
		{"Cash Flow Volatility", []string{"Risk"}, map[string]any{
			"risk_type": "financial", "level": 0.55,
			"description": "Quarterly cash flow swings above industry norm",
		}},
		{"Competitive Displacement", []string{"Risk"}, map[string]any{
			"risk_type": "market", "level": 0.5,
			"description": "Larger rivals bundling adjacent products",
		}},

		{"revenue", []string{"Metric"}, map[string]any{"value": 120_000_000.0, "unit": "EUR"}},
		{"cash_flow", []string{"Metric"}, map[string]any{"value": -2_500_000.0, "unit": "EUR"}},
		{"debt_to_equity", []string{"Metric"}, map[string]any{"value": 2.3, "unit": "ratio"}},

		{"Cloud-Native Architecture", []string{"Strength"}, nil},
		{"Security Certifications", []string{"Strength"}, nil},
		{"Global Support Network", []string{"Strength"}, nil},
		{"AI-Driven Analytics", []string{"Strength"}, nil},
	}

	rels := []seedRel{
		{"TechCorp", "Enterprise Cloud Security", "COMPETES_WITH", nil},
		{"TechCorp", "SMB Security Solutions", "OPERATES_IN", nil},
		{"SecureSoft", "Enterprise Cloud Security", "COMPETES_WITH", nil},
		{"SecureSoft", "Government Cybersecurity", "COMPETES_WITH", nil},
		{"GlobalNet", "Enterprise Cloud Security", "COMPETES_WITH", nil},
		{"GlobalNet", "Government Cybersecurity", "OPERATES_IN", nil},
		{"DataFlow Systems", "Government Cybersecurity", "COMPETES_WITH", nil},

		{"TechCorp", "GlobalNet", "PARTNERED_WITH", map[string]any{"since": "2023"}},

		{"TechCorp", "Supply Chain Disruption", "HAS_RISK", nil},
		{"TechCorp", "Cash Flow Volatility", "HAS_RISK", nil},
		{"TechCorp", "Competitive Displacement", "HAS_RISK", nil},

		{"TechCorp", "revenue", "HAS_METRIC", nil},
		{"TechCorp", "cash_flow", "HAS_METRIC", nil},
		{"TechCorp", "debt_to_equity", "HAS_METRIC", nil},

		{"TechCorp", "Cloud-Native Architecture", "HAS_STRENGTH", nil},
		{"SecureSoft", "Security Certifications", "HAS_STRENGTH", nil},
		{"SecureSoft", "Global Support Network", "HAS_STRENGTH", nil},
		{"DataFlow Systems", "AI-Driven Analytics", "HAS_STRENGTH", nil},
	}

	for _, e := range entities {
		if _, err := s.UpsertEntity(ctx, e.name, e.labels, e.attrs); err != nil {
			return fmt.Errorf("failed to seed entity %q: %w", e.name, err)
		}
	}
	for _, r := range rels {
		if err := s.UpsertRelationship(ctx, r.from, r.to, r.relType, r.attrs); err != nil {
			return fmt.Errorf("failed to seed relationship %s->%s: %w", r.from, r.to, err)
		}
	}

	return nil
}
