package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/strategraph/strategraph/pkg/store"
)

// RiskFactors returns the HAS_RISK edges attached to the focus entity,
// highest level first.
func (s *MemoryStore) RiskFactors(ctx context.Context, name string) ([]store.RiskFactor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	focusKey := store.EntityKey(name)
	if _, ok := s.entities[focusKey]; !ok {
		return nil, store.ErrEntityNotFound
	}

	factors := []store.RiskFactor{}
	for _, key := range s.sortedRelKeys() {
		if key.from != focusKey || key.relType != "HAS_RISK" {
			continue
		}
		target := s.entities[key.to]

		riskType, _ := target.attrs["risk_type"].(string)
		if riskType == "" {
			riskType, _ = target.attrs["type"].(string)
		}
		level := 0.0
		switch v := target.attrs["level"].(type) {
		case float64:
			level = v
		case int:
			level = float64(v)
		}
		description, _ := target.attrs["description"].(string)

		factors = append(factors, store.RiskFactor{
			Name:        target.name,
			RiskType:    riskType,
			Level:       level,
			Description: description,
		})
	}

	sort.Slice(factors, func(i, j int) bool {
		if factors[i].Level != factors[j].Level {
			return factors[i].Level > factors[j].Level
		}
		return factors[i].Name < factors[j].Name
	})

	return factors, nil
}

func isMarketEdge(relType string) bool {
	return relType == "COMPETES_WITH" || relType == "OPERATES_IN"
}

// Opportunities mirrors the Neo4j strategic-opportunity queries over the
// in-memory maps: partnerships through shared markets with complementary
// strengths, and expansion markets where incumbents win with strengths
// the focus entity already holds.
func (s *MemoryStore) Opportunities(ctx context.Context, name string) (*store.Opportunities, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	focusKey := store.EntityKey(name)
	if _, ok := s.entities[focusKey]; !ok {
		return nil, store.ErrEntityNotFound
	}

	markets := map[string]map[string]bool{}   // entity key -> market keys
	strengths := map[string]map[string]bool{} // entity key -> strength keys
	partnered := map[string]bool{}            // keys partnered with focus

	for key := range s.rels {
		if isMarketEdge(key.relType) {
			if markets[key.from] == nil {
				markets[key.from] = map[string]bool{}
			}
			markets[key.from][key.to] = true
		}
		if key.relType == "HAS_STRENGTH" {
			if strengths[key.from] == nil {
				strengths[key.from] = map[string]bool{}
			}
			strengths[key.from][key.to] = true
		}
		if key.relType == "PARTNERED_WITH" {
			if key.from == focusKey {
				partnered[key.to] = true
			}
			if key.to == focusKey {
				partnered[key.from] = true
			}
		}
	}

	opportunities := &store.Opportunities{
		PartnershipOpportunities:     []store.PartnershipOpportunity{},
		MarketExpansionOpportunities: []store.ExpansionOpportunity{},
	}

	for _, candidate := range s.sortedEntityKeys() {
		if candidate == focusKey || partnered[candidate] {
			continue
		}

		shared := 0
		for market := range markets[candidate] {
			if markets[focusKey][market] {
				shared++
			}
		}
		if shared == 0 {
			continue
		}

		complementary := []string{}
		for strength := range strengths[candidate] {
			if !strengths[focusKey][strength] {
				complementary = append(complementary, s.entities[strength].name)
			}
		}
		if len(complementary) == 0 {
			continue
		}
		sort.Strings(complementary)

		opportunities.PartnershipOpportunities = append(
			opportunities.PartnershipOpportunities,
			store.PartnershipOpportunity{
				PotentialPartner:       s.entities[candidate].name,
				ComplementaryStrengths: complementary,
				SharedMarkets:          shared,
			},
		)
	}

	sort.Slice(opportunities.PartnershipOpportunities, func(i, j int) bool {
		a, b := opportunities.PartnershipOpportunities[i], opportunities.PartnershipOpportunities[j]
		if a.SharedMarkets != b.SharedMarkets {
			return a.SharedMarkets > b.SharedMarkets
		}
		if len(a.ComplementaryStrengths) != len(b.ComplementaryStrengths) {
			return len(a.ComplementaryStrengths) > len(b.ComplementaryStrengths)
		}
		return a.PotentialPartner < b.PotentialPartner
	})

	expansionByMarket := map[string]map[string]bool{} // market key -> relevant strength keys
	for _, other := range s.sortedEntityKeys() {
		if other == focusKey {
			continue
		}
		for market := range markets[other] {
			if markets[focusKey][market] {
				continue
			}
			for strength := range strengths[other] {
				if !strengths[focusKey][strength] {
					continue
				}
				if expansionByMarket[market] == nil {
					expansionByMarket[market] = map[string]bool{}
				}
				expansionByMarket[market][strength] = true
			}
		}
	}

	marketKeys := make([]string, 0, len(expansionByMarket))
	for market := range expansionByMarket {
		marketKeys = append(marketKeys, market)
	}
	sort.Strings(marketKeys)

	for _, market := range marketKeys {
		relevant := []string{}
		for strength := range expansionByMarket[market] {
			relevant = append(relevant, s.entities[strength].name)
		}
		sort.Strings(relevant)

		opportunities.MarketExpansionOpportunities = append(
			opportunities.MarketExpansionOpportunities,
			store.ExpansionOpportunity{
				PotentialMarket:   s.entities[market].name,
				RelevantStrengths: relevant,
				StrengthCount:     len(relevant),
			},
		)
	}

	sort.Slice(opportunities.MarketExpansionOpportunities, func(i, j int) bool {
		a, b := opportunities.MarketExpansionOpportunities[i], opportunities.MarketExpansionOpportunities[j]
		if a.StrengthCount != b.StrengthCount {
			return a.StrengthCount > b.StrengthCount
		}
		return a.PotentialMarket < b.PotentialMarket
	})

	if len(opportunities.PartnershipOpportunities) > 10 {
		opportunities.PartnershipOpportunities = opportunities.PartnershipOpportunities[:10]
	}
	if len(opportunities.MarketExpansionOpportunities) > 10 {
		opportunities.MarketExpansionOpportunities = opportunities.MarketExpansionOpportunities[:10]
	}

	return opportunities, nil
}

// ExportSegment collects the subgraph within depth hops of the focus
// entity and writes it as a JSON file under the export directory.
func (s *MemoryStore) ExportSegment(ctx context.Context, name string, depth int) (*store.GraphSegment, error) {
	neighbors, err := s.Neighbors(ctx, name, depth)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()

	focusKey := store.EntityKey(name)
	included := map[string]bool{focusKey: true}
	for _, n := range neighbors {
		included[store.EntityKey(n.Entity.Name)] = true
	}

	segment := &store.GraphSegment{
		Nodes: []store.GraphNode{},
		Links: []store.GraphLink{},
	}

	for _, key := range s.sortedEntityKeys() {
		if !included[key] {
			continue
		}
		node := s.entities[key]
		record := s.record(node)
		segment.Nodes = append(segment.Nodes, store.GraphNode{
			ID:         record.ID,
			Name:       record.Name,
			Labels:     record.Labels,
			Attributes: record.Attributes,
		})
	}

	for _, key := range s.sortedRelKeys() {
		if !included[key.from] || !included[key.to] {
			continue
		}
		segment.Links = append(segment.Links, store.GraphLink{
			Source: s.entities[key.from].id,
			Target: s.entities[key.to].id,
			Type:   key.relType,
		})
	}

	s.mu.RUnlock()

	filePath, err := s.writeExport(name, segment)
	if err != nil {
		return nil, err
	}
	segment.ExportedFile = filePath

	return segment, nil
}

func (s *MemoryStore) writeExport(name string, segment *store.GraphSegment) (string, error) {
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	fileName := fmt.Sprintf("entity_%s_%s.json",
		strings.ReplaceAll(store.NormalizeEntityName(name), " ", "_"), timestamp)
	filePath := filepath.Join(s.exportDir, fileName)

	data, err := json.MarshalIndent(map[string]any{
		"nodes": segment.Nodes,
		"links": segment.Links,
	}, "", "  ")
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return filePath, nil
}
