package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/strategraph/strategraph/pkg/store"
)

// RiskFactors returns the HAS_RISK edges attached to the focus entity,
// highest level first.
func (s *Neo4jStore) RiskFactors(ctx context.Context, name string) ([]store.RiskFactor, error) {
	if _, err := s.Entity(ctx, name); err != nil {
		return nil, err
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (e:Entity {key: $key})-[:HAS_RISK]->(r:Entity)
			RETURN r.name AS name,
			       coalesce(r.risk_type, r.type, '') AS risk_type,
			       coalesce(r.level, 0.0) AS level,
			       coalesce(r.description, '') AS description
			ORDER BY level DESC, name ASC
		`, map[string]any{"key": store.EntityKey(name)})
		if err != nil {
			return nil, err
		}

		factors := []store.RiskFactor{}
		for res.Next(ctx) {
			record := res.Record()
			riskName, _ := record.Get("name")
			riskType, _ := record.Get("risk_type")
			level, _ := record.Get("level")
			description, _ := record.Get("description")

			factors = append(factors, store.RiskFactor{
				Name:        asString(riskName),
				RiskType:    asString(riskType),
				Level:       asFloat(level),
				Description: asString(description),
			})
		}

		return factors, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read risk factors of %q: %w", name, err)
	}

	return result.([]store.RiskFactor), nil
}

// Opportunities runs the strategic-opportunity queries for one entity:
// partnerships through shared markets with complementary strengths, and
// expansion markets where incumbents win with strengths the focus entity
// already holds.
func (s *Neo4jStore) Opportunities(ctx context.Context, name string) (*store.Opportunities, error) {
	if _, err := s.Entity(ctx, name); err != nil {
		return nil, err
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		opportunities := &store.Opportunities{
			PartnershipOpportunities:     []store.PartnershipOpportunity{},
			MarketExpansionOpportunities: []store.ExpansionOpportunity{},
		}

		partnerRes, err := tx.Run(ctx, `
			MATCH (e:Entity {key: $key})-[:COMPETES_WITH|OPERATES_IN]->(m:Entity)
			      <-[:COMPETES_WITH|OPERATES_IN]-(partner:Entity)
			WHERE partner <> e AND NOT (e)-[:PARTNERED_WITH]-(partner)
			WITH e, partner, count(DISTINCT m) AS shared_markets
			MATCH (partner)-[:HAS_STRENGTH]->(st:Entity)
			WHERE NOT EXISTS {
				MATCH (e)-[:HAS_STRENGTH]->(own:Entity {key: st.key})
			}
			RETURN partner.name AS potential_partner,
			       collect(DISTINCT st.name) AS complementary_strengths,
			       shared_markets
			ORDER BY shared_markets DESC, size(complementary_strengths) DESC,
			         potential_partner ASC
			LIMIT 10
		`, map[string]any{"key": store.EntityKey(name)})
		if err != nil {
			return nil, err
		}
		for partnerRes.Next(ctx) {
			record := partnerRes.Record()
			partner, _ := record.Get("potential_partner")
			strengths, _ := record.Get("complementary_strengths")
			shared, _ := record.Get("shared_markets")

			opportunities.PartnershipOpportunities = append(
				opportunities.PartnershipOpportunities,
				store.PartnershipOpportunity{
					PotentialPartner:       asString(partner),
					ComplementaryStrengths: asStringSlice(strengths),
					SharedMarkets:          asInt(shared),
				},
			)
		}
		if err := partnerRes.Err(); err != nil {
			return nil, err
		}

		expansionRes, err := tx.Run(ctx, `
			MATCH (e:Entity {key: $key})-[:HAS_STRENGTH]->(st:Entity)
			MATCH (other:Entity)-[:COMPETES_WITH|OPERATES_IN]->(m:Entity)
			WHERE other <> e
			  AND NOT (e)-[:COMPETES_WITH|OPERATES_IN]->(m)
			  AND (other)-[:HAS_STRENGTH]->(:Entity {key: st.key})
			RETURN m.name AS potential_market,
			       collect(DISTINCT st.name) AS relevant_strengths,
			       count(DISTINCT st) AS strength_count
			ORDER BY strength_count DESC, potential_market ASC
			LIMIT 10
		`, map[string]any{"key": store.EntityKey(name)})
		if err != nil {
			return nil, err
		}
		for expansionRes.Next(ctx) {
			record := expansionRes.Record()
			market, _ := record.Get("potential_market")
			strengths, _ := record.Get("relevant_strengths")
			count, _ := record.Get("strength_count")

			opportunities.MarketExpansionOpportunities = append(
				opportunities.MarketExpansionOpportunities,
				store.ExpansionOpportunity{
					PotentialMarket:   asString(market),
					RelevantStrengths: asStringSlice(strengths),
					StrengthCount:     asInt(count),
				},
			)
		}
		if err := expansionRes.Err(); err != nil {
			return nil, err
		}

		return opportunities, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read opportunities of %q: %w", name, err)
	}

	return result.(*store.Opportunities), nil
}
