package store

import (
	"context"
	"errors"
	"strings"
)

// ErrEntityNotFound is returned by reads whose focus entity does not
// exist in the graph.
var ErrEntityNotFound = errors.New("entity not found")

// Direction indicates which way a relationship points relative to the
// focus entity.
type Direction string

const (
	DirectionOut Direction = "out"
	DirectionIn  Direction = "in"
)

// EntityRecord is a stored graph node.
type EntityRecord struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Labels     []string       `json:"labels"`
	Attributes map[string]any `json:"attributes"`
}

// RelationshipRecord is a stored directed, typed edge.
type RelationshipRecord struct {
	From       string         `json:"from"`
	To         string         `json:"to"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes"`
}

// Neighbor is an entity reachable from the focus entity, together with
// the relationship that reached it.
type Neighbor struct {
	Entity    EntityRecord
	RelType   string
	Direction Direction
	Hops      int
}

// EntityStats aggregates the direct and extended connectivity of one entity.
type EntityStats struct {
	ConnectionCount        int            `json:"connection_count"`
	RelationshipTypeCounts map[string]int `json:"relationship_type_counts"`
	ExtendedNetworkSize    int            `json:"extended_network_size"`
}

// GraphMetrics aggregates whole-graph statistics.
type GraphMetrics struct {
	NodeCount           int            `json:"node_count"`
	RelationshipCount   int            `json:"relationship_count"`
	Density             float64        `json:"density"`
	LabelDistribution   map[string]int `json:"label_distribution"`
	RelTypeDistribution map[string]int `json:"rel_type_distribution"`
}

// RiskFactor is a HAS_RISK edge attached to the focus entity.
type RiskFactor struct {
	Name        string  `json:"name"`
	RiskType    string  `json:"risk_type"`
	Level       float64 `json:"level"`
	Description string  `json:"description"`
}

// PartnershipOpportunity is a well-connected non-partner sharing markets
// with the focus entity while holding strengths the focus entity lacks.
type PartnershipOpportunity struct {
	PotentialPartner       string   `json:"potential_partner"`
	ComplementaryStrengths []string `json:"complementary_strengths"`
	SharedMarkets          int      `json:"shared_markets"`
}

// ExpansionOpportunity is a market the focus entity is absent from where
// incumbents succeed with strengths the focus entity already has.
type ExpansionOpportunity struct {
	PotentialMarket   string   `json:"potential_market"`
	RelevantStrengths []string `json:"relevant_strengths"`
	StrengthCount     int      `json:"strength_count"`
}

// Opportunities bundles the strategic opportunity queries for one entity.
type Opportunities struct {
	PartnershipOpportunities     []PartnershipOpportunity `json:"partnership_opportunities"`
	MarketExpansionOpportunities []ExpansionOpportunity   `json:"market_expansion_opportunities"`
}

// GraphNode is a node in an exported graph segment.
type GraphNode struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Labels     []string       `json:"labels"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// GraphLink is an edge in an exported graph segment.
type GraphLink struct {
	Source int64  `json:"source"`
	Target int64  `json:"target"`
	Type   string `json:"type"`
}

// GraphSegment is a visualization-ready subgraph centered on one entity.
type GraphSegment struct {
	Nodes        []GraphNode `json:"nodes"`
	Links        []GraphLink `json:"links"`
	ExportedFile string      `json:"exported_file,omitempty"`
}

// EntityListing is a summary row for entity listings and search.
type EntityListing struct {
	Name            string   `json:"name"`
	Labels          []string `json:"labels"`
	ConnectionCount int      `json:"connection_count"`
}

// MetricValue is a HAS_METRIC measurement attached to an entity.
type MetricValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// RelationshipGroup is a (type, counterpart) pair with its edge count,
// used by entity summaries.
type RelationshipGroup struct {
	RelType     string   `json:"relationship_type"`
	OtherName   string   `json:"other_name"`
	OtherLabels []string `json:"other_labels"`
	Count       int      `json:"count"`
}

// EntitySummary is a comprehensive read of one entity: the record itself,
// grouped outgoing and incoming relationships, and attached metrics.
type EntitySummary struct {
	Entity   *EntityRecord       `json:"entity"`
	Outgoing []RelationshipGroup `json:"outgoing_relationships"`
	Incoming []RelationshipGroup `json:"incoming_relationships"`
	Metrics  []MetricValue       `json:"metrics"`
}

// GraphStore is the contract every graph backend satisfies. Writes are
// idempotent merge-by-key upserts so concurrent ingestion needs no
// application-level locking. Reads on a missing focus entity return
// ErrEntityNotFound; empty results are valid and come back as empty
// slices, never nil.
type GraphStore interface {
	// UpsertEntity merges an entity by name key and returns its store ID.
	// Attribute merge is last-write-wins per key; attributes are never deleted.
	UpsertEntity(ctx context.Context, name string, labels []string, attrs map[string]any) (int64, error)

	// UpsertRelationship merges an edge keyed by (from, to, type). Both
	// endpoints are created if missing.
	UpsertRelationship(ctx context.Context, from, to, relType string, attrs map[string]any) error

	Entity(ctx context.Context, name string) (*EntityRecord, error)
	EntitySummary(ctx context.Context, name string) (*EntitySummary, error)
	Neighbors(ctx context.Context, name string, maxHops int) ([]Neighbor, error)
	Relationships(ctx context.Context, name string) ([]RelationshipRecord, error)
	AggregateStats(ctx context.Context, name string) (*EntityStats, error)
	GlobalMetrics(ctx context.Context) (*GraphMetrics, error)

	// ConnectionCounts returns the direct connection count of every
	// entity, keyed by display name. Used for anomaly detection.
	ConnectionCounts(ctx context.Context) (map[string]int, error)

	RiskFactors(ctx context.Context, name string) ([]RiskFactor, error)
	Opportunities(ctx context.Context, name string) (*Opportunities, error)

	// ExportSegment returns the subgraph within depth hops of the focus
	// entity in a visualization-friendly shape.
	ExportSegment(ctx context.Context, name string, depth int) (*GraphSegment, error)

	ListEntities(ctx context.Context, limit int) ([]EntityListing, error)

	// Reset removes every node and edge. Destructive, test and demo use only.
	Reset(ctx context.Context) error

	Close(ctx context.Context) error
}

// NormalizeEntityName trims the name and collapses internal whitespace
// runs to single spaces, preserving display casing.
func NormalizeEntityName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// EntityKey derives the merge key for an entity name. Names differing
// only in case or whitespace map to the same key, so they merge into one
// entity instead of creating duplicates.
func EntityKey(name string) string {
	return strings.ToLower(NormalizeEntityName(name))
}
