package insight

import (
	"fmt"
	"strings"

	"github.com/strategraph/strategraph/pkg/store"
)

// Significance buckets insight findings by how much weight they should
// carry in downstream risk scoring and strategy generation.
const (
	SignificanceLow    = "low"
	SignificanceMedium = "medium"
	SignificanceHigh   = "high"
)

// Severity buckets for connectivity anomalies.
const (
	SeverityModerate = "moderate"
	SeverityHigh     = "high"
	SeverityExtreme  = "extreme"
)

// Config holds the detection thresholds. Zero values fall back to the
// defaults, so a partially filled Config is valid.
type Config struct {
	// ChainMinFrequency is the minimum occurrence count for a
	// relationship chain to be reported.
	ChainMinFrequency int
	// ChainHighFrequency and ChainLowFrequency bound the significance
	// buckets: above high is "high", below low is "low".
	ChainHighFrequency int
	ChainLowFrequency  int
	// TopChains caps the number of reported chains.
	TopChains int
	// ClusterMinMembers is the minimum size of an attribute cluster.
	ClusterMinMembers int
	// AnomalyZScore, AnomalyHighZScore and AnomalyModerateZScore bound
	// anomaly severity: above AnomalyZScore is "extreme", above
	// AnomalyHighZScore is "high", the rest is "moderate". Connectivity
	// below AnomalyModerateZScore is not reported.
	AnomalyZScore         float64
	AnomalyHighZScore     float64
	AnomalyModerateZScore float64
	// CooccurrenceMinFrequency suppresses co-occurrence pairs with
	// fewer shared neighbors.
	CooccurrenceMinFrequency int
	// CooccurrenceHighFrequency and CooccurrenceMediumFrequency bound
	// correlation significance: above high is "high", above medium is
	// "medium", the rest is "low".
	CooccurrenceHighFrequency   int
	CooccurrenceMediumFrequency int
	// TopCorrelations caps the number of reported correlations.
	TopCorrelations int
	// MaxHops bounds the neighborhood considered for chains and clusters.
	MaxHops int
}

// DefaultConfig returns the standard detection thresholds.
func DefaultConfig() Config {
	return Config{
		ChainMinFrequency:           2,
		ChainHighFrequency:          10,
		ChainLowFrequency:           3,
		TopChains:                   5,
		ClusterMinMembers:           2,
		AnomalyZScore:               3.0,
		AnomalyHighZScore:           2.0,
		AnomalyModerateZScore:       1.5,
		CooccurrenceMinFrequency:    2,
		CooccurrenceHighFrequency:   5,
		CooccurrenceMediumFrequency: 3,
		TopCorrelations:             10,
		MaxHops:                     2,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ChainMinFrequency <= 0 {
		c.ChainMinFrequency = d.ChainMinFrequency
	}
	if c.ChainHighFrequency <= 0 {
		c.ChainHighFrequency = d.ChainHighFrequency
	}
	if c.ChainLowFrequency <= 0 {
		c.ChainLowFrequency = d.ChainLowFrequency
	}
	if c.TopChains <= 0 {
		c.TopChains = d.TopChains
	}
	if c.ClusterMinMembers <= 0 {
		c.ClusterMinMembers = d.ClusterMinMembers
	}
	if c.AnomalyZScore <= 0 {
		c.AnomalyZScore = d.AnomalyZScore
	}
	if c.AnomalyHighZScore <= 0 {
		c.AnomalyHighZScore = d.AnomalyHighZScore
	}
	if c.AnomalyModerateZScore <= 0 {
		c.AnomalyModerateZScore = d.AnomalyModerateZScore
	}
	if c.CooccurrenceMinFrequency <= 0 {
		c.CooccurrenceMinFrequency = d.CooccurrenceMinFrequency
	}
	if c.CooccurrenceHighFrequency <= 0 {
		c.CooccurrenceHighFrequency = d.CooccurrenceHighFrequency
	}
	if c.CooccurrenceMediumFrequency <= 0 {
		c.CooccurrenceMediumFrequency = d.CooccurrenceMediumFrequency
	}
	if c.TopCorrelations <= 0 {
		c.TopCorrelations = d.TopCorrelations
	}
	if c.MaxHops <= 0 {
		c.MaxHops = d.MaxHops
	}
	return c
}

// Stats carries the connectivity snapshot for the focus entity and the
// graph around it.
type Stats struct {
	Entity    *store.EntityRecord `json:"entity"`
	Aggregate *store.EntityStats  `json:"aggregate"`
	Global    *store.GraphMetrics `json:"global"`
}

// Chain is a pair of relationship types that occur in sequence starting
// from the focus entity.
type Chain struct {
	FirstType    string `json:"first_type"`
	SecondType   string `json:"second_type"`
	Frequency    int    `json:"frequency"`
	Significance string `json:"significance"`
}

// Cluster groups entities that carry the exact same set of attribute keys.
type Cluster struct {
	AttributeKeys []string `json:"attribute_keys"`
	Members       []string `json:"members"`
	MemberCount   int      `json:"member_count"`
}

// Cycle is a length-3 relationship loop through the focus entity.
type Cycle struct {
	Nodes    []string `json:"nodes"`
	RelTypes []string `json:"relationship_types"`
}

// Anomaly flags a focus entity whose direct connectivity deviates from
// the graph mean.
type Anomaly struct {
	Entity             string  `json:"entity"`
	ConnectionCount    int     `json:"connection_count"`
	AverageConnections float64 `json:"average_connections"`
	ZScore             float64 `json:"z_score"`
	Pattern            string  `json:"pattern"`
	Severity           string  `json:"severity"`
}

// Correlation counts how often another entity shares direct neighbors
// with the focus entity.
type Correlation struct {
	Entity1      string `json:"entity1"`
	Entity2      string `json:"entity2"`
	Frequency    int    `json:"frequency"`
	Significance string `json:"significance"`
}

// Bundle is the read-only analysis snapshot for one focus entity. All
// slices are non-nil so empty results serialize as empty lists.
type Bundle struct {
	FocusEntity  string        `json:"focus_entity"`
	Stats        Stats         `json:"stats"`
	Chains       []Chain       `json:"chains"`
	Clusters     []Cluster     `json:"clusters"`
	Cycles       []Cycle       `json:"cycles"`
	Anomalies    []Anomaly     `json:"anomalies"`
	Correlations []Correlation `json:"correlations"`
}

// Highlights renders the bundle's most significant findings as short
// plain-text lines for prompt assembly and templated rationales.
func (b *Bundle) Highlights() []string {
	var lines []string

	for _, c := range b.Chains {
		if c.Significance == SignificanceLow {
			continue
		}
		lines = append(lines, fmt.Sprintf(
			"Relationship chain %s then %s occurs %d times (%s significance)",
			c.FirstType, c.SecondType, c.Frequency, c.Significance))
	}
	for _, cy := range b.Cycles {
		lines = append(lines, fmt.Sprintf(
			"Relationship cycle: %s", strings.Join(cy.Nodes, " -> ")))
	}
	for _, a := range b.Anomalies {
		lines = append(lines, fmt.Sprintf(
			"%s has %d direct connections vs. a graph average of %.1f (%s anomaly, z-score %.2f)",
			a.Entity, a.ConnectionCount, a.AverageConnections, a.Severity, a.ZScore))
	}
	for _, corr := range b.Correlations {
		if corr.Significance == SignificanceLow {
			continue
		}
		lines = append(lines, fmt.Sprintf(
			"%s and %s share %d common connections",
			corr.Entity1, corr.Entity2, corr.Frequency))
	}

	return lines
}
