package graph

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/strategraph/strategraph/pkg/ai"
	"github.com/strategraph/strategraph/pkg/loader"
	"github.com/strategraph/strategraph/pkg/store/memory"
)

type stubExtractClient struct {
	response string
	err      error
	calls    atomic.Int64
}

func (c *stubExtractClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return c.response, c.err
}

func (c *stubExtractClient) GenerateCompletionWithFormat(
	ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption,
) error {
	c.calls.Add(1)
	if c.err != nil {
		return c.err
	}
	return json.Unmarshal([]byte(c.response), out)
}

func (c *stubExtractClient) GenerateImageDescription(ctx context.Context, prompt string, image loader.GraphBase64) (string, error) {
	return c.response, c.err
}

func (c *stubExtractClient) ResetMetrics() {}

func (c *stubExtractClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func newIngestClient(t *testing.T) *GraphClient {
	t.Helper()
	g, err := NewGraphClient(NewGraphClientParams{
		TokenEncoder:       "cl100k_base",
		ParallelFiles:      2,
		ParallelAiRequests: 2,
		MaxRetries:         1,
	})
	if err != nil {
		t.Fatalf("NewGraphClient() error = %v", err)
	}
	return g
}

func textFile(id, text string) loader.GraphFile {
	return loader.GraphFile{
		ID:        id,
		FilePath:  id,
		MaxTokens: 200,
		Loader:    &mockLoader{text: text},
	}
}

func TestIngestDocument(t *testing.T) {
	// Duplicate triplet differs only in casing; the empty-subject one
	// must be dropped before writing.
	client := &stubExtractClient{response: `{"triplets":[
		{"subject":"TechCorp","subject_type":"COMPANY","predicate":"OPERATES_IN","object":"Enterprise Cloud","object_type":"MARKET","attributes":[{"key":"growth_potential","value":"0.9"}],"strength":0.8},
		{"subject":"techcorp","subject_type":"COMPANY","predicate":"OPERATES_IN","object":"enterprise cloud","object_type":"MARKET","attributes":[],"strength":0.9},
		{"subject":"TechCorp","subject_type":"COMPANY","predicate":"HAS_RISK","object":"Supply Shortage","object_type":"RISK","attributes":[{"key":"level","value":"0.6"}],"strength":0.7},
		{"subject":"","subject_type":"COMPANY","predicate":"HAS_RISK","object":"Ghost","object_type":"RISK","attributes":[],"strength":0.5}
	]}`}

	ctx := context.Background()
	st := memory.NewMemoryStore(memory.NewMemoryStoreParams{})
	g := newIngestClient(t)

	result, err := g.IngestDocument(ctx, textFile("report.txt", "TechCorp expanded into the enterprise cloud market."), client, st)
	if err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}

	if result.Units != 1 {
		t.Errorf("units = %d, want 1", result.Units)
	}
	if result.Triplets != 2 {
		t.Errorf("triplets = %d, want 2 after dedupe and filtering", result.Triplets)
	}
	if result.Entities != 3 {
		t.Errorf("entities = %d, want 3", result.Entities)
	}
	if result.Relationships != 2 {
		t.Errorf("relationships = %d, want 2", result.Relationships)
	}

	metrics, err := st.GlobalMetrics(ctx)
	if err != nil {
		t.Fatalf("GlobalMetrics() error = %v", err)
	}
	if metrics.NodeCount != 3 || metrics.RelationshipCount != 2 {
		t.Errorf("graph has %d nodes %d rels, want 3 and 2", metrics.NodeCount, metrics.RelationshipCount)
	}

	market, err := st.Entity(ctx, "Enterprise Cloud")
	if err != nil {
		t.Fatalf("Entity() error = %v", err)
	}
	if got := market.Attributes["growth_potential"]; got != 0.9 {
		t.Errorf("growth_potential = %v, want parsed float 0.9", got)
	}
	if len(market.Labels) != 1 || market.Labels[0] != "Market" {
		t.Errorf("labels = %v, want [Market]", market.Labels)
	}
}

func TestIngestDocumentEmptyText(t *testing.T) {
	client := &stubExtractClient{response: `{"triplets":[]}`}
	st := memory.NewMemoryStore(memory.NewMemoryStoreParams{})
	g := newIngestClient(t)

	_, err := g.IngestDocument(context.Background(), textFile("empty.txt", ""), client, st)
	if err == nil || !strings.Contains(err.Error(), "no extractable text") {
		t.Fatalf("IngestDocument() error = %v, want no-extractable-text failure", err)
	}
	if n := client.calls.Load(); n != 0 {
		t.Errorf("model called %d times for empty input, want 0", n)
	}
}

func TestIngestDocuments(t *testing.T) {
	client := &stubExtractClient{response: `{"triplets":[
		{"subject":"TechCorp","subject_type":"COMPANY","predicate":"PARTNERED_WITH","object":"GlobalNet","object_type":"COMPANY","attributes":[],"strength":0.6}
	]}`}

	ctx := context.Background()
	st := memory.NewMemoryStore(memory.NewMemoryStoreParams{})
	g := newIngestClient(t)

	files := []loader.GraphFile{
		textFile("a.txt", "TechCorp partnered with GlobalNet."),
		textFile("b.txt", "The partnership was renewed this year."),
	}

	results, err := g.IngestDocuments(ctx, files, client, st)
	if err != nil {
		t.Fatalf("IngestDocuments() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for i, res := range results {
		if res == nil || res.FileID != files[i].ID {
			t.Errorf("result %d = %+v, want aligned with input order", i, res)
		}
	}

	// Both files wrote the same triplet; upserts are idempotent.
	metrics, err := st.GlobalMetrics(ctx)
	if err != nil {
		t.Fatalf("GlobalMetrics() error = %v", err)
	}
	if metrics.NodeCount != 2 || metrics.RelationshipCount != 1 {
		t.Errorf("graph has %d nodes %d rels, want 2 and 1", metrics.NodeCount, metrics.RelationshipCount)
	}
}

func TestDedupeTriplets(t *testing.T) {
	triplets := []extractTriplet{
		{
			Subject: "TechCorp", Predicate: "HAS_RISK", Object: "Churn",
			Attributes: []tripletAttribute{{Key: "level", Value: "0.4"}},
			Strength:   0.5,
		},
		{
			Subject: " techcorp ", Predicate: "has_risk", Object: "CHURN",
			Attributes: []tripletAttribute{
				{Key: "level", Value: "0.9"},
				{Key: "description", Value: "customer attrition"},
			},
			Strength: 0.8,
		},
		{Subject: "TechCorp", Predicate: "HAS_RISK", Object: "Outage"},
	}

	out := dedupeTriplets(triplets)
	if len(out) != 2 {
		t.Fatalf("dedupe kept %d triplets, want 2", len(out))
	}

	merged := out[0]
	if merged.Strength != 0.8 {
		t.Errorf("strength = %v, want max 0.8", merged.Strength)
	}
	if len(merged.Attributes) != 2 {
		t.Fatalf("attributes = %+v, want level kept and description added", merged.Attributes)
	}
	// First occurrence wins for existing keys.
	if merged.Attributes[0].Key != "level" || merged.Attributes[0].Value != "0.4" {
		t.Errorf("level attribute = %+v, want original 0.4", merged.Attributes[0])
	}
	if merged.Attributes[1].Key != "description" {
		t.Errorf("second attribute = %+v, want description", merged.Attributes[1])
	}
}
