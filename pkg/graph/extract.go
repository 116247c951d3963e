package graph

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/strategraph/strategraph/pkg/ai"
	"github.com/strategraph/strategraph/pkg/loader"
)

var defaultEntityTypes = []string{
	"COMPANY", "MARKET", "PRODUCT", "REGION", "RISK",
	"METRIC", "TREND", "STRENGTH", "PERSON", "ORGANIZATION",
}

var defaultRelationTypes = []string{
	"COMPETES_WITH", "OPERATES_IN", "PARTNERED_WITH", "HAS_RISK",
	"HAS_METRIC", "HAS_STRENGTH", "OFFERS", "LOCATED_IN",
	"SUPPLIES", "ACQUIRED", "EMPLOYS", "INFLUENCED_BY",
}

type tripletAttribute struct {
	Key   string `json:"key" jsonschema_description:"Attribute name in snake_case, e.g. level, value, unit, description"`
	Value string `json:"value" jsonschema_description:"Attribute value as a string; numbers written in plain decimal notation"`
}

type extractTriplet struct {
	Subject     string             `json:"subject" jsonschema_description:"Name of the subject entity exactly as written in the text"`
	SubjectType string             `json:"subject_type" jsonschema_description:"One of the provided entity types"`
	Predicate   string             `json:"predicate" jsonschema_description:"Relationship type in UPPER_SNAKE_CASE, taken from the provided vocabulary when one fits"`
	Object      string             `json:"object" jsonschema_description:"Name of the object entity exactly as written in the text"`
	ObjectType  string             `json:"object_type" jsonschema_description:"One of the provided entity types"`
	Attributes  []tripletAttribute `json:"attributes" jsonschema_description:"Numeric or textual attributes of the object stated in the text; empty when none"`
	Strength    float64            `json:"strength" jsonschema_description:"Confidence in the relationship between 0.0 and 1.0"`
}

type extractResponse struct {
	Triplets []extractTriplet `json:"triplets" jsonschema_description:"Business facts identified in the text"`
}

func extractFromUnit(
	ctx context.Context,
	unit processUnit,
	file loader.GraphFile,
	client ai.GraphAIClient,
) ([]extractTriplet, error) {
	entityTypes := file.CustomEntities
	if len(entityTypes) == 0 {
		entityTypes = defaultEntityTypes
	}

	systemPrompt := fmt.Sprintf(
		ai.TripletPrompt,
		strings.Join(entityTypes, ","),
		filepath.Base(file.FilePath),
		strings.Join(entityTypes, ","),
		strings.Join(defaultRelationTypes, ","),
	)

	var res extractResponse
	err := client.GenerateCompletionWithFormat(
		ctx,
		"extract_business_triplets",
		"Extract subject-predicate-object business facts from a provided document.",
		unit.text,
		&res,
		ai.WithSystemPrompts(systemPrompt),
	)
	if err != nil {
		return nil, err
	}

	triplets := make([]extractTriplet, 0, len(res.Triplets))
	for _, t := range res.Triplets {
		t.Subject = strings.TrimSpace(t.Subject)
		t.Object = strings.TrimSpace(t.Object)
		if t.Subject == "" || t.Object == "" {
			continue
		}
		triplets = append(triplets, t)
	}

	return triplets, nil
}

// attributeMap converts extracted key/value pairs into store attributes,
// parsing numeric values where possible.
func attributeMap(attrs []tripletAttribute) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for _, a := range attrs {
		key := strings.TrimSpace(a.Key)
		if key == "" {
			continue
		}
		value := strings.TrimSpace(a.Value)
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			out[key] = f
		} else {
			out[key] = value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeLabel turns an extracted entity type into a graph label,
// e.g. "COMPANY" becomes "Company".
func normalizeLabel(entityType string) string {
	entityType = strings.TrimSpace(entityType)
	if entityType == "" {
		return "Entity"
	}
	parts := strings.Split(strings.ToLower(entityType), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "")
}
