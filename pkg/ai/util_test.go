package ai

import (
	"encoding/json"
	"testing"
)

type extractedEntity struct {
	Name  string `json:"name"`
	Label string `json:"label,omitempty"`
}

func TestUnmarshalFlexibleObjectVariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  extractedEntity
	}{
		{
			name:  "valid json object",
			input: `{"name":"TechCorp","label":"Company"}`,
			want:  extractedEntity{Name: "TechCorp", Label: "Company"},
		},
		{
			name:  "unquoted key and single quotes",
			input: `{name: 'TechCorp'}`,
			want:  extractedEntity{Name: "TechCorp"},
		},
		{
			name:  "trailing comma",
			input: `{"name":"TechCorp",}`,
			want:  extractedEntity{Name: "TechCorp"},
		},
		{
			name:  "missing endbracket",
			input: `{"name":"TechCorp`,
			want:  extractedEntity{Name: "TechCorp"},
		},
		{
			name:  "double-encoded object",
			input: `"{\"name\":\"TechCorp\"}"`,
			want:  extractedEntity{Name: "TechCorp"},
		},
		{
			name:  "stringified invalid json object",
			input: `"{name: 'TechCorp'}"`,
			want:  extractedEntity{Name: "TechCorp"},
		},
		{
			name:  "duplicate leading brace",
			input: "{\n{\n  \"name\": \"TechCorp\"\n}\n",
			want:  extractedEntity{Name: "TechCorp"},
		},
		{
			name:  "duplicate leading brace no newlines",
			input: `{ { "name": "TechCorp" }`,
			want:  extractedEntity{Name: "TechCorp"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got extractedEntity
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestUnmarshalFlexibleArrayVariants(t *testing.T) {
	input := `[{name:'TechCorp'},{name:'GlobalNet',}]`
	var got []extractedEntity
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "TechCorp" || got[1].Name != "GlobalNet" {
		t.Fatalf("UnmarshalFlexible() got = %+v, want TechCorp and GlobalNet", got)
	}
}

func TestUnmarshalFlexibleRejectsGarbage(t *testing.T) {
	var got extractedEntity
	if err := UnmarshalFlexible("no json to be found here (", &got); err == nil {
		t.Fatal("UnmarshalFlexible() succeeded on unrepairable input")
	}
}

func TestGenerateSchema(t *testing.T) {
	type response struct {
		Entities []extractedEntity `json:"entities" jsonschema_description:"Entities found in the text"`
	}

	for _, value := range []any{response{}, &response{}} {
		schema := GenerateSchema(value)

		data, err := json.Marshal(schema)
		if err != nil {
			t.Fatalf("marshal schema: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal schema: %v", err)
		}

		props, ok := decoded["properties"].(map[string]any)
		if !ok {
			t.Fatalf("schema has no properties: %s", data)
		}
		if _, ok := props["entities"]; !ok {
			t.Errorf("schema missing entities property: %s", data)
		}
		if decoded["additionalProperties"] != false {
			t.Errorf("additionalProperties = %v, want false", decoded["additionalProperties"])
		}
	}
}
