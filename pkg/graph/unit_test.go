package graph

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/strategraph/strategraph/pkg/loader"
)

func TestSplitIntoSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty input",
			text: "",
			want: []string(nil),
		},
		{
			name: "single sentence",
			text: "TechCorp operates in the cloud market.",
			want: []string{"TechCorp operates in the cloud market."},
		},
		{
			name: "multiple sentences",
			text: "Revenue grew last quarter. Margins are under pressure! Will the trend hold?",
			want: []string{
				"Revenue grew last quarter.",
				"Margins are under pressure!",
				"Will the trend hold?",
			},
		},
		{
			name: "blank lines as boundaries",
			text: "Executive summary\n\nRisks remain elevated.\n\nOutlook",
			want: []string{
				"Executive summary",
				"Risks remain elevated.",
				"Outlook",
			},
		},
		{
			name: "multi-line sentence",
			text: "The company expanded its\noperations into three\nnew regions.",
			want: []string{"The company expanded its operations into three new regions."},
		},
		{
			name: "numbered list markers",
			text: "1. Improve operating margins.\n2. Expand into new markets.",
			want: []string{
				"1. Improve operating margins.",
				"2. Expand into new markets.",
			},
		},
		{
			name: "closing quote stays attached",
			text: `The CEO said "We will grow." Analysts agreed.`,
			want: []string{
				`The CEO said "We will grow."`,
				"Analysts agreed.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitIntoSentences(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitIntoSentences() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestGetUnitsFromText(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		maxTokens int
		want      []processUnit
	}{
		{
			name:      "single sentence single unit",
			text:      "TechCorp leads the market.",
			maxTokens: 10,
			want: []processUnit{
				{
					fileID: "report.txt",
					start:  0,
					end:    1,
					text:   "TechCorp leads the market.",
				},
			},
		},
		{
			name:      "multiple sentences under limit",
			text:      "First sentence. Second sentence.",
			maxTokens: 20,
			want: []processUnit{
				{
					fileID: "report.txt",
					start:  0,
					end:    2,
					text:   "First sentence. Second sentence.",
				},
			},
		},
		{
			name:      "sentences split by token limit",
			text:      "First sentence. Second sentence. Third sentence.",
			maxTokens: 1,
			want: []processUnit{
				{
					fileID: "report.txt",
					start:  0,
					end:    1,
					text:   "First sentence.",
				},
				{
					fileID: "report.txt",
					start:  1,
					end:    2,
					text:   "Second sentence.",
				},
				{
					fileID: "report.txt",
					start:  2,
					end:    3,
					text:   "Third sentence.",
				},
			},
		},
		{
			name:      "empty text",
			text:      "",
			maxTokens: 10,
			want:      []processUnit{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := loader.GraphFile{
				ID:        "report.txt",
				FilePath:  "report.txt",
				MaxTokens: tt.maxTokens,
				Loader:    &mockLoader{text: tt.text},
			}

			got, err := getUnitsFromText(context.Background(), file, "cl100k_base")
			if err != nil {
				t.Fatalf("getUnitsFromText() error = %v", err)
			}

			if len(got) != len(tt.want) {
				t.Errorf("getUnitsFromText() returned %d units, want %d", len(got), len(tt.want))
				return
			}

			for i, unit := range got {
				expected := tt.want[i]

				if unit.fileID != expected.fileID {
					t.Errorf("unit[%d].fileID = %s, want %s", i, unit.fileID, expected.fileID)
				}
				if unit.start != expected.start {
					t.Errorf("unit[%d].start = %d, want %d", i, unit.start, expected.start)
				}
				if unit.end != expected.end {
					t.Errorf("unit[%d].end = %d, want %d", i, unit.end, expected.end)
				}
				if strings.TrimSpace(unit.text) != strings.TrimSpace(expected.text) {
					t.Errorf("unit[%d].text = %q, want %q", i, unit.text, expected.text)
				}
			}
		})
	}
}

type mockLoader struct {
	text string
}

func (m *mockLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	return []byte(m.text), nil
}

func (m *mockLoader) GetBase64(ctx context.Context, file loader.GraphFile) (loader.GraphBase64, error) {
	return loader.GraphBase64{}, nil
}

func TestIsCSVHeader(t *testing.T) {
	tests := []struct {
		name string
		rows []string
		want bool
	}{
		{
			name: "single row returns false",
			rows: []string{"a,b,c"},
			want: false,
		},
		{
			name: "text header over numeric data",
			rows: []string{"Company,Employees,Founded", "Acme,1200,1998", "Globex,800,2004"},
			want: true,
		},
		{
			name: "business header vocabulary",
			rows: []string{"Region,Revenue,Risk", "EMEA,High,Low", "APAC,Medium,Medium"},
			want: true,
		},
		{
			name: "all numeric rows are data",
			rows: []string{"1,2,3", "4,5,6", "7,8,9"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isCSVHeader(tt.rows)
			if got != tt.want {
				t.Errorf("isCSVHeader() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransformCSVIntoUnits(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		maxTokens  int
		wantChunks int
		wantHeader string
	}{
		{
			name:       "small CSV fits in one chunk",
			text:       "Company,Revenue\nAcme,100\nGlobex,200",
			maxTokens:  100,
			wantChunks: 1,
			wantHeader: "Company,Revenue",
		},
		{
			name:       "CSV splits with header repeated",
			text:       "Company,Revenue\nAcme,100\nGlobex,200\nInitech,300\nUmbrella,400",
			maxTokens:  5,
			wantChunks: 4,
			wantHeader: "Company,Revenue",
		},
		{
			name:       "single row treated as data",
			text:       "Acme,100,EMEA",
			maxTokens:  100,
			wantChunks: 1,
			wantHeader: "",
		},
		{
			name:       "empty text",
			text:       "",
			maxTokens:  100,
			wantChunks: 0,
			wantHeader: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := transformCSVIntoUnits(tt.text, "data.csv", "cl100k_base", tt.maxTokens)
			if err != nil {
				t.Fatalf("transformCSVIntoUnits() error = %v", err)
			}

			if len(got) != tt.wantChunks {
				t.Errorf("transformCSVIntoUnits() returned %d chunks, want %d", len(got), tt.wantChunks)
			}

			if tt.wantHeader != "" {
				for i, chunk := range got {
					if !strings.HasPrefix(chunk.text, tt.wantHeader) {
						t.Errorf("chunk[%d] should start with header %q, got %q", i, tt.wantHeader, chunk.text)
					}
				}
			}
		})
	}
}

func TestGetUnitsFromTextCSV(t *testing.T) {
	text := "Company,Revenue,Region\nAcme,100,EMEA\nGlobex,200,APAC"

	file := loader.GraphFile{
		ID:        "data.csv",
		FilePath:  "data.csv",
		FileType:  loader.GraphFileTypeCSV,
		MaxTokens: 100,
		Loader:    &mockLoader{text: text},
	}

	got, err := getUnitsFromText(context.Background(), file, "cl100k_base")
	if err != nil {
		t.Fatalf("getUnitsFromText() error = %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("getUnitsFromText() returned %d units, want 1", len(got))
	}

	if !strings.HasPrefix(got[0].text, "Company,Revenue,Region") {
		t.Errorf("expected CSV output to start with header, got %q", got[0].text)
	}
}

func TestGetUnitsFromTextImage(t *testing.T) {
	file := loader.GraphFile{
		ID:       "chart.png",
		FilePath: "chart.png",
		FileType: loader.GraphFileTypeImage,
		Loader:   &mockLoader{text: "A bar chart showing revenue growth across regions."},
	}

	got, err := getUnitsFromText(context.Background(), file, "cl100k_base")
	if err != nil {
		t.Fatalf("getUnitsFromText() error = %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("getUnitsFromText() returned %d units, want 1", len(got))
	}
	if got[0].start != 0 || got[0].end != 1 {
		t.Errorf("image unit bounds = [%d,%d), want [0,1)", got[0].start, got[0].end)
	}
}
