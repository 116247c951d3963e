package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.Backend != "memory" {
		t.Errorf("store backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.AI.Backend != "ollama" {
		t.Errorf("ai backend = %q, want ollama", cfg.AI.Backend)
	}
	if cfg.AI.TimeoutSeconds != 120 {
		t.Errorf("ai timeout = %d, want 120", cfg.AI.TimeoutSeconds)
	}
	if cfg.Ingest.MaxTokens != 600 {
		t.Errorf("max tokens = %d, want 600", cfg.Ingest.MaxTokens)
	}
	if cfg.ReportDir != "reports" {
		t.Errorf("report dir = %q, want reports", cfg.ReportDir)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
store:
  backend: neo4j
  uri: bolt://graph:7687
ai:
  timeout_seconds: 30
ingest:
  max_tokens: 300
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.Backend != "neo4j" {
		t.Errorf("store backend = %q, want neo4j", cfg.Store.Backend)
	}
	if cfg.Store.URI != "bolt://graph:7687" {
		t.Errorf("store uri = %q", cfg.Store.URI)
	}
	if cfg.AI.TimeoutSeconds != 30 {
		t.Errorf("ai timeout = %d, want 30", cfg.AI.TimeoutSeconds)
	}
	// Fields the file omits keep their defaults.
	if cfg.AI.ReasoningModel != "qwen3:14b" {
		t.Errorf("reasoning model = %q, want default", cfg.AI.ReasoningModel)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("store backend = %q, want memory", cfg.Store.Backend)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("store:\n  backend: memory\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv("STORE_BACKEND", "neo4j")
	t.Setenv("NEO4J_PASSWORD", "secret")
	t.Setenv("AI_TIMEOUT_SECONDS", "45")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.Backend != "neo4j" {
		t.Errorf("store backend = %q, want env override neo4j", cfg.Store.Backend)
	}
	if cfg.Store.Password != "secret" {
		t.Errorf("password not taken from environment")
	}
	if cfg.AI.TimeoutSeconds != 45 {
		t.Errorf("ai timeout = %d, want 45", cfg.AI.TimeoutSeconds)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown store backend", map[string]string{"STORE_BACKEND": "postgres"}},
		{"unknown ai backend", map[string]string{"AI_BACKEND": "bedrock"}},
		{"zero timeout", map[string]string{"AI_TIMEOUT_SECONDS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Fatal("Load() accepted invalid configuration")
			} else if !strings.Contains(err.Error(), "invalid configuration") {
				t.Errorf("Load() error = %v, want validation failure", err)
			}
		})
	}
}
