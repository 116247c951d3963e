package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/strategraph/strategraph/pkg/logger"
)

// Write persists the report as indented JSON into dir, named
// report_<entity>_<timestamp>.json. The file is written to a temporary
// location first and renamed into place, so readers never observe a
// truncated report. Returns the final path.
func Write(r *Report, dir string) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}

	if dir == "" {
		dir = "reports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	generated, err := time.Parse(time.RFC3339, r.GenerationDate)
	if err != nil {
		generated = time.Now()
	}
	filename := fmt.Sprintf("report_%s_%s.json",
		strings.ReplaceAll(r.Entity, " ", "_"),
		generated.Format("20060102_150405"))
	path := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary report file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close report file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to place report file: %w", err)
	}

	logger.Info("[Report] report written", "path", path, "strategies", len(r.Strategies))
	return path, nil
}

// Load reads a previously written report from disk.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &r, nil
}
