package reportjson

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"wsntrace/internal/logger"
	"wsntrace/internal/output/filename"
	"wsntrace/pkg/models"
)

// Writer outputs reports as indented JSON documents.
type Writer struct {
	path string
	mu   sync.Mutex
}

// NewWriter creates a JSON report writer. Parent directories are created on demand.
func NewWriter(path string) (*Writer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("json report path is empty")
	}
	logger.Infof("Report JSON writer initialized: %s", path)
	return &Writer{path: path}, nil
}

// Name identifies the sink.
func (w *Writer) Name() string { return "json" }

// Path returns the comparison report path.
func (w *Writer) Path() string { return w.path }

// WriteReport replaces the report file with the comparison report.
func (w *Writer) WriteReport(_ context.Context, report *models.Report) error {
	return w.write(w.path, report)
}

// WriteRanked writes a run's ranking next to the report file.
func (w *Writer) WriteRanked(_ context.Context, report *models.RankedReport) error {
	return w.write(RankedPath(w.path, report.Run), report)
}

// Close releases resources.
func (w *Writer) Close() error {
	return nil
}

// RankedPath derives the ranking file for run from the report path.
func RankedPath(reportPath, run string) string {
	ext := filepath.Ext(reportPath)
	base := strings.TrimSuffix(reportPath, ext)
	if ext == "" {
		ext = ".json"
	}
	return base + "_ranked_" + filename.Safe(run) + ext
}

func (w *Writer) write(path string, v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
