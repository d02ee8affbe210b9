package reportjson

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"wsntrace/pkg/models"
)

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	report := &models.Report{
		BaselineRun:   "baseline",
		AttackRun:     "attack",
		MaliciousNode: "11",
		Comparison: models.Comparison{
			Rows:       []models.ComparisonRow{{Source: "1", Destination: "2", CountBaseline: 3, CountAttack: 1, Bucket: models.BucketRootReceiver}},
			TotalPairs: 1,
		},
	}
	if err := w.WriteReport(context.Background(), report); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got models.Report
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.AttackRun != "attack" || got.Comparison.TotalPairs != 1 || got.Comparison.Rows[0].Source != "1" {
		t.Fatalf("unexpected report: %+v", got)
	}
}

func TestWriteRankedUsesDerivedPath(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(filepath.Join(dir, "report.json"))
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	ranked := &models.RankedReport{Run: "with blackhole", Pairs: []models.PairCount{{Source: "1", Destination: "2", Count: 4}}}
	if err := w.WriteRanked(context.Background(), ranked); err != nil {
		t.Fatalf("write ranked: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "report_ranked_with_blackhole.json")); err != nil {
		t.Fatalf("expected ranked file: %v", err)
	}
}

func TestNewWriterRejectsEmptyPath(t *testing.T) {
	if _, err := NewWriter(" "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
