package chartpng

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"wsntrace/pkg/models"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if !bytes.HasPrefix(data, pngMagic) {
		t.Fatalf("%s is not a PNG", path)
	}
}

func TestWriteReportSkipsEmptyBuckets(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	w, err := NewWriter(Config{Dir: dir, Width: 6, Height: 4})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	loss := -50.0
	rr := models.ComparisonRow{Source: "1", Destination: "2", CountBaseline: 4, CountAttack: 2, Delta: -2, LossPct: &loss, IsRootReceiverPair: true, Bucket: models.BucketRootReceiver}
	mal := models.ComparisonRow{Source: "11", Destination: "1", CountAttack: 3, Delta: 3, NewTraffic: true, InvolvesMalicious: true, Bucket: models.BucketMalicious}
	report := &models.Report{
		BaselineRun:   "baseline",
		AttackRun:     "attack",
		MaliciousNode: "11",
		Comparison: models.Comparison{
			Rows:              []models.ComparisonRow{rr, mal},
			RootReceiver:      []models.ComparisonRow{rr},
			Malicious:         []models.ComparisonRow{mal},
			TotalPairs:        2,
			MaliciousSharePct: 50,
		},
	}
	if err := w.WriteReport(context.Background(), report); err != nil {
		t.Fatalf("write: %v", err)
	}

	files := w.ComparisonFiles()
	assertPNG(t, files[models.BucketRootReceiver])
	assertPNG(t, files[models.BucketMalicious])
	if _, err := os.Stat(files[models.BucketOther]); !os.IsNotExist(err) {
		t.Fatalf("expected no chart for empty other bucket, stat err=%v", err)
	}
}

func TestWriteReportRemovesChartOfEmptiedBucket(t *testing.T) {
	w, err := NewWriter(Config{Dir: t.TempDir(), Width: 6, Height: 4})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	other := models.ComparisonRow{Source: "5", Destination: "6", CountBaseline: 2, CountAttack: 2, Bucket: models.BucketOther}
	first := &models.Report{
		BaselineRun: "baseline",
		AttackRun:   "attack",
		Comparison:  models.Comparison{Rows: []models.ComparisonRow{other}, Other: []models.ComparisonRow{other}, TotalPairs: 1},
	}
	if err := w.WriteReport(context.Background(), first); err != nil {
		t.Fatalf("first write: %v", err)
	}
	path := w.ComparisonFiles()[models.BucketOther]
	assertPNG(t, path)

	second := &models.Report{BaselineRun: "baseline", AttackRun: "attack"}
	if err := w.WriteReport(context.Background(), second); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected chart of emptied bucket removed, stat err=%v", err)
	}
}

func TestWriteRanked(t *testing.T) {
	w, err := NewWriter(Config{Dir: t.TempDir(), Width: 6, Height: 4})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	report := &models.RankedReport{
		Run: "attack",
		Pairs: []models.PairCount{
			{Source: "1", Destination: "2", Count: 9},
			{Source: "3", Destination: "1", Count: 4},
		},
	}
	if err := w.WriteRanked(context.Background(), report); err != nil {
		t.Fatalf("write ranked: %v", err)
	}
	assertPNG(t, w.RankedFile("attack"))
}

func TestWriteRankedEmptyIsNoop(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never")
	w, _ := NewWriter(Config{Dir: dir})
	if err := w.WriteRanked(context.Background(), &models.RankedReport{Run: "x"}); err != nil {
		t.Fatalf("write ranked: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected no directory for empty ranking")
	}
}
