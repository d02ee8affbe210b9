package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCounters(t *testing.T) {
	m := New()

	m.LinesRead("mote", 10)
	m.RecordsEmitted("mote", 7)
	m.LinesSkipped("capture", "placeholder_destination", 2)
	m.LinesSkipped("capture", "placeholder_destination", 0)
	m.PairsCompared("malicious", 1)
	m.SinkWrite("json", nil)
	m.SinkWrite("json", errors.New("disk full"))

	if got := testutil.ToFloat64(m.linesRead.WithLabelValues("mote")); got != 10 {
		t.Fatalf("expected 10 lines read, got %f", got)
	}
	if got := testutil.ToFloat64(m.recordsEmitted.WithLabelValues("mote")); got != 7 {
		t.Fatalf("expected 7 records, got %f", got)
	}
	if got := testutil.ToFloat64(m.linesSkipped.WithLabelValues("capture", "placeholder_destination")); got != 2 {
		t.Fatalf("expected 2 skipped lines, got %f", got)
	}
	if got := testutil.ToFloat64(m.pairsCompared.WithLabelValues("malicious")); got != 1 {
		t.Fatalf("expected 1 malicious pair, got %f", got)
	}
	if got := testutil.ToFloat64(m.sinkWrites.WithLabelValues("json", "error")); got != 1 {
		t.Fatalf("expected 1 failed sink write, got %f", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.LinesRead("mote", 1)
	m.SinkWrite("json", nil)
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.CombinedRows("positional", 4)

	path := filepath.Join(t.TempDir(), "out", "wsntrace.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `wsntrace_combined_rows_total{strategy="positional"} 4`) {
		t.Fatalf("unexpected textfile content: %s", data)
	}
}
