package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds pipeline counters on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	linesRead      *prometheus.CounterVec
	recordsEmitted *prometheus.CounterVec
	linesSkipped   *prometheus.CounterVec
	combinedRows   *prometheus.CounterVec
	pairsCompared  *prometheus.CounterVec
	sinkWrites     *prometheus.CounterVec
}

// New creates and registers the pipeline counters.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		linesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wsntrace_lines_read_total",
			Help: "Input lines read per log.",
		}, []string{"log"}),
		recordsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wsntrace_records_emitted_total",
			Help: "Records produced per log.",
		}, []string{"log"}),
		linesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wsntrace_lines_skipped_total",
			Help: "Input lines dropped per log and reason.",
		}, []string{"log", "reason"}),
		combinedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wsntrace_combined_rows_total",
			Help: "Rows written to combined tables per alignment strategy.",
		}, []string{"strategy"}),
		pairsCompared: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wsntrace_pairs_compared_total",
			Help: "Compared node pairs per bucket.",
		}, []string{"bucket"}),
		sinkWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wsntrace_sink_writes_total",
			Help: "Report sink writes per sink and result.",
		}, []string{"sink", "result"}),
	}
	m.registry.MustRegister(m.linesRead, m.recordsEmitted, m.linesSkipped, m.combinedRows, m.pairsCompared, m.sinkWrites)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// LinesRead adds n read lines for a log.
func (m *Metrics) LinesRead(log string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.linesRead.WithLabelValues(log).Add(float64(n))
}

// RecordsEmitted adds n produced records for a log.
func (m *Metrics) RecordsEmitted(log string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsEmitted.WithLabelValues(log).Add(float64(n))
}

// LinesSkipped adds n dropped lines for a log and reason.
func (m *Metrics) LinesSkipped(log, reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.linesSkipped.WithLabelValues(log, reason).Add(float64(n))
}

// CombinedRows adds n combined rows for a strategy.
func (m *Metrics) CombinedRows(strategy string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.combinedRows.WithLabelValues(strategy).Add(float64(n))
}

// PairsCompared adds n compared pairs for a bucket.
func (m *Metrics) PairsCompared(bucket string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.pairsCompared.WithLabelValues(bucket).Add(float64(n))
}

// SinkWrite records the outcome of one sink write.
func (m *Metrics) SinkWrite(sink string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sinkWrites.WithLabelValues(sink, result).Inc()
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
