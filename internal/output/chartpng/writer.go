package chartpng

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"wsntrace/internal/logger"
	"wsntrace/internal/output/filename"
	"wsntrace/pkg/models"
)

var (
	baselineColor  = color.RGBA{R: 0x4c, G: 0x72, B: 0xb0, A: 0xff}
	attackColor    = color.RGBA{R: 0xdd, G: 0x84, B: 0x52, A: 0xff}
	maliciousColor = color.RGBA{R: 0x81, G: 0x72, B: 0xb3, A: 0xff}
)

// Config configures the chart writer. Width and Height are in inches.
type Config struct {
	Dir    string
	Width  float64
	Height float64
}

// Writer renders comparison and ranking bar charts as PNG files.
type Writer struct {
	dir    string
	width  vg.Length
	height vg.Length
}

// NewWriter creates a chart writer rooted at cfg.Dir.
func NewWriter(cfg Config) (*Writer, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("chart directory is empty")
	}
	if cfg.Width <= 0 {
		cfg.Width = 12
	}
	if cfg.Height <= 0 {
		cfg.Height = 8
	}
	return &Writer{
		dir:    cfg.Dir,
		width:  vg.Length(cfg.Width) * vg.Inch,
		height: vg.Length(cfg.Height) * vg.Inch,
	}, nil
}

// Name identifies the sink.
func (w *Writer) Name() string { return "charts" }

// Close releases resources.
func (w *Writer) Close() error { return nil }

// ComparisonFiles returns the chart paths WriteReport may produce, keyed by bucket.
func (w *Writer) ComparisonFiles() map[string]string {
	return map[string]string{
		models.BucketRootReceiver: filepath.Join(w.dir, "comparison_root_receiver.png"),
		models.BucketOther:        filepath.Join(w.dir, "comparison_other.png"),
		models.BucketMalicious:    filepath.Join(w.dir, "comparison_malicious.png"),
	}
}

// RankedFile returns the chart path WriteRanked produces for run.
func (w *Writer) RankedFile(run string) string {
	return filepath.Join(w.dir, "ranked_"+filename.Safe(run)+".png")
}

// WriteReport draws one chart per non-empty bucket. The chart of an empty
// bucket is removed so no earlier comparison is left behind.
func (w *Writer) WriteReport(_ context.Context, report *models.Report) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create chart directory: %w", err)
	}
	files := w.ComparisonFiles()
	cmp := report.Comparison
	vs := report.BaselineRun + " vs " + report.AttackRun

	charts := []struct {
		bucket string
		rows   []models.ComparisonRow
		draw   func(path string) error
	}{
		{models.BucketRootReceiver, cmp.RootReceiver, func(path string) error {
			return w.groupedChart("Root/receiver pairs: "+vs, report, cmp.RootReceiver, path)
		}},
		{models.BucketOther, cmp.Other, func(path string) error {
			return w.groupedChart("Other pairs: "+vs, report, cmp.Other, path)
		}},
		{models.BucketMalicious, cmp.Malicious, func(path string) error {
			return w.maliciousChart(report, path)
		}},
	}
	for _, c := range charts {
		path := files[c.bucket]
		if len(c.rows) == 0 {
			if err := removeStale(path); err != nil {
				return err
			}
			continue
		}
		if err := c.draw(path); err != nil {
			return err
		}
	}
	return nil
}

func removeStale(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale chart %s: %w", path, err)
	}
	return nil
}

// WriteRanked draws the run's pairs as horizontal bars, busiest on top.
func (w *Writer) WriteRanked(_ context.Context, report *models.RankedReport) error {
	if len(report.Pairs) == 0 {
		logger.Warnf("No pairs to chart for run %s", report.Run)
		return removeStale(w.RankedFile(report.Run))
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create chart directory: %w", err)
	}

	n := len(report.Pairs)
	values := make(plotter.Values, n)
	names := make([]string, n)
	for i, pc := range report.Pairs {
		// Index 0 is drawn at the bottom of the axis.
		values[n-1-i] = float64(pc.Count)
		names[n-1-i] = pc.Key().String()
	}

	p := plot.New()
	p.Title.Text = "Packets per pair: " + report.Run
	p.X.Label.Text = "Packets"
	p.X.Min = 0

	bars, err := plotter.NewBarChart(values, barWidth(w.height, n, 1))
	if err != nil {
		return fmt.Errorf("failed to build ranked bars: %w", err)
	}
	bars.Horizontal = true
	bars.Color = baselineColor
	p.Add(bars)
	p.NominalY(names...)

	if err := p.Save(w.width, w.height, w.RankedFile(report.Run)); err != nil {
		return fmt.Errorf("failed to save ranked chart: %w", err)
	}
	return nil
}

func (w *Writer) groupedChart(title string, report *models.Report, rows []models.ComparisonRow, path string) error {
	baseline := make(plotter.Values, len(rows))
	attack := make(plotter.Values, len(rows))
	names := make([]string, len(rows))
	labels := plotter.XYLabels{
		XYs:    make(plotter.XYs, len(rows)),
		Labels: make([]string, len(rows)),
	}
	for i, r := range rows {
		baseline[i] = float64(r.CountBaseline)
		attack[i] = float64(r.CountAttack)
		names[i] = r.Key().String()
		labels.XYs[i] = plotter.XY{X: float64(i), Y: math.Max(baseline[i], attack[i])}
		labels.Labels[i] = r.Label()
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Packets"
	p.Y.Min = 0

	width := barWidth(w.width, len(rows), 2)
	bb, err := plotter.NewBarChart(baseline, width)
	if err != nil {
		return fmt.Errorf("failed to build baseline bars: %w", err)
	}
	bb.Color = baselineColor
	bb.Offset = -width / 2

	ab, err := plotter.NewBarChart(attack, width)
	if err != nil {
		return fmt.Errorf("failed to build attack bars: %w", err)
	}
	ab.Color = attackColor
	ab.Offset = width / 2

	lbl, err := plotter.NewLabels(labels)
	if err != nil {
		return fmt.Errorf("failed to build bar labels: %w", err)
	}
	lbl.Offset = vg.Point{X: -width / 2, Y: vg.Points(3)}

	p.Add(bb, ab, lbl)
	p.Legend.Add(report.BaselineRun, bb)
	p.Legend.Add(report.AttackRun, ab)
	p.Legend.Top = true
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 6

	if err := p.Save(w.width, w.height, path); err != nil {
		return fmt.Errorf("failed to save chart %s: %w", path, err)
	}
	return nil
}

func (w *Writer) maliciousChart(report *models.Report, path string) error {
	rows := report.Comparison.Malicious
	attack := make(plotter.Values, len(rows))
	names := make([]string, len(rows))
	labels := plotter.XYLabels{
		XYs:    make(plotter.XYs, len(rows)),
		Labels: make([]string, len(rows)),
	}
	for i, r := range rows {
		attack[i] = float64(r.CountAttack)
		names[i] = r.Key().String()
		labels.XYs[i] = plotter.XY{X: float64(i), Y: attack[i]}
		labels.Labels[i] = r.Label()
	}

	p := plot.New()
	p.Title.Text = "Pairs involving node " + report.MaliciousNode + ": " + report.AttackRun
	p.Y.Label.Text = "Packets"
	p.Y.Min = 0

	width := barWidth(w.width, len(rows), 1)
	bars, err := plotter.NewBarChart(attack, width)
	if err != nil {
		return fmt.Errorf("failed to build malicious bars: %w", err)
	}
	bars.Color = maliciousColor

	lbl, err := plotter.NewLabels(labels)
	if err != nil {
		return fmt.Errorf("failed to build bar labels: %w", err)
	}
	lbl.Offset = vg.Point{Y: vg.Points(3)}

	p.Add(bars, lbl)
	p.Legend.Add(report.AttackRun, bars)
	p.Legend.Add(fmt.Sprintf("malicious share %.1f%% of %d pairs", report.Comparison.MaliciousSharePct, report.Comparison.TotalPairs))
	p.Legend.Top = true
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 6

	if err := p.Save(w.width, w.height, path); err != nil {
		return fmt.Errorf("failed to save chart %s: %w", path, err)
	}
	return nil
}

// barWidth fits groups of perGroup bars into span, capped so sparse charts stay readable.
func barWidth(span vg.Length, groups, perGroup int) vg.Length {
	if groups <= 0 {
		groups = 1
	}
	w := span * 0.7 / vg.Length(groups*perGroup+groups)
	if ceiling := vg.Points(28); w > ceiling {
		return ceiling
	}
	if floor := vg.Points(2); w < floor {
		return floor
	}
	return w
}
