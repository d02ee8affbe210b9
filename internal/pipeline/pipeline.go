package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wsntrace/config"
	"wsntrace/internal/aggregate"
	"wsntrace/internal/combiner"
	"wsntrace/internal/compare"
	"wsntrace/internal/logger"
	"wsntrace/internal/metrics"
	"wsntrace/internal/rules"
	"wsntrace/internal/table"
	"wsntrace/internal/transform/capturelog"
	"wsntrace/internal/transform/motelog"
	"wsntrace/pkg/models"
)

// maxLoggedMalformed caps the per-line warnings for one mote log.
const maxLoggedMalformed = 10

// RunSource locates one run's raw logs and its combined table.
type RunSource struct {
	Name       string
	MoteLog    string
	CaptureLog string
	Table      string
}

// RunSourceFromConfig converts a configured run.
func RunSourceFromConfig(rc config.RunConfig) RunSource {
	return RunSource{Name: rc.Name, MoteLog: rc.MoteLog, CaptureLog: rc.CaptureLog, Table: rc.Table}
}

// Deps are the collaborators injected into a Pipeline. All are optional.
type Deps struct {
	Engine  rules.Engine
	Store   CountStore
	Writers []ReportWriter
	Metrics *metrics.Metrics
}

// IngestResult summarizes one ingested run.
type IngestResult struct {
	Run            string
	Table          string
	MoteRecords    int
	CaptureRecords int
	Rows           int
	Pairs          int
	Malformed      []*motelog.MalformedLineError
}

// Pipeline runs the parse, combine, aggregate and compare stages.
type Pipeline struct {
	marker        string
	captureFormat string
	pcap          capturelog.PcapOptions
	strategy      combiner.Strategy
	combine       combiner.Options
	comparator    *compare.Comparator
	maliciousNode string

	engine  rules.Engine
	store   CountStore
	writers []ReportWriter
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates a pipeline from configuration.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	w := cfg.WSNTrace

	strategy, err := combiner.ParseStrategy(w.Combine.Strategy)
	if err != nil {
		return nil, err
	}
	match, err := compare.ParseMatchMode(w.Compare.Match)
	if err != nil {
		return nil, err
	}
	pairs := make([]models.PairKey, 0, len(w.Compare.RootReceiverPairs))
	for _, p := range w.Compare.RootReceiverPairs {
		pairs = append(pairs, models.PairKey{Source: p[0], Destination: p[1]})
	}

	return &Pipeline{
		marker:        w.Mote.Marker,
		captureFormat: w.Capture.Format,
		pcap:          capturelog.PcapOptions{NodeIDs: w.Capture.Pcap.NodeIDs},
		strategy:      strategy,
		combine:       combiner.Options{MaxSkew: w.Combine.MaxSkew, TimeUnit: w.Combine.TimeUnit},
		comparator: compare.New(compare.Config{
			MaliciousNode:     w.Compare.MaliciousNode,
			Match:             match,
			RootReceiverPairs: pairs,
		}),
		maliciousNode: models.NormalizeID(w.Compare.MaliciousNode),
		engine:        deps.Engine,
		store:         deps.Store,
		writers:       deps.Writers,
		metrics:       deps.Metrics,
		now:           time.Now,
	}, nil
}

// Ingest parses a run's raw logs, combines them into the run's table and
// stores its pair counts when a count store is configured.
func (p *Pipeline) Ingest(ctx context.Context, run RunSource) (*IngestResult, error) {
	if run.MoteLog == "" || run.CaptureLog == "" {
		return nil, fmt.Errorf("run %s: mote_log and capture_log are required", run.Name)
	}

	motes, err := motelog.ParseFile(run.MoteLog, motelog.Options{Marker: p.marker})
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", run.Name, err)
	}
	p.metrics.LinesRead("mote", motes.LinesRead)
	p.metrics.RecordsEmitted("mote", len(motes.Records))
	p.metrics.LinesSkipped("mote", "no_marker", motes.Skipped)
	p.metrics.LinesSkipped("mote", "malformed", len(motes.Malformed))
	for i, m := range motes.Malformed {
		if i == maxLoggedMalformed {
			logger.Warnf("Run %s: %d more malformed mote lines not shown", run.Name, len(motes.Malformed)-i)
			break
		}
		logger.Warnf("Run %s: %v", run.Name, m)
	}

	captures, err := p.parseCaptures(run.CaptureLog)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", run.Name, err)
	}
	p.metrics.LinesRead("capture", captures.LinesRead)
	p.metrics.RecordsEmitted("capture", len(captures.Records))
	for reason, n := range captures.Skipped {
		p.metrics.LinesSkipped("capture", reason, n)
	}

	rows, err := combiner.Combine(motes.Records, captures.Records, p.strategy, p.combine)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", run.Name, err)
	}
	p.metrics.CombinedRows(string(p.strategy), len(rows))

	if err := table.WriteCSV(run.Table, rows); err != nil {
		return nil, fmt.Errorf("run %s: %w", run.Name, err)
	}

	counts := aggregate.Count(table.PairKeys(rows))
	if p.store != nil {
		if err := p.store.WriteCounts(ctx, run.Name, counts); err != nil {
			return nil, fmt.Errorf("run %s: store counts: %w", run.Name, err)
		}
	}

	logger.Infof("Run %s ingested: motes=%d captures=%d rows=%d pairs=%d table=%s",
		run.Name, len(motes.Records), len(captures.Records), len(rows), len(counts), run.Table)

	return &IngestResult{
		Run:            run.Name,
		Table:          run.Table,
		MoteRecords:    len(motes.Records),
		CaptureRecords: len(captures.Records),
		Rows:           len(rows),
		Pairs:          len(counts),
		Malformed:      motes.Malformed,
	}, nil
}

func (p *Pipeline) parseCaptures(path string) (*capturelog.Result, error) {
	if p.captureFormat == "pcap" {
		return capturelog.ParsePcapFile(path, p.pcap)
	}
	return capturelog.ParseFile(path)
}

// Rank counts one run's pairs, busiest first, and hands the ranking to every
// sink able to render it.
func (p *Pipeline) Rank(ctx context.Context, run RunSource) (*models.RankedReport, error) {
	counts, _, err := p.loadRun(ctx, run, false)
	if err != nil {
		return nil, err
	}

	report := &models.RankedReport{
		GeneratedAt: p.now().UTC(),
		Run:         run.Name,
		TotalRows:   aggregate.Total(counts),
		Pairs:       aggregate.Ranked(counts),
	}

	for _, w := range p.writers {
		rw, ok := w.(RankWriter)
		if !ok {
			continue
		}
		err := rw.WriteRanked(ctx, report)
		p.metrics.SinkWrite(w.Name(), err)
		if err != nil {
			return report, fmt.Errorf("sink %s: %w", w.Name(), err)
		}
	}
	return report, nil
}

// Compare aligns the baseline and attack runs and delivers the report to every sink.
// The first sink failure aborts delivery.
func (p *Pipeline) Compare(ctx context.Context, baseline, attack RunSource) (*models.Report, error) {
	withMotes := p.engine != nil
	baseCounts, baseMotes, err := p.loadRun(ctx, baseline, withMotes)
	if err != nil {
		return nil, err
	}
	attackCounts, attackMotes, err := p.loadRun(ctx, attack, withMotes)
	if err != nil {
		return nil, err
	}

	cmp := p.comparator.Compare(baseCounts, attackCounts)
	p.metrics.PairsCompared(models.BucketMalicious, len(cmp.Malicious))
	p.metrics.PairsCompared(models.BucketRootReceiver, len(cmp.RootReceiver))
	p.metrics.PairsCompared(models.BucketOther, len(cmp.Other))

	report := &models.Report{
		GeneratedAt:   p.now().UTC(),
		BaselineRun:   baseline.Name,
		AttackRun:     attack.Name,
		MaliciousNode: p.maliciousNode,
		Comparison:    cmp,
	}
	if withMotes {
		report.TagDeltas = compare.CompareTags(
			rules.CountTags(p.engine, baseMotes),
			rules.CountTags(p.engine, attackMotes),
		)
	}

	logger.Infof("Compared %s vs %s: pairs=%d malicious=%d root_receiver=%d other=%d malicious_share=%.1f%%",
		baseline.Name, attack.Name, cmp.TotalPairs, len(cmp.Malicious), len(cmp.RootReceiver), len(cmp.Other), cmp.MaliciousSharePct)

	for _, w := range p.writers {
		err := w.WriteReport(ctx, report)
		p.metrics.SinkWrite(w.Name(), err)
		if err != nil {
			return report, fmt.Errorf("sink %s: %w", w.Name(), err)
		}
		logger.Debugf("Report delivered to %s", w.Name())
	}
	return report, nil
}

// loadRun returns a run's pair counts and, when asked, its mote records.
// Counts come from the count store when one is configured, otherwise from the table.
func (p *Pipeline) loadRun(ctx context.Context, run RunSource, withMotes bool) ([]models.PairCount, []models.MoteRecord, error) {
	if p.store != nil {
		counts, err := p.store.ReadCounts(ctx, run.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("run %s: load counts: %w", run.Name, err)
		}
		if !withMotes {
			return counts, nil, nil
		}
		rows, err := table.ReadCSV(run.Table)
		if err != nil {
			logger.Warnf("Run %s: table unavailable, skipping event tags: %v", run.Name, err)
			return counts, nil, nil
		}
		return counts, table.Motes(rows), nil
	}

	rows, err := table.ReadCSV(run.Table)
	if err != nil {
		return nil, nil, fmt.Errorf("run %s: %w", run.Name, err)
	}
	counts := aggregate.Count(table.PairKeys(rows))
	if !withMotes {
		return counts, nil, nil
	}
	return counts, table.Motes(rows), nil
}

// Close releases sinks and the count store.
func (p *Pipeline) Close() error {
	var errs []error
	for _, w := range p.writers {
		if err := w.Close(); err != nil {
			logger.Errorf("Failed to close %s writer: %v", w.Name(), err)
			errs = append(errs, err)
		}
	}
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
