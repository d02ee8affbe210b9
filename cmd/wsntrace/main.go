package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"wsntrace/config"
	"wsntrace/internal/countstore"
	"wsntrace/internal/logger"
	"wsntrace/internal/metrics"
	"wsntrace/internal/output/chartpng"
	"wsntrace/internal/output/reportclickhouse"
	"wsntrace/internal/output/reporthttp"
	"wsntrace/internal/output/reportjson"
	"wsntrace/internal/output/reportsql"
	"wsntrace/internal/pipeline"
	"wsntrace/internal/rules"
)

const defaultConfigName = "wsntrace.yml"

func findConfigFile(configArg string) string {
	if configArg != "" {
		path := configArg
		if _, err := os.Stat(path); err == nil {
			return path
		}
		log.Printf("Warning: config file not found at %s, trying default locations", path)
	}

	if _, err := os.Stat(defaultConfigName); err == nil {
		return defaultConfigName
	}

	exePath, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exePath)
		path := filepath.Join(exeDir, defaultConfigName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return defaultConfigName
}

// app holds everything a subcommand needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	pipe    *pipeline.Pipeline
	metrics *metrics.Metrics
}

func setup(configArg string) (*app, error) {
	configPath := findConfigFile(configArg)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}

	lc := cfg.WSNTrace.Logging
	if err := logger.Init(logger.Options{Enabled: lc.Enabled, Level: lc.Level, File: lc.File, Console: lc.Console}); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	logger.Infof("Config loaded from: %s", configPath)

	var m *metrics.Metrics
	if cfg.WSNTrace.Metrics.Enabled {
		m = metrics.New()
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return nil, err
	}

	var store pipeline.CountStore
	if cfg.WSNTrace.Store.Mode == "redis" {
		rs, err := openRedisStore(cfg)
		if err != nil {
			return nil, err
		}
		store = rs
		logger.Infof("Count store: redis (%s)", cfg.WSNTrace.Store.Redis.Addr)
	}

	writers, err := buildWriters(cfg)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	pipe, err := pipeline.New(cfg, pipeline.Deps{Engine: engine, Store: store, Writers: writers, Metrics: m})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, pipe: pipe, metrics: m}, nil
}

func (a *app) close() {
	if a.cfg.WSNTrace.Metrics.Enabled {
		if err := a.metrics.WriteTextfile(a.cfg.WSNTrace.Metrics.Textfile); err != nil {
			logger.Errorf("Failed to write metrics: %v", err)
		} else {
			logger.Infof("Metrics written to %s", a.cfg.WSNTrace.Metrics.Textfile)
		}
	}
	if err := a.pipe.Close(); err != nil {
		logger.Errorf("Error closing pipeline: %v", err)
	}
	logger.Close()
}

func buildEngine(cfg *config.Config) (rules.Engine, error) {
	rc := cfg.WSNTrace.Rules
	if !rc.Enabled {
		return nil, nil
	}
	sigmaEngine, stats, err := rules.NewSigmaEngine(rc.Path)
	if err != nil {
		return nil, fmt.Errorf("load Sigma rules from %s: %w", rc.Path, err)
	}
	logger.Infof("Sigma rules loaded: loaded=%d skipped_complex=%d skipped_datasource=%d skipped_invalid=%d files=%d",
		stats.Loaded,
		stats.SkippedComplex,
		stats.SkippedDatasource,
		stats.SkippedInvalid,
		stats.TotalFiles,
	)
	if stats.Loaded == 0 {
		logger.Warnf("No compatible Sigma rules loaded; event tagging is effectively disabled")
	}
	return sigmaEngine, nil
}

func openRedisStore(cfg *config.Config) (*countstore.RedisStore, error) {
	rc := cfg.WSNTrace.Store.Redis
	store, err := countstore.NewRedisStore(countstore.RedisConfig{
		Addr:      rc.Addr,
		Password:  rc.Password,
		DB:        rc.DB,
		KeyPrefix: rc.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis count store: %w", err)
	}
	return store, nil
}

func buildWriters(cfg *config.Config) ([]pipeline.ReportWriter, error) {
	out := cfg.WSNTrace.Output
	var writers []pipeline.ReportWriter
	fail := func(err error) ([]pipeline.ReportWriter, error) {
		for _, w := range writers {
			w.Close()
		}
		return nil, err
	}

	if out.JSON.Enabled {
		w, err := reportjson.NewWriter(out.JSON.Path)
		if err != nil {
			return fail(fmt.Errorf("create report file writer: %w", err))
		}
		writers = append(writers, w)
		logger.Infof("Report output: file (%s)", out.JSON.Path)
	}
	if out.HTTP.Enabled {
		w, err := reporthttp.NewWriter(reporthttp.Config{
			URL:     out.HTTP.URL,
			Timeout: out.HTTP.Timeout,
			Headers: out.HTTP.Headers,
		})
		if err != nil {
			return fail(fmt.Errorf("create report HTTP writer: %w", err))
		}
		writers = append(writers, w)
		logger.Infof("Report output: http (%s)", out.HTTP.URL)
	}
	if out.ClickHouse.Enabled {
		ch := out.ClickHouse
		w, err := reportclickhouse.NewWriter(reportclickhouse.Config{
			URL:      ch.URL,
			Database: ch.Database,
			Table:    ch.Table,
			Username: ch.Username,
			Password: ch.Password,
			Timeout:  ch.Timeout,
			Headers:  ch.Headers,
		})
		if err != nil {
			return fail(fmt.Errorf("create report ClickHouse writer: %w", err))
		}
		writers = append(writers, w)
		logger.Infof("Report output: clickhouse (%s/%s.%s)", ch.URL, ch.Database, ch.Table)
	}
	if out.SQL.Enabled {
		w, err := reportsql.Open(out.SQL.ConnString, out.SQL.Table)
		if err != nil {
			return fail(fmt.Errorf("create report SQL writer: %w", err))
		}
		writers = append(writers, w)
		logger.Infof("Report output: sql (%s)", out.SQL.Table)
	}
	if out.Charts.Enabled {
		w, err := chartpng.NewWriter(chartpng.Config{
			Dir:    out.Charts.Dir,
			Width:  out.Charts.Width,
			Height: out.Charts.Height,
		})
		if err != nil {
			return fail(fmt.Errorf("create chart writer: %w", err))
		}
		writers = append(writers, w)
		logger.Infof("Report output: charts (%s)", out.Charts.Dir)
	}
	if len(writers) == 0 {
		logger.Warnf("No report output enabled; results are only logged")
	}
	return writers, nil
}

// selectRuns resolves a -run flag value against the configured runs.
func selectRuns(cfg *config.Config, name string) ([]pipeline.RunSource, error) {
	b := pipeline.RunSourceFromConfig(cfg.WSNTrace.Runs.Baseline)
	a := pipeline.RunSourceFromConfig(cfg.WSNTrace.Runs.Attack)
	switch strings.TrimSpace(name) {
	case "", "all":
		return []pipeline.RunSource{b, a}, nil
	case "baseline", b.Name:
		return []pipeline.RunSource{b}, nil
	case "attack", a.Name:
		return []pipeline.RunSource{a}, nil
	default:
		return nil, fmt.Errorf("unknown run %q", name)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	configArg := fs.String("config", "", "Config file path")
	runName := fs.String("run", "all", "Run to ingest: baseline, attack or all")
	moteLog := fs.String("mote-log", "", "Override the mote log of a single run")
	captureLog := fs.String("capture-log", "", "Override the capture log of a single run")
	tablePath := fs.String("table", "", "Override the combined table of a single run")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	a, err := setup(*configArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer a.close()

	runs, err := selectRuns(a.cfg, *runName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}
	if len(runs) == 1 {
		if *moteLog != "" {
			runs[0].MoteLog = *moteLog
		}
		if *captureLog != "" {
			runs[0].CaptureLog = *captureLog
		}
		if *tablePath != "" {
			runs[0].Table = *tablePath
		}
	} else if *moteLog != "" || *captureLog != "" || *tablePath != "" {
		fmt.Fprintf(os.Stderr, "path overrides need -run baseline or -run attack\n")
		return 2
	}

	ctx, cancel := signalContext()
	defer cancel()

	for _, run := range runs {
		res, err := a.pipe.Ingest(ctx, run)
		if err != nil {
			logger.Errorf("Ingest failed: %v", err)
			fmt.Fprintf(os.Stderr, "ingest failed: %v\n", err)
			return 1
		}
		fmt.Printf("ingested run=%s motes=%d captures=%d rows=%d pairs=%d malformed=%d table=%s\n",
			res.Run, res.MoteRecords, res.CaptureRecords, res.Rows, res.Pairs, len(res.Malformed), res.Table)
	}
	return 0
}

func runRank(args []string) int {
	fs := flag.NewFlagSet("rank", flag.ContinueOnError)
	configArg := fs.String("config", "", "Config file path")
	runName := fs.String("run", "baseline", "Run to rank: baseline or attack")
	tablePath := fs.String("table", "", "Rank this combined table instead of the configured one")
	top := fs.Int("top", 10, "Number of pairs to print")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	a, err := setup(*configArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer a.close()

	runs, err := selectRuns(a.cfg, *runName)
	if err != nil || len(runs) != 1 {
		fmt.Fprintf(os.Stderr, "rank needs -run baseline or -run attack\n")
		return 2
	}
	run := runs[0]
	if *tablePath != "" {
		run.Table = *tablePath
	}

	ctx, cancel := signalContext()
	defer cancel()

	ranked, err := a.pipe.Rank(ctx, run)
	if err != nil {
		logger.Errorf("Rank failed: %v", err)
		fmt.Fprintf(os.Stderr, "rank failed: %v\n", err)
		return 1
	}

	fmt.Printf("ranked run=%s rows=%d pairs=%d\n", ranked.Run, ranked.TotalRows, len(ranked.Pairs))
	for i, pc := range ranked.Pairs {
		if *top > 0 && i >= *top {
			break
		}
		fmt.Printf("%3d. %-16s %d\n", i+1, pc.Key().String(), pc.Count)
	}
	return 0
}

func runCompare(args []string, ingestFirst bool) int {
	name := "compare"
	if ingestFirst {
		name = "run"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configArg := fs.String("config", "", "Config file path")
	asJSON := fs.Bool("json", false, "Print the comparison rows as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	a, err := setup(*configArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	baseline := pipeline.RunSourceFromConfig(a.cfg.WSNTrace.Runs.Baseline)
	attack := pipeline.RunSourceFromConfig(a.cfg.WSNTrace.Runs.Attack)
	if ingestFirst {
		for _, run := range []pipeline.RunSource{baseline, attack} {
			if _, err := a.pipe.Ingest(ctx, run); err != nil {
				logger.Errorf("Ingest failed: %v", err)
				fmt.Fprintf(os.Stderr, "ingest failed: %v\n", err)
				return 1
			}
		}
	}

	report, err := a.pipe.Compare(ctx, baseline, attack)
	if err != nil {
		logger.Errorf("Compare failed: %v", err)
		fmt.Fprintf(os.Stderr, "compare failed: %v\n", err)
		return 1
	}

	cmp := report.Comparison
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cmp.Rows); err != nil {
			fmt.Fprintf(os.Stderr, "encode rows: %v\n", err)
			return 1
		}
	} else {
		for _, r := range cmp.Rows {
			fmt.Printf("%-16s %-14s baseline=%-6d attack=%-6d %s\n", r.Key().String(), r.Bucket, r.CountBaseline, r.CountAttack, r.Label())
		}
	}
	fmt.Printf("compared baseline=%s attack=%s pairs=%d malicious=%d root_receiver=%d other=%d malicious_share=%.1f%%\n",
		report.BaselineRun, report.AttackRun, cmp.TotalPairs, len(cmp.Malicious), len(cmp.RootReceiver), len(cmp.Other), cmp.MaliciousSharePct)
	return 0
}

func runListRuns(args []string) int {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	configArg := fs.String("config", "", "Config file path")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := findConfigFile(*configArg)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config %s: %v\n", configPath, err)
		return 1
	}
	if cfg.WSNTrace.Store.Mode != "redis" {
		fmt.Fprintf(os.Stderr, "runs needs store.mode: redis\n")
		return 2
	}
	store, err := openRedisStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer store.Close()

	ctx, cancel := signalContext()
	defer cancel()

	runs, err := store.Runs(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list runs: %v\n", err)
		return 1
	}
	for _, r := range runs {
		fmt.Printf("%-20s pairs=%-6d total=%-8d updated=%s\n", r.Run, r.Pairs, r.Total, r.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return 0
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: wsntrace <command> [flags]

commands:
  ingest   parse mote and capture logs into combined tables
  rank     rank one run's (source, destination) pairs
  compare  compare the baseline and attack runs and write reports
  run      ingest both runs, then compare
  runs     list runs held in the redis count store
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	args := os.Args[2:]
	switch os.Args[1] {
	case "ingest":
		os.Exit(runIngest(args))
	case "rank":
		os.Exit(runRank(args))
	case "compare":
		os.Exit(runCompare(args, false))
	case "run":
		os.Exit(runCompare(args, true))
	case "runs":
		os.Exit(runListRuns(args))
	case "-h", "--help", "help":
		usage()
	default:
		usage()
		os.Exit(2)
	}
}
