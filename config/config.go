package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	WSNTrace WSNTraceConfig `yaml:"wsntrace"`
}

// WSNTraceConfig is the project configuration.
type WSNTraceConfig struct {
	Runs    RunsConfig    `yaml:"runs"`
	Mote    MoteConfig    `yaml:"mote"`
	Capture CaptureConfig `yaml:"capture"`
	Combine CombineConfig `yaml:"combine"`
	Compare CompareConfig `yaml:"compare"`
	Rules   RulesConfig   `yaml:"rules"`
	Store   StoreConfig   `yaml:"store"`
	Output  OutputConfig  `yaml:"output"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// RunsConfig names the two simulation runs being compared.
type RunsConfig struct {
	Baseline RunConfig `yaml:"baseline"`
	Attack   RunConfig `yaml:"attack"`
}

// RunConfig locates one run's raw logs and its combined table.
type RunConfig struct {
	Name       string `yaml:"name"`
	MoteLog    string `yaml:"mote_log"`
	CaptureLog string `yaml:"capture_log"`
	Table      string `yaml:"table"`
}

// MoteConfig controls mote log parsing.
type MoteConfig struct {
	Marker string `yaml:"marker"`
}

// CaptureConfig controls capture log parsing.
type CaptureConfig struct {
	Format string     `yaml:"format"` // text|pcap
	Pcap   PcapConfig `yaml:"pcap"`
}

// PcapConfig controls the pcap reader.
type PcapConfig struct {
	NodeIDs bool `yaml:"node_ids"`
}

// CombineConfig controls how the two logs are aligned.
type CombineConfig struct {
	Strategy string        `yaml:"strategy"` // positional|nearest|key
	MaxSkew  time.Duration `yaml:"max_skew"`
	TimeUnit string        `yaml:"time_unit"` // ms|us|s
}

// CompareConfig controls pair classification.
type CompareConfig struct {
	MaliciousNode     string      `yaml:"malicious_node"`
	Match             string      `yaml:"match"` // substring|exact
	RootReceiverPairs [][2]string `yaml:"root_receiver_pairs"`
}

// RulesConfig controls Sigma event tagging of mote messages.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// StoreConfig controls where per-run pair counts are kept.
type StoreConfig struct {
	Mode  string      `yaml:"mode"` // table|redis
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig controls Redis access.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// OutputConfig controls report sinks. Every enabled sink receives the report.
type OutputConfig struct {
	JSON       FileOutputConfig       `yaml:"json"`
	HTTP       HTTPOutputConfig       `yaml:"http"`
	ClickHouse ClickHouseOutputConfig `yaml:"clickhouse"`
	SQL        SQLOutputConfig        `yaml:"sql"`
	Charts     ChartOutputConfig      `yaml:"charts"`
}

// FileOutputConfig config for local JSON output.
type FileOutputConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// HTTPOutputConfig config for remote output.
type HTTPOutputConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// ClickHouseOutputConfig config for ClickHouse HTTP JSONEachRow writes.
type ClickHouseOutputConfig struct {
	Enabled  bool              `yaml:"enabled"`
	URL      string            `yaml:"url"`
	Database string            `yaml:"database"`
	Table    string            `yaml:"table"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Timeout  time.Duration     `yaml:"timeout"`
	Headers  map[string]string `yaml:"headers"`
}

// SQLOutputConfig config for Postgres comparison rows.
type SQLOutputConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

// ChartOutputConfig config for PNG bar charts.
type ChartOutputConfig struct {
	Enabled bool    `yaml:"enabled"`
	Dir     string  `yaml:"dir"`
	Width   float64 `yaml:"width_in"`
	Height  float64 `yaml:"height_in"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// DefaultRootReceiverPairs is the root<->receiver topology of the reference simulation.
var DefaultRootReceiverPairs = [][2]string{
	{"1", "2"}, {"1", "3"}, {"1", "4"},
	{"2", "1"}, {"3", "1"}, {"4", "1"},
}

// LoadConfig reads and parses a YAML config file, then applies defaults and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	w := &c.WSNTrace

	if w.Runs.Baseline.Name == "" {
		w.Runs.Baseline.Name = "baseline"
	}
	if w.Runs.Attack.Name == "" {
		w.Runs.Attack.Name = "attack"
	}
	if w.Runs.Baseline.Table == "" {
		w.Runs.Baseline.Table = "output/combined_logs.csv"
	}
	if w.Runs.Attack.Table == "" {
		w.Runs.Attack.Table = "output/combined_logs_2.csv"
	}

	if w.Mote.Marker == "" {
		w.Mote.Marker = "ID:"
	}
	if w.Capture.Format == "" {
		w.Capture.Format = "text"
	}
	if w.Combine.Strategy == "" {
		w.Combine.Strategy = "positional"
	}
	if w.Combine.TimeUnit == "" {
		w.Combine.TimeUnit = "ms"
	}

	if w.Compare.MaliciousNode == "" {
		w.Compare.MaliciousNode = "11"
	}
	if w.Compare.Match == "" {
		w.Compare.Match = "substring"
	}
	if w.Compare.RootReceiverPairs == nil {
		w.Compare.RootReceiverPairs = append([][2]string(nil), DefaultRootReceiverPairs...)
	}

	if w.Store.Mode == "" {
		w.Store.Mode = "table"
	}
	if w.Store.Redis.Addr == "" {
		w.Store.Redis.Addr = "127.0.0.1:6379"
	}
	if w.Store.Redis.KeyPrefix == "" {
		w.Store.Redis.KeyPrefix = "wsntrace:pairs"
	}

	if w.Output.JSON.Path == "" {
		w.Output.JSON.Path = "output/report.json"
	}
	if w.Output.HTTP.Timeout <= 0 {
		w.Output.HTTP.Timeout = 5 * time.Second
	}
	if w.Output.ClickHouse.Database == "" {
		w.Output.ClickHouse.Database = "wsntrace"
	}
	if w.Output.ClickHouse.Table == "" {
		w.Output.ClickHouse.Table = "pair_comparison"
	}
	if w.Output.SQL.Table == "" {
		w.Output.SQL.Table = "pair_comparison"
	}
	if w.Output.Charts.Dir == "" {
		w.Output.Charts.Dir = "output/charts"
	}
	if w.Output.Charts.Width <= 0 {
		w.Output.Charts.Width = 12
	}
	if w.Output.Charts.Height <= 0 {
		w.Output.Charts.Height = 8
	}

	if w.Metrics.Textfile == "" {
		w.Metrics.Textfile = "output/wsntrace.prom"
	}
	if w.Logging.Level == "" {
		w.Logging.Level = "info"
	}
}

// Validate rejects settings the pipeline cannot act on.
func (c *Config) Validate() error {
	w := c.WSNTrace

	switch w.Capture.Format {
	case "text", "pcap":
	default:
		return fmt.Errorf("capture.format: unknown format %q", w.Capture.Format)
	}
	switch w.Combine.Strategy {
	case "positional", "nearest", "key":
	default:
		return fmt.Errorf("combine.strategy: unknown strategy %q", w.Combine.Strategy)
	}
	switch w.Combine.TimeUnit {
	case "ms", "us", "s":
	default:
		return fmt.Errorf("combine.time_unit: unknown unit %q", w.Combine.TimeUnit)
	}
	switch w.Compare.Match {
	case "substring", "exact":
	default:
		return fmt.Errorf("compare.match: unknown mode %q", w.Compare.Match)
	}
	if strings.TrimSpace(w.Compare.MaliciousNode) == "" {
		return fmt.Errorf("compare.malicious_node is required")
	}
	switch w.Store.Mode {
	case "table", "redis":
	default:
		return fmt.Errorf("store.mode: unknown mode %q", w.Store.Mode)
	}
	if w.Rules.Enabled && strings.TrimSpace(w.Rules.Path) == "" {
		return fmt.Errorf("rules.path is required when rules are enabled")
	}
	if w.Output.HTTP.Enabled && w.Output.HTTP.URL == "" {
		return fmt.Errorf("output.http.url is required")
	}
	if w.Output.ClickHouse.Enabled && w.Output.ClickHouse.URL == "" {
		return fmt.Errorf("output.clickhouse.url is required")
	}
	if w.Output.SQL.Enabled && w.Output.SQL.ConnString == "" {
		return fmt.Errorf("output.sql.conn_string is required")
	}
	return nil
}
