package reportclickhouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wsntrace/pkg/models"
)

// Config configures the ClickHouse HTTP writer.
type Config struct {
	URL      string
	Database string
	Table    string
	Username string
	Password string
	Timeout  time.Duration
	Headers  map[string]string
}

// Writer sends comparison rows to ClickHouse via HTTP JSONEachRow.
type Writer struct {
	endpoint string
	headers  map[string]string
	client   *http.Client
}

// Row is one comparison row as stored in ClickHouse.
type Row struct {
	GeneratedAt        string   `json:"generated_at"`
	BaselineRun        string   `json:"baseline_run"`
	AttackRun          string   `json:"attack_run"`
	MaliciousNode      string   `json:"malicious_node"`
	Source             string   `json:"source"`
	Destination        string   `json:"destination"`
	CountBaseline      int      `json:"count_baseline"`
	CountAttack        int      `json:"count_attack"`
	Delta              int      `json:"delta"`
	LossPct            *float64 `json:"loss_pct"`
	NewTraffic         uint8    `json:"new_traffic"`
	InvolvesMalicious  uint8    `json:"involves_malicious"`
	IsRootReceiverPair uint8    `json:"is_root_receiver_pair"`
	Bucket             string   `json:"bucket"`
	Label              string   `json:"label"`
}

// NewWriter creates a ClickHouse HTTP writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("clickhouse URL is empty")
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Table == "" {
		cfg.Table = "pair_comparison"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	q := fmt.Sprintf("INSERT INTO %s.%s FORMAT JSONEachRow", quoteIdent(cfg.Database), quoteIdent(cfg.Table))
	base := strings.TrimRight(cfg.URL, "/")
	endpoint := base + "/?query=" + url.QueryEscape(q)

	headers := map[string]string{}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	if cfg.Username != "" {
		headers["X-ClickHouse-User"] = cfg.Username
	}
	if cfg.Password != "" {
		headers["X-ClickHouse-Key"] = cfg.Password
	}

	return &Writer{
		endpoint: endpoint,
		headers:  headers,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Name identifies the sink.
func (w *Writer) Name() string { return "clickhouse" }

// Rows flattens a report into ClickHouse rows.
func Rows(report *models.Report) []Row {
	generated := report.GeneratedAt.UTC().Format("2006-01-02 15:04:05")
	out := make([]Row, 0, len(report.Comparison.Rows))
	for _, r := range report.Comparison.Rows {
		out = append(out, Row{
			GeneratedAt:        generated,
			BaselineRun:        report.BaselineRun,
			AttackRun:          report.AttackRun,
			MaliciousNode:      report.MaliciousNode,
			Source:             r.Source,
			Destination:        r.Destination,
			CountBaseline:      r.CountBaseline,
			CountAttack:        r.CountAttack,
			Delta:              r.Delta,
			LossPct:            r.LossPct,
			NewTraffic:         boolToUInt8(r.NewTraffic),
			InvolvesMalicious:  boolToUInt8(r.InvolvesMalicious),
			IsRootReceiverPair: boolToUInt8(r.IsRootReceiverPair),
			Bucket:             r.Bucket,
			Label:              r.Label(),
		})
	}
	return out
}

// WriteReport inserts one row per compared pair.
func (w *Writer) WriteReport(ctx context.Context, report *models.Report) error {
	rows := Rows(report)
	if len(rows) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to marshal comparison row: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("clickhouse request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("clickhouse request failed with status %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// Close releases resources.
func (w *Writer) Close() error {
	return nil
}

func boolToUInt8(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

func quoteIdent(v string) string {
	if v == "" {
		return ""
	}
	v = strings.ReplaceAll(v, "`", "")
	return "`" + v + "`"
}
