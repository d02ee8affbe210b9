package reportsql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"wsntrace/pkg/models"
)

// Writer inserts comparison rows into a Postgres table.
type Writer struct {
	db        *sql.DB
	tableName string
}

// Open connects to Postgres and returns a writer for table.
func Open(connString, table string) (*Writer, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}
	return NewWriter(db, table), nil
}

// NewWriter wraps an existing database handle.
func NewWriter(db *sql.DB, table string) *Writer {
	return &Writer{db: db, tableName: table}
}

// Name identifies the sink.
func (w *Writer) Name() string { return "sql" }

// WriteReport upserts one row per compared pair for the report's run pair.
func (w *Writer) WriteReport(ctx context.Context, report *models.Report) error {
	rows := report.Comparison.Rows
	if len(rows) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(w.tableName)
	b.WriteString(" (baseline_run, attack_run, source, destination, count_baseline, count_attack, delta, loss_pct, bucket, label) VALUES ")

	args := make([]any, 0, len(rows)*10)
	for i, r := range rows {
		if i > 0 {
			b.WriteString(",")
		}
		n := len(args)
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			n+1, n+2, n+3, n+4, n+5, n+6, n+7, n+8, n+9, n+10))

		var loss sql.NullFloat64
		if r.LossPct != nil {
			loss = sql.NullFloat64{Float64: *r.LossPct, Valid: true}
		}
		args = append(args,
			report.BaselineRun,
			report.AttackRun,
			r.Source,
			r.Destination,
			r.CountBaseline,
			r.CountAttack,
			r.Delta,
			loss,
			r.Bucket,
			r.Label(),
		)
	}

	b.WriteString(" ON CONFLICT (baseline_run, attack_run, source, destination) DO UPDATE SET" +
		" count_baseline = EXCLUDED.count_baseline, count_attack = EXCLUDED.count_attack," +
		" delta = EXCLUDED.delta, loss_pct = EXCLUDED.loss_pct, bucket = EXCLUDED.bucket, label = EXCLUDED.label")

	if _, err := w.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert comparison rows: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (w *Writer) Close() error {
	return w.db.Close()
}
