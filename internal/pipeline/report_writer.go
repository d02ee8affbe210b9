package pipeline

import (
	"context"

	"wsntrace/pkg/models"
)

// ReportWriter delivers a finished comparison report to a sink.
type ReportWriter interface {
	Name() string
	WriteReport(ctx context.Context, report *models.Report) error
	Close() error
}

// RankWriter is implemented by sinks that can also render single-run rankings.
type RankWriter interface {
	WriteRanked(ctx context.Context, report *models.RankedReport) error
}
