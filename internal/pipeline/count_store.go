package pipeline

import (
	"context"

	"wsntrace/pkg/models"
)

// CountStore persists per-run pair counts between invocations.
type CountStore interface {
	WriteCounts(ctx context.Context, run string, counts []models.PairCount) error
	ReadCounts(ctx context.Context, run string) ([]models.PairCount, error)
	Close() error
}
