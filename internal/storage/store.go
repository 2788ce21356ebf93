package storage

import (
	"context"

	"popgen/internal/genotype"
	"popgen/internal/model"
)

// Store persists run records and their generation histories.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns runs newest first; limit <= 0 returns all of them.
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
	SaveHistory(ctx context.Context, runID string, history []genotype.Data) error
	GetHistory(ctx context.Context, runID string) ([]genotype.Data, bool, error)
}
