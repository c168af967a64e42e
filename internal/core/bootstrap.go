package core

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/agenthands/lineage/internal/core/model"
	"github.com/agenthands/lineage/internal/logger"
)

// DefaultSeed is the seven-person Garnier family loaded into an empty store
// when no seed document is configured.
//
//go:embed seed/default.json
var DefaultSeed []byte

// Bootstrap provisions the schema and, when the store has never been fed,
// ingests seed (or DefaultSeed if seed is empty) with a closure rebuild.
// It returns a nil report when the store already holds a dataset.
func (l *Lineage) Bootstrap(ctx context.Context, seed []byte) (*model.ImportReport, error) {
	if err := l.BuildIndices(ctx); err != nil {
		return nil, fmt.Errorf("build indices: %w", err)
	}

	ds, err := l.Driver.LoadDataset(ctx)
	switch {
	case err == nil:
		logger.Info("Store already seeded", "run_id", ds.RunID, "updated_at", ds.UpdatedAt)
		return nil, nil
	case !errors.Is(err, model.ErrNotFound):
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	if len(seed) == 0 {
		logger.Info("Seeding store with the default family")
		seed = DefaultSeed
	}
	report, err := l.Ingest(ctx, seed, IngestOptions{WithClosure: true})
	if err != nil {
		return nil, fmt.Errorf("seed store: %w", err)
	}
	return report, nil
}
