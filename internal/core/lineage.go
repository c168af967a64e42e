package core

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/agenthands/lineage/internal/core/extraction"
	"github.com/agenthands/lineage/internal/driver"
)

// Lineage ingests family-tree documents into a GraphDriver, keeps the closure
// index in step with the edge set and answers read queries.
//
// Ingestion and closure rebuilds are serialized; reads run concurrently.
type Lineage struct {
	Driver    driver.GraphDriver
	Extractor *extraction.Extractor

	writeMu  sync.Mutex
	newRunID func() string
}

func NewLineage(d driver.GraphDriver) *Lineage {
	return &Lineage{
		Driver:    d,
		Extractor: extraction.NewExtractor(),
		newRunID:  uuid.NewString,
	}
}

func (l *Lineage) BuildIndices(ctx context.Context) error {
	return l.Driver.BuildIndices(ctx)
}

func (l *Lineage) Close(ctx context.Context) error {
	return l.Driver.Close(ctx)
}
