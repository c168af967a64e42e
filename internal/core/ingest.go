package core

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/agenthands/lineage/internal/core/closure"
	"github.com/agenthands/lineage/internal/core/extraction"
	"github.com/agenthands/lineage/internal/core/model"
	"github.com/agenthands/lineage/internal/logger"
	"github.com/agenthands/lineage/internal/metrics"
)

// IngestOptions controls one ingestion pass.
type IngestOptions struct {
	// Reset clears every person, edge and closure row before writing.
	Reset bool
	// WithClosure rebuilds the closure index after the edges are written.
	WithClosure bool
}

// Ingest parses raw and writes its persons and relationships. A malformed
// document fails before anything is written. Nodes without identity and
// relationships naming unknown persons are skipped and listed in the report.
func (l *Lineage) Ingest(ctx context.Context, raw []byte, opts IngestOptions) (*model.ImportReport, error) {
	doc, err := extraction.ParseDocument(raw)
	if err != nil {
		metrics.IngestRuns.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	report, err := l.ingest(ctx, raw, doc, opts)
	if err != nil {
		metrics.IngestRuns.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}
	metrics.IngestRuns.WithLabelValues(metrics.ResultOK).Inc()
	return report, nil
}

func (l *Lineage) ingest(ctx context.Context, raw []byte, doc *extraction.Document, opts IngestOptions) (*model.ImportReport, error) {
	report := &model.ImportReport{RunID: l.newRunID(), SkippedNodes: doc.Skipped}
	logger.Info("Ingesting document", "run_id", report.RunID, "nodes", len(doc.Nodes), "reset", opts.Reset)

	batch := l.Extractor.Extract(doc.Nodes)
	report.NodeErrors = batch.Errors
	report.NodeErrorCount = len(batch.Errors)
	for _, nodeErr := range batch.Errors {
		logger.Warn("Skipping node", "run_id", report.RunID, "err", nodeErr)
	}
	metrics.NodeErrors.Add(float64(len(batch.Errors)))

	if opts.Reset {
		if err := l.Driver.Clear(ctx); err != nil {
			return nil, fmt.Errorf("reset store: %w", err)
		}
	}

	persons, err := l.Driver.UpsertPersons(ctx, batch.Persons)
	if err != nil {
		return nil, fmt.Errorf("upsert persons: %w", err)
	}
	report.PersonsImported = persons.Written
	metrics.PersonsImported.Add(float64(persons.Written))

	edges, err := l.Driver.UpsertEdges(ctx, batch.Edges.ToSlice(), persons.Known)
	if err != nil {
		return nil, fmt.Errorf("upsert edges: %w", err)
	}
	report.EdgesStored = edges.Stored
	report.RejectedEdges = edges.Rejected
	report.MissingIDs = edges.MissingIDs
	metrics.EdgesStored.Add(float64(edges.Stored))
	metrics.EdgesRejected.Add(float64(len(edges.Rejected)))
	if len(edges.Rejected) > 0 {
		preview, truncated := report.MissingPreview()
		logger.Warn("Skipped relationships with unknown persons",
			"run_id", report.RunID, "rejected", len(edges.Rejected), "missing", preview, "truncated", truncated)
	}

	if err := l.Driver.SaveDataset(ctx, model.Dataset{
		ID:      model.DefaultDatasetID,
		Payload: datasetPayload(raw),
		RunID:   report.RunID,
	}); err != nil {
		return nil, fmt.Errorf("save dataset: %w", err)
	}

	if opts.WithClosure {
		rows, err := l.rebuildClosure(ctx)
		if err != nil {
			return nil, err
		}
		report.ClosureRows = rows
		report.ClosureBuilt = true
	}

	logger.Info("Ingestion finished",
		"run_id", report.RunID,
		"persons", report.PersonsImported,
		"edges", report.EdgesStored,
		"closure_rows", report.ClosureRows)
	return report, nil
}

// datasetPayload stores the document verbatim with a trailing newline.
func datasetPayload(raw []byte) string {
	raw = bytes.TrimRight(raw, "\r\n")
	return string(raw) + "\n"
}

// RebuildClosure recomputes the closure index from the stored persons and
// edges and replaces it in one transaction. It returns the rows written.
func (l *Lineage) RebuildClosure(ctx context.Context) (int, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.rebuildClosure(ctx)
}

func (l *Lineage) rebuildClosure(ctx context.Context) (int, error) {
	start := time.Now()

	ids, err := l.Driver.PersonIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("rebuild closure: list persons: %w", err)
	}
	edges, err := l.Driver.Edges(ctx)
	if err != nil {
		return 0, fmt.Errorf("rebuild closure: list edges: %w", err)
	}

	entries := closure.Build(ids, edges)
	rows, err := l.Driver.ReplaceClosure(ctx, entries)
	if err != nil {
		return 0, fmt.Errorf("rebuild closure: %w", err)
	}

	metrics.ObserveRebuild(start, rows)
	logger.Debug("Closure rebuilt", "persons", len(ids), "edges", len(edges), "rows", rows, "took", time.Since(start))
	return rows, nil
}
