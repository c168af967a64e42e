// Package metrics holds the Prometheus collectors for ingestion, closure
// rebuilds and queries. Collectors register on the default registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lineage"

// Query results.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

var (
	// PersonsImported counts distinct persons written by ingestion.
	PersonsImported = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "persons_total",
		Help:      "Persons written by ingestion runs",
	})

	// EdgesStored counts new parent -> child edges.
	EdgesStored = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "edges_stored_total",
		Help:      "Parent to child edges newly stored",
	})

	// EdgesRejected counts pairs dropped for an unknown endpoint.
	EdgesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "edges_rejected_total",
		Help:      "Relationship pairs rejected for a dangling endpoint",
	})

	// NodeErrors counts nodes skipped during extraction.
	NodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "node_errors_total",
		Help:      "Document nodes skipped because they carried no identity",
	})

	// IngestRuns counts ingestion passes by outcome.
	// Labels: result (ok, error)
	IngestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "runs_total",
		Help:      "Ingestion runs by outcome",
	}, []string{"result"})

	// ClosureRows is the size of the last written closure.
	ClosureRows = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "closure",
		Name:      "rows",
		Help:      "Rows in the closure index after the last rebuild",
	})

	// ClosureRebuildDuration measures full closure rebuilds.
	ClosureRebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "closure",
		Name:      "rebuild_duration_seconds",
		Help:      "Time to recompute and replace the closure index",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	})

	// Queries counts read operations.
	// Labels: operation (person, descendants, ancestors, search, health), result
	Queries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "query",
		Name:      "requests_total",
		Help:      "Read operations by operation and result",
	}, []string{"operation", "result"})
)

// ObserveRebuild records a finished rebuild that wrote rows entries.
func ObserveRebuild(start time.Time, rows int) {
	ClosureRebuildDuration.Observe(time.Since(start).Seconds())
	ClosureRows.Set(float64(rows))
}

// ObserveQuery increments the query counter for operation.
func ObserveQuery(operation, result string) {
	Queries.WithLabelValues(operation, result).Inc()
}
