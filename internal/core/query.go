package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agenthands/lineage/internal/core/extraction"
	"github.com/agenthands/lineage/internal/core/identity"
	"github.com/agenthands/lineage/internal/core/model"
	"github.com/agenthands/lineage/internal/metrics"
)

// GetPerson returns the person with its parents, children and the spouse
// identities declared in its metadata.
func (l *Lineage) GetPerson(ctx context.Context, id string) (*model.PersonDetail, error) {
	detail, err := l.getPerson(ctx, strings.TrimSpace(id))
	metrics.ObserveQuery("person", queryResult(err))
	return detail, err
}

func (l *Lineage) getPerson(ctx context.Context, id string) (*model.PersonDetail, error) {
	if id == "" {
		return nil, fmt.Errorf("person: %w", model.ErrNotFound)
	}
	p, err := l.Driver.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}
	parents, err := l.Driver.Parents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("parents of %s: %w", id, err)
	}
	children, err := l.Driver.Children(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", id, err)
	}
	return &model.PersonDetail{
		Person:   *p,
		Parents:  nonNil(parents),
		Children: nonNil(children),
		Spouses:  spousesOf(p.Metadata),
	}, nil
}

// spousesOf reads metadata.rels.spouses, skipping entries without identity.
func spousesOf(meta map[string]any) []string {
	rels, ok := meta[model.MetadataRels].(map[string]any)
	if !ok {
		return nil
	}
	spouses := identity.NormalizeAll(rels[extraction.RelSpouses])
	if len(spouses) == 0 {
		return nil
	}
	return spouses
}

// GetDescendants lists everyone reachable from id, nearest first. An unknown
// id or a leaf yields an empty list.
func (l *Lineage) GetDescendants(ctx context.Context, id string) ([]model.RelativeAtDepth, error) {
	out, err := l.Driver.Descendants(ctx, strings.TrimSpace(id))
	metrics.ObserveQuery("descendants", queryResult(err))
	if err != nil {
		return nil, fmt.Errorf("descendants of %s: %w", id, err)
	}
	return nonNil(out), nil
}

// GetAncestors lists everyone id descends from, nearest first.
func (l *Lineage) GetAncestors(ctx context.Context, id string) ([]model.RelativeAtDepth, error) {
	out, err := l.Driver.Ancestors(ctx, strings.TrimSpace(id))
	metrics.ObserveQuery("ancestors", queryResult(err))
	if err != nil {
		return nil, fmt.Errorf("ancestors of %s: %w", id, err)
	}
	return nonNil(out), nil
}

// Search matches q case-insensitively against names and metadata. A blank
// query returns nothing without touching the store.
func (l *Lineage) Search(ctx context.Context, q string) ([]model.PersonSummary, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []model.PersonSummary{}, nil
	}
	out, err := l.Driver.Search(ctx, q, model.SearchPageSize)
	metrics.ObserveQuery("search", queryResult(err))
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", q, err)
	}
	return nonNil(out), nil
}

// HealthCheck reports whether the store answers and how many persons it holds.
func (l *Lineage) HealthCheck(ctx context.Context) (model.Health, error) {
	if err := l.Driver.Ping(ctx); err != nil {
		metrics.ObserveQuery("health", metrics.ResultError)
		return model.Health{Status: model.HealthUnavailable}, fmt.Errorf("ping store: %w", err)
	}
	n, err := l.Driver.CountPersons(ctx)
	if err != nil {
		metrics.ObserveQuery("health", metrics.ResultError)
		return model.Health{Status: model.HealthUnavailable}, fmt.Errorf("count persons: %w", err)
	}
	metrics.ObserveQuery("health", metrics.ResultOK)
	return model.Health{Status: model.HealthOK, Persons: n}, nil
}

// Dataset returns the last ingested document.
func (l *Lineage) Dataset(ctx context.Context) (*model.Dataset, error) {
	return l.Driver.LoadDataset(ctx)
}

func queryResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, model.ErrNotFound):
		return metrics.ResultNotFound
	default:
		return metrics.ResultError
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
