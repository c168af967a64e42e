package driver

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/agenthands/lineage/internal/core/model"
)

// PersonUpsertResult reports a person batch write.
type PersonUpsertResult struct {
	// Written is the number of distinct identities written.
	Written int
	// Known is every identity present in the store after the write.
	Known mapset.Set[string]
}

// EdgeUpsertResult reports an edge batch write.
type EdgeUpsertResult struct {
	// Stored counts edges that were not already present.
	Stored int
	// Rejected holds pairs with at least one unknown endpoint.
	Rejected []model.Edge
	// MissingIDs is the sorted set of unknown endpoints of rejected pairs.
	MissingIDs []string
}

// GraphDriver is the persisted store for persons, parent -> child edges and
// the closure index. Implementations must run each write method in a single
// transaction.
type GraphDriver interface {
	// BuildIndices provisions the schema. It is safe to call repeatedly.
	BuildIndices(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	UpsertPersons(ctx context.Context, batch []model.Person) (PersonUpsertResult, error)
	UpsertEdges(ctx context.Context, pairs []model.Edge, known mapset.Set[string]) (EdgeUpsertResult, error)
	// ReplaceClosure deletes every closure row and writes entries in one transaction.
	ReplaceClosure(ctx context.Context, entries []model.ClosureEntry) (int, error)
	// Clear removes all persons, edges, closure rows and the dataset record.
	Clear(ctx context.Context) error

	PersonIDs(ctx context.Context) ([]string, error)
	Edges(ctx context.Context) ([]model.Edge, error)
	ClosureEntries(ctx context.Context) ([]model.ClosureEntry, error)

	GetPerson(ctx context.Context, id string) (*model.Person, error)
	Parents(ctx context.Context, id string) ([]model.Person, error)
	Children(ctx context.Context, id string) ([]model.Person, error)
	Descendants(ctx context.Context, id string) ([]model.RelativeAtDepth, error)
	Ancestors(ctx context.Context, id string) ([]model.RelativeAtDepth, error)
	Search(ctx context.Context, query string, limit int) ([]model.PersonSummary, error)
	CountPersons(ctx context.Context) (int, error)

	SaveDataset(ctx context.Context, ds model.Dataset) error
	LoadDataset(ctx context.Context) (*model.Dataset, error)
}
