package core

import (
	"context"
	"errors"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/agenthands/lineage/internal/core/model"
	"github.com/agenthands/lineage/internal/driver"
)

var errStoreDown = errors.New("store down")

// MockDriver records calls and fails the method named in FailOn.
type MockDriver struct {
	Calls  []string
	FailOn string
	Err    error

	Persons     map[string]model.Person
	ParentsOf   map[string][]model.Person
	ChildrenOf  map[string][]model.Person
	Relatives   []model.RelativeAtDepth
	SearchRows  []model.PersonSummary
	SearchQuery string
	SearchLimit int
	Stored      []model.Edge
	Closure     []model.ClosureEntry
	Data        *model.Dataset
}

var _ driver.GraphDriver = (*MockDriver)(nil)

func (m *MockDriver) call(name string) error {
	m.Calls = append(m.Calls, name)
	if m.FailOn == name {
		if m.Err != nil {
			return m.Err
		}
		return errStoreDown
	}
	return nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error { return m.call("BuildIndices") }
func (m *MockDriver) Ping(ctx context.Context) error         { return m.call("Ping") }
func (m *MockDriver) Close(ctx context.Context) error        { return m.call("Close") }

func (m *MockDriver) UpsertPersons(ctx context.Context, batch []model.Person) (driver.PersonUpsertResult, error) {
	if err := m.call("UpsertPersons"); err != nil {
		return driver.PersonUpsertResult{}, err
	}
	if m.Persons == nil {
		m.Persons = map[string]model.Person{}
	}
	for _, p := range batch {
		m.Persons[p.ID] = p
	}
	known := mapset.NewThreadUnsafeSet[string]()
	for id := range m.Persons {
		known.Add(id)
	}
	return driver.PersonUpsertResult{Written: len(batch), Known: known}, nil
}

func (m *MockDriver) UpsertEdges(ctx context.Context, pairs []model.Edge, known mapset.Set[string]) (driver.EdgeUpsertResult, error) {
	if err := m.call("UpsertEdges"); err != nil {
		return driver.EdgeUpsertResult{}, err
	}
	valid, rejected, missing := driver.PartitionEdges(pairs, known)
	m.Stored = append(m.Stored, valid...)
	return driver.EdgeUpsertResult{Stored: len(valid), Rejected: rejected, MissingIDs: missing}, nil
}

func (m *MockDriver) ReplaceClosure(ctx context.Context, entries []model.ClosureEntry) (int, error) {
	if err := m.call("ReplaceClosure"); err != nil {
		return 0, err
	}
	m.Closure = entries
	return len(entries), nil
}

func (m *MockDriver) Clear(ctx context.Context) error {
	if err := m.call("Clear"); err != nil {
		return err
	}
	m.Persons, m.Stored, m.Closure, m.Data = nil, nil, nil, nil
	return nil
}

func (m *MockDriver) PersonIDs(ctx context.Context) ([]string, error) {
	if err := m.call("PersonIDs"); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(m.Persons))
	for id := range m.Persons {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *MockDriver) Edges(ctx context.Context) ([]model.Edge, error) {
	if err := m.call("Edges"); err != nil {
		return nil, err
	}
	return m.Stored, nil
}

func (m *MockDriver) ClosureEntries(ctx context.Context) ([]model.ClosureEntry, error) {
	if err := m.call("ClosureEntries"); err != nil {
		return nil, err
	}
	return m.Closure, nil
}

func (m *MockDriver) GetPerson(ctx context.Context, id string) (*model.Person, error) {
	if err := m.call("GetPerson"); err != nil {
		return nil, err
	}
	p, ok := m.Persons[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &p, nil
}

func (m *MockDriver) Parents(ctx context.Context, id string) ([]model.Person, error) {
	if err := m.call("Parents"); err != nil {
		return nil, err
	}
	return m.ParentsOf[id], nil
}

func (m *MockDriver) Children(ctx context.Context, id string) ([]model.Person, error) {
	if err := m.call("Children"); err != nil {
		return nil, err
	}
	return m.ChildrenOf[id], nil
}

func (m *MockDriver) Descendants(ctx context.Context, id string) ([]model.RelativeAtDepth, error) {
	if err := m.call("Descendants"); err != nil {
		return nil, err
	}
	return m.Relatives, nil
}

func (m *MockDriver) Ancestors(ctx context.Context, id string) ([]model.RelativeAtDepth, error) {
	if err := m.call("Ancestors"); err != nil {
		return nil, err
	}
	return m.Relatives, nil
}

func (m *MockDriver) Search(ctx context.Context, query string, limit int) ([]model.PersonSummary, error) {
	if err := m.call("Search"); err != nil {
		return nil, err
	}
	m.SearchQuery, m.SearchLimit = query, limit
	return m.SearchRows, nil
}

func (m *MockDriver) CountPersons(ctx context.Context) (int, error) {
	if err := m.call("CountPersons"); err != nil {
		return 0, err
	}
	return len(m.Persons), nil
}

func (m *MockDriver) SaveDataset(ctx context.Context, ds model.Dataset) error {
	if err := m.call("SaveDataset"); err != nil {
		return err
	}
	m.Data = &ds
	return nil
}

func (m *MockDriver) LoadDataset(ctx context.Context) (*model.Dataset, error) {
	if err := m.call("LoadDataset"); err != nil {
		return nil, err
	}
	if m.Data == nil {
		return nil, model.ErrNotFound
	}
	return m.Data, nil
}
