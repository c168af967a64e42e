package driver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/lineage/internal/core/model"
	"github.com/agenthands/lineage/internal/logger"
)

// MemgraphDriver stores the family graph in Memgraph over Bolt.
type MemgraphDriver struct {
	Driver neo4j.DriverWithContext
	now    func() time.Time
}

func NewMemgraphDriver(ctx context.Context, uri, username, password string) (*MemgraphDriver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}

	logger.Info("Connected to Memgraph", "uri", uri)
	return &MemgraphDriver{Driver: driver, now: time.Now}, nil
}

func (d *MemgraphDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *MemgraphDriver) Ping(ctx context.Context) error {
	return d.Driver.VerifyConnectivity(ctx)
}

func (d *MemgraphDriver) ExecuteQuery(ctx context.Context, query string, params map[string]any) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

// executeWrite runs fn in one managed write transaction.
func (d *MemgraphDriver) executeWrite(ctx context.Context, fn func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := d.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)
	return session.ExecuteWrite(ctx, fn)
}

// BuildIndices creates indices and the identity constraint. Memgraph refuses
// schema changes inside explicit transactions, so each runs auto-commit.
func (d *MemgraphDriver) BuildIndices(ctx context.Context) error {
	session := d.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, q := range memgraphIndexQueries {
		result, err := session.Run(ctx, q, nil)
		if err == nil {
			_, err = result.Consume(ctx)
		}
		if err != nil {
			// Already existing indices are reported as errors.
			logger.Warn("Failed to create index", "query", q, "err", err)
		}
	}
	return nil
}

func (d *MemgraphDriver) UpsertPersons(ctx context.Context, batch []model.Person) (PersonUpsertResult, error) {
	persons := collapsePersons(batch)
	now := formatTime(d.now())

	rows := make([]map[string]any, 0, len(persons))
	for _, p := range persons {
		row, err := personParams(p, now)
		if err != nil {
			return PersonUpsertResult{}, err
		}
		rows = append(rows, row)
	}

	known, err := d.executeWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(rows) > 0 {
			res, err := tx.Run(ctx, UpsertPersonsQuery, map[string]any{"persons": rows})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		res, err := tx.Run(ctx, PersonIDsQuery, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		ids := mapset.NewThreadUnsafeSet[string]()
		for _, rec := range records {
			if id := recordString(rec, "id"); id != nil {
				ids.Add(*id)
			}
		}
		return ids, nil
	})
	if err != nil {
		return PersonUpsertResult{}, fmt.Errorf("memgraph: upsert persons: %w", err)
	}
	return PersonUpsertResult{Written: len(persons), Known: known.(mapset.Set[string])}, nil
}

func (d *MemgraphDriver) UpsertEdges(ctx context.Context, pairs []model.Edge, known mapset.Set[string]) (EdgeUpsertResult, error) {
	valid, rejected, missing := PartitionEdges(pairs, known)
	res := EdgeUpsertResult{Rejected: rejected, MissingIDs: missing}
	if len(valid) == 0 {
		return res, nil
	}

	rows := edgeParams(valid)
	stored, err := d.executeWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, InsertEdgesQuery, map[string]any{"edges": rows})
		if err != nil {
			return nil, err
		}
		rec, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		return recordInt(rec, "stored"), nil
	})
	if err != nil {
		return EdgeUpsertResult{}, fmt.Errorf("memgraph: upsert edges: %w", err)
	}
	res.Stored = stored.(int)
	return res, nil
}

func (d *MemgraphDriver) ReplaceClosure(ctx context.Context, entries []model.ClosureEntry) (int, error) {
	rows := closureParams(entries)
	_, err := d.executeWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, DeleteClosureQuery, nil)
		if err != nil {
			return nil, err
		}
		if _, err := result.Consume(ctx); err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}
		result, err = tx.Run(ctx, InsertClosureQuery, map[string]any{"entries": rows})
		if err != nil {
			return nil, err
		}
		rec, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		// Unmatched endpoints produce no row; fail so the delete rolls back.
		if written := recordInt(rec, "written"); written != len(rows) {
			return nil, fmt.Errorf("wrote %d of %d closure rows: %w", written, len(rows), model.ErrDanglingReference)
		}
		return nil, nil
	})
	if err != nil {
		return 0, fmt.Errorf("memgraph: replace closure: %w", err)
	}
	return len(entries), nil
}

func (d *MemgraphDriver) Clear(ctx context.Context) error {
	_, err := d.executeWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, q := range []string{ClearPersonsQuery, ClearDatasetQuery} {
			result, err := tx.Run(ctx, q, nil)
			if err != nil {
				return nil, err
			}
			if _, err := result.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("memgraph: clear: %w", err)
	}
	return nil
}

func (d *MemgraphDriver) PersonIDs(ctx context.Context) ([]string, error) {
	res, err := d.ExecuteQuery(ctx, PersonIDsQuery, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		if id := recordString(rec, "id"); id != nil {
			ids = append(ids, *id)
		}
	}
	return ids, nil
}

func (d *MemgraphDriver) Edges(ctx context.Context) ([]model.Edge, error) {
	res, err := d.ExecuteQuery(ctx, EdgesQuery, nil)
	if err != nil {
		return nil, err
	}
	edges := make([]model.Edge, 0, len(res.Records))
	for _, rec := range res.Records {
		edges = append(edges, model.Edge{Parent: stringOrEmpty(rec, "parent"), Child: stringOrEmpty(rec, "child")})
	}
	return edges, nil
}

func (d *MemgraphDriver) ClosureEntries(ctx context.Context) ([]model.ClosureEntry, error) {
	res, err := d.ExecuteQuery(ctx, ClosureEntriesQuery, nil)
	if err != nil {
		return nil, err
	}
	entries := make([]model.ClosureEntry, 0, len(res.Records))
	for _, rec := range res.Records {
		entries = append(entries, model.ClosureEntry{
			Ancestor:   stringOrEmpty(rec, "ancestor"),
			Descendant: stringOrEmpty(rec, "descendant"),
			Depth:      recordInt(rec, "depth"),
		})
	}
	return entries, nil
}

func (d *MemgraphDriver) GetPerson(ctx context.Context, id string) (*model.Person, error) {
	res, err := d.ExecuteQuery(ctx, GetPersonQuery, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("person %q: %w", id, model.ErrNotFound)
	}
	p := personFromRecord(res.Records[0])
	return &p, nil
}

func (d *MemgraphDriver) queryPersons(ctx context.Context, query, id string) ([]model.Person, error) {
	res, err := d.ExecuteQuery(ctx, query, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	persons := make([]model.Person, 0, len(res.Records))
	for _, rec := range res.Records {
		persons = append(persons, personFromRecord(rec))
	}
	return persons, nil
}

func (d *MemgraphDriver) Parents(ctx context.Context, id string) ([]model.Person, error) {
	return d.queryPersons(ctx, ParentsQuery, id)
}

func (d *MemgraphDriver) Children(ctx context.Context, id string) ([]model.Person, error) {
	return d.queryPersons(ctx, ChildrenQuery, id)
}

func (d *MemgraphDriver) queryRelatives(ctx context.Context, query, id string) ([]model.RelativeAtDepth, error) {
	res, err := d.ExecuteQuery(ctx, query, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	relatives := make([]model.RelativeAtDepth, 0, len(res.Records))
	for _, rec := range res.Records {
		relatives = append(relatives, model.RelativeAtDepth{Person: personFromRecord(rec), Depth: recordInt(rec, "depth")})
	}
	return relatives, nil
}

func (d *MemgraphDriver) Descendants(ctx context.Context, id string) ([]model.RelativeAtDepth, error) {
	return d.queryRelatives(ctx, DescendantsQuery, id)
}

func (d *MemgraphDriver) Ancestors(ctx context.Context, id string) ([]model.RelativeAtDepth, error) {
	return d.queryRelatives(ctx, AncestorsQuery, id)
}

func (d *MemgraphDriver) Search(ctx context.Context, query string, limit int) ([]model.PersonSummary, error) {
	res, err := d.ExecuteQuery(ctx, SearchPersonsQuery, map[string]any{
		"q":     strings.ToLower(query),
		"limit": limit,
	})
	if err != nil {
		return nil, err
	}
	results := make([]model.PersonSummary, 0, len(res.Records))
	for _, rec := range res.Records {
		results = append(results, personFromRecord(rec).Summary())
	}
	return results, nil
}

func (d *MemgraphDriver) CountPersons(ctx context.Context) (int, error) {
	res, err := d.ExecuteQuery(ctx, CountPersonsQuery, nil)
	if err != nil {
		return 0, err
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	return recordInt(res.Records[0], "n"), nil
}

func (d *MemgraphDriver) SaveDataset(ctx context.Context, ds model.Dataset) error {
	if ds.ID == "" {
		ds.ID = model.DefaultDatasetID
	}
	if ds.UpdatedAt.IsZero() {
		ds.UpdatedAt = d.now()
	}
	_, err := d.ExecuteQuery(ctx, SaveDatasetQuery, map[string]any{
		"id":         ds.ID,
		"payload":    ds.Payload,
		"run_id":     ds.RunID,
		"updated_at": formatTime(ds.UpdatedAt),
	})
	return err
}

func (d *MemgraphDriver) LoadDataset(ctx context.Context) (*model.Dataset, error) {
	res, err := d.ExecuteQuery(ctx, LoadDatasetQuery, map[string]any{"id": model.DefaultDatasetID})
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("dataset: %w", model.ErrNotFound)
	}
	rec := res.Records[0]
	return &model.Dataset{
		ID:        stringOrEmpty(rec, "id"),
		Payload:   stringOrEmpty(rec, "payload"),
		RunID:     stringOrEmpty(rec, "run_id"),
		UpdatedAt: parseTime(stringOrEmpty(rec, "updated_at")),
	}, nil
}

// personParams builds the UNWIND row for one person. Absent fields are sent
// as null so that SET removes a previously stored value.
func personParams(p model.Person, now string) (map[string]any, error) {
	meta, err := encodeMetadata(p.Metadata)
	if err != nil {
		return nil, fmt.Errorf("person %s: %w", p.ID, err)
	}
	return map[string]any{
		"id":          p.ID,
		"given_name":  optional(p.GivenName),
		"family_name": optional(p.FamilyName),
		"birth_date":  optional(p.BirthDate),
		"metadata":    meta,
		"now":         now,
	}, nil
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// edgeParams deduplicates and orders edges for a single UNWIND.
func edgeParams(edges []model.Edge) []map[string]any {
	unique := mapset.NewThreadUnsafeSet(edges...).ToSlice()
	sort.Slice(unique, func(i, j int) bool {
		if unique[i].Parent != unique[j].Parent {
			return unique[i].Parent < unique[j].Parent
		}
		return unique[i].Child < unique[j].Child
	})
	rows := make([]map[string]any, 0, len(unique))
	for _, e := range unique {
		rows = append(rows, map[string]any{"parent": e.Parent, "child": e.Child})
	}
	return rows
}

func closureParams(entries []model.ClosureEntry) []map[string]any {
	rows := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, map[string]any{
			"ancestor":   e.Ancestor,
			"descendant": e.Descendant,
			"depth":      int64(e.Depth),
		})
	}
	return rows
}

func personFromRecord(rec *neo4j.Record) model.Person {
	var meta string
	if m := recordString(rec, "metadata"); m != nil {
		meta = *m
	}
	return model.Person{
		ID:         stringOrEmpty(rec, "id"),
		GivenName:  recordString(rec, "given_name"),
		FamilyName: recordString(rec, "family_name"),
		BirthDate:  recordString(rec, "birth_date"),
		Metadata:   decodeMetadata(meta),
		CreatedAt:  parseTime(stringOrEmpty(rec, "created_at")),
		UpdatedAt:  parseTime(stringOrEmpty(rec, "updated_at")),
	}
}

func recordString(rec *neo4j.Record, key string) *string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func stringOrEmpty(rec *neo4j.Record, key string) string {
	if s := recordString(rec, key); s != nil {
		return *s
	}
	return ""
}

func recordInt(rec *neo4j.Record, key string) int {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}
