package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/lineage/internal/core/model"
	"github.com/agenthands/lineage/internal/driver"
)

func newSQLiteLineage(t *testing.T) *Lineage {
	t.Helper()
	d, err := driver.NewSQLiteDriver(filepath.Join(t.TempDir(), "family.db"))
	require.NoError(t, err)
	l := NewLineage(d)
	t.Cleanup(func() { l.Close(context.Background()) })
	require.NoError(t, l.BuildIndices(context.Background()))
	return l
}

func relativeIDs(rows []model.RelativeAtDepth) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func personIDs(rows []model.Person) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func summaryIDs(rows []model.PersonSummary) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func depths(rows []model.RelativeAtDepth) []int {
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Depth)
	}
	return out
}

func TestBootstrap_DefaultFamily(t *testing.T) {
	ctx := context.Background()
	l := newSQLiteLineage(t)

	report, err := l.Bootstrap(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 7, report.PersonsImported)
	assert.Equal(t, 8, report.EdgesStored)
	assert.Equal(t, 21, report.ClosureRows)
	assert.Empty(t, report.MissingIDs)

	// The couple, their three children and the paternal grandparents.
	alex, err := l.GetPerson(ctx, "alex-garnier")
	require.NoError(t, err)
	assert.Equal(t, "Alex", *alex.Person.GivenName)
	assert.Equal(t, "1983-03-15", *alex.Person.BirthDate)
	assert.Equal(t, map[string]any{"occupation": "Engineer"}, alex.Person.Metadata[model.MetadataData])
	assert.Equal(t, []string{"julie-garnier", "pierre-garnier"}, personIDs(alex.Parents))
	assert.Equal(t, []string{"chloe-garnier", "ines-garnier", "matteo-garnier"}, personIDs(alex.Children))
	assert.Equal(t, []string{"lea-roux"}, alex.Spouses)

	desc, err := l.GetDescendants(ctx, "pierre-garnier")
	require.NoError(t, err)
	assert.Equal(t, []string{"alex-garnier", "chloe-garnier", "ines-garnier", "matteo-garnier"}, relativeIDs(desc))
	assert.Equal(t, []int{1, 2, 2, 2}, depths(desc))

	anc, err := l.GetAncestors(ctx, "chloe-garnier")
	require.NoError(t, err)
	assert.Equal(t, []string{"alex-garnier", "lea-roux", "julie-garnier", "pierre-garnier"}, relativeIDs(anc))
	assert.Equal(t, []int{1, 1, 2, 2}, depths(anc))

	found, err := l.Search(ctx, "architect")
	require.NoError(t, err)
	assert.Equal(t, []string{"lea-roux"}, summaryIDs(found))

	h, err := l.HealthCheck(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Health{Status: model.HealthOK, Persons: 7}, h)

	// A second bootstrap leaves the store alone.
	report, err = l.Bootstrap(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestBootstrap_ConfiguredSeed(t *testing.T) {
	ctx := context.Background()
	l := newSQLiteLineage(t)

	report, err := l.Bootstrap(ctx, []byte(`[{"id": "solo", "data": {"first name": "Solo"}}]`))
	require.NoError(t, err)
	assert.Equal(t, 1, report.PersonsImported)
	assert.Equal(t, 1, report.ClosureRows)

	ds, err := l.Dataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, ds.RunID)
}

func TestReingestion_ReplacesWithoutDuplicates(t *testing.T) {
	ctx := context.Background()
	l := newSQLiteLineage(t)

	_, err := l.Ingest(ctx, DefaultSeed, IngestOptions{WithClosure: true})
	require.NoError(t, err)
	report, err := l.Ingest(ctx, DefaultSeed, IngestOptions{WithClosure: true})
	require.NoError(t, err)
	assert.Equal(t, 7, report.PersonsImported)
	assert.Equal(t, 0, report.EdgesStored)
	assert.Equal(t, 21, report.ClosureRows)

	h, err := l.HealthCheck(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, h.Persons)

	edges, err := l.Driver.Edges(ctx)
	require.NoError(t, err)
	assert.Len(t, edges, 8)

	// Renaming keeps edges and creation time.
	before, err := l.GetPerson(ctx, "alex-garnier")
	require.NoError(t, err)
	_, err = l.Ingest(ctx, []byte(`[{"id": "alex-garnier", "data": {"first name": "Alexandre"}}]`), IngestOptions{WithClosure: true})
	require.NoError(t, err)
	after, err := l.GetPerson(ctx, "alex-garnier")
	require.NoError(t, err)
	assert.Equal(t, "Alexandre", *after.Person.GivenName)
	assert.Nil(t, after.Person.FamilyName)
	assert.True(t, before.Person.CreatedAt.Equal(after.Person.CreatedAt))
	assert.Len(t, after.Children, 3)
}

func TestIngest_Reset(t *testing.T) {
	ctx := context.Background()
	l := newSQLiteLineage(t)

	_, err := l.Ingest(ctx, DefaultSeed, IngestOptions{WithClosure: true})
	require.NoError(t, err)
	report, err := l.Ingest(ctx, []byte(`[{"id": "a"}, {"id": "b", "rels": {"parents": ["a"]}}]`), IngestOptions{Reset: true, WithClosure: true})
	require.NoError(t, err)
	assert.Equal(t, 3, report.ClosureRows)

	ids, err := l.Driver.PersonIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestIngest_DanglingPairsExcluded(t *testing.T) {
	ctx := context.Background()
	l := newSQLiteLineage(t)

	report, err := l.Ingest(ctx, []byte(`[
		{"id": "a", "rels": {"children": ["b", "ghost"], "parents": ["phantom"]}},
		{"id": "b"}
	]`), IngestOptions{WithClosure: true})
	require.NoError(t, err)

	assert.Equal(t, 1, report.EdgesStored)
	assert.Equal(t, []string{"ghost", "phantom"}, report.MissingIDs)
	assert.Len(t, report.RejectedEdges, 2)

	edges, err := l.Driver.Edges(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Edge{{Parent: "a", Child: "b"}}, edges)
}

func TestIngest_EdgesToPreviouslyStoredPersons(t *testing.T) {
	ctx := context.Background()
	l := newSQLiteLineage(t)

	_, err := l.Ingest(ctx, []byte(`[{"id": "a"}]`), IngestOptions{})
	require.NoError(t, err)
	report, err := l.Ingest(ctx, []byte(`[{"id": "b", "rels": {"parents": ["a"]}}]`), IngestOptions{WithClosure: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.EdgesStored)
	assert.Empty(t, report.MissingIDs)
}

func TestRoundTrip_Chain(t *testing.T) {
	ctx := context.Background()
	l := newSQLiteLineage(t)

	_, err := l.Ingest(ctx, []byte(`[
		{"id": "A", "rels": {"children": ["B"]}},
		{"id": "B", "rels": {"children": ["C"]}},
		{"id": "C"}
	]`), IngestOptions{WithClosure: true})
	require.NoError(t, err)

	desc, err := l.GetDescendants(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, relativeIDs(desc))
	assert.Equal(t, []int{1, 2}, depths(desc))

	anc, err := l.GetAncestors(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, relativeIDs(anc))

	leaf, err := l.GetDescendants(ctx, "C")
	require.NoError(t, err)
	assert.NotNil(t, leaf)
	assert.Empty(t, leaf)

	unknown, err := l.GetAncestors(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, unknown)
}

func TestRebuildClosure_Idempotent(t *testing.T) {
	ctx := context.Background()
	l := newSQLiteLineage(t)

	_, err := l.Ingest(ctx, DefaultSeed, IngestOptions{})
	require.NoError(t, err)

	first, err := l.RebuildClosure(ctx)
	require.NoError(t, err)
	entriesA, err := l.Driver.ClosureEntries(ctx)
	require.NoError(t, err)

	second, err := l.RebuildClosure(ctx)
	require.NoError(t, err)
	entriesB, err := l.Driver.ClosureEntries(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, entriesA, entriesB)
}

func TestRebuildClosure_Cycle(t *testing.T) {
	ctx := context.Background()
	l := newSQLiteLineage(t)

	report, err := l.Ingest(ctx, []byte(`[
		{"id": "a", "rels": {"children": ["b"]}},
		{"id": "b", "rels": {"children": ["a"]}}
	]`), IngestOptions{WithClosure: true})
	require.NoError(t, err)
	assert.Equal(t, 4, report.ClosureRows)

	entries, err := l.Driver.ClosureEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.ClosureEntry{
		{Ancestor: "a", Descendant: "a", Depth: 0},
		{Ancestor: "a", Descendant: "b", Depth: 1},
		{Ancestor: "b", Descendant: "a", Depth: 1},
		{Ancestor: "b", Descendant: "b", Depth: 0},
	}, entries)
}

func TestSearch_GivenName(t *testing.T) {
	ctx := context.Background()
	l := newSQLiteLineage(t)
	_, err := l.Ingest(ctx, DefaultSeed, IngestOptions{})
	require.NoError(t, err)

	// Parents list the child's identity in their metadata.
	found, err := l.Search(ctx, "MATTEO")
	require.NoError(t, err)
	assert.Equal(t, []string{"alex-garnier", "matteo-garnier", "lea-roux"}, summaryIDs(found))

	none, err := l.Search(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, none)
}
