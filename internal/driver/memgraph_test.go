package driver

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/lineage/internal/core/model"
)

func TestPersonParams(t *testing.T) {
	row, err := personParams(model.Person{ID: "a", GivenName: strPtr("Alex")}, "2024-01-01T00:00:00Z")
	require.NoError(t, err)

	assert.Equal(t, "a", row["id"])
	assert.Equal(t, "Alex", row["given_name"])
	assert.Nil(t, row["family_name"])
	assert.Equal(t, "{}", row["metadata"])
	assert.Equal(t, "2024-01-01T00:00:00Z", row["now"])

	row, err = personParams(model.Person{ID: "b", Metadata: map[string]any{"note": "A & B"}}, "2024-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, `{"note":"A & B"}`, row["metadata"])
}

func TestEdgeParams_Deduplicates(t *testing.T) {
	rows := edgeParams([]model.Edge{
		{Parent: "b", Child: "c"},
		{Parent: "a", Child: "b"},
		{Parent: "b", Child: "c"},
	})
	assert.Equal(t, []map[string]any{
		{"parent": "a", "child": "b"},
		{"parent": "b", "child": "c"},
	}, rows)
}

func TestClosureParams(t *testing.T) {
	rows := closureParams([]model.ClosureEntry{{Ancestor: "a", Descendant: "b", Depth: 2}})
	assert.Equal(t, []map[string]any{{"ancestor": "a", "descendant": "b", "depth": int64(2)}}, rows)
}

func TestPersonFromRecord(t *testing.T) {
	rec := &neo4j.Record{
		Keys:   []string{"id", "given_name", "family_name", "birth_date", "metadata", "created_at", "updated_at", "depth"},
		Values: []any{"chloe-garnier", "Chloé", "Garnier", nil, `{"data":{"occupation":"Student"}}`, "2024-01-01T00:00:00Z", "2024-02-01T00:00:00Z", int64(1)},
	}

	p := personFromRecord(rec)
	assert.Equal(t, "chloe-garnier", p.ID)
	require.NotNil(t, p.GivenName)
	assert.Equal(t, "Chloé", *p.GivenName)
	assert.Nil(t, p.BirthDate)
	assert.Equal(t, map[string]any{"occupation": "Student"}, p.Metadata["data"])
	assert.Equal(t, 2024, p.CreatedAt.Year())
	assert.Equal(t, 1, recordInt(rec, "depth"))
	assert.Equal(t, 0, recordInt(rec, "missing"))
}
