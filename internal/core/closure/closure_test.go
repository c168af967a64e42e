package closure

import (
	"testing"

	"github.com/agenthands/lineage/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func depthOf(entries []model.ClosureEntry, ancestor, descendant string) (int, bool) {
	for _, e := range entries {
		if e.Ancestor == ancestor && e.Descendant == descendant {
			return e.Depth, true
		}
	}
	return 0, false
}

func TestBuild_Chain(t *testing.T) {
	entries := Build(
		[]string{"A", "B", "C"},
		[]model.Edge{{Parent: "A", Child: "B"}, {Parent: "B", Child: "C"}},
	)

	assert.Equal(t, []model.ClosureEntry{
		{Ancestor: "A", Descendant: "A", Depth: 0},
		{Ancestor: "A", Descendant: "B", Depth: 1},
		{Ancestor: "A", Descendant: "C", Depth: 2},
		{Ancestor: "B", Descendant: "B", Depth: 0},
		{Ancestor: "B", Descendant: "C", Depth: 1},
		{Ancestor: "C", Descendant: "C", Depth: 0},
	}, entries)
}

func TestBuild_Cycle(t *testing.T) {
	entries := Build(
		[]string{"A", "B"},
		[]model.Edge{{Parent: "A", Child: "B"}, {Parent: "B", Child: "A"}},
	)

	assert.Len(t, entries, 4)
	d, ok := depthOf(entries, "A", "B")
	assert.True(t, ok)
	assert.Equal(t, 1, d)
	d, ok = depthOf(entries, "B", "A")
	assert.True(t, ok)
	assert.Equal(t, 1, d)
	d, _ = depthOf(entries, "A", "A")
	assert.Equal(t, 0, d)
	d, _ = depthOf(entries, "B", "B")
	assert.Equal(t, 0, d)
}

func TestBuild_LongCycleTerminates(t *testing.T) {
	ids := []string{"1", "2", "3", "4", "5"}
	var edges []model.Edge
	for i := range ids {
		edges = append(edges, model.Edge{Parent: ids[i], Child: ids[(i+1)%len(ids)]})
	}

	entries := Build(ids, edges)
	// Every ordered pair is reachable; self pairs stay at depth 0.
	assert.Len(t, entries, len(ids)*len(ids))
	d, _ := depthOf(entries, "1", "5")
	assert.Equal(t, 4, d)
	d, _ = depthOf(entries, "5", "1")
	assert.Equal(t, 1, d)
	d, _ = depthOf(entries, "3", "3")
	assert.Equal(t, 0, d)
}

func TestBuild_ShortestDepthWins(t *testing.T) {
	// A -> B -> C -> D and a shortcut A -> D.
	entries := Build(
		[]string{"A", "B", "C", "D"},
		[]model.Edge{
			{Parent: "A", Child: "B"},
			{Parent: "B", Child: "C"},
			{Parent: "C", Child: "D"},
			{Parent: "A", Child: "D"},
		},
	)
	d, _ := depthOf(entries, "A", "D")
	assert.Equal(t, 1, d)
	d, _ = depthOf(entries, "A", "C")
	assert.Equal(t, 2, d)
}

func TestBuild_SelfLoopAndUnknownEndpoints(t *testing.T) {
	entries := Build(
		[]string{"A", "B"},
		[]model.Edge{
			{Parent: "A", Child: "A"},
			{Parent: "A", Child: "B"},
			{Parent: "A", Child: "B"},
			{Parent: "ghost", Child: "A"},
			{Parent: "B", Child: "ghost"},
		},
	)
	assert.Equal(t, []model.ClosureEntry{
		{Ancestor: "A", Descendant: "A", Depth: 0},
		{Ancestor: "A", Descendant: "B", Depth: 1},
		{Ancestor: "B", Descendant: "B", Depth: 0},
	}, entries)
}

func TestBuild_Idempotent(t *testing.T) {
	ids := []string{"g1", "g2", "p", "m", "c1", "c2", "c3"}
	edges := []model.Edge{
		{Parent: "g1", Child: "p"}, {Parent: "g2", Child: "p"},
		{Parent: "p", Child: "c1"}, {Parent: "p", Child: "c2"}, {Parent: "p", Child: "c3"},
		{Parent: "m", Child: "c1"}, {Parent: "m", Child: "c2"}, {Parent: "m", Child: "c3"},
	}
	assert.Equal(t, Build(ids, edges), Build(ids, edges))
}

func TestBuild_Empty(t *testing.T) {
	assert.Empty(t, Build(nil, nil))
}
