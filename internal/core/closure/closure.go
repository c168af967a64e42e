// Package closure computes the reachability index over parent -> child edges.
package closure

import (
	"sort"

	"github.com/agenthands/lineage/internal/core/model"
)

type pair struct {
	ancestor   string
	descendant string
}

// Build returns every (ancestor, descendant, depth) triple reachable through
// edges, plus a depth 0 self entry per person. Depth is the shortest path
// length. Edges naming an identity outside ids are ignored.
//
// The iteration extends the previous round's newly found pairs by one edge
// and keeps only pairs never seen before, so it stops on cyclic input once
// every reachable pair has been recorded at its minimum depth.
func Build(ids []string, edges []model.Edge) []model.ClosureEntry {
	persons := make(map[string]struct{}, len(ids))
	depth := make(map[pair]int, len(ids)+len(edges))
	for _, id := range ids {
		persons[id] = struct{}{}
		depth[pair{id, id}] = 0
	}

	// Adjacency: parent -> children, restricted to known persons.
	children := make(map[string][]string)
	var frontier []pair
	for _, e := range edges {
		if _, ok := persons[e.Parent]; !ok {
			continue
		}
		if _, ok := persons[e.Child]; !ok {
			continue
		}
		p := pair{e.Parent, e.Child}
		if _, seen := depth[p]; seen {
			continue
		}
		depth[p] = 1
		children[e.Parent] = append(children[e.Parent], e.Child)
		frontier = append(frontier, p)
	}

	for d := 2; len(frontier) > 0; d++ {
		var next []pair
		for _, f := range frontier {
			for _, child := range children[f.descendant] {
				p := pair{f.ancestor, child}
				if _, seen := depth[p]; seen {
					continue
				}
				depth[p] = d
				next = append(next, p)
			}
		}
		frontier = next
	}

	entries := make([]model.ClosureEntry, 0, len(depth))
	for p, d := range depth {
		entries = append(entries, model.ClosureEntry{Ancestor: p.ancestor, Descendant: p.descendant, Depth: d})
	}
	Sort(entries)
	return entries
}

// Sort orders entries by ancestor then descendant.
func Sort(entries []model.ClosureEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Ancestor != entries[j].Ancestor {
			return entries[i].Ancestor < entries[j].Ancestor
		}
		return entries[i].Descendant < entries[j].Descendant
	})
}
