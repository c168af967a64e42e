package driver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/agenthands/lineage/internal/core/model"
)

// collapsePersons keeps the last occurrence of each identity, in order of
// first appearance.
func collapsePersons(batch []model.Person) []model.Person {
	index := make(map[string]int, len(batch))
	out := make([]model.Person, 0, len(batch))
	for _, p := range batch {
		if i, ok := index[p.ID]; ok {
			out[i] = p
			continue
		}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	return out
}

// PartitionEdges splits pairs into those whose endpoints are both known and
// those that would dangle. Both slices are sorted; missing holds the unique
// unknown endpoints of the rejected pairs.
func PartitionEdges(pairs []model.Edge, known mapset.Set[string]) (valid, rejected []model.Edge, missing []string) {
	missingSet := make(map[string]struct{})
	for _, e := range pairs {
		if e.Parent == "" || e.Child == "" {
			continue
		}
		if known != nil && known.Contains(e.Parent) && known.Contains(e.Child) {
			valid = append(valid, e)
			continue
		}
		rejected = append(rejected, e)
		for _, id := range []string{e.Child, e.Parent} {
			if known == nil || !known.Contains(id) {
				missingSet[id] = struct{}{}
			}
		}
	}
	sortEdges(valid)
	sortEdges(rejected)
	for id := range missingSet {
		missing = append(missing, id)
	}
	sort.Strings(missing)
	return valid, rejected, missing
}

func sortEdges(edges []model.Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Parent != edges[j].Parent {
			return edges[i].Parent < edges[j].Parent
		}
		return edges[i].Child < edges[j].Child
	})
}

func encodeMetadata(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func decodeMetadata(raw string) map[string]any {
	out := map[string]any{}
	if raw == "" {
		return out
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return map[string]any{}
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// likePattern escapes LIKE wildcards and wraps q for a substring match.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}
