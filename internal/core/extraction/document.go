package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/agenthands/lineage/internal/core/model"
	"github.com/tidwall/gjson"
)

// Document is a parsed family-tree export reduced to its person nodes.
type Document struct {
	Nodes []map[string]any
	// Skipped counts entries of the person list that were not objects.
	Skipped int
}

// rootPaths are the object keys that may hold the person list, in order.
var rootPaths = []string{"data", "tree"}

// ParseDocument validates raw and locates the person list. The list may be the
// document itself or live under "data" or "tree"; any other well-formed
// document yields no nodes. Invalid JSON returns ErrMalformedDocument.
func ParseDocument(raw []byte) (*Document, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: input is not valid JSON", model.ErrMalformedDocument)
	}

	list := resolveRoot(gjson.ParseBytes(raw))
	doc := &Document{}
	if !list.Exists() {
		return doc, nil
	}

	var decodeErr error
	list.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			doc.Skipped++
			return true
		}
		node, err := decodeObject(item.Raw)
		if err != nil {
			decodeErr = err
			return false
		}
		doc.Nodes = append(doc.Nodes, node)
		return true
	})
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedDocument, decodeErr)
	}
	return doc, nil
}

func resolveRoot(root gjson.Result) gjson.Result {
	if root.IsArray() {
		return root
	}
	if root.IsObject() {
		for _, path := range rootPaths {
			if candidate := root.Get(path); candidate.IsArray() {
				return candidate
			}
		}
	}
	return gjson.Result{}
}

// decodeObject keeps numbers as json.Number so identifiers and metadata
// round-trip without float formatting.
func decodeObject(raw string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var node map[string]any
	if err := dec.Decode(&node); err != nil {
		return nil, err
	}
	return node, nil
}
