package extraction

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/agenthands/lineage/internal/core/identity"
	"github.com/agenthands/lineage/internal/core/model"
)

// Top-level keys of a person node.
const (
	keyID   = "id"
	keyData = "data"
	keyRels = "rels"
)

// Relationship list keys inside "rels".
const (
	RelParents  = "parents"
	RelChildren = "children"
	RelSpouses  = "spouses"
)

// FieldLabels are the case-sensitive attribute labels mapped onto person columns.
type FieldLabels struct {
	GivenName  string
	FamilyName string
	BirthDate  string
}

// DefaultLabels matches the labels written by the tree builder.
var DefaultLabels = FieldLabels{
	GivenName:  "first name",
	FamilyName: "last name",
	BirthDate:  "birthday",
}

type Extractor struct {
	Labels FieldLabels
}

func NewExtractor() *Extractor {
	return &Extractor{Labels: DefaultLabels}
}

// Batch is the result of extracting every node of a document.
type Batch struct {
	Persons []model.Person
	Edges   mapset.Set[model.Edge]
	Errors  []model.NodeError
}

// Extract maps every node to a person and merges the relationship pairs they
// declare. A node without identity is recorded in Errors and skipped.
func (e *Extractor) Extract(nodes []map[string]any) *Batch {
	batch := &Batch{
		Persons: make([]model.Person, 0, len(nodes)),
		Edges:   mapset.NewThreadUnsafeSet[model.Edge](),
	}
	for i, node := range nodes {
		person, err := e.ExtractPerson(node)
		if err != nil {
			batch.Errors = append(batch.Errors, model.NodeError{Index: i, Err: err})
			continue
		}
		batch.Persons = append(batch.Persons, person)
		batch.Edges = batch.Edges.Union(CollectRelationships(node, person.ID))
	}
	return batch
}

// ExtractPerson maps one raw node to a person. Only a missing identity is an
// error; malformed optional fields are treated as absent and kept in metadata.
func (e *Extractor) ExtractPerson(node map[string]any) (model.Person, error) {
	id, ok := identity.Normalize(node[keyID])
	if !ok {
		return model.Person{}, fmt.Errorf("extract person: %w", model.ErrMissingIdentity)
	}

	fields := asObject(node[keyData])
	rest := make(map[string]any, len(fields))
	for k, v := range fields {
		rest[k] = v
	}

	person := model.Person{
		ID:         id,
		GivenName:  takeString(rest, e.Labels.GivenName),
		FamilyName: takeString(rest, e.Labels.FamilyName),
		BirthDate:  takeString(rest, e.Labels.BirthDate),
	}

	extras := make(map[string]any)
	for k, v := range node {
		switch k {
		case keyID, keyData, keyRels:
		default:
			extras[k] = v
		}
	}

	person.Metadata = map[string]any{
		model.MetadataData:   rest,
		model.MetadataRels:   asObject(node[keyRels]),
		model.MetadataExtras: extras,
	}
	return person, nil
}

// CollectRelationships returns the parent -> child pairs implied by the node's
// "parents" and "children" lists. References that do not normalize are skipped.
func CollectRelationships(node map[string]any, self string) mapset.Set[model.Edge] {
	pairs := mapset.NewThreadUnsafeSet[model.Edge]()
	rels := asObject(node[keyRels])

	for _, parent := range identity.NormalizeAll(rels[RelParents]) {
		pairs.Add(model.Edge{Parent: parent, Child: self})
	}
	for _, child := range identity.NormalizeAll(rels[RelChildren]) {
		pairs.Add(model.Edge{Parent: self, Child: child})
	}
	return pairs
}

// takeString moves a string field out of fields. Non-string values stay in
// fields so nothing from the source is lost.
func takeString(fields map[string]any, label string) *string {
	raw, ok := fields[label]
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	delete(fields, label)
	return &s
}

func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
