package model

import "time"

// Person is one row of the persons table. Optional string fields are nil when
// the source document did not carry a usable string value.
type Person struct {
	ID         string         `json:"id"`
	GivenName  *string        `json:"given_name"`
	FamilyName *string        `json:"family_name"`
	BirthDate  *string        `json:"birth_date"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at,omitzero"`
	UpdatedAt  time.Time      `json:"updated_at,omitzero"`
}

// Metadata keys used inside Person.Metadata.
const (
	MetadataData   = "data"
	MetadataRels   = "rels"
	MetadataExtras = "extras"
)

// SortKey returns the (family, given, id) triple used to order people.
// Missing names sort as empty strings.
func (p Person) SortKey() (string, string, string) {
	return deref(p.FamilyName), deref(p.GivenName), p.ID
}

// Less reports whether p orders before o by family name, given name, then id.
func (p Person) Less(o Person) bool {
	pf, pg, pid := p.SortKey()
	of, og, oid := o.SortKey()
	if pf != of {
		return pf < of
	}
	if pg != og {
		return pg < og
	}
	return pid < oid
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// PersonSummary is the trimmed row returned by search.
type PersonSummary struct {
	ID         string  `json:"id"`
	GivenName  *string `json:"given_name"`
	FamilyName *string `json:"family_name"`
	BirthDate  *string `json:"birth_date"`
}

// Summary projects a person onto its search summary.
func (p Person) Summary() PersonSummary {
	return PersonSummary{
		ID:         p.ID,
		GivenName:  p.GivenName,
		FamilyName: p.FamilyName,
		BirthDate:  p.BirthDate,
	}
}

// PersonDetail is a person together with its immediate family.
type PersonDetail struct {
	Person   Person   `json:"person"`
	Parents  []Person `json:"parents"`
	Children []Person `json:"children"`
	Spouses  []string `json:"spouses,omitempty"`
}
