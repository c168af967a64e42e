package model

// Edge is a directed parent -> child relationship. It is comparable so it can
// be used as a set element.
type Edge struct {
	Parent string `json:"parent_id"`
	Child  string `json:"child_id"`
}

// ClosureEntry records that Ancestor reaches Descendant in Depth steps.
// Every person has a Depth 0 entry for itself.
type ClosureEntry struct {
	Ancestor   string `json:"ancestor_id"`
	Descendant string `json:"descendant_id"`
	Depth      int    `json:"depth"`
}

// RelativeAtDepth is a closure entry joined with the related person.
type RelativeAtDepth struct {
	Person
	Depth int `json:"depth"`
}
