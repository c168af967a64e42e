package model

import "errors"

var (
	// ErrMissingIdentity marks a node whose id did not normalize to a value.
	ErrMissingIdentity = errors.New("missing identity")
	// ErrDanglingReference marks an edge with an endpoint that is not a known person.
	ErrDanglingReference = errors.New("dangling reference")
	// ErrMalformedDocument means the input could not be parsed as JSON.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrNotFound is returned by lookups for unknown identities.
	ErrNotFound = errors.New("not found")
)
