package address

import "errors"

var (
	// ErrNotFound indicates a path index did not match any child.
	ErrNotFound = errors.New("address: node not found")

	// ErrAnchorNotFound indicates the id anchor of a path is not in the document.
	ErrAnchorNotFound = errors.New("address: anchor element not found")

	// ErrDetached indicates a node is not inside the document body.
	ErrDetached = errors.New("address: node is not attached to the body")

	// ErrMalformed indicates persisted address data could not be parsed.
	ErrMalformed = errors.New("address: malformed persisted address")
)
