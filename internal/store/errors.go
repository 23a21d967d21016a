package store

import "errors"

// Sentinel errors returned by repositories. Callers branch on these with
// errors.Is to translate persistence failures into API error responses.
var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateName is returned when a flag insert or update collides with
	// the case-insensitive unique index on the normalized name.
	ErrDuplicateName = errors.New("name has already been taken")
)
