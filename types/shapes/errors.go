package shapes

import "errors"

// Sentinel errors for the shape-utilities error taxonomy. Wrapped with context via
// github.com/pkg/errors at call sites, but comparable with errors.Is at the root.
var (
	// ErrShapeIncompatible is returned when two shapes cannot be reconciled by broadcasting.
	ErrShapeIncompatible = errors.New("shapes: incompatible for broadcasting")

	// ErrAxisOutOfRange is returned when an axis falls outside [-rank, rank-1].
	ErrAxisOutOfRange = errors.New("shapes: axis out of range")
)
