package graph

import "errors"

// Sentinel errors for the parts of the error taxonomy owned by package graph. Wrapped
// with context via github.com/pkg/errors at call sites, comparable with errors.Is at the
// root (shapes and allocator own the rest of the taxonomy).
var (
	// ErrRankMismatch is returned by Concat and MatMul when participating ranks disagree.
	ErrRankMismatch = errors.New("graph: rank mismatch")

	// ErrRuntimeMismatch is returned by AddExistingTensor when a tensor's runtime differs
	// from the graph's.
	ErrRuntimeMismatch = errors.New("graph: tensor runtime does not match graph runtime")

	// ErrCyclicGraph is returned by TopoSort when a dependency cycle prevents a full
	// linearization.
	ErrCyclicGraph = errors.New("graph: cyclic dependency detected")

	// ErrInvariantViolation is returned by CheckValid when edges reference non-members,
	// a duplicate fuid exists, or a tensor is an orphan.
	ErrInvariantViolation = errors.New("graph: structural invariant violated")

	// ErrUnboundTensor is returned by RawPtr before DataMalloc has bound a data blob.
	ErrUnboundTensor = errors.New("graph: tensor has no data binding yet")
)
