package graph

import (
	"github.com/google/uuid"

	"github.com/tensorplan/tensorplan/types/shapes"
)

// OpKind tags the closed set of operator variants this module understands. The peephole
// rewriter in optimize.go dispatches on concrete type via type assertions rather than on
// OpKind, and the debug dump uses each operator's String(); OpKind is exposed through
// Operator.Kind().
type OpKind int

const (
	OpInvalid OpKind = iota
	OpConcat
	OpMatMul
	OpTranspose
)

func (k OpKind) String() string {
	switch k {
	case OpConcat:
		return "Concat"
	case OpMatMul:
		return "MatMul"
	case OpTranspose:
		return "Transpose"
	default:
		return "Invalid"
	}
}

// Operator is the common contract every concrete operator (Concat, MatMul, Transpose)
// satisfies. The edge-mutation methods are unexported: only Graph and the rewriter in this
// package may move predecessor/successor edges, mirroring the tensor-side restriction.
type Operator interface {
	Kind() OpKind
	Guid() uuid.UUID
	Inputs() []*Tensor
	Outputs() []*Tensor
	Predecessors() []Operator
	Successors() []Operator

	// InferShape computes output shapes from the operator's current input shapes and
	// per-kind state. It does not mutate the operator's outputs; the caller (Graph)
	// decides whether and how to apply the result.
	InferShape() ([]shapes.Shape, error)

	// ReplaceInput substitutes every occurrence of old in Inputs() with new. The caller
	// is responsible for repairing old.targets, new.targets, and predecessor/successor
	// edges — this only rewrites the operator's own input slice.
	ReplaceInput(old, new *Tensor)

	String() string

	addPredecessor(p Operator)
	addSuccessor(s Operator)
	removePredecessor(p Operator)
	removeSuccessor(s Operator)
}

// baseOp is the common header embedded by every concrete operator: identity, edges, and
// the input/output tensor slices. Per-kind extra state (Concat.dim, MatMul.transA/transB,
// Transpose.perm) lives on the concrete type alongside it.
type baseOp struct {
	kind OpKind
	guid uuid.UUID

	inputs  []*Tensor
	outputs []*Tensor

	predecessors []Operator
	successors   []Operator
}

func newBaseOp(kind OpKind, inputs, outputs []*Tensor) baseOp {
	return baseOp{kind: kind, guid: uuid.New(), inputs: inputs, outputs: outputs}
}

func (b *baseOp) Kind() OpKind          { return b.kind }
func (b *baseOp) Guid() uuid.UUID       { return b.guid }
func (b *baseOp) Inputs() []*Tensor     { return b.inputs }
func (b *baseOp) Outputs() []*Tensor    { return b.outputs }
func (b *baseOp) Predecessors() []Operator { return b.predecessors }
func (b *baseOp) Successors() []Operator   { return b.successors }

func (b *baseOp) ReplaceInput(old, new *Tensor) {
	for i, t := range b.inputs {
		if t == old {
			b.inputs[i] = new
		}
	}
}

func (b *baseOp) addPredecessor(p Operator) {
	for _, existing := range b.predecessors {
		if existing == p {
			return
		}
	}
	b.predecessors = append(b.predecessors, p)
}

func (b *baseOp) addSuccessor(s Operator) {
	for _, existing := range b.successors {
		if existing == s {
			return
		}
	}
	b.successors = append(b.successors, s)
}

func (b *baseOp) removePredecessor(p Operator) {
	out := b.predecessors[:0]
	for _, existing := range b.predecessors {
		if existing != p {
			out = append(out, existing)
		}
	}
	b.predecessors = out
}

func (b *baseOp) removeSuccessor(s Operator) {
	out := b.successors[:0]
	for _, existing := range b.successors {
		if existing != s {
			out = append(out, existing)
		}
	}
	b.successors = out
}
