package graph

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"

	"github.com/tensorplan/tensorplan/types/shapes"
)

// TransposeOp reorders its single input's axes according to perm: out[i] = input[perm[i]].
type TransposeOp struct {
	baseOp
	perm []int
}

func newTransposeOp(input *Tensor, outputs []*Tensor, perm []int) *TransposeOp {
	return &TransposeOp{baseOp: newBaseOp(OpTranspose, []*Tensor{input}, outputs), perm: slices.Clone(perm)}
}

// Perm returns the permutation this transpose applies.
func (t *TransposeOp) Perm() []int { return t.perm }

func (t *TransposeOp) InferShape() ([]shapes.Shape, error) {
	in := t.inputs[0].Shape()
	if len(t.perm) != in.Rank() {
		return nil, errors.Wrapf(ErrRankMismatch, "transpose: perm length %d does not match input rank %d", len(t.perm), in.Rank())
	}
	out := make(shapes.Shape, len(t.perm))
	for i, axis := range t.perm {
		norm, err := shapes.NormalizeAxis(axis, in.Rank())
		if err != nil {
			return nil, err
		}
		out[i] = in[norm]
	}
	return []shapes.Shape{out}, nil
}

func (t *TransposeOp) String() string {
	return fmt.Sprintf("Transpose(perm=%v,input=%s,output=%s)", t.perm, t.inputs[0].Guid(), t.outputs[0].Guid())
}

// swapsLastTwoAxesOnly reports whether perm is the identity on all axes except the last
// two, which it swaps. Rule T2 only fuses transposes of this exact shape into a matmul's
// transpose flags.
func swapsLastTwoAxesOnly(perm []int) bool {
	rank := len(perm)
	if rank < 2 {
		return false
	}
	if perm[rank-1] != rank-2 || perm[rank-2] != rank-1 {
		return false
	}
	for i := 0; i < rank-2; i++ {
		if perm[i] != i {
			return false
		}
	}
	return true
}

// isInversePermutation reports whether perm2 undoes perm1, i.e. composing them yields the
// identity: perm2[perm1[i]] == i for every i.
func isInversePermutation(perm1, perm2 []int) bool {
	if len(perm1) != len(perm2) {
		return false
	}
	for i, p := range perm1 {
		if perm2[p] != i {
			return false
		}
	}
	return true
}
