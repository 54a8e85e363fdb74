package graph

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/tensorplan/tensorplan/types/shapes"
)

// ConcatOp joins its inputs along dim. dim is normalized against inputs[0]'s rank at
// construction time (see Graph.AddOpConcat); all inputs must share that rank.
type ConcatOp struct {
	baseOp
	dim int
}

func newConcatOp(inputs []*Tensor, outputs []*Tensor, dim int) *ConcatOp {
	return &ConcatOp{baseOp: newBaseOp(OpConcat, inputs, outputs), dim: dim}
}

// Dim returns the already-normalized concatenation axis.
func (c *ConcatOp) Dim() int { return c.dim }

func (c *ConcatOp) InferShape() ([]shapes.Shape, error) {
	if len(c.inputs) == 0 {
		return nil, errors.Wrap(ErrRankMismatch, "concat: no inputs")
	}
	rank := c.inputs[0].Rank()
	dims := c.inputs[0].Shape().Clone()

	for _, in := range c.inputs[1:] {
		if in.Rank() != rank {
			return nil, errors.Wrapf(ErrRankMismatch, "concat: rank %d does not match first input's rank %d", in.Rank(), rank)
		}
		inShape := in.Shape()
		for j := 0; j < rank; j++ {
			if j == c.dim {
				dims[j] += inShape[j]
				continue
			}
			if inShape[j] != dims[j] {
				return nil, errors.Wrapf(shapes.ErrShapeIncompatible,
					"concat: axis %d mismatch outside concat dim %d: %d vs %d", j, c.dim, inShape[j], dims[j])
			}
		}
	}
	return []shapes.Shape{dims}, nil
}

func (c *ConcatOp) String() string {
	var b strings.Builder
	b.WriteString("Concat[")
	b.WriteString(c.guid.String())
	b.WriteString("](")
	for _, in := range c.inputs {
		fmt.Fprintf(&b, "%s,", in.Shape())
	}
	fmt.Fprintf(&b, "dim=%d,output=%s)", c.dim, c.outputs[0].Shape())
	return b.String()
}
