package graph

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/tensorplan/tensorplan/types/shapes"
)

// MatMulOp computes a batched matrix product of its two inputs, with optional transpose
// of either operand's last two axes. m, n, k are cached from the most recent InferShape.
type MatMulOp struct {
	baseOp
	transA, transB bool
	m, n, k        int
}

func newMatMulOp(a, b *Tensor, outputs []*Tensor, transA, transB bool) *MatMulOp {
	return &MatMulOp{baseOp: newBaseOp(OpMatMul, []*Tensor{a, b}, outputs), transA: transA, transB: transB}
}

func (m *MatMulOp) TransA() bool   { return m.transA }
func (m *MatMulOp) TransB() bool   { return m.transB }
func (m *MatMulOp) SetTransA(v bool) { m.transA = v }
func (m *MatMulOp) SetTransB(v bool) { m.transB = v }
func (m *MatMulOp) M() int { return m.m }
func (m *MatMulOp) N() int { return m.n }
func (m *MatMulOp) K() int { return m.k }

func (op *MatMulOp) InferShape() ([]shapes.Shape, error) {
	a, b := op.inputs[0], op.inputs[1]
	ra, rb := a.Rank(), b.Rank()
	if ra < 2 || rb < 2 {
		return nil, errors.Wrapf(ErrRankMismatch, "matmul: operands must have rank >= 2, got %d and %d", ra, rb)
	}
	shapeA, shapeB := a.Shape(), b.Shape()

	mA, kA := shapeA[ra-2], shapeA[ra-1]
	if op.transA {
		mA, kA = kA, mA
	}
	kB, nB := shapeB[rb-2], shapeB[rb-1]
	if op.transB {
		kB, nB = nB, kB
	}
	if kA != kB {
		return nil, errors.Wrapf(shapes.ErrShapeIncompatible, "matmul: inner dimension mismatch %d vs %d", kA, kB)
	}

	batch, err := shapes.Broadcast(shapeA[:ra-2], shapeB[:rb-2])
	if err != nil {
		return nil, err
	}
	out := append(batch, mA, nB)

	op.m, op.n, op.k = mA, nB, kA
	return []shapes.Shape{out}, nil
}

func (op *MatMulOp) String() string {
	aTag, bTag := "A", "B"
	if op.transA {
		aTag = "A^T"
	}
	if op.transB {
		bTag = "B^T"
	}
	return fmt.Sprintf("Matmul([%s,%s],A=%s,B=%s,C=%s,mnk=[%d,%d,%d])",
		aTag, bTag, op.inputs[0].Guid(), op.inputs[1].Guid(), op.outputs[0].Guid(), op.m, op.n, op.k)
}
