package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tensorplan/tensorplan/types/shapes"
)

func TestMatMulBroadcast(t *testing.T) {
	g := newTestGraph()
	a := g.AddTensor(shapes.Shape{2, 3, 5}, shapes.Float32)
	b := g.AddTensor(shapes.Shape{5, 4}, shapes.Float32)

	op, err := g.AddOpMatMul(a, b, false, false)
	require.NoError(t, err)
	require.True(t, op.Outputs()[0].Shape().Equal(shapes.Shape{2, 3, 4}))
	require.Equal(t, 3, op.M())
	require.Equal(t, 4, op.N())
	require.Equal(t, 5, op.K())
}

func TestMatMulBroadcastTransB(t *testing.T) {
	g := newTestGraph()
	a := g.AddTensor(shapes.Shape{2, 3, 5}, shapes.Float32)
	b := g.AddTensor(shapes.Shape{2, 4, 5}, shapes.Float32)

	op, err := g.AddOpMatMul(a, b, false, true)
	require.NoError(t, err)
	require.True(t, op.Outputs()[0].Shape().Equal(shapes.Shape{2, 3, 4}))
}

func TestMatMulInnerDimMismatch(t *testing.T) {
	g := newTestGraph()
	a := g.AddTensor(shapes.Shape{2, 3, 5}, shapes.Float32)
	b := g.AddTensor(shapes.Shape{6, 4}, shapes.Float32)

	_, err := g.AddOpMatMul(a, b, false, false)
	require.ErrorIs(t, err, shapes.ErrShapeIncompatible)
}

func TestMatMulRankTooLow(t *testing.T) {
	g := newTestGraph()
	a := g.AddTensor(shapes.Shape{5}, shapes.Float32)
	b := g.AddTensor(shapes.Shape{5, 4}, shapes.Float32)

	_, err := g.AddOpMatMul(a, b, false, false)
	require.ErrorIs(t, err, ErrRankMismatch)
}
