package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tensorplan/tensorplan/runtime"
	"github.com/tensorplan/tensorplan/types/shapes"
)

func newTestGraph() *Graph {
	return New(runtime.New(runtime.CPU))
}

func TestConcatShape(t *testing.T) {
	g := newTestGraph()
	a := g.AddTensor(shapes.Shape{2, 3, 4}, shapes.Float32)
	b := g.AddTensor(shapes.Shape{2, 5, 4}, shapes.Float32)

	op, err := g.AddOpConcat([]*Tensor{a, b}, 1)
	require.NoError(t, err)
	require.True(t, op.Outputs()[0].Shape().Equal(shapes.Shape{2, 8, 4}))
}

func TestConcatShapeNegativeDim(t *testing.T) {
	g := newTestGraph()
	a := g.AddTensor(shapes.Shape{2, 3}, shapes.Float32)
	b := g.AddTensor(shapes.Shape{2, 4}, shapes.Float32)

	op, err := g.AddOpConcat([]*Tensor{a, b}, -1)
	require.NoError(t, err)
	require.True(t, op.Outputs()[0].Shape().Equal(shapes.Shape{2, 7}))
}

func TestConcatRankMismatch(t *testing.T) {
	g := newTestGraph()
	a := g.AddTensor(shapes.Shape{2, 3}, shapes.Float32)
	b := g.AddTensor(shapes.Shape{2, 3, 4}, shapes.Float32)

	_, err := g.AddOpConcat([]*Tensor{a, b}, 0)
	require.ErrorIs(t, err, ErrRankMismatch)
}

func TestConcatAxisMismatch(t *testing.T) {
	g := newTestGraph()
	a := g.AddTensor(shapes.Shape{2, 3}, shapes.Float32)
	b := g.AddTensor(shapes.Shape{3, 3}, shapes.Float32)

	_, err := g.AddOpConcat([]*Tensor{a, b}, 1)
	require.ErrorIs(t, err, shapes.ErrShapeIncompatible)
}
