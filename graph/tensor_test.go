package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tensorplan/tensorplan/types/shapes"
)

func TestFillRequiresBoundData(t *testing.T) {
	g := newTestGraph()
	x := g.AddTensor(shapes.Shape{4}, shapes.Float32)

	err := x.Fill(func(b []byte) {})
	require.ErrorIs(t, err, ErrUnboundTensor)
}

func TestFillWritesThroughRawPtr(t *testing.T) {
	g := newTestGraph()
	x := g.AddTensor(shapes.Shape{4}, shapes.Float32)
	_, err := g.AddOpTranspose(x, []int{0})
	require.NoError(t, err)
	require.NoError(t, g.DataMalloc())

	require.NoError(t, x.Fill(func(b []byte) {
		vals, err := RawPtr[float32](x)
		require.NoError(t, err)
		for i := range vals {
			vals[i] = float32(i)
		}
	}))

	vals, err := RawPtr[float32](x)
	require.NoError(t, err)
	require.Equal(t, []float32{0, 1, 2, 3}, vals)
}

func TestEqualDataFloat32WithinTolerance(t *testing.T) {
	g := newTestGraph()
	a := g.AddTensor(shapes.Shape{3}, shapes.Float32)
	b := g.AddTensor(shapes.Shape{3}, shapes.Float32)
	_, err := g.AddOpTranspose(a, []int{0})
	require.NoError(t, err)
	_, err = g.AddOpTranspose(b, []int{0})
	require.NoError(t, err)
	require.NoError(t, g.DataMalloc())

	require.NoError(t, a.Fill(func(buf []byte) {
		vals, _ := RawPtr[float32](a)
		vals[0], vals[1], vals[2] = 1.0, 2.0, 3.0
	}))
	require.NoError(t, b.Fill(func(buf []byte) {
		vals, _ := RawPtr[float32](b)
		vals[0], vals[1], vals[2] = 1.0001, 2.0001, 3.0001
	}))

	eq, err := a.EqualData(b, 1e-3)
	require.NoError(t, err)
	require.True(t, eq)

	eq, err = a.EqualData(b, 1e-6)
	require.NoError(t, err)
	require.False(t, eq)
}

func TestEqualDataDTypeMismatch(t *testing.T) {
	g := newTestGraph()
	a := g.AddTensor(shapes.Shape{2}, shapes.Float32)
	b := g.AddTensor(shapes.Shape{2}, shapes.Int32)

	_, err := a.EqualData(b, 1e-3)
	require.Error(t, err)
}
