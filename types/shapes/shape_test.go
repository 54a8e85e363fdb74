package shapes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBroadcast(t *testing.T) {
	s := Shape{2, 3, 4}
	got, err := Broadcast(s, s)
	require.NoError(t, err)
	require.True(t, got.Equal(s))

	got, err = Broadcast(s, Shape{1})
	require.NoError(t, err)
	require.True(t, got.Equal(s))

	got, err = Broadcast(Shape{1}, s)
	require.NoError(t, err)
	require.True(t, got.Equal(s))

	got, err = Broadcast(Shape{5, 4}, Shape{1, 4})
	require.NoError(t, err)
	require.True(t, got.Equal(Shape{5, 4}))

	// Missing leading axes treated as 1.
	got, err = Broadcast(Shape{2, 3, 4}, Shape{4})
	require.NoError(t, err)
	require.True(t, got.Equal(Shape{2, 3, 4}))

	_, err = Broadcast(Shape{2, 3}, Shape{2, 4})
	require.ErrorIs(t, err, ErrShapeIncompatible)
}

func TestBroadcastCommutative(t *testing.T) {
	a, b := Shape{1, 4}, Shape{5, 1}
	ab, err := Broadcast(a, b)
	require.NoError(t, err)
	ba, err := Broadcast(b, a)
	require.NoError(t, err)
	require.True(t, ab.Equal(ba))
}

func TestNormalizeAxis(t *testing.T) {
	got, err := NormalizeAxis(-1, 3)
	require.NoError(t, err)
	require.Equal(t, 2, got)

	got, err = NormalizeAxis(1, 3)
	require.NoError(t, err)
	require.Equal(t, 1, got)

	_, err = NormalizeAxis(3, 3)
	require.ErrorIs(t, err, ErrAxisOutOfRange)

	_, err = NormalizeAxis(-4, 3)
	require.ErrorIs(t, err, ErrAxisOutOfRange)
}

func TestOffsetOfAndUnravel(t *testing.T) {
	shape := []int{2, 3}
	stride := ContiguousStrides(shape)
	require.Equal(t, []int{3, 1}, stride)

	require.Equal(t, 4, OffsetOf([]int{1, 1}, shape, stride))
	require.Equal(t, []int{1, 1}, Unravel(4, shape))

	// Broadcasted iteration: an index with a larger dimension than shape wraps via modulo.
	require.Equal(t, 1, OffsetOf([]int{0, 4}, shape, stride))
}

func TestDTypeByteSize(t *testing.T) {
	require.Equal(t, 4, Float32.ByteSize())
	require.Equal(t, 8, Float64.ByteSize())
	require.Equal(t, 2, Float16.ByteSize())
	require.True(t, Float32.IsFloat())
	require.True(t, Int64.IsInt())
	require.False(t, Bool.IsFloat())
}
