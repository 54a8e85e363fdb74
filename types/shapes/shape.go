/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package shapes defines Shape and DType, the broadcasting and axis-normalization rules
// used by the graph's shape inference, and standalone index/offset conversion helpers
// (OffsetOf, Unravel, ContiguousStrides).
package shapes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Shape is an ordered sequence of positive axis dimensions.
type Shape []int

// Rank is the number of axes.
func (s Shape) Rank() int { return len(s) }

// Size is the product of all dimensions (1 for a scalar, i.e. rank 0).
func (s Shape) Size() int {
	size := 1
	for _, d := range s {
		size *= d
	}
	return size
}

// Dim returns the dimension at axis, which may be negative (counted from the end).
// Panics on an out-of-range axis, mirroring slice indexing.
func (s Shape) Dim(axis int) int {
	a, err := NormalizeAxis(axis, s.Rank())
	if err != nil {
		panic(err)
	}
	return s[a]
}

// Equal reports whether two shapes have the same rank and dimensions.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Clone returns an independent copy of s.
func (s Shape) Clone() Shape {
	return slices.Clone(s)
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Broadcast computes the NumPy/ONNX right-aligned broadcast of two shapes: axes are
// right-aligned, missing leading axes are treated as 1, and for each aligned pair either
// the dimensions match or one of them is 1.
func Broadcast(a, b Shape) (Shape, error) {
	rank := max(a.Rank(), b.Rank())
	out := make(Shape, rank)
	for i := range rank {
		da, db := 1, 1
		if i < a.Rank() {
			da = a[a.Rank()-1-i]
		}
		if i < b.Rank() {
			db = b[b.Rank()-1-i]
		}
		switch {
		case da == db:
			out[rank-1-i] = da
		case da == 1:
			out[rank-1-i] = db
		case db == 1:
			out[rank-1-i] = da
		default:
			return nil, errors.Wrapf(ErrShapeIncompatible, "cannot broadcast %s and %s at aligned axis %d (%d vs %d)", a, b, i, da, db)
		}
	}
	return out, nil
}

// NormalizeAxis maps axis (accepted in [-rank, rank-1]) to the equivalent value in [0, rank).
func NormalizeAxis(axis, rank int) (int, error) {
	if axis < -rank || axis > rank-1 {
		return 0, errors.Wrapf(ErrAxisOutOfRange, "axis %d out of range for rank %d", axis, rank)
	}
	if axis < 0 {
		return rank + axis, nil
	}
	return axis, nil
}

// OffsetOf computes the linear offset of idx into an array of the given shape and stride,
// wrapping each index modulo its axis' dimension to support broadcasted iteration.
func OffsetOf(idx, shape, stride []int) int {
	offset := 0
	for i := range idx {
		offset += (idx[i] % shape[i]) * stride[i]
	}
	return offset
}

// Unravel converts a linear index n into per-axis coordinates for shape, rightmost axis
// first (successive divmod).
func Unravel(n int, shape []int) []int {
	idx := make([]int, len(shape))
	for i := len(shape) - 1; i >= 0; i-- {
		idx[i] = n % shape[i]
		n /= shape[i]
	}
	return idx
}

// ContiguousStrides returns the row-major (C-order) strides for shape: stride[i] is the
// number of elements between consecutive indices along axis i.
func ContiguousStrides(shape []int) []int {
	stride := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		stride[i] = acc
		acc *= shape[i]
	}
	return stride
}
