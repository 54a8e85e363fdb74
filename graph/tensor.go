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

package graph

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/tensorplan/tensorplan/runtime"
	"github.com/tensorplan/tensorplan/types/shapes"
)

// Tensor is a value node in the graph: shape, dtype, and the bidirectional edges to the
// operator that produced it (source) and the operators that consume it (targets). Edge
// mutation is unexported — only Graph and the peephole rewriter in this package are
// allowed to move an edge; callers only ever read.
type Tensor struct {
	shape shapes.Shape
	dtype shapes.DType

	fuid int // graph-lookup key, kept as-is when AddExistingTensor registers the tensor.
	guid uuid.UUID

	source  Operator
	targets []Operator // multiset: the same operator may appear more than once.

	data    []byte
	runtime *runtime.Runtime
}

func newTensor(shape shapes.Shape, dtype shapes.DType, rt *runtime.Runtime, fuid int) *Tensor {
	return &Tensor{
		shape:   shape.Clone(),
		dtype:   dtype,
		fuid:    fuid,
		guid:    uuid.New(),
		runtime: rt,
	}
}

func (t *Tensor) Shape() shapes.Shape { return t.shape }
func (t *Tensor) Rank() int           { return t.shape.Rank() }
func (t *Tensor) DType() shapes.DType { return t.dtype }
func (t *Tensor) Size() int           { return t.shape.Size() }
func (t *Tensor) Bytes() int          { return t.Size() * t.dtype.ByteSize() }
func (t *Tensor) Fuid() int           { return t.fuid }
func (t *Tensor) Guid() uuid.UUID     { return t.guid }
func (t *Tensor) Source() Operator    { return t.source }
func (t *Tensor) Runtime() *runtime.Runtime { return t.runtime }

// Targets returns the consumers of this tensor. The slice is owned by the tensor; callers
// must not mutate it.
func (t *Tensor) Targets() []Operator { return t.targets }

// SetShape overwrites the tensor's shape. The only legitimate caller is Graph.ShapeInfer.
func (t *Tensor) SetShape(s shapes.Shape) { t.shape = s.Clone() }

// SetDataBlob binds the tensor to a region of memory. Called once, by Graph.DataMalloc.
func (t *Tensor) SetDataBlob(data []byte) { t.data = data }

// HasData reports whether a data blob has been bound yet.
func (t *Tensor) HasData() bool { return t.data != nil }

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(fuid=%d, guid=%s, shape=%s, dtype=%s)", t.fuid, t.guid, t.shape, t.dtype)
}

// Fill hands the bound data blob to generator for in-place seeding. It exists for tests
// that need concrete tensor contents before calling EqualData. Fails with ErrUnboundTensor
// if DataMalloc has not run yet.
func (t *Tensor) Fill(generator func([]byte)) error {
	if t.data == nil {
		return errors.Wrapf(ErrUnboundTensor, "tensor fuid=%d has no data blob", t.fuid)
	}
	generator(t.data)
	return nil
}

func (t *Tensor) addTarget(op Operator) { t.targets = append(t.targets, op) }
func (t *Tensor) setSource(op Operator) { t.source = op }

// removeTarget drops every entry equal to op; duplicates collapse in a single call.
func (t *Tensor) removeTarget(op Operator) {
	out := t.targets[:0]
	for _, o := range t.targets {
		if o != op {
			out = append(out, o)
		}
	}
	t.targets = out
}

// RawPtr reinterprets the tensor's bound data blob as a []T of t.Size() elements. Callers
// are responsible for T matching the tensor's dtype; there is no runtime check beyond the
// byte length. Fails with ErrUnboundTensor if DataMalloc has not run yet.
func RawPtr[T any](t *Tensor) ([]T, error) {
	if t.data == nil {
		return nil, errors.Wrapf(ErrUnboundTensor, "tensor fuid=%d has no data blob", t.fuid)
	}
	n := t.Size()
	if n == 0 {
		return nil, nil
	}
	var zero T
	if n*int(unsafe.Sizeof(zero)) > len(t.data) {
		return nil, errors.Errorf("graph: RawPtr: %d elements of %d bytes exceed the %d-byte blob of tensor fuid=%d",
			n, unsafe.Sizeof(zero), len(t.data), t.fuid)
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&t.data[0])), n), nil
}

// EqualData compares the bound data of t and other element-by-element: exact equality for
// integral dtypes, relative-error tolerant for floating ones. Both tensors must share size
// and dtype.
func (t *Tensor) EqualData(other *Tensor, relEps float64) (bool, error) {
	if t.dtype != other.dtype {
		return false, errors.Errorf("graph: EqualData dtype mismatch: %s vs %s", t.dtype, other.dtype)
	}
	if t.Size() != other.Size() {
		return false, errors.Errorf("graph: EqualData size mismatch: %d vs %d", t.Size(), other.Size())
	}

	switch t.dtype {
	case shapes.Bool, shapes.UInt8:
		a, err := RawPtr[uint8](t)
		if err != nil {
			return false, err
		}
		b, err := RawPtr[uint8](other)
		if err != nil {
			return false, err
		}
		return bytesEqual(a, b), nil
	case shapes.Int32:
		a, err := RawPtr[int32](t)
		if err != nil {
			return false, err
		}
		b, err := RawPtr[int32](other)
		if err != nil {
			return false, err
		}
		for i := range a {
			if a[i] != b[i] {
				return false, nil
			}
		}
		return true, nil
	case shapes.Int64:
		a, err := RawPtr[int64](t)
		if err != nil {
			return false, err
		}
		b, err := RawPtr[int64](other)
		if err != nil {
			return false, err
		}
		for i := range a {
			if a[i] != b[i] {
				return false, nil
			}
		}
		return true, nil
	case shapes.Float32:
		a, err := RawPtr[float32](t)
		if err != nil {
			return false, err
		}
		b, err := RawPtr[float32](other)
		if err != nil {
			return false, err
		}
		for i := range a {
			if !float32sClose(a[i], b[i], float32(relEps)) {
				return false, nil
			}
		}
		return true, nil
	case shapes.Float64:
		a, err := RawPtr[float64](t)
		if err != nil {
			return false, err
		}
		b, err := RawPtr[float64](other)
		if err != nil {
			return false, err
		}
		for i := range a {
			if !float64sClose(a[i], b[i], relEps) {
				return false, nil
			}
		}
		return true, nil
	case shapes.Float16:
		a, err := RawPtr[uint16](t)
		if err != nil {
			return false, err
		}
		b, err := RawPtr[uint16](other)
		if err != nil {
			return false, err
		}
		for i := range a {
			af := float16.Frombits(a[i]).Float32()
			bf := float16.Frombits(b[i]).Float32()
			if !float32sClose(af, bf, float32(relEps)) {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, errors.Errorf("graph: EqualData unsupported dtype %s", t.dtype)
	}
}

func bytesEqual(a, b []uint8) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// float32sClose stays in float32 precision throughout, mirroring the original's templated
// equalDataImpl rather than promoting to float64.
func float32sClose(a, b, relEps float32) bool {
	if math32.Min(math32.Abs(a), math32.Abs(b)) == 0 {
		return math32.Abs(a-b) <= relEps
	}
	return math32.Abs(a-b)/math32.Max(math32.Abs(a), math32.Abs(b)) <= relEps
}

func float64sClose(a, b, relEps float64) bool {
	absA, absB := math.Abs(a), math.Abs(b)
	if min(absA, absB) == 0 {
		return math.Abs(a-b) <= relEps
	}
	return math.Abs(a-b)/max(absA, absB) <= relEps
}
