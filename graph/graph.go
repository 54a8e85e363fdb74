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

// Package graph implements the computation graph: Tensor and Operator nodes, the three
// concrete operators (Concat, MatMul, Transpose), construction, topological sort, forward
// shape inference, peephole optimization, and static memory planning.
//
// Tensor and Operator live in the same package deliberately: a Tensor's source points at
// an Operator and an Operator's inputs/outputs point at Tensors, a genuine mutual
// reference Go cannot express across two packages that import each other. This mirrors the
// original implementation's single core namespace.
package graph

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/tensorplan/tensorplan/allocator"
	"github.com/tensorplan/tensorplan/runtime"
	"github.com/tensorplan/tensorplan/types/shapes"
)

// Graph owns every Tensor and Operator it is given, a dedicated allocator, and the runtime
// they are all bound to. All edges among members must stay within this set (see CheckValid).
type Graph struct {
	runtime   *runtime.Runtime
	allocator *allocator.Allocator

	tensors *orderedmap.OrderedMap[int, *Tensor] // keyed by fuid, insertion-ordered.
	ops     []Operator                            // authoritative order; topo_sort replaces it wholesale.

	sorted   bool
	nextFuid int
}

// New returns an empty graph bound to rt, with its own allocator.
func New(rt *runtime.Runtime) *Graph {
	return &Graph{
		runtime:   rt,
		allocator: allocator.New(rt),
		tensors:   orderedmap.New[int, *Tensor](),
	}
}

func (g *Graph) Runtime() *runtime.Runtime { return g.runtime }

// Allocator exposes the graph's allocator, mainly so callers can read Info()/Peak() after
// DataMalloc.
func (g *Graph) Allocator() *allocator.Allocator { return g.allocator }

// AddTensor creates and registers a new tensor with a fresh fuid.
func (g *Graph) AddTensor(shape shapes.Shape, dtype shapes.DType) *Tensor {
	fuid := g.nextFuid
	g.nextFuid++
	t := newTensor(shape, dtype, g.runtime, fuid)
	g.tensors.Set(fuid, t)
	return t
}

// AddExistingTensor registers an already-constructed tensor (e.g. one cloned from another
// graph), keeping its fuid. Fails with ErrRuntimeMismatch if its runtime differs from the
// graph's.
func (g *Graph) AddExistingTensor(t *Tensor) (*Tensor, error) {
	if t.runtime != g.runtime {
		return nil, errors.Wrapf(ErrRuntimeMismatch, "cannot add a tensor on %v to a graph on %v", t.runtime.Device(), g.runtime.Device())
	}
	g.tensors.Set(t.fuid, t)
	if t.fuid >= g.nextFuid {
		g.nextFuid = t.fuid + 1
	}
	return t, nil
}

// GetTensor looks up a tensor by fuid, or nil if absent.
func (g *Graph) GetTensor(fuid int) *Tensor {
	v, ok := g.tensors.Get(fuid)
	if !ok {
		return nil
	}
	return v
}

// Tensors returns every tensor in insertion order. The caller must not mutate the slice.
func (g *Graph) Tensors() []*Tensor {
	out := make([]*Tensor, 0, g.tensors.Len())
	for pair := g.tensors.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Operators returns every operator in the graph's current order.
func (g *Graph) Operators() []Operator {
	out := make([]Operator, len(g.ops))
	copy(out, g.ops)
	return out
}

// RemoveTensor drops t from the graph's tensor registry. It does not sever any edges —
// callers (the rewriter) are expected to have already done so.
func (g *Graph) RemoveTensor(t *Tensor) {
	if t == nil {
		return
	}
	g.tensors.Delete(t.fuid)
}

// RemoveOperator drops op from the graph's operator list. Like RemoveTensor, it does not
// touch edges.
func (g *Graph) RemoveOperator(op Operator) {
	for i, o := range g.ops {
		if o == op {
			g.ops = append(g.ops[:i], g.ops[i+1:]...)
			return
		}
	}
}

// addOperatorAndConnect appends op to the graph and wires up its predecessor/successor
// edges from its inputs' and outputs' existing tensor edges.
func (g *Graph) addOperatorAndConnect(op Operator) {
	g.sorted = false
	g.ops = append(g.ops, op)
	klog.V(4).Infof("graph: connected %s", op)

	for _, input := range op.Inputs() {
		if input == nil {
			continue
		}
		input.addTarget(op)
		if pred := input.Source(); pred != nil {
			pred.addSuccessor(op)
			op.addPredecessor(pred)
		}
	}

	for _, output := range op.Outputs() {
		if output == nil {
			continue
		}
		output.setSource(op)
		for _, succ := range output.Targets() {
			succ.addPredecessor(op)
			op.addSuccessor(succ)
		}
	}
}

// AddOpConcat builds a Concat operator over inputs along dim (accepting negative axes),
// infers its output shape immediately, registers the output tensor, and connects the op.
func (g *Graph) AddOpConcat(inputs []*Tensor, dim int) (*ConcatOp, error) {
	if len(inputs) == 0 {
		return nil, errors.Wrap(ErrRankMismatch, "concat: requires at least one input")
	}
	normDim, err := shapes.NormalizeAxis(dim, inputs[0].Rank())
	if err != nil {
		return nil, err
	}

	op := newConcatOp(inputs, nil, normDim)
	outShapes, err := op.InferShape()
	if err != nil {
		return nil, err
	}
	output := g.AddTensor(outShapes[0], inputs[0].DType())
	op.outputs = []*Tensor{output}

	g.addOperatorAndConnect(op)
	return op, nil
}

// AddOpMatMul builds a MatMul operator over a and b, infers its output shape immediately,
// registers the output tensor, and connects the op.
func (g *Graph) AddOpMatMul(a, b *Tensor, transA, transB bool) (*MatMulOp, error) {
	op := newMatMulOp(a, b, nil, transA, transB)
	outShapes, err := op.InferShape()
	if err != nil {
		return nil, err
	}
	output := g.AddTensor(outShapes[0], a.DType())
	op.outputs = []*Tensor{output}

	g.addOperatorAndConnect(op)
	return op, nil
}

// AddOpTranspose builds a Transpose operator over x with perm, infers its output shape
// immediately, registers the output tensor, and connects the op.
func (g *Graph) AddOpTranspose(x *Tensor, perm []int) (*TransposeOp, error) {
	op := newTransposeOp(x, nil, perm)
	outShapes, err := op.InferShape()
	if err != nil {
		return nil, err
	}
	output := g.AddTensor(outShapes[0], x.DType())
	op.outputs = []*Tensor{output}

	g.addOperatorAndConnect(op)
	return op, nil
}

// TopoSort linearizes graph.ops so every operator appears after every producer of its
// inputs. Deterministic: ties break on the existing graph.ops order. A no-op if the graph
// is already marked sorted.
func (g *Graph) TopoSort() error {
	if g.sorted {
		return nil
	}

	sortedOps := make([]Operator, 0, len(g.ops))
	placed := make(map[Operator]bool, len(g.ops))

	for len(sortedOps) < len(g.ops) {
		progressed := false
		for _, op := range g.ops {
			if placed[op] {
				continue
			}
			ready := true
			for _, in := range op.Inputs() {
				if in == nil {
					continue
				}
				if src := in.Source(); src != nil && !placed[src] {
					ready = false
					break
				}
			}
			if ready {
				sortedOps = append(sortedOps, op)
				placed[op] = true
				progressed = true
			}
		}
		if !progressed {
			return errors.Wrap(ErrCyclicGraph, "topo_sort: dependency cycle prevents a full ordering")
		}
	}

	g.ops = sortedOps
	g.sorted = true
	return nil
}

// ShapeInfer runs TopoSort if needed, then calls InferShape on every operator in order,
// overwriting each output tensor's shape when it differs. This is the only legitimate
// shape-mutation path.
func (g *Graph) ShapeInfer() error {
	if err := g.TopoSort(); err != nil {
		return err
	}
	for _, op := range g.ops {
		outShapes, err := op.InferShape()
		if err != nil {
			return errors.Wrapf(err, "shape_infer: %s", op)
		}
		outputs := op.Outputs()
		if len(outShapes) != len(outputs) {
			return errors.Wrapf(ErrInvariantViolation, "shape_infer: %s returned %d shapes for %d outputs", op, len(outShapes), len(outputs))
		}
		for i, s := range outShapes {
			if !s.Equal(outputs[i].Shape()) {
				outputs[i].SetShape(s)
			}
		}
	}
	return nil
}

// Inputs returns every tensor with no producing operator.
func (g *Graph) Inputs() []*Tensor {
	var out []*Tensor
	for pair := g.tensors.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Source() == nil {
			out = append(out, pair.Value)
		}
	}
	return out
}

// Outputs returns every tensor with no consumers.
func (g *Graph) Outputs() []*Tensor {
	var out []*Tensor
	for pair := g.tensors.Oldest(); pair != nil; pair = pair.Next() {
		if len(pair.Value.Targets()) == 0 {
			out = append(out, pair.Value)
		}
	}
	return out
}

// CheckValid re-derives the invariants from §3: no orphan tensors, every edge stays within
// the member set, and fuids are unique.
func (g *Graph) CheckValid() error {
	opMember := make(map[Operator]bool, len(g.ops))
	for _, op := range g.ops {
		opMember[op] = true
	}

	seenFuid := make(map[int]bool, g.tensors.Len())
	for pair := g.tensors.Oldest(); pair != nil; pair = pair.Next() {
		t := pair.Value
		if t.Source() == nil && len(t.Targets()) == 0 {
			return errors.Wrapf(ErrInvariantViolation, "tensor fuid=%d is an orphan: no source and no targets", t.Fuid())
		}
		for _, target := range t.Targets() {
			if !opMember[target] {
				return errors.Wrapf(ErrInvariantViolation, "tensor fuid=%d targets an operator not in the graph", t.Fuid())
			}
		}
		if src := t.Source(); src != nil && !opMember[src] {
			return errors.Wrapf(ErrInvariantViolation, "tensor fuid=%d is sourced from an operator not in the graph", t.Fuid())
		}
		if seenFuid[t.Fuid()] {
			return errors.Wrapf(ErrInvariantViolation, "duplicate fuid %d", t.Fuid())
		}
		seenFuid[t.Fuid()] = true
	}

	for _, op := range g.ops {
		for _, in := range op.Inputs() {
			if in == nil {
				continue
			}
			if _, ok := g.tensors.Get(in.Fuid()); !ok {
				return errors.Wrapf(ErrInvariantViolation, "%s has an input not registered in the graph", op)
			}
		}
		for _, out := range op.Outputs() {
			if _, ok := g.tensors.Get(out.Fuid()); !ok {
				return errors.Wrapf(ErrInvariantViolation, "%s has an output not registered in the graph", op)
			}
		}
		for _, pred := range op.Predecessors() {
			if !opMember[pred] {
				return errors.Wrapf(ErrInvariantViolation, "%s has a predecessor not registered in the graph", op)
			}
		}
		for _, succ := range op.Successors() {
			if !opMember[succ] {
				return errors.Wrapf(ErrInvariantViolation, "%s has a successor not registered in the graph", op)
			}
		}
	}
	return nil
}
