package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tensorplan/tensorplan/types/shapes"
)

func TestTopoSortOrdersProducersBeforeConsumers(t *testing.T) {
	g := newTestGraph()
	x := g.AddTensor(shapes.Shape{4, 3}, shapes.Float32)
	w := g.AddTensor(shapes.Shape{3, 5}, shapes.Float32)

	transposeOp, err := g.AddOpTranspose(x, []int{1, 0})
	require.NoError(t, err)
	matmulOp, err := g.AddOpMatMul(transposeOp.Outputs()[0], w, true, false)
	require.NoError(t, err)

	require.NoError(t, g.TopoSort())
	ops := g.Operators()
	require.Len(t, ops, 2)
	require.Equal(t, Operator(transposeOp), ops[0])
	require.Equal(t, Operator(matmulOp), ops[1])
}

func TestTopoSortDetectsCycle(t *testing.T) {
	g := newTestGraph()
	t0 := g.AddTensor(shapes.Shape{2, 2}, shapes.Float32)
	t1 := g.AddTensor(shapes.Shape{2, 2}, shapes.Float32)

	op1 := newTransposeOp(t0, []*Tensor{t1}, []int{1, 0})
	g.addOperatorAndConnect(op1)
	op2 := newTransposeOp(t1, []*Tensor{t0}, []int{1, 0})
	g.addOperatorAndConnect(op2)

	err := g.TopoSort()
	require.ErrorIs(t, err, ErrCyclicGraph)
}

func TestShapeInferKeepsGraphValid(t *testing.T) {
	g := newTestGraph()
	x := g.AddTensor(shapes.Shape{4, 3}, shapes.Float32)
	_, err := g.AddOpTranspose(x, []int{1, 0})
	require.NoError(t, err)

	require.NoError(t, g.ShapeInfer())
	require.NoError(t, g.CheckValid())
}

func TestCheckValidRejectsForeignOperator(t *testing.T) {
	g := newTestGraph()
	x := g.AddTensor(shapes.Shape{4, 3}, shapes.Float32)
	op, err := g.AddOpTranspose(x, []int{1, 0})
	require.NoError(t, err)

	g.RemoveOperator(op)
	require.ErrorIs(t, g.CheckValid(), ErrInvariantViolation)
}

func TestInputsAndOutputs(t *testing.T) {
	g := newTestGraph()
	x := g.AddTensor(shapes.Shape{4, 3}, shapes.Float32)
	w := g.AddTensor(shapes.Shape{3, 5}, shapes.Float32)
	_, err := g.AddOpMatMul(x, w, false, false)
	require.NoError(t, err)

	inputs := g.Inputs()
	require.Len(t, inputs, 2)

	outputs := g.Outputs()
	require.Len(t, outputs, 1)
}

func TestDataMallocBindsEveryTensor(t *testing.T) {
	g := newTestGraph()
	x := g.AddTensor(shapes.Shape{4, 3}, shapes.Float32)
	w := g.AddTensor(shapes.Shape{3, 5}, shapes.Float32)
	_, err := g.AddOpMatMul(x, w, false, false)
	require.NoError(t, err)

	require.NoError(t, g.DataMalloc())
	for _, tensor := range g.Tensors() {
		require.True(t, tensor.HasData())
	}
	require.Greater(t, g.Allocator().Peak(), 0)
}

func TestAddExistingTensorRuntimeMismatch(t *testing.T) {
	g1 := newTestGraph()
	g2 := newTestGraph()
	t1 := g1.AddTensor(shapes.Shape{2}, shapes.Float32)

	_, err := g2.AddExistingTensor(t1)
	require.ErrorIs(t, err, ErrRuntimeMismatch)
}

func TestToStringRendersTensorsAndOperators(t *testing.T) {
	g := newTestGraph()
	x := g.AddTensor(shapes.Shape{4, 3}, shapes.Float32)
	_, err := g.AddOpTranspose(x, []int{1, 0})
	require.NoError(t, err)

	out := g.ToString()
	require.Contains(t, out, "Graph Tensors:")
	require.Contains(t, out, "Graph Operators:")
}
