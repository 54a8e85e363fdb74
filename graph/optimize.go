package graph

import "k8s.io/klog/v2"

// Optimize runs the peephole rewriter to a fixed point: each pass scans graph.ops in
// order, applies the first matching rule it finds, and restarts the scan. A pass that
// finds nothing to rewrite ends optimization.
//
// Unlike the original this was grown out of, a pass that merely inspects an operator
// without rewriting it does not force another restart — only an actual rewrite does. The
// original sets its `refined` flag unconditionally once it locates a Transpose feeding a
// MatMul, even when the fusion precondition (last-two-axes swap, single consumer) fails,
// which wastes a full extra pass for nothing. See tryFuseOneSide.
func (g *Graph) Optimize() {
	for g.optimizePass() {
	}
}

func (g *Graph) optimizePass() bool {
	for _, op := range g.ops {
		if transOp2, ok := op.(*TransposeOp); ok {
			if g.tryCancelTransposePair(transOp2) {
				return true
			}
		}
		if matmulOp, ok := op.(*MatMulOp); ok {
			if g.tryFuseTransposeIntoMatmul(matmulOp) {
				return true
			}
		}
	}
	return false
}

// tryCancelTransposePair implements rule T1: Transpose(perm1) -> t_mid -> Transpose(perm2)
// where perm2 inverts perm1 and t_mid has exactly one consumer collapses to nothing, with
// every consumer of the second transpose's output rewired directly to the first
// transpose's input.
func (g *Graph) tryCancelTransposePair(transOp2 *TransposeOp) bool {
	input := transOp2.Inputs()[0]
	prevOp := input.Source()
	if prevOp == nil {
		return false
	}
	transOp1, ok := prevOp.(*TransposeOp)
	if !ok {
		return false
	}
	if !isInversePermutation(transOp1.Perm(), transOp2.Perm()) {
		return false
	}
	if len(input.Targets()) != 1 {
		return false
	}

	grandInput := transOp1.Inputs()[0]
	output := transOp2.Outputs()[0]
	grandInputSource := grandInput.Source()

	if grandInputSource != nil {
		grandInputSource.removeSuccessor(transOp1)
	}

	consumers := append([]Operator(nil), output.Targets()...)
	for _, next := range consumers {
		next.ReplaceInput(output, grandInput)
		grandInput.addTarget(next)
		output.removeTarget(next)

		next.removePredecessor(transOp2)
		if grandInputSource != nil {
			next.addPredecessor(grandInputSource)
			grandInputSource.addSuccessor(next)
		}
	}
	grandInput.removeTarget(transOp1)

	g.RemoveTensor(input)
	g.RemoveTensor(output)
	g.RemoveOperator(transOp1)
	g.RemoveOperator(transOp2)
	g.sorted = false

	klog.V(3).Infof("graph: optimize cancelled transpose pair %s / %s", transOp1.Guid(), transOp2.Guid())
	return true
}

// tryFuseTransposeIntoMatmul implements rule T2 for whichever side (A or B) of matmulOp is
// fed by a qualifying Transpose, trying A first.
func (g *Graph) tryFuseTransposeIntoMatmul(matmulOp *MatMulOp) bool {
	if g.tryFuseOneSide(matmulOp, 0) {
		return true
	}
	return g.tryFuseOneSide(matmulOp, 1)
}

// tryFuseOneSide fuses a Transpose feeding matmulOp's input[side] into the matmul's
// transA/transB flag, provided the transpose only swaps the last two axes and its output
// has no other consumer. Returns false (no rewrite) without side effects if any
// precondition fails — this is the fix for the original's unconditional `refined = true`.
func (g *Graph) tryFuseOneSide(matmulOp *MatMulOp, side int) bool {
	intermediate := matmulOp.Inputs()[side]
	prevOp := intermediate.Source()
	if prevOp == nil {
		return false
	}
	transOp, ok := prevOp.(*TransposeOp)
	if !ok {
		return false
	}
	if !swapsLastTwoAxesOnly(transOp.Perm()) {
		return false
	}
	if len(intermediate.Targets()) != 1 {
		return false
	}

	if side == 0 {
		matmulOp.SetTransA(!matmulOp.TransA())
	} else {
		matmulOp.SetTransB(!matmulOp.TransB())
	}

	transInput := transOp.Inputs()[0]
	transInputSource := transInput.Source()

	matmulOp.ReplaceInput(intermediate, transInput)
	transInput.addTarget(matmulOp)
	transInput.removeTarget(transOp)
	intermediate.removeTarget(matmulOp)

	if transInputSource != nil {
		transInputSource.removeSuccessor(transOp)
	}
	matmulOp.removePredecessor(transOp)
	if transInputSource != nil {
		transInputSource.addSuccessor(matmulOp)
		matmulOp.addPredecessor(transInputSource)
	}

	g.RemoveTensor(intermediate)
	g.RemoveOperator(transOp)
	g.sorted = false

	klog.V(3).Infof("graph: optimize fused transpose %s into %s", transOp.Guid(), matmulOp.Guid())
	return true
}
