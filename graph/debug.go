package graph

import (
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// ToString renders the graph's tensors then its operators as two tables: a direct Go
// analogue of the original's plain-text toString dump, now readable in a terminal.
func (g *Graph) ToString() string {
	var b strings.Builder

	b.WriteString("Graph Tensors:\n")
	tensorTable := tablewriter.NewWriter(&b)
	tensorTable.SetHeader([]string{"FUID", "GUID", "SHAPE", "DTYPE"})
	tensorTable.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tensorTable.SetAlignment(tablewriter.ALIGN_LEFT)
	tensorTable.SetHeaderLine(false)
	tensorTable.SetBorder(false)
	tensorTable.SetNoWhiteSpace(true)
	tensorTable.SetTablePadding("    ")
	for pair := g.tensors.Oldest(); pair != nil; pair = pair.Next() {
		t := pair.Value
		tensorTable.Append([]string{
			strconv.Itoa(t.Fuid()),
			t.Guid().String(),
			t.Shape().String(),
			t.DType().String(),
		})
	}
	tensorTable.Render()

	b.WriteString("Graph Operators:\n")
	opTable := tablewriter.NewWriter(&b)
	opTable.SetHeader([]string{"GUID", "PRED", "SUCC", "SUMMARY"})
	opTable.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	opTable.SetAlignment(tablewriter.ALIGN_LEFT)
	opTable.SetHeaderLine(false)
	opTable.SetBorder(false)
	opTable.SetNoWhiteSpace(true)
	opTable.SetTablePadding("    ")
	for _, op := range g.ops {
		opTable.Append([]string{
			op.Guid().String(),
			guidList(op.Predecessors()),
			guidList(op.Successors()),
			op.String(),
		})
	}
	opTable.Render()

	return b.String()
}

func guidList(ops []Operator) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op.Guid().String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
