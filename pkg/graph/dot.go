package graph

import (
	"bytes"
	"fmt"
)

// DOTOptions configures DOT output.
type DOTOptions struct {
	// Detailed includes resolved versions and managed bits in node labels.
	// When false, only the coordinate and scope are shown.
	Detailed bool
}

// ToDOT converts a dependency tree to Graphviz DOT format.
//
// Every node gets a synthetic identifier: the same dependency may appear in
// several positions of the tree, so coordinates alone would fold distinct
// nodes together. Cycle-truncated leaves render like any other leaf.
func ToDOT(root *Node, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	next := 0
	writeDOT(&buf, root, -1, &next, opts)

	buf.WriteString("}\n")
	return buf.String()
}

func writeDOT(buf *bytes.Buffer, n *Node, parent int, next *int, opts DOTOptions) {
	id := *next
	*next++

	fmt.Fprintf(buf, "  n%d [label=%q%s];\n", id, dotLabel(n, opts), dotAttrs(n))
	if parent >= 0 {
		fmt.Fprintf(buf, "  n%d -> n%d;\n", parent, id)
	}

	for _, c := range n.Children {
		writeDOT(buf, c, id, next, opts)
	}
}

func dotLabel(n *Node, opts DOTOptions) string {
	if n.Dependency == nil {
		return "(root)"
	}
	label := n.Dependency.Coordinate.String()
	if s := n.Dependency.Scope; s != "" {
		label += "\n" + s
	}
	if opts.Detailed {
		if len(n.Versions) > 1 {
			label += fmt.Sprintf("\n%d versions", len(n.Versions))
		}
		if n.ManagedBits != 0 {
			label += "\nmanaged"
		}
	}
	return label
}

func dotAttrs(n *Node) string {
	switch {
	case n.Dependency == nil:
		return ", style=\"rounded,filled,dashed\", fillcolor=lightgrey"
	case n.ManagedBits != 0:
		return ", fillcolor=lightyellow"
	case n.Dependency.IsOptional():
		return ", style=\"rounded,filled,dotted\""
	}
	return ""
}
