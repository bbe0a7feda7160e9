// Package graph defines the dependency graph produced by collection: a tree
// of nodes rooted at a single (possibly artificial) root.
//
// The graph is intentionally tree-shaped. Cycles are truncated at the first
// re-encounter of a versionless coordinate on the current path, and two
// sibling nodes may carry the same dependency — deduplication belongs to a
// later conflict-resolution pass, not to collection.
package graph

import (
	"github.com/okvist/quarry/pkg/artifact"
	"github.com/okvist/quarry/pkg/repository"
)

// Managed bits record which aspects of a node's dependency were overridden
// by dependency management on the path to it.
const (
	ManagedVersion = 1 << iota
	ManagedScope
	ManagedOptional
	ManagedProperties
	ManagedExclusions
)

// Premanaged sidecar keys. The sidecar is populated only when verbose
// management recording is enabled on the session.
const (
	PremanagedVersion    = "version"
	PremanagedScope      = "scope"
	PremanagedOptional   = "optional"
	PremanagedProperties = "properties"
	PremanagedExclusions = "exclusions"
)

// Node is one vertex of the dependency graph.
//
// The artificial root of a multi-root collection has a nil Dependency; every
// other node carries the managed dependency it was collected for. Children
// are ordered by visit order, which follows descriptor declaration order.
// Nodes are not mutated after their children are fully enumerated.
type Node struct {
	// Dependency is nil only for the artificial root.
	Dependency *artifact.Dependency

	// Children in visit order.
	Children []*Node

	// Versions is the resolved version list for the node's version
	// specification, ascending; the node's dependency carries the selected
	// (highest) one.
	Versions []string

	// Repositories is the repository list the node's descriptor was
	// resolved against.
	Repositories []repository.Remote

	// ManagedBits records which aspects management overrode.
	ManagedBits int

	// Premanaged holds the pre-management values for overridden aspects,
	// keyed by the Premanaged* constants. Nil unless verbose management
	// recording was active.
	Premanaged map[string]any
}

// NewNode creates a leaf node for the given dependency.
func NewNode(dep *artifact.Dependency) *Node {
	return &Node{Dependency: dep}
}

// Size returns the number of nodes in the subtree, including the receiver.
func (n *Node) Size() int {
	if n == nil {
		return 0
	}
	size := 1
	for _, c := range n.Children {
		size += c.Size()
	}
	return size
}

// Walk visits the subtree depth-first in child order. Returning false from
// fn stops the walk.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) bool {
	if n == nil {
		return true
	}
	if !fn(n, depth) {
		return false
	}
	for _, c := range n.Children {
		if !c.walk(fn, depth+1) {
			return false
		}
	}
	return true
}

// PremanagedVersion returns the version the dependency held before
// management, when recorded.
func (n *Node) PremanagedVersion() (string, bool) {
	v, ok := n.Premanaged[PremanagedVersion].(string)
	return v, ok
}

// PremanagedScope returns the scope the dependency held before management,
// when recorded.
func (n *Node) PremanagedScope() (string, bool) {
	s, ok := n.Premanaged[PremanagedScope].(string)
	return s, ok
}

// PremanagedOptional returns the optional flag the dependency held before
// management, when recorded. The inner value is nil when the flag was unset.
func (n *Node) PremanagedOptional() (*bool, bool) {
	v, ok := n.Premanaged[PremanagedOptional]
	if !ok {
		return nil, false
	}
	b, _ := v.(*bool)
	return b, true
}

// Equal reports whether two subtrees are structurally identical: same shape
// and equal dependencies at every position. The extra per-node bookkeeping
// (versions, repositories, managed bits) is not compared.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch {
	case a.Dependency == nil && b.Dependency == nil:
	case a.Dependency == nil || b.Dependency == nil:
		return false
	case !a.Dependency.Equal(*b.Dependency):
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}
