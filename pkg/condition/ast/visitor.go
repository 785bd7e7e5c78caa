// ============================================================================
// condparse - MSBuild-style condition expression parser
// ============================================================================
//
// Package:     ast
// Description: Tree traversal helpers for consumers of the parsed tree
// Created:     2026-10-18
// License:     MIT
// ============================================================================

package ast

// WalkFunc is called for every visited node. depth is 0 for the node passed to
// Walk. Returning false skips the children of that node.
type WalkFunc func(n Node, depth int) bool

// Walk traverses the tree rooted at n in pre-order, left to right
func Walk(n Node, fn WalkFunc) {
	walk(n, 0, fn)
}

func walk(n Node, depth int, fn WalkFunc) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		walk(c, depth+1, fn)
	}
}

// WalkAll traverses every node of a top-level sequence
func WalkAll(nodes []Node, fn WalkFunc) {
	for _, n := range nodes {
		walk(n, 0, fn)
	}
}

// Collect returns all nodes of the given type in source order
func Collect(nodes []Node, t NodeType) []Node {
	var out []Node
	WalkAll(nodes, func(n Node, _ int) bool {
		if n.Type == t {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Count returns the number of nodes of each type in the sequence
func Count(nodes []Node) map[NodeType]int {
	counts := make(map[NodeType]int)
	WalkAll(nodes, func(n Node, _ int) bool {
		counts[n.Type]++
		return true
	})
	return counts
}
