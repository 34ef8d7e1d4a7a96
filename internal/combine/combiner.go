// Package combine merges two configuration trees into one.
//
// A Combiner walks two trees in parallel and produces a new tree from their
// nodes. The package ships two strategies: UnionCombiner keeps the data of
// both trees, MergeCombiner lets the first tree override the second.
package combine

import (
	"github.com/agentic-research/conftree/internal/tree"
)

// Combiner combines two nodes into a new node. Implementations decide which
// child pairs are combined recursively and which children are copied over
// unchanged.
type Combiner interface {
	// Combine builds the combined node for the pair. Neither input is
	// modified; the result is a fresh tree that may share subtrees with the
	// inputs.
	Combine(first, second *tree.Node) *tree.Node

	// AddListNode marks a node name as a list. List nodes are never
	// combined; their occurrences from both trees are kept side by side.
	AddListNode(name string)

	// IsListNode reports whether the node was marked as a list node.
	IsListNode(node *tree.Node) bool
}

// listNodes is the shared list-node registry embedded by the concrete
// combiners.
type listNodes struct {
	names map[string]struct{}
}

func (l *listNodes) AddListNode(name string) {
	if l.names == nil {
		l.names = map[string]struct{}{}
	}
	l.names[name] = struct{}{}
}

func (l *listNodes) IsListNode(node *tree.Node) bool {
	_, ok := l.names[node.Name()]
	return ok
}

// combineAttributes unions the attribute maps of both nodes onto result. On a
// name clash the first node wins.
func combineAttributes(result *tree.Node, first, second *tree.Node) *tree.Node {
	result = result.SetAttributes(second.Attributes())
	return result.SetAttributes(first.Attributes())
}

// countByName counts the children of node carrying the given name.
func countByName(node *tree.Node, name string) int {
	return tree.CountChildren(node, name)
}
