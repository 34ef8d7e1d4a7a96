// Package model implements the in-memory node model: immutable tree
// snapshots, copy-on-write mutation under optimistic concurrency, and
// tracked node handles that survive edits elsewhere in the tree.
package model

import (
	"fmt"

	"github.com/agentic-research/conftree/internal/tree"
)

// replacementCompactionMax bounds the size of a snapshot's replacement
// mapping. Once exceeded, the parent index is rebuilt from the root and the
// mapping is reset. This is a tuning knob for memory and lookup chain
// length, not a correctness constant.
const replacementCompactionMax = 200

// TreeData is one immutable snapshot of the model: the root node, a
// node→parent index computed when the snapshot family was created, and a
// replacement mapping that resolves references to superseded node instances
// without rebuilding the parent index on every edit.
//
// TreeData implements tree.Handler, so a snapshot can be queried directly.
type TreeData struct {
	root *tree.Node

	// parents maps each node reachable from some root revision to its
	// parent at the time the entry was created. Both keys and values may
	// be superseded instances; lookups resolve through replacements.
	parents map[*tree.Node]*tree.Node

	// replacements maps superseded node instances to their successors.
	replacements map[*tree.Node]*tree.Node

	tracker *NodeTracker
}

// newTreeData creates a snapshot for the given root with a freshly computed
// parent index.
func newTreeData(root *tree.Node, tracker *NodeTracker) *TreeData {
	td := &TreeData{
		root:         root,
		parents:      make(map[*tree.Node]*tree.Node),
		replacements: make(map[*tree.Node]*tree.Node),
		tracker:      tracker,
	}
	indexParents(td.parents, root)
	return td
}

func indexParents(parents map[*tree.Node]*tree.Node, node *tree.Node) {
	for i := 0; i < node.ChildCount(); i++ {
		child := node.ChildAt(i)
		parents[child] = node
		indexParents(parents, child)
	}
}

// Root returns the snapshot's root node.
func (td *TreeData) Root() *tree.Node {
	return td.root
}

// resolve follows the replacement chain from node to its current instance.
func (td *TreeData) resolve(node *tree.Node) *tree.Node {
	for {
		next, ok := td.replacements[node]
		if !ok {
			return node
		}
		node = next
	}
}

// RootNode implements tree.Handler.
func (td *TreeData) RootNode() *tree.Node {
	return td.root
}

// Parent implements tree.Handler. The given node may be a superseded
// instance; the returned parent is always the current one.
func (td *TreeData) Parent(node *tree.Node) (*tree.Node, error) {
	current := td.resolve(node)
	if current == td.root {
		return nil, nil
	}
	parent, ok := td.parents[current]
	if !ok {
		return nil, fmt.Errorf("%w: %q", tree.ErrNotInTree, node.Name())
	}
	return td.resolve(parent), nil
}

// ChildrenByName implements tree.Handler.
func (td *TreeData) ChildrenByName(node *tree.Node, name string) []*tree.Node {
	return tree.ChildrenByName(td.resolve(node), name)
}

// ChildCount implements tree.Handler.
func (td *TreeData) ChildCount(node *tree.Node, name string) int {
	return tree.CountChildren(td.resolve(node), name)
}

// MatchingChildren implements tree.Handler.
func (td *TreeData) MatchingChildren(node *tree.Node, matcher tree.Matcher, criterion any) []*tree.Node {
	return tree.MatchChildren(td, td.resolve(node), matcher, criterion)
}

// withTracker returns a copy of the snapshot carrying a different tracker.
// The node structure and indices are shared.
func (td *TreeData) withTracker(tracker *NodeTracker) *TreeData {
	cp := *td
	cp.tracker = tracker
	return &cp
}

// clone prepares a mutable successor snapshot: the parent index and the
// replacement mapping are copied so edit primitives can extend them before
// the snapshot is published. Compaction happens here when the replacement
// mapping has grown past its bound.
func (td *TreeData) clone() *TreeData {
	cp := &TreeData{root: td.root, tracker: td.tracker}
	if len(td.replacements) > replacementCompactionMax {
		// Rebuild the parent index from the current root and start a fresh
		// replacement mapping. References older than this horizon stop
		// resolving; the tracker always holds current instances, so only
		// long-held external references are affected.
		cp.parents = make(map[*tree.Node]*tree.Node, len(td.parents))
		indexParents(cp.parents, td.root)
		cp.replacements = make(map[*tree.Node]*tree.Node)
		return cp
	}
	cp.parents = make(map[*tree.Node]*tree.Node, len(td.parents)+8)
	for k, v := range td.parents {
		cp.parents[k] = v
	}
	cp.replacements = make(map[*tree.Node]*tree.Node, len(td.replacements)+8)
	for k, v := range td.replacements {
		cp.replacements[k] = v
	}
	return cp
}
