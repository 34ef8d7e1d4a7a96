package model

import (
	"github.com/agentic-research/conftree/internal/tree"
)

// Edit primitives. Each primitive produces a successor snapshot by
// path-copying: only the edited node and its ancestors up to the root are
// new instances, and each superseded instance is linked to its successor in
// the replacement mapping. Primitives may be chained; later primitives
// accept superseded node references and resolve them first.

// swapNode replaces node (or its current instance) with replacement and
// rebuilds the ancestor spine. replacement must not be nil.
func (td *TreeData) swapNode(node, replacement *tree.Node) *TreeData {
	cp := td.clone()
	cp.spliceSpine(td.resolve(node), replacement)
	return cp
}

// addChild appends child below parent and indexes the new subtree.
func (td *TreeData) addChild(parent, child *tree.Node) *TreeData {
	current := td.resolve(parent)
	newParent := current.AddChild(child)
	cp := td.clone()
	cp.spliceSpine(current, newParent)
	cp.parents[child] = newParent
	indexParents(cp.parents, child)
	return cp
}

// setValue changes the value of node.
func (td *TreeData) setValue(node *tree.Node, value any) *TreeData {
	current := td.resolve(node)
	return td.swapNode(current, current.SetValue(value))
}

// clearValue removes the value of node, keeping the node itself.
func (td *TreeData) clearValue(node *tree.Node) *TreeData {
	current := td.resolve(node)
	if current.Value() == nil {
		return td
	}
	return td.swapNode(current, current.ClearValue())
}

// setAttribute sets an attribute on node.
func (td *TreeData) setAttribute(node *tree.Node, name string, value any) *TreeData {
	current := td.resolve(node)
	return td.swapNode(current, current.SetAttribute(name, value))
}

// removeAttribute removes an attribute from node. Without the attribute the
// snapshot is returned unchanged.
func (td *TreeData) removeAttribute(node *tree.Node, name string) *TreeData {
	current := td.resolve(node)
	replacement := current.RemoveAttribute(name)
	if replacement == current {
		return td
	}
	return td.swapNode(current, replacement)
}

// removeNode detaches node from its parent. Removing the root is not
// supported; callers replace the root instead.
func (td *TreeData) removeNode(node *tree.Node) *TreeData {
	current := td.resolve(node)
	if current == td.root {
		return td
	}
	parent, ok := td.parents[current]
	if !ok {
		return td
	}
	parent = td.resolve(parent)
	newParent := parent.RemoveChild(current)
	cp := td.clone()
	delete(cp.parents, current)
	cp.spliceSpine(parent, newParent)
	return cp
}

// replaceRoot installs a new root node wholesale. References into the old
// tree become invalid, so the snapshot starts over with a fresh parent
// index.
func (td *TreeData) replaceRoot(newRoot *tree.Node) *TreeData {
	return newTreeData(newRoot, td.tracker)
}

// spliceSpine installs replacement in place of node and path-copies every
// ancestor. Must be called on a cloned, not yet published snapshot.
func (td *TreeData) spliceSpine(node, replacement *tree.Node) {
	child, newChild := node, replacement
	for {
		td.replacements[child] = newChild
		if child == td.root {
			td.root = newChild
			return
		}
		parent := td.resolve(td.parents[child])
		newParent := parent.ReplaceChild(child, newChild)
		td.parents[newChild] = newParent
		child, newChild = parent, newParent
	}
}
