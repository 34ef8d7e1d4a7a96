// Package tree implements the immutable configuration node structure.
//
// A Node is never mutated after construction. Every "setter" returns a new
// Node instance; subtrees that are untouched by an edit are shared between
// the old and the new instance. Identity (pointer equality) therefore marks
// a specific revision of a node, which the model layer relies on for its
// parent and replacement bookkeeping.
package tree

// Node is a single element of a configuration tree. It carries an optional
// name, an optional value, an ordered list of child nodes and a map of
// attributes.
type Node struct {
	name       string
	value      any
	children   []*Node
	attributes map[string]any
}

// NewNode creates a leaf node with the given name and no value.
func NewNode(name string) *Node {
	return &Node{name: name}
}

// Name returns the node name. The root of a tree commonly has an empty name.
func (n *Node) Name() string {
	return n.name
}

// Value returns the node value, or nil if the node carries none.
func (n *Node) Value() any {
	return n.value
}

// Children returns the child nodes. The returned slice is a copy; mutating
// it does not affect the node.
func (n *Node) Children() []*Node {
	if len(n.children) == 0 {
		return nil
	}
	cp := make([]*Node, len(n.children))
	copy(cp, n.children)
	return cp
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int {
	return len(n.children)
}

// ChildAt returns the child at the given index, or nil if out of range.
func (n *Node) ChildAt(index int) *Node {
	if index < 0 || index >= len(n.children) {
		return nil
	}
	return n.children[index]
}

// Attributes returns a copy of the attribute map.
func (n *Node) Attributes() map[string]any {
	if len(n.attributes) == 0 {
		return nil
	}
	cp := make(map[string]any, len(n.attributes))
	for k, v := range n.attributes {
		cp[k] = v
	}
	return cp
}

// AttributeValue returns the value of the named attribute. The second return
// reports whether the attribute exists.
func (n *Node) AttributeValue(name string) (any, bool) {
	v, ok := n.attributes[name]
	return v, ok
}

// HasAttributes reports whether the node carries any attributes.
func (n *Node) HasAttributes() bool {
	return len(n.attributes) > 0
}

// IsDefined reports whether the node carries any data: a value, attributes,
// or children. An undefined root represents an empty tree.
func (n *Node) IsDefined() bool {
	return n.value != nil || len(n.attributes) > 0 || len(n.children) > 0
}

// SetName returns a new node with the given name. Children and attributes
// are shared with the receiver.
func (n *Node) SetName(name string) *Node {
	cp := *n
	cp.name = name
	return &cp
}

// SetValue returns a new node with the given value. Children and attributes
// are shared with the receiver.
func (n *Node) SetValue(value any) *Node {
	cp := *n
	cp.value = value
	return &cp
}

// ClearValue returns a new node without a value.
func (n *Node) ClearValue() *Node {
	return n.SetValue(nil)
}

// AddChild returns a new node with child appended. A nil child returns the
// receiver unchanged.
func (n *Node) AddChild(child *Node) *Node {
	if child == nil {
		return n
	}
	cp := *n
	children := make([]*Node, len(n.children), len(n.children)+1)
	copy(children, n.children)
	cp.children = append(children, child)
	return &cp
}

// RemoveChild returns a new node without the given child. The child is
// located by identity; if it is not a child of the receiver, the receiver is
// returned unchanged.
func (n *Node) RemoveChild(child *Node) *Node {
	idx := n.indexOf(child)
	if idx < 0 {
		return n
	}
	cp := *n
	children := make([]*Node, 0, len(n.children)-1)
	children = append(children, n.children[:idx]...)
	children = append(children, n.children[idx+1:]...)
	cp.children = children
	return &cp
}

// ReplaceChild returns a new node with oldChild replaced by newChild at the
// same position. oldChild is located by identity; if it is not a child of
// the receiver, the receiver is returned unchanged.
func (n *Node) ReplaceChild(oldChild, newChild *Node) *Node {
	idx := n.indexOf(oldChild)
	if idx < 0 || newChild == nil {
		return n
	}
	cp := *n
	children := make([]*Node, len(n.children))
	copy(children, n.children)
	children[idx] = newChild
	cp.children = children
	return &cp
}

// SetChildren returns a new node whose children are exactly the given slice
// (copied). A nil slice yields a node without children.
func (n *Node) SetChildren(children []*Node) *Node {
	cp := *n
	if len(children) == 0 {
		cp.children = nil
	} else {
		cs := make([]*Node, 0, len(children))
		for _, c := range children {
			if c != nil {
				cs = append(cs, c)
			}
		}
		cp.children = cs
	}
	return &cp
}

// SetAttribute returns a new node with the named attribute set.
func (n *Node) SetAttribute(name string, value any) *Node {
	cp := *n
	attrs := make(map[string]any, len(n.attributes)+1)
	for k, v := range n.attributes {
		attrs[k] = v
	}
	attrs[name] = value
	cp.attributes = attrs
	return &cp
}

// SetAttributes returns a new node with all given attributes set, keeping
// existing ones that are not overridden.
func (n *Node) SetAttributes(attributes map[string]any) *Node {
	if len(attributes) == 0 {
		return n
	}
	cp := *n
	attrs := make(map[string]any, len(n.attributes)+len(attributes))
	for k, v := range n.attributes {
		attrs[k] = v
	}
	for k, v := range attributes {
		attrs[k] = v
	}
	cp.attributes = attrs
	return &cp
}

// RemoveAttribute returns a new node without the named attribute. If the
// attribute does not exist, the receiver is returned unchanged.
func (n *Node) RemoveAttribute(name string) *Node {
	if _, ok := n.attributes[name]; !ok {
		return n
	}
	cp := *n
	if len(n.attributes) == 1 {
		cp.attributes = nil
	} else {
		attrs := make(map[string]any, len(n.attributes)-1)
		for k, v := range n.attributes {
			if k != name {
				attrs[k] = v
			}
		}
		cp.attributes = attrs
	}
	return &cp
}

// indexOf returns the index of child (by identity), or -1.
func (n *Node) indexOf(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}
