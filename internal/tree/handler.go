package tree

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotInTree is returned when a parent lookup is requested for a node that
// is not part of the handler's tree.
var ErrNotInTree = errors.New("node is not part of this tree")

// Handler provides read access to a rooted tree of nodes. It is the seam
// between the expression engine and a concrete tree source: a standalone
// node, a live model snapshot, or a tracked subtree all expose the same
// capabilities.
type Handler interface {
	// RootNode returns the root of the tree.
	RootNode() *Node

	// Parent returns the parent of node, or nil for the root. It returns
	// ErrNotInTree if the node does not belong to this tree.
	Parent(node *Node) (*Node, error)

	// ChildrenByName returns the children of node carrying the given name,
	// in document order.
	ChildrenByName(node *Node, name string) []*Node

	// ChildCount returns the number of children of node with the given
	// name. An empty name counts all children.
	ChildCount(node *Node, name string) int

	// MatchingChildren returns the children of node accepted by the
	// matcher for the given criterion.
	MatchingChildren(node *Node, matcher Matcher, criterion any) []*Node
}

// Matcher is a predicate over nodes, evaluated against a criterion. The
// expression engine uses matchers to locate children along a key path.
type Matcher interface {
	Matches(handler Handler, node *Node, criterion any) bool
}

// NameMatcher matches nodes whose name equals the criterion string. With
// IgnoreCase set, the comparison is case insensitive.
type NameMatcher struct {
	IgnoreCase bool
}

// Matches implements Matcher.
func (m NameMatcher) Matches(_ Handler, node *Node, criterion any) bool {
	name, ok := criterion.(string)
	if !ok {
		return false
	}
	if m.IgnoreCase {
		return strings.EqualFold(node.Name(), name)
	}
	return node.Name() == name
}

// nodeHandler is a Handler over a standalone node without any precomputed
// parent index. Parent lookups walk the tree.
type nodeHandler struct {
	root *Node
}

// NewHandler creates a Handler rooted at the given node. It is suitable for
// trees that are not managed by a model, such as combiner results or freshly
// loaded documents.
func NewHandler(root *Node) Handler {
	return &nodeHandler{root: root}
}

func (h *nodeHandler) RootNode() *Node { return h.root }

func (h *nodeHandler) Parent(node *Node) (*Node, error) {
	if node == h.root {
		return nil, nil
	}
	if p := findParent(h.root, node); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotInTree, node.Name())
}

func (h *nodeHandler) ChildrenByName(node *Node, name string) []*Node {
	return ChildrenByName(node, name)
}

func (h *nodeHandler) ChildCount(node *Node, name string) int {
	return CountChildren(node, name)
}

func (h *nodeHandler) MatchingChildren(node *Node, matcher Matcher, criterion any) []*Node {
	return MatchChildren(h, node, matcher, criterion)
}

// findParent returns the parent of target below root, or nil.
func findParent(root, target *Node) *Node {
	for _, c := range root.children {
		if c == target {
			return root
		}
		if p := findParent(c, target); p != nil {
			return p
		}
	}
	return nil
}

// ChildrenByName is the shared by-name child lookup used by all handlers.
func ChildrenByName(node *Node, name string) []*Node {
	var result []*Node
	for _, c := range node.children {
		if c.name == name {
			result = append(result, c)
		}
	}
	return result
}

// CountChildren counts the children of node with the given name. An empty
// name counts all children.
func CountChildren(node *Node, name string) int {
	if name == "" {
		return len(node.children)
	}
	count := 0
	for _, c := range node.children {
		if c.name == name {
			count++
		}
	}
	return count
}

// MatchChildren returns the children of node accepted by the matcher.
func MatchChildren(h Handler, node *Node, matcher Matcher, criterion any) []*Node {
	var result []*Node
	for _, c := range node.children {
		if matcher.Matches(h, c, criterion) {
			result = append(result, c)
		}
	}
	return result
}

// IndexOfChild returns the position of child among all children of parent,
// or -1 if child is not a child of parent.
func IndexOfChild(parent, child *Node) int {
	return parent.indexOf(child)
}

// SiblingIndex returns the position of node among the children of parent
// that share node's name, or -1 if node is not a child of parent.
func SiblingIndex(parent, node *Node) int {
	idx := 0
	for _, c := range parent.children {
		if c == node {
			return idx
		}
		if c.name == node.name {
			idx++
		}
	}
	return -1
}
