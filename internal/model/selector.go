package model

import (
	"strings"

	"github.com/agentic-research/conftree/internal/tree"
)

// Selector identifies a single node in the model independent of any concrete
// node instance. It holds a chain of key expressions: the first key is
// evaluated against the model root, each following key against the node the
// previous key selected. Selectors are immutable value carriers; two
// selectors built from the same key chain identify the same node.
type Selector struct {
	keys []string
}

// NewSelector creates a selector for the given key.
func NewSelector(key string) Selector {
	return Selector{keys: []string{key}}
}

// SubSelector derives a selector that evaluates subKey against the node this
// selector points to.
func (s Selector) SubSelector(subKey string) Selector {
	keys := make([]string, 0, len(s.keys)+1)
	keys = append(keys, s.keys...)
	keys = append(keys, subKey)
	return Selector{keys: keys}
}

// String returns the key chain in a readable form.
func (s Selector) String() string {
	return strings.Join(s.keys, " -> ")
}

// id returns the selector's identity for use as a map key. Key strings never
// contain NUL, so the join is collision free.
func (s Selector) id() string {
	return strings.Join(s.keys, "\x00")
}

// Select evaluates the selector against root. It returns the selected node
// if the key chain resolves to exactly one node result, and nil otherwise
// (no match, multiple matches, or an attribute result along the chain).
func (s Selector) Select(root *tree.Node, resolver KeyResolver, handler tree.Handler) *tree.Node {
	current := root
	for _, key := range s.keys {
		results := resolver.ResolveKey(current, key, handler)
		var nodes []*tree.Node
		for _, res := range results {
			if !res.IsAttribute() {
				nodes = append(nodes, res.Node())
			}
		}
		if len(nodes) != 1 {
			return nil
		}
		current = nodes[0]
	}
	return current
}
