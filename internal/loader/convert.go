// Package loader reads configuration documents from several formats into
// node trees and writes trees back out.
//
// The mapping between document structure and nodes is shared by all formats:
// object members become child nodes, arrays become repeated same-named
// children, and member names starting with "@" become attributes of the
// enclosing node.
package loader

import (
	"sort"

	"github.com/agentic-research/conftree/internal/tree"
)

// attributePrefix marks a document member as an attribute of its enclosing
// node rather than a child node.
const attributePrefix = "@"

// FromAny converts a decoded document (maps, slices, scalars) into a tree
// rooted at an unnamed node.
func FromAny(doc any) *tree.Node {
	root := tree.NewNode("")
	return fillNode(root, doc)
}

// fillNode populates node from a decoded value and returns the new instance.
func fillNode(node *tree.Node, v any) *tree.Node {
	m, ok := toStringMap(v)
	if !ok {
		return node.SetValue(v)
	}
	// Map iteration order is random; keep the output deterministic.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		val := m[k]
		if len(k) > len(attributePrefix) && k[:len(attributePrefix)] == attributePrefix {
			node = node.SetAttribute(k[len(attributePrefix):], val)
			continue
		}
		for _, el := range elements(val) {
			node = node.AddChild(fillNode(tree.NewNode(k), el))
		}
	}
	return node
}

// elements splits an array value into its members; scalars and maps are a
// single element.
func elements(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return []any{v}
}

// toStringMap normalizes the map types the decoders produce.
func toStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[s] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// ToAny converts a tree back into the generic document form FromAny accepts.
// Nodes with children or attributes become maps; repeated same-named children
// become arrays; leaf nodes become their value.
func ToAny(node *tree.Node) any {
	if node.ChildCount() == 0 && !node.HasAttributes() {
		return node.Value()
	}

	out := make(map[string]any)
	for name, v := range node.Attributes() {
		out[attributePrefix+name] = v
	}

	// Group children by name, preserving first-occurrence order.
	var order []string
	grouped := make(map[string][]any)
	for _, child := range node.Children() {
		if _, ok := grouped[child.Name()]; !ok {
			order = append(order, child.Name())
		}
		grouped[child.Name()] = append(grouped[child.Name()], ToAny(child))
	}
	for _, name := range order {
		vals := grouped[name]
		if len(vals) == 1 {
			out[name] = vals[0]
		} else {
			out[name] = vals
		}
	}
	return out
}
