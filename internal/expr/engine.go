package expr

import (
	"errors"
	"fmt"

	"github.com/agentic-research/conftree/internal/tree"
)

// ErrEmptyAddKey is returned by PrepareAdd for keys without any segment.
var ErrEmptyAddKey = errors.New("key for add operation must contain at least one segment")

// ErrAttributeInPath is returned by PrepareAdd when an attribute marker
// appears before the final segment of the key.
var ErrAttributeInPath = errors.New("attribute segments may only appear at the end of a key")

// AddData is the plan for inserting a new property: the nearest existing
// ancestor, the names of intermediate path nodes that must be created below
// it, the name of the leaf, and whether the leaf is an attribute.
type AddData struct {
	Parent      *tree.Node
	PathNodes   []string
	NewNodeName string
	Attribute   bool
}

// Engine resolves key strings against node trees and builds key strings from
// tree positions. It is stateless apart from its configuration and safe for
// concurrent use.
type Engine struct {
	sym     Symbols
	matcher tree.Matcher
}

// NewEngine creates an engine with the given symbols and name-equality child
// matching.
func NewEngine(sym Symbols) *Engine {
	return &Engine{sym: sym, matcher: tree.NameMatcher{}}
}

// NewEngineWithMatcher creates an engine with a custom child matcher, for
// example case-insensitive name matching.
func NewEngineWithMatcher(sym Symbols, matcher tree.Matcher) *Engine {
	return &Engine{sym: sym, matcher: matcher}
}

// Symbols returns the engine's token vocabulary.
func (e *Engine) Symbols() Symbols {
	return e.sym
}

// Matcher returns the engine's child matcher.
func (e *Engine) Matcher() tree.Matcher {
	return e.matcher
}

// Key creates an empty key with the engine's symbols.
func (e *Engine) Key() *Key {
	return EmptyKey(e.sym)
}

// Query finds all nodes and attributes the key selects below root. An empty
// key selects the root itself. Unmatched keys (including out-of-range
// sibling indices) yield an empty result, not an error.
func (e *Engine) Query(root *tree.Node, key string, handler tree.Handler) []tree.QueryResult {
	var results []tree.QueryResult
	it := NewKey(e.sym, key).Iterator()
	e.findNodes(it, root, handler, &results)
	return results
}

func (e *Engine) findNodes(it *KeyIterator, node *tree.Node, handler tree.Handler, results *[]tree.QueryResult) {
	if !it.HasNext() {
		*results = append(*results, tree.NodeResult(node))
		return
	}
	name := it.NextKey()
	if it.IsPropertyKey() {
		e.descend(it, handler.MatchingChildren(node, e.matcher, name), handler, results)
	}
	if it.IsAttribute() && !it.HasNext() {
		if _, ok := node.AttributeValue(name); ok {
			*results = append(*results, tree.AttributeResult(node, name))
		}
	}
}

// descend continues the query in the matched children, honoring an explicit
// sibling index if one was given.
func (e *Engine) descend(it *KeyIterator, children []*tree.Node, handler tree.Handler, results *[]tree.QueryResult) {
	if it.HasIndex() {
		if idx := it.Index(); idx >= 0 && idx < len(children) {
			e.findNodes(it.Clone(), children[idx], handler, results)
		}
		return
	}
	for _, child := range children {
		e.findNodes(it.Clone(), child, handler, results)
	}
}

// NodeKey builds the key selecting node, given the key of its parent. The
// root produces the empty key; delimiters inside node names are escaped.
func (e *Engine) NodeKey(node *tree.Node, parentKey string, handler tree.Handler) string {
	if node == handler.RootNode() {
		return ""
	}
	if node.Name() == "" {
		return parentKey
	}
	return NewKey(e.sym, parentKey).Append(node.Name(), true).String()
}

// CanonicalKey builds a key that selects exactly node, always carrying an
// explicit sibling index. Canonical keys stay unambiguous when same-named
// siblings exist and are the stable form used for persisted references.
func (e *Engine) CanonicalKey(node *tree.Node, parentKey string, handler tree.Handler) string {
	key := NewKey(e.sym, e.NodeKey(node, parentKey, handler))
	key.AppendIndex(e.siblingIndex(node, handler))
	return key.String()
}

func (e *Engine) siblingIndex(node *tree.Node, handler tree.Handler) int {
	parent, err := handler.Parent(node)
	if err != nil || parent == nil {
		return 0
	}
	if idx := tree.SiblingIndex(parent, node); idx >= 0 {
		return idx
	}
	return 0
}

// AttributeKey builds the key addressing the named attribute of the node
// selected by parentKey.
func (e *Engine) AttributeKey(parentKey, attributeName string) string {
	return NewKey(e.sym, parentKey).AppendAttribute(attributeName).String()
}

// PrepareAdd computes the insertion plan for a new property. Starting at the
// last existing node along the key path, the remaining segments become path
// nodes to create, and the final segment becomes the new node or attribute
// name. Attribute markers anywhere but the final segment are an error.
func (e *Engine) PrepareAdd(root *tree.Node, key string, handler tree.Handler) (AddData, error) {
	it := NewKey(e.sym, key).Iterator()
	if !it.HasNext() {
		return AddData{}, fmt.Errorf("%w: %q", ErrEmptyAddKey, key)
	}

	parent, err := e.lastExistingNode(it, root, handler)
	if err != nil {
		return AddData{}, err
	}

	var pathNodes []string
	for it.HasNext() {
		if !it.IsPropertyKey() {
			return AddData{}, fmt.Errorf("%w: %q", ErrAttributeInPath, key)
		}
		pathNodes = append(pathNodes, it.CurrentKey())
		it.NextKey()
	}

	return AddData{
		Parent:      parent,
		PathNodes:   pathNodes,
		NewNodeName: it.CurrentKey(),
		Attribute:   !it.IsPropertyKey(),
	}, nil
}

// lastExistingNode walks the key as far as existing nodes reach and returns
// the deepest one. The iterator is left at the first segment that could not
// be matched (or the final segment).
func (e *Engine) lastExistingNode(it *KeyIterator, node *tree.Node, handler tree.Handler) (*tree.Node, error) {
	name := it.NextKey()
	if !it.HasNext() {
		return node, nil
	}
	if !it.IsPropertyKey() {
		return nil, fmt.Errorf("%w: %q", ErrAttributeInPath, name)
	}
	children := handler.MatchingChildren(node, e.matcher, name)
	idx := len(children) - 1
	if it.HasIndex() {
		idx = it.Index()
	}
	if idx < 0 || idx >= len(children) {
		return node, nil
	}
	return e.lastExistingNode(it, children[idx], handler)
}
