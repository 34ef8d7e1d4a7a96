package model

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/agentic-research/conftree/internal/expr"
	"github.com/agentic-research/conftree/internal/tree"
)

// ErrAttributeKey is returned when an operation that needs a node target is
// given a key that addresses an attribute.
var ErrAttributeKey = errors.New("key addresses an attribute where a node is required")

// ErrNoSingleNode is returned when an operation requires its key to select
// exactly one node.
var ErrNoSingleNode = errors.New("key does not select exactly one node")

// Model is an in-memory node model with optimistic concurrency. All state
// lives in a single immutable TreeData snapshot behind an atomic pointer;
// updates build a successor snapshot and install it with compare-and-swap,
// retrying against the fresh state on contention. Reads never block and never
// observe a partially applied update.
type Model struct {
	structure atomic.Pointer[TreeData]
}

// NewModel creates a model with the given root node. A nil root yields an
// empty (undefined) root, representing an empty configuration.
func NewModel(root *tree.Node) *Model {
	if root == nil {
		root = tree.NewNode("")
	}
	m := &Model{}
	m.structure.Store(newTreeData(root, NewNodeTracker()))
	return m
}

// RootNode returns the current root node.
func (m *Model) RootNode() *tree.Node {
	return m.structure.Load().Root()
}

// NodeHandler returns a handler over the current snapshot. The handler keeps
// reading that snapshot even while the model moves on; obtain a fresh one to
// observe later updates.
func (m *Model) NodeHandler() tree.Handler {
	return m.structure.Load()
}

// SetRootNode replaces the entire tree. All tracked nodes are detached, since
// none of their selectors can be trusted against an unrelated tree. A nil
// root installs an empty root node.
func (m *Model) SetRootNode(root *tree.Node) {
	if root == nil {
		root = tree.NewNode("")
	}
	for {
		old := m.structure.Load()
		nd := newTreeData(root, old.tracker.detachAll())
		if m.structure.CompareAndSwap(old, nd) {
			return
		}
	}
}

// Clear removes all data from the model, leaving an undefined root with the
// current root's name. Tracked nodes are detached.
func (m *Model) Clear() {
	for {
		old := m.structure.Load()
		nd := newTreeData(tree.NewNode(old.root.Name()), old.tracker.detachAll())
		if m.structure.CompareAndSwap(old, nd) {
			return
		}
	}
}

// updateModel runs one model update under the CAS loop. fn receives the
// current snapshot, the node the operation is relative to, and the handler
// resolution should run against; it returns the successor snapshot. A target
// selector routes the operation to a tracked node; once that node is
// detached, the operation runs on its standalone model instead.
func (m *Model) updateModel(target *Selector, resolver KeyResolver, fn func(td *TreeData, root *tree.Node, handler tree.Handler) (*TreeData, error)) error {
	for {
		old := m.structure.Load()

		root := old.root
		handler := tree.Handler(old)
		if target != nil {
			if e, ok := old.tracker.entries[target.id()]; ok && e.detached {
				return e.detachedModel.updateModel(nil, resolver, fn)
			}
			node, err := old.tracker.trackedNode(*target)
			if err != nil {
				return err
			}
			root = old.resolve(node)
			handler = &trackedHandler{root: root, data: old}
		}

		nd, err := fn(old, root, handler)
		if err != nil {
			return err
		}
		if nd == old {
			return nil
		}
		nd = nd.withTracker(nd.tracker.update(nd.root, resolver, nd))
		if m.structure.CompareAndSwap(old, nd) {
			return nil
		}
	}
}

// AddProperty adds the given values under the key. Missing path nodes are
// created; existing nodes along the key are reused, so repeated adds produce
// sibling leaves. With no values the call is a no-op.
func (m *Model) AddProperty(key string, resolver KeyResolver, values ...any) error {
	return m.addProperty(nil, key, resolver, values)
}

// AddPropertyAt is AddProperty relative to a tracked node.
func (m *Model) AddPropertyAt(target Selector, key string, resolver KeyResolver, values ...any) error {
	return m.addProperty(&target, key, resolver, values)
}

func (m *Model) addProperty(target *Selector, key string, resolver KeyResolver, values []any) error {
	if len(values) == 0 {
		return nil
	}
	return m.updateModel(target, resolver, func(td *TreeData, root *tree.Node, handler tree.Handler) (*TreeData, error) {
		add, err := resolver.ResolveAddKey(root, key, handler)
		if err != nil {
			return nil, err
		}
		return applyAdd(td, add, values), nil
	})
}

// applyAdd materializes an insertion plan: path nodes are built as one new
// subtree below the existing parent, the leaf becomes value-carrying child
// nodes or an attribute.
func applyAdd(td *TreeData, add expr.AddData, values []any) *TreeData {
	if len(add.PathNodes) == 0 {
		if add.Attribute {
			return td.setAttribute(add.Parent, add.NewNodeName, singleValue(values))
		}
		for _, v := range values {
			td = td.addChild(add.Parent, tree.NewNode(add.NewNodeName).SetValue(v))
		}
		return td
	}

	node := tree.NewNode(add.PathNodes[len(add.PathNodes)-1])
	if add.Attribute {
		node = node.SetAttribute(add.NewNodeName, singleValue(values))
	} else {
		for _, v := range values {
			node = node.AddChild(tree.NewNode(add.NewNodeName).SetValue(v))
		}
	}
	for i := len(add.PathNodes) - 2; i >= 0; i-- {
		node = tree.NewNode(add.PathNodes[i]).AddChild(node)
	}
	return td.addChild(add.Parent, node)
}

// singleValue collapses the value list for attribute targets: an attribute
// holds one value, so multiple values are stored as a slice.
func singleValue(values []any) any {
	if len(values) == 1 {
		return values[0]
	}
	cp := make([]any, len(values))
	copy(cp, values)
	return cp
}

// AddNodes grafts fully built subtrees below the node the key selects. If the
// key selects exactly one node, the subtrees become its children; otherwise
// the key is treated as an add key and the missing path is created first.
// Keys addressing attributes are rejected.
func (m *Model) AddNodes(key string, resolver KeyResolver, nodes ...*tree.Node) error {
	return m.addNodes(nil, key, resolver, nodes)
}

// AddNodesAt is AddNodes relative to a tracked node.
func (m *Model) AddNodesAt(target Selector, key string, resolver KeyResolver, nodes ...*tree.Node) error {
	return m.addNodes(&target, key, resolver, nodes)
}

func (m *Model) addNodes(target *Selector, key string, resolver KeyResolver, nodes []*tree.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	return m.updateModel(target, resolver, func(td *TreeData, root *tree.Node, handler tree.Handler) (*TreeData, error) {
		results := resolver.ResolveKey(root, key, handler)
		if len(results) == 1 {
			if results[0].IsAttribute() {
				return nil, fmt.Errorf("%w: %q", ErrAttributeKey, key)
			}
			parent := results[0].Node()
			for _, n := range nodes {
				td = td.addChild(parent, n)
			}
			return td, nil
		}

		add, err := resolver.ResolveAddKey(root, key, handler)
		if err != nil {
			return nil, err
		}
		if add.Attribute {
			return nil, fmt.Errorf("%w: %q", ErrAttributeKey, key)
		}
		node := tree.NewNode(add.NewNodeName)
		for _, n := range nodes {
			node = node.AddChild(n)
		}
		for i := len(add.PathNodes) - 1; i >= 0; i-- {
			node = tree.NewNode(add.PathNodes[i]).AddChild(node)
		}
		return td.addChild(add.Parent, node), nil
	})
}

// SetProperty sets the key to the given value. Existing results are updated
// in document order; surplus values are added as new siblings, surplus
// results are removed. A slice value fans out over the results.
func (m *Model) SetProperty(key string, resolver KeyResolver, value any) error {
	return m.setProperty(nil, key, resolver, value)
}

// SetPropertyAt is SetProperty relative to a tracked node.
func (m *Model) SetPropertyAt(target Selector, key string, resolver KeyResolver, value any) error {
	return m.setProperty(&target, key, resolver, value)
}

func (m *Model) setProperty(target *Selector, key string, resolver KeyResolver, value any) error {
	return m.updateModel(target, resolver, func(td *TreeData, root *tree.Node, handler tree.Handler) (*TreeData, error) {
		data := resolver.ResolveUpdateKey(root, key, value, handler)

		if len(data.NewValues) > 0 {
			add, err := resolver.ResolveAddKey(root, key, handler)
			if err != nil {
				return nil, err
			}
			td = applyAdd(td, add, data.NewValues)
		}
		for _, res := range data.Removed {
			td = removeResult(td, res)
		}
		for _, upd := range data.Changed {
			if upd.Result.IsAttribute() {
				td = td.setAttribute(upd.Result.Node(), upd.Result.AttributeName(), upd.Value)
			} else {
				td = td.setValue(upd.Result.Node(), upd.Value)
			}
		}
		return td, nil
	})
}

// ClearProperty removes the values the key selects. Nodes lose their value
// but stay in the tree; attributes are removed. Unmatched keys are a no-op.
func (m *Model) ClearProperty(key string, resolver KeyResolver) error {
	return m.clearProperty(nil, key, resolver)
}

// ClearPropertyAt is ClearProperty relative to a tracked node.
func (m *Model) ClearPropertyAt(target Selector, key string, resolver KeyResolver) error {
	return m.clearProperty(&target, key, resolver)
}

func (m *Model) clearProperty(target *Selector, key string, resolver KeyResolver) error {
	return m.updateModel(target, resolver, func(td *TreeData, root *tree.Node, handler tree.Handler) (*TreeData, error) {
		for _, res := range resolver.ResolveKey(root, key, handler) {
			if res.IsAttribute() {
				td = td.removeAttribute(res.Node(), res.AttributeName())
			} else {
				td = td.clearValue(res.Node())
			}
		}
		return td, nil
	})
}

// ClearTree removes the whole subtrees the key selects and returns the
// removed results. Ancestors left without any data by the removal are pruned
// as well, except for the operation's root, which stays as an undefined node.
func (m *Model) ClearTree(key string, resolver KeyResolver) ([]tree.QueryResult, error) {
	return m.clearTree(nil, key, resolver)
}

// ClearTreeAt is ClearTree relative to a tracked node.
func (m *Model) ClearTreeAt(target Selector, key string, resolver KeyResolver) ([]tree.QueryResult, error) {
	return m.clearTree(&target, key, resolver)
}

func (m *Model) clearTree(target *Selector, key string, resolver KeyResolver) ([]tree.QueryResult, error) {
	var removed []tree.QueryResult
	err := m.updateModel(target, resolver, func(td *TreeData, root *tree.Node, handler tree.Handler) (*TreeData, error) {
		results := resolver.ResolveKey(root, key, handler)
		removed = append(removed[:0], results...)
		opRoot := root
		for _, res := range results {
			if res.IsAttribute() {
				td = td.removeAttribute(res.Node(), res.AttributeName())
				continue
			}
			node := td.resolve(res.Node())
			if node == td.resolve(opRoot) {
				// The operation root cannot be removed; it becomes undefined.
				if node == td.root {
					td = td.replaceRoot(tree.NewNode(node.Name()))
				} else {
					td = td.swapNode(node, tree.NewNode(node.Name()))
				}
				continue
			}
			td = removeAndPrune(td, node, opRoot)
		}
		return td, nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// removeResult removes whatever a query result points to.
func removeResult(td *TreeData, res tree.QueryResult) *TreeData {
	if res.IsAttribute() {
		return td.removeAttribute(res.Node(), res.AttributeName())
	}
	return td.removeNode(res.Node())
}

// removeAndPrune removes node and then walks up from its former parent,
// dropping every ancestor the removal left without value, attributes and
// children. Pruning stops at opRoot.
func removeAndPrune(td *TreeData, node *tree.Node, opRoot *tree.Node) *TreeData {
	parent, ok := td.parents[td.resolve(node)]
	td = td.removeNode(node)
	if !ok {
		return td
	}
	for {
		current := td.resolve(parent)
		if current == td.resolve(opRoot) || current == td.root || current.IsDefined() {
			return td
		}
		next, ok := td.parents[current]
		td = td.removeNode(current)
		if !ok {
			return td
		}
		parent = next
	}
}
