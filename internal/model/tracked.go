package model

import (
	"fmt"

	"github.com/agentic-research/conftree/internal/tree"
)

// trackedHandler exposes a tracked node as the root of its own tree while
// delegating structure lookups to the full snapshot. Parent lookups stop at
// the tracked node, so key generation and resolution stay scoped to the
// subtree.
type trackedHandler struct {
	root *tree.Node
	data *TreeData
}

func (h *trackedHandler) RootNode() *tree.Node { return h.root }

func (h *trackedHandler) Parent(node *tree.Node) (*tree.Node, error) {
	if h.data.resolve(node) == h.data.resolve(h.root) {
		return nil, nil
	}
	return h.data.Parent(node)
}

func (h *trackedHandler) ChildrenByName(node *tree.Node, name string) []*tree.Node {
	return h.data.ChildrenByName(node, name)
}

func (h *trackedHandler) ChildCount(node *tree.Node, name string) int {
	return h.data.ChildCount(node, name)
}

func (h *trackedHandler) MatchingChildren(node *tree.Node, matcher tree.Matcher, criterion any) []*tree.Node {
	return h.data.MatchingChildren(node, matcher, criterion)
}

// TrackNode starts tracking the node the selector points to. Tracking the
// same selector again increments an observer count; each TrackNode needs a
// matching UntrackNode. The selector must resolve to exactly one node.
func (m *Model) TrackNode(sel Selector, resolver KeyResolver) error {
	for {
		old := m.structure.Load()
		tracker, err := old.tracker.trackNode(sel, old.root, resolver, old)
		if err != nil {
			return err
		}
		if m.structure.CompareAndSwap(old, old.withTracker(tracker)) {
			return nil
		}
	}
}

// UntrackNode releases one observer of the selector. The tracked node (and
// its detached model, if any) is dropped when the last observer is gone.
func (m *Model) UntrackNode(sel Selector) error {
	for {
		old := m.structure.Load()
		tracker, err := old.tracker.untrackNode(sel)
		if err != nil {
			return err
		}
		if m.structure.CompareAndSwap(old, old.withTracker(tracker)) {
			return nil
		}
	}
}

// TrackedNode returns the current node instance for the selector. After
// detachment this is the root of the node's standalone model.
func (m *Model) TrackedNode(sel Selector) (*tree.Node, error) {
	return m.structure.Load().tracker.trackedNode(sel)
}

// IsTrackedNodeDetached reports whether the tracked node has been severed
// from the model's tree. Detachment is permanent.
func (m *Model) IsTrackedNodeDetached(sel Selector) (bool, error) {
	return m.structure.Load().tracker.isDetached(sel)
}

// ReplaceTrackedNode replaces the tracked node with a new node. The tracked
// node becomes detached; further operations through the selector work on the
// replacement.
func (m *Model) ReplaceTrackedNode(sel Selector, node *tree.Node) error {
	for {
		old := m.structure.Load()
		tracker, err := old.tracker.replace(sel, node)
		if err != nil {
			return err
		}
		if m.structure.CompareAndSwap(old, old.withTracker(tracker)) {
			return nil
		}
	}
}

// TrackedNodeHandler returns a handler rooted at the tracked node. For a
// detached node the handler reads the standalone model.
func (m *Model) TrackedNodeHandler(sel Selector) (tree.Handler, error) {
	td := m.structure.Load()
	e, ok := td.tracker.entries[sel.id()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotTracked, sel)
	}
	if e.detached {
		return e.detachedModel.NodeHandler(), nil
	}
	return &trackedHandler{root: td.resolve(e.node), data: td}, nil
}

// SelectAndTrackNodes resolves the key and starts tracking every selected
// node under a generated canonical selector. The returned selectors are the
// handles for the tracked nodes.
func (m *Model) SelectAndTrackNodes(key string, resolver KeyResolver) ([]Selector, error) {
	for {
		old := m.structure.Load()
		var selectors []Selector
		tracker := old.tracker
		for _, res := range resolver.ResolveKey(old.root, key, old) {
			if res.IsAttribute() {
				continue
			}
			sel := NewSelector(resolver.ResolveNodeKey(res.Node(), old))
			t, err := tracker.trackNode(sel, old.root, resolver, old)
			if err != nil {
				return nil, err
			}
			tracker = t
			selectors = append(selectors, sel)
		}
		if tracker == old.tracker {
			return selectors, nil
		}
		if m.structure.CompareAndSwap(old, old.withTracker(tracker)) {
			return selectors, nil
		}
	}
}

// TrackChildNodes starts tracking all children of the node the key selects.
// The key must select exactly one node.
func (m *Model) TrackChildNodes(key string, resolver KeyResolver) ([]Selector, error) {
	for {
		old := m.structure.Load()
		parent, err := singleNodeFor(old, key, resolver)
		if err != nil {
			return nil, err
		}
		var selectors []Selector
		tracker := old.tracker
		for _, child := range parent.Children() {
			sel := NewSelector(resolver.ResolveNodeKey(child, old))
			t, err := tracker.trackNode(sel, old.root, resolver, old)
			if err != nil {
				return nil, err
			}
			tracker = t
			selectors = append(selectors, sel)
		}
		if tracker == old.tracker {
			return selectors, nil
		}
		if m.structure.CompareAndSwap(old, old.withTracker(tracker)) {
			return selectors, nil
		}
	}
}

// TrackChildNodeWithCreation tracks the named child of the node the key
// selects, creating the child if it does not exist yet. The key must select
// exactly one node, and at most one child may carry the name.
func (m *Model) TrackChildNodeWithCreation(key, childName string, resolver KeyResolver) (Selector, error) {
	for {
		old := m.structure.Load()
		parent, err := singleNodeFor(old, key, resolver)
		if err != nil {
			return Selector{}, err
		}

		nd := old
		children := tree.ChildrenByName(parent, childName)
		var child *tree.Node
		switch len(children) {
		case 0:
			child = tree.NewNode(childName)
			nd = old.addChild(parent, child)
		case 1:
			child = children[0]
		default:
			return Selector{}, fmt.Errorf("%w: %q has %d children named %q", ErrNoSingleNode, key, len(children), childName)
		}

		sel := NewSelector(resolver.ResolveNodeKey(child, nd))
		tracker, err := nd.tracker.trackNode(sel, nd.root, resolver, nd)
		if err != nil {
			return Selector{}, err
		}
		nd = nd.withTracker(tracker)
		if nd != old {
			nd = nd.withTracker(nd.tracker.update(nd.root, resolver, nd))
		}
		if m.structure.CompareAndSwap(old, nd) {
			return sel, nil
		}
	}
}

// singleNodeFor resolves the key and requires exactly one node result.
func singleNodeFor(td *TreeData, key string, resolver KeyResolver) (*tree.Node, error) {
	results := resolver.ResolveKey(td.root, key, td)
	if len(results) != 1 || results[0].IsAttribute() {
		return nil, fmt.Errorf("%w: %q (%d results)", ErrNoSingleNode, key, len(results))
	}
	return results[0].Node(), nil
}

// TrackedModel presents a tracked node as a model of its own. All operations
// are relative to the tracked node; once the node is detached from the parent
// model, the operations transparently continue on the detached copy. A
// TrackedModel created with untrackOnClose releases its observer in Close.
type TrackedModel struct {
	parent         *Model
	sel            Selector
	resolver       KeyResolver
	untrackOnClose bool
}

// NewTrackedModel creates a model view on the tracked node identified by
// sel. The selector must already be tracked; the resolver is used for all
// operations issued through the view.
func NewTrackedModel(parent *Model, sel Selector, resolver KeyResolver, untrackOnClose bool) (*TrackedModel, error) {
	if _, err := parent.TrackedNode(sel); err != nil {
		return nil, err
	}
	return &TrackedModel{parent: parent, sel: sel, resolver: resolver, untrackOnClose: untrackOnClose}, nil
}

// Selector returns the selector identifying the tracked node.
func (tm *TrackedModel) Selector() Selector { return tm.sel }

// RootNode returns the tracked node, which acts as this model's root.
func (tm *TrackedModel) RootNode() (*tree.Node, error) {
	return tm.parent.TrackedNode(tm.sel)
}

// NodeHandler returns a handler rooted at the tracked node.
func (tm *TrackedModel) NodeHandler() (tree.Handler, error) {
	return tm.parent.TrackedNodeHandler(tm.sel)
}

// IsDetached reports whether the underlying tracked node has been detached.
func (tm *TrackedModel) IsDetached() (bool, error) {
	return tm.parent.IsTrackedNodeDetached(tm.sel)
}

// AddProperty adds values below the tracked node.
func (tm *TrackedModel) AddProperty(key string, values ...any) error {
	return tm.parent.AddPropertyAt(tm.sel, key, tm.resolver, values...)
}

// AddNodes grafts subtrees below the tracked node.
func (tm *TrackedModel) AddNodes(key string, nodes ...*tree.Node) error {
	return tm.parent.AddNodesAt(tm.sel, key, tm.resolver, nodes...)
}

// SetProperty sets a property relative to the tracked node.
func (tm *TrackedModel) SetProperty(key string, value any) error {
	return tm.parent.SetPropertyAt(tm.sel, key, tm.resolver, value)
}

// ClearProperty clears property values relative to the tracked node.
func (tm *TrackedModel) ClearProperty(key string) error {
	return tm.parent.ClearPropertyAt(tm.sel, key, tm.resolver)
}

// ClearTree removes subtrees relative to the tracked node.
func (tm *TrackedModel) ClearTree(key string) ([]tree.QueryResult, error) {
	return tm.parent.ClearTreeAt(tm.sel, key, tm.resolver)
}

// Close releases the view. With untrackOnClose set, the tracked node's
// observer count is decremented; otherwise Close does nothing.
func (tm *TrackedModel) Close() error {
	if !tm.untrackOnClose {
		return nil
	}
	tm.untrackOnClose = false
	return tm.parent.UntrackNode(tm.sel)
}
