package model

import (
	"errors"
	"fmt"

	"github.com/agentic-research/conftree/internal/tree"
)

// ErrNotTracked is returned for operations on a selector that is not
// currently tracking a node.
var ErrNotTracked = errors.New("no node is tracked for this selector")

// ErrSelectorResolution is returned when a selector does not resolve to
// exactly one node.
var ErrSelectorResolution = errors.New("selector does not select a single node")

// ErrNilReplacement is returned when a tracked node would be replaced by nil.
var ErrNilReplacement = errors.New("replacement node must not be nil")

// trackedNodeEntry is the bookkeeping for one tracked node. Entries are
// treated as immutable; updates go through copy-on-write in the tracker.
type trackedNodeEntry struct {
	selector Selector

	// node is the current instance of the tracked node while attached.
	node *tree.Node

	// observerCount is the number of active track operations for the
	// selector. The entry is dropped when the count reaches zero.
	observerCount int

	// detached is set once the tracked node leaves the model's tree. The
	// transition is one way; from then on the entry's state lives in
	// detachedModel.
	detached      bool
	detachedModel *Model
}

func (e *trackedNodeEntry) currentNode() *tree.Node {
	if e.detached {
		return e.detachedModel.RootNode()
	}
	return e.node
}

// NodeTracker manages all tracked nodes of a model. Trackers are immutable;
// every mutation returns a new tracker, so a tracker can be stored inside an
// immutable model snapshot.
type NodeTracker struct {
	entries map[string]*trackedNodeEntry
}

// NewNodeTracker creates a tracker without any tracked nodes.
func NewNodeTracker() *NodeTracker {
	return &NodeTracker{entries: map[string]*trackedNodeEntry{}}
}

func (t *NodeTracker) withEntries(entries map[string]*trackedNodeEntry) *NodeTracker {
	return &NodeTracker{entries: entries}
}

func (t *NodeTracker) copyEntries() map[string]*trackedNodeEntry {
	cp := make(map[string]*trackedNodeEntry, len(t.entries)+1)
	for k, v := range t.entries {
		cp[k] = v
	}
	return cp
}

// trackNode starts tracking the node the selector points to, or increments
// the observer count if the selector is already tracked.
func (t *NodeTracker) trackNode(sel Selector, root *tree.Node, resolver KeyResolver, handler tree.Handler) (*NodeTracker, error) {
	entries := t.copyEntries()
	if e, ok := entries[sel.id()]; ok {
		cp := *e
		cp.observerCount++
		entries[sel.id()] = &cp
		return t.withEntries(entries), nil
	}
	node := sel.Select(root, resolver, handler)
	if node == nil {
		return nil, fmt.Errorf("%w: %s", ErrSelectorResolution, sel)
	}
	entries[sel.id()] = &trackedNodeEntry{selector: sel, node: node, observerCount: 1}
	return t.withEntries(entries), nil
}

// untrackNode decrements the observer count for the selector and drops the
// entry when no observers remain.
func (t *NodeTracker) untrackNode(sel Selector) (*NodeTracker, error) {
	e, ok := t.entries[sel.id()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotTracked, sel)
	}
	entries := t.copyEntries()
	if e.observerCount <= 1 {
		delete(entries, sel.id())
	} else {
		cp := *e
		cp.observerCount--
		entries[sel.id()] = &cp
	}
	return t.withEntries(entries), nil
}

// trackedNode returns the current node instance for the selector.
func (t *NodeTracker) trackedNode(sel Selector) (*tree.Node, error) {
	e, ok := t.entries[sel.id()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotTracked, sel)
	}
	return e.currentNode(), nil
}

// isDetached reports whether the tracked node has been detached from the
// model's tree.
func (t *NodeTracker) isDetached(sel Selector) (bool, error) {
	e, ok := t.entries[sel.id()]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotTracked, sel)
	}
	return e.detached, nil
}

// detachedModelFor returns the standalone model backing a detached tracked
// node, or nil while the node is still attached.
func (t *NodeTracker) detachedModelFor(sel Selector) (*Model, error) {
	e, ok := t.entries[sel.id()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotTracked, sel)
	}
	return e.detachedModel, nil
}

// replace swaps the tracked node for a new node. The tracked node becomes
// detached because the replacement never belongs to the model's tree.
func (t *NodeTracker) replace(sel Selector, node *tree.Node) (*NodeTracker, error) {
	if node == nil {
		return nil, ErrNilReplacement
	}
	e, ok := t.entries[sel.id()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotTracked, sel)
	}
	entries := t.copyEntries()
	cp := *e
	cp.detached = true
	cp.detachedModel = NewModel(node)
	cp.node = nil
	entries[sel.id()] = &cp
	return t.withEntries(entries), nil
}

// update re-resolves all attached selectors against a new root. Selectors
// that no longer select a single node are detached, keeping their last known
// node state in a standalone model. Detached entries pass through unchanged.
func (t *NodeTracker) update(root *tree.Node, resolver KeyResolver, handler tree.Handler) *NodeTracker {
	if len(t.entries) == 0 {
		return t
	}
	entries := make(map[string]*trackedNodeEntry, len(t.entries))
	for id, e := range t.entries {
		if e.detached {
			entries[id] = e
			continue
		}
		cp := *e
		if node := e.selector.Select(root, resolver, handler); node != nil {
			cp.node = node
		} else {
			cp.detached = true
			cp.detachedModel = NewModel(e.node)
			cp.node = nil
		}
		entries[id] = &cp
	}
	return t.withEntries(entries)
}

// detachAll detaches every tracked node, freezing each at its current state.
// Used when the model's root is replaced wholesale.
func (t *NodeTracker) detachAll() *NodeTracker {
	if len(t.entries) == 0 {
		return t
	}
	entries := make(map[string]*trackedNodeEntry, len(t.entries))
	for id, e := range t.entries {
		if e.detached {
			entries[id] = e
			continue
		}
		cp := *e
		cp.detached = true
		cp.detachedModel = NewModel(e.node)
		cp.node = nil
		entries[id] = &cp
	}
	return t.withEntries(entries)
}
