package model

import (
	"github.com/agentic-research/conftree/internal/expr"
	"github.com/agentic-research/conftree/internal/tree"
)

// ValueUpdate pairs an existing query result with the value it should take.
type ValueUpdate struct {
	Result tree.QueryResult
	Value  any
}

// UpdateData is the delta computed for a set-property operation: existing
// results that change value, surplus values that become new siblings, and
// surplus results that are removed.
type UpdateData struct {
	Changed   []ValueUpdate
	NewValues []any
	Removed   []tree.QueryResult
}

// KeyResolver is the seam between the model and an expression engine. An
// alternative engine (for example XPath-based addressing) plugs in here
// without changing the model.
type KeyResolver interface {
	// ResolveKey returns all results the key selects below root.
	ResolveKey(root *tree.Node, key string, handler tree.Handler) []tree.QueryResult

	// ResolveAddKey computes the insertion plan for a new property.
	ResolveAddKey(root *tree.Node, key string, handler tree.Handler) (expr.AddData, error)

	// ResolveUpdateKey pairs the key's current results with the new
	// value(s) and partitions the surplus on either side.
	ResolveUpdateKey(root *tree.Node, key string, newValue any, handler tree.Handler) UpdateData

	// ResolveNodeKey generates a unique (canonical) key for the node.
	ResolveNodeKey(node *tree.Node, handler tree.Handler) string
}

// DefaultResolver implements KeyResolver on top of the expression engine.
type DefaultResolver struct {
	engine *expr.Engine
}

// NewResolver creates a resolver backed by the given engine.
func NewResolver(engine *expr.Engine) *DefaultResolver {
	return &DefaultResolver{engine: engine}
}

// Engine returns the underlying expression engine.
func (r *DefaultResolver) Engine() *expr.Engine {
	return r.engine
}

// ResolveKey implements KeyResolver.
func (r *DefaultResolver) ResolveKey(root *tree.Node, key string, handler tree.Handler) []tree.QueryResult {
	return r.engine.Query(root, key, handler)
}

// ResolveAddKey implements KeyResolver.
func (r *DefaultResolver) ResolveAddKey(root *tree.Node, key string, handler tree.Handler) (expr.AddData, error) {
	return r.engine.PrepareAdd(root, key, handler)
}

// ResolveUpdateKey implements KeyResolver. Existing results and values are
// zipped in document order; values beyond the result count become new
// values, results beyond the value count are removed.
func (r *DefaultResolver) ResolveUpdateKey(root *tree.Node, key string, newValue any, handler tree.Handler) UpdateData {
	results := r.ResolveKey(root, key, handler)
	values := valueList(newValue)

	var data UpdateData
	n := len(results)
	if len(values) < n {
		n = len(values)
	}
	for i := 0; i < n; i++ {
		data.Changed = append(data.Changed, ValueUpdate{Result: results[i], Value: values[i]})
	}
	data.NewValues = append(data.NewValues, values[n:]...)
	data.Removed = append(data.Removed, results[n:]...)
	return data
}

// ResolveNodeKey implements KeyResolver. The generated key carries explicit
// sibling indices on every segment, so it stays unambiguous when same-named
// siblings exist.
func (r *DefaultResolver) ResolveNodeKey(node *tree.Node, handler tree.Handler) string {
	if node == handler.RootNode() {
		return ""
	}
	parent, err := handler.Parent(node)
	if err != nil || parent == nil {
		return r.engine.CanonicalKey(node, "", handler)
	}
	return r.engine.CanonicalKey(node, r.ResolveNodeKey(parent, handler), handler)
}

// valueList normalizes a set-property value into its element values.
func valueList(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	default:
		return []any{value}
	}
}
