package tree

import "errors"

// ErrNotAttributeResult is returned when attribute data is requested from a
// query result that represents a node.
var ErrNotAttributeResult = errors.New("query result is not an attribute result")

// QueryResult is the outcome of resolving a key against a tree: either a
// node, or a specific attribute of a node. Exactly one variant is populated.
type QueryResult struct {
	node          *Node
	parent        *Node
	attributeName string
}

// NodeResult creates a result representing a node.
func NodeResult(node *Node) QueryResult {
	return QueryResult{node: node}
}

// AttributeResult creates a result representing the named attribute of the
// given parent node.
func AttributeResult(parent *Node, attributeName string) QueryResult {
	return QueryResult{parent: parent, attributeName: attributeName}
}

// IsAttribute reports whether this result represents an attribute.
func (r QueryResult) IsAttribute() bool {
	return r.parent != nil
}

// Node returns the result node. For attribute results it returns the node
// owning the attribute.
func (r QueryResult) Node() *Node {
	if r.IsAttribute() {
		return r.parent
	}
	return r.node
}

// AttributeName returns the attribute name of an attribute result, or the
// empty string for node results.
func (r QueryResult) AttributeName() string {
	return r.attributeName
}

// AttributeValue returns the value of the attribute this result points to.
// Calling it on a node result is a state misuse and returns
// ErrNotAttributeResult.
func (r QueryResult) AttributeValue() (any, error) {
	if !r.IsAttribute() {
		return nil, ErrNotAttributeResult
	}
	v, _ := r.parent.AttributeValue(r.attributeName)
	return v, nil
}

// Value returns the effective value of the result: the attribute value for
// attribute results, the node value otherwise.
func (r QueryResult) Value() any {
	if r.IsAttribute() {
		v, _ := r.parent.AttributeValue(r.attributeName)
		return v
	}
	return r.node.Value()
}
