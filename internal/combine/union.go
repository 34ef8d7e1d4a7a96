package combine

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/agentic-research/conftree/internal/tree"
)

// UnionCombiner combines two trees without losing data: children that exist
// in only one tree are copied, and same-named children occurring in both
// trees become siblings in the result. Only structural nodes (no value, not
// marked as list nodes, occurring exactly once on each side) are combined
// recursively.
type UnionCombiner struct {
	listNodes
}

// NewUnionCombiner creates a combiner implementing union semantics.
func NewUnionCombiner() *UnionCombiner {
	return &UnionCombiner{}
}

// Combine implements Combiner.
func (c *UnionCombiner) Combine(first, second *tree.Node) *tree.Node {
	result := tree.NewNode(first.Name())
	result = combineAttributes(result, first, second)

	// Indices of second's children that were combined into a child of
	// first and must not be copied again.
	consumed := roaring.New()
	secondChildren := second.Children()

	for _, child := range first.Children() {
		if idx := c.findCombineChild(first, second, secondChildren, child); idx >= 0 {
			result = result.AddChild(c.Combine(child, secondChildren[idx]))
			consumed.Add(uint32(idx))
		} else {
			result = result.AddChild(child)
		}
	}
	for i, child := range secondChildren {
		if !consumed.Contains(uint32(i)) {
			result = result.AddChild(child)
		}
	}
	return result
}

// findCombineChild returns the index of the child of second that should be
// combined with child, or -1 if child is copied as is. A pair is combined
// only if child carries no value, is not a list node, and its name occurs
// exactly once among the children of both parents.
func (c *UnionCombiner) findCombineChild(first, second *tree.Node, secondChildren []*tree.Node, child *tree.Node) int {
	if child.Value() != nil || c.IsListNode(child) {
		return -1
	}
	if countByName(first, child.Name()) != 1 || countByName(second, child.Name()) != 1 {
		return -1
	}
	for i, cand := range secondChildren {
		if cand.Name() == child.Name() {
			if cand.Value() != nil {
				return -1
			}
			return i
		}
	}
	return -1
}
