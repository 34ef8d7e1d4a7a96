package combine

import (
	"reflect"

	"github.com/RoaringBitmap/roaring"

	"github.com/agentic-research/conftree/internal/tree"
)

// MergeCombiner combines two trees with override semantics: where both trees
// define the same data, the first tree wins. Children are paired by name and
// compatible attributes; children of the second tree without a partner are
// carried over, so the second tree acts as a fallback layer.
type MergeCombiner struct {
	listNodes
}

// NewMergeCombiner creates a combiner implementing override semantics.
func NewMergeCombiner() *MergeCombiner {
	return &MergeCombiner{}
}

// Combine implements Combiner.
func (c *MergeCombiner) Combine(first, second *tree.Node) *tree.Node {
	result := tree.NewNode(first.Name())
	result = combineAttributes(result, first, second)

	value := first.Value()
	if value == nil {
		value = second.Value()
	}
	result = result.SetValue(value)

	consumed := roaring.New()
	secondChildren := second.Children()

	for _, child := range first.Children() {
		if idx := c.findPartner(child, secondChildren, consumed); idx >= 0 {
			consumed.Add(uint32(idx))
			result = result.AddChild(c.Combine(child, secondChildren[idx]))
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

// findPartner returns the index of the first not yet consumed child of the
// second tree that pairs with child: same name and no conflicting attribute
// values. List nodes never pair.
func (c *MergeCombiner) findPartner(child *tree.Node, secondChildren []*tree.Node, consumed *roaring.Bitmap) int {
	if c.IsListNode(child) {
		return -1
	}
	for i, cand := range secondChildren {
		if consumed.Contains(uint32(i)) || cand.Name() != child.Name() {
			continue
		}
		if attributesCompatible(child, cand) {
			return i
		}
	}
	return -1
}

// attributesCompatible reports whether no attribute present on both nodes
// carries different values. DeepEqual covers slice-valued attributes.
func attributesCompatible(a, b *tree.Node) bool {
	for k, va := range a.Attributes() {
		if vb, ok := b.AttributeValue(k); ok && !reflect.DeepEqual(va, vb) {
			return false
		}
	}
	return true
}
