package loader

import (
	"fmt"

	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/conftree/internal/tree"
)

// ParseJSON decodes a JSON document into a tree.
func ParseJSON(data []byte) (*tree.Node, error) {
	doc, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return FromAny(doc), nil
}

// DumpJSON encodes the tree as indented JSON.
func DumpJSON(node *tree.Node) []byte {
	return []byte(oj.JSON(ToAny(node), 2))
}
