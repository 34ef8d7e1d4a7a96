package loader

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/agentic-research/conftree/internal/tree"
)

// ParseTOML decodes a TOML document into a tree.
func ParseTOML(data []byte) (*tree.Node, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse toml: %w", err)
	}
	return FromAny(doc), nil
}

// DumpTOML encodes the tree as TOML. Trees with attributes do not round-trip
// cleanly, since TOML has no attribute notion beyond the "@" key convention.
func DumpTOML(node *tree.Node) ([]byte, error) {
	out, err := toml.Marshal(ToAny(node))
	if err != nil {
		return nil, fmt.Errorf("encode toml: %w", err)
	}
	return out, nil
}
