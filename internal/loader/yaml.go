package loader

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/agentic-research/conftree/internal/tree"
)

// ParseYAML decodes a YAML document into a tree.
func ParseYAML(data []byte) (*tree.Node, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return FromAny(doc), nil
}

// DumpYAML encodes the tree as YAML.
func DumpYAML(node *tree.Node) ([]byte, error) {
	out, err := yaml.Marshal(ToAny(node))
	if err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return out, nil
}
