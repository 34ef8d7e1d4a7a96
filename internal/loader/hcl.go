package loader

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/agentic-research/conftree/internal/tree"
)

// ParseHCL decodes an HCL document into a tree. Blocks become child nodes
// named after the block type, with block labels stored as "label",
// "label2", ... attributes. Expressions are evaluated without variables or
// functions, so only literal values are supported.
func ParseHCL(data []byte, filename string) (*tree.Node, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse hcl: %w", diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("parse hcl: unexpected body type %T", file.Body)
	}
	return hclBody(tree.NewNode(""), body)
}

func hclBody(node *tree.Node, body *hclsyntax.Body) (*tree.Node, error) {
	// body.Attributes is a map; restore source order for deterministic trees.
	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, a := range body.Attributes {
		attrs = append(attrs, a)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})

	for _, a := range attrs {
		val, diags := a.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("evaluate %s: %w", a.Name, diags)
		}
		goVal, err := ctyToGo(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", a.Name, err)
		}
		for _, el := range elements(goVal) {
			node = node.AddChild(fillNode(tree.NewNode(a.Name), el))
		}
	}

	for _, block := range body.Blocks {
		child := tree.NewNode(block.Type)
		for i, label := range block.Labels {
			name := "label"
			if i > 0 {
				name = fmt.Sprintf("label%d", i+1)
			}
			child = child.SetAttribute(name, label)
		}
		child, err := hclBody(child, block.Body)
		if err != nil {
			return nil, err
		}
		node = node.AddChild(child)
	}
	return node, nil
}

// ctyToGo converts an evaluated HCL value into plain Go data.
func ctyToGo(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	t := v.Type()
	switch {
	case t == cty.String:
		return v.AsString(), nil
	case t == cty.Bool:
		return v.True(), nil
	case t == cty.Number:
		bf := v.AsBigFloat()
		if i, acc := bf.Int64(); acc == big.Exact {
			return i, nil
		}
		f, _ := bf.Float64()
		return f, nil
	case t.IsTupleType() || t.IsListType() || t.IsSetType():
		var out []any
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			g, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, g)
		}
		return out, nil
	case t.IsObjectType() || t.IsMapType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			kv, ev := it.Element()
			g, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out[kv.AsString()] = g
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported hcl value type %s", t.FriendlyName())
}
