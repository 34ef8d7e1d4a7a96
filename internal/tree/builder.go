package tree

// Builder assembles a Node from parts. The builder copies its state into the
// created node, so a builder can be reused or manipulated after Create
// without affecting nodes it already produced.
type Builder struct {
	name       string
	value      any
	children   []*Node
	attributes map[string]any
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Name sets the node name.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Value sets the node value.
func (b *Builder) Value(value any) *Builder {
	b.value = value
	return b
}

// AddChild appends a child node. Nil children are ignored.
func (b *Builder) AddChild(child *Node) *Builder {
	if child != nil {
		b.children = append(b.children, child)
	}
	return b
}

// AddChildren appends all given child nodes, skipping nils.
func (b *Builder) AddChildren(children []*Node) *Builder {
	for _, c := range children {
		b.AddChild(c)
	}
	return b
}

// AddAttribute sets an attribute.
func (b *Builder) AddAttribute(name string, value any) *Builder {
	if b.attributes == nil {
		b.attributes = make(map[string]any)
	}
	b.attributes[name] = value
	return b
}

// AddAttributes sets all given attributes.
func (b *Builder) AddAttributes(attributes map[string]any) *Builder {
	for k, v := range attributes {
		b.AddAttribute(k, v)
	}
	return b
}

// Create builds the node. The builder state is copied, so later builder
// mutations do not leak into the created node.
func (b *Builder) Create() *Node {
	n := &Node{name: b.name, value: b.value}
	if len(b.children) > 0 {
		n.children = make([]*Node, len(b.children))
		copy(n.children, b.children)
	}
	if len(b.attributes) > 0 {
		n.attributes = make(map[string]any, len(b.attributes))
		for k, v := range b.attributes {
			n.attributes[k] = v
		}
	}
	return n
}
