package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/conftree/internal/tree"
)

// tablesTree builds the database-description fixture used throughout the
// engine tests:
//
//	tables
//	├── table [@type=system]  name=users      fields.field.name = uid, uname
//	└── table [@type=user]    name=documents  fields.field.name = docid, title
func tablesTree() *tree.Node {
	return tree.NewBuilder().
		AddChild(tree.NewBuilder().Name("tables").
			AddChild(table("users", "system", "uid", "uname")).
			AddChild(table("documents", "user", "docid", "title")).
			Create()).
		Create()
}

func table(name, typ string, fields ...string) *tree.Node {
	fb := tree.NewBuilder().Name("fields")
	for _, f := range fields {
		fb.AddChild(tree.NewBuilder().Name("field").
			AddChild(tree.NewNode("name").SetValue(f)).
			Create())
	}
	return tree.NewBuilder().Name("table").
		AddAttribute("type", typ).
		AddChild(tree.NewNode("name").SetValue(name)).
		AddChild(fb.Create()).
		Create()
}

func queryValues(t *testing.T, e *Engine, root *tree.Node, key string) []any {
	t.Helper()
	h := tree.NewHandler(root)
	var values []any
	for _, res := range e.Query(root, key, h) {
		values = append(values, res.Value())
	}
	return values
}

func TestEngine_QueryAllMatches(t *testing.T) {
	e := NewEngine(DefaultSymbols)
	root := tablesTree()

	assert.Equal(t, []any{"users", "documents"},
		queryValues(t, e, root, "tables.table.name"))
	assert.Equal(t, []any{"uid", "uname", "docid", "title"},
		queryValues(t, e, root, "tables.table.fields.field.name"))
}

func TestEngine_QueryWithIndex(t *testing.T) {
	e := NewEngine(DefaultSymbols)
	root := tablesTree()

	assert.Equal(t, []any{"documents"}, queryValues(t, e, root, "tables.table(1).name"))
	assert.Equal(t, []any{"title"}, queryValues(t, e, root, "tables.table(1).fields.field(1).name"))
}

func TestEngine_QueryIndexOutOfRange(t *testing.T) {
	e := NewEngine(DefaultSymbols)
	root := tablesTree()

	assert.Empty(t, e.Query(root, "tables.table(5).name", tree.NewHandler(root)))
	assert.Empty(t, e.Query(root, "tables.table(-1).name", tree.NewHandler(root)))
}

func TestEngine_QueryUnknownKey(t *testing.T) {
	e := NewEngine(DefaultSymbols)
	root := tablesTree()

	assert.Empty(t, e.Query(root, "tables.missing", tree.NewHandler(root)))
}

func TestEngine_QueryEmptyKeySelectsRoot(t *testing.T) {
	e := NewEngine(DefaultSymbols)
	root := tablesTree()

	results := e.Query(root, "", tree.NewHandler(root))
	require.Len(t, results, 1)
	assert.Same(t, root, results[0].Node())
}

func TestEngine_QueryAttribute(t *testing.T) {
	e := NewEngine(DefaultSymbols)
	root := tablesTree()

	results := e.Query(root, "tables.table(0)[@type]", tree.NewHandler(root))
	require.Len(t, results, 1)
	require.True(t, results[0].IsAttribute())
	assert.Equal(t, "type", results[0].AttributeName())
	assert.Equal(t, "system", results[0].Value())

	// A missing attribute yields no result rather than an error.
	assert.Empty(t, e.Query(root, "tables.table(0)[@missing]", tree.NewHandler(root)))
}

func TestEngine_QueryEscapedName(t *testing.T) {
	e := NewEngine(DefaultSymbols)
	root := tree.NewBuilder().
		AddChild(tree.NewNode("my.host").SetValue("10.0.0.1")).
		Create()

	assert.Equal(t, []any{"10.0.0.1"}, queryValues(t, e, root, "my..host"))
}

func TestEngine_NodeKeyRoundTrip(t *testing.T) {
	e := NewEngine(DefaultSymbols)
	root := tablesTree()
	h := tree.NewHandler(root)

	var walk func(node *tree.Node, parentKey string)
	walk = func(node *tree.Node, parentKey string) {
		key := e.NodeKey(node, parentKey, h)
		found := false
		for _, res := range e.Query(root, key, h) {
			if !res.IsAttribute() && res.Node() == node {
				found = true
			}
		}
		assert.True(t, found, "key %q does not select its node back", key)
		for _, c := range node.Children() {
			walk(c, key)
		}
	}
	walk(root, "")
}

func TestEngine_NodeKeyEscapesDelimiter(t *testing.T) {
	e := NewEngine(DefaultSymbols)
	child := tree.NewNode("my.host")
	root := tree.NewBuilder().AddChild(child).Create()
	h := tree.NewHandler(root)

	assert.Equal(t, "my..host", e.NodeKey(child, "", h))
}

func TestEngine_CanonicalKeyDisambiguatesSiblings(t *testing.T) {
	e := NewEngine(DefaultSymbols)
	root := tablesTree()
	h := tree.NewHandler(root)
	tables := root.ChildAt(0)

	first := e.CanonicalKey(tables.ChildAt(0), "tables", h)
	second := e.CanonicalKey(tables.ChildAt(1), "tables", h)

	assert.Equal(t, "tables.table(0)", first)
	assert.Equal(t, "tables.table(1)", second)

	results := e.Query(root, second, h)
	require.Len(t, results, 1)
	assert.Same(t, tables.ChildAt(1), results[0].Node())
}

func TestEngine_AttributeKey(t *testing.T) {
	e := NewEngine(DefaultSymbols)
	assert.Equal(t, "tables.table(0)[@type]", e.AttributeKey("tables.table(0)", "type"))
}

func TestEngine_PrepareAddNewLeaf(t *testing.T) {
	e := NewEngine(DefaultSymbols)
	root := tablesTree()

	add, err := e.PrepareAdd(root, "tables.table(0).primarykey", tree.NewHandler(root))
	require.NoError(t, err)
	assert.Equal(t, "primarykey", add.NewNodeName)
	assert.Empty(t, add.PathNodes)
	assert.False(t, add.Attribute)
	assert.Equal(t, "users", add.Parent.ChildAt(0).Value())
}

func TestEngine_PrepareAddCreatesPath(t *testing.T) {
	e := NewEngine(DefaultSymbols)
	root := tree.NewNode("")

	add, err := e.PrepareAdd(root, "a.complete.new.path", tree.NewHandler(root))
	require.NoError(t, err)
	assert.Same(t, root, add.Parent)
	assert.Equal(t, []string{"a", "complete", "new"}, add.PathNodes)
	assert.Equal(t, "path", add.NewNodeName)
	assert.False(t, add.Attribute)
}

func TestEngine_PrepareAddOutOfRangeIndexStopsDescent(t *testing.T) {
	e := NewEngine(DefaultSymbols)
	root := tablesTree()

	add, err := e.PrepareAdd(root, "tables.table(5).name", tree.NewHandler(root))
	require.NoError(t, err)
	assert.Equal(t, "tables", add.Parent.Name())
	assert.Equal(t, []string{"table"}, add.PathNodes)
	assert.Equal(t, "name", add.NewNodeName)
}

func TestEngine_PrepareAddAttribute(t *testing.T) {
	e := NewEngine(DefaultSymbols)
	root := tablesTree()

	add, err := e.PrepareAdd(root, "tables.table(0)[@readonly]", tree.NewHandler(root))
	require.NoError(t, err)
	assert.True(t, add.Attribute)
	assert.Equal(t, "readonly", add.NewNodeName)
	assert.Empty(t, add.PathNodes)
}

func TestEngine_PrepareAddAttributeWithNewPath(t *testing.T) {
	e := NewEngine(DefaultSymbols)
	root := tree.NewNode("")

	add, err := e.PrepareAdd(root, "x.y[@attr]", tree.NewHandler(root))
	require.NoError(t, err)
	assert.True(t, add.Attribute)
	assert.Equal(t, []string{"x", "y"}, add.PathNodes)
	assert.Equal(t, "attr", add.NewNodeName)
}

func TestEngine_PrepareAddErrors(t *testing.T) {
	e := NewEngine(DefaultSymbols)
	root := tree.NewNode("")
	h := tree.NewHandler(root)

	_, err := e.PrepareAdd(root, "", h)
	assert.ErrorIs(t, err, ErrEmptyAddKey)

	_, err = e.PrepareAdd(root, "a[@attr].b", h)
	assert.ErrorIs(t, err, ErrAttributeInPath)
}

func TestEngine_QueryAttributeEmulation(t *testing.T) {
	sym := Symbols{
		PropertyDelimiter: ".",
		EscapedDelimiter:  "..",
		IndexStart:        "(",
		IndexEnd:          ")",
		AttributeStart:    ".",
	}
	e := NewEngine(sym)

	server := tree.NewBuilder().Name("server").
		AddAttribute("port", 8080).
		AddChild(tree.NewNode("host").SetValue("localhost")).
		Create()
	root := tree.NewBuilder().AddChild(server).Create()
	h := tree.NewHandler(root)

	// The final segment matches the child node.
	results := e.Query(root, "server.host", h)
	require.Len(t, results, 1)
	assert.Equal(t, "localhost", results[0].Value())

	// The final segment matches the attribute.
	results = e.Query(root, "server.port", h)
	require.Len(t, results, 1)
	require.True(t, results[0].IsAttribute())
	assert.Equal(t, 8080, results[0].Value())
}

func TestEngine_CaseInsensitiveMatcher(t *testing.T) {
	e := NewEngineWithMatcher(DefaultSymbols, tree.NameMatcher{IgnoreCase: true})
	root := tablesTree()

	assert.Equal(t, []any{"users", "documents"},
		queryValues(t, e, root, "TABLES.Table.NAME"))
}
