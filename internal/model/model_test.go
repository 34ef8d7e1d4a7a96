package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/agentic-research/conftree/internal/expr"
	"github.com/agentic-research/conftree/internal/tree"
)

func testResolver() *DefaultResolver {
	return NewResolver(expr.NewEngine(expr.DefaultSymbols))
}

// databaseTree is the shared fixture: two tables with names and fields.
func databaseTree() *tree.Node {
	table := func(name string, fields ...string) *tree.Node {
		fb := tree.NewBuilder().Name("fields")
		for _, f := range fields {
			fb.AddChild(tree.NewBuilder().Name("field").
				AddChild(tree.NewNode("name").SetValue(f)).
				Create())
		}
		return tree.NewBuilder().Name("table").
			AddChild(tree.NewNode("name").SetValue(name)).
			AddChild(fb.Create()).
			Create()
	}
	return tree.NewBuilder().
		AddChild(tree.NewBuilder().Name("tables").
			AddChild(table("users", "uid", "uname")).
			AddChild(table("documents", "docid", "title")).
			Create()).
		Create()
}

func values(t *testing.T, m *Model, key string) []any {
	t.Helper()
	r := testResolver()
	h := m.NodeHandler()
	var out []any
	for _, res := range r.ResolveKey(h.RootNode(), key, h) {
		out = append(out, res.Value())
	}
	return out
}

func TestNewModel_NilRootGivesEmptyTree(t *testing.T) {
	m := NewModel(nil)
	require.NotNil(t, m.RootNode())
	assert.False(t, m.RootNode().IsDefined())
}

func TestModel_AddPropertyCreatesPath(t *testing.T) {
	m := NewModel(nil)
	r := testResolver()

	require.NoError(t, m.AddProperty("database.connection.timeout", r, 30))

	assert.Equal(t, []any{30}, values(t, m, "database.connection.timeout"))
}

func TestModel_AddPropertyMultipleValues(t *testing.T) {
	m := NewModel(nil)
	r := testResolver()

	require.NoError(t, m.AddProperty("servers.host", r, "alpha", "beta", "gamma"))

	assert.Equal(t, []any{"alpha", "beta", "gamma"}, values(t, m, "servers.host"))
	assert.Equal(t, []any{"beta"}, values(t, m, "servers.host(1)"))
}

func TestModel_AddPropertyReusesExistingPath(t *testing.T) {
	m := NewModel(databaseTree())
	r := testResolver()

	require.NoError(t, m.AddProperty("tables.table(0).primarykey", r, "uid"))

	assert.Equal(t, []any{"uid"}, values(t, m, "tables.table(0).primarykey"))
	// Still only two tables; nothing was duplicated.
	h := m.NodeHandler()
	assert.Equal(t, 2, h.ChildCount(h.ChildrenByName(h.RootNode(), "tables")[0], "table"))
}

func TestModel_AddPropertyAttribute(t *testing.T) {
	m := NewModel(databaseTree())
	r := testResolver()

	require.NoError(t, m.AddProperty("tables.table(0)[@type]", r, "system"))

	assert.Equal(t, []any{"system"}, values(t, m, "tables.table(0)[@type]"))
}

func TestModel_AddNodes(t *testing.T) {
	m := NewModel(databaseTree())
	r := testResolver()

	field := tree.NewBuilder().Name("field").
		AddChild(tree.NewNode("name").SetValue("email")).
		Create()
	require.NoError(t, m.AddNodes("tables.table(0).fields", r, field))

	assert.Equal(t, []any{"uid", "uname", "email"},
		values(t, m, "tables.table(0).fields.field.name"))
}

func TestModel_AddNodesRejectsAttributeKey(t *testing.T) {
	m := NewModel(databaseTree())
	r := testResolver()

	err := m.AddNodes("tables.table(0)[@type]", r, tree.NewNode("x"))
	assert.ErrorIs(t, err, ErrAttributeKey)
}

func TestModel_SetPropertyChangesExistingValue(t *testing.T) {
	m := NewModel(databaseTree())
	r := testResolver()

	require.NoError(t, m.SetProperty("tables.table(0).name", r, "people"))

	assert.Equal(t, []any{"people"}, values(t, m, "tables.table(0).name"))
	assert.Equal(t, []any{"documents"}, values(t, m, "tables.table(1).name"))
}

func TestModel_SetPropertyFansOutOverResults(t *testing.T) {
	m := NewModel(databaseTree())
	r := testResolver()

	require.NoError(t, m.SetProperty("tables.table.name", r, []any{"t1", "t2"}))

	assert.Equal(t, []any{"t1", "t2"}, values(t, m, "tables.table.name"))
}

func TestModel_SetPropertySurplusValuesBecomeSiblings(t *testing.T) {
	m := NewModel(nil)
	r := testResolver()
	require.NoError(t, m.AddProperty("colors.color", r, "red"))

	require.NoError(t, m.SetProperty("colors.color", r, []any{"green", "blue"}))

	assert.Equal(t, []any{"green", "blue"}, values(t, m, "colors.color"))
}

func TestModel_SetPropertySurplusResultsAreRemoved(t *testing.T) {
	m := NewModel(nil)
	r := testResolver()
	require.NoError(t, m.AddProperty("colors.color", r, "red", "green", "blue"))

	require.NoError(t, m.SetProperty("colors.color", r, "black"))

	assert.Equal(t, []any{"black"}, values(t, m, "colors.color"))
}

func TestModel_SetPropertyCreatesMissingKey(t *testing.T) {
	m := NewModel(nil)
	r := testResolver()

	require.NoError(t, m.SetProperty("fresh.key", r, 1))

	assert.Equal(t, []any{1}, values(t, m, "fresh.key"))
}

func TestModel_SetPropertyAttribute(t *testing.T) {
	m := NewModel(databaseTree())
	r := testResolver()

	require.NoError(t, m.AddProperty("tables.table(0)[@type]", r, "system"))
	require.NoError(t, m.SetProperty("tables.table(0)[@type]", r, "archive"))

	assert.Equal(t, []any{"archive"}, values(t, m, "tables.table(0)[@type]"))
}

func TestModel_ClearPropertyKeepsNode(t *testing.T) {
	m := NewModel(databaseTree())
	r := testResolver()

	require.NoError(t, m.ClearProperty("tables.table(0).name", r))

	h := m.NodeHandler()
	results := r.ResolveKey(h.RootNode(), "tables.table(0).name", h)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Value())
}

func TestModel_ClearPropertyUnknownKeyIsNoop(t *testing.T) {
	m := NewModel(databaseTree())
	before := m.RootNode()

	require.NoError(t, m.ClearProperty("does.not.exist", testResolver()))

	assert.Same(t, before, m.RootNode())
}

func TestModel_ClearTreeRemovesSubtree(t *testing.T) {
	m := NewModel(databaseTree())
	r := testResolver()

	removed, err := m.ClearTree("tables.table(0)", r)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "table", removed[0].Node().Name())

	assert.Equal(t, []any{"documents"}, values(t, m, "tables.table.name"))
}

func TestModel_ClearTreePrunesEmptyAncestors(t *testing.T) {
	m := NewModel(nil)
	r := testResolver()
	require.NoError(t, m.AddProperty("a.b.c", r, 1))

	_, err := m.ClearTree("a.b.c", r)
	require.NoError(t, err)

	// Removing c leaves b and a without any data, so both are pruned.
	h := m.NodeHandler()
	assert.Equal(t, 0, h.ChildCount(h.RootNode(), ""))
	assert.False(t, m.RootNode().IsDefined())
}

func TestModel_ClearTreeKeepsAncestorsWithData(t *testing.T) {
	m := NewModel(nil)
	r := testResolver()
	require.NoError(t, m.AddProperty("a.b.c", r, 1))
	require.NoError(t, m.AddProperty("a.other", r, 2))

	_, err := m.ClearTree("a.b.c", r)
	require.NoError(t, err)

	assert.Equal(t, []any{2}, values(t, m, "a.other"))
	assert.Empty(t, values(t, m, "a.b"))
}

func TestModel_ClearTreeOnRootLeavesUndefinedRoot(t *testing.T) {
	m := NewModel(databaseTree())
	r := testResolver()

	_, err := m.ClearTree("", r)
	require.NoError(t, err)

	require.NotNil(t, m.RootNode())
	assert.False(t, m.RootNode().IsDefined())
}

func TestModel_Clear(t *testing.T) {
	m := NewModel(databaseTree())

	m.Clear()

	assert.False(t, m.RootNode().IsDefined())
}

func TestModel_SetRootNode(t *testing.T) {
	m := NewModel(databaseTree())
	newRoot := tree.NewBuilder().AddChild(tree.NewNode("fresh").SetValue(1)).Create()

	m.SetRootNode(newRoot)

	assert.Same(t, newRoot, m.RootNode())
	assert.Equal(t, []any{1}, values(t, m, "fresh"))
}

func TestModel_StructuralSharing(t *testing.T) {
	m := NewModel(databaseTree())
	r := testResolver()
	h := m.NodeHandler()
	tables := h.ChildrenByName(h.RootNode(), "tables")[0]
	untouched := tables.ChildAt(1)

	require.NoError(t, m.SetProperty("tables.table(0).name", r, "people"))

	// The edited spine is new, the untouched sibling subtree is shared.
	h2 := m.NodeHandler()
	tables2 := h2.ChildrenByName(h2.RootNode(), "tables")[0]
	assert.NotSame(t, tables, tables2)
	assert.Same(t, untouched, tables2.ChildAt(1))
}

func TestModel_ReadsSeeConsistentSnapshots(t *testing.T) {
	m := NewModel(databaseTree())
	r := testResolver()
	h := m.NodeHandler()

	require.NoError(t, m.SetProperty("tables.table(0).name", r, "people"))

	// The handler obtained before the update still reads the old value.
	results := r.ResolveKey(h.RootNode(), "tables.table(0).name", h)
	require.Len(t, results, 1)
	assert.Equal(t, "users", results[0].Value())
}

func TestModel_ConcurrentAddsAllSurvive(t *testing.T) {
	m := NewModel(nil)
	r := testResolver()

	var g errgroup.Group
	const writers = 24
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			return m.AddProperty(fmt.Sprintf("workers.w%d", i), r, i)
		})
	}
	require.NoError(t, g.Wait())

	for i := 0; i < writers; i++ {
		assert.Equal(t, []any{i}, values(t, m, fmt.Sprintf("workers.w%d", i)))
	}
	// The shared path node was created exactly once.
	h := m.NodeHandler()
	assert.Equal(t, 1, h.ChildCount(h.RootNode(), "workers"))
}

func TestModel_ConcurrentSetAndClear(t *testing.T) {
	m := NewModel(databaseTree())
	r := testResolver()

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			return m.SetProperty("tables.table(0).name", r, fmt.Sprintf("name-%d", i))
		})
		g.Go(func() error {
			return m.ClearProperty("tables.table(1).name", r)
		})
	}
	require.NoError(t, g.Wait())

	// One of the writers won; the model is in a consistent state either way.
	vals := values(t, m, "tables.table(0).name")
	require.Len(t, vals, 1)
	assert.Contains(t, fmt.Sprint(vals[0]), "name-")
}
