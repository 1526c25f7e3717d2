package jsbundle

import (
	"testing"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tspack/tspack/internal/tsparse"
)

// parseFirstNode parses source as TypeScript and returns the first
// top-level named node, for exercising stripTypeSyntax/renderTopLevelDecl/
// renderEnumAsObject directly without going through the full graph/tracer
// pipeline those functions are normally reached through.
func parseFirstNode(t *testing.T, source []byte) *ts.Node {
	t.Helper()
	m := tsparse.NewManager(nil)
	t.Cleanup(m.Close)
	tree, err := m.Parse(source, tsparse.LanguageTypeScript, false)
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	root := tree.RootNode()
	require.Greater(t, int(root.NamedChildCount()), 0)
	return root.NamedChild(0)
}

func TestStripTypeSyntax_FunctionSignature(t *testing.T) {
	src := []byte(`function add(a: number, b: number): number { return a + b; }`)
	node := parseFirstNode(t, src)
	got := stripTypeSyntax(src, node)
	assert.Equal(t, `function add(a, b) { return a + b; }`, got)
}

func TestStripTypeSyntax_AsAndNonNullAndGenerics(t *testing.T) {
	src := []byte(`const x = (y as unknown as Foo)!.bar<string>();`)
	node := parseFirstNode(t, src)
	got := stripTypeSyntax(src, node)
	assert.Equal(t, `const x = (y).bar();`, got)
}

func TestStripTypeSyntax_ClassModifiers(t *testing.T) {
	src := []byte(`class C {
  private readonly label: string = "x";
  public shown: number = 2;
}`)
	node := parseFirstNode(t, src)
	got := stripTypeSyntax(src, node)
	assert.Contains(t, got, "label = \"x\";")
	assert.NotContains(t, got, "private")
	assert.NotContains(t, got, "readonly")
	assert.Contains(t, got, "shown = 2;")
	assert.NotContains(t, got, "public")
}

func TestRenderTopLevelDecl_InterfaceAndTypeAliasVanish(t *testing.T) {
	src := []byte(`interface Foo { a: string; }`)
	node := parseFirstNode(t, src)
	assert.Equal(t, "", renderTopLevelDecl(src, node))

	src2 := []byte(`type Bar = string | number;`)
	node2 := parseFirstNode(t, src2)
	assert.Equal(t, "", renderTopLevelDecl(src2, node2))
}

func TestRenderEnumAsObject_NumericAutoIncrement(t *testing.T) {
	src := []byte(`enum Color { Red, Green, Blue }`)
	node := parseFirstNode(t, src)
	got := renderEnumAsObject(src, node)
	assert.Contains(t, got, `Red: 0`)
	assert.Contains(t, got, `Green: 1`)
	assert.Contains(t, got, `Blue: 2`)
	assert.Contains(t, got, `0: "Red"`)
	assert.Contains(t, got, `2: "Blue"`)
}

func TestRenderEnumAsObject_StringMembersHaveNoReverseMapping(t *testing.T) {
	src := []byte(`enum Dir { Up = "UP", Down = "DOWN" }`)
	node := parseFirstNode(t, src)
	got := renderEnumAsObject(src, node)
	assert.Contains(t, got, `Up: "UP"`)
	assert.Contains(t, got, `Down: "DOWN"`)
	assert.NotContains(t, got, `"UP": "Up"`)
}
