package tracer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tspack/tspack/internal/graph"
	"github.com/tspack/tspack/internal/symtab"
	"github.com/tspack/tspack/internal/tsparse"
)

// buildGraph writes modules to a temp dir and builds (but does not trace)
// the module graph from entryName. Mirrors pkg/pack.Pack's own wiring up to
// the point the Tracer takes over.
func buildGraph(t *testing.T, modules map[string]string, entryName string) (*graph.Graph, string) {
	t.Helper()
	dir := t.TempDir()
	var entry string
	for name, contents := range modules {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
		if name == entryName {
			entry = "file://" + path
		}
	}
	require.NotEmpty(t, entry, "entryName %q not found in modules", entryName)

	parser := tsparse.NewManager(nil)
	t.Cleanup(parser.Close)
	index := symtab.NewIndex(nil, nil)

	builder := &graph.Builder{
		FileLoader: graph.NewFileLoader(nil, nil),
		HTTPLoader: externalOnlyLoader{},
		Parser:     parser,
		Index:      index,
	}
	gr, err := builder.Build(context.Background(), entry)
	require.NoError(t, err)
	t.Cleanup(gr.Close)

	return gr, entry
}

// externalOnlyLoader stands in for graph.Builder's HTTPLoader in tests:
// every remote specifier is declined (never actually fetched), matching
// how a remote module's body is always treated opaquely past the graph
// boundary (see ExternalModule's doc comment in internal/graph/types.go).
type externalOnlyLoader struct{}

func (externalOnlyLoader) Load(_ context.Context, specifier graph.ModuleSpecifier, _ bool) (*graph.LoadResponse, error) {
	return &graph.LoadResponse{External: &graph.ExternalModule{Specifier: specifier}}, nil
}

// assertNoUnreachablePublicSymbols asserts spec.md §8's "closure soundness"
// invariant: every symbol marked public must be reachable from a root
// export either directly or via a dep/file-dep edge from another public
// symbol in the same module, or be the destination of a cross-module
// FileDep from a public symbol elsewhere. It's checked here the cheap way:
// no symbol that was never an export, a default export, or a Dep of
// another public symbol should ever end up public.
func assertNoUnreachablePublicSymbols(t *testing.T, gr *graph.Graph, specifier string, expectedPublicNames map[string]bool) {
	t.Helper()
	tab, ok := gr.Index.Get(specifier)
	require.True(t, ok)
	for _, sym := range tab.Symbols {
		if sym.IsPublic {
			assert.True(t, expectedPublicNames[sym.Name], "symbol %q marked public unexpectedly", sym.Name)
		}
	}
}

func TestTrace_DirectExportIsPublic(t *testing.T) {
	gr, entry := buildGraph(t, map[string]string{
		"mod.ts": `export function used(): number { return 1; }
function unused(): number { return 2; }`,
	}, "mod.ts")

	require.NoError(t, New(gr, nil, nil).Trace(entry))

	tab, ok := gr.Index.Get(entry)
	require.True(t, ok)
	used, ok := tab.Lookup(symtab.BindingID{Name: "used"})
	require.True(t, ok)
	assert.True(t, used.IsPublic)

	unused, ok := tab.Lookup(symtab.BindingID{Name: "unused"})
	require.True(t, ok)
	assert.False(t, unused.IsPublic)

	assertNoUnreachablePublicSymbols(t, gr, entry, map[string]bool{"used": true})
}

func TestTrace_TransitiveDepBecomesPublic(t *testing.T) {
	gr, entry := buildGraph(t, map[string]string{
		"mod.ts": `class Helper {}
export class Public {
  field: Helper = new Helper();
}`,
	}, "mod.ts")

	require.NoError(t, New(gr, nil, nil).Trace(entry))

	tab, ok := gr.Index.Get(entry)
	require.True(t, ok)
	helper, ok := tab.Lookup(symtab.BindingID{Name: "Helper"})
	require.True(t, ok)
	assert.True(t, helper.IsPublic, "a type referenced from a public symbol's field must itself be public")
}

func TestTrace_CrossModuleFileDepFollowed(t *testing.T) {
	gr, entry := buildGraph(t, map[string]string{
		"a.ts":   `export class Shared {}`,
		"mod.ts": `import { Shared } from "./a.ts";
export function use(): Shared { return new Shared(); }`,
	}, "mod.ts")

	require.NoError(t, New(gr, nil, nil).Trace(entry))

	aSpec := entry[:len(entry)-len("mod.ts")] + "a.ts"
	aTab, ok := gr.Index.Get(aSpec)
	require.True(t, ok)
	shared, ok := aTab.Lookup(symtab.BindingID{Name: "Shared"})
	require.True(t, ok)
	assert.True(t, shared.IsPublic, "Shared is only reachable via use()'s return-type dep, which the tracer must follow across the import boundary")
}

func TestTrace_DefaultExportIsPublic(t *testing.T) {
	gr, entry := buildGraph(t, map[string]string{
		"mod.ts": `export default function greet(): void {}`,
	}, "mod.ts")

	require.NoError(t, New(gr, nil, nil).Trace(entry))

	tab, ok := gr.Index.Get(entry)
	require.True(t, ok)
	require.NotNil(t, tab.DefaultExportSymbolID)
	sym, ok := tab.Symbols[*tab.DefaultExportSymbolID]
	require.True(t, ok)
	assert.True(t, sym.IsPublic)
}

func TestTrace_BareStarReExportResolvesName(t *testing.T) {
	gr, entry := buildGraph(t, map[string]string{
		"a.ts":   `export function fromA(): void {}`,
		"mod.ts": `export * from "./a.ts";`,
	}, "mod.ts")

	require.NoError(t, New(gr, nil, nil).Trace(entry))

	modTab, ok := gr.Index.Get(entry)
	require.True(t, ok)
	require.Len(t, modTab.TracedReExports, 1)
	assert.Equal(t, "fromA", modTab.TracedReExports[0].Name)

	aSpec := entry[:len(entry)-len("mod.ts")] + "a.ts"
	aTab, ok := gr.Index.Get(aSpec)
	require.True(t, ok)
	fromA, ok := aTab.Lookup(symtab.BindingID{Name: "fromA"})
	require.True(t, ok)
	assert.True(t, fromA.IsPublic, "a name surfaced only through a bare `export * from` chain must still be marked public")
}

func TestTrace_RemoteImportMarksRemoteTableImported(t *testing.T) {
	gr, entry := buildGraph(t, map[string]string{
		"mod.ts": `import Thing from "https://x/y.ts";
export default Thing;`,
	}, "mod.ts")

	require.NoError(t, New(gr, nil, nil).Trace(entry))

	remoteTab := gr.Index.AnalyzeRemote("https://x/y.ts")
	require.NotNil(t, remoteTab)
	assert.True(t, remoteTab.IsLocallyImportedRemote)
	assert.True(t, remoteTab.IsLocallyImportedRemoteDefault)
}

func TestTrace_IdempotentOnRepeatedCalls(t *testing.T) {
	gr, entry := buildGraph(t, map[string]string{
		"mod.ts": `export function used(): number { return 1; }`,
	}, "mod.ts")

	tr := New(gr, nil, nil)
	require.NoError(t, tr.Trace(entry))
	require.NoError(t, tr.Trace(entry))

	tab, ok := gr.Index.Get(entry)
	require.True(t, ok)
	used, ok := tab.Lookup(symtab.BindingID{Name: "used"})
	require.True(t, ok)
	assert.True(t, used.IsPublic)
}
