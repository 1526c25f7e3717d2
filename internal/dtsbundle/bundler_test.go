package dtsbundle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tspack/tspack/internal/graph"
	"github.com/tspack/tspack/internal/symtab"
	"github.com/tspack/tspack/internal/tracer"
	"github.com/tspack/tspack/internal/tsparse"
)

// buildGraph writes modules to dir (keyed by file name), builds and traces
// the module graph from entryName, and returns it ready for Bundler.Bundle.
// Mirrors pkg/pack.Pack's own wiring, minus the sibling jsbundle pass.
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

	tr := tracer.New(gr, nil, nil)
	require.NoError(t, tr.Trace(entry))

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

func TestBundle_BarrelReExport(t *testing.T) {
	gr, entry := buildGraph(t, map[string]string{
		"a.ts": `export class Foo {
  bar(): string { return "bar"; }
}`,
		"mod.ts": `export { Foo } from "./a.ts";`,
	}, "mod.ts")

	dts, hasDefault, err := New(gr).Bundle(entry)
	require.NoError(t, err)
	assert.False(t, hasDefault)
	assert.Contains(t, dts, "declare class Foo")
	assert.NotContains(t, dts, "namespace", "a barrel re-export should not need a namespace wrapper")
}

func TestBundle_NamespaceImportOfRemote(t *testing.T) {
	gr, entry := buildGraph(t, map[string]string{
		"mod.ts": `import * as R from "https://x/y.ts";
export const k: R.K = 1 as any;`,
	}, "mod.ts")

	dts, _, err := New(gr).Bundle(entry)
	require.NoError(t, err)
	assert.Contains(t, dts, `import * as `)
	assert.Contains(t, dts, `from "https://x/y.ts";`)
	assert.Contains(t, dts, ".K")
}

func TestBundle_ReExportDefaultOfRemote(t *testing.T) {
	gr, entry := buildGraph(t, map[string]string{
		"mod.ts": `export { default } from "https://x/y.ts";`,
	}, "mod.ts")

	dts, hasDefault, err := New(gr).Bundle(entry)
	require.NoError(t, err)
	assert.True(t, hasDefault, "HasDefaultExport must be true for a default re-exported via an export clause")
	assert.Contains(t, dts, `import { default as `)
	assert.Contains(t, dts, `__default`)
	assert.Contains(t, dts, "export {")
	assert.Contains(t, dts, "__default as default")
}

func TestBundle_OverloadedMethodKeepsOnlySignatures(t *testing.T) {
	gr, entry := buildGraph(t, map[string]string{
		"mod.ts": `export class C {
  foo(x: string): void;
  foo(x: number): void;
  foo(x: any) {}
}`,
	}, "mod.ts")

	dts, _, err := New(gr).Bundle(entry)
	require.NoError(t, err)
	assert.Contains(t, dts, "foo(x: string): void;")
	assert.Contains(t, dts, "foo(x: number): void;")
	assert.NotContains(t, dts, "foo(x: any)")
}

func TestBundle_ParameterProperty(t *testing.T) {
	gr, entry := buildGraph(t, map[string]string{
		"mod.ts": `export class C {
  constructor(public readonly x: number = 1) {}
}`,
	}, "mod.ts")

	dts, _, err := New(gr).Bundle(entry)
	require.NoError(t, err)
	assert.Contains(t, dts, "readonly x: number;")
	assert.Contains(t, dts, "constructor(x?: number);")
}

func TestBundle_MissingReturnTypeFallsBackToUnknown(t *testing.T) {
	gr, entry := buildGraph(t, map[string]string{
		"mod.ts": `export function f() { return 1; }`,
	}, "mod.ts")

	dts, _, err := New(gr).Bundle(entry)
	require.NoError(t, err)
	assert.Contains(t, dts, "declare function f(): unknown;")
}

func TestBundle_InternalJSDocIsRedacted(t *testing.T) {
	gr, entry := buildGraph(t, map[string]string{
		"mod.ts": `/** @internal */
export function hidden(): void {}

export function visible(): void {}`,
	}, "mod.ts")

	dts, _, err := New(gr).Bundle(entry)
	require.NoError(t, err)
	assert.NotContains(t, dts, "hidden")
	assert.Contains(t, dts, "visible")
}

func TestBundle_PrivateErasure(t *testing.T) {
	gr, entry := buildGraph(t, map[string]string{
		"mod.ts": `export class C {
  #secret: number = 1;
  private label: string = "x";
  private helper(): void {}
  public shown: number = 2;
}`,
	}, "mod.ts")

	dts, _, err := New(gr).Bundle(entry)
	require.NoError(t, err)

	// #-hash private member: dropped entirely, synthetic marker inserted.
	assert.NotContains(t, dts, "#secret")
	assert.Contains(t, dts, "#private: unknown;")

	// keyword-private property: kept, type annotation erased.
	assert.Contains(t, dts, "private label;")
	assert.NotContains(t, dts, "private label: string")

	// keyword-private method: converted to a type-erased property, not deleted.
	assert.Contains(t, dts, "private helper;")
	assert.NotContains(t, dts, "helper(): void")

	assert.Contains(t, dts, "shown: number;")
}

func TestBundle_NameUniqueness(t *testing.T) {
	gr, entry := buildGraph(t, map[string]string{
		"a.ts":   `export class Widget {}`,
		"b.ts":   `export class Widget {}`,
		"mod.ts": `import { Widget as A } from "./a.ts";
import { Widget as B } from "./b.ts";
export { A, B };`,
	}, "mod.ts")

	dts, _, err := New(gr).Bundle(entry)
	require.NoError(t, err)

	// Two distinct classes both named "Widget" must not collide onto the
	// same top-level name.
	assert.Contains(t, dts, "declare class Widget {")
	assert.Contains(t, dts, "declare class Widget2 {")
}
