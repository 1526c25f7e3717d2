package pack

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tspack/tspack/internal/graph"
)

// externalOnlyLoader stands in for a remote HTTPLoader in tests: every
// specifier is declined (never actually fetched), matching how a remote
// module's body is always treated opaquely past the graph boundary (see
// ExternalModule's doc comment in internal/graph/types.go).
type externalOnlyLoader struct{}

func (externalOnlyLoader) Load(_ context.Context, specifier graph.ModuleSpecifier, _ bool) (*graph.LoadResponse, error) {
	return &graph.LoadResponse{External: &graph.ExternalModule{Specifier: specifier}}, nil
}

func writeModule(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return "file://" + path
}

func TestPack_SimpleGraph(t *testing.T) {
	dir := t.TempDir()

	writeModule(t, dir, "math.ts", `
export function add(a: number, b: number): number {
  return a + b;
}

export const PI = 3.14159;
`)

	entry := writeModule(t, dir, "index.ts", `
import { add, PI } from "./math";

export function areaOfCircle(r: number): number {
  return PI * r * r;
}

export { add };
`)

	loader := graph.NewFileLoader(nil, nil)
	defer loader.Close()

	out, err := Pack(context.Background(), Options{
		EntryPoint: entry,
		FileLoader: loader,
	})
	require.NoError(t, err)

	assert.Contains(t, out.JS, "areaOfCircle")
	assert.Contains(t, out.JS, "add")
	assert.Contains(t, out.Dts, "areaOfCircle")
	assert.Contains(t, out.Dts, "add")
	assert.False(t, out.HasDefaultExport)
}

func TestPack_DefaultExport(t *testing.T) {
	dir := t.TempDir()

	entry := writeModule(t, dir, "index.ts", `
export default function greet(name: string): string {
  return "hello " + name;
}
`)

	loader := graph.NewFileLoader(nil, nil)
	defer loader.Close()

	out, err := Pack(context.Background(), Options{
		EntryPoint: entry,
		FileLoader: loader,
	})
	require.NoError(t, err)

	assert.True(t, out.HasDefaultExport)
	assert.Contains(t, out.JS, "greet")
	assert.Contains(t, out.Dts, "greet")
}

func TestPack_TransitiveReExport(t *testing.T) {
	dir := t.TempDir()

	writeModule(t, dir, "base.ts", `
export class Widget {
  render(): string {
    return "widget";
  }
}
`)

	writeModule(t, dir, "middle.ts", `
export { Widget } from "./base";
`)

	entry := writeModule(t, dir, "index.ts", `
export { Widget } from "./middle";
`)

	loader := graph.NewFileLoader(nil, nil)
	defer loader.Close()

	out, err := Pack(context.Background(), Options{
		EntryPoint: entry,
		FileLoader: loader,
	})
	require.NoError(t, err)

	assert.Contains(t, out.Dts, "Widget")
	assert.Contains(t, out.JS, "Widget")
}

func TestPack_UnreachableSymbolIsNotEmitted(t *testing.T) {
	dir := t.TempDir()

	entry := writeModule(t, dir, "index.ts", `
export function used(): number {
  return 1;
}

function unused(): number {
  return 2;
}
`)

	loader := graph.NewFileLoader(nil, nil)
	defer loader.Close()

	out, err := Pack(context.Background(), Options{
		EntryPoint: entry,
		FileLoader: loader,
	})
	require.NoError(t, err)

	assert.Contains(t, out.Dts, "used")
	assert.NotContains(t, out.Dts, "unused")
}

// TestPack_OverloadedMethodKeepsOnlySignatures drives spec.md §8's
// overload-collapsing scenario end-to-end: the dropped implementation
// signature must never reach the declaration bundle, and the runtime
// bundle must keep exactly the one callable body.
func TestPack_OverloadedMethodKeepsOnlySignatures(t *testing.T) {
	dir := t.TempDir()

	entry := writeModule(t, dir, "index.ts", `
export class C {
  foo(x: string): void;
  foo(x: number): void;
  foo(x: any) {
    return;
  }
}
`)

	loader := graph.NewFileLoader(nil, nil)
	defer loader.Close()

	out, err := Pack(context.Background(), Options{
		EntryPoint: entry,
		FileLoader: loader,
	})
	require.NoError(t, err)

	assert.Contains(t, out.Dts, "foo(x: string): void;")
	assert.Contains(t, out.Dts, "foo(x: number): void;")
	assert.NotContains(t, out.Dts, "foo(x: any)")
}

// TestPack_ParameterPropertyConvertedToOptionalAndSynthesizedField drives
// spec.md §8's parameter-property scenario: a constructor parameter
// property must surface as a synthesized class field in the declaration
// bundle and an optional bare parameter in the constructor signature.
func TestPack_ParameterPropertyConvertedToOptionalAndSynthesizedField(t *testing.T) {
	dir := t.TempDir()

	entry := writeModule(t, dir, "index.ts", `
export class C {
  constructor(public readonly x: number = 1) {}
}
`)

	loader := graph.NewFileLoader(nil, nil)
	defer loader.Close()

	out, err := Pack(context.Background(), Options{
		EntryPoint: entry,
		FileLoader: loader,
	})
	require.NoError(t, err)

	assert.Contains(t, out.Dts, "readonly x: number;")
	assert.Contains(t, out.Dts, "constructor(x?: number);")
}

// TestPack_InternalExportIsRedactedFromDeclarationSurface drives spec.md
// §8's "internal redaction" invariant through the full pipeline: an
// `@internal`-annotated export is bound (so sibling code in the module may
// still reference it) but excluded from both the declaration and runtime
// export surfaces.
func TestPack_InternalExportIsRedactedFromDeclarationSurface(t *testing.T) {
	dir := t.TempDir()

	entry := writeModule(t, dir, "index.ts", `
/** @internal */
export function hidden(): void {}

export function visible(): void {}
`)

	loader := graph.NewFileLoader(nil, nil)
	defer loader.Close()

	out, err := Pack(context.Background(), Options{
		EntryPoint: entry,
		FileLoader: loader,
	})
	require.NoError(t, err)

	assert.NotContains(t, out.Dts, "hidden")
	assert.Contains(t, out.Dts, "visible")
}

// TestPack_PrivateErasureBothStyles drives spec.md §8's two private-member
// spellings through the full pipeline: `#`-hash private is dropped outright
// (replaced by a synthetic marker), `private`-keyword private is kept but
// type-erased.
func TestPack_PrivateErasureBothStyles(t *testing.T) {
	dir := t.TempDir()

	entry := writeModule(t, dir, "index.ts", `
export class C {
  #secret: number = 1;
  private label: string = "x";
  public shown: number = 2;
}
`)

	loader := graph.NewFileLoader(nil, nil)
	defer loader.Close()

	out, err := Pack(context.Background(), Options{
		EntryPoint: entry,
		FileLoader: loader,
	})
	require.NoError(t, err)

	assert.NotContains(t, out.Dts, "#secret")
	assert.Contains(t, out.Dts, "#private: unknown;")
	assert.Contains(t, out.Dts, "private label;")
	assert.NotContains(t, out.Dts, "private label: string")
	assert.Contains(t, out.Dts, "shown: number;")

	// Unlike the .d.ts pass, the runtime bundle keeps both private
	// spellings verbatim as valid JS fields; only the TypeScript-only
	// syntax (type annotations, accessibility keywords) is stripped.
	assert.Contains(t, out.JS, "#secret = 1;")
	assert.Contains(t, out.JS, `label = "x"`)
	assert.NotContains(t, out.JS, "private")
}

// TestPack_NamespaceImportOfRemote drives spec.md §8's remote-module
// scenario: a namespace import of an http(s) specifier must pass through
// as an ES import in both bundles rather than being inlined, since the
// loader declines to fetch its body.
func TestPack_NamespaceImportOfRemote(t *testing.T) {
	dir := t.TempDir()

	entry := writeModule(t, dir, "index.ts", `
import * as R from "https://x/y.ts";
export const k: R.K = 1 as any;
`)

	loader := graph.NewFileLoader(nil, nil)
	defer loader.Close()

	out, err := Pack(context.Background(), Options{
		EntryPoint: entry,
		FileLoader: loader,
		HTTPLoader: externalOnlyLoader{},
	})
	require.NoError(t, err)

	assert.Contains(t, out.Dts, `import * as `)
	assert.Contains(t, out.Dts, `from "https://x/y.ts";`)
	assert.Contains(t, out.JS, `import * as `)
	assert.Contains(t, out.JS, `from "https://x/y.ts";`)
}

// TestPack_ReExportDefaultOfRemote drives spec.md §8's
// `export { default } from "remote"` scenario end-to-end: HasDefaultExport
// must be true even though the grammar shape is an export clause, not an
// `export default` statement (review comment #4's fix).
func TestPack_ReExportDefaultOfRemote(t *testing.T) {
	dir := t.TempDir()

	entry := writeModule(t, dir, "index.ts", `export { default } from "https://x/y.ts";`)

	loader := graph.NewFileLoader(nil, nil)
	defer loader.Close()

	out, err := Pack(context.Background(), Options{
		EntryPoint: entry,
		FileLoader: loader,
		HTTPLoader: externalOnlyLoader{},
	})
	require.NoError(t, err)

	assert.True(t, out.HasDefaultExport)
	assert.Equal(t, 1, strings.Count(out.JS, `"default"`),
		"the default-via-export-clause shape must not double-defineProperty the same key")
}

// TestPack_MissingReturnTypeFallsBackToUnknown drives spec.md §8's
// missing-return-type scenario: a function with no explicit return
// annotation must not be reported as a diagnostic failure; it degrades to
// an "unknown" return type in the declaration bundle instead.
func TestPack_MissingReturnTypeFallsBackToUnknown(t *testing.T) {
	dir := t.TempDir()

	entry := writeModule(t, dir, "index.ts", `export function f() { return 1; }`)

	loader := graph.NewFileLoader(nil, nil)
	defer loader.Close()

	out, err := Pack(context.Background(), Options{
		EntryPoint: entry,
		FileLoader: loader,
	})
	require.NoError(t, err)

	assert.Contains(t, out.Dts, "declare function f(): unknown;")
}
