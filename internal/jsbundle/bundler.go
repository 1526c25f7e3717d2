// Package jsbundle implements spec.md §4.4's JsBundler: the sibling of
// internal/dtsbundle that emits a single runtime JavaScript file instead of
// a declaration file. Rather than rewriting every reference to a qualified
// `packN.name` form the way the declaration bundler flattens everything onto
// one top-level scope, each module keeps its own source-level names intact
// inside its own IIFE: its imports become local `const` aliases reading off
// the dependency's pack-namespace object, and its exports become
// `Object.defineProperty` getters writing onto its own. This sidesteps
// needing a whole-program identifier-rewrite pass over executable bodies
// (symtab's dependency tracking, per internal/symtab/typedeps.go, is
// deliberately scoped to type positions only) while still giving cyclic
// imports the live-getter resolution spec.md asks for at the export
// boundary.
package jsbundle

import (
	ts "github.com/tree-sitter/go-tree-sitter"

	"sort"
	"strings"

	"github.com/tspack/tspack/internal/graph"
	"github.com/tspack/tspack/internal/symtab"
)

// Bundler runs one emission pass over an already-built, already-analyzed
// Graph, producing the single-file runtime JS text.
type Bundler struct {
	graph *graph.Graph
}

// New builds a Bundler bound to gr.
func New(gr *graph.Graph) *Bundler {
	return &Bundler{graph: gr}
}

// Bundle produces the runtime JS text for rootSpecifier, along with whether
// the root module carried a default export.
func (b *Bundler) Bundle(rootSpecifier string) (string, bool, error) {
	var out strings.Builder

	rootTable, ok := b.graph.Index.Get(rootSpecifier)
	hasDefault := ok && rootTable != nil && rootTable.DefaultExportSymbolID != nil

	for _, spec := range b.graph.Order {
		specStr := string(spec)

		if b.graph.Remote[spec] {
			id := b.graph.Index.ModuleIDFor(specStr)
			out.WriteString("import * as " + id.ValueNamespace() + " from \"" + specStr + "\";\n")
			continue
		}

		source, hasSource := b.graph.Sources[spec]
		if !hasSource {
			continue
		}

		id := b.graph.Index.ModuleIDFor(specStr)
		packName := id.ValueNamespace()

		tree, hasTree := b.graph.Trees[spec]
		if !hasTree || tree == nil {
			// JSON module: inline object literal carrying only a default
			// export (spec.md §4.4).
			out.WriteString("const " + packName + " = { default: " + strings.TrimSpace(string(source)) + " };\n")
			continue
		}

		tab, ok := b.graph.Index.Get(specStr)
		if !ok {
			continue
		}

		body := b.renderModuleBody(specStr, source, tree, tab, packName)
		isRoot := specStr == rootSpecifier

		switch {
		case isRoot:
			out.WriteString(body.prelude)
			out.WriteString(body.statements)
			out.WriteString(body.epilogue)
		case tab.HasTopLevelAwait:
			out.WriteString("const " + packName + " = {};\n")
			out.WriteString("await (async function () {\n")
			out.WriteString(indentBlock(body.prelude + body.statements + body.epilogue))
			out.WriteString("})();\n")
		default:
			out.WriteString("const " + packName + " = {};\n")
			out.WriteString("(function () {\n")
			out.WriteString(indentBlock(body.prelude + body.statements + body.epilogue))
			out.WriteString("})();\n")
		}
	}

	return out.String(), hasDefault, nil
}

type moduleBody struct {
	prelude    string
	statements string
	epilogue   string
}

// renderModuleBody reconstructs one module's runtime body: import statements
// become local const aliases (prelude), export wrapper syntax is stripped
// down to the underlying declaration (statements), and the export surface is
// installed at the end via Object.defineProperty getters (epilogue).
func (b *Bundler) renderModuleBody(specifier string, source []byte, tree *ts.Tree, tab *symtab.ModuleSymbolTable, packName string) moduleBody {
	var body moduleBody
	body.prelude = b.renderPrelude(specifier, tab)
	body.statements = renderStatements(specifier, source, tree, tab)
	body.epilogue = b.renderEpilogue(specifier, tab, packName)
	return body
}

// renderPrelude emits one const-alias line per real import binding (not
// re-export-with-source passthroughs, which never get a lexical binding of
// their own — see bindImport vs. handleExportClause's hasSource branch in
// internal/symtab/imports_exports.go).
func (b *Bundler) renderPrelude(specifier string, tab *symtab.ModuleSymbolTable) string {
	type aliasLine struct {
		name string
		text string
	}
	var lines []aliasLine

	for binding, id := range tab.Bindings {
		if binding.Scope != "" {
			continue
		}
		sym, ok := tab.Symbols[id]
		if !ok || sym.Kind != symtab.SymbolImportBinding || sym.FileDep == nil {
			continue
		}
		dep := sym.FileDep
		target, ok := b.graph.Resolver.Resolve(dep.Specifier, specifier, false)
		if !ok {
			continue
		}
		depID := b.graph.Index.ModuleIDFor(string(target))
		ns := depID.ValueNamespace()

		var rhs string
		switch dep.Kind {
		case symtab.FileDepStar:
			rhs = ns
		case symtab.FileDepDefault:
			rhs = ns + ".default"
		case symtab.FileDepNamed:
			if dep.Name == "default" {
				rhs = ns + ".default"
			} else {
				pattern := dep.Name
				if pattern != binding.Name {
					pattern += ": " + binding.Name
				}
				lines = append(lines, aliasLine{name: binding.Name, text: "const { " + pattern + " } = " + ns + ";\n"})
				continue
			}
		}
		lines = append(lines, aliasLine{name: binding.Name, text: "const " + binding.Name + " = " + rhs + ";\n"})
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].name < lines[j].name })

	var out strings.Builder
	for _, l := range lines {
		out.WriteString(l.text)
	}
	return out.String()
}

// renderStatements walks the module's top-level statements in source order,
// dropping import statements entirely, unwrapping export statements down to
// their inner declaration (or, for an arbitrary default-export expression,
// materializing it into a synthetic `const __default = <expr>;`), and
// passing every other statement through renderTopLevelDecl for type erasure.
func renderStatements(specifier string, source []byte, tree *ts.Tree, tab *symtab.ModuleSymbolTable) string {
	root := tree.RootNode()
	var out strings.Builder

	count := int(root.NamedChildCount())
	for i := 0; i < count; i++ {
		child := root.NamedChild(uint(i))
		if child == nil {
			continue
		}
		switch child.GrammarName() {
		case "import_statement":
			continue
		case "export_statement":
			if decl := child.ChildByFieldName("declaration"); decl != nil {
				out.WriteString(renderTopLevelDecl(source, decl))
				continue
			}
			if value := child.ChildByFieldName("value"); value != nil {
				if value.GrammarName() != "identifier" {
					out.WriteString("const __default = ")
					out.WriteString(stripTypeSyntax(source, value))
					out.WriteString(";\n")
				}
				continue
			}
			// Bare `export {...}` / `export * from` / `export * as ns from`:
			// no runtime statement of its own, handled entirely by the
			// epilogue's defineProperty forwarding.
			continue
		default:
			out.WriteString(renderTopLevelDecl(source, child))
		}
	}
	return out.String()
}

// renderEpilogue installs the module's export surface onto its pack object:
// one Object.defineProperty getter per named export (so that a later
// assignment inside the body — or another cyclic module's export still
// resolving — is observed live at read time), the default export if any,
// and forwarding loops for bare `export * from` re-exports.
func (b *Bundler) renderEpilogue(specifier string, tab *symtab.ModuleSymbolTable, packName string) string {
	var out strings.Builder

	sawDefaultViaExportsList := false
	for _, e := range tab.Exports {
		sym, ok := tab.Symbols[e.SymbolID]
		if !ok {
			continue
		}
		expr, ok := b.exportValueExpr(specifier, sym)
		if !ok {
			continue
		}
		if e.Name == "default" {
			sawDefaultViaExportsList = true
		}
		out.WriteString(defineProperty(packName, e.Name, expr))
	}

	// `export default <expr>` never appends to tab.Exports (only
	// DefaultExportSymbolID), but `export { x as default }` /
	// `export { default } from "..."` does — via handleExportClause — so
	// guard against defining the "default" property twice, which would
	// throw at runtime on the second (non-configurable) defineProperty call.
	if tab.DefaultExportSymbolID != nil && !sawDefaultViaExportsList {
		sym, ok := tab.Symbols[*tab.DefaultExportSymbolID]
		if ok {
			expr, ok := b.exportValueExpr(specifier, sym)
			if ok {
				out.WriteString(defineProperty(packName, "default", expr))
			}
		}
	}

	for _, src := range tab.ReExports {
		out.WriteString(b.renderStarReExport(specifier, packName, src))
	}

	return out.String()
}

func (b *Bundler) exportValueExpr(specifier string, sym *symtab.Symbol) (string, bool) {
	if sym.Kind == symtab.SymbolDefaultExportSlot {
		return "__default", true
	}
	if sym.FileDep != nil {
		def, ok := resolveDefinition(b.graph, specifier, sym.ID)
		if !ok {
			return "", false
		}
		return referenceExpr(b.graph, def)
	}
	return sym.Name, true
}

func defineProperty(packName, name, expr string) string {
	return "Object.defineProperty(" + packName + ", " + quote(name) + ", { get: function () { return " + expr + "; } });\n"
}

// renderStarReExport forwards every export of src onto packName, except
// "default" (never forwarded by `export * from`, per ES semantics). A local
// target's export names are known statically; a remote target's are not
// (remote bodies are analyzed opaquely), so that case forwards dynamically
// at runtime instead.
func (b *Bundler) renderStarReExport(specifier, packName, src string) string {
	target, ok := b.graph.Resolver.Resolve(src, specifier, false)
	if !ok {
		return ""
	}
	if target.IsRemote() {
		targetID := b.graph.Index.ModuleIDFor(string(target))
		ns := targetID.ValueNamespace()
		return "for (const __k of Object.keys(" + ns + ")) {\n" +
			"  if (__k === \"default\") continue;\n" +
			"  Object.defineProperty(" + packName + ", __k, { get: function () { return " + ns + "[__k]; } });\n" +
			"}\n"
	}
	targetTab, ok := b.graph.Index.Get(string(target))
	if !ok {
		return ""
	}
	targetID := b.graph.Index.ModuleIDFor(string(target))
	ns := targetID.ValueNamespace()
	var out strings.Builder
	for _, e := range targetTab.Exports {
		if e.Name == "default" {
			continue
		}
		out.WriteString(defineProperty(packName, e.Name, ns+"."+e.Name))
	}
	return out.String()
}

func quote(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}

func indentBlock(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		if l == "" {
			continue
		}
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n") + "\n"
}
