package symtab

import (
	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/tspack/tspack/internal/diag"
)

// ---- import ----

func (a *moduleAnalysis) handleImport(node *ts.Node, scope string) {
	sourceNode := node.ChildByFieldName("source")
	if sourceNode == nil {
		return
	}
	source := stringLiteralValue(a.text(sourceNode))

	clause := firstChildOfType(node, "import_clause")
	if clause == nil {
		return // bare `import "side-effect-module"`: nothing to bind
	}

	count := int(clause.NamedChildCount())
	for i := 0; i < count; i++ {
		c := clause.NamedChild(uint(i))
		if c == nil {
			continue
		}
		switch c.GrammarName() {
		case "identifier":
			// Default import binding: `import Foo from "mod"`.
			a.bindImport(node, scope, a.text(c), &FileDep{Kind: FileDepDefault, Specifier: source})
		case "namespace_import":
			if id := lastNamedChild(c); id != nil {
				a.bindImport(node, scope, a.text(id), &FileDep{Kind: FileDepStar, Specifier: source})
			}
		case "named_imports":
			a.handleNamedImports(node, scope, c, source)
		}
	}
}

func (a *moduleAnalysis) handleNamedImports(node *ts.Node, scope string, named *ts.Node, source string) {
	count := int(named.NamedChildCount())
	for i := 0; i < count; i++ {
		spec := named.NamedChild(uint(i))
		if spec == nil || spec.GrammarName() != "import_specifier" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		orig := a.text(nameNode)
		bound := orig
		if alias := spec.ChildByFieldName("alias"); alias != nil {
			bound = a.text(alias)
		}
		a.bindImport(node, scope, bound, &FileDep{Kind: FileDepNamed, Name: orig, Specifier: source})
	}
}

func (a *moduleAnalysis) bindImport(node *ts.Node, scope, name string, dep *FileDep) {
	sym := a.table.newSymbol(name, SymbolImportBinding)
	sym.FileDep = dep
	sym.Decls = append(sym.Decls, a.location(node))
	a.table.bind(bindingOf(scope, name), sym)
}

// ---- export ----

func (a *moduleAnalysis) handleExport(node *ts.Node, scope string, isAmbientBody bool) {
	if decl := node.ChildByFieldName("declaration"); decl != nil {
		a.walkItem(decl, scope, isAmbientBody)
		// `/** @internal */` on an exported top-level declaration keeps
		// the declaration bound (other local code may still reference
		// it) but excludes it from this module's export surface, the
		// same exclusion class members get in computeClassRewrite —
		// generalizing decls.go/rewrite.go's per-member redaction to
		// every declaration kind per spec.md §8's "internal redaction"
		// invariant.
		if a.hasLeadingInternalJSDoc(node) {
			return
		}
		// `export default function f() {}` / `export default class C {}`:
		// the declaration is the module's default export, not an export
		// named after its own binding.
		if firstChildOfType(node, "default") != nil {
			if sym, ok := a.table.Lookup(bindingOf(scope, directDeclName(decl, a.source))); ok {
				id := sym.ID
				a.table.DefaultExportSymbolID = &id
			}
			return
		}
		for _, name := range exportedNamesOf(decl, a.source) {
			if sym, ok := a.table.Lookup(bindingOf(scope, name)); ok {
				a.table.addExport(name, sym.ID)
			}
		}
		return
	}

	if value := node.ChildByFieldName("value"); value != nil {
		a.handleDefaultExport(node, scope, value)
		return
	}

	sourceNode := node.ChildByFieldName("source")
	var source string
	hasSource := sourceNode != nil
	if hasSource {
		source = stringLiteralValue(a.text(sourceNode))
	}

	// `export * from "mod"` / `export * as ns from "mod"`.
	if star := firstChildOfType(node, "*"); star != nil && hasSource {
		if ns := node.ChildByFieldName("name"); ns != nil {
			sym := a.table.newSymbol(a.text(ns), SymbolNamespace)
			sym.FileDep = &FileDep{Kind: FileDepStar, Specifier: source}
			sym.IsAmbientModule = true
			sym.Decls = append(sym.Decls, a.location(node))
			a.table.addExport(a.text(ns), sym.ID)
			return
		}
		a.table.ReExports = append(a.table.ReExports, source)
		return
	}

	clause := firstChildOfType(node, "export_clause")
	if clause == nil {
		return
	}
	a.handleExportClause(node, scope, clause, hasSource, source)
}

func (a *moduleAnalysis) handleExportClause(node *ts.Node, scope string, clause *ts.Node, hasSource bool, source string) {
	count := int(clause.NamedChildCount())
	for i := 0; i < count; i++ {
		spec := clause.NamedChild(uint(i))
		if spec == nil || spec.GrammarName() != "export_specifier" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		local := a.text(nameNode)
		exportName := local
		if alias := spec.ChildByFieldName("alias"); alias != nil {
			exportName = a.text(alias)
		}

		if hasSource {
			sym := a.table.newSymbol(exportName, SymbolImportBinding)
			sym.FileDep = &FileDep{Kind: FileDepNamed, Name: local, Specifier: source}
			sym.Decls = append(sym.Decls, a.location(spec))
			a.table.addExport(exportName, sym.ID)
			a.markIfDefault(exportName, sym.ID)
			continue
		}

		if sym, ok := a.table.Lookup(bindingOf(scope, local)); ok {
			a.table.addExport(exportName, sym.ID)
			a.markIfDefault(exportName, sym.ID)
		} else {
			a.report(diag.KindUnresolvedDependency, spec, "export of undeclared local binding: "+local)
		}
	}
}

// markIfDefault records id as the module's default-export symbol when an
// `export { x as default }` / `export { default } from "..."` clause
// binds the re-exported name "default". handleDefaultExport (below)
// covers the separate `export default <expr>` grammar shape; without this,
// a default re-exported through an export clause — spec.md §8's "re-export
// default of remote" scenario — never set DefaultExportSymbolID and so
// was silently missing from HasDefaultExport and the bundlers' root
// binding lists.
func (a *moduleAnalysis) markIfDefault(exportName string, id SymbolID) {
	if exportName == "default" {
		a.table.DefaultExportSymbolID = &id
	}
}

func (a *moduleAnalysis) handleDefaultExport(node *ts.Node, scope string, value *ts.Node) {
	switch value.GrammarName() {
	case "identifier":
		if sym, ok := a.table.Lookup(bindingOf(scope, a.text(value))); ok {
			id := sym.ID
			a.table.DefaultExportSymbolID = &id
			return
		}
		a.report(diag.KindUnresolvedDependency, value, "default export of undeclared local binding")
		return
	case "class_declaration", "abstract_class_declaration", "function_declaration", "generator_function_declaration":
		a.walkItem(value, scope, false)
		name := directDeclName(value, a.source)
		if name == "" {
			break
		}
		if sym, ok := a.table.Lookup(bindingOf(scope, name)); ok {
			id := sym.ID
			a.table.DefaultExportSymbolID = &id
			return
		}
	}

	// Arbitrary expression default export: §4.1 non-goal is full type
	// inference of the expression, so a SymbolDefaultExportSlot symbol is
	// registered (jsbundle materializes it as `__default`; dtsbundle emits
	// no declaration for it) and the limitation is surfaced as a diagnostic.
	sym := a.table.newSymbol("default", SymbolDefaultExportSlot)
	sym.Decls = append(sym.Decls, a.location(node))
	id := sym.ID
	a.table.DefaultExportSymbolID = &id
	a.report(diag.KindUnsupportedDefaultExpression, value, "default export expression is not a declaration or simple identifier")
}

// ---- shared node helpers ----

func firstChildOfType(node *ts.Node, grammarName string) *ts.Node {
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		c := node.Child(uint(i))
		if c != nil && c.GrammarName() == grammarName {
			return c
		}
	}
	return nil
}

func lastNamedChild(node *ts.Node) *ts.Node {
	n := int(node.NamedChildCount())
	if n == 0 {
		return nil
	}
	return node.NamedChild(uint(n - 1))
}

// stringLiteralValue strips the surrounding quote characters from a parsed
// string-literal token's raw text.
func stringLiteralValue(raw string) string {
	if len(raw) >= 2 {
		quote := raw[0]
		if (quote == '"' || quote == '\'' || quote == '`') && raw[len(raw)-1] == quote {
			return raw[1 : len(raw)-1]
		}
	}
	return raw
}

// exportedNamesOf returns every binding name a (possibly just-walked)
// declaration node introduces, for attaching export entries after the
// fact. Handles the multi-name variable-declaration case directDeclName
// does not.
func exportedNamesOf(node *ts.Node, source []byte) []string {
	switch node.GrammarName() {
	case "lexical_declaration", "variable_declaration":
		var names []string
		count := int(node.NamedChildCount())
		for i := 0; i < count; i++ {
			decl := node.NamedChild(uint(i))
			if decl == nil || decl.GrammarName() != "variable_declarator" {
				continue
			}
			names = append(names, declaratorNames(decl, source)...)
		}
		return names
	default:
		if name := directDeclName(node, source); name != "" {
			return []string{name}
		}
		return nil
	}
}

func declaratorNames(decl *ts.Node, source []byte) []string {
	nameNode := decl.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	switch nameNode.GrammarName() {
	case "identifier":
		return []string{nameNode.Utf8Text(source)}
	case "object_pattern":
		var names []string
		count := int(nameNode.NamedChildCount())
		for i := 0; i < count; i++ {
			prop := nameNode.NamedChild(uint(i))
			if prop == nil {
				continue
			}
			var id *ts.Node
			switch prop.GrammarName() {
			case "shorthand_property_identifier_pattern":
				id = prop
			case "pair_pattern":
				id = prop.ChildByFieldName("value")
			case "rest_pattern":
				id = prop.NamedChild(0)
			}
			if id != nil && id.GrammarName() == "identifier" {
				names = append(names, id.Utf8Text(source))
			}
		}
		return names
	case "rest_pattern":
		if id := nameNode.NamedChild(0); id != nil && id.GrammarName() == "identifier" {
			return []string{id.Utf8Text(source)}
		}
	}
	return nil
}
