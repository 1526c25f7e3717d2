package symtab

import (
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/tspack/tspack/internal/diag"
)

// walkBlock processes the named children of a module/namespace body (the
// program node itself, or a namespace's statement_block), binding each
// top-level declaration. scope is the dot-joined enclosing namespace chain
// ("" at module top level). isAmbientBody is true while unwinding a
// `declare namespace`/`declare module` body, where variables never get an
// emitted `declare` keyword of their own (the wrapper already supplies it).
func (a *moduleAnalysis) walkBlock(block *ts.Node, scope string, isAmbientBody bool) {
	count := int(block.NamedChildCount())
	for i := 0; i < count; i++ {
		child := block.NamedChild(uint(i))
		if child == nil {
			continue
		}
		a.walkItem(child, scope, isAmbientBody)
	}
}

func (a *moduleAnalysis) walkItem(node *ts.Node, scope string, isAmbientBody bool) {
	switch node.GrammarName() {
	case "import_statement":
		a.handleImport(node, scope)
	case "export_statement":
		a.handleExport(node, scope, isAmbientBody)
	case "class_declaration", "abstract_class_declaration":
		a.handleClass(node, scope)
	case "function_declaration", "generator_function_declaration", "function_signature":
		a.handleFunction(node, scope)
	case "lexical_declaration", "variable_declaration":
		a.handleVariable(node, scope)
	case "interface_declaration":
		a.handleInterface(node, scope)
	case "type_alias_declaration":
		a.handleTypeAlias(node, scope)
	case "enum_declaration":
		a.handleEnum(node, scope)
	case "internal_module", "module":
		a.handleNamespace(node, scope)
	case "ambient_declaration":
		a.handleAmbient(node, scope)
	case "import_alias":
		a.report(diag.KindUnsupportedConstruct, node, "import-equals declarations are not supported as input")
	case "expression_statement", "if_statement", "comment", ";":
		// Not declarations; nothing to bind.
	default:
		// Unreachable in well-formed TS per spec.md §4.1's failure
		// semantics: report and skip rather than fail the whole analysis.
		a.report(diag.KindUnsupportedConstruct, node, "unsupported top-level construct: "+node.GrammarName())
	}
}

// handleAmbient unwraps `declare <decl>` to its inner declaration. The
// inner declaration is bound exactly as if unwrapped, since the emitted
// form re-adds `declare` for module-scope variables anyway (§4.3.1).
func (a *moduleAnalysis) handleAmbient(node *ts.Node, scope string) {
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		child := node.NamedChild(uint(i))
		if child == nil {
			continue
		}
		a.walkItem(child, scope, true)
	}
}

func addOrMergeDecl(sym *Symbol, loc Location, hasBody bool) {
	if !hasBody {
		sym.Decls = append(sym.Decls, loc)
		sym.HasOverloads = true
		return
	}
	if sym.HasOverloads {
		// Implementation signature following overload signatures: dropped
		// per spec.md §3's invariant and §4.1's overload-detection rule.
		return
	}
	sym.Decls = append(sym.Decls, loc)
}

// bindOrMerge finds an existing symbol for (scope, name) of the same kind
// to append a decl to (overloads, interface merging, namespace merging),
// or creates a fresh one.
func (a *moduleAnalysis) bindOrMerge(scope, name string, kind SymbolKind) *Symbol {
	b := bindingOf(scope, name)
	if existing, ok := a.table.Lookup(b); ok && existing.Kind == kind {
		return existing
	}
	sym := a.table.newSymbol(name, kind)
	a.table.bind(b, sym)
	return sym
}

func hasBody(n *ts.Node) bool {
	return n.ChildByFieldName("body") != nil
}

// ---- class ----

func (a *moduleAnalysis) handleClass(node *ts.Node, scope string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return // anonymous class expression used as a statement: unreachable for class_declaration
	}
	name := a.text(nameNode)
	sym := a.bindOrMerge(scope, name, SymbolClass)
	loc := a.location(node)
	addOrMergeDecl(sym, loc, true)
	a.computeClassRewrite(sym, node, loc.StartByte)

	// Heritage: extends / implements clauses contribute type deps.
	if heritage := node.ChildByFieldName("heritage"); heritage != nil {
		a.collectTypeDeps(sym, scope, heritage)
	} else {
		// Some grammar versions expose heritage as extra named children
		// rather than a single "heritage" field; scan for them directly.
		count := int(node.NamedChildCount())
		for i := 0; i < count; i++ {
			c := node.NamedChild(uint(i))
			if c == nil {
				continue
			}
			switch c.GrammarName() {
			case "class_heritage", "extends_clause", "implements_clause":
				a.collectTypeDeps(sym, scope, c)
			}
		}
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	a.collectClassMemberDeps(sym, scope, body)
}

// collectClassMemberDeps walks class_body members, skipping bodies,
// private members and @internal members entirely, per §4.1.
func (a *moduleAnalysis) collectClassMemberDeps(sym *Symbol, scope string, body *ts.Node) {
	count := int(body.NamedChildCount())
	for i := 0; i < count; i++ {
		member := body.NamedChild(uint(i))
		if member == nil {
			continue
		}
		if a.hasLeadingInternalJSDoc(member) {
			continue
		}
		if isPrivateMember(member, a.source) {
			continue
		}
		switch member.GrammarName() {
		case "method_definition", "method_signature":
			a.collectCallableDeps(sym, scope, member)
		case "public_field_definition", "property_signature":
			if t := member.ChildByFieldName("type"); t != nil {
				a.collectTypeDeps(sym, scope, t)
			}
		}
	}
}

// isPrivateMember reports whether member is private by either spelling:
// `#`-prefixed (hard-private) or the `private` accessibility keyword. Both
// are treated the same for dependency collection (their type positions
// never reach emitted output either way), but dts.rs:297-336 treats them
// very differently for rewriting — see isHashPrivateMember below.
func isPrivateMember(member *ts.Node, source []byte) bool {
	return isHashPrivateMember(member, source) || isKeywordPrivateMember(member, source)
}

// isHashPrivateMember reports whether member uses `#`-prefixed hard-private
// syntax (`#x`), which has no type-erased representation in a .d.ts and is
// always dropped outright — dts.rs's `ClassMember::PrivateProp` /
// `PrivateMethod` arms.
func isHashPrivateMember(member *ts.Node, source []byte) bool {
	name := member.ChildByFieldName("name")
	return name != nil && strings.HasPrefix(name.Utf8Text(source), "#")
}

// isKeywordPrivateMember reports whether member carries the `private`
// accessibility modifier keyword (`private x`), which dts.rs keeps as a
// type-erased member rather than deleting — see rewrite.go's
// computeClassRewrite.
func isKeywordPrivateMember(member *ts.Node, source []byte) bool {
	count := int(member.NamedChildCount())
	for i := 0; i < count; i++ {
		c := member.NamedChild(uint(i))
		if c != nil && c.GrammarName() == "accessibility_modifier" && c.Utf8Text(source) == "private" {
			return true
		}
	}
	return false
}

func (a *moduleAnalysis) collectCallableDeps(sym *Symbol, scope string, node *ts.Node) {
	params := node.ChildByFieldName("parameters")
	if params != nil {
		a.collectParameterTypeDeps(sym, scope, params)
	}
	if rt := node.ChildByFieldName("return_type"); rt != nil {
		a.collectTypeDeps(sym, scope, rt)
	}
}

func (a *moduleAnalysis) collectParameterTypeDeps(sym *Symbol, scope string, params *ts.Node) {
	count := int(params.NamedChildCount())
	for i := 0; i < count; i++ {
		p := params.NamedChild(uint(i))
		if p == nil {
			continue
		}
		if t := p.ChildByFieldName("type"); t != nil {
			a.collectTypeDeps(sym, scope, t)
		}
	}
}

// ---- function ----

func (a *moduleAnalysis) handleFunction(node *ts.Node, scope string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := a.text(nameNode)
	sym := a.bindOrMerge(scope, name, SymbolFunction)
	loc := a.location(node)
	bodyPresent := hasBody(node)
	implementationDropped := bodyPresent && sym.HasOverloads
	addOrMergeDecl(sym, loc, bodyPresent)
	if !implementationDropped {
		a.computeFunctionRewrite(sym, node, loc.StartByte)
	}
	a.collectCallableDeps(sym, scope, node)
}

// ---- variable ----

func (a *moduleAnalysis) handleVariable(node *ts.Node, scope string) {
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		decl := node.NamedChild(uint(i))
		if decl == nil || decl.GrammarName() != "variable_declarator" {
			continue
		}
		a.handleVariableDeclarator(decl, scope)
	}
}

func (a *moduleAnalysis) handleVariableDeclarator(decl *ts.Node, scope string) {
	nameNode := decl.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	switch nameNode.GrammarName() {
	case "identifier":
		name := a.text(nameNode)
		sym := a.bindOrMerge(scope, name, SymbolVariable)
		addOrMergeDecl(sym, a.location(decl), true)
		if t := decl.ChildByFieldName("type"); t != nil {
			a.collectTypeDeps(sym, scope, t)
		}
	case "object_pattern":
		a.handleObjectPatternDeclarator(nameNode, decl, scope)
	case "rest_pattern":
		// `const { ...rest } = x` at top level is unusual but the rest
		// element itself binds one identifier.
		if id := nameNode.NamedChild(0); id != nil && id.GrammarName() == "identifier" {
			name := a.text(id)
			sym := a.bindOrMerge(scope, name, SymbolVariable)
			addOrMergeDecl(sym, a.location(decl), true)
		}
	default:
		// array_pattern, assignment_pattern at export position: unsupported.
		a.report(diag.KindUnsupportedPattern, decl, "unsupported destructuring pattern in variable declaration")
	}
}

func (a *moduleAnalysis) handleObjectPatternDeclarator(pattern, decl *ts.Node, scope string) {
	count := int(pattern.NamedChildCount())
	for i := 0; i < count; i++ {
		prop := pattern.NamedChild(uint(i))
		if prop == nil {
			continue
		}
		var nameNode *ts.Node
		switch prop.GrammarName() {
		case "shorthand_property_identifier_pattern":
			nameNode = prop
		case "pair_pattern":
			nameNode = prop.ChildByFieldName("value")
		case "rest_pattern":
			nameNode = prop.NamedChild(0)
		}
		if nameNode == nil || nameNode.GrammarName() != "identifier" {
			continue
		}
		name := a.text(nameNode)
		sym := a.bindOrMerge(scope, name, SymbolVariable)
		addOrMergeDecl(sym, a.location(decl), true)
	}
}

// ---- interface ----

func (a *moduleAnalysis) handleInterface(node *ts.Node, scope string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := a.text(nameNode)
	sym := a.bindOrMerge(scope, name, SymbolInterface)
	addOrMergeDecl(sym, a.location(node), true)

	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		c := node.NamedChild(uint(i))
		if c == nil {
			continue
		}
		switch c.GrammarName() {
		case "extends_type_clause":
			a.collectTypeDeps(sym, scope, c)
		case "interface_body":
			a.collectClassMemberDeps(sym, scope, c)
		}
	}
}

// ---- type alias ----

func (a *moduleAnalysis) handleTypeAlias(node *ts.Node, scope string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := a.text(nameNode)
	sym := a.bindOrMerge(scope, name, SymbolTypeAlias)
	addOrMergeDecl(sym, a.location(node), true)
	if v := node.ChildByFieldName("value"); v != nil {
		a.collectTypeDeps(sym, scope, v)
	}
}

// ---- enum ----

func (a *moduleAnalysis) handleEnum(node *ts.Node, scope string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := a.text(nameNode)
	sym := a.bindOrMerge(scope, name, SymbolEnum)
	addOrMergeDecl(sym, a.location(node), true)
}

// ---- namespace ----

func (a *moduleAnalysis) handleNamespace(node *ts.Node, scope string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	if nameNode.GrammarName() == "string" {
		a.report(diag.KindUnsupportedConstruct, node, "string-literal module names are not supported")
		return
	}
	name := a.text(nameNode)
	sym := a.bindOrMerge(scope, name, SymbolNamespace)
	addOrMergeDecl(sym, a.location(node), true)

	childScope := name
	if scope != "" {
		childScope = scope + "." + name
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}

	before := len(a.table.Symbols)
	a.walkBlock(body, childScope, true)

	// Chain this namespace's symbol bidirectionally with every symbol
	// created directly inside it, so tracing either end brings in the
	// whole chain (§4.1 "Namespaces").
	after := len(a.table.Symbols)
	if after <= before {
		return
	}
	count := int(body.NamedChildCount())
	for i := 0; i < count; i++ {
		child := body.NamedChild(uint(i))
		if child == nil {
			continue
		}
		if child.GrammarName() == "export_statement" {
			if child = child.ChildByFieldName("declaration"); child == nil {
				continue
			}
		}
		for _, childName := range exportedNamesOf(child, a.source) {
			childBinding := bindingOf(childScope, childName)
			childSym, ok := a.table.Lookup(childBinding)
			if !ok {
				continue
			}
			sym.AddDep(childBinding)
			childSym.AddDep(bindingOf(scope, name))
		}
	}
}

// directDeclName extracts the binding name a top-level namespace-body item
// would have been registered under, for the purpose of re-finding it to
// build the bidirectional namespace dep chain.
func directDeclName(node *ts.Node, source []byte) string {
	var nameNode *ts.Node
	switch node.GrammarName() {
	case "class_declaration", "abstract_class_declaration", "function_declaration",
		"generator_function_declaration", "function_signature", "interface_declaration",
		"type_alias_declaration", "enum_declaration", "internal_module", "module":
		nameNode = node.ChildByFieldName("name")
	}
	if nameNode == nil {
		return ""
	}
	return nameNode.Utf8Text(source)
}
