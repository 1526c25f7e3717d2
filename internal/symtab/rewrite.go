package symtab

import (
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/tspack/tspack/internal/diag"
)

// computeFunctionRewrite fills in sym.Function and the body/async/generator/
// return-type DeclEdits for one function-like declaration site (function
// declaration, method, or constructor). declStart keys the edit list to
// this specific Decls entry (overload signatures never reach here: they
// have no body to strip and no return type to infer, since "no reachable
// return" is moot on a signature).
func (a *moduleAnalysis) computeFunctionRewrite(sym *Symbol, node *ts.Node, declStart uint32) {
	meta := a.computeCallableEdits(sym, node, declStart)
	sym.Function = &meta
}

// computeCallableEdits emits the body/async/generator/return-type DeclEdits
// shared by plain functions and class methods/constructors, returning the
// facts discovered (a class ignores the returned FunctionMeta itself: a
// class is one Symbol, not one per method).
func (a *moduleAnalysis) computeCallableEdits(sym *Symbol, node *ts.Node, declStart uint32) FunctionMeta {
	body := node.ChildByFieldName("body")
	isAsync, asyncNode := hasKeywordToken(node, "async")
	isGenerator, starNode := hasKeywordToken(node, "*")

	meta := FunctionMeta{IsAsync: isAsync, IsGenerator: isGenerator}

	if asyncNode != nil {
		sym.AddDeclEdit(declStart, RewriteEdit{Start: asyncNode.StartByte(), End: asyncNode.EndByte() + 1, Text: ""})
	}
	if starNode != nil {
		sym.AddDeclEdit(declStart, RewriteEdit{Start: starNode.StartByte(), End: starNode.EndByte(), Text: ""})
	}

	if body == nil {
		return meta // overload signature: no body to strip, no return type inference needed
	}
	// The body's replacement starts right after the signature, so the
	// whitespace before "{" goes with it: "f(): T;" rather than "f(): T ;".
	bodyStart := body.StartByte()
	for bodyStart > 0 && strings.IndexByte(" \t\r\n", a.source[bodyStart-1]) >= 0 {
		bodyStart--
	}
	if nameNode := node.ChildByFieldName("name"); nameNode != nil && a.text(nameNode) == "constructor" {
		// A constructor signature carries no return type.
		sym.AddDeclEdit(declStart, RewriteEdit{Start: bodyStart, End: body.EndByte(), Text: ";"})
		return meta
	}

	returnTypeNode := node.ChildByFieldName("return_type")
	meta.HasExplicitReturnType = returnTypeNode != nil

	var inner string
	switch {
	case returnTypeNode != nil:
		inner = a.text(returnTypeNode)
	default:
		meta.ReachableReturn = hasReachableReturn(body)
		if meta.ReachableReturn {
			inner = "unknown"
			if !isGenerator {
				a.report(diag.KindMissingReturnType, node, "missing return type for function with return statement")
			}
		} else {
			inner = "void"
		}
	}

	final := inner
	switch {
	case isGenerator:
		final = "Generator<unknown, void, unknown>"
	case isAsync:
		final = "Promise<" + inner + ">"
	}

	if returnTypeNode != nil {
		sym.AddDeclEdit(declStart, RewriteEdit{Start: returnTypeNode.StartByte(), End: returnTypeNode.EndByte(), Text: final})
		sym.AddDeclEdit(declStart, RewriteEdit{Start: bodyStart, End: body.EndByte(), Text: ";"})
	} else {
		// Annotation and body go in one edit: a separate insert at the
		// body replacement's start would collide with it in the printer.
		sym.AddDeclEdit(declStart, RewriteEdit{Start: bodyStart, End: body.EndByte(), Text: ": " + final + ";"})
	}
	return meta
}

// hasKeywordToken scans node's direct children (named and anonymous) for a
// token whose text matches keyword, returning it if found.
func hasKeywordToken(node *ts.Node, keyword string) (bool, *ts.Node) {
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		c := node.Child(uint(i))
		if c == nil {
			continue
		}
		if c.GrammarName() == keyword {
			return true, c
		}
	}
	return false, nil
}

// hasReachableReturn reports whether a return statement is reachable from
// body without crossing into a nested function/arrow/method boundary.
func hasReachableReturn(node *ts.Node) bool {
	if node == nil {
		return false
	}
	switch node.GrammarName() {
	case "function_expression", "arrow_function", "function_declaration",
		"generator_function", "generator_function_declaration", "method_definition":
		return false
	case "return_statement":
		return true
	}
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		if hasReachableReturn(node.NamedChild(uint(i))) {
			return true
		}
	}
	return false
}

// paramInfo is the parsed shape of one parameter node, regardless of
// whether it ends up a plain parameter or a constructor parameter property.
type paramInfo struct {
	node          *ts.Node
	name          string
	typeText      string
	hasExplicit   bool
	hasDefault    bool
	accessibility string // "", "public", "private", "protected"
	readonly      bool
	override      bool
}

func (a *moduleAnalysis) inspectParam(p *ts.Node) paramInfo {
	info := paramInfo{node: p}
	nameNode := p.ChildByFieldName("pattern")
	if nameNode == nil {
		nameNode = p.ChildByFieldName("name")
	}
	if nameNode != nil {
		info.name = a.text(nameNode)
	}
	if t := p.ChildByFieldName("type"); t != nil {
		// The type_annotation node includes its leading ":"; typeText
		// holds the bare type, and callers prepend ": " themselves.
		info.typeText = strings.TrimSpace(strings.TrimPrefix(a.text(t), ":"))
		info.hasExplicit = true
	}
	if v := p.ChildByFieldName("value"); v != nil {
		info.hasDefault = true
		if !info.hasExplicit {
			info.typeText = inferLiteralKeyword(a.text(v))
		}
	}
	if !info.hasExplicit && !info.hasDefault {
		info.typeText = "unknown"
	}

	count := int(p.ChildCount())
	for i := 0; i < count; i++ {
		c := p.Child(uint(i))
		if c == nil {
			continue
		}
		switch c.GrammarName() {
		case "accessibility_modifier":
			// "public" is TypeScript's implicit default for a parameter
			// property; dts.rs's rewrite (Some(Accessibility::Public) |
			// None => None) drops it from the emitted property, keeping
			// only "private"/"protected" as explicit modifiers.
			if text := a.text(c); text != "public" {
				info.accessibility = text
			}
		case "readonly":
			info.readonly = true
		case "override_modifier":
			info.override = true
		}
	}
	return info
}

func (info paramInfo) isProperty() bool {
	return info.accessibility != "" || info.readonly || info.override
}

// asPlainParam renders info as a bare "name?: Type" / "name: Type" form,
// dropping modifiers and any default initializer. forceOptional is used for
// parameter properties, which §4.3.1 always converts to optional.
func (info paramInfo) asPlainParam(forceOptional bool) string {
	optional := forceOptional || info.hasDefault
	mark := ""
	if optional {
		mark = "?"
	}
	return info.name + mark + ": " + info.typeText
}

// asPropertyDecl renders info as the synthetic class-property declaration
// injected for a constructor parameter property.
func (info paramInfo) asPropertyDecl() string {
	var b strings.Builder
	if info.accessibility != "" {
		b.WriteString(info.accessibility)
		b.WriteString(" ")
	}
	if info.override {
		b.WriteString("override ")
	}
	if info.readonly {
		b.WriteString("readonly ")
	}
	b.WriteString(info.name)
	b.WriteString(": ")
	b.WriteString(info.typeText)
	b.WriteString(";")
	return b.String()
}

func inferLiteralKeyword(valueText string) string {
	v := strings.TrimSpace(valueText)
	switch {
	case v == "true" || v == "false":
		return "boolean"
	case strings.HasPrefix(v, "\"") || strings.HasPrefix(v, "'") || strings.HasPrefix(v, "`"):
		return "string"
	case strings.HasPrefix(v, "["):
		return "unknown[]"
	case v != "" && (v[0] == '-' || (v[0] >= '0' && v[0] <= '9')):
		return "number"
	default:
		return "unknown"
	}
}

// rewriteParameterList walks a parameters node, emitting a DeclEdit for any
// parameter that needs changing (defaulted or a parameter property) and
// returns the synthesized class-property declarations for any parameter
// properties found, in order.
func (a *moduleAnalysis) rewriteParameterList(sym *Symbol, declStart uint32, params *ts.Node) []string {
	if params == nil {
		return nil
	}
	var props []string
	count := int(params.NamedChildCount())
	for i := 0; i < count; i++ {
		p := params.NamedChild(uint(i))
		if p == nil {
			continue
		}
		info := a.inspectParam(p)
		switch {
		case info.isProperty():
			props = append(props, info.asPropertyDecl())
			sym.AddDeclEdit(declStart, RewriteEdit{Start: p.StartByte(), End: p.EndByte(), Text: info.asPlainParam(true)})
		case info.hasDefault:
			sym.AddDeclEdit(declStart, RewriteEdit{Start: p.StartByte(), End: p.EndByte(), Text: info.asPlainParam(false)})
		}
	}
	return props
}

// stripDecorators deletes any leading `@decorator` children of node.
func (a *moduleAnalysis) stripDecorators(sym *Symbol, declStart uint32, node *ts.Node) {
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		c := node.Child(uint(i))
		if c != nil && c.GrammarName() == "decorator" {
			sym.AddDeclEdit(declStart, RewriteEdit{Start: c.StartByte(), End: c.EndByte(), Text: ""})
		}
	}
}

// computeClassRewrite fills sym.Class and the member-level DeclEdits for one
// class declaration site: private/@internal/static-block member removal,
// decorator stripping, overload-signature collapsing, constructor
// parameter-property extraction and a synthetic #private marker.
func (a *moduleAnalysis) computeClassRewrite(sym *Symbol, node *ts.Node, declStart uint32) {
	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	meta := &ClassMeta{}
	sym.Class = meta

	type overloadState struct {
		sigSeen bool
	}
	overloads := make(map[string]*overloadState)

	count := int(body.NamedChildCount())
	for i := 0; i < count; i++ {
		member := body.NamedChild(uint(i))
		if member == nil {
			continue
		}
		if member.GrammarName() == "class_static_block" {
			sym.AddDeclEdit(declStart, RewriteEdit{Start: member.StartByte(), End: member.EndByte(), Text: ""})
			continue
		}
		if member.NamedChildCount() == 0 && member.ChildCount() == 0 {
			continue // empty statement
		}
		if a.hasLeadingInternalJSDoc(member) {
			sym.AddDeclEdit(declStart, RewriteEdit{Start: member.StartByte(), End: member.EndByte(), Text: ""})
			continue
		}
		if isHashPrivateMember(member, a.source) {
			// `#`-prefixed members have no type-erased .d.ts
			// representation; drop outright, per dts.rs's
			// PrivateProp/PrivateMethod arms.
			meta.HasPrivateMember = true
			sym.AddDeclEdit(declStart, RewriteEdit{Start: member.StartByte(), End: member.EndByte(), Text: ""})
			continue
		}
		if isKeywordPrivateMember(member, a.source) {
			// `private`-keyword members are kept, type-erased: a
			// method becomes a bodyless, typeless property; a
			// property just loses its type annotation (never
			// inferred — unlike a non-private field with no
			// annotation). Per dts.rs:360-387, these do NOT set
			// HasPrivateMember — that marker exists only for the
			// `#`-private case.
			switch member.GrammarName() {
			case "method_definition":
				a.rewriteKeywordPrivateMethodToProperty(sym, declStart, member)
			case "public_field_definition":
				a.rewriteKeywordPrivateProperty(sym, declStart, member)
			}
			continue
		}

		switch member.GrammarName() {
		case "method_definition":
			nameNode := member.ChildByFieldName("name")
			memberName := ""
			if nameNode != nil {
				memberName = a.text(nameNode)
			}
			isCtor := memberName == "constructor"

			hasBody := member.ChildByFieldName("body") != nil
			st := overloads[memberName]
			if st == nil {
				st = &overloadState{}
				overloads[memberName] = st
			}
			if hasBody && st.sigSeen {
				// Implementation following overload signatures: drop
				// entirely, same rule as addOrMergeDecl applies at the
				// symbol level.
				sym.AddDeclEdit(declStart, RewriteEdit{Start: member.StartByte(), End: member.EndByte(), Text: ""})
				continue
			}
			if !hasBody {
				st.sigSeen = true
			}

			a.stripDecorators(sym, declStart, member)
			if isCtor {
				params := member.ChildByFieldName("parameters")
				props := a.rewriteParameterList(sym, declStart, params)
				meta.ParamPropertyDecls = append(meta.ParamPropertyDecls, props...)
			}
			a.computeCallableEdits(sym, member, declStart)
		case "method_signature":
			// An overload signature: a later implementation of the same
			// name is dropped by the method_definition case above.
			if nameNode := member.ChildByFieldName("name"); nameNode != nil {
				st := overloads[a.text(nameNode)]
				if st == nil {
					st = &overloadState{}
					overloads[a.text(nameNode)] = st
				}
				st.sigSeen = true
			}
			a.stripDecorators(sym, declStart, member)
		case "public_field_definition":
			a.rewritePublicField(sym, declStart, member)
		default:
			// abstract_method_signature, index_signature, property_signature:
			// already ambient-shaped, nothing to rewrite.
		}
	}

	var inject strings.Builder
	if meta.HasPrivateMember {
		inject.WriteString("\n  #private: unknown;")
	}
	for _, decl := range meta.ParamPropertyDecls {
		inject.WriteString("\n  ")
		inject.WriteString(decl)
	}
	if inject.Len() > 0 {
		at := body.StartByte() + 1
		sym.AddDeclEdit(declStart, RewriteEdit{Start: at, End: at, Text: inject.String()})
	}
}

// rewritePublicField strips decorators and the initializer from a class
// property, inferring a keyword type when none was annotated.
func (a *moduleAnalysis) rewritePublicField(sym *Symbol, declStart uint32, member *ts.Node) {
	a.stripDecorators(sym, declStart, member)
	nameNode := member.ChildByFieldName("name")
	typeNode := member.ChildByFieldName("type")
	valueNode := member.ChildByFieldName("value")
	if nameNode == nil {
		return
	}
	if typeNode == nil {
		inferred := "unknown"
		if valueNode != nil {
			inferred = inferLiteralKeyword(a.text(valueNode))
		}
		sym.AddDeclEdit(declStart, RewriteEdit{Start: nameNode.EndByte(), End: nameNode.EndByte(), Text: ": " + inferred})
	}
	if valueNode != nil {
		start := nameNode.EndByte()
		if typeNode != nil {
			start = typeNode.EndByte()
		}
		sym.AddDeclEdit(declStart, RewriteEdit{Start: start, End: valueNode.EndByte(), Text: ""})
	}
}

// rewriteKeywordPrivateProperty strips a `private`-accessibility field's
// initializer and any existing type annotation, without inferring one —
// dts.rs:384-387 forces `type_ann = None` for private properties rather
// than running the public inference path.
func (a *moduleAnalysis) rewriteKeywordPrivateProperty(sym *Symbol, declStart uint32, member *ts.Node) {
	a.stripDecorators(sym, declStart, member)
	nameNode := member.ChildByFieldName("name")
	typeNode := member.ChildByFieldName("type")
	valueNode := member.ChildByFieldName("value")
	if nameNode == nil {
		return
	}
	if typeNode != nil {
		sym.AddDeclEdit(declStart, RewriteEdit{Start: nameNode.EndByte(), End: typeNode.EndByte(), Text: ""})
	}
	if valueNode != nil {
		start := nameNode.EndByte()
		if typeNode != nil {
			start = typeNode.EndByte()
		}
		sym.AddDeclEdit(declStart, RewriteEdit{Start: start, End: valueNode.EndByte(), Text: ""})
	}
}

// rewriteKeywordPrivateMethodToProperty replaces a `private`-accessibility
// method's entire declaration with a type-erased property declaration
// carrying the same name (and `static` modifier, if any) — dts.rs:364-381
// turns ClassMember::Method into ClassMember::ClassProp with
// value: None, type_ann: None for this exact case.
func (a *moduleAnalysis) rewriteKeywordPrivateMethodToProperty(sym *Symbol, declStart uint32, member *ts.Node) {
	nameNode := member.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	isStatic, _ := hasKeywordToken(member, "static")
	isReadonly, _ := hasKeywordToken(member, "readonly")
	var b strings.Builder
	b.WriteString("private ")
	if isStatic {
		b.WriteString("static ")
	}
	if isReadonly {
		b.WriteString("readonly ")
	}
	b.WriteString(a.text(nameNode))
	b.WriteString(";")
	sym.AddDeclEdit(declStart, RewriteEdit{Start: member.StartByte(), End: member.EndByte(), Text: b.String()})
}
