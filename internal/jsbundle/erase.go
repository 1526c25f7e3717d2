package jsbundle

import (
	"strconv"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/tspack/tspack/internal/printer"
)

// renderTopLevelDecl renders one top-level (possibly export-unwrapped)
// declaration's runtime form. Interfaces, type aliases, and ambient
// `declare` blocks carry no runtime representation and vanish entirely; an
// enum becomes the plain object tsc itself lowers it to; everything else is
// copied through with its type syntax erased, since symtab's own rewriting
// (internal/symtab/rewrite.go) only ever targets the sibling .d.ts output
// and never touches the source bytes this package reads.
func renderTopLevelDecl(source []byte, decl *ts.Node) string {
	switch decl.GrammarName() {
	case "interface_declaration", "type_alias_declaration", "ambient_declaration":
		return ""
	case "enum_declaration":
		return renderEnumAsObject(source, decl)
	default:
		return stripTypeSyntax(source, decl) + "\n"
	}
}

// stripTypeSyntax renders node's own byte range with every TypeScript-only
// construct erased: type annotations, type parameters/arguments, `as` and
// `satisfies` casts, non-null assertions, and the accessibility/readonly/
// override modifiers that only make sense ahead of a `.d.ts` emission.
// Mirrors tsc's own type-erasure transform for everything that isn't a
// declaration kind requiring lowering (enums) or a construct with no
// runtime form at all (interfaces, type aliases).
func stripTypeSyntax(source []byte, node *ts.Node) string {
	var edits []printer.Edit
	collectEraseEdits(source, node, &edits)
	return printer.Render(source, node.StartByte(), node.EndByte(), edits)
}

func collectEraseEdits(source []byte, node *ts.Node, edits *[]printer.Edit) {
	if node == nil {
		return
	}

	switch node.GrammarName() {
	case "as_expression", "satisfies_expression", "non_null_expression":
		expr := node.ChildByFieldName("expression")
		if expr == nil {
			expr = node.NamedChild(0)
		}
		if expr != nil && expr.EndByte() < node.EndByte() {
			*edits = append(*edits, printer.Edit{Start: expr.EndByte(), End: node.EndByte(), Text: ""})
		}
	case "type_parameters", "type_arguments":
		*edits = append(*edits, printer.Edit{Start: node.StartByte(), End: node.EndByte(), Text: ""})
		return // pure type syntax: nothing runtime-relevant inside to recurse into
	case "optional_parameter", "property_signature", "public_field_definition", "method_signature":
		if q := anonymousChild(node, "?"); q != nil {
			*edits = append(*edits, printer.Edit{Start: q.StartByte(), End: q.EndByte(), Text: ""})
		}
	}

	if r, ok := fieldAnnotationRange(node, "type"); ok {
		*edits = append(*edits, printer.Edit{Start: r.start, End: r.end, Text: ""})
	}
	if r, ok := fieldAnnotationRange(node, "return_type"); ok {
		*edits = append(*edits, printer.Edit{Start: r.start, End: r.end, Text: ""})
	}

	// Keyword modifiers (readonly, plus whichever of accessibility_modifier/
	// override_modifier the grammar represents as plain anonymous tokens
	// rather than named nodes — see hasKeywordToken's identical any-child
	// scan in internal/symtab/rewrite.go) have no runtime meaning at all.
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		c := node.Child(uint(i))
		if c == nil {
			continue
		}
		switch c.GrammarName() {
		case "accessibility_modifier", "override_modifier", "readonly":
			*edits = append(*edits, printer.Edit{Start: c.StartByte(), End: skipTrailingSpace(source, c.EndByte()), Text: ""})
			continue
		}
		if c.IsNamed() {
			collectEraseEdits(source, c, edits)
		}
	}
}

type byteRange struct{ start, end uint32 }

// fieldAnnotationRange locates the byte range of a node's "type" or
// "return_type" field including its colon: the grammar's type_annotation
// node carries its own leading ":", and where the colon is instead a
// separate token just before the field, it is folded into the range.
func fieldAnnotationRange(node *ts.Node, fieldName string) (byteRange, bool) {
	field := node.ChildByFieldName(fieldName)
	if field == nil {
		return byteRange{}, false
	}
	r := byteRange{start: field.StartByte(), end: field.EndByte()}

	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		c := node.Child(uint(i))
		if c == nil || c.StartByte() != field.StartByte() || c.EndByte() != field.EndByte() {
			continue
		}
		if i > 0 {
			if prev := node.Child(uint(i - 1)); prev != nil && prev.GrammarName() == ":" {
				r.start = prev.StartByte()
			}
		}
		break
	}
	return r, true
}

func anonymousChild(node *ts.Node, grammarName string) *ts.Node {
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		c := node.Child(uint(i))
		if c != nil && !c.IsNamed() && c.GrammarName() == grammarName {
			return c
		}
	}
	return nil
}

func skipTrailingSpace(source []byte, end uint32) uint32 {
	for int(end) < len(source) && (source[end] == ' ' || source[end] == '\t') {
		end++
	}
	return end
}

// renderEnumAsObject lowers a TS enum declaration to the plain object tsc
// itself emits for it: forward name->value entries for every member, plus
// the numeric reverse mapping for members whose value is (or auto-
// increments to) a number. A member with a non-numeric initializer breaks
// the auto-increment chain for everything after it, matching TS's own rule
// that only a numeric (or no) initializer may be followed by an implicit
// one.
func renderEnumAsObject(source []byte, node *ts.Node) string {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	name := nameNode.Utf8Text(source)

	type member struct {
		name  string
		value string
		isNum bool
	}
	var members []member
	next := 0
	numericChain := true

	if body := node.ChildByFieldName("body"); body != nil {
		count := int(body.NamedChildCount())
		for i := 0; i < count; i++ {
			m := body.NamedChild(uint(i))
			if m == nil {
				continue
			}
			switch m.GrammarName() {
			case "property_identifier":
				if !numericChain {
					continue // can't auto-increment past a non-numeric member
				}
				members = append(members, member{name: m.Utf8Text(source), value: strconv.Itoa(next), isNum: true})
				next++
			case "enum_assignment":
				id := m.ChildByFieldName("name")
				val := m.ChildByFieldName("value")
				if id == nil || val == nil {
					continue
				}
				text := strings.TrimSpace(val.Utf8Text(source))
				if n, err := strconv.Atoi(text); err == nil {
					members = append(members, member{name: id.Utf8Text(source), value: strconv.Itoa(n), isNum: true})
					next = n + 1
					numericChain = true
				} else {
					members = append(members, member{name: id.Utf8Text(source), value: text, isNum: false})
					numericChain = false
				}
			}
		}
	}

	var entries []string
	for _, m := range members {
		entries = append(entries, m.name+": "+m.value)
	}
	for _, m := range members {
		if m.isNum {
			entries = append(entries, m.value+": "+strconv.Quote(m.name))
		}
	}
	return "const " + name + " = { " + strings.Join(entries, ", ") + " };\n"
}
