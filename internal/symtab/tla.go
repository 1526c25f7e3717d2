package symtab

import (
	ts "github.com/tree-sitter/go-tree-sitter"
)

// hasTopLevelAwait reports whether an `await` occurs anywhere under n
// without crossing into a nested function/arrow/method body, per spec's
// top-level-await rule for the JsBundler's IIFE wrapping choice.
func hasTopLevelAwait(n *ts.Node) bool {
	if n == nil {
		return false
	}
	switch n.GrammarName() {
	case "function_declaration", "function_expression", "generator_function_declaration",
		"generator_function", "arrow_function", "method_definition", "class_static_block":
		return false
	case "await_expression":
		return true
	case "for_in_statement":
		// `for await (...)` carries its await as a bare keyword token.
		if ok, _ := hasKeywordToken(n, "await"); ok {
			return true
		}
	}
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		if hasTopLevelAwait(n.NamedChild(uint(i))) {
			return true
		}
	}
	return false
}
