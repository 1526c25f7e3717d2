package symtab

import (
	ts "github.com/tree-sitter/go-tree-sitter"
)

// collectTypeDeps walks every descendant of n (a type annotation, heritage
// clause, or similar type-position subtree) and records a dependency on
// every referenced identifier. Bodies are never passed to this function;
// callers are responsible for only descending into type positions.
func (a *moduleAnalysis) collectTypeDeps(sym *Symbol, scope string, n *ts.Node) {
	if n == nil {
		return
	}
	switch n.GrammarName() {
	case "type_identifier", "identifier":
		a.addScopedDep(sym, scope, a.text(n), a.location(n))
		return
	case "nested_type_identifier", "qualified_name":
		// Only the left-most segment is an actual binding; the right-hand
		// member name is a property-position and is never rewritten.
		if left := n.ChildByFieldName("module"); left != nil {
			a.collectTypeDeps(sym, scope, left)
			return
		}
		if left := n.ChildByFieldName("left"); left != nil {
			a.collectTypeDeps(sym, scope, left)
			return
		}
	}
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		a.collectTypeDeps(sym, scope, n.NamedChild(uint(i)))
	}
}

// addScopedDep records a dependency on name, reachable from scope or any of
// its enclosing namespace scopes. The tracer resolves against whichever
// candidate is actually bound; this keeps the analyzer from having to
// fully resolve lexical scoping itself.
func (a *moduleAnalysis) addScopedDep(sym *Symbol, scope, name string, loc Location) {
	b := bindingOf(scope, name)
	sym.AddDep(b)
	sym.AddRefSite(b, loc)
	for scope != "" {
		idx := lastDot(scope)
		if idx < 0 {
			scope = ""
		} else {
			scope = scope[:idx]
		}
		b = bindingOf(scope, name)
		sym.AddDep(b)
		sym.AddRefSite(b, loc)
	}
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}
