// Package dtsbundle implements spec.md §4.3's DtsBundler: the top-level
// name registry and bundling pass that turn a traced public closure into a
// single-file .d.ts, following §4.3.1's per-declaration rewrite rules
// (computed ahead of time by internal/symtab and carried on Symbol.DeclEdits)
// and §4.3.2's identifier-rewriting pass.
package dtsbundle

import (
	"strconv"

	"github.com/tspack/tspack/internal/symtab"
)

// NameRegistry assigns the one top-level name each public symbol will carry
// in the emitted bundle. Whole-module (namespace-representative) symbols get
// the module-scoped "packModule{N}" form, distinct from the "pack{id}" /
// "pack{id}Default" namespace names used for remote-import routing
// (symtab.ModuleID.ValueNamespace/DefaultNamespace). Everything else keeps
// its original name, falling back to "noName"/"NoName" when anonymous, with
// the smallest unique integer suffix appended on collision.
type NameRegistry struct {
	names  map[symtab.UniqueSymbolID]string
	counts map[string]int
}

// NewNameRegistry builds an empty registry.
func NewNameRegistry() *NameRegistry {
	return &NameRegistry{
		names:  make(map[symtab.UniqueSymbolID]string),
		counts: make(map[string]int),
	}
}

// NameFor returns the final top-level name for (moduleID, sym), assigning
// one on first call. wholeModule marks a namespace's module-representative
// symbol, which is named after its module rather than its own name.
func (r *NameRegistry) NameFor(moduleID symtab.ModuleID, sym *symtab.Symbol, wholeModule bool) string {
	key := symtab.UniqueSymbolID{Module: moduleID, Symbol: sym.ID}
	if name, ok := r.names[key]; ok {
		return name
	}

	var base string
	switch {
	case wholeModule:
		base = "packModule" + strconv.Itoa(int(moduleID))
	case sym.Name != "":
		base = sym.Name
	case sym.Kind == symtab.SymbolFunction:
		base = "noName"
	default:
		base = "NoName"
	}

	name := r.uniquify(base)
	r.names[key] = name
	return name
}

// Lookup returns the name already assigned to (moduleID, symbolID), if any.
func (r *NameRegistry) Lookup(moduleID symtab.ModuleID, symbolID symtab.SymbolID) (string, bool) {
	name, ok := r.names[symtab.UniqueSymbolID{Module: moduleID, Symbol: symbolID}]
	return name, ok
}

func (r *NameRegistry) uniquify(base string) string {
	n := r.counts[base]
	r.counts[base] = n + 1
	if n == 0 {
		return base
	}
	for i := n + 1; ; i++ {
		cand := base + strconv.Itoa(i)
		if r.counts[cand] == 0 {
			r.counts[cand] = 1
			return cand
		}
	}
}
