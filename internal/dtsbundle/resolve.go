package dtsbundle

import (
	"strconv"

	"github.com/tspack/tspack/internal/graph"
	"github.com/tspack/tspack/internal/symtab"
)

// definition is what a reference ultimately resolves to: either a local
// declaration site (Specifier/Symbol valid) or a remote leaf
// (RemoteSpecifier set, routed through the remote's pack{id}/pack{id}Default
// namespace per spec.md §4.3.1's import-equals forms).
type definition struct {
	Specifier       string
	Symbol          symtab.SymbolID
	RemoteSpecifier string
	IsRemote        bool
	IsDefault       bool
	Namespace       bool   // sym.FileDep.Kind == FileDepStar: a namespace import, not a single symbol
	Name            string // the imported name, when IsRemote and not IsDefault/Namespace
}

// resolveDefinition follows a chain of import-binding/re-export FileDeps
// starting at (specifier, id) to the underlying declaration or a remote
// boundary. Mirrors internal/tracer's dispatch (graph.Resolver + the index),
// generalized from "mark reachable" to "find the one thing this name means."
func resolveDefinition(gr *graph.Graph, specifier string, id symtab.SymbolID) (definition, bool) {
	visited := make(map[string]bool)
	curSpec, curID := specifier, id

	for {
		tab, ok := gr.Index.Get(curSpec)
		if !ok {
			return definition{}, false
		}
		sym, ok := tab.Symbols[curID]
		if !ok {
			return definition{}, false
		}
		if sym.FileDep == nil {
			return definition{Specifier: curSpec, Symbol: curID}, true
		}

		target, ok := gr.Resolver.Resolve(sym.FileDep.Specifier, curSpec, true)
		if !ok {
			return definition{}, false
		}

		if target.IsRemote() {
			isDefault := sym.FileDep.Kind == symtab.FileDepDefault ||
				(sym.FileDep.Kind == symtab.FileDepNamed && sym.FileDep.Name == "default")
			isNamespace := sym.FileDep.Kind == symtab.FileDepStar
			return definition{
				RemoteSpecifier: string(target),
				IsRemote:        true,
				IsDefault:       isDefault,
				Namespace:       isNamespace,
				Name:            sym.FileDep.Name,
			}, true
		}

		if sym.FileDep.Kind == symtab.FileDepStar {
			return definition{Specifier: string(target), Namespace: true}, true
		}

		targetTable, ok := gr.Index.Get(string(target))
		if !ok {
			return definition{}, false
		}

		switch sym.FileDep.Kind {
		case symtab.FileDepDefault:
			if targetTable.DefaultExportSymbolID == nil {
				return definition{}, false
			}
			curSpec, curID = string(target), *targetTable.DefaultExportSymbolID
		case symtab.FileDepNamed:
			name := sym.FileDep.Name
			if name == "default" {
				if targetTable.DefaultExportSymbolID == nil {
					return definition{}, false
				}
				curSpec, curID = string(target), *targetTable.DefaultExportSymbolID
				break
			}
			if eid, ok := targetTable.ExportSymbolID(name); ok {
				curSpec, curID = string(target), eid
				break
			}
			found := false
			for _, tr := range targetTable.TracedReExports {
				if tr.Name == name {
					if s, ok := gr.Index.SpecifierFor(tr.Target.Module); ok {
						curSpec, curID = s, tr.Target.Symbol
						found = true
					}
					break
				}
			}
			if !found {
				return definition{}, false
			}
		}

		key := curSpec + "#" + strconv.Itoa(int(curID))
		if visited[key] {
			return definition{}, false
		}
		visited[key] = true
	}
}
