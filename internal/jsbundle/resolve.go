package jsbundle

import (
	"strconv"

	"github.com/tspack/tspack/internal/graph"
	"github.com/tspack/tspack/internal/symtab"
)

// definition mirrors internal/dtsbundle's resolution result: a sibling
// bundler generalizing the same tracer dispatch logic from "mark reachable"
// to "find what this reference ultimately means," per spec.md §4.4's
// "parallel structure... reuses the same graph and symbol model."
type definition struct {
	Specifier       string
	Symbol          symtab.SymbolID
	RemoteSpecifier string
	IsRemote        bool
	IsDefault       bool
	Namespace       bool
	Name            string
}

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

		target, ok := gr.Resolver.Resolve(sym.FileDep.Specifier, curSpec, false)
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

// referenceExpr renders the runtime JS expression a reference to def should
// read from: the defining module's pack-namespace object plus its export
// name, since every local module keeps its original source-level names
// verbatim inside its own IIFE scope (no global identifier rewriting is
// needed, unlike the declaration bundler's flattened top-level namespace).
func referenceExpr(gr *graph.Graph, def definition) (string, bool) {
	if def.IsRemote {
		id := gr.Index.ModuleIDFor(def.RemoteSpecifier)
		ns := id.ValueNamespace()
		if def.Namespace {
			return ns, true
		}
		if def.IsDefault {
			return ns + ".default", true
		}
		if def.Name != "" {
			return ns + "." + def.Name, true
		}
		return ns, true
	}
	if def.Namespace {
		id := gr.Index.ModuleIDFor(def.Specifier)
		return id.ValueNamespace(), true
	}
	tab, ok := gr.Index.Get(def.Specifier)
	if !ok {
		return "", false
	}
	id := gr.Index.ModuleIDFor(def.Specifier)
	ns := id.ValueNamespace()

	if tab.DefaultExportSymbolID != nil && *tab.DefaultExportSymbolID == def.Symbol {
		return ns + ".default", true
	}
	for _, e := range tab.Exports {
		if e.SymbolID == def.Symbol {
			return ns + "." + e.Name, true
		}
	}
	// def.Symbol is declared but never exported from its own module (reached
	// only via a re-export chain that terminated here); its pack-object
	// property was never installed under its own name, so there is nothing
	// sound to reference.
	return "", false
}
