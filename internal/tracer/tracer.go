// Package tracer implements spec.md §4.2's PublicClosureTracer: a
// breadth-first walk from the root module's exports that marks every
// transitively reachable symbol public, following intra-module deps and
// cross-module file refs, and resolving bare `export * from` chains that
// the analyzer could not turn into symbols on its own.
package tracer

import (
	"log/slog"

	"github.com/tspack/tspack/internal/diag"
	"github.com/tspack/tspack/internal/graph"
	"github.com/tspack/tspack/internal/obslog"
	"github.com/tspack/tspack/internal/symtab"
)

// Tracer runs one trace pass over an already-built Graph.
type Tracer struct {
	index    *symtab.Index
	resolver *graph.Resolver
	reporter diag.Reporter
	logger   *slog.Logger
}

// New builds a Tracer bound to gr's index and resolver.
func New(gr *graph.Graph, reporter diag.Reporter, logger *slog.Logger) *Tracer {
	if logger == nil {
		logger = obslog.Nop()
	}
	return &Tracer{index: gr.Index, resolver: gr.Resolver, reporter: reporter, logger: logger}
}

type workItem struct {
	specifier string
	symbol    symtab.SymbolID
}

// Trace marks every symbol reachable from rootSpecifier's exports and
// default export public. Idempotent and deterministic given a deterministic
// graph/export ordering (§5).
func (t *Tracer) Trace(rootSpecifier string) error {
	table, ok := t.index.Get(rootSpecifier)
	if !ok {
		return nil
	}

	var queue []workItem
	for _, e := range table.Exports {
		queue = append(queue, workItem{rootSpecifier, e.SymbolID})
	}
	if table.DefaultExportSymbolID != nil {
		queue = append(queue, workItem{rootSpecifier, *table.DefaultExportSymbolID})
	}
	// Names the root surfaces only through bare `export * from` have no
	// symbol of their own: record them in TracedReExports and trace them.
	for name, ref := range t.collectReExportChain(rootSpecifier, map[string]bool{}) {
		if _, direct := table.ExportSymbolID(name); direct {
			continue
		}
		queue = append(queue, workItem{ref.specifier, ref.symbol})
		seen := false
		for _, tr := range table.TracedReExports {
			seen = seen || tr.Name == name
		}
		if !seen {
			table.TracedReExports = append(table.TracedReExports, symtab.TracedReExport{
				Name:   name,
				Target: symtab.UniqueSymbolID{Module: t.index.ModuleIDFor(ref.specifier), Symbol: ref.symbol},
			})
		}
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		queue = t.visit(item, queue)
	}
	return nil
}

func (t *Tracer) visit(item workItem, queue []workItem) []workItem {
	tab, ok := t.index.Get(item.specifier)
	if !ok {
		return queue
	}
	sym, ok := tab.Symbols[item.symbol]
	if !ok || sym.IsPublic {
		return queue
	}
	sym.IsPublic = true

	if sym.FileDep == nil {
		for dep := range sym.Deps {
			if target, ok := tab.Lookup(dep); ok {
				queue = append(queue, workItem{item.specifier, target.ID})
			}
		}
		return queue
	}

	target, ok := t.resolver.Resolve(sym.FileDep.Specifier, item.specifier, true)
	if !ok {
		t.report(diag.KindUnresolvedDependency, item.specifier, "unresolved dependency: "+sym.FileDep.Specifier)
		return queue
	}

	if target.IsRemote() {
		remoteTable := t.index.AnalyzeRemote(string(target))
		remoteTable.IsLocallyImportedRemote = true
		if isDefaultish(sym.FileDep) {
			remoteTable.IsLocallyImportedRemoteDefault = true
		}
		return queue
	}

	targetTable, ok := t.index.Get(string(target))
	if !ok {
		t.report(diag.KindUnresolvedDependency, item.specifier, "unresolved dependency: "+sym.FileDep.Specifier)
		return queue
	}

	switch sym.FileDep.Kind {
	case symtab.FileDepDefault:
		if targetTable.DefaultExportSymbolID != nil {
			queue = append(queue, workItem{string(target), *targetTable.DefaultExportSymbolID})
		}
	case symtab.FileDepNamed:
		if sym.FileDep.Name == "default" {
			if targetTable.DefaultExportSymbolID != nil {
				queue = append(queue, workItem{string(target), *targetTable.DefaultExportSymbolID})
			}
			break
		}
		if id, ok := targetTable.ExportSymbolID(sym.FileDep.Name); ok {
			queue = append(queue, workItem{string(target), id})
			break
		}
		if foundSpec, id, ok := t.resolveBareReExport(string(target), sym.FileDep.Name); ok {
			queue = append(queue, workItem{foundSpec, id})
		}
	case symtab.FileDepStar:
		for name, ref := range t.expandStarExports(string(target)) {
			if name == "default" {
				continue
			}
			queue = append(queue, workItem{ref.specifier, ref.symbol})
		}
	}

	return queue
}

func isDefaultish(dep *symtab.FileDep) bool {
	return dep.Kind == symtab.FileDepDefault ||
		dep.Kind == symtab.FileDepStar ||
		(dep.Kind == symtab.FileDepNamed && dep.Name == "default")
}

type symbolRef struct {
	specifier string
	symbol    symtab.SymbolID
}

// resolveBareReExport follows specifier's ReExports chain (bare
// `export * from "…"`) looking for name, recording the resolution in
// specifier's TracedReExports on success. This is the only case a re-export
// doesn't already carry its own FileDep-bearing symbol (§4.1's "for
// `export * from "src"`, no symbol is created").
func (t *Tracer) resolveBareReExport(specifier, name string) (string, symtab.SymbolID, bool) {
	foundSpec, id, ok := t.walkReExportChain(specifier, name, map[string]bool{})
	if !ok {
		return "", 0, false
	}
	tab, _ := t.index.Get(specifier)
	tab.TracedReExports = append(tab.TracedReExports, symtab.TracedReExport{
		Name:   name,
		Target: symtab.UniqueSymbolID{Module: t.index.ModuleIDFor(foundSpec), Symbol: id},
	})
	return foundSpec, id, true
}

func (t *Tracer) walkReExportChain(specifier, name string, visited map[string]bool) (string, symtab.SymbolID, bool) {
	if visited[specifier] {
		return "", 0, false
	}
	visited[specifier] = true

	tab, ok := t.index.Get(specifier)
	if !ok {
		return "", 0, false
	}
	for _, raw := range tab.ReExports {
		target, ok := t.resolver.Resolve(raw, specifier, true)
		if !ok {
			continue
		}
		if target.IsRemote() {
			rt := t.index.AnalyzeRemote(string(target))
			rt.IsLocallyImportedRemote = true
			continue
		}
		targetTable, ok := t.index.Get(string(target))
		if !ok {
			continue
		}
		if id, ok := targetTable.ExportSymbolID(name); ok {
			return string(target), id, true
		}
		if spec2, id2, ok2 := t.walkReExportChain(string(target), name, visited); ok2 {
			return spec2, id2, true
		}
	}
	return "", 0, false
}

// expandStarExports returns every (name -> definition) pair reachable from
// specifier's module: its own direct exports plus, for any name not
// already shadowed by a direct export, names surfaced transitively through
// its bare re-export chain. Discoveries made only through the chain are
// recorded in specifier's TracedReExports.
func (t *Tracer) expandStarExports(specifier string) map[string]symbolRef {
	tab, ok := t.index.Get(specifier)
	if !ok {
		return nil
	}
	result := make(map[string]symbolRef)
	for _, e := range tab.Exports {
		if e.Name == "default" {
			continue
		}
		result[e.Name] = symbolRef{specifier, e.SymbolID}
	}

	chained := t.collectReExportChain(specifier, map[string]bool{})
	for name, ref := range chained {
		if _, exists := result[name]; exists {
			continue
		}
		result[name] = ref
		tab.TracedReExports = append(tab.TracedReExports, symtab.TracedReExport{
			Name:   name,
			Target: symtab.UniqueSymbolID{Module: t.index.ModuleIDFor(ref.specifier), Symbol: ref.symbol},
		})
	}
	return result
}

func (t *Tracer) collectReExportChain(specifier string, visited map[string]bool) map[string]symbolRef {
	if visited[specifier] {
		return nil
	}
	visited[specifier] = true

	tab, ok := t.index.Get(specifier)
	if !ok {
		return nil
	}
	result := make(map[string]symbolRef)
	for _, raw := range tab.ReExports {
		target, ok := t.resolver.Resolve(raw, specifier, true)
		if !ok {
			continue
		}
		if target.IsRemote() {
			rt := t.index.AnalyzeRemote(string(target))
			rt.IsLocallyImportedRemote = true
			continue
		}
		targetTable, ok := t.index.Get(string(target))
		if !ok {
			continue
		}
		for _, e := range targetTable.Exports {
			if e.Name == "default" {
				continue
			}
			if _, exists := result[e.Name]; !exists {
				result[e.Name] = symbolRef{string(target), e.SymbolID}
			}
		}
		for name, ref := range t.collectReExportChain(string(target), visited) {
			if _, exists := result[name]; !exists {
				result[name] = ref
			}
		}
	}
	return result
}

func (t *Tracer) report(kind diag.Kind, specifier, message string) {
	if t.reporter == nil {
		return
	}
	t.reporter.Diagnostic(diag.Diagnostic{Kind: kind, Message: message, Specifier: specifier})
}
