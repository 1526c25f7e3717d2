package dtsbundle

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tspack/tspack/internal/graph"
	"github.com/tspack/tspack/internal/printer"
	"github.com/tspack/tspack/internal/symtab"
)

// Bundler runs one bundling pass over an already-built, already-traced
// Graph, producing the single-file .d.ts text (spec.md §4.3).
type Bundler struct {
	graph    *graph.Graph
	registry *NameRegistry

	visited     map[string]bool // specifier+symbol key
	moduleOrder []string
	moduleDecls map[string][]string
	wrapped     map[string]bool

	remoteOrder []string
	remoteDefault map[string]bool

	hasDefaultExport bool
}

type pending struct {
	specifier string
	symbol    symtab.SymbolID
}

// New builds a Bundler bound to gr.
func New(gr *graph.Graph) *Bundler {
	return &Bundler{
		graph:         gr,
		registry:      NewNameRegistry(),
		visited:       make(map[string]bool),
		moduleDecls:   make(map[string][]string),
		wrapped:       make(map[string]bool),
		remoteDefault: make(map[string]bool),
	}
}

// Bundle produces the declaration bundle text for rootSpecifier, along with
// whether the root module carried a default export.
func (b *Bundler) Bundle(rootSpecifier string) (string, bool, error) {
	rootTable, ok := b.graph.Index.Get(rootSpecifier)
	if !ok {
		return "", false, nil
	}

	var queue []pending
	type rootExport struct {
		localName string
		def       definition
	}
	var rootExports []rootExport
	sawDefaultViaExportsList := false

	for _, e := range rootTable.Exports {
		def, ok := resolveDefinition(b.graph, rootSpecifier, e.SymbolID)
		if !ok {
			continue
		}
		if e.Name == "default" {
			sawDefaultViaExportsList = true
		}
		rootExports = append(rootExports, rootExport{localName: e.Name, def: def})
		queue = b.enqueue(queue, def)
	}
	// `export default <expr>` never appends to rootTable.Exports (only
	// DefaultExportSymbolID), but `export { x as default }` /
	// `export { default } from "..."` does — via handleExportClause — so
	// guard against the same symbol being queued and listed twice, which
	// would emit a duplicate `export { ... as default }` binding.
	if rootTable.DefaultExportSymbolID != nil {
		b.hasDefaultExport = true
		if !sawDefaultViaExportsList {
			def, ok := resolveDefinition(b.graph, rootSpecifier, *rootTable.DefaultExportSymbolID)
			if ok {
				rootExports = append(rootExports, rootExport{localName: "default", def: def})
				queue = b.enqueue(queue, def)
			}
		}
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		queue = b.process(item, queue)
	}

	var out strings.Builder
	for _, remoteSpec := range b.remoteOrder {
		id := b.graph.Index.ModuleIDFor(remoteSpec)
		ns := id.ValueNamespace()
		out.WriteString("import * as " + ns + " from \"" + remoteSpec + "\";\n")
		if b.remoteDefault[remoteSpec] {
			defIn := ns + "DefaultImport"
			out.WriteString("import { default as " + defIn + " } from \"" + remoteSpec + "\";\n")
			out.WriteString("declare namespace " + id.DefaultNamespace() + " {\n")
			out.WriteString("  export { " + defIn + " as __default };\n")
			out.WriteString("}\n")
		}
	}

	for _, spec := range b.moduleOrder {
		decls := b.moduleDecls[spec]
		if len(decls) == 0 {
			continue
		}
		if b.wrapped[spec] {
			id := b.graph.Index.ModuleIDFor(spec)
			name := b.registry.NameFor(id, &symtab.Symbol{ID: -1}, true)
			out.WriteString("declare namespace " + name + " {\n")
			if onlyPlumbing(decls) {
				out.WriteString("  const __packTsUnder5_2_Workaround__: unknown;\n")
			}
			for _, d := range decls {
				out.WriteString(indent(d))
				out.WriteString("\n")
			}
			out.WriteString("}\n")
			continue
		}
		for _, d := range decls {
			out.WriteString("declare " + d)
			out.WriteString("\n")
		}
	}

	// Trailing re-export list for root exports whose original name differs
	// from the top-level name they were assigned (§4.3's last step).
	var renamed []string
	for _, re := range rootExports {
		if re.def.IsRemote && re.def.IsDefault {
			// Root re-export of a remote module's default (spec.md §8
			// "re-export default of remote"): the remote's default was
			// plumbed into a declare-namespace __default binding above;
			// surface it under this module's own export name here,
			// since it isn't a local declaration finalName can name.
			id := b.graph.Index.ModuleIDFor(re.def.RemoteSpecifier)
			renamed = append(renamed, id.DefaultNamespace()+".__default as "+re.localName)
			continue
		}
		if re.def.IsRemote || re.def.Namespace {
			continue // surfaced by the remote import line or the declare-namespace wrapper, not a rename list entry
		}
		name, ok := b.finalName(re.def)
		if !ok || name == "" {
			continue
		}
		if name != re.localName {
			renamed = append(renamed, name+" as "+re.localName)
		}
	}
	if len(renamed) > 0 {
		sort.Strings(renamed)
		out.WriteString("export { " + strings.Join(renamed, ", ") + " };\n")
	}

	return out.String(), b.hasDefaultExport, nil
}

// enqueue schedules def for processing, or records it as a remote/namespace
// reference instead, returning the updated queue.
func (b *Bundler) enqueue(queue []pending, def definition) []pending {
	if def.IsRemote {
		b.recordRemote(def)
		return queue
	}
	if def.Namespace {
		b.markWrapped(def.Specifier)
		tab, ok := b.graph.Index.Get(def.Specifier)
		if !ok {
			return queue
		}
		for _, e := range tab.Exports {
			if e.Name == "default" {
				continue
			}
			if d2, ok := resolveDefinition(b.graph, def.Specifier, e.SymbolID); ok {
				queue = b.enqueue(queue, d2)
			}
		}
		return queue
	}
	key := def.Specifier + "#" + strconv.Itoa(int(def.Symbol))
	if b.visited[key] {
		return queue
	}
	b.visited[key] = true
	return append(queue, pending{def.Specifier, def.Symbol})
}

func (b *Bundler) recordRemote(def definition) {
	if !b.seenRemote(def.RemoteSpecifier) {
		b.remoteOrder = append(b.remoteOrder, def.RemoteSpecifier)
	}
	if def.IsDefault {
		b.remoteDefault[def.RemoteSpecifier] = true
	}
}

func (b *Bundler) seenRemote(spec string) bool {
	for _, s := range b.remoteOrder {
		if s == spec {
			return true
		}
	}
	return false
}

func (b *Bundler) markWrapped(spec string) {
	if !b.wrapped[spec] {
		b.wrapped[spec] = true
	}
	b.touchModule(spec)
}

func (b *Bundler) touchModule(spec string) {
	if _, ok := b.moduleDecls[spec]; !ok {
		b.moduleDecls[spec] = nil
		b.moduleOrder = append(b.moduleOrder, spec)
	}
}

// process renders one queued symbol and discovers further references.
func (b *Bundler) process(item pending, queue []pending) []pending {
	tab, ok := b.graph.Index.Get(item.specifier)
	if !ok {
		return queue
	}
	sym, ok := tab.Symbols[item.symbol]
	if !ok || sym.Kind == symtab.SymbolDefaultExportSlot {
		return queue
	}

	moduleID := b.graph.Index.ModuleIDFor(item.specifier)
	b.registry.NameFor(moduleID, sym, false)
	b.touchModule(item.specifier)

	source, hasSource := b.graph.Sources[graph.ModuleSpecifier(item.specifier)]
	if hasSource {
		for _, part := range b.renderSymbol(item.specifier, source, tab, sym) {
			b.moduleDecls[item.specifier] = append(b.moduleDecls[item.specifier], part)
		}
	}

	for dep := range sym.Deps {
		target, ok := tab.Lookup(dep)
		if !ok {
			continue
		}
		def, ok := resolveDefinition(b.graph, item.specifier, target.ID)
		if !ok {
			continue
		}
		queue = b.enqueue(queue, def)
	}
	return queue
}

// renderSymbol stitches sym's declaration(s) together with its structural
// DeclEdits and identifier-rewrite edits, recursing into namespace children.
func (b *Bundler) renderSymbol(specifier string, source []byte, tab *symtab.ModuleSymbolTable, sym *symtab.Symbol) []string {
	var parts []string
	for _, loc := range sym.Decls {
		edits := b.editsFor(specifier, source, tab, sym, loc.StartByte)
		if sym.Kind == symtab.SymbolNamespace {
			b.collectNamespaceChildEdits(specifier, source, tab, sym.Name, sym, &edits)
		}
		printerEdits := make([]printer.Edit, len(edits))
		for i, e := range edits {
			printerEdits[i] = printer.Edit(e)
		}
		rendered := printer.Render(source, loc.StartByte, loc.EndByte, printerEdits)
		rendered = printer.WithLeadingJSDoc(source, loc.StartByte, rendered)
		parts = append(parts, rendered)
	}
	return parts
}

type editRange = printer.Edit

// editsFor returns the combined structural + identifier-rewrite edit list
// for one declaration site of sym.
func (b *Bundler) editsFor(specifier string, source []byte, tab *symtab.ModuleSymbolTable, sym *symtab.Symbol, declStart uint32) []editRange {
	var edits []editRange
	for _, e := range sym.DeclEdits[declStart] {
		edits = append(edits, editRange{Start: e.Start, End: e.End, Text: e.Text})
	}
	for binding, locs := range sym.RefSites {
		target, ok := tab.Lookup(binding)
		if !ok {
			continue
		}
		def, ok := resolveDefinition(b.graph, specifier, target.ID)
		if !ok {
			continue
		}
		replacement, ok := b.referenceText(def)
		if !ok {
			continue
		}
		for _, loc := range locs {
			edits = append(edits, editRange{Start: loc.StartByte, End: loc.EndByte, Text: replacement})
		}
	}
	return edits
}

// collectNamespaceChildEdits folds every child declaration's own edits into
// the parent namespace's render pass, so the whole `namespace Foo { ... }`
// body is rewritten in a single printer.Render call over the namespace's
// full byte range (§4.3.2's identifier rewriting applies uniformly whether
// a declaration sits at module top level or nested in a namespace).
func (b *Bundler) collectNamespaceChildEdits(specifier string, source []byte, tab *symtab.ModuleSymbolTable, scope string, ns *symtab.Symbol, edits *[]editRange) {
	for binding, id := range tab.Bindings {
		if binding.Scope != scope {
			continue
		}
		child, ok := tab.Symbols[id]
		if !ok || child == ns {
			continue
		}
		for _, loc := range child.Decls {
			*edits = append(*edits, b.editsFor(specifier, source, tab, child, loc.StartByte)...)
		}
		if child.Kind == symtab.SymbolNamespace {
			childScope := child.Name
			if scope != "" {
				childScope = scope + "." + child.Name
			}
			b.collectNamespaceChildEdits(specifier, source, tab, childScope, child, edits)
		}
	}
}

// referenceText renders the identifier text a reference to def should be
// rewritten to.
func (b *Bundler) referenceText(def definition) (string, bool) {
	if def.IsRemote {
		id := b.graph.Index.ModuleIDFor(def.RemoteSpecifier)
		if def.Namespace {
			return id.ValueNamespace(), true
		}
		if def.IsDefault {
			return id.DefaultNamespace() + ".__default", true
		}
		if def.Name != "" {
			return id.ValueNamespace() + "." + def.Name, true
		}
		return id.ValueNamespace(), true
	}
	if def.Namespace {
		modID := b.graph.Index.ModuleIDFor(def.Specifier)
		return b.registry.NameFor(modID, &symtab.Symbol{ID: -1}, true), true
	}
	modID := b.graph.Index.ModuleIDFor(def.Specifier)
	name, ok := b.registry.Lookup(modID, def.Symbol)
	if !ok {
		return "", false
	}
	if b.wrapped[def.Specifier] {
		wrapName := b.registry.NameFor(modID, &symtab.Symbol{ID: -1}, true)
		return wrapName + "." + name, true
	}
	return name, true
}

func (b *Bundler) finalName(def definition) (string, bool) {
	if def.IsRemote || def.Namespace {
		return b.referenceText(def)
	}
	modID := b.graph.Index.ModuleIDFor(def.Specifier)
	return b.registry.Lookup(modID, def.Symbol)
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l == "" {
			continue
		}
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

func onlyPlumbing(decls []string) bool {
	for _, d := range decls {
		trimmed := strings.TrimSpace(d)
		if !strings.HasPrefix(trimmed, "import ") && !strings.HasPrefix(trimmed, "export ") {
			return false
		}
	}
	return true
}
