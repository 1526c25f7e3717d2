// Package symtab implements spec.md §4.1's ModuleSymbolIndex: per-module
// analysis of a parsed TypeScript/JavaScript module into a ModuleSymbolTable
// of declarations, exports, re-exports, import bindings and intra/inter
// module dependency edges.
//
// It is grounded on the teacher's pkg/extractor (symbol.go's FQN/metadata
// walk, import.go's import/export capture handling), generalized from
// "extract a flat symbol list for an LLM-facing index" to "build the bound,
// cross-referenced symbol graph a declaration bundler can trace and emit."
package symtab

// ModuleID is a dense integer assigned in first-seen order by the analyzer;
// stable for one analysis run. Formats as "pack{id}" for the module's value
// namespace, or "pack{id}Default" for the synthetic default-import
// namespace used when re-exporting a remote module's default passthrough.
type ModuleID int

// ValueNamespace returns this module's pack{id} namespace name.
func (m ModuleID) ValueNamespace() string {
	return formatPackName(int(m), "")
}

// DefaultNamespace returns this module's pack{id}Default namespace name,
// used for the synthetic remote-default-passthrough ambient namespace.
func (m ModuleID) DefaultNamespace() string {
	return formatPackName(int(m), "Default")
}

func formatPackName(id int, suffix string) string {
	return "pack" + itoa(id) + suffix
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// SymbolID is unique within one module; identifies a logical declaration
// (class, function, var, interface, alias, enum, namespace, or the
// synthetic default-export slot). A symbol may carry several declaration
// sites (overload signatures, interface merging, namespace merging).
type SymbolID int

// UniqueSymbolID uniquely names a symbol across the whole module graph.
type UniqueSymbolID struct {
	Module ModuleID
	Symbol SymbolID
}

// BindingID is a (name, scope) pair matching the source's lexical binding
// identity. Two textually identical names in different scopes (e.g. two
// namespaces both declaring `x`) are different bindings. Scope is the
// dot-joined chain of enclosing namespace names ("" at module top level).
type BindingID struct {
	Name  string
	Scope string
}

// FileDepKind distinguishes the three shapes a cross-module reference can
// take.
type FileDepKind int

const (
	// FileDepNamed references one named export (or "default").
	FileDepNamed FileDepKind = iota
	// FileDepStar references an entire module's export set (star re-export
	// or namespace import).
	FileDepStar
	// FileDepDefault references a module's default export specifically.
	FileDepDefault
)

// FileDep names an external (name, specifier) pair: what a symbol imports
// or passes through, and the raw (unresolved) specifier it came from.
type FileDep struct {
	Kind      FileDepKind
	Name      string // populated when Kind == FileDepNamed
	Specifier string // raw import specifier, not yet resolved
}

// Location pinpoints a declaration's source range for later byte-range
// slicing (the printer's input) and for preserving leading JSDoc above a
// declaration. Line/column are 1-based; byte offsets are 0-based, matching
// the teacher's Location convention (pkg/extractor/types.go).
type Location struct {
	Specifier   string
	StartLine   uint32
	StartColumn uint32
	EndLine     uint32
	EndColumn   uint32
	StartByte   uint32
	EndByte     uint32
}

// SymbolKind classifies what shape of declaration a Symbol represents.
type SymbolKind int

const (
	SymbolClass SymbolKind = iota
	SymbolFunction
	SymbolVariable
	SymbolInterface
	SymbolTypeAlias
	SymbolEnum
	SymbolNamespace
	SymbolImportBinding
	SymbolDefaultExportSlot
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolClass:
		return "class"
	case SymbolFunction:
		return "function"
	case SymbolVariable:
		return "variable"
	case SymbolInterface:
		return "interface"
	case SymbolTypeAlias:
		return "type_alias"
	case SymbolEnum:
		return "enum"
	case SymbolNamespace:
		return "namespace"
	case SymbolImportBinding:
		return "import_binding"
	case SymbolDefaultExportSlot:
		return "default_export_slot"
	default:
		return "unknown"
	}
}

// Symbol is one logical declaration within a module.
type Symbol struct {
	ID   SymbolID
	Name string
	Kind SymbolKind

	// IsPublic is set by the tracer (internal/tracer); symtab never sets it.
	IsPublic bool

	// Decls is the ordered sequence of declaration sites; each entry's own
	// start is used to locate its leading JSDoc. Multiple entries mean overload
	// signatures, interface merging, or namespace merging.
	Decls []Location

	// Deps are intra-module binding references discovered while scanning
	// this declaration's type positions.
	Deps map[BindingID]struct{}

	// RefSites records every concrete byte range at which a dependency in
	// Deps was actually referenced, so the bundler's identifier-rewriting
	// pass (dtsbundle/jsbundle) can splice the resolved name in with a
	// printer.Edit instead of re-parsing emitted text.
	RefSites map[BindingID][]Location

	// FileDep is set when this symbol is an import binding or a
	// re-export passthrough.
	FileDep *FileDep

	// HasOverloads is true when at least one Decls entry is a signature
	// without a body (so some later entry is the dropped implementation).
	HasOverloads bool

	// IsAmbientModule marks a namespace symbol that represents an entire
	// module's re-export surface (the DtsBundler's "whole-module symbol").
	IsAmbientModule bool

	// DeclEdits holds the per-declaration-site rewrite ops computed once,
	// during analysis, while the original parse tree is still in scope
	// (body stripping, private/@internal member removal, parameter-property
	// conversion). Keyed by the owning Decls[i].StartByte. The bundler
	// applies these together with its own identifier-rewriting edits in a
	// single printer.Render pass per declaration.
	DeclEdits map[uint32][]RewriteEdit

	// Function is set for SymbolFunction (and method-like) symbols.
	Function *FunctionMeta
	// Class is set for SymbolClass symbols.
	Class *ClassMeta
}

// RewriteEdit is symtab's byte-range edit primitive, converted to
// printer.Edit by the bundler; kept separate so symtab does not depend on
// internal/printer.
type RewriteEdit struct {
	Start uint32
	End   uint32
	Text  string
}

// FunctionMeta carries the function-shape facts §4.3.1 needs to rewrite a
// function/method declaration: whether to wrap the return type, and
// whether one needed inferring at all.
type FunctionMeta struct {
	IsAsync               bool
	IsGenerator           bool
	HasExplicitReturnType bool
	ReachableReturn       bool // a return statement is reachable in the body
}

// ClassMeta carries per-class facts the rewriter needs beyond the member
// edit list: whether any member was private (triggering the synthetic
// `#private` marker) and the class-property declarations synthesized for
// constructor parameter properties, in constructor-parameter order.
type ClassMeta struct {
	HasPrivateMember   bool
	ParamPropertyDecls []string
}

// AddDeclEdit appends a rewrite op scoped to the declaration site starting
// at declStart.
func (s *Symbol) AddDeclEdit(declStart uint32, e RewriteEdit) {
	if s.DeclEdits == nil {
		s.DeclEdits = make(map[uint32][]RewriteEdit)
	}
	s.DeclEdits[declStart] = append(s.DeclEdits[declStart], e)
}

// AddDep records an intra-module reference from this symbol's type
// positions.
func (s *Symbol) AddDep(b BindingID) {
	if s.Deps == nil {
		s.Deps = make(map[BindingID]struct{})
	}
	s.Deps[b] = struct{}{}
}

// AddRefSite records the exact source range an identifier reference to b
// occupies, alongside AddDep.
func (s *Symbol) AddRefSite(b BindingID, loc Location) {
	if s.RefSites == nil {
		s.RefSites = make(map[BindingID][]Location)
	}
	s.RefSites[b] = append(s.RefSites[b], loc)
}

// ExportEntry is one (name -> symbol) pair for an export map, kept in
// source order.
type ExportEntry struct {
	Name     string
	SymbolID SymbolID
}

// TracedReExport is a re-export whose target has been resolved across
// module boundaries by the tracer.
type TracedReExport struct {
	Name   string
	Target UniqueSymbolID
}

// ModuleSymbolTable is the per-module analysis result (spec.md §3).
type ModuleSymbolTable struct {
	ModuleID ModuleID
	Specifier string

	// Exports is insertion-ordered (source order).
	Exports []ExportEntry

	// ReExports holds bare `export * from "spec"` specifiers, in source
	// order.
	ReExports []string

	DefaultExportSymbolID *SymbolID

	Bindings map[BindingID]SymbolID
	Symbols  map[SymbolID]*Symbol

	// TracedReExports is filled by the tracer when re-exports resolve
	// across files; insertion-ordered.
	TracedReExports []TracedReExport

	IsLocallyImportedRemote        bool
	IsLocallyImportedRemoteDefault bool

	// HasTopLevelAwait is true iff a syntactic `await` occurs outside any
	// nested function/arrow/method body at module scope (the JsBundler's
	// IIFE-vs-async-IIFE wrapping decision).
	HasTopLevelAwait bool

	nextSymbolID SymbolID
}

func newModuleSymbolTable(id ModuleID, specifier string) *ModuleSymbolTable {
	return &ModuleSymbolTable{
		ModuleID:  id,
		Specifier: specifier,
		Bindings:  make(map[BindingID]SymbolID),
		Symbols:   make(map[SymbolID]*Symbol),
	}
}

// newSymbol allocates a fresh SymbolID and registers an (empty) Symbol.
func (t *ModuleSymbolTable) newSymbol(name string, kind SymbolKind) *Symbol {
	id := t.nextSymbolID
	t.nextSymbolID++
	sym := &Symbol{ID: id, Name: name, Kind: kind}
	t.Symbols[id] = sym
	return sym
}

// bind records that (name, scope) resolves to sym within this module,
// replacing any earlier binding of the same name; merging overloads,
// interfaces and namespaces onto one symbol is bindOrMerge's job.
func (t *ModuleSymbolTable) bind(b BindingID, sym *Symbol) {
	t.Bindings[b] = sym.ID
}

// Lookup resolves a binding to its Symbol, if bound in this module.
func (t *ModuleSymbolTable) Lookup(b BindingID) (*Symbol, bool) {
	id, ok := t.Bindings[b]
	if !ok {
		return nil, false
	}
	sym, ok := t.Symbols[id]
	return sym, ok
}

// ExportSymbolID returns the SymbolID exported under name, if any.
func (t *ModuleSymbolTable) ExportSymbolID(name string) (SymbolID, bool) {
	for _, e := range t.Exports {
		if e.Name == name {
			return e.SymbolID, true
		}
	}
	return 0, false
}

// addExport appends (or, on a duplicate name, overwrites in place) an
// export entry, preserving first-seen position for duplicates.
func (t *ModuleSymbolTable) addExport(name string, id SymbolID) {
	for i, e := range t.Exports {
		if e.Name == name {
			t.Exports[i].SymbolID = id
			return
		}
	}
	t.Exports = append(t.Exports, ExportEntry{Name: name, SymbolID: id})
}
