package symtab

import (
	"log/slog"
	"strings"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/tspack/tspack/internal/diag"
	"github.com/tspack/tspack/internal/obslog"
)

// Index is the ModuleSymbolIndex of spec.md §4.1: one table per analyzed
// module, modules assigned dense IDs in first-seen order, analysis run
// lazily and at most once per module.
type Index struct {
	mu        sync.Mutex
	moduleIDs map[string]ModuleID
	tables    map[string]*ModuleSymbolTable
	nextID    ModuleID

	reporter diag.Reporter
	logger   *slog.Logger
}

// NewIndex constructs an empty Index. A nil reporter discards diagnostics;
// a nil logger discards log output.
func NewIndex(reporter diag.Reporter, logger *slog.Logger) *Index {
	if logger == nil {
		logger = obslog.Nop()
	}
	return &Index{
		moduleIDs: make(map[string]ModuleID),
		tables:    make(map[string]*ModuleSymbolTable),
		reporter:  reporter,
		logger:    logger,
	}
}

// ModuleIDFor returns the dense ModuleID for specifier, assigning the next
// one on first sight. Stable across the lifetime of the Index.
func (ix *Index) ModuleIDFor(specifier string) ModuleID {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.moduleIDForLocked(specifier)
}

func (ix *Index) moduleIDForLocked(specifier string) ModuleID {
	if id, ok := ix.moduleIDs[specifier]; ok {
		return id
	}
	id := ix.nextID
	ix.nextID++
	ix.moduleIDs[specifier] = id
	return id
}

// Get returns the table for specifier if it has been analyzed.
func (ix *Index) Get(specifier string) (*ModuleSymbolTable, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	t, ok := ix.tables[specifier]
	return t, ok
}

// SpecifierFor reverse-looks-up the specifier a ModuleID was assigned to.
func (ix *Index) SpecifierFor(id ModuleID) (string, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for spec, mid := range ix.moduleIDs {
		if mid == id {
			return spec, true
		}
	}
	return "", false
}

func (ix *Index) report(d diag.Diagnostic) {
	if ix.reporter != nil {
		ix.reporter.Diagnostic(d)
	}
}

// AnalyzeRemote registers a remote (http/https) module without walking its
// body: spec.md §4.1 treats remote bodies as opaque, and spec.md §4.2's
// tracer never enqueues symbols from a remote target (it only flags the
// module remote), so a remote table carries no declarations.
func (ix *Index) AnalyzeRemote(specifier string) *ModuleSymbolTable {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if t, ok := ix.tables[specifier]; ok {
		return t
	}
	id := ix.moduleIDForLocked(specifier)
	t := newModuleSymbolTable(id, specifier)
	ix.tables[specifier] = t
	return t
}

// Analyze builds specifier's ModuleSymbolTable from its parsed tree.
// Idempotent: a second call for an already-analyzed specifier returns the
// existing table without re-walking the tree.
func (ix *Index) Analyze(specifier string, tree *ts.Tree, source []byte) (*ModuleSymbolTable, error) {
	ix.mu.Lock()
	if t, ok := ix.tables[specifier]; ok {
		ix.mu.Unlock()
		return t, nil
	}
	id := ix.moduleIDForLocked(specifier)
	ix.mu.Unlock()

	table := newModuleSymbolTable(id, specifier)
	a := &moduleAnalysis{
		table:     table,
		source:    source,
		specifier: specifier,
		index:     ix,
	}
	root := tree.RootNode()
	table.HasTopLevelAwait = hasTopLevelAwait(root)
	a.walkBlock(root, "", false)

	ix.mu.Lock()
	ix.tables[specifier] = table
	ix.mu.Unlock()

	return table, nil
}

// moduleAnalysis is the per-call scratch state for one Analyze invocation;
// it never escapes Analyze.
type moduleAnalysis struct {
	table     *ModuleSymbolTable
	source    []byte
	specifier string
	index     *Index
}

func (a *moduleAnalysis) text(n *ts.Node) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(a.source)
}

func (a *moduleAnalysis) location(n *ts.Node) Location {
	start := n.StartPosition()
	end := n.EndPosition()
	return Location{
		Specifier:   a.specifier,
		StartLine:   uint32(start.Row) + 1,
		StartColumn: uint32(start.Column) + 1,
		EndLine:     uint32(end.Row) + 1,
		EndColumn:   uint32(end.Column) + 1,
		StartByte:   uint32(n.StartByte()),
		EndByte:     uint32(n.EndByte()),
	}
}

// hasLeadingInternalJSDoc scans the source bytes immediately preceding n
// for an adjacent /** ... */ block comment containing an @internal tag.
// This is a byte-level scan rather than a tree-sitter comment-node walk
// because the grammars expose comments as "extra" nodes whose adjacency to
// a following declaration is easiest to confirm by looking at the raw gap.
func (a *moduleAnalysis) hasLeadingInternalJSDoc(n *ts.Node) bool {
	start := int(n.StartByte())
	if start > len(a.source) {
		return false
	}
	before := a.source[:start]
	trimmed := strings.TrimRight(string(before), " \t\r\n")
	if !strings.HasSuffix(trimmed, "*/") {
		return false
	}
	open := strings.LastIndex(trimmed, "/**")
	if open < 0 {
		return false
	}
	comment := trimmed[open:]
	return strings.Contains(comment, "@internal")
}

func (a *moduleAnalysis) report(kind diag.Kind, n *ts.Node, message string) {
	pos := &diag.Position{}
	if n != nil {
		p := n.StartPosition()
		pos.Line = int(p.Row) + 1
		pos.Column = int(p.Column) + 1
	}
	a.index.report(diag.Diagnostic{
		Kind:      kind,
		Message:   message,
		Specifier: a.specifier,
		Position:  pos,
	})
}

func bindingOf(scope, name string) BindingID {
	return BindingID{Name: name, Scope: scope}
}
