package tsparse

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	ts "github.com/tree-sitter/go-tree-sitter"
	ts_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	ts_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/tspack/tspack/internal/obslog"
)

type poolKey struct {
	lang  Language
	isTSX bool
}

// Manager owns a lazily-initialized pool of tree-sitter parsers per
// (language, isTSX) combination. Trees returned by Parse must be closed by
// the caller; Manager itself must be closed via Close when no longer
// needed.
type Manager struct {
	mu     sync.RWMutex
	pools  map[poolKey]*parserPool
	logger *slog.Logger
}

// NewManager constructs a Manager. A nil logger falls back to a discard
// logger so library callers never pay for slog.Default()'s side effects.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = obslog.Nop()
	}
	return &Manager{
		pools:  make(map[poolKey]*parserPool),
		logger: logger,
	}
}

// Parse parses source with the grammar for lang (TSX variant if isTSX).
// The returned tree must be closed by the caller.
func (m *Manager) Parse(source []byte, lang Language, isTSX bool) (*ts.Tree, error) {
	if lang == LanguageUnknown || lang == LanguageJSON {
		return nil, fmt.Errorf("tsparse: cannot parse as syntax tree: %s", lang)
	}

	pool, err := m.getOrCreatePool(lang, isTSX)
	if err != nil {
		return nil, fmt.Errorf("tsparse: pool for %s: %w", lang, err)
	}

	parser, err := pool.acquire()
	if err != nil {
		return nil, fmt.Errorf("tsparse: acquire parser: %w", err)
	}
	tree := parser.Parse(source, nil)
	pool.release(parser)

	if tree == nil {
		return nil, fmt.Errorf("tsparse: parser returned nil tree")
	}
	if tree.RootNode().HasError() {
		m.logger.Warn("parse tree contains errors", "language", lang.String())
	}
	return tree, nil
}

// ParseSpecifier parses source, selecting the grammar from specifier's
// extension (including TSX detection).
func (m *Manager) ParseSpecifier(source []byte, specifier string) (*ts.Tree, Language, error) {
	lang := DetectLanguage(specifier)
	if lang == LanguageJSON || lang == LanguageUnknown {
		return nil, lang, nil
	}
	tree, err := m.Parse(source, lang, IsTSXSpecifier(specifier))
	return tree, lang, err
}

// LanguagePointer exposes the raw tree-sitter grammar pointer, used by the
// query compiler to build ts.Language values without re-deriving the
// isTSX/lang switch.
func (m *Manager) LanguagePointer(lang Language, isTSX bool) (unsafe.Pointer, error) {
	switch lang {
	case LanguageTypeScript:
		if isTSX {
			return ts_typescript.LanguageTSX(), nil
		}
		return ts_typescript.LanguageTypescript(), nil
	case LanguageJavaScript:
		return ts_javascript.Language(), nil
	default:
		return nil, fmt.Errorf("tsparse: unsupported language: %s", lang)
	}
}

func (m *Manager) getOrCreatePool(lang Language, isTSX bool) (*parserPool, error) {
	key := poolKey{lang: lang, isTSX: isTSX}

	m.mu.RLock()
	pool, ok := m.pools[key]
	m.mu.RUnlock()
	if ok {
		return pool, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if pool, ok = m.pools[key]; ok {
		return pool, nil
	}

	langPtr, err := m.LanguagePointer(lang, isTSX)
	if err != nil {
		return nil, err
	}
	pool = newParserPool(lang, langPtr, isTSX, optimalPoolSize(0), m.logger)
	m.pools[key] = pool
	return pool, nil
}

// Close releases every parser pool. The Manager cannot be reused afterward.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pool := range m.pools {
		pool.close()
	}
	m.pools = make(map[poolKey]*parserPool)
}
