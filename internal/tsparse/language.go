// Package tsparse wraps tree-sitter parsing of TypeScript and JavaScript
// module sources. It is the "source parsing" collaborator named in
// spec.md §1 — the analyzer (internal/symtab) consumes its output but the
// grammar-level work lives here.
package tsparse

import (
	"path/filepath"
	"strings"
)

// Language identifies which tree-sitter grammar to parse a module with.
type Language int

const (
	LanguageTypeScript Language = iota
	LanguageJavaScript
	LanguageJSON
	LanguageUnknown
)

func (l Language) String() string {
	switch l {
	case LanguageTypeScript:
		return "typescript"
	case LanguageJavaScript:
		return "javascript"
	case LanguageJSON:
		return "json"
	default:
		return "unknown"
	}
}

// DetectLanguage infers a Language from a module specifier's extension.
// Remote specifiers (http/https) still have a path component we can key
// off of; a missing/unknown extension defaults to TypeScript, matching
// how extensionless remote specifiers are commonly authored.
func DetectLanguage(specifier string) Language {
	ext := strings.ToLower(filepath.Ext(stripQuery(specifier)))
	switch ext {
	case ".ts", ".mts", ".cts", ".d.ts":
		return LanguageTypeScript
	case ".tsx":
		return LanguageTypeScript
	case ".js", ".jsx", ".mjs", ".cjs":
		return LanguageJavaScript
	case ".json":
		return LanguageJSON
	default:
		return LanguageTypeScript
	}
}

// IsTSXSpecifier reports whether a specifier should be parsed with JSX
// support enabled (TSX grammar variant).
func IsTSXSpecifier(specifier string) bool {
	return strings.ToLower(filepath.Ext(stripQuery(specifier))) == ".tsx"
}

func stripQuery(specifier string) string {
	if i := strings.IndexAny(specifier, "?#"); i >= 0 {
		return specifier[:i]
	}
	return specifier
}
