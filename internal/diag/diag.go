// Package diag implements spec.md §6/§7's Diagnostic + Reporter
// collaborator: the channel through which in-core recoverable issues are
// surfaced without failing the bundle.
package diag

import (
	"log/slog"
)

// Kind enumerates the diagnostic kinds spec.md names explicitly.
type Kind string

const (
	KindUnsupportedConstruct         Kind = "unsupported-construct"
	KindUnsupportedDefaultExpression Kind = "unsupported-default-expression"
	KindUnresolvedDependency         Kind = "unresolved-dependency"
	KindMissingReturnType            Kind = "missing-return-type"
	KindUnsupportedPattern           Kind = "unsupported-pattern"
)

// Position is a 1-based line/column, omitted when not available.
type Position struct {
	Line   int
	Column int
}

// Diagnostic is the wire shape from spec.md §6.
type Diagnostic struct {
	Kind       Kind
	Message    string
	Specifier  string
	Position   *Position
}

// Reporter receives diagnostics; it never errors or panics — a Reporter
// implementation that could fail is a contract violation.
type Reporter interface {
	Diagnostic(d Diagnostic)
}

// SlogReporter forwards diagnostics to a structured logger at Warn level,
// grounded on the teacher's structured-logging convention (superseded by
// internal/obslog; see DESIGN.md).
type SlogReporter struct {
	Logger *slog.Logger
}

// NewSlogReporter builds a SlogReporter; a nil logger uses slog.Default().
func NewSlogReporter(logger *slog.Logger) *SlogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogReporter{Logger: logger}
}

func (r *SlogReporter) Diagnostic(d Diagnostic) {
	args := []any{"kind", string(d.Kind), "specifier", d.Specifier}
	if d.Position != nil {
		args = append(args, "line", d.Position.Line, "column", d.Position.Column)
	}
	r.Logger.Warn(d.Message, args...)
}

// CollectingReporter accumulates diagnostics in memory, for tests and for
// callers (like the MCP tool) that want to return them alongside the
// bundle rather than only logging them.
type CollectingReporter struct {
	Diagnostics []Diagnostic
}

func (r *CollectingReporter) Diagnostic(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
}

// TeeReporter fans a diagnostic out to every wrapped Reporter.
func TeeReporter(reporters ...Reporter) Reporter {
	return teeReporter(reporters)
}

type teeReporter []Reporter

func (t teeReporter) Diagnostic(d Diagnostic) {
	for _, r := range t {
		if r != nil {
			r.Diagnostic(d)
		}
	}
}
