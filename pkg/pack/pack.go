// Package pack is tspack's public entry point: spec.md §6's single async
// call taking an Options value and returning a PackOutput. It wires the
// graph builder, the tracer, and the two sibling bundlers (dtsbundle,
// jsbundle) into the one pipeline spec.md §2's architecture diagram shows.
//
// Grounded on the teacher's pkg/indexer.Index (the single exported
// orchestration entry point that owns the whole build-then-extract
// pipeline and its collaborators' lifetimes).
package pack

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tspack/tspack/internal/diag"
	"github.com/tspack/tspack/internal/dtsbundle"
	"github.com/tspack/tspack/internal/graph"
	"github.com/tspack/tspack/internal/jsbundle"
	"github.com/tspack/tspack/internal/obslog"
	"github.com/tspack/tspack/internal/symtab"
	"github.com/tspack/tspack/internal/tracer"
	"github.com/tspack/tspack/internal/tsparse"
)

// Options configures one Pack call (spec.md §6's Inputs).
type Options struct {
	// EntryPoint is the root module's absolute specifier.
	EntryPoint string
	// ImportMapJSON is the raw (jsonc-tolerant) content of an import map,
	// when one applies. Optional.
	ImportMapJSON []byte
	// ImportMapSpecifier is surfaced back on Output.ImportMap so callers can
	// tell which map (if any) was honored.
	ImportMapSpecifier string

	// FileLoader and HTTPLoader fetch module sources; a nil HTTPLoader
	// leaves remote specifiers unfetchable (they resolve to External).
	FileLoader graph.Loader
	HTTPLoader graph.Loader

	// Reporter receives in-core diagnostics (spec.md §7); nil discards them.
	Reporter diag.Reporter
	// Logger receives structured operational logging; nil discards it.
	Logger *slog.Logger
}

// Output is spec.md §6's PackOutput.
type Output struct {
	JS               string
	Dts              string
	ImportMap        string
	HasDefaultExport bool
}

// Pack runs the full pipeline: build the module graph, trace the public
// closure from the root export set, then run the declaration bundler and
// the JS bundler over the same traced graph.
func Pack(ctx context.Context, opts Options) (Output, error) {
	logger := opts.Logger
	if logger == nil {
		logger = obslog.Nop()
	}

	var importMap *graph.ImportMap
	if len(opts.ImportMapJSON) > 0 {
		m, err := graph.ParseImportMap(opts.ImportMapJSON)
		if err != nil {
			return Output{}, fmt.Errorf("pack: %w", err)
		}
		importMap = m
	}

	parser := tsparse.NewManager(logger)
	defer parser.Close()

	index := symtab.NewIndex(opts.Reporter, logger)

	builder := &graph.Builder{
		FileLoader: opts.FileLoader,
		HTTPLoader: opts.HTTPLoader,
		Parser:     parser,
		Index:      index,
		ImportMap:  importMap,
		Logger:     logger,
	}

	gr, err := builder.Build(ctx, opts.EntryPoint)
	if err != nil {
		return Output{}, err
	}
	defer gr.Close()

	t := tracer.New(gr, opts.Reporter, logger)
	if err := t.Trace(opts.EntryPoint); err != nil {
		return Output{}, fmt.Errorf("pack: trace %q: %w", opts.EntryPoint, err)
	}

	dts, hasDefaultFromDts, err := dtsbundle.New(gr).Bundle(opts.EntryPoint)
	if err != nil {
		return Output{}, fmt.Errorf("pack: bundle declarations: %w", err)
	}

	js, hasDefaultFromJs, err := jsbundle.New(gr).Bundle(opts.EntryPoint)
	if err != nil {
		return Output{}, fmt.Errorf("pack: bundle runtime: %w", err)
	}

	return Output{
		JS:               js,
		Dts:              dts,
		ImportMap:        opts.ImportMapSpecifier,
		HasDefaultExport: hasDefaultFromDts || hasDefaultFromJs,
	}, nil
}
