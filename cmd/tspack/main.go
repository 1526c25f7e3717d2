// Command tspack is the CLI front end for pkg/pack: bundle one or more
// TypeScript entry points into single-file JS + .d.ts pairs, watch a
// workspace and rebuild on change, or serve the pack operation over MCP.
//
// Grounded on the teacher's cmd/uispec/main.go: a flat os.Args[1] command
// switch (no flag-parsing framework), per-command arg scanning, "not yet
// implemented" left only where this project's Non-goals say so.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tspack/tspack/internal/config"
	"github.com/tspack/tspack/internal/graph"
	"github.com/tspack/tspack/internal/mcpserver"
	"github.com/tspack/tspack/internal/obslog"
	"github.com/tspack/tspack/pkg/pack"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "pack":
		runPack(os.Args[2:])
	case "watch":
		runWatch(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	case "version":
		fmt.Printf("tspack %s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tspack - bundle a TypeScript module graph into one JS file and one .d.ts file

Usage:
  tspack pack --entry <glob> [--import-map <path>] [--out-js <path>] [--out-dts <path>]
  tspack watch --entry <glob> [--out-js <path>] [--out-dts <path>]
  tspack serve
  tspack version
  tspack help`)
}

// cliOptions is the parsed set of flags common to pack/watch, merged over
// tspack.config.yaml's defaults (flags win).
type cliOptions struct {
	entry     string
	importMap string
	outJS     string
	outDts    string
	cfg       config.Config
}

func parseOptions(args []string) cliOptions {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "tspack: %v\n", err)
	}

	opts := cliOptions{
		entry:     cfg.EntryPoint,
		importMap: cfg.ImportMap,
		outJS:     config.StringOr(cfg.OutJS, "bundle.js"),
		outDts:    config.StringOr(cfg.OutDts, "bundle.d.ts"),
		cfg:       cfg,
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--entry":
			if i+1 < len(args) {
				i++
				opts.entry = args[i]
			}
		case "--import-map":
			if i+1 < len(args) {
				i++
				opts.importMap = args[i]
			}
		case "--out-js":
			if i+1 < len(args) {
				i++
				opts.outJS = args[i]
			}
		case "--out-dts":
			if i+1 < len(args) {
				i++
				opts.outDts = args[i]
			}
		}
	}
	return opts
}

// resolveEntries expands opts.entry as a doublestar glob against the
// working directory, turning each match into an absolute file:// specifier.
// A non-glob, already-absolute (file:// or http(s)://) entry passes through
// unchanged.
func resolveEntries(entry string) ([]string, error) {
	if entry == "" {
		return nil, fmt.Errorf("no entry point given (use --entry or tspack.config.yaml's entry_point)")
	}
	if hasURLScheme(entry) {
		return []string{entry}, nil
	}

	matches, err := doublestar.FilepathGlob(entry)
	if err != nil {
		return nil, fmt.Errorf("expanding entry glob %q: %w", entry, err)
	}
	if len(matches) == 0 {
		abs, err := filepath.Abs(entry)
		if err != nil {
			return nil, err
		}
		return []string{"file://" + abs}, nil
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		abs, err := filepath.Abs(m)
		if err != nil {
			return nil, err
		}
		out = append(out, "file://"+abs)
	}
	return out, nil
}

func hasURLScheme(s string) bool {
	for _, prefix := range []string{"file://", "http://", "https://"} {
		if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

func runPack(args []string) {
	opts := parseOptions(args)
	entries, err := resolveEntries(opts.entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tspack: %v\n", err)
		os.Exit(1)
	}

	logger := obslog.New(opts.cfg.LogConfig(os.Stderr))

	for _, entry := range entries {
		if err := buildOnce(context.Background(), entry, opts, logger); err != nil {
			fmt.Fprintf(os.Stderr, "tspack: %v\n", err)
			os.Exit(1)
		}
	}
}

func buildOnce(ctx context.Context, entry string, opts cliOptions, logger *slog.Logger) error {
	fileLoader := graph.NewFileLoader(nil, logger)
	defer fileLoader.Close()
	httpLoader, err := graph.NewHTTPLoader(256, logger)
	if err != nil {
		return err
	}

	var importMapJSON []byte
	if opts.importMap != "" {
		resp, err := fileLoader.Load(ctx, graph.ModuleSpecifier(opts.importMap), false)
		if err != nil {
			return fmt.Errorf("loading import map: %w", err)
		}
		if resp.Module != nil {
			importMapJSON = resp.Module.Content
		}
	}

	out, err := pack.Pack(ctx, pack.Options{
		EntryPoint:         entry,
		ImportMapJSON:      importMapJSON,
		ImportMapSpecifier: opts.importMap,
		FileLoader:         fileLoader,
		HTTPLoader:         httpLoader,
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(opts.outJS, []byte(out.JS), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", opts.outJS, err)
	}
	if err := os.WriteFile(opts.outDts, []byte(out.Dts), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", opts.outDts, err)
	}
	fmt.Printf("tspack: wrote %s and %s\n", opts.outJS, opts.outDts)
	return nil
}

func runServe(args []string) {
	cfg, _ := config.Load("")
	logger := obslog.New(cfg.LogConfig(os.Stderr))
	srv := mcpserver.NewServer(logger)
	if err := srv.ServeStdio(); err != nil {
		fmt.Fprintf(os.Stderr, "tspack: mcp server error: %v\n", err)
		os.Exit(1)
	}
}
