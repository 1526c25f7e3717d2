package graph

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/tspack/tspack/internal/obslog"
	"github.com/tspack/tspack/internal/symtab"
	"github.com/tspack/tspack/internal/tsparse"
)

// Resolver implements spec.md §3's ModuleGraph.resolve_dependency as a pure,
// synchronous operation: it never performs I/O itself, since by the time
// the tracer calls it every reachable module has already been fetched by
// Builder.Build's BFS (the core's only real yield points, per §5).
type Resolver struct {
	importMap *ImportMap
	known     func(ModuleSpecifier) bool
}

// NewResolver builds a Resolver. importMap may be nil (no remapping).
func NewResolver(importMap *ImportMap) *Resolver {
	return &Resolver{importMap: importMap}
}

// setKnown installs the membership test used for prefer_types sibling
// lookups; called once by Graph after BFS completes.
func (r *Resolver) setKnown(fn func(ModuleSpecifier) bool) {
	r.known = fn
}

// Resolve turns a raw (possibly bare or relative) specifier seen inside
// referrer into an absolute ModuleSpecifier, applying the import map first.
// When preferTypes is set and a ".d.ts" sibling of the resolved target is
// already known to the graph, the sibling is returned instead.
func (r *Resolver) Resolve(raw, referrer string, preferTypes bool) (ModuleSpecifier, bool) {
	target := raw
	if r.importMap != nil {
		if mapped, ok := r.importMap.Resolve(raw); ok {
			target = mapped
		}
	}

	resolved, ok := joinSpecifier(referrer, target)
	if !ok {
		return "", false
	}

	if preferTypes && r.known != nil {
		if sib, ok2 := dtsSibling(resolved); ok2 && r.known(sib) {
			return sib, true
		}
	}
	return resolved, true
}

func hasScheme(s string) bool {
	return strings.HasPrefix(s, "file://") || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func joinSpecifier(referrer, target string) (ModuleSpecifier, bool) {
	if hasScheme(target) {
		return ModuleSpecifier(target), true
	}
	base, err := url.Parse(referrer)
	if err != nil {
		return "", false
	}
	rel, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	return ModuleSpecifier(base.ResolveReference(rel).String()), true
}

func dtsSibling(spec ModuleSpecifier) (ModuleSpecifier, bool) {
	s := string(spec)
	if strings.HasSuffix(s, ".d.ts") {
		return "", false
	}
	for _, ext := range []string{".tsx", ".ts", ".mts", ".cts", ".js", ".mjs", ".cjs"} {
		if strings.HasSuffix(s, ext) {
			return ModuleSpecifier(strings.TrimSuffix(s, ext) + ".d.ts"), true
		}
	}
	return "", false
}

// Graph is the built module graph: every module reachable from Root,
// already loaded and analyzed into the shared symtab.Index.
type Graph struct {
	Root     ModuleSpecifier
	Order    []ModuleSpecifier
	Sources  map[ModuleSpecifier][]byte
	Remote   map[ModuleSpecifier]bool
	Trees    map[ModuleSpecifier]*ts.Tree
	Index    *symtab.Index
	Resolver *Resolver
}

// Close releases every parsed tree this graph retained. The bundlers index
// into these trees by byte range while emitting, so they must stay alive
// for the whole pipeline; callers close the graph only once bundling (both
// dts and js) has finished.
func (g *Graph) Close() {
	for _, tree := range g.Trees {
		if tree != nil {
			tree.Close()
		}
	}
}

// Builder performs the BFS module discovery: load, analyze, harvest the raw
// specifiers the analysis found, resolve and enqueue each.
type Builder struct {
	FileLoader Loader
	HTTPLoader Loader
	Parser     *tsparse.Manager
	Index      *symtab.Index
	ImportMap  *ImportMap
	Logger     *slog.Logger
}

func (b *Builder) loaderFor(spec ModuleSpecifier) Loader {
	if spec.IsRemote() {
		return b.HTTPLoader
	}
	return b.FileLoader
}

// Build runs the BFS from entry, loading and analyzing every reachable
// module. entry must already be an absolute specifier (spec.md §6).
func (b *Builder) Build(ctx context.Context, entry string) (*Graph, error) {
	logger := b.Logger
	if logger == nil {
		logger = obslog.Nop()
	}
	resolver := NewResolver(b.ImportMap)

	root := ModuleSpecifier(entry)
	queue := []ModuleSpecifier{root}
	visited := make(map[ModuleSpecifier]bool)
	var order []ModuleSpecifier
	sources := make(map[ModuleSpecifier][]byte)
	remote := make(map[ModuleSpecifier]bool)
	trees := make(map[ModuleSpecifier]*ts.Tree)

	for len(queue) > 0 {
		spec := queue[0]
		queue = queue[1:]
		if visited[spec] {
			continue
		}
		visited[spec] = true
		order = append(order, spec)

		loader := b.loaderFor(spec)
		resp, err := loader.Load(ctx, spec, false)
		if err != nil {
			return nil, fmt.Errorf("graph: load %q: %w", spec, err)
		}

		if resp.External != nil {
			remote[spec] = true
			b.Index.AnalyzeRemote(string(spec))
			continue
		}

		content := resp.Module.Content
		sources[spec] = content

		if spec.IsRemote() {
			// Remote bodies are opaque regardless of whether the loader
			// fetched them (§4.1): only the export shape would matter,
			// and the tracer never descends past a remote boundary.
			remote[spec] = true
			b.Index.AnalyzeRemote(string(spec))
			continue
		}

		tree, lang, err := b.Parser.ParseSpecifier(content, string(spec))
		if err != nil {
			return nil, fmt.Errorf("graph: parse %q: %w", spec, err)
		}
		if lang == tsparse.LanguageJSON || tree == nil {
			continue // JSON modules carry no declarations to trace
		}
		trees[spec] = tree

		table, err := b.Index.Analyze(string(spec), tree, content)
		if err != nil {
			return nil, fmt.Errorf("graph: analyze %q: %w", spec, err)
		}

		for _, raw := range harvestSpecifiers(table) {
			target, ok := resolver.Resolve(raw, string(spec), false)
			if !ok {
				logger.Warn("unresolved dependency", "specifier", raw, "referrer", spec)
				continue
			}
			if !visited[target] {
				queue = append(queue, target)
			}
		}
	}

	resolver.setKnown(func(s ModuleSpecifier) bool {
		_, ok := sources[s]
		return ok || remote[s]
	})

	return &Graph{
		Root:     root,
		Order:    order,
		Sources:  sources,
		Remote:   remote,
		Trees:    trees,
		Index:    b.Index,
		Resolver: resolver,
	}, nil
}

func harvestSpecifiers(table *symtab.ModuleSymbolTable) []string {
	var out []string
	for _, sym := range table.Symbols {
		if sym.FileDep != nil {
			out = append(out, sym.FileDep.Specifier)
		}
	}
	out = append(out, table.ReExports...)
	return out
}
