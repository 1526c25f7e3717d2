// Package graph implements spec.md §6's ModuleGraph external collaborator:
// loading module sources (file or remote), parsing an import map, and
// resolving raw import specifiers against a referrer into absolute
// ModuleSpecifier values, classifying remote vs. local along the way.
//
// Grounded on the teacher's pkg/util/filecache.go (mmap-backed byte-range
// access) for local files and pkg/indexer/indexer.go's cache-then-fetch
// idiom, generalized from "index a repo on disk" to "fetch/cache a
// module graph that may span the network."
package graph

import "context"

// ModuleSpecifier is an absolute, resolved module identifier: either a
// "file://" URL or an "http(s)://" URL. Raw, unresolved import strings are
// plain strings until passed through Resolve.
type ModuleSpecifier string

// IsRemote reports whether s names a network-fetched module.
func (s ModuleSpecifier) IsRemote() bool {
	return len(s) >= 7 && (s[:7] == "http://" || (len(s) >= 8 && s[:8] == "https://"))
}

// ModuleSource is a loaded module's content.
type ModuleSource struct {
	Specifier ModuleSpecifier
	Content   []byte
}

// ExternalModule marks a specifier the Loader declines to fetch the body
// of (e.g. a remote module the loader chooses to treat opaquely).
type ExternalModule struct {
	Specifier ModuleSpecifier
}

// LoadResponse is the Loader's result for one specifier: exactly one of
// External or Module is set.
type LoadResponse struct {
	External *ExternalModule
	Module   *ModuleSource
}

// Loader fetches a module's content given its resolved specifier.
// IsDynamic distinguishes a dynamic `import()` target from a static one;
// the core never rewrites dynamic imports (§1 non-goals) but the loader
// contract still threads the flag through for completeness.
type Loader interface {
	Load(ctx context.Context, specifier ModuleSpecifier, isDynamic bool) (*LoadResponse, error)
}
