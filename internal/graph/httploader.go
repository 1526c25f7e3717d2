package graph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tspack/tspack/internal/obslog"
)

// HTTPLoader fetches "http(s)://" specifiers over the network, caching
// responses in an LRU so a module referenced from several importers is
// only fetched once per run. Grounded on the teacher's indexer cache idiom
// (pkg/indexer/indexer.go keeps a bounded in-memory index of already-seen
// work so a rescan doesn't redo it) applied to remote module fetches
// instead of local file entries.
type HTTPLoader struct {
	client *http.Client
	cache  *lru.Cache[ModuleSpecifier, []byte]
	logger *slog.Logger
}

// NewHTTPLoader builds an HTTPLoader with an LRU of the given capacity
// (0 uses a reasonable default of 256 modules).
func NewHTTPLoader(capacity int, logger *slog.Logger) (*HTTPLoader, error) {
	if logger == nil {
		logger = obslog.Nop()
	}
	if capacity <= 0 {
		capacity = 256
	}
	cache, err := lru.New[ModuleSpecifier, []byte](capacity)
	if err != nil {
		return nil, fmt.Errorf("graph: new http loader cache: %w", err)
	}
	return &HTTPLoader{
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  cache,
		logger: logger,
	}, nil
}

func (l *HTTPLoader) Load(ctx context.Context, specifier ModuleSpecifier, isDynamic bool) (*LoadResponse, error) {
	if body, ok := l.cache.Get(specifier); ok {
		return &LoadResponse{Module: &ModuleSource{Specifier: specifier, Content: body}}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, string(specifier), nil)
	if err != nil {
		return nil, fmt.Errorf("graph: build request for %q: %w", specifier, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph: fetch %q: %w", specifier, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		l.logger.Warn("remote module fetch failed", "specifier", specifier, "status", resp.StatusCode)
		return nil, fmt.Errorf("graph: fetch %q: status %d", specifier, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("graph: read body for %q: %w", specifier, err)
	}
	l.cache.Add(specifier, body)
	return &LoadResponse{Module: &ModuleSource{Specifier: specifier, Content: body}}, nil
}
