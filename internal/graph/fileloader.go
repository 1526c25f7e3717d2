package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tspack/tspack/internal/obslog"
	"github.com/tspack/tspack/pkg/util"
)

// FileLoader serves "file://" specifiers from an mmap-backed cache, reusing
// the teacher's FileCache for O(1) byte-range access (the same structure
// the printer later uses to slice declaration ranges out of the original
// source).
type FileLoader struct {
	cache  util.FileCache
	logger *slog.Logger
}

// NewFileLoader builds a FileLoader. A nil config uses
// util.DefaultFileCacheConfig; a nil logger discards output.
func NewFileLoader(config *util.FileCacheConfig, logger *slog.Logger) *FileLoader {
	if logger == nil {
		logger = obslog.Nop()
	}
	if config == nil {
		config = util.DefaultFileCacheConfig()
		config.Logger = logger
	}
	return &FileLoader{cache: util.NewFileCache(config), logger: logger}
}

func (l *FileLoader) Load(ctx context.Context, specifier ModuleSpecifier, isDynamic bool) (*LoadResponse, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	path := strings.TrimPrefix(string(specifier), "file://")
	mf, err := l.cache.Get(path)
	if err != nil {
		return nil, fmt.Errorf("graph: load %q: %w", specifier, err)
	}
	content, err := l.cache.FetchCode(path, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("graph: read %q: %w", specifier, err)
	}
	_ = mf
	return &LoadResponse{Module: &ModuleSource{Specifier: specifier, Content: []byte(content)}}, nil
}

// Close releases the underlying FileCache's mmap'd regions.
func (l *FileLoader) Close() error {
	return l.cache.Close()
}
