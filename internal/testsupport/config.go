package testsupport

import (
	"path/filepath"
	"testing"

	"previewcache/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.CacheRoot = filepath.Join(base, "cache")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Preview.ChunkSize = 50
	cfg.Preview.DebounceSeconds = 0
	cfg.Renderer.Binary = "melt-test"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithChunkSize overrides the preview chunk size on the test config.
func WithChunkSize(size int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Preview.ChunkSize = size
	}
}

// WithAutoPreview toggles automatic debounced rendering on the test config.
func WithAutoPreview(enabled bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Preview.AutoPreview = enabled
	}
}
