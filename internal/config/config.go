package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Paths contains directory configuration.
type Paths struct {
	CacheRoot string `toml:"cache_root"`
	LogDir    string `toml:"log_dir"`
}

// Preview contains timeline preview behavior settings.
type Preview struct {
	// ChunkSize is the preview chunk length in frames. Chunk start frames
	// are always multiples of this value.
	ChunkSize int `toml:"chunk_size"`
	// DebounceSeconds is the delay between the last dirty-chunk
	// notification and the start of a background render pass.
	DebounceSeconds int  `toml:"debounce_seconds"`
	AutoPreview     bool `toml:"auto_preview"`
	// ProfileExtension and ProfileParameters seed documents that have no
	// preview profile of their own.
	ProfileExtension  string `toml:"profile_extension"`
	ProfileParameters string `toml:"profile_parameters"`
}

// Renderer contains settings for the external transcoder process.
type Renderer struct {
	Binary string `toml:"binary"`
	// ChunkTimeout bounds a single chunk transcode in seconds. Zero means
	// no timeout.
	ChunkTimeout int `toml:"chunk_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the preview cache tool.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Preview  Preview  `toml:"preview"`
	Renderer Renderer `toml:"renderer"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/previewcache/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("previewcache.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the cache root and log directory.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheRoot, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Debounce returns the debounce interval as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Preview.DebounceSeconds) * time.Second
}

// ChunkTimeout returns the per-chunk transcode timeout, zero when unbounded.
func (c *Config) ChunkTimeout() time.Duration {
	return time.Duration(c.Renderer.ChunkTimeout) * time.Second
}
