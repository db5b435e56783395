package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"previewcache/internal/cachedir"
	"previewcache/internal/config"
	"previewcache/internal/ledger"
	"previewcache/internal/logging"
	"previewcache/internal/preview"
	"previewcache/internal/project"
	"previewcache/internal/render"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// session bundles the full preview stack for one project file.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *project.Store
	led    *ledger.Ledger
	cache  *cachedir.Manager
	mgr    *preview.Manager
}

// openSession opens the project sidecar store, claims the cache directory
// and wires the preview manager. The observer may be nil.
func (c *commandContext) openSession(projectPath string, observer preview.Observer) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	// log to the file only; command output stays on stdout
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{logging.LogFilePath(cfg)},
	})
	if err != nil {
		return nil, err
	}

	path, err := config.ExpandPath(strings.TrimSpace(projectPath))
	if err != nil {
		return nil, err
	}
	store, err := project.Open(path, project.Profile{
		Extension:  cfg.Preview.ProfileExtension,
		Parameters: cfg.Preview.ProfileParameters,
	})
	if err != nil {
		return nil, err
	}

	led := ledger.New(cfg.Preview.ChunkSize)
	cache := cachedir.New(store, cfg.Preview.ChunkSize, logger)
	if err := cache.Initialize(cfg.Paths.CacheRoot); err != nil {
		_ = store.Close()
		return nil, err
	}

	renderer := render.New(cfg, cache, logger)
	mgr := preview.NewManager(cfg, store, led, cache, renderer, observer, logger)

	s := &session{cfg: cfg, logger: logger, store: store, led: led, cache: cache, mgr: mgr}
	s.restoreState()
	return s, nil
}

// restoreState reloads the persisted preview range and reconciles the
// ledger with the chunk files already on disk.
func (s *session) restoreState() {
	if chunks, err := s.store.PreviewRange(context.Background()); err == nil && len(chunks) > 0 {
		s.led.AddRange(chunks, true)
	}
	if live, err := s.cache.LiveChunks(); err == nil {
		s.led.MarkRestored(live)
	}
}

// saveRange persists the current preview range so later runs resume it.
func (s *session) saveRange(ctx context.Context) error {
	return s.store.SavePreviewRange(ctx, s.led.RangeChunks())
}

func (s *session) Close() error {
	err := s.mgr.Close()
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
