package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePreview(); err != nil {
		return err
	}
	if err := c.validateRenderer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePreview() error {
	if c.Preview.ChunkSize <= 0 {
		return errors.New("preview.chunk_size must be a positive frame count")
	}
	if c.Preview.DebounceSeconds < 0 {
		return errors.New("preview.debounce_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateRenderer() error {
	if c.Renderer.Binary == "" {
		return errors.New("renderer.binary must be set")
	}
	if c.Renderer.ChunkTimeout < 0 {
		return errors.New("renderer.chunk_timeout must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
