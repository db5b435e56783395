// Package config loads, normalizes, and validates previewcache configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and centralizes every knob the CLI and the
// preview manager need: cache locations, chunk sizing, debounce timing, and
// the external transcoder command.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
