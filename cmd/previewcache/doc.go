// Package main hosts the previewcache CLI entrypoint and command graph.
//
// The Cobra-based command tree opens a project's preview cache session,
// runs render passes, watches project files for edits, and exposes
// status, range, cleanup and configuration utilities. Command handlers
// stay thin; the preview semantics live in the internal packages.
package main
