package errs_test

import (
	"errors"
	"strings"
	"testing"

	"previewcache/internal/errs"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := errs.Wrap(errs.ErrExternalTool, "renderer", "transcode", "chunk 50 failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errs.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"renderer", "transcode", "chunk 50"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := errs.Wrap(nil, "cachedir", "restore", "", nil)
	if !errors.Is(err, errs.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestIsFatal(t *testing.T) {
	cfgErr := errs.Wrap(errs.ErrConfiguration, "cachedir", "initialize", "bad document id", nil)
	if !errs.IsFatal(cfgErr) {
		t.Fatal("configuration errors are fatal")
	}
	missingErr := errs.Wrap(errs.ErrNotFound, "project", "stat file", "project file not found", nil)
	if !errs.IsFatal(missingErr) {
		t.Fatal("a missing project file is fatal")
	}
	toolErr := errs.Wrap(errs.ErrExternalTool, "renderer", "transcode", "", nil)
	if errs.IsFatal(toolErr) {
		t.Fatal("tool errors leave chunks dirty for retry, not fatal")
	}
}
