package project_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"
	"time"

	"previewcache/internal/document"
	"previewcache/internal/errs"
	"previewcache/internal/project"
)

func newStore(t *testing.T) *project.Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "movie.mlt")
	if err := os.WriteFile(path, []byte("<mlt/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := project.Open(path, project.Profile{
		Extension:  "mp4",
		Parameters: "vcodec=libx264",
	})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenMissingProjectFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.mlt")
	_, err := project.Open(path, project.Profile{})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Open on a missing file returned %v, want ErrNotFound", err)
	}
	if !errs.IsFatal(err) {
		t.Error("a missing project file must be fatal")
	}
}

func TestOpenGeneratesNumericDocumentID(t *testing.T) {
	store := newStore(t)

	id := store.Property(document.PropDocumentID)
	if id == "" {
		t.Fatal("expected generated document id")
	}
	ms, err := strconv.ParseInt(id, 10, 64)
	if err != nil || ms <= 0 {
		t.Fatalf("document id must be positive ms-since-epoch, got %q", id)
	}
	if time.UnixMilli(ms).Year() < 2020 {
		t.Fatalf("implausible document id timestamp: %q", id)
	}
}

func TestPropertiesRoundTrip(t *testing.T) {
	store := newStore(t)

	if err := store.SetProperty(document.PropCacheDir, "/tmp/cache/123"); err != nil {
		t.Fatal(err)
	}
	if got := store.Property(document.PropCacheDir); got != "/tmp/cache/123" {
		t.Fatalf("unexpected property value: %q", got)
	}
	if got := store.Property("missing"); got != "" {
		t.Fatalf("missing property must be empty, got %q", got)
	}
}

func TestUndoStackBookkeeping(t *testing.T) {
	store := newStore(t)

	if store.UndoStackCount() != 0 || store.UndoStackIndex() != 0 {
		t.Fatal("expected empty undo stack")
	}

	for i := 0; i < 3; i++ {
		if err := store.PushCommand(); err != nil {
			t.Fatal(err)
		}
	}
	if store.UndoStackCount() != 3 || store.UndoStackIndex() != 3 {
		t.Fatalf("unexpected stack state: count=%d index=%d", store.UndoStackCount(), store.UndoStackIndex())
	}

	if err := store.SetUndoIndex(1); err != nil {
		t.Fatal(err)
	}
	if store.UndoStackIndex() != 1 {
		t.Fatalf("unexpected index after undo: %d", store.UndoStackIndex())
	}

	// Out-of-bounds positions are clamped.
	if err := store.SetUndoIndex(99); err != nil {
		t.Fatal(err)
	}
	if store.UndoStackIndex() != 3 {
		t.Fatalf("expected clamp to stack count, got %d", store.UndoStackIndex())
	}

	// A push below the top discards the redo states above it.
	if err := store.SetUndoIndex(1); err != nil {
		t.Fatal(err)
	}
	if err := store.PushCommand(); err != nil {
		t.Fatal(err)
	}
	if store.UndoStackCount() != 2 || store.UndoStackIndex() != 2 {
		t.Fatalf("unexpected stack state after branch: count=%d index=%d",
			store.UndoStackCount(), store.UndoStackIndex())
	}
}

func TestPickPreviewProfile(t *testing.T) {
	store := newStore(t)

	if store.Property(document.PropPreviewExtension) != "" {
		t.Fatal("expected no extension before profile selection")
	}
	if err := store.PickPreviewProfile(); err != nil {
		t.Fatal(err)
	}
	if got := store.Property(document.PropPreviewExtension); got != "mp4" {
		t.Fatalf("unexpected extension: %q", got)
	}
	if got := store.Property(document.PropPreviewParameters); got != "vcodec=libx264" {
		t.Fatalf("unexpected parameters: %q", got)
	}
}

func TestSaveSceneCopiesProjectFile(t *testing.T) {
	store := newStore(t)

	scene := filepath.Join(t.TempDir(), "preview.mlt")
	if err := store.SaveScene(scene); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(scene)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "<mlt/>" {
		t.Fatalf("scene content mismatch: %q", data)
	}
}

func TestPreviewRangePersistence(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if err := store.SavePreviewRange(ctx, []int{100, 0, 50}); err != nil {
		t.Fatal(err)
	}
	got, err := store.PreviewRange(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []int{0, 50, 100}) {
		t.Fatalf("unexpected range: %v", got)
	}

	if err := store.SavePreviewRange(ctx, nil); err != nil {
		t.Fatal(err)
	}
	got, err = store.PreviewRange(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty range, got %v", got)
	}
}

func TestZoneDefaults(t *testing.T) {
	store := newStore(t)

	first, last := store.Zone()
	if first != 0 || last != 100 {
		t.Fatalf("unexpected default zone: %d-%d", first, last)
	}
	if err := store.SetZone(50, 199); err != nil {
		t.Fatal(err)
	}
	first, last = store.Zone()
	if first != 50 || last != 199 {
		t.Fatalf("unexpected zone: %d-%d", first, last)
	}
}
