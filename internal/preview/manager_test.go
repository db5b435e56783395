package preview

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"previewcache/internal/cachedir"
	"previewcache/internal/config"
	"previewcache/internal/ledger"
	"previewcache/internal/render"
	"previewcache/internal/testsupport"
)

type recordingObserver struct {
	mu       sync.Mutex
	progress []render.Progress
	restored [][]int
	dirty    [][2]int
}

func (o *recordingObserver) RenderProgress(chunk int, file string, permille int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = append(o.progress, render.Progress{Chunk: chunk, File: file, Permille: permille})
}

func (o *recordingObserver) ChunksRestored(_ string, chunks []int, _ string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.restored = append(o.restored, append([]int{}, chunks...))
}

func (o *recordingObserver) DirtyRangeChanged(firstFrame, lastFrame int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dirty = append(o.dirty, [2]int{firstFrame, lastFrame})
}

func (o *recordingObserver) lastProgress() (render.Progress, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.progress) == 0 {
		return render.Progress{}, false
	}
	return o.progress[len(o.progress)-1], true
}

func (o *recordingObserver) restoredEvents() [][]int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([][]int{}, o.restored...)
}

type fixture struct {
	cfg   *config.Config
	doc   *testsupport.FakeDocument
	led   *ledger.Ledger
	cache *cachedir.Manager
	exec  *testsupport.FakeExecutor
	obs   *recordingObserver
	mgr   *Manager
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	doc := testsupport.NewFakeDocument()
	led := ledger.New(cfg.Preview.ChunkSize)
	cache := cachedir.New(doc, cfg.Preview.ChunkSize, nil)
	if err := cache.Initialize(cfg.Paths.CacheRoot); err != nil {
		t.Fatalf("initialize cache: %v", err)
	}
	exec := testsupport.NewFakeExecutor()
	obs := &recordingObserver{}
	renderer := render.New(cfg, cache, nil, render.WithExecutor(exec))
	mgr := NewManager(cfg, doc, led, cache, renderer, obs, nil)
	t.Cleanup(func() {
		_ = mgr.Close()
	})
	return &fixture{cfg: cfg, doc: doc, led: led, cache: cache, exec: exec, obs: obs, mgr: mgr}
}

// writeLive plants a live chunk file as if a render pass produced it.
func (f *fixture) writeLive(t *testing.T, chunk int, content string) {
	t.Helper()
	testsupport.WriteFile(t, f.cache.ChunkFile(chunk), content)
}

func (f *fixture) archiveFile(chunk, ix int) string {
	return filepath.Join(f.cache.Dir(), "undo", fmt.Sprintf("%d", ix), f.cache.ChunkFileName(chunk))
}

func TestStartRenderCoversZone(t *testing.T) {
	f := newFixture(t, testsupport.WithAutoPreview(false))

	if err := f.mgr.StartRender(); err != nil {
		t.Fatalf("start render: %v", err)
	}
	f.mgr.Wait()

	// default zone 0..100 with chunk size 50 covers chunks 0, 50, 100
	for _, chunk := range []int{0, 50, 100} {
		if !testsupport.FileExists(t, f.cache.ChunkFile(chunk)) {
			t.Errorf("chunk %d not rendered", chunk)
		}
	}
	if dirty := f.led.DirtyChunks(); len(dirty) != 0 {
		t.Errorf("dirty chunks after pass = %v, want none", dirty)
	}
	if testsupport.FileExists(t, f.cache.ScenePath()) {
		t.Error("scene file survived the pass")
	}
	if len(f.doc.SavedScenes) != 1 {
		t.Errorf("scene saved %d times, want 1", len(f.doc.SavedScenes))
	}
	if last, ok := f.obs.lastProgress(); !ok || last.Permille != 1000 {
		t.Errorf("final progress = %+v, want permille 1000", last)
	}
	if got := f.mgr.State(); got != StateIdle {
		t.Errorf("state after pass = %v, want idle", got)
	}
}

func TestStartRenderSkipsExistingChunks(t *testing.T) {
	f := newFixture(t, testsupport.WithAutoPreview(false))
	if _, err := f.mgr.TogglePreviewRange(true); err != nil {
		t.Fatalf("enable range: %v", err)
	}
	f.writeLive(t, 0, "already rendered")

	if err := f.mgr.StartRender(); err != nil {
		t.Fatalf("start render: %v", err)
	}
	f.mgr.Wait()

	for _, call := range f.exec.Calls {
		for _, arg := range call {
			if arg == "in=0" {
				t.Fatal("transcoder invoked for a chunk that already had a preview")
			}
		}
	}
	if got := testsupport.ReadFile(t, f.cache.ChunkFile(0)); got != "already rendered" {
		t.Errorf("existing chunk rewritten: %q", got)
	}
	if len(f.exec.Calls) != 2 {
		t.Errorf("transcoder calls = %d, want 2", len(f.exec.Calls))
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	f := newFixture(t, testsupport.WithAutoPreview(false))
	chunks := []int{0, 50, 100}
	if _, err := f.mgr.TogglePreviewRange(true); err != nil {
		t.Fatalf("enable range: %v", err)
	}
	for _, chunk := range chunks {
		f.writeLive(t, chunk, fmt.Sprintf("v1-%d", chunk))
	}

	// a fresh edit lands on top of the stack and archives the old previews
	f.doc.SetUndoStack(1, 1)
	f.mgr.MarkDirty(0, 149)
	f.mgr.InvalidatePreviews(chunks)
	for _, chunk := range chunks {
		if testsupport.FileExists(t, f.cache.ChunkFile(chunk)) {
			t.Fatalf("chunk %d still live after forward edit", chunk)
		}
		if got := testsupport.ReadFile(t, f.archiveFile(chunk, 0)); got != fmt.Sprintf("v1-%d", chunk) {
			t.Fatalf("archive 0 chunk %d = %q", chunk, got)
		}
	}

	// the post-edit state gets rendered
	for _, chunk := range chunks {
		f.writeLive(t, chunk, fmt.Sprintf("v2-%d", chunk))
	}

	// undo: the live files are backed up under the top index, then the
	// pre-edit previews come back
	f.doc.SetUndoStack(0, 1)
	f.mgr.InvalidatePreviews(chunks)
	for _, chunk := range chunks {
		if got := testsupport.ReadFile(t, f.cache.ChunkFile(chunk)); got != fmt.Sprintf("v1-%d", chunk) {
			t.Fatalf("after undo chunk %d = %q, want v1", chunk, got)
		}
		if got := testsupport.ReadFile(t, f.archiveFile(chunk, 1)); got != fmt.Sprintf("v2-%d", chunk) {
			t.Fatalf("last-undo backup chunk %d = %q, want v2", chunk, got)
		}
	}

	// redo restores the backed-up post-edit previews
	f.doc.SetUndoStack(1, 1)
	f.mgr.InvalidatePreviews(chunks)
	for _, chunk := range chunks {
		if got := testsupport.ReadFile(t, f.cache.ChunkFile(chunk)); got != fmt.Sprintf("v2-%d", chunk) {
			t.Fatalf("after redo chunk %d = %q, want v2", chunk, got)
		}
	}

	if !f.doc.Modified() {
		t.Error("document not marked modified")
	}
	events := f.obs.restoredEvents()
	if len(events) != 2 {
		t.Fatalf("restore notifications = %d, want 2", len(events))
	}
	for _, event := range events {
		if !reflect.DeepEqual(event, chunks) {
			t.Errorf("restored chunks = %v, want %v", event, chunks)
		}
	}
}

func TestForwardEditsPruneOldArchives(t *testing.T) {
	f := newFixture(t, testsupport.WithAutoPreview(false))

	for i := 1; i <= 7; i++ {
		f.writeLive(t, 0, fmt.Sprintf("edit-%d", i))
		f.doc.SetUndoStack(i, i)
		f.mgr.InvalidatePreviews([]int{0})
	}

	archives, err := f.cache.Archives()
	if err != nil {
		t.Fatalf("list archives: %v", err)
	}
	want := []int{2, 3, 4, 5, 6}
	if !reflect.DeepEqual(archives, want) {
		t.Errorf("archives after 7 edits = %v, want %v", archives, want)
	}
}

func TestRemoveInvalidUndoDropsFutureArchives(t *testing.T) {
	f := newFixture(t, testsupport.WithAutoPreview(false))

	for i := 1; i <= 5; i++ {
		f.writeLive(t, 0, fmt.Sprintf("edit-%d", i))
		f.doc.SetUndoStack(i, i)
		f.mgr.InvalidatePreviews([]int{0})
	}
	if err := f.mgr.RemoveInvalidUndo(2); err != nil {
		t.Fatalf("remove invalid undo: %v", err)
	}

	archives, err := f.cache.Archives()
	if err != nil {
		t.Fatalf("list archives: %v", err)
	}
	if want := []int{0, 1}; !reflect.DeepEqual(archives, want) {
		t.Errorf("archives = %v, want %v", archives, want)
	}
}

func TestAbortCancelsPassWithoutError(t *testing.T) {
	f := newFixture(t, testsupport.WithAutoPreview(false))
	f.exec.Block = make(chan struct{})
	f.exec.Started = make(chan struct{})

	if err := f.mgr.StartRender(); err != nil {
		t.Fatalf("start render: %v", err)
	}
	<-f.exec.Started
	f.mgr.Abort()

	if got := f.mgr.State(); got != StateIdle {
		t.Errorf("state after abort = %v, want idle", got)
	}
	if testsupport.FileExists(t, f.cache.ChunkFile(0)) {
		t.Error("aborted chunk left a preview file")
	}
	if last, ok := f.obs.lastProgress(); !ok || last.Permille != 1000 {
		t.Errorf("final progress = %+v, want permille 1000", last)
	}
	if dirty := f.led.DirtyChunks(); len(dirty) != 3 {
		t.Errorf("dirty chunks after abort = %v, want all three", dirty)
	}
}

func TestChunkFailureStopsPass(t *testing.T) {
	f := newFixture(t, testsupport.WithAutoPreview(false))
	f.exec.FailOn["in=50"] = true

	if err := f.mgr.StartRender(); err != nil {
		t.Fatalf("start render: %v", err)
	}
	f.mgr.Wait()

	if !testsupport.FileExists(t, f.cache.ChunkFile(0)) {
		t.Error("chunk before the failure was not kept")
	}
	if testsupport.FileExists(t, f.cache.ChunkFile(100)) {
		t.Error("chunk after the failure was rendered")
	}
	if last, ok := f.obs.lastProgress(); !ok || last.Chunk != 50 || last.Permille != -1 {
		t.Errorf("final progress = %+v, want chunk 50 permille -1", last)
	}
	if dirty := f.led.DirtyChunks(); !reflect.DeepEqual(dirty, []int{50, 100}) {
		t.Errorf("dirty chunks = %v, want [50 100]", dirty)
	}
	if got := f.mgr.State(); got != StateIdle {
		t.Errorf("state after failure = %v, want idle", got)
	}
}

func TestToggleRangeDisableRemovesFiles(t *testing.T) {
	f := newFixture(t, testsupport.WithAutoPreview(false))
	enabled, err := f.mgr.TogglePreviewRange(true)
	if err != nil {
		t.Fatalf("enable range: %v", err)
	}
	if want := []int{0, 50, 100}; !reflect.DeepEqual(enabled, want) {
		t.Fatalf("enabled chunks = %v, want %v", enabled, want)
	}
	for _, chunk := range enabled {
		f.writeLive(t, chunk, "preview")
	}

	disabled, err := f.mgr.TogglePreviewRange(false)
	if err != nil {
		t.Fatalf("disable range: %v", err)
	}
	if !reflect.DeepEqual(disabled, enabled) {
		t.Errorf("disabled chunks = %v, want %v", disabled, enabled)
	}
	for _, chunk := range enabled {
		if testsupport.FileExists(t, f.cache.ChunkFile(chunk)) {
			t.Errorf("chunk %d file survived disabling", chunk)
		}
	}
	if f.led.HasPreviewRange() {
		t.Error("preview range still present")
	}
}

func TestToggleRangeTruncatesPartialEndChunk(t *testing.T) {
	f := newFixture(t, testsupport.WithAutoPreview(false))

	// The zone ends inside chunk 2; chunk 3 starts past the zone and
	// must not be enabled even though 130 rounds up to it.
	enabled, err := f.mgr.ToggleRange(0, 130, true)
	if err != nil {
		t.Fatalf("enable range: %v", err)
	}
	if want := []int{0, 50, 100}; !reflect.DeepEqual(enabled, want) {
		t.Fatalf("enabled chunks = %v, want %v", enabled, want)
	}
	if dirty := f.led.DirtyChunks(); !reflect.DeepEqual(dirty, []int{0, 50, 100}) {
		t.Errorf("dirty chunks = %v, want [0 50 100]", dirty)
	}

	if extra, err := f.mgr.ToggleRange(150, 199, true); err != nil || !reflect.DeepEqual(extra, []int{150}) {
		t.Errorf("ToggleRange(150, 199) = %v, %v, want [150], nil", extra, err)
	}
}

func TestAutoPreviewRendersAfterDebounce(t *testing.T) {
	f := newFixture(t) // auto preview on, zero debounce

	f.mgr.MarkDirty(0, 10)

	deadline := time.Now().Add(5 * time.Second)
	for {
		if allChunksExist(f, []int{0, 50, 100}) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("debounced render never produced the preview files")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func allChunksExist(f *fixture, chunks []int) bool {
	for _, chunk := range chunks {
		if _, err := os.Stat(f.cache.ChunkFile(chunk)); err != nil {
			return false
		}
	}
	return true
}
