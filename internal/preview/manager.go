package preview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"previewcache/internal/cachedir"
	"previewcache/internal/config"
	"previewcache/internal/document"
	"previewcache/internal/errs"
	"previewcache/internal/ledger"
	"previewcache/internal/logging"
	"previewcache/internal/render"
)

// State describes what the manager is currently doing.
type State int

const (
	StateIdle State = iota
	StateDebouncing
	StateRendering
	StateAborting
)

func (s State) String() string {
	switch s {
	case StateDebouncing:
		return "debouncing"
	case StateRendering:
		return "rendering"
	case StateAborting:
		return "aborting"
	default:
		return "idle"
	}
}

// Manager coordinates the chunk ledger, the cache directory and the
// renderer. Edits mark chunks dirty, a debounce timer collapses bursts
// into one render pass, and undo stack movement swaps chunk files
// between the live cache and the undo archive. At most one render
// worker runs at any time.
type Manager struct {
	cfg      *config.Config
	doc      document.Document
	ledger   *ledger.Ledger
	cache    *cachedir.Manager
	renderer *render.Renderer
	observer Observer
	logger   *slog.Logger

	// passMu serializes render scheduling and invalidation passes so a
	// worker is never launched while archive moves are in flight.
	passMu sync.Mutex

	mu           sync.Mutex
	state        State
	timer        *time.Timer
	workerCancel context.CancelFunc
	workerDone   chan struct{}
}

// NewManager wires the preview subsystem together. A nil observer is
// replaced with a no-op one.
func NewManager(cfg *config.Config, doc document.Document, led *ledger.Ledger, cache *cachedir.Manager, renderer *render.Renderer, observer Observer, logger *slog.Logger) *Manager {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Manager{
		cfg:      cfg,
		doc:      doc,
		ledger:   led,
		cache:    cache,
		renderer: renderer,
		observer: observer,
		logger:   logging.NewComponentLogger(logger, "preview"),
	}
}

// State reports the current scheduler state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// MarkDirty flags every chunk overlapping the frame span and, when auto
// preview is enabled, restarts the debounce timer.
func (m *Manager) MarkDirty(firstFrame, lastFrame int) {
	dirty := m.ledger.MarkDirty(firstFrame, lastFrame)
	if len(dirty) == 0 {
		return
	}
	m.observer.DirtyRangeChanged(firstFrame, lastFrame)
	if m.cfg.Preview.AutoPreview {
		m.armTimer()
	}
}

// InvalidateDirtyChunks runs an invalidation pass over every chunk the
// ledger currently holds dirty, then restarts the debounce timer when
// auto preview is enabled.
func (m *Manager) InvalidateDirtyChunks() {
	chunks := m.ledger.DirtyChunks()
	if len(chunks) == 0 {
		return
	}
	m.InvalidatePreviews(chunks)
	size := m.cache.ChunkSize()
	m.observer.DirtyRangeChanged(chunks[0], chunks[len(chunks)-1]+size-1)
	if m.cfg.Preview.AutoPreview {
		m.armTimer()
	}
}

// TogglePreviewRange enables or disables preview rendering for the
// document zone. It returns the chunk starts whose membership changed.
// Disabling removes the corresponding chunk files from the cache.
func (m *Manager) TogglePreviewRange(enable bool) ([]int, error) {
	first, last := m.doc.Zone()
	return m.ToggleRange(first, last, enable)
}

// ToggleRange enables or disables preview rendering for an explicit
// frame span.
func (m *Manager) ToggleRange(firstFrame, lastFrame int, enable bool) ([]int, error) {
	toggled := m.ledger.AddRange(m.zoneFrames(firstFrame, lastFrame), enable)
	if len(toggled) == 0 {
		return nil, nil
	}
	if enable {
		if m.cfg.Preview.AutoPreview {
			m.armTimer()
		}
		return toggled, nil
	}
	m.cache.RemoveChunks(toggled)
	return toggled, nil
}

// zoneFrames expands a frame span into the chunk start frames covering it.
func (m *Manager) zoneFrames(firstFrame, lastFrame int) []int {
	size := m.cache.ChunkSize()
	if lastFrame < firstFrame {
		firstFrame, lastFrame = lastFrame, firstFrame
	}
	startChunk := firstFrame / size
	endChunk := lastFrame / size
	frames := make([]int, 0, endChunk-startChunk+1)
	for i := startChunk; i <= endChunk; i++ {
		frames = append(frames, i*size)
	}
	return frames
}

// StartRender launches a render pass over the dirty chunks. A pass
// already in flight is aborted first. When no preview range exists one
// is created from the document zone.
func (m *Manager) StartRender() error {
	m.passMu.Lock()
	defer m.passMu.Unlock()
	return m.startRenderLocked()
}

func (m *Manager) startRenderLocked() error {
	m.stopTimer()
	if !m.ledger.HasPreviewRange() {
		first, last := m.doc.Zone()
		m.ledger.AddRange(m.zoneFrames(first, last), true)
	}
	chunks := m.ledger.DirtyChunks()
	if len(chunks) == 0 {
		m.setState(StateIdle)
		return nil
	}
	m.abortWorker()

	scene := m.cache.ScenePath()
	if err := m.doc.SaveScene(scene); err != nil {
		m.setState(StateIdle)
		return errs.Wrap(errs.ErrTransient, "preview", "start_render", "save scene", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.mu.Lock()
	m.workerCancel = cancel
	m.workerDone = done
	m.state = StateRendering
	m.mu.Unlock()

	passID := uuid.NewString()
	m.logger.Info("render pass started",
		logging.String(logging.FieldPassID, passID),
		logging.Int("chunks", len(chunks)))
	go m.runWorker(ctx, scene, chunks, done, passID)
	return nil
}

func (m *Manager) runWorker(ctx context.Context, scene string, chunks []int, done chan struct{}, passID string) {
	defer close(done)
	err := m.renderer.Pass(ctx, scene, chunks, m.handleProgress)
	if err != nil {
		m.logger.Warn("render pass stopped",
			logging.String(logging.FieldPassID, passID),
			logging.Error(err))
	} else {
		m.logger.Info("render pass finished",
			logging.String(logging.FieldPassID, passID))
	}
	m.mu.Lock()
	if m.workerDone == done {
		m.workerDone = nil
		m.workerCancel = nil
		m.state = StateIdle
	}
	m.mu.Unlock()
}

func (m *Manager) handleProgress(p render.Progress) {
	if p.File != "" {
		m.ledger.MarkRendered(p.Chunk)
	}
	m.observer.RenderProgress(p.Chunk, p.File, p.Permille)
}

// Wait blocks until the in-flight render pass, if any, has finished. It
// does not prevent a debounce timer from starting another pass later.
func (m *Manager) Wait() {
	m.mu.Lock()
	done := m.workerDone
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Abort cancels any in-flight render pass and waits for the worker to
// exit. It is safe to call when nothing is rendering.
func (m *Manager) Abort() {
	m.passMu.Lock()
	defer m.passMu.Unlock()
	m.stopTimer()
	m.abortWorker()
	m.setState(StateIdle)
}

// abortWorker cancels the current worker and joins it. Callers hold
// passMu.
func (m *Manager) abortWorker() {
	m.mu.Lock()
	cancel := m.workerCancel
	done := m.workerDone
	if done != nil {
		m.state = StateAborting
	}
	m.mu.Unlock()
	if done == nil {
		return
	}
	cancel()
	<-done
}

// RemoveInvalidUndo drops archived previews whose undo index is at or
// past ix. Called when the undo stack is truncated by a new edit.
func (m *Manager) RemoveInvalidUndo(ix int) error {
	return m.cache.RemoveArchivesFrom(ix)
}

// Teardown aborts rendering and releases the cache directory.
func (m *Manager) Teardown() error {
	m.Abort()
	return m.cache.Teardown()
}

// Close aborts rendering and releases the cache directory lock without
// deleting anything.
func (m *Manager) Close() error {
	m.Abort()
	return m.cache.Close()
}

func (m *Manager) armTimer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.cfg.Debounce(), func() {
		if err := m.StartRender(); err != nil {
			m.logger.Warn("deferred render failed", logging.Error(err))
		}
	})
	if m.state == StateIdle {
		m.state = StateDebouncing
	}
}

// stopTimer halts a pending debounce timer and reports whether one was
// armed.
func (m *Manager) stopTimer() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer == nil {
		return false
	}
	active := m.timer.Stop()
	m.timer = nil
	if m.state == StateDebouncing {
		m.state = StateIdle
	}
	return active
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
