package cachedir

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"previewcache/internal/document"
	"previewcache/internal/errs"
	"previewcache/internal/logging"
)

const (
	// sceneFileName is the per-pass scene description inside the cache dir.
	sceneFileName = "preview.mlt"
	undoDirName   = "undo"
)

// Manager owns the on-disk preview cache for one document: the live chunk
// files and the undo archive tree beneath them. No other component writes to
// these directories.
type Manager struct {
	doc    document.Document
	logger *slog.Logger

	dir     string
	undoDir string
	ext     string
	params  []string

	lock        *flock.Flock
	lockPath    string
	initialized bool

	chunkSize int
}

// New creates an uninitialized manager for doc. Initialize must succeed
// before any other method is used.
func New(doc document.Document, chunkSize int, logger *slog.Logger) *Manager {
	return &Manager{
		doc:       doc,
		chunkSize: chunkSize,
		logger:    logging.NewComponentLogger(logger, "cachedir"),
	}
}

// Initialize resolves and claims the cache directory under cacheRoot. It
// fails when the document id is missing or non-numeric, when the resolved
// directory does not match the document id, or when the undo subdirectory
// cannot be created. On success the absolute cache path is written back into
// the document properties.
func (m *Manager) Initialize(cacheRoot string) error {
	documentID := strings.TrimSpace(m.doc.Property(document.PropDocumentID))
	if documentID == "" {
		return errs.Wrap(errs.ErrConfiguration, "cachedir", "initialize", "document id is empty", nil)
	}
	// The document id is ms since epoch by convention; anything else means
	// a corrupt document and previews must stay off.
	if id, err := strconv.ParseInt(documentID, 10, 64); err != nil || id <= 0 {
		return errs.Wrap(errs.ErrConfiguration, "cachedir", "initialize",
			fmt.Sprintf("document id %q is not a positive number", documentID), nil)
	}

	dir := strings.TrimSpace(m.doc.Property(document.PropCacheDir))
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			dir = ""
		}
	}
	if dir == "" {
		dir = filepath.Join(cacheRoot, documentID)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.Wrap(errs.ErrConfiguration, "cachedir", "initialize", "create cache directory", err)
		}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return errs.Wrap(errs.ErrConfiguration, "cachedir", "initialize", "resolve cache directory", err)
	}
	if filepath.Base(abs) != documentID {
		return errs.Wrap(errs.ErrConfiguration, "cachedir", "initialize",
			fmt.Sprintf("cache directory %q does not belong to document %s", abs, documentID), nil)
	}

	undoDir := filepath.Join(abs, undoDirName)
	if err := os.MkdirAll(undoDir, 0o755); err != nil {
		return errs.Wrap(errs.ErrConfiguration, "cachedir", "initialize", "create undo directory", err)
	}

	if err := m.LoadParams(); err != nil {
		return err
	}

	lockPath := abs + ".lock"
	lock := flock.New(lockPath)
	held, err := lock.TryLock()
	if err != nil {
		return errs.Wrap(errs.ErrConfiguration, "cachedir", "initialize", "acquire cache lock", err)
	}
	if !held {
		return errs.Wrap(errs.ErrConfiguration, "cachedir", "initialize",
			"cache directory is in use by another process", nil)
	}

	if err := m.doc.SetProperty(document.PropCacheDir, abs); err != nil {
		_ = lock.Unlock()
		return errs.Wrap(errs.ErrConfiguration, "cachedir", "initialize", "persist cache path", err)
	}

	m.dir = abs
	m.undoDir = undoDir
	m.lock = lock
	m.lockPath = lockPath
	m.initialized = true
	m.logger.Debug("cache directory ready",
		logging.String(logging.FieldDocument, documentID),
		logging.String("dir", abs),
	)
	return nil
}

// LoadParams reads the preview extension and consumer parameters from the
// document properties. When either is missing the document is asked to pick
// a preview profile once before re-reading. The fixed no-audio argument is
// appended to the parameter list.
func (m *Manager) LoadParams() error {
	ext := strings.TrimSpace(m.doc.Property(document.PropPreviewExtension))
	params := strings.Fields(m.doc.Property(document.PropPreviewParameters))

	if ext == "" || len(params) == 0 {
		if err := m.doc.PickPreviewProfile(); err != nil {
			return errs.Wrap(errs.ErrConfiguration, "cachedir", "load params", "select preview profile", err)
		}
		ext = strings.TrimSpace(m.doc.Property(document.PropPreviewExtension))
		params = strings.Fields(m.doc.Property(document.PropPreviewParameters))
	}
	if ext == "" || len(params) == 0 {
		return errs.Wrap(errs.ErrConfiguration, "cachedir", "load params", "preview profile is incomplete", nil)
	}

	m.ext = ext
	m.params = append(params, "an=1")
	return nil
}

// Dir returns the absolute cache directory path.
func (m *Manager) Dir() string { return m.dir }

// Extension returns the preview file extension without a leading dot.
func (m *Manager) Extension() string { return m.ext }

// ChunkSize returns the chunk length in frames.
func (m *Manager) ChunkSize() int { return m.chunkSize }

// Params returns a copy of the consumer parameter list.
func (m *Manager) Params() []string {
	out := make([]string, len(m.params))
	copy(out, m.params)
	return out
}

// ChunkFileName returns the bare file name for a chunk: "<start>.<ext>".
func (m *Manager) ChunkFileName(chunk int) string {
	return fmt.Sprintf("%d.%s", chunk, m.ext)
}

// ChunkFile returns the absolute live path for a chunk file.
func (m *Manager) ChunkFile(chunk int) string {
	return filepath.Join(m.dir, m.ChunkFileName(chunk))
}

// HasChunk reports whether a live preview file exists for the chunk.
func (m *Manager) HasChunk(chunk int) bool {
	info, err := os.Stat(m.ChunkFile(chunk))
	return err == nil && !info.IsDir()
}

// LiveChunks returns the chunk numbers with live preview files, ascending.
func (m *Manager) LiveChunks() ([]int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read cache directory: %w", err)
	}
	suffix := "." + m.ext
	var chunks []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		chunk, err := strconv.Atoi(strings.TrimSuffix(name, suffix))
		if err != nil {
			continue
		}
		chunks = append(chunks, chunk)
	}
	sort.Ints(chunks)
	return chunks, nil
}

// RemoveChunks deletes the live preview files for the given chunks. Missing
// files are ignored.
func (m *Manager) RemoveChunks(chunks []int) {
	for _, chunk := range chunks {
		_ = os.Remove(m.ChunkFile(chunk))
	}
}

// ScenePath returns the location of the per-pass scene description file.
func (m *Manager) ScenePath() string {
	return filepath.Join(m.dir, sceneFileName)
}

// RemoveScene deletes the scene description file if present.
func (m *Manager) RemoveScene() {
	_ = os.Remove(m.ScenePath())
}

// Teardown removes the undo archive unconditionally and the cache directory
// itself only when no chunk or scene files remain, then releases the cache
// lock. Callers must abort any running render first.
func (m *Manager) Teardown() error {
	if !m.initialized {
		return nil
	}
	if err := os.RemoveAll(m.undoDir); err != nil {
		return fmt.Errorf("remove undo directory: %w", err)
	}
	entries, err := os.ReadDir(m.dir)
	if err == nil && len(entries) == 0 {
		if err := os.Remove(m.dir); err != nil {
			return fmt.Errorf("remove cache directory: %w", err)
		}
	}
	return m.Close()
}

// Close releases the cache lock without touching cache contents.
func (m *Manager) Close() error {
	if m.lock == nil {
		return nil
	}
	err := m.lock.Unlock()
	_ = os.Remove(m.lockPath)
	m.lock = nil
	return err
}
