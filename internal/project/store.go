package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"previewcache/internal/document"
	"previewcache/internal/errs"
	"previewcache/internal/fileutil"
)

// Profile is the fallback preview profile applied by PickPreviewProfile.
type Profile struct {
	Extension  string
	Parameters string
}

// Store persists document properties, the undo stack position, and the
// preview range in a SQLite sidecar next to the project file. It implements
// document.Document for the preview manager.
type Store struct {
	db          *sql.DB
	projectPath string
	profile     Profile
}

// Open connects to (or creates) the sidecar database for projectPath and
// ensures a document id exists. The profile seeds PickPreviewProfile.
func Open(projectPath string, profile Profile) (*Store, error) {
	if _, err := os.Stat(projectPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrNotFound, "project", "stat file", "project file not found", err)
		}
		return nil, fmt.Errorf("stat project file: %w", err)
	}

	dbPath := projectPath + ".previewcache.db"
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, projectPath: projectPath, profile: profile}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.ensureDocumentID(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ProjectPath returns the path of the project file this store shadows.
func (s *Store) ProjectPath() string { return s.projectPath }

func (s *Store) ensureDocumentID() error {
	if s.Property(document.PropDocumentID) != "" {
		return nil
	}
	id := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return s.SetProperty(document.PropDocumentID, id)
}

// Property returns the stored value for key, empty when absent.
func (s *Store) Property(key string) string {
	var value string
	err := s.db.QueryRow("SELECT value FROM properties WHERE key = ?", key).Scan(&value)
	if err != nil {
		return ""
	}
	return value
}

// SetProperty stores a key/value pair, replacing any previous value.
func (s *Store) SetProperty(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO properties (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set property %q: %w", key, err)
	}
	return nil
}

// UndoStackIndex is the persisted position in the undo stack.
func (s *Store) UndoStackIndex() int {
	return s.intProperty("undostackindex")
}

// UndoStackCount is the persisted size of the undo stack.
func (s *Store) UndoStackCount() int {
	return s.intProperty("undostackcount")
}

// PushCommand records a newly committed edit. Redo states above the current
// position are discarded, then the stack grows by one and the position moves
// to the new top.
func (s *Store) PushCommand() error {
	next := s.UndoStackIndex() + 1
	if err := s.SetProperty("undostackcount", strconv.Itoa(next)); err != nil {
		return err
	}
	return s.SetProperty("undostackindex", strconv.Itoa(next))
}

// SetUndoIndex moves the persisted stack position, clamped to [0, count].
func (s *Store) SetUndoIndex(ix int) error {
	if ix < 0 {
		ix = 0
	}
	if count := s.UndoStackCount(); ix > count {
		ix = count
	}
	return s.SetProperty("undostackindex", strconv.Itoa(ix))
}

// PickPreviewProfile fills in the fallback preview profile when the document
// has none stored.
func (s *Store) PickPreviewProfile() error {
	if s.profile.Extension == "" || s.profile.Parameters == "" {
		return errors.New("no fallback preview profile configured")
	}
	if err := s.SetProperty(document.PropPreviewExtension, s.profile.Extension); err != nil {
		return err
	}
	return s.SetProperty(document.PropPreviewParameters, s.profile.Parameters)
}

// SaveScene copies the project file to path as the render scene description.
func (s *Store) SaveScene(path string) error {
	return fileutil.CopyFile(s.projectPath, path)
}

// Zone returns the marked timeline span, defaulting to frames 0-100.
func (s *Store) Zone() (int, int) {
	first := s.intProperty("zonein")
	last := s.intProperty("zoneout")
	if last <= first {
		return first, first + 100
	}
	return first, last
}

// SetZone persists the marked timeline span.
func (s *Store) SetZone(first, last int) error {
	if err := s.SetProperty("zonein", strconv.Itoa(first)); err != nil {
		return err
	}
	return s.SetProperty("zoneout", strconv.Itoa(last))
}

// SetModified records whether the document has unsaved changes.
func (s *Store) SetModified(modified bool) {
	_ = s.SetProperty("modified", strconv.FormatBool(modified))
}

// Modified reports the persisted modification flag.
func (s *Store) Modified() bool {
	return s.Property("modified") == "true"
}

// SavePreviewRange replaces the persisted preview range with chunks.
func (s *Store) SavePreviewRange(ctx context.Context, chunks []int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin range tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM preview_range"); err != nil {
		return fmt.Errorf("clear preview range: %w", err)
	}
	for _, chunk := range chunks {
		if _, err := tx.ExecContext(ctx, "INSERT INTO preview_range (chunk) VALUES (?)", chunk); err != nil {
			return fmt.Errorf("insert range chunk %d: %w", chunk, err)
		}
	}
	return tx.Commit()
}

// PreviewRange returns the persisted preview range chunks, ascending.
func (s *Store) PreviewRange(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT chunk FROM preview_range ORDER BY chunk ASC")
	if err != nil {
		return nil, fmt.Errorf("query preview range: %w", err)
	}
	defer rows.Close()

	var chunks []int
	for rows.Next() {
		var chunk int
		if err := rows.Scan(&chunk); err != nil {
			return nil, fmt.Errorf("scan range chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (s *Store) intProperty(key string) int {
	value, err := strconv.Atoi(s.Property(key))
	if err != nil {
		return 0
	}
	return value
}

var _ document.Document = (*Store)(nil)
