package cachedir

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"previewcache/internal/fileutil"
	"previewcache/internal/logging"
)

// archiveRetention is the number of archive snapshots kept by cleanup.
const archiveRetention = 5

// HasArchive reports whether a snapshot exists for the stack index.
func (m *Manager) HasArchive(ix int) bool {
	info, err := os.Stat(m.archivePath(ix))
	return err == nil && info.IsDir()
}

// Archives lists the stack indexes with archived snapshots, ascending.
func (m *Manager) Archives() ([]int, error) {
	entries, err := os.ReadDir(m.undoDir)
	if err != nil {
		return nil, fmt.Errorf("read undo directory: %w", err)
	}
	var indexes []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ix, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		indexes = append(indexes, ix)
	}
	sort.Ints(indexes)
	return indexes, nil
}

// ArchiveChunks moves the live files for the given chunks into the snapshot
// for stack index ix, creating it on demand. It returns the chunks actually
// moved, ascending; when none moved the empty snapshot directory is removed
// again. Missing live files are skipped, never an error.
func (m *Manager) ArchiveChunks(ix int, chunks []int) ([]int, error) {
	dir := m.archivePath(ix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive %d: %w", ix, err)
	}

	var moved []int
	for _, chunk := range chunks {
		live := m.ChunkFile(chunk)
		if _, err := os.Stat(live); err != nil {
			continue
		}
		if err := fileutil.MoveFile(live, filepath.Join(dir, m.ChunkFileName(chunk))); err != nil {
			m.logger.Warn("archive move failed",
				logging.Int(logging.FieldChunk, chunk),
				logging.Int(logging.FieldStackIx, ix),
				logging.Error(err),
			)
			continue
		}
		moved = append(moved, chunk)
	}

	if len(moved) == 0 {
		_ = os.Remove(dir)
		return nil, nil
	}
	sort.Ints(moved)
	return moved, nil
}

// RestoreChunks copies the given chunks from the snapshot at stack index ix
// back into the live cache and returns the chunks restored, ascending.
// Unless preserveLive is set, the live file is deleted first even when no
// archived copy exists, so stale previews never survive navigation. Files
// absent from the snapshot are skipped.
func (m *Manager) RestoreChunks(ix int, chunks []int, preserveLive bool) []int {
	dir := m.archivePath(ix)
	info, err := os.Stat(dir)
	haveArchive := err == nil && info.IsDir()

	var restored []int
	for _, chunk := range chunks {
		live := m.ChunkFile(chunk)
		if !preserveLive {
			_ = os.Remove(live)
		}
		if !haveArchive {
			continue
		}
		archived := filepath.Join(dir, m.ChunkFileName(chunk))
		if _, err := os.Stat(archived); err != nil {
			continue
		}
		if err := fileutil.CopyFileVerified(archived, live); err != nil {
			m.logger.Warn("archive restore failed",
				logging.Int(logging.FieldChunk, chunk),
				logging.Int(logging.FieldStackIx, ix),
				logging.Error(err),
			)
			continue
		}
		restored = append(restored, chunk)
	}
	sort.Ints(restored)
	return restored
}

// CleanupArchives keeps the most recent archive snapshots (highest stack
// indexes) and removes the rest.
func (m *Manager) CleanupArchives() error {
	indexes, err := m.Archives()
	if err != nil {
		return err
	}
	for len(indexes) > archiveRetention {
		ix := indexes[0]
		indexes = indexes[1:]
		if err := os.RemoveAll(m.archivePath(ix)); err != nil {
			return fmt.Errorf("remove archive %d: %w", ix, err)
		}
		m.logger.Debug("archive pruned", logging.Int(logging.FieldStackIx, ix))
	}
	return nil
}

// RemoveArchivesFrom deletes every snapshot with stack index >= ix. It is
// invoked when branching history discards future redo states.
func (m *Manager) RemoveArchivesFrom(ix int) error {
	indexes, err := m.Archives()
	if err != nil {
		return err
	}
	for _, candidate := range indexes {
		if candidate < ix {
			continue
		}
		if err := os.RemoveAll(m.archivePath(candidate)); err != nil {
			return fmt.Errorf("remove archive %d: %w", candidate, err)
		}
	}
	return nil
}

func (m *Manager) archivePath(ix int) string {
	return filepath.Join(m.undoDir, strconv.Itoa(ix))
}
