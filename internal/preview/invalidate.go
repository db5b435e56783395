package preview

import (
	"previewcache/internal/logging"
)

// InvalidatePreviews reconciles the given chunk files with the undo
// archive. Any in-flight render is aborted first and a pending debounce
// timer is re-armed afterwards.
//
// Two directions are distinguished by the undo stack position. When the
// index sits at the top of the stack a fresh edit just happened: the
// superseded chunk files are archived under the previous index. When the
// index sits below the top the user navigated the stack: chunk files for
// the target index are copied back from the archive. The first step away
// from the top additionally archives the live files under the top index,
// otherwise the pre-undo state could never be reached again by redo.
func (m *Manager) InvalidatePreviews(chunks []int) {
	if len(chunks) == 0 {
		return
	}
	m.passMu.Lock()
	defer m.passMu.Unlock()

	timerWasArmed := m.stopTimer()
	m.abortWorker()
	m.setState(StateIdle)

	stackIx := m.doc.UndoStackIndex()
	stackCount := m.doc.UndoStackCount()

	if stackIx == stackCount && !m.cache.HasArchive(stackIx-1) {
		m.archiveForward(stackIx-1, chunks)
	} else {
		m.restoreFromArchive(stackIx, stackCount, chunks)
	}
	m.doc.SetModified(true)

	if timerWasArmed {
		m.armTimer()
	}
}

// archiveForward moves live chunk files aside after a new edit so a
// later undo can bring them back.
func (m *Manager) archiveForward(archiveIx int, chunks []int) {
	moved, err := m.cache.ArchiveChunks(archiveIx, chunks)
	if err != nil {
		m.logger.Warn("archiving previews failed",
			logging.Int(logging.FieldStackIx, archiveIx),
			logging.Error(err))
	}
	if len(moved) == 0 {
		return
	}
	m.logger.Debug("previews archived",
		logging.Int(logging.FieldStackIx, archiveIx),
		logging.Int("chunks", len(moved)))
	if err := m.cache.CleanupArchives(); err != nil {
		m.logger.Warn("archive cleanup failed", logging.Error(err))
	}
}

// restoreFromArchive replaces live chunk files with the snapshot stored
// for the target undo index. On the first step away from the top of the
// stack the live files are archived under the top index and left in
// place, so a redo back to the top finds them again.
func (m *Manager) restoreFromArchive(stackIx, stackCount int, chunks []int) {
	lastUndo := false
	if stackIx == stackCount-1 && !m.cache.HasArchive(stackCount) {
		lastUndo = true
		if _, err := m.cache.ArchiveChunks(stackCount, chunks); err != nil {
			m.logger.Warn("backing up live previews failed",
				logging.Int(logging.FieldStackIx, stackCount),
				logging.Error(err))
		}
	}
	restored := m.cache.RestoreChunks(stackIx, chunks, lastUndo)
	if len(restored) == 0 {
		return
	}
	m.ledger.MarkRestored(restored)
	m.logger.Debug("previews restored",
		logging.Int(logging.FieldStackIx, stackIx),
		logging.Int("chunks", len(restored)))
	m.observer.ChunksRestored(m.cache.Dir(), restored, m.cache.Extension())
}
