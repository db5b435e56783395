package ledger

import (
	"sort"
	"sync"
)

// ChunkInfo is a snapshot of one tracked chunk for display layers.
type ChunkInfo struct {
	Start      int
	Dirty      bool
	HasPreview bool
	InRange    bool
}

type entry struct {
	dirty      bool
	hasPreview bool
	inRange    bool
}

// Ledger tracks per-chunk preview state. Chunks are keyed by their start
// frame, always a multiple of the configured chunk size. The ledger holds no
// file handles and performs no I/O; callers reconcile it with the cache
// directory.
type Ledger struct {
	mu        sync.Mutex
	chunkSize int
	chunks    map[int]*entry
}

// New creates a ledger for the given chunk size in frames.
func New(chunkSize int) *Ledger {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	return &Ledger{
		chunkSize: chunkSize,
		chunks:    make(map[int]*entry),
	}
}

// ChunkSize returns the chunk length in frames.
func (l *Ledger) ChunkSize() int { return l.chunkSize }

// AddRange toggles preview-range membership for the given chunk start
// frames and returns the chunks actually toggled, ascending. Re-enabling an
// already enabled chunk or disabling an unknown one is a no-op and is
// excluded from the result.
func (l *Ledger) AddRange(frames []int, enable bool) []int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var toggled []int
	for _, frame := range frames {
		chunk := l.align(frame)
		existing := l.chunks[chunk]
		if enable {
			if existing != nil && existing.inRange {
				continue
			}
			if existing == nil {
				existing = &entry{dirty: true}
				l.chunks[chunk] = existing
			}
			existing.inRange = true
			if !existing.hasPreview {
				existing.dirty = true
			}
			toggled = append(toggled, chunk)
		} else {
			if existing == nil || !existing.inRange {
				continue
			}
			delete(l.chunks, chunk)
			toggled = append(toggled, chunk)
		}
	}
	sort.Ints(toggled)
	return toggled
}

// DirtyChunks returns the chunks currently dirty and inside the preview
// range, ascending.
func (l *Ledger) DirtyChunks() []int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var dirty []int
	for chunk, e := range l.chunks {
		if e.inRange && e.dirty {
			dirty = append(dirty, chunk)
		}
	}
	sort.Ints(dirty)
	return dirty
}

// MarkDirty flags every chunk whose span intersects [firstFrame, lastFrame]
// as dirty, creating entries for chunks not seen before. It returns the
// affected chunk starts, ascending.
func (l *Ledger) MarkDirty(firstFrame, lastFrame int) []int {
	if lastFrame < firstFrame {
		firstFrame, lastFrame = lastFrame, firstFrame
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	first := l.align(firstFrame)
	last := l.align(lastFrame)
	affected := make([]int, 0, (last-first)/l.chunkSize+1)
	for chunk := first; chunk <= last; chunk += l.chunkSize {
		e := l.chunks[chunk]
		if e == nil {
			e = &entry{}
			l.chunks[chunk] = e
		}
		e.dirty = true
		e.hasPreview = false
		affected = append(affected, chunk)
	}
	return affected
}

// MarkRendered records a successfully produced preview for the chunk.
func (l *Ledger) MarkRendered(chunk int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.chunks[l.align(chunk)]
	if e == nil {
		return
	}
	e.dirty = false
	e.hasPreview = true
}

// MarkRestored records previews brought back from the undo archive.
func (l *Ledger) MarkRestored(chunks []int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, chunk := range chunks {
		e := l.chunks[l.align(chunk)]
		if e == nil {
			continue
		}
		e.dirty = false
		e.hasPreview = true
	}
}

// HasPreviewRange reports whether any chunk is enabled for previewing.
func (l *Ledger) HasPreviewRange() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.chunks {
		if e.inRange {
			return true
		}
	}
	return false
}

// RangeChunks returns all chunks inside the preview range, ascending.
func (l *Ledger) RangeChunks() []int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var chunks []int
	for chunk, e := range l.chunks {
		if e.inRange {
			chunks = append(chunks, chunk)
		}
	}
	sort.Ints(chunks)
	return chunks
}

// States returns a snapshot of every tracked chunk, ascending by start frame.
func (l *Ledger) States() []ChunkInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	infos := make([]ChunkInfo, 0, len(l.chunks))
	for chunk, e := range l.chunks {
		infos = append(infos, ChunkInfo{
			Start:      chunk,
			Dirty:      e.dirty,
			HasPreview: e.hasPreview,
			InRange:    e.inRange,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Start < infos[j].Start })
	return infos
}

func (l *Ledger) align(frame int) int {
	if frame < 0 {
		frame = 0
	}
	return frame - frame%l.chunkSize
}
