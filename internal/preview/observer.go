package preview

// Observer receives preview lifecycle notifications for display layers.
// Callbacks may arrive from the render worker goroutine.
type Observer interface {
	// RenderProgress reports one renderer step: the chunk processed, the
	// produced file (empty on failure or cancellation), and progress in
	// permille (-1 for a failed chunk).
	RenderProgress(chunk int, file string, permille int)
	// ChunksRestored reports chunk files brought back from the undo
	// archive so the display can refresh them.
	ChunksRestored(cacheDir string, chunks []int, extension string)
	// DirtyRangeChanged reports the first and last frame of a span whose
	// previews were invalidated.
	DirtyRangeChanged(firstFrame, lastFrame int)
}

type nopObserver struct{}

func (nopObserver) RenderProgress(int, string, int) {}

func (nopObserver) ChunksRestored(string, []int, string) {}

func (nopObserver) DirtyRangeChanged(int, int) {}
