package render

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"time"

	"previewcache/internal/cachedir"
	"previewcache/internal/config"
	"previewcache/internal/errs"
	"previewcache/internal/logging"
)

// Progress reports one renderer step. File is empty for failures and for the
// synthetic begin/cancel reports. Permille runs 0..1000; -1 marks a failed
// chunk.
type Progress struct {
	Chunk    int
	File     string
	Permille int
}

// Option configures the renderer.
type Option func(*Renderer)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(executor Executor) Option {
	return func(r *Renderer) {
		if executor != nil {
			r.exec = executor
		}
	}
}

// Renderer transcodes dirty chunks into preview files, one external process
// per chunk, strictly in ascending chunk order.
type Renderer struct {
	binary  string
	timeout time.Duration
	cache   *cachedir.Manager
	exec    Executor
	logger  *slog.Logger
}

// New constructs a renderer bound to a cache directory.
func New(cfg *config.Config, cache *cachedir.Manager, logger *slog.Logger, opts ...Option) *Renderer {
	r := &Renderer{
		binary:  cfg.Renderer.Binary,
		timeout: cfg.ChunkTimeout(),
		cache:   cache,
		exec:    commandExecutor{},
		logger:  logging.NewComponentLogger(logger, "renderer"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Pass renders the given chunks against the scene description file. Chunks
// whose preview file already exists are reported complete without work, so a
// partially finished earlier pass resumes instead of re-rendering.
//
// Cancellation via ctx is not an error: the pass reports permille 1000 and
// returns nil. A transcoder failure reports permille -1 for the failing
// chunk, deletes its partial output, and abandons the rest of the pass;
// completed files are left in place. The scene file is deleted when the pass
// ends, however it ends.
func (r *Renderer) Pass(ctx context.Context, scene string, chunks []int, progress func(Progress)) error {
	defer func() {
		_ = os.Remove(scene)
	}()
	if progress == nil {
		progress = func(Progress) {}
	}

	queue := append([]int{}, chunks...)
	sort.Ints(queue)

	progress(Progress{Chunk: 0, File: "", Permille: 0})

	chunkSize := r.cache.ChunkSize()
	done := 0
	for pos, chunk := range queue {
		if ctx.Err() != nil {
			progress(Progress{Permille: 1000})
			return nil
		}

		done++
		remaining := len(queue) - pos - 1
		permille := 1000
		if remaining > 0 {
			permille = int(math.Round(float64(done) / float64(done+remaining) * 1000))
		}

		outFile := r.cache.ChunkFile(chunk)
		if r.cache.HasChunk(chunk) {
			progress(Progress{Chunk: chunk, File: outFile, Permille: permille})
			continue
		}

		args := make([]string, 0, len(r.cache.Params())+5)
		args = append(args,
			scene,
			fmt.Sprintf("in=%d", chunk),
			fmt.Sprintf("out=%d", chunk+chunkSize-1),
			"-consumer",
			"avformat:"+outFile,
		)
		args = append(args, r.cache.Params()...)

		if err := r.runChunk(ctx, args); err != nil {
			_ = os.Remove(outFile)
			if ctx.Err() != nil {
				progress(Progress{Permille: 1000})
				return nil
			}
			r.logger.Error("chunk transcode failed",
				logging.Int(logging.FieldChunk, chunk),
				logging.Error(err),
			)
			progress(Progress{Chunk: chunk, Permille: -1})
			return errs.Wrap(errs.ErrExternalTool, "renderer", "transcode",
				fmt.Sprintf("chunk %d", chunk), err)
		}

		progress(Progress{Chunk: chunk, File: outFile, Permille: permille})
	}
	return nil
}

func (r *Renderer) runChunk(ctx context.Context, args []string) error {
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.exec.Run(runCtx, r.binary, args)
}
