package testsupport

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
)

// FakeExecutor scripts transcoder invocations for renderer tests. Unless a
// chunk is listed in FailOn, a run creates the avformat consumer target so
// the pass sees a produced preview file.
type FakeExecutor struct {
	mu sync.Mutex

	// FailOn maps "in=<chunk>" arguments to a forced failure.
	FailOn map[string]bool
	// Block, when non-nil, is closed by tests to release in-flight runs.
	Block chan struct{}
	// Started receives one signal per run before any blocking.
	Started chan struct{}

	Calls [][]string
}

// NewFakeExecutor returns an executor that succeeds for every chunk.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{FailOn: map[string]bool{}}
}

func (f *FakeExecutor) Run(ctx context.Context, binary string, args []string) error {
	f.mu.Lock()
	f.Calls = append(f.Calls, append([]string{binary}, args...))
	started := f.Started
	block := f.Block
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var inArg, target string
	for _, arg := range args {
		if strings.HasPrefix(arg, "in=") {
			inArg = arg
		}
		if strings.HasPrefix(arg, "avformat:") {
			target = strings.TrimPrefix(arg, "avformat:")
		}
	}
	if f.FailOn[inArg] {
		return errors.New("transcoder exited abnormally")
	}
	if target != "" {
		if err := os.WriteFile(target, []byte("preview "+inArg), 0o644); err != nil {
			return err
		}
	}
	return nil
}
