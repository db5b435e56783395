package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var firstFrame, lastFrame int

	cmd := &cobra.Command{
		Use:   "render <project-file>",
		Short: "Render dirty preview chunks for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			progress := newProgressPrinter(out)

			session, err := ctx.openSession(args[0], progress)
			if err != nil {
				return err
			}
			defer session.Close()

			if cmd.Flags().Changed("first") || cmd.Flags().Changed("last") {
				session.mgr.MarkDirty(firstFrame, lastFrame)
			}

			if err := session.mgr.StartRender(); err != nil {
				return err
			}
			session.mgr.Wait()

			if err := session.saveRange(context.Background()); err != nil {
				return fmt.Errorf("persist preview range: %w", err)
			}
			if chunk, failed := progress.failure(); failed {
				return fmt.Errorf("rendering failed at chunk %d; earlier chunks were kept", chunk)
			}
			if progress.rendered() == 0 {
				fmt.Fprintln(out, "Nothing to render; all previews are up to date")
				return nil
			}
			fmt.Fprintf(out, "Rendered %d chunk(s)\n", progress.rendered())
			return nil
		},
	}

	cmd.Flags().IntVar(&firstFrame, "first", 0, "First frame to mark dirty before rendering")
	cmd.Flags().IntVar(&lastFrame, "last", 0, "Last frame to mark dirty before rendering")
	return cmd
}

// progressPrinter writes renderer progress to the terminal and remembers
// whether the pass failed. It satisfies preview.Observer.
type progressPrinter struct {
	out io.Writer

	mu          sync.Mutex
	count       int
	failedChunk int
	failed      bool
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, failedChunk: -1}
}

func (p *progressPrinter) RenderProgress(chunk int, file string, permille int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case permille < 0:
		p.failed = true
		p.failedChunk = chunk
		fmt.Fprintf(p.out, "chunk %d failed\n", chunk)
	case file != "":
		p.count++
		fmt.Fprintf(p.out, "chunk %d done (%d.%d%%)\n", chunk, permille/10, permille%10)
	}
}

func (p *progressPrinter) ChunksRestored(_ string, chunks []int, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "restored %d chunk(s) from the undo archive\n", len(chunks))
}

func (p *progressPrinter) DirtyRangeChanged(firstFrame, lastFrame int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "frames %d-%d marked dirty\n", firstFrame, lastFrame)
}

func (p *progressPrinter) failure() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failedChunk, p.failed
}

func (p *progressPrinter) rendered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}
