package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"previewcache/internal/config"
	"previewcache/internal/errs"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <project-file>",
		Short: "Watch a project file and keep its previews fresh",
		Long: "Watches the project file for writes. Every save counts as an edit: the\n" +
			"document zone is marked dirty, superseded previews move into the undo\n" +
			"archive, and the debounce timer schedules a render pass.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			progress := newProgressPrinter(out)

			session, err := ctx.openSession(args[0], progress)
			if err != nil {
				return err
			}
			defer session.Close()

			projectPath, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer watcher.Close()
			// watch the directory: editors replace the file on save, which
			// drops a watch registered on the file itself
			if err := watcher.Add(filepath.Dir(projectPath)); err != nil {
				return fmt.Errorf("watch project directory: %w", err)
			}

			runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(out, "Watching %s\n", projectPath)
			for {
				select {
				case <-runCtx.Done():
					fmt.Fprintln(out, "Stopping")
					session.mgr.Abort()
					return session.saveRange(context.Background())
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if event.Name != projectPath {
						continue
					}
					if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
						continue
					}
					if err := handleProjectSave(session); err != nil {
						if errs.IsFatal(err) {
							return err
						}
						session.logger.Warn("handling project save failed", "error", err)
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					session.logger.Warn("watcher error", "error", err)
				}
			}
		},
	}
}

// handleProjectSave treats a save as a fresh edit: the undo stack advances,
// the zone goes dirty and the superseded previews move into the archive.
func handleProjectSave(session *session) error {
	ix, count := session.store.UndoStackIndex(), session.store.UndoStackCount()
	if err := session.store.PushCommand(); err != nil {
		return err
	}
	if ix < count {
		// the save branched history; archived redo states are unreachable
		if err := session.mgr.RemoveInvalidUndo(ix + 1); err != nil {
			return err
		}
	}
	first, last := session.store.Zone()
	session.mgr.MarkDirty(first, last)
	session.mgr.InvalidateDirtyChunks()
	return nil
}
