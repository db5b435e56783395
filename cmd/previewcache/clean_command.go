package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clean <project-file>",
		Short: "Prune old archive snapshots, or remove the whole cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openSession(args[0], nil)
			if err != nil {
				return err
			}
			defer session.Close()

			out := cmd.OutOrStdout()

			if !all {
				if err := session.cache.CleanupArchives(); err != nil {
					return err
				}
				fmt.Fprintln(out, "Old archive snapshots pruned")
				return nil
			}

			live, err := session.cache.LiveChunks()
			if err != nil {
				return err
			}
			session.cache.RemoveChunks(live)
			session.cache.RemoveScene()
			if err := session.store.SavePreviewRange(context.Background(), nil); err != nil {
				return fmt.Errorf("clear preview range: %w", err)
			}
			if err := session.mgr.Teardown(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %d preview file(s) and the undo archive\n", len(live))
			return nil
		},
	}
	cmd.Args = cobra.ExactArgs(1)
	cmd.Flags().BoolVar(&all, "all", false, "Delete live previews and the undo archive, not just old snapshots")
	return cmd
}
