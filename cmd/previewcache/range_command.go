package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRangeCommand(ctx *commandContext) *cobra.Command {
	rangeCmd := &cobra.Command{
		Use:   "range",
		Short: "Manage the preview range",
	}
	rangeCmd.AddCommand(newRangeToggleCommand(ctx, true))
	rangeCmd.AddCommand(newRangeToggleCommand(ctx, false))
	return rangeCmd
}

func newRangeToggleCommand(ctx *commandContext, enable bool) *cobra.Command {
	use, short := "add", "Add a frame span to the preview range"
	if !enable {
		use, short = "remove", "Remove a frame span from the preview range (deletes its previews)"
	}

	return &cobra.Command{
		Use:   use + " <project-file> [first] [last]",
		Short: short,
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openSession(args[0], nil)
			if err != nil {
				return err
			}
			defer session.Close()

			out := cmd.OutOrStdout()

			var toggled []int
			if len(args) == 3 {
				first, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid first frame %q", args[1])
				}
				last, err := strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("invalid last frame %q", args[2])
				}
				toggled, err = session.mgr.ToggleRange(first, last, enable)
				if err != nil {
					return err
				}
			} else if len(args) == 1 {
				toggled, err = session.mgr.TogglePreviewRange(enable)
				if err != nil {
					return err
				}
			} else {
				return fmt.Errorf("provide both first and last frames, or neither to use the document zone")
			}

			if err := session.saveRange(context.Background()); err != nil {
				return fmt.Errorf("persist preview range: %w", err)
			}
			if len(toggled) == 0 {
				fmt.Fprintln(out, "Preview range unchanged")
				return nil
			}
			verb := "added to"
			if !enable {
				verb = "removed from"
			}
			fmt.Fprintf(out, "%d chunk(s) %s the preview range\n", len(toggled), verb)
			return nil
		},
	}
}
