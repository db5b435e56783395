package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"previewcache/internal/ledger"
)

var labelCaser = cases.Title(language.English)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <project-file>",
		Short: "Show chunk and archive state for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openSession(args[0], nil)
			if err != nil {
				return err
			}
			defer session.Close()

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			printSectionHeader(out, "previews", colorize)
			states := session.led.States()
			if len(states) == 0 {
				fmt.Fprintln(out, "No chunks tracked; enable a preview range first")
			} else {
				fmt.Fprintln(out, chunkTable(states, session.cache.ChunkSize()))
			}

			printSectionHeader(out, "undo archive", colorize)
			archives, err := session.cache.Archives()
			if err != nil {
				return err
			}
			if len(archives) == 0 {
				fmt.Fprintln(out, "No archived snapshots")
			} else {
				fmt.Fprintln(out, archiveTable(archives))
			}

			printSectionHeader(out, "document", colorize)
			fmt.Fprintf(out, "Cache directory:  %s\n", session.cache.Dir())
			fmt.Fprintf(out, "Undo stack:       %d of %d\n",
				session.store.UndoStackIndex(), session.store.UndoStackCount())
			fmt.Fprintf(out, "Auto preview:     %s\n", yesNo(session.cfg.Preview.AutoPreview))
			fmt.Fprintf(out, "Scheduler:        %s\n", labelCaser.String(session.mgr.State().String()))
			return nil
		},
	}
}

func chunkTable(states []ledger.ChunkInfo, chunkSize int) string {
	rows := make([][]string, 0, len(states))
	for _, s := range states {
		span := fmt.Sprintf("%d-%d", s.Start, s.Start+chunkSize-1)
		rows = append(rows, []string{
			strconv.Itoa(s.Start),
			span,
			yesNo(s.InRange),
			yesNo(s.Dirty),
			yesNo(s.HasPreview),
		})
	}
	return renderTable(
		[]string{"Chunk", "Frames", "In Range", "Dirty", "Preview"},
		rows, 0,
	)
}

func archiveTable(archives []int) string {
	rows := make([][]string, 0, len(archives))
	for _, ix := range archives {
		rows = append(rows, []string{strconv.Itoa(ix)})
	}
	return renderTable([]string{"Stack Index"}, rows, 0)
}

const (
	ansiReset = "\x1b[0m"
	ansiBlue  = "\x1b[34m"
)

func printSectionHeader(out io.Writer, title string, colorize bool) {
	line := fmt.Sprintf("== %s ==", labelCaser.String(strings.TrimSpace(title)))
	if colorize {
		line = ansiBlue + line + ansiReset
	}
	fmt.Fprintln(out, line)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
