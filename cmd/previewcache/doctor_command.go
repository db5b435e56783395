package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"previewcache/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the transcoder and cache filesystem readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			printSectionHeader(out, "preflight", colorize)

			failures := 0
			for _, result := range preflight.RunAll(cfg) {
				label := "OK"
				if !result.Passed {
					label = "FAIL"
					failures++
				}
				fmt.Fprintf(out, "  %-18s [%s] %s\n", result.Name+":", label, result.Detail)
			}
			if failures > 0 {
				return fmt.Errorf("%d preflight check(s) failed", failures)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}
