package main

import (
	"github.com/spf13/cobra"

	"github.com/wippyai/wat-engine/report"
)

func newCheckCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "check [path...]",
		Short: "Validate WebAssembly text files",
		Long: `Check parses and validates the given files, or every .wat and .wast file
below the given directories, and reports the diagnostics found. Without
arguments the working directory is checked.

The exit status is 1 when any diagnostic has error severity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.workspace()
			if err != nil {
				return err
			}
			r, err := a.reporter(cmd, format)
			if err != nil {
				return err
			}
			if err := ws.LoadAll(cmd.Context(), roots(args)); err != nil {
				return err
			}
			reports, err := ws.CheckAll(cmd.Context())
			if err != nil {
				return err
			}
			if err := r.Report(cmd.OutOrStdout(), reports); err != nil {
				return err
			}
			if report.Summarize(reports).Errors > 0 {
				return errProblems
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: text or json (default from config)")
	return cmd
}
