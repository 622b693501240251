package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/wat-engine/workspace"
)

func newWatchCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "watch [path...]",
		Short: "Check files and re-check them as they change",
		Long: `Watch checks the given files and directories like check, then keeps
running and reports the diagnostics of every file that is written, until
interrupted. Edits are applied incrementally to the parsed documents.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.workspace()
			if err != nil {
				return err
			}
			r, err := a.reporter(cmd, format)
			if err != nil {
				return err
			}
			paths := roots(args)
			if err := ws.LoadAll(cmd.Context(), paths); err != nil {
				return err
			}
			reports, err := ws.CheckAll(cmd.Context())
			if err != nil {
				return err
			}
			if err := r.Report(cmd.OutOrStdout(), reports); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			a.log.Info("watching", zap.Strings("paths", paths), zap.Int("documents", len(reports)))
			return ws.Watch(cmd.Context(), paths, func(ev workspace.Event) {
				switch {
				case ev.Err != nil:
					a.log.Warn("watch event failed", zap.String("path", ev.Path), zap.Error(ev.Err))
					fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", ev.Err)
				case ev.Removed:
					fmt.Fprintf(out, "%s removed\n", ev.Path)
				default:
					if err := r.Report(out, []workspace.Report{ev.Report}); err != nil {
						a.log.Warn("report failed", zap.Error(err))
					}
				}
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: text or json (default from config)")
	return cmd
}
