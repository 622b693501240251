package main

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/wat-engine/errors"
	"github.com/wippyai/wat-engine/wat"
	"github.com/wippyai/wat-engine/workspace"
)

func newCompileCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "Compile a module to the WebAssembly binary format",
		Long: `Compile validates a single-module text file and writes its binary encoding,
by default next to the input with a .wasm extension. Use -o - to write to
standard output. Files with errors are reported and not compiled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.workspace()
			if err != nil {
				return err
			}
			path := filepath.Clean(args[0])
			if _, err := ws.Load(path); err != nil {
				return err
			}
			rep, err := ws.Check(cmd.Context(), path)
			if err != nil {
				return err
			}
			if rep.Errors() > 0 {
				r, err := a.reporter(cmd, "")
				if err != nil {
					return err
				}
				if err := r.Report(cmd.ErrOrStderr(), []workspace.Report{rep}); err != nil {
					return err
				}
				return errProblems
			}

			bin, err := wat.CompileTree(cmd.Context(), rep.Snapshot.Tree)
			if err != nil {
				var e *errors.Error
				if stderrors.As(err, &e) && e.File == "" {
					e.File = path
				}
				return err
			}
			a.log.Debug("compiled", zap.String("path", path), zap.Int("bytes", len(bin)))

			if output == "-" {
				_, err := cmd.OutOrStdout().Write(bin)
				return err
			}
			if output == "" {
				output = strings.TrimSuffix(path, filepath.Ext(path)) + ".wasm"
			}
			if err := os.WriteFile(output, bin, 0o644); err != nil {
				return errors.New(errors.PhaseCompile, errors.KindInvalidInput).
					File(output).
					Cause(err).
					Detail("write output").
					Build()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(bin), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for standard output")
	return cmd
}
