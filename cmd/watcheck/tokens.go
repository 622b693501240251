package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wippyai/wat-engine/errors"
	"github.com/wippyai/wat-engine/wat/token"
)

func newTokensCommand(_ *app) *cobra.Command {
	var trivia bool

	cmd := &cobra.Command{
		Use:   "tokens <file>",
		Short: "Print the tokens of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Load(args[0], err)
			}
			src := string(data)
			lines := token.NewLineIndex(src)
			out := cmd.OutOrStdout()
			for t := range token.All(src) {
				if t.Kind.IsTrivia() && !trivia {
					continue
				}
				line := fmt.Sprintf("%-8s %-16s %s", lines.Position(t.Start), t.Kind, strconv.Quote(t.Text))
				if t.Malformed() {
					line += "  ! " + t.Err
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&trivia, "trivia", false, "include whitespace and comments")
	return cmd
}
