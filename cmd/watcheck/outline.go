package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/wat-engine/wat"
	"github.com/wippyai/wat-engine/workspace"
)

func newOutlineCommand(a *app) *cobra.Command {
	var (
		interactive bool
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "outline <file>",
		Short: "List the declarations of a file",
		Long: `Outline lists the types, functions, tables, memories, globals and
segments declared by every module of a file, with their indices,
signatures and exports. With -i the outline is browsed interactively
together with the diagnostics of each declaration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.workspace()
			if err != nil {
				return err
			}
			path := filepath.Clean(args[0])

			if interactive {
				f, ok := cmd.OutOrStdout().(*os.File)
				if !ok || !term.IsTerminal(int(f.Fd())) {
					return fmt.Errorf("interactive mode needs a terminal")
				}
				return runInteractive(cmd.Context(), ws, path)
			}

			rep, symbols, err := loadOutline(cmd.Context(), ws, path)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(symbols)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), outlineTable(rep, symbols))
			return err
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse the outline in a terminal UI")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the outline as JSON")
	return cmd
}

func outlineTable(rep workspace.Report, symbols []wat.Symbol) string {
	header := lipgloss.NewStyle().Bold(true)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("LINE", "SPACE", "INDEX", "NAME", "SIGNATURE", "EXPORTS")
	for _, s := range symbols {
		pos := rep.Snapshot.Tree.Position(s.Span.Start)
		name := s.Label()
		if s.Imported {
			name += " (import)"
		}
		t.Row(
			strconv.Itoa(pos.Line),
			s.SpaceName,
			strconv.FormatUint(uint64(s.Index), 10),
			name,
			s.Signature,
			strings.Join(s.Exports, ", "),
		)
	}
	return t.String()
}
