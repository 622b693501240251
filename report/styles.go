// Package report renders check results as styled text or JSON.
package report

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color modes accepted by ColorEnabled.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Styles holds the lipgloss styles of the text reporter.
type Styles struct {
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Path     lipgloss.Style
	Location lipgloss.Style
	Category lipgloss.Style
	Message  lipgloss.Style
	Source   lipgloss.Style
	Caret    lipgloss.Style
	Success  lipgloss.Style
	Failure  lipgloss.Style
	Dim      lipgloss.Style
}

// NewStyles returns colored styles, or plain ones when color is false.
func NewStyles(color bool) *Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return &Styles{
			Error:    plain,
			Warning:  plain,
			Path:     plain,
			Location: plain,
			Category: plain,
			Message:  plain,
			Source:   plain,
			Caret:    plain,
			Success:  plain,
			Failure:  plain,
			Dim:      plain,
		}
	}
	return &Styles{
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD866")).Bold(true),
		Path:     lipgloss.NewStyle().Bold(true),
		Location: lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
		Category: lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")),
		Message:  lipgloss.NewStyle(),
		Source:   lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
		Caret:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90")).Bold(true),
		Failure:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
	}
}

// ColorEnabled resolves a color mode for w. In auto mode color is used only
// when w is a terminal and NO_COLOR is unset.
func ColorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
