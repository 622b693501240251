package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wat-engine/wat"
	"github.com/wippyai/wat-engine/wat/diag"
	"github.com/wippyai/wat-engine/workspace"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateBrowse modelState = iota
	stateFilter
	stateDetail
)

type outlineModel struct {
	ctx      context.Context
	err      error
	ws       *workspace.Workspace
	filename string
	report   workspace.Report
	symbols  []wat.Symbol
	visible  []int
	filter   textinput.Model
	selected int
	loaded   bool
	state    modelState
}

func newOutlineModel(ctx context.Context, ws *workspace.Workspace, filename string) *outlineModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "name, space or export"
	ti.Width = 40
	return &outlineModel{
		ctx:      ctx,
		ws:       ws,
		filename: filename,
		filter:   ti,
		state:    stateBrowse,
	}
}

type loadedMsg struct {
	err     error
	report  workspace.Report
	symbols []wat.Symbol
}

func loadOutline(ctx context.Context, ws *workspace.Workspace, path string) (workspace.Report, []wat.Symbol, error) {
	if _, err := ws.Load(path); err != nil {
		return workspace.Report{}, nil, err
	}
	rep, err := ws.Check(ctx, path)
	if err != nil {
		return rep, nil, err
	}
	return rep, wat.Outline(rep.Snapshot.Validate(ctx)), nil
}

func (m *outlineModel) Init() tea.Cmd {
	return m.load
}

func (m *outlineModel) load() tea.Msg {
	rep, symbols, err := loadOutline(m.ctx, m.ws, m.filename)
	return loadedMsg{err: err, report: rep, symbols: symbols}
}

func (m *outlineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateFilter {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateBrowse && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateBrowse && m.selected < len(m.visible)-1 {
				m.selected++
			}

		case "/":
			if m.state == stateBrowse {
				m.state = stateFilter
				return m, m.filter.Focus()
			}

		case "enter":
			switch m.state {
			case stateBrowse:
				if len(m.visible) > 0 {
					m.state = stateDetail
				}
			case stateDetail:
				m.state = stateBrowse
			}

		case "esc":
			if m.state == stateDetail {
				m.state = stateBrowse
			}
		}

	case loadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.report = msg.report
		m.symbols = msg.symbols
		m.applyFilter()
	}
	return m, nil
}

func (m *outlineModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.filter.SetValue("")
		fallthrough
	case "enter":
		m.filter.Blur()
		m.state = stateBrowse
		m.applyFilter()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

// applyFilter recomputes the visible symbols and keeps the cursor in range.
func (m *outlineModel) applyFilter() {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.visible = m.visible[:0]
	for i, s := range m.symbols {
		if q == "" || matches(s, q) {
			m.visible = append(m.visible, i)
		}
	}
	m.selected = max(0, min(m.selected, len(m.visible)-1))
}

func matches(s wat.Symbol, q string) bool {
	if strings.Contains(strings.ToLower(s.Label()), q) || strings.HasPrefix(s.SpaceName, q) {
		return true
	}
	for _, e := range s.Exports {
		if strings.Contains(strings.ToLower(e), q) {
			return true
		}
	}
	return false
}

// diagnosticsIn returns the diagnostics located inside the symbol.
func (m *outlineModel) diagnosticsIn(s wat.Symbol) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range m.report.Diagnostics {
		if s.Span.Contains(d.Span) {
			out = append(out, d)
		}
	}
	return out
}

func (m *outlineModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if !m.loaded {
		return "Loading " + m.filename + "..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("WAT Outline"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString(" ")
	if n := m.report.Errors(); n > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("%d errors", n)))
	} else {
		b.WriteString(okStyle.Render("no errors"))
	}
	b.WriteString("\n\n")

	switch m.state {
	case stateBrowse, stateFilter:
		if m.state == stateFilter || m.filter.Value() != "" {
			b.WriteString(m.filter.View())
			b.WriteString("\n\n")
		}
		if len(m.visible) == 0 {
			b.WriteString(helpStyle.Render("no declarations"))
			b.WriteString("\n")
		}
		for i, idx := range m.visible {
			line := m.formatSymbol(m.symbols[idx])
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.state == stateFilter {
			b.WriteString(helpStyle.Render("enter apply • esc clear"))
		} else {
			b.WriteString(helpStyle.Render("↑/↓ select • enter details • / filter • q quit"))
		}

	case stateDetail:
		s := m.symbols[m.visible[m.selected]]
		pos := m.report.Snapshot.Tree.Position(s.Span.Start)
		fmt.Fprintf(&b, "%s %s\n\n", typeStyle.Render(s.SpaceName), nameStyle.Render(s.Label()))
		fmt.Fprintf(&b, "  index      %d\n", s.Index)
		fmt.Fprintf(&b, "  position   %s:%s\n", m.filename, pos)
		if s.Module != "" {
			fmt.Fprintf(&b, "  module     %s\n", s.Module)
		}
		if s.Signature != "" {
			fmt.Fprintf(&b, "  signature  %s\n", typeStyle.Render(s.Signature))
		}
		if s.Imported {
			b.WriteString("  imported\n")
		}
		if len(s.Exports) > 0 {
			fmt.Fprintf(&b, "  exports    %s\n", strings.Join(s.Exports, ", "))
		}
		b.WriteString("\n")
		if ds := m.diagnosticsIn(s); len(ds) > 0 {
			for _, d := range ds {
				p := m.report.Snapshot.Tree.Position(d.Span.Start)
				b.WriteString(errorStyle.Render(fmt.Sprintf("  %s %s: %s", p, d.Severity, d.Message)))
				b.WriteString("\n")
			}
		} else {
			b.WriteString(okStyle.Render("  no diagnostics"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter back • q quit"))
	}

	return b.String()
}

func (m *outlineModel) formatSymbol(s wat.Symbol) string {
	line := fmt.Sprintf("%-7s %3d  %s", s.SpaceName, s.Index, s.Label())
	if s.Signature != "" {
		line += " " + s.Signature
	}
	if len(s.Exports) > 0 {
		line += " -> " + strings.Join(s.Exports, ", ")
	}
	if len(m.diagnosticsIn(s)) > 0 {
		line += " !"
	}
	return line
}

func runInteractive(ctx context.Context, ws *workspace.Workspace, filename string) error {
	p := tea.NewProgram(newOutlineModel(ctx, ws, filename), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
