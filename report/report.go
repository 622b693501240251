package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/wippyai/wat-engine/config"
	"github.com/wippyai/wat-engine/errors"
	"github.com/wippyai/wat-engine/wat/diag"
	"github.com/wippyai/wat-engine/wat/token"
	"github.com/wippyai/wat-engine/workspace"
)

// Reporter writes the results of a check.
type Reporter interface {
	Report(w io.Writer, reports []workspace.Report) error
}

// New returns the reporter for an output format of the configuration.
func New(format string, styles *Styles) (Reporter, error) {
	switch format {
	case config.OutputText, "":
		return &Text{Styles: styles, Context: true}, nil
	case config.OutputJSON:
		return &JSON{Indent: true}, nil
	default:
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(format).
			Detail("unknown output format %q", format).
			Build()
	}
}

// Summary counts the diagnostics of a set of reports.
type Summary struct {
	Files      int `json:"files"`
	FilesIssue int `json:"files_with_issues"`
	Errors     int `json:"errors"`
	Warnings   int `json:"warnings"`
}

// Summarize counts diagnostics over reports.
func Summarize(reports []workspace.Report) Summary {
	s := Summary{Files: len(reports)}
	for _, r := range reports {
		if len(r.Diagnostics) > 0 {
			s.FilesIssue++
		}
		s.Errors += diag.Count(r.Diagnostics, diag.Error)
		s.Warnings += diag.Count(r.Diagnostics, diag.Warning)
	}
	return s
}

func position(r workspace.Report, offset int) token.Position {
	if r.Snapshot == nil {
		return token.Position{Offset: offset}
	}
	return r.Snapshot.Tree.Position(offset)
}

// Text renders diagnostics one per line as path:line:col, optionally with
// the offending source line, followed by a summary.
type Text struct {
	Styles  *Styles
	Context bool
}

func (t *Text) styles() *Styles {
	if t.Styles == nil {
		return NewStyles(false)
	}
	return t.Styles
}

// Report implements Reporter.
func (t *Text) Report(w io.Writer, reports []workspace.Report) error {
	s := t.styles()
	var b strings.Builder
	for _, r := range reports {
		if len(r.Diagnostics) == 0 && !r.Cancelled {
			continue
		}
		b.WriteString(s.Path.Render(r.Name))
		if r.Cancelled {
			b.WriteString(s.Dim.Render(" (cancelled, results incomplete)"))
		}
		b.WriteByte('\n')
		for _, d := range r.Diagnostics {
			t.diagnostic(&b, r, d)
		}
	}
	b.WriteString(t.summary(Summarize(reports)))
	_, err := io.WriteString(w, b.String())
	return err
}

func (t *Text) diagnostic(b *strings.Builder, r workspace.Report, d diag.Diagnostic) {
	s := t.styles()
	pos := position(r, d.Span.Start)
	sev := s.Error.Render(d.Severity.String())
	if d.Severity == diag.Warning {
		sev = s.Warning.Render(d.Severity.String())
	}
	fmt.Fprintf(b, "  %s  %s  %s  %s\n",
		s.Location.Render(fmt.Sprintf("%s:%d:%d", r.Name, pos.Line, pos.Column)),
		sev,
		s.Message.Render(d.Message),
		s.Category.Render("("+d.Category.String()+")"),
	)
	if !t.Context || r.Snapshot == nil {
		return
	}
	line := sourceLine(r.Snapshot.Tree.Source(), d.Span.Start)
	if strings.TrimSpace(line) == "" {
		return
	}
	const indent = "      "
	lineEnd := pos.Offset - (pos.Column - 1) + len(line)
	width := max(1, min(d.Span.End, lineEnd)-d.Span.Start)
	b.WriteString(indent + s.Source.Render(line) + "\n")
	b.WriteString(indent + strings.Repeat(" ", pos.Column-1) + s.Caret.Render(strings.Repeat("^", width)) + "\n")
}

func (t *Text) summary(sum Summary) string {
	s := t.styles()
	if sum.Errors == 0 && sum.Warnings == 0 {
		return s.Success.Render("No problems found") + s.Dim.Render(fmt.Sprintf(" (%s checked)", plural(sum.Files, "file"))) + "\n"
	}
	var parts []string
	if sum.Errors > 0 {
		parts = append(parts, s.Failure.Render(plural(sum.Errors, "error")))
	}
	if sum.Warnings > 0 {
		parts = append(parts, s.Warning.Render(plural(sum.Warnings, "warning")))
	}
	return fmt.Sprintf("%s in %s of %d checked\n",
		strings.Join(parts, ", "), plural(sum.FilesIssue, "file"), sum.Files)
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// sourceLine returns the line of src containing offset, without its newline.
func sourceLine(src string, offset int) string {
	offset = max(0, min(offset, len(src)))
	start := strings.LastIndexByte(src[:offset], '\n') + 1
	end := strings.IndexByte(src[offset:], '\n')
	if end < 0 {
		return src[start:]
	}
	return strings.TrimSuffix(src[start:offset+end], "\r")
}

// JSON renders reports as one JSON document for editors and scripts.
type JSON struct {
	Indent bool
}

type jsonDiagnostic struct {
	diag.Diagnostic
	Line   int `json:"line"`
	Column int `json:"column"`
}

type jsonFile struct {
	Name        string           `json:"name"`
	Diagnostics []jsonDiagnostic `json:"diagnostics"`
	Version     int              `json:"version"`
	Cancelled   bool             `json:"cancelled,omitempty"`
}

type jsonReport struct {
	Files   []jsonFile `json:"files"`
	Summary Summary    `json:"summary"`
}

// Report implements Reporter.
func (j *JSON) Report(w io.Writer, reports []workspace.Report) error {
	out := jsonReport{Files: make([]jsonFile, 0, len(reports)), Summary: Summarize(reports)}
	for _, r := range reports {
		f := jsonFile{
			Name:        r.Name,
			Version:     r.Version,
			Cancelled:   r.Cancelled,
			Diagnostics: make([]jsonDiagnostic, 0, len(r.Diagnostics)),
		}
		for _, d := range r.Diagnostics {
			pos := position(r, d.Span.Start)
			f.Diagnostics = append(f.Diagnostics, jsonDiagnostic{Diagnostic: d, Line: pos.Line, Column: pos.Column})
		}
		out.Files = append(out.Files, f)
	}
	enc := json.NewEncoder(w)
	if j.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}
