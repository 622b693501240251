package report

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wat-engine/config"
	"github.com/wippyai/wat-engine/errors"
	"github.com/wippyai/wat-engine/wat"
	"github.com/wippyai/wat-engine/workspace"
)

func check(t *testing.T, sources map[string]string) []workspace.Report {
	t.Helper()
	w := workspace.New(wat.StandardRegistry())
	for name, src := range sources {
		_, err := w.Open(name, src)
		require.NoError(t, err)
	}
	reports, err := w.CheckAll(context.Background())
	require.NoError(t, err)
	return reports
}

func TestTextReport(t *testing.T) {
	reports := check(t, map[string]string{
		"a.wat": "(module\n  (func $f call $g))",
		"b.wat": "(module)",
	})

	var buf bytes.Buffer
	require.NoError(t, (&Text{Styles: NewStyles(false), Context: true}).Report(&buf, reports))
	out := buf.String()

	assert.Contains(t, out, "a.wat:2:17")
	assert.Contains(t, out, "error")
	assert.Contains(t, out, "(unresolved-reference)")
	assert.Contains(t, out, "  (func $f call $g))\n")
	assert.Contains(t, out, strings.Repeat(" ", 6+16)+"^^\n")
	assert.NotContains(t, out, "b.wat\n", "clean files are not listed")
	assert.True(t, strings.HasSuffix(out, "1 error in 1 file of 2 checked\n"), out)
}

func TestTextReportClean(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&Text{}).Report(&buf, check(t, map[string]string{"a.wat": "(module)"})))
	assert.Equal(t, "No problems found (1 file checked)\n", buf.String())
}

func TestTextReportWarnings(t *testing.T) {
	reports := check(t, map[string]string{"a.wat": "(module (func $f) (func $f))"})
	cfg := config.Default()
	cfg.Severity["duplicate-definition"] = config.SeverityWarning
	reports[0].Diagnostics = cfg.Apply(reports[0].Diagnostics)

	var buf bytes.Buffer
	require.NoError(t, (&Text{}).Report(&buf, reports))
	assert.Contains(t, buf.String(), "warning")
	assert.Contains(t, buf.String(), "1 warning in 1 file of 1 checked")
}

func TestJSONReport(t *testing.T) {
	reports := check(t, map[string]string{
		"a.wat": "(module\n  (func $f call $g))",
		"b.wat": "(module)",
	})

	var buf bytes.Buffer
	require.NoError(t, (&JSON{}).Report(&buf, reports))

	var got struct {
		Files []struct {
			Name        string `json:"name"`
			Diagnostics []struct {
				Message  string `json:"message"`
				Severity string `json:"severity"`
				Category string `json:"category"`
				Line     int    `json:"line"`
				Column   int    `json:"column"`
				Span     struct {
					Start int `json:"start"`
					End   int `json:"end"`
				} `json:"span"`
			} `json:"diagnostics"`
		} `json:"files"`
		Summary Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	require.Len(t, got.Files, 2)
	assert.Equal(t, "a.wat", got.Files[0].Name)
	require.Len(t, got.Files[0].Diagnostics, 1)
	d := got.Files[0].Diagnostics[0]
	assert.Equal(t, "error", d.Severity)
	assert.Equal(t, "unresolved-reference", d.Category)
	assert.Equal(t, 2, d.Line)
	assert.Equal(t, 17, d.Column)
	assert.Equal(t, 24, d.Span.Start)
	assert.Empty(t, got.Files[1].Diagnostics)
	assert.Equal(t, Summary{Files: 2, FilesIssue: 1, Errors: 1}, got.Summary)
}

func TestNew(t *testing.T) {
	r, err := New(config.OutputJSON, nil)
	require.NoError(t, err)
	assert.IsType(t, &JSON{}, r)

	r, err = New(config.OutputText, NewStyles(false))
	require.NoError(t, err)
	assert.IsType(t, &Text{}, r)

	_, err = New("xml", nil)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindInvalidInput})
}

func TestColorEnabled(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, ColorEnabled(ColorAlways, &buf))
	assert.False(t, ColorEnabled(ColorNever, &buf))
	assert.False(t, ColorEnabled(ColorAuto, &buf), "buffers are not terminals")
}

func TestSourceLine(t *testing.T) {
	src := "a\r\nbc\nd"
	assert.Equal(t, "a", sourceLine(src, 0))
	assert.Equal(t, "bc", sourceLine(src, 4))
	assert.Equal(t, "d", sourceLine(src, 7))
	assert.Equal(t, "d", sourceLine(src, 99))
}
