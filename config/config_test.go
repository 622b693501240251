package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wat-engine/errors"
	"github.com/wippyai/wat-engine/wat/diag"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, OutputText, c.Output)
	assert.Positive(t, c.Jobs)
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
requires: ">= 0.3.0"
max_source_bytes: 1024
jobs: 2
extensions: [".wat", ".wati"]
output: json
severity:
  arity-mismatch: warning
  duplicate-definition: off
`), "test.yaml")
	require.NoError(t, err)

	assert.Equal(t, ">= 0.3.0", c.Requires)
	assert.Equal(t, 1024, c.MaxSourceBytes)
	assert.Equal(t, 2, c.Jobs)
	assert.Equal(t, []string{".wat", ".wati"}, c.Extensions)
	assert.Equal(t, OutputJSON, c.Output)
	assert.Equal(t, "warning", c.Severity["arity-mismatch"])
	assert.Equal(t, "test.yaml", c.Path)
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	c, err := Parse(nil, "empty.yaml")
	require.NoError(t, err)
	assert.Equal(t, Default().MaxSourceBytes, c.MaxSourceBytes)
	assert.NotNil(t, c.Severity)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "colour: red\n"},
		{"bad yaml", "jobs: [\n"},
		{"bad constraint", "requires: \"not a version\"\n"},
		{"zero jobs", "jobs: 0\n"},
		{"negative size", "max_source_bytes: -1\n"},
		{"bad output", "output: xml\n"},
		{"bad extension", "extensions: [\".\"]\n"},
		{"unknown category", "severity: {style: off}\n"},
		{"bad severity", "severity: {syntax: fatal}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "bad.yaml")
			require.Error(t, err)

			var e *errors.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, errors.PhaseConfig, e.Phase)
			assert.Equal(t, "bad.yaml", e.File)
		})
	}
}

func TestFindSearchesUpward(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path, err := Find(context.Background(), nested)
	require.NoError(t, err)
	assert.Empty(t, path, "the search must stop at the repository root")

	want := filepath.Join(root, "a", FileName)
	require.NoError(t, os.WriteFile(want, []byte("jobs: 3\n"), 0o644))

	path, err = Find(context.Background(), nested)
	require.NoError(t, err)
	assert.Equal(t, want, path)

	c, err := Resolve(context.Background(), "", nested)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Jobs)
	assert.Equal(t, want, c.Path)
}

func TestResolveExplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: json\n"), 0o644))

	c, err := Resolve(context.Background(), path, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, OutputJSON, c.Output)

	_, err = Resolve(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindInvalidData})
}

func TestFindCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Find(ctx, t.TempDir())
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindCancelled})
}

func TestCheckVersion(t *testing.T) {
	c := Default()
	c.Requires = ">= 1.2.0, < 2.0.0"

	assert.NoError(t, c.CheckVersion("1.4.1"))
	assert.NoError(t, c.CheckVersion("dev"), "unparseable versions are not checked")

	err := c.CheckVersion("1.1.0")
	require.Error(t, err)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindUnsupported})
	assert.Contains(t, err.Error(), "1.1.0")

	assert.Error(t, c.CheckVersion("2.0.0"))
}

func TestApplySeverity(t *testing.T) {
	c := Default()
	c.Severity = map[string]string{
		"arity-mismatch":       SeverityWarning,
		"duplicate-definition": SeverityOff,
	}
	in := []diag.Diagnostic{
		{Message: "a", Category: diag.ArityMismatch},
		{Message: "b", Category: diag.DuplicateDefinition},
		{Message: "c", Category: diag.Syntax},
	}
	out := c.Apply(in)
	require.Len(t, out, 2)
	assert.Equal(t, diag.Warning, out[0].Severity)
	assert.Equal(t, "c", out[1].Message)
	assert.Equal(t, diag.Error, out[1].Severity)
}

func TestRegistry(t *testing.T) {
	c := Default()
	c.Extensions = append(c.Extensions, "wati")
	r, err := c.Registry()
	require.NoError(t, err)
	_, ok := r.Lookup("module.wati")
	assert.True(t, ok)
}
