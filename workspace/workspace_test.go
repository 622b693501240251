package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wat-engine/errors"
	"github.com/wippyai/wat-engine/wat"
	"github.com/wippyai/wat-engine/wat/diag"
)

func newWorkspace(opts ...Option) *Workspace {
	return New(wat.StandardRegistry(), opts...)
}

func TestOpenAndCheck(t *testing.T) {
	w := newWorkspace()
	_, err := w.Open("a.wat", "(module (func $f call $g))")
	require.NoError(t, err)

	rep, err := w.Check(context.Background(), "a.wat")
	require.NoError(t, err)
	assert.Equal(t, "a.wat", rep.Name)
	assert.Equal(t, 0, rep.Version)
	require.Len(t, rep.Diagnostics, 1)
	assert.Equal(t, diag.UnresolvedReference, rep.Diagnostics[0].Category)
	assert.Equal(t, 1, rep.Errors())

	assert.True(t, w.Close("a.wat"))
	assert.False(t, w.Close("a.wat"))
	_, err = w.Check(context.Background(), "a.wat")
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindNotFound})
}

func TestOpenRejectsOversizedSource(t *testing.T) {
	w := newWorkspace(WithMaxSourceBytes(4))
	_, err := w.Open("a.wat", "(module)")
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseParse, Kind: errors.KindLimitExceeded})
	assert.Empty(t, w.Names())
}

func TestUpdate(t *testing.T) {
	w := newWorkspace()
	src := "(module\n  (func $f)\n  (func $g call $h)\n)\n"
	_, err := w.Open("a.wat", src)
	require.NoError(t, err)

	fixed := strings.Replace(src, "call $h", "call $f", 1)
	snap, err := w.Update("a.wat", fixed)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version)
	assert.Equal(t, fixed, snap.Tree.Source())
	assert.Empty(t, snap.Validate(context.Background()).Diagnostics)

	same, err := w.Update("a.wat", fixed)
	require.NoError(t, err)
	assert.Same(t, snap, same, "unchanged text keeps the snapshot")

	_, err = w.Update("missing.wat", fixed)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindNotFound})
}

func TestUpdateManyRegionsReparses(t *testing.T) {
	var before, after strings.Builder
	before.WriteString("(module\n")
	after.WriteString("(module\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&before, ";; a%d\n(func)\n", i)
		fmt.Fprintf(&after, ";; b%d\n(func)\n", i)
	}
	before.WriteString(")\n")
	after.WriteString(")\n")

	w := newWorkspace()
	_, err := w.Open("a.wat", before.String())
	require.NoError(t, err)

	snap, err := w.Update("a.wat", after.String())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version, "a full reparse publishes one version")
	assert.Equal(t, after.String(), snap.Tree.Source())
}

func TestCheckAll(t *testing.T) {
	dropUnresolved := func(ds []diag.Diagnostic) []diag.Diagnostic {
		var out []diag.Diagnostic
		for _, d := range ds {
			if d.Category != diag.UnresolvedReference {
				out = append(out, d)
			}
		}
		return out
	}
	w := newWorkspace(WithJobs(2), WithFilter(dropUnresolved))
	sources := map[string]string{
		"c.wat": "(module (func $f) (func $f))",
		"a.wat": "(module (func call $missing))",
		"b.wat": "(module (func $f (param i32) (result i32) local.get 0))",
		"d.wat": "(module (func",
	}
	for name, src := range sources {
		_, err := w.Open(name, src)
		require.NoError(t, err)
	}

	reports, err := w.CheckAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 4)

	var names []string
	errs := map[string]int{}
	for _, r := range reports {
		names = append(names, r.Name)
		errs[r.Name] = r.Errors()
	}
	assert.Equal(t, []string{"a.wat", "b.wat", "c.wat", "d.wat"}, names)
	assert.Equal(t, 0, errs["a.wat"], "the filter drops unresolved references")
	assert.Equal(t, 0, errs["b.wat"])
	assert.Equal(t, 1, errs["c.wat"])
	assert.Positive(t, errs["d.wat"])
}

func TestCheckAllCancelled(t *testing.T) {
	w := newWorkspace()
	_, err := w.Open("a.wat", "(module (func) (func))")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.CheckAll(ctx)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseValidate, Kind: errors.KindCancelled})

	rep, err := w.Check(context.Background(), "a.wat")
	require.NoError(t, err, "a cancelled run is not cached")
	assert.False(t, rep.Cancelled)
}

func writeFile(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
}

func TestCollectAndLoadAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.wat"), "(module)")
	writeFile(t, filepath.Join(dir, "sub", "b.wast"), "(module (func))")
	writeFile(t, filepath.Join(dir, ".hidden", "c.wat"), "(module)")
	writeFile(t, filepath.Join(dir, "notes.txt"), "hello")
	explicit := filepath.Join(dir, "notes.txt")

	w := newWorkspace()
	paths, err := w.Collect(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.wat"), filepath.Join(dir, "sub", "b.wast")}, paths)

	paths, err = w.Collect(context.Background(), []string{explicit, dir, filepath.Join(dir, "a.wat")})
	require.NoError(t, err)
	assert.Len(t, paths, 3, "explicit files are kept and duplicates dropped")

	require.NoError(t, w.LoadAll(context.Background(), []string{dir}))
	assert.Equal(t, []string{filepath.Join(dir, "a.wat"), filepath.Join(dir, "sub", "b.wast")}, w.Names())

	_, err = w.Collect(context.Background(), []string{filepath.Join(dir, "missing")})
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindInvalidData})
}

func TestLoadRejectsOtherLanguages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.go")
	writeFile(t, path, "package main\n")

	_, err := newWorkspace().Load(path)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindUnsupported})
}
