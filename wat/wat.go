package wat

import (
	"context"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/wat-engine/errors"
	"github.com/wippyai/wat-engine/wat/diag"
	"github.com/wippyai/wat-engine/wat/internal/encoder"
	"github.com/wippyai/wat-engine/wat/internal/lower"
	"github.com/wippyai/wat-engine/wat/internal/parser"
	"github.com/wippyai/wat-engine/wat/internal/reparse"
	"github.com/wippyai/wat-engine/wat/internal/validate"
	"github.com/wippyai/wat-engine/wat/syntax"
)

// Result is the outcome of validating a tree.
type Result = validate.Result

// Stats describes the work an incremental reparse did.
type Stats = reparse.Stats

// Parse builds the syntax tree of src. It never fails; malformed input is
// represented by Error nodes.
func Parse(src string) *syntax.Tree {
	return syntax.NewTree(src, parser.Parse(src))
}

// Reparse applies edit to old and returns the new tree, re-parsing only the
// smallest enclosing form that can be rebuilt. The only error is an edit that
// does not fit the old text.
func Reparse(old *syntax.Tree, edit syntax.Edit) (*syntax.Tree, Stats, error) {
	return reparse.Reparse(old, edit)
}

// Validate resolves references and reports structural diagnostics for tree,
// syntax errors included.
func Validate(ctx context.Context, tree *syntax.Tree) Result {
	return validate.Validate(ctx, tree)
}

// ErrorCount counts the diagnostics of error severity.
func ErrorCount(ds []diag.Diagnostic) int {
	n := 0
	for _, d := range ds {
		if d.Severity == diag.Error {
			n++
		}
	}
	return n
}

// Compile parses, validates and lowers src to a WebAssembly binary, then has
// wazero compile the binary to check what the structural validator cannot,
// such as operand types.
func Compile(ctx context.Context, src string) ([]byte, error) {
	return CompileTree(ctx, Parse(src))
}

// CompileTree is Compile for an already parsed tree.
func CompileTree(ctx context.Context, tree *syntax.Tree) ([]byte, error) {
	bin, err := Encode(ctx, tree)
	if err != nil {
		return nil, err
	}
	if err := check(ctx, bin); err != nil {
		return nil, err
	}
	return bin, nil
}

// Encode lowers tree to a WebAssembly binary without the runtime check. The
// tree must hold at most one module and no error diagnostics.
func Encode(ctx context.Context, tree *syntax.Tree) ([]byte, error) {
	res := Validate(ctx, tree)
	if res.Cancelled {
		return nil, errors.Cancelled(errors.PhaseCompile, ctx.Err())
	}
	if n := ErrorCount(res.Diagnostics); n > 0 {
		return nil, errors.Rejected("", n)
	}

	switch len(res.Modules) {
	case 0:
		return encoder.Encode(&encoder.Module{}), nil
	case 1:
	default:
		return nil, errors.Unsupported(errors.PhaseCompile, "compiling more than one module per source")
	}

	m, err := lower.Lower(res.Modules[0])
	if err != nil {
		return nil, err
	}
	return encoder.Encode(m), nil
}

func check(ctx context.Context, bin []byte) error {
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig())
	defer r.Close(ctx)

	compiled, err := r.CompileModule(ctx, bin)
	if err != nil {
		return errors.Wrap(errors.PhaseCompile, errors.KindInvalidData, err, "runtime rejected module")
	}
	return compiled.Close(ctx)
}
