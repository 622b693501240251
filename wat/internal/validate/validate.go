// Package validate resolves the references of a syntax tree against the index
// spaces of its modules and reports what can be checked without type
// inference: unresolved references, duplicate definitions and arity
// mismatches.
package validate

import (
	"context"
	"fmt"

	"github.com/wippyai/wat-engine/wat/diag"
	"github.com/wippyai/wat-engine/wat/syntax"
	"github.com/wippyai/wat-engine/wat/token"
)

// Result is the outcome of one validation run.
type Result struct {
	// Diagnostics holds syntax and structural diagnostics sorted by position.
	Diagnostics []diag.Diagnostic
	// Modules holds the index spaces built for each module in the tree.
	Modules []*Module
	// Cancelled is set when ctx was done before every declaration was
	// checked. Diagnostics then covers the declarations visited so far.
	Cancelled bool
}

type checker struct {
	ctx context.Context
	res *Result
}

// Validate checks tree. It never fails: malformed input yields diagnostics,
// and cancellation yields partial diagnostics with Cancelled set. The tree is
// only read, so concurrent runs over one tree are safe.
func Validate(ctx context.Context, tree *syntax.Tree) Result {
	root := tree.Root()
	res := Result{Diagnostics: diag.FromProblems(syntax.Errors(root))}
	c := &checker{ctx: ctx, res: &res}

	res.Modules = modules(root)
	for _, m := range res.Modules {
		if !c.collect(m) {
			break
		}
	}
	if !res.Cancelled {
		for _, m := range res.Modules {
			if !c.check(m) {
				break
			}
		}
	}
	diag.Sort(res.Diagnostics)
	return res
}

func (c *checker) cancelled() bool {
	if c.res.Cancelled {
		return true
	}
	if c.ctx.Err() != nil {
		c.res.Cancelled = true
	}
	return c.res.Cancelled
}

func (c *checker) report(span token.Span, cat diag.Category, format string, args ...any) {
	c.res.Diagnostics = append(c.res.Diagnostics, diag.Diagnostic{
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
		Severity: diag.Error,
		Category: cat,
	})
}
