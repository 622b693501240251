package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLex      Phase = "lex"      // tokenization
	PhaseParse    Phase = "parse"    // tree building
	PhaseReparse  Phase = "reparse"  // incremental edits
	PhaseValidate Phase = "validate" // structural validation
	PhaseCompile  Phase = "compile"  // lowering to binary
	PhaseLoad     Phase = "load"     // reading sources
	PhaseWatch    Phase = "watch"    // file system watching
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindLimitExceeded Kind = "limit_exceeded"
	KindInvalidInput  Kind = "invalid_input"
	KindInvalidData   Kind = "invalid_data"
	KindStaleEdit     Kind = "stale_edit"
	KindNotFound      Kind = "not_found"
	KindUnsupported   Kind = "unsupported"
	KindCancelled     Kind = "cancelled"
	KindRejected      Kind = "rejected"
)

// Error is the structured error type used throughout the engine
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	File   string
	Detail string
	Span   *[2]int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.File != "" {
		b.WriteString(" in ")
		b.WriteString(e.File)
	}

	if e.Span != nil {
		fmt.Fprintf(&b, " at %d..%d", e.Span[0], e.Span[1])
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// File sets the source file the error relates to
func (b *Builder) File(name string) *Builder {
	b.err.File = name
	return b
}

// Span sets the byte range the error relates to
func (b *Builder) Span(start, end int) *Builder {
	b.err.Span = &[2]int{start, end}
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// LimitExceeded creates an error for input larger than a configured limit
func LimitExceeded(phase Phase, what string, size, limit int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindLimitExceeded,
		Detail: fmt.Sprintf("%s is %d bytes, limit is %d", what, size, limit),
		Value:  size,
	}
}

// StaleEdit creates an error for an edit computed against an outdated version
func StaleEdit(file string, base, current int) *Error {
	return &Error{
		Phase:  PhaseReparse,
		Kind:   KindStaleEdit,
		File:   file,
		Detail: fmt.Sprintf("edit based on version %d, document is at version %d", base, current),
		Value:  base,
	}
}

// OutOfRange creates an error for an edit span outside the source text
func OutOfRange(phase Phase, start, end, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Span:   &[2]int{start, end},
		Detail: fmt.Sprintf("span out of range (length %d)", length),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}


// Cancelled creates an error for work stopped by context cancellation
func Cancelled(phase Phase, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCancelled,
		Detail: "operation cancelled",
		Cause:  cause,
	}
}

// Rejected creates an error for a module that failed diagnostics before compiling
func Rejected(file string, errorCount int) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindRejected,
		File:   file,
		Detail: fmt.Sprintf("module has %d error diagnostic(s)", errorCount),
		Value:  errorCount,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a source loading error
func Load(file string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		File:   file,
		Detail: "read source",
		Cause:  cause,
	}
}
