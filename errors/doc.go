// Package errors provides structured error types for the wat-engine library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the source file, an optional byte span, and a cause chain.
//
// Problems found in WAT sources are never errors: they are reported as diagnostics.
// Errors are reserved for conditions where no tree or result can be produced, such
// as oversized input, stale edits, unreadable files or invalid configuration.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseReparse, errors.KindInvalidInput).
//		File("main.wat").
//		Span(10, 14).
//		Detail("edit crosses end of source").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.LimitExceeded(errors.PhaseParse, "source", n, limit)
//	err := errors.StaleEdit("main.wat", 3, 4)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
