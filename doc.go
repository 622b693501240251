// Package watengine is a WebAssembly text format (WAT) engine: a lossless
// parser with error recovery, incremental reparsing, structural validation
// and a compiler to the binary format.
//
// # Architecture Overview
//
// The module is organized into several packages with distinct responsibilities:
//
//	watengine/           Module documentation
//	├── wat/             Parse, Reparse, Validate, Compile, Document, Outline, Registry
//	│   ├── token/       Lossless lexer, numeric and string literal decoding
//	│   ├── syntax/      Immutable green tree, Ref cursors, edits, walking
//	│   ├── diag/        Diagnostics and their categories
//	│   └── internal/    parser, reparse, validate, opcode, lower, encoder
//	├── workspace/       Document sets, parallel checks, file watching
//	├── config/          .watcheck.yaml loading and severity overrides
//	├── report/          Text and JSON diagnostics output
//	├── errors/          Structured error types for debugging
//	└── cmd/watcheck/    Command line tool
//
// # Quick Start
//
// Parse and validate a module:
//
//	tree := wat.Parse(src)
//	res := wat.Validate(ctx, tree)
//	for _, d := range res.Diagnostics {
//	    fmt.Println(tree.Position(d.Span.Start), d.Message)
//	}
//
// Keep a document up to date while it is edited:
//
//	doc, err := wat.NewDocument("add.wat", src)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	snap, err := doc.Apply(doc.Version(), syntax.Edit{Start: 10, End: 12, NewText: "$f"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	diags := snap.Validate(ctx).Diagnostics
//
// Compile a valid module:
//
//	bin, err := wat.Compile(ctx, src)
//
// # Thread Safety
//
// Trees and snapshots are immutable and safe for concurrent use. A Document
// serializes writers; readers take snapshots without locking. A Workspace is
// safe for concurrent use.
package watengine
