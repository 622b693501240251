// Package wat parses and checks WebAssembly text.
//
// Parse builds a lossless concrete syntax tree that never fails: malformed
// input becomes Error nodes and every byte of the source belongs to exactly
// one leaf. Reparse updates a tree after an edit, re-parsing only the
// smallest enclosing form, and Validate resolves references against the
// index spaces of each module.
//
//	tree := wat.Parse(`(module (func $f call $g))`)
//	res := wat.Validate(ctx, tree)
//	for _, d := range res.Diagnostics {
//		fmt.Println(tree.Position(d.Span.Start), d.Message)
//	}
//
// Compile lowers a diagnostic-free module to the binary format and has wazero
// compile the result, which catches the type errors the structural validator
// does not look for:
//
//	bin, err := wat.Compile(ctx, `(module
//		(func (export "add") (param i32 i32) (result i32)
//			(i32.add (local.get 0) (local.get 1))))`)
//
// Document wraps a tree that changes over time. Snapshots are immutable and
// published atomically, so readers never block writers:
//
//	doc, _ := wat.NewDocument("add.wat", src)
//	snap, err := doc.Apply(doc.Version(), syntax.Edit{Start: 10, End: 12, NewText: "$g"})
//
// Supported beyond the MVP: bulk memory, reference types, multi-value, sign
// extension, saturating truncation and tail calls (encoded, though wazero
// does not run them). Not supported: SIMD, threads, exception handling, GC.
package wat
