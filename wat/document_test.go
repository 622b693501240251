package wat

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/wippyai/wat-engine/errors"
	"github.com/wippyai/wat-engine/wat/syntax"
)

func TestDocumentApply(t *testing.T) {
	doc, err := NewDocument("a.wat", "(module (func $f call $g))")
	if err != nil {
		t.Fatal(err)
	}
	if n := len(doc.Snapshot().Validate(context.Background()).Diagnostics); n != 1 {
		t.Fatalf("got %d diagnostics, want 1", n)
	}

	// Rename $g to $f.
	snap, err := doc.Apply(0, syntax.Edit{Start: 22, End: 24, NewText: "$f"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if snap.Version != 1 || doc.Version() != 1 {
		t.Errorf("version = %d, document at %d", snap.Version, doc.Version())
	}
	if doc.Text() != "(module (func $f call $f))" {
		t.Errorf("text = %q", doc.Text())
	}
	if snap.Stats.Full {
		t.Error("a one-token edit should not need a full parse")
	}
	if ds := snap.Validate(context.Background()).Diagnostics; len(ds) != 0 {
		t.Errorf("diagnostics after edit: %v", ds)
	}
}

func TestDocumentStaleEdit(t *testing.T) {
	doc, _ := NewDocument("a.wat", "(module)")
	if _, err := doc.Apply(0, syntax.Edit{Start: 7, End: 7, NewText: " (func)"}); err != nil {
		t.Fatal(err)
	}
	_, err := doc.Apply(0, syntax.Edit{Start: 0, End: 0, NewText: ";; x\n"})
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindStaleEdit || e.File != "a.wat" {
		t.Fatalf("error = %v, want a stale edit", err)
	}
	if doc.Version() != 1 {
		t.Errorf("a rejected edit must not publish, version = %d", doc.Version())
	}
}

func TestDocumentLimits(t *testing.T) {
	if _, err := NewDocument("big.wat", "(module)", WithMaxSourceBytes(4)); err == nil {
		t.Error("oversized source should be rejected")
	}

	doc, err := NewDocument("a.wat", "(module)", WithMaxSourceBytes(10))
	if err != nil {
		t.Fatal(err)
	}
	_, err = doc.Apply(0, syntax.Edit{Start: 7, End: 7, NewText: " (func)"})
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseParse, Kind: errors.KindLimitExceeded}) {
		t.Errorf("error = %v, want a limit error", err)
	}
	if _, err := doc.Apply(0, syntax.Edit{Start: 3, End: 99}); err == nil {
		t.Error("edit past the end should fail")
	}
	if doc.Version() != 0 {
		t.Errorf("version = %d", doc.Version())
	}
}

func TestDocumentReplace(t *testing.T) {
	doc, _ := NewDocument("a.wat", "(module (func $f))")
	snap, err := doc.Replace("(module (func $f) (func $f))")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Version != 1 || doc.Text() != "(module (func $f) (func $f))" {
		t.Errorf("snapshot = %+v", snap)
	}
	if n := ErrorCount(snap.Validate(context.Background()).Diagnostics); n != 1 {
		t.Errorf("got %d errors, want the duplicate", n)
	}
}

func TestDocumentConcurrentReaders(t *testing.T) {
	doc, _ := NewDocument("a.wat", "(module)")
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				snap := doc.Snapshot()
				if snap.Tree.RootNode().Width() != len(snap.Tree.Source()) {
					t.Error("snapshot tree does not cover its source")
					return
				}
				snap.Validate(context.Background())
			}
		}()
	}
	for v := 0; v < 50; v++ {
		if _, err := doc.Apply(v, syntax.Edit{Start: 7, End: 7, NewText: " (func)"}); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()
	if doc.Version() != 50 {
		t.Errorf("version = %d", doc.Version())
	}
}
