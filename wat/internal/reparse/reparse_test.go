package reparse

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/wippyai/wat-engine/wat/internal/parser"
	"github.com/wippyai/wat-engine/wat/syntax"
)

const base = `(module
  (func $a (param $x i32) (result i32)
    local.get $x
    (i32.add (i32.const 1) (i32.const 2))
    drop)
  (func $b (result i32)
    block $l
      (br $l)
    end
    i32.const 7)
  (data "hello")
  (global $g (mut i32) (i32.const 0)))
`

func parse(src string) *syntax.Tree {
	return syntax.NewTree(src, parser.Parse(src))
}

func editAt(t *testing.T, src, target, replacement string) syntax.Edit {
	t.Helper()
	i := strings.Index(src, target)
	if i < 0 {
		t.Fatalf("%q not found", target)
	}
	return syntax.Edit{Start: i, End: i + len(target), NewText: replacement}
}

func checkEquivalent(t *testing.T, old *syntax.Tree, e syntax.Edit) (*syntax.Tree, Stats) {
	t.Helper()
	got, stats, err := Reparse(old, e)
	if err != nil {
		t.Fatalf("Reparse(%v): %v", e, err)
	}
	want := parser.Parse(got.Source())
	if !syntax.Equal(got.RootNode(), want) {
		t.Fatalf("reparse after %v differs from full parse:\n got  %s\n want %s",
			e, syntax.Dump(got.RootNode()), syntax.Dump(want))
	}
	if got.RootNode().Width() != len(got.Source()) {
		t.Fatalf("root width %d, source %d", got.RootNode().Width(), len(got.Source()))
	}
	return got, stats
}

func TestReparseLocal(t *testing.T) {
	old := parse(base)
	e := editAt(t, base, "(i32.const 2)", "(i32.const 42)")
	e.Start += len("(i32.const ")
	e.End = e.Start + 1
	e.NewText = "42"

	got, stats := checkEquivalent(t, old, e)
	if stats.Full {
		t.Fatal("expected a local reparse")
	}
	if stats.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", stats.Attempts)
	}
	if got := got.Source()[stats.Reparsed.Start:stats.Reparsed.End]; got != "(i32.const 42)" {
		t.Errorf("reparsed %q", got)
	}

	// Untouched declarations are shared with the old tree.
	oldMod := old.RootNode().FirstChildOf(syntax.KindModule)
	newMod := got.RootNode().FirstChildOf(syntax.KindModule)
	oldFuncs := oldMod.ChildrenOf(syntax.KindFuncDecl)
	newFuncs := newMod.ChildrenOf(syntax.KindFuncDecl)
	if newFuncs[1] != oldFuncs[1] {
		t.Error("second function should be shared")
	}
	if newFuncs[0] == oldFuncs[0] {
		t.Error("edited function must be rebuilt")
	}
	if newMod.FirstChildOf(syntax.KindDataDecl) != oldMod.FirstChildOf(syntax.KindDataDecl) {
		t.Error("data segment should be shared")
	}
}

func TestReparseWidens(t *testing.T) {
	tests := []struct {
		name   string
		target string
		repl   string
		full   bool
	}{
		{"kind change", "(i32.const 1)", "(param i32)", false},
		{"unbalanced", "(i32.const 1)", "(i32.const 1", true},
		{"extra close", "drop)", "drop))", true},
		{"unterminated string", `"hello"`, `"hello`, true},
		{"open comment", "i32.const 7", "i32.const 7 (;", true},
		{"rename", "$a", "$renamed", false},
		{"plain instr", "local.get $x", "local.get 0\n    nop", false},
		{"block label", "br $l", "br 0", false},
		{"delete form", "(i32.const 2)", "", false},
		{"top level", "(module\n", "(module $m\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := parse(base)
			_, stats := checkEquivalent(t, old, editAt(t, base, tt.target, tt.repl))
			if stats.Full != tt.full {
				t.Errorf("full = %v, want %v (attempts %d)", stats.Full, tt.full, stats.Attempts)
			}
		})
	}
}

func TestReparseKindChangeWidens(t *testing.T) {
	old := parse(base)
	e := editAt(t, base, "(i32.const 1)", "(param i32)")
	e.Start++
	e.End--
	e.NewText = "param i32"
	_, stats := checkEquivalent(t, old, e)
	if stats.Attempts < 2 {
		t.Errorf("expected the folded instruction to be rejected first, attempts = %d", stats.Attempts)
	}
}

func TestReparseBadEdit(t *testing.T) {
	old := parse(base)
	if _, _, err := Reparse(old, syntax.Edit{Start: 5, End: len(base) + 1}); err == nil {
		t.Fatal("expected error for out of range edit")
	}
}

func TestReparseRandomEdits(t *testing.T) {
	snippets := []string{
		"", "(", ")", " ", "\n", "nop", "$x", "1", "\"", ";;", "(;", ";)",
		"(i32.const 2)", "end", "block", "(then nop)", "local.get 0",
		"(param i32)", "i32.add", "(func)", "else", "if",
	}
	rng := rand.New(rand.NewSource(7))
	tr := parse(base)
	for i := 0; i < 300; i++ {
		src := tr.Source()
		start := rng.Intn(len(src) + 1)
		end := min(len(src), start+rng.Intn(6))
		e := syntax.Edit{Start: start, End: end, NewText: snippets[rng.Intn(len(snippets))]}
		tr, _ = checkEquivalent(t, tr, e)
		if len(tr.Source()) > 4*len(base) || len(tr.Source()) < len(base)/4 {
			tr = parse(base)
		}
	}
}
