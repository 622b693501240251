package syntax_test

import (
	"sync"
	"testing"

	"github.com/wippyai/wat-engine/wat/internal/parser"
	"github.com/wippyai/wat-engine/wat/syntax"
	"github.com/wippyai/wat-engine/wat/token"
)

const src = "(module (func $f (param $x i32) (result i32) local.get $x) (func $g call $f))"

func tree(t *testing.T, s string) *syntax.Tree {
	t.Helper()
	return syntax.NewTree(s, parser.Parse(s))
}

func TestRefSpans(t *testing.T) {
	tr := tree(t, src)
	root := tr.Root()
	if root.Span() != (token.Span{Start: 0, End: len(src)}) {
		t.Fatalf("root span = %v", root.Span())
	}

	mod, ok := root.FirstChildOf(syntax.KindModule)
	if !ok {
		t.Fatal("no module")
	}
	funcs := mod.ChildrenOf(syntax.KindFuncDecl)
	if len(funcs) != 2 {
		t.Fatalf("got %d funcs", len(funcs))
	}
	if got := funcs[1].Text(); got != "(func $g call $f)" {
		t.Errorf("second func text = %q", got)
	}
	if got := src[funcs[1].Start():funcs[1].End()]; got != funcs[1].Text() {
		t.Errorf("span does not match text: %q", got)
	}

	// Siblings never overlap and cover the parent.
	syntax.Inspect(root, func(r syntax.Ref) bool {
		off := r.Start()
		for _, c := range r.Children() {
			if c.Start() != off {
				t.Errorf("%v child at %d, expected %d", r.Kind(), c.Start(), off)
			}
			off = c.End()
		}
		if len(r.Children()) > 0 && off != r.End() {
			t.Errorf("%v children end at %d, node ends at %d", r.Kind(), off, r.End())
		}
		return true
	})
}

func TestAncestorAndParent(t *testing.T) {
	tr := tree(t, src)
	refs := syntax.Find(tr.Root(), syntax.KindIdxRef)
	if len(refs) != 2 {
		t.Fatalf("got %d idx refs", len(refs))
	}
	call := refs[1]
	if call.Space() != syntax.SpaceFunc || call.Text() != "$f" {
		t.Errorf("call ref = %v %q", call.Space(), call.Text())
	}
	fn, ok := call.Ancestor(syntax.KindFuncDecl)
	if !ok || fn.Text() != "(func $g call $f)" {
		t.Errorf("ancestor = %q, %v", fn.Text(), ok)
	}
	parent, ok := call.Parent()
	if !ok || parent.Kind() != syntax.KindInstr {
		t.Errorf("parent kind = %v", parent.Kind())
	}
	if _, ok := call.Ancestor(syntax.KindTypeDecl); ok {
		t.Error("unexpected TypeDecl ancestor")
	}
	path := call.Path()
	if path[0].Kind() != syntax.KindSourceFile || path[len(path)-1].Node() != call.Node() {
		t.Errorf("path runs %v .. %v", path[0].Kind(), path[len(path)-1].Kind())
	}
}

func TestNodeAt(t *testing.T) {
	tr := tree(t, src)
	off := len(src) - len("$f))")
	r := tr.NodeAt(off)
	if r.Kind() != syntax.KindToken || r.Text() != "$f" {
		t.Fatalf("NodeAt(%d) = %v %q", off, r.Kind(), r.Text())
	}
	if p, _ := r.Parent(); p.Kind() != syntax.KindIdxRef {
		t.Errorf("parent = %v", p.Kind())
	}
	if r := tr.NodeAt(10_000); r.Text() != ")" {
		t.Errorf("NodeAt past end = %q", r.Text())
	}
	if pos := tr.Position(off); pos.Line != 1 || pos.Column != off+1 {
		t.Errorf("Position = %v", pos)
	}
}

func TestChildrenOfEmpty(t *testing.T) {
	tr := tree(t, "(module)")
	mod, _ := tr.Root().FirstChildOf(syntax.KindModule)
	if got := mod.ChildrenOf(syntax.KindFuncDecl); len(got) != 0 {
		t.Errorf("got %d funcs", len(got))
	}
	if got := mod.Node().ChildrenOf(syntax.KindFuncDecl); len(got) != 0 {
		t.Errorf("got %d func nodes", len(got))
	}
	if mod.Node().FirstChildOf(syntax.KindFuncDecl) != nil {
		t.Error("FirstChildOf should be nil")
	}
}

func TestChildrenOfConcurrent(t *testing.T) {
	root := parser.Parse(src)
	mod := root.FirstChildOf(syntax.KindModule)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := len(mod.ChildrenOf(syntax.KindFuncDecl)); got != 2 {
				t.Errorf("got %d funcs", got)
			}
		}()
	}
	wg.Wait()
}

func TestWalkHandlers(t *testing.T) {
	tr := tree(t, src)
	var names []string
	var refs int
	syntax.Walk(tr.Root(), syntax.Handlers{
		syntax.KindName: func(r syntax.Ref) bool {
			names = append(names, r.Text())
			return false
		},
		syntax.KindIdxRef: func(r syntax.Ref) bool {
			refs++
			return false
		},
		syntax.KindParam: func(r syntax.Ref) bool {
			// Skipping the param hides the $x binding.
			return false
		},
	})
	if len(names) != 2 || names[0] != "$f" || names[1] != "$g" {
		t.Errorf("names = %v", names)
	}
	if refs != 2 {
		t.Errorf("refs = %d", refs)
	}
}

func TestEqualAndWithChild(t *testing.T) {
	a := parser.Parse(src)
	b := parser.Parse(src)
	if !syntax.Equal(a, b) {
		t.Fatal("identical sources should produce equal trees")
	}
	c := parser.Parse("(module (func $f (param $x i32) (result i32) local.get $x) (func $h call $f))")
	if syntax.Equal(a, c) {
		t.Fatal("different sources should not be equal")
	}

	mod := a.Child(0)
	replaced := a.WithChild(0, mod.WithChild(0, mod.Child(0)))
	if !syntax.Equal(a, replaced) {
		t.Error("path copy with the same child should be equal")
	}
	if replaced == a || replaced.Child(0) == mod {
		t.Error("WithChild must copy")
	}
	if replaced.Child(0).Child(1) != mod.Child(1) {
		t.Error("siblings should be shared")
	}
}

func TestErrorsAndUnwrap(t *testing.T) {
	tr := tree(t, "(module (func \"open")
	problems := syntax.Errors(tr.Root())
	if len(problems) != 3 {
		t.Fatalf("got %d problems: %+v", len(problems), problems)
	}
	if !syntax.HasErrors(tr.RootNode()) {
		t.Error("HasErrors should be true")
	}
	wrapped := tr.RootNode().Child(0)
	if wrapped.Kind() != syntax.KindError || wrapped.Unwrap().Kind() != syntax.KindModule {
		t.Errorf("expected an error-wrapped module, got %s", syntax.Dump(wrapped))
	}
	ref := tr.Root().Children()[0].Unwrap()
	if ref.Kind() != syntax.KindModule || ref.Start() != 0 {
		t.Errorf("Ref.Unwrap = %v at %d", ref.Kind(), ref.Start())
	}

	clean := tree(t, "(module)")
	if syntax.HasErrors(clean.RootNode()) || len(syntax.Errors(clean.Root())) != 0 {
		t.Error("clean tree should have no errors")
	}
}

func TestEdit(t *testing.T) {
	e := syntax.Edit{Start: 1, End: 3, NewText: "xyz"}
	got, err := e.Apply("abcd")
	if err != nil || got != "axyzd" {
		t.Fatalf("Apply = %q, %v", got, err)
	}
	if e.Delta() != 1 {
		t.Errorf("Delta = %d", e.Delta())
	}
	if _, err := (syntax.Edit{Start: 3, End: 9}).Apply("abcd"); err == nil {
		t.Error("out of range edit should fail")
	}
	if _, err := (syntax.Edit{Start: 3, End: 2}).Apply("abcd"); err == nil {
		t.Error("inverted edit should fail")
	}
}

func TestKindStrings(t *testing.T) {
	if syntax.KindFuncDecl.String() != "FuncDecl" || syntax.KindAligneq.String() != "Aligneq" {
		t.Error("kind names")
	}
	if syntax.SpaceLabel.String() != "label" {
		t.Error("space names")
	}
	if !syntax.KindDataDecl.IsDecl() || syntax.KindInlineData.IsDecl() {
		t.Error("IsDecl")
	}
}
