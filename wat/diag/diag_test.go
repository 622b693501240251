package diag

import (
	"encoding/json"
	"testing"

	"github.com/wippyai/wat-engine/wat/syntax"
	"github.com/wippyai/wat-engine/wat/token"
)

func TestCategoryNames(t *testing.T) {
	for _, c := range Categories {
		got, ok := ParseCategory(c.String())
		if !ok || got != c {
			t.Errorf("ParseCategory(%q) = %v, %v", c.String(), got, ok)
		}
	}
	if _, ok := ParseCategory("style"); ok {
		t.Error("unknown category parsed")
	}
}

func TestDiagnosticJSON(t *testing.T) {
	d := Diagnostic{
		Message:  "unknown function $f",
		Span:     token.Span{Start: 3, End: 5},
		Severity: Warning,
		Category: UnresolvedReference,
	}
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"message":"unknown function $f","span":{"start":3,"end":5},"severity":"warning","category":"unresolved-reference"}`
	if string(b) != want {
		t.Errorf("json = %s", b)
	}

	var back Diagnostic
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back != d {
		t.Errorf("decoded %+v", back)
	}
	if err := json.Unmarshal([]byte(`{"severity":"fatal"}`), &back); err == nil {
		t.Error("unknown severity decoded")
	}
}

func TestSortCountFilter(t *testing.T) {
	ds := FromProblems([]syntax.Problem{
		{Message: "b", Span: token.Span{Start: 9, End: 10}},
		{Message: "a", Span: token.Span{Start: 1, End: 2}},
	})
	ds = append(ds, Diagnostic{Message: "c", Span: token.Span{Start: 1, End: 2}, Severity: Warning, Category: ArityMismatch})
	Sort(ds)

	var got string
	for _, d := range ds {
		got += d.Message
	}
	if got != "acb" {
		t.Errorf("order = %q", got)
	}
	if n := Count(ds, Error); n != 2 {
		t.Errorf("errors = %d", n)
	}
	if f := Filter(ds, ArityMismatch); len(f) != 1 || f[0].Message != "c" {
		t.Errorf("filter = %v", f)
	}
}
