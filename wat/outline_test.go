package wat

import (
	"context"
	"reflect"
	"testing"

	"github.com/wippyai/wat-engine/wat/syntax"
)

func TestOutline(t *testing.T) {
	src := `(module $m
  (type $bin (func (param i32 i32) (result i32)))
  (import "env" "log" (func $log (param i32)))
  (func $add (export "add") (type $bin) (param i32 i32) (result i32)
    (i32.add (local.get 0) (local.get 1)))
  (func (result i32) i32.const 1)
  (memory 1)
  (export "mem" (memory 0)))`
	syms := Outline(Validate(context.Background(), Parse(src)))

	var got []string
	for _, s := range syms {
		got = append(got, s.SpaceName+":"+s.Label())
	}
	want := []string{"type:$bin", "func:$log", "func:$add", "func:func 2", "memory:memory 0"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("outline = %v, want %v", got, want)
	}

	add := syms[2]
	if add.Module != "$m" || add.Index != 1 || add.Space != syntax.SpaceFunc {
		t.Errorf("add = %+v", add)
	}
	if add.Signature != "(param i32 i32) (result i32)" {
		t.Errorf("signature = %q", add.Signature)
	}
	if !reflect.DeepEqual(add.Exports, []string{"add"}) {
		t.Errorf("exports = %v", add.Exports)
	}
	if !syms[1].Imported || syms[1].Signature != "(param i32)" {
		t.Errorf("log = %+v", syms[1])
	}
	if !reflect.DeepEqual(syms[4].Exports, []string{"mem"}) {
		t.Errorf("memory exports = %v", syms[4].Exports)
	}
}
