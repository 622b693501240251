package encoder

import (
	"bytes"
	"testing"
)

func TestBufferU32(t *testing.T) {
	tests := []struct {
		want []byte
		val  uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7F}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xFF, 0x01}, 255},
		{[]byte{0x80, 0x80, 0x01}, 16384},
		{[]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}, 0xFFFFFFFF},
	}
	for _, tt := range tests {
		b := &Buffer{}
		b.U32(tt.val)
		if !bytes.Equal(b.Bytes, tt.want) {
			t.Errorf("U32(%d) = %x, want %x", tt.val, b.Bytes, tt.want)
		}
	}
}

func TestBufferSigned(t *testing.T) {
	tests := []struct {
		want []byte
		val  int64
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7F}, -1},
		{[]byte{0x3F}, 63},
		{[]byte{0xC0, 0x00}, 64},
		{[]byte{0x40}, -64},
		{[]byte{0xBF, 0x7F}, -65},
		{[]byte{0x80, 0x7F}, -128},
		{[]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x07}, 2147483647},
		{[]byte{0x80, 0x80, 0x80, 0x80, 0x78}, -2147483648},
	}
	for _, tt := range tests {
		b := &Buffer{}
		b.I64(tt.val)
		if !bytes.Equal(b.Bytes, tt.want) {
			t.Errorf("I64(%d) = %x, want %x", tt.val, b.Bytes, tt.want)
		}
		if int64(int32(tt.val)) == tt.val {
			b32 := &Buffer{}
			b32.I32(int32(tt.val))
			if !bytes.Equal(b32.Bytes, tt.want) {
				t.Errorf("I32(%d) = %x, want %x", tt.val, b32.Bytes, tt.want)
			}
		}
	}
}

func TestBufferFloatsAndNames(t *testing.T) {
	b := &Buffer{}
	b.F32(0x3F800000)
	b.F64(0x3FF0000000000000)
	b.Name("hi")
	want := []byte{
		0x00, 0x00, 0x80, 0x3F,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xF0, 0x3F,
		0x02, 'h', 'i',
	}
	if !bytes.Equal(b.Bytes, want) {
		t.Errorf("got %x, want %x", b.Bytes, want)
	}
}

func TestBufferLimits(t *testing.T) {
	max := uint32(2)
	b := &Buffer{}
	b.Limits(Limits{Min: 1})
	b.Limits(Limits{Min: 1, Max: &max})
	if want := []byte{0x00, 0x01, 0x01, 0x01, 0x02}; !bytes.Equal(b.Bytes, want) {
		t.Errorf("got %x, want %x", b.Bytes, want)
	}
}

func TestEncodeEmpty(t *testing.T) {
	if got := Encode(&Module{}); !bytes.Equal(got, header) {
		t.Errorf("got %x", got)
	}
}

func TestEncodeFunction(t *testing.T) {
	m := &Module{}
	ti := m.TypeIndex(FuncType{Params: []byte{I32, I32}, Results: []byte{I32}})
	if again := m.TypeIndex(FuncType{Params: []byte{I32, I32}, Results: []byte{I32}}); again != ti {
		t.Fatalf("TypeIndex should reuse equal types, got %d and %d", ti, again)
	}
	m.Funcs = []uint32{ti}
	m.Exports = []Export{{Name: "add", Kind: ExternFunc, Index: 0}}
	m.Code = []Body{{
		Locals: []byte{I32, I32, I64},
		Code:   []byte{0x20, 0x00, 0x20, 0x01, 0x6A, OpEnd},
	}}

	want := append([]byte{}, header...)
	want = append(want,
		sectionType, 0x07, 0x01, 0x60, 0x02, I32, I32, 0x01, I32,
		sectionFunc, 0x02, 0x01, 0x00,
		sectionExport, 0x07, 0x01, 0x03, 'a', 'd', 'd', ExternFunc, 0x00,
		sectionCode, 0x0D, 0x01, 0x0B, 0x02, 0x02, I32, 0x01, I64, 0x20, 0x00, 0x20, 0x01, 0x6A, OpEnd,
	)
	if got := Encode(m); !bytes.Equal(got, want) {
		t.Errorf("got  %x\nwant %x", got, want)
	}
}

func TestEncodeImports(t *testing.T) {
	max := uint32(4)
	m := &Module{Imports: []Import{
		{Module: "m", Name: "f", Kind: ExternFunc, TypeIdx: 1},
		{Module: "m", Name: "t", Kind: ExternTable, Table: Table{ElemType: Funcref, Limits: Limits{Min: 1}}},
		{Module: "m", Name: "mem", Kind: ExternMemory, Memory: Limits{Min: 1, Max: &max}},
		{Module: "m", Name: "g", Kind: ExternGlobal, Global: GlobalType{ValType: I64, Mutable: true}},
	}}
	got := Encode(m)[len(header):]
	want := []byte{
		sectionImport, 0x20, 0x04,
		0x01, 'm', 0x01, 'f', ExternFunc, 0x01,
		0x01, 'm', 0x01, 't', ExternTable, Funcref, 0x00, 0x01,
		0x01, 'm', 0x03, 'm', 'e', 'm', ExternMemory, 0x01, 0x01, 0x04,
		0x01, 'm', 0x01, 'g', ExternGlobal, I64, 0x01,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got  %x\nwant %x", got, want)
	}
}

func TestEncodeElems(t *testing.T) {
	offset := []byte{0x41, 0x00, OpEnd}
	refFunc := []byte{0xD2, 0x00, OpEnd}
	tests := []struct {
		name string
		elem Elem
		want []byte
	}{
		{"active", Elem{Offset: offset, Funcs: []uint32{0, 1}}, []byte{0x00, 0x41, 0x00, 0x0B, 0x02, 0x00, 0x01}},
		{"active table", Elem{Table: 1, Offset: offset, Funcs: []uint32{0}}, []byte{0x02, 0x01, 0x41, 0x00, 0x0B, 0x00, 0x01, 0x00}},
		{"passive", Elem{Mode: ElemModePassive, Funcs: []uint32{2}}, []byte{0x01, 0x00, 0x01, 0x02}},
		{"declarative", Elem{Mode: ElemModeDeclarative, Funcs: []uint32{0}}, []byte{0x03, 0x00, 0x01, 0x00}},
		{"active exprs", Elem{Offset: offset, Exprs: [][]byte{refFunc}}, []byte{0x04, 0x41, 0x00, 0x0B, 0x01, 0xD2, 0x00, 0x0B}},
		{"passive exprs", Elem{Mode: ElemModePassive, RefType: Externref, Exprs: [][]byte{{0xD0, 0x6F, OpEnd}}}, []byte{0x05, Externref, 0x01, 0xD0, 0x6F, 0x0B}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(&Module{Elems: []Elem{tt.elem}})[len(header):]
			// section id, size, count
			body := got[3:]
			if got[0] != sectionElem || got[2] != 1 || !bytes.Equal(body, tt.want) {
				t.Errorf("got %x, want body %x", got, tt.want)
			}
		})
	}
}

func TestEncodeDataCount(t *testing.T) {
	m := &Module{
		Memories: []Limits{{Min: 1}},
		Funcs:    []uint32{0},
		Types:    []FuncType{{}},
		Code:     []Body{{Code: []byte{0xFC, 0x09, 0x00, OpEnd}}},
		Data: []Data{
			{Offset: []byte{0x41, 0x08, OpEnd}, Init: []byte("hi")},
			{Passive: true, Init: []byte("x")},
		},
	}
	got := Encode(m)
	count := bytes.Index(got, []byte{sectionDataCount, 0x01, 0x02})
	code := bytes.Index(got, []byte{sectionCode})
	if count < 0 || code < count {
		t.Fatalf("data count section missing or after code: %x", got)
	}
	tail := []byte{sectionData, 0x0B, 0x02, 0x00, 0x41, 0x08, 0x0B, 0x02, 'h', 'i', 0x01, 0x01, 'x'}
	if !bytes.HasSuffix(got, tail) {
		t.Errorf("data section = %x", got[len(got)-len(tail):])
	}
}
