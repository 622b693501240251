package encoder

import "bytes"

// Module is a module ready for encoding. Index fields refer to the binary
// index spaces, imports first. Expressions are already encoded instruction
// sequences terminated by end.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // type index of each defined function
	Tables   []Table
	Memories []Limits
	Globals  []Global
	Exports  []Export
	Start    *uint32
	Elems    []Elem
	Code     []Body
	Data     []Data
	// DataCount requests the data count section, needed when code refers to
	// data segments by index.
	DataCount bool
}

type FuncType struct {
	Params  []byte
	Results []byte
}

func (ft FuncType) Equal(o FuncType) bool {
	return bytes.Equal(ft.Params, o.Params) && bytes.Equal(ft.Results, o.Results)
}

// TypeIndex returns the index of ft in m.Types, appending it when missing.
func (m *Module) TypeIndex(ft FuncType) uint32 {
	for i, t := range m.Types {
		if t.Equal(ft) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, ft)
	return uint32(len(m.Types) - 1)
}

type Import struct {
	Module string
	Name   string
	Kind   byte
	// One of the following, per Kind.
	TypeIdx uint32
	Table   Table
	Memory  Limits
	Global  GlobalType
}

type Limits struct {
	Max *uint32
	Min uint32
}

type Table struct {
	Limits   Limits
	ElemType byte
}

type GlobalType struct {
	ValType byte
	Mutable bool
}

type Global struct {
	Init []byte
	Type GlobalType
}

type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

type ElemMode int

const (
	ElemModeActive ElemMode = iota
	ElemModePassive
	ElemModeDeclarative
)

// Elem is an element segment. Items are either function indices or
// expressions; Exprs wins when both are set.
type Elem struct {
	Offset  []byte
	Funcs   []uint32
	Exprs   [][]byte
	Mode    ElemMode
	Table   uint32
	RefType byte
}

type Body struct {
	Locals []byte
	Code   []byte
}

type Data struct {
	Offset  []byte
	Init    []byte
	Memory  uint32
	Passive bool
}
