package encoder

// Value and reference type codes.
const (
	I32       byte = 0x7F
	I64       byte = 0x7E
	F32       byte = 0x7D
	F64       byte = 0x7C
	V128      byte = 0x7B
	Funcref   byte = 0x70
	Externref byte = 0x6F
)

// BlockEmpty is the block type of a block without params or results.
const BlockEmpty byte = 0x40

// External kinds of imports and exports.
const (
	ExternFunc   byte = 0
	ExternTable  byte = 1
	ExternMemory byte = 2
	ExternGlobal byte = 3
)

// Structured control opcodes that have no mnemonic of their own in the
// instruction table.
const (
	OpElse byte = 0x05
	OpEnd  byte = 0x0B
)

const (
	sectionType      byte = 1
	sectionImport    byte = 2
	sectionFunc      byte = 3
	sectionTable     byte = 4
	sectionMemory    byte = 5
	sectionGlobal    byte = 6
	sectionExport    byte = 7
	sectionStart     byte = 8
	sectionElem      byte = 9
	sectionCode      byte = 10
	sectionData      byte = 11
	sectionDataCount byte = 12
)

const (
	funcTypeMarker byte = 0x60
	limitsNoMax    byte = 0x00
	limitsHasMax   byte = 0x01
	elemKindFunc   byte = 0x00
)

// Element segment flags: bit 0 passive/declarative, bit 1 explicit table or
// declarative, bit 2 expressions instead of function indices.
const (
	elemActive      byte = 0x00
	elemPassive     byte = 0x01
	elemActiveTable byte = 0x02
	elemDeclarative byte = 0x03
	elemExprs       byte = 0x04
)

const (
	dataActive       byte = 0x00
	dataPassive      byte = 0x01
	dataActiveMemory byte = 0x02
)

// ValType returns the code of a value type keyword.
func ValType(name string) (byte, bool) {
	switch name {
	case "i32":
		return I32, true
	case "i64":
		return I64, true
	case "f32":
		return F32, true
	case "f64":
		return F64, true
	case "v128":
		return V128, true
	case "funcref":
		return Funcref, true
	case "externref":
		return Externref, true
	}
	return 0, false
}
