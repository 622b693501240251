package syntax

// Kind tags a node with the production it was built from.
type Kind uint8

const (
	KindError Kind = iota
	KindToken
	KindSourceFile
	KindModule
	KindTypeDecl
	KindImportDecl
	KindFuncDecl
	KindTableDecl
	KindMemoryDecl
	KindGlobalDecl
	KindExportDecl
	KindStartDecl
	KindElemDecl
	KindDataDecl
	KindInlineImport
	KindInlineExport
	KindInlineElem
	KindInlineData
	KindImportDesc
	KindExportDesc
	KindFuncType
	KindTypeUse
	KindParam
	KindResult
	KindLocal
	KindGlobalType
	KindLimits
	KindTableUse
	KindMemoryUse
	KindOffset
	KindItem
	KindInstr
	KindFoldedInstr
	KindBlock
	KindThen
	KindElse
	KindName
	KindIdxRef
	KindOffseteq
	KindAligneq

	kindCount
)

var kindNames = [kindCount]string{
	KindError:        "Error",
	KindToken:        "Token",
	KindSourceFile:   "SourceFile",
	KindModule:       "Module",
	KindTypeDecl:     "TypeDecl",
	KindImportDecl:   "ImportDecl",
	KindFuncDecl:     "FuncDecl",
	KindTableDecl:    "TableDecl",
	KindMemoryDecl:   "MemoryDecl",
	KindGlobalDecl:   "GlobalDecl",
	KindExportDecl:   "ExportDecl",
	KindStartDecl:    "StartDecl",
	KindElemDecl:     "ElemDecl",
	KindDataDecl:     "DataDecl",
	KindInlineImport: "InlineImport",
	KindInlineExport: "InlineExport",
	KindInlineElem:   "InlineElem",
	KindInlineData:   "InlineData",
	KindImportDesc:   "ImportDesc",
	KindExportDesc:   "ExportDesc",
	KindFuncType:     "FuncType",
	KindTypeUse:      "TypeUse",
	KindParam:        "Param",
	KindResult:       "Result",
	KindLocal:        "Local",
	KindGlobalType:   "GlobalType",
	KindLimits:       "Limits",
	KindTableUse:     "TableUse",
	KindMemoryUse:    "MemoryUse",
	KindOffset:       "Offset",
	KindItem:         "Item",
	KindInstr:        "Instr",
	KindFoldedInstr:  "FoldedInstr",
	KindBlock:        "Block",
	KindThen:         "Then",
	KindElse:         "Else",
	KindName:         "Name",
	KindIdxRef:       "IdxRef",
	KindOffseteq:     "Offseteq",
	KindAligneq:      "Aligneq",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "Kind(?)"
}

// IsDecl reports whether k is a module field.
func (k Kind) IsDecl() bool {
	return k >= KindTypeDecl && k <= KindDataDecl
}

// Space names an index space. Name nodes bind into it and IdxRef nodes refer
// into it.
type Space uint8

const (
	SpaceNone Space = iota
	SpaceFunc
	SpaceTable
	SpaceMemory
	SpaceGlobal
	SpaceType
	SpaceElem
	SpaceData
	SpaceLocal
	SpaceLabel
	SpaceModule
)

var spaceNames = [...]string{
	SpaceNone:   "none",
	SpaceFunc:   "func",
	SpaceTable:  "table",
	SpaceMemory: "memory",
	SpaceGlobal: "global",
	SpaceType:   "type",
	SpaceElem:   "elem",
	SpaceData:   "data",
	SpaceLocal:  "local",
	SpaceLabel:  "label",
	SpaceModule: "module",
}

func (s Space) String() string {
	if int(s) < len(spaceNames) {
		return spaceNames[s]
	}
	return "space(?)"
}

// ModuleSpaces lists the index spaces owned by a module, in the order they are
// reported.
var ModuleSpaces = []Space{SpaceType, SpaceFunc, SpaceTable, SpaceMemory, SpaceGlobal, SpaceElem, SpaceData}
