// Package encoder writes modules in the WebAssembly binary format.
package encoder

var header = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00} // magic + version

// Encode returns the binary encoding of m. Empty sections are omitted.
func Encode(m *Module) []byte {
	buf := &Buffer{}
	buf.Write(header)

	if len(m.Types) > 0 {
		encodeTypes(buf, m)
	}
	if len(m.Imports) > 0 {
		encodeImports(buf, m)
	}
	if len(m.Funcs) > 0 {
		sec := &Buffer{}
		sec.U32(uint32(len(m.Funcs)))
		for _, t := range m.Funcs {
			sec.U32(t)
		}
		buf.Section(sectionFunc, sec)
	}
	if len(m.Tables) > 0 {
		sec := &Buffer{}
		sec.U32(uint32(len(m.Tables)))
		for _, t := range m.Tables {
			sec.Byte(t.ElemType)
			sec.Limits(t.Limits)
		}
		buf.Section(sectionTable, sec)
	}
	if len(m.Memories) > 0 {
		sec := &Buffer{}
		sec.U32(uint32(len(m.Memories)))
		for _, l := range m.Memories {
			sec.Limits(l)
		}
		buf.Section(sectionMemory, sec)
	}
	if len(m.Globals) > 0 {
		sec := &Buffer{}
		sec.U32(uint32(len(m.Globals)))
		for _, g := range m.Globals {
			globalType(sec, g.Type)
			sec.Write(g.Init)
		}
		buf.Section(sectionGlobal, sec)
	}
	if len(m.Exports) > 0 {
		sec := &Buffer{}
		sec.U32(uint32(len(m.Exports)))
		for _, e := range m.Exports {
			sec.Name(e.Name)
			sec.Byte(e.Kind)
			sec.U32(e.Index)
		}
		buf.Section(sectionExport, sec)
	}
	if m.Start != nil {
		sec := &Buffer{}
		sec.U32(*m.Start)
		buf.Section(sectionStart, sec)
	}
	if len(m.Elems) > 0 {
		encodeElems(buf, m)
	}
	// The data count must precede the code that relies on it.
	if m.DataCount || (hasPassiveData(m) && len(m.Code) > 0) {
		sec := &Buffer{}
		sec.U32(uint32(len(m.Data)))
		buf.Section(sectionDataCount, sec)
	}
	if len(m.Code) > 0 {
		encodeCode(buf, m)
	}
	if len(m.Data) > 0 {
		encodeData(buf, m)
	}
	return buf.Bytes
}

func hasPassiveData(m *Module) bool {
	for _, d := range m.Data {
		if d.Passive {
			return true
		}
	}
	return false
}
