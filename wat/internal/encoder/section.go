package encoder

func encodeTypes(buf *Buffer, m *Module) {
	sec := &Buffer{}
	sec.U32(uint32(len(m.Types)))
	for _, ft := range m.Types {
		sec.Byte(funcTypeMarker)
		sec.U32(uint32(len(ft.Params)))
		sec.Write(ft.Params)
		sec.U32(uint32(len(ft.Results)))
		sec.Write(ft.Results)
	}
	buf.Section(sectionType, sec)
}

func encodeImports(buf *Buffer, m *Module) {
	sec := &Buffer{}
	sec.U32(uint32(len(m.Imports)))
	for _, imp := range m.Imports {
		sec.Name(imp.Module)
		sec.Name(imp.Name)
		sec.Byte(imp.Kind)
		switch imp.Kind {
		case ExternFunc:
			sec.U32(imp.TypeIdx)
		case ExternTable:
			sec.Byte(imp.Table.ElemType)
			sec.Limits(imp.Table.Limits)
		case ExternMemory:
			sec.Limits(imp.Memory)
		case ExternGlobal:
			globalType(sec, imp.Global)
		}
	}
	buf.Section(sectionImport, sec)
}

func globalType(buf *Buffer, g GlobalType) {
	buf.Byte(g.ValType)
	if g.Mutable {
		buf.Byte(0x01)
	} else {
		buf.Byte(0x00)
	}
}

func encodeElems(buf *Buffer, m *Module) {
	sec := &Buffer{}
	sec.U32(uint32(len(m.Elems)))
	for _, e := range m.Elems {
		exprs := len(e.Exprs) > 0
		refType := e.RefType
		if refType == 0 {
			refType = Funcref
		}

		var flag byte
		switch e.Mode {
		case ElemModePassive:
			flag = elemPassive
		case ElemModeDeclarative:
			flag = elemDeclarative
		default:
			// The short active form implies table 0 and funcref items.
			flag = elemActive
			if e.Table != 0 || refType != Funcref {
				flag = elemActiveTable
			}
		}
		if exprs {
			flag |= elemExprs
		}
		sec.Byte(flag)

		if flag&elemActiveTable != 0 && e.Mode == ElemModeActive {
			sec.U32(e.Table)
		}
		if e.Mode == ElemModeActive {
			sec.Write(e.Offset)
		}
		if flag&0x03 != 0 {
			if exprs {
				sec.Byte(refType)
			} else {
				sec.Byte(elemKindFunc)
			}
		}

		if exprs {
			sec.U32(uint32(len(e.Exprs)))
			for _, x := range e.Exprs {
				sec.Write(x)
			}
			continue
		}
		sec.U32(uint32(len(e.Funcs)))
		for _, f := range e.Funcs {
			sec.U32(f)
		}
	}
	buf.Section(sectionElem, sec)
}

func encodeCode(buf *Buffer, m *Module) {
	sec := &Buffer{}
	sec.U32(uint32(len(m.Code)))
	for _, c := range m.Code {
		body := &Buffer{}

		// Runs of the same type share one entry.
		type run struct {
			count uint32
			vt    byte
		}
		var runs []run
		for _, l := range c.Locals {
			if n := len(runs); n > 0 && runs[n-1].vt == l {
				runs[n-1].count++
				continue
			}
			runs = append(runs, run{1, l})
		}
		body.U32(uint32(len(runs)))
		for _, r := range runs {
			body.U32(r.count)
			body.Byte(r.vt)
		}
		body.Write(c.Code)

		sec.U32(uint32(body.Len()))
		sec.Write(body.Bytes)
	}
	buf.Section(sectionCode, sec)
}

func encodeData(buf *Buffer, m *Module) {
	sec := &Buffer{}
	sec.U32(uint32(len(m.Data)))
	for _, d := range m.Data {
		switch {
		case d.Passive:
			sec.Byte(dataPassive)
		case d.Memory != 0:
			sec.Byte(dataActiveMemory)
			sec.U32(d.Memory)
			sec.Write(d.Offset)
		default:
			sec.Byte(dataActive)
			sec.Write(d.Offset)
		}
		sec.U32(uint32(len(d.Init)))
		sec.Write(d.Init)
	}
	buf.Section(sectionData, sec)
}
