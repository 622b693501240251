package lower

import (
	"strings"

	"github.com/wippyai/wat-engine/wat/internal/encoder"
	"github.com/wippyai/wat-engine/wat/internal/opcode"
	"github.com/wippyai/wat-engine/wat/internal/validate"
	"github.com/wippyai/wat-engine/wat/syntax"
	"github.com/wippyai/wat-engine/wat/token"
)

const (
	opIf         = 0x04
	opSelectType = 0x1C
	memIdxFlag   = 0x40
)

// code emits one instruction sequence. labels holds the enclosing block
// labels, innermost last; a function body starts with its implicit block.
type code struct {
	l      *lowerer
	buf    *encoder.Buffer
	locals *validate.IndexSpace
	labels []string
}

// seq emits the instructions directly under r, skipping everything else.
func (c *code) seq(r syntax.Ref) {
	for _, ch := range r.Children() {
		c.node(ch)
	}
}

func (c *code) node(r syntax.Ref) {
	switch r.Kind() {
	case syntax.KindInstr:
		c.plain(r)
	case syntax.KindBlock:
		c.block(r)
	case syntax.KindFoldedInstr:
		c.folded(r)
	}
}

func (c *code) find(r syntax.Ref) (opcode.Op, bool) {
	op, ok := opcode.Find(r.Keyword())
	if !ok {
		c.l.fail(r, "unknown instruction '%s'", r.Keyword())
	}
	return op, ok
}

func (c *code) plain(r syntax.Ref) {
	if op, ok := c.find(r); ok {
		c.emit(r, op)
	}
}

// block emits block, loop and if written with a closing end.
func (c *code) block(r syntax.Ref) {
	op, ok := c.find(r)
	if !ok {
		return
	}
	c.buf.Byte(op.Opcode)
	c.blockType(r)
	c.push(r)
	for _, ch := range r.Children() {
		if ch.Kind() == syntax.KindToken && ch.Text() == "else" {
			c.buf.Byte(encoder.OpElse)
			continue
		}
		c.node(ch)
	}
	c.pop()
	c.buf.Byte(encoder.OpEnd)
}

// folded emits operands before the instruction that consumes them. The
// condition of a folded if is evaluated outside the block.
func (c *code) folded(r syntax.Ref) {
	op, ok := c.find(r)
	if !ok {
		return
	}
	if !opcode.IsBlock(op.Name) {
		for _, ch := range r.ChildrenOf(syntax.KindFoldedInstr) {
			c.folded(ch)
		}
		c.emit(r, op)
		return
	}

	if op.Name != "if" {
		c.buf.Byte(op.Opcode)
		c.blockType(r)
		c.push(r)
		c.seq(r)
		c.pop()
		c.buf.Byte(encoder.OpEnd)
		return
	}

	for _, ch := range r.ChildrenOf(syntax.KindFoldedInstr) {
		c.folded(ch)
	}
	c.buf.Byte(opIf)
	c.blockType(r)
	c.push(r)
	if then, ok := r.FirstChildOf(syntax.KindThen); ok {
		c.seq(then)
	}
	if els, ok := r.FirstChildOf(syntax.KindElse); ok {
		c.buf.Byte(encoder.OpElse)
		c.seq(els)
	}
	c.pop()
	c.buf.Byte(encoder.OpEnd)
}

func (c *code) push(r syntax.Ref) {
	label := ""
	if n, ok := r.FirstChildOf(syntax.KindName); ok {
		label = n.Text()
	}
	c.labels = append(c.labels, label)
}

func (c *code) pop() {
	c.labels = c.labels[:len(c.labels)-1]
}

// blockType emits the type of a block: empty, one result, or a type index.
func (c *code) blockType(r syntax.Ref) {
	if _, ok := r.FirstChildOf(syntax.KindTypeUse); ok {
		c.buf.I64(int64(c.l.typeUse(r)))
		return
	}
	sig, _ := validate.InlineSig(r)
	switch {
	case len(sig.Params) == 0 && len(sig.Results) == 0:
		c.buf.Byte(encoder.BlockEmpty)
	case len(sig.Params) == 0 && len(sig.Results) == 1:
		c.buf.Byte(c.l.valType(r, sig.Results[0]))
	default:
		c.buf.I64(int64(c.l.typeUse(r)))
	}
}

// emit writes the opcode of a non-block instruction and its immediates.
func (c *code) emit(r syntax.Ref, op opcode.Op) {
	if op.Name == "select" {
		if sig, ok := validate.InlineSig(r); ok {
			c.buf.Byte(opSelectType)
			c.buf.U32(uint32(len(sig.Results)))
			for _, t := range sig.Results {
				c.buf.Byte(c.l.valType(r, t))
			}
			return
		}
	}
	c.buf.Byte(op.Opcode)
	if op.Class == opcode.ClassPrefixed {
		c.buf.U32(op.Subop)
	}

	refs := r.ChildrenOf(syntax.KindIdxRef)
	switch op.Imm {
	case opcode.ImmLocal:
		c.buf.U32(c.local(refs))
	case opcode.ImmGlobal, opcode.ImmFunc, opcode.ImmElem:
		c.buf.U32(c.first(r, refs))
	case opcode.ImmData:
		c.l.out.DataCount = true
		c.buf.U32(c.first(r, refs))
	case opcode.ImmLabel:
		c.buf.U32(c.label(r, refs))
	case opcode.ImmLabels:
		if len(refs) == 0 {
			c.l.fail(r, "br_table needs at least one label")
			return
		}
		c.buf.U32(uint32(len(refs) - 1))
		for _, ref := range refs {
			c.buf.U32(c.label(ref, []syntax.Ref{ref}))
		}
	case opcode.ImmI32, opcode.ImmI64, opcode.ImmF32, opcode.ImmF64:
		c.number(r, op.Imm)
	case opcode.ImmMemarg:
		c.memarg(r, op, refs)
	case opcode.ImmMemIdx, opcode.ImmTable:
		c.buf.U32(c.optional(refs, 0))
	case opcode.ImmCallIndirect:
		c.buf.U32(c.l.typeUse(r))
		c.buf.U32(c.optional(refs, 0))
	case opcode.ImmSelect:
	case opcode.ImmHeapType:
		heap := encoder.Funcref
		for _, leaf := range r.Leaves() {
			if leaf.Text() == "extern" {
				heap = encoder.Externref
			}
		}
		c.buf.Byte(heap)
	case opcode.ImmTableInit, opcode.ImmMemInit:
		if op.Imm == opcode.ImmMemInit {
			c.l.out.DataCount = true
		}
		// Text order is (table|memory)? segment; binary order is segment
		// then table or memory.
		switch len(refs) {
		case 1:
			c.buf.U32(c.l.index(refs[0]))
			c.buf.U32(0)
		case 2:
			c.buf.U32(c.l.index(refs[1]))
			c.buf.U32(c.l.index(refs[0]))
		default:
			c.l.fail(r, "'%s' needs a segment index", op.Name)
		}
	case opcode.ImmTableCopy, opcode.ImmMemCopy:
		c.buf.U32(c.optional(refs, 0))
		c.buf.U32(c.optional(refs, 1))
	}
}

func (c *code) first(r syntax.Ref, refs []syntax.Ref) uint32 {
	if len(refs) == 0 {
		c.l.fail(r, "'%s' needs an index", r.Keyword())
		return 0
	}
	return c.l.index(refs[0])
}

// optional resolves refs[i] in its space, or 0 when absent.
func (c *code) optional(refs []syntax.Ref, i int) uint32 {
	if i >= len(refs) {
		return 0
	}
	return c.l.index(refs[i])
}

func (c *code) local(refs []syntax.Ref) uint32 {
	if len(refs) == 0 {
		return 0
	}
	d, ok := c.locals.Resolve(refs[0].Text())
	if !ok {
		c.l.fail(refs[0], "unknown local %s", refs[0].Text())
		return 0
	}
	return d.Index
}

// label converts a label reference to a relative branch depth.
func (c *code) label(r syntax.Ref, refs []syntax.Ref) uint32 {
	if len(refs) == 0 {
		c.l.fail(r, "'%s' needs a label", r.Keyword())
		return 0
	}
	text := refs[0].Text()
	if strings.HasPrefix(text, "$") {
		for i := len(c.labels) - 1; i >= 0; i-- {
			if c.labels[i] == text {
				return uint32(len(c.labels) - 1 - i)
			}
		}
		c.l.fail(refs[0], "unknown label %s", text)
		return 0
	}
	n, err := token.ParseU32(text)
	if err != nil {
		c.l.fail(refs[0], "invalid label %s", text)
	}
	return n
}

func (c *code) number(r syntax.Ref, imm opcode.ImmKind) {
	var lit syntax.Ref
	found := false
	for _, leaf := range r.Leaves() {
		if leaf.Node().TokenKind().IsNumber() {
			lit, found = leaf, true
			break
		}
	}
	if !found {
		c.l.fail(r, "'%s' needs a literal", r.Keyword())
		return
	}
	text := lit.Text()
	var err error
	switch imm {
	case opcode.ImmI32:
		var v int32
		v, err = token.ParseI32(text)
		c.buf.I32(v)
	case opcode.ImmI64:
		var v int64
		v, err = token.ParseI64(text)
		c.buf.I64(v)
	case opcode.ImmF32:
		var v uint32
		v, err = token.ParseF32Bits(text)
		c.buf.F32(v)
	default:
		var v uint64
		v, err = token.ParseF64Bits(text)
		c.buf.F64(v)
	}
	if err != nil {
		c.l.fail(lit, "%v", err)
	}
}

// memarg emits the alignment exponent, the memory index when it is not 0,
// and the offset.
func (c *code) memarg(r syntax.Ref, op opcode.Op, refs []syntax.Ref) {
	align := op.NaturalAlign
	if a, ok := r.FirstChildOf(syntax.KindAligneq); ok {
		v, ok := alignLog2(a.Text())
		if !ok {
			c.l.fail(a, "invalid alignment %s", a.Text())
		}
		align = v
	}
	var offset uint32
	if o, ok := r.FirstChildOf(syntax.KindOffseteq); ok {
		v, err := token.ParseU32(strings.TrimPrefix(o.Text(), "offset="))
		if err != nil {
			c.l.fail(o, "invalid offset %s", o.Text())
		}
		offset = v
	}
	mem := c.optional(refs, 0)
	if mem != 0 {
		c.buf.U32(align | memIdxFlag)
		c.buf.U32(mem)
	} else {
		c.buf.U32(align)
	}
	c.buf.U32(offset)
}
