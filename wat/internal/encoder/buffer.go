package encoder

import "encoding/binary"

// Buffer accumulates binary-format output.
type Buffer struct {
	Bytes []byte
}

func (b *Buffer) Len() int { return len(b.Bytes) }

func (b *Buffer) Byte(v byte) {
	b.Bytes = append(b.Bytes, v)
}

func (b *Buffer) Write(v []byte) {
	b.Bytes = append(b.Bytes, v...)
}

// U32 writes v as unsigned LEB128.
func (b *Buffer) U32(v uint32) {
	for {
		c := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b.Byte(c)
		if v == 0 {
			return
		}
	}
}

// I32 writes v as signed LEB128.
func (b *Buffer) I32(v int32) {
	b.I64(int64(v))
}

// I64 writes v as signed LEB128. Block type indices use it as well, since
// their 33-bit encoding is a prefix of the 64-bit one.
func (b *Buffer) I64(v int64) {
	for {
		c := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			b.Byte(c)
			return
		}
		b.Byte(c | 0x80)
	}
}

// F32 writes the raw bits of an f32 little-endian.
func (b *Buffer) F32(bits uint32) {
	b.Bytes = binary.LittleEndian.AppendUint32(b.Bytes, bits)
}

// F64 writes the raw bits of an f64 little-endian.
func (b *Buffer) F64(bits uint64) {
	b.Bytes = binary.LittleEndian.AppendUint64(b.Bytes, bits)
}

// Name writes a length-prefixed byte string.
func (b *Buffer) Name(s string) {
	b.U32(uint32(len(s)))
	b.Bytes = append(b.Bytes, s...)
}

func (b *Buffer) Limits(l Limits) {
	if l.Max != nil {
		b.Byte(limitsHasMax)
		b.U32(l.Min)
		b.U32(*l.Max)
		return
	}
	b.Byte(limitsNoMax)
	b.U32(l.Min)
}

// Section writes a section header for id followed by the body.
func (b *Buffer) Section(id byte, body *Buffer) {
	b.Byte(id)
	b.U32(uint32(body.Len()))
	b.Write(body.Bytes)
}
