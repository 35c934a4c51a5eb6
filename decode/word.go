package decode

import (
	"fmt"

	"github.com/ezrec/cf68k/cc"
)

// Size is an operand size.
type Size int

const (
	OS_BYTE   = Size(0) // b
	OS_WORD   = Size(1) // w
	OS_LONG   = Size(2) // l
	OS_SINGLE = Size(4) // s
	OS_DOUBLE = Size(5) // d
	OS_NONE   = Size(7) // Control addressing: only the address is used.
)

// Bytes returns the size of an operand in memory.
func (s Size) Bytes() uint32 {
	switch s {
	case OS_BYTE:
		return 1
	case OS_WORD:
		return 2
	case OS_LONG, OS_SINGLE:
		return 4
	case OS_DOUBLE:
		return 8
	}
	return 0
}

// CC returns the condition code size of an integer operand size.
func (s Size) CC() cc.Size {
	switch s {
	case OS_BYTE:
		return cc.SIZE_BYTE
	case OS_WORD:
		return cc.SIZE_WORD
	}
	return cc.SIZE_LONG
}

func (s Size) String() string {
	switch s {
	case OS_BYTE:
		return "b"
	case OS_WORD:
		return "w"
	case OS_LONG:
		return "l"
	case OS_SINGLE:
		return "s"
	case OS_DOUBLE:
		return "d"
	case OS_NONE:
		return "-"
	}
	return fmt.Sprintf("Size(%d)", int(s))
}

// SizeOf decodes the common two bit size field (00 byte, 01 word,
// 10 long).
func SizeOf(bits int) (size Size, ok bool) {
	switch bits & 3 {
	case 0:
		size, ok = OS_BYTE, true
	case 1:
		size, ok = OS_WORD, true
	case 2:
		size, ok = OS_LONG, true
	}
	return
}

// Word is an instruction or extension word.
type Word uint16

// Field returns width bits starting at bit shift.
func (w Word) Field(shift, width uint) int {
	return int(w>>shift) & ((1 << width) - 1)
}

// Bit returns true if bit n is set.
func (w Word) Bit(n uint) bool {
	return w&(1<<n) != 0
}

// Reg is the register field, bits 2..0.
func (w Word) Reg() int { return w.Field(0, 3) }

// Mode is the addressing mode field, bits 5..3.
func (w Word) Mode() int { return w.Field(3, 3) }

// Size6 is the size field in bits 7..6.
func (w Word) Size6() int { return w.Field(6, 2) }

// Mode6 is the destination mode of MOVE, bits 8..6.
func (w Word) Mode6() int { return w.Field(6, 3) }

// Reg9 is the second register field, bits 11..9.
func (w Word) Reg9() int { return w.Field(9, 3) }

// Reg12 is the register field of an extension word, bits 14..12.
func (w Word) Reg12() int { return w.Field(12, 3) }

// Cond is the condition field of Bcc, Scc and DBcc.
func (w Word) Cond() cc.Cond { return cc.Cond(w.Field(8, 4)) }

// Disp8 is the low byte, sign extended.
func (w Word) Disp8() uint32 { return uint32(int32(int8(w))) }

// Quick is the three bit quick immediate of ADDQ, SUBQ and shifts, where
// zero means eight.
func (w Word) Quick() uint32 {
	if v := w.Reg9(); v != 0 {
		return uint32(v)
	}
	return 8
}
