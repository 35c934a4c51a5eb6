package cc

import (
	"fmt"
)

// Condition code register bits.
const (
	CCR_C    = uint8(0x01)
	CCR_V    = uint8(0x02)
	CCR_Z    = uint8(0x04)
	CCR_N    = uint8(0x08)
	CCR_X    = uint8(0x10)
	CCR_MASK = uint8(0x1f)
)

// Regs is the lazy condition code storage. With the Flags tag:
// X and C are 0 or 1, N and V carry their flag in bit 31, and Z is set
// when the Z register is zero.
type Regs struct {
	X, N, Z, V, C uint32
}

// FromCCR returns materialized registers for a CCR value.
func FromCCR(ccr uint8) (r Regs) {
	if ccr&CCR_X != 0 {
		r.X = 1
	}
	if ccr&CCR_N != 0 {
		r.N = 0xffffffff
	}
	if ccr&CCR_Z == 0 {
		r.Z = 1
	}
	if ccr&CCR_V != 0 {
		r.V = 0xffffffff
	}
	if ccr&CCR_C != 0 {
		r.C = 1
	}
	return
}

// CCR packs materialized registers into a CCR value.
func (r Regs) CCR() (ccr uint8) {
	if r.X != 0 {
		ccr |= CCR_X
	}
	if int32(r.N) < 0 {
		ccr |= CCR_N
	}
	if r.Z == 0 {
		ccr |= CCR_Z
	}
	if int32(r.V) < 0 {
		ccr |= CCR_V
	}
	if r.C != 0 {
		ccr |= CCR_C
	}
	return
}

// Flush materializes the registers from the representation named by the
// tag. A Dynamic tag cannot be flushed without the run-time CC_OP value.
func (r Regs) Flush(t Tag) (out Regs) {
	out = r
	switch t := t.(type) {
	case Flags:
	case Static:
		out = FromCCR(t.CCR)
	case Pending:
		switch t.Op {
		case OP_ADD:
			res, src := r.N, r.V
			dest := t.Size.Extend(res-src, true)
			out.C = r.X
			out.Z = res
			out.V = (res ^ src) &^ (dest ^ src)
		case OP_SUB:
			res, src := r.N, r.V
			dest := t.Size.Extend(res+src, true)
			out.C = r.X
			out.Z = res
			out.V = (dest ^ src) & (dest ^ res)
		case OP_CMP:
			dest, src := r.N, r.V
			res := t.Size.Extend(dest-src, true)
			out.C = 0
			if dest < src {
				out.C = 1
			}
			out.Z = res
			out.N = res
			out.V = (res ^ dest) & (dest ^ src)
		case OP_LOGIC:
			out.Z = r.N
			out.C = 0
			out.V = 0
		}
	default:
		panic(fmt.Sprintf("cc: cannot flush %v", t))
	}
	return
}

// Cond is an m68k condition code field.
type Cond int

const (
	COND_T  = Cond(0)  // t
	COND_F  = Cond(1)  // f
	COND_HI = Cond(2)  // hi
	COND_LS = Cond(3)  // ls
	COND_CC = Cond(4)  // cc
	COND_CS = Cond(5)  // cs
	COND_NE = Cond(6)  // ne
	COND_EQ = Cond(7)  // eq
	COND_VC = Cond(8)  // vc
	COND_VS = Cond(9)  // vs
	COND_PL = Cond(10) // pl
	COND_MI = Cond(11) // mi
	COND_GE = Cond(12) // ge
	COND_LT = Cond(13) // lt
	COND_GT = Cond(14) // gt
	COND_LE = Cond(15) // le
)

var _cond_names = [...]string{
	"t", "f", "hi", "ls", "cc", "cs", "ne", "eq",
	"vc", "vs", "pl", "mi", "ge", "lt", "gt", "le",
}

func (c Cond) String() string {
	if c >= 0 && int(c) < len(_cond_names) {
		return _cond_names[c]
	}
	return fmt.Sprintf("Cond(%d)", int(c))
}

// Test evaluates a condition against a CCR value.
func (c Cond) Test(ccr uint8) (ok bool) {
	n := ccr&CCR_N != 0
	z := ccr&CCR_Z != 0
	v := ccr&CCR_V != 0
	k := ccr&CCR_C != 0

	switch c | 1 {
	case COND_F:
		ok = false
	case COND_LS:
		ok = k || z
	case COND_CS:
		ok = k
	case COND_EQ:
		ok = z
	case COND_VS:
		ok = v
	case COND_MI:
		ok = n
	case COND_LT:
		ok = n != v
	case COND_LE:
		ok = z || (n != v)
	}

	// Even conditions negate their odd partner.
	if c&1 == 0 {
		ok = !ok
	}
	return
}
