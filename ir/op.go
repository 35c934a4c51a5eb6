package ir

import (
	"fmt"
)

// Width is the bit width of a temporary.
type Width uint8

const (
	W32 = Width(0) // i32
	W64 = Width(1) // i64
)

func (w Width) String() string {
	if w == W64 {
		return "i64"
	}
	return "i32"
}

// Mask returns the value mask for the width.
func (w Width) Mask() uint64 {
	if w == W64 {
		return ^uint64(0)
	}
	return 0xffffffff
}

// Cond is a comparison predicate for Setcond and Brcond.
type Cond uint8

const (
	CondNever  = Cond(0)  // never
	CondAlways = Cond(1)  // always
	CondEQ     = Cond(2)  // eq
	CondNE     = Cond(3)  // ne
	CondLT     = Cond(4)  // lt
	CondGE     = Cond(5)  // ge
	CondLE     = Cond(6)  // le
	CondGT     = Cond(7)  // gt
	CondLTU    = Cond(8)  // ltu
	CondGEU    = Cond(9)  // geu
	CondLEU    = Cond(10) // leu
	CondGTU    = Cond(11) // gtu
)

var _cond_names = [...]string{
	"never", "always", "eq", "ne", "lt", "ge", "le", "gt", "ltu", "geu", "leu", "gtu",
}

func (c Cond) String() string {
	if int(c) < len(_cond_names) {
		return _cond_names[c]
	}
	return fmt.Sprintf("Cond(%d)", int(c))
}

// Invert returns the logical negation of the predicate.
func (c Cond) Invert() Cond {
	return c ^ 1
}

// Eval applies the predicate to two values of the given width.
func (c Cond) Eval(w Width, a, b uint64) bool {
	var sa, sb int64
	if w == W32 {
		a &= 0xffffffff
		b &= 0xffffffff
		sa, sb = int64(int32(a)), int64(int32(b))
	} else {
		sa, sb = int64(a), int64(b)
	}

	switch c {
	case CondNever:
		return false
	case CondAlways:
		return true
	case CondEQ:
		return a == b
	case CondNE:
		return a != b
	case CondLT:
		return sa < sb
	case CondGE:
		return sa >= sb
	case CondLE:
		return sa <= sb
	case CondGT:
		return sa > sb
	case CondLTU:
		return a < b
	case CondGEU:
		return a >= b
	case CondLEU:
		return a <= b
	case CondGTU:
		return a > b
	}

	panic(fmt.Sprintf("ir: bad condition %d", int(c)))
}

// MemOp is the size and signedness of a memory access.
type MemOp uint8

const (
	MemU8  = MemOp(0x01) // ld8u
	MemU16 = MemOp(0x02) // ld16u
	MemU32 = MemOp(0x04) // ld32u
	MemU64 = MemOp(0x08) // ld64
	MemS8  = MemOp(0x81) // ld8s
	MemS16 = MemOp(0x82) // ld16s
	MemS32 = MemOp(0x84) // ld32s

	memSigned = MemOp(0x80)
)

// Size returns the access size in bytes.
func (m MemOp) Size() int {
	return int(m &^ memSigned)
}

// Signed returns true if loads sign-extend.
func (m MemOp) Signed() bool {
	return (m & memSigned) != 0
}

// Extend sign or zero extends a value loaded with this MemOp.
func (m MemOp) Extend(v uint64) uint64 {
	switch m {
	case MemU8:
		return v & 0xff
	case MemU16:
		return v & 0xffff
	case MemU32:
		return v & 0xffffffff
	case MemS8:
		return uint64(int64(int8(v)))
	case MemS16:
		return uint64(int64(int16(v)))
	case MemS32:
		return uint64(int64(int32(v)))
	}
	return v
}

func (m MemOp) String() string {
	s := "u"
	if m.Signed() {
		s = "s"
	}
	return fmt.Sprintf("%s%d", s, m.Size()*8)
}

// Opcode is an IR operation.
type Opcode uint8

const (
	OpNop       = Opcode(iota) // nop
	OpInsnStart                // insn_start
	OpMovi                     // movi
	OpMov                      // mov
	OpAdd                      // add
	OpSub                      // sub
	OpAnd                      // and
	OpOr                       // or
	OpXor                      // xor
	OpMul                      // mul
	OpShl                      // shl
	OpShr                      // shr
	OpSar                      // sar
	OpNeg                      // neg
	OpNot                      // not
	OpExt8s                    // ext8s
	OpExt8u                    // ext8u
	OpExt16s                   // ext16s
	OpExt16u                   // ext16u
	OpExt32s                   // ext32s
	OpExt32u                   // ext32u
	OpTrunc                    // trunc
	OpBswap32                  // bswap32
	OpSetcond                  // setcond
	OpBrcond                   // brcond
	OpBr                       // br
	OpLabel                    // label
	OpLoad                     // ld
	OpStore                    // st
	OpCall                     // call
	OpGotoTB                   // goto_tb
	OpExitTB                   // exit_tb
	OpIOStart                  // io_start
	OpIOEnd                    // io_end
	opCount
)

var _opcode_names = [...]string{
	"nop", "insn_start", "movi", "mov", "add", "sub", "and", "or", "xor",
	"mul", "shl", "shr", "sar", "neg", "not", "ext8s", "ext8u", "ext16s",
	"ext16u", "ext32s", "ext32u", "trunc", "bswap32", "setcond", "brcond",
	"br", "label", "ld", "st", "call", "goto_tb", "exit_tb", "io_start",
	"io_end",
}

func (op Opcode) String() string {
	if int(op) < len(_opcode_names) {
		return _opcode_names[op]
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}
