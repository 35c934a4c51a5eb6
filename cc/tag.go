package cc

import (
	"fmt"
)

// Op is the operation a pending tag defers.
type Op int

const (
	OP_ADD   = Op(0) // add
	OP_SUB   = Op(1) // sub
	OP_CMP   = Op(2) // cmp
	OP_LOGIC = Op(3) // logic
)

var _op_names = [...]string{"add", "sub", "cmp", "logic"}

func (op Op) String() string {
	if op >= 0 && int(op) < len(_op_names) {
		return _op_names[op]
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// Size is the operand width a pending tag was captured at.
type Size int

const (
	SIZE_BYTE = Size(0) // b
	SIZE_WORD = Size(1) // w
	SIZE_LONG = Size(2) // l
)

// Bits returns the operand width in bits.
func (s Size) Bits() uint {
	return 8 << uint(s)
}

// Extend sign or zero extends the low Bits() of v.
func (s Size) Extend(v uint32, signed bool) uint32 {
	switch s {
	case SIZE_BYTE:
		if signed {
			return uint32(int32(int8(v)))
		}
		return v & 0xff
	case SIZE_WORD:
		if signed {
			return uint32(int32(int16(v)))
		}
		return v & 0xffff
	}
	return v
}

func (s Size) String() string {
	switch s {
	case SIZE_BYTE:
		return "b"
	case SIZE_WORD:
		return "w"
	case SIZE_LONG:
		return "l"
	}
	return fmt.Sprintf("Size(%d)", int(s))
}

// Tag names which representation of the condition codes is live.
// It is one of Dynamic, Flags, Static or Pending.
type Tag interface {
	isTag()
	String() string
}

// Dynamic means the representation is only known at run time, from the
// CC_OP global.
type Dynamic struct{}

// Flags means CC_X..CC_C hold materialized flags.
type Flags struct{}

// Static means all five flags are known at translation time.
type Static struct {
	CCR uint8
}

// Pending means the flags are derived from operands captured by Op.
type Pending struct {
	Op   Op
	Size Size
}

func (Dynamic) isTag() {}
func (Flags) isTag()   {}
func (Static) isTag()  {}
func (Pending) isTag() {}

func (Dynamic) String() string   { return "dynamic" }
func (Flags) String() string     { return "flags" }
func (t Static) String() string  { return fmt.Sprintf("static(%02x)", t.CCR) }
func (t Pending) String() string { return fmt.Sprintf("%v.%v", t.Op, t.Size) }

// Run-time encodings of a tag, as stored in the CC_OP global and in
// search points.
const (
	CC_OP_DYNAMIC = uint32(0)
	CC_OP_FLAGS   = uint32(1)
	CC_OP_PENDING = uint32(2)     // + Op*3 + Size
	CC_OP_STATIC  = uint32(0x100) // | CCR
)

// Encode returns the run-time encoding of a tag.
func Encode(t Tag) uint32 {
	switch t := t.(type) {
	case Dynamic:
		return CC_OP_DYNAMIC
	case Flags:
		return CC_OP_FLAGS
	case Static:
		return CC_OP_STATIC | uint32(t.CCR&CCR_MASK)
	case Pending:
		return CC_OP_PENDING + uint32(t.Op)*3 + uint32(t.Size)
	}
	panic(fmt.Sprintf("cc: unknown tag %T", t))
}

// Decode returns the tag for a run-time encoding.
func Decode(v uint32) (t Tag, err error) {
	switch {
	case v == CC_OP_DYNAMIC:
		t = Dynamic{}
	case v == CC_OP_FLAGS:
		t = Flags{}
	case (v &^ uint32(CCR_MASK)) == CC_OP_STATIC:
		t = Static{CCR: uint8(v & uint32(CCR_MASK))}
	case v >= CC_OP_PENDING && v < CC_OP_PENDING+12:
		n := v - CC_OP_PENDING
		t = Pending{Op: Op(n / 3), Size: Size(n % 3)}
	default:
		err = ErrTagInvalid(v)
	}
	return
}
