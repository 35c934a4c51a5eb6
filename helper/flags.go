package helper

import (
	"github.com/ezrec/cf68k/cc"
	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/ir"
)

// Condition code and status register helpers. The shift and extended
// arithmetic helpers leave the condition codes materialized.
var (
	FlushFlags = defineVoid("flush_flags", i32, flushFlags)
	GetCCR     = define("get_ccr", ir.W32, none, getCCR)
	SetCCR     = defineVoid("set_ccr", i32, setCCR)
	GetSR      = define("get_sr", ir.W32, none, getSR)
	SetSR      = defineVoid("set_sr", i32, setSR)
	ShlCC      = define("shl_cc", ir.W32, i32x2, shlCC)
	ShrCC      = define("shr_cc", ir.W32, i32x2, shrCC)
	SarCC      = define("sar_cc", ir.W32, i32x2, sarCC)
	ShiftCC    = define("shift_cc", ir.W32, i32x3, shiftCC)
	RotateCC   = define("rotate_cc", ir.W32, i32x3, rotateCC)
	AddxCC     = define("addx_cc", ir.W32, i32x3, addxCC)
	SubxCC     = define("subx_cc", ir.W32, i32x3, subxCC)
)

func flushFlags(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	err = c.FlushFlags(uint32(args[0]))
	return
}

func getCCR(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	ret = uint64(c.GetCCR())
	return
}

func setCCR(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	c.SetCCR(uint8(args[0]) & cc.CCR_MASK)
	return
}

func getSR(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	ret = uint64(c.GetSR())
	return
}

func setSR(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	c.SetSR(uint32(args[0]))
	return
}

// shiftFlags stores the materialized flags of a shift. X is only
// replaced when something was shifted.
func shiftFlags(c *cpu.Cpu, result, carry, overflow uint32, shift uint32) {
	c.CC.C = carry
	c.CC.N = result
	c.CC.Z = result
	c.CC.V = overflow
	if shift != 0 {
		c.CC.X = carry
	}
	c.CCOp = cc.CC_OP_FLAGS
}

func shlCC(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	val, shift := uint32(args[0]), uint32(args[1])&63

	result := uint64(val) << shift
	shiftFlags(c, uint32(result), uint32(result>>32)&1, 0, shift)

	ret = uint64(uint32(result))
	return
}

func shrCC(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	val, shift := uint32(args[0]), uint32(args[1])&63

	temp := (uint64(val) << 32) >> shift
	result := uint32(temp >> 32)
	shiftFlags(c, result, uint32(temp>>31)&1, 0, shift)

	ret = uint64(result)
	return
}

func sarCC(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	val, shift := uint32(args[0]), uint32(args[1])&63

	temp := uint64(int64(int32(val)) << 32 >> shift)
	result := uint32(temp >> 32)
	shiftFlags(c, result, uint32(temp>>31)&1, result^val, shift)

	ret = uint64(result)
	return
}

// extendedFlags stores the flags of ADDX, SUBX and NEGX. Z is only
// cleared by a non-zero result.
func extendedFlags(c *cpu.Cpu, result, carry, overflow uint32) {
	c.CC.X = carry
	c.CC.C = carry
	c.CC.N = result
	c.CC.Z |= result
	c.CC.V = overflow
	c.CCOp = cc.CC_OP_FLAGS
}

// extendedArgs returns the operands sign extended from the operand size,
// the operands masked to it, and its width.
func extendedArgs(args []uint64) (dest, src, udest, usrc uint32, bits uint) {
	size := cc.Size(args[2])
	bits = size.Bits()
	dest, src = size.Extend(uint32(args[0]), true), size.Extend(uint32(args[1]), true)
	udest, usrc = size.Extend(dest, false), size.Extend(src, false)
	return
}

// addxCC adds with extend. The result is sign extended from the operand
// size.
func addxCC(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	dest, src, udest, usrc, bits := extendedArgs(args)
	size := cc.Size(args[2])

	sum := uint64(udest) + uint64(usrc) + uint64(c.CC.X&1)
	result := size.Extend(uint32(sum), true)
	carry := uint32(sum>>bits) & 1
	extendedFlags(c, result, carry, (result^src)&^(dest^src))

	ret = uint64(result)
	return
}

// subxCC subtracts with extend. NEGX is subx_cc with a zero destination.
func subxCC(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	dest, src, udest, usrc, bits := extendedArgs(args)
	size := cc.Size(args[2])

	diff := uint64(udest) - uint64(usrc) - uint64(c.CC.X&1)
	result := size.Extend(uint32(diff), true)
	borrow := uint32(diff>>bits) & 1
	extendedFlags(c, result, borrow, (dest^src)&(dest^result))

	ret = uint64(result)
	return
}

// Control word of shift_cc and rotate_cc: the low bits are the cc.Size
// of the operand.
const (
	SHIFT_RIGHT  = uint32(0x100) // Shift or rotate right.
	SHIFT_ARITH  = uint32(0x200) // Arithmetic shift.
	SHIFT_ASL_V  = uint32(0x400) // ASL sets V when the sign bit changes (68000).
	ROTATE_RIGHT = SHIFT_RIGHT
	ROTATE_X     = uint32(0x200) // Rotate through X.
)

// shiftCC shifts a byte, word or long operand by a register count. The
// result is sign extended from the operand size.
func shiftCC(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	ctl := uint32(args[2])
	size := cc.Size(ctl & 3)
	bits := uint32(size.Bits())
	count := uint32(args[1]) & 63
	uval := uint64(size.Extend(uint32(args[0]), false))
	sval := int64(int32(size.Extend(uint32(args[0]), true)))

	var result, carry, overflow uint32
	switch {
	case ctl&SHIFT_RIGHT == 0:
		if count < bits {
			result = uint32(uval << count)
		}
		if count != 0 && count <= bits {
			carry = uint32(uval>>(bits-count)) & 1
		}
		if ctl&SHIFT_ARITH != 0 && ctl&SHIFT_ASL_V != 0 && count != 0 {
			if count >= bits {
				if uval != 0 {
					overflow = 0xffffffff
				}
			} else {
				mask := ((uint64(1) << (count + 1)) - 1) << (bits - count - 1)
				if top := uval & mask; top != 0 && top != mask {
					overflow = 0xffffffff
				}
			}
		}
	case ctl&SHIFT_ARITH != 0:
		result = uint32(sval >> count)
		if count != 0 {
			carry = uint32(sval>>min(count-1, 63)) & 1
		}
	default:
		if count < bits {
			result = uint32(uval >> count)
		}
		if count != 0 && count <= bits {
			carry = uint32(uval>>(count-1)) & 1
		}
	}

	result = size.Extend(result, true)
	shiftFlags(c, result, carry, overflow, count)

	ret = uint64(result)
	return
}

// rotateCC rotates a byte, word or long operand. Plain rotates leave X
// alone; rotates through X treat it as the bit above the operand.
func rotateCC(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	ctl := uint32(args[2])
	size := cc.Size(ctl & 3)
	bits := uint32(size.Bits())
	count := uint32(args[1]) & 63
	uval := uint64(size.Extend(uint32(args[0]), false))

	var result, carry uint32
	if ctl&ROTATE_X == 0 {
		n := count % bits
		mask := (uint64(1) << bits) - 1
		var rot uint64
		if ctl&ROTATE_RIGHT == 0 {
			rot = ((uval << n) | (uval >> (bits - n))) & mask
			carry = uint32(rot) & 1
		} else {
			rot = ((uval >> n) | (uval << (bits - n))) & mask
			carry = uint32(rot>>(bits-1)) & 1
		}
		if count == 0 {
			carry = 0
		}
		result = uint32(rot)
	} else {
		width := bits + 1
		n := count % width
		mask := (uint64(1) << width) - 1
		comb := uval | uint64(c.CC.X&1)<<bits
		if ctl&ROTATE_RIGHT == 0 {
			comb = ((comb << n) | (comb >> (width - n))) & mask
		} else {
			comb = ((comb >> n) | (comb << (width - n))) & mask
		}
		c.CC.X = uint32(comb>>bits) & 1
		carry = c.CC.X
		result = uint32(comb)
	}

	result = size.Extend(result, true)
	c.CC.C = carry
	c.CC.N = result
	c.CC.Z = result
	c.CC.V = 0
	c.CCOp = cc.CC_OP_FLAGS

	ret = uint64(result)
	return
}
