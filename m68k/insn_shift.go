package m68k

import (
	"github.com/ezrec/cf68k/cc"
	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/decode"
	"github.com/ezrec/cf68k/helper"
	"github.com/ezrec/cf68k/ir"
)

// Shifts and rotates. The flag helpers compute every flag, so the lazy
// state is dropped rather than flushed.

// shiftControl is the shift_cc control word of a shift.
func shiftControl(right, logical bool, size decode.Size) (ctl uint32) {
	ctl = uint32(size.CC())
	if right {
		ctl |= helper.SHIFT_RIGHT
	}
	if !logical {
		ctl |= helper.SHIFT_ARITH
		if !right {
			ctl |= helper.SHIFT_ASL_V
		}
	}
	return
}

// shift emits a shift of val by count and returns the sign extended
// result.
func (ctx *Context) shift(val, count ir.Temp, right, logical bool, size decode.Size) (res ir.Temp) {
	b := ctx.b

	res = b.NewTemp()
	switch {
	case ctx.Features.Has(cpu.FEATURE_M68000):
		b.Call(helper.ShiftCC, res, val, count, b.Const(shiftControl(right, logical, size)))
	case !right:
		b.Call(helper.ShlCC, res, val, count)
	case logical:
		b.Call(helper.ShrCC, res, val, count)
	default:
		b.Call(helper.SarCC, res, val, count)
	}
	ctx.cc.Assume(cc.Flags{})
	return
}

// shiftSize is long on ColdFire, which has no other sizes.
func (ctx *Context) shiftSize(insn decode.Word) (size decode.Size, ok bool) {
	if !ctx.Features.Has(cpu.FEATURE_M68000) {
		return decode.OS_LONG, true
	}
	return decode.SizeOf(insn.Size6())
}

// genShiftReg shifts or rotates Dn by count.
func genShiftReg(ctx *Context, insn decode.Word, count ir.Temp, rotate bool) {
	size, ok := ctx.shiftSize(insn)
	if !ok {
		insnUndef(ctx, insn)
		return
	}

	right := !insn.Bit(8)
	plain := insn.Bit(3)
	reg := ctx.dreg(insn.Reg())
	val := ctx.dregVal(insn.Reg(), size, false)

	var res ir.Temp
	if rotate {
		res = ctx.rotate(val, count, right, !plain, size)
	} else {
		res = ctx.shift(val, count, right, plain, size)
	}
	ctx.partset(reg, res, size)
}

// insnShiftIm shifts Dn by 1 to 8.
func insnShiftIm(ctx *Context, insn decode.Word) {
	genShiftReg(ctx, insn, ctx.b.Const(insn.Quick()), false)
}

// insnShiftReg shifts Dn by Dm modulo 64.
func insnShiftReg(ctx *Context, insn decode.Word) {
	count := ctx.b.NewTemp()
	ctx.b.Andi(count, ctx.dreg(insn.Reg9()), 63)
	genShiftReg(ctx, insn, count, false)
}

// insnShiftMem shifts a memory word by one.
func insnShiftMem(ctx *Context, insn decode.Word) {
	right := !insn.Bit(8)
	logical := insn.Bit(9)

	src, op, ok := ctx.rmwEA(insn.Mode(), insn.Reg(), decode.OS_WORD, false)
	if !ok {
		return
	}
	res := ctx.shift(src, ctx.b.Const(1), right, logical, decode.OS_WORD)
	ctx.store(op, res)
}

// rotate emits a rotate of val by count, through X when extended is set.
func (ctx *Context) rotate(val, count ir.Temp, right, extended bool, size decode.Size) (res ir.Temp) {
	b := ctx.b

	ctl := uint32(size.CC())
	if right {
		ctl |= helper.ROTATE_RIGHT
	}
	if extended {
		ctl |= helper.ROTATE_X
	}

	res = b.NewTemp()
	b.Call(helper.RotateCC, res, val, count, b.Const(ctl))
	ctx.cc.Assume(cc.Flags{})
	return
}

func insnRotateIm(ctx *Context, insn decode.Word) {
	genShiftReg(ctx, insn, ctx.b.Const(insn.Quick()), true)
}

func insnRotateReg(ctx *Context, insn decode.Word) {
	count := ctx.b.NewTemp()
	ctx.b.Andi(count, ctx.dreg(insn.Reg9()), 63)
	genShiftReg(ctx, insn, count, true)
}

// insnRotateMem rotates a memory word by one.
func insnRotateMem(ctx *Context, insn decode.Word) {
	right := !insn.Bit(8)
	plain := insn.Bit(9)

	src, op, ok := ctx.rmwEA(insn.Mode(), insn.Reg(), decode.OS_WORD, false)
	if !ok {
		return
	}
	res := ctx.rotate(src, ctx.b.Const(1), right, !plain, decode.OS_WORD)
	ctx.store(op, res)
}
