package m68k

import (
	"github.com/ezrec/cf68k/cc"
	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/decode"
	"github.com/ezrec/cf68k/helper"
	"github.com/ezrec/cf68k/ir"
)

// genLogic is OR and AND with a data register on one side.
func genLogic(ctx *Context, insn decode.Word, op func(d, x, y ir.Temp)) {
	b := ctx.b

	size, ok := decode.SizeOf(insn.Size6())
	if !ok {
		insnUndef(ctx, insn)
		return
	}
	reg := ctx.dreg(insn.Reg9())
	res := b.NewTemp()

	if insn.Bit(8) {
		src, dst, ok := ctx.rmwEA(insn.Mode(), insn.Reg(), size, false)
		if !ok {
			return
		}
		op(res, src, reg)
		if !ctx.store(dst, res) {
			return
		}
	} else {
		src, ok := ctx.srcEA(insn.Mode(), insn.Reg(), size, false)
		if !ok {
			return
		}
		op(res, src, reg)
		ctx.partset(reg, res, size)
	}
	ctx.cc.Logic(res, size.CC())
}

func insnOr(ctx *Context, insn decode.Word)  { genLogic(ctx, insn, ctx.b.Or) }
func insnAnd(ctx *Context, insn decode.Word) { genLogic(ctx, insn, ctx.b.And) }

// insnEor only has the register to memory form.
func insnEor(ctx *Context, insn decode.Word) {
	b := ctx.b

	size, ok := decode.SizeOf(insn.Size6())
	if !ok {
		insnUndef(ctx, insn)
		return
	}
	src, dst, ok := ctx.rmwEA(insn.Mode(), insn.Reg(), size, false)
	if !ok {
		return
	}
	res := b.NewTemp()
	b.Xor(res, src, ctx.dreg(insn.Reg9()))
	if !ctx.store(dst, res) {
		return
	}
	ctx.cc.Logic(res, size.CC())
}

func insnNot(ctx *Context, insn decode.Word) {
	b := ctx.b

	size, ok := decode.SizeOf(insn.Size6())
	if !ok {
		insnUndef(ctx, insn)
		return
	}
	src, dst, ok := ctx.rmwEA(insn.Mode(), insn.Reg(), size, true)
	if !ok {
		return
	}
	res := b.NewTemp()
	b.Not(res, src)
	if !ctx.store(dst, res) {
		return
	}
	ctx.cc.Logic(res, size.CC())
}

// bitop emits BTST, BCHG, BCLR and BSET once the bit mask is known. Only
// Z changes; the other flags are flushed first.
func (ctx *Context) bitop(insn decode.Word, size decode.Size, mask func() ir.Temp) {
	b := ctx.b

	op := insn.Size6()
	ctx.flushFlags()

	var src ir.Temp
	var dst operand
	var ok bool
	if op == 0 {
		src, ok = ctx.srcEA(insn.Mode(), insn.Reg(), size, false)
	} else {
		src, dst, ok = ctx.rmwEA(insn.Mode(), insn.Reg(), size, false)
	}
	if !ok {
		return
	}

	bit := mask()
	res := b.NewTemp()
	switch op {
	case 1:
		b.Xor(res, src, bit)
	case 2:
		inv := b.NewTemp()
		b.Not(inv, bit)
		b.And(res, src, inv)
	case 3:
		b.Or(res, src, bit)
	}

	if op != 0 && !ctx.store(dst, res) {
		return
	}
	b.And(QREG_CC_Z, src, bit)
	ctx.cc.Assume(cc.Flags{})
}

// bitSize is long for data registers, byte for memory.
func bitSize(insn decode.Word) (size decode.Size, bits int64) {
	if insn.Mode() != 0 {
		return decode.OS_BYTE, 7
	}
	return decode.OS_LONG, 31
}

// insnBitopReg takes the bit number from Dn.
func insnBitopReg(ctx *Context, insn decode.Word) {
	size, bits := bitSize(insn)
	ctx.bitop(insn, size, func() ir.Temp {
		b := ctx.b
		n := b.NewTemp()
		b.Andi(n, ctx.dreg(insn.Reg9()), bits)
		bit := b.NewTemp()
		b.Shl(bit, b.Const(1), n)
		return bit
	})
}

// insnBitopIm takes the bit number from an extension word.
func insnBitopIm(ctx *Context, insn decode.Word) {
	size, bits := bitSize(insn)

	bitnum := ctx.fetch16()
	invalid := decode.Word(0xff00)
	if ctx.Features.Has(cpu.FEATURE_M68000) {
		invalid = 0xfe00
	}
	if bitnum&invalid != 0 {
		insnUndef(ctx, insn)
		return
	}

	mask := uint32(1) << (int64(bitnum) & bits)
	ctx.bitop(insn, size, func() ir.Temp {
		return ctx.b.Const(mask)
	})
}

// insnFF1 finds the first set bit of Dn, counting from the MSB.
func insnFF1(ctx *Context, insn decode.Word) {
	reg := ctx.dreg(insn.Reg())
	ctx.cc.Logic(reg, cc.SIZE_LONG)
	ctx.b.Call(helper.FF1, reg, reg)
}

func insnBitrev(ctx *Context, insn decode.Word) {
	reg := ctx.dreg(insn.Reg())
	ctx.b.Call(helper.Bitrev, reg, reg)
}

func insnByterev(ctx *Context, insn decode.Word) {
	reg := ctx.dreg(insn.Reg())
	ctx.b.Bswap32(reg, reg)
}
