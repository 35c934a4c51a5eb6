package m68k

import (
	"github.com/ezrec/cf68k/cc"
	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/decode"
	"github.com/ezrec/cf68k/helper"
	"github.com/ezrec/cf68k/ir"
)

// Integer arithmetic instructions. Results are stored before the
// condition codes are recorded, so a faulting store leaves the flags of
// the previous instruction.

// addSub emits dst + src or dst - src, and the carry or borrow. The
// operands are sign extended from the operand size.
func (ctx *Context) addSub(add bool, dst, src ir.Temp) (res, carry ir.Temp) {
	b := ctx.b

	res = b.NewTemp()
	carry = b.NewTemp()
	if add {
		b.Add(res, dst, src)
		b.Setcond(ir.CondLTU, carry, res, src)
	} else {
		b.Setcond(ir.CondLTU, carry, dst, src)
		b.Sub(res, dst, src)
	}
	return
}

// addSubCC records the flags of addSub.
func (ctx *Context) addSubCC(add bool, res, src, carry ir.Temp, size decode.Size) {
	ctx.b.Mov(QREG_CC_X, carry)
	if add {
		ctx.cc.Add(res, src, size.CC())
	} else {
		ctx.cc.Sub(res, src, size.CC())
	}
}

// insnAddsub is ADD and SUB with a data register on one side.
func insnAddsub(ctx *Context, insn decode.Word) {
	add := insn.Bit(14)
	size, ok := decode.SizeOf(insn.Size6())
	if !ok {
		insnUndef(ctx, insn)
		return
	}

	reg := ctx.dregVal(insn.Reg9(), size, true)

	var dst, src ir.Temp
	var op operand
	toEA := insn.Bit(8)
	if toEA {
		dst, op, ok = ctx.rmwEA(insn.Mode(), insn.Reg(), size, true)
		src = reg
	} else {
		dst = reg
		src, ok = ctx.srcEA(insn.Mode(), insn.Reg(), size, true)
	}
	if !ok {
		return
	}

	res, carry := ctx.addSub(add, dst, src)
	if toEA {
		if !ctx.store(op, res) {
			return
		}
	} else {
		ctx.partset(ctx.dreg(insn.Reg9()), res, size)
	}
	ctx.addSubCC(add, res, src, carry, size)
}

// insnAdda is ADDA and SUBA. The flags are not changed.
func insnAdda(ctx *Context, insn decode.Word) {
	b := ctx.b

	size := decode.OS_WORD
	if insn.Bit(8) {
		size = decode.OS_LONG
	}
	src, ok := ctx.srcEA(insn.Mode(), insn.Reg(), size, true)
	if !ok {
		return
	}

	res := b.NewTemp()
	if insn.Bit(14) {
		b.Add(res, ctx.areg(insn.Reg9()), src)
	} else {
		b.Sub(res, ctx.areg(insn.Reg9()), src)
	}
	ctx.setAreg(insn.Reg9(), res)
}

// insnAddsubq is ADDQ and SUBQ. Address register destinations use the
// whole register and keep the flags.
func insnAddsubq(ctx *Context, insn decode.Word) {
	b := ctx.b

	add := !insn.Bit(8)
	val := int64(insn.Quick())

	if insn.Mode() == 1 {
		res := b.NewTemp()
		if add {
			b.Addi(res, ctx.areg(insn.Reg()), val)
		} else {
			b.Subi(res, ctx.areg(insn.Reg()), val)
		}
		ctx.setAreg(insn.Reg(), res)
		return
	}

	size, ok := decode.SizeOf(insn.Size6())
	if !ok {
		insnUndef(ctx, insn)
		return
	}
	dst, op, ok := ctx.rmwEA(insn.Mode(), insn.Reg(), size, true)
	if !ok {
		return
	}

	res, carry := ctx.addSub(add, dst, b.Const(uint32(val)))
	if !ctx.store(op, res) {
		return
	}
	ctx.addSubCC(add, res, b.Const(uint32(val)), carry, size)
}

// immediate reads an immediate operand, sign extended from size.
func (ctx *Context) immediate(size decode.Size) uint32 {
	imm := ctx.r.FetchImm(size)
	switch size {
	case decode.OS_BYTE:
		imm = uint32(int32(int8(imm)))
	case decode.OS_WORD:
		imm = uint32(int32(int16(imm)))
	}
	return imm
}

// insnArithIm is ORI, ANDI, SUBI, ADDI, EORI and CMPI.
func insnArithIm(ctx *Context, insn decode.Word) {
	b := ctx.b

	op := insn.Reg9()
	size, ok := decode.SizeOf(insn.Size6())
	if !ok || op == 4 || op == 7 {
		insnUndef(ctx, insn)
		return
	}
	im := b.Const(ctx.immediate(size))

	if op == 6 {
		src, ok := ctx.srcEA(insn.Mode(), insn.Reg(), size, true)
		if !ok {
			return
		}
		ctx.cc.Cmp(src, im, size.CC())
		return
	}

	src, dst, ok := ctx.rmwEA(insn.Mode(), insn.Reg(), size, true)
	if !ok {
		return
	}

	res := b.NewTemp()
	var carry ir.Temp
	switch op {
	case 0:
		b.Or(res, src, im)
	case 1:
		b.And(res, src, im)
	case 2:
		res, carry = ctx.addSub(false, src, im)
	case 3:
		res, carry = ctx.addSub(true, src, im)
	case 5:
		b.Xor(res, src, im)
	}

	if !ctx.store(dst, res) {
		return
	}

	switch op {
	case 2, 3:
		ctx.addSubCC(op == 3, res, im, carry, size)
	default:
		ctx.cc.Logic(res, size.CC())
	}
}

// extended emits ADDX or SUBX through the flag helpers, which keep Z
// sticky.
func (ctx *Context) extended(h *ir.Helper, dst, src ir.Temp, size decode.Size) (res ir.Temp) {
	b := ctx.b

	res = b.NewTemp()
	b.Call(h, res, dst, src, b.Const(uint32(size.CC())))
	ctx.cc.Assume(cc.Flags{})
	return
}

// extendedSize is the operand size of ADDX and SUBX: ColdFire only has
// the long form.
func (ctx *Context) extendedSize(insn decode.Word) (size decode.Size, ok bool) {
	if !ctx.Features.Has(cpu.FEATURE_M68000) {
		return decode.OS_LONG, true
	}
	return decode.SizeOf(insn.Size6())
}

func genAddxReg(ctx *Context, insn decode.Word, h *ir.Helper) {
	size, ok := ctx.extendedSize(insn)
	if !ok {
		insnUndef(ctx, insn)
		return
	}

	ctx.flushFlags()
	src := ctx.dregVal(insn.Reg(), size, true)
	dst := ctx.dregVal(insn.Reg9(), size, true)
	res := ctx.extended(h, dst, src, size)
	ctx.partset(ctx.dreg(insn.Reg9()), res, size)
}

func genAddxMem(ctx *Context, insn decode.Word, h *ir.Helper) {
	size, ok := ctx.extendedSize(insn)
	if !ok {
		insnUndef(ctx, insn)
		return
	}

	ctx.flushFlags()
	src, ok := ctx.srcEA(4, insn.Reg(), size, true)
	if !ok {
		return
	}
	dst, op, ok := ctx.rmwEA(4, insn.Reg9(), size, true)
	if !ok {
		return
	}
	res := ctx.extended(h, dst, src, size)
	ctx.store(op, res)
}

func insnAddxReg(ctx *Context, insn decode.Word) { genAddxReg(ctx, insn, helper.AddxCC) }
func insnAddxMem(ctx *Context, insn decode.Word) { genAddxMem(ctx, insn, helper.AddxCC) }
func insnSubxReg(ctx *Context, insn decode.Word) { genAddxReg(ctx, insn, helper.SubxCC) }
func insnSubxMem(ctx *Context, insn decode.Word) { genAddxMem(ctx, insn, helper.SubxCC) }

// insnNegx is SUBX from zero.
func insnNegx(ctx *Context, insn decode.Word) {
	size, ok := decode.SizeOf(insn.Size6())
	if !ok {
		insnUndef(ctx, insn)
		return
	}

	ctx.flushFlags()
	src, op, ok := ctx.rmwEA(insn.Mode(), insn.Reg(), size, true)
	if !ok {
		return
	}
	res := ctx.extended(helper.SubxCC, ctx.b.Const(0), src, size)
	ctx.store(op, res)
}

func insnNeg(ctx *Context, insn decode.Word) {
	b := ctx.b

	size, ok := decode.SizeOf(insn.Size6())
	if !ok {
		insnUndef(ctx, insn)
		return
	}

	src, op, ok := ctx.rmwEA(insn.Mode(), insn.Reg(), size, true)
	if !ok {
		return
	}

	res := b.NewTemp()
	b.Neg(res, src)
	carry := b.NewTemp()
	b.Setcondi(ir.CondNE, carry, res, 0)
	if !ctx.store(op, res) {
		return
	}
	b.Mov(QREG_CC_X, carry)
	ctx.cc.Sub(res, src, size.CC())
}

func insnCmp(ctx *Context, insn decode.Word) {
	size, ok := decode.SizeOf(insn.Size6())
	if !ok {
		insnUndef(ctx, insn)
		return
	}

	src, ok := ctx.srcEA(insn.Mode(), insn.Reg(), size, true)
	if !ok {
		return
	}
	ctx.cc.Cmp(ctx.extend(ctx.dreg(insn.Reg9()), size, true), src, size.CC())
}

func insnCmpa(ctx *Context, insn decode.Word) {
	size := decode.OS_WORD
	if insn.Bit(8) {
		size = decode.OS_LONG
	}

	src, ok := ctx.srcEA(insn.Mode(), insn.Reg(), size, true)
	if !ok {
		return
	}
	ctx.cc.Cmp(ctx.areg(insn.Reg9()), src, cc.SIZE_LONG)
}

// insnCmpm compares (Ay)+ with (Ax)+.
func insnCmpm(ctx *Context, insn decode.Word) {
	size, ok := decode.SizeOf(insn.Size6())
	if !ok {
		insnUndef(ctx, insn)
		return
	}

	src, ok := ctx.srcEA(3, insn.Reg(), size, true)
	if !ok {
		return
	}
	dst, ok := ctx.srcEA(3, insn.Reg9(), size, true)
	if !ok {
		return
	}
	ctx.cc.Cmp(dst, src, size.CC())
}

func insnTst(ctx *Context, insn decode.Word) {
	size, ok := decode.SizeOf(insn.Size6())
	if !ok {
		insnUndef(ctx, insn)
		return
	}

	val, ok := ctx.srcEA(insn.Mode(), insn.Reg(), size, true)
	if !ok {
		return
	}
	ctx.cc.Logic(val, size.CC())
}

// insnTas sets bit 7 of a byte after testing it.
func insnTas(ctx *Context, insn decode.Word) {
	b := ctx.b

	src, op, ok := ctx.rmwEA(insn.Mode(), insn.Reg(), decode.OS_BYTE, true)
	if !ok {
		return
	}
	res := b.NewTemp()
	b.Ori(res, src, 0x80)
	if !ctx.store(op, res) {
		return
	}
	ctx.cc.Logic(src, cc.SIZE_BYTE)
}

// insnMulw is MULU.W and MULS.W: 16 x 16 -> 32.
func insnMulw(ctx *Context, insn decode.Word) {
	b := ctx.b

	signed := insn.Bit(8)
	reg := ctx.dreg(insn.Reg9())
	val := ctx.extend(reg, decode.OS_WORD, signed)

	src, ok := ctx.srcEA(insn.Mode(), insn.Reg(), decode.OS_WORD, signed)
	if !ok {
		return
	}

	res := b.NewTemp()
	b.Mul(res, val, src)
	b.Mov(reg, res)
	ctx.cc.Logic(res, cc.SIZE_LONG)
}

// insnMull is MULU.L and MULS.L: 32 x 32 -> 32. The 68000 family sets V
// when the product does not fit; ColdFire discards the high half.
func insnMull(ctx *Context, insn decode.Word) {
	b := ctx.b

	ext := ctx.fetch16()
	signed := ext.Bit(11)
	if ext.Bit(10) {
		ctx.exception(ctx.insnPC, cpu.EXCP_UNSUPPORTED)
		return
	}

	src, ok := ctx.srcEA(insn.Mode(), insn.Reg(), decode.OS_LONG, false)
	if !ok {
		return
	}
	reg := ctx.dreg(ext.Reg12())

	if !ctx.Features.Has(cpu.FEATURE_M68000) {
		b.Mul(reg, src, reg)
		ctx.cc.Logic(reg, cc.SIZE_LONG)
		return
	}

	x, y := b.NewTemp64(), b.NewTemp64()
	if signed {
		b.Ext32s(x, src)
		b.Ext32s(y, reg)
	} else {
		b.Ext32u(x, src)
		b.Ext32u(y, reg)
	}
	prod := b.NewTemp64()
	b.Mul(prod, x, y)
	lo := b.NewTemp()
	b.Trunc(lo, prod)

	// V is set when the product does not survive truncation.
	back := b.NewTemp64()
	if signed {
		b.Ext32s(back, lo)
	} else {
		b.Ext32u(back, lo)
	}
	overflow := b.NewTemp()
	b.Setcond(ir.CondNE, overflow, back, prod)

	b.Mov(reg, lo)
	b.Mov(QREG_CC_N, lo)
	b.Mov(QREG_CC_Z, lo)
	b.Neg(QREG_CC_V, overflow)
	b.Movi(QREG_CC_C, 0)
	ctx.cc.Set(cc.Flags{})
}

// divide calls a divide helper with the operands in DIV1 and DIV2. A zero
// divisor raises a trap that returns after the instruction.
func (ctx *Context) divide(h *ir.Helper, num, den ir.Temp) {
	b := ctx.b

	b.Mov(QREG_DIV1, num)
	b.Mov(QREG_DIV2, den)
	ctx.cc.Sync()
	b.Movi(QREG_PC, ctx.pc())
	b.Call(h, ir.Invalid)
	ctx.cc.Assume(cc.Flags{})
}

// insnDivw is DIVU.W and DIVS.W: 32 / 16 -> 16r:16q.
func insnDivw(ctx *Context, insn decode.Word) {
	b := ctx.b

	signed := insn.Bit(8)
	src, ok := ctx.srcEA(insn.Mode(), insn.Reg(), decode.OS_WORD, signed)
	if !ok {
		return
	}

	h := helper.Divu
	if signed {
		h = helper.Divs
	}
	reg := ctx.dreg(insn.Reg9())
	ctx.divide(h, reg, src)

	rem := b.NewTemp()
	b.Shli(rem, QREG_DIV2, 16)
	quot := b.NewTemp()
	b.Andi(quot, QREG_DIV1, 0xffff)
	b.Or(reg, rem, quot)
}

// insnDivl is DIVU.L, DIVS.L and the remainder forms. With distinct
// registers the 68000 family stores both results; ColdFire REMU/REMS
// store only the remainder.
func insnDivl(ctx *Context, insn decode.Word) {
	b := ctx.b

	ext := ctx.fetch16()
	if ext.Bit(10) {
		ctx.exception(ctx.insnPC, cpu.EXCP_ILLEGAL)
		return
	}
	signed := ext.Bit(11)

	den, ok := ctx.srcEA(insn.Mode(), insn.Reg(), decode.OS_LONG, false)
	if !ok {
		return
	}

	h := helper.DivuL
	if signed {
		h = helper.DivsL
	}
	q, r := ext.Reg12(), ext.Reg()
	ctx.divide(h, ctx.dreg(q), den)

	// An overflow leaves the destinations alone.
	done := b.NewLabel()
	b.Brcondi(ir.CondNE, QREG_CC_V, 0, done)
	defer b.SetLabel(done)

	switch {
	case q == r:
		b.Mov(ctx.dreg(q), QREG_DIV1)
	case ctx.Features.Has(cpu.FEATURE_M68000):
		b.Mov(ctx.dreg(q), QREG_DIV1)
		b.Mov(ctx.dreg(r), QREG_DIV2)
	default:
		b.Mov(ctx.dreg(r), QREG_DIV2)
	}
}

// insnSats saturates Dn when V is set.
func insnSats(ctx *Context, insn decode.Word) {
	reg := ctx.dreg(insn.Reg())
	ctx.flushFlags()
	ctx.b.Call(helper.Sats, reg, reg, QREG_CC_V)
	ctx.cc.Logic(reg, cc.SIZE_LONG)
}

// bcdAdd returns dest + src + X in packed BCD. Bit 8 of the result is
// the decimal carry.
func (ctx *Context) bcdAdd(dest, src ir.Temp) (res ir.Temp) {
	b := ctx.b

	t0 := b.NewTemp()
	b.Addi(t0, src, 0x066)
	t1 := b.NewTemp()
	b.Add(t1, t0, dest)
	b.Add(t1, t1, QREG_CC_X)

	// The digits that did not carry lose their excess 6.
	b.Xor(t0, t0, dest)
	b.Xor(t0, t0, t1)
	b.Shri(t0, t0, 3)
	b.Not(t0, t0)
	b.Andi(t0, t0, 0x22)
	fix := b.NewTemp()
	b.Add(fix, t0, t0)
	b.Add(fix, fix, t0)

	res = b.NewTemp()
	b.Sub(res, t1, fix)
	return
}

// bcdSub returns dest - src - X in packed BCD, computed as
// bcdAdd(dest + 1 - X, 0x199 - src).
func (ctx *Context) bcdSub(dest, src ir.Temp) (res ir.Temp) {
	b := ctx.b

	t0 := b.NewTemp()
	b.Sub(t0, b.Const(0x1ff), src)
	t1 := b.NewTemp()
	b.Add(t1, t0, dest)
	b.Addi(t1, t1, 1)
	b.Sub(t1, t1, QREG_CC_X)

	t2 := b.NewTemp()
	b.Xor(t2, t0, dest)
	b.Xor(t0, t1, t2)
	b.Shri(t2, t0, 3)
	b.Not(t2, t2)
	b.Andi(t2, t2, 0x22)
	fix := b.NewTemp()
	b.Add(fix, t2, t2)
	b.Add(fix, fix, t2)

	res = b.NewTemp()
	b.Sub(res, t1, fix)
	return
}

// bcdFlags sets C and X from the decimal carry and clears Z for a non-zero
// result. N and V are undefined and left alone.
func (ctx *Context) bcdFlags(val ir.Temp) {
	b := ctx.b

	b.Andi(QREG_CC_C, val, 0xff)
	b.Or(QREG_CC_Z, QREG_CC_Z, QREG_CC_C)
	b.Shri(QREG_CC_C, val, 8)
	b.Andi(QREG_CC_C, QREG_CC_C, 1)
	b.Mov(QREG_CC_X, QREG_CC_C)
}

func genBcdReg(ctx *Context, insn decode.Word, add bool) {
	ctx.flushFlags()

	src := ctx.extend(ctx.dreg(insn.Reg()), decode.OS_BYTE, false)
	dest := ctx.extend(ctx.dreg(insn.Reg9()), decode.OS_BYTE, false)
	var res ir.Temp
	if add {
		res = ctx.bcdAdd(dest, src)
	} else {
		res = ctx.bcdSub(dest, src)
	}
	ctx.partset(ctx.dreg(insn.Reg9()), res, decode.OS_BYTE)
	ctx.bcdFlags(res)
}

func genBcdMem(ctx *Context, insn decode.Word, add bool) {
	ctx.flushFlags()

	src, ok := ctx.srcEA(4, insn.Reg(), decode.OS_BYTE, false)
	if !ok {
		return
	}
	dest, op, ok := ctx.rmwEA(4, insn.Reg9(), decode.OS_BYTE, false)
	if !ok {
		return
	}
	var res ir.Temp
	if add {
		res = ctx.bcdAdd(dest, src)
	} else {
		res = ctx.bcdSub(dest, src)
	}
	if !ctx.store(op, res) {
		return
	}
	ctx.bcdFlags(res)
}

func insnAbcdReg(ctx *Context, insn decode.Word) { genBcdReg(ctx, insn, true) }
func insnAbcdMem(ctx *Context, insn decode.Word) { genBcdMem(ctx, insn, true) }
func insnSbcdReg(ctx *Context, insn decode.Word) { genBcdReg(ctx, insn, false) }
func insnSbcdMem(ctx *Context, insn decode.Word) { genBcdMem(ctx, insn, false) }

func insnNbcd(ctx *Context, insn decode.Word) {
	ctx.flushFlags()

	src, op, ok := ctx.rmwEA(insn.Mode(), insn.Reg(), decode.OS_BYTE, false)
	if !ok {
		return
	}
	res := ctx.bcdSub(ctx.b.Const(0), src)
	if !ctx.store(op, res) {
		return
	}
	ctx.bcdFlags(res)
}
