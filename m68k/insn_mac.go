package m68k

import (
	"github.com/ezrec/cf68k/cc"
	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/decode"
	"github.com/ezrec/cf68k/helper"
	"github.com/ezrec/cf68k/ir"
)

// EMAC instructions. The operand mode (fractional, signed or unsigned) is
// taken from the MACSR the block was translated for; writing MACSR ends
// the block.

func (ctx *Context) macFractional() bool { return ctx.MACSR&cpu.MACSR_FI != 0 }
func (ctx *Context) macSigned() bool     { return ctx.MACSR&cpu.MACSR_SU != 0 }

func macAcc(n int) ir.Temp {
	return QREG_ACC0 + ir.Temp(n&3)
}

// macWord extracts the upper or lower word of a multiplier operand.
func (ctx *Context) macWord(val ir.Temp, upper bool) (t ir.Temp) {
	b := ctx.b

	t = b.NewTemp()
	switch {
	case ctx.macFractional() && upper:
		b.Andi(t, val, 0xffff0000)
	case ctx.macFractional():
		b.Shli(t, val, 16)
	case ctx.macSigned() && upper:
		b.Sari(t, val, 16)
	case ctx.macSigned():
		b.Ext16s(t, val)
	case upper:
		b.Shri(t, val, 16)
	default:
		b.Ext16u(t, val)
	}
	return
}

func (ctx *Context) macClearFlags() {
	ctx.b.Andi(QREG_MACSR, QREG_MACSR, ^int64(cpu.MACSR_V|cpu.MACSR_Z|cpu.MACSR_N|cpu.MACSR_EV))
}

// macSaturate applies the overflow rules of the current mode to an
// accumulator.
func (ctx *Context) macSaturate(acc int) {
	b := ctx.b

	h := helper.MacSatU
	switch {
	case ctx.macFractional():
		h = helper.MacSatF
	case ctx.macSigned():
		h = helper.MacSatS
	}
	b.Call(h, ir.Invalid, b.Const(uint32(acc)))
}

// macAccumulate adds or subtracts the product into an accumulator.
func (ctx *Context) macAccumulate(acc int, prod ir.Temp, sub bool) {
	b := ctx.b

	if sub {
		b.Sub(macAcc(acc), macAcc(acc), prod)
	} else {
		b.Add(macAcc(acc), macAcc(acc), prod)
	}
	ctx.macSaturate(acc)
}

// insnMac is MAC and MSAC, optionally with a parallel load and a second
// accumulator.
func insnMac(ctx *Context, insn decode.Word) {
	b := ctx.b

	ext := ctx.fetch16()
	acc := insn.Field(7, 1) | ext.Field(3, 2)&2
	load := insn.Field(4, 2) != 0
	dual := load && ext.Field(0, 2) != 0
	if dual && !ctx.Features.Has(cpu.FEATURE_CF_EMAC_B) {
		insnUndef(ctx, insn)
		return
	}

	var rx, ry ir.Temp
	var op operand
	var addr, val ir.Temp
	if load {
		var ok bool
		op, ok = ctx.decodeEA(insn.Mode(), insn.Reg(), decode.OS_LONG)
		if !ok || !op.Mode.Memory() {
			ctx.addrFault()
			return
		}
		// The load happens before the multiply so a fault leaves the
		// accumulators alone.
		addr = b.NewTemp()
		b.And(addr, op.addr, QREG_MAC_MASK)
		val = b.NewTemp()
		b.Load(ir.MemU32, val, addr, ctx.memIndex())
		ctx.memAccess = true

		acc ^= 1
		rx = ctx.reg(ext.Bit(15), ext.Reg12())
		ry = ctx.reg(ext.Bit(3), ext.Reg())
	} else {
		rx = ctx.reg(insn.Bit(6), insn.Reg9())
		ry = ctx.reg(insn.Bit(3), insn.Reg())
	}

	ctx.macClearFlags()

	if !ext.Bit(11) {
		rx = ctx.macWord(rx, ext.Bit(7))
		ry = ctx.macWord(ry, ext.Bit(6))
	}

	prod := b.NewTemp64()
	switch {
	case ctx.macFractional():
		b.Call(helper.MacMulF, prod, rx, ry)
	default:
		h := helper.MacMulU
		if ctx.macSigned() {
			h = helper.MacMulS
		}
		b.Call(h, prod, rx, ry)
		switch ext.Field(9, 2) {
		case 1:
			b.Shli(prod, prod, 1)
		case 3:
			b.Shri(prod, prod, 1)
		}
	}

	var saved ir.Temp
	if dual {
		// The second accumulate sees the multiply overflow only.
		saved = ctx.copy(QREG_MACSR)
	}

	ctx.macAccumulate(acc, prod, insn.Bit(8))

	if dual {
		acc = ext.Field(2, 2)
		b.Mov(QREG_MACSR, saved)
		ctx.macAccumulate(acc, prod, ext.Bit(1))
	}
	b.Call(helper.MacSetFlags, ir.Invalid, b.Const(uint32(acc)))

	if load {
		ctx.setReg(insn.Bit(6), insn.Reg9(), val)
		switch op.Mode {
		case decode.ModePostInc:
			next := b.NewTemp()
			b.Addi(next, addr, 4)
			ctx.setAreg(op.Reg, next)
		case decode.ModePreDec:
			ctx.setAreg(op.Reg, addr)
		}
	}
}

// insnFromMac moves an accumulator to a register, optionally clearing it.
func insnFromMac(ctx *Context, insn decode.Word) {
	b := ctx.b

	n := insn.Field(9, 2)
	acc := macAcc(n)

	val := b.NewTemp()
	switch {
	case ctx.macFractional():
		b.Call(helper.GetMacF, val, acc)
	case ctx.MACSR&cpu.MACSR_OMC == 0:
		b.Trunc(val, acc)
	case ctx.macSigned():
		b.Call(helper.GetMacS, val, acc)
	default:
		b.Call(helper.GetMacU, val, acc)
	}
	ctx.setReg(insn.Bit(3), insn.Reg(), val)

	if insn.Bit(6) {
		b.Mov(acc, b.Const64(0))
		b.Andi(QREG_MACSR, QREG_MACSR, ^int64(cpu.MACSR_PAV0<<n))
	}
}

// insnMoveMac copies one accumulator to another.
func insnMoveMac(ctx *Context, insn decode.Word) {
	b := ctx.b

	dest := b.Const(uint32(insn.Field(9, 2)))
	b.Call(helper.MacMove, ir.Invalid, dest, b.Const(uint32(insn.Field(0, 2))))
	ctx.macClearFlags()
	b.Call(helper.MacSetFlags, ir.Invalid, dest)
}

func insnFromMACSR(ctx *Context, insn decode.Word) {
	ctx.setReg(insn.Bit(3), insn.Reg(), QREG_MACSR)
}

func insnFromMask(ctx *Context, insn decode.Word) {
	ctx.setReg(insn.Bit(3), insn.Reg(), QREG_MAC_MASK)
}

// insnFromMext reads the extension bytes of ACC0/1 or ACC2/3.
func insnFromMext(ctx *Context, insn decode.Word) {
	b := ctx.b

	pair := uint32(0)
	if insn.Bit(10) {
		pair = 2
	}

	h := helper.GetMacExtI
	if ctx.macFractional() {
		h = helper.GetMacExtF
	}
	val := b.NewTemp()
	b.Call(h, val, b.Const(pair))
	ctx.setReg(insn.Bit(3), insn.Reg(), val)
}

// insnMACSRToCCR copies the MACSR flags to the CCR and clears X.
func insnMACSRToCCR(ctx *Context, insn decode.Word) {
	b := ctx.b

	ccr := b.NewTemp()
	b.Andi(ccr, QREG_MACSR, 0xf)
	b.Call(helper.SetCCR, ir.Invalid, ccr)
	ctx.cc.Assume(cc.Flags{})
}

// insnToMac loads an accumulator.
func insnToMac(ctx *Context, insn decode.Word) {
	b := ctx.b

	n := insn.Field(9, 2)
	acc := macAcc(n)
	val, ok := ctx.srcEA(insn.Mode(), insn.Reg(), decode.OS_LONG, false)
	if !ok {
		return
	}

	switch {
	case ctx.macFractional():
		b.Ext32s(acc, val)
		b.Shli(acc, acc, 8)
	case ctx.macSigned():
		b.Ext32s(acc, val)
	default:
		b.Ext32u(acc, val)
	}
	b.Andi(QREG_MACSR, QREG_MACSR, ^int64(cpu.MACSR_PAV0<<n))
	ctx.macClearFlags()
	b.Call(helper.MacSetFlags, ir.Invalid, b.Const(uint32(n)))
}

// insnToMACSR changes the EMAC mode, so the block ends.
func insnToMACSR(ctx *Context, insn decode.Word) {
	val, ok := ctx.srcEA(insn.Mode(), insn.Reg(), decode.OS_LONG, false)
	if !ok {
		return
	}
	ctx.b.Call(helper.SetMacSR, ir.Invalid, val)
	ctx.lookupTB()
}

func insnToMask(ctx *Context, insn decode.Word) {
	val, ok := ctx.srcEA(insn.Mode(), insn.Reg(), decode.OS_LONG, false)
	if !ok {
		return
	}
	ctx.b.Ori(QREG_MAC_MASK, val, 0xffff0000)
}

// insnToMext writes the extension bytes of ACC0/1 or ACC2/3.
func insnToMext(ctx *Context, insn decode.Word) {
	b := ctx.b

	val, ok := ctx.srcEA(insn.Mode(), insn.Reg(), decode.OS_LONG, false)
	if !ok {
		return
	}
	pair := uint32(0)
	if insn.Bit(10) {
		pair = 2
	}

	h := helper.SetMacExtU
	switch {
	case ctx.macFractional():
		h = helper.SetMacExtF
	case ctx.macSigned():
		h = helper.SetMacExtS
	}
	b.Call(h, ir.Invalid, val, b.Const(pair))
}
