package m68k

import (
	"github.com/ezrec/cf68k/cc"
	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/decode"
	"github.com/ezrec/cf68k/helper"
	"github.com/ezrec/cf68k/ir"
)

// Data movement instructions.

// push stores val at -(A7).
func (ctx *Context) push(val ir.Temp) {
	b := ctx.b

	sp := b.NewTemp()
	b.Subi(sp, ctx.areg(7), 4)
	b.Store(ir.MemU32, val, sp, ctx.memIndex())
	ctx.memAccess = true
	ctx.setAreg(7, sp)
}

// pop loads a long from (A7)+.
func (ctx *Context) pop() (val ir.Temp) {
	b := ctx.b

	sp := ctx.areg(7)
	val = b.NewTemp()
	b.Load(ir.MemU32, val, sp, ctx.memIndex())
	ctx.memAccess = true
	next := b.NewTemp()
	b.Addi(next, sp, 4)
	ctx.setAreg(7, next)
	return
}

// dregVal returns a fresh copy of Dn extended from size.
func (ctx *Context) dregVal(n int, size decode.Size, signed bool) ir.Temp {
	val := ctx.extend(ctx.dreg(n), size, signed)
	if val == ctx.dreg(n) {
		val = ctx.copy(val)
	}
	return val
}

func insnMove(ctx *Context, insn decode.Word) {
	var size decode.Size
	switch insn >> 12 {
	case 1:
		size = decode.OS_BYTE
	case 3:
		size = decode.OS_WORD
	default:
		size = decode.OS_LONG
	}

	// The address error wins over any fault on the source.
	if !alterableFields(insn.Mode6(), insn.Reg9()) {
		ctx.addrFault()
		return
	}

	src, ok := ctx.srcEA(insn.Mode(), insn.Reg(), size, true)
	if !ok {
		return
	}

	if insn.Mode6() == 1 {
		// movea: the source is already sign extended.
		ctx.setAreg(insn.Reg9(), src)
		return
	}

	if !ctx.dstEA(insn.Mode6(), insn.Reg9(), size, src) {
		return
	}
	ctx.cc.Logic(src, size.CC())
}

func insnMoveq(ctx *Context, insn decode.Word) {
	val := ctx.b.Const(insn.Disp8())
	ctx.b.Mov(ctx.dreg(insn.Reg9()), val)
	ctx.cc.Logic(val, cc.SIZE_LONG)
}

// insnMvzs is MVS and MVZ: a byte or word source extended into Dn.
func insnMvzs(ctx *Context, insn decode.Word) {
	size := decode.OS_BYTE
	if insn.Bit(6) {
		size = decode.OS_WORD
	}

	src, ok := ctx.srcEA(insn.Mode(), insn.Reg(), size, !insn.Bit(7))
	if !ok {
		return
	}
	ctx.b.Mov(ctx.dreg(insn.Reg9()), src)
	ctx.cc.Logic(src, cc.SIZE_LONG)
}

func insnMov3q(ctx *Context, insn decode.Word) {
	imm := uint32(insn.Reg9())
	if imm == 0 {
		imm = 0xffffffff
	}

	val := ctx.b.Const(imm)
	if !ctx.dstEA(insn.Mode(), insn.Reg(), decode.OS_LONG, val) {
		return
	}
	ctx.cc.Logic(val, cc.SIZE_LONG)
}

func insnLea(ctx *Context, insn decode.Word) {
	addr, ok := ctx.leaEA(insn.Mode(), insn.Reg())
	if !ok {
		return
	}
	ctx.setAreg(insn.Reg9(), addr)
}

func insnPea(ctx *Context, insn decode.Word) {
	addr, ok := ctx.leaEA(insn.Mode(), insn.Reg())
	if !ok {
		return
	}
	ctx.push(addr)
}

func insnClr(ctx *Context, insn decode.Word) {
	size, ok := decode.SizeOf(insn.Size6())
	if !ok {
		insnUndef(ctx, insn)
		return
	}

	zero := ctx.b.Const(0)
	if !ctx.dstEA(insn.Mode(), insn.Reg(), size, zero) {
		return
	}
	ctx.cc.Logic(zero, size.CC())
}

// insnExg exchanges two data, two address, or a data and an address
// register.
func insnExg(ctx *Context, insn decode.Word) {
	var xAddr, yAddr bool
	switch insn & 0x1f8 {
	case 0x148:
		xAddr, yAddr = true, true
	case 0x188:
		yAddr = true
	}

	x := ctx.copy(ctx.reg(xAddr, insn.Reg9()))
	y := ctx.copy(ctx.reg(yAddr, insn.Reg()))
	ctx.setReg(xAddr, insn.Reg9(), y)
	ctx.setReg(yAddr, insn.Reg(), x)
}

func insnSwap(ctx *Context, insn decode.Word) {
	b := ctx.b

	reg := ctx.dreg(insn.Reg())
	hi := b.NewTemp()
	b.Shli(hi, reg, 16)
	lo := b.NewTemp()
	b.Shri(lo, reg, 16)
	b.Or(reg, hi, lo)
	ctx.cc.Logic(reg, cc.SIZE_LONG)
}

// insnExt is EXT.W, EXT.L and EXTB.L.
func insnExt(ctx *Context, insn decode.Word) {
	b := ctx.b

	reg := ctx.dreg(insn.Reg())
	op := insn.Field(6, 3)

	val := b.NewTemp()
	if op == 3 {
		b.Ext16s(val, reg)
	} else {
		b.Ext8s(val, reg)
	}
	if op == 2 {
		ctx.partset(reg, val, decode.OS_WORD)
	} else {
		b.Mov(reg, val)
	}
	ctx.cc.Logic(val, cc.SIZE_LONG)
}

// insnMovem moves a register list. Mask bit 0 is D0 and bit 15 is A7,
// reversed for the predecrement form.
func insnMovem(ctx *Context, insn decode.Word) {
	b := ctx.b

	load := insn.Bit(10)
	size := decode.OS_WORD
	if insn.Bit(6) {
		size = decode.OS_LONG
	}
	mask := uint16(ctx.fetch16())
	mode, reg := insn.Mode(), insn.Reg()

	var base ir.Temp
	switch mode {
	case 0, 1:
		ctx.addrFault()
		return
	case 2:
		base = ctx.areg(reg)
	case 3:
		if !load {
			ctx.addrFault()
			return
		}
		base = ctx.areg(reg)
	case 4:
		if load {
			ctx.addrFault()
			return
		}
		base = ctx.areg(reg)
	default:
		var ok bool
		base, ok = ctx.leaEA(mode, reg)
		if !ok {
			return
		}
	}

	addr := ctx.copy(base)
	incr := int64(size.Bytes())
	idx := ctx.memIndex()
	ctx.memAccess = true

	switch {
	case load:
		// Every load happens before any register is written.
		var vals [16]ir.Temp
		for n := range 16 {
			if mask&(1<<n) == 0 {
				continue
			}
			vals[n] = b.NewTemp()
			b.Load(memOp(size, true), vals[n], addr, idx)
			b.Addi(addr, addr, incr)
		}
		for n := range 16 {
			if mask&(1<<n) != 0 {
				ctx.setReg(n >= 8, n&7, vals[n])
			}
		}
		if mode == 3 {
			ctx.setAreg(reg, addr)
		}
	case mode == 4:
		initial := ctx.copy(base)
		for n := 15; n >= 0; n-- {
			if (mask<<n)&0x8000 == 0 {
				continue
			}
			b.Subi(addr, addr, incr)
			val := ctx.reg(n >= 8, n&7)
			if n == reg+8 && ctx.Features.Has(cpu.FEATURE_EXT_FULL) {
				// Cores with the full extension format store the initial
				// value less the size.
				val = b.NewTemp()
				b.Subi(val, initial, incr)
			}
			b.Store(memOp(size, false), val, addr, idx)
		}
		ctx.setAreg(reg, addr)
	default:
		for n := range 16 {
			if mask&(1<<n) == 0 {
				continue
			}
			b.Store(memOp(size, false), ctx.reg(n >= 8, n&7), addr, idx)
			b.Addi(addr, addr, incr)
		}
	}
}

func genLink(ctx *Context, reg int, offset int64) {
	b := ctx.b

	frame := b.NewTemp()
	b.Subi(frame, ctx.areg(7), 4)
	b.Store(ir.MemU32, ctx.areg(reg), frame, ctx.memIndex())
	ctx.memAccess = true
	if reg != 7 {
		ctx.setAreg(reg, frame)
	}
	sp := b.NewTemp()
	b.Addi(sp, frame, offset)
	ctx.setAreg(7, sp)
}

func insnLink(ctx *Context, insn decode.Word) {
	offset := int64(int16(ctx.fetch16()))
	genLink(ctx, insn.Reg(), offset)
}

func insnLinkl(ctx *Context, insn decode.Word) {
	offset := int64(int32(ctx.fetch32()))
	genLink(ctx, insn.Reg(), offset)
}

func insnUnlk(ctx *Context, insn decode.Word) {
	b := ctx.b

	reg := insn.Reg()
	frame := ctx.copy(ctx.areg(reg))
	saved := b.NewTemp()
	b.Load(ir.MemU32, saved, frame, ctx.memIndex())
	ctx.memAccess = true
	ctx.setAreg(reg, saved)
	sp := b.NewTemp()
	b.Addi(sp, frame, 4)
	ctx.setAreg(7, sp)
}

// getSR returns the full status register.
func (ctx *Context) getSR() (sr ir.Temp) {
	ctx.cc.Sync()
	sr = ctx.b.NewTemp()
	ctx.b.Call(helper.GetSR, sr)
	return
}

// setSR writes the CCR, or the full status register, from a data
// register, an immediate, or a memory word.
func (ctx *Context) setSR(insn decode.Word, ccrOnly bool) (ok bool) {
	b := ctx.b

	var val ir.Temp
	switch {
	case insn&0x3f == 0x3c:
		imm := uint32(ctx.fetch16())
		if ccrOnly {
			ctx.cc.SetCCR(uint8(imm))
			return true
		}
		val = b.Const(imm)
	case insn.Mode() == 1:
		insnUndef(ctx, insn)
		return
	default:
		val, ok = ctx.srcEA(insn.Mode(), insn.Reg(), decode.OS_WORD, false)
		if !ok {
			return
		}
	}

	if ccrOnly {
		b.Call(helper.SetCCR, ir.Invalid, val)
	} else {
		// set_sr banks A7 in the CPU state.
		ctx.flushWritebacks()
		b.Call(helper.SetSR, ir.Invalid, val)
	}
	ctx.cc.Assume(cc.Flags{})
	return true
}

func insnMoveToCCR(ctx *Context, insn decode.Word) {
	ctx.setSR(insn, true)
}

func insnMoveFromCCR(ctx *Context, insn decode.Word) {
	ctx.cc.Sync()
	ccr := ctx.b.NewTemp()
	ctx.b.Call(helper.GetCCR, ccr)
	ctx.dstEA(insn.Mode(), insn.Reg(), decode.OS_WORD, ccr)
}

func insnMoveToSR(ctx *Context, insn decode.Word) {
	if ctx.privileged() {
		return
	}
	if ctx.setSR(insn, false) {
		ctx.lookupTB()
	}
}

// insnMoveFromSR is privileged on ColdFire only.
func insnMoveFromSR(ctx *Context, insn decode.Word) {
	if !ctx.Features.Has(cpu.FEATURE_M68000) && ctx.privileged() {
		return
	}
	ctx.dstEA(insn.Mode(), insn.Reg(), decode.OS_WORD, ctx.getSR())
}

func insnMoveToUSP(ctx *Context, insn decode.Word) {
	if ctx.privileged() {
		return
	}
	ctx.b.Mov(QREG_USP, ctx.areg(insn.Reg()))
}

func insnMoveFromUSP(ctx *Context, insn decode.Word) {
	if ctx.privileged() {
		return
	}
	ctx.setAreg(insn.Reg(), QREG_USP)
}

// insnStrldsr pushes SR and loads a new one. The second word must be the
// MOVE to SR opcode.
func insnStrldsr(ctx *Context, insn decode.Word) {
	ext := ctx.fetch16()
	if ext != 0x46fc {
		ctx.exception(ctx.insnPC, cpu.EXCP_ILLEGAL)
		return
	}
	imm := uint32(ctx.fetch16())
	if ctx.User || imm&cpu.SR_S == 0 {
		ctx.exception(ctx.insnPC, cpu.EXCP_PRIVILEGE)
		return
	}

	ctx.push(ctx.getSR())
	ctx.flushWritebacks()
	ctx.b.Call(helper.SetSR, ir.Invalid, ctx.b.Const(imm))
	ctx.cc.Assume(cc.Flags{})
	ctx.lookupTB()
}
