package m68k

import (
	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/decode"
	"github.com/ezrec/cf68k/helper"
	"github.com/ezrec/cf68k/ir"
)

// ColdFire FPU. Registers hold float64 bits; single precision rounding
// follows the FPCR the block was translated for. FP_RESULT keeps the last
// result for FBcc.

func fpReg(n int) ir.Temp {
	return QREG_F0 + ir.Temp(n&7)
}

// fpSize decodes the source or destination format field.
func fpSize(n int) (size decode.Size, ok bool) {
	switch n {
	case 0:
		return decode.OS_LONG, true
	case 1:
		return decode.OS_SINGLE, true
	case 4:
		return decode.OS_WORD, true
	case 5:
		return decode.OS_DOUBLE, true
	case 6:
		return decode.OS_BYTE, true
	}
	return decode.OS_NONE, false
}

func insnFPU(ctx *Context, insn decode.Word) {
	ext := ctx.fetch16()

	switch ext.Field(13, 3) {
	case 0, 2:
		fpArith(ctx, insn, ext)
	case 1:
		insnUndefFPU(ctx, insn)
	case 3:
		fpMoveOut(ctx, insn, ext)
	case 4:
		fpMoveToControl(ctx, insn, ext)
	case 5:
		fpMoveFromControl(ctx, insn, ext)
	default:
		fpMovem(ctx, insn, ext)
	}
}

// fpMoveOut stores a register to memory or a data register, converted to
// the destination format.
func fpMoveOut(ctx *Context, insn, ext decode.Word) {
	b := ctx.b

	src := fpReg(ext.Field(7, 3))
	size, ok := fpSize(ext.Field(10, 3))
	if !ok {
		insnUndefFPU(ctx, insn)
		return
	}

	if size == decode.OS_DOUBLE {
		op, ok := ctx.decodeEA(insn.Mode(), insn.Reg(), size)
		if !ok {
			ctx.addrFault()
			return
		}
		ctx.store64(op, src)
		return
	}

	val := b.NewTemp()
	if size == decode.OS_SINGLE {
		b.Call(helper.F64ToF32, val, src)
	} else {
		b.Call(helper.F64ToI32, val, src)
	}
	ctx.dstEA(insn.Mode(), insn.Reg(), size, val)
}

// fpMoveToControl writes FPCR. The precision mode is part of the block
// state, so the block ends.
func fpMoveToControl(ctx *Context, insn, ext decode.Word) {
	if ext.Field(10, 3) != 4 {
		insnUndefFPU(ctx, insn)
		return
	}
	val, ok := ctx.srcEA(insn.Mode(), insn.Reg(), decode.OS_LONG, false)
	if !ok {
		return
	}
	ctx.b.Mov(QREG_FPCR, val)
	ctx.lookupTB()
}

func fpMoveFromControl(ctx *Context, insn, ext decode.Word) {
	if ext.Field(10, 3) != 4 {
		insnUndefFPU(ctx, insn)
		return
	}
	ctx.dstEA(insn.Mode(), insn.Reg(), decode.OS_LONG, ctx.copy(QREG_FPCR))
}

// fpMovem loads or stores the registers selected by the low byte of ext,
// F0 first.
func fpMovem(ctx *Context, insn, ext decode.Word) {
	b := ctx.b

	if ext&0x1f00 != 0x1000 || ext&0xff == 0 {
		insnUndefFPU(ctx, insn)
		return
	}
	base, ok := ctx.leaEA(insn.Mode(), insn.Reg())
	if !ok {
		return
	}
	addr := ctx.copy(base)

	store := ext.Bit(13)
	mask := decode.Word(0x80)
	for n := range 8 {
		if ext&mask != 0 {
			if store {
				b.Store(ir.MemU64, fpReg(n), addr, ctx.memIndex())
			} else {
				b.Load(ir.MemU64, fpReg(n), addr, ctx.memIndex())
			}
			ctx.memAccess = true
			if ext&(mask-1) != 0 {
				b.Addi(addr, addr, 8)
			}
		}
		mask >>= 1
	}
}

// fpSource loads the operand of an arithmetic instruction as float64.
func fpSource(ctx *Context, insn, ext decode.Word) (src ir.Temp, ok bool) {
	b := ctx.b

	if !ext.Bit(14) {
		return fpReg(ext.Field(10, 3)), true
	}

	size, ok := fpSize(ext.Field(10, 3))
	if !ok {
		insnUndefFPU(ctx, insn)
		return
	}

	if size == decode.OS_DOUBLE {
		op, ok := ctx.decodeEA(insn.Mode(), insn.Reg(), size)
		if !ok || op.Mode.Register() {
			insnUndefFPU(ctx, insn)
			return src, false
		}
		src = ctx.load64(op)
		ctx.update(op)
		return src, true
	}

	val, ok := ctx.srcEA(insn.Mode(), insn.Reg(), size, true)
	if !ok {
		return
	}
	src = b.NewTemp64()
	if size == decode.OS_SINGLE {
		b.Call(helper.F32ToF64, src, val)
	} else {
		b.Call(helper.I32ToF64, src, val)
	}
	return
}

func fpArith(ctx *Context, insn, ext decode.Word) {
	b := ctx.b

	opmode := ext.Field(0, 7)
	src, ok := fpSource(ctx, insn, ext)
	if !ok {
		return
	}

	dest := fpReg(ext.Field(7, 3))
	res := b.NewTemp64()
	if opmode != 0x3a {
		b.Mov(res, dest)
	}

	round := true
	setDest := true
	switch opmode {
	case 0x00, 0x40, 0x44:
		b.Mov(res, src)
	case 0x01:
		b.Call(helper.IRoundF64, res, src)
		round = false
	case 0x03:
		b.Call(helper.ITruncF64, res, src)
		round = false
	case 0x04, 0x41, 0x45:
		b.Call(helper.SqrtF64, res, src)
	case 0x18, 0x58, 0x5c:
		b.Call(helper.AbsF64, res, src)
	case 0x1a, 0x5a, 0x5e:
		b.Call(helper.ChsF64, res, src)
	case 0x20, 0x60, 0x64:
		b.Call(helper.DivF64, res, res, src)
	case 0x22, 0x62, 0x66:
		b.Call(helper.AddF64, res, res, src)
	case 0x23, 0x63, 0x67:
		b.Call(helper.MulF64, res, res, src)
	case 0x28, 0x68, 0x6c:
		b.Call(helper.SubF64, res, res, src)
	case 0x38:
		b.Call(helper.SubCmpF64, res, res, src)
		round = false
		setDest = false
	case 0x3a:
		b.Mov(res, src)
		round = false
		setDest = false
	default:
		insnUndefFPU(ctx, insn)
		return
	}

	// The 0x4x opmodes choose the precision themselves: bit 2 set is
	// double precision.
	if round {
		if opmode&0x40 != 0 {
			round = opmode&0x04 == 0
		} else {
			round = ctx.FPCR&cpu.FPCR_PREC != 0
		}
	}
	if round {
		single := b.NewTemp()
		b.Call(helper.F64ToF32, single, res)
		b.Call(helper.F32ToF64, res, single)
	}

	b.Mov(QREG_FP_RESULT, res)
	if setDest {
		b.Mov(dest, res)
	}
}

// fbccBranch maps an FBcc predicate to a comparison of the compare_f64
// result. always and never are reported separately.
func fbccBranch(pred int) (cond ir.Cond, val uint32, mask bool) {
	switch pred {
	case 0:
		return ir.CondNever, 0, false
	case 1:
		return ir.CondEQ, helper.FCMP_EQUAL, false
	case 2:
		return ir.CondEQ, helper.FCMP_GREATER, false
	case 3:
		return ir.CondLEU, helper.FCMP_GREATER, false
	case 4:
		return ir.CondLT, helper.FCMP_EQUAL, false
	case 5:
		return ir.CondLE, helper.FCMP_EQUAL, false
	case 6:
		return ir.CondNE, 0, true
	case 7:
		return ir.CondEQ, helper.FCMP_UNORDERED, false
	case 8:
		return ir.CondLT, helper.FCMP_UNORDERED, false
	case 9:
		return ir.CondEQ, 0, true
	case 10:
		return ir.CondGT, helper.FCMP_EQUAL, false
	case 11:
		return ir.CondGE, helper.FCMP_EQUAL, false
	case 12:
		return ir.CondGEU, helper.FCMP_UNORDERED, false
	case 13:
		return ir.CondNE, helper.FCMP_GREATER, false
	case 14:
		return ir.CondNE, helper.FCMP_EQUAL, false
	}
	return ir.CondAlways, 0, false
}

// insnFbcc branches on the last FPU result. Bit 6 selects a 32-bit
// displacement.
func insnFbcc(ctx *Context, insn decode.Word) {
	b := ctx.b

	base := ctx.pc()
	offset := uint32(int32(int16(ctx.fetch16())))
	if insn.Bit(6) {
		offset = offset<<16 | uint32(ctx.fetch16())
	}

	flag := b.NewTemp()
	b.Call(helper.CompareF64, flag, QREG_FP_RESULT)

	cond, val, mask := fbccBranch(insn.Field(0, 4))
	if mask {
		// Bit 0 separates less and greater from equal and unordered.
		b.Andi(flag, flag, 1)
	}

	ctx.cc.Sync()
	taken := b.NewLabel()
	b.Brcondi(cond, flag, val, taken)
	ctx.jmpTB(0, ctx.pc())
	b.SetLabel(taken)
	ctx.jmpTB(1, base+offset)
}

// insnFsave covers FSAVE and FRESTORE. There is no internal FPU state to
// save, so both only check privilege and the operand.
func insnFsave(ctx *Context, insn decode.Word) {
	if ctx.privileged() {
		return
	}
	ctx.leaEA(insn.Mode(), insn.Reg())
}
