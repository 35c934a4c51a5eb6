package m68k

import (
	"github.com/ezrec/cf68k/decode"
	"github.com/ezrec/cf68k/ir"
)

// operand is a decoded effective address. Memory operands carry the
// temporary holding their address.
type operand struct {
	decode.EA
	addr ir.Temp
}

// memOp returns the access of an operand size.
func memOp(size decode.Size, signed bool) ir.MemOp {
	switch size {
	case decode.OS_BYTE:
		if signed {
			return ir.MemS8
		}
		return ir.MemU8
	case decode.OS_WORD:
		if signed {
			return ir.MemS16
		}
		return ir.MemU16
	case decode.OS_DOUBLE:
		return ir.MemU64
	}
	return ir.MemU32
}

// decodeEA decodes the mode and register fields and computes the
// address of memory operands. ok is false for encodings that are not
// valid for the size or the core.
func (ctx *Context) decodeEA(mode, reg int, size decode.Size) (op operand, ok bool) {
	op.EA, _ = decode.DecodeEA(ctx.r, mode, reg, size, ctx.Features)
	op.addr = ir.Invalid

	if op.Mode == decode.ModeInvalid {
		return
	}
	if op.Mode.Memory() {
		op.addr = ctx.address(op.EA)
	}

	ok = true
	return
}

// address emits the address computation of a memory operand.
func (ctx *Context) address(ea decode.EA) (addr ir.Temp) {
	b := ctx.b

	switch ea.Mode {
	case decode.ModeIndirect, decode.ModePostInc:
		addr = ctx.areg(ea.Reg)
	case decode.ModePreDec:
		addr = b.NewTemp()
		b.Subi(addr, ctx.areg(ea.Reg), int64(ea.Step))
	case decode.ModeDisp:
		addr = b.NewTemp()
		b.Addi(addr, ctx.areg(ea.Reg), int64(int32(ea.Disp)))
	case decode.ModeAbsShort, decode.ModeAbsLong:
		addr = b.Const(ea.Value)
	case decode.ModePCDisp:
		addr = b.Const(ea.Value + ea.Disp)
	case decode.ModeIndex, decode.ModePCIndex:
		addr = b.NewTemp()
		switch {
		case !ea.Base:
			b.Movi(addr, ea.Disp)
		case ea.Mode == decode.ModeIndex:
			b.Addi(addr, ctx.areg(ea.Reg), int64(int32(ea.Disp)))
		default:
			b.Movi(addr, ea.Value+ea.Disp)
		}
		if ea.Indexed && !ea.PostIndex {
			b.Add(addr, addr, ctx.indexValue(ea))
		}
		if ea.Indirect {
			b.Load(ir.MemU32, addr, addr, ctx.memIndex())
			ctx.memAccess = true
			if ea.Indexed && ea.PostIndex {
				b.Add(addr, addr, ctx.indexValue(ea))
			}
			b.Addi(addr, addr, int64(int32(ea.Outer)))
		}
	default:
		panic(f("m68k: no address for %v", ea.Mode))
	}

	return
}

// indexValue emits the scaled index register of an indexed operand.
func (ctx *Context) indexValue(ea decode.EA) (t ir.Temp) {
	b := ctx.b

	t = b.NewTemp()
	src := ctx.reg(ea.Index.Addr, ea.Index.Reg)
	if ea.Index.Long {
		b.Mov(t, src)
	} else {
		b.Ext16s(t, src)
	}
	if ea.Index.Scale != 0 {
		b.Shli(t, t, int64(ea.Index.Scale))
	}
	return
}

// extend returns val sign or zero extended from size.
func (ctx *Context) extend(val ir.Temp, size decode.Size, signed bool) (t ir.Temp) {
	b := ctx.b

	switch size {
	case decode.OS_BYTE:
		t = b.NewTemp()
		if signed {
			b.Ext8s(t, val)
		} else {
			b.Ext8u(t, val)
		}
	case decode.OS_WORD:
		t = b.NewTemp()
		if signed {
			b.Ext16s(t, val)
		} else {
			b.Ext16u(t, val)
		}
	default:
		t = val
	}
	return
}

// copy returns a fresh temporary holding val.
func (ctx *Context) copy(val ir.Temp) (t ir.Temp) {
	t = ctx.b.NewTemp()
	ctx.b.Mov(t, val)
	return
}

// partset replaces the low size bits of a data register.
func (ctx *Context) partset(reg, val ir.Temp, size decode.Size) {
	b := ctx.b

	switch size {
	case decode.OS_BYTE, decode.OS_WORD:
		mask := int64(0xff)
		if size == decode.OS_WORD {
			mask = 0xffff
		}
		hi := b.NewTemp()
		b.Andi(hi, reg, ^mask)
		lo := b.NewTemp()
		b.Andi(lo, val, mask)
		b.Or(reg, hi, lo)
	default:
		b.Mov(reg, val)
	}
}

// load reads an operand, extended to 32 bits.
func (ctx *Context) load(op operand, signed bool) (val ir.Temp) {
	b := ctx.b

	switch op.Mode {
	case decode.ModeDataReg, decode.ModeAddrReg:
		// Copied, so the value survives a store to the register.
		val = ctx.extend(ctx.reg(op.Mode == decode.ModeAddrReg, op.Reg), op.Size, signed)
		if op.Size != decode.OS_BYTE && op.Size != decode.OS_WORD {
			val = ctx.copy(val)
		}
	case decode.ModeImmediate:
		imm := uint32(op.Imm)
		switch {
		case op.Size == decode.OS_BYTE && signed:
			imm = uint32(int32(int8(imm)))
		case op.Size == decode.OS_WORD && signed:
			imm = uint32(int32(int16(imm)))
		}
		val = b.Const(imm)
	default:
		val = b.NewTemp()
		b.Load(memOp(op.Size, signed), val, op.addr, ctx.memIndex())
		ctx.memAccess = true
	}
	return
}

// load64 reads a double precision operand.
func (ctx *Context) load64(op operand) (val ir.Temp) {
	b := ctx.b

	if op.Mode == decode.ModeImmediate {
		return b.Const64(op.Imm)
	}
	val = b.NewTemp64()
	b.Load(ir.MemU64, val, op.addr, ctx.memIndex())
	ctx.memAccess = true
	return
}

// update applies the register side effect of (An)+ and -(An).
func (ctx *Context) update(op operand) {
	switch op.Mode {
	case decode.ModePostInc:
		t := ctx.b.NewTemp()
		ctx.b.Addi(t, op.addr, int64(op.Step))
		ctx.setAreg(op.Reg, t)
	case decode.ModePreDec:
		ctx.setAreg(op.Reg, op.addr)
	}
}

// alterable returns true for operands a result can be stored to.
func alterable(op operand) bool {
	switch op.Mode {
	case decode.ModeInvalid, decode.ModeImmediate, decode.ModePCDisp, decode.ModePCIndex:
		return false
	}
	return true
}

// alterableFields returns false when the mode and register fields alone
// name a destination that cannot be written, before any extension word
// is read.
func alterableFields(mode, reg int) bool {
	return mode != 7 || reg < 2
}

// store writes an operand and applies its register side effect. Values
// stored to An are not truncated. A non-alterable operand raises an
// address error.
func (ctx *Context) store(op operand, val ir.Temp) (ok bool) {
	if !alterable(op) {
		ctx.addrFault()
		return
	}

	switch op.Mode {
	case decode.ModeDataReg:
		ctx.partset(ctx.dreg(op.Reg), val, op.Size)
	case decode.ModeAddrReg:
		ctx.setAreg(op.Reg, val)
	default:
		ctx.b.Store(memOp(op.Size, false), val, op.addr, ctx.memIndex())
		ctx.memAccess = true
	}
	ctx.update(op)

	ok = true
	return
}

// store64 writes a double precision operand.
func (ctx *Context) store64(op operand, val ir.Temp) (ok bool) {
	if !alterable(op) || op.Mode.Register() {
		ctx.addrFault()
		return
	}

	ctx.b.Store(ir.MemU64, val, op.addr, ctx.memIndex())
	ctx.memAccess = true
	ctx.update(op)

	ok = true
	return
}

// srcEA loads a source operand. An invalid encoding raises an address
// error.
func (ctx *Context) srcEA(mode, reg int, size decode.Size, signed bool) (val ir.Temp, ok bool) {
	op, ok := ctx.decodeEA(mode, reg, size)
	if !ok {
		ctx.addrFault()
		return
	}
	val = ctx.load(op, signed)
	ctx.update(op)
	return
}

// rmwEA loads an operand that is stored back later; its register side
// effect is applied by the store.
func (ctx *Context) rmwEA(mode, reg int, size decode.Size, signed bool) (val ir.Temp, op operand, ok bool) {
	op, ok = ctx.decodeEA(mode, reg, size)
	if !ok || !alterable(op) {
		ctx.addrFault()
		ok = false
		return
	}
	val = ctx.load(op, signed)
	return
}

// dstEA decodes and stores a destination operand.
func (ctx *Context) dstEA(mode, reg int, size decode.Size, val ir.Temp) (ok bool) {
	op, ok := ctx.decodeEA(mode, reg, size)
	if !ok {
		ctx.addrFault()
		return
	}
	return ctx.store(op, val)
}

// leaEA computes the address of a control operand.
func (ctx *Context) leaEA(mode, reg int) (addr ir.Temp, ok bool) {
	op, ok := ctx.decodeEA(mode, reg, decode.OS_NONE)
	if !ok || !op.Mode.Memory() {
		ctx.addrFault()
		ok = false
		return
	}
	addr = op.addr
	return
}
