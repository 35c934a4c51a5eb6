package m68k

import (
	"github.com/ezrec/cf68k/cc"
	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/decode"
	"github.com/ezrec/cf68k/helper"
	"github.com/ezrec/cf68k/ir"
)

// insnUndef handles every opcode the core does not implement.
func insnUndef(ctx *Context, insn decode.Word) {
	ctx.exception(ctx.insnPC, cpu.EXCP_UNSUPPORTED)
}

// insnUndefMac is an unimplemented line-A opcode.
func insnUndefMac(ctx *Context, insn decode.Word) {
	ctx.exception(ctx.insnPC, cpu.EXCP_LINEA)
}

// insnUndefFPU is an unimplemented line-F opcode.
func insnUndefFPU(ctx *Context, insn decode.Word) {
	ctx.exception(ctx.insnPC, cpu.EXCP_LINEF)
}

// insnHalt stops the core. Execution resumes after the instruction.
func insnHalt(ctx *Context, insn decode.Word) {
	ctx.exception(ctx.pc(), cpu.EXCP_HALT_INSN)
}

// insnStop loads SR and halts until an interrupt.
func insnStop(ctx *Context, insn decode.Word) {
	b := ctx.b

	if ctx.privileged() {
		return
	}
	sr := uint32(ctx.fetch16())

	ctx.flushWritebacks()
	b.Call(helper.SetSR, ir.Invalid, b.Const(sr))
	ctx.cc.Assume(cc.Flags{})

	ctx.cc.Sync()
	b.Movi(QREG_PC, ctx.pc())
	b.Call(helper.Halt, ir.Invalid)
	ctx.Reason = REASON_JUMP
}

func insnRte(ctx *Context, insn decode.Word) {
	if ctx.privileged() {
		return
	}
	ctx.exception(ctx.insnPC, cpu.EXCP_RTE)
}

// insnMovec writes a control register. Unknown registers raise an
// illegal instruction exception from the helper.
func insnMovec(ctx *Context, insn decode.Word) {
	b := ctx.b

	if ctx.privileged() {
		return
	}
	ext := ctx.fetch16()
	val := ctx.reg(ext.Bit(15), ext.Reg12())

	ctx.flushWritebacks()
	ctx.cc.Sync()
	b.Movi(QREG_PC, ctx.insnPC)
	b.Call(helper.Movec, ir.Invalid, b.Const(uint32(ext&0xfff)), val)
	ctx.lookupTB()
}

// insnIntouch touches an instruction cache line; caches are not modeled.
func insnIntouch(ctx *Context, insn decode.Word) {
	if ctx.privileged() {
		return
	}
	ctx.leaEA(insn.Mode(), insn.Reg())
}

// insnCpushl pushes and invalidates a cache line; caches are not modeled.
func insnCpushl(ctx *Context, insn decode.Word) {
	ctx.privileged()
}

// insnWddata drives the debug data port, which is never available.
func insnWddata(ctx *Context, insn decode.Word) {
	ctx.exception(ctx.insnPC, cpu.EXCP_PRIVILEGE)
}

// insnWdebug writes the debug module; its command word is read and
// ignored.
func insnWdebug(ctx *Context, insn decode.Word) {
	if ctx.privileged() {
		return
	}
	ctx.fetch16()
	ctx.leaEA(insn.Mode(), insn.Reg())
}
