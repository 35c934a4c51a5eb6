package m68k

import (
	"github.com/ezrec/cf68k/cc"
	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/decode"
	"github.com/ezrec/cf68k/ir"
)

// insnBranch is BRA, BSR and Bcc with 8, 16 or 32-bit displacements.
func insnBranch(ctx *Context, insn decode.Word) {
	b := ctx.b

	base := ctx.pc()
	offset := insn.Disp8()
	switch offset {
	case 0:
		offset = uint32(int32(int16(ctx.fetch16())))
	case 0xffffffff:
		offset = ctx.fetch32()
	}
	target := base + offset

	cond := insn.Cond()
	switch cond {
	case cc.COND_T:
		ctx.jmpTB(0, target)
	case cc.COND_F:
		ctx.push(b.Const(ctx.pc()))
		ctx.jmpTB(0, target)
	default:
		skip := b.NewLabel()
		ctx.cc.Jump(cond^1, skip)
		ctx.jmpTB(1, target)
		b.SetLabel(skip)
		ctx.jmpTB(0, ctx.pc())
	}
}

// insnDbcc decrements the low word of Dn and branches unless the
// condition holds or the counter expires.
func insnDbcc(ctx *Context, insn decode.Word) {
	b := ctx.b

	base := ctx.pc()
	target := base + uint32(int32(int16(ctx.fetch16())))

	done := b.NewLabel()
	ctx.cc.Jump(insn.Cond(), done)

	reg := ctx.dreg(insn.Reg())
	count := b.NewTemp()
	b.Ext16s(count, reg)
	b.Subi(count, count, 1)
	ctx.partset(reg, count, decode.OS_WORD)
	b.Brcondi(ir.CondEQ, count, 0xffffffff, done)
	ctx.jmpTB(1, target)

	b.SetLabel(done)
	ctx.jmpTB(0, ctx.pc())
}

// insnScc stores 0xff when the condition holds, 0 otherwise.
func insnScc(ctx *Context, insn decode.Word) {
	b := ctx.b

	val := b.NewTemp()
	ctx.cc.Setcond(insn.Cond(), val)
	b.Neg(val, val)
	ctx.dstEA(insn.Mode(), insn.Reg(), decode.OS_BYTE, val)
}

// insnTpf is a trap that never traps; it skips its operand words.
func insnTpf(ctx *Context, insn decode.Word) {
	switch insn.Reg() {
	case 2:
		ctx.fetch16()
	case 3:
		ctx.fetch32()
	case 4:
	default:
		insnUndef(ctx, insn)
	}
}

// insnJump is JMP and JSR. The target is computed before the return
// address is pushed.
func insnJump(ctx *Context, insn decode.Word) {
	addr, ok := ctx.leaEA(insn.Mode(), insn.Reg())
	if !ok {
		return
	}
	if !insn.Bit(6) {
		ctx.push(ctx.b.Const(ctx.pc()))
	}
	ctx.jmp(addr)
}

func insnRts(ctx *Context, insn decode.Word) {
	ctx.jmp(ctx.pop())
}

func insnTrap(ctx *Context, insn decode.Word) {
	ctx.exception(ctx.insnPC, cpu.EXCP_TRAP0+insn.Field(0, 4))
}

func insnIllegal(ctx *Context, insn decode.Word) {
	ctx.exception(ctx.insnPC, cpu.EXCP_ILLEGAL)
}

func insnBkpt(ctx *Context, insn decode.Word) {
	ctx.exception(ctx.insnPC, cpu.EXCP_DEBUG)
}

func insnNop(ctx *Context, insn decode.Word) {}

// insnPulse drives the debug module's PST lines, which are not modeled.
func insnPulse(ctx *Context, insn decode.Word) {}
