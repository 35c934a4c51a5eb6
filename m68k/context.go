package m68k

import (
	"github.com/ezrec/cf68k/cc"
	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/decode"
	"github.com/ezrec/cf68k/helper"
	"github.com/ezrec/cf68k/ir"
)

// Reason is why translation stops after an instruction.
type Reason int

const (
	REASON_NEXT    = Reason(0) // Continue with the next instruction.
	REASON_JUMP    = Reason(1) // PC is stored; exit to a runtime lookup.
	REASON_UPDATE  = Reason(2) // CPU state the block depends on changed; PC is stored.
	REASON_TB_JUMP = Reason(3) // The block exit is already emitted.
)

var _reason_names = [...]string{"next", "jump", "update", "tb_jump"}

func (r Reason) String() string {
	if r >= 0 && int(r) < len(_reason_names) {
		return _reason_names[r]
	}
	return "unknown"
}

// Context is the state of one block translation. It is never shared.
type Context struct {
	Features cpu.Features
	User     bool   // Code runs in user mode.
	FPCR     uint32 // FPCR the block is translated for.
	MACSR    uint32 // MACSR the block is translated for.

	Reason Reason // Set by the instruction just translated.

	b  *ir.Builder
	cc *cc.Engine
	r  *decode.Reader

	tbPC       uint32
	insnPC     uint32
	pageMask   uint32
	singleStep bool
	memAccess  bool // The instruction touched data memory.

	wb     [8]ir.Temp // Deferred address register values.
	wbMask uint8
}

func newContext(b *ir.Builder, r *decode.Reader, features cpu.Features) (ctx *Context) {
	ctx = &Context{
		Features: features,
		b:        b,
		cc:       cc.NewEngine(b, ccGlobals, helper.FlushFlags),
		r:        r,
		tbPC:     r.PC,
		pageMask: ^uint32(DEFAULT_PAGE_SIZE - 1),
	}
	return
}

// pc is the address of the next unread instruction word.
func (ctx *Context) pc() uint32 {
	return ctx.r.PC
}

func (ctx *Context) fetch16() decode.Word {
	return decode.Word(ctx.r.Fetch16())
}

func (ctx *Context) fetch32() uint32 {
	return ctx.r.Fetch32()
}

// memIndex is the MMU index of data accesses.
func (ctx *Context) memIndex() int {
	if ctx.User {
		return 1
	}
	return 0
}

func (ctx *Context) dreg(n int) ir.Temp {
	return QREG_D0 + ir.Temp(n&7)
}

// areg returns An as seen by the instruction being translated, including
// its own deferred updates.
func (ctx *Context) areg(n int) ir.Temp {
	n &= 7
	if ctx.wbMask&(1<<n) != 0 {
		return ctx.wb[n]
	}
	return QREG_A0 + ir.Temp(n)
}

// setAreg defers a write of An to the end of the instruction.
func (ctx *Context) setAreg(n int, val ir.Temp) {
	n &= 7
	t := ctx.b.NewTemp()
	ctx.b.Mov(t, val)
	ctx.wb[n] = t
	ctx.wbMask |= 1 << n
}

// reg returns An when addr is set, otherwise Dn.
func (ctx *Context) reg(addr bool, n int) ir.Temp {
	if addr {
		return ctx.areg(n)
	}
	return ctx.dreg(n)
}

// setReg writes An (deferred) or Dn.
func (ctx *Context) setReg(addr bool, n int, val ir.Temp) {
	if addr {
		ctx.setAreg(n, val)
		return
	}
	ctx.b.Mov(ctx.dreg(n), val)
}

// emitWritebacks stores the deferred address registers. The deferred
// values stay visible until clearWritebacks.
func (ctx *Context) emitWritebacks() {
	for n := range 8 {
		if ctx.wbMask&(1<<n) != 0 {
			ctx.b.Mov(QREG_A0+ir.Temp(n), ctx.wb[n])
		}
	}
}

func (ctx *Context) clearWritebacks() {
	ctx.wbMask = 0
}

// flushWritebacks stores the deferred registers before code that reads
// the CPU state directly.
func (ctx *Context) flushWritebacks() {
	ctx.emitWritebacks()
	ctx.clearWritebacks()
}

// flushFlags materializes the condition codes. It is used before the
// first access that can fault, so the instruction's search point is
// updated to match.
func (ctx *Context) flushFlags() {
	ctx.cc.Materialize()
	ctx.cc.Sync()
	ctx.b.SetInsnAux(cc.CC_OP_FLAGS)
}

// exception stores where in PC and raises vector.
func (ctx *Context) exception(where uint32, vector int) {
	ctx.cc.Sync()
	ctx.b.Movi(QREG_PC, where)
	ctx.b.Call(helper.RaiseException, ir.Invalid, ctx.b.Const(uint32(vector)))
	ctx.Reason = REASON_JUMP
}

// privileged raises a privilege violation in user mode.
func (ctx *Context) privileged() (denied bool) {
	if ctx.User {
		ctx.exception(ctx.insnPC, cpu.EXCP_PRIVILEGE)
		denied = true
	}
	return
}

func (ctx *Context) addrFault() {
	ctx.exception(ctx.insnPC, cpu.EXCP_ADDRESS)
}

// jmp ends the block with a computed PC.
func (ctx *Context) jmp(dest ir.Temp) {
	ctx.cc.Sync()
	ctx.b.Mov(QREG_PC, dest)
	ctx.Reason = REASON_JUMP
}

// lookupTB ends the block after CPU state the translation depends on
// changed.
func (ctx *Context) lookupTB() {
	ctx.cc.Sync()
	ctx.b.Movi(QREG_PC, ctx.pc())
	ctx.Reason = REASON_UPDATE
}

// useGotoTB returns true if dest may be chained directly.
func (ctx *Context) useGotoTB(dest uint32) bool {
	page := dest & ctx.pageMask
	return page == ctx.tbPC&ctx.pageMask || page == ctx.insnPC&ctx.pageMask
}

// jmpTB ends one path of the block at a constant PC. It may be used on
// several paths, so the deferred registers are stored on each.
func (ctx *Context) jmpTB(n int, dest uint32) {
	b := ctx.b

	ctx.emitWritebacks()
	ctx.cc.Sync()
	b.Movi(QREG_PC, dest)

	switch {
	case ctx.singleStep:
		b.Call(helper.RaiseException, ir.Invalid, b.Const(cpu.EXCP_DEBUG))
	case ctx.useGotoTB(dest):
		b.GotoTB(n)
	default:
		b.ExitTB(0)
	}

	ctx.Reason = REASON_TB_JUMP
}
