// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package m68k

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/cf68k/cc"
	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/decode"
	"github.com/ezrec/cf68k/helper"
	"github.com/ezrec/cf68k/ir"
)

const (
	DEFAULT_PAGE_SIZE   = 4096 // Guest page size for direct chaining.
	DEFAULT_PAGE_MARGIN = 32   // Stop this close to the end of a page.
	MAX_INSNS           = 512  // Upper bound of instructions per block.
)

// Options tune block formation.
type Options struct {
	PageSize    uint32   // Zero for DEFAULT_PAGE_SIZE; a power of two.
	PageMargin  uint32   // Zero for DEFAULT_PAGE_MARGIN.
	MaxInsns    int      // Zero for MAX_INSNS.
	Breakpoints []uint32 // Instruction addresses that raise EXCP_DEBUG.
	Watchpoints bool     // End blocks after every memory access.
	SingleStep  bool     // One instruction per block, then EXCP_DEBUG.
	Verbose     bool     // Log every translated block.
}

// TB describes the block to translate and the CPU state it is
// specialized for.
type TB struct {
	PC       uint32
	User     bool   // Translated for user mode.
	FPCR     uint32 // FPCR snapshot.
	MACSR    uint32 // MACSR snapshot.
	MaxInsns int    // Zero for the translator default.
	LastIO   bool   // Bracket the last instruction with io_start/io_end.
}

// NewTB returns the TB for the current state of c.
func NewTB(c *cpu.Cpu) *TB {
	return &TB{
		PC:    c.PC,
		User:  c.IsUser(),
		FPCR:  c.FPCR,
		MACSR: c.MACSR,
	}
}

// Translator turns guest code into blocks. It keeps no per-block state,
// so one Translator may be used from several goroutines.
type Translator struct {
	Options
	Features cpu.Features
	Mem      decode.CodeMemory

	table *decode.Table[handler]
}

// NewTranslator creates a translator reading code from mem.
func NewTranslator(features cpu.Features, mem decode.CodeMemory, opts Options) (t *Translator) {
	t = &Translator{
		Options:  opts,
		Features: features,
		Mem:      mem,
		table:    Init(features),
	}

	if t.PageSize == 0 {
		t.PageSize = DEFAULT_PAGE_SIZE
	}
	if t.PageMargin == 0 {
		t.PageMargin = DEFAULT_PAGE_MARGIN
	}
	if t.MaxInsns <= 0 || t.MaxInsns > MAX_INSNS {
		t.MaxInsns = MAX_INSNS
	}

	return
}

// Generate translates the block described by tb. A nil tb translates
// from the current state of c.
func (t *Translator) Generate(c *cpu.Cpu, tb *TB) (block *ir.Block, err error) {
	if tb == nil {
		tb = NewTB(c)
	}

	block, err = t.generate(tb)
	if err != nil {
		return
	}

	if t.Verbose {
		logrus.WithFields(logrus.Fields{
			"pc":    fmt.Sprintf("%08x", block.PC),
			"size":  block.Size,
			"insns": block.ICount,
			"ops":   len(block.Code),
		}).Debug("m68k: block")
	}

	return
}

// GenerateWithSearchPoints translates a block and also returns its
// search points.
func (t *Translator) GenerateWithSearchPoints(c *cpu.Cpu, tb *TB) (block *ir.Block, points []ir.SearchPoint, err error) {
	block, err = t.Generate(c, tb)
	if err != nil {
		return
	}
	points = block.SearchPoints()
	return
}

// RestoreState recovers PC and CC_OP for the instruction that was
// executing at a code offset of block.
func RestoreState(c *cpu.Cpu, block *ir.Block, offset int) (ok bool) {
	sp, ok := block.Restore(offset)
	if !ok {
		return
	}

	c.PC = sp.PC
	if sp.Aux != cc.CC_OP_DYNAMIC {
		c.CCOp = sp.Aux
	}
	return
}

func (t *Translator) maxInsns(tb *TB) int {
	if tb.MaxInsns > 0 && tb.MaxInsns < t.MaxInsns {
		return tb.MaxInsns
	}
	return t.MaxInsns
}

func (t *Translator) generate(tb *TB) (block *ir.Block, err error) {
	b := ir.NewBuilder(globals)
	r := decode.NewReader(t.Mem, tb.PC)

	ctx := newContext(b, r, t.Features)
	ctx.User = tb.User
	ctx.FPCR = tb.FPCR
	ctx.MACSR = tb.MACSR
	ctx.pageMask = ^(t.PageSize - 1)
	ctx.singleStep = t.SingleStep

	limit := t.maxInsns(tb)
	icount := 0
	ioStarted := false

	// Only the first instruction may run past the end of the start page.
	pageEnd := uint64(tb.PC&^(t.PageSize-1)) + uint64(t.PageSize)

	var bmark ir.Mark
	var cmark cc.Mark
	drop := func() {
		b.Rewind(bmark)
		ctx.cc.Reset(cmark)
		ctx.clearWritebacks()
		r.PC = ctx.insnPC
		if icount+1 == limit && tb.LastIO {
			ioStarted = false
		}
	}

	for {
		ctx.insnPC = r.PC
		ctx.Reason = REASON_NEXT
		ctx.memAccess = false

		bmark, cmark = b.Mark(), ctx.cc.Mark()
		b.InsnStart(ctx.insnPC, cc.Encode(ctx.cc.Tag()))

		if slices.Contains(t.Breakpoints, ctx.insnPC) {
			ctx.exception(ctx.insnPC, cpu.EXCP_DEBUG)
			// The block covers the instruction at the breakpoint.
			r.PC += 2
			icount++
			break
		}

		if icount+1 == limit && tb.LastIO {
			b.IOStart()
			ioStarted = true
		}

		t.translateInsn(ctx)

		if r.Err != nil {
			// The instruction ran off mapped code; drop it.
			drop()

			if icount == 0 {
				b.InsnStart(ctx.insnPC, cc.Encode(ctx.cc.Tag()))
				ctx.exception(ctx.insnPC, cpu.EXCP_ACCESS)
				icount++
			} else {
				ctx.Reason = REASON_NEXT
			}
			r.Err = nil
			break
		}

		if icount > 0 && uint64(r.PC) > pageEnd {
			// It continues on the next page; leave it to the next block.
			drop()
			ctx.Reason = REASON_NEXT
			break
		}

		if ctx.Reason != REASON_TB_JUMP {
			ctx.emitWritebacks()
		}
		ctx.clearWritebacks()
		icount++

		if ctx.Reason != REASON_NEXT ||
			b.Full() ||
			ctx.singleStep ||
			uint64(r.PC)+uint64(t.PageMargin) >= pageEnd ||
			icount >= limit ||
			(t.Watchpoints && ctx.memAccess) {
			break
		}
	}

	t.finish(ctx)
	if ioStarted {
		b.IOEnd()
	}

	block, err = b.Finish(tb.PC, r.PC-tb.PC, icount)
	if err != nil {
		err = &ErrTranslate{PC: tb.PC, Err: err}
		block = nil
	}
	return
}

// translateInsn dispatches one instruction. Handler panics are reported
// with the instruction that caused them.
func (t *Translator) translateInsn(ctx *Context) {
	var insn decode.Word

	defer func() {
		if r := recover(); r != nil {
			panic(&ErrInternal{PC: ctx.insnPC, Insn: uint16(insn), Msg: fmt.Sprint(r)})
		}
	}()

	insn = ctx.fetch16()
	t.table.Lookup(insn)(ctx, insn)
}

// finish emits the exit of the block.
func (t *Translator) finish(ctx *Context) {
	b := ctx.b

	if ctx.singleStep && ctx.Reason != REASON_TB_JUMP {
		if ctx.Reason == REASON_NEXT {
			ctx.cc.Sync()
			b.Movi(QREG_PC, ctx.pc())
		}
		b.Call(helper.RaiseException, ir.Invalid, b.Const(cpu.EXCP_DEBUG))
		return
	}

	switch ctx.Reason {
	case REASON_NEXT:
		ctx.jmpTB(0, ctx.pc())
	case REASON_JUMP, REASON_UPDATE:
		ctx.cc.Sync()
		b.ExitTB(0)
	case REASON_TB_JUMP:
	}
}
