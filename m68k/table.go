package m68k

import (
	"sync"

	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/decode"
)

// handler translates one instruction whose first word is insn.
type handler func(ctx *Context, insn decode.Word)

var (
	tablesLock sync.Mutex
	tables     = map[cpu.Features]*decode.Table[handler]{}
)

// Init returns the dispatch table of a feature set, building it on first
// use. Tables are never modified once returned.
func Init(features cpu.Features) (table *decode.Table[handler]) {
	tablesLock.Lock()
	defer tablesLock.Unlock()

	table, ok := tables[features]
	if !ok {
		table = buildTable(features)
		tables[features] = table
	}
	return
}

const (
	BASE          = cpu.FEATURE_BASE
	M68000        = cpu.FEATURE_M68000
	CF_ISA_A      = cpu.FEATURE_CF_ISA_A
	CF_ISA_B      = cpu.FEATURE_CF_ISA_B
	CF_ISA_APLUSC = cpu.FEATURE_CF_ISA_APLUSC
	BRAL          = cpu.FEATURE_BRAL
	BCCL          = cpu.FEATURE_BCCL
	CF_FPU        = cpu.FEATURE_CF_FPU
	CF_EMAC       = cpu.FEATURE_CF_EMAC
	USP           = cpu.FEATURE_USP
	LONG_MULDIV   = cpu.FEATURE_LONG_MULDIV
	BKPT          = cpu.FEATURE_BKPT
)

// opcode is one registration. Later entries override earlier ones.
type opcode struct {
	h       handler
	pattern uint16
	mask    uint16
	feature cpu.Feature
}

var opcodes = []opcode{
	{insnUndef, 0x0000, 0x0000, BASE},
	{insnArithIm, 0x0080, 0xfff8, CF_ISA_A},
	{insnArithIm, 0x0000, 0xff00, M68000},
	{insnUndef, 0x00c0, 0xffc0, M68000},
	{insnBitrev, 0x00c0, 0xfff8, CF_ISA_APLUSC},
	{insnBitopReg, 0x0100, 0xf1c0, BASE},
	{insnBitopReg, 0x0140, 0xf1c0, BASE},
	{insnBitopReg, 0x0180, 0xf1c0, BASE},
	{insnBitopReg, 0x01c0, 0xf1c0, BASE},
	{insnArithIm, 0x0280, 0xfff8, CF_ISA_A},
	{insnArithIm, 0x0200, 0xff00, M68000},
	{insnUndef, 0x02c0, 0xffc0, M68000},
	{insnByterev, 0x02c0, 0xfff8, CF_ISA_APLUSC},
	{insnArithIm, 0x0480, 0xfff8, CF_ISA_A},
	{insnArithIm, 0x0400, 0xff00, M68000},
	{insnUndef, 0x04c0, 0xffc0, M68000},
	{insnArithIm, 0x0600, 0xff00, M68000},
	{insnUndef, 0x06c0, 0xffc0, M68000},
	{insnFF1, 0x04c0, 0xfff8, CF_ISA_APLUSC},
	{insnArithIm, 0x0680, 0xfff8, CF_ISA_A},
	{insnArithIm, 0x0c00, 0xff38, CF_ISA_A},
	{insnArithIm, 0x0c00, 0xff00, M68000},
	{insnBitopIm, 0x0800, 0xffc0, BASE},
	{insnBitopIm, 0x0840, 0xffc0, BASE},
	{insnBitopIm, 0x0880, 0xffc0, BASE},
	{insnBitopIm, 0x08c0, 0xffc0, BASE},
	{insnArithIm, 0x0a80, 0xfff8, CF_ISA_A},
	{insnArithIm, 0x0a00, 0xff00, M68000},
	{insnMove, 0x1000, 0xf000, BASE},
	{insnMove, 0x2000, 0xf000, BASE},
	{insnMove, 0x3000, 0xf000, BASE},
	{insnStrldsr, 0x40e7, 0xffff, CF_ISA_APLUSC},
	{insnNegx, 0x4080, 0xfff8, CF_ISA_A},
	{insnNegx, 0x4000, 0xff00, M68000},
	{insnUndef, 0x40c0, 0xffc0, M68000},
	{insnMoveFromSR, 0x40c0, 0xfff8, CF_ISA_A},
	{insnMoveFromSR, 0x40c0, 0xffc0, M68000},
	{insnLea, 0x41c0, 0xf1c0, BASE},
	{insnClr, 0x4200, 0xff00, BASE},
	{insnUndef, 0x42c0, 0xffc0, BASE},
	{insnMoveFromCCR, 0x42c0, 0xfff8, CF_ISA_A},
	{insnMoveFromCCR, 0x42c0, 0xffc0, M68000},
	{insnNeg, 0x4480, 0xfff8, CF_ISA_A},
	{insnNeg, 0x4400, 0xff00, M68000},
	{insnUndef, 0x44c0, 0xffc0, M68000},
	{insnMoveToCCR, 0x44c0, 0xffc0, BASE},
	{insnNot, 0x4680, 0xfff8, CF_ISA_A},
	{insnNot, 0x4600, 0xff00, M68000},
	{insnUndef, 0x46c0, 0xffc0, M68000},
	{insnMoveToSR, 0x46c0, 0xffc0, CF_ISA_A},
	{insnNbcd, 0x4800, 0xffc0, M68000},
	{insnLinkl, 0x4808, 0xfff8, M68000},
	{insnPea, 0x4840, 0xffc0, BASE},
	{insnSwap, 0x4840, 0xfff8, BASE},
	{insnBkpt, 0x4848, 0xfff8, BKPT},
	{insnMovem, 0x48d0, 0xfbf8, CF_ISA_A},
	{insnMovem, 0x48e8, 0xfbf8, CF_ISA_A},
	{insnMovem, 0x4880, 0xfb80, M68000},
	{insnExt, 0x4880, 0xfff8, BASE},
	{insnExt, 0x48c0, 0xfff8, BASE},
	{insnExt, 0x49c0, 0xfff8, BASE},
	{insnTst, 0x4a00, 0xff00, BASE},
	{insnTas, 0x4ac0, 0xffc0, CF_ISA_B},
	{insnTas, 0x4ac0, 0xffc0, M68000},
	{insnHalt, 0x4ac8, 0xffff, CF_ISA_A},
	{insnPulse, 0x4acc, 0xffff, CF_ISA_A},
	{insnIllegal, 0x4afc, 0xffff, BASE},
	{insnMull, 0x4c00, 0xffc0, CF_ISA_A},
	{insnMull, 0x4c00, 0xffc0, LONG_MULDIV},
	{insnDivl, 0x4c40, 0xffc0, CF_ISA_A},
	{insnDivl, 0x4c40, 0xffc0, LONG_MULDIV},
	{insnSats, 0x4c80, 0xfff8, CF_ISA_B},
	{insnTrap, 0x4e40, 0xfff0, BASE},
	{insnLink, 0x4e50, 0xfff8, BASE},
	{insnUnlk, 0x4e58, 0xfff8, BASE},
	{insnMoveToUSP, 0x4e60, 0xfff8, USP},
	{insnMoveFromUSP, 0x4e68, 0xfff8, USP},
	{insnNop, 0x4e71, 0xffff, BASE},
	{insnStop, 0x4e72, 0xffff, BASE},
	{insnRte, 0x4e73, 0xffff, BASE},
	{insnRts, 0x4e75, 0xffff, BASE},
	{insnMovec, 0x4e7b, 0xffff, CF_ISA_A},
	{insnJump, 0x4e80, 0xffc0, BASE},
	{insnJump, 0x4ec0, 0xffc0, BASE},
	{insnAddsubq, 0x5000, 0xf080, M68000},
	{insnAddsubq, 0x5080, 0xf0c0, BASE},
	{insnScc, 0x50c0, 0xf0f8, CF_ISA_A},
	{insnScc, 0x50c0, 0xf0c0, M68000},
	{insnDbcc, 0x50c8, 0xf0f8, M68000},
	{insnTpf, 0x51f8, 0xfff8, CF_ISA_A},

	// Long branches are disabled, then the supported forms added back.
	{insnBranch, 0x6000, 0xf000, BASE},
	{insnUndef, 0x60ff, 0xf0ff, BASE},
	{insnBranch, 0x60ff, 0xf0ff, CF_ISA_B},
	{insnUndef, 0x60ff, 0xffff, CF_ISA_B},
	{insnBranch, 0x60ff, 0xffff, BRAL},
	{insnBranch, 0x60ff, 0xf0ff, BCCL},

	{insnMoveq, 0x7000, 0xf100, BASE},
	{insnMvzs, 0x7100, 0xf100, CF_ISA_B},
	{insnOr, 0x8000, 0xf000, BASE},
	{insnDivw, 0x80c0, 0xf0c0, BASE},
	{insnSbcdReg, 0x8100, 0xf1f8, M68000},
	{insnSbcdMem, 0x8108, 0xf1f8, M68000},
	{insnAddsub, 0x9000, 0xf000, BASE},
	{insnUndef, 0x90c0, 0xf0c0, CF_ISA_A},
	{insnSubxReg, 0x9180, 0xf1f8, CF_ISA_A},
	{insnSubxReg, 0x9100, 0xf138, M68000},
	{insnSubxMem, 0x9108, 0xf138, M68000},
	{insnAdda, 0x91c0, 0xf1c0, CF_ISA_A},
	{insnAdda, 0x90c0, 0xf0c0, M68000},

	{insnUndefMac, 0xa000, 0xf000, BASE},
	{insnMac, 0xa000, 0xf100, CF_EMAC},
	{insnFromMac, 0xa180, 0xf9b0, CF_EMAC},
	{insnMoveMac, 0xa110, 0xf9fc, CF_EMAC},
	{insnFromMACSR, 0xa980, 0xf9f0, CF_EMAC},
	{insnFromMask, 0xad80, 0xfff0, CF_EMAC},
	{insnFromMext, 0xab80, 0xfbf0, CF_EMAC},
	{insnMACSRToCCR, 0xa9c0, 0xffff, CF_EMAC},
	{insnToMac, 0xa100, 0xf9c0, CF_EMAC},
	{insnToMACSR, 0xa900, 0xffc0, CF_EMAC},
	{insnToMext, 0xab00, 0xfbc0, CF_EMAC},
	{insnToMask, 0xad00, 0xffc0, CF_EMAC},

	{insnMov3q, 0xa140, 0xf1c0, CF_ISA_B},
	{insnCmp, 0xb000, 0xf1c0, CF_ISA_B},
	{insnCmp, 0xb040, 0xf1c0, CF_ISA_B},
	{insnCmpa, 0xb0c0, 0xf1c0, CF_ISA_B},
	{insnCmp, 0xb080, 0xf1c0, CF_ISA_A},
	{insnCmpa, 0xb1c0, 0xf1c0, CF_ISA_A},
	{insnCmp, 0xb000, 0xf100, M68000},
	{insnEor, 0xb100, 0xf100, M68000},
	{insnCmpm, 0xb108, 0xf138, M68000},
	{insnCmpa, 0xb0c0, 0xf0c0, M68000},
	{insnEor, 0xb180, 0xf1c0, CF_ISA_A},
	{insnAnd, 0xc000, 0xf000, BASE},
	{insnExg, 0xc140, 0xf1f8, M68000},
	{insnExg, 0xc148, 0xf1f8, M68000},
	{insnExg, 0xc188, 0xf1f8, M68000},
	{insnMulw, 0xc0c0, 0xf0c0, BASE},
	{insnAbcdReg, 0xc100, 0xf1f8, M68000},
	{insnAbcdMem, 0xc108, 0xf1f8, M68000},
	{insnAddsub, 0xd000, 0xf000, BASE},
	{insnUndef, 0xd0c0, 0xf0c0, CF_ISA_A},
	{insnAddxReg, 0xd180, 0xf1f8, CF_ISA_A},
	{insnAddxReg, 0xd100, 0xf138, M68000},
	{insnAddxMem, 0xd108, 0xf138, M68000},
	{insnAdda, 0xd1c0, 0xf1c0, CF_ISA_A},
	{insnAdda, 0xd0c0, 0xf0c0, M68000},

	{insnShiftIm, 0xe080, 0xf0f0, CF_ISA_A},
	{insnShiftReg, 0xe0a0, 0xf0f0, CF_ISA_A},
	{insnShiftIm, 0xe000, 0xf0f0, M68000},
	{insnShiftIm, 0xe040, 0xf0f0, M68000},
	{insnShiftIm, 0xe080, 0xf0f0, M68000},
	{insnShiftReg, 0xe020, 0xf0f0, M68000},
	{insnShiftReg, 0xe060, 0xf0f0, M68000},
	{insnShiftReg, 0xe0a0, 0xf0f0, M68000},
	{insnShiftMem, 0xe0c0, 0xfcc0, M68000},
	{insnRotateIm, 0xe090, 0xf0f0, M68000},
	{insnRotateIm, 0xe010, 0xf0f0, M68000},
	{insnRotateIm, 0xe050, 0xf0f0, M68000},
	{insnRotateReg, 0xe0b0, 0xf0f0, M68000},
	{insnRotateReg, 0xe030, 0xf0f0, M68000},
	{insnRotateReg, 0xe070, 0xf0f0, M68000},
	{insnRotateMem, 0xe4c0, 0xfcc0, M68000},

	{insnUndefFPU, 0xf000, 0xf000, CF_ISA_A},
	{insnFPU, 0xf200, 0xffc0, CF_FPU},
	{insnFbcc, 0xf280, 0xff80, CF_FPU},
	{insnFsave, 0xf340, 0xffc0, CF_FPU},
	{insnIntouch, 0xf340, 0xffc0, CF_ISA_A},
	{insnCpushl, 0xf428, 0xff38, CF_ISA_A},
	{insnWddata, 0xfb00, 0xff00, CF_ISA_A},
	{insnWdebug, 0xfbc0, 0xffc0, CF_ISA_A},
}

func buildTable(features cpu.Features) (table *decode.Table[handler]) {
	table = decode.NewTable[handler](features, insnUndef)
	for _, op := range opcodes {
		table.Register(op.h, op.pattern, op.mask, op.feature)
	}
	return
}
