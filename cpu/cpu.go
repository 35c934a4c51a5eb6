// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"iter"
	"maps"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/cf68k/cc"
	"github.com/ezrec/cf68k/mmu"
)

// Status register bits above the CCR.
const (
	SR_T       = uint32(0x8000) // Trace.
	SR_S       = uint32(0x2000) // Supervisor.
	SR_M       = uint32(0x1000) // Master stack.
	SR_I       = uint32(0x0700) // Interrupt level.
	SR_I_SHIFT = 8
	SR_SYSTEM  = uint32(0xffe0) // Bits held in Cpu.SR; the CCR lives in the CC registers.
)

// Stack pointer banks.
const (
	SP_SUPER = 0
	SP_USER  = 1
)

// MAC status register bits.
const (
	MACSR_PAV0 = uint32(0x100) // Accumulator 0 overflow; PAV1..3 follow.
	MACSR_OMC  = uint32(0x080) // Overflow mode: saturate.
	MACSR_SU   = uint32(0x040) // Signed operands.
	MACSR_FI   = uint32(0x020) // Fractional operands.
	MACSR_RT   = uint32(0x010) // Round fractional results.
	MACSR_N    = uint32(0x008)
	MACSR_Z    = uint32(0x004)
	MACSR_V    = uint32(0x002)
	MACSR_EV   = uint32(0x001)
)

// FPCR_PREC selects single precision rounding.
const FPCR_PREC = uint32(1 << 6)

var _cpu_defines = map[string]string{
	"SR_T":           fmt.Sprintf("0x%x", SR_T),
	"SR_S":           fmt.Sprintf("0x%x", SR_S),
	"SR_M":           fmt.Sprintf("0x%x", SR_M),
	"SR_I":           fmt.Sprintf("0x%x", SR_I),
	"MACSR_OMC":      fmt.Sprintf("0x%x", MACSR_OMC),
	"MACSR_SU":       fmt.Sprintf("0x%x", MACSR_SU),
	"MACSR_FI":       fmt.Sprintf("0x%x", MACSR_FI),
	"MACSR_RT":       fmt.Sprintf("0x%x", MACSR_RT),
	"FPCR_PREC":      fmt.Sprintf("0x%x", FPCR_PREC),
	"EXCP_ACCESS":    fmt.Sprintf("%d", EXCP_ACCESS),
	"EXCP_ADDRESS":   fmt.Sprintf("%d", EXCP_ADDRESS),
	"EXCP_ILLEGAL":   fmt.Sprintf("%d", EXCP_ILLEGAL),
	"EXCP_DIV0":      fmt.Sprintf("%d", EXCP_DIV0),
	"EXCP_PRIVILEGE": fmt.Sprintf("%d", EXCP_PRIVILEGE),
	"EXCP_TRAP0":     fmt.Sprintf("%d", EXCP_TRAP0),
}

// Memory is the kernel view of guest memory used for exception frames
// and reset vectors.
type Memory interface {
	Read32(addr uint32) (value uint32, err error)
	Write32(addr uint32, value uint32) (err error)
}

// Flusher invalidates cached address translations.
type Flusher interface {
	Flush()
}

// Cpu is the architectural state of an m68k family core.
type Cpu struct {
	Verbose  bool     // Set to enable verbose logging.
	Features Features // Capabilities of the core.

	D  [8]uint32 // Data registers.
	A  [8]uint32 // Address registers; A7 is the active stack pointer.
	PC uint32
	SR uint32 // System byte of the status register.

	SP        [2]uint32 // Banked stack pointers, indexed by SP_SUPER or SP_USER.
	CurrentSP int       // Bank A7 currently stands for.

	CCOp uint32  // Run-time condition code tag.
	CC   cc.Regs // Lazy condition code storage.

	Div1, Div2 uint32 // Divide operands and results.

	MACSR   uint32
	MACMask uint32
	Acc     [4]uint64 // 48-bit accumulators.

	F        [8]uint64 // Floating point registers, float64 bits.
	FPResult uint64    // Last floating point result, float64 bits.
	FPCR     uint32

	VBR    uint32
	CACR   uint32
	MBAR   uint32
	RAMBAR [2]uint32
	ACR    [4]uint32
	MMU    mmu.Registers

	Halted         uint32
	ExceptionIndex uint32

	TLB Flusher // Invalidated on MMU register writes; may be nil.
}

// NewCpu creates a core with the given features.
func NewCpu(features Features) (cpu *Cpu) {
	cpu = &Cpu{
		Features: features,
	}

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset puts the core in its power-on state and fetches the initial stack
// pointer and program counter from the vector table.
func (cpu *Cpu) Reset(mem Memory) (err error) {
	if cpu.Verbose {
		logrus.WithField("vbr", fmt.Sprintf("%08x", cpu.VBR)).Debug("cpu: reset")
	}

	clear(cpu.D[:])
	clear(cpu.A[:])
	clear(cpu.SP[:])
	clear(cpu.Acc[:])
	clear(cpu.F[:])
	cpu.FPResult = 0
	cpu.FPCR = 0
	cpu.MACSR = 0
	cpu.MACMask = 0xffffffff
	cpu.Div1, cpu.Div2 = 0, 0
	cpu.CACR = 0
	cpu.Halted = 0
	cpu.ExceptionIndex = 0
	cpu.MMU = mmu.Registers{}
	if cpu.TLB != nil {
		cpu.TLB.Flush()
	}

	cpu.SR = 0x2700
	cpu.CurrentSP = SP_SUPER
	cpu.SetCCR(0)

	sp, err := mem.Read32(cpu.VBR)
	if err != nil {
		return
	}
	pc, err := mem.Read32(cpu.VBR + 4)
	if err != nil {
		return
	}

	cpu.A[7] = sp
	cpu.PC = pc

	return
}

// IsUser returns true when the core runs in user mode.
func (cpu *Cpu) IsUser() bool {
	return cpu.SR&SR_S == 0
}

// FlushFlags materializes the condition codes described by a run-time
// tag into the CC registers.
func (cpu *Cpu) FlushFlags(op uint32) (err error) {
	tag, err := cc.Decode(op)
	if err != nil {
		return
	}
	if _, ok := tag.(cc.Dynamic); !ok {
		cpu.CC = cpu.CC.Flush(tag)
	}
	cpu.CCOp = cc.CC_OP_FLAGS
	return
}

// GetCCR returns the condition code register without changing the lazy
// state.
func (cpu *Cpu) GetCCR() uint8 {
	tag, err := cc.Decode(cpu.CCOp)
	if err != nil {
		panic(err)
	}
	if _, ok := tag.(cc.Dynamic); ok {
		tag = cc.Flags{}
	}
	return cpu.CC.Flush(tag).CCR()
}

// SetCCR replaces the condition code register.
func (cpu *Cpu) SetCCR(ccr uint8) {
	cpu.CC = cc.FromCCR(ccr)
	cpu.CCOp = cc.CC_OP_FLAGS
}

// GetSR returns the full status register.
func (cpu *Cpu) GetSR() uint16 {
	return uint16((cpu.SR & SR_SYSTEM) | uint32(cpu.GetCCR()))
}

// SetSR replaces the full status register and selects the stack pointer
// for the new mode.
func (cpu *Cpu) SetSR(sr uint32) {
	cpu.SetCCR(uint8(sr) & cc.CCR_MASK)
	cpu.SR = sr & SR_SYSTEM
	cpu.SwitchSP()
}

// SwitchSP banks A7 according to the supervisor bit.
func (cpu *Cpu) SwitchSP() {
	cpu.SP[cpu.CurrentSP] = cpu.A[7]

	next := SP_USER
	if cpu.SR&SR_S != 0 {
		next = SP_SUPER
	}

	cpu.A[7] = cpu.SP[next]
	cpu.CurrentSP = next
}

// USP returns the user stack pointer from either bank.
func (cpu *Cpu) USP() uint32 {
	if cpu.CurrentSP == SP_USER {
		return cpu.A[7]
	}
	return cpu.SP[SP_USER]
}

// SetUSP replaces the user stack pointer.
func (cpu *Cpu) SetUSP(value uint32) {
	if cpu.CurrentSP == SP_USER {
		cpu.A[7] = value
		return
	}
	cpu.SP[SP_USER] = value
}

// SetControl writes a MOVEC control register. Register numbers follow the
// 68040 map on MMU cores and the ColdFire map otherwise.
func (cpu *Cpu) SetControl(reg uint32, value uint32) (err error) {
	if cpu.Verbose {
		logrus.WithFields(logrus.Fields{
			"reg":   fmt.Sprintf("%03x", reg),
			"value": fmt.Sprintf("%08x", value),
		}).Debug("cpu: movec")
	}

	mmuChanged := false

	switch {
	case reg == 0x002:
		cpu.CACR = value
		cpu.SwitchSP()
	case reg == 0x801:
		cpu.VBR = value
	case reg == 0x800 && cpu.Features.Has(FEATURE_USP):
		cpu.SetUSP(value)
	case reg == 0xc04 || reg == 0xc05:
		cpu.RAMBAR[reg-0xc04] = value
	case reg == 0xc0f:
		cpu.MBAR = value
	case cpu.Features.Has(FEATURE_MMU):
		mmuChanged = true
		switch reg {
		case 0x003:
			cpu.MMU.TC = value
		case 0x004, 0x005:
			cpu.MMU.ITT[reg-0x004] = value
		case 0x006, 0x007:
			cpu.MMU.DTT[reg-0x006] = value
		case 0x805:
			cpu.MMU.MMUSR = value
		case 0x806:
			cpu.MMU.URP = value
		case 0x807:
			cpu.MMU.SRP = value
		default:
			err = ErrControlRegister(reg)
			return
		}
	case reg >= 0x004 && reg <= 0x007:
		cpu.ACR[reg-0x004] = value
	default:
		err = ErrControlRegister(reg)
		return
	}

	if mmuChanged && cpu.TLB != nil {
		cpu.TLB.Flush()
	}

	return
}

// String returns the register dump of the core.
func (cpu *Cpu) String() (text string) {
	var sb strings.Builder

	for n := range 8 {
		fbits := cpu.F[n]
		fmt.Fprintf(&sb, "D%d = %08x   A%d = %08x   F%d = %08x%08x (%12g)\n",
			n, cpu.D[n], n, cpu.A[n], n,
			uint32(fbits>>32), uint32(fbits), math.Float64frombits(fbits))
	}

	sr := cpu.GetSR()
	flag := func(bit uint8, c byte) byte {
		if uint8(sr)&bit != 0 {
			return c
		}
		return '-'
	}
	fmt.Fprintf(&sb, "PC = %08x   SR = %04x %c%c%c%c%c FPRESULT = %12g\n",
		cpu.PC, sr,
		flag(cc.CCR_X, 'X'), flag(cc.CCR_N, 'N'), flag(cc.CCR_Z, 'Z'),
		flag(cc.CCR_V, 'V'), flag(cc.CCR_C, 'C'),
		math.Float64frombits(cpu.FPResult))

	fmt.Fprintf(&sb, "MACSR = %08x   MASK = %08x\n", cpu.MACSR, cpu.MACMask)
	for n, acc := range cpu.Acc {
		fmt.Fprintf(&sb, "ACC%d = %012x\n", n, acc&0xffffffffffff)
	}

	return sb.String()
}
