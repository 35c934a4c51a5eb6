package decode

import (
	"fmt"

	"github.com/ezrec/cf68k/cpu"
)

// Mode is the decoded shape of an effective address.
type Mode int

const (
	ModeInvalid   = Mode(0)  // invalid
	ModeDataReg   = Mode(1)  // Dn
	ModeAddrReg   = Mode(2)  // An
	ModeIndirect  = Mode(3)  // (An)
	ModePostInc   = Mode(4)  // (An)+
	ModePreDec    = Mode(5)  // -(An)
	ModeDisp      = Mode(6)  // (d16,An)
	ModeIndex     = Mode(7)  // (d8,An,Xn) or full format
	ModeAbsShort  = Mode(8)  // (xxx).w
	ModeAbsLong   = Mode(9)  // (xxx).l
	ModePCDisp    = Mode(10) // (d16,PC)
	ModePCIndex   = Mode(11) // (d8,PC,Xn) or full format
	ModeImmediate = Mode(12) // #imm
)

var _mode_names = [...]string{
	"invalid", "Dn", "An", "(An)", "(An)+", "-(An)", "(d16,An)",
	"(d8,An,Xn)", "(xxx).w", "(xxx).l", "(d16,PC)", "(d8,PC,Xn)", "#imm",
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(_mode_names) {
		return _mode_names[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Register returns true for the register direct modes.
func (m Mode) Register() bool {
	return m == ModeDataReg || m == ModeAddrReg
}

// Memory returns true for the modes that name a memory location.
func (m Mode) Memory() bool {
	return m >= ModeIndirect && m <= ModePCIndex
}

// Index is the index register of an indexed mode.
type Index struct {
	Addr  bool // Address register.
	Reg   int
	Long  bool // Use all 32 bits; otherwise the sign extended low word.
	Scale uint // Left shift.
}

// EA is a decoded effective address.
type EA struct {
	Mode Mode
	Reg  int  // Register of the register modes and An based modes.
	Size Size // Operand size.

	Step uint32 // Bytes (An)+ and -(An) move the register.

	Base      bool   // Base register (or PC) is added.
	Disp      uint32 // Displacement or base displacement, sign extended.
	Indexed   bool   // Index register is added.
	Index     Index  // Index register.
	Indirect  bool   // Memory indirect: the address is loaded.
	PostIndex bool   // Index is added after the indirect load.
	Outer     uint32 // Outer displacement, after the indirect load.

	Value uint32 // Absolute address, or PC of the extension word for PC-relative modes.
	Imm   uint64 // Immediate, raw as fetched.
}

// DecodeEA decodes the addressing mode and register fields, reading any
// extension words from r. Encodings the feature set does not support
// decode as ModeInvalid. The error is the Reader's fetch failure.
func DecodeEA(r *Reader, mode, reg int, size Size, feat cpu.Features) (ea EA, err error) {
	ea.Size = size
	ea.Reg = reg

	switch mode & 7 {
	case 0:
		ea.Mode = ModeDataReg
	case 1:
		ea.Mode = ModeAddrReg
	case 2:
		ea.Mode = ModeIndirect
	case 3:
		ea.Mode = ModePostInc
	case 4:
		ea.Mode = ModePreDec
	case 5:
		ea.Mode = ModeDisp
		ea.Base = true
		ea.Disp = uint32(int32(int16(r.Fetch16())))
	case 6:
		ea.Mode = ModeIndex
		decodeIndexed(r, &ea, feat)
	case 7:
		switch reg {
		case 0:
			ea.Mode = ModeAbsShort
			ea.Value = uint32(int32(int16(r.Fetch16())))
		case 1:
			ea.Mode = ModeAbsLong
			ea.Value = r.Fetch32()
		case 2:
			ea.Mode = ModePCDisp
			ea.Value = r.PC
			ea.Base = true
			ea.Disp = uint32(int32(int16(r.Fetch16())))
		case 3:
			ea.Mode = ModePCIndex
			decodeIndexed(r, &ea, feat)
		case 4:
			ea.Mode = ModeImmediate
			switch size {
			case OS_NONE:
				ea.Mode = ModeInvalid
			case OS_DOUBLE:
				ea.Imm = uint64(r.Fetch32()) << 32
				ea.Imm |= uint64(r.Fetch32())
			default:
				ea.Imm = uint64(r.FetchImm(size))
			}
		default:
			ea.Mode = ModeInvalid
		}
	}

	switch ea.Mode {
	case ModePostInc, ModePreDec:
		switch {
		case size == OS_NONE:
			ea.Mode = ModeInvalid
		case size == OS_BYTE && reg == 7 && feat.Has(cpu.FEATURE_M68000):
			// Keep the stack pointer word aligned.
			ea.Step = 2
		default:
			ea.Step = size.Bytes()
		}
	case ModeDataReg, ModeAddrReg:
		if size == OS_NONE {
			ea.Mode = ModeInvalid
		}
	}

	err = r.Err
	return
}

func decodeIndex(ext Word) (index Index) {
	index.Addr = ext.Bit(15)
	index.Reg = ext.Reg12()
	index.Long = ext.Bit(11)
	index.Scale = uint(ext.Field(9, 2))
	return
}

func decodeIndexed(r *Reader, ea *EA, feat cpu.Features) {
	if ea.Mode == ModePCIndex {
		ea.Value = r.PC
	}

	ext := Word(r.Fetch16())

	if !ext.Bit(11) && !feat.Has(cpu.FEATURE_WORD_INDEX) {
		ea.Mode = ModeInvalid
		return
	}

	if feat.Has(cpu.FEATURE_M68000) && !feat.Has(cpu.FEATURE_SCALED_INDEX) {
		ext &^= 3 << 9
	}

	if !ext.Bit(8) {
		// Brief extension word.
		ea.Base = true
		ea.Indexed = true
		ea.Index = decodeIndex(ext)
		ea.Disp = ext.Disp8()
		return
	}

	if !feat.Has(cpu.FEATURE_EXT_FULL) {
		ea.Mode = ModeInvalid
		return
	}

	ea.Base = !ext.Bit(7)
	suppress := ext.Bit(6)
	iis := ext.Field(0, 3)

	if iis == 4 || (suppress && iis > 4) {
		ea.Mode = ModeInvalid
		return
	}

	switch ext.Field(4, 2) {
	case 0:
		ea.Mode = ModeInvalid
		return
	case 2:
		ea.Disp = uint32(int32(int16(r.Fetch16())))
	case 3:
		ea.Disp = r.Fetch32()
	}

	if !suppress {
		ea.Indexed = true
		ea.Index = decodeIndex(ext)
	}

	if iis&3 != 0 {
		ea.Indirect = true
		ea.PostIndex = iis&4 != 0 && !suppress
		switch iis & 3 {
		case 2:
			ea.Outer = uint32(int32(int16(r.Fetch16())))
		case 3:
			ea.Outer = r.Fetch32()
		}
	}
}

// DataMemory is the memory the reference model reads indirect pointers
// from.
type DataMemory interface {
	Load32(addr uint32) (value uint32, err error)
}

// IndexValue returns the scaled index register value.
func (ea EA) IndexValue(c *cpu.Cpu) (value uint32) {
	if ea.Index.Addr {
		value = c.A[ea.Index.Reg]
	} else {
		value = c.D[ea.Index.Reg]
	}
	if !ea.Index.Long {
		value = uint32(int32(int16(value)))
	}
	value <<= ea.Index.Scale
	return
}

// Address computes the memory address an EA names. It is the reference
// the translator's generated code is checked against. For (An)+ it is An,
// and for -(An) it is An minus the step.
func (ea EA) Address(c *cpu.Cpu, mem DataMemory) (addr uint32, err error) {
	switch ea.Mode {
	case ModeIndirect, ModePostInc:
		addr = c.A[ea.Reg]
	case ModePreDec:
		addr = c.A[ea.Reg] - ea.Step
	case ModeDisp:
		addr = c.A[ea.Reg] + ea.Disp
	case ModeAbsShort, ModeAbsLong:
		addr = ea.Value
	case ModePCDisp:
		addr = ea.Value + ea.Disp
	case ModeIndex, ModePCIndex:
		var base uint32
		if ea.Base {
			if ea.Mode == ModeIndex {
				base = c.A[ea.Reg]
			} else {
				base = ea.Value
			}
		}
		addr = base + ea.Disp
		if ea.Indexed && !ea.PostIndex {
			addr += ea.IndexValue(c)
		}
		if ea.Indirect {
			addr, err = mem.Load32(addr)
			if err != nil {
				return
			}
			if ea.Indexed && ea.PostIndex {
				addr += ea.IndexValue(c)
			}
			addr += ea.Outer
		}
	default:
		err = ErrNoAddress
	}
	return
}
