package cpu

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Exception numbers. Values below 256 are vector numbers; the rest are
// requests to the execution loop.
const (
	EXCP_ACCESS        = 2  // Access error.
	EXCP_ADDRESS       = 3  // Address error.
	EXCP_ILLEGAL       = 4  // Illegal instruction.
	EXCP_DIV0          = 5  // Divide by zero.
	EXCP_PRIVILEGE     = 8  // Privilege violation.
	EXCP_TRACE         = 9  // Trace.
	EXCP_LINEA         = 10 // Unimplemented line-A (MAC) opcode.
	EXCP_LINEF         = 11 // Unimplemented line-F (FPU) opcode.
	EXCP_DEBUGNBP      = 12 // Non-breakpoint debug interrupt.
	EXCP_DEBEGBP       = 13 // Breakpoint debug interrupt.
	EXCP_FORMAT        = 14 // RTE format error.
	EXCP_UNINITIALIZED = 15 // Uninitialized interrupt.
	EXCP_TRAP0         = 32 // User trap #0.
	EXCP_TRAP15        = 47 // User trap #15.
	EXCP_UNSUPPORTED   = 61 // Unsupported instruction.

	EXCP_RTE       = 0x100   // Return from exception.
	EXCP_HALT_INSN = 0x101   // HALT instruction.
	EXCP_HLT       = 0x10001 // CPU halted.
	EXCP_DEBUG     = 0x10002 // Debugger stop.
)

var _exception_names = map[int]string{
	EXCP_ACCESS:        "access",
	EXCP_ADDRESS:       "address",
	EXCP_ILLEGAL:       "illegal",
	EXCP_DIV0:          "div0",
	EXCP_PRIVILEGE:     "privilege",
	EXCP_TRACE:         "trace",
	EXCP_LINEA:         "linea",
	EXCP_LINEF:         "linef",
	EXCP_DEBUGNBP:      "debugnbp",
	EXCP_DEBEGBP:       "debegbp",
	EXCP_FORMAT:        "format",
	EXCP_UNINITIALIZED: "uninitialized",
	EXCP_UNSUPPORTED:   "unsupported",
	EXCP_RTE:           "rte",
	EXCP_HALT_INSN:     "halt_insn",
	EXCP_HLT:           "hlt",
	EXCP_DEBUG:         "debug",
}

// ExceptionName returns a short name for an exception number.
func ExceptionName(vector int) string {
	if name, ok := _exception_names[vector]; ok {
		return name
	}
	if vector >= EXCP_TRAP0 && vector <= EXCP_TRAP15 {
		return fmt.Sprintf("trap%d", vector-EXCP_TRAP0)
	}
	return fmt.Sprintf("vector%d", vector)
}

// Exception stops generated code. It is returned, wrapped, by the block
// interpreter.
type Exception struct {
	Vector  int    // Exception number.
	PC      uint32 // PC stored before the exception was raised.
	Address uint32 // Faulting address of an access error.
	Fault   bool   // Raised inside a memory access; restore from a search point.
}

func (err *Exception) Error() string {
	if err.Fault {
		return f("%v exception at 0x%08x (address 0x%08x)", ExceptionName(err.Vector), err.PC, err.Address)
	}
	return f("%v exception at 0x%08x", ExceptionName(err.Vector), err.PC)
}

// Is matches any exception with the same vector.
func (err *Exception) Is(target error) (ok bool) {
	other, ok := target.(*Exception)
	if ok {
		ok = other.Vector == err.Vector
	}
	return
}

// Raise records the exception number and returns it as an error.
func (cpu *Cpu) Raise(vector int) error {
	cpu.ExceptionIndex = uint32(vector)
	return &Exception{Vector: vector, PC: cpu.PC}
}

// Fault returns an access exception raised in the middle of an
// instruction. The PC is not current; the caller restores it from the
// block's search points.
func (cpu *Cpu) Fault(vector int, addr uint32) error {
	cpu.ExceptionIndex = uint32(vector)
	return &Exception{Vector: vector, PC: cpu.PC, Address: addr, Fault: true}
}

// DoException delivers an exception through the vector table, building a
// ColdFire exception stack frame. EXCP_RTE returns from one instead. The
// loop-control exceptions EXCP_HLT and EXCP_DEBUG are not delivered.
func (cpu *Cpu) DoException(mem Memory, vector int) (err error) {
	if cpu.Verbose {
		logrus.WithFields(logrus.Fields{
			"vector": ExceptionName(vector),
			"pc":     fmt.Sprintf("%08x", cpu.PC),
		}).Debug("cpu: exception")
	}

	cpu.ExceptionIndex = uint32(vector)

	switch vector {
	case EXCP_RTE:
		err = cpu.doRTE(mem)
		return
	case EXCP_HALT_INSN, EXCP_HLT:
		cpu.Halted = 1
		cpu.ExceptionIndex = EXCP_HLT
		return
	case EXCP_DEBUG:
		return
	}

	if vector < 0 || vector > 255 {
		err = ErrVectorInvalid(vector)
		return
	}

	retaddr := cpu.PC
	if vector >= EXCP_TRAP0 && vector <= EXCP_TRAP15 {
		// Return after the trap instruction.
		retaddr += 2
	}

	offset := uint32(vector) << 2

	format := uint32(0x40000000)
	format |= offset << 16
	format |= uint32(cpu.GetSR())

	cpu.SR |= SR_S
	cpu.SR &^= SR_T
	cpu.SwitchSP()

	sp := cpu.A[7]
	format |= (sp & 3) << 28
	sp &^= 3

	sp -= 4
	err = mem.Write32(sp, retaddr)
	if err != nil {
		return
	}
	sp -= 4
	err = mem.Write32(sp, format)
	if err != nil {
		return
	}
	cpu.A[7] = sp

	cpu.PC, err = mem.Read32(cpu.VBR + offset)
	return
}

func (cpu *Cpu) doRTE(mem Memory) (err error) {
	sp := cpu.A[7]

	format, err := mem.Read32(sp)
	if err != nil {
		return
	}
	pc, err := mem.Read32(sp + 4)
	if err != nil {
		return
	}

	sp |= (format >> 28) & 3
	cpu.A[7] = sp + 8
	cpu.PC = pc
	cpu.SetSR(format & 0xffff)

	return
}
