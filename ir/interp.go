package ir

import (
	"math/bits"
)

// Slot is storage a global temporary is bound to.
type Slot interface {
	Load() uint64
	Store(value uint64)
}

type var32 struct {
	p *uint32
}

func (v var32) Load() uint64       { return uint64(*v.p) }
func (v var32) Store(value uint64) { *v.p = uint32(value) }

type var64 struct {
	p *uint64
}

func (v var64) Load() uint64       { return *v.p }
func (v var64) Store(value uint64) { *v.p = value }

// Var32 binds a 32-bit global to a variable.
func Var32(p *uint32) Slot {
	return var32{p: p}
}

// Var64 binds a 64-bit global to a variable.
func Var64(p *uint64) Slot {
	return var64{p: p}
}

// Memory is the guest memory seen by generated code.
type Memory interface {
	Load(addr uint32, op MemOp, index int) (value uint64, err error)
	Store(addr uint32, op MemOp, value uint64, index int) (err error)
}

// ExitKind is how a block returned control.
type ExitKind int

const (
	ExitLookup = ExitKind(0) // exit_tb: find the next block by PC.
	ExitChain  = ExitKind(1) // goto_tb: chain through a direct slot.
)

// Exit describes the end of a block execution.
type Exit struct {
	Kind  ExitKind
	Slot  int
	Value int64
}

// DEFAULT_MAX_STEPS bounds the operations executed by one Run.
const DEFAULT_MAX_STEPS = 1 << 20

// Machine executes blocks.
type Machine struct {
	Slots    []Slot // Storage of each global, in global order.
	Mem      Memory // Guest memory.
	Env      any    // Passed to every helper.
	MaxSteps int    // Operation budget per Run, zero for the default.

	ICount  int // Guest instructions entered.
	IOCount int // I/O windows opened.

	block *Block
	vals  []uint64
	pc    int
	done  bool
	exit  Exit
}

var dispatchTab = [opCount]func(m *Machine, in *Insn) error{
	OpNop:       (*Machine).opNop,
	OpInsnStart: (*Machine).opInsnStart,
	OpMovi:      (*Machine).opMovi,
	OpMov:       (*Machine).opUnary,
	OpAdd:       (*Machine).opBinary,
	OpSub:       (*Machine).opBinary,
	OpAnd:       (*Machine).opBinary,
	OpOr:        (*Machine).opBinary,
	OpXor:       (*Machine).opBinary,
	OpMul:       (*Machine).opBinary,
	OpShl:       (*Machine).opBinary,
	OpShr:       (*Machine).opBinary,
	OpSar:       (*Machine).opBinary,
	OpNeg:       (*Machine).opUnary,
	OpNot:       (*Machine).opUnary,
	OpExt8s:     (*Machine).opUnary,
	OpExt8u:     (*Machine).opUnary,
	OpExt16s:    (*Machine).opUnary,
	OpExt16u:    (*Machine).opUnary,
	OpExt32s:    (*Machine).opUnary,
	OpExt32u:    (*Machine).opUnary,
	OpTrunc:     (*Machine).opUnary,
	OpBswap32:   (*Machine).opUnary,
	OpSetcond:   (*Machine).opSetcond,
	OpBrcond:    (*Machine).opBrcond,
	OpBr:        (*Machine).opBr,
	OpLabel:     (*Machine).opNop,
	OpLoad:      (*Machine).opLoad,
	OpStore:     (*Machine).opStore,
	OpCall:      (*Machine).opCall,
	OpGotoTB:    (*Machine).opGotoTB,
	OpExitTB:    (*Machine).opExitTB,
	OpIOStart:   (*Machine).opIOStart,
	OpIOEnd:     (*Machine).opNop,
}

// Run executes a block until it exits. A failing memory access or helper
// stops the block and is returned wrapped in *ErrRun.
func (m *Machine) Run(b *Block) (exit Exit, err error) {
	if len(m.Slots) != len(b.Globals) {
		err = ErrSlotCount
		return
	}

	if cap(m.vals) < len(b.Widths) {
		m.vals = make([]uint64, len(b.Widths))
	} else {
		m.vals = m.vals[:len(b.Widths)]
		clear(m.vals)
	}

	m.block = b
	m.pc = 0
	m.done = false

	budget := m.MaxSteps
	if budget == 0 {
		budget = DEFAULT_MAX_STEPS
	}

	for m.pc < len(b.Code) {
		at := m.pc
		in := &b.Code[at]
		m.pc++
		err = dispatchTab[in.Op](m, in)
		if err != nil {
			err = &ErrRun{Offset: at, Err: err}
			return
		}
		if m.done {
			exit = m.exit
			return
		}
		budget--
		if budget == 0 {
			err = &ErrRun{Offset: at, Err: ErrRunaway}
			return
		}
	}

	err = ErrNoExit
	return
}

func (m *Machine) get(t Temp) uint64 {
	if int(t) < len(m.Slots) {
		return m.Slots[t].Load()
	}
	return m.vals[t]
}

func (m *Machine) set(t Temp, value uint64) {
	value &= m.block.Widths[t].Mask()
	if int(t) < len(m.Slots) {
		m.Slots[t].Store(value)
		return
	}
	m.vals[t] = value
}

func (m *Machine) opNop(_ *Insn) error {
	return nil
}

func (m *Machine) opInsnStart(_ *Insn) error {
	m.ICount++
	return nil
}

func (m *Machine) opIOStart(_ *Insn) error {
	m.IOCount++
	return nil
}

func (m *Machine) opMovi(in *Insn) error {
	m.set(in.Dst, uint64(in.Imm))
	return nil
}

func (m *Machine) opUnary(in *Insn) error {
	a := m.get(in.A)
	var v uint64
	switch in.Op {
	case OpMov:
		v = a
	case OpNeg:
		v = -a
	case OpNot:
		v = ^a
	case OpExt8s:
		v = uint64(int64(int8(a)))
	case OpExt8u:
		v = uint64(uint8(a))
	case OpExt16s:
		v = uint64(int64(int16(a)))
	case OpExt16u:
		v = uint64(uint16(a))
	case OpExt32s:
		v = uint64(int64(int32(a)))
	case OpExt32u, OpTrunc:
		v = uint64(uint32(a))
	case OpBswap32:
		v = uint64(bits.ReverseBytes32(uint32(a)))
	}
	m.set(in.Dst, v)
	return nil
}

func (m *Machine) opBinary(in *Insn) error {
	a, b := m.get(in.A), m.get(in.B)
	var v uint64
	if in.Width == W32 {
		x, y := uint32(a), uint32(b)
		var r uint32
		switch in.Op {
		case OpAdd:
			r = x + y
		case OpSub:
			r = x - y
		case OpAnd:
			r = x & y
		case OpOr:
			r = x | y
		case OpXor:
			r = x ^ y
		case OpMul:
			r = x * y
		case OpShl:
			r = x << y
		case OpShr:
			r = x >> y
		case OpSar:
			r = uint32(int32(x) >> y)
		}
		v = uint64(r)
	} else {
		switch in.Op {
		case OpAdd:
			v = a + b
		case OpSub:
			v = a - b
		case OpAnd:
			v = a & b
		case OpOr:
			v = a | b
		case OpXor:
			v = a ^ b
		case OpMul:
			v = a * b
		case OpShl:
			v = a << b
		case OpShr:
			v = a >> b
		case OpSar:
			v = uint64(int64(a) >> b)
		}
	}
	m.set(in.Dst, v)
	return nil
}

func (m *Machine) opSetcond(in *Insn) error {
	var v uint64
	if in.Cond.Eval(in.Width, m.get(in.A), m.get(in.B)) {
		v = 1
	}
	m.set(in.Dst, v)
	return nil
}

func (m *Machine) opBrcond(in *Insn) error {
	if in.Cond.Eval(in.Width, m.get(in.A), m.get(in.B)) {
		m.pc = m.block.Labels[in.Label]
	}
	return nil
}

func (m *Machine) opBr(in *Insn) error {
	m.pc = m.block.Labels[in.Label]
	return nil
}

func (m *Machine) opLoad(in *Insn) (err error) {
	value, err := m.Mem.Load(uint32(m.get(in.A)), in.Mem, in.Index)
	if err != nil {
		return
	}
	m.set(in.Dst, in.Mem.Extend(value))
	return
}

func (m *Machine) opStore(in *Insn) error {
	return m.Mem.Store(uint32(m.get(in.B)), in.Mem, m.get(in.A), in.Index)
}

func (m *Machine) opCall(in *Insn) (err error) {
	args := make([]uint64, len(in.Args))
	for n, arg := range in.Args {
		args[n] = m.get(arg)
	}
	ret, err := in.Helper.Fn(m.Env, args...)
	if err != nil {
		return
	}
	if in.Dst != Invalid {
		m.set(in.Dst, ret)
	}
	return
}

func (m *Machine) opGotoTB(in *Insn) error {
	m.exit = Exit{Kind: ExitChain, Slot: int(in.Imm)}
	m.done = true
	return nil
}

func (m *Machine) opExitTB(in *Insn) error {
	m.exit = Exit{Kind: ExitLookup, Value: in.Imm}
	m.done = true
	return nil
}
