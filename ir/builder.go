package ir

import (
	"fmt"
)

// DEFAULT_MAX_OPS bounds the number of operations in one block.
const DEFAULT_MAX_OPS = 8192

// Builder emits operations into a block under construction.
type Builder struct {
	MaxOps int // Operation buffer capacity.

	globals []Global
	code    []Insn
	widths  []Width
	labels  []int
	start   int // Index of the last OpInsnStart, or -1.
}

// NewBuilder creates a builder whose first temporaries are the globals.
func NewBuilder(globals []Global) (b *Builder) {
	b = &Builder{
		MaxOps:  DEFAULT_MAX_OPS,
		globals: globals,
		start:   -1,
	}
	for _, g := range globals {
		b.widths = append(b.widths, g.Width)
	}

	return
}

// Full returns true once the operation buffer is (nearly) exhausted.
// A margin is kept so the instruction in flight and the block epilogue
// always fit.
func (b *Builder) Full() bool {
	return len(b.code)+256 >= b.MaxOps
}

// Len returns the number of operations emitted so far.
func (b *Builder) Len() int {
	return len(b.code)
}

// Width returns the width of a temporary.
func (b *Builder) Width(t Temp) Width {
	return b.widths[t]
}

// IsGlobal returns true if the temporary is bound to CPU state.
func (b *Builder) IsGlobal(t Temp) bool {
	return t >= 0 && int(t) < len(b.globals)
}

func (b *Builder) emit(in Insn) {
	b.code = append(b.code, in)
}

// NewTemp allocates a 32-bit temporary.
func (b *Builder) NewTemp() Temp {
	b.widths = append(b.widths, W32)
	return Temp(len(b.widths) - 1)
}

// NewTemp64 allocates a 64-bit temporary.
func (b *Builder) NewTemp64() Temp {
	b.widths = append(b.widths, W64)
	return Temp(len(b.widths) - 1)
}

// Const allocates a 32-bit temporary holding a constant.
func (b *Builder) Const(v uint32) (t Temp) {
	t = b.NewTemp()
	b.Movi(t, v)
	return
}

// Const64 allocates a 64-bit temporary holding a constant.
func (b *Builder) Const64(v uint64) (t Temp) {
	t = b.NewTemp64()
	b.emit(Insn{Op: OpMovi, Width: W64, Dst: t, Imm: int64(v)})
	return
}

// Movi sets a 32-bit temporary to a constant.
func (b *Builder) Movi(d Temp, v uint32) {
	b.emit(Insn{Op: OpMovi, Width: b.widths[d], Dst: d, Imm: int64(v)})
}

// Mov copies a temporary.
func (b *Builder) Mov(d, a Temp) {
	if d == a {
		return
	}
	b.emit(Insn{Op: OpMov, Width: b.widths[d], Dst: d, A: a})
}

func (b *Builder) binop(op Opcode, d, x, y Temp) {
	w := b.widths[d]
	if b.widths[x] != w || b.widths[y] != w {
		panic(fmt.Sprintf("ir: %v width mismatch", op))
	}
	b.emit(Insn{Op: op, Width: w, Dst: d, A: x, B: y})
}

func (b *Builder) immop(op Opcode, d, x Temp, v int64) {
	var c Temp
	if b.widths[d] == W64 {
		c = b.Const64(uint64(v))
	} else {
		c = b.Const(uint32(v))
	}
	b.binop(op, d, x, c)
}

// Add emits d = x + y.
func (b *Builder) Add(d, x, y Temp) { b.binop(OpAdd, d, x, y) }

// Sub emits d = x - y.
func (b *Builder) Sub(d, x, y Temp) { b.binop(OpSub, d, x, y) }

// And emits d = x & y.
func (b *Builder) And(d, x, y Temp) { b.binop(OpAnd, d, x, y) }

// Or emits d = x | y.
func (b *Builder) Or(d, x, y Temp) { b.binop(OpOr, d, x, y) }

// Xor emits d = x ^ y.
func (b *Builder) Xor(d, x, y Temp) { b.binop(OpXor, d, x, y) }

// Mul emits d = x * y.
func (b *Builder) Mul(d, x, y Temp) { b.binop(OpMul, d, x, y) }

// Shl emits d = x << y.
func (b *Builder) Shl(d, x, y Temp) { b.binop(OpShl, d, x, y) }

// Shr emits d = x >> y (logical).
func (b *Builder) Shr(d, x, y Temp) { b.binop(OpShr, d, x, y) }

// Sar emits d = x >> y (arithmetic).
func (b *Builder) Sar(d, x, y Temp) { b.binop(OpSar, d, x, y) }

// Addi emits d = x + v.
func (b *Builder) Addi(d, x Temp, v int64) {
	if v == 0 {
		b.Mov(d, x)
		return
	}
	b.immop(OpAdd, d, x, v)
}

// Subi emits d = x - v.
func (b *Builder) Subi(d, x Temp, v int64) {
	if v == 0 {
		b.Mov(d, x)
		return
	}
	b.immop(OpSub, d, x, v)
}

// Andi emits d = x & v.
func (b *Builder) Andi(d, x Temp, v int64) { b.immop(OpAnd, d, x, v) }

// Ori emits d = x | v.
func (b *Builder) Ori(d, x Temp, v int64) { b.immop(OpOr, d, x, v) }

// Xori emits d = x ^ v.
func (b *Builder) Xori(d, x Temp, v int64) { b.immop(OpXor, d, x, v) }

// Muli emits d = x * v.
func (b *Builder) Muli(d, x Temp, v int64) { b.immop(OpMul, d, x, v) }

// Shli emits d = x << v.
func (b *Builder) Shli(d, x Temp, v int64) { b.immop(OpShl, d, x, v) }

// Shri emits d = x >> v (logical).
func (b *Builder) Shri(d, x Temp, v int64) { b.immop(OpShr, d, x, v) }

// Sari emits d = x >> v (arithmetic).
func (b *Builder) Sari(d, x Temp, v int64) { b.immop(OpSar, d, x, v) }

func (b *Builder) unop(op Opcode, d, x Temp) {
	b.emit(Insn{Op: op, Width: b.widths[d], Dst: d, A: x})
}

// Neg emits d = -x.
func (b *Builder) Neg(d, x Temp) { b.unop(OpNeg, d, x) }

// Not emits d = ^x.
func (b *Builder) Not(d, x Temp) { b.unop(OpNot, d, x) }

// Ext8s sign extends the low byte.
func (b *Builder) Ext8s(d, x Temp) { b.unop(OpExt8s, d, x) }

// Ext8u zero extends the low byte.
func (b *Builder) Ext8u(d, x Temp) { b.unop(OpExt8u, d, x) }

// Ext16s sign extends the low half.
func (b *Builder) Ext16s(d, x Temp) { b.unop(OpExt16s, d, x) }

// Ext16u zero extends the low half.
func (b *Builder) Ext16u(d, x Temp) { b.unop(OpExt16u, d, x) }

// Ext32s sign extends a 32-bit temporary into a 64-bit one.
func (b *Builder) Ext32s(d, x Temp) { b.unop(OpExt32s, d, x) }

// Ext32u zero extends a 32-bit temporary into a 64-bit one.
func (b *Builder) Ext32u(d, x Temp) { b.unop(OpExt32u, d, x) }

// Trunc takes the low 32 bits of a 64-bit temporary.
func (b *Builder) Trunc(d, x Temp) { b.unop(OpTrunc, d, x) }

// Bswap32 reverses the byte order of a 32-bit temporary.
func (b *Builder) Bswap32(d, x Temp) { b.unop(OpBswap32, d, x) }

// Setcond emits d = (x cond y) ? 1 : 0.
func (b *Builder) Setcond(cond Cond, d, x, y Temp) {
	b.emit(Insn{Op: OpSetcond, Width: b.widths[x], Cond: cond, Dst: d, A: x, B: y})
}

// Setcondi emits d = (x cond v) ? 1 : 0.
func (b *Builder) Setcondi(cond Cond, d, x Temp, v uint32) {
	b.Setcond(cond, d, x, b.Const(v))
}

// NewLabel allocates a label.
func (b *Builder) NewLabel() Label {
	b.labels = append(b.labels, -1)
	return Label(len(b.labels) - 1)
}

// SetLabel binds a label to the next operation.
func (b *Builder) SetLabel(l Label) {
	if b.labels[l] >= 0 {
		panic(fmt.Sprintf("ir: label L%d set twice", l))
	}
	b.labels[l] = len(b.code)
	b.emit(Insn{Op: OpLabel, Label: l})
}

// Br emits an unconditional branch.
func (b *Builder) Br(l Label) {
	b.emit(Insn{Op: OpBr, Label: l})
}

// Brcond branches to l when (x cond y).
func (b *Builder) Brcond(cond Cond, x, y Temp, l Label) {
	switch cond {
	case CondAlways:
		b.Br(l)
	case CondNever:
	default:
		b.emit(Insn{Op: OpBrcond, Width: b.widths[x], Cond: cond, A: x, B: y, Label: l})
	}
}

// Brcondi branches to l when (x cond v).
func (b *Builder) Brcondi(cond Cond, x Temp, v uint32, l Label) {
	switch cond {
	case CondAlways:
		b.Br(l)
	case CondNever:
	default:
		b.Brcond(cond, x, b.Const(v), l)
	}
}

// Load emits d = mem[addr] with the given size and signedness.
func (b *Builder) Load(mem MemOp, d, addr Temp, index int) {
	b.emit(Insn{Op: OpLoad, Width: b.widths[d], Mem: mem, Dst: d, A: addr, Index: index})
}

// Store emits mem[addr] = val.
func (b *Builder) Store(mem MemOp, val, addr Temp, index int) {
	b.emit(Insn{Op: OpStore, Width: b.widths[val], Mem: mem, Dst: Invalid, A: val, B: addr, Index: index})
}

// Call emits a helper call. ret may be Invalid when the helper returns
// nothing or the result is unused.
func (b *Builder) Call(h *Helper, ret Temp, args ...Temp) {
	if h == nil {
		panic("ir: call of nil helper")
	}
	if len(args) != len(h.Args) {
		panic(fmt.Sprintf("ir: helper %s takes %d arguments, given %d", h.Name, len(h.Args), len(args)))
	}
	for n, arg := range args {
		if b.widths[arg] != h.Args[n] {
			panic(fmt.Sprintf("ir: helper %s argument %d width mismatch", h.Name, n))
		}
	}
	if ret != Invalid && h.NoRet {
		panic(fmt.Sprintf("ir: helper %s returns no value", h.Name))
	}
	b.emit(Insn{Op: OpCall, Helper: h, Dst: ret, Args: append([]Temp(nil), args...)})
}

// CallName emits a call to a registered helper.
func (b *Builder) CallName(name string, ret Temp, args ...Temp) {
	h, ok := Lookup(name)
	if !ok {
		panic(fmt.Sprintf("ir: helper %q not registered", name))
	}
	b.Call(h, ret, args...)
}

// InsnStart records a search point for the guest instruction at pc.
func (b *Builder) InsnStart(pc uint32, aux uint32) {
	b.start = len(b.code)
	b.emit(Insn{Op: OpInsnStart, Imm: int64(pc), Aux: aux})
}

// SetInsnAux replaces the auxiliary word of the current instruction's
// search point. It must be called before the instruction's first
// operation that can fault.
func (b *Builder) SetInsnAux(aux uint32) {
	if b.start < 0 {
		panic("ir: SetInsnAux before InsnStart")
	}
	b.code[b.start].Aux = aux
}

// GotoTB exits the block through direct-chain slot n.
func (b *Builder) GotoTB(n int) {
	b.emit(Insn{Op: OpGotoTB, Imm: int64(n)})
}

// ExitTB exits the block to a runtime lookup.
func (b *Builder) ExitTB(v int64) {
	b.emit(Insn{Op: OpExitTB, Imm: v})
}

// IOStart marks the start of an instruction that may touch I/O.
func (b *Builder) IOStart() {
	b.emit(Insn{Op: OpIOStart})
}

// IOEnd closes the I/O window opened by IOStart.
func (b *Builder) IOEnd() {
	b.emit(Insn{Op: OpIOEnd})
}

// Mark is a position in the operation stream.
type Mark struct {
	code   int
	widths int
	labels int
	start  int
}

// Mark returns the current position.
func (b *Builder) Mark() Mark {
	return Mark{
		code:   len(b.code),
		widths: len(b.widths),
		labels: len(b.labels),
		start:  b.start,
	}
}

// Rewind drops every operation, temporary and label created after m.
func (b *Builder) Rewind(m Mark) {
	b.code = b.code[:m.code]
	b.widths = b.widths[:m.widths]
	b.labels = b.labels[:m.labels]
	b.start = m.start
}

// Finish checks label topology and returns the completed block.
func (b *Builder) Finish(pc, size uint32, icount int) (block *Block, err error) {
	for l, at := range b.labels {
		if at < 0 {
			err = &ErrLabel{Label: Label(l)}
			return
		}
	}

	block = &Block{
		PC:      pc,
		Size:    size,
		ICount:  icount,
		Code:    b.code,
		Globals: b.globals,
		Widths:  b.widths,
		Labels:  b.labels,
	}

	for _, in := range b.code {
		switch in.Op {
		case OpGotoTB:
			block.Chained = true
		case OpIOStart, OpIOEnd:
			block.IOBounds = true
		}
	}

	return
}
