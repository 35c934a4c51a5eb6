package cc

import (
	"fmt"

	"github.com/ezrec/cf68k/ir"
)

// Globals are the temporaries holding the lazy condition code state.
type Globals struct {
	Op, X, N, Z, V, C ir.Temp
}

// Compare is a branch predicate over two temporaries.
type Compare struct {
	Cond   ir.Cond
	V1, V2 ir.Temp
}

// Engine tracks the condition code tag while a block is translated.
type Engine struct {
	G     Globals
	Flush *ir.Helper // flush_flags(cc_op): materialize at run time.

	b      *ir.Builder
	tag    Tag
	synced bool
}

// NewEngine starts a block: the tag is Dynamic and CC_OP is in sync.
func NewEngine(b *ir.Builder, g Globals, flush *ir.Helper) *Engine {
	return &Engine{
		G:      g,
		Flush:  flush,
		b:      b,
		tag:    Dynamic{},
		synced: true,
	}
}

// Tag returns the live tag.
func (e *Engine) Tag() Tag {
	return e.tag
}

// Set makes t the live tag. CC_OP is written lazily by Sync.
func (e *Engine) Set(t Tag) {
	if e.tag == t {
		return
	}
	e.tag = t
	e.synced = false
}

// Assume records a tag generated code has already stored in CC_OP.
func (e *Engine) Assume(t Tag) {
	e.tag = t
	e.synced = true
}

// Sync stores the live tag into CC_OP.
func (e *Engine) Sync() {
	if e.synced {
		return
	}
	e.synced = true
	e.b.Movi(e.G.Op, Encode(e.tag))
}

// Mark is a saved tag state.
type Mark struct {
	tag    Tag
	synced bool
}

// Mark saves the tag state.
func (e *Engine) Mark() Mark {
	return Mark{tag: e.tag, synced: e.synced}
}

// Reset returns to a saved tag state, after the code emitted since was
// dropped.
func (e *Engine) Reset(m Mark) {
	e.tag = m.tag
	e.synced = m.synced
}

func (e *Engine) ext(d, v ir.Temp, size Size, signed bool) {
	switch {
	case size == SIZE_BYTE && signed:
		e.b.Ext8s(d, v)
	case size == SIZE_BYTE:
		e.b.Ext8u(d, v)
	case size == SIZE_WORD && signed:
		e.b.Ext16s(d, v)
	case size == SIZE_WORD:
		e.b.Ext16u(d, v)
	default:
		e.b.Mov(d, v)
	}
}

// Logic records a logical result.
func (e *Engine) Logic(val ir.Temp, size Size) {
	e.ext(e.G.N, val, size, true)
	e.Set(Pending{Op: OP_LOGIC, Size: size})
}

// Add records an addition result and its source operand. The caller has
// already stored the carry in CC_X.
func (e *Engine) Add(res, src ir.Temp, size Size) {
	e.ext(e.G.N, res, size, true)
	e.b.Mov(e.G.V, src)
	e.Set(Pending{Op: OP_ADD, Size: size})
}

// Sub records a subtraction result and its source operand. The caller has
// already stored the borrow in CC_X.
func (e *Engine) Sub(res, src ir.Temp, size Size) {
	e.ext(e.G.N, res, size, true)
	e.b.Mov(e.G.V, src)
	e.Set(Pending{Op: OP_SUB, Size: size})
}

// Cmp records the operands of a comparison. Both are sign extended.
func (e *Engine) Cmp(dest, src ir.Temp, size Size) {
	e.ext(e.G.N, dest, size, true)
	e.b.Mov(e.G.V, src)
	e.Set(Pending{Op: OP_CMP, Size: size})
}

// SetCCR makes all five flags known constants. CC_X is written at once
// so a later Logic or Cmp tag, which keeps X, sees the new value.
func (e *Engine) SetCCR(ccr uint8) {
	ccr &= CCR_MASK
	e.b.Movi(e.G.X, FromCCR(ccr).X)
	e.Set(Static{CCR: ccr})
}

// Materialize computes concrete flags into CC_X..CC_C.
func (e *Engine) Materialize() {
	b := e.b
	g := e.G

	switch t := e.tag.(type) {
	case Flags:
		return
	case Dynamic:
		b.Call(e.Flush, ir.Invalid, g.Op)
		e.Assume(Flags{})
		return
	case Static:
		r := FromCCR(t.CCR)
		b.Movi(g.X, r.X)
		b.Movi(g.N, r.N)
		b.Movi(g.Z, r.Z)
		b.Movi(g.V, r.V)
		b.Movi(g.C, r.C)
	case Pending:
		switch t.Op {
		case OP_ADD:
			b.Mov(g.C, g.X)
			b.Mov(g.Z, g.N)
			dest := b.NewTemp()
			b.Sub(dest, g.N, g.V)
			e.ext(dest, dest, t.Size, true)
			t1 := b.NewTemp()
			b.Xor(t1, g.N, g.V)
			b.Xor(dest, dest, g.V)
			b.Not(dest, dest)
			b.And(g.V, t1, dest)
		case OP_SUB:
			b.Mov(g.C, g.X)
			b.Mov(g.Z, g.N)
			dest := b.NewTemp()
			b.Add(dest, g.N, g.V)
			e.ext(dest, dest, t.Size, true)
			t1 := b.NewTemp()
			b.Xor(t1, dest, g.V)
			b.Xor(g.V, dest, g.N)
			b.And(g.V, g.V, t1)
		case OP_CMP:
			b.Setcond(ir.CondLTU, g.C, g.N, g.V)
			b.Sub(g.Z, g.N, g.V)
			e.ext(g.Z, g.Z, t.Size, true)
			t0 := b.NewTemp()
			b.Xor(t0, g.Z, g.N)
			b.Xor(g.V, g.V, g.N)
			b.And(g.V, g.V, t0)
			b.Mov(g.N, g.Z)
		case OP_LOGIC:
			b.Mov(g.Z, g.N)
			b.Movi(g.C, 0)
			b.Movi(g.V, 0)
		}
	default:
		panic(fmt.Sprintf("cc: unknown tag %T", t))
	}

	e.Set(Flags{})
}

// Cond returns the predicate for an m68k condition, deciding it from
// the pending operands when possible.
func (e *Engine) Cond(cond Cond) (c Compare) {
	b := e.b
	g := e.G

	var tcond ir.Cond

	if t, ok := e.tag.(Static); ok {
		tcond = ir.CondNever
		if cond.Test(t.CCR) {
			tcond = ir.CondAlways
		}
		zero := b.Const(0)
		return Compare{Cond: tcond, V1: zero, V2: zero}
	}

	pending, _ := e.tag.(Pending)
	isPending := func(ops ...Op) bool {
		if _, ok := e.tag.(Pending); !ok {
			return false
		}
		for _, op := range ops {
			if pending.Op == op {
				return true
			}
		}
		return false
	}

	if isPending(OP_CMP) {
		c.V1, c.V2 = g.N, g.V
		switch cond | 1 {
		case COND_LS:
			tcond = ir.CondLEU
		case COND_CS:
			tcond = ir.CondLTU
		case COND_EQ:
			tcond = ir.CondEQ
		case COND_MI:
			tmp := b.NewTemp()
			b.Sub(tmp, g.N, g.V)
			e.ext(tmp, tmp, pending.Size, true)
			c.V1, c.V2 = tmp, b.Const(0)
			tcond = ir.CondLT
		case COND_LT:
			tcond = ir.CondLT
		case COND_LE:
			tcond = ir.CondLE
		}
		if tcond != 0 {
			return finish(cond, tcond, c)
		}
	}

	c.V2 = b.Const(0)

	switch cond | 1 {
	case COND_F:
		c.V1 = c.V2
		return finish(cond, ir.CondNever, c)
	case COND_LE:
		if isPending(OP_LOGIC) {
			c.V1 = g.N
			return finish(cond, ir.CondLE, c)
		}
	case COND_LT, COND_MI:
		if cond|1 == COND_LT && !isPending(OP_LOGIC) {
			break
		}
		if isPending(OP_ADD, OP_SUB, OP_LOGIC) {
			c.V1 = g.N
			return finish(cond, ir.CondLT, c)
		}
	case COND_EQ:
		if isPending(OP_ADD, OP_SUB, OP_LOGIC) {
			c.V1 = g.N
			return finish(cond, ir.CondEQ, c)
		}
	case COND_CS, COND_VS:
		if cond|1 == COND_CS && isPending(OP_ADD, OP_SUB) {
			c.V1 = g.X
			return finish(cond, ir.CondNE, c)
		}
		if isPending(OP_LOGIC) {
			c.V1 = c.V2
			return finish(cond, ir.CondNever, c)
		}
	}

	e.Materialize()

	switch cond | 1 {
	case COND_LS:
		tmp := b.NewTemp()
		b.Setcond(ir.CondEQ, tmp, g.Z, c.V2)
		b.Or(tmp, tmp, g.C)
		c.V1 = tmp
		tcond = ir.CondNE
	case COND_CS:
		c.V1 = g.C
		tcond = ir.CondNE
	case COND_EQ:
		c.V1 = g.Z
		tcond = ir.CondEQ
	case COND_VS:
		c.V1 = g.V
		tcond = ir.CondLT
	case COND_MI:
		c.V1 = g.N
		tcond = ir.CondLT
	case COND_LT:
		tmp := b.NewTemp()
		b.Xor(tmp, g.N, g.V)
		c.V1 = tmp
		tcond = ir.CondLT
	case COND_LE:
		tmp := b.NewTemp()
		b.Setcond(ir.CondEQ, tmp, g.Z, c.V2)
		b.Neg(tmp, tmp)
		tmp2 := b.NewTemp()
		b.Xor(tmp2, g.N, g.V)
		b.Or(tmp, tmp, tmp2)
		c.V1 = tmp
		tcond = ir.CondLT
	default:
		panic(fmt.Sprintf("cc: condition %v not decided", cond))
	}

	return finish(cond, tcond, c)
}

// finish applies the odd/even convention: odd conditions are the
// predicate computed, even ones its inverse.
func finish(cond Cond, tcond ir.Cond, c Compare) Compare {
	if cond&1 == 0 {
		tcond = tcond.Invert()
	}
	c.Cond = tcond
	return c
}

// Jump branches to l when cond holds. CC_OP is synced first so the
// state is consistent on both paths.
func (e *Engine) Jump(cond Cond, l ir.Label) {
	c := e.Cond(cond)
	e.Sync()
	e.b.Brcond(c.Cond, c.V1, c.V2, l)
}

// Setcond stores 1 in d when cond holds, 0 otherwise.
func (e *Engine) Setcond(cond Cond, d ir.Temp) {
	c := e.Cond(cond)
	e.b.Setcond(c.Cond, d, c.V1, c.V2)
}
