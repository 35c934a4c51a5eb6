package cc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/cf68k/ir"
)

type testState struct {
	Op   uint32
	Regs Regs
	Out  uint32
}

var testGlobals = []ir.Global{
	{"cc_op", ir.W32},
	{"cc_x", ir.W32},
	{"cc_n", ir.W32},
	{"cc_z", ir.W32},
	{"cc_v", ir.W32},
	{"cc_c", ir.W32},
	{"out", ir.W32},
}

const testOut = ir.Temp(6)

var testFlush = &ir.Helper{
	Name:  "flush_flags",
	Args:  []ir.Width{ir.W32},
	NoRet: true,
	Fn: func(env any, args ...uint64) (ret uint64, err error) {
		st := env.(*testState)
		tag, err := Decode(uint32(args[0]))
		if err != nil {
			return
		}
		if _, ok := tag.(Dynamic); ok {
			return
		}
		st.Regs = st.Regs.Flush(tag)
		st.Op = CC_OP_FLAGS
		return
	},
}

func (st *testState) slots() []ir.Slot {
	return []ir.Slot{
		ir.Var32(&st.Op),
		ir.Var32(&st.Regs.X),
		ir.Var32(&st.Regs.N),
		ir.Var32(&st.Regs.Z),
		ir.Var32(&st.Regs.V),
		ir.Var32(&st.Regs.C),
		ir.Var32(&st.Out),
	}
}

func testEngine() (b *ir.Builder, e *Engine) {
	b = ir.NewBuilder(testGlobals)
	e = NewEngine(b, Globals{Op: 0, X: 1, N: 2, Z: 3, V: 4, C: 5}, testFlush)
	return
}

func testRun(t *testing.T, b *ir.Builder, st *testState) {
	b.ExitTB(0)
	block, err := b.Finish(0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	m := &ir.Machine{Slots: st.slots(), Env: st}
	_, err = m.Run(block)
	if err != nil {
		t.Fatal(err)
	}
}

func randomRegs(rands *rand.Rand, tag Tag) (r Regs) {
	r.X = rands.Uint32() & 1
	r.N = rands.Uint32()
	r.V = rands.Uint32()
	r.Z = rands.Uint32()
	r.C = rands.Uint32() & 1

	// Bias towards interesting operands.
	switch rands.Intn(4) {
	case 0:
		r.N = 0
	case 1:
		r.V = r.N
	case 2:
		r.N = 0x80000000
	}

	if t, ok := tag.(Pending); ok {
		r.N = t.Size.Extend(r.N, true)
		r.V = t.Size.Extend(r.V, true)
	}
	return
}

func testTags() (tags []Tag) {
	tags = []Tag{Flags{}, Static{}, Static{CCR: CCR_MASK}, Static{CCR: CCR_Z | CCR_C}, Static{CCR: CCR_N}}
	for op := OP_ADD; op <= OP_LOGIC; op++ {
		for size := SIZE_BYTE; size <= SIZE_LONG; size++ {
			tags = append(tags, Pending{Op: op, Size: size})
		}
	}
	return
}

func TestEngine_Materialize(t *testing.T) {
	assert := assert.New(t)

	rands := rand.New(rand.NewSource(68))

	for _, tag := range testTags() {
		for range 64 {
			in := randomRegs(rands, tag)
			want := in.Flush(tag).CCR()

			b, e := testEngine()
			e.Set(tag)
			e.Materialize()
			e.Sync()
			assert.Equal(Flags{}, e.Tag())

			st := &testState{Regs: in}
			testRun(t, b, st)
			assert.Equal(want, st.Regs.CCR(), "%v %+v", tag, in)
			assert.Equal(CC_OP_FLAGS, st.Op, "%v", tag)
		}
	}
}

func TestEngine_Cond(t *testing.T) {
	assert := assert.New(t)

	rands := rand.New(rand.NewSource(0x68))

	for _, tag := range testTags() {
		for range 32 {
			in := randomRegs(rands, tag)
			ccr := in.Flush(tag).CCR()

			for cond := COND_T; cond <= COND_LE; cond++ {
				b, e := testEngine()
				e.Set(tag)
				e.Setcond(cond, testOut)
				st := &testState{Regs: in, Out: 0xdead}
				testRun(t, b, st)

				want := uint32(0)
				if cond.Test(ccr) {
					want = 1
				}
				assert.Equal(want, st.Out, "%v %v %+v", cond, tag, in)
			}
		}
	}
}

func TestEngine_Dynamic(t *testing.T) {
	assert := assert.New(t)

	rands := rand.New(rand.NewSource(0xcf))

	for _, tag := range testTags() {
		in := randomRegs(rands, tag)
		ccr := in.Flush(tag).CCR()

		for cond := COND_T; cond <= COND_LE; cond++ {
			b, e := testEngine()
			e.Setcond(cond, testOut)

			st := &testState{Op: Encode(tag), Regs: in}
			testRun(t, b, st)

			want := uint32(0)
			if cond.Test(ccr) {
				want = 1
			}
			assert.Equal(want, st.Out, "%v %v", cond, tag)

			// T and F never need the flags.
			if cond|1 == COND_F {
				assert.Equal(Dynamic{}, e.Tag())
				continue
			}
			assert.Equal(Flags{}, e.Tag())
			assert.Equal(CC_OP_FLAGS, st.Op)
		}
	}
}

func TestEngine_Sync(t *testing.T) {
	assert := assert.New(t)

	b, e := testEngine()
	e.Sync()
	assert.Equal(0, b.Len())

	e.Set(Pending{OP_LOGIC, SIZE_WORD})
	e.Set(Pending{OP_LOGIC, SIZE_WORD})
	e.Sync()
	e.Sync()
	assert.Equal(1, b.Len())

	e.Assume(Flags{})
	e.Sync()
	assert.Equal(1, b.Len())

	st := &testState{}
	testRun(t, b, st)
	assert.Equal(Encode(Pending{OP_LOGIC, SIZE_WORD}), st.Op)
}

func TestEngine_Shortcut(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		tag  Tag
		cond Cond
		ir   ir.Cond
	}){
		{Pending{OP_CMP, SIZE_LONG}, COND_HI, ir.CondGTU},
		{Pending{OP_CMP, SIZE_LONG}, COND_CS, ir.CondLTU},
		{Pending{OP_CMP, SIZE_WORD}, COND_NE, ir.CondNE},
		{Pending{OP_CMP, SIZE_BYTE}, COND_GT, ir.CondGT},
		{Pending{OP_LOGIC, SIZE_LONG}, COND_VS, ir.CondNever},
		{Pending{OP_LOGIC, SIZE_LONG}, COND_CC, ir.CondAlways},
		{Pending{OP_LOGIC, SIZE_LONG}, COND_LE, ir.CondLE},
		{Pending{OP_ADD, SIZE_LONG}, COND_EQ, ir.CondEQ},
		{Pending{OP_SUB, SIZE_LONG}, COND_CS, ir.CondNE},
		{Static{CCR: CCR_Z}, COND_EQ, ir.CondAlways},
		{Static{CCR: CCR_Z}, COND_NE, ir.CondNever},
		{Flags{}, COND_T, ir.CondAlways},
	}

	for _, entry := range table {
		_, e := testEngine()
		e.Set(entry.tag)
		c := e.Cond(entry.cond)
		assert.Equal(entry.ir, c.Cond, "%v %v", entry.tag, entry.cond)
		// Shortcuts leave the pending operands alone.
		assert.Equal(entry.tag, e.Tag())
	}
}

func TestEngine_SetCCR(t *testing.T) {
	assert := assert.New(t)

	b, e := testEngine()
	e.SetCCR(CCR_X | CCR_N | 0xe0)
	assert.Equal(Static{CCR: CCR_X | CCR_N}, e.Tag())

	// A logic result after a static CCR keeps the static X.
	b.Movi(testOut, 0)
	e.Logic(testOut, SIZE_LONG)
	e.Materialize()
	e.Sync()

	st := &testState{}
	testRun(t, b, st)
	assert.Equal(CCR_X|CCR_Z, st.Regs.CCR())
	assert.Equal(CC_OP_FLAGS, st.Op)
}

func TestEngine_Mark(t *testing.T) {
	assert := assert.New(t)

	b, e := testEngine()
	mark := e.Mark()

	e.Set(Pending{OP_ADD, SIZE_BYTE})
	e.Sync()
	assert.Equal(1, b.Len())

	e.Reset(mark)
	assert.Equal(Dynamic{}, e.Tag())

	// Back in sync: nothing to store.
	e.Sync()
	assert.Equal(1, b.Len())
}
