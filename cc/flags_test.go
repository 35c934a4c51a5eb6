package cc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegs_CCR(t *testing.T) {
	assert := assert.New(t)

	for ccr := range uint8(CCR_MASK + 1) {
		r := FromCCR(ccr)
		assert.Equal(ccr, r.CCR(), "%02x", ccr)
	}
}

func TestRegs_Flush(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		tag  Tag
		in   Regs
		ccr  uint8
	}){
		// 0x7fffffff + 1: negative overflow, no carry.
		{"add_ovf", Pending{OP_ADD, SIZE_LONG}, Regs{X: 0, N: 0x80000000, V: 1}, CCR_N | CCR_V},
		// 0xffffffff + 1: zero with carry.
		{"add_carry", Pending{OP_ADD, SIZE_LONG}, Regs{X: 1, N: 0, V: 1}, CCR_X | CCR_Z | CCR_C},
		// 0x7f + 1 at byte size.
		{"add_byte", Pending{OP_ADD, SIZE_BYTE}, Regs{X: 0, N: 0xffffff80, V: 1}, CCR_N | CCR_V},
		// 0x80000000 - 1: positive overflow.
		{"sub_ovf", Pending{OP_SUB, SIZE_LONG}, Regs{X: 0, N: 0x7fffffff, V: 1}, CCR_V},
		// 0 - 1: borrow, negative.
		{"sub_borrow", Pending{OP_SUB, SIZE_LONG}, Regs{X: 1, N: 0xffffffff, V: 1}, CCR_X | CCR_N | CCR_C},
		// 5 - 5 at word size.
		{"sub_zero", Pending{OP_SUB, SIZE_WORD}, Regs{X: 0, N: 0, V: 5}, CCR_Z},
		{"cmp_eq", Pending{OP_CMP, SIZE_LONG}, Regs{X: 1, N: 7, V: 7}, CCR_X | CCR_Z},
		{"cmp_lo", Pending{OP_CMP, SIZE_LONG}, Regs{N: 1, V: 2}, CCR_N | CCR_C},
		{"cmp_ovf", Pending{OP_CMP, SIZE_LONG}, Regs{N: 0x80000000, V: 1}, CCR_V},
		{"logic_zero", Pending{OP_LOGIC, SIZE_LONG}, Regs{X: 1, N: 0, V: 0xffffffff, C: 1}, CCR_X | CCR_Z},
		{"logic_neg", Pending{OP_LOGIC, SIZE_BYTE}, Regs{N: 0xffffff80}, CCR_N},
		{"static", Static{CCR: CCR_X | CCR_C}, Regs{}, CCR_X | CCR_C},
		{"flags", Flags{}, FromCCR(CCR_Z | CCR_V), CCR_Z | CCR_V},
	}

	for _, entry := range table {
		out := entry.in.Flush(entry.tag)
		assert.Equal(entry.ccr, out.CCR(), entry.name)
	}

	assert.Panics(func() { Regs{}.Flush(Dynamic{}) })
}

func TestCond_Test(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		ccr  uint8
		true []Cond
	}){
		{0, []Cond{COND_T, COND_HI, COND_CC, COND_NE, COND_VC, COND_PL, COND_GE, COND_GT}},
		{CCR_Z, []Cond{COND_T, COND_LS, COND_CC, COND_EQ, COND_VC, COND_PL, COND_GE, COND_LE}},
		{CCR_N, []Cond{COND_T, COND_HI, COND_CC, COND_NE, COND_VC, COND_MI, COND_LT, COND_LE}},
		{CCR_N | CCR_V, []Cond{COND_T, COND_HI, COND_CC, COND_NE, COND_VS, COND_MI, COND_GE, COND_GT}},
		{CCR_C, []Cond{COND_T, COND_LS, COND_CS, COND_NE, COND_VC, COND_PL, COND_GE, COND_GT}},
	}

	for _, entry := range table {
		want := map[Cond]bool{}
		for _, c := range entry.true {
			want[c] = true
		}
		for c := COND_T; c <= COND_LE; c++ {
			assert.Equal(want[c], c.Test(entry.ccr), "%v %02x", c, entry.ccr)
		}
	}
}

func TestTag_Encode(t *testing.T) {
	assert := assert.New(t)

	tags := []Tag{Dynamic{}, Flags{}, Static{CCR: 0x1f}, Static{}, Static{CCR: CCR_X | CCR_Z | CCR_C}}
	for op := OP_ADD; op <= OP_LOGIC; op++ {
		for size := SIZE_BYTE; size <= SIZE_LONG; size++ {
			tags = append(tags, Pending{Op: op, Size: size})
		}
	}

	seen := map[uint32]bool{}
	for _, tag := range tags {
		v := Encode(tag)
		assert.False(seen[v], "%v", tag)
		seen[v] = true

		got, err := Decode(v)
		assert.NoError(err)
		assert.Equal(tag, got)
	}

	_, err := Decode(0x80)
	assert.ErrorIs(err, ErrTagInvalid(0x80))
}
