package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/cf68k/cc"
	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/ir"
)

func TestDivide(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		h    *ir.Helper
		num  uint32
		den  uint32
		div1 uint32
		div2 uint32
		ccr  uint8
	}){
		{"divu.w", Divu, 10, 3, 3, 1, cc.CCR_X},
		{"divu.w zero", Divu, 0, 7, 0, 0, cc.CCR_X | cc.CCR_Z},
		{"divu.w high divisor ignored", Divu, 10, 0x10003, 3, 1, cc.CCR_X},
		{"divu.w overflow", Divu, 0x00123456, 1, 0x3456, 0x0012, cc.CCR_X | cc.CCR_V},
		{"divu.w negative word", Divu, 0x00009000, 1, 0x9000, 0, cc.CCR_X | cc.CCR_N},
		{"divs.w", Divs, 0xfffffff6, 3, 0xfffffffd, 0xffffffff, cc.CCR_X | cc.CCR_N},
		{"divs.w negative divisor", Divs, 10, 0xfffd, 0xfffffffd, 1, cc.CCR_X | cc.CCR_N},
		{"divs.w overflow", Divs, 0x00100000, 2, 0x0000, 0x0010, cc.CCR_X | cc.CCR_V},
		{"divs.w min", Divs, 0x80000000, 0xffff, 0x0000, 0x8000, cc.CCR_X | cc.CCR_V},
		{"divu.l", DivuL, 0xfffffff0, 0x10, 0x0fffffff, 0, cc.CCR_X},
		{"divu.l remainder", DivuL, 100, 7, 14, 2, cc.CCR_X},
		{"divs.l", DivsL, 0xffffff9c, 7, 0xfffffff2, 0xfffffffe, cc.CCR_X | cc.CCR_N},
		{"divs.l min", DivsL, 0x80000000, 0xffffffff, 0x80000000, 0, cc.CCR_X | cc.CCR_V},
	}

	for _, entry := range table {
		c := cpu.NewCpu(cpu.NewFeatures(cpu.FEATURE_CF_ISA_A, cpu.FEATURE_CF_ISA_B))
		c.SetCCR(cc.CCR_X | cc.CCR_C)
		c.Div1, c.Div2 = entry.num, entry.den

		_, err := call(c, entry.h)
		assert.NoError(err, entry.name)
		assert.Equal(entry.div1, c.Div1, entry.name)
		assert.Equal(entry.div2, c.Div2, entry.name)
		assert.Equal(entry.ccr, c.GetCCR(), entry.name)
		assert.Equal(cc.CC_OP_FLAGS, c.CCOp, entry.name)
	}
}

func TestDivide_Zero(t *testing.T) {
	assert := assert.New(t)

	for _, h := range []*ir.Helper{Divu, Divs, DivuL, DivsL} {
		c := cpu.NewCpu(cpu.NewFeatures())
		c.PC = 0x400
		c.SetCCR(cc.CCR_Z)
		c.Div1, c.Div2 = 10, 0

		_, err := call(c, h)
		assert.ErrorIs(err, &cpu.Exception{Vector: cpu.EXCP_DIV0}, h.Name)
		var excp *cpu.Exception
		if assert.ErrorAs(err, &excp) {
			assert.Equal(uint32(0x400), excp.PC)
			assert.False(excp.Fault)
		}

		// Nothing changes.
		assert.Equal(uint32(10), c.Div1, h.Name)
		assert.Equal(cc.CCR_Z, c.GetCCR(), h.Name)
	}
}
