package cpu

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/cf68k/cc"
)

type testMemory map[uint32]uint32

var errTestBus = errors.New("bus")

func (tm testMemory) Read32(addr uint32) (value uint32, err error) {
	value, ok := tm[addr]
	if !ok {
		err = errTestBus
	}
	return
}

func (tm testMemory) Write32(addr uint32, value uint32) (err error) {
	tm[addr] = value
	return
}

type testFlusher struct {
	count int
}

func (tf *testFlusher) Flush() {
	tf.count++
}

func TestFeatures(t *testing.T) {
	assert := assert.New(t)

	fs := NewFeatures(FEATURE_CF_ISA_A, FEATURE_CF_MAC)
	assert.True(fs.Has(FEATURE_BASE))
	assert.True(fs.Has(FEATURE_CF_ISA_A))
	assert.True(fs.Has(FEATURE_CF_MAC))
	assert.False(fs.Has(FEATURE_CF_FPU))
	assert.Equal("base,cf_isa_a,cf_mac", fs.String())

	assert.True(Features(0).Has(FEATURE_BASE))

	for ft := FEATURE_BASE; ft < featureCount; ft++ {
		parsed, err := ParseFeature(strings.ToUpper(ft.String()))
		assert.NoError(err)
		assert.Equal(ft, parsed)
	}

	_, err := ParseFeature("m68020")
	assert.ErrorIs(err, ErrFeatureUnknown("m68020"))
}

func TestCpu_SR(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		sr  uint32
		ccr uint8
	}){
		{0x2700, 0x00},
		{0x271f, 0x1f},
		{0x0004, 0x04},
		{0x2015, 0x15},
		{0x800a, 0x0a},
	}

	for _, entry := range table {
		cpu := NewCpu(NewFeatures())
		cpu.SetSR(entry.sr)
		assert.Equal(uint16(entry.sr), cpu.GetSR(), "%04x", entry.sr)
		assert.Equal(entry.ccr, cpu.GetCCR(), "%04x", entry.sr)
		assert.Equal(entry.sr&SR_S == 0, cpu.IsUser())
	}
}

func TestCpu_FlushFlags(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(NewFeatures())

	// cmp.b #1,#1: equal.
	cpu.CC.N = 1
	cpu.CC.V = 1
	cpu.CCOp = cc.Encode(cc.Pending{Op: cc.OP_CMP, Size: cc.SIZE_BYTE})
	assert.Equal(cc.CCR_Z, cpu.GetCCR())
	assert.NoError(cpu.FlushFlags(cpu.CCOp))
	assert.Equal(cc.CC_OP_FLAGS, cpu.CCOp)
	assert.Equal(cc.CCR_Z, cpu.GetCCR())

	err := cpu.FlushFlags(0xdead)
	assert.ErrorIs(err, cc.ErrTagInvalid(0xdead))
}

func TestCpu_SwitchSP(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(NewFeatures())
	cpu.SR = SR_S
	cpu.A[7] = 0x1000

	cpu.SP[SP_USER] = 0x8000
	cpu.SetSR(0)
	assert.Equal(uint32(0x8000), cpu.A[7])
	assert.Equal(uint32(0x1000), cpu.SP[SP_SUPER])
	assert.Equal(uint32(0x8000), cpu.USP())

	cpu.SetUSP(0x9000)
	assert.Equal(uint32(0x9000), cpu.A[7])

	cpu.SetSR(SR_S)
	assert.Equal(uint32(0x1000), cpu.A[7])
	assert.Equal(uint32(0x9000), cpu.USP())
	cpu.SetUSP(0xa000)
	assert.Equal(uint32(0x1000), cpu.A[7])
	assert.Equal(uint32(0xa000), cpu.SP[SP_USER])
}

func TestCpu_Reset(t *testing.T) {
	assert := assert.New(t)

	mem := testMemory{
		0x100: 0x00010000,
		0x104: 0x00000400,
	}
	tlb := &testFlusher{}

	cpu := NewCpu(NewFeatures())
	cpu.VBR = 0x100
	cpu.TLB = tlb
	cpu.D[3] = 7

	assert.NoError(cpu.Reset(mem))
	assert.Equal(uint32(0x00010000), cpu.A[7])
	assert.Equal(uint32(0x400), cpu.PC)
	assert.Equal(uint16(0x2700), cpu.GetSR())
	assert.Equal(uint32(0), cpu.D[3])
	assert.Equal(uint32(0xffffffff), cpu.MACMask)
	assert.Equal(1, tlb.count)

	cpu.VBR = 0x200
	assert.ErrorIs(cpu.Reset(mem), errTestBus)
}

func TestCpu_Exception(t *testing.T) {
	assert := assert.New(t)

	mem := testMemory{
		0x010: 0x5000, // illegal
		0x08c: 0x6000, // trap #3
	}

	cpu := NewCpu(NewFeatures())
	cpu.SP[SP_SUPER] = 0x2002
	cpu.A[7] = 0x8000
	cpu.CurrentSP = SP_USER
	cpu.SR = 0
	cpu.SetCCR(cc.CCR_N | cc.CCR_C)
	cpu.PC = 0x1234

	assert.NoError(cpu.DoException(mem, EXCP_ILLEGAL))
	assert.Equal(uint32(0x5000), cpu.PC)
	assert.Equal(uint32(0x1ff8), cpu.A[7])
	assert.Equal(uint32(0x1234), mem[0x1ffc])
	assert.Equal(uint32(0x60000000|(EXCP_ILLEGAL*4)<<16|0x09), mem[0x1ff8])
	assert.False(cpu.IsUser())
	assert.Equal(uint32(0x8000), cpu.SP[SP_USER])

	// Return restores the stack alignment, mode and flags.
	assert.NoError(cpu.DoException(mem, EXCP_RTE))
	assert.Equal(uint32(0x1234), cpu.PC)
	assert.True(cpu.IsUser())
	assert.Equal(cc.CCR_N|cc.CCR_C, cpu.GetCCR())
	assert.Equal(uint32(0x8000), cpu.A[7])
	assert.Equal(uint32(0x2002), cpu.SP[SP_SUPER])

	// Traps return past the instruction.
	cpu.PC = 0x2000
	assert.NoError(cpu.DoException(mem, EXCP_TRAP0+3))
	assert.Equal(uint32(0x6000), cpu.PC)
	assert.Equal(uint32(0x2002), mem[0x1ffc])

	assert.ErrorIs(cpu.DoException(mem, 0x200), ErrVectorInvalid(0x200))

	assert.NoError(cpu.DoException(mem, EXCP_HALT_INSN))
	assert.Equal(uint32(1), cpu.Halted)
	assert.Equal(uint32(EXCP_HLT), cpu.ExceptionIndex)
}

func TestCpu_Raise(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(NewFeatures())
	cpu.PC = 0x400

	err := cpu.Raise(EXCP_DIV0)
	assert.ErrorIs(err, &Exception{Vector: EXCP_DIV0})
	assert.NotErrorIs(err, &Exception{Vector: EXCP_ILLEGAL})
	assert.Equal(uint32(EXCP_DIV0), cpu.ExceptionIndex)
	assert.Contains(err.Error(), "div0")
	assert.Contains(err.Error(), "0x00000400")

	assert.Equal("trap15", ExceptionName(EXCP_TRAP15))
	assert.Equal("vector99", ExceptionName(99))
}

func TestCpu_SetControl(t *testing.T) {
	assert := assert.New(t)

	cf := NewCpu(NewFeatures(FEATURE_CF_ISA_A))
	table := [](struct {
		reg   uint32
		field *uint32
	}){
		{0x002, &cf.CACR},
		{0x004, &cf.ACR[0]},
		{0x007, &cf.ACR[3]},
		{0x801, &cf.VBR},
		{0xc04, &cf.RAMBAR[0]},
		{0xc05, &cf.RAMBAR[1]},
		{0xc0f, &cf.MBAR},
	}
	for _, entry := range table {
		assert.NoError(cf.SetControl(entry.reg, 0x1230|entry.reg))
		assert.Equal(0x1230|entry.reg, *entry.field, "%03x", entry.reg)
	}
	assert.ErrorIs(cf.SetControl(0x003, 0), ErrControlRegister(0))
	assert.ErrorIs(cf.SetControl(0x800, 0), ErrControlRegister(0))

	tlb := &testFlusher{}
	mc := NewCpu(NewFeatures(FEATURE_MMU, FEATURE_USP))
	mc.TLB = tlb
	mmuTable := [](struct {
		reg   uint32
		field *uint32
	}){
		{0x003, &mc.MMU.TC},
		{0x004, &mc.MMU.ITT[0]},
		{0x005, &mc.MMU.ITT[1]},
		{0x006, &mc.MMU.DTT[0]},
		{0x007, &mc.MMU.DTT[1]},
		{0x805, &mc.MMU.MMUSR},
		{0x806, &mc.MMU.URP},
		{0x807, &mc.MMU.SRP},
	}
	for n, entry := range mmuTable {
		assert.NoError(mc.SetControl(entry.reg, 0xabc0|entry.reg))
		assert.Equal(0xabc0|entry.reg, *entry.field, "%03x", entry.reg)
		assert.Equal(n+1, tlb.count)
	}
	assert.NoError(mc.SetControl(0x801, 0x400))
	assert.Equal(len(mmuTable), tlb.count)

	mc.SR = SR_S
	mc.CurrentSP = SP_SUPER
	assert.NoError(mc.SetControl(0x800, 0x7000))
	assert.Equal(uint32(0x7000), mc.USP())
	assert.ErrorIs(mc.SetControl(0x808, 0), ErrControlRegister(0))
}

func TestCpu_String(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(NewFeatures())
	cpu.D[0] = 0xdeadbeef
	cpu.A[1] = 0x00001000
	cpu.F[2] = math.Float64bits(1.5)
	cpu.PC = 0x400
	cpu.SR = SR_S
	cpu.SetCCR(cc.CCR_X | cc.CCR_Z)
	cpu.MACMask = 0xffffffff
	cpu.Acc[1] = 0x123456789abc

	text := cpu.String()
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	assert.Len(lines, 14)
	assert.Equal("D0 = deadbeef   A0 = 00000000   F0 = 0000000000000000 (           0)", lines[0])
	assert.Equal("D2 = 00000000   A2 = 00000000   F2 = 3ff8000000000000 (         1.5)", lines[2])
	assert.Equal("PC = 00000400   SR = 2014 X-Z-- FPRESULT =            0", lines[8])
	assert.Equal("MACSR = 00000000   MASK = ffffffff", lines[9])
	assert.Equal("ACC1 = 123456789abc", lines[11])
}

func TestCpu_Defines(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(NewFeatures())
	defines := map[string]string{}
	for k, v := range cpu.Defines() {
		defines[k] = v
	}
	assert.Equal("0x2000", defines["SR_S"])
	assert.Equal("4", defines["EXCP_ILLEGAL"])
}
