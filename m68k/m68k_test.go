package m68k

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/ir"
)

// testMemory is a flat big-endian RAM starting at address zero.
type testMemory []byte

var errTestBus = errors.New("bus")

const (
	testCodeBase = 0x1000
	testDataBase = 0x5000
	testStack    = 0x8000
)

func newTestMemory() testMemory {
	return make(testMemory, 0x10000)
}

func (mem testMemory) Fetch16(addr uint32) (value uint16, err error) {
	if int(addr)+2 > len(mem) {
		err = errTestBus
		return
	}
	value = binary.BigEndian.Uint16(mem[addr:])
	return
}

func (mem testMemory) Load(addr uint32, op ir.MemOp, index int) (value uint64, err error) {
	size := op.Size()
	if int(addr)+size > len(mem) {
		err = errTestBus
		return
	}
	for n := range size {
		value = value<<8 | uint64(mem[int(addr)+n])
	}
	value = op.Extend(value)
	return
}

func (mem testMemory) Store(addr uint32, op ir.MemOp, value uint64, index int) (err error) {
	size := op.Size()
	if int(addr)+size > len(mem) {
		err = errTestBus
		return
	}
	for n := range size {
		mem[int(addr)+n] = uint8(value >> (8 * (size - 1 - n)))
	}
	return
}

func (mem testMemory) Load32(addr uint32) (value uint32, err error) {
	v, err := mem.Load(addr, ir.MemU32, 0)
	value = uint32(v)
	return
}

func (mem testMemory) Read32(addr uint32) (value uint32, err error) {
	return mem.Load32(addr)
}

func (mem testMemory) Write32(addr uint32, value uint32) (err error) {
	return mem.Store(addr, ir.MemU32, uint64(value), 0)
}

// put writes code words at addr.
func (mem testMemory) put(addr uint32, words ...uint16) {
	for n, w := range words {
		binary.BigEndian.PutUint16(mem[addr+uint32(n)*2:], w)
	}
}

var (
	testColdFire = cpu.NewFeatures(
		cpu.FEATURE_CF_ISA_A,
		cpu.FEATURE_CF_ISA_B,
		cpu.FEATURE_CF_ISA_APLUSC,
		cpu.FEATURE_BRAL,
		cpu.FEATURE_CF_EMAC,
		cpu.FEATURE_CF_FPU,
		cpu.FEATURE_USP,
		cpu.FEATURE_BKPT,
	)
	testM68000 = cpu.NewFeatures(
		cpu.FEATURE_M68000,
		cpu.FEATURE_LONG_MULDIV,
		cpu.FEATURE_EXT_FULL,
		cpu.FEATURE_BKPT,
	)
)

// testRig runs code placed at testCodeBase in supervisor mode.
type testRig struct {
	features cpu.Features
	mem      testMemory
	cpu      *cpu.Cpu
	opts     Options
}

func newTestRig(features cpu.Features, words ...uint16) (rig *testRig) {
	rig = &testRig{
		features: features,
		mem:      newTestMemory(),
		cpu:      cpu.NewCpu(features),
	}
	rig.mem.put(testCodeBase, words...)

	c := rig.cpu
	c.SR = cpu.SR_S | 0x0700
	c.CurrentSP = cpu.SP_SUPER
	c.A[7] = testStack
	c.PC = testCodeBase
	c.MACMask = 0xffffffff
	c.SetCCR(0)
	return
}

// run translates and executes one block of at most insns instructions.
func (rig *testRig) run(insns int) (block *ir.Block, exit ir.Exit, err error) {
	t := NewTranslator(rig.features, rig.mem, rig.opts)
	tb := NewTB(rig.cpu)
	tb.MaxInsns = insns

	block, err = t.Generate(rig.cpu, tb)
	if err != nil {
		return
	}

	m := &ir.Machine{
		Slots: Bind(rig.cpu),
		Mem:   rig.mem,
		Env:   rig.cpu,
	}
	exit, err = m.Run(block)
	return
}

func (rig *testRig) long(addr uint32) uint32 {
	return binary.BigEndian.Uint32(rig.mem[addr:])
}

func TestExecute_ColdFire(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name  string
		code  []uint16
		insns int
		setup func(c *cpu.Cpu)
		check func(rig *testRig)
		ccr   uint8
	}){
		{"moveq_addq", []uint16{0x7005, 0x5680}, 2, nil, func(rig *testRig) {
			assert.Equal(uint32(8), rig.cpu.D[0])
		}, 0},
		{"sub_borrow", []uint16{0x7001, 0x7202, 0x9081}, 3, nil, func(rig *testRig) {
			assert.Equal(uint32(0xffffffff), rig.cpu.D[0])
		}, 0x19},
		{"cmpi_equal", []uint16{0x7003, 0x0c80, 0x0000, 0x0003}, 2, nil, func(rig *testRig) {
			assert.Equal(uint32(3), rig.cpu.D[0])
		}, 0x04},
		{"move_postinc", []uint16{0x41f9, 0x0000, 0x5000, 0x70ff, 0x20c0}, 3, nil, func(rig *testRig) {
			assert.Equal(uint32(0xffffffff), rig.long(testDataBase))
			assert.Equal(uint32(testDataBase+4), rig.cpu.A[0])
		}, 0x08},
		{"mulu_w", []uint16{0x7007, 0x7206, 0xc0c1}, 3, nil, func(rig *testRig) {
			assert.Equal(uint32(42), rig.cpu.D[0])
		}, 0},
		{"divu_w", []uint16{0x203c, 0x0000, 0x0064, 0x7207, 0x80c1}, 3, nil, func(rig *testRig) {
			assert.Equal(uint32(0x0002000e), rig.cpu.D[0])
		}, 0},
		{"lsl_im", []uint16{0x7001, 0xe988}, 2, nil, func(rig *testRig) {
			assert.Equal(uint32(0x10), rig.cpu.D[0])
		}, 0},
		{"swap", []uint16{0x7001, 0x4840}, 2, nil, func(rig *testRig) {
			assert.Equal(uint32(0x10000), rig.cpu.D[0])
		}, 0},
		{"push_pop", []uint16{0x2f3c, 0x1234, 0x5678, 0x241f}, 2, nil, func(rig *testRig) {
			assert.Equal(uint32(0x12345678), rig.cpu.D[2])
			assert.Equal(uint32(testStack), rig.cpu.A[7])
			assert.Equal(uint32(0x12345678), rig.long(testStack-4))
		}, 0},
		{"movem_store", []uint16{0x41f9, 0x0000, 0x5000, 0x48d0, 0x0003}, 2, func(c *cpu.Cpu) {
			c.D[0] = 0x11111111
			c.D[1] = 0x22222222
		}, func(rig *testRig) {
			assert.Equal(uint32(0x11111111), rig.long(testDataBase))
			assert.Equal(uint32(0x22222222), rig.long(testDataBase+4))
		}, 0},
		{"and_or_eor", []uint16{0xc081, 0x8082, 0xb583}, 3, func(c *cpu.Cpu) {
			c.D[0] = 0xff00ff00
			c.D[1] = 0x0ff00ff0
			c.D[2] = 0x00000001
			c.D[3] = 0xffffffff
		}, func(rig *testRig) {
			// and.l d1,d0; or.l d2,d0; eor.l d2,d3
			assert.Equal(uint32(0x0f000f01), rig.cpu.D[0])
			assert.Equal(uint32(0xfffffffe), rig.cpu.D[3])
		}, 0x08},
		{"btst_bset", []uint16{0x0800, 0x0003, 0x08c0, 0x0003}, 2, nil, func(rig *testRig) {
			assert.Equal(uint32(0x08), rig.cpu.D[0])
		}, 0x04},
		{"neg", []uint16{0x7001, 0x4480}, 2, nil, func(rig *testRig) {
			assert.Equal(uint32(0xffffffff), rig.cpu.D[0])
		}, 0x19},
		{"ext_w_l", []uint16{0x7080, 0x4840, 0x303c, 0x8000, 0x48c0}, 4, nil, func(rig *testRig) {
			// moveq #-128; swap; move.w #0x8000,d0; ext.l d0
			assert.Equal(uint32(0xffff8000), rig.cpu.D[0])
		}, 0x08},
		{"divu_l_remainder", []uint16{0x7064, 0x7207, 0x4c41, 0x0002}, 3, nil, func(rig *testRig) {
			// remu.l d1,d2:d0
			assert.Equal(uint32(14), rig.cpu.D[0])
			assert.Equal(uint32(2), rig.cpu.D[2])
		}, 0},
		{"sats", []uint16{0x203c, 0x7fff, 0xffff, 0x5280, 0x4c80}, 3, nil, func(rig *testRig) {
			// addq.l #1 overflows; sats.l saturates to the maximum
			assert.Equal(uint32(0x7fffffff), rig.cpu.D[0])
		}, 0},
		{"mov3q", []uint16{0xa340}, 1, nil, func(rig *testRig) {
			// mov3q #1,d0
			assert.Equal(uint32(1), rig.cpu.D[0])
		}, 0},
		{"mvz_b", []uint16{0x203c, 0x1234, 0x56f0, 0x7180}, 2, nil, func(rig *testRig) {
			// mvz.b d0,d0
			assert.Equal(uint32(0xf0), rig.cpu.D[0])
		}, 0},
		{"ff1", []uint16{0x7010, 0x04c0}, 2, nil, func(rig *testRig) {
			assert.Equal(uint32(27), rig.cpu.D[0])
		}, 0},
		{"link_unlk", []uint16{0x4e56, 0xfff8, 0x4e5e}, 2, func(c *cpu.Cpu) {
			c.A[6] = 0xa5a5a5a5
		}, func(rig *testRig) {
			assert.Equal(uint32(0xa5a5a5a5), rig.cpu.A[6])
			assert.Equal(uint32(testStack), rig.cpu.A[7])
		}, 0},
	}

	for _, entry := range table {
		rig := newTestRig(testColdFire, entry.code...)
		if entry.setup != nil {
			entry.setup(rig.cpu)
		}

		block, _, err := rig.run(entry.insns)
		if !assert.NoError(err, entry.name) {
			continue
		}
		assert.Equal(entry.insns, block.ICount, entry.name)
		assert.Equal(testCodeBase+uint32(len(entry.code))*2, rig.cpu.PC, entry.name)
		entry.check(rig)
		assert.Equal(entry.ccr, rig.cpu.GetCCR(), entry.name)
	}
}

func TestExecute_M68000(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name  string
		code  []uint16
		insns int
		setup func(c *cpu.Cpu)
		check func(rig *testRig)
		ccr   uint8
	}){
		{"add_byte", []uint16{0xd001}, 1, func(c *cpu.Cpu) {
			c.D[0] = 0x123456ff
			c.D[1] = 0x00000001
		}, func(rig *testRig) {
			assert.Equal(uint32(0x12345600), rig.cpu.D[0])
		}, 0x15},
		{"addx_sticky_z", []uint16{0xd181}, 1, func(c *cpu.Cpu) {
			c.D[0] = 0
			c.D[1] = 0
			c.SetCCR(0x04)
		}, func(rig *testRig) {
			assert.Equal(uint32(0), rig.cpu.D[0])
		}, 0x04},
		{"abcd", []uint16{0xc101}, 1, func(c *cpu.Cpu) {
			c.D[0] = 0x45
			c.D[1] = 0x38
			c.SetCCR(0x04)
		}, func(rig *testRig) {
			assert.Equal(uint32(0x83), rig.cpu.D[0])
		}, 0},
		{"sbcd", []uint16{0x8101}, 1, func(c *cpu.Cpu) {
			c.D[0] = 0x10
			c.D[1] = 0x01
			c.SetCCR(0x04)
		}, func(rig *testRig) {
			assert.Equal(uint32(0x09), rig.cpu.D[0])
		}, 0},
		{"asl_word_overflow", []uint16{0xe340}, 1, func(c *cpu.Cpu) {
			c.D[0] = 0x4000
		}, func(rig *testRig) {
			assert.Equal(uint32(0x8000), rig.cpu.D[0])
		}, 0x0a},
		{"rol_byte", []uint16{0xe318}, 1, func(c *cpu.Cpu) {
			c.D[0] = 0x81
		}, func(rig *testRig) {
			assert.Equal(uint32(0x03), rig.cpu.D[0])
		}, 0x01},
		{"roxr_word", []uint16{0xe250}, 1, func(c *cpu.Cpu) {
			c.D[0] = 0x0001
			c.SetCCR(0x10)
		}, func(rig *testRig) {
			assert.Equal(uint32(0x8000), rig.cpu.D[0])
		}, 0x19},
		{"muls_l_overflow", []uint16{0x4c01, 0x0800}, 1, func(c *cpu.Cpu) {
			c.D[0] = 0x10000
			c.D[1] = 0x10000
		}, func(rig *testRig) {
			assert.Equal(uint32(0), rig.cpu.D[0])
		}, 0x06},
		{"dbf_expired", []uint16{0x51c8, 0xfffe}, 1, nil, func(rig *testRig) {
			assert.Equal(uint32(0xffff), rig.cpu.D[0])
		}, 0},
		{"cmpm", []uint16{0xb308}, 1, func(c *cpu.Cpu) {
			c.A[0] = testDataBase
			c.A[1] = testDataBase + 0x10
		}, func(rig *testRig) {
			assert.Equal(uint32(testDataBase+1), rig.cpu.A[0])
			assert.Equal(uint32(testDataBase+0x11), rig.cpu.A[1])
		}, 0x04},
	}

	for _, entry := range table {
		rig := newTestRig(testM68000, entry.code...)
		if entry.setup != nil {
			entry.setup(rig.cpu)
		}

		_, _, err := rig.run(entry.insns)
		if !assert.NoError(err, entry.name) {
			continue
		}
		entry.check(rig)
		assert.Equal(entry.ccr, rig.cpu.GetCCR(), entry.name)
	}
}

func TestExecute_Branch(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		code []uint16
		pc   uint32
		slot int
	}){
		{"bne_taken", []uint16{0x7001, 0x4a80, 0x6604}, 0x100a, 1},
		{"bne_not_taken", []uint16{0x7000, 0x4a80, 0x6604}, 0x1006, 0},
		{"bra_word", []uint16{0x6000, 0x0100}, 0x1102, 0},
		{"bra_long", []uint16{0x60ff, 0x0000, 0x0200}, 0x1202, 0},
	}

	for _, entry := range table {
		rig := newTestRig(testColdFire, entry.code...)
		_, exit, err := rig.run(0)
		if !assert.NoError(err, entry.name) {
			continue
		}
		assert.Equal(ir.ExitChain, exit.Kind, entry.name)
		assert.Equal(entry.slot, exit.Slot, entry.name)
		assert.Equal(entry.pc, rig.cpu.PC, entry.name)
	}
}

func TestExecute_Subroutine(t *testing.T) {
	assert := assert.New(t)

	// bsr.s +4; ... ; rts at the target
	rig := newTestRig(testColdFire, 0x6104, 0x4e71, 0x4e71, 0x4e75)
	_, exit, err := rig.run(0)
	assert.NoError(err)
	assert.Equal(ir.ExitChain, exit.Kind)
	assert.Equal(uint32(0x1006), rig.cpu.PC)
	assert.Equal(uint32(testStack-4), rig.cpu.A[7])
	assert.Equal(uint32(0x1002), rig.long(testStack-4))

	_, exit, err = rig.run(0)
	assert.NoError(err)
	assert.Equal(ir.ExitLookup, exit.Kind)
	assert.Equal(uint32(0x1002), rig.cpu.PC)
	assert.Equal(uint32(testStack), rig.cpu.A[7])

	// jsr (a0)
	rig = newTestRig(testColdFire, 0x4e90)
	rig.cpu.A[0] = 0x2000
	_, _, err = rig.run(0)
	assert.NoError(err)
	assert.Equal(uint32(0x2000), rig.cpu.PC)
	assert.Equal(uint32(0x1002), rig.long(testStack-4))
}

func TestExecute_Exception(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name     string
		features cpu.Features
		user     bool
		code     []uint16
		vector   int
		pc       uint32
	}){
		{"trap", 0, false, []uint16{0x7001, 0x4e41}, cpu.EXCP_TRAP0 + 1, 0x1002},
		{"illegal", 0, false, []uint16{0x4afc}, cpu.EXCP_ILLEGAL, 0x1000},
		{"privilege", 0, true, []uint16{0x4e71, 0x46fc, 0x2700}, cpu.EXCP_PRIVILEGE, 0x1002},
		{"div0", 0, false, []uint16{0x7000, 0x80c0}, cpu.EXCP_DIV0, 0x1004},
		{"line_a", testM68000, false, []uint16{0xa800}, cpu.EXCP_LINEA, 0x1000},
		{"unsupported", 0, false, []uint16{0x4e71, 0x0040}, cpu.EXCP_UNSUPPORTED, 0x1002},
		{"halt", 0, false, []uint16{0x4ac8}, cpu.EXCP_HALT_INSN, 0x1002},
		{"bkpt", 0, false, []uint16{0x4848}, cpu.EXCP_DEBUG, 0x1000},
		{"rte_user", 0, true, []uint16{0x4e73}, cpu.EXCP_PRIVILEGE, 0x1000},
	}

	for _, entry := range table {
		features := entry.features
		if features == 0 {
			features = testColdFire
		}
		rig := newTestRig(features, entry.code...)
		if entry.user {
			rig.cpu.SR = 0
			rig.cpu.CurrentSP = cpu.SP_USER
		}

		_, _, err := rig.run(0)
		var excp *cpu.Exception
		if !assert.ErrorAs(err, &excp, entry.name) {
			continue
		}
		assert.Equal(entry.vector, excp.Vector, entry.name)
		assert.Equal(entry.pc, rig.cpu.PC, entry.name)
	}
}

func TestExecute_MoveToNonAlterable(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		code []uint16
	}){
		{"immediate", []uint16{0x29d0, 0x0000, 0x0001}},         // move.l (a0),#1
		{"pc_disp", []uint16{0x25d0, 0x0010}},                   // move.l (a0),16(pc)
		{"pc_index", []uint16{0x27d0, 0x0800}},                  // move.l (a0),0(pc,d0.l)
		{"immediate_postinc", []uint16{0x29d8, 0x0000, 0x0001}}, // move.l (a0)+,#1
	}

	for _, entry := range table {
		rig := newTestRig(testColdFire, entry.code...)
		// The source is unmapped; its access fault must not be taken.
		rig.cpu.A[0] = 0x00fffff0

		_, _, err := rig.run(0)
		var excp *cpu.Exception
		if !assert.ErrorAs(err, &excp, entry.name) {
			continue
		}
		assert.NotErrorIs(err, errTestBus, entry.name)
		assert.Equal(cpu.EXCP_ADDRESS, excp.Vector, entry.name)
		assert.Equal(uint32(0x1000), rig.cpu.PC, entry.name)
		assert.Equal(uint32(0x00fffff0), rig.cpu.A[0], entry.name)
	}
}

func TestExecute_FaultKeepsRegisters(t *testing.T) {
	assert := assert.New(t)

	// move.l (a0)+,(a1)+ with an unmapped destination.
	rig := newTestRig(testColdFire, 0x22d8)
	rig.cpu.A[0] = testDataBase
	rig.cpu.A[1] = 0x00fffff0

	block, _, err := rig.run(1)
	var run *ir.ErrRun
	if !assert.ErrorAs(err, &run) {
		return
	}
	assert.ErrorIs(err, errTestBus)
	assert.Equal(uint32(testDataBase), rig.cpu.A[0])
	assert.Equal(uint32(0x00fffff0), rig.cpu.A[1])

	assert.True(RestoreState(rig.cpu, block, run.Offset))
	assert.Equal(uint32(testCodeBase), rig.cpu.PC)
}

func TestExecute_Mac(t *testing.T) {
	assert := assert.New(t)

	// mac.l d1,d2,acc0 in signed integer mode
	rig := newTestRig(testColdFire, 0xa202, 0x0800)
	rig.cpu.MACSR = cpu.MACSR_SU
	rig.cpu.D[1] = 6
	rig.cpu.D[2] = 7
	rig.cpu.Acc[0] = 100

	_, _, err := rig.run(1)
	assert.NoError(err)
	assert.Equal(uint64(142), rig.cpu.Acc[0])

	// move.l acc0,d3
	rig.mem.put(rig.cpu.PC, 0xa183)
	_, _, err = rig.run(1)
	assert.NoError(err)
	assert.Equal(uint32(142), rig.cpu.D[3])
}

func TestExecute_Fpu(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// fmove.l d0,fp0; fadd.l d1,fp0; fmove.l fp0,d2
	rig := newTestRig(testColdFire,
		0xf200, 0x4000,
		0xf201, 0x4022,
		0xf202, 0x6000,
	)
	rig.cpu.D[0] = 40
	rig.cpu.D[1] = 2

	_, _, err := rig.run(3)
	require.NoError(err)
	assert.Equal(uint32(42), rig.cpu.D[2])

	// fbgt taken on the positive result
	rig.mem.put(rig.cpu.PC, 0xf292, 0x0010)
	pc := rig.cpu.PC
	_, exit, err := rig.run(1)
	require.NoError(err)
	assert.Equal(1, exit.Slot)
	assert.Equal(pc+2+0x10, rig.cpu.PC)
}
