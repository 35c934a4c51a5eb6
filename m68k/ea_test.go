package m68k

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/decode"
)

var testFullEA = cpu.NewFeatures(
	cpu.FEATURE_M68000,
	cpu.FEATURE_EXT_FULL,
	cpu.FEATURE_WORD_INDEX,
	cpu.FEATURE_SCALED_INDEX,
	cpu.FEATURE_LONG_MULDIV,
)

// eaRig fills the data area with pointers back into itself, so memory
// indirect modes land on readable memory.
func eaRig(features cpu.Features, words ...uint16) (rig *testRig) {
	rig = newTestRig(features, words...)
	for addr := uint32(0x2000); addr < 0x7000; addr += 4 {
		binary.BigEndian.PutUint32(rig.mem[addr:], 0x3000+((addr*7)&0xffc))
	}

	c := rig.cpu
	c.A[0] = 0x3000
	c.A[2] = 0x0040
	c.D[1] = 0xfffffff0
	c.D[3] = 0x00000008
	return
}

// eaReference decodes the operand at the extension words and returns the
// address the reference model computes, plus the PC after the operand.
func eaReference(t *testing.T, rig *testRig, mode, reg int, size decode.Size) (addr uint32, next uint32) {
	r := decode.NewReader(rig.mem, testCodeBase+2)
	ea, err := decode.DecodeEA(r, mode, reg, size, rig.features)
	require.NoError(t, err)
	require.NotEqual(t, decode.ModeInvalid, ea.Mode)

	addr, err = ea.Address(rig.cpu, rig.mem)
	require.NoError(t, err)
	next = r.PC
	return
}

var eaTable = [](struct {
	name     string
	mode     int
	reg      int
	ext      []uint16
	coldfire bool // Also valid on ColdFire.
	leaOnly  bool // Address is outside test memory.
}){
	{"indirect", 2, 0, nil, true, false},
	{"disp", 5, 0, []uint16{0x0010}, true, false},
	{"disp_negative", 5, 0, []uint16{0xff80}, true, false},
	{"index_long", 6, 0, []uint16{0x1804}, true, false},
	{"index_word", 6, 0, []uint16{0x1010}, false, false},
	{"index_addr_scaled", 6, 0, []uint16{0xacfe}, true, false},
	{"abs_short", 7, 0, []uint16{0x2468}, true, false},
	{"abs_short_negative", 7, 0, []uint16{0x8000}, true, true},
	{"abs_long", 7, 1, []uint16{0x0000, 0x3456}, true, false},
	{"pc_disp", 7, 2, []uint16{0x0100}, true, false},
	{"pc_index", 7, 3, []uint16{0x3808}, true, false},
	{"full_bd_word", 6, 0, []uint16{0x1920, 0x0100}, false, false},
	{"full_base_suppressed", 6, 0, []uint16{0x19b0, 0x0000, 0x4000}, false, false},
	{"full_index_suppressed", 6, 0, []uint16{0x0160, 0x0200}, false, false},
	{"preindexed", 6, 0, []uint16{0x1921, 0x0100}, false, false},
	{"preindexed_outer_word", 6, 0, []uint16{0x1922, 0x0100, 0x0010}, false, false},
	{"postindexed_outer_long", 6, 0, []uint16{0x1927, 0x0100, 0x0000, 0x0020}, false, false},
	{"postindexed_word", 6, 0, []uint16{0x1125, 0x0080}, false, false},
	{"indirect_index_suppressed", 6, 0, []uint16{0x0161, 0x0040}, false, false},
	{"pc_preindexed", 7, 3, []uint16{0x3921, 0x1000}, false, false},
}

func TestEA_Lea(t *testing.T) {
	for _, features := range []cpu.Features{testFullEA, testColdFire} {
		for _, entry := range eaTable {
			if features == testColdFire && !entry.coldfire {
				continue
			}
			t.Run(features.String()+"/"+entry.name, func(t *testing.T) {
				opcode := uint16(0x43c0 | entry.mode<<3 | entry.reg)
				rig := eaRig(features, append([]uint16{opcode}, entry.ext...)...)
				addr, next := eaReference(t, rig, entry.mode, entry.reg, decode.OS_NONE)

				_, _, err := rig.run(1)
				require.NoError(t, err)
				assert.Equal(t, addr, rig.cpu.A[1])
				assert.Equal(t, next, rig.cpu.PC)
			})
		}
	}
}

func TestEA_Load(t *testing.T) {
	for _, entry := range eaTable {
		if entry.leaOnly {
			continue
		}
		t.Run(entry.name, func(t *testing.T) {
			opcode := uint16(0x2e00 | entry.mode<<3 | entry.reg)
			rig := eaRig(testFullEA, append([]uint16{opcode}, entry.ext...)...)
			addr, next := eaReference(t, rig, entry.mode, entry.reg, decode.OS_LONG)

			_, _, err := rig.run(1)
			require.NoError(t, err)
			assert.Equal(t, rig.long(addr), rig.cpu.D[7])
			assert.Equal(t, next, rig.cpu.PC)
		})
	}
}

func TestEA_Step(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name     string
		features cpu.Features
		code     uint16
		mode     int
		reg      int
		size     decode.Size
		delta    int32
	}){
		{"postinc_long", testColdFire, 0x2e18, 3, 0, decode.OS_LONG, 4},
		{"predec_long", testColdFire, 0x2e20, 4, 0, decode.OS_LONG, -4},
		{"postinc_byte", testColdFire, 0x1e18, 3, 0, decode.OS_BYTE, 1},
		{"postinc_byte_sp", testColdFire, 0x1e1f, 3, 7, decode.OS_BYTE, 1},
		{"postinc_byte_sp_m68000", testFullEA, 0x1e1f, 3, 7, decode.OS_BYTE, 2},
		{"predec_byte_sp_m68000", testFullEA, 0x1e27, 4, 7, decode.OS_BYTE, -2},
	}

	for _, entry := range table {
		rig := eaRig(entry.features, entry.code)
		rig.cpu.A[7] = 0x3000
		before := rig.cpu.A[entry.reg]
		addr, _ := eaReference(t, rig, entry.mode, entry.reg, entry.size)

		var want uint32
		if entry.size == decode.OS_BYTE {
			want = uint32(rig.mem[addr])
		} else {
			want = rig.long(addr)
		}

		_, _, err := rig.run(1)
		if !assert.NoError(err, entry.name) {
			continue
		}
		assert.Equal(want, rig.cpu.D[7], entry.name)
		assert.Equal(before+uint32(entry.delta), rig.cpu.A[entry.reg], entry.name)
	}
}

func FuzzLea(f *testing.F) {
	for _, entry := range eaTable {
		var w [4]uint16
		copy(w[:], entry.ext)
		f.Add(uint8(entry.mode), uint8(entry.reg), w[0], w[1], w[2], w[3], uint32(0x3000), uint32(0xfffffff0))
	}

	f.Fuzz(func(t *testing.T, mode, reg uint8, w0, w1, w2, w3 uint16, a0, d1 uint32) {
		opcode := uint16(0x43c0 | int(mode&7)<<3 | int(reg&7))
		rig := eaRig(testFullEA, opcode, w0, w1, w2, w3)
		rig.cpu.A[0] = a0
		rig.cpu.D[1] = d1

		r := decode.NewReader(rig.mem, testCodeBase+2)
		ea, err := decode.DecodeEA(r, int(mode&7), int(reg&7), decode.OS_NONE, rig.features)
		if err != nil || ea.Mode == decode.ModeInvalid || !ea.Mode.Memory() {
			t.Skip()
		}
		addr, err := ea.Address(rig.cpu, rig.mem)
		if err != nil {
			t.Skip()
		}

		_, _, err = rig.run(1)
		require.NoError(t, err)
		assert.Equal(t, addr, rig.cpu.A[1])
		assert.Equal(t, r.PC, rig.cpu.PC)
	})
}
