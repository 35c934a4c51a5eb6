package emulator

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/io"
	"github.com/ezrec/cf68k/m68k"
)

const (
	testStack   = 0x8000
	testEntry   = 0x400
	testTrap    = 0x600
	testAccess  = 0x700
	testUart    = 0x10000
	testRamSize = 0x10000
)

var testFeatures = cpu.NewFeatures(
	cpu.FEATURE_CF_ISA_A,
	cpu.FEATURE_CF_ISA_B,
	cpu.FEATURE_BRAL,
	cpu.FEATURE_USP,
	cpu.FEATURE_BKPT,
)

func put16(data []byte, addr uint32, words ...uint16) {
	for n, w := range words {
		binary.BigEndian.PutUint16(data[addr+uint32(n)*2:], w)
	}
}

func newTestEmulator(t *testing.T, opts m68k.Options, code ...uint16) (emu *Emulator, ram *io.Ram, out *bytes.Buffer) {
	bus := &io.Bus{}
	ram = io.NewRam(testRamSize)
	out = &bytes.Buffer{}
	require.NoError(t, bus.Map("ram", 0, testRamSize, ram))
	require.NoError(t, bus.Map("uart", testUart, io.UART_SIZE, &io.Uart{Output: out}))

	binary.BigEndian.PutUint32(ram.Data[0:], testStack)
	binary.BigEndian.PutUint32(ram.Data[4:], testEntry)
	binary.BigEndian.PutUint32(ram.Data[cpu.EXCP_ACCESS*4:], testAccess)
	binary.BigEndian.PutUint32(ram.Data[cpu.EXCP_TRAP0*4:], testTrap)
	put16(ram.Data, testAccess, 0x4ac8)
	put16(ram.Data, testEntry, code...)

	emu = NewEmulator(testFeatures, bus, opts)
	require.NoError(t, emu.Reset())
	return
}

func TestEmulator_Reset(t *testing.T) {
	assert := assert.New(t)

	emu, _, _ := newTestEmulator(t, m68k.Options{})

	assert.False(emu.Verbose)
	assert.Nil(emu.Walker)
	assert.Equal(uint32(testEntry), emu.Cpu.PC)
	assert.Equal(uint32(testStack), emu.Cpu.A[7])
	assert.False(emu.Cpu.IsUser())
}

func TestEmulator_Loop(t *testing.T) {
	assert := assert.New(t)

	emu, _, _ := newTestEmulator(t, m68k.Options{},
		0x7000, // moveq #0,d0
		0x720a, // moveq #10,d1
		0xd081, // add.l d1,d0
		0x5381, // subq.l #1,d1
		0x66fa, // bne.s -6
		0x4ac8, // halt
	)

	err := emu.Run(context.Background(), 1000)
	assert.NoError(err)
	assert.Equal(uint32(55), emu.Cpu.D[0])
	assert.NotZero(emu.Cpu.Halted)
	assert.Equal(uint32(testEntry+12), emu.Cpu.PC)

	assert.Positive(emu.Stats.Chained)
	assert.Less(emu.Stats.Translated, emu.Stats.Blocks)

	done, err := emu.Tick()
	assert.NoError(err)
	assert.True(done)
}

func TestEmulator_Trap(t *testing.T) {
	assert := assert.New(t)

	emu, ram, _ := newTestEmulator(t, m68k.Options{},
		0x4e40, // trap #0
		0x4ac8, // halt
	)
	put16(ram.Data, testTrap,
		0x742a, // moveq #42,d2
		0x4e73, // rte
	)

	err := emu.Run(context.Background(), 100)
	assert.NoError(err)
	assert.Equal(uint32(42), emu.Cpu.D[2])
	assert.Equal(uint32(testEntry+4), emu.Cpu.PC)
	assert.Equal(uint32(testStack), emu.Cpu.A[7])
	assert.Positive(emu.Stats.Exceptions)
}

func TestEmulator_AccessFault(t *testing.T) {
	assert := assert.New(t)

	emu, ram, _ := newTestEmulator(t, m68k.Options{},
		0x7001,                 // moveq #1,d0
		0x23c0, 0x00f0, 0x0000, // move.l d0,$f00000
	)

	err := emu.Run(context.Background(), 100)
	assert.NoError(err)
	assert.NotZero(emu.Cpu.Halted)
	assert.Equal(uint32(testAccess+2), emu.Cpu.PC)

	// The frame returns to the faulting instruction.
	assert.Equal(uint32(testEntry+2), binary.BigEndian.Uint32(ram.Data[testStack-4:]))
	format := binary.BigEndian.Uint32(ram.Data[testStack-8:])
	assert.Equal(uint32(cpu.EXCP_ACCESS*4), (format>>16)&0x3fc)
}

func TestEmulator_Breakpoint(t *testing.T) {
	assert := assert.New(t)

	emu, _, _ := newTestEmulator(t, m68k.Options{Breakpoints: []uint32{testEntry + 2}},
		0x7001, // moveq #1,d0
		0x7202, // moveq #2,d1
		0x4ac8, // halt
	)

	err := emu.Run(context.Background(), 100)
	assert.ErrorIs(err, ErrBreakpoint)
	var rerr *ErrRuntime
	if assert.ErrorAs(err, &rerr) {
		assert.Equal(uint32(testEntry+2), rerr.PC)
	}
	assert.Equal(uint32(1), emu.Cpu.D[0])
	assert.Equal(uint32(0), emu.Cpu.D[1])

	err = emu.Run(context.Background(), 100)
	assert.NoError(err)
	assert.Equal(uint32(2), emu.Cpu.D[1])
	assert.NotZero(emu.Cpu.Halted)
}

func TestEmulator_Watch(t *testing.T) {
	assert := assert.New(t)

	emu, ram, _ := newTestEmulator(t, m68k.Options{},
		0x41f8, 0x2000, // lea $2000.w,a0
		0x7005,         // moveq #5,d0
		0x2080,         // move.l d0,(a0)
		0x7206,         // moveq #6,d1
		0x4ac8,         // halt
	)
	emu.Watch(0x2000, 4, true)

	err := emu.Run(context.Background(), 100)
	assert.ErrorIs(err, ErrWatchpoint)
	var werr *ErrWatch
	if assert.ErrorAs(err, &werr) {
		assert.Equal(uint32(0x2000), werr.Address)
		assert.True(werr.Write)
	}
	assert.Equal(uint32(5), binary.BigEndian.Uint32(ram.Data[0x2000:]))
	assert.Equal(uint32(testEntry+8), emu.Cpu.PC)
	assert.Equal(uint32(0), emu.Cpu.D[1])

	err = emu.Run(context.Background(), 100)
	assert.NoError(err)
	assert.Equal(uint32(6), emu.Cpu.D[1])
}

func TestEmulator_Uart(t *testing.T) {
	assert := assert.New(t)

	emu, _, out := newTestEmulator(t, m68k.Options{},
		0x13fc, 0x0068, 0x0001, 0x0003, // move.b #'h',$10003
		0x13fc, 0x0069, 0x0001, 0x0003, // move.b #'i',$10003
		0x4ac8, // halt
	)

	err := emu.Run(context.Background(), 100)
	assert.NoError(err)
	assert.Equal("hi", out.String())
}

func TestEmulator_Prewarm(t *testing.T) {
	assert := assert.New(t)

	emu, _, _ := newTestEmulator(t, m68k.Options{},
		0x7000, 0x720a, 0xd081, 0x5381, 0x66fa, 0x4ac8,
	)

	err := emu.Prewarm(context.Background(), []uint32{testEntry, testEntry + 4, testEntry + 10})
	assert.NoError(err)
	assert.Len(emu.cache, 3)

	err = emu.Run(context.Background(), 1000)
	assert.NoError(err)
	assert.Equal(uint32(55), emu.Cpu.D[0])
	assert.Zero(emu.Stats.Translated)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	emu.Flush()
	err = emu.Prewarm(ctx, []uint32{testEntry})
	assert.True(errors.Is(err, context.Canceled))
}

func TestEmulator_Defines(t *testing.T) {
	assert := assert.New(t)

	emu, _, _ := newTestEmulator(t, m68k.Options{})

	defines := map[string]string{}
	for key, value := range emu.Defines() {
		defines[key] = value
	}
	assert.Equal("0x10000", defines["UART_BASE"])
	assert.Equal("0x0", defines["RAM_BASE"])
	assert.Contains(defines, "CACHE_SIZE")
	assert.Contains(defines, "EXCP_TRAP0")
}
