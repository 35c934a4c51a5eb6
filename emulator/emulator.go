// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator runs guest code: it looks up or translates the block at
// the current PC, executes it, follows chained exits and delivers
// exceptions through the guest vector table.
package emulator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/internal"
	"github.com/ezrec/cf68k/io"
	"github.com/ezrec/cf68k/ir"
	"github.com/ezrec/cf68k/m68k"
	"github.com/ezrec/cf68k/mmu"
)

const (
	CACHE_SIZE = 4096 // Blocks kept before the cache is flushed.
)

var _emulator_defines = map[string]string{
	"CACHE_SIZE": fmt.Sprintf("%v", CACHE_SIZE),
}

// blockKey is the state a block was translated for.
type blockKey struct {
	pc    uint32
	user  bool
	fpcr  uint32
	macsr uint32
}

func keyOf(tb *m68k.TB) blockKey {
	return blockKey{pc: tb.PC, user: tb.User, fpcr: tb.FPCR, macsr: tb.MACSR}
}

// Stats counts emulator activity since the last reset.
type Stats struct {
	Blocks     int // Blocks executed.
	Translated int // Blocks translated.
	Chained    int // Block lookups skipped through a chain link.
	Exceptions int // Exceptions delivered to the guest.
}

// Emulator state. CPU + bus + translation cache.
type Emulator struct {
	Verbose  bool // If set, enables verbose logging.
	*cpu.Cpu      // Reference to the CPU state.
	Bus      *io.Bus
	Walker   *mmu.Walker // Nil unless the core has an MMU.
	Stats    Stats

	memory      *memory
	translators [2]*m68k.Translator // Supervisor and user code.
	stepper     [2]*m68k.Translator // One instruction, no breakpoints.
	machine     ir.Machine

	lock  sync.Mutex
	cache map[blockKey]*ir.Block
	links map[*ir.Block]*[2]*ir.Block

	last     *ir.Block // Block that exited through a chain slot.
	lastSlot int
	resume   bool // Step over a breakpoint on the next Tick.
}

// NewEmulator creates an emulator for a core with the given features,
// running out of bus.
func NewEmulator(features cpu.Features, bus *io.Bus, opts m68k.Options) (emu *Emulator) {
	emu = &Emulator{
		Cpu:   cpu.NewCpu(features),
		Bus:   bus,
		cache: make(map[blockKey]*ir.Block),
		links: make(map[*ir.Block]*[2]*ir.Block),
	}

	emu.memory = &memory{cpu: emu.Cpu, bus: bus}
	if features.Has(cpu.FEATURE_MMU) {
		emu.Walker = mmu.NewWalker(&emu.Cpu.MMU, bus)
		emu.memory.walker = emu.Walker
	}
	emu.Cpu.TLB = emu

	step := opts
	step.Breakpoints = nil
	step.SingleStep = false
	step.MaxInsns = 1
	for n, super := range []bool{true, false} {
		mem := code{memory: emu.memory, super: super}
		emu.translators[n] = m68k.NewTranslator(features, mem, opts)
		emu.stepper[n] = m68k.NewTranslator(features, mem, step)
	}

	emu.machine = ir.Machine{
		Slots: m68k.Bind(emu.Cpu),
		Mem:   emu.memory,
		Env:   emu.Cpu,
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
		emu.Bus.Defines(),
	)
}

// Flush drops every translated block and cached address translation. It
// is called by the core whenever an MMU register changes.
func (emu *Emulator) Flush() {
	if emu.Walker != nil {
		emu.memory.lock.Lock()
		emu.Walker.Flush()
		emu.memory.lock.Unlock()
	}

	emu.lock.Lock()
	clear(emu.cache)
	clear(emu.links)
	emu.lock.Unlock()

	emu.last = nil
}

// Watch stops execution after an instruction that accesses the range.
// Blocks are retranslated to end after every memory access.
func (emu *Emulator) Watch(addr, size uint32, writeOnly bool) {
	emu.memory.watches = append(emu.memory.watches, watch{addr: addr, size: size, write: writeOnly})
	for _, t := range emu.translators {
		t.Watchpoints = true
	}
	emu.Flush()
}

// Reset the core from the vector table.
func (emu *Emulator) Reset() (err error) {
	emu.Flush()
	emu.Stats = Stats{}
	emu.resume = false
	emu.memory.hits = nil

	emu.Cpu.Verbose = emu.Verbose
	err = emu.Cpu.Reset(emu.memory)
	return
}

func (emu *Emulator) mode() int {
	if emu.Cpu.IsUser() {
		return 1
	}
	return 0
}

// translate a block, outside of the cache lock.
func (emu *Emulator) translate(t *m68k.Translator, tb *m68k.TB) (block *ir.Block, err error) {
	block, err = t.Generate(emu.Cpu, tb)
	if err != nil {
		return
	}

	if emu.Verbose {
		logrus.WithFields(logrus.Fields{
			"pc":    fmt.Sprintf("%08x", block.PC),
			"insns": block.ICount,
		}).Debug("emulator: translated")
	}
	return
}

func (emu *Emulator) insert(key blockKey, block *ir.Block) {
	emu.lock.Lock()
	defer emu.lock.Unlock()

	if len(emu.cache) >= CACHE_SIZE {
		clear(emu.cache)
		clear(emu.links)
	}
	emu.cache[key] = block
}

// lookup returns the block for the current state, translating it if
// needed.
func (emu *Emulator) lookup() (block *ir.Block, err error) {
	tb := m68k.NewTB(emu.Cpu)
	key := keyOf(tb)

	if emu.last != nil {
		emu.lock.Lock()
		link := emu.links[emu.last]
		emu.lock.Unlock()
		if link != nil && link[emu.lastSlot] != nil && link[emu.lastSlot].PC == tb.PC {
			emu.Stats.Chained++
			block = link[emu.lastSlot]
			return
		}
	}

	emu.lock.Lock()
	block = emu.cache[key]
	emu.lock.Unlock()

	if block == nil {
		block, err = emu.translate(emu.translators[emu.mode()], tb)
		if err != nil {
			return
		}
		emu.Stats.Translated++
		emu.insert(key, block)
	}

	if emu.last != nil {
		emu.lock.Lock()
		link := emu.links[emu.last]
		if link == nil {
			link = &[2]*ir.Block{}
			emu.links[emu.last] = link
		}
		link[emu.lastSlot] = block
		emu.lock.Unlock()
	}

	return
}

// Prewarm translates the blocks at pcs concurrently, for the current
// privilege level and FPU/MAC modes.
func (emu *Emulator) Prewarm(ctx context.Context, pcs []uint32) (err error) {
	proto := m68k.NewTB(emu.Cpu)
	t := emu.translators[emu.mode()]

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, pc := range pcs {
		g.Go(func() (err error) {
			if err = ctx.Err(); err != nil {
				return
			}
			tb := *proto
			tb.PC = pc
			key := keyOf(&tb)

			emu.lock.Lock()
			_, ok := emu.cache[key]
			emu.lock.Unlock()
			if ok {
				return
			}

			block, err := t.Generate(emu.Cpu, &tb)
			if err != nil {
				return
			}
			emu.insert(key, block)
			return
		})
	}

	err = g.Wait()
	return
}

// Tick executes one block. done is set when the core halts.
func (emu *Emulator) Tick() (done bool, err error) {
	c := emu.Cpu
	c.Verbose = emu.Verbose

	if c.Halted != 0 {
		done = true
		return
	}

	var block *ir.Block
	if emu.resume {
		// Run the instruction under the breakpoint on its own.
		emu.resume = false
		emu.last = nil
		block, err = emu.translate(emu.stepper[emu.mode()], m68k.NewTB(c))
	} else {
		block, err = emu.lookup()
	}
	if err != nil {
		err = &ErrRuntime{PC: c.PC, Err: err}
		return
	}

	exit, err := emu.machine.Run(block)
	emu.Stats.Blocks++
	emu.last = nil
	if err != nil {
		err = emu.exception(block, err)
		done = c.Halted != 0
		return
	}

	if exit.Kind == ir.ExitChain {
		emu.last = block
		emu.lastSlot = exit.Slot
	}

	if len(emu.memory.hits) > 0 {
		hit := emu.memory.hits[0]
		emu.memory.hits = nil
		err = &ErrRuntime{PC: c.PC, Err: hit}
	}

	return
}

// exception handles a block that stopped with an error. Guest exceptions
// are delivered; debug stops and host errors are returned.
func (emu *Emulator) exception(block *ir.Block, runErr error) (err error) {
	c := emu.Cpu

	var run *ir.ErrRun
	var excp *cpu.Exception
	var berr *io.ErrBus

	vector := 0
	fault := false
	switch {
	case errors.As(runErr, &excp):
		vector = excp.Vector
		fault = excp.Fault
	case errors.As(runErr, &berr):
		vector = cpu.EXCP_ACCESS
		fault = true
	default:
		err = &ErrRuntime{PC: c.PC, Err: runErr}
		return
	}

	if fault && errors.As(runErr, &run) {
		m68k.RestoreState(c, block, run.Offset)
	}
	emu.memory.hits = nil

	if vector == cpu.EXCP_DEBUG {
		emu.resume = true
		err = &ErrRuntime{PC: c.PC, Err: ErrBreakpoint}
		return
	}

	emu.Stats.Exceptions++
	err = c.DoException(emu.memory, vector)
	if err != nil {
		err = &ErrRuntime{PC: c.PC, Err: errors.Join(runErr, err)}
	}
	return
}

// Run executes blocks until the core halts, the context is done or an
// error stops execution. A positive limit bounds the blocks executed.
func (emu *Emulator) Run(ctx context.Context, limit int) (err error) {
	for n := 0; limit <= 0 || n < limit; n++ {
		if err = ctx.Err(); err != nil {
			return
		}
		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}
	}
	return
}
