package emulator

import (
	"sync"

	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/io"
	"github.com/ezrec/cf68k/ir"
	"github.com/ezrec/cf68k/mmu"
)

// watch is a guest address range that stops execution when accessed.
type watch struct {
	addr  uint32
	size  uint32
	write bool // Only writes hit.
}

func (w watch) hit(addr uint32, size int, write bool) bool {
	if w.write && !write {
		return false
	}
	return uint64(addr)+uint64(size) > uint64(w.addr) && uint64(addr) < uint64(w.addr)+uint64(w.size)
}

// memory is the guest view of the bus seen through the MMU. It serves
// generated code (ir.Memory), the translator (instruction fetch) and
// exception processing (cpu.Memory).
type memory struct {
	cpu    *cpu.Cpu
	bus    *io.Bus
	walker *mmu.Walker // Nil without an MMU.

	lock    sync.Mutex // Guards the walker TLB.
	watches []watch
	hits    []*ErrWatch
}

var _ ir.Memory = (*memory)(nil)
var _ cpu.Memory = (*memory)(nil)

// translate maps a logical address. A failure is reported as an
// mmu.ErrFault.
func (m *memory) translate(addr uint32, access mmu.Access, super bool) (phys uint32, err error) {
	if m.walker == nil {
		phys = addr
		return
	}

	m.lock.Lock()
	res, status := m.walker.Translate(addr, access, super)
	m.lock.Unlock()
	if status.Failed() {
		err = &mmu.ErrFault{Address: addr, Access: access, Status: status}
		return
	}
	phys = res.Phys
	return
}

// translateData raises an access error for a failed data translation.
func (m *memory) translateData(addr uint32, access mmu.Access, super bool) (phys uint32, err error) {
	phys, err = m.translate(addr, access, super)
	if err != nil {
		err = m.cpu.Fault(cpu.EXCP_ACCESS, addr)
	}
	return
}

func (m *memory) watched(addr uint32, size int, write bool) {
	for _, w := range m.watches {
		if w.hit(addr, size, write) {
			m.hits = append(m.hits, &ErrWatch{Address: addr, Write: write})
			return
		}
	}
}

// Load is a data read; index 0 is supervisor, 1 is user.
func (m *memory) Load(addr uint32, op ir.MemOp, index int) (value uint64, err error) {
	phys, err := m.translateData(addr, mmu.ACCESS_READ, index == 0)
	if err != nil {
		return
	}
	m.watched(addr, op.Size(), false)
	return m.bus.Load(phys, op, index)
}

// Store is a data write.
func (m *memory) Store(addr uint32, op ir.MemOp, value uint64, index int) (err error) {
	phys, err := m.translateData(addr, mmu.ACCESS_WRITE, index == 0)
	if err != nil {
		return
	}
	m.watched(addr, op.Size(), true)
	return m.bus.Store(phys, op, value, index)
}

// Read32 reads exception frames and vectors in supervisor mode.
func (m *memory) Read32(addr uint32) (value uint32, err error) {
	v, err := m.Load(addr, ir.MemU32, 0)
	value = uint32(v)
	return
}

// Write32 writes exception frames in supervisor mode.
func (m *memory) Write32(addr uint32, value uint32) (err error) {
	return m.Store(addr, ir.MemU32, uint64(value), 0)
}

// code fetches instructions for one privilege level.
type code struct {
	*memory
	super bool
}

func (c code) Fetch16(addr uint32) (value uint16, err error) {
	phys, err := c.translate(addr, mmu.ACCESS_CODE, c.super)
	if err != nil {
		return
	}
	return c.bus.Fetch16(phys)
}
