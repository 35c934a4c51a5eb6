package mmu

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Translation control register bits.
const (
	TC_ENABLE  = uint32(0x8000) // Translation enabled.
	TC_PAGE_8K = uint32(0x4000) // 8 KiB pages instead of 4 KiB.
)

// Transparent translation register fields.
const (
	TT_BASE_SHIFT = 24
	TT_MASK_SHIFT = 16
	TT_ENABLE     = uint32(0x8000)
	TT_SFIELD     = uint32(0x6000) // Supervisor match field.
	TT_S_USER     = uint32(0x0000)
	TT_S_SUPER    = uint32(0x2000)
	TT_WRITE      = uint32(0x0004) // Write protected.
)

// Descriptor bits shared by the table levels.
const (
	DESC_UDT_MASK   = uint32(0x3)
	DESC_RESIDENT   = uint32(0x2) // Root and pointer: resident when bit 1 set.
	DESC_PDT_MASK   = uint32(0x3)
	DESC_PDT_INDIR  = uint32(0x2) // Page: indirect descriptor.
	DESC_WRITE      = uint32(0x4)
	DESC_USED       = uint32(0x8)
	DESC_MODIFIED   = uint32(0x10)
	DESC_SUPER      = uint32(0x80)
	DESC_ROOT_ADDR  = uint32(0xfffffe00)
	DESC_PTR_ADDR4K = uint32(0xffffff00)
	DESC_PTR_ADDR8K = uint32(0xffffff80)
	DESC_INDIR_ADDR = uint32(0xfffffffc)
)

// MMUSR bits reported by the last failing walk.
const (
	MMUSR_RESIDENT  = uint32(0x001)
	MMUSR_TT        = uint32(0x002)
	MMUSR_WRITE     = uint32(0x004)
	MMUSR_SUPER     = uint32(0x080)
	MMUSR_BUS_ERROR = uint32(0x800)
)

// Registers is the MMU register file.
type Registers struct {
	TC    uint32    // Translation control.
	URP   uint32    // User root pointer.
	SRP   uint32    // Supervisor root pointer.
	ITT   [2]uint32 // Instruction transparent translation.
	DTT   [2]uint32 // Data transparent translation.
	MMUSR uint32    // Status of the last walk.
}

// Enabled returns true if table walks are active.
func (r *Registers) Enabled() bool {
	return r.TC&TC_ENABLE != 0
}

// PageSize returns the translation page size in bytes.
func (r *Registers) PageSize() uint32 {
	if r.TC&TC_PAGE_8K != 0 {
		return 8192
	}
	return 4096
}

// Access is the kind of memory access being translated.
type Access uint8

const (
	ACCESS_READ  = Access(0) // read
	ACCESS_WRITE = Access(1) // write
	ACCESS_CODE  = Access(2) // code
)

func (a Access) String() string {
	switch a {
	case ACCESS_READ:
		return "read"
	case ACCESS_WRITE:
		return "write"
	case ACCESS_CODE:
		return "code"
	}
	return fmt.Sprintf("Access(%d)", int(a))
}

// Prot is the protection of a translated page.
type Prot uint8

const (
	PROT_READ  = Prot(1 << 0)
	PROT_WRITE = Prot(1 << 1)
	PROT_EXEC  = Prot(1 << 2)
	PROT_SUPER = Prot(1 << 3) // Supervisor only.
)

// Status is the outcome of a translation. Failures are negative.
type Status int

const (
	StatusOK           = Status(0)
	StatusInvalid      = Status(-1) // Descriptor invalid.
	StatusWriteProtect = Status(-2) // Write to a protected page.
	StatusSupervisor   = Status(-3) // User access to a supervisor page.
	StatusBus          = Status(-4) // Table fetch failed.
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return f("ok")
	case StatusInvalid:
		return f("descriptor invalid")
	case StatusWriteProtect:
		return f("write protected")
	case StatusSupervisor:
		return f("supervisor only")
	case StatusBus:
		return f("table bus error")
	}
	return f("status %d", int(s))
}

// Failed returns true for a negative status.
func (s Status) Failed() bool {
	return s < 0
}

// Result is a successful translation.
type Result struct {
	Phys uint32 // Physical address.
	Prot Prot   // Page protection.
	Size uint32 // Page size the translation is valid for.
}

// Tables is the physical memory the walker reads descriptors from.
type Tables interface {
	Load32(addr uint32) (value uint32, err error)
}

// TLB_SIZE is the number of cached translations.
const TLB_SIZE = 16

type tlbEntry struct {
	valid bool
	super bool
	page  uint32
	phys  uint32
	prot  Prot
}

// Walker translates logical addresses for one CPU.
type Walker struct {
	Verbose bool // Set to log failing walks.

	Regs   *Registers
	Tables Tables

	tlb [TLB_SIZE]tlbEntry
}

// NewWalker creates a walker over the register file.
func NewWalker(regs *Registers, tables Tables) *Walker {
	return &Walker{
		Regs:   regs,
		Tables: tables,
	}
}

// Flush invalidates the TLB. Called whenever an MMU register changes.
func (w *Walker) Flush() {
	clear(w.tlb[:])
}

// Translate maps a logical address. The walker never raises: a failed
// translation returns a negative status and records it in MMUSR.
func (w *Walker) Translate(vaddr uint32, access Access, super bool) (res Result, status Status) {
	regs := w.Regs

	tt := regs.DTT[:]
	if access == ACCESS_CODE {
		tt = regs.ITT[:]
	}
	for _, reg := range tt {
		if !ttMatch(reg, vaddr, super) {
			continue
		}
		res = Result{Phys: vaddr, Prot: PROT_READ | PROT_WRITE | PROT_EXEC, Size: 1 << TT_BASE_SHIFT}
		if reg&TT_WRITE != 0 {
			res.Prot &^= PROT_WRITE
		}
		status = checkProt(res.Prot, access, super)
		if status.Failed() {
			w.fault(vaddr, access, status, MMUSR_TT|MMUSR_WRITE)
		}
		return
	}

	if !regs.Enabled() {
		res = Result{Phys: vaddr, Prot: PROT_READ | PROT_WRITE | PROT_EXEC, Size: regs.PageSize()}
		return
	}

	size := regs.PageSize()
	page := vaddr &^ (size - 1)
	slot := &w.tlb[(page/size)%TLB_SIZE]
	if !(slot.valid && slot.page == page && slot.super == super) {
		var phys uint32
		var prot Prot
		phys, prot, status = w.walk(page, super)
		if status.Failed() {
			w.fault(vaddr, access, status, 0)
			return
		}
		*slot = tlbEntry{valid: true, super: super, page: page, phys: phys, prot: prot}
	}

	res = Result{Phys: slot.phys | (vaddr & (size - 1)), Prot: slot.prot, Size: size}
	status = checkProt(res.Prot, access, super)
	if status.Failed() {
		mmusr := MMUSR_RESIDENT
		if res.Prot&PROT_WRITE == 0 {
			mmusr |= MMUSR_WRITE
		}
		if res.Prot&PROT_SUPER != 0 {
			mmusr |= MMUSR_SUPER
		}
		w.fault(vaddr, access, status, mmusr)
	}
	return
}

func (w *Walker) fault(vaddr uint32, access Access, status Status, mmusr uint32) {
	if status == StatusBus {
		mmusr |= MMUSR_BUS_ERROR
	}
	w.Regs.MMUSR = (vaddr & 0xfffff000) | mmusr

	if w.Verbose {
		logrus.WithFields(logrus.Fields{
			"address": fmt.Sprintf("%08x", vaddr),
			"access":  access.String(),
			"status":  status.String(),
		}).Debug("mmu: fault")
	}
}

func ttMatch(reg uint32, vaddr uint32, super bool) bool {
	if reg&TT_ENABLE == 0 {
		return false
	}

	switch reg & TT_SFIELD {
	case TT_S_USER:
		if super {
			return false
		}
	case TT_S_SUPER:
		if !super {
			return false
		}
	}

	base := (reg >> TT_BASE_SHIFT) & 0xff
	mask := (reg >> TT_MASK_SHIFT) & 0xff
	return ((vaddr>>TT_BASE_SHIFT)^base)&^mask == 0
}

func checkProt(prot Prot, access Access, super bool) Status {
	if prot&PROT_SUPER != 0 && !super {
		return StatusSupervisor
	}
	if access == ACCESS_WRITE && prot&PROT_WRITE == 0 {
		return StatusWriteProtect
	}
	return StatusOK
}

// walk performs the three level table search for a page.
func (w *Walker) walk(page uint32, super bool) (phys uint32, prot Prot, status Status) {
	regs := w.Regs

	root := regs.URP
	if super {
		root = regs.SRP
	}

	prot = PROT_READ | PROT_WRITE | PROT_EXEC

	load := func(addr uint32) (desc uint32, ok bool) {
		desc, err := w.Tables.Load32(addr)
		if err != nil {
			status = StatusBus
			return
		}
		ok = true
		return
	}

	// Root level: bits 31..25.
	rootAddr := (root & DESC_ROOT_ADDR) + ((page>>25)&0x7f)*4
	desc, ok := load(rootAddr)
	if !ok {
		return
	}
	if desc&DESC_RESIDENT == 0 {
		status = StatusInvalid
		return
	}
	if desc&DESC_WRITE != 0 {
		prot &^= PROT_WRITE
	}

	// Pointer level: bits 24..18.
	ptrAddr := (desc & DESC_ROOT_ADDR) + ((page>>18)&0x7f)*4
	desc, ok = load(ptrAddr)
	if !ok {
		return
	}
	if desc&DESC_RESIDENT == 0 {
		status = StatusInvalid
		return
	}
	if desc&DESC_WRITE != 0 {
		prot &^= PROT_WRITE
	}

	// Page level: bits 17..12 (4K) or 17..13 (8K).
	var pageAddr uint32
	var frame uint32
	if regs.TC&TC_PAGE_8K != 0 {
		pageAddr = (desc & DESC_PTR_ADDR8K) + ((page>>13)&0x1f)*4
		frame = 0xffffe000
	} else {
		pageAddr = (desc & DESC_PTR_ADDR4K) + ((page>>12)&0x3f)*4
		frame = 0xfffff000
	}
	desc, ok = load(pageAddr)
	if !ok {
		return
	}

	if desc&DESC_PDT_MASK == DESC_PDT_INDIR {
		desc, ok = load(desc & DESC_INDIR_ADDR)
		if !ok {
			return
		}
		if desc&DESC_PDT_MASK == DESC_PDT_INDIR {
			status = StatusInvalid
			return
		}
	}
	if desc&DESC_PDT_MASK == 0 {
		status = StatusInvalid
		return
	}

	if desc&DESC_WRITE != 0 {
		prot &^= PROT_WRITE
	}
	if desc&DESC_SUPER != 0 {
		prot |= PROT_SUPER
	}

	phys = desc & frame
	return
}
