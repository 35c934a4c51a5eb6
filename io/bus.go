package io

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/cf68k/ir"
)

// Region is a device mapped into the guest address space.
type Region struct {
	Name   string
	Base   uint32
	Size   uint32
	Device Device
}

// Contains returns true if addr falls inside the region.
func (r *Region) Contains(addr uint32) bool {
	return addr >= r.Base && uint64(addr) < uint64(r.Base)+uint64(r.Size)
}

// Bus routes guest physical accesses to the mapped devices. The mapping
// is set up before the core runs and read concurrently afterwards.
type Bus struct {
	Verbose bool // Set to log bus errors.

	regions []*Region // Sorted by base.
}

// Map adds a device at base.
func (bus *Bus) Map(name string, base, size uint32, dev Device) (err error) {
	region := &Region{Name: name, Base: base, Size: size, Device: dev}
	end := uint64(base) + uint64(size)
	for _, other := range bus.regions {
		if uint64(other.Base) < end && uint64(base) < uint64(other.Base)+uint64(other.Size) {
			err = fmt.Errorf("%w: %v and %v", ErrOverlap, name, other.Name)
			return
		}
	}

	bus.regions = append(bus.regions, region)
	slices.SortFunc(bus.regions, func(a, b *Region) int {
		return int(int64(a.Base) - int64(b.Base))
	})
	return
}

// Regions returns the mapped regions in address order.
func (bus *Bus) Regions() iter.Seq[*Region] {
	return slices.Values(bus.regions)
}

// Find returns the region containing addr, or nil.
func (bus *Bus) Find(addr uint32) *Region {
	n, found := slices.BinarySearchFunc(bus.regions, addr, func(r *Region, addr uint32) int {
		switch {
		case r.Contains(addr):
			return 0
		case r.Base < addr:
			return -1
		}
		return 1
	})
	if !found {
		return nil
	}
	return bus.regions[n]
}

// Defines returns the base and size of each region, as NAME_BASE and
// NAME_SIZE.
func (bus *Bus) Defines() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, r := range bus.regions {
			name := strings.ToUpper(r.Name)
			if !yield(name+"_BASE", fmt.Sprintf("0x%x", r.Base)) {
				return
			}
			if !yield(name+"_SIZE", fmt.Sprintf("0x%x", r.Size)) {
				return
			}
		}
	}
}

func (bus *Bus) region(addr uint32, size int, write bool) (r *Region, err error) {
	r = bus.Find(addr)
	if r == nil || uint64(addr)+uint64(size) > uint64(r.Base)+uint64(r.Size) {
		r = nil
		err = &ErrBus{Address: addr, Size: size, Write: write}
		if bus.Verbose {
			logrus.WithFields(logrus.Fields{
				"address": fmt.Sprintf("%08x", addr),
				"size":    size,
				"write":   write,
			}).Debug("io: bus error")
		}
	}
	return
}

// Read returns the big-endian value of size bytes at addr.
func (bus *Bus) Read(addr uint32, size int) (value uint64, err error) {
	r, err := bus.region(addr, size, false)
	if err != nil {
		return
	}
	return r.Device.Read(addr-r.Base, size)
}

// Write stores the big-endian value of size bytes at addr.
func (bus *Bus) Write(addr uint32, size int, value uint64) (err error) {
	r, err := bus.region(addr, size, true)
	if err != nil {
		return
	}
	return r.Device.Write(addr-r.Base, size, value)
}

// Load implements ir.Memory. The MMU index is ignored; the bus only sees
// physical addresses.
func (bus *Bus) Load(addr uint32, op ir.MemOp, index int) (value uint64, err error) {
	value, err = bus.Read(addr, op.Size())
	if err != nil {
		return
	}
	value = op.Extend(value)
	return
}

// Store implements ir.Memory.
func (bus *Bus) Store(addr uint32, op ir.MemOp, value uint64, index int) (err error) {
	return bus.Write(addr, op.Size(), value)
}

// Fetch16 reads an instruction word.
func (bus *Bus) Fetch16(addr uint32) (value uint16, err error) {
	v, err := bus.Read(addr, 2)
	value = uint16(v)
	return
}

// Load32 reads a long word; MMU table walks and EA reference loads use it.
func (bus *Bus) Load32(addr uint32) (value uint32, err error) {
	v, err := bus.Read(addr, 4)
	value = uint32(v)
	return
}

// Read32 reads a long word for exception processing.
func (bus *Bus) Read32(addr uint32) (value uint32, err error) {
	return bus.Load32(addr)
}

// Write32 writes a long word for exception processing.
func (bus *Bus) Write32(addr uint32, value uint32) (err error) {
	return bus.Write(addr, 4, uint64(value))
}

// LoadImage copies data into the region mapped at addr. ROM can be
// loaded this way.
func (bus *Bus) LoadImage(addr uint32, data []byte) (err error) {
	r, err := bus.region(addr, len(data), true)
	if err != nil {
		return
	}
	imager, ok := r.Device.(Imager)
	if !ok {
		err = fmt.Errorf("%w: %v", ErrNoImage, r.Name)
		return
	}
	copy(imager.Image()[addr-r.Base:], data)
	return
}

// SaveImage returns a copy of size bytes of the region mapped at addr.
func (bus *Bus) SaveImage(addr uint32, size uint32) (data []byte, err error) {
	r, err := bus.region(addr, int(size), false)
	if err != nil {
		return
	}
	imager, ok := r.Device.(Imager)
	if !ok {
		err = fmt.Errorf("%w: %v", ErrNoImage, r.Name)
		return
	}
	offset := addr - r.Base
	data = slices.Clone(imager.Image()[offset : offset+size])
	return
}

// Close releases every mapped device that holds resources.
func (bus *Bus) Close() (err error) {
	var errs []error
	for _, r := range bus.regions {
		if closer, ok := r.Device.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}
