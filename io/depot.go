package io

import (
	"fmt"
	"io/fs"
	"maps"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// DEPOT_SUFFIX is the file name extension of a depot segment.
const DEPOT_SUFFIX = ".bin"

var depotName = regexp.MustCompile(`(?i)^[0-9a-f]{8}\.bin$`)

// Depot is a set of memory images keyed by guest address. On disk it is a
// directory holding one XXXXXXXX.bin file per segment, named by the hex
// address the segment loads at.
type Depot struct {
	Segments map[uint32][]byte
}

// Add records a segment, replacing any segment at the same address.
func (depot *Depot) Add(addr uint32, data []byte) {
	if depot.Segments == nil {
		depot.Segments = make(map[uint32][]byte)
	}
	depot.Segments[addr] = data
}

// Addresses returns the segment addresses in ascending order.
func (depot *Depot) Addresses() []uint32 {
	return slices.Sorted(maps.Keys(depot.Segments))
}

// Unmarshal loads every XXXXXXXX.bin file at the top of filesys.
func (depot *Depot) Unmarshal(filesys fs.FS) (err error) {
	return fs.WalkDir(filesys, ".", func(path string, d fs.DirEntry, err_in error) (err error) {
		if err_in != nil {
			return err_in
		}
		if d.IsDir() {
			if path != "." {
				err = fs.SkipDir
			}
			return
		}
		name := d.Name()
		if !depotName.MatchString(name) {
			return
		}
		addr, err := strconv.ParseUint(strings.TrimSuffix(name, filepath.Ext(name)), 16, 32)
		if err != nil {
			return &ErrSegment{Name: name, Err: err}
		}

		data, err := fs.ReadFile(filesys, path)
		if err != nil {
			return &ErrSegment{Name: name, Err: err}
		}
		depot.Add(uint32(addr), data)

		return
	})
}

// Marshal writes each segment to filesys.
func (depot *Depot) Marshal(filesys CreateFS) (err error) {
	for _, addr := range depot.Addresses() {
		name := fmt.Sprintf("%08x%s", addr, DEPOT_SUFFIX)
		file, err := filesys.Create(name)
		if err != nil {
			return &ErrSegment{Name: name, Err: err}
		}
		_, err = file.Write(depot.Segments[addr])
		if err == nil {
			err = file.Close()
		} else {
			file.Close()
		}
		if err != nil {
			return &ErrSegment{Name: name, Err: err}
		}
	}

	return
}

// Load copies every segment onto the bus.
func (depot *Depot) Load(bus *Bus) (err error) {
	for _, addr := range depot.Addresses() {
		err = bus.LoadImage(addr, depot.Segments[addr])
		if err != nil {
			return &ErrSegment{Name: fmt.Sprintf("%08x", addr), Err: err}
		}
	}
	return
}

// Save replaces every segment with the current bus contents at its
// address.
func (depot *Depot) Save(bus *Bus) (err error) {
	for _, addr := range depot.Addresses() {
		var data []byte
		data, err = bus.SaveImage(addr, uint32(len(depot.Segments[addr])))
		if err != nil {
			return &ErrSegment{Name: fmt.Sprintf("%08x", addr), Err: err}
		}
		depot.Segments[addr] = data
	}
	return
}
