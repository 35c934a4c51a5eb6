// Package io provides the guest memory bus of the emulator: RAM, ROM, a
// UART console, and a depot of memory images kept in a directory.
package io

import (
	"encoding/binary"
)

// Device is a memory mapped peripheral. Offsets are relative to the base
// of the region the device is mapped at; sizes are 1, 2, 4 or 8 bytes.
type Device interface {
	// Read returns the big-endian value at offset.
	Read(offset uint32, size int) (value uint64, err error)
	// Write stores a big-endian value at offset.
	Write(offset uint32, size int, value uint64) (err error)
}

// Imager is a device that can be filled from a memory image.
type Imager interface {
	// Image returns the backing store of the device.
	Image() []byte
}

func getBE(data []byte, size int) (value uint64) {
	switch size {
	case 1:
		value = uint64(data[0])
	case 2:
		value = uint64(binary.BigEndian.Uint16(data))
	case 4:
		value = uint64(binary.BigEndian.Uint32(data))
	case 8:
		value = binary.BigEndian.Uint64(data)
	}
	return
}

func putBE(data []byte, size int, value uint64) {
	switch size {
	case 1:
		data[0] = uint8(value)
	case 2:
		binary.BigEndian.PutUint16(data, uint16(value))
	case 4:
		binary.BigEndian.PutUint32(data, uint32(value))
	case 8:
		binary.BigEndian.PutUint64(data, value)
	}
}
