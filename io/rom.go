package io

// Rom is read-only memory. Its contents are set from an image before the
// core starts.
type Rom struct {
	Data []byte
}

var _ Device = (*Rom)(nil)
var _ Imager = (*Rom)(nil)

// NewRom allocates size bytes of ROM filled with 0xff.
func NewRom(size uint32) (rom *Rom) {
	rom = &Rom{Data: make([]byte, size)}
	for n := range rom.Data {
		rom.Data[n] = 0xff
	}
	return
}

func (rom *Rom) Read(offset uint32, size int) (value uint64, err error) {
	if uint64(offset)+uint64(size) > uint64(len(rom.Data)) {
		err = &ErrBus{Address: offset, Size: size}
		return
	}
	value = getBE(rom.Data[offset:], size)
	return
}

// Write always fails.
func (rom *Rom) Write(offset uint32, size int, value uint64) error {
	return ErrReadOnly
}

func (rom *Rom) Image() []byte {
	return rom.Data
}
