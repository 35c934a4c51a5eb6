package io

// Ram is read-write memory.
type Ram struct {
	Data []byte
}

var _ Device = (*Ram)(nil)
var _ Imager = (*Ram)(nil)

// NewRam allocates size bytes of zeroed memory.
func NewRam(size uint32) *Ram {
	return &Ram{Data: make([]byte, size)}
}

func (ram *Ram) Read(offset uint32, size int) (value uint64, err error) {
	if uint64(offset)+uint64(size) > uint64(len(ram.Data)) {
		err = &ErrBus{Address: offset, Size: size}
		return
	}
	value = getBE(ram.Data[offset:], size)
	return
}

func (ram *Ram) Write(offset uint32, size int, value uint64) (err error) {
	if uint64(offset)+uint64(size) > uint64(len(ram.Data)) {
		err = &ErrBus{Address: offset, Size: size, Write: true}
		return
	}
	putBE(ram.Data[offset:], size, value)
	return
}

func (ram *Ram) Image() []byte {
	return ram.Data
}
