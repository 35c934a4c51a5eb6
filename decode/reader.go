package decode

// CodeMemory is the guest code space.
type CodeMemory interface {
	Fetch16(addr uint32) (value uint16, err error)
}

// Reader reads the instruction stream. After the first failing fetch the
// Reader returns zeros and Err holds the failure.
type Reader struct {
	Mem CodeMemory
	PC  uint32 // Address of the next word.
	Err error  // First fetch failure.
}

// NewReader creates a reader at pc.
func NewReader(mem CodeMemory, pc uint32) *Reader {
	return &Reader{
		Mem: mem,
		PC:  pc,
	}
}

// Fetch16 reads one word.
func (r *Reader) Fetch16() (value uint16) {
	if r.Err != nil {
		r.PC += 2
		return
	}

	value, err := r.Mem.Fetch16(r.PC)
	if err != nil {
		r.Err = &ErrFetch{PC: r.PC, Err: err}
		value = 0
	}
	r.PC += 2

	return
}

// Fetch32 reads two words, high word first.
func (r *Reader) Fetch32() (value uint32) {
	value = uint32(r.Fetch16()) << 16
	value |= uint32(r.Fetch16())
	return
}

// FetchImm reads an immediate operand. Byte immediates occupy the low
// byte of a word. No extension is applied.
func (r *Reader) FetchImm(size Size) (value uint32) {
	switch size {
	case OS_BYTE:
		value = uint32(r.Fetch16()) & 0xff
	case OS_WORD:
		value = uint32(r.Fetch16())
	default:
		value = r.Fetch32()
	}
	return
}
