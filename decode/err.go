package decode

import (
	"errors"

	"github.com/ezrec/cf68k/translate"
)

var f = translate.From

var (
	ErrNoAddress = errors.New(f("effective address has no memory location"))
)

// ErrFetch is a failed instruction stream read.
type ErrFetch struct {
	PC  uint32
	Err error
}

func (err *ErrFetch) Error() string {
	return f("fetch at 0x%08x: %v", err.PC, err.Err)
}

func (err *ErrFetch) Unwrap() error {
	return err.Err
}

// ErrPattern is a dispatch pattern with bits outside its mask.
type ErrPattern struct {
	Pattern uint16
	Mask    uint16
}

func (err *ErrPattern) Error() string {
	return f("pattern 0x%04x has bits outside mask 0x%04x", err.Pattern, err.Mask)
}
