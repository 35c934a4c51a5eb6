package m68k

import (
	"github.com/ezrec/cf68k/translate"
)

var f = translate.From

// ErrTranslate is a block that could not be completed.
type ErrTranslate struct {
	PC  uint32
	Err error
}

func (err *ErrTranslate) Error() string {
	return f("translate at 0x%08x: %v", err.PC, err.Err)
}

func (err *ErrTranslate) Unwrap() error {
	return err.Err
}

// ErrInternal is an inconsistency in the translator itself. It is only
// ever the value of a panic.
type ErrInternal struct {
	PC   uint32
	Insn uint16
	Msg  string
}

func (err *ErrInternal) Error() string {
	return f("internal error at 0x%08x (insn 0x%04x): %v", err.PC, err.Insn, err.Msg)
}
