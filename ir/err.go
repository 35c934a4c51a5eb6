package ir

import (
	"errors"

	"github.com/ezrec/cf68k/translate"
)

var f = translate.From

var (
	ErrSlotCount = errors.New(f("global slot count mismatch"))
	ErrRunaway   = errors.New(f("block exceeded its step budget"))
	ErrNoExit    = errors.New(f("block ended without an exit"))
)

// ErrLabel reports a label that was allocated but never placed.
type ErrLabel struct {
	Label Label
}

func (err *ErrLabel) Error() string {
	return f("label L%d never set", int(err.Label))
}

// ErrRun locates a failure inside a running block.
type ErrRun struct {
	Offset int // Index of the failing operation.
	Err    error
}

func (err *ErrRun) Error() string {
	return f("op %d: %v", err.Offset, err.Err)
}

func (err *ErrRun) Unwrap() error {
	return err.Err
}
