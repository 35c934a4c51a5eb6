package emulator

import (
	"errors"

	"github.com/ezrec/cf68k/translate"
)

var f = translate.From

var (
	ErrBreakpoint = errors.New(f("debug stop"))
	ErrWatchpoint = errors.New(f("watchpoint hit"))
)

// ErrRuntime indicates the guest PC of a runtime error.
type ErrRuntime struct {
	PC  uint32
	Err error
}

func (err *ErrRuntime) Error() string {
	return f("pc 0x%08x %v", err.PC, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

// ErrWatch reports the access that hit a watchpoint.
type ErrWatch struct {
	Address uint32
	Write   bool
}

func (err *ErrWatch) Error() string {
	if err.Write {
		return f("watchpoint write at 0x%08x", err.Address)
	}
	return f("watchpoint read at 0x%08x", err.Address)
}

func (err *ErrWatch) Is(target error) bool {
	return target == ErrWatchpoint
}
