package cpu

import (
	"errors"

	"github.com/ezrec/cf68k/translate"
)

var f = translate.From

var (
	ErrHalted = errors.New(f("cpu halted"))
)

type ErrFeatureUnknown string

func (err ErrFeatureUnknown) Error() string {
	return f("feature %v unknown", string(err))
}

type ErrVectorInvalid int

func (err ErrVectorInvalid) Error() string {
	return f("exception vector %d invalid", int(err))
}

type ErrControlRegister uint32

func (err ErrControlRegister) Error() string {
	return f("control register 0x%03x unknown", uint32(err))
}

func (err ErrControlRegister) Is(target error) (ok bool) {
	_, ok = target.(ErrControlRegister)
	return
}
