package cc

import (
	"github.com/ezrec/cf68k/translate"
)

var f = translate.From

// ErrTagInvalid is an unknown run-time condition code encoding.
type ErrTagInvalid uint32

func (err ErrTagInvalid) Error() string {
	return f("cc_op 0x%x invalid", uint32(err))
}
