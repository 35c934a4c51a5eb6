package mmu

import (
	"github.com/ezrec/cf68k/translate"
)

var f = translate.From

// ErrFault is a failed translation, as reported to the memory layer.
type ErrFault struct {
	Address uint32
	Access  Access
	Status  Status
}

func (err *ErrFault) Error() string {
	return f("mmu %v fault at 0x%08x: %v", err.Access, err.Address, err.Status)
}
