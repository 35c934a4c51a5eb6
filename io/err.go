package io

import (
	"errors"

	"github.com/ezrec/cf68k/translate"
)

var f = translate.From

var (
	ErrReadOnly = errors.New(f("device is read only"))
	ErrOverlap  = errors.New(f("region overlaps an existing mapping"))
	ErrNoImage  = errors.New(f("region cannot hold an image"))
)

// ErrBus is an access to an unmapped address or past the end of a region.
type ErrBus struct {
	Address uint32
	Size    int
	Write   bool
}

func (err *ErrBus) Error() string {
	if err.Write {
		return f("bus error writing %d bytes at 0x%08x", err.Size, err.Address)
	}
	return f("bus error reading %d bytes at 0x%08x", err.Size, err.Address)
}

// ErrSegment indicates which depot segment failed.
type ErrSegment struct {
	Name string
	Err  error
}

func (err *ErrSegment) Error() string {
	return f("segment %v: %v", err.Name, err.Err)
}

func (err *ErrSegment) Unwrap() error {
	return err.Err
}
