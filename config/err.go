package config

import (
	"errors"

	"github.com/ezrec/cf68k/translate"
)

var f = translate.From

var (
	ErrType  = errors.New(f("wrong type"))
	ErrRange = errors.New(f("value out of range"))
)

// ErrSetting indicates which configuration global was rejected.
type ErrSetting struct {
	Name string
	Err  error
}

func (err *ErrSetting) Error() string {
	return f("setting %v: %v", err.Name, err.Err)
}

func (err *ErrSetting) Unwrap() error {
	return err.Err
}
