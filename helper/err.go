package helper

import (
	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/translate"
)

var f = translate.From

// ErrEnv is a helper invoked without a CPU environment.
type ErrEnv struct {
	Helper string
}

func (err *ErrEnv) Error() string {
	return f("helper %v called without a cpu", err.Helper)
}

func env(name string, e any) (c *cpu.Cpu, err error) {
	c, ok := e.(*cpu.Cpu)
	if !ok || c == nil {
		err = &ErrEnv{Helper: name}
	}
	return
}
