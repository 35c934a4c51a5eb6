package helper

import (
	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/ir"
)

// Func is the body of a helper with the CPU environment resolved.
type Func func(c *cpu.Cpu, args ...uint64) (ret uint64, err error)

func define(name string, ret ir.Width, args []ir.Width, fn Func) *ir.Helper {
	return ir.Register(&ir.Helper{
		Name: name,
		Args: args,
		Ret:  ret,
		Fn:   wrap(name, fn),
	})
}

func defineVoid(name string, args []ir.Width, fn Func) *ir.Helper {
	return ir.Register(&ir.Helper{
		Name:  name,
		Args:  args,
		NoRet: true,
		Fn:    wrap(name, fn),
	})
}

func wrap(name string, fn Func) ir.HelperFunc {
	return func(e any, args ...uint64) (ret uint64, err error) {
		c, err := env(name, e)
		if err != nil {
			return
		}
		return fn(c, args...)
	}
}

// definePure registers a helper that does not touch the CPU.
func definePure(name string, ret ir.Width, args []ir.Width, fn func(args ...uint64) uint64) *ir.Helper {
	return ir.Register(&ir.Helper{
		Name: name,
		Args: args,
		Ret:  ret,
		Fn: func(_ any, args ...uint64) (uint64, error) {
			return fn(args...), nil
		},
	})
}

var (
	none  = []ir.Width{}
	i32   = []ir.Width{ir.W32}
	i32x2 = []ir.Width{ir.W32, ir.W32}
	i32x3 = []ir.Width{ir.W32, ir.W32, ir.W32}
	i64   = []ir.Width{ir.W64}
	i64x2 = []ir.Width{ir.W64, ir.W64}
)
