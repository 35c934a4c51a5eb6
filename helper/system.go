package helper

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/cf68k/cpu"
)

// System helpers. They return the raised exception as the error that
// stops the block.
var (
	RaiseException = defineVoid("raise_exception", i32, raiseException)
	Halt           = defineVoid("halt", none, halt)
	Movec          = defineVoid("movec", i32x2, movec)
)

func raiseException(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	err = c.Raise(int(int32(args[0])))
	return
}

func halt(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	c.Halted = 1
	err = c.Raise(cpu.EXCP_HLT)
	return
}

// movec writes a control register. Registers the core does not have
// raise an illegal instruction exception.
func movec(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	reg, val := uint32(args[0]), uint32(args[1])

	err = c.SetControl(reg, val)
	if err != nil {
		if c.Verbose {
			logrus.WithFields(logrus.Fields{
				"reg": fmt.Sprintf("%03x", reg),
				"pc":  fmt.Sprintf("%08x", c.PC),
			}).Debug("helper: movec: ", err)
		}
		err = c.Raise(cpu.EXCP_ILLEGAL)
	}
	return
}
