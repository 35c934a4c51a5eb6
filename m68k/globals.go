package m68k

import (
	"fmt"

	"github.com/ezrec/cf68k/cc"
	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/ir"
)

// Global temporaries of every block.
const (
	QREG_PC        = ir.Temp(0)
	QREG_CC_OP     = ir.Temp(1)
	QREG_CC_X      = ir.Temp(2)
	QREG_CC_N      = ir.Temp(3)
	QREG_CC_Z      = ir.Temp(4)
	QREG_CC_V      = ir.Temp(5)
	QREG_CC_C      = ir.Temp(6)
	QREG_DIV1      = ir.Temp(7)
	QREG_DIV2      = ir.Temp(8)
	QREG_MACSR     = ir.Temp(9)
	QREG_MAC_MASK  = ir.Temp(10)
	QREG_FPCR      = ir.Temp(11)
	QREG_USP       = ir.Temp(12) // Banked user stack pointer; valid in supervisor mode.
	QREG_D0        = ir.Temp(13) // D0..D7
	QREG_A0        = ir.Temp(21) // A0..A7
	QREG_ACC0      = ir.Temp(29) // ACC0..ACC3, 64-bit.
	QREG_F0        = ir.Temp(33) // F0..F7, 64-bit.
	QREG_FP_RESULT = ir.Temp(41) // 64-bit.
	qregCount      = 42
)

// ccGlobals are the condition code globals the cc.Engine works on.
var ccGlobals = cc.Globals{
	Op: QREG_CC_OP,
	X:  QREG_CC_X,
	N:  QREG_CC_N,
	Z:  QREG_CC_Z,
	V:  QREG_CC_V,
	C:  QREG_CC_C,
}

var globals = func() (list []ir.Global) {
	list = make([]ir.Global, qregCount)
	named := map[ir.Temp]string{
		QREG_PC:        "PC",
		QREG_CC_OP:     "CC_OP",
		QREG_CC_X:      "CC_X",
		QREG_CC_N:      "CC_N",
		QREG_CC_Z:      "CC_Z",
		QREG_CC_V:      "CC_V",
		QREG_CC_C:      "CC_C",
		QREG_DIV1:      "DIV1",
		QREG_DIV2:      "DIV2",
		QREG_MACSR:     "MACSR",
		QREG_MAC_MASK:  "MAC_MASK",
		QREG_FPCR:      "FPCR",
		QREG_USP:       "USP",
		QREG_FP_RESULT: "FP_RESULT",
	}
	for t, name := range named {
		list[t] = ir.Global{Name: name, Width: ir.W32}
	}
	for n := range 8 {
		list[QREG_D0+ir.Temp(n)] = ir.Global{Name: fmt.Sprintf("D%d", n), Width: ir.W32}
		list[QREG_A0+ir.Temp(n)] = ir.Global{Name: fmt.Sprintf("A%d", n), Width: ir.W32}
		list[QREG_F0+ir.Temp(n)] = ir.Global{Name: fmt.Sprintf("F%d", n), Width: ir.W64}
	}
	for n := range 4 {
		list[QREG_ACC0+ir.Temp(n)] = ir.Global{Name: fmt.Sprintf("ACC%d", n), Width: ir.W64}
	}
	list[QREG_FP_RESULT].Width = ir.W64
	return
}()

// Globals returns the globals every block is built with.
func Globals() []ir.Global {
	return globals
}

// Bind returns the storage of each global in c, in Globals order.
func Bind(c *cpu.Cpu) (slots []ir.Slot) {
	slots = make([]ir.Slot, qregCount)

	slots[QREG_PC] = ir.Var32(&c.PC)
	slots[QREG_CC_OP] = ir.Var32(&c.CCOp)
	slots[QREG_CC_X] = ir.Var32(&c.CC.X)
	slots[QREG_CC_N] = ir.Var32(&c.CC.N)
	slots[QREG_CC_Z] = ir.Var32(&c.CC.Z)
	slots[QREG_CC_V] = ir.Var32(&c.CC.V)
	slots[QREG_CC_C] = ir.Var32(&c.CC.C)
	slots[QREG_DIV1] = ir.Var32(&c.Div1)
	slots[QREG_DIV2] = ir.Var32(&c.Div2)
	slots[QREG_MACSR] = ir.Var32(&c.MACSR)
	slots[QREG_MAC_MASK] = ir.Var32(&c.MACMask)
	slots[QREG_FPCR] = ir.Var32(&c.FPCR)
	slots[QREG_USP] = ir.Var32(&c.SP[cpu.SP_USER])
	for n := range 8 {
		slots[QREG_D0+ir.Temp(n)] = ir.Var32(&c.D[n])
		slots[QREG_A0+ir.Temp(n)] = ir.Var32(&c.A[n])
		slots[QREG_F0+ir.Temp(n)] = ir.Var64(&c.F[n])
	}
	for n := range 4 {
		slots[QREG_ACC0+ir.Temp(n)] = ir.Var64(&c.Acc[n])
	}
	slots[QREG_FP_RESULT] = ir.Var64(&c.FPResult)

	return
}
