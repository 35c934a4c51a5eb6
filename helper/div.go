package helper

import (
	"github.com/ezrec/cf68k/cc"
	"github.com/ezrec/cf68k/cpu"
)

// Divide helpers. The dividend is in DIV1 and the divisor in DIV2; the
// quotient is returned in DIV1 and the remainder in DIV2. N, Z, V and C
// are materialized and X is kept.
//
// When a word divide overflows, V is set and DIV1/DIV2 hold the low and
// high words of the dividend, so the destination the translator rebuilds
// from them is unchanged.
var (
	Divu  = defineVoid("divu", none, divu)
	Divs  = defineVoid("divs", none, divs)
	DivuL = defineVoid("divu_l", none, divuL)
	DivsL = defineVoid("divs_l", none, divsL)
)

func divFlags(c *cpu.Cpu, quot uint32, overflow bool) {
	var ccr uint8
	if overflow {
		ccr |= cc.CCR_V
	} else if quot == 0 {
		ccr |= cc.CCR_Z
	} else if int32(quot) < 0 {
		ccr |= cc.CCR_N
	}

	x := c.CC.X
	c.CC = cc.FromCCR(ccr)
	c.CC.X = x
	c.CCOp = cc.CC_OP_FLAGS
}

func divOverflow(c *cpu.Cpu, num uint32) {
	c.Div1 = num & 0xffff
	c.Div2 = num >> 16
}

func divu(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	num, den := c.Div1, c.Div2
	if den&0xffff == 0 {
		err = c.Raise(cpu.EXCP_DIV0)
		return
	}
	den &= 0xffff

	quot := num / den
	if quot > 0xffff {
		divOverflow(c, num)
		divFlags(c, quot, true)
		return
	}

	c.Div1 = quot
	c.Div2 = num % den
	divFlags(c, uint32(int32(int16(quot))), false)
	return
}

func divs(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	num, den := int32(c.Div1), int32(int16(c.Div2))
	if den == 0 {
		err = c.Raise(cpu.EXCP_DIV0)
		return
	}

	if num == -1<<31 && den == -1 {
		divOverflow(c, uint32(num))
		divFlags(c, 0, true)
		return
	}

	quot := num / den
	if quot != int32(int16(quot)) {
		divOverflow(c, uint32(num))
		divFlags(c, uint32(quot), true)
		return
	}

	c.Div1 = uint32(quot)
	c.Div2 = uint32(num % den)
	divFlags(c, uint32(quot), false)
	return
}

func divuL(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	num, den := c.Div1, c.Div2
	if den == 0 {
		err = c.Raise(cpu.EXCP_DIV0)
		return
	}

	quot := num / den
	c.Div1 = quot
	c.Div2 = num % den
	divFlags(c, quot, false)
	return
}

func divsL(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	num, den := int32(c.Div1), int32(c.Div2)
	if den == 0 {
		err = c.Raise(cpu.EXCP_DIV0)
		return
	}

	if num == -1<<31 && den == -1 {
		// Quotient does not fit; the destination keeps the dividend.
		c.Div1 = uint32(num)
		c.Div2 = 0
		divFlags(c, 0, true)
		return
	}

	quot := num / den
	c.Div1 = uint32(quot)
	c.Div2 = uint32(num % den)
	divFlags(c, uint32(quot), false)
	return
}
