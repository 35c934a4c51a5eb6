package helper

import (
	"github.com/ezrec/cf68k/cpu"
	"github.com/ezrec/cf68k/ir"
)

// EMAC helpers. Accumulators are 64-bit values whose valid part depends
// on the MACSR mode; the saturation helpers keep them in range.
var (
	MacMulS     = define("macmuls", ir.W64, i32x2, macmuls)
	MacMulU     = define("macmulu", ir.W64, i32x2, macmulu)
	MacMulF     = define("macmulf", ir.W64, i32x2, macmulf)
	MacSatS     = defineVoid("macsats", i32, macsats)
	MacSatU     = defineVoid("macsatu", i32, macsatu)
	MacSatF     = defineVoid("macsatf", i32, macsatf)
	MacSetFlags = defineVoid("mac_set_flags", i32, macSetFlags)
	GetMacF     = define("get_macf", ir.W32, i64, getMacF)
	GetMacS     = definePure("get_macs", ir.W32, i64, getMacS)
	GetMacU     = definePure("get_macu", ir.W32, i64, getMacU)
	GetMacExtF  = define("get_mac_extf", ir.W32, i32, getMacExtF)
	GetMacExtI  = define("get_mac_exti", ir.W32, i32, getMacExtI)
	SetMacExtF  = defineVoid("set_mac_extf", i32x2, setMacExtF)
	SetMacExtS  = defineVoid("set_mac_exts", i32x2, setMacExtS)
	SetMacExtU  = defineVoid("set_mac_extu", i32x2, setMacExtU)
	MacMove     = defineVoid("mac_move", i32x2, macMove)
	SetMacSR    = defineVoid("set_macsr", i32, setMacSR)
)

func macmuls(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	product := int64(int32(args[0])) * int64(int32(args[1]))

	res := (product << 24) >> 24
	if res != product {
		c.MACSR |= cpu.MACSR_V
		if c.MACSR&cpu.MACSR_OMC != 0 {
			// Make sure the accumulate overflows.
			if product < 0 {
				res = ^(int64(1) << 50)
			} else {
				res = int64(1) << 50
			}
		}
	}

	ret = uint64(res)
	return
}

func macmulu(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	product := uint64(uint32(args[0])) * uint64(uint32(args[1]))

	if product&(uint64(0xffffff)<<40) != 0 {
		c.MACSR |= cpu.MACSR_V
		if c.MACSR&cpu.MACSR_OMC != 0 {
			product = 1 << 50
		} else {
			product &= (1 << 40) - 1
		}
	}

	ret = product
	return
}

func macmulf(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	product := uint64(uint32(args[0])) * uint64(uint32(args[1]))

	if c.MACSR&cpu.MACSR_RT != 0 {
		remainder := uint32(product & 0xffffff)
		product >>= 24
		if remainder > 0x800000 {
			product++
		} else if remainder == 0x800000 {
			product += product & 1
		}
	} else {
		product >>= 24
	}

	ret = product
	return
}

func macsats(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	acc := args[0] & 3
	tmp := int64(c.Acc[acc])

	result := (tmp << 16) >> 16
	if result != tmp {
		c.MACSR |= cpu.MACSR_V
	}
	if c.MACSR&cpu.MACSR_V != 0 {
		c.MACSR |= cpu.MACSR_PAV0 << acc
		if c.MACSR&cpu.MACSR_OMC != 0 {
			// Saturates to 32 bits even though overflow is at 48.
			result = (result >> 63) ^ 0x7fffffff
		}
	}

	c.Acc[acc] = uint64(result)
	return
}

func macsatu(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	acc := args[0] & 3
	val := c.Acc[acc]

	if val&(uint64(0xffff)<<48) != 0 {
		c.MACSR |= cpu.MACSR_V
	}
	if c.MACSR&cpu.MACSR_V != 0 {
		c.MACSR |= cpu.MACSR_PAV0 << acc
		if c.MACSR&cpu.MACSR_OMC != 0 {
			if val > (1 << 53) {
				val = 0
			} else {
				val = (1 << 48) - 1
			}
		} else {
			val &= (1 << 48) - 1
		}
	}

	c.Acc[acc] = val
	return
}

func macsatf(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	acc := args[0] & 3
	sum := int64(c.Acc[acc])

	result := (sum << 16) >> 16
	if result != sum {
		c.MACSR |= cpu.MACSR_V
	}
	if c.MACSR&cpu.MACSR_V != 0 {
		c.MACSR |= cpu.MACSR_PAV0 << acc
		if c.MACSR&cpu.MACSR_OMC != 0 {
			result = (result >> 63) ^ 0x7fffffffffff
		}
	}

	c.Acc[acc] = uint64(result)
	return
}

func macSetFlags(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	acc := args[0] & 3
	val := c.Acc[acc]

	if val == 0 {
		c.MACSR |= cpu.MACSR_Z
	} else if val&(1<<47) != 0 {
		c.MACSR |= cpu.MACSR_N
	}
	if c.MACSR&(cpu.MACSR_PAV0<<acc) != 0 {
		c.MACSR |= cpu.MACSR_V
	}

	var ext int64
	switch {
	case c.MACSR&cpu.MACSR_FI != 0:
		ext = int64(val) >> 40
	case c.MACSR&cpu.MACSR_SU != 0:
		ext = int64(val) >> 32
	default:
		ext = int64(val >> 32)
		if ext != 0 {
			c.MACSR |= cpu.MACSR_EV
		}
		return
	}
	if ext != 0 && ext != -1 {
		c.MACSR |= cpu.MACSR_EV
	}
	return
}

func getMacF(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	val := args[0]

	switch {
	case c.MACSR&cpu.MACSR_SU != 0:
		// 16-bit rounding.
		rem := uint32(val & 0xffffff)
		val = (val >> 24) & 0xffff
		if rem > 0x800000 {
			val++
		} else if rem == 0x800000 {
			val += val & 1
		}
	case c.MACSR&cpu.MACSR_RT != 0:
		// 32-bit rounding.
		rem := uint32(val & 0xff)
		val = uint64(int64(val) >> 8)
		if rem > 0x80 {
			val++
		} else if rem == 0x80 {
			val += val & 1
		}
	default:
		val = uint64(int64(val) >> 8)
	}

	var result uint32
	if c.MACSR&cpu.MACSR_OMC != 0 {
		if c.MACSR&cpu.MACSR_SU != 0 {
			if val != uint64(uint16(val)) {
				result = (uint32(int64(val)>>63) ^ 0x7fff) & 0xffff
			} else {
				result = uint32(val) & 0xffff
			}
		} else {
			if val != uint64(uint32(val)) {
				result = uint32(int64(val)>>63) ^ 0x7fffffff
			} else {
				result = uint32(val)
			}
		}
	} else {
		if c.MACSR&cpu.MACSR_SU != 0 {
			result = uint32(val) & 0xffff
		} else {
			result = uint32(val)
		}
	}

	ret = uint64(result)
	return
}

func getMacS(args ...uint64) uint64 {
	val := args[0]
	if int64(val) == int64(int32(val)) {
		return uint64(uint32(val))
	}
	return uint64(uint32(int64(val)>>63) ^ 0x7fffffff)
}

func getMacU(args ...uint64) uint64 {
	val := args[0]
	if val>>32 == 0 {
		return val
	}
	return 0xffffffff
}

func getMacExtF(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	acc := args[0] & 2
	lo, hi := c.Acc[acc], c.Acc[acc+1]

	val := uint32(lo) & 0x00ff
	val |= uint32(lo>>32) & 0xff00
	val |= uint32(hi<<16) & 0x00ff0000
	val |= uint32(hi>>16) & 0xff000000

	ret = uint64(val)
	return
}

func getMacExtI(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	acc := args[0] & 2
	lo, hi := c.Acc[acc], c.Acc[acc+1]

	val := uint32(lo>>32) & 0xffff
	val |= uint32(hi>>16) & 0xffff0000

	ret = uint64(val)
	return
}

func setMacExtF(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	val, acc := uint32(args[0]), args[1]&2

	res := c.Acc[acc] & 0xffffffff00
	res |= uint64(int64(int16(val&0xff00)) << 32)
	res |= uint64(val & 0xff)
	c.Acc[acc] = res

	res = c.Acc[acc+1] & 0xffffffff00
	res |= uint64(int64(int32(val&0xff000000)) << 16)
	res |= uint64((val >> 16) & 0xff)
	c.Acc[acc+1] = res
	return
}

func setMacExtS(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	val, acc := uint32(args[0]), args[1]&2

	res := uint64(uint32(c.Acc[acc]))
	res |= uint64(int64(int16(val)) << 32)
	c.Acc[acc] = res

	res = uint64(uint32(c.Acc[acc+1]))
	res |= uint64(int64(int32(val&0xffff0000)) << 16)
	c.Acc[acc+1] = res
	return
}

func setMacExtU(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	val, acc := uint32(args[0]), args[1]&2

	res := uint64(uint32(c.Acc[acc]))
	res |= uint64(val&0xffff) << 32
	c.Acc[acc] = res

	res = uint64(uint32(c.Acc[acc+1]))
	res |= uint64(val&0xffff0000) << 16
	c.Acc[acc+1] = res
	return
}

func macMove(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	dest, src := args[0]&3, args[1]&3

	c.Acc[dest] = c.Acc[src]
	mask := cpu.MACSR_PAV0 << dest
	if c.MACSR&(cpu.MACSR_PAV0<<src) != 0 {
		c.MACSR |= mask
	} else {
		c.MACSR &^= mask
	}
	return
}

// setMacSR changes the MACSR, converting the accumulators when the
// fractional or signed mode changes.
func setMacSR(c *cpu.Cpu, args ...uint64) (ret uint64, err error) {
	val := uint32(args[0])

	if (c.MACSR^val)&(cpu.MACSR_FI|cpu.MACSR_SU) != 0 {
		for n, regval := range c.Acc {
			exthigh := int8(int64(regval) >> 40)
			var acc uint32
			var extlow uint8
			if c.MACSR&cpu.MACSR_FI != 0 {
				acc = uint32(regval >> 8)
				extlow = uint8(regval)
			} else {
				acc = uint32(regval)
				extlow = uint8(regval >> 32)
			}

			switch {
			case val&cpu.MACSR_FI != 0:
				regval = uint64(acc)<<8 | uint64(extlow)
				regval |= uint64(int64(exthigh) << 40)
			case val&cpu.MACSR_SU != 0:
				regval = uint64(acc) | uint64(int64(int8(extlow))<<32)
				regval |= uint64(int64(exthigh) << 40)
			default:
				regval = uint64(acc) | uint64(extlow)<<32
				regval |= uint64(uint8(exthigh)) << 40
			}
			c.Acc[n] = regval
		}
	}

	c.MACSR = val
	return
}
