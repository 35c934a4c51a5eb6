package helper

import (
	"math/bits"

	"github.com/ezrec/cf68k/ir"
)

// Bit manipulation helpers.
var (
	FF1    = definePure("ff1", ir.W32, i32, ff1)
	Bitrev = definePure("bitrev", ir.W32, i32, bitrev)
	Sats   = definePure("sats", ir.W32, i32x2, sats)
)

// ff1 returns the bit offset of the most significant set bit, counting
// from bit 31. Zero yields 32.
func ff1(args ...uint64) uint64 {
	return uint64(bits.LeadingZeros32(uint32(args[0])))
}

func bitrev(args ...uint64) uint64 {
	return uint64(bits.Reverse32(uint32(args[0])))
}

// sats saturates val when the materialized V flag is set.
func sats(args ...uint64) uint64 {
	val, v := uint32(args[0]), uint32(args[1])
	if int32(v) < 0 {
		val = uint32(int32(val)>>31) ^ 0x80000000
	}
	return uint64(val)
}
