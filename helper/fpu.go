package helper

import (
	"math"

	"github.com/ezrec/cf68k/ir"
)

// Floating point helpers. Registers hold float64 bit patterns.
var (
	I32ToF64   = definePure("i32_to_f64", ir.W64, i32, i32ToF64)
	F32ToF64   = definePure("f32_to_f64", ir.W64, i32, f32ToF64)
	F64ToI32   = definePure("f64_to_i32", ir.W32, i64, f64ToI32)
	F64ToF32   = definePure("f64_to_f32", ir.W32, i64, f64ToF32)
	IRoundF64  = definePure("iround_f64", ir.W64, i64, iroundF64)
	ITruncF64  = definePure("itrunc_f64", ir.W64, i64, itruncF64)
	SqrtF64    = definePure("sqrt_f64", ir.W64, i64, sqrtF64)
	AbsF64     = definePure("abs_f64", ir.W64, i64, absF64)
	ChsF64     = definePure("chs_f64", ir.W64, i64, chsF64)
	AddF64     = definePure("add_f64", ir.W64, i64x2, addF64)
	SubF64     = definePure("sub_f64", ir.W64, i64x2, subF64)
	MulF64     = definePure("mul_f64", ir.W64, i64x2, mulF64)
	DivF64     = definePure("div_f64", ir.W64, i64x2, divF64)
	SubCmpF64  = definePure("sub_cmp_f64", ir.W64, i64x2, subCmpF64)
	CompareF64 = definePure("compare_f64", ir.W32, i64, compareF64)
)

// Results of compare_f64.
const (
	FCMP_LESS      = -1
	FCMP_EQUAL     = 0
	FCMP_GREATER   = 1
	FCMP_UNORDERED = 2
)

func float(v uint64) float64 {
	return math.Float64frombits(v)
}

func bitsOf(v float64) uint64 {
	return math.Float64bits(v)
}

func i32ToF64(args ...uint64) uint64 {
	return bitsOf(float64(int32(args[0])))
}

func f32ToF64(args ...uint64) uint64 {
	return bitsOf(float64(math.Float32frombits(uint32(args[0]))))
}

// f64ToI32 rounds to nearest even and saturates out of range values.
func f64ToI32(args ...uint64) uint64 {
	v := math.RoundToEven(float(args[0]))
	switch {
	case math.IsNaN(v):
		return 0x7fffffff
	case v >= math.MaxInt32:
		return 0x7fffffff
	case v <= math.MinInt32:
		return 0x80000000
	}
	return uint64(uint32(int32(v)))
}

func f64ToF32(args ...uint64) uint64 {
	return uint64(math.Float32bits(float32(float(args[0]))))
}

func iroundF64(args ...uint64) uint64 {
	return bitsOf(math.RoundToEven(float(args[0])))
}

func itruncF64(args ...uint64) uint64 {
	return bitsOf(math.Trunc(float(args[0])))
}

func sqrtF64(args ...uint64) uint64 {
	return bitsOf(math.Sqrt(float(args[0])))
}

func absF64(args ...uint64) uint64 {
	return args[0] &^ (1 << 63)
}

func chsF64(args ...uint64) uint64 {
	return args[0] ^ (1 << 63)
}

func addF64(args ...uint64) uint64 {
	return bitsOf(float(args[0]) + float(args[1]))
}

func subF64(args ...uint64) uint64 {
	return bitsOf(float(args[0]) - float(args[1]))
}

func mulF64(args ...uint64) uint64 {
	return bitsOf(float(args[0]) * float(args[1]))
}

func divF64(args ...uint64) uint64 {
	return bitsOf(float(args[0]) / float(args[1]))
}

// subCmpF64 is the subtraction FCMP compares through. Equal infinities
// subtract to NaN, so they are mapped back to a signed zero.
func subCmpF64(args ...uint64) uint64 {
	a, b := float(args[0]), float(args[1])
	res := a - b
	if math.IsNaN(res) && !math.IsNaN(a) && !math.IsNaN(b) {
		res = 0
		if a < 0 {
			res = math.Copysign(0, -1)
		}
	}
	return bitsOf(res)
}

func compareF64(args ...uint64) uint64 {
	v := float(args[0])
	var res int32
	switch {
	case math.IsNaN(v):
		res = FCMP_UNORDERED
	case v < 0:
		res = FCMP_LESS
	case v > 0:
		res = FCMP_GREATER
	default:
		res = FCMP_EQUAL
	}
	return uint64(uint32(res))
}
