// Package cc defers condition code computation.
//
// Most m68k instructions set the condition codes, and few of those values
// are ever read. Instead of computing X, N, Z, V and C after every
// instruction, the translator records a Tag naming the operation that last
// set them together with its operands (in the CC_N, CC_V and CC_X
// globals), and only materializes concrete flags when a consumer needs
// them. Branches can often be decided straight from the pending operands.
//
// Regs.Flush is the pure reference for every tag; Engine emits the same
// computation as IR.
package cc
