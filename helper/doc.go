// Package helper provides the out-of-line routines generated code calls.
//
// Every helper is registered with ir.Register when the package is
// initialized and exported as a *ir.Helper variable for the translator.
// Helpers receive the *cpu.Cpu the ir.Machine was given as environment.
// Exceptions are returned as errors from cpu.Cpu.Raise, which stop the
// running block.
package helper
