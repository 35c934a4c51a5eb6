// Package decode reads and decodes m68k instruction streams.
//
// A Reader fetches instruction and extension words. DecodeEA turns the
// mode and register fields of an instruction into an EA describing the
// operand, independent of any code generation; EA.Address evaluates it
// against a CPU state and serves as the reference for the translator.
// Table dispatches instruction words to handlers by pattern and mask.
package decode
