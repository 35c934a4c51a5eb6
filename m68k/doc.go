// Package m68k translates m68k and ColdFire machine code into IR blocks.
//
// A Translator decodes guest instructions starting at a PC and emits the
// equivalent ir operations, one translation block at a time. Opcode words
// are dispatched through a decode.Table built once per feature set by
// Init. Condition codes are kept lazy with a cc.Engine; address register
// updates made by an instruction are deferred until it completes, so a
// faulting access leaves the registers untouched.
//
// The globals of a block are listed by Globals and bound to a cpu.Cpu by
// Bind.
package m68k
