// Package cpu holds the architectural state of an m68k family core.
//
// The Cpu structure is the storage generated code is bound to: data and
// address registers, the banked stack pointers, the lazy condition code
// registers, divide scratch, the EMAC unit, the FPU registers and the
// system control registers. Features describes which optional parts of
// the instruction set a core implements.
//
// Exceptions raised by generated code are returned as *Exception and
// delivered through the guest vector table by DoException.
package cpu
