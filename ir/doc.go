// Package ir is the code-generation substrate used by the translator.
//
// A Builder hands out temporaries and labels and records operations into a
// Block. The first temporaries of every block are globals: named values
// bound, when a Machine is created, to storage inside the CPU state. Helper
// routines are registered once per process and called from generated code
// with a single variadic Call.
//
// A Machine interprets blocks. It is the reference execution engine for
// generated code and the one the emulator runs.
package ir
