// Package mmu implements the 68040 style address translation used by the
// MMU equipped ColdFire cores.
//
// A logical address is first matched against the transparent translation
// registers (ITT for code, DTT for data). Otherwise, when TC enables
// translation, a three level table walk starting at URP or SRP yields the
// physical page, cached in a small TLB that Walker.Flush invalidates.
package mmu
