// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package reg provides ordered access to 32-bit hardware registers.
//
// All accesses go through a Bus, real hardware uses MMIO while tests use a
// simulated register file which records every access in program order.
package reg

import (
	"github.com/f-secure-foundry/tamago/bits"
)

// Atomic register access aliases, valid for APB/AHB peripherals only (not for
// SIO or the Private Peripheral Bus).
const (
	XOR = 0x1000
	SET = 0x2000
	CLR = 0x3000
)

// Bus represents a 32-bit register file, each call is a single bus access
// which is never merged, elided or reordered with respect to the others.
type Bus interface {
	Read(addr uint32) uint32
	Write(addr uint32, val uint32)
}

// Get returns the register value at a specific bit position and with a
// bitmask applied.
func Get(b Bus, addr uint32, pos int, mask int) uint32 {
	val := b.Read(addr)
	return bits.Get(&val, pos, mask)
}

// IsSet returns whether the register bit at the position argument is set.
func IsSet(b Bus, addr uint32, pos int) bool {
	return Get(b, addr, pos, 1) == 1
}

// SetN modifies the register with a read-modify-write cycle, setting a value
// at a specific bit position and with a bitmask applied.
func SetN(b Bus, addr uint32, pos int, mask int, val uint32) {
	r := b.Read(addr)
	bits.SetN(&r, pos, mask, val)
	b.Write(addr, r)
}

// Set atomically sets the register bits in mask through the set alias.
func Set(b Bus, addr uint32, mask uint32) {
	b.Write(addr|SET, mask)
}

// Clear atomically clears the register bits in mask through the clear alias.
func Clear(b Bus, addr uint32, mask uint32) {
	b.Write(addr|CLR, mask)
}

// WriteMasked replaces the register bits in mask with the corresponding bits
// of val, through the xor alias, leaving the remaining bits untouched.
func WriteMasked(b Bus, addr uint32, val uint32, mask uint32) {
	b.Write(addr|XOR, (b.Read(addr)^val)&mask)
}

// Wait waits, without any timeout, for a specific register bit field to
// match a value.
func Wait(b Bus, addr uint32, pos int, mask int, val uint32) {
	for Get(b, addr, pos, mask) != val {
	}
}

// WaitSet waits, without any timeout, for all bits in mask to be set.
func WaitSet(b Bus, addr uint32, mask uint32) {
	for b.Read(addr)&mask != mask {
	}
}
