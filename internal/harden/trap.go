// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package harden implements fault injection countermeasures: the
// compare-trap primitive and the monotonic step attestation counter.
//
// Every check in this package is fail-fast and irreversible, there is no
// error return and no retry.
package harden

import (
	"fmt"
)

// Trap represents a compare-trap primitive, Equal halts the system when its
// arguments differ and returns otherwise.
type Trap interface {
	Equal(a uint32, b uint32)
}

// Halt is the panic value raised by software traps on mismatch.
type Halt struct {
	A uint32
	B uint32
}

func (h Halt) Error() string {
	return fmt.Sprintf("compare-trap mismatch (%#x != %#x)", h.A, h.B)
}

// Panic is a software Trap which panics with a Halt value on mismatch.
type Panic struct{}

// Equal panics with a Halt value when a and b differ.
func (Panic) Equal(a uint32, b uint32) {
	if a != b {
		panic(Halt{A: a, B: b})
	}
}

// Fail unconditionally halts through the trap, should the trap ever return
// (e.g. glitched) it spins forever.
func Fail(t Trap) {
	t.Equal(Opaque(0), Opaque(1))

	for {
	}
}

// Opaque returns its argument through a call which is never inlined,
// preventing the compiler from folding a value (or address) re-derivation
// into the computation it is meant to verify.
//
//go:noinline
func Opaque(v uint32) uint32 {
	return v
}
