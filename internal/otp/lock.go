// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package otp

import (
	"github.com/f-secure-foundry/armory-encboot/internal/harden"
	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
)

// LockDebug permanently disables debugger re-enabling for the boot session.
//
// The lock register address is computed twice, independently, and both
// addresses are compared before the write, the written value is then compared
// with a readback through the second address.
func (o *OTP) LockDebug() {
	lock := harden.Opaque(rp2350.OTP_BASE) + rp2350.OTP_DEBUGEN_LOCK
	lock2 := harden.Opaque(rp2350.OTP_BASE + rp2350.OTP_DEBUGEN_LOCK)

	if !o.Hardened {
		o.Bus.Write(lock, rp2350.OTP_DEBUGEN_LOCK_ALL)
		return
	}

	o.Trap.Equal(lock, lock2)

	val := harden.Opaque(rp2350.OTP_DEBUGEN_LOCK_ALL)
	o.Bus.Write(lock, val)

	o.Trap.Equal(val, o.Bus.Read(lock2))
}

// swLock returns the software lock register of an OTP page.
func swLock(base uint32, page uint32) uint32 {
	return base + rp2350.OTP_SW_LOCK0 + page*4
}

// Lock disables secure and non-secure access to n OTP pages, starting from
// page, until the next reset.
//
// When hardened the lock registers are read back through two pointers
// derived independently, each page lock state is compared against the
// expected value and between both views.
func (o *OTP) Lock(page int, n int) {
	lock := swLock(harden.Opaque(rp2350.OTP_BASE), uint32(page))

	for i := uint32(0); i < uint32(n); i++ {
		o.Bus.Write(lock+i*4, rp2350.OTP_SW_LOCK_ALL)
	}

	if !o.Hardened {
		return
	}

	// prevent re-use of the write pointer
	lock2 := swLock(rp2350.OTP_BASE, harden.Opaque(uint32(page)))

	for i := uint32(0); i < uint32(n); i++ {
		v1 := o.Bus.Read(lock+i*4) & rp2350.OTP_SW_LOCK_MASK
		v2 := o.Bus.Read(lock2+i*4) & rp2350.OTP_SW_LOCK_MASK
		all := harden.Opaque(rp2350.OTP_SW_LOCK_ALL)

		o.Trap.Equal(v1, all)
		o.Trap.Equal(all, v2)
		o.Trap.Equal(v2, v1)
	}
}
