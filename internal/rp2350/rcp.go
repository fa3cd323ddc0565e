// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tinygo && rp2350

package rp2350

import (
	"device/arm"
)

// RCP represents the redundancy coprocessor, it implements harden.Trap
// with the rcp_iequal instruction, which raises an unrecoverable fault on
// mismatch.
type RCP struct{}

// Equal compares two values, faulting if they differ.
func (RCP) Equal(a uint32, b uint32) {
	arm.AsmFull("mcrr2 p7, #7, {a}, {b}, c0", map[string]interface{}{
		"a": a,
		"b": b,
	})
}
