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

// CPU represents the Cortex-M33 core, it implements chain.CPU.
type CPU struct{}

// StackLimit returns the main stack limit (MSPLIM).
func (CPU) StackLimit() uint32 {
	return uint32(arm.AsmFull("mrs {}, msplim", nil))
}

// SetStackLimit sets the main stack limit (MSPLIM).
func (CPU) SetStackLimit(val uint32) {
	arm.AsmFull("msr msplim, {val}", map[string]interface{}{
		"val": val,
	})
}

// Delay busy-waits for the argument number of cycles.
func Delay(cycles int) {
	for i := 0; i < cycles; i++ {
		arm.Asm("nop")
	}
}
