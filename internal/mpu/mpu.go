// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mpu implements the teardown of the Armv8-M memory protection
// regions used only during the secure boot phase.
package mpu

import (
	"github.com/f-secure-foundry/armory-encboot/internal/harden"
	"github.com/f-secure-foundry/armory-encboot/internal/reg"
	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
)

// region limit address registers, indexed by RNR[1:0] alias
var rlar = [4]uint32{
	rp2350.MPU_RLAR,
	rp2350.MPU_RLAR_A1,
	rp2350.MPU_RLAR_A2,
	rp2350.MPU_RLAR_A3,
}

// MPU represents the memory protection unit.
type MPU struct {
	Bus  reg.Bus
	Trap harden.Trap

	// Hardened enables readback verification of the final region table.
	Hardened bool
}

// Teardown disables the argument transient regions through the RLAR alias
// registers, the flash region is left untouched.
func (m *MPU) Teardown(transient []int, flash int) {
	b := m.Bus

	b.Write(rp2350.MPU_RNR, uint32(flash))
	keep := b.Read(rp2350.MPU_RLAR)

	for _, n := range transient {
		b.Write(rp2350.MPU_RNR, uint32(n)&^3)
		b.Write(rlar[n&3], 0)
	}

	if !m.Hardened {
		return
	}

	for _, n := range transient {
		b.Write(rp2350.MPU_RNR, harden.Opaque(uint32(n)))
		m.Trap.Equal(b.Read(rp2350.MPU_RLAR)&(1<<rp2350.MPU_RLAR_EN), 0)
	}

	b.Write(rp2350.MPU_RNR, harden.Opaque(uint32(flash)))
	m.Trap.Equal(keep, b.Read(rp2350.MPU_RLAR))
}

// Enabled returns whether a region is enabled.
func (m *MPU) Enabled(n int) bool {
	m.Bus.Write(rp2350.MPU_RNR, uint32(n))
	return reg.IsSet(m.Bus, rp2350.MPU_RLAR, rp2350.MPU_RLAR_EN)
}
