// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
	"github.com/f-secure-foundry/armory-encboot/internal/sim"
)

var transient = []int{
	rp2350.MPU_REGION_RAM,
	rp2350.MPU_REGION_SCRATCH_X,
	rp2350.MPU_REGION_SCRATCH_Y_DATA,
	rp2350.MPU_REGION_SCRATCH_Y_CODE,
}

func TestTeardown(t *testing.T) {
	for _, hardened := range []bool{false, true} {
		d := sim.New()
		flash := d.Region(rp2350.MPU_REGION_FLASH)

		m := &MPU{Bus: d, Trap: d, Hardened: hardened}

		exit, _ := sim.Run(func() {
			m.Teardown(transient, rp2350.MPU_REGION_FLASH)
		})

		require.Equal(t, sim.ExitReturn, exit)

		for _, n := range transient {
			assert.Zero(t, d.Region(n), "region %d", n)
			assert.False(t, m.Enabled(n))
		}

		assert.Equal(t, flash, d.Region(rp2350.MPU_REGION_FLASH))
		assert.True(t, m.Enabled(rp2350.MPU_REGION_FLASH))
		assert.Equal(t, uint32(1), d.Peek(rp2350.MPU_CTRL))

		// the region limit registers are cleared through the aliases
		assert.Equal(t, []uint32{0}, d.Writes(rp2350.MPU_RLAR_A3))
	}
}

func TestTeardownDroppedWrite(t *testing.T) {
	d := sim.New()
	d.DropWrite(rp2350.MPU_RLAR_A2, 1)

	m := &MPU{Bus: d, Trap: d, Hardened: true}

	exit, _ := sim.Run(func() {
		m.Teardown(transient, rp2350.MPU_REGION_FLASH)
	})

	assert.Equal(t, sim.ExitHalt, exit)
	assert.NotZero(t, d.Region(rp2350.MPU_REGION_SCRATCH_Y_DATA))
}

func TestTeardownFlashCorrupted(t *testing.T) {
	d := sim.New()

	m := &MPU{Bus: d, Trap: d, Hardened: true}

	// a corrupted region number tears down the flash region
	d.OnWrite = func(d *sim.Device, addr uint32, val uint32) {
		if addr == rp2350.MPU_RLAR && val == 0 {
			d.SetRegion(rp2350.MPU_REGION_FLASH, 0)
		}
	}

	exit, _ := sim.Run(func() {
		m.Teardown(transient, rp2350.MPU_REGION_FLASH)
	})

	assert.Equal(t, sim.ExitHalt, exit)
}
