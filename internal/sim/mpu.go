// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
)

// mpuRegion returns the region selected by a RBAR/RLAR register or alias, the
// aliases address RNR[7:2]*4 + n.
func (d *Device) mpuRegion(addr uint32) (n int, rlar bool, ok bool) {
	rnr := int(d.regs[rp2350.MPU_RNR] & 0xff)

	switch addr {
	case rp2350.MPU_RBAR:
		return rnr, false, true
	case rp2350.MPU_RLAR:
		return rnr, true, true
	case rp2350.MPU_RBAR_A1, rp2350.MPU_RBAR_A2, rp2350.MPU_RBAR_A3:
		return rnr&^3 + int(addr-rp2350.MPU_RBAR)/8, false, true
	case rp2350.MPU_RLAR_A1, rp2350.MPU_RLAR_A2, rp2350.MPU_RLAR_A3:
		return rnr&^3 + int(addr-rp2350.MPU_RLAR)/8, true, true
	}

	return
}

func (d *Device) mpuRead(addr uint32) uint32 {
	n, rlar, ok := d.mpuRegion(addr)

	if !ok {
		return d.regs[addr]
	}

	if n >= rp2350.MPU_REGIONS {
		return 0
	}

	if rlar {
		return d.mpu[n].rlar
	}

	return d.mpu[n].rbar
}

func (d *Device) mpuWrite(addr uint32, val uint32) {
	n, rlar, ok := d.mpuRegion(addr)

	if !ok {
		d.regs[addr] = val
		return
	}

	if n >= rp2350.MPU_REGIONS {
		return
	}

	if rlar {
		d.mpu[n].rlar = val
	} else {
		d.mpu[n].rbar = val
	}
}
