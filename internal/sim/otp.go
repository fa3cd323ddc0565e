// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
)

func (d *Device) otpRead(addr uint32) uint32 {
	var guarded bool
	var raw bool
	var off uint32

	switch {
	case addr >= rp2350.OTP_DATA_RAW_GUARDED_BASE:
		guarded, raw, off = true, true, addr-rp2350.OTP_DATA_RAW_GUARDED_BASE
	case addr >= rp2350.OTP_DATA_RAW_BASE:
		raw, off = true, addr-rp2350.OTP_DATA_RAW_BASE
	case addr >= rp2350.OTP_DATA_GUARDED_BASE:
		guarded, off = true, addr-rp2350.OTP_DATA_GUARDED_BASE
	default:
		off = addr - rp2350.OTP_DATA_BASE
	}

	if raw {
		row := int(off / rp2350.OTP_RAW_ROW_SIZE)
		return d.otpRow(addr, row, guarded)
	}

	// a 32-bit ECC data read returns two consecutive rows
	row := int(off / rp2350.OTP_DATA_ROW_SIZE)

	lo := d.otpRow(addr, row, guarded) & 0xffff
	hi := d.otpRow(addr, row+1, guarded) & 0xffff

	return hi<<16 | lo
}

// otpRow returns a row value, ECC bits of raw reads are not modelled.
func (d *Device) otpRow(addr uint32, row int, guarded bool) uint32 {
	if row < 0 || row >= rp2350.OTP_ROWS {
		panic(BusFault{Addr: addr})
	}

	page := row / rp2350.OTP_ROWS_PER_PAGE

	if d.Locked(page) {
		if guarded {
			panic(BusFault{Addr: addr})
		}

		return rp2350.OTP_RAW_LOCKED
	}

	val := uint32(d.OTP[row])

	if d.BadRows[row] {
		if guarded {
			panic(BusFault{Addr: addr})
		}

		// uncorrectable data is silently returned by unguarded reads
		val ^= 0x5a5a
	}

	return val
}
