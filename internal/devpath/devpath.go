// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package devpath implements the development-only debug path: verification of
// OTP locks through the raw OTP view, and re-programming of the decrypted
// image to flash followed by a reboot into USB update mode.
//
// WARNING: this package defeats the secrecy of the image and must never be
// linked in release builds.
package devpath

import (
	"github.com/f-secure-foundry/armory-encboot/internal/harden"
	"github.com/f-secure-foundry/armory-encboot/internal/reg"
	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
)

// Flash re-programming parameters
const (
	FlashOffset    = 0x100000
	FlashEraseSize = 0x80000
	FlashBlockSize = 1 << 16
	FlashBlockCmd  = 0xd8
)

// Flash represents the bootrom flash and reboot functions.
type Flash interface {
	ConnectInternalFlash()
	FlashExitXIP()
	FlashRangeErase(addr uint32, count uint32, blockSize uint32, cmd uint8)
	FlashRangeProgram(addr uint32, data []byte)
	ResetUSBBoot(gpioMask uint32, disableMask uint32)
}

// Path represents the debug path.
type Path struct {
	Bus   reg.Bus
	Trap  harden.Trap
	Flash Flash
}

// VerifyLocked checks, through the raw OTP view, that the first row of n
// pages starting from page reads as locked.
func (p *Path) VerifyLocked(page int, n int) {
	for i := 0; i < n; i++ {
		row := uint32(page+i) * rp2350.OTP_ROWS_PER_PAGE
		p.Trap.Equal(p.Bus.Read(rp2350.OTP_DATA_RAW_BASE+row*rp2350.OTP_RAW_ROW_SIZE), harden.Opaque(rp2350.OTP_RAW_LOCKED))
	}
}

// Reflash programs the image to flash and reboots into USB boot mode, it
// never returns.
func (p *Path) Reflash(image []byte) {
	erase := uint32(FlashEraseSize)

	if size := uint32(len(image)); size > erase {
		erase = (size + FlashBlockSize - 1) &^ (FlashBlockSize - 1)
	}

	p.Flash.ConnectInternalFlash()
	p.Flash.FlashExitXIP()
	p.Flash.FlashRangeErase(FlashOffset, erase, FlashBlockSize, FlashBlockCmd)
	p.Flash.FlashRangeProgram(FlashOffset, image)
	p.Flash.ResetUSBBoot(0, 0)
}
