// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package loader

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/f-secure-foundry/armory-encboot/internal/cipher"
	"github.com/f-secure-foundry/armory-encboot/internal/clock"
	"github.com/f-secure-foundry/armory-encboot/internal/otp"
	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
)

// Defaults
const (
	DefaultKeyPage     = 29
	DefaultKeyPages    = 3
	DefaultSaltOffset  = 2
	DefaultKeySize     = 16
	DefaultImageStart  = rp2350.SRAM_BASE
	DefaultImageSize   = 0x78000
	DefaultStackMargin = 0x100
)

// DefaultIV is the public IV of reference deployments.
var DefaultIV = [cipher.BlockSize]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'a', 'b', 'c', 'd', 'e', 'f'}

// Region represents a memory area.
type Region struct {
	Start uint32
	Size  uint32
}

// End returns the first address past the region.
func (r Region) End() uint64 {
	return uint64(r.Start) + uint64(r.Size)
}

// Config represents the loader configuration, resolved once at startup.
type Config struct {
	// Hardening enables redundant compare-traps and step attestation.
	Hardening bool
	// AllowDebugging enables the development-only debug path.
	AllowDebugging bool
	// Diagnostics enables the LED status indicator.
	Diagnostics bool

	// Clock holds the clock bring-up configuration, calibration is
	// enabled with a non-zero Clock.XOSCHz.
	Clock clock.Config

	// KeyPage is the first OTP page holding the key shares.
	KeyPage int
	// KeyPages is the number of key pages, starting from KeyPage, locked
	// once decryption completes.
	KeyPages int
	// SaltOffset is the salt page offset from KeyPage.
	SaltOffset int
	// KeySize is the AES key size.
	KeySize int
	// KeyShares is the number of XOR shares the key is stored as.
	KeyShares int

	// Image is the encrypted image location.
	Image Region
	// IV is the public IV.
	IV [cipher.BlockSize]byte

	// Workspace is the bootrom chain_image() scratch area.
	Workspace Region
	// StackMargin is the stack expansion granted to the chain sequence.
	StackMargin uint32

	// TransientRegions are the MPU regions disabled before chaining.
	TransientRegions []int
	// FlashRegion is the MPU region protecting flash, never disabled.
	FlashRegion int

	// GreenLED and RedLED are the status indicator pins.
	GreenLED int
	RedLED   int
}

// DefaultConfig returns the production configuration of reference boards.
func DefaultConfig() Config {
	return Config{
		Hardening:  true,
		Clock:      clock.Default(),
		KeyPage:    DefaultKeyPage,
		KeyPages:   DefaultKeyPages,
		SaltOffset: DefaultSaltOffset,
		KeySize:    DefaultKeySize,
		KeyShares:  1,
		Image: Region{
			Start: DefaultImageStart,
			Size:  DefaultImageSize,
		},
		IV: DefaultIV,
		Workspace: Region{
			Start: rp2350.ROM_CHAIN_WORKSPACE,
			Size:  rp2350.ROM_CHAIN_WORKSPACE_SIZE,
		},
		StackMargin: DefaultStackMargin,
		TransientRegions: []int{
			rp2350.MPU_REGION_RAM,
			rp2350.MPU_REGION_SCRATCH_X,
			rp2350.MPU_REGION_SCRATCH_Y_DATA,
			rp2350.MPU_REGION_SCRATCH_Y_CODE,
		},
		FlashRegion: rp2350.MPU_REGION_FLASH,
		GreenLED:    rp2350.PIN_LED_GREEN,
		RedLED:      rp2350.PIN_LED_RED,
	}
}

// Validate returns all configuration errors.
func (c *Config) Validate() (err error) {
	if c.Image.Size == 0 || c.Image.Size%cipher.BlockSize != 0 {
		err = multierror.Append(err, fmt.Errorf("image size %#x is not a non-zero multiple of %d", c.Image.Size, cipher.BlockSize))
	}

	if c.Image.Start < rp2350.SRAM_BASE || c.Image.End() > uint64(c.Workspace.Start) && uint64(c.Image.Start) < c.Workspace.End() {
		err = multierror.Append(err, fmt.Errorf("image %#x-%#x outside SRAM or overlapping the workspace", c.Image.Start, c.Image.End()))
	}

	if c.Image.End() > rp2350.SRAM_END {
		err = multierror.Append(err, fmt.Errorf("image end %#x past SRAM end", c.Image.End()))
	}

	if c.Image.End() > rp2350.LOADER_RAM_START && uint64(c.Image.Start) < rp2350.LOADER_RAM_START+rp2350.LOADER_RAM_SIZE {
		err = multierror.Append(err, fmt.Errorf("image %#x-%#x overlapping the loader RAM", c.Image.Start, c.Image.End()))
	}

	if c.Workspace.Size == 0 {
		err = multierror.Append(err, errors.New("empty chain workspace"))
	}

	if c.KeyPage < 0 || c.KeyPages < 1 || c.KeyPage+c.KeyPages > rp2350.OTP_PAGES {
		err = multierror.Append(err, fmt.Errorf("key pages %d-%d outside OTP", c.KeyPage, c.KeyPage+c.KeyPages-1))
	}

	if c.SaltOffset < 1 || c.SaltOffset >= c.KeyPages {
		err = multierror.Append(err, fmt.Errorf("salt page offset %d outside locked key pages", c.SaltOffset))
	}

	if c.KeySize != 16 && c.KeySize != 32 {
		err = multierror.Append(err, fmt.Errorf("invalid key size %d", c.KeySize))
	}

	if c.KeyShares < 1 || c.KeyShares > cipher.MaxShares {
		err = multierror.Append(err, fmt.Errorf("invalid number of key shares %d", c.KeyShares))
	}

	if c.KeySize*c.KeyShares > otp.PageSize {
		err = multierror.Append(err, fmt.Errorf("key shares exceed OTP page size (%d > %d)", c.KeySize*c.KeyShares, otp.PageSize))
	}

	if c.FlashRegion < 0 || c.FlashRegion >= rp2350.MPU_REGIONS {
		err = multierror.Append(err, fmt.Errorf("invalid flash region %d", c.FlashRegion))
	}

	for _, n := range c.TransientRegions {
		if n < 0 || n >= rp2350.MPU_REGIONS {
			err = multierror.Append(err, fmt.Errorf("invalid transient region %d", n))
		}

		if n == c.FlashRegion {
			err = multierror.Append(err, fmt.Errorf("flash region %d cannot be transient", n))
		}
	}

	if c.Diagnostics && !c.AllowDebugging {
		err = multierror.Append(err, errors.New("diagnostics require debugging to be allowed"))
	}

	if c.Diagnostics {
		for _, pin := range []int{c.GreenLED, c.RedLED} {
			if pin < 0 || pin >= 32 {
				err = multierror.Append(err, fmt.Errorf("invalid LED pin %d", pin))
			}
		}
	}

	if c.Clock.RoscDiv == 0 || c.Clock.RoscDiv > rp2350.ROSC_DIV_MASK {
		err = multierror.Append(err, fmt.Errorf("invalid ROSC divider %d", c.Clock.RoscDiv))
	}

	if c.Clock.XOSCHz != 0 && c.Clock.MaxKHz == 0 {
		err = multierror.Append(err, errors.New("calibration requires a frequency ceiling"))
	}

	return
}
