// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package clock implements the boot clock sequencer, bringing clk_sys and
// clk_ref up from reset using only the internal ring oscillator (ROSC),
// optionally calibrated against the crystal oscillator (XOSC).
//
// Clock domain switches are ordered so that a domain never runs, even
// transiently, faster than the higher of its old and new frequency.
package clock

import (
	"github.com/f-secure-foundry/armory-encboot/internal/harden"
	"github.com/f-secure-foundry/armory-encboot/internal/reg"
	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
)

const (
	KHz = 1000
	MHz = 1000 * KHz

	// RoscHz must be higher than the actual ROSC frequency, to prevent
	// overclocking of unused peripherals, it is reported when calibration
	// is not performed.
	RoscHz = 300 * MHz
	// OtherClkDiv is the divider of clk_ref, which is not really used.
	OtherClkDiv = 30

	// DefaultRoscDiv is the ROSC divider for a ~110MHz clk_sys.
	DefaultRoscDiv = 2
	// DefaultRoscDrive sets all ROSC drive strengths to maximum.
	DefaultRoscDrive = rp2350.ROSC_DRIVE_MAX
	// DefaultMaxKHz is the clk_sys ceiling targeted by calibration.
	DefaultMaxKHz = 150 * 1000
	// DefaultXOSCHz is the crystal frequency of reference boards.
	DefaultXOSCHz = 12 * MHz
)

// Config represents the clock bring-up configuration.
type Config struct {
	// RoscDiv is the ROSC output divider.
	RoscDiv uint32
	// RoscDrive holds the drive strengths of ROSC stages 0 to 3.
	RoscDrive uint32

	// XOSCHz is the crystal oscillator frequency used for ROSC
	// calibration, zero disables calibration.
	XOSCHz uint32
	// MaxKHz is the clk_sys ceiling targeted by ROSC calibration.
	MaxKHz uint32
}

// Default returns the uncalibrated clock configuration.
func Default() Config {
	return Config{
		RoscDiv:   DefaultRoscDiv,
		RoscDrive: DefaultRoscDrive,
		MaxKHz:    DefaultMaxKHz,
	}
}

// Sequencer brings up the boot clocks, attesting its progress on a step
// counter.
type Sequencer struct {
	Bus   reg.Bus
	Trap  harden.Trap
	Steps *harden.Steps

	// Hardened enables readback verification of the written
	// configuration.
	Hardened bool
}

// Init configures ROSC, clk_sys and clk_ref. It returns an estimate of the
// clk_sys frequency which is guaranteed not to be lower than the real one.
func (s *Sequencer) Init(conf Config) (hz uint32) {
	b := s.Bus

	// disable resus that may be enabled from previous software
	b.Write(rp2350.CLOCKS_CLK_SYS_RESUS_CTRL, 0)

	// reset the drive strengths (the password is not needed for this)
	b.Write(rp2350.ROSC_FREQA, 0)
	b.Write(rp2350.ROSC_DIV, conf.RoscDiv|rp2350.ROSC_DIV_PASS)

	// Increment the frequency range one step at a time, this is safe
	// provided the current configuration is not TOOHIGH as
	// LOW|MEDIUM == MEDIUM and MEDIUM|HIGH == HIGH.
	reg.Set(b, rp2350.ROSC_CTRL, rp2350.ROSC_CTRL_FREQ_RANGE_MEDIUM)
	reg.Set(b, rp2350.ROSC_CTRL, rp2350.ROSC_CTRL_FREQ_RANGE_HIGH)

	// enable randomisation
	b.Write(rp2350.ROSC_FREQA, freqA(conf.RoscDrive))
	// not used in the high range, but still set to maximum drive
	b.Write(rp2350.ROSC_FREQB, rp2350.ROSC_FREQ_PASSWD_VALUE<<rp2350.ROSC_FREQ_PASSWD|rp2350.ROSC_FREQB_DS4_DS7)

	s.Steps.Check(harden.StepClockInit)

	if s.Hardened {
		s.verifyRosc(conf)
	}

	s.Steps.Check(harden.StepClockInit2)

	hz = RoscHz

	if conf.XOSCHz != 0 {
		if s.calibrate(conf) {
			hz = conf.MaxKHz * KHz
		}
	}

	// clk_sys = ROSC directly, as it is running slowly enough
	Configure(b, rp2350.CLK_SYS,
		rp2350.CLK_SYS_SRC_CLKSRC_CLK_AUX,
		rp2350.CLK_SYS_AUXSRC_ROSC_CLKSRC,
		1<<rp2350.CLK_DIV_INT)

	s.Steps.Check(harden.StepClockInit3)

	// clk_ref = ROSC / OtherClkDiv
	Configure(b, rp2350.CLK_REF,
		rp2350.CLK_REF_SRC_ROSC_CLKSRC_PH,
		0,
		OtherClkDiv<<rp2350.CLK_DIV_INT)

	s.Steps.Check(harden.StepClockInit4)

	if s.Hardened {
		s.verifyClocks()
	}

	s.Steps.Check(harden.StepClockInit5)

	return
}

func freqA(drive uint32) uint32 {
	return rp2350.ROSC_FREQ_PASSWD_VALUE<<rp2350.ROSC_FREQ_PASSWD |
		drive&rp2350.ROSC_DRIVE_MAX |
		rp2350.ROSC_FREQA_DS1_RANDOM | rp2350.ROSC_FREQA_DS0_RANDOM
}

// verifyRosc reads back the ROSC configuration through a re-derived base
// address.
func (s *Sequencer) verifyRosc(conf Config) {
	rosc := harden.Opaque(rp2350.ROSC_BASE)

	drive := harden.Opaque(conf.RoscDrive)&rp2350.ROSC_DRIVE_MAX | rp2350.ROSC_FREQA_DS1_RANDOM | rp2350.ROSC_FREQA_DS0_RANDOM
	s.Trap.Equal(drive, s.Bus.Read(rosc+(rp2350.ROSC_FREQA-rp2350.ROSC_BASE))&0xffff)
	s.Trap.Equal(rp2350.ROSC_FREQB_DS4_DS7, s.Bus.Read(rosc+(rp2350.ROSC_FREQB-rp2350.ROSC_BASE))&0xffff)
	s.Trap.Equal(rp2350.ROSC_CTRL_ENABLE_VALUE<<rp2350.ROSC_CTRL_ENABLE|rp2350.ROSC_CTRL_FREQ_RANGE_HIGH, s.Bus.Read(rosc))
}

// verifyClocks reads back clk_sys and clk_ref control registers, deriving the
// clk_sys address from clk_ref to avoid re-use of a possibly corrupted
// pointer.
func (s *Sequencer) verifyClocks() {
	ref := harden.Opaque(rp2350.ClockCtrl(rp2350.CLK_REF))
	sys := ref + (rp2350.CLK_SYS-rp2350.CLK_REF)*rp2350.CLOCKS_CLK_SIZE

	s.Trap.Equal(s.Bus.Read(sys),
		rp2350.CLK_SYS_AUXSRC_ROSC_CLKSRC<<rp2350.CLK_SYS_CTRL_AUXSRC|
			rp2350.CLK_SYS_SRC_CLKSRC_CLK_AUX<<rp2350.CLK_SYS_CTRL_SRC)
	s.Trap.Equal(s.Bus.Read(ref), 0)
}
