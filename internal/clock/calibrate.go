// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package clock

import (
	"github.com/f-secure-foundry/armory-encboot/internal/reg"
	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
)

// calibrate lowers the ROSC frequency, measured against XOSC, until clk_sys
// would run below the configured ceiling. It returns false when no tried
// configuration satisfies the ceiling.
func (s *Sequencer) calibrate(conf Config) bool {
	b := s.Bus

	initXOSC(b, conf.XOSCHz)

	// switch away from ROSC to avoid overclocking, clk_ref = XOSC
	Configure(b, rp2350.CLK_REF,
		rp2350.CLK_REF_SRC_XOSC_CLKSRC,
		0,
		1<<rp2350.CLK_DIV_INT)

	// clk_sys = clk_ref, leaving the aux source on ROSC to prevent glitches
	// when switching back to it
	Configure(b, rp2350.CLK_SYS,
		rp2350.CLK_SYS_SRC_CLK_REF,
		rp2350.CLK_SYS_AUXSRC_ROSC_CLKSRC,
		1<<rp2350.CLK_DIV_INT)

	drive := uint32(rp2350.ROSC_DRIVE_MAX)

	// go through configurations until below the ceiling
	for div := uint32(1); div < 4; {
		b.Write(rp2350.ROSC_DIV, div|rp2350.ROSC_DIV_PASS)
		b.Write(rp2350.ROSC_FREQA, freqA(drive))

		reg.Wait(b, rp2350.ROSC_STATUS, rp2350.ROSC_STATUS_STB, 1, 1)

		if FrequencyCountKHz(b, conf.XOSCHz/KHz, rp2350.FC0_SRC_ROSC_CLKSRC_PH) < conf.MaxKHz {
			return true
		}

		if drive == 0 {
			div++
			drive = rp2350.ROSC_DRIVE_MAX
		} else {
			drive = 0
		}
	}

	return false
}

// initXOSC starts the crystal oscillator, waiting without timeout for it to
// be stable.
func initXOSC(b reg.Bus, hz uint32) {
	delay := ((hz / KHz) + 128) / rp2350.XOSC_STARTUP_DELAY_CYCLE

	b.Write(rp2350.XOSC_CTRL, rp2350.XOSC_CTRL_FREQ_1_15MHZ)
	b.Write(rp2350.XOSC_STARTUP, delay&rp2350.XOSC_STARTUP_DELAY_MASK)
	reg.Set(b, rp2350.XOSC_CTRL, rp2350.XOSC_CTRL_ENABLE_VALUE<<rp2350.XOSC_CTRL_ENABLE)

	reg.Wait(b, rp2350.XOSC_STATUS, rp2350.XOSC_STATUS_STABLE, 1, 1)
}

// FrequencyCountKHz measures a clock source with the FC0 frequency counter,
// refKHz is the current clk_ref frequency.
func FrequencyCountKHz(b reg.Bus, refKHz uint32, src uint32) uint32 {
	reg.Wait(b, rp2350.CLOCKS_FC0_STATUS, rp2350.FC0_STATUS_RUNNING, 1, 0)

	b.Write(rp2350.CLOCKS_FC0_REF_KHZ, refKHz)
	b.Write(rp2350.CLOCKS_FC0_INTERVAL, rp2350.FC0_DEFAULT_INTERVAL)
	b.Write(rp2350.CLOCKS_FC0_MIN_KHZ, 0)
	b.Write(rp2350.CLOCKS_FC0_MAX_KHZ, rp2350.FC0_MAX_KHZ)
	b.Write(rp2350.CLOCKS_FC0_SRC, src)

	reg.Wait(b, rp2350.CLOCKS_FC0_STATUS, rp2350.FC0_STATUS_DONE, 1, 1)

	return reg.Get(b, rp2350.CLOCKS_FC0_RESULT, rp2350.FC0_RESULT_KHZ, rp2350.FC0_RESULT_KHZ_MASK)
}
