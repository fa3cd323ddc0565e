// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package clock

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f-secure-foundry/armory-encboot/internal/harden"
	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
	"github.com/f-secure-foundry/armory-encboot/internal/sim"
)

func roscKHz(d *sim.Device) uint32 {
	div := d.Peek(rp2350.ROSC_DIV) & rp2350.ROSC_DIV_MASK
	return d.RoscKHz(d.Peek(rp2350.ROSC_CTRL), d.Peek(rp2350.ROSC_FREQA), div)
}

func divided(d *sim.Device, clk int, khz uint32) uint32 {
	div := d.Peek(rp2350.ClockDiv(clk)) >> rp2350.CLK_DIV_INT

	if div == 0 {
		div = 1 << 16
	}

	return khz / div
}

func refKHz(d *sim.Device) (khz uint32) {
	switch d.Peek(rp2350.ClockCtrl(rp2350.CLK_REF)) & rp2350.CLK_REF_CTRL_SRC_MASK {
	case rp2350.CLK_REF_SRC_ROSC_CLKSRC_PH:
		khz = roscKHz(d)
	case rp2350.CLK_REF_SRC_XOSC_CLKSRC:
		khz = d.XOSCKHz
	}

	return divided(d, rp2350.CLK_REF, khz)
}

func sysKHz(d *sim.Device) (khz uint32) {
	ctrl := d.Peek(rp2350.ClockCtrl(rp2350.CLK_SYS))

	if ctrl&rp2350.CLK_SYS_CTRL_SRC_MASK == rp2350.CLK_SYS_SRC_CLK_REF {
		khz = refKHz(d)
	} else {
		switch (ctrl >> rp2350.CLK_SYS_CTRL_AUXSRC) & rp2350.CLK_SYS_CTRL_AUXSRC_MASK {
		case rp2350.CLK_SYS_AUXSRC_ROSC_CLKSRC:
			khz = roscKHz(d)
		case rp2350.CLK_SYS_AUXSRC_XOSC_CLKSRC:
			khz = d.XOSCKHz
		}
	}

	return divided(d, rp2350.CLK_SYS, khz)
}

func highRosc(d *sim.Device) {
	d.Write(rp2350.ROSC_CTRL, rp2350.ROSC_CTRL_ENABLE_VALUE<<rp2350.ROSC_CTRL_ENABLE|rp2350.ROSC_CTRL_FREQ_RANGE_HIGH)
	d.Write(rp2350.ROSC_FREQA, freqA(rp2350.ROSC_DRIVE_MAX))
	d.Write(rp2350.ROSC_DIV, rp2350.ROSC_DIV_PASS|1)
}

type transition struct {
	clk    int
	src    uint32
	auxsrc uint32
	div    uint32
}

func randomTransition(r *rand.Rand) (tr transition) {
	tr.div = uint32(1+r.Intn(32)) << rp2350.CLK_DIV_INT

	if r.Intn(2) == 0 {
		tr.clk = rp2350.CLK_REF
		tr.src = []uint32{rp2350.CLK_REF_SRC_ROSC_CLKSRC_PH, rp2350.CLK_REF_SRC_XOSC_CLKSRC}[r.Intn(2)]

		return
	}

	tr.clk = rp2350.CLK_SYS
	tr.src = []uint32{rp2350.CLK_SYS_SRC_CLK_REF, rp2350.CLK_SYS_SRC_CLKSRC_CLK_AUX}[r.Intn(2)]
	tr.auxsrc = []uint32{rp2350.CLK_SYS_AUXSRC_ROSC_CLKSRC, rp2350.CLK_SYS_AUXSRC_XOSC_CLKSRC}[r.Intn(2)]

	return
}

func TestConfigureNeverOvershoots(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	freq := map[int]func(*sim.Device) uint32{
		rp2350.CLK_REF: refKHz,
		rp2350.CLK_SYS: sysKHz,
	}

	for seq := 0; seq < 200; seq++ {
		d := sim.New()
		d.XOSCPresent = true
		highRosc(d)

		for n := 0; n < 8; n++ {
			tr := randomTransition(r)
			khz := freq[tr.clk]
			pre := khz(d)
			peak := pre

			d.OnWrite = func(d *sim.Device, addr uint32, val uint32) {
				if f := khz(d); f > peak {
					peak = f
				}
			}

			exit, _ := sim.Run(func() {
				Configure(d, tr.clk, tr.src, tr.auxsrc, tr.div)
			})

			d.OnWrite = nil
			post := khz(d)

			require.Equal(t, sim.ExitReturn, exit)

			limit := pre
			if post > limit {
				limit = post
			}

			require.LessOrEqualf(t, peak, limit, "sequence %d, %+v: pre %d post %d kHz", seq, tr, pre, post)
			require.Equal(t, uint32(1)<<tr.src, d.Peek(rp2350.ClockSelected(tr.clk)))
			require.Equal(t, tr.div, d.Peek(rp2350.ClockDiv(tr.clk)))
		}
	}
}

func TestConfigureFasterReference(t *testing.T) {
	d := sim.New()
	d.XOSCPresent = true
	highRosc(d)

	// clk_sys on a slow aux path, clk_ref undivided and much faster
	Configure(d, rp2350.CLK_SYS, rp2350.CLK_SYS_SRC_CLKSRC_CLK_AUX, rp2350.CLK_SYS_AUXSRC_XOSC_CLKSRC, 20<<rp2350.CLK_DIV_INT)
	Configure(d, rp2350.CLK_REF, rp2350.CLK_REF_SRC_ROSC_CLKSRC_PH, 0, 1<<rp2350.CLK_DIV_INT)

	pre := sysKHz(d)
	peak := pre

	d.OnWrite = func(d *sim.Device, addr uint32, val uint32) {
		if f := sysKHz(d); f > peak {
			peak = f
		}
	}

	// changing aux source moves clk_sys through clk_ref
	Configure(d, rp2350.CLK_SYS, rp2350.CLK_SYS_SRC_CLKSRC_CLK_AUX, rp2350.CLK_SYS_AUXSRC_ROSC_CLKSRC, 400<<rp2350.CLK_DIV_INT)

	d.OnWrite = nil
	post := sysKHz(d)

	assert.Equal(t, d.XOSCKHz/20, pre)
	assert.LessOrEqual(t, peak, pre)
	assert.LessOrEqual(t, post, pre)
}

func TestConfigureStopsNonGlitchless(t *testing.T) {
	d := sim.New()
	ctrl := rp2350.ClockCtrl(rp2350.CLK_PERI)

	d.Write(ctrl, 1<<rp2350.CLK_CTRL_ENABLE|1<<rp2350.CLK_OTHER_CTRL_AUXSRC)

	aux := func(v uint32) uint32 {
		return (v >> rp2350.CLK_OTHER_CTRL_AUXSRC) & rp2350.CLK_OTHER_CTRL_AUXSRC_MASK
	}

	prev := aux(d.Peek(ctrl))

	d.OnWrite = func(d *sim.Device, addr uint32, val uint32) {
		if addr != ctrl {
			return
		}

		if aux(val) != prev {
			assert.Zero(t, val&(1<<rp2350.CLK_CTRL_ENABLE), "aux source changed on a running clock")
			prev = aux(val)
		}
	}

	Configure(d, rp2350.CLK_PERI, 0, 3, 2<<16)

	val := d.Peek(ctrl)
	assert.Equal(t, uint32(3), aux(val))
	assert.NotZero(t, val&(1<<rp2350.CLK_CTRL_ENABLE))
	assert.Equal(t, uint32(2<<16), d.Peek(rp2350.ClockDiv(rp2350.CLK_PERI)))
}

func newSequencer(d *sim.Device, hardened bool) (*Sequencer, *harden.Steps) {
	steps := harden.NewSteps(d, hardened)

	return &Sequencer{
		Bus:      d,
		Trap:     d,
		Steps:    steps,
		Hardened: hardened,
	}, steps
}

func TestInit(t *testing.T) {
	d := sim.New()
	s, steps := newSequencer(d, true)

	var hz uint32

	exit, _ := sim.Run(func() {
		hz = s.Init(Default())
	})

	require.Equal(t, sim.ExitReturn, exit)
	require.Equal(t, uint32(RoscHz), hz)
	require.Equal(t, uint32(harden.StepClockInitDone), steps.Count())

	assert.Equal(t, []uint32{0}, d.Writes(rp2350.CLOCKS_CLK_SYS_RESUS_CTRL))
	assert.Equal(t, uint32(rp2350.ROSC_CTRL_ENABLE_VALUE<<rp2350.ROSC_CTRL_ENABLE|rp2350.ROSC_CTRL_FREQ_RANGE_HIGH), d.Peek(rp2350.ROSC_CTRL))
	assert.Equal(t, uint32(DefaultRoscDiv), d.Peek(rp2350.ROSC_DIV)&rp2350.ROSC_DIV_MASK)

	assert.Equal(t, uint32(0x41), d.Peek(rp2350.ClockCtrl(rp2350.CLK_SYS)))
	assert.Equal(t, uint32(1<<16), d.Peek(rp2350.ClockDiv(rp2350.CLK_SYS)))
	assert.Equal(t, uint32(0), d.Peek(rp2350.ClockCtrl(rp2350.CLK_REF)))
	assert.Equal(t, uint32(OtherClkDiv<<16), d.Peek(rp2350.ClockDiv(rp2350.CLK_REF)))

	assert.LessOrEqual(t, sysKHz(d)*KHz, hz)
}

func TestInitFrequencyRangeSteps(t *testing.T) {
	d := sim.New()
	s, _ := newSequencer(d, false)

	s.Init(Default())

	// the range is raised one step at a time, never through TOOHIGH
	assert.Equal(t, []uint32{
		rp2350.ROSC_CTRL_FREQ_RANGE_MEDIUM,
		rp2350.ROSC_CTRL_FREQ_RANGE_HIGH,
	}, d.Writes(rp2350.ROSC_CTRL))
	assert.Zero(t, d.Traps)
}

func TestInitCalibrated(t *testing.T) {
	d := sim.New()
	d.XOSCPresent = true

	s, steps := newSequencer(d, true)

	conf := Default()
	conf.XOSCHz = DefaultXOSCHz

	var hz uint32

	exit, _ := sim.Run(func() {
		hz = s.Init(conf)
	})

	require.Equal(t, sim.ExitReturn, exit)
	require.Equal(t, uint32(harden.StepClockInitDone), steps.Count())

	// 220MHz at div 1, 180MHz at div 1 low drive, 110MHz at div 2
	assert.Equal(t, conf.MaxKHz*KHz, hz)
	assert.Equal(t, uint32(2), d.Peek(rp2350.ROSC_DIV)&rp2350.ROSC_DIV_MASK)
	assert.Equal(t, uint32(110000), sysKHz(d))
	assert.Less(t, sysKHz(d), conf.MaxKHz)
}

func TestInitCalibrationExhausted(t *testing.T) {
	d := sim.New()
	d.XOSCPresent = true
	d.RoscKHz = func(uint32, uint32, uint32) uint32 {
		return 400000
	}

	s, _ := newSequencer(d, true)

	conf := Default()
	conf.XOSCHz = DefaultXOSCHz

	var hz uint32

	exit, _ := sim.Run(func() {
		hz = s.Init(conf)
	})

	require.Equal(t, sim.ExitReturn, exit)
	assert.Equal(t, uint32(RoscHz), hz)
	assert.Equal(t, uint32(3), d.Peek(rp2350.ROSC_DIV)&rp2350.ROSC_DIV_MASK)
	assert.Zero(t, d.Peek(rp2350.ROSC_FREQA)&rp2350.ROSC_DRIVE_MAX)
}

func TestInitMissingCrystalHangs(t *testing.T) {
	d := sim.New()
	s, _ := newSequencer(d, true)

	conf := Default()
	conf.XOSCHz = DefaultXOSCHz

	exit, _ := sim.Run(func() {
		s.Init(conf)
	})

	assert.Equal(t, sim.ExitHang, exit)
}

func TestInitRoscReadbackFault(t *testing.T) {
	d := sim.New()
	d.FaultRead(rp2350.ROSC_FREQA, 1, 0)

	s, steps := newSequencer(d, true)

	exit, val := sim.Run(func() {
		s.Init(Default())
	})

	require.Equal(t, sim.ExitHalt, exit)
	assert.IsType(t, harden.Halt{}, val)
	assert.True(t, d.Halted)
	assert.Equal(t, uint32(harden.StepClockInit2), steps.Count())
}

func TestInitClockReadbackFault(t *testing.T) {
	sys := rp2350.ClockCtrl(rp2350.CLK_SYS)

	// count the sequencer own reads of clk_sys control
	ref := sim.New()
	s, _ := newSequencer(ref, false)
	s.Init(Default())

	n := 0

	for _, e := range ref.Log {
		if e.Kind == sim.Read && e.Addr == sys {
			n++
		}
	}

	d := sim.New()
	d.FaultRead(sys, n+1, 0x1)

	s, steps := newSequencer(d, true)

	exit, _ := sim.Run(func() {
		s.Init(Default())
	})

	require.Equal(t, sim.ExitHalt, exit)
	assert.Equal(t, uint32(harden.StepClockInit5), steps.Count())
}

func TestInitSkippedStep(t *testing.T) {
	d := sim.New()
	s, steps := newSequencer(d, true)

	steps.Check(harden.StepClockInit)

	exit, _ := sim.Run(func() {
		s.Init(Default())
	})

	assert.Equal(t, sim.ExitHalt, exit)
	assert.Zero(t, d.Writes(rp2350.ClockCtrl(rp2350.CLK_SYS)))
}
