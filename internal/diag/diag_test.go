// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
	"github.com/f-secure-foundry/armory-encboot/internal/sim"
)

func TestSignal(t *testing.T) {
	d := sim.New()
	core := sim.NewCore(d)

	s := NewSignal(d, rp2350.PIN_LED_GREEN, rp2350.PIN_LED_RED, core.Delay)

	exit, _ := sim.Run(s.Reset)
	require.Equal(t, sim.ExitReturn, exit)
	assert.Zero(t, d.Peek(rp2350.RESETS_RESET)&(1<<rp2350.RESET_IO_BANK0|1<<rp2350.RESET_PADS_BANK0))

	s.Start()

	assert.True(t, d.GPIO(rp2350.PIN_LED_GREEN))
	assert.False(t, d.GPIO(rp2350.PIN_LED_RED))
	assert.Equal(t, uint32(rp2350.GPIO_FUNC_SIO), d.Peek(rp2350.GPIOCtrl(rp2350.PIN_LED_GREEN)))

	pad := d.Peek(rp2350.PadCtrl(rp2350.PIN_LED_GREEN))
	assert.NotZero(t, pad&(1<<rp2350.PADS_IE))
	assert.Zero(t, pad&(1<<rp2350.PADS_ISO|1<<rp2350.PADS_OD))

	s.Stop()

	assert.False(t, d.GPIO(rp2350.PIN_LED_GREEN))
	assert.Zero(t, core.Cycles)
}

func TestSignalFail(t *testing.T) {
	d := sim.New()
	core := sim.NewCore(d)

	s := NewSignal(d, rp2350.PIN_LED_GREEN, rp2350.PIN_LED_RED, core.Delay)
	s.Start()

	before := len(d.Writes(rp2350.SIO_GPIO_OUT_SET))

	s.Fail(3)

	assert.True(t, d.GPIO(rp2350.PIN_LED_RED))
	assert.False(t, d.GPIO(rp2350.PIN_LED_GREEN))
	assert.Equal(t, PauseCycles+3*2*BlinkCycles, core.Cycles)

	// red on, then green on once per blink
	assert.Len(t, d.Writes(rp2350.SIO_GPIO_OUT_SET), before+1+3)
}
