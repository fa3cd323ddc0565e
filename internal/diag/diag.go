// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package diag implements the LED diagnostic signal of development builds.
package diag

import (
	"github.com/f-secure-foundry/armory-encboot/internal/reg"
	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
)

// blink timings, in busy-wait cycles
const (
	PauseCycles = 10000000
	BlinkCycles = 5000000
)

// LED represents a GPIO driven LED.
type LED struct {
	Bus reg.Bus
	Pin int
}

// Init configures the LED pin as a software controlled output, driven low.
func (l *LED) Init() {
	mask := uint32(1) << l.Pin

	l.Bus.Write(rp2350.SIO_GPIO_OE_CLR, mask)
	l.Bus.Write(rp2350.SIO_GPIO_OUT_CLR, mask)

	pad := rp2350.PadCtrl(l.Pin)
	reg.WriteMasked(l.Bus, pad, 1<<rp2350.PADS_IE, 1<<rp2350.PADS_IE|1<<rp2350.PADS_OD)
	l.Bus.Write(rp2350.GPIOCtrl(l.Pin), rp2350.GPIO_FUNC_SIO)
	// remove pad isolation now that the function is selected
	reg.Clear(l.Bus, pad, 1<<rp2350.PADS_ISO)

	l.Bus.Write(rp2350.SIO_GPIO_OE_SET, mask)
}

// Set drives the LED.
func (l *LED) Set(on bool) {
	if on {
		l.Bus.Write(rp2350.SIO_GPIO_OUT_SET, 1<<l.Pin)
	} else {
		l.Bus.Write(rp2350.SIO_GPIO_OUT_CLR, 1<<l.Pin)
	}
}

// Signal represents the status indicator, the green LED is lit during the
// secure phase, the red one signals a chain failure.
type Signal struct {
	Bus   reg.Bus
	Green LED
	Red   LED

	// Delay busy-waits for the argument number of cycles.
	Delay func(cycles int)
}

// NewSignal returns a status indicator on the argument pins.
func NewSignal(b reg.Bus, green int, red int, delay func(int)) *Signal {
	return &Signal{
		Bus:   b,
		Green: LED{Bus: b, Pin: green},
		Red:   LED{Bus: b, Pin: red},
		Delay: delay,
	}
}

// Reset takes the GPIO banks out of reset.
func (s *Signal) Reset() {
	mask := uint32(1<<rp2350.RESET_IO_BANK0 | 1<<rp2350.RESET_PADS_BANK0)

	reg.Set(s.Bus, rp2350.RESETS_RESET, mask)
	reg.Clear(s.Bus, rp2350.RESETS_RESET, mask)
	reg.WaitSet(s.Bus, rp2350.RESETS_RESET_DONE, mask)
}

// Start lights the green LED.
func (s *Signal) Start() {
	s.Green.Init()
	s.Green.Set(true)
}

// Stop turns the green LED off.
func (s *Signal) Stop() {
	s.Green.Set(false)
}

// Fail lights the red LED and blinks the green one count times.
func (s *Signal) Fail(count int) {
	s.Red.Init()
	s.Red.Set(true)

	s.Green.Set(false)
	s.Delay(PauseCycles)

	for i := 0; i < count; i++ {
		s.Green.Set(false)
		s.Delay(BlinkCycles)
		s.Green.Set(true)
		s.Delay(BlinkCycles)
	}

	s.Green.Set(false)
}
