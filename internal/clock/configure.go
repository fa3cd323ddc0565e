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

// srcField returns the glitchless mux field position and mask of a clock
// domain.
func srcField(clk int) (pos int, mask uint32) {
	if clk == rp2350.CLK_REF {
		return rp2350.CLK_REF_CTRL_SRC, rp2350.CLK_REF_CTRL_SRC_MASK
	}

	return rp2350.CLK_SYS_CTRL_SRC, rp2350.CLK_SYS_CTRL_SRC_MASK
}

// auxSrc returns the glitchless mux value selecting the auxiliary mux of a
// clock domain.
func auxSrc(clk int) uint32 {
	if clk == rp2350.CLK_REF {
		return rp2350.CLK_REF_SRC_CLKSRC_CLK_AUX
	}

	return rp2350.CLK_SYS_SRC_CLKSRC_CLK_AUX
}

// auxField returns the auxiliary mux field position and mask of a clock
// domain.
func auxField(clk int) (pos int, mask uint32) {
	switch clk {
	case rp2350.CLK_REF:
		return rp2350.CLK_REF_CTRL_AUXSRC, rp2350.CLK_REF_CTRL_AUXSRC_MSK
	case rp2350.CLK_SYS:
		return rp2350.CLK_SYS_CTRL_AUXSRC, rp2350.CLK_SYS_CTRL_AUXSRC_MASK
	default:
		return rp2350.CLK_OTHER_CTRL_AUXSRC, rp2350.CLK_OTHER_CTRL_AUXSRC_MASK
	}
}

// Configure switches a clock domain to a new source, auxiliary source and
// divider (DIV register value, integer part at CLK_DIV_INT).
//
// Glitchless domains are parked at the slowest divider while their source
// changes, the requested divider is applied only once the new source is
// selected, so the domain never runs faster than the larger of its previous
// and requested frequencies. They are moved away from the auxiliary mux,
// waiting for the switch to latch, before the auxiliary source changes. The
// remaining domains are stopped during reconfiguration.
func Configure(b reg.Bus, clk int, src uint32, auxsrc uint32, div uint32) {
	ctrl := rp2350.ClockCtrl(clk)
	divAddr := rp2350.ClockDiv(clk)
	selected := rp2350.ClockSelected(clk)

	auxPos, auxMask := auxField(clk)

	if !rp2350.HasGlitchlessMux(clk) {
		// cleanly stop the clock to avoid glitches propagating when
		// changing the aux mux
		reg.Clear(b, ctrl, 1<<rp2350.CLK_CTRL_ENABLE)
		reg.WriteMasked(b, ctrl, auxsrc<<auxPos, auxMask<<auxPos)
		b.Write(divAddr, div)
		reg.Set(b, ctrl, 1<<rp2350.CLK_CTRL_ENABLE)

		return
	}

	b.Write(divAddr, rp2350.CLK_DIV_INT_MASK<<rp2350.CLK_DIV_INT)

	srcPos, srcMask := srcField(clk)
	cur := b.Read(ctrl)

	onAux := (cur>>srcPos)&srcMask == auxSrc(clk)
	auxChange := (cur>>auxPos)&auxMask != auxsrc

	// switch away from aux *first* to avoid passing glitches when
	// changing the aux mux
	if src == auxSrc(clk) || onAux && auxChange {
		reg.Clear(b, ctrl, srcMask<<srcPos)
		reg.WaitSet(b, selected, 1)
	}

	reg.WriteMasked(b, ctrl, auxsrc<<auxPos, auxMask<<auxPos)
	reg.WriteMasked(b, ctrl, src<<srcPos, srcMask<<srcPos)
	reg.WaitSet(b, selected, 1<<src)

	b.Write(divAddr, div)
}
