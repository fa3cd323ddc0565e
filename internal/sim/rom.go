// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"fmt"
)

// FlashSize is the size of the simulated flash.
const FlashSize = 2 * 1024 * 1024

// Chained is the panic value raised by a successful ChainImage call, which
// never returns on hardware.
type Chained struct {
	Workspace     uint32
	WorkspaceSize uint32
	Start         uint32
	Size          uint32
}

func (c Chained) Error() string {
	return fmt.Sprintf("sim: chained to image@%#08x (%d bytes)", c.Start, c.Size)
}

// Rebooted is the panic value raised by ResetUSBBoot, which never returns on
// hardware.
type Rebooted struct{}

func (Rebooted) Error() string {
	return "sim: rebooted to USB boot mode"
}

// Core represents the simulated processor core and bootrom.
type Core struct {
	// Bus, when set, receives chain and flash events in its log.
	Bus *Device

	// ChainResult is the value returned by ChainImage, zero models a
	// successful chain which does not return.
	ChainResult int32
	// Chains records every ChainImage invocation.
	Chains []Chained

	// MSPLIM is the main stack limit register.
	MSPLIM uint32

	// Cycles counts the busy-wait cycles requested through Delay.
	Cycles int

	// Flash is the simulated flash contents.
	Flash []byte
	// FlashXIP tracks whether flash is in execute-in-place mode.
	FlashXIP bool
	// FlashOps records flash operations in order.
	FlashOps []string
}

// NewCore returns a simulated core, logging external calls on the argument
// device.
func NewCore(d *Device) *Core {
	flash := make([]byte, FlashSize)

	for i := range flash {
		flash[i] = 0xff
	}

	return &Core{
		Bus:      d,
		MSPLIM:   0x20081000,
		Flash:    flash,
		FlashXIP: true,
	}
}

func (c *Core) record(kind Kind, addr uint32, val uint32) {
	if c.Bus != nil {
		c.Bus.Log = append(c.Bus.Log, Event{Kind: kind, Addr: addr, Val: val})
	}
}

// StackLimit returns the main stack limit.
func (c *Core) StackLimit() uint32 {
	return c.MSPLIM
}

// SetStackLimit sets the main stack limit.
func (c *Core) SetStackLimit(val uint32) {
	c.MSPLIM = val
}

// Delay accounts for a busy-wait of the argument number of cycles.
func (c *Core) Delay(cycles int) {
	c.Cycles += cycles
}

// ChainImage records a chain request, panicking with a Chained value when
// ChainResult is zero.
func (c *Core) ChainImage(workspace uint32, workspaceSize uint32, start uint32, size uint32) int32 {
	call := Chained{
		Workspace:     workspace,
		WorkspaceSize: workspaceSize,
		Start:         start,
		Size:          size,
	}

	c.Chains = append(c.Chains, call)
	c.record(Chain, start, size)

	if c.ChainResult == 0 {
		panic(call)
	}

	return c.ChainResult
}

// ConnectInternalFlash restores the internal flash pads.
func (c *Core) ConnectInternalFlash() {
	c.FlashOps = append(c.FlashOps, "connect")
	c.record(Flash, 0, 0)
}

// FlashExitXIP leaves execute-in-place mode.
func (c *Core) FlashExitXIP() {
	c.FlashXIP = false
	c.FlashOps = append(c.FlashOps, "exit_xip")
	c.record(Flash, 0, 1)
}

// FlashRangeErase erases count bytes of flash at the argument offset.
func (c *Core) FlashRangeErase(addr uint32, count uint32, blockSize uint32, cmd uint8) {
	c.FlashOps = append(c.FlashOps, fmt.Sprintf("erase %#x %#x %#x %#x", addr, count, blockSize, cmd))
	c.record(Flash, addr, count)

	if c.FlashXIP || blockSize == 0 || addr%blockSize != 0 || count%blockSize != 0 {
		return
	}

	for i := addr; i < addr+count && int(i) < len(c.Flash); i++ {
		c.Flash[i] = 0xff
	}
}

// FlashRangeProgram programs erased flash at the argument offset.
func (c *Core) FlashRangeProgram(addr uint32, data []byte) {
	c.FlashOps = append(c.FlashOps, fmt.Sprintf("program %#x %#x", addr, len(data)))
	c.record(Flash, addr, uint32(len(data)))

	if c.FlashXIP {
		return
	}

	for i, b := range data {
		if int(addr)+i < len(c.Flash) {
			// programming only clears bits
			c.Flash[int(addr)+i] &= b
		}
	}
}

// ResetUSBBoot reboots into the bootrom USB mode, panicking with a Rebooted
// value.
func (c *Core) ResetUSBBoot(gpioMask uint32, disableMask uint32) {
	c.FlashOps = append(c.FlashOps, "reset_usb_boot")
	c.record(Flash, gpioMask, disableMask)

	panic(Rebooted{})
}
