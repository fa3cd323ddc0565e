// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sim implements a simulated RP2350 register file for the secure
// loader, it records every bus access in program order and supports fault
// injection (corrupted reads, dropped writes) to exercise the compare-trap
// countermeasures away from the target.
package sim

import (
	"errors"
	"fmt"

	"github.com/f-secure-foundry/tamago/bits"

	"github.com/f-secure-foundry/armory-encboot/internal/harden"
	"github.com/f-secure-foundry/armory-encboot/internal/reg"
	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
)

// ErrHang is the panic value raised when a register is polled more than
// PollLimit times in a row, modelling a hardware status bit which never
// becomes ready.
var ErrHang = errors.New("sim: polled register never became ready")

// DefaultPollLimit is the default number of consecutive reads of the same
// register before ErrHang.
const DefaultPollLimit = 4096

// Kind represents the type of a recorded event.
type Kind int

// Event kinds
const (
	Read Kind = iota
	Write
	Trap
	Chain
	Flash
)

func (k Kind) String() string {
	switch k {
	case Read:
		return "read"
	case Write:
		return "write"
	case Trap:
		return "trap"
	case Chain:
		return "chain"
	case Flash:
		return "flash"
	default:
		return "unknown"
	}
}

// Event represents a recorded bus access or external call.
type Event struct {
	Kind Kind
	Addr uint32
	Val  uint32
}

func (e Event) String() string {
	return fmt.Sprintf("%s %#08x %#08x", e.Kind, e.Addr, e.Val)
}

// BusFault is the panic value raised by a guarded OTP read of locked or
// uncorrectable data.
type BusFault struct {
	Addr uint32
}

func (f BusFault) Error() string {
	return fmt.Sprintf("sim: bus fault at %#08x", f.Addr)
}

type fault struct {
	addr uint32
	nth  int
	val  uint32
}

type region struct {
	rbar uint32
	rlar uint32
}

// Device represents a simulated RP2350.
type Device struct {
	// Log holds every recorded event in program order.
	Log []Event

	// PollLimit is the number of consecutive reads of the same register
	// tolerated before raising ErrHang.
	PollLimit int

	// OnWrite, when set, is invoked after every register write has been
	// applied.
	OnWrite func(d *Device, addr uint32, val uint32)

	// XOSCPresent models the presence of a crystal oscillator.
	XOSCPresent bool
	// XOSCKHz is the crystal oscillator frequency.
	XOSCKHz uint32
	// RoscKHz models the ring oscillator frequency.
	RoscKHz func(ctrl uint32, freqa uint32, div uint32) uint32

	// OTP holds the ECC data rows.
	OTP [rp2350.OTP_ROWS]uint16
	// BadRows marks rows with uncorrectable ECC errors.
	BadRows map[int]bool

	// Traps counts compare-trap invocations.
	Traps int
	// Halted is set on compare-trap mismatch.
	Halted bool

	regs  map[uint32]uint32
	mpu   [rp2350.MPU_REGIONS]region
	reads map[uint32]int

	readFaults []fault
	writeDrops []fault

	lastRead uint32
	polls    int
}

// New returns a simulated device in its post-bootrom reset state.
func New() *Device {
	d := &Device{
		PollLimit: DefaultPollLimit,
		XOSCKHz:   12000,
		RoscKHz:   DefaultRoscKHz,
		BadRows:   make(map[int]bool),
		regs:      make(map[uint32]uint32),
		reads:     make(map[uint32]int),
	}

	d.regs[rp2350.ROSC_CTRL] = rp2350.ROSC_CTRL_ENABLE_VALUE<<rp2350.ROSC_CTRL_ENABLE | rp2350.ROSC_CTRL_FREQ_RANGE_LOW
	d.regs[rp2350.ROSC_DIV] = rp2350.ROSC_DIV_PASS | 8
	d.regs[rp2350.RESETS_RESET] = 0x1fffffff

	for clk := 0; clk < rp2350.CLK_COUNT; clk++ {
		d.regs[rp2350.ClockDiv(clk)] = 1 << rp2350.CLK_DIV_INT
	}

	d.regs[rp2350.ClockSelected(rp2350.CLK_REF)] = 1
	d.regs[rp2350.ClockSelected(rp2350.CLK_SYS)] = 1

	// regions left enabled by the bootrom for the secure phase
	for _, n := range []int{
		rp2350.MPU_REGION_RAM,
		rp2350.MPU_REGION_SCRATCH_X,
		rp2350.MPU_REGION_SCRATCH_Y_DATA,
		rp2350.MPU_REGION_SCRATCH_Y_CODE,
		rp2350.MPU_REGION_FLASH,
	} {
		d.mpu[n].rbar = uint32(n) << 16
		d.mpu[n].rlar = uint32(n)<<16 | 1<<rp2350.MPU_RLAR_EN
	}

	d.regs[rp2350.MPU_CTRL] = 1

	return d
}

// DefaultRoscKHz models the ring oscillator as running at ~220MHz in the high
// frequency range at maximum drive strength, ~180MHz at minimum drive
// strength, scaled down by the divider.
func DefaultRoscKHz(ctrl uint32, freqa uint32, div uint32) uint32 {
	var khz uint32

	switch ctrl & rp2350.ROSC_CTRL_FREQ_RANGE_MASK {
	case rp2350.ROSC_CTRL_FREQ_RANGE_HIGH:
		khz = 180000
	case rp2350.ROSC_CTRL_FREQ_RANGE_MEDIUM:
		khz = 110000
	default:
		khz = 11000
	}

	if freqa&rp2350.ROSC_DRIVE_MAX == rp2350.ROSC_DRIVE_MAX {
		khz += 40000
	}

	if div == 0 {
		div = 32
	}

	return khz / div
}

// FaultRead makes the nth (1-based) read of a register return val, modelling
// a glitched load or a corrupted pointer.
func (d *Device) FaultRead(addr uint32, nth int, val uint32) {
	d.readFaults = append(d.readFaults, fault{addr: addr, nth: nth, val: val})
}

// DropWrite makes the nth (1-based) write to a register (through any alias)
// have no effect, modelling a skipped store instruction.
func (d *Device) DropWrite(addr uint32, nth int) {
	d.writeDrops = append(d.writeDrops, fault{addr: addr, nth: nth})
}

// Peek returns a register value without recording an access.
func (d *Device) Peek(addr uint32) uint32 {
	switch {
	case isMPU(addr):
		return d.mpuRead(addr)
	default:
		return d.regs[addr]
	}
}

// Region returns the RLAR value of an MPU region.
func (d *Device) Region(n int) uint32 {
	return d.mpu[n].rlar
}

// SetRegion sets the RLAR value of an MPU region.
func (d *Device) SetRegion(n int, rlar uint32) {
	d.mpu[n].rlar = rlar
}

// ProgramOTP writes bytes, in little-endian row order, starting from the
// first row of an OTP page.
func (d *Device) ProgramOTP(page int, buf []byte) {
	row := page * rp2350.OTP_ROWS_PER_PAGE

	for i := 0; i < len(buf); i += 2 {
		v := uint16(buf[i])

		if i+1 < len(buf) {
			v |= uint16(buf[i+1]) << 8
		}

		d.OTP[row+i/2] = v
	}
}

// Locked returns whether an OTP page has been locked for secure access.
func (d *Device) Locked(page int) bool {
	return d.regs[rp2350.OTP_BASE+rp2350.OTP_SW_LOCK0+uint32(page)*4]&0x3 == 0x3
}

// Writes returns the recorded writes to a register, through any alias.
func (d *Device) Writes(addr uint32) (vals []uint32) {
	for _, e := range d.Log {
		if e.Kind == Write && e.Addr&^aliasMask(e.Addr) == addr {
			vals = append(vals, e.Val)
		}
	}

	return
}

// Index returns the position in the log of the first event matching the
// argument predicate, or -1.
func (d *Device) Index(match func(Event) bool) int {
	for i, e := range d.Log {
		if match(e) {
			return i
		}
	}

	return -1
}

// LastIndex returns the position in the log of the last event matching the
// argument predicate, or -1.
func (d *Device) LastIndex(match func(Event) bool) int {
	for i := len(d.Log) - 1; i >= 0; i-- {
		if match(d.Log[i]) {
			return i
		}
	}

	return -1
}

// Equal implements the compare-trap primitive, raising a harden.Halt panic
// on mismatch.
func (d *Device) Equal(a uint32, b uint32) {
	d.Traps++
	d.Log = append(d.Log, Event{Kind: Trap, Addr: a, Val: b})

	if a != b {
		d.Halted = true
		panic(harden.Halt{A: a, B: b})
	}
}

var _ reg.Bus = &Device{}
var _ harden.Trap = &Device{}

func inPeripheral(addr uint32) bool {
	switch {
	case isOTPData(addr):
		// OTP data views are not atomic alias capable
		return false
	default:
		return addr >= 0x40000000 && addr < 0x50000000
	}
}

func aliasMask(addr uint32) uint32 {
	if inPeripheral(addr) {
		return reg.CLR
	}

	return 0
}

func isMPU(addr uint32) bool {
	return addr >= rp2350.MPU_CTRL && addr <= rp2350.MPU_RLAR_A3
}

func isOTPData(addr uint32) bool {
	return addr >= rp2350.OTP_DATA_BASE && addr < rp2350.OTP_DATA_RAW_GUARDED_BASE+rp2350.OTP_ROWS*rp2350.OTP_RAW_ROW_SIZE
}

// Read implements reg.Bus.
func (d *Device) Read(addr uint32) (val uint32) {
	d.reads[addr]++

	if addr == d.lastRead {
		d.polls++
	} else {
		d.lastRead = addr
		d.polls = 1
	}

	if d.PollLimit > 0 && d.polls > d.PollLimit {
		panic(ErrHang)
	}

	switch {
	case isOTPData(addr):
		val = d.otpRead(addr)
	case isMPU(addr):
		val = d.mpuRead(addr)
	default:
		val = d.regRead(addr)
	}

	for _, f := range d.readFaults {
		if f.addr == addr && f.nth == d.reads[addr] {
			val = f.val
		}
	}

	d.Log = append(d.Log, Event{Kind: Read, Addr: addr, Val: val})

	return
}

// Write implements reg.Bus.
func (d *Device) Write(addr uint32, val uint32) {
	d.Log = append(d.Log, Event{Kind: Write, Addr: addr, Val: val})
	d.lastRead = 0
	d.polls = 0

	alias := aliasMask(addr) & addr
	base := addr &^ aliasMask(addr)

	n := len(d.Writes(base))

	for _, f := range d.writeDrops {
		if f.addr == base && f.nth == n {
			return
		}
	}

	if isMPU(base) {
		d.mpuWrite(base, val)
	} else {
		cur := d.regs[base]

		switch alias {
		case reg.XOR:
			val = cur ^ val
		case reg.SET:
			val = cur | val
		case reg.CLR:
			val = cur &^ val
		}

		d.regWrite(base, val)
	}

	if d.OnWrite != nil {
		d.OnWrite(d, base, d.Peek(base))
	}
}

func (d *Device) regRead(addr uint32) uint32 {
	switch addr {
	case rp2350.ROSC_STATUS:
		return 1<<rp2350.ROSC_STATUS_STB | 1<<12
	case rp2350.RESETS_RESET_DONE:
		return ^d.regs[rp2350.RESETS_RESET]
	}

	return d.regs[addr]
}

func (d *Device) regWrite(addr uint32, val uint32) {
	switch {
	case addr == rp2350.ROSC_FREQA || addr == rp2350.ROSC_FREQB:
		// the password is not required to reset drive strengths
		if val>>rp2350.ROSC_FREQ_PASSWD == rp2350.ROSC_FREQ_PASSWD_VALUE || val == 0 {
			d.regs[addr] = val & 0xffff
		}
	case addr == rp2350.ROSC_DIV:
		if val&0xff00 == rp2350.ROSC_DIV_PASS {
			d.regs[addr] = val & 0xffff
		}
	case addr == rp2350.XOSC_CTRL:
		d.regs[addr] = val

		if d.XOSCPresent && (val>>rp2350.XOSC_CTRL_ENABLE)&0xfff == rp2350.XOSC_CTRL_ENABLE_VALUE {
			d.regs[rp2350.XOSC_STATUS] = 1 << rp2350.XOSC_STATUS_STABLE
		}
	case addr == rp2350.CLOCKS_FC0_SRC:
		d.regs[addr] = val
		d.frequencyCount(val)
	case addr >= rp2350.OTP_BASE+rp2350.OTP_SW_LOCK0 && addr < rp2350.OTP_BASE+rp2350.OTP_SW_LOCK0+rp2350.OTP_PAGES*4:
		// lock state only ever advances
		d.regs[addr] |= val & rp2350.OTP_SW_LOCK_MASK
	case addr == rp2350.OTP_BASE+rp2350.OTP_DEBUGEN_LOCK:
		d.regs[addr] |= val & rp2350.OTP_DEBUGEN_LOCK_ALL
	case addr == rp2350.SIO_GPIO_OUT_SET:
		d.regs[rp2350.SIO_BASE+0x10] |= val
	case addr == rp2350.SIO_GPIO_OUT_CLR:
		d.regs[rp2350.SIO_BASE+0x10] &^= val
	case addr == rp2350.SIO_GPIO_OE_SET:
		d.regs[rp2350.SIO_BASE+0x30] |= val
	case addr == rp2350.SIO_GPIO_OE_CLR:
		d.regs[rp2350.SIO_BASE+0x30] &^= val
	default:
		d.regs[addr] = val
		d.clockWrite(addr, val)
	}
}

func (d *Device) clockWrite(addr uint32, val uint32) {
	for _, clk := range []int{rp2350.CLK_REF, rp2350.CLK_SYS} {
		if addr != rp2350.ClockCtrl(clk) {
			continue
		}

		var src uint32

		if clk == rp2350.CLK_REF {
			src = bits.Get(&val, rp2350.CLK_REF_CTRL_SRC, rp2350.CLK_REF_CTRL_SRC_MASK)
		} else {
			src = bits.Get(&val, rp2350.CLK_SYS_CTRL_SRC, rp2350.CLK_SYS_CTRL_SRC_MASK)
		}

		d.regs[rp2350.ClockSelected(clk)] = 1 << src
	}
}

func (d *Device) frequencyCount(src uint32) {
	var khz uint32

	switch src {
	case rp2350.FC0_SRC_NULL:
		d.regs[rp2350.CLOCKS_FC0_STATUS] = 0
		return
	case rp2350.FC0_SRC_ROSC_CLKSRC, rp2350.FC0_SRC_ROSC_CLKSRC_PH:
		div := d.regs[rp2350.ROSC_DIV] & rp2350.ROSC_DIV_MASK
		khz = d.RoscKHz(d.regs[rp2350.ROSC_CTRL], d.regs[rp2350.ROSC_FREQA], div)
	case rp2350.FC0_SRC_XOSC_CLKSRC:
		khz = d.XOSCKHz
	}

	// the frequency counter needs a running reference
	if d.regs[rp2350.CLOCKS_FC0_REF_KHZ] == 0 {
		return
	}

	d.regs[rp2350.CLOCKS_FC0_RESULT] = (khz & rp2350.FC0_RESULT_KHZ_MASK) << rp2350.FC0_RESULT_KHZ
	d.regs[rp2350.CLOCKS_FC0_STATUS] = 1 << rp2350.FC0_STATUS_DONE
}

// GPIO returns the output state of a GPIO.
func (d *Device) GPIO(pin int) bool {
	return (d.regs[rp2350.SIO_BASE+0x10]>>pin)&1 == 1
}
