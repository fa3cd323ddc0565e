// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package rp2350 provides the register map of the Raspberry Pi RP2350
// microcontroller used by the secure loader, along with the hardware
// bindings for its compare-trap coprocessor, core registers and bootrom
// (TinyGo builds only).
//
// The register offsets follow the RP2350 datasheet.
package rp2350

// Clock domains
const (
	CLK_GPOUT0 = iota
	CLK_GPOUT1
	CLK_GPOUT2
	CLK_GPOUT3
	CLK_REF
	CLK_SYS
	CLK_PERI
	CLK_HSTX
	CLK_USB
	CLK_ADC
	CLK_COUNT
)

// CLOCKS registers
const (
	CLOCKS_BASE = 0x40010000

	// each clock domain has CTRL, DIV and SELECTED registers
	CLOCKS_CLK_SIZE     = 12
	CLOCKS_CLK_CTRL     = 0x0
	CLOCKS_CLK_DIV      = 0x4
	CLOCKS_CLK_SELECTED = 0x8

	CLK_CTRL_ENABLE = 11

	CLK_REF_CTRL_SRC        = 0
	CLK_REF_CTRL_SRC_MASK   = 0x3
	CLK_REF_CTRL_AUXSRC     = 5
	CLK_REF_CTRL_AUXSRC_MSK = 0x3

	CLK_REF_SRC_ROSC_CLKSRC_PH = 0
	CLK_REF_SRC_CLKSRC_CLK_AUX = 1
	CLK_REF_SRC_XOSC_CLKSRC    = 2
	CLK_REF_SRC_LPOSC_CLKSRC   = 3
	CLK_SYS_CTRL_SRC           = 0
	CLK_SYS_CTRL_SRC_MASK      = 0x1
	CLK_SYS_CTRL_AUXSRC        = 5
	CLK_SYS_CTRL_AUXSRC_MASK   = 0x7
	CLK_SYS_SRC_CLK_REF        = 0
	CLK_SYS_SRC_CLKSRC_CLK_AUX = 1
	CLK_SYS_AUXSRC_PLL_SYS     = 0
	CLK_SYS_AUXSRC_PLL_USB     = 1
	CLK_SYS_AUXSRC_ROSC_CLKSRC = 2
	CLK_SYS_AUXSRC_XOSC_CLKSRC = 3
	CLK_OTHER_CTRL_AUXSRC      = 5
	CLK_OTHER_CTRL_AUXSRC_MASK = 0xf
	CLK_DIV_INT                = 16
	CLK_DIV_INT_MASK           = 0xffff
	CLOCKS_CLK_SYS_RESUS_CTRL  = CLOCKS_BASE + 0x84
	CLOCKS_FC0_REF_KHZ         = CLOCKS_BASE + 0x8c
	CLOCKS_FC0_MIN_KHZ         = CLOCKS_BASE + 0x90
	CLOCKS_FC0_MAX_KHZ         = CLOCKS_BASE + 0x94
	CLOCKS_FC0_DELAY           = CLOCKS_BASE + 0x98
	CLOCKS_FC0_INTERVAL        = CLOCKS_BASE + 0x9c
	CLOCKS_FC0_SRC             = CLOCKS_BASE + 0xa0
	CLOCKS_FC0_STATUS          = CLOCKS_BASE + 0xa4
	CLOCKS_FC0_RESULT          = CLOCKS_BASE + 0xa8
	FC0_STATUS_RUNNING         = 8
	FC0_STATUS_DONE            = 4
	FC0_RESULT_KHZ             = 5
	FC0_RESULT_KHZ_MASK        = 0x1ffffff
	FC0_SRC_NULL               = 0x00
	FC0_SRC_ROSC_CLKSRC        = 0x03
	FC0_SRC_ROSC_CLKSRC_PH     = 0x04
	FC0_SRC_XOSC_CLKSRC        = 0x05
	FC0_MAX_KHZ                = 0x1ffffff
	FC0_DEFAULT_INTERVAL       = 10
	FC0_DEFAULT_DELAY          = 3
)

// ClockCtrl returns the CTRL register address of a clock domain.
func ClockCtrl(clk int) uint32 {
	return CLOCKS_BASE + uint32(clk)*CLOCKS_CLK_SIZE + CLOCKS_CLK_CTRL
}

// ClockDiv returns the DIV register address of a clock domain.
func ClockDiv(clk int) uint32 {
	return CLOCKS_BASE + uint32(clk)*CLOCKS_CLK_SIZE + CLOCKS_CLK_DIV
}

// ClockSelected returns the SELECTED register address of a clock domain.
func ClockSelected(clk int) uint32 {
	return CLOCKS_BASE + uint32(clk)*CLOCKS_CLK_SIZE + CLOCKS_CLK_SELECTED
}

// HasGlitchlessMux returns whether a clock domain has a glitchless source
// mux (clk_ref and clk_sys).
func HasGlitchlessMux(clk int) bool {
	return clk == CLK_SYS || clk == CLK_REF
}

// ROSC registers
const (
	ROSC_BASE   = 0x400e8000
	ROSC_CTRL   = ROSC_BASE + 0x00
	ROSC_FREQA  = ROSC_BASE + 0x04
	ROSC_FREQB  = ROSC_BASE + 0x08
	ROSC_DIV    = ROSC_BASE + 0x14
	ROSC_STATUS = ROSC_BASE + 0x1c

	ROSC_CTRL_ENABLE            = 12
	ROSC_CTRL_ENABLE_VALUE      = 0xfab
	ROSC_CTRL_FREQ_RANGE_MASK   = 0xfff
	ROSC_CTRL_FREQ_RANGE_LOW    = 0xfa4
	ROSC_CTRL_FREQ_RANGE_MEDIUM = 0xfa5
	ROSC_CTRL_FREQ_RANGE_HIGH   = 0xfa7
	ROSC_CTRL_FREQ_RANGE_TOO    = 0xfa6

	ROSC_FREQ_PASSWD       = 16
	ROSC_FREQ_PASSWD_VALUE = 0x9696
	ROSC_FREQA_DS0_RANDOM  = 1 << 3
	ROSC_FREQA_DS1_RANDOM  = 1 << 7
	ROSC_FREQB_DS4_DS7     = 0x7777
	ROSC_DRIVE_MAX         = 0x7777

	ROSC_DIV_PASS   = 0xaa00
	ROSC_DIV_MASK   = 0xff
	ROSC_STATUS_STB = 31
)

// XOSC registers
const (
	XOSC_BASE    = 0x40048000
	XOSC_CTRL    = XOSC_BASE + 0x00
	XOSC_STATUS  = XOSC_BASE + 0x04
	XOSC_STARTUP = XOSC_BASE + 0x0c

	XOSC_CTRL_ENABLE         = 12
	XOSC_CTRL_ENABLE_VALUE   = 0xfab
	XOSC_CTRL_FREQ_1_15MHZ   = 0xaa0
	XOSC_STATUS_STABLE       = 31
	XOSC_STARTUP_DELAY_MASK  = 0x3fff
	XOSC_STARTUP_DELAY_CYCLE = 256
)

// OTP registers
const (
	OTP_BASE         = 0x40120000
	OTP_SW_LOCK0     = 0x000
	OTP_DEBUGEN      = 0x150
	OTP_DEBUGEN_LOCK = 0x154

	// SEC and NSEC access both set to inaccessible
	OTP_SW_LOCK_ALL      = 0xf
	OTP_SW_LOCK_MASK     = 0xf
	OTP_DEBUGEN_LOCK_ALL = 0x1ff

	OTP_DATA_BASE             = 0x40130000
	OTP_DATA_GUARDED_BASE     = 0x40132000
	OTP_DATA_RAW_BASE         = 0x40134000
	OTP_DATA_RAW_GUARDED_BASE = 0x40138000

	OTP_PAGES         = 64
	OTP_ROWS_PER_PAGE = 64
	OTP_ROWS          = OTP_PAGES * OTP_ROWS_PER_PAGE

	// ECC data rows are 16-bit wide, raw rows are 24-bit wide in a 32-bit
	// word.
	OTP_DATA_ROW_SIZE = 2
	OTP_RAW_ROW_SIZE  = 4

	// read value of a locked row through the raw view
	OTP_RAW_LOCKED = 0xffffffff
)

// MPU registers (Armv8-M, Private Peripheral Bus)
const (
	MPU_CTRL    = 0xe000ed94
	MPU_RNR     = 0xe000ed98
	MPU_RBAR    = 0xe000ed9c
	MPU_RLAR    = 0xe000eda0
	MPU_RBAR_A1 = 0xe000eda4
	MPU_RLAR_A1 = 0xe000eda8
	MPU_RBAR_A2 = 0xe000edac
	MPU_RLAR_A2 = 0xe000edb0
	MPU_RBAR_A3 = 0xe000edb4
	MPU_RLAR_A3 = 0xe000edb8

	MPU_RLAR_EN = 0
	MPU_REGIONS = 8

	// regions set up by the bootrom for the secure phase
	MPU_REGION_RAM            = 0
	MPU_REGION_SCRATCH_X      = 1
	MPU_REGION_SCRATCH_Y_DATA = 2
	MPU_REGION_SCRATCH_Y_CODE = 3
	MPU_REGION_FLASH          = 7
)

// RESETS registers
const (
	RESETS_BASE       = 0x40020000
	RESETS_RESET      = RESETS_BASE + 0x0
	RESETS_RESET_DONE = RESETS_BASE + 0x8

	RESET_IO_BANK0   = 6
	RESET_PADS_BANK0 = 9
)

// GPIO registers
const (
	IO_BANK0_BASE   = 0x40028000
	PADS_BANK0_BASE = 0x40038000

	GPIO_CTRL_FUNCSEL_MASK = 0x1f
	GPIO_FUNC_SIO          = 5
	PADS_ISO               = 8
	PADS_OD                = 7
	PADS_IE                = 6

	SIO_BASE         = 0xd0000000
	SIO_GPIO_OUT_SET = SIO_BASE + 0x018
	SIO_GPIO_OUT_CLR = SIO_BASE + 0x020
	SIO_GPIO_OE_SET  = SIO_BASE + 0x038
	SIO_GPIO_OE_CLR  = SIO_BASE + 0x040

	GPIO_PINS = 48
)

// GPIOCtrl returns the IO_BANK0 control register of a GPIO.
func GPIOCtrl(pin int) uint32 {
	return IO_BANK0_BASE + uint32(pin)*8 + 4
}

// PadCtrl returns the PADS_BANK0 control register of a GPIO.
func PadCtrl(pin int) uint32 {
	return PADS_BANK0_BASE + 4 + uint32(pin)*4
}

// Memory map
const (
	SRAM_BASE = 0x20000000
	SRAM_END  = 0x20082000

	// loader data, bss, heap and stack, see cmd/enc-bootloader/rp2350-loader.ld
	LOADER_RAM_START = 0x20078000
	LOADER_RAM_SIZE  = 0x8000

	// bootrom chain_image() workspace (SRAM8)
	ROM_CHAIN_WORKSPACE      = 0x20080000
	ROM_CHAIN_WORKSPACE_SIZE = 4 * 1024

	FLASH_BASE = 0x10000000

	// default LED pins
	PIN_LED_RED   = 25
	PIN_LED_GREEN = 6
)
