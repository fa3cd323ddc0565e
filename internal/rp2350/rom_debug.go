// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tinygo && rp2350 && insecure_debug

package rp2350

/*
#include <stddef.h>
#include <stdint.h>

#define RT_FLAG_FUNC_ARM_SEC 0x0004
#define ROM_TABLE_CODE(c1, c2) ((c1) | ((c2) << 8))
#define BOOTROM_TABLE_LOOKUP_OFFSET 0x16

#define REBOOT2_FLAG_REBOOT_TYPE_BOOTSEL 0x2
#define REBOOT2_FLAG_NO_RETURN_ON_SUCCESS 0x100

typedef void *(*rom_table_lookup_fn)(uint32_t code, uint32_t mask);
typedef void (*rom_void_fn)(void);
typedef void (*rom_flash_range_erase_fn)(uint32_t addr, size_t count, uint32_t block_size, uint8_t block_cmd);
typedef void (*rom_flash_range_program_fn)(uint32_t addr, const uint8_t *data, size_t count);
typedef int (*rom_reboot_fn)(uint32_t flags, uint32_t delay_ms, uint32_t p0, uint32_t p1);

static void *rom_debug_lookup(uint32_t code) {
	rom_table_lookup_fn lookup = (rom_table_lookup_fn)(uintptr_t)(*(uint16_t *)BOOTROM_TABLE_LOOKUP_OFFSET);
	return lookup(code, RT_FLAG_FUNC_ARM_SEC);
}

static void rom_connect_internal_flash(void) {
	((rom_void_fn)rom_debug_lookup(ROM_TABLE_CODE('I', 'F')))();
}

static void rom_flash_exit_xip(void) {
	((rom_void_fn)rom_debug_lookup(ROM_TABLE_CODE('E', 'X')))();
}

static void rom_flash_range_erase(uint32_t addr, uint32_t count, uint32_t block_size, uint8_t block_cmd) {
	((rom_flash_range_erase_fn)rom_debug_lookup(ROM_TABLE_CODE('R', 'E')))(addr, count, block_size, block_cmd);
}

static void rom_flash_range_program(uint32_t addr, const uint8_t *data, uint32_t count) {
	((rom_flash_range_program_fn)rom_debug_lookup(ROM_TABLE_CODE('R', 'P')))(addr, data, count);
}

static void rom_reset_usb_boot(uint32_t gpio_mask, uint32_t disable_mask) {
	((rom_reboot_fn)rom_debug_lookup(ROM_TABLE_CODE('R', 'B')))(
		REBOOT2_FLAG_REBOOT_TYPE_BOOTSEL | REBOOT2_FLAG_NO_RETURN_ON_SUCCESS,
		10, disable_mask, gpio_mask);
}
*/
import "C"

import (
	"unsafe"
)

// ConnectInternalFlash restores the QSPI pads to the internal flash.
func (ROM) ConnectInternalFlash() {
	C.rom_connect_internal_flash()
}

// FlashExitXIP leaves flash execute-in-place mode.
func (ROM) FlashExitXIP() {
	C.rom_flash_exit_xip()
}

// FlashRangeErase erases count bytes of flash at the argument offset.
func (ROM) FlashRangeErase(addr uint32, count uint32, blockSize uint32, cmd uint8) {
	C.rom_flash_range_erase(C.uint32_t(addr), C.uint32_t(count), C.uint32_t(blockSize), C.uint8_t(cmd))
}

// FlashRangeProgram programs data to flash at the argument offset.
func (ROM) FlashRangeProgram(addr uint32, data []byte) {
	if len(data) == 0 {
		return
	}

	C.rom_flash_range_program(C.uint32_t(addr), (*C.uint8_t)(unsafe.Pointer(&data[0])), C.uint32_t(len(data)))
}

// ResetUSBBoot reboots into BOOTSEL USB mode.
func (ROM) ResetUSBBoot(gpioMask uint32, disableMask uint32) {
	C.rom_reset_usb_boot(C.uint32_t(gpioMask), C.uint32_t(disableMask))

	for {
	}
}
