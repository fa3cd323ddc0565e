// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tinygo && rp2350

package rp2350

/*
#include <stdint.h>

#define RT_FLAG_FUNC_ARM_SEC 0x0004
#define ROM_TABLE_CODE(c1, c2) ((c1) | ((c2) << 8))
#define BOOTROM_TABLE_LOOKUP_OFFSET 0x16

typedef void *(*rom_table_lookup_fn)(uint32_t code, uint32_t mask);
typedef int (*rom_chain_image_fn)(uint8_t *workspace, uint32_t workspace_size, uint32_t start, uint32_t size);

static void *rom_func_lookup(uint32_t code) {
	rom_table_lookup_fn lookup = (rom_table_lookup_fn)(uintptr_t)(*(uint16_t *)BOOTROM_TABLE_LOOKUP_OFFSET);
	return lookup(code, RT_FLAG_FUNC_ARM_SEC);
}

static int rom_chain_image(uint32_t workspace, uint32_t workspace_size, uint32_t start, uint32_t size) {
	rom_chain_image_fn fn = (rom_chain_image_fn)rom_func_lookup(ROM_TABLE_CODE('C', 'I'));
	return fn((uint8_t *)(uintptr_t)workspace, workspace_size, start, size);
}
*/
import "C"

// ROM represents the bootrom API, it implements chain.ROM.
type ROM struct{}

// ChainImage verifies and enters the image at start, using workspace as
// scratch memory. It only returns on failure.
func (ROM) ChainImage(workspace uint32, workspaceSize uint32, start uint32, size uint32) int32 {
	return int32(C.rom_chain_image(C.uint32_t(workspace), C.uint32_t(workspaceSize), C.uint32_t(start), C.uint32_t(size)))
}
