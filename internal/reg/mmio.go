// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package reg

import (
	"sync/atomic"
	"unsafe"
)

// MMIO is the Bus of the running processor, it must only be used on the
// target as it dereferences physical addresses.
type MMIO struct{}

// Read performs a single 32-bit load from a physical address.
func (MMIO) Read(addr uint32) uint32 {
	reg := (*uint32)(unsafe.Pointer(uintptr(addr)))
	return atomic.LoadUint32(reg)
}

// Write performs a single 32-bit store to a physical address.
func (MMIO) Write(addr uint32, val uint32) {
	reg := (*uint32)(unsafe.Pointer(uintptr(addr)))
	atomic.StoreUint32(reg, val)
}
