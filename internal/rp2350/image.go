// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tinygo && rp2350

package rp2350

import (
	"github.com/f-secure-foundry/tamago/dma"
)

// ImageRegion returns the image memory, loaded by the bootrom along with the
// loader, as a byte slice. The region is handed to a dedicated DMA allocator
// so that it is never used for other allocations, the loader runtime itself
// is linked in the LOADER_RAM_START window (rp2350-loader.ld), which the
// image must not overlap.
func ImageRegion(start uint32, size int) []byte {
	dma.Init(start, size)
	_, buf := dma.Reserve(size, 0)

	return buf
}
