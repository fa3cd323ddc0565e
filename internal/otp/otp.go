// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package otp implements key retrieval from, and irreversible lockdown of,
// the RP2350 one-time-programmable memory.
//
// Every lock operation is confirmed through the compare-trap, any mismatch
// halts the system.
package otp

import (
	"encoding/binary"

	"github.com/f-secure-foundry/armory-encboot/internal/harden"
	"github.com/f-secure-foundry/armory-encboot/internal/reg"
	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
)

// PageSize is the number of data bytes held by an OTP page.
const PageSize = rp2350.OTP_ROWS_PER_PAGE * rp2350.OTP_DATA_ROW_SIZE

// OTP represents the one-time-programmable memory controller.
type OTP struct {
	Bus  reg.Bus
	Trap harden.Trap

	// Hardened enables redundant compare-trap verification of lock
	// operations.
	Hardened bool
	// Guarded selects the data view which faults on uncorrectable rows
	// instead of returning them.
	Guarded bool
}

// KeyMaterial holds the secret key rows and the per-device salt.
type KeyMaterial struct {
	Key  []byte
	Salt []byte
}

// Wipe zeroes the key material.
func (k *KeyMaterial) Wipe() {
	for i := range k.Key {
		k.Key[i] = 0
	}

	for i := range k.Salt {
		k.Salt[i] = 0
	}
}

func (o *OTP) dataBase() uint32 {
	if o.Guarded {
		return rp2350.OTP_DATA_GUARDED_BASE
	}

	return rp2350.OTP_DATA_BASE
}

// Read fills buf, which length must be a multiple of 4, with the ECC data
// rows starting at the first row of an OTP page.
func (o *OTP) Read(page int, buf []byte) {
	addr := o.dataBase() + uint32(page)*PageSize

	// each 32-bit access returns two consecutive 16-bit rows
	for i := 0; i < len(buf); i += 4 {
		binary.LittleEndian.PutUint32(buf[i:], o.Bus.Read(addr+uint32(i)))
	}
}

// ReadKey reads keyLen bytes of key rows from the key page and saltLen bytes
// from the salt page.
func (o *OTP) ReadKey(keyPage int, keyLen int, saltPage int, saltLen int) (k *KeyMaterial) {
	k = &KeyMaterial{
		Key:  make([]byte, keyLen),
		Salt: make([]byte, saltLen),
	}

	o.Read(keyPage, k.Key)
	o.Read(saltPage, k.Salt)

	return
}
