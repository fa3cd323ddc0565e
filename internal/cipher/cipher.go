// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package cipher implements the image cipher, AES-128/256 in counter mode
// with the initial counter block derived from a per-device salt and a public
// IV.
//
// The key can be stored as up to four XOR shares, which are recombined only
// for key expansion. The expanded key lives in the CTR instance and is
// zeroed before Decrypt and Encrypt return.
package cipher

import (
	"crypto/aes"
	"errors"
	"fmt"
)

// BlockSize is the image block size.
const BlockSize = aes.BlockSize

// MaxShares is the maximum number of key shares.
const MaxShares = 4

// Decrypter represents an in-place image decryption, keyConsumed is invoked
// once the key is no longer needed and before any block is processed.
type Decrypter interface {
	Decrypt(key []byte, salt []byte, iv []byte, buf []byte, nblk int, keyConsumed func()) error
}

// CTR implements Decrypter.
type CTR struct {
	// KeySize is the AES key size (16 or 32).
	KeySize int
	// Shares is the number of XOR shares the key is split in.
	Shares int

	ks schedule
}

func (c *CTR) check(key []byte) error {
	switch c.KeySize {
	case 16, 32:
	default:
		return fmt.Errorf("invalid key size %d", c.KeySize)
	}

	if c.Shares < 1 || c.Shares > MaxShares {
		return fmt.Errorf("invalid number of key shares %d", c.Shares)
	}

	if len(key) != c.KeySize*c.Shares {
		return fmt.Errorf("invalid key length %d, expected %d", len(key), c.KeySize*c.Shares)
	}

	return nil
}

// Combine recombines key shares.
func (c *CTR) Combine(key []byte) (k []byte, err error) {
	if err = c.check(key); err != nil {
		return
	}

	k = make([]byte, c.KeySize)

	for s := 0; s < c.Shares; s++ {
		for i := range k {
			k[i] ^= key[s*c.KeySize+i]
		}
	}

	return
}

// Counter returns the initial counter block.
func Counter(salt []byte, iv []byte) (ctr []byte, err error) {
	if len(salt) != BlockSize || len(iv) != BlockSize {
		return nil, errors.New("invalid salt or IV length")
	}

	ctr = make([]byte, BlockSize)

	for i := range ctr {
		ctr[i] = salt[i] ^ iv[i]
	}

	return
}

// init expands the recombined key shares and loads the initial counter
// block, in the CTR owned schedule.
func (c *CTR) init(key []byte, salt []byte, iv []byte) (err error) {
	if err = c.check(key); err != nil {
		return
	}

	if len(salt) != BlockSize || len(iv) != BlockSize {
		return errors.New("invalid salt or IV length")
	}

	k := c.ks.rk[:c.KeySize]
	wipe(k)

	for s := 0; s < c.Shares; s++ {
		for i := range k {
			k[i] ^= key[s*c.KeySize+i]
		}
	}

	if err = c.ks.expand(k); err != nil {
		return
	}

	for i := range c.ks.ctr {
		c.ks.ctr[i] = salt[i] ^ iv[i]
	}

	return
}

// Decrypt decrypts nblk blocks of buf in place. The key and salt buffers are
// zeroed before keyConsumed is invoked, the expanded key before returning.
func (c *CTR) Decrypt(key []byte, salt []byte, iv []byte, buf []byte, nblk int, keyConsumed func()) (err error) {
	defer c.ks.wipe()

	if nblk < 0 || nblk*BlockSize > len(buf) {
		err = fmt.Errorf("invalid block count %d", nblk)
	} else {
		err = c.init(key, salt, iv)
	}

	wipe(key)
	wipe(salt)

	if err != nil {
		return
	}

	if keyConsumed != nil {
		keyConsumed()
	}

	c.ks.xorKeyStream(buf[:nblk*BlockSize])

	return
}

// Encrypt encrypts buf in place, its length must be a multiple of
// BlockSize.
func (c *CTR) Encrypt(key []byte, salt []byte, iv []byte, buf []byte) (err error) {
	if len(buf)%BlockSize != 0 {
		return errors.New("invalid length, not a multiple of the block size")
	}

	defer c.ks.wipe()

	if err = c.init(key, salt, iv); err != nil {
		return
	}

	c.ks.xorKeyStream(buf)

	return
}

func wipe(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
