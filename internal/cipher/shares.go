// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cipher

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// PassphraseIterations is the PBKDF2 iteration count of DeriveKey.
const PassphraseIterations = 4096

// Split splits a key in n XOR shares, the first n-1 are random.
func Split(key []byte, n int, rand io.Reader) (shares []byte, err error) {
	if n < 1 || n > MaxShares {
		return nil, fmt.Errorf("invalid number of key shares %d", n)
	}

	shares = make([]byte, len(key)*n)
	last := shares[(n-1)*len(key):]

	copy(last, key)

	for s := 0; s < n-1; s++ {
		share := shares[s*len(key) : (s+1)*len(key)]

		if _, err = io.ReadFull(rand, share); err != nil {
			return nil, err
		}

		for i := range last {
			last[i] ^= share[i]
		}
	}

	return
}

// DeriveKey derives a key from a passphrase with PBKDF2-SHA256.
func DeriveKey(passphrase []byte, salt []byte, size int) []byte {
	return pbkdf2.Key(passphrase, salt, PassphraseIterations, size, sha256.New)
}
