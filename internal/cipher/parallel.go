// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cipher

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"golang.org/x/sync/errgroup"
)

// ChunkSize is the amount of data processed by each CryptParallel worker
// task.
const ChunkSize = 64 * 1024

// add returns the counter block advanced by n blocks.
func add(ctr []byte, n uint64) []byte {
	out := make([]byte, len(ctr))
	copy(out, ctr)

	var carry uint64

	for i := len(out) - 1; i >= 0; i-- {
		s := uint64(out[i]) + n&0xff + carry
		out[i] = byte(s)
		carry = s >> 8
		n >>= 8
	}

	return out
}

// CryptParallel applies the CTR key stream to buf, in place, using up to
// workers concurrent tasks. The key must be already recombined.
func CryptParallel(ctx context.Context, key []byte, ctr []byte, buf []byte, workers int) error {
	if len(ctr) != BlockSize {
		return errors.New("invalid counter length")
	}

	block, err := aes.NewCipher(key)

	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if workers > 0 {
		g.SetLimit(workers)
	}

	for off := 0; off < len(buf); off += ChunkSize {
		end := off + ChunkSize

		if end > len(buf) {
			end = len(buf)
		}

		chunk := buf[off:end]
		iv := add(ctr, uint64(off/BlockSize))

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			cipher.NewCTR(block, iv).XORKeyStream(chunk, chunk)

			return nil
		})
	}

	return g.Wait()
}
