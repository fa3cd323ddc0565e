// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cipher

import (
	"fmt"
	"math/bits"
)

// maxRounds is the AES-256 number of rounds.
const maxRounds = 14

var sbox [256]byte

func init() {
	var p, q byte = 1, 1

	// walk the multiplicative group with generator 3 and its inverse
	for {
		var x byte

		if p&0x80 != 0 {
			x = 0x1b
		}

		p ^= p<<1 ^ x

		q ^= q << 1
		q ^= q << 2
		q ^= q << 4

		if q&0x80 != 0 {
			q ^= 0x09
		}

		sbox[p] = q ^ bits.RotateLeft8(q, 1) ^ bits.RotateLeft8(q, 2) ^ bits.RotateLeft8(q, 3) ^ bits.RotateLeft8(q, 4) ^ 0x63

		if p == 1 {
			break
		}
	}

	sbox[0] = 0x63
}

func xtime(b byte) byte {
	if b&0x80 != 0 {
		return b<<1 ^ 0x1b
	}

	return b << 1
}

// schedule holds an expanded AES encryption key and the CTR mode working
// blocks, all of it is zeroed by wipe.
type schedule struct {
	rk     [(maxRounds + 1) * BlockSize]byte
	rounds int

	ctr    [BlockSize]byte
	stream [BlockSize]byte
	tmp    [BlockSize]byte
}

// expand computes the round keys of an AES-128 or AES-256 key, key may alias
// the start of the round key storage.
func (s *schedule) expand(key []byte) error {
	switch len(key) {
	case 16:
		s.rounds = 10
	case 32:
		s.rounds = 14
	default:
		return fmt.Errorf("invalid AES key length %d", len(key))
	}

	nk := len(key) / 4
	copy(s.rk[:], key)

	t := s.tmp[:4]
	rcon := byte(1)

	for i := nk; i < 4*(s.rounds+1); i++ {
		copy(t, s.rk[(i-1)*4:i*4])

		switch {
		case i%nk == 0:
			t[0], t[1], t[2], t[3] = sbox[t[1]]^rcon, sbox[t[2]], sbox[t[3]], sbox[t[0]]
			rcon = xtime(rcon)
		case nk > 6 && i%nk == 4:
			for j := range t {
				t[j] = sbox[t[j]]
			}
		}

		for j := range t {
			s.rk[i*4+j] = s.rk[(i-nk)*4+j] ^ t[j]
		}
	}

	wipe(t)

	return nil
}

func (s *schedule) addRoundKey(st *[BlockSize]byte, round int) {
	rk := s.rk[round*BlockSize:]

	for i := range st {
		st[i] ^= rk[i]
	}
}

// subShift applies SubBytes and ShiftRows, the state is column major.
func (s *schedule) subShift(st *[BlockSize]byte) {
	t := &s.tmp

	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			t[c*4+r] = sbox[st[((c+r)%4)*4+r]]
		}
	}

	*st = *t
}

func mixColumns(st *[BlockSize]byte) {
	for c := 0; c < BlockSize; c += 4 {
		a0, a1, a2, a3 := st[c], st[c+1], st[c+2], st[c+3]
		x := a0 ^ a1 ^ a2 ^ a3

		st[c] = a0 ^ x ^ xtime(a0^a1)
		st[c+1] = a1 ^ x ^ xtime(a1^a2)
		st[c+2] = a2 ^ x ^ xtime(a2^a3)
		st[c+3] = a3 ^ x ^ xtime(a3^a0)
	}
}

// encrypt encrypts the counter block into the key stream block.
func (s *schedule) encrypt() {
	st := &s.stream
	*st = s.ctr

	s.addRoundKey(st, 0)

	for round := 1; round < s.rounds; round++ {
		s.subShift(st)
		mixColumns(st)
		s.addRoundKey(st, round)
	}

	s.subShift(st)
	s.addRoundKey(st, s.rounds)
}

// increment advances the big-endian counter block by one.
func (s *schedule) increment() {
	for i := BlockSize - 1; i >= 0; i-- {
		s.ctr[i]++

		if s.ctr[i] != 0 {
			return
		}
	}
}

// xorKeyStream applies the CTR key stream to buf, in place.
func (s *schedule) xorKeyStream(buf []byte) {
	for off := 0; off < len(buf); off += BlockSize {
		s.encrypt()

		end := off + BlockSize

		if end > len(buf) {
			end = len(buf)
		}

		for i := off; i < end; i++ {
			buf[i] ^= s.stream[i-off]
		}

		s.increment()
	}
}

func (s *schedule) wipe() {
	*s = schedule{}
}
