// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f-secure-foundry/armory-encboot/assets"
	"github.com/f-secure-foundry/armory-encboot/internal/chain"
	"github.com/f-secure-foundry/armory-encboot/internal/harden"
	"github.com/f-secure-foundry/armory-encboot/internal/loader"
	"github.com/f-secure-foundry/armory-encboot/internal/sim"
)

var (
	testKey  = []byte{0x2b, 0x7e, 0x15, 0x16, 0x28, 0xae, 0xd2, 0xa6, 0xab, 0xf7, 0x15, 0x88, 0x09, 0xcf, 0x4f, 0x3c}
	testSalt = []byte{0xf0, 0xf1, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8, 0xf9, 0xfa, 0xfb, 0xfc, 0xfd, 0xfe, 0xff}
)

func newSealer(shares int) *Sealer {
	return &Sealer{
		KeyPage:    loader.DefaultKeyPage,
		SaltOffset: loader.DefaultSaltOffset,
		KeySize:    loader.DefaultKeySize,
		Shares:     shares,
		ImageStart: loader.DefaultImageStart,
		IV:         loader.DefaultIV,
		Rand:       bytes.NewReader(bytes.Repeat([]byte{0x5a, 0xa5, 0x3c}, 64)),
		Workers:    2,
	}
}

func plaintext(size int) []byte {
	buf := make([]byte, size)

	for i := range buf {
		buf[i] = byte(i*13 + 1)
	}

	return buf
}

func seal(t *testing.T, shares int, plain []byte) *Sealed {
	sealed, err := newSealer(shares).Seal(context.Background(), plain, testKey, testSalt)
	require.NoError(t, err)

	return sealed
}

func TestSeal(t *testing.T) {
	plain := plaintext(100)
	sealed := seal(t, 2, plain)

	assert.Len(t, sealed.Image, 112)
	assert.NotEqual(t, plain, sealed.Image[:100])

	require.Len(t, sealed.Provisioning.Pages, 2)

	key := sealed.Provisioning.Pages[0]
	salt := sealed.Provisioning.Pages[1]

	assert.Equal(t, loader.DefaultKeyPage, key.Page)
	assert.Len(t, key.Rows, 16)
	assert.Equal(t, loader.DefaultKeyPage+loader.DefaultSaltOffset, salt.Page)
	assert.Equal(t, testSalt, salt.Bytes())

	shares := key.Bytes()
	combined := make([]byte, len(testKey))

	for i := range combined {
		combined[i] = shares[i] ^ shares[len(testKey)+i]
	}

	assert.Equal(t, testKey, combined)
	assert.NotEqual(t, testKey, shares[:len(testKey)])

	assert.Equal(t, &assets.Deployment{
		KeyPage:    loader.DefaultKeyPage,
		KeySize:    loader.DefaultKeySize,
		KeyShares:  2,
		ImageStart: loader.DefaultImageStart,
		ImageSize:  112,
		IV:         loader.DefaultIV,
	}, sealed.Deployment)
}

func TestSealInvalid(t *testing.T) {
	s := newSealer(1)
	ctx := context.Background()

	_, err := s.Seal(ctx, nil, testKey, testSalt)
	assert.Error(t, err)

	_, err = s.Seal(ctx, plaintext(32), testKey[:8], testSalt)
	assert.Error(t, err)

	_, err = s.Seal(ctx, plaintext(32), testKey, testSalt[:8])
	assert.Error(t, err)

	s.Shares = 5
	_, err = s.Seal(ctx, plaintext(32), testKey, testSalt)
	assert.Error(t, err)

	s = newSealer(1)
	s.KeyPage = 62
	_, err = s.Seal(ctx, plaintext(32), testKey, testSalt)
	assert.Error(t, err)
}

func TestReadKeyPassphrase(t *testing.T) {
	key, err := readKey("", "correct horse", testSalt, 32)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	_, err = readKey("key.hex", "correct horse", testSalt, 16)
	assert.Error(t, err)

	_, err = readKey("", "", testSalt, 16)
	assert.Error(t, err)
}

func TestRows(t *testing.T) {
	assert.Equal(t, []uint16{0x0201, 0x0003}, Rows([]byte{1, 2, 3}))

	p := &Page{Rows: []uint16{0x0201, 0x0403}}
	assert.Equal(t, []byte{1, 2, 3, 4}, p.Bytes())
}

func TestSimulate(t *testing.T) {
	for _, shares := range []int{1, 4} {
		plain := plaintext(4096)
		sealed := seal(t, shares, plain)

		r, err := simulate(sealed.Image, sealed.Provisioning, sealed.Deployment, false, 0)
		require.NoError(t, err)

		assert.Equal(t, sim.ExitChain, r.Exit)
		assert.Equal(t, plain, r.Image)
		assert.Equal(t, uint32(harden.StepChain+1), r.Steps)
		assert.Equal(t, []int{29, 30, 31}, r.Locked)
	}
}

func TestSimulateChainFailure(t *testing.T) {
	sealed := seal(t, 1, plaintext(4096))

	r, err := simulate(sealed.Image, sealed.Provisioning, sealed.Deployment, false, -chain.ErrInvalidData)
	require.NoError(t, err)

	assert.Equal(t, sim.ExitReturn, r.Exit)
	assert.Equal(t, chain.ErrInvalidData, r.Result)

	r, err = simulate(sealed.Image, sealed.Provisioning, sealed.Deployment, true, -chain.ErrInvalidData)
	require.NoError(t, err)

	assert.Equal(t, sim.ExitUSBBoot, r.Exit)
	assert.Equal(t, chain.ErrInvalidData, r.Result)
}

func TestSimulateWrongSalt(t *testing.T) {
	plain := plaintext(4096)
	sealed := seal(t, 1, plain)

	sealed.Provisioning.Pages[1].Rows[0] ^= 1

	r, err := simulate(sealed.Image, sealed.Provisioning, sealed.Deployment, false, 0)
	require.NoError(t, err)

	assert.Equal(t, sim.ExitChain, r.Exit)
	assert.NotEqual(t, plain, r.Image)
}

func TestSimulateOversizedImage(t *testing.T) {
	sealed := seal(t, 1, plaintext(4096))

	_, err := simulate(append(sealed.Image, 0), sealed.Provisioning, sealed.Deployment, false, 0)
	assert.Error(t, err)
}
