// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f-secure-foundry/armory-encboot/assets"
	"github.com/f-secure-foundry/armory-encboot/internal/loader"
)

func testDeployment() *assets.Deployment {
	return &assets.Deployment{
		KeyPage:    40,
		KeySize:    32,
		KeyShares:  3,
		ImageStart: loader.DefaultImageStart + 0x1000,
		ImageSize:  0x2000,
		IV:         [16]byte{0xa0, 0xa1, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa7, 0xa8, 0xa9, 0xaa, 0xab, 0xac, 0xad, 0xae, 0xaf},
	}
}

func loaderBinary(blocks int) []byte {
	buf := bytes.Repeat([]byte{0xde, 0xad}, 512)

	for i := 0; i < blocks; i++ {
		buf = append(buf, (&assets.Deployment{}).Bytes()...)
		buf = append(buf, bytes.Repeat([]byte{0xbe, 0xef}, 64)...)
	}

	return buf
}

func TestFixup(t *testing.T) {
	bin := loaderBinary(1)
	d := testDeployment()

	out, err := fixupDeployment(bin, d)
	require.NoError(t, err)
	require.Len(t, out, len(bin))

	off := bytes.Index(out, assets.DummyMarker())
	assert.Equal(t, 1024, off)

	p, err := assets.Parse(out[off:])
	require.NoError(t, err)
	assert.Equal(t, d, p)

	assert.Equal(t, bin[:off], out[:off])
	assert.Equal(t, bin[off+assets.DeploymentSize:], out[off+assets.DeploymentSize:])

	// input left untouched
	assert.Equal(t, loaderBinary(1), bin)
}

func TestFixupMarker(t *testing.T) {
	_, err := fixupDeployment(loaderBinary(0), testDeployment())
	assert.Error(t, err)

	_, err = fixupDeployment(loaderBinary(2), testDeployment())
	assert.Error(t, err)

	bin := loaderBinary(1)
	_, err = fixupDeployment(bin[:len(bin)-128-8], testDeployment())
	assert.Error(t, err)
}

func TestDeploymentYAML(t *testing.T) {
	d := testDeployment()

	buf, err := marshalDeployment(d)
	require.NoError(t, err)

	p, err := unmarshalDeployment(buf)
	require.NoError(t, err)
	assert.Equal(t, d, p)
}

func TestDeploymentYAMLHex(t *testing.T) {
	buf := []byte(`key_page: 29
key_size: 16
key_shares: 1
image_start: 0x20000000
image_size: 0x78000
iv: "30313233343536373839616263646566"
`)

	d, err := unmarshalDeployment(buf)
	require.NoError(t, err)

	assert.Equal(t, uint32(0x20000000), d.ImageStart)
	assert.Equal(t, uint32(0x78000), d.ImageSize)
	assert.Equal(t, loader.DefaultIV, d.IV)
}

func TestDeploymentYAMLInvalid(t *testing.T) {
	for _, buf := range []string{
		"key_page: 29\nunknown: 1\n",
		"key_page: 29\nkey_size: 16\nkey_shares: 1\nimage_start: 0x20000000\nimage_size: 0x1000\niv: zz\n",
		"key_page: 29\nkey_size: 16\nkey_shares: 1\nimage_start: 0x20000000\nimage_size: 0x1000\niv: \"3031\"\n",
		"key_page: 29\nkey_size: 24\nkey_shares: 1\nimage_start: 0x20000000\nimage_size: 0x1000\niv: \"30313233343536373839616263646566\"\n",
	} {
		_, err := unmarshalDeployment([]byte(buf))
		assert.Error(t, err, buf)
	}
}
