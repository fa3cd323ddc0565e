// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package assets

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/f-secure-foundry/armory-encboot/internal/cipher"
	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
)

//go:generate go run gen_deployment.go

// MarkerSize represents the deployment block marker size in bytes
const MarkerSize = 16

// DeploymentSize represents the encoded deployment block size in bytes
const DeploymentSize = MarkerSize + 4 + 2 + 2 + 4 + 4 + 16

// Revision represents the firmware version
var Revision string

// Deployment represents the per-deployment loader parameters, patched in the
// loader binary by `enc-seal fixup`.
type Deployment struct {
	KeyPage    uint32
	KeySize    uint16
	KeyShares  uint16
	ImageStart uint32
	ImageSize  uint32
	IV         [16]byte
}

// DummyMarker generates a known placeholder to allow identification of the
// deployment block within the loader binary, it is computed at runtime so
// that the block is its only occurrence.
func DummyMarker() []byte {
	var seed []byte

	for i := 0; i < 32; i++ {
		seed = append(seed, byte(i))
	}

	sum := sha256.Sum256(seed)

	return sum[:MarkerSize]
}

// Bytes returns the encoded deployment block.
func (d *Deployment) Bytes() []byte {
	buf := new(bytes.Buffer)

	buf.Write(DummyMarker())
	binary.Write(buf, binary.LittleEndian, d.KeyPage)
	binary.Write(buf, binary.LittleEndian, d.KeySize)
	binary.Write(buf, binary.LittleEndian, d.KeyShares)
	binary.Write(buf, binary.LittleEndian, d.ImageStart)
	binary.Write(buf, binary.LittleEndian, d.ImageSize)
	buf.Write(d.IV[:])

	return buf.Bytes()
}

// Parse decodes a deployment block.
func Parse(buf []byte) (d *Deployment, err error) {
	if len(buf) < DeploymentSize {
		return nil, errors.New("invalid deployment block length")
	}

	if !bytes.Equal(buf[:MarkerSize], DummyMarker()) {
		return nil, errors.New("invalid deployment block marker")
	}

	d = &Deployment{
		KeyPage:    binary.LittleEndian.Uint32(buf[16:]),
		KeySize:    binary.LittleEndian.Uint16(buf[20:]),
		KeyShares:  binary.LittleEndian.Uint16(buf[22:]),
		ImageStart: binary.LittleEndian.Uint32(buf[24:]),
		ImageSize:  binary.LittleEndian.Uint32(buf[28:]),
	}

	copy(d.IV[:], buf[32:DeploymentSize])

	return
}

// Validate returns all deployment parameter errors.
func (d *Deployment) Validate() (err error) {
	if d.KeyPage >= rp2350.OTP_PAGES {
		err = multierror.Append(err, fmt.Errorf("invalid key page %d", d.KeyPage))
	}

	if d.KeySize != 16 && d.KeySize != 32 {
		err = multierror.Append(err, fmt.Errorf("invalid key size %d", d.KeySize))
	}

	if d.KeyShares < 1 || d.KeyShares > cipher.MaxShares {
		err = multierror.Append(err, fmt.Errorf("invalid number of key shares %d", d.KeyShares))
	}

	if d.ImageSize == 0 || d.ImageSize%cipher.BlockSize != 0 {
		err = multierror.Append(err, fmt.Errorf("invalid image size %#x", d.ImageSize))
	}

	if d.ImageStart < rp2350.SRAM_BASE || uint64(d.ImageStart)+uint64(d.ImageSize) > rp2350.LOADER_RAM_START {
		err = multierror.Append(err, fmt.Errorf("image %#x+%#x outside the SRAM below the loader", d.ImageStart, d.ImageSize))
	}

	return
}

// Current returns the deployment parameters embedded in the running binary.
func Current() (*Deployment, error) {
	return Parse(deploymentBlock[:])
}
