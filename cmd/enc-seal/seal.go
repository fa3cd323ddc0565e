// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"

	"github.com/urfave/cli/v2"

	"github.com/f-secure-foundry/armory-encboot/assets"
	"github.com/f-secure-foundry/armory-encboot/internal/cipher"
	"github.com/f-secure-foundry/armory-encboot/internal/loader"
	"github.com/f-secure-foundry/armory-encboot/internal/otp"
	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
)

// Page represents the rows to program in an OTP page.
type Page struct {
	Page int      `json:"page"`
	Rows []uint16 `json:"rows"`
}

// Provisioning represents the OTP contents of a sealed deployment.
type Provisioning struct {
	Pages []Page `json:"pages"`
}

// Sealer encrypts images for a given key layout.
type Sealer struct {
	KeyPage    int
	SaltOffset int
	KeySize    int
	Shares     int
	ImageStart uint32
	IV         [cipher.BlockSize]byte

	// Rand is the entropy source for salts and key shares.
	Rand io.Reader
	// Workers limits the number of concurrent encryption tasks.
	Workers int
}

// Sealed represents the output of a seal operation.
type Sealed struct {
	Image        []byte
	Provisioning *Provisioning
	Deployment   *assets.Deployment
}

var sealCommand = &cli.Command{
	Name:  "seal",
	Usage: "encrypt an image and generate its OTP provisioning",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "plaintext image", Required: true},
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "encrypted image output", Required: true},
		&cli.StringFlag{Name: "otp", Value: "otp.json", Usage: "OTP provisioning output"},
		&cli.StringFlag{Name: "deployment", Value: "deployment.yaml", Usage: "deployment parameters output"},
		&cli.StringFlag{Name: "key", Usage: "hex encoded AES key file"},
		&cli.StringFlag{Name: "passphrase", Usage: "derive the AES key from a passphrase"},
		&cli.StringFlag{Name: "salt", Usage: "hex encoded salt (default: random)"},
		&cli.StringFlag{Name: "iv", Value: string(loader.DefaultIV[:]), Usage: "public IV (16 characters)"},
		&cli.IntFlag{Name: "key-page", Value: loader.DefaultKeyPage, Usage: "first OTP key page"},
		&cli.IntFlag{Name: "key-size", Value: loader.DefaultKeySize, Usage: "AES key size (16 or 32)"},
		&cli.IntFlag{Name: "shares", Value: 1, Usage: "number of XOR key shares (1-4)"},
		&cli.IntFlag{Name: "workers", Value: runtime.NumCPU(), Usage: "concurrent encryption tasks"},
		&cli.Uint64Flag{Name: "image-start", Value: loader.DefaultImageStart, Usage: "image load address"},
	},
	Action: func(cCtx *cli.Context) (err error) {
		s := &Sealer{
			KeyPage:    cCtx.Int("key-page"),
			SaltOffset: loader.DefaultSaltOffset,
			KeySize:    cCtx.Int("key-size"),
			Shares:     cCtx.Int("shares"),
			ImageStart: uint32(cCtx.Uint64("image-start")),
			Rand:       rand.Reader,
			Workers:    cCtx.Int("workers"),
		}

		if err = parseIV(cCtx.String("iv"), &s.IV); err != nil {
			return
		}

		image, err := os.ReadFile(cCtx.String("in"))

		if err != nil {
			return
		}

		var salt []byte

		if h := cCtx.String("salt"); len(h) > 0 {
			if salt, err = hex.DecodeString(h); err != nil {
				return fmt.Errorf("invalid salt, %v", err)
			}
		} else if salt, err = s.Salt(); err != nil {
			return
		}

		key, err := readKey(cCtx.String("key"), cCtx.String("passphrase"), salt, s.KeySize)

		if err != nil {
			return
		}

		sealed, err := s.Seal(cCtx.Context, image, key, salt)

		if err != nil {
			return
		}

		if err = os.WriteFile(cCtx.String("out"), sealed.Image, 0600); err != nil {
			return
		}

		rows, err := json.MarshalIndent(sealed.Provisioning, "", "\t")

		if err != nil {
			return
		}

		if err = os.WriteFile(cCtx.String("otp"), rows, 0600); err != nil {
			return
		}

		d, err := marshalDeployment(sealed.Deployment)

		if err != nil {
			return
		}

		if err = os.WriteFile(cCtx.String("deployment"), d, 0600); err != nil {
			return
		}

		log.Printf("sealed %d bytes, key page %d, %d share(s)", len(sealed.Image), s.KeyPage, s.Shares)

		return
	},
}

func parseIV(s string, iv *[cipher.BlockSize]byte) error {
	if len(s) != cipher.BlockSize {
		return fmt.Errorf("invalid IV length %d, expected %d", len(s), cipher.BlockSize)
	}

	copy(iv[:], s)

	return nil
}

func readKey(path string, passphrase string, salt []byte, size int) (key []byte, err error) {
	switch {
	case len(path) > 0 && len(passphrase) > 0:
		return nil, errors.New("key and passphrase are mutually exclusive")
	case len(passphrase) > 0:
		return cipher.DeriveKey([]byte(passphrase), salt, size), nil
	case len(path) == 0:
		return nil, errors.New("missing key or passphrase")
	}

	buf, err := os.ReadFile(path)

	if err != nil {
		return
	}

	return hex.DecodeString(string(bytes.TrimSpace(buf)))
}

// Salt returns a random salt.
func (s *Sealer) Salt() (salt []byte, err error) {
	salt = make([]byte, cipher.BlockSize)
	_, err = io.ReadFull(s.Rand, salt)
	return
}

// Seal pads the image to the cipher block size and encrypts it, the key is
// split in shares and laid out in OTP rows along with the salt.
func (s *Sealer) Seal(ctx context.Context, image []byte, key []byte, salt []byte) (sealed *Sealed, err error) {
	if len(image) == 0 {
		return nil, errors.New("empty image")
	}

	if len(key) != s.KeySize {
		return nil, fmt.Errorf("invalid key length %d, expected %d", len(key), s.KeySize)
	}

	if s.KeySize*s.Shares > otp.PageSize {
		return nil, fmt.Errorf("key shares exceed OTP page size")
	}

	if s.SaltOffset < 1 || s.KeyPage < 0 || s.KeyPage+s.SaltOffset >= rp2350.OTP_PAGES {
		return nil, fmt.Errorf("invalid key page %d", s.KeyPage)
	}

	shares, err := cipher.Split(key, s.Shares, s.Rand)

	if err != nil {
		return
	}

	size := (len(image) + cipher.BlockSize - 1) / cipher.BlockSize * cipher.BlockSize
	buf := make([]byte, size)
	copy(buf, image)

	ctr, err := cipher.Counter(salt, s.IV[:])

	if err != nil {
		return
	}

	if err = cipher.CryptParallel(ctx, key, ctr, buf, s.Workers); err != nil {
		return
	}

	d := &assets.Deployment{
		KeyPage:    uint32(s.KeyPage),
		KeySize:    uint16(s.KeySize),
		KeyShares:  uint16(s.Shares),
		ImageStart: s.ImageStart,
		ImageSize:  uint32(size),
		IV:         s.IV,
	}

	if err = d.Validate(); err != nil {
		return
	}

	sealed = &Sealed{
		Image: buf,
		Provisioning: &Provisioning{
			Pages: []Page{
				{Page: s.KeyPage, Rows: Rows(shares)},
				{Page: s.KeyPage + s.SaltOffset, Rows: Rows(salt)},
			},
		},
		Deployment: d,
	}

	return
}

// Rows converts bytes to little-endian OTP data rows.
func Rows(buf []byte) (rows []uint16) {
	for i := 0; i < len(buf); i += 2 {
		r := uint16(buf[i])

		if i+1 < len(buf) {
			r |= uint16(buf[i+1]) << 8
		}

		rows = append(rows, r)
	}

	return
}

// Bytes converts little-endian OTP data rows to bytes.
func (p *Page) Bytes() (buf []byte) {
	for _, r := range p.Rows {
		buf = append(buf, byte(r), byte(r>>8))
	}

	return
}
