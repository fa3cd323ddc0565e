// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"

	"github.com/f-secure-foundry/armory-encboot/assets"
)

// deploymentFile represents the YAML encoding of the deployment parameters.
type deploymentFile struct {
	KeyPage    uint32 `yaml:"key_page"`
	KeySize    uint16 `yaml:"key_size"`
	KeyShares  uint16 `yaml:"key_shares"`
	ImageStart uint32 `yaml:"image_start"`
	ImageSize  uint32 `yaml:"image_size"`
	IV         string `yaml:"iv"`
}

var fixupCommand = &cli.Command{
	Name:  "fixup",
	Usage: "patch deployment parameters in a loader binary",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "loader", Aliases: []string{"l"}, Usage: "loader binary", Required: true},
		&cli.StringFlag{Name: "deployment", Aliases: []string{"d"}, Value: "deployment.yaml", Usage: "deployment parameters"},
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "patched loader output (default: in place)"},
	},
	Action: func(cCtx *cli.Context) (err error) {
		buf, err := os.ReadFile(cCtx.String("deployment"))

		if err != nil {
			return
		}

		d, err := unmarshalDeployment(buf)

		if err != nil {
			return
		}

		bin, err := os.ReadFile(cCtx.String("loader"))

		if err != nil {
			return
		}

		if bin, err = fixupDeployment(bin, d); err != nil {
			return
		}

		out := cCtx.String("out")

		if len(out) == 0 {
			out = cCtx.String("loader")
		}

		if err = os.WriteFile(out, bin, 0600); err != nil {
			return
		}

		log.Printf("patched %s, key page %d, image %#08x (%d bytes)", out, d.KeyPage, d.ImageStart, d.ImageSize)

		return
	},
}

func marshalDeployment(d *assets.Deployment) ([]byte, error) {
	return yaml.Marshal(&deploymentFile{
		KeyPage:    d.KeyPage,
		KeySize:    d.KeySize,
		KeyShares:  d.KeyShares,
		ImageStart: d.ImageStart,
		ImageSize:  d.ImageSize,
		IV:         hex.EncodeToString(d.IV[:]),
	})
}

func unmarshalDeployment(buf []byte) (d *assets.Deployment, err error) {
	f := &deploymentFile{}

	if err = yaml.UnmarshalStrict(buf, f); err != nil {
		return
	}

	iv, err := hex.DecodeString(f.IV)

	if err != nil {
		return nil, fmt.Errorf("invalid IV, %v", err)
	}

	d = &assets.Deployment{
		KeyPage:    f.KeyPage,
		KeySize:    f.KeySize,
		KeyShares:  f.KeyShares,
		ImageStart: f.ImageStart,
		ImageSize:  f.ImageSize,
	}

	if len(iv) != len(d.IV) {
		return nil, fmt.Errorf("invalid IV length %d", len(iv))
	}

	copy(d.IV[:], iv)

	return d, d.Validate()
}

func fixupDeployment(buf []byte, d *assets.Deployment) ([]byte, error) {
	marker := assets.DummyMarker()

	switch n := bytes.Count(buf, marker); n {
	case 0:
		return nil, errors.New("could not locate deployment block")
	case 1:
	default:
		return nil, fmt.Errorf("ambiguous deployment block (%d markers)", n)
	}

	off := bytes.Index(buf, marker)

	if off+assets.DeploymentSize > len(buf) {
		return nil, errors.New("truncated deployment block")
	}

	out := make([]byte, len(buf))
	copy(out, buf)
	copy(out[off:], d.Bytes())

	if p, err := assets.Parse(out[off:]); err != nil || *p != *d {
		return nil, errors.New("could not set deployment block")
	}

	return out, nil
}
