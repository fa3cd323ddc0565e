// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tinygo && rp2350

package main

import (
	"github.com/f-secure-foundry/armory-encboot/assets"
	"github.com/f-secure-foundry/armory-encboot/internal/cipher"
	"github.com/f-secure-foundry/armory-encboot/internal/harden"
	"github.com/f-secure-foundry/armory-encboot/internal/loader"
	"github.com/f-secure-foundry/armory-encboot/internal/reg"
	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
)

// deployment applies the deployment block patched in the binary by
// `enc-seal fixup`.
func deployment(conf *loader.Config) bool {
	d, err := assets.Current()

	if err != nil {
		return false
	}

	return conf.Apply(d) == nil
}

func main() {
	conf := config()

	trap := rp2350.RCP{}

	if !deployment(&conf) {
		harden.Fail(trap)
	}

	hw := loader.Hardware{
		Bus:    reg.MMIO{},
		Trap:   trap,
		CPU:    rp2350.CPU{},
		ROM:    rp2350.ROM{},
		Image:  rp2350.ImageRegion(conf.Image.Start, int(conf.Image.Size)),
		Cipher: &cipher.CTR{KeySize: conf.KeySize, Shares: conf.KeyShares},
		Delay:  rp2350.Delay,
	}

	debug(&conf, &hw)

	s, err := loader.New(conf, hw)

	if err != nil {
		harden.Fail(trap)
	}

	s.Boot()

	// chain failure, no recovery
	for {
	}
}
