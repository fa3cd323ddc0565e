// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tinygo && rp2350 && insecure_debug

package main

import (
	"log"

	"github.com/f-secure-foundry/armory-encboot/assets"
	"github.com/f-secure-foundry/armory-encboot/internal/devpath"
	"github.com/f-secure-foundry/armory-encboot/internal/loader"
	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
)

func init() {
	log.SetFlags(0)
}

func config() (conf loader.Config) {
	conf = loader.DefaultConfig()
	conf.AllowDebugging = true
	conf.Diagnostics = true

	return
}

func debug(conf *loader.Config, hw *loader.Hardware) {
	log.Printf("enc-bootloader %s (INSECURE DEBUG BUILD)", assets.Revision)
	log.Printf("image %#08x (%d bytes), key page %d", conf.Image.Start, conf.Image.Size, conf.KeyPage)

	hw.Debug = &devpath.Path{
		Bus:   hw.Bus,
		Trap:  hw.Trap,
		Flash: rp2350.ROM{},
	}
}
