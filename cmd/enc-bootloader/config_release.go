// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tinygo && rp2350 && !insecure_debug

package main

import (
	"github.com/f-secure-foundry/armory-encboot/internal/loader"
)

func config() loader.Config {
	return loader.DefaultConfig()
}

func debug(_ *loader.Config, _ *loader.Hardware) {}
