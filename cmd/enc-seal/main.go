// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/f-secure-foundry/armory-encboot/assets"
)

const usage = `enc-seal encrypts images for the RP2350 secure first-stage loader, patches
deployment parameters in loader binaries and simulates boot sessions.`

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stdout)
}

func main() {
	app := &cli.App{
		Name:        "enc-seal",
		Usage:       "RP2350 encrypted boot provisioning",
		Version:     assets.Revision,
		Description: usage,
		Commands: []*cli.Command{
			sealCommand,
			fixupCommand,
			simulateCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
