// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/f-secure-foundry/armory-encboot/assets"
	"github.com/f-secure-foundry/armory-encboot/internal/chain"
	"github.com/f-secure-foundry/armory-encboot/internal/cipher"
	"github.com/f-secure-foundry/armory-encboot/internal/devpath"
	"github.com/f-secure-foundry/armory-encboot/internal/loader"
	"github.com/f-secure-foundry/armory-encboot/internal/sim"
)

// Report represents the outcome of a simulated boot session.
type Report struct {
	Exit  sim.Exit
	Value interface{}
	// Result is the chain failure code, zero on successful chain.
	Result int
	// Steps is the final step counter value.
	Steps uint32
	// Image is the image memory at exit.
	Image []byte
	// Locked lists the OTP pages locked at exit.
	Locked []int
}

var simulateCommand = &cli.Command{
	Name:  "simulate",
	Usage: "boot a sealed image on the simulated target",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "encrypted image", Required: true},
		&cli.StringFlag{Name: "otp", Value: "otp.json", Usage: "OTP provisioning"},
		&cli.StringFlag{Name: "deployment", Value: "deployment.yaml", Usage: "deployment parameters"},
		&cli.StringFlag{Name: "plaintext", Usage: "expected plaintext image"},
		&cli.BoolFlag{Name: "debug", Usage: "simulate an insecure debug build"},
		&cli.IntFlag{Name: "chain-result", Usage: "bootrom chain_image() return value"},
	},
	Action: func(cCtx *cli.Context) (err error) {
		image, err := os.ReadFile(cCtx.String("in"))

		if err != nil {
			return
		}

		buf, err := os.ReadFile(cCtx.String("otp"))

		if err != nil {
			return
		}

		prov := &Provisioning{}

		if err = json.Unmarshal(buf, prov); err != nil {
			return
		}

		if buf, err = os.ReadFile(cCtx.String("deployment")); err != nil {
			return
		}

		d, err := unmarshalDeployment(buf)

		if err != nil {
			return
		}

		r, err := simulate(image, prov, d, cCtx.Bool("debug"), int32(cCtx.Int("chain-result")))

		if err != nil {
			return
		}

		log.Printf("exit: %s (%v)", r.Exit, r.Value)
		log.Printf("steps: %d", r.Steps)
		log.Printf("locked pages: %v", r.Locked)

		if r.Exit == sim.ExitReturn || r.Exit == sim.ExitUSBBoot {
			log.Printf("chain: %s", chain.ResultText(r.Result))
		}

		if p := cCtx.String("plaintext"); len(p) > 0 {
			plain, err := os.ReadFile(p)

			if err != nil {
				return err
			}

			if !bytes.HasPrefix(r.Image, plain) {
				return errors.New("decrypted image mismatch")
			}

			log.Printf("decrypted image matches")
		}

		return
	},
}

func simulate(image []byte, prov *Provisioning, dep *assets.Deployment, debug bool, chainResult int32) (r *Report, err error) {
	conf := loader.DefaultConfig()
	conf.AllowDebugging = debug
	conf.Diagnostics = debug

	if err = conf.Apply(dep); err != nil {
		return
	}

	if len(image) > int(conf.Image.Size) {
		return nil, fmt.Errorf("image larger than deployment (%d > %d)", len(image), conf.Image.Size)
	}

	d := sim.New()

	for _, p := range prov.Pages {
		d.ProgramOTP(p.Page, p.Bytes())
	}

	core := sim.NewCore(d)
	core.ChainResult = chainResult

	r = &Report{
		Image: make([]byte, conf.Image.Size),
	}

	copy(r.Image, image)

	hw := loader.Hardware{
		Bus:    d,
		Trap:   d,
		CPU:    core,
		ROM:    core,
		Image:  r.Image,
		Cipher: &cipher.CTR{KeySize: conf.KeySize, Shares: conf.KeyShares},
		Delay:  core.Delay,
	}

	if debug {
		hw.Debug = &devpath.Path{Bus: d, Trap: d, Flash: core}
	}

	s, err := loader.New(conf, hw)

	if err != nil {
		return nil, err
	}

	r.Exit, r.Value = sim.Run(func() {
		s.Boot()
	})

	// the debug path reboots without returning the chain result
	if len(core.Chains) > 0 && r.Exit != sim.ExitChain {
		r.Result = int(-core.ChainResult)
	}

	r.Steps = s.Steps().Count()

	for page := conf.KeyPage; page < conf.KeyPage+conf.KeyPages; page++ {
		if d.Locked(page) {
			r.Locked = append(r.Locked, page)
		}
	}

	return
}
