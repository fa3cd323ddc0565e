// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package loader implements the secure first-stage loader boot session: it
// reads the image key from OTP, decrypts the image in place, irreversibly
// locks the key OTP pages and chains into the decrypted image.
//
// A boot session is created at entry and abandoned at chain time, all its
// state is owned by the Session instance.
package loader

import (
	"errors"
	"fmt"

	"github.com/f-secure-foundry/armory-encboot/internal/chain"
	"github.com/f-secure-foundry/armory-encboot/internal/cipher"
	"github.com/f-secure-foundry/armory-encboot/internal/clock"
	"github.com/f-secure-foundry/armory-encboot/internal/diag"
	"github.com/f-secure-foundry/armory-encboot/internal/harden"
	"github.com/f-secure-foundry/armory-encboot/internal/mpu"
	"github.com/f-secure-foundry/armory-encboot/internal/otp"
	"github.com/f-secure-foundry/armory-encboot/internal/reg"
)

// DebugPath represents the development-only debug path.
type DebugPath interface {
	// VerifyLocked traps unless n OTP pages, starting from page, read as
	// locked through the raw OTP view.
	VerifyLocked(page int, n int)
	// Reflash programs the image to flash and reboots into USB update
	// mode.
	Reflash(image []byte)
}

// Hardware represents the platform the loader runs on.
type Hardware struct {
	Bus  reg.Bus
	Trap harden.Trap

	CPU chain.CPU
	ROM chain.ROM

	// Image is the encrypted image memory.
	Image []byte
	// Cipher decrypts the image.
	Cipher cipher.Decrypter

	// Delay busy-waits for the argument number of cycles.
	Delay func(cycles int)

	// Debug is the debug path, nil in release builds.
	Debug DebugPath
}

// Session represents a boot session.
type Session struct {
	conf Config
	hw   Hardware

	steps  *harden.Steps
	clocks *clock.Sequencer
	otp    *otp.OTP
	mpu    *mpu.MPU
	signal *diag.Signal

	// Hz is the clk_sys estimate after clock bring-up.
	Hz uint32
}

// New validates the configuration against the hardware and returns a boot
// session.
func New(conf Config, hw Hardware) (s *Session, err error) {
	if err = conf.Validate(); err != nil {
		return
	}

	switch {
	case hw.Bus == nil || hw.Trap == nil:
		return nil, errors.New("missing register bus or trap")
	case hw.CPU == nil || hw.ROM == nil:
		return nil, errors.New("missing core or bootrom")
	case hw.Cipher == nil:
		return nil, errors.New("missing cipher")
	case uint32(len(hw.Image)) < conf.Image.Size:
		return nil, fmt.Errorf("image memory too small (%d < %d)", len(hw.Image), conf.Image.Size)
	case conf.AllowDebugging && hw.Debug == nil:
		return nil, errors.New("debugging allowed without a debug path")
	case conf.Diagnostics && hw.Delay == nil:
		return nil, errors.New("diagnostics without delay function")
	}

	steps := harden.NewSteps(hw.Trap, conf.Hardening)

	s = &Session{
		conf:  conf,
		hw:    hw,
		steps: steps,
		clocks: &clock.Sequencer{
			Bus:      hw.Bus,
			Trap:     hw.Trap,
			Steps:    steps,
			Hardened: conf.Hardening,
		},
		otp: &otp.OTP{
			Bus:      hw.Bus,
			Trap:     hw.Trap,
			Hardened: conf.Hardening,
			// debug builds read the key without faulting on bad rows
			Guarded: !conf.AllowDebugging,
		},
		mpu: &mpu.MPU{
			Bus:      hw.Bus,
			Trap:     hw.Trap,
			Hardened: conf.Hardening,
		},
	}

	if conf.Diagnostics {
		s.signal = diag.NewSignal(hw.Bus, conf.GreenLED, conf.RedLED, hw.Delay)
	}

	return
}

// Steps returns the session step counter.
func (s *Session) Steps() *harden.Steps {
	return s.steps
}

// Boot runs the boot session. On success it does not return, on chain
// failure it returns the positive bootrom error code, after the debug path
// (if enabled) has had a chance to run.
func (s *Session) Boot() (result int) {
	conf := &s.conf
	image := s.hw.Image[:conf.Image.Size]

	// no later code can re-enable the debugger to observe key handling
	s.otp.LockDebug()

	s.Hz = s.clocks.Init(conf.Clock)
	s.steps.Check(harden.StepClockInitDone)

	if s.signal != nil {
		s.signal.Reset()
		s.signal.Start()
	}

	s.steps.Check(harden.StepMain)

	key := s.otp.ReadKey(conf.KeyPage, conf.KeySize*conf.KeyShares, conf.KeyPage+conf.SaltOffset, cipher.BlockSize)

	s.steps.Check(harden.StepDecrypt)

	err := s.hw.Cipher.Decrypt(key.Key, key.Salt, conf.IV[:], image, len(image)/cipher.BlockSize, func() {
		key.Wipe()
		s.otp.Lock(conf.KeyPage, 1)
		s.steps.Check(harden.StepKeyLocked)
	})

	if err != nil {
		key.Wipe()
		harden.Fail(s.hw.Trap)
	}

	s.steps.Check(harden.StepDecryptDone)

	s.otp.Lock(conf.KeyPage, conf.KeyPages)
	s.steps.Check(harden.StepLockAll)

	if conf.AllowDebugging {
		s.hw.Debug.VerifyLocked(conf.KeyPage, conf.KeyPages)
	}

	s.mpu.Teardown(conf.TransientRegions, conf.FlashRegion)
	s.steps.Check(harden.StepTeardown)

	if s.signal != nil {
		s.signal.Stop()
	}

	s.steps.Check(harden.StepChain)

	result = chain.Chain(s.hw.CPU, s.hw.ROM, chain.Params{
		Workspace:     conf.Workspace.Start,
		WorkspaceSize: conf.Workspace.Size,
		Start:         conf.Image.Start,
		Size:          conf.Image.Size,
		StackMargin:   conf.StackMargin,
	})

	if s.signal != nil {
		s.signal.Fail(result)
	}

	if conf.AllowDebugging {
		s.hw.Debug.Reflash(image)
	}

	return
}
