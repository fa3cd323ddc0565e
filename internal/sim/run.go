// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"github.com/f-secure-foundry/armory-encboot/internal/harden"
)

// Exit represents how a simulated run terminated.
type Exit int

// Run exits
const (
	ExitReturn Exit = iota
	ExitHalt
	ExitHang
	ExitFault
	ExitChain
	ExitUSBBoot
)

func (e Exit) String() string {
	switch e {
	case ExitReturn:
		return "return"
	case ExitHalt:
		return "halt"
	case ExitHang:
		return "hang"
	case ExitFault:
		return "bus fault"
	case ExitChain:
		return "chain"
	case ExitUSBBoot:
		return "usb boot"
	default:
		return "unknown"
	}
}

// Run executes fn, classifying the panic values raised by the simulated
// hardware. Any other panic is propagated.
func Run(fn func()) (exit Exit, val interface{}) {
	defer func() {
		r := recover()

		if r == nil {
			return
		}

		val = r

		switch v := r.(type) {
		case harden.Halt:
			exit = ExitHalt
		case BusFault:
			exit = ExitFault
		case Chained:
			exit = ExitChain
		case Rebooted:
			exit = ExitUSBBoot
		case error:
			if v != ErrHang {
				panic(r)
			}

			exit = ExitHang
		default:
			panic(r)
		}
	}()

	fn()

	return ExitReturn, nil
}
