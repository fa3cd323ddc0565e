// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package harden

// Boot step checkpoints, each must be attested exactly once and in order.
const (
	StepClockInit = 16 + iota
	StepClockInit2
	StepClockInit3
	StepClockInit4
	StepClockInit5
	StepClockInitDone
	StepMain
	StepDecrypt
	StepKeyLocked
	StepDecryptDone
	StepLockAll
	StepTeardown
	StepChain
)

// Steps is a monotonic step counter, each checkpoint compares the counter
// against the exact expected value and then advances it.
//
// A disabled counter turns every checkpoint into a no-op.
type Steps struct {
	trap    Trap
	count   uint32
	enabled bool
}

// NewSteps returns a step counter starting at the first checkpoint.
func NewSteps(trap Trap, enabled bool) *Steps {
	return &Steps{
		trap:    trap,
		count:   StepClockInit,
		enabled: enabled,
	}
}

// Check attests that the expected checkpoint is the next one, halting through
// the trap otherwise.
func (s *Steps) Check(expected uint32) {
	if !s.enabled {
		return
	}

	s.trap.Equal(s.count, Opaque(expected))
	s.count++
}

// Count returns the current counter value.
func (s *Steps) Count() uint32 {
	return s.count
}
