// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package harden

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type countTrap struct {
	Panic
	n int
}

func (t *countTrap) Equal(a uint32, b uint32) {
	t.n++
	t.Panic.Equal(a, b)
}

func TestPanic(t *testing.T) {
	assert.NotPanics(t, func() { Panic{}.Equal(7, 7) })
	assert.PanicsWithValue(t, Halt{A: 7, B: 8}, func() { Panic{}.Equal(7, 8) })
}

func TestFail(t *testing.T) {
	assert.PanicsWithValue(t, Halt{A: 0, B: 1}, func() { Fail(Panic{}) })
}

func TestSteps(t *testing.T) {
	trap := &countTrap{}
	s := NewSteps(trap, true)

	for step := uint32(StepClockInit); step <= StepChain; step++ {
		s.Check(step)
	}

	assert.Equal(t, uint32(StepChain+1), s.Count())
	assert.Equal(t, StepChain-StepClockInit+1, trap.n)
}

func TestStepsSkipped(t *testing.T) {
	for skip := uint32(StepClockInit); skip <= StepChain; skip++ {
		s := NewSteps(Panic{}, true)

		for step := uint32(StepClockInit); step < skip; step++ {
			s.Check(step)
		}

		assert.PanicsWithValue(t, Halt{A: skip, B: skip + 1}, func() {
			s.Check(skip + 1)
		}, "skipped step %d", skip)
	}
}

func TestStepsRepeated(t *testing.T) {
	s := NewSteps(Panic{}, true)

	s.Check(StepClockInit)

	assert.Panics(t, func() {
		s.Check(StepClockInit)
	})
}

func TestStepsDisabled(t *testing.T) {
	trap := &countTrap{}
	s := NewSteps(trap, false)

	s.Check(StepChain)

	assert.Equal(t, 0, trap.n)
	assert.Equal(t, uint32(StepClockInit), s.Count())
}
