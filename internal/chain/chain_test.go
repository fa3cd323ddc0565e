// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f-secure-foundry/armory-encboot/internal/rp2350"
	"github.com/f-secure-foundry/armory-encboot/internal/sim"
)

var params = Params{
	Workspace:     rp2350.ROM_CHAIN_WORKSPACE,
	WorkspaceSize: rp2350.ROM_CHAIN_WORKSPACE_SIZE,
	Start:         rp2350.SRAM_BASE,
	Size:          0x10000,
	StackMargin:   0x100,
}

func TestChain(t *testing.T) {
	core := sim.NewCore(sim.New())
	limit := core.MSPLIM

	exit, val := sim.Run(func() {
		Chain(core, core, params)
	})

	require.Equal(t, sim.ExitChain, exit)
	assert.Equal(t, sim.Chained{
		Workspace:     0x20080000,
		WorkspaceSize: 4096,
		Start:         0x20000000,
		Size:          65536,
	}, val)
	assert.Equal(t, limit-0x100, core.MSPLIM)
}

func TestChainFailure(t *testing.T) {
	core := sim.NewCore(nil)
	core.ChainResult = -ErrNotFound

	var result int

	exit, _ := sim.Run(func() {
		result = Chain(core, core, params)
	})

	require.Equal(t, sim.ExitReturn, exit)
	assert.Equal(t, ErrNotFound, result)
	assert.Len(t, core.Chains, 1)
}

func TestResultText(t *testing.T) {
	assert.Equal(t, "ok", ResultText(0))
	assert.Equal(t, "invalid data", ResultText(ErrInvalidData))
	assert.Equal(t, "unknown error (99)", ResultText(99))
}
