// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package chain implements the transfer of control to a decrypted image
// through the bootrom image chaining function.
package chain

import (
	"fmt"
)

// CPU represents the core stack limit register (MSPLIM).
type CPU interface {
	StackLimit() uint32
	SetStackLimit(val uint32)
}

// ROM represents the bootrom chain_image() function, which does not return
// on success.
type ROM interface {
	ChainImage(workspace uint32, workspaceSize uint32, start uint32, size uint32) int32
}

// Params represents the chain request.
type Params struct {
	// Workspace is the bootrom scratch area.
	Workspace     uint32
	WorkspaceSize uint32

	// Start and Size delimit the image.
	Start uint32
	Size  uint32

	// StackMargin is the amount of additional stack granted to the chain
	// sequence.
	StackMargin uint32
}

// Chain expands the stack limit by the configured margin and chains into the
// image. On failure it returns the negated bootrom result, which is positive
// for all bootrom errors.
func Chain(cpu CPU, rom ROM, p Params) (result int) {
	cpu.SetStackLimit(cpu.StackLimit() - p.StackMargin)
	return -int(rom.ChainImage(p.Workspace, p.WorkspaceSize, p.Start, p.Size))
}

// bootrom error codes
const (
	ErrNotPermitted            = 4
	ErrInvalidArg              = 5
	ErrInvalidAddress          = 10
	ErrBadAlignment            = 11
	ErrInvalidState            = 12
	ErrBufferTooSmall          = 13
	ErrPreconditionNotMet      = 14
	ErrModifiedData            = 15
	ErrInvalidData             = 16
	ErrNotFound                = 17
	ErrUnsupportedModification = 18
	ErrLockRequired            = 19
)

var resultText = map[int]string{
	ErrNotPermitted:            "not permitted",
	ErrInvalidArg:              "invalid argument",
	ErrInvalidAddress:          "invalid address",
	ErrBadAlignment:            "bad alignment",
	ErrInvalidState:            "invalid state",
	ErrBufferTooSmall:          "buffer too small",
	ErrPreconditionNotMet:      "precondition not met",
	ErrModifiedData:            "modified data",
	ErrInvalidData:             "invalid data",
	ErrNotFound:                "not found",
	ErrUnsupportedModification: "unsupported modification",
	ErrLockRequired:            "lock required",
}

// ResultText returns a description of a Chain result.
func ResultText(result int) string {
	if result == 0 {
		return "ok"
	}

	if s, ok := resultText[result]; ok {
		return s
	}

	return fmt.Sprintf("unknown error (%d)", result)
}
