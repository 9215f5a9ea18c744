// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package program

import "errors"

var (
	// ErrInvalidParameter is an invalid parameter error
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNilParameter is a nil parameter error
	ErrNilParameter = errors.New("nil parameter")

	// ErrAlreadyRunning is returned when Run is called more than once
	ErrAlreadyRunning = errors.New("program already running")
)
