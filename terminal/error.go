// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package terminal

import "errors"

var (
	// ErrNilParameter is returned when a required parameter is nil.
	ErrNilParameter = errors.New("nil parameter")

	// ErrUnknownControl is returned when a command doesn't name a control of
	// the current view.
	ErrUnknownControl = errors.New("unknown control")
)
