// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

// Mode is the top level application mode: Errored, Restoring or Ready.
type Mode interface {
	mode()
}

// Errored means the Authenticator failed to initialize.  It's terminal.
type Errored struct {
	Message string
}

// Restoring means startup is waiting for a restored session or the initial
// timeout.
type Restoring struct {
	State State
}

// Ready is normal operation.
type Ready struct {
	State State
}

func (Errored) mode()   {}
func (Restoring) mode() {}
func (Ready) mode()     {}

// NewMode returns the startup mode for the result of initializing an
// Authenticator: Errored with the error's message verbatim when err isn't
// nil, otherwise Restoring with a fresh State.
func NewMode(h Handle, err error) Mode {
	if err != nil {
		return Errored{Message: err.Error()}
	}
	return Restoring{State: NewState(h)}
}

// StateOf returns the State held by m, if any.
func StateOf(m Mode) (State, bool) {
	switch v := m.(type) {
	case Restoring:
		return v.State, true
	case Ready:
		return v.State, true
	default:
		return State{}, false
	}
}
