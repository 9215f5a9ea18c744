// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

// Event is anything the Dispatcher can handle.  The set of events is closed;
// see the types in this file.
type Event interface {
	event()
}

// AuthEvent carries a message produced by an Authenticator effect back to the
// Authenticator's Update.
type AuthEvent struct {
	Msg Message
}

// InitialTimeout fires once, shortly after startup, to request a refresh in
// case no restored session has been reported yet.
type InitialTimeout struct{}

// LogIn requests a login with the current form fields.
type LogIn struct{}

// RespondWithNewPassword answers a new password challenge with the password
// field.
type RespondWithNewPassword struct{}

// TryAgain resets the form after a failure.
type TryAgain struct{}

// LogOut ends the session.
type LogOut struct{}

// Refresh requests a token refresh.
type Refresh struct{}

// UpdateUsername replaces the username field.
type UpdateUsername struct {
	Value string
}

// UpdatePassword replaces the password field.
type UpdatePassword struct {
	Value Secret
}

// UpdatePasswordVerification replaces the password confirmation field.
type UpdatePasswordVerification struct {
	Value Secret
}

func (AuthEvent) event()                  {}
func (InitialTimeout) event()             {}
func (LogIn) event()                      {}
func (RespondWithNewPassword) event()     {}
func (TryAgain) event()                   {}
func (LogOut) event()                     {}
func (Refresh) event()                    {}
func (UpdateUsername) event()             {}
func (UpdatePassword) event()             {}
func (UpdatePasswordVerification) event() {}
