// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import "context"

// Handle is an Authenticator's private state.  Session code never looks
// inside it; it's stored in State and passed back on every call.
type Handle interface{}

// Message is an Authenticator's private message type, delivered to
// Authenticator.Update inside an AuthEvent.
type Message interface{}

// CredentialBundle is whatever an Authenticator exchanges the session for
// (cloud credentials, an access token).  It's only queried for display.
type CredentialBundle interface{}

// Effect is a pending asynchronous call.  It is run off the event loop and its
// result, if not nil, is dispatched as an ordinary Event.  Effects must honor
// ctx cancellation.
type Effect func(ctx context.Context) Event

// Result is returned by Authenticator.Update.  Handle always replaces the
// current handle; Status, when not nil, replaces the current status; Effects
// are further calls to run.
type Result struct {
	Handle  Handle
	Status  *Status
	Effects []Effect
}

// Authenticator is the external authentication library.  Login, Refresh and
// the other request methods don't do any work themselves: they return an
// Effect which yields an AuthEvent, and the work happens in Update where the
// handle is available.
type Authenticator interface {
	// Update handles a message produced by one of the Authenticator's own
	// effects.
	Update(msg Message, h Handle) Result

	// Login starts a username/password login.
	Login(c Credentials) Effect

	// RespondNewPassword answers a new password challenge.
	RespondNewPassword(newPassword Secret) Effect

	// Refresh refreshes the current session, or restores one.
	Refresh() Effect

	// Logout ends the current session.
	Logout() Effect

	// Unauthed resets to logged out without talking to the provider.
	Unauthed() Effect

	// Credentials returns the credential bundle for the session, if any.
	Credentials(h Handle) (CredentialBundle, bool)
}

// Emit returns an Effect which yields an AuthEvent with msg and does nothing
// else.  Authenticators use it for their request methods.
func Emit(msg Message) Effect {
	return func(context.Context) Event {
		return AuthEvent{Msg: msg}
	}
}
