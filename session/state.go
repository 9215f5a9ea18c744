// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import "encoding/json"

// Secret is a password typed by the user.
type Secret string

// RedactedSecret is the redacted string or json for a Secret
const RedactedSecret = "[REDACTED: password]"

// String will redact the secret
func (s Secret) String() string {
	return RedactedSecret
}

// GoString will redact the secret when formatted with %#v
func (s Secret) GoString() string {
	return RedactedSecret
}

// MarshalJSON will redact the secret
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedSecret)
}

// Credentials are the form values sent with a login.
type Credentials struct {
	Username string
	Password Secret
}

// State is the application state.  It's a value: every event produces a new
// State and the previous one is never mutated.  Handle belongs to the
// Authenticator and is only ever round-tripped.
type State struct {
	Handle         Handle
	Status         Status
	Username       string
	Password       Secret
	PasswordVerify Secret
}

// NewState returns the startup state: logged out with empty fields.
func NewState(h Handle) State {
	return State{
		Handle: h,
		Status: LoggedOut(),
	}
}

// Clear returns a copy of the state with the form fields reset.  The status
// is left alone; changing it is the Authenticator's job.
func (s State) Clear() State {
	s.Username = ""
	s.Password = ""
	s.PasswordVerify = ""
	return s
}

// Credentials returns the login credentials from the form fields, verbatim.
func (s State) Credentials() Credentials {
	return Credentials{
		Username: s.Username,
		Password: s.Password,
	}
}
