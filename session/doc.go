// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package session provides the session state machine and the dispatcher for an
interactive client-side login flow.  The real authentication work (login,
refresh, password challenges and credential exchange) is done by an
Authenticator; this package only threads the Authenticator's opaque Handle
through every call and reacts to the Status it reports.

A Dispatcher maps (State, Event) to (State, []Effect).  Effects are
asynchronous calls into the Authenticator; each one yields a later Event
(usually an AuthEvent) which is dispatched like any other.  Dispatchers never
return errors: authentication failures surface as a Failed status reported by
the Authenticator.

The top level Mode models application startup:

	Errored   the Authenticator could not be initialized (absorbing)
	Restoring waiting for a restored session or the initial timeout
	Ready     normal interactive operation

Example:

	auth := session.NewTestAuthenticator(
		session.WithTestUser("alice", session.TestUser{Password: "fido", Scopes: []string{"read"}}),
	)
	d, err := session.NewDispatcher(auth)
	if err != nil {
		// handle error
	}
	s := session.NewState(auth.Handle())
	s, _ = d.Update(s, session.UpdateUsername{Value: "alice"})
	s, _ = d.Update(s, session.UpdatePassword{Value: "fido"})
	s, effects := d.Update(s, session.LogIn{})
	s = d.Drain(ctx, s, effects)
	fmt.Println(s.Status) // logged-in(alice)
*/
package session
