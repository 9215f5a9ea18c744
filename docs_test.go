// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package capsession_test

import (
	"context"
	"os"

	"github.com/hashicorp/capsession/session"
	"github.com/hashicorp/capsession/view"
)

func Example_session() {
	ctx := context.Background()

	// Any session.Authenticator works here, see the oidc and cognito
	// packages for real ones.
	auth := session.NewTestAuthenticator(
		session.WithTestUser("alice", session.TestUser{Password: "fido", Subject: "alice-id", Scopes: []string{"read"}}),
	)
	d, err := session.NewDispatcher(auth)
	if err != nil {
		// handle error
	}

	// Every event returns the next state and the effects it requires.
	// Drain runs the effects and dispatches their results.
	s := session.NewState(auth.Handle())
	for _, ev := range []session.Event{
		session.UpdateUsername{Value: "alice"},
		session.UpdatePassword{Value: "fido"},
		session.LogIn{},
	} {
		var effects []session.Effect
		s, effects = d.Update(s, ev)
		s = d.Drain(ctx, s, effects)
	}

	// Select the view for the state and render it.
	if err := view.Render(os.Stdout, view.Select(session.Ready{State: s}, auth)); err != nil {
		// handle error
	}

	// Output:
	// Logged In As:alice
	// With Id:alice-id
	// With Scopes:read
	// Credentials:present
	//   [1] <Log Out>
	//   [2] <Refresh>
}
