// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package view

import (
	"bytes"
	"context"
	"testing"

	"github.com/hashicorp/capsession/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// texts returns the content of every Text node in n.
func texts(n Node) []string {
	var out []string
	walk(n, func(c Node) {
		if t, ok := c.(Text); ok {
			out = append(out, t.Content)
		}
	})
	return out
}

func labels(n Node) []string {
	var out []string
	for _, c := range Controls(n) {
		switch v := c.(type) {
		case Input:
			out = append(out, v.Label)
		case Button:
			out = append(out, v.Label)
		}
	}
	return out
}

func TestSelect(t *testing.T) {
	t.Parallel()
	form := session.State{Username: "bob", Password: "fido", PasswordVerify: "fido2"}
	withStatus := func(s session.Status) session.State {
		st := form
		st.Status = s
		return st
	}
	tests := []struct {
		name       string
		mode       session.Mode
		wantTexts  []string
		wantLabels []string
		wantPress  []session.Event
	}{
		{
			name:      "error",
			mode:      session.Errored{Message: "invalid region"},
			wantTexts: []string{"invalid region"},
		},
		{
			name:      "restoring",
			mode:      session.Restoring{State: withStatus(session.LoggedIn("alice", nil))},
			wantTexts: []string{RestoringText},
		},
		{
			name:       "login",
			mode:       session.Ready{State: withStatus(session.LoggedOut())},
			wantTexts:  []string{LogInTitle},
			wantLabels: []string{"Username", "Password", "Log In"},
			wantPress:  []session.Event{session.LogIn{}},
		},
		{
			name:       "not-permitted",
			mode:       session.Ready{State: withStatus(session.Failed())},
			wantTexts:  []string{NotPermitted},
			wantLabels: []string{"Username", "Password", "Try Again"},
			wantPress:  []session.Event{session.TryAgain{}},
		},
		{
			name:       "challenged",
			mode:       session.Ready{State: withStatus(session.Challenged(session.ChallengeNewPasswordRequired))},
			wantTexts:  []string{ChallengeTitle},
			wantLabels: []string{"New Password", "Verify Password", "Submit"},
			wantPress:  []session.Event{session.RespondWithNewPassword{}},
		},
		{
			name: "authenticated",
			mode: session.Ready{State: withStatus(session.LoggedIn("alice", []string{"read", "write"}))},
			wantTexts: []string{
				"Logged In As:bob",
				"With Id:alice",
				"With Scopes:read, write",
				"Credentials:absent",
			},
			wantLabels: []string{"Log Out", "Refresh"},
			wantPress:  []session.Event{session.LogOut{}, session.Refresh{}},
		},
		{
			name:      "unknown",
			mode:      nil,
			wantTexts: []string{"unknown mode"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert := assert.New(t)
			n := Select(tt.mode, nil)
			assert.Equal(tt.wantTexts, texts(n))
			assert.Equal(tt.wantLabels, labels(n))
			var presses []session.Event
			for _, c := range Controls(n) {
				if b, ok := c.(Button); ok {
					presses = append(presses, b.OnPress)
				}
			}
			assert.Equal(tt.wantPress, presses)
		})
	}
}

func TestSelect_inputs(t *testing.T) {
	t.Parallel()
	t.Run("login", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := session.State{Username: "bob", Password: "fido"}
		c := Controls(Select(session.Ready{State: s}, nil))
		require.Len(c, 3)

		user := c[0].(Input)
		assert.Equal("bob", user.Value)
		assert.False(user.Secret)
		assert.Equal(session.UpdateUsername{Value: "carol"}, user.OnInput("carol"))

		pass := c[1].(Input)
		assert.Equal("fido", pass.Value)
		assert.True(pass.Secret)
		assert.Equal(session.UpdatePassword{Value: "x"}, pass.OnInput("x"))
	})
	t.Run("challenged", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := session.State{
			Status:         session.Challenged(session.ChallengeNewPasswordRequired),
			Password:       "a",
			PasswordVerify: "b",
		}
		c := Controls(Select(session.Ready{State: s}, nil))
		require.Len(c, 3)
		pass, verify := c[0].(Input), c[1].(Input)
		assert.Equal("a", pass.Value)
		assert.Equal("b", verify.Value)
		assert.True(verify.Secret)
		assert.Equal(session.UpdatePassword{Value: "n"}, pass.OnInput("n"))
		assert.Equal(session.UpdatePasswordVerification{Value: "n"}, verify.OnInput("n"))
	})
}

func TestSelect_credentialsPresent(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	auth := session.NewTestAuthenticator(
		session.WithTestUser("bob", session.TestUser{Password: "fido", Subject: "alice", Scopes: []string{"read"}}),
	)
	d, err := session.NewDispatcher(auth)
	require.NoError(err)
	s := session.NewState(auth.Handle())
	s, _ = d.Update(s, session.UpdateUsername{Value: "bob"})
	s, _ = d.Update(s, session.UpdatePassword{Value: "fido"})
	s, effects := d.Update(s, session.LogIn{})
	s = d.Drain(context.Background(), s, effects)
	require.Equal(session.StatusLoggedIn, s.Status.Kind)

	got := texts(Select(session.Ready{State: s}, auth))
	assert.Equal([]string{
		"Logged In As:bob",
		"With Id:alice",
		"With Scopes:read",
		"Credentials:present",
	}, got)
}

func TestRender(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		node Node
		want string
	}{
		{
			name: "login",
			node: Select(session.Ready{State: session.State{Username: "bob", Password: "fido"}}, nil),
			want: "Log In\n" +
				"  [1] Username: bob\n" +
				"  [2] Password: ********\n" +
				"  [3] <Log In>\n",
		},
		{
			name: "empty-secret",
			node: Select(session.Ready{State: session.State{}}, nil),
			want: "Log In\n" +
				"  [1] Username: \n" +
				"  [2] Password: \n" +
				"  [3] <Log In>\n",
		},
		{
			name: "restoring",
			node: Select(session.Restoring{}, nil),
			want: RestoringText + "\n",
		},
		{
			name: "nil",
			node: nil,
			want: "",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			var buf bytes.Buffer
			require.NoError(Render(&buf, tt.node))
			assert.Equal(tt.want, buf.String())
			assert.NotContains(buf.String(), "fido")
		})
	}
}
