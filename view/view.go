// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package view selects and renders the UI description for a session.Mode.
// Views are plain values: labeled inputs and buttons bound to the
// session.Event they produce, so a front end only has to display them and
// forward events.
package view

import (
	"strings"

	"github.com/hashicorp/capsession/session"
)

// Node is an element of a view tree.
type Node interface {
	node()
}

// Column lays out its children vertically.
type Column struct {
	Children []Node
}

// Text is static text.
type Text struct {
	Content string
}

// Input is an editable field.  OnInput builds the event for a new value.
type Input struct {
	Label   string
	Value   string
	Secret  bool
	OnInput func(string) session.Event
}

// Button produces OnPress when pressed.
type Button struct {
	Label   string
	OnPress session.Event
}

func (Column) node() {}
func (Text) node()   {}
func (Input) node()  {}
func (Button) node() {}

// Text shown by the views.
const (
	RestoringText    = "Restoring session..."
	LogInTitle       = "Log In"
	NotPermitted     = "Not permitted. Check your username and password."
	ChallengeTitle   = "A new password is required"
	LoggedInAsPrefix = "Logged In As:"
	WithIDPrefix     = "With Id:"
	WithScopesPrefix = "With Scopes:"
	CredentialsLabel = "Credentials:"
)

// Select returns the view for m.  auth is only used to ask whether the
// session holds credentials and may be nil.
func Select(m session.Mode, auth session.Authenticator) Node {
	switch v := m.(type) {
	case session.Errored:
		return errorView(v.Message)
	case session.Restoring:
		return restoringView()
	case session.Ready:
		return readyView(v.State, auth)
	default:
		return errorView("unknown mode")
	}
}

func readyView(s session.State, auth session.Authenticator) Node {
	switch s.Status.Kind {
	case session.StatusFailed:
		return notPermittedView(s)
	case session.StatusLoggedIn:
		return authenticatedView(s, auth)
	case session.StatusChallenged:
		return challengedView(s)
	default:
		return loginView(s)
	}
}

func errorView(message string) Node {
	return Column{Children: []Node{
		Text{Content: message},
	}}
}

func restoringView() Node {
	return Column{Children: []Node{
		Text{Content: RestoringText},
	}}
}

func loginView(s session.State) Node {
	return Column{Children: []Node{
		Text{Content: LogInTitle},
		usernameInput(s),
		passwordInput("Password", s.Password, updatePassword),
		Button{Label: "Log In", OnPress: session.LogIn{}},
	}}
}

func notPermittedView(s session.State) Node {
	return Column{Children: []Node{
		Text{Content: NotPermitted},
		usernameInput(s),
		passwordInput("Password", s.Password, updatePassword),
		Button{Label: "Try Again", OnPress: session.TryAgain{}},
	}}
}

func authenticatedView(s session.State, auth session.Authenticator) Node {
	creds := "absent"
	if auth != nil {
		if _, ok := auth.Credentials(s.Handle); ok {
			creds = "present"
		}
	}
	return Column{Children: []Node{
		Text{Content: LoggedInAsPrefix + s.Username},
		Text{Content: WithIDPrefix + s.Status.Subject},
		Text{Content: WithScopesPrefix + strings.Join(s.Status.Scopes, ", ")},
		Text{Content: CredentialsLabel + creds},
		Button{Label: "Log Out", OnPress: session.LogOut{}},
		Button{Label: "Refresh", OnPress: session.Refresh{}},
	}}
}

func challengedView(s session.State) Node {
	return Column{Children: []Node{
		Text{Content: ChallengeTitle},
		passwordInput("New Password", s.Password, updatePassword),
		passwordInput("Verify Password", s.PasswordVerify, updatePasswordVerification),
		Button{Label: "Submit", OnPress: session.RespondWithNewPassword{}},
	}}
}

func usernameInput(s session.State) Input {
	return Input{
		Label: "Username",
		Value: s.Username,
		OnInput: func(v string) session.Event {
			return session.UpdateUsername{Value: v}
		},
	}
}

func passwordInput(label string, value session.Secret, on func(string) session.Event) Input {
	return Input{
		Label:   label,
		Value:   string(value),
		Secret:  true,
		OnInput: on,
	}
}

func updatePassword(v string) session.Event {
	return session.UpdatePassword{Value: session.Secret(v)}
}

func updatePasswordVerification(v string) session.Event {
	return session.UpdatePasswordVerification{Value: session.Secret(v)}
}

// Controls returns the inputs and buttons of n in display order.
func Controls(n Node) []Node {
	var out []Node
	walk(n, func(c Node) {
		switch c.(type) {
		case Input, Button:
			out = append(out, c)
		}
	})
	return out
}

func walk(n Node, fn func(Node)) {
	switch v := n.(type) {
	case Column:
		for _, c := range v.Children {
			walk(c, fn)
		}
	case nil:
	default:
		fn(v)
	}
}
