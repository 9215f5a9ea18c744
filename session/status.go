// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"fmt"
	"strings"
)

// StatusKind is the discrete authentication state which selects the view.
type StatusKind int

const (
	// StatusLoggedOut is the initial status: no session and no attempt in
	// progress.
	StatusLoggedOut StatusKind = iota

	// StatusFailed is reported for every unsuccessful login, refresh or
	// challenge response, whatever the cause.
	StatusFailed

	// StatusLoggedIn is an authenticated session.
	StatusLoggedIn

	// StatusChallenged means the provider requires more input before it
	// will complete the login.
	StatusChallenged
)

// String returns the kind's name
func (k StatusKind) String() string {
	switch k {
	case StatusLoggedOut:
		return "logged-out"
	case StatusFailed:
		return "failed"
	case StatusLoggedIn:
		return "logged-in"
	case StatusChallenged:
		return "challenged"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ChallengeKind identifies what the provider asked for.
type ChallengeKind int

const (
	// ChallengeNone is the zero value and is only valid when the status
	// isn't StatusChallenged.
	ChallengeNone ChallengeKind = iota

	// ChallengeNewPasswordRequired means the user must choose a new password
	// before the login completes.
	ChallengeNewPasswordRequired
)

// String returns the challenge's name
func (c ChallengeKind) String() string {
	switch c {
	case ChallengeNone:
		return "none"
	case ChallengeNewPasswordRequired:
		return "new-password-required"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Status is the session status.  Exactly one kind is active at a time; the
// zero value is StatusLoggedOut.  Subject and Scopes are only set for
// StatusLoggedIn and Challenge only for StatusChallenged.
type Status struct {
	Kind      StatusKind
	Subject   string
	Scopes    []string
	Challenge ChallengeKind
}

// LoggedOut returns a logged out status.
func LoggedOut() Status {
	return Status{Kind: StatusLoggedOut}
}

// Failed returns a failed status.
func Failed() Status {
	return Status{Kind: StatusFailed}
}

// LoggedIn returns a logged in status for the subject.  The scopes are copied
// and their order is preserved.
func LoggedIn(subject string, scopes []string) Status {
	s := Status{Kind: StatusLoggedIn, Subject: subject}
	if scopes != nil {
		s.Scopes = append(make([]string, 0, len(scopes)), scopes...)
	}
	return s
}

// Challenged returns a challenged status.
func Challenged(c ChallengeKind) Status {
	return Status{Kind: StatusChallenged, Challenge: c}
}

// Report returns a pointer to s, for use as Result.Status.
func Report(s Status) *Status {
	return &s
}

// Equal reports whether two statuses are the same, comparing scopes in order.
func (s Status) Equal(o Status) bool {
	if s.Kind != o.Kind || s.Subject != o.Subject || s.Challenge != o.Challenge {
		return false
	}
	if len(s.Scopes) != len(o.Scopes) {
		return false
	}
	for i := range s.Scopes {
		if s.Scopes[i] != o.Scopes[i] {
			return false
		}
	}
	return true
}

// String returns a short description of the status which is safe to log.
func (s Status) String() string {
	switch s.Kind {
	case StatusLoggedIn:
		if len(s.Scopes) == 0 {
			return fmt.Sprintf("%s(%s)", s.Kind, s.Subject)
		}
		return fmt.Sprintf("%s(%s; %s)", s.Kind, s.Subject, strings.Join(s.Scopes, " "))
	case StatusChallenged:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Challenge)
	default:
		return s.Kind.String()
	}
}
