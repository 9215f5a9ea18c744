// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/capsession/sdk/id"
	"github.com/hashicorp/go-hclog"
)

// TestUser is a user known to a TestAuthenticator.
type TestUser struct {
	// Password is the user's current password.
	Password Secret

	// Subject is reported in the LoggedIn status.  It defaults to the
	// username.
	Subject string

	// Scopes are reported in the LoggedIn status.
	Scopes []string

	// RequireNewPassword makes a successful login report a new password
	// challenge instead.  Answering the challenge clears it.
	RequireNewPassword bool
}

// TestCredentialBundle is the credential bundle of a TestAuthenticator
// session.
type TestCredentialBundle struct {
	Subject   string
	SessionID string
}

// The TestAuthenticator's request messages are exported so tests can inspect
// the effects a Dispatcher issues.
type (
	// TestLoginRequested is emitted by TestAuthenticator.Login
	TestLoginRequested struct{ Credentials Credentials }

	// TestNewPasswordRequested is emitted by
	// TestAuthenticator.RespondNewPassword
	TestNewPasswordRequested struct{ Password Secret }

	// TestRefreshRequested is emitted by TestAuthenticator.Refresh
	TestRefreshRequested struct{}

	// TestLogoutRequested is emitted by TestAuthenticator.Logout
	TestLogoutRequested struct{}

	// TestUnauthedRequested is emitted by TestAuthenticator.Unauthed
	TestUnauthedRequested struct{}
)

// testCompleted is the result of a TestAuthenticator effect.
type testCompleted struct {
	handle testHandle
	status Status
	err    error
}

// testHandle is the TestAuthenticator's Handle.
type testHandle struct {
	username  string
	sessionID string
	challenge string
}

// TestAuthenticator is an in-memory Authenticator which makes writing tests
// (and demos) easier.  Effects consult its user directory, optionally after a
// simulated latency, so they behave like network calls without a network.
type TestAuthenticator struct {
	mu          sync.Mutex
	users       map[string]TestUser
	restored    string
	failRefresh bool
	latency     time.Duration
	logger      hclog.Logger
	calls       []string
}

var _ Authenticator = (*TestAuthenticator)(nil)

// NewTestAuthenticator creates a TestAuthenticator.
//
// Supported options: WithTestUser, WithTestRestoredSession,
// WithTestRefreshFailure, WithTestLatency, WithLogger
func NewTestAuthenticator(opt ...Option) *TestAuthenticator {
	opts := getTestOpts(opt...)
	users := make(map[string]TestUser, len(opts.withUsers))
	for k, v := range opts.withUsers {
		users[k] = v
	}
	return &TestAuthenticator{
		users:       users,
		restored:    opts.withRestoredUser,
		failRefresh: opts.withRefreshFailure,
		latency:     opts.withLatency,
		logger:      opts.withLogger,
	}
}

// Handle returns the startup handle.  When WithTestRestoredSession was used,
// the handle carries that user's session, so the first Refresh logs them in.
func (a *TestAuthenticator) Handle() Handle {
	if a.restored == "" {
		return testHandle{}
	}
	return testHandle{username: a.restored, sessionID: a.newSessionID()}
}

// Calls returns the request methods called so far, in order.
func (a *TestAuthenticator) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

// SetUser adds or replaces a user.
func (a *TestAuthenticator) SetUser(username string, u TestUser) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.users[username] = u
}

// User returns a user.
func (a *TestAuthenticator) User(username string) (TestUser, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[username]
	return u, ok
}

// Login implements Authenticator.
func (a *TestAuthenticator) Login(c Credentials) Effect {
	a.record("login")
	return Emit(TestLoginRequested{Credentials: c})
}

// RespondNewPassword implements Authenticator.
func (a *TestAuthenticator) RespondNewPassword(newPassword Secret) Effect {
	a.record("new-password")
	return Emit(TestNewPasswordRequested{Password: newPassword})
}

// Refresh implements Authenticator.
func (a *TestAuthenticator) Refresh() Effect {
	a.record("refresh")
	return Emit(TestRefreshRequested{})
}

// Logout implements Authenticator.
func (a *TestAuthenticator) Logout() Effect {
	a.record("logout")
	return Emit(TestLogoutRequested{})
}

// Unauthed implements Authenticator.
func (a *TestAuthenticator) Unauthed() Effect {
	a.record("unauthed")
	return Emit(TestUnauthedRequested{})
}

// Credentials implements Authenticator.
func (a *TestAuthenticator) Credentials(h Handle) (CredentialBundle, bool) {
	th, ok := h.(testHandle)
	if !ok || th.sessionID == "" {
		return nil, false
	}
	u, _ := a.User(th.username)
	return TestCredentialBundle{Subject: subjectOf(th.username, u), SessionID: th.sessionID}, true
}

// Update implements Authenticator.
func (a *TestAuthenticator) Update(msg Message, h Handle) Result {
	const op = "session.(TestAuthenticator).Update"
	cur, _ := h.(testHandle)
	switch m := msg.(type) {
	case TestLoginRequested:
		return Result{Handle: cur, Effects: []Effect{a.login(m.Credentials)}}

	case TestNewPasswordRequested:
		if cur.challenge == "" {
			a.logger.Error("new password rejected", "op", op, "error", ErrNoChallenge)
			return Result{Handle: cur, Status: Report(Failed())}
		}
		return Result{Handle: cur, Effects: []Effect{a.newPassword(cur.challenge, m.Password)}}

	case TestRefreshRequested:
		if cur.sessionID == "" {
			return Result{Handle: testHandle{}, Status: Report(LoggedOut())}
		}
		return Result{Handle: cur, Effects: []Effect{a.refresh(cur)}}

	case TestLogoutRequested, TestUnauthedRequested:
		return Result{Handle: testHandle{}, Status: Report(LoggedOut())}

	case testCompleted:
		if m.err != nil {
			a.logger.Error("authentication failed", "op", op, "error", m.err)
		}
		return Result{Handle: m.handle, Status: Report(m.status)}

	default:
		a.logger.Warn("ignoring unknown message", "op", op, "message", fmt.Sprintf("%T", msg))
		return Result{Handle: cur}
	}
}

func (a *TestAuthenticator) login(c Credentials) Effect {
	return func(ctx context.Context) Event {
		if !a.wait(ctx) {
			return nil
		}
		u, ok := a.User(c.Username)
		if !ok || u.Password != c.Password {
			return AuthEvent{Msg: testCompleted{status: Failed(), err: fmt.Errorf("%q: %w", c.Username, ErrLoginFailed)}}
		}
		if u.RequireNewPassword {
			return AuthEvent{Msg: testCompleted{
				handle: testHandle{challenge: c.Username},
				status: Challenged(ChallengeNewPasswordRequired),
			}}
		}
		return AuthEvent{Msg: a.loggedIn(c.Username, u)}
	}
}

func (a *TestAuthenticator) newPassword(username string, p Secret) Effect {
	return func(ctx context.Context) Event {
		if !a.wait(ctx) {
			return nil
		}
		a.mu.Lock()
		u, ok := a.users[username]
		if ok {
			u.Password = p
			u.RequireNewPassword = false
			a.users[username] = u
		}
		a.mu.Unlock()
		if !ok {
			return AuthEvent{Msg: testCompleted{status: Failed(), err: fmt.Errorf("%q: %w", username, ErrLoginFailed)}}
		}
		return AuthEvent{Msg: a.loggedIn(username, u)}
	}
}

func (a *TestAuthenticator) refresh(h testHandle) Effect {
	return func(ctx context.Context) Event {
		if !a.wait(ctx) {
			return nil
		}
		a.mu.Lock()
		fail := a.failRefresh
		a.mu.Unlock()
		u, ok := a.User(h.username)
		if fail || !ok {
			return AuthEvent{Msg: testCompleted{status: Failed(), err: fmt.Errorf("%q: %w", h.username, ErrRefreshFailed)}}
		}
		return AuthEvent{Msg: a.loggedIn(h.username, u)}
	}
}

func (a *TestAuthenticator) loggedIn(username string, u TestUser) testCompleted {
	return testCompleted{
		handle: testHandle{username: username, sessionID: a.newSessionID()},
		status: LoggedIn(subjectOf(username, u), u.Scopes),
	}
}

func (a *TestAuthenticator) newSessionID() string {
	sid, err := id.New("ts")
	if err != nil {
		// a session id is only used for display, a fixed one is fine
		return "ts_session"
	}
	return sid
}

// wait simulates latency and reports false when ctx is done first.
func (a *TestAuthenticator) wait(ctx context.Context) bool {
	if a.latency <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(a.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (a *TestAuthenticator) record(call string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, call)
}

func subjectOf(username string, u TestUser) string {
	if u.Subject != "" {
		return u.Subject
	}
	return username
}

// testOptions is the set of TestAuthenticator options
type testOptions struct {
	withUsers          map[string]TestUser
	withRestoredUser   string
	withRefreshFailure bool
	withLatency        time.Duration
	withLogger         hclog.Logger
}

func getTestOpts(opt ...Option) testOptions {
	opts := testOptions{
		withUsers:  map[string]TestUser{},
		withLogger: hclog.NewNullLogger(),
	}
	ApplyOpts(&opts, opt...)
	return opts
}

// WithTestUser adds a user to a TestAuthenticator
func WithTestUser(username string, u TestUser) Option {
	return func(o interface{}) {
		if v, ok := o.(*testOptions); ok {
			v.withUsers[username] = u
		}
	}
}

// WithTestRestoredSession starts a TestAuthenticator with a stored session
// for username, which the first Refresh restores.
func WithTestRestoredSession(username string) Option {
	return func(o interface{}) {
		if v, ok := o.(*testOptions); ok {
			v.withRestoredUser = username
		}
	}
}

// WithTestRefreshFailure makes every refresh of an existing session fail.
func WithTestRefreshFailure() Option {
	return func(o interface{}) {
		if v, ok := o.(*testOptions); ok {
			v.withRefreshFailure = true
		}
	}
}

// WithTestLatency delays every TestAuthenticator effect by d.
func WithTestLatency(d time.Duration) Option {
	return func(o interface{}) {
		if v, ok := o.(*testOptions); ok {
			v.withLatency = d
		}
	}
}
