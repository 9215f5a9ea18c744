// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package program

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/capsession/session"
	"github.com/hashicorp/capsession/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWait = 5 * time.Second
	testTick = 5 * time.Millisecond
)

func testInit(auth *session.TestAuthenticator) InitFunc {
	return func(context.Context) (session.Authenticator, session.Handle, error) {
		return auth, auth.Handle(), nil
	}
}

// testRun is a Program running in the background of a test.
type testRun struct {
	cancel context.CancelFunc
	done   chan error
	once   sync.Once
	err    error
}

// wait returns Run's result.  It may be called any number of times.
func (r *testRun) wait() error {
	r.once.Do(func() {
		select {
		case r.err = <-r.done:
		case <-time.After(testWait):
			r.err = errors.New("Run did not return")
		}
	})
	return r.err
}

// testStart runs p until the test ends.
func testStart(t *testing.T, p *Program) *testRun {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	r := &testRun{cancel: cancel, done: make(chan error, 1)}
	go func() {
		r.done <- p.Run(ctx)
	}()
	t.Cleanup(func() {
		r.cancel()
		_ = r.wait()
	})
	return r
}

// testWaitFor waits until the current frame satisfies cond.
func testWaitFor(t *testing.T, p *Program, cond func(Frame) bool) Frame {
	t.Helper()
	require.Eventually(t, func() bool {
		f, ok := p.Current()
		return ok && cond(f)
	}, testWait, testTick)
	f, _ := p.Current()
	return f
}

func readyWith(kind session.StatusKind) func(Frame) bool {
	return func(f Frame) bool {
		r, ok := f.Mode.(session.Ready)
		return ok && r.State.Status.Kind == kind
	}
}

func TestNew(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		init      InitFunc
		opts      []Option
		wantIsErr error
	}{
		{
			name:      "nil-init",
			wantIsErr: ErrNilParameter,
		},
		{
			name:      "zero-timeout",
			init:      testInit(session.NewTestAuthenticator()),
			opts:      []Option{WithInitialTimeout(0)},
			wantIsErr: ErrInvalidParameter,
		},
		{
			name:      "negative-buffer",
			init:      testInit(session.NewTestAuthenticator()),
			opts:      []Option{WithEventBuffer(-1)},
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "valid",
			init: testInit(session.NewTestAuthenticator()),
			opts: []Option{WithInitialTimeout(time.Second), WithEventBuffer(0), nil},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := New(tt.init, tt.opts...)
			if tt.wantIsErr != nil {
				require.Error(err)
				assert.ErrorIs(err, tt.wantIsErr)
				assert.Nil(got)
				return
			}
			require.NoError(err)
			assert.Equal(time.Second, got.initialTimeout)
		})
	}
}

func TestProgram_Run_initFailure(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	p, err := New(func(context.Context) (session.Authenticator, session.Handle, error) {
		return nil, nil, errors.New("cognito.New: invalid config: client id is empty")
	}, WithInitialTimeout(time.Millisecond))
	require.NoError(err)
	run := testStart(t, p)

	f := testWaitFor(t, p, func(f Frame) bool {
		_, ok := f.Mode.(session.Errored)
		return ok
	})
	assert.Equal(session.Errored{Message: "cognito.New: invalid config: client id is empty"}, f.Mode)
	assert.Equal(view.Column{Children: []view.Node{view.Text{Content: "cognito.New: invalid config: client id is empty"}}}, f.View)

	// nothing moves it out of the error mode, not even the initial timeout
	p.Send(session.LogIn{})
	p.Send(session.InitialTimeout{})
	time.Sleep(20 * time.Millisecond)
	f, _ = p.Current()
	_, ok := f.Mode.(session.Errored)
	assert.True(ok)

	run.cancel()
	assert.ErrorIs(run.wait(), context.Canceled)
	// later callers see the same result
	assert.ErrorIs(run.wait(), context.Canceled)
}

func TestProgram_Run_nilAuthenticator(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	p, err := New(func(context.Context) (session.Authenticator, session.Handle, error) {
		return nil, nil, nil
	})
	require.NoError(err)
	testStart(t, p)
	f := testWaitFor(t, p, func(f Frame) bool {
		_, ok := f.Mode.(session.Errored)
		return ok
	})
	require.Contains(f.Mode.(session.Errored).Message, "authenticator is nil")
}

func TestProgram_Run_restoreAfterTimeout(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	auth := session.NewTestAuthenticator(
		session.WithTestUser("alice", session.TestUser{Password: "fido", Scopes: []string{"read"}}),
		session.WithTestRestoredSession("alice"),
	)
	p, err := New(testInit(auth), WithInitialTimeout(10*time.Millisecond))
	require.NoError(err)

	testStart(t, p)
	f := testWaitFor(t, p, readyWith(session.StatusLoggedIn))
	r := f.Mode.(session.Ready)
	assert.Equal(session.LoggedIn("alice", []string{"read"}), r.State.Status)
	assert.Equal([]string{"refresh"}, auth.Calls())

	var texts []string
	for _, c := range f.View.(view.Column).Children {
		if tx, ok := c.(view.Text); ok {
			texts = append(texts, tx.Content)
		}
	}
	assert.Contains(texts, "Logged In As:")
	assert.Contains(texts, "With Id:alice")
	assert.Contains(texts, "Credentials:present")
}

func TestProgram_Run_restoreBeforeTimeout(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	auth := session.NewTestAuthenticator(
		session.WithTestUser("alice", session.TestUser{Password: "fido"}),
		session.WithTestRestoredSession("alice"),
	)
	p, err := New(testInit(auth), WithInitialTimeout(time.Hour))
	require.NoError(err)
	testStart(t, p)

	f := testWaitFor(t, p, func(f Frame) bool {
		_, ok := f.Mode.(session.Restoring)
		return ok
	})
	require.Equal(view.Column{Children: []view.Node{view.Text{Content: view.RestoringText}}}, f.View)

	p.Send(session.AuthEvent{Msg: session.TestRefreshRequested{}})
	testWaitFor(t, p, readyWith(session.StatusLoggedIn))
}

func TestProgram_Run_interactive(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	auth := session.NewTestAuthenticator(
		session.WithTestUser("bob", session.TestUser{Password: "fido", Scopes: []string{"read"}}),
		session.WithTestLatency(5*time.Millisecond),
	)
	p, err := New(testInit(auth), WithInitialTimeout(time.Millisecond))
	require.NoError(err)
	testStart(t, p)

	// the refresh issued by the timeout finds no session
	testWaitFor(t, p, readyWith(session.StatusLoggedOut))

	p.Send(session.UpdateUsername{Value: "bob"})
	p.Send(session.UpdatePassword{Value: "wrong"})
	p.Send(session.LogIn{})
	f := testWaitFor(t, p, readyWith(session.StatusFailed))
	assert.Equal("bob", f.Mode.(session.Ready).State.Username)

	p.Send(session.TryAgain{})
	f = testWaitFor(t, p, func(f Frame) bool {
		r, ok := f.Mode.(session.Ready)
		return ok && r.State.Status.Kind == session.StatusLoggedOut && r.State.Username == ""
	})
	assert.Empty(f.Mode.(session.Ready).State.Password)

	p.Send(session.UpdateUsername{Value: "bob"})
	p.Send(session.UpdatePassword{Value: "fido"})
	p.Send(session.LogIn{})
	f = testWaitFor(t, p, readyWith(session.StatusLoggedIn))
	assert.Equal("bob", f.Mode.(session.Ready).State.Username)

	p.Send(session.LogOut{})
	f = testWaitFor(t, p, readyWith(session.StatusLoggedOut))
	assert.Empty(f.Mode.(session.Ready).State.Username)

	assert.Equal([]string{"refresh", "login", "unauthed", "login", "logout"}, auth.Calls())
}

func TestProgram_Frames(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	auth := session.NewTestAuthenticator()
	p, err := New(testInit(auth), WithInitialTimeout(time.Hour))
	require.NoError(err)
	testStart(t, p)

	select {
	case f := <-p.Frames():
		_, ok := f.Mode.(session.Restoring)
		require.True(ok)
	case <-time.After(testWait):
		require.Fail("no frame published")
	}
}

func TestProgram_Run_twice(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	p, err := New(testInit(session.NewTestAuthenticator()), WithInitialTimeout(time.Hour))
	require.NoError(err)
	testStart(t, p)
	testWaitFor(t, p, func(Frame) bool { return true })

	err = p.Run(context.Background())
	require.Error(err)
	assert.ErrorIs(err, ErrAlreadyRunning)
}
