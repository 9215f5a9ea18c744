// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMode(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Equal(Errored{Message: "bad region"}, NewMode(nil, errors.New("bad region")))
	assert.Equal(Restoring{State: NewState("h")}, NewMode("h", nil))
}

func TestStateOf(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	s := State{Username: "alice"}
	got, ok := StateOf(Ready{State: s})
	assert.True(ok)
	assert.Equal(s, got)
	got, ok = StateOf(Restoring{State: s})
	assert.True(ok)
	assert.Equal(s, got)
	_, ok = StateOf(Errored{Message: "boom"})
	assert.False(ok)
}

func TestDispatcher_UpdateMode_errorIsAbsorbing(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	d, auth := testDispatcher(t)
	m := Mode(Errored{Message: "invalid client id"})
	events := []Event{
		InitialTimeout{}, LogIn{}, RespondWithNewPassword{}, TryAgain{}, LogOut{}, Refresh{},
		UpdateUsername{Value: "a"}, UpdatePassword{Value: "b"}, UpdatePasswordVerification{Value: "c"},
		AuthEvent{Msg: testCompleted{status: LoggedIn("alice", nil)}},
	}
	for _, ev := range events {
		next, effects := d.UpdateMode(m, ev)
		assert.Equal(m, next)
		assert.Empty(effects)
	}
	assert.Empty(auth.Calls())
}

func TestDispatcher_UpdateMode_restoring(t *testing.T) {
	t.Parallel()
	t.Run("field-events-keep-restoring", func(t *testing.T) {
		assert := assert.New(t)
		d, _ := testDispatcher(t)
		m, _ := d.UpdateMode(NewMode(testHandle{}, nil), UpdateUsername{Value: "alice"})
		r, ok := m.(Restoring)
		assert.True(ok)
		assert.Equal("alice", r.State.Username)
	})
	t.Run("request-events-keep-restoring", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		d, _ := testDispatcher(t)
		m, effects := d.UpdateMode(NewMode(testHandle{}, nil), AuthEvent{Msg: TestLoginRequested{}})
		require.Len(effects, 1)
		_, ok := m.(Restoring)
		assert.True(ok)
	})
	t.Run("timeout-makes-ready", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		d, auth := testDispatcher(t)
		m, effects := d.UpdateMode(NewMode(testHandle{}, nil), InitialTimeout{})
		assert.Equal(Ready{State: NewState(testHandle{})}, m)
		require.Len(effects, 1)
		assert.Equal([]string{"refresh"}, auth.Calls())
	})
	t.Run("reported-status-makes-ready", func(t *testing.T) {
		assert := assert.New(t)
		d, _ := testDispatcher(t)
		h := testHandle{username: "alice", sessionID: "ts_1"}
		m, effects := d.UpdateMode(NewMode(testHandle{}, nil), AuthEvent{Msg: testCompleted{handle: h, status: LoggedIn("alice", nil)}})
		assert.Empty(effects)
		r, ok := m.(Ready)
		assert.True(ok)
		assert.Equal(LoggedIn("alice", nil), r.State.Status)
		assert.Equal(h, r.State.Handle)
	})
	t.Run("unknown-mode", func(t *testing.T) {
		assert := assert.New(t)
		d, _ := testDispatcher(t)
		m, effects := d.UpdateMode(nil, LogIn{})
		assert.Nil(m)
		assert.Empty(effects)
	})
}

// testDriveMode processes effects the way the program's event loop does, but
// on the calling goroutine.
func testDriveMode(t *testing.T, d *Dispatcher, m Mode, effects []Effect) Mode {
	t.Helper()
	for len(effects) > 0 {
		e := effects[0]
		effects = effects[1:]
		ev := e(context.Background())
		if ev == nil {
			continue
		}
		var more []Effect
		m, more = d.UpdateMode(m, ev)
		effects = append(effects, more...)
	}
	return m
}

func TestDispatcher_UpdateMode_startupScenario(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	auth := NewTestAuthenticator(
		WithTestUser("alice", TestUser{Password: "fido", Scopes: []string{"read"}}),
		WithTestRestoredSession("alice"),
	)
	d, err := NewDispatcher(auth)
	require.NoError(err)

	m := NewMode(auth.Handle(), nil)
	r, ok := m.(Restoring)
	require.True(ok)
	require.Equal(LoggedOut(), r.State.Status)

	m, effects := d.UpdateMode(m, InitialTimeout{})
	require.Len(effects, 1)
	assert.Equal([]string{"refresh"}, auth.Calls())

	m = testDriveMode(t, d, m, effects)
	ready, ok := m.(Ready)
	require.True(ok)
	assert.Equal(LoggedIn("alice", []string{"read"}), ready.State.Status)
	_, ok = auth.Credentials(ready.State.Handle)
	assert.True(ok)
}

func TestDispatcher_UpdateMode_lateRestore(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	auth := NewTestAuthenticator(WithTestUser("alice", TestUser{Password: "fido"}))
	d, err := NewDispatcher(auth)
	require.NoError(err)

	// the timeout fires first and the user starts typing, then a restore
	// result arrives: last report wins and the form fields survive
	m, _ := d.UpdateMode(NewMode(testHandle{}, nil), InitialTimeout{})
	m, _ = d.UpdateMode(m, UpdateUsername{Value: "alice"})
	h := testHandle{username: "alice", sessionID: "ts_late"}
	m, _ = d.UpdateMode(m, AuthEvent{Msg: testCompleted{handle: h, status: LoggedIn("alice", nil)}})
	ready, ok := m.(Ready)
	require.True(ok)
	assert.Equal(LoggedIn("alice", nil), ready.State.Status)
	assert.Equal("alice", ready.State.Username)

	m, _ = d.UpdateMode(m, AuthEvent{Msg: testCompleted{status: LoggedOut()}})
	ready = m.(Ready)
	assert.Equal(LoggedOut(), ready.State.Status)
}
