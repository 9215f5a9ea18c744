// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecret_redacted(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	s := Secret("super secret password")
	assert.Equal(RedactedSecret, s.String())
	assert.Equal(RedactedSecret, fmt.Sprintf("%v", s))
	assert.Equal(RedactedSecret, fmt.Sprintf("%#v", s))
	got, err := json.Marshal(s)
	require.NoError(err)
	assert.Equal(fmt.Sprintf("%q", RedactedSecret), string(got))

	c := Credentials{Username: "bob", Password: s}
	assert.NotContains(fmt.Sprintf("%+v", c), "super secret")
}

func TestNewState(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	s := NewState("handle")
	assert.Equal("handle", s.Handle)
	assert.Equal(LoggedOut(), s.Status)
	assert.Empty(s.Username)
	assert.Empty(s.Password)
	assert.Empty(s.PasswordVerify)
}

func TestState_Clear(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	s := State{
		Handle:         "handle",
		Status:         LoggedIn("alice", []string{"read"}),
		Username:       "alice",
		Password:       "fido",
		PasswordVerify: "fido",
	}
	got := s.Clear()
	assert.Empty(got.Username)
	assert.Empty(got.Password)
	assert.Empty(got.PasswordVerify)
	assert.Equal(s.Status, got.Status)
	assert.Equal(s.Handle, got.Handle)

	// the original is a value and isn't touched
	assert.Equal("alice", s.Username)
}
