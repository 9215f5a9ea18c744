// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import "errors"

var (
	// ErrNilParameter is a nil parameter error
	ErrNilParameter = errors.New("nil parameter")

	// ErrLoginFailed is reported by the TestAuthenticator when credentials
	// don't match.
	ErrLoginFailed = errors.New("login failed")

	// ErrRefreshFailed is reported by the TestAuthenticator when a refresh is
	// rejected.
	ErrRefreshFailed = errors.New("refresh failed")

	// ErrNoChallenge is reported when a new password is submitted without a
	// pending challenge.
	ErrNoChallenge = errors.New("no pending challenge")
)
