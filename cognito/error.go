// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cognito

import "errors"

var (
	ErrInvalidParameter      = errors.New("invalid parameter")
	ErrNilParameter          = errors.New("nil parameter")
	ErrInvalidCACert         = errors.New("invalid CA certificate")
	ErrLoginFailed           = errors.New("login failed")
	ErrRefreshFailed         = errors.New("refresh failed")
	ErrChallengeFailed       = errors.New("challenge response failed")
	ErrNoChallenge           = errors.New("no challenge pending")
	ErrUnsupportedChallenge  = errors.New("unsupported challenge")
	ErrMissingResult         = errors.New("authentication result is missing")
	ErrTokenVerification     = errors.New("token verification failed")
	ErrCredentialExchange    = errors.New("credential exchange failed")
	ErrSignOutFailed         = errors.New("global sign out failed")
	ErrIdentityPoolMisconfig = errors.New("identity pool is not configured")
)
