// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
)

var (
	ErrInvalidParameter          = errors.New("invalid parameter")
	ErrNilParameter              = errors.New("nil parameter")
	ErrInvalidCACert             = errors.New("invalid CA certificate")
	ErrInvalidIssuer             = errors.New("invalid issuer")
	ErrUnsupportedAlg            = errors.New("unsupported signing algorithm")
	ErrMissingIdToken            = errors.New("id_token is missing")
	ErrIdTokenVerificationFailed = errors.New("id_token verification failed")
	ErrLoginFailed               = errors.New("login failed")
	ErrRefreshFailed             = errors.New("refresh failed")
	ErrRevocationFailed          = errors.New("token revocation failed")
	ErrNotSupported              = errors.New("not supported")
)
