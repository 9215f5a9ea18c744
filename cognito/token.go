// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cognito

import (
	"context"
	"fmt"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// Cognito token_use claim values.
const (
	tokenUseID     = "id"
	tokenUseAccess = "access"
)

type idClaims struct {
	Subject  string `json:"sub"`
	Username string `json:"cognito:username"`
	TokenUse string `json:"token_use"`
}

type accessClaims struct {
	Subject  string `json:"sub"`
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
	TokenUse string `json:"token_use"`
}

// scopes returns the space separated scope claim as a list.
func (c accessClaims) scopes() []string {
	return strings.Fields(c.Scope)
}

// tokenVerifier checks the tokens of an authentication result.  Without a
// key set the claims are read but not verified.
type tokenVerifier struct {
	clientID string
	id       *gooidc.IDTokenVerifier
	access   *gooidc.IDTokenVerifier
}

func newTokenVerifier(issuer, clientID string, ks gooidc.KeySet, now func() time.Time) *tokenVerifier {
	v := &tokenVerifier{clientID: clientID}
	if ks == nil {
		return v
	}
	v.id = gooidc.NewVerifier(issuer, ks, &gooidc.Config{
		ClientID:             clientID,
		SupportedSigningAlgs: []string{gooidc.RS256},
		Now:                  now,
	})
	// access tokens have no aud, their client_id is checked instead
	v.access = gooidc.NewVerifier(issuer, ks, &gooidc.Config{
		SkipClientIDCheck:    true,
		SupportedSigningAlgs: []string{gooidc.RS256},
		Now:                  now,
	})
	return v
}

func (v *tokenVerifier) verifies() bool {
	return v.id != nil
}

// identity returns the claims of a matching id and access token pair.
func (v *tokenVerifier) identity(ctx context.Context, idToken, accessToken string) (idClaims, accessClaims, error) {
	const op = "cognito.(tokenVerifier).identity"
	var id idClaims
	if err := v.claims(ctx, v.id, idToken, &id); err != nil {
		return idClaims{}, accessClaims{}, fmt.Errorf("%s: id token: %w: %w", op, ErrTokenVerification, err)
	}
	if id.TokenUse != tokenUseID {
		return idClaims{}, accessClaims{}, fmt.Errorf("%s: id token has token_use %q: %w", op, id.TokenUse, ErrTokenVerification)
	}
	var access accessClaims
	if err := v.claims(ctx, v.access, accessToken, &access); err != nil {
		return idClaims{}, accessClaims{}, fmt.Errorf("%s: access token: %w: %w", op, ErrTokenVerification, err)
	}
	switch {
	case access.TokenUse != tokenUseAccess:
		return idClaims{}, accessClaims{}, fmt.Errorf("%s: access token has token_use %q: %w", op, access.TokenUse, ErrTokenVerification)
	case access.ClientID != v.clientID:
		return idClaims{}, accessClaims{}, fmt.Errorf("%s: access token issued to client %q: %w", op, access.ClientID, ErrTokenVerification)
	case access.Subject != id.Subject:
		return idClaims{}, accessClaims{}, fmt.Errorf("%s: id and access token subjects differ: %w", op, ErrTokenVerification)
	}
	return id, access, nil
}

func (v *tokenVerifier) claims(ctx context.Context, verifier *gooidc.IDTokenVerifier, raw string, out interface{}) error {
	if raw == "" {
		return fmt.Errorf("token is empty: %w", ErrInvalidParameter)
	}
	if verifier == nil {
		tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.RS256})
		if err != nil {
			return err
		}
		return tok.UnsafeClaimsWithoutVerification(out)
	}
	tok, err := verifier.Verify(ctx, raw)
	if err != nil {
		return err
	}
	return tok.Claims(out)
}
