// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package oidc is a session.Authenticator for a generic OIDC provider.  Users log
in with the OAuth 2.0 resource owner password grant, sessions are refreshed
with the refresh grant and every id_token is verified against the provider's
published keys.  The provider is found with OIDC discovery when the
Authenticator is created.

The password grant has no challenges, so answering a new password challenge
always fails.  Logging out revokes the refresh token when the provider
advertises a revocation_endpoint.

TestProvider is an in-process provider for tests and demos:

	tp := oidc.StartTestProvider(t)
	tp.SetClientCreds("test-client", "test-secret")
	tp.SetUser("alice", oidc.TestUser{Password: "fido"})

	a, h, err := oidc.New(ctx, &oidc.Config{
		Issuer:       tp.Addr(),
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		ProviderCA:   tp.CACert(),
	})
*/
package oidc
