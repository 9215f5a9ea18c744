// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package cognito is a session.Authenticator for an Amazon Cognito user pool
app client.

Users log in with the USER_PASSWORD_AUTH flow.  A NEW_PASSWORD_REQUIRED
challenge is reported as a challenged status and answered with
RespondToAuthChallenge.  Sessions are refreshed with REFRESH_TOKEN_AUTH and
logging out calls GlobalSignOut.  When the app client has a secret, every
request carries the SECRET_HASH Cognito requires.

Tokens are verified against the user pool's published keys whenever the user
pool id is known.  With an IdentityMapping, every new session is exchanged for
AWS credentials through the Cognito identity pool, and those credentials are
the session's credential bundle.

All protocol work is done by the AWS SDK.  Tests replace both SDK clients
with a TestAPI:

	c := &cognito.Config{ClientID: "client", Region: "us-east-1", UserPoolID: "us-east-1_Example"}
	api := cognito.NewTestAPI(t, c)
	api.SetUser("alice", cognito.TestUser{Password: "correct horse"})

	a, h, err := cognito.New(ctx, c,
		cognito.WithIdentityProviderAPI(api),
		cognito.WithKeySet(api.KeySet()),
	)
*/
package cognito
