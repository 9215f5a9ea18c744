// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cognito

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
)

// IdentityProviderAPI is the part of the cognito-idp API the Authenticator
// uses.  *cognitoidentityprovider.Client implements it.
type IdentityProviderAPI interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	RespondToAuthChallenge(ctx context.Context, params *cognitoidentityprovider.RespondToAuthChallengeInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.RespondToAuthChallengeOutput, error)
	GlobalSignOut(ctx context.Context, params *cognitoidentityprovider.GlobalSignOutInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GlobalSignOutOutput, error)
}

// IdentityAPI is the part of the cognito-identity API the Authenticator
// uses.  *cognitoidentity.Client implements it.
type IdentityAPI interface {
	GetId(ctx context.Context, params *cognitoidentity.GetIdInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetIdOutput, error)
	GetCredentialsForIdentity(ctx context.Context, params *cognitoidentity.GetCredentialsForIdentityInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetCredentialsForIdentityOutput, error)
}

var (
	_ IdentityProviderAPI = (*cognitoidentityprovider.Client)(nil)
	_ IdentityAPI         = (*cognitoidentity.Client)(nil)
)

// newIdentityProviderAPI creates the cognito-idp SDK client.  The operations
// used are unauthenticated, so requests aren't signed.
func newIdentityProviderAPI(c *Config, client *http.Client) *cognitoidentityprovider.Client {
	o := cognitoidentityprovider.Options{
		Region:      c.Region,
		Credentials: aws.AnonymousCredentials{},
		HTTPClient:  client,
	}
	if c.Endpoint != "" {
		o.BaseEndpoint = aws.String(c.Endpoint)
	}
	return cognitoidentityprovider.New(o)
}

// newIdentityAPI creates the cognito-identity SDK client.  GetId and
// GetCredentialsForIdentity are unauthenticated, so requests aren't signed.
func newIdentityAPI(c *Config, client *http.Client) *cognitoidentity.Client {
	o := cognitoidentity.Options{
		Region:      c.Region,
		Credentials: aws.AnonymousCredentials{},
		HTTPClient:  client,
	}
	if c.IdentityEndpoint != "" {
		o.BaseEndpoint = aws.String(c.IdentityEndpoint)
	}
	return cognitoidentity.New(o)
}
