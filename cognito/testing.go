// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cognito

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
	idtypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentity/types"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	idptypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/capsession/oidc"
	"github.com/hashicorp/go-uuid"
	"github.com/stretchr/testify/require"
)

const (
	// DefaultTestScope is granted to TestUsers without scopes, like
	// Cognito does for USER_PASSWORD_AUTH.
	DefaultTestScope = "aws.cognito.signin.user.admin"

	// DefaultTestTokenTTL is how long TestAPI tokens are valid.
	DefaultTestTokenTTL = time.Hour

	// DefaultTestMinPasswordLength is the TestAPI's password policy.
	DefaultTestMinPasswordLength = 8

	testKeyID = "test-key"
)

// TestUser is a user of a TestAPI user pool.
type TestUser struct {
	// Password is the user's current password.
	Password string

	// Subject is the user's "sub".  It defaults to a generated uuid.
	Subject string

	// Scopes are granted to the user's access tokens.
	Scopes []string

	// RequireNewPassword makes a successful login answer with the
	// NEW_PASSWORD_REQUIRED challenge, like a user created by an admin.
	RequireNewPassword bool
}

// TestAPI is an in-memory user pool and identity pool which implements
// IdentityProviderAPI and IdentityAPI.  Its tokens are signed with RS256 and
// can be verified with KeySet.  It makes writing tests (and demos) much
// easier.
type TestAPI struct {
	t      oidc.TestingT
	config Config
	key    *rsa.PrivateKey

	mu            sync.Mutex
	users         map[string]TestUser
	sessions      map[string]string
	refreshTokens map[string]string
	accessTokens  map[string]string
	idTokens      map[string]string
	identities    map[string]string
	failures      map[string]error
	calls         []string
	signedOut     []string
}

var (
	_ IdentityProviderAPI = (*TestAPI)(nil)
	_ IdentityAPI         = (*TestAPI)(nil)
)

// NewTestAPI creates a TestAPI for the user pool and identity pool of c.
func NewTestAPI(t oidc.TestingT, c *Config) *TestAPI {
	if v, ok := t.(oidc.HelperT); ok {
		v.Helper()
	}
	require := require.New(t)
	require.NotNil(c)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(err)
	return &TestAPI{
		t:             t,
		config:        *c,
		key:           key,
		users:         map[string]TestUser{},
		sessions:      map[string]string{},
		refreshTokens: map[string]string{},
		accessTokens:  map[string]string{},
		idTokens:      map[string]string{},
		identities:    map[string]string{},
		failures:      map[string]error{},
	}
}

// KeySet returns the key set which verifies the TestAPI's tokens.
func (a *TestAPI) KeySet() gooidc.KeySet {
	return &gooidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&a.key.PublicKey}}
}

// SetUser adds or replaces a user.
func (a *TestAPI) SetUser(username string, u TestUser) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if u.Subject == "" {
		u.Subject = a.newUUID()
	}
	a.users[username] = u
}

// User returns a user.
func (a *TestAPI) User(username string) (TestUser, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[username]
	return u, ok
}

// SetError makes the next call of the named operation, like "GetId", fail
// with err.
func (a *TestAPI) SetError(operation string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[operation] = err
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (a *TestAPI) RevokeRefreshTokens() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshTokens = map[string]string{}
}

// Calls returns the operations called so far, in order.  InitiateAuth calls
// include the auth flow, like "InitiateAuth:USER_PASSWORD_AUTH".
func (a *TestAPI) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

// SignedOut returns the usernames signed out so far.
func (a *TestAPI) SignedOut() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.signedOut...)
}

// InitiateAuth implements IdentityProviderAPI for the USER_PASSWORD_AUTH and
// REFRESH_TOKEN_AUTH flows.
func (a *TestAPI) InitiateAuth(ctx context.Context, in *cognitoidentityprovider.InitiateAuthInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.begin(ctx, "InitiateAuth", "InitiateAuth:"+string(in.AuthFlow)); err != nil {
		return nil, err
	}
	if err := a.checkClient(in.ClientId); err != nil {
		return nil, err
	}
	switch in.AuthFlow {
	case idptypes.AuthFlowTypeUserPasswordAuth:
		username := in.AuthParameters["USERNAME"]
		if err := a.checkSecretHash(in.AuthParameters, username); err != nil {
			return nil, err
		}
		u, ok := a.users[username]
		if !ok {
			return nil, &idptypes.UserNotFoundException{Message: aws.String("User does not exist.")}
		}
		if u.Password != in.AuthParameters["PASSWORD"] {
			return nil, &idptypes.NotAuthorizedException{Message: aws.String("Incorrect username or password.")}
		}
		if u.RequireNewPassword {
			s := a.newUUID()
			a.sessions[s] = username
			return &cognitoidentityprovider.InitiateAuthOutput{
				ChallengeName: idptypes.ChallengeNameTypeNewPasswordRequired,
				Session:       aws.String(s),
				ChallengeParameters: map[string]string{
					"USER_ID_FOR_SRP":    username,
					"requiredAttributes": "[]",
					"userAttributes":     "{}",
				},
			}, nil
		}
		return &cognitoidentityprovider.InitiateAuthOutput{AuthenticationResult: a.issue(username, true)}, nil

	case idptypes.AuthFlowTypeRefreshTokenAuth, idptypes.AuthFlowTypeRefreshToken:
		username, ok := a.refreshTokens[in.AuthParameters["REFRESH_TOKEN"]]
		if !ok {
			return nil, &idptypes.NotAuthorizedException{Message: aws.String("Invalid Refresh Token")}
		}
		if err := a.checkSecretHash(in.AuthParameters, username); err != nil {
			return nil, err
		}
		return &cognitoidentityprovider.InitiateAuthOutput{AuthenticationResult: a.issue(username, false)}, nil

	default:
		return nil, &idptypes.InvalidParameterException{Message: aws.String(fmt.Sprintf("Unsupported auth flow %q", in.AuthFlow))}
	}
}

// RespondToAuthChallenge implements IdentityProviderAPI for the
// NEW_PASSWORD_REQUIRED challenge.
func (a *TestAPI) RespondToAuthChallenge(ctx context.Context, in *cognitoidentityprovider.RespondToAuthChallengeInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.RespondToAuthChallengeOutput, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.begin(ctx, "RespondToAuthChallenge", "RespondToAuthChallenge"); err != nil {
		return nil, err
	}
	if err := a.checkClient(in.ClientId); err != nil {
		return nil, err
	}
	if in.ChallengeName != idptypes.ChallengeNameTypeNewPasswordRequired {
		return nil, &idptypes.InvalidParameterException{Message: aws.String(fmt.Sprintf("Unsupported challenge %q", in.ChallengeName))}
	}
	username, ok := a.sessions[aws.ToString(in.Session)]
	if !ok || in.ChallengeResponses["USERNAME"] != username {
		return nil, &idptypes.NotAuthorizedException{Message: aws.String("Invalid session for the user, session is expired.")}
	}
	if err := a.checkSecretHash(in.ChallengeResponses, username); err != nil {
		return nil, err
	}
	newPassword := in.ChallengeResponses["NEW_PASSWORD"]
	if len(newPassword) < DefaultTestMinPasswordLength {
		return nil, &idptypes.InvalidPasswordException{Message: aws.String("Password does not conform to policy: Password not long enough")}
	}
	delete(a.sessions, aws.ToString(in.Session))
	u := a.users[username]
	u.Password = newPassword
	u.RequireNewPassword = false
	a.users[username] = u
	return &cognitoidentityprovider.RespondToAuthChallengeOutput{AuthenticationResult: a.issue(username, true)}, nil
}

// GlobalSignOut implements IdentityProviderAPI.  Every token of the user is
// invalidated.
func (a *TestAPI) GlobalSignOut(ctx context.Context, in *cognitoidentityprovider.GlobalSignOutInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GlobalSignOutOutput, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.begin(ctx, "GlobalSignOut", "GlobalSignOut"); err != nil {
		return nil, err
	}
	username, ok := a.accessTokens[aws.ToString(in.AccessToken)]
	if !ok {
		return nil, &idptypes.NotAuthorizedException{Message: aws.String("Access Token has been revoked")}
	}
	for t, u := range a.accessTokens {
		if u == username {
			delete(a.accessTokens, t)
		}
	}
	for t, u := range a.refreshTokens {
		if u == username {
			delete(a.refreshTokens, t)
		}
	}
	a.signedOut = append(a.signedOut, username)
	return &cognitoidentityprovider.GlobalSignOutOutput{}, nil
}

// GetId implements IdentityAPI.
func (a *TestAPI) GetId(ctx context.Context, in *cognitoidentity.GetIdInput, _ ...func(*cognitoidentity.Options)) (*cognitoidentity.GetIdOutput, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.begin(ctx, "GetId", "GetId"); err != nil {
		return nil, err
	}
	if err := a.checkIdentityPool(aws.ToString(in.IdentityPoolId)); err != nil {
		return nil, err
	}
	sub, err := a.checkLogins(in.Logins)
	if err != nil {
		return nil, err
	}
	identityID, ok := a.identities[sub]
	if !ok {
		identityID = a.config.Region + ":" + a.newUUID()
		a.identities[sub] = identityID
	}
	return &cognitoidentity.GetIdOutput{IdentityId: aws.String(identityID)}, nil
}

// GetCredentialsForIdentity implements IdentityAPI.  The credentials are
// random and valid for an hour.
func (a *TestAPI) GetCredentialsForIdentity(ctx context.Context, in *cognitoidentity.GetCredentialsForIdentityInput, _ ...func(*cognitoidentity.Options)) (*cognitoidentity.GetCredentialsForIdentityOutput, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.begin(ctx, "GetCredentialsForIdentity", "GetCredentialsForIdentity"); err != nil {
		return nil, err
	}
	sub, err := a.checkLogins(in.Logins)
	if err != nil {
		return nil, err
	}
	if a.identities[sub] != aws.ToString(in.IdentityId) {
		return nil, &idtypes.NotAuthorizedException{Message: aws.String("Logins don't match identity.")}
	}
	return &cognitoidentity.GetCredentialsForIdentityOutput{
		IdentityId: in.IdentityId,
		Credentials: &idtypes.Credentials{
			AccessKeyId:  aws.String("ASIA" + strings.ToUpper(a.randomHex(8))),
			SecretKey:    aws.String(a.randomHex(20)),
			SessionToken: aws.String(a.randomHex(32)),
			Expiration:   aws.Time(time.Now().Add(time.Hour)),
		},
	}, nil
}

// begin records a call and returns the error it should fail with, if any.
// The caller holds a.mu.
func (a *TestAPI) begin(ctx context.Context, operation, call string) error {
	a.calls = append(a.calls, call)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := a.failures[operation]; ok {
		delete(a.failures, operation)
		return err
	}
	return nil
}

func (a *TestAPI) checkClient(clientID *string) error {
	if aws.ToString(clientID) != a.config.ClientID {
		return &idptypes.ResourceNotFoundException{Message: aws.String("User pool client does not exist.")}
	}
	return nil
}

func (a *TestAPI) checkSecretHash(params map[string]string, username string) error {
	if want := a.config.secretHash(username); want != params["SECRET_HASH"] {
		return &idptypes.NotAuthorizedException{Message: aws.String("Unable to verify secret hash for client " + a.config.ClientID)}
	}
	return nil
}

func (a *TestAPI) checkIdentityPool(identityPoolID string) error {
	if m := a.config.IdentityMapping; m == nil || m.IdentityPoolID != identityPoolID {
		return &idtypes.ResourceNotFoundException{Message: aws.String(fmt.Sprintf("IdentityPool '%s' not found.", identityPoolID))}
	}
	return nil
}

// checkLogins returns the subject of the user pool id token in logins.
func (a *TestAPI) checkLogins(logins map[string]string) (string, error) {
	sub, ok := a.idTokens[logins[a.config.ProviderName()]]
	if !ok {
		return "", &idtypes.NotAuthorizedException{Message: aws.String("Invalid login token.")}
	}
	return sub, nil
}

// issue signs a new set of tokens for username.  The caller holds a.mu.
func (a *TestAPI) issue(username string, withRefreshToken bool) *idptypes.AuthenticationResultType {
	u := a.users[username]
	scopes := u.Scopes
	if len(scopes) == 0 {
		scopes = []string{DefaultTestScope}
	}
	now := time.Now()
	exp := now.Add(DefaultTestTokenTTL)
	accessToken := oidc.TestSignJWT(a.t, a.key, string(oidc.RS256), map[string]interface{}{
		"sub":       u.Subject,
		"iss":       a.config.Issuer(),
		"client_id": a.config.ClientID,
		"token_use": tokenUseAccess,
		"scope":     strings.Join(scopes, " "),
		"username":  username,
		"auth_time": now.Unix(),
		"iat":       now.Unix(),
		"exp":       exp.Unix(),
		"jti":       a.newUUID(),
	}, testKeyID)
	idToken := oidc.TestSignJWT(a.t, a.key, string(oidc.RS256), map[string]interface{}{
		"sub":              u.Subject,
		"iss":              a.config.Issuer(),
		"aud":              a.config.ClientID,
		"token_use":        tokenUseID,
		"cognito:username": username,
		"auth_time":        now.Unix(),
		"iat":              now.Unix(),
		"exp":              exp.Unix(),
		"jti":              a.newUUID(),
	}, testKeyID)
	a.accessTokens[accessToken] = username
	a.idTokens[idToken] = u.Subject

	r := &idptypes.AuthenticationResultType{
		AccessToken: aws.String(accessToken),
		IdToken:     aws.String(idToken),
		ExpiresIn:   int32(DefaultTestTokenTTL / time.Second),
		TokenType:   aws.String("Bearer"),
	}
	if withRefreshToken {
		rt := a.newUUID()
		a.refreshTokens[rt] = username
		r.RefreshToken = aws.String(rt)
	}
	return r
}

func (a *TestAPI) newUUID() string {
	id, err := uuid.GenerateUUID()
	require.NoError(a.t, err)
	return id
}

func (a *TestAPI) randomHex(n int) string {
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(a.t, err)
	return hex.EncodeToString(b)
}
