// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cognito

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	idptypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/capsession/oidc"
	sdkhttp "github.com/hashicorp/capsession/sdk/http"
	"github.com/hashicorp/capsession/session"
	"github.com/hashicorp/go-hclog"
)

// CredentialsSource is the Source of the aws.Credentials bundle.
const CredentialsSource = "CognitoIdentity"

// Authenticator messages.  Requests are emitted by the request methods and
// turned into effects by Update; completed and exchanged carry an effect's
// result.
type (
	loginRequested       struct{ credentials session.Credentials }
	newPasswordRequested struct{ password session.Secret }
	refreshRequested     struct{}
	logoutRequested      struct{}
	unauthedRequested    struct{}

	completed struct {
		handle handle
		status session.Status
		err    error
	}

	// exchanged is the result of the identity pool exchange for the session
	// holding idToken.
	exchanged struct {
		idToken     oidc.IDToken
		identityID  string
		credentials aws.Credentials
		err         error
	}
)

// handle is the Authenticator's session.Handle.  The zero value has no
// session.
type handle struct {
	// username is the cognito:username, which SECRET_HASH is computed with
	username         string
	challengeSession string

	accessToken  oidc.AccessToken
	idToken      oidc.IDToken
	refreshToken oidc.RefreshToken
	expiry       time.Time
	subject      string
	scopes       []string

	identityID  string
	credentials *aws.Credentials
}

// String describes the handle without any secrets.
func (h handle) String() string {
	switch {
	case h.challengeSession != "":
		return fmt.Sprintf("cognito session: challenged username=%s", h.username)
	case h.subject == "":
		return "cognito session: none"
	default:
		return fmt.Sprintf("cognito session: subject=%s expiry=%s credentials=%t", h.subject, h.expiry.Format(time.RFC3339), h.credentials != nil)
	}
}

// authOutput is what InitiateAuth and RespondToAuthChallenge have in common.
type authOutput struct {
	result    *idptypes.AuthenticationResultType
	challenge idptypes.ChallengeNameType
	session   *string
	params    map[string]string
}

// Authenticator logs users in to a Cognito user pool.
type Authenticator struct {
	config   Config
	idp      IdentityProviderAPI
	identity IdentityAPI
	verifier *tokenVerifier
	logger   hclog.Logger
	now      func() time.Time
}

var _ session.Authenticator = (*Authenticator)(nil)

// New creates an Authenticator and returns it with its startup handle, which
// has no session.  No requests are made.
//
// Supported options: WithLogger, WithNow, WithIdentityProviderAPI,
// WithIdentityAPI, WithKeySet
func New(ctx context.Context, c *Config, opt ...Option) (*Authenticator, session.Handle, error) {
	const op = "cognito.New"
	if err := c.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}
	opts := getOpts(opt...)
	client, err := c.HTTPClient()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	a := &Authenticator{
		config: *c,
		idp:    opts.withIdentityProviderAPI,
		logger: opts.withLogger,
		now:    opts.withNow,
	}
	if a.idp == nil {
		a.idp = newIdentityProviderAPI(c, client)
	}
	if c.IdentityMapping != nil {
		a.identity = opts.withIdentityAPI
		if a.identity == nil {
			a.identity = newIdentityAPI(c, client)
		}
	}
	ks := opts.withKeySet
	if ks == nil && c.userPoolID() != "" {
		// the key set outlives ctx
		ks = gooidc.NewRemoteKeySet(sdkhttp.ClientContext(context.WithoutCancel(ctx), client), c.Issuer()+"/.well-known/jwks.json")
	}
	a.verifier = newTokenVerifier(c.Issuer(), c.ClientID, ks, opts.withNow)
	if !a.verifier.verifies() {
		a.logger.Warn("no user pool id configured, tokens will not be verified", "op", op)
	}
	return a, handle{}, nil
}

// Login implements session.Authenticator.
func (a *Authenticator) Login(c session.Credentials) session.Effect {
	return session.Emit(loginRequested{credentials: c})
}

// RespondNewPassword implements session.Authenticator.
func (a *Authenticator) RespondNewPassword(newPassword session.Secret) session.Effect {
	return session.Emit(newPasswordRequested{password: newPassword})
}

// Refresh implements session.Authenticator.
func (a *Authenticator) Refresh() session.Effect {
	return session.Emit(refreshRequested{})
}

// Logout implements session.Authenticator.
func (a *Authenticator) Logout() session.Effect {
	return session.Emit(logoutRequested{})
}

// Unauthed implements session.Authenticator.
func (a *Authenticator) Unauthed() session.Effect {
	return session.Emit(unauthedRequested{})
}

// Credentials implements session.Authenticator.  The bundle is the
// aws.Credentials from the identity pool, until they expire.
func (a *Authenticator) Credentials(h session.Handle) (session.CredentialBundle, bool) {
	cur, ok := h.(handle)
	if !ok || cur.credentials == nil {
		return nil, false
	}
	if cur.credentials.CanExpire && !a.now().Before(cur.credentials.Expires) {
		return nil, false
	}
	return *cur.credentials, true
}

// Update implements session.Authenticator.
func (a *Authenticator) Update(msg session.Message, h session.Handle) session.Result {
	const op = "cognito.(Authenticator).Update"
	cur, _ := h.(handle)
	switch m := msg.(type) {
	case loginRequested:
		return session.Result{Handle: cur, Effects: []session.Effect{a.login(m.credentials)}}

	case newPasswordRequested:
		if cur.challengeSession == "" {
			a.logError("unable to answer challenge", op, fmt.Errorf("%s: %w", op, ErrNoChallenge))
			return session.Result{Handle: cur, Status: session.Report(session.Failed())}
		}
		return session.Result{Handle: cur, Effects: []session.Effect{a.respond(cur, m.password)}}

	case refreshRequested:
		if cur.refreshToken == "" {
			return session.Result{Handle: handle{}, Status: session.Report(session.LoggedOut())}
		}
		return session.Result{Handle: cur, Effects: []session.Effect{a.refresh(cur)}}

	case logoutRequested:
		r := session.Result{Handle: handle{}, Status: session.Report(session.LoggedOut())}
		if cur.accessToken != "" {
			r.Effects = []session.Effect{a.signOut(cur.accessToken)}
		}
		return r

	case unauthedRequested:
		return session.Result{Handle: handle{}, Status: session.Report(session.LoggedOut())}

	case completed:
		if m.err != nil {
			a.logError("authentication failed", op, m.err)
		} else {
			a.logger.Debug("authenticated", "op", op, "session", m.handle)
		}
		r := session.Result{Handle: m.handle, Status: session.Report(m.status)}
		if m.status.Kind == session.StatusLoggedIn && a.identity != nil {
			r.Effects = []session.Effect{a.exchange(m.handle)}
		}
		return r

	case exchanged:
		if cur.idToken == "" || cur.idToken != m.idToken {
			a.logger.Debug("ignoring credentials of a replaced session", "op", op)
			return session.Result{Handle: cur}
		}
		if m.err != nil {
			a.logError("credential exchange failed", op, m.err)
			return session.Result{Handle: cur}
		}
		creds := m.credentials
		cur.identityID = m.identityID
		cur.credentials = &creds
		a.logger.Debug("credentials exchanged", "op", op, "identity_id", m.identityID, "expires", creds.Expires)
		return session.Result{Handle: cur}

	default:
		a.logger.Warn("ignoring unknown message", "op", op, "message", fmt.Sprintf("%T", msg))
		return session.Result{Handle: cur}
	}
}

func (a *Authenticator) login(c session.Credentials) session.Effect {
	return func(ctx context.Context) session.Event {
		const op = "cognito.(Authenticator).login"
		params := map[string]string{
			"USERNAME": c.Username,
			"PASSWORD": string(c.Password),
		}
		a.addSecretHash(params, c.Username)
		out, err := a.idp.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
			AuthFlow:       idptypes.AuthFlowTypeUserPasswordAuth,
			ClientId:       aws.String(a.config.ClientID),
			AuthParameters: params,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return failed(fmt.Errorf("%s: %q: %w: %w", op, c.Username, ErrLoginFailed, err))
		}
		return a.outcome(ctx, authOutput{
			result:    out.AuthenticationResult,
			challenge: out.ChallengeName,
			session:   out.Session,
			params:    out.ChallengeParameters,
		}, handle{username: c.Username}, ErrLoginFailed)
	}
}

func (a *Authenticator) respond(h handle, newPassword session.Secret) session.Effect {
	return func(ctx context.Context) session.Event {
		const op = "cognito.(Authenticator).respond"
		params := map[string]string{
			"USERNAME":     h.username,
			"NEW_PASSWORD": string(newPassword),
		}
		a.addSecretHash(params, h.username)
		out, err := a.idp.RespondToAuthChallenge(ctx, &cognitoidentityprovider.RespondToAuthChallengeInput{
			ChallengeName:      idptypes.ChallengeNameTypeNewPasswordRequired,
			ClientId:           aws.String(a.config.ClientID),
			Session:            aws.String(h.challengeSession),
			ChallengeResponses: params,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return failed(fmt.Errorf("%s: %q: %w: %w", op, h.username, ErrChallengeFailed, err))
		}
		return a.outcome(ctx, authOutput{
			result:    out.AuthenticationResult,
			challenge: out.ChallengeName,
			session:   out.Session,
			params:    out.ChallengeParameters,
		}, handle{username: h.username}, ErrChallengeFailed)
	}
}

func (a *Authenticator) refresh(h handle) session.Effect {
	return func(ctx context.Context) session.Event {
		const op = "cognito.(Authenticator).refresh"
		params := map[string]string{
			"REFRESH_TOKEN": string(h.refreshToken),
		}
		a.addSecretHash(params, h.username)
		out, err := a.idp.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
			AuthFlow:       idptypes.AuthFlowTypeRefreshTokenAuth,
			ClientId:       aws.String(a.config.ClientID),
			AuthParameters: params,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return failed(fmt.Errorf("%s: %w: %w", op, ErrRefreshFailed, err))
		}
		return a.outcome(ctx, authOutput{
			result:    out.AuthenticationResult,
			challenge: out.ChallengeName,
			session:   out.Session,
			params:    out.ChallengeParameters,
		}, h, ErrRefreshFailed)
	}
}

// outcome turns an auth response into a completed message.  prev carries the
// username and, for a refresh, the session being refreshed.
func (a *Authenticator) outcome(ctx context.Context, o authOutput, prev handle, failure error) session.Event {
	const op = "cognito.(Authenticator).outcome"
	switch o.challenge {
	case "":
	case idptypes.ChallengeNameTypeNewPasswordRequired:
		if aws.ToString(o.session) == "" {
			return failed(fmt.Errorf("%s: challenge without a session: %w", op, failure))
		}
		challenged := handle{username: prev.username, challengeSession: aws.ToString(o.session)}
		if id := o.params["USER_ID_FOR_SRP"]; id != "" {
			challenged.username = id
		}
		return session.AuthEvent{Msg: completed{
			handle: challenged,
			status: session.Challenged(session.ChallengeNewPasswordRequired),
		}}
	default:
		return failed(fmt.Errorf("%s: %q: %w: %w", op, o.challenge, failure, ErrUnsupportedChallenge))
	}
	if o.result == nil {
		return failed(fmt.Errorf("%s: %w: %w", op, failure, ErrMissingResult))
	}
	next, err := a.newHandle(ctx, o.result, prev)
	if err != nil {
		return failed(fmt.Errorf("%s: %w: %w", op, failure, err))
	}
	return session.AuthEvent{Msg: completed{
		handle: next,
		status: session.LoggedIn(next.subject, next.scopes),
	}}
}

// newHandle builds the handle for an authentication result.  A refresh result
// has no refresh token, so prev's is kept.
func (a *Authenticator) newHandle(ctx context.Context, r *idptypes.AuthenticationResultType, prev handle) (handle, error) {
	const op = "cognito.(Authenticator).newHandle"
	id, access, err := a.verifier.identity(ctx, aws.ToString(r.IdToken), aws.ToString(r.AccessToken))
	if err != nil {
		return handle{}, fmt.Errorf("%s: %w", op, err)
	}
	if prev.subject != "" && id.Subject != prev.subject {
		return handle{}, fmt.Errorf("%s: subject changed from %q to %q: %w", op, prev.subject, id.Subject, ErrTokenVerification)
	}
	next := handle{
		username:     id.Username,
		accessToken:  oidc.AccessToken(aws.ToString(r.AccessToken)),
		idToken:      oidc.IDToken(aws.ToString(r.IdToken)),
		refreshToken: oidc.RefreshToken(aws.ToString(r.RefreshToken)),
		subject:      id.Subject,
		scopes:       access.scopes(),
	}
	if next.username == "" {
		next.username = prev.username
	}
	if next.refreshToken == "" {
		next.refreshToken = prev.refreshToken
	}
	if r.ExpiresIn > 0 {
		next.expiry = a.now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return next, nil
}

// signOut is a best effort GlobalSignOut.  The session is already gone, so it
// yields no event.
func (a *Authenticator) signOut(accessToken oidc.AccessToken) session.Effect {
	return func(ctx context.Context) session.Event {
		const op = "cognito.(Authenticator).signOut"
		_, err := a.idp.GlobalSignOut(ctx, &cognitoidentityprovider.GlobalSignOutInput{
			AccessToken: aws.String(string(accessToken)),
		})
		if err != nil {
			a.logError("unable to sign out", op, fmt.Errorf("%s: %w: %w", op, ErrSignOutFailed, err))
		}
		return nil
	}
}

// exchange trades the session's id token for identity pool credentials.
func (a *Authenticator) exchange(h handle) session.Effect {
	return func(ctx context.Context) session.Event {
		const op = "cognito.(Authenticator).exchange"
		m := a.config.IdentityMapping
		if m == nil || a.identity == nil {
			return session.AuthEvent{Msg: exchanged{idToken: h.idToken, err: fmt.Errorf("%s: %w", op, ErrIdentityPoolMisconfig)}}
		}
		logins := map[string]string{a.config.ProviderName(): string(h.idToken)}
		in := &cognitoidentity.GetIdInput{
			IdentityPoolId: aws.String(m.IdentityPoolID),
			Logins:         logins,
		}
		if m.AccountID != "" {
			in.AccountId = aws.String(m.AccountID)
		}
		idOut, err := a.identity.GetId(ctx, in)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return session.AuthEvent{Msg: exchanged{idToken: h.idToken, err: fmt.Errorf("%s: get id: %w: %w", op, ErrCredentialExchange, err)}}
		}
		out, err := a.identity.GetCredentialsForIdentity(ctx, &cognitoidentity.GetCredentialsForIdentityInput{
			IdentityId: idOut.IdentityId,
			Logins:     logins,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return session.AuthEvent{Msg: exchanged{idToken: h.idToken, err: fmt.Errorf("%s: get credentials: %w: %w", op, ErrCredentialExchange, err)}}
		}
		c := out.Credentials
		if c == nil {
			return session.AuthEvent{Msg: exchanged{idToken: h.idToken, err: fmt.Errorf("%s: no credentials returned: %w", op, ErrCredentialExchange)}}
		}
		return session.AuthEvent{Msg: exchanged{
			idToken:    h.idToken,
			identityID: aws.ToString(idOut.IdentityId),
			credentials: aws.Credentials{
				AccessKeyID:     aws.ToString(c.AccessKeyId),
				SecretAccessKey: aws.ToString(c.SecretKey),
				SessionToken:    aws.ToString(c.SessionToken),
				Source:          CredentialsSource,
				CanExpire:       c.Expiration != nil,
				Expires:         aws.ToTime(c.Expiration),
			},
		}}
	}
}

func (a *Authenticator) addSecretHash(params map[string]string, username string) {
	if h := a.config.secretHash(username); h != "" {
		params["SECRET_HASH"] = h
	}
}

// logError logs err with the service's error code when there is one.
func (a *Authenticator) logError(msg, op string, err error) {
	args := []interface{}{"op", op, "error", err}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		args = append(args, "code", apiErr.ErrorCode())
	}
	a.logger.Error(msg, args...)
}

func failed(err error) session.Event {
	return session.AuthEvent{Msg: completed{status: session.Failed(), err: err}}
}
