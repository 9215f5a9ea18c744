// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	sdkhttp "github.com/hashicorp/capsession/sdk/http"
	"github.com/hashicorp/capsession/session"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-secure-stdlib/strutil"
	"golang.org/x/oauth2"
)

// Authenticator messages.  Requests are emitted by the request methods and
// turned into effects by Update; completed carries an effect's result.
type (
	loginRequested       struct{ credentials session.Credentials }
	newPasswordRequested struct{}
	refreshRequested     struct{}
	logoutRequested      struct{}
	unauthedRequested    struct{}

	completed struct {
		handle handle
		status session.Status
		err    error
	}
)

// handle is the Authenticator's session.Handle.  The zero value has no
// session.
type handle struct {
	accessToken  AccessToken
	refreshToken RefreshToken
	idToken      IDToken
	expiry       time.Time
	subject      string
	scopes       []string
}

// String describes the handle without any tokens.
func (h handle) String() string {
	if h.subject == "" {
		return "oidc session: none"
	}
	return fmt.Sprintf("oidc session: subject=%s expiry=%s", h.subject, h.expiry.Format(time.RFC3339))
}

// Authenticator logs users in to an OIDC provider.
type Authenticator struct {
	clientID           string
	audiences          []string
	client             *http.Client
	verifier           *gooidc.IDTokenVerifier
	oauth2             oauth2.Config
	revocationEndpoint string
	logger             hclog.Logger
	now                func() time.Time
}

var _ session.Authenticator = (*Authenticator)(nil)

// New creates an Authenticator for the provider at c.Issuer and returns it
// with its startup handle, which has no session.  Discovery happens here, so
// an unreachable or invalid provider is an error.
//
// Supported options: WithLogger, WithNow
func New(ctx context.Context, c *Config, opt ...Option) (*Authenticator, session.Handle, error) {
	const op = "oidc.New"
	if err := c.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}
	opts := getAuthOpts(opt...)
	client, err := c.HTTPClient()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	p, err := gooidc.NewProvider(sdkhttp.ClientContext(ctx, client), c.Issuer)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: unable to discover provider %q: %w: %w", op, c.Issuer, ErrInvalidIssuer, err)
	}
	var discovery struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := p.Claims(&discovery); err != nil {
		return nil, nil, fmt.Errorf("%s: unable to read discovery document: %w: %w", op, ErrInvalidIssuer, err)
	}
	a := &Authenticator{
		clientID:  c.ClientID,
		audiences: append([]string(nil), c.Audiences...),
		client:    client,
		verifier: p.Verifier(&gooidc.Config{
			// the audience is checked against the client id and the
			// configured audiences after verification
			SkipClientIDCheck:    true,
			SupportedSigningAlgs: c.algs(),
			Now:                  opts.withNow,
		}),
		oauth2: oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: string(c.ClientSecret),
			Endpoint:     p.Endpoint(),
			Scopes:       c.scopes(),
		},
		revocationEndpoint: discovery.RevocationEndpoint,
		logger:             opts.withLogger,
		now:                opts.withNow,
	}
	a.logger.Debug("provider discovered", "issuer", c.Issuer, "token_endpoint", a.oauth2.Endpoint.TokenURL, "revocation", a.revocationEndpoint != "")
	return a, handle{}, nil
}

// Login implements session.Authenticator.
func (a *Authenticator) Login(c session.Credentials) session.Effect {
	return session.Emit(loginRequested{credentials: c})
}

// RespondNewPassword implements session.Authenticator.  The password grant
// has no challenges, so the response always fails.
func (a *Authenticator) RespondNewPassword(session.Secret) session.Effect {
	return session.Emit(newPasswordRequested{})
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

// Credentials implements session.Authenticator.  The bundle is the session's
// Tokens, as long as the access token hasn't expired.
func (a *Authenticator) Credentials(h session.Handle) (session.CredentialBundle, bool) {
	cur, ok := h.(handle)
	if !ok || cur.accessToken == "" || expired(cur.expiry, a.now()) {
		return nil, false
	}
	return Tokens{
		AccessToken: cur.accessToken,
		IDToken:     cur.idToken,
		Expiry:      cur.expiry,
	}, true
}

// Update implements session.Authenticator.
func (a *Authenticator) Update(msg session.Message, h session.Handle) session.Result {
	const op = "oidc.(Authenticator).Update"
	cur, _ := h.(handle)
	switch m := msg.(type) {
	case loginRequested:
		return session.Result{Handle: cur, Effects: []session.Effect{a.passwordGrant(m.credentials)}}

	case newPasswordRequested:
		a.logger.Error("unable to answer challenge", "op", op, "error", fmt.Errorf("%s: password grant has no challenges: %w", op, ErrNotSupported))
		return session.Result{Handle: cur, Status: session.Report(session.Failed())}

	case refreshRequested:
		if cur.refreshToken == "" {
			return session.Result{Handle: handle{}, Status: session.Report(session.LoggedOut())}
		}
		return session.Result{Handle: cur, Effects: []session.Effect{a.refreshGrant(cur)}}

	case logoutRequested:
		r := session.Result{Handle: handle{}, Status: session.Report(session.LoggedOut())}
		if a.revocationEndpoint != "" && cur.refreshToken != "" {
			r.Effects = []session.Effect{a.revoke(cur.refreshToken)}
		}
		return r

	case unauthedRequested:
		return session.Result{Handle: handle{}, Status: session.Report(session.LoggedOut())}

	case completed:
		if m.err != nil {
			a.logger.Error("authentication failed", "op", op, "error", m.err)
		} else {
			a.logger.Debug("authenticated", "op", op, "session", m.handle)
		}
		return session.Result{Handle: m.handle, Status: session.Report(m.status)}

	default:
		a.logger.Warn("ignoring unknown message", "op", op, "message", fmt.Sprintf("%T", msg))
		return session.Result{Handle: cur}
	}
}

func (a *Authenticator) passwordGrant(c session.Credentials) session.Effect {
	return func(ctx context.Context) session.Event {
		const op = "oidc.(Authenticator).passwordGrant"
		tok, err := a.oauth2.PasswordCredentialsToken(a.clientContext(ctx), c.Username, string(c.Password))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return failed(fmt.Errorf("%s: %q: %w: %w", op, c.Username, ErrLoginFailed, err))
		}
		next, err := a.newHandle(ctx, tok, handle{})
		if err != nil {
			return failed(fmt.Errorf("%s: %q: %w: %w", op, c.Username, ErrLoginFailed, err))
		}
		return loggedIn(next)
	}
}

func (a *Authenticator) refreshGrant(h handle) session.Effect {
	return func(ctx context.Context) session.Event {
		const op = "oidc.(Authenticator).refreshGrant"
		// without an access token the source always goes to the token
		// endpoint
		ts := a.oauth2.TokenSource(a.clientContext(ctx), &oauth2.Token{RefreshToken: string(h.refreshToken)})
		tok, err := ts.Token()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return failed(fmt.Errorf("%s: %w: %w", op, ErrRefreshFailed, err))
		}
		next, err := a.newHandle(ctx, tok, h)
		if err != nil {
			return failed(fmt.Errorf("%s: %w: %w", op, ErrRefreshFailed, err))
		}
		return loggedIn(next)
	}
}

// newHandle builds the handle for a token response.  A refresh response may
// omit the id_token, in which case prev's identity is kept.
func (a *Authenticator) newHandle(ctx context.Context, tok *oauth2.Token, prev handle) (handle, error) {
	const op = "oidc.(Authenticator).newHandle"
	next := handle{
		accessToken:  AccessToken(tok.AccessToken),
		refreshToken: RefreshToken(tok.RefreshToken),
		idToken:      prev.idToken,
		expiry:       tok.Expiry,
		subject:      prev.subject,
		scopes:       prev.scopes,
	}
	if raw, ok := tok.Extra("id_token").(string); ok && raw != "" {
		idt, err := a.verifier.Verify(a.clientContext(ctx), raw)
		if err != nil {
			return handle{}, fmt.Errorf("%s: %w: %w", op, ErrIdTokenVerificationFailed, err)
		}
		if !a.audienceAllowed(idt.Audience) {
			return handle{}, fmt.Errorf("%s: audience %q not allowed: %w", op, idt.Audience, ErrIdTokenVerificationFailed)
		}
		if prev.subject != "" && idt.Subject != prev.subject {
			return handle{}, fmt.Errorf("%s: subject changed from %q to %q: %w", op, prev.subject, idt.Subject, ErrIdTokenVerificationFailed)
		}
		next.subject = idt.Subject
		next.idToken = IDToken(raw)
	}
	if next.subject == "" {
		return handle{}, fmt.Errorf("%s: %w", op, ErrMissingIdToken)
	}
	// an omitted scope means the requested scopes were granted
	switch s, _ := tok.Extra("scope").(string); {
	case s != "":
		next.scopes = strings.Fields(s)
	case next.scopes == nil:
		next.scopes = append([]string(nil), a.oauth2.Scopes...)
	}
	return next, nil
}

func (a *Authenticator) audienceAllowed(aud []string) bool {
	for _, v := range aud {
		if v == a.clientID || strutil.StrListContains(a.audiences, v) {
			return true
		}
	}
	return false
}

// revoke is a best effort revocation of a refresh token.  The session is
// already gone, so it yields no event.
func (a *Authenticator) revoke(t RefreshToken) session.Effect {
	return func(ctx context.Context) session.Event {
		const op = "oidc.(Authenticator).revoke"
		if err := a.revokeToken(ctx, t); err != nil {
			a.logger.Warn("unable to revoke refresh token", "op", op, "error", err)
		}
		return nil
	}
}

// revokeToken sends an RFC 7009 revocation request.
func (a *Authenticator) revokeToken(ctx context.Context, t RefreshToken) error {
	const op = "oidc.(Authenticator).revokeToken"
	form := url.Values{
		"token":           {string(t)},
		"token_type_hint": {"refresh_token"},
	}
	if a.oauth2.ClientSecret == "" {
		form.Set("client_id", a.oauth2.ClientID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revocationEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if a.oauth2.ClientSecret != "" {
		req.SetBasicAuth(url.QueryEscape(a.oauth2.ClientID), url.QueryEscape(a.oauth2.ClientSecret))
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrRevocationFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %w: unexpected status %d", op, ErrRevocationFailed, resp.StatusCode)
	}
	return nil
}

func (a *Authenticator) clientContext(ctx context.Context) context.Context {
	return sdkhttp.ClientContext(ctx, a.client)
}

func failed(err error) session.Event {
	return session.AuthEvent{Msg: completed{status: session.Failed(), err: err}}
}

func loggedIn(h handle) session.Event {
	return session.AuthEvent{Msg: completed{handle: h, status: session.LoggedIn(h.subject, h.scopes)}}
}
