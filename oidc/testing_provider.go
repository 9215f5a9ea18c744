// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"crypto"
	"crypto/subtle"
	"encoding/json"
	"encoding/pem"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/hashicorp/capsession/sdk/id"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

const (
	// DefaultTestClientID is the TestProvider's client id until
	// SetClientCreds is called.
	DefaultTestClientID = "test-client-id"

	// DefaultTestClientSecret is the TestProvider's client secret until
	// SetClientCreds is called.
	DefaultTestClientSecret = "test-client-secret"

	// DefaultTestTokenTTL is how long the TestProvider's tokens are valid
	// until SetTokenTTL is called.
	DefaultTestTokenTTL = 5 * time.Minute

	testKeyID = "test-key"
)

// TestUser is a user known to a TestProvider.
type TestUser struct {
	// Password is required by the password grant.
	Password string

	// Subject is the id_token "sub" claim.  It defaults to the username.
	Subject string

	// Scopes are granted to the user.  When empty the requested scopes are
	// granted.
	Scopes []string
}

type testGrant struct {
	username string
	scope    string
}

// TestProvider is a local OIDC provider which supports the password and
// refresh grants and token revocation.  It makes writing tests (and demos)
// much easier.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	jwks       *jose.JSONWebKeySet
	publicKey  crypto.PublicKey
	privateKey crypto.PrivateKey

	mu                 sync.Mutex
	clientID           string
	clientSecret       string
	users              map[string]TestUser
	refreshTokens      map[string]testGrant
	revoked            []string
	tokenTTL           time.Duration
	customAudience     string
	omitIDToken        bool
	omitRefreshIDToken bool
	disableRevocation  bool

	logger hclog.Logger
	t      TestingT
}

// StartTestProvider creates and starts a disposable TestProvider.  When t
// supports Cleanup, the provider is stopped when the test ends; otherwise
// the caller must call Stop.
//
// Supported options: WithTestPort, WithLogger
func StartTestProvider(t TestingT, opt ...Option) *TestProvider {
	helper(t)
	require := require.New(t)
	opts := getTestProviderOpts(opt...)

	p := &TestProvider{
		clientID:      DefaultTestClientID,
		clientSecret:  DefaultTestClientSecret,
		users:         map[string]TestUser{},
		refreshTokens: map[string]testGrant{},
		tokenTTL:      DefaultTestTokenTTL,
		logger:        opts.withLogger,
		t:             t,
	}
	p.publicKey, p.privateKey = TestGenerateKeys(t)
	p.jwks = TestJWKS(t, p.publicKey, string(ES256), testKeyID)

	if opts.withPort != 0 {
		p.httpServer = httptestNewUnstartedServerWithPort(t, p, opts.withPort)
	} else {
		p.httpServer = httptest.NewUnstartedServer(p)
	}
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	if v, ok := t.(CleanupT); ok {
		v.Cleanup(p.httpServer.Close)
	}

	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: p.httpServer.Certificate().Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the current base URL for the test provider's running webserver,
// which is also its issuer.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// SigningKeys returns the test provider's keys used to sign JWTs.
func (p *TestProvider) SigningKeys() (crypto.PublicKey, crypto.PrivateKey) {
	return p.publicKey, p.privateKey
}

// SetClientCreds configures the client credentials the token endpoint
// accepts.  An empty secret makes the client public.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// SetUser adds or replaces a user.
func (p *TestProvider) SetUser(username string, u TestUser) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[username] = u
}

// SetTokenTTL configures how long issued tokens are valid.
func (p *TestProvider) SetTokenTTL(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenTTL = d
}

// SetCustomAudience configures what audience value to embed in issued
// id_tokens instead of the client id.
func (p *TestProvider) SetCustomAudience(customAudience string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customAudience = customAudience
}

// OmitIDTokens forces an error state where the /token endpoint does not return
// id_token.
func (p *TestProvider) OmitIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// OmitRefreshIDTokens makes refresh grant responses omit the id_token, which
// providers are allowed to do.
func (p *TestProvider) OmitRefreshIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitRefreshIDToken = true
}

// DisableRevocation makes the revocation endpoint return 404 and omits it
// from the discovery document.
func (p *TestProvider) DisableRevocation() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableRevocation = true
}

// RevokeAll invalidates every refresh token issued so far.
func (p *TestProvider) RevokeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for rt := range p.refreshTokens {
		p.revoked = append(p.revoked, rt)
	}
	p.refreshTokens = map[string]testGrant{}
}

// RevokedTokens returns the refresh tokens revoked so far.
func (p *TestProvider) RevokedTokens() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.revoked...)
}

// ActiveRefreshTokens returns how many refresh tokens are currently valid.
func (p *TestProvider) ActiveRefreshTokens() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.refreshTokens)
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) error {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}

	w.WriteHeader(statusCode)
	return p.writeJSON(w, &body)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	helper(p.t)

	w.Header().Set("Content-Type", "application/json")
	p.logger.Trace("request", "method", req.Method, "path", req.URL.Path)

	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		reply := struct {
			Issuer             string   `json:"issuer"`
			AuthEndpoint       string   `json:"authorization_endpoint"`
			TokenEndpoint      string   `json:"token_endpoint"`
			JWKSURI            string   `json:"jwks_uri"`
			RevocationEndpoint string   `json:"revocation_endpoint,omitempty"`
			GrantTypes         []string `json:"grant_types_supported"`
			SigningAlgs        []string `json:"id_token_signing_alg_values_supported"`
		}{
			Issuer:             p.Addr(),
			AuthEndpoint:       p.Addr() + "/auth",
			TokenEndpoint:      p.Addr() + "/token",
			JWKSURI:            p.Addr() + "/certs",
			RevocationEndpoint: p.Addr() + "/revoke",
			GrantTypes:         []string{"password", "refresh_token"},
			SigningAlgs:        []string{string(ES256)},
		}
		if p.disableRevocation {
			reply.RevocationEndpoint = ""
		}
		_ = p.writeJSON(w, &reply)

	case "/certs":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = p.writeJSON(w, p.jwks)

	case "/token":
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !p.clientAuthenticated(req) {
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
			return
		}

		switch req.FormValue("grant_type") {
		case "password":
			username := req.FormValue("username")
			u, ok := p.users[username]
			if !ok || subtle.ConstantTimeCompare([]byte(u.Password), []byte(req.FormValue("password"))) != 1 {
				_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "invalid username or password")
				return
			}
			scope := req.FormValue("scope")
			if len(u.Scopes) > 0 {
				scope = strings.Join(u.Scopes, " ")
			}
			p.issue(w, username, scope, !p.omitIDToken)

		case "refresh_token":
			rt := req.FormValue("refresh_token")
			g, ok := p.refreshTokens[rt]
			if !ok {
				_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "unknown refresh token")
				return
			}
			if _, ok := p.users[g.username]; !ok {
				_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "unknown user")
				return
			}
			// refresh tokens are rotated
			delete(p.refreshTokens, rt)
			p.issue(w, g.username, g.scope, !p.omitIDToken && !p.omitRefreshIDToken)

		default:
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "unsupported_grant_type", "bad grant_type")
		}

	case "/revoke":
		if p.disableRevocation {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !p.clientAuthenticated(req) {
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
			return
		}
		// unknown tokens are not an error
		rt := req.FormValue("token")
		if _, ok := p.refreshTokens[rt]; ok {
			delete(p.refreshTokens, rt)
			p.revoked = append(p.revoked, rt)
		}
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// clientAuthenticated checks client_secret_basic or client_secret_post
// credentials.  A public client only sends its id.
func (p *TestProvider) clientAuthenticated(req *http.Request) bool {
	clientID, clientSecret, ok := req.BasicAuth()
	if ok {
		var err error
		if clientID, err = url.QueryUnescape(clientID); err != nil {
			return false
		}
		if clientSecret, err = url.QueryUnescape(clientSecret); err != nil {
			return false
		}
	} else {
		clientID, clientSecret = req.FormValue("client_id"), req.FormValue("client_secret")
	}
	if clientID != p.clientID {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(clientSecret), []byte(p.clientSecret)) == 1
}

// issue writes a token response for username.  The caller holds p.mu.
func (p *TestProvider) issue(w http.ResponseWriter, username, scope string, withIDToken bool) {
	accessToken, err := id.New("at")
	if err != nil {
		_ = p.writeTokenErrorResponse(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	refreshToken, err := id.New("rt")
	if err != nil {
		_ = p.writeTokenErrorResponse(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	p.refreshTokens[refreshToken] = testGrant{username: username, scope: scope}

	reply := struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
		RefreshToken string `json:"refresh_token"`
		IDToken      string `json:"id_token,omitempty"`
		Scope        string `json:"scope,omitempty"`
	}{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(p.tokenTTL / time.Second),
		RefreshToken: refreshToken,
		Scope:        scope,
	}
	if withIDToken {
		subject := p.users[username].Subject
		if subject == "" {
			subject = username
		}
		now := time.Now()
		claims := jwt.Claims{
			Subject:   subject,
			Issuer:    p.Addr(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
			Expiry:    jwt.NewNumericDate(now.Add(p.tokenTTL)),
			Audience:  jwt.Audience{p.clientID},
		}
		if p.customAudience != "" {
			claims.Audience = jwt.Audience{p.customAudience}
		}
		reply.IDToken = TestSignJWT(p.t, p.privateKey, string(ES256), claims, testKeyID)
	}
	_ = p.writeJSON(w, &reply)
}

// httptestNewUnstartedServerWithPort is roughly the same as
// httptest.NewUnstartedServer() but allows the caller to explicitly choose the
// port if desired.
func httptestNewUnstartedServerWithPort(t TestingT, handler http.Handler, port int) *httptest.Server {
	helper(t)
	require := require.New(t)
	require.NotEmpty(port)

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	l, err := net.Listen("tcp", addr)
	require.NoError(err)

	return &httptest.Server{
		Listener: l,
		Config:   &http.Server{Handler: handler},
	}
}

// testProviderOptions is the set of available options for StartTestProvider
type testProviderOptions struct {
	withPort   int
	withLogger hclog.Logger
}

func getTestProviderOpts(opt ...Option) testProviderOptions {
	opts := testProviderOptions{
		withLogger: hclog.NewNullLogger(),
	}
	ApplyOpts(&opts, opt...)
	return opts
}

// WithTestPort provides an optional port for the test provider.
func WithTestPort(port int) Option {
	return func(o interface{}) {
		if v, ok := o.(*testProviderOptions); ok {
			v.withPort = port
		}
	}
}
