// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	sdkhttp "github.com/hashicorp/capsession/sdk/http"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-secure-stdlib/strutil"
)

// ClientSecret is an oauth client Secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// Alg represents asymmetric signing algorithms
type Alg string

const (
	RS256 Alg = "RS256"
	RS384 Alg = "RS384"
	RS512 Alg = "RS512"
	ES256 Alg = "ES256"
	ES384 Alg = "ES384"
	ES512 Alg = "ES512"
	PS256 Alg = "PS256"
	PS384 Alg = "PS384"
	PS512 Alg = "PS512"
	EdDSA Alg = "EdDSA"
)

var supportedAlgorithms = map[Alg]bool{
	RS256: true,
	RS384: true,
	RS512: true,
	ES256: true,
	ES384: true,
	ES512: true,
	PS256: true,
	PS384: true,
	PS512: true,
	EdDSA: true,
}

// ScopeOpenID is always requested.
const ScopeOpenID = "openid"

// Config represents the configuration for the resource owner password grant
// against an OIDC provider.
type Config struct {
	// Issuer is a case-sensitive URL string using the https scheme that
	// contains scheme, host, and optionally, port number and path components
	// and no query or fragment components.  Discovery is performed against
	// it.
	Issuer string

	// ClientID is the relying party id
	ClientID string

	// ClientSecret is the relying party secret.  It's optional for public
	// clients.
	ClientSecret ClientSecret

	// Scopes is a list of additional scopes to request.  The required
	// "openid" scope is always requested.
	Scopes []string

	// Audiences is an optional list of case-sensitive strings used when
	// verifying an id_token's "aud" claim.  The ClientID is always accepted.
	Audiences []string

	// SupportedSigningAlgs is an optional list of signing algorithms accepted
	// for id_tokens.  When empty, the algorithms advertised by the provider's
	// discovery document are accepted.
	SupportedSigningAlgs []Alg

	// ProviderCA is an optional CA cert PEM to use when sending requests to
	// the provider.
	ProviderCA string

	// TLSMinVersion is the optional minimum TLS version, like "tls13".  It
	// defaults to "tls12".
	TLSMinVersion string
}

// Validate the configuration.  Every problem found is returned, not just the
// first.  It doesn't verify the Issuer is discoverable.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("client id is empty: %w", ErrInvalidParameter))
	}
	switch u, err := url.Parse(c.Issuer); {
	case c.Issuer == "":
		result = multierror.Append(result, fmt.Errorf("issuer is empty: %w", ErrInvalidParameter))
	case err != nil:
		result = multierror.Append(result, fmt.Errorf("issuer %q is invalid: %w: %w", c.Issuer, ErrInvalidIssuer, err))
	case u.Scheme != "https" && u.Scheme != "http":
		result = multierror.Append(result, fmt.Errorf("issuer %q scheme is not http or https: %w", c.Issuer, ErrInvalidIssuer))
	case u.RawQuery != "" || u.Fragment != "":
		result = multierror.Append(result, fmt.Errorf("issuer %q has a query or fragment: %w", c.Issuer, ErrInvalidIssuer))
	}
	for _, a := range c.SupportedSigningAlgs {
		if !supportedAlgorithms[a] {
			result = multierror.Append(result, fmt.Errorf("%q: %w", a, ErrUnsupportedAlg))
		}
	}
	if c.TLSMinVersion != "" {
		if _, err := sdkhttp.TLSVersion(c.TLSMinVersion); err != nil {
			result = multierror.Append(result, fmt.Errorf("tls min version %q is unknown: %w", c.TLSMinVersion, ErrInvalidParameter))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// HTTPClient creates a new http client for the configured provider.
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "Config.HTTPClient"
	client, err := sdkhttp.NewClient(sdkhttp.WithCACert(c.ProviderCA), sdkhttp.WithTLSMinVersion(c.TLSMinVersion))
	if err != nil {
		if errors.Is(err, sdkhttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		if errors.Is(err, sdkhttp.ErrInvalidTLSVersion) {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidParameter, err)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// scopes returns the scopes to request: "openid" first, then the configured
// ones without duplicates.
func (c *Config) scopes() []string {
	scopes := []string{ScopeOpenID}
	for _, s := range c.Scopes {
		if s != "" {
			scopes = append(scopes, s)
		}
	}
	return strutil.RemoveDuplicatesStable(scopes, false)
}

func (c *Config) algs() []string {
	out := make([]string, 0, len(c.SupportedSigningAlgs))
	for _, a := range c.SupportedSigningAlgs {
		out = append(out, string(a))
	}
	return out
}
