// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cognito

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/capsession/oidc"
	sdkhttp "github.com/hashicorp/capsession/sdk/http"
	"github.com/hashicorp/go-multierror"
)

// IdentityMapping maps user pool sessions to an identity pool, whose AWS
// credentials become the session's credential bundle.
type IdentityMapping struct {
	// UserPoolID is the user pool the identity pool trusts, like
	// "us-east-1_AbCdEfGhI".
	UserPoolID string

	// IdentityPoolID is like "us-east-1:0b8b23b1-c9ad-4bd4-b4e0-27ab0f9bd0c5".
	IdentityPoolID string

	// AccountID is the optional AWS account id owning the identity pool.
	AccountID string
}

// Config is the configuration of a user pool app client.
type Config struct {
	// ClientID is the app client id.
	ClientID string

	// ClientSecret is the optional app client secret.  When set, requests
	// carry a SECRET_HASH.
	ClientSecret oidc.ClientSecret

	// Region is the AWS region of the user pool, like "us-east-1".
	Region string

	// UserPoolID is the optional user pool id.  It's required to verify
	// tokens and is taken from IdentityMapping when empty.
	UserPoolID string

	// IdentityMapping is optional.
	IdentityMapping *IdentityMapping

	// Endpoint optionally overrides the cognito-idp endpoint.
	Endpoint string

	// IdentityEndpoint optionally overrides the cognito-identity endpoint.
	IdentityEndpoint string

	// ProviderCA is an optional CA cert PEM to use when sending requests.
	ProviderCA string

	// TLSMinVersion is the optional minimum TLS version, like "tls13".  It
	// defaults to "tls12".
	TLSMinVersion string
}

// Validate the configuration.  Every problem found is returned, not just the
// first.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("client id is empty: %w", ErrInvalidParameter))
	}
	if c.Region == "" {
		result = multierror.Append(result, fmt.Errorf("region is empty: %w", ErrInvalidParameter))
	}
	if c.UserPoolID != "" && c.Region != "" && !strings.HasPrefix(c.UserPoolID, c.Region+"_") {
		result = multierror.Append(result, fmt.Errorf("user pool id %q is not in region %q: %w", c.UserPoolID, c.Region, ErrInvalidParameter))
	}
	if m := c.IdentityMapping; m != nil {
		if m.UserPoolID == "" {
			result = multierror.Append(result, fmt.Errorf("identity mapping user pool id is empty: %w", ErrInvalidParameter))
		}
		if c.UserPoolID != "" && m.UserPoolID != "" && m.UserPoolID != c.UserPoolID {
			result = multierror.Append(result, fmt.Errorf("identity mapping user pool id %q doesn't match %q: %w", m.UserPoolID, c.UserPoolID, ErrInvalidParameter))
		}
		if region, _, ok := strings.Cut(m.IdentityPoolID, ":"); !ok || region == "" {
			result = multierror.Append(result, fmt.Errorf("identity pool id %q is not region:guid: %w", m.IdentityPoolID, ErrInvalidParameter))
		}
	}
	for _, e := range []struct{ name, value string }{
		{"endpoint", c.Endpoint},
		{"identity endpoint", c.IdentityEndpoint},
	} {
		if e.value == "" {
			continue
		}
		if u, err := url.Parse(e.value); err != nil || (u.Scheme != "https" && u.Scheme != "http") {
			result = multierror.Append(result, fmt.Errorf("%s %q is not an http or https URL: %w", e.name, e.value, ErrInvalidParameter))
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

// HTTPClient creates a new http client for the SDK clients and key set.
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

// userPoolID returns the configured user pool id, if any.
func (c *Config) userPoolID() string {
	if c.UserPoolID != "" {
		return c.UserPoolID
	}
	if c.IdentityMapping != nil {
		return c.IdentityMapping.UserPoolID
	}
	return ""
}

// ProviderName is the user pool's name as an identity provider, which is
// also the key of its tokens in identity pool logins.
func (c *Config) ProviderName() string {
	return fmt.Sprintf("cognito-idp.%s.amazonaws.com/%s", c.Region, c.userPoolID())
}

// Issuer is the "iss" claim of the user pool's tokens.
func (c *Config) Issuer() string {
	return "https://" + c.ProviderName()
}

// secretHash is the SECRET_HASH for username, or "" without a client secret.
func (c *Config) secretHash(username string) string {
	if c.ClientSecret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(c.ClientSecret))
	mac.Write([]byte(username + c.ClientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
