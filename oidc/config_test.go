// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name            string
		config          *Config
		wantIsErr       []error
		wantErrContains []string
	}{
		{
			name: "valid",
			config: &Config{
				Issuer:   "https://example.com/",
				ClientID: "client",
			},
		},
		{
			name: "valid-with-algs",
			config: &Config{
				Issuer:               "http://127.0.0.1:8200/v1/identity/oidc",
				ClientID:             "client",
				ClientSecret:         "secret",
				SupportedSigningAlgs: []Alg{RS256, ES256, EdDSA},
			},
		},
		{
			name:      "nil",
			wantIsErr: []error{ErrNilParameter},
		},
		{
			name:            "empty",
			config:          &Config{},
			wantIsErr:       []error{ErrInvalidParameter},
			wantErrContains: []string{"client id is empty", "issuer is empty"},
		},
		{
			name: "bad-scheme",
			config: &Config{
				Issuer:   "ldap://example.com",
				ClientID: "client",
			},
			wantIsErr: []error{ErrInvalidIssuer},
		},
		{
			name: "query",
			config: &Config{
				Issuer:   "https://example.com/?tenant=1",
				ClientID: "client",
			},
			wantIsErr: []error{ErrInvalidIssuer},
		},
		{
			name: "tls-min-version",
			config: &Config{
				Issuer:        "https://example.com/",
				ClientID:      "client",
				TLSMinVersion: "ssl3",
			},
			wantIsErr:       []error{ErrInvalidParameter},
			wantErrContains: []string{`tls min version "ssl3" is unknown`},
		},
		{
			name: "every-problem",
			config: &Config{
				Issuer:               "ftp://example.com",
				SupportedSigningAlgs: []Alg{"HS256"},
			},
			wantIsErr:       []error{ErrInvalidParameter, ErrInvalidIssuer, ErrUnsupportedAlg},
			wantErrContains: []string{"client id is empty", `"HS256"`, "3 errors occurred"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			err := tt.config.Validate()
			if len(tt.wantIsErr) == 0 {
				require.NoError(err)
				return
			}
			require.Error(err)
			for _, want := range tt.wantIsErr {
				assert.ErrorIs(err, want)
			}
			for _, want := range tt.wantErrContains {
				assert.Contains(err.Error(), want)
			}
		})
	}
}

func TestConfig_scopes(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Equal([]string{"openid"}, (&Config{}).scopes())
	assert.Equal(
		[]string{"openid", "email", "profile"},
		(&Config{Scopes: []string{"email", "openid", "", "profile", "email"}}).scopes(),
	)
}

func TestConfig_HTTPClient(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	c := &Config{ProviderCA: "not a pem"}
	_, err := c.HTTPClient()
	require.Error(err)
	assert.ErrorIs(err, ErrInvalidCACert)

	c = &Config{TLSMinVersion: "tls9"}
	_, err = c.HTTPClient()
	require.Error(err)
	assert.ErrorIs(err, ErrInvalidParameter)

	c = &Config{TLSMinVersion: "tls13"}
	client, err := c.HTTPClient()
	require.NoError(err)
	tr, ok := client.Transport.(*http.Transport)
	require.True(ok)
	assert.Equal(uint16(tls.VersionTLS13), tr.TLSClientConfig.MinVersion)
}

func TestClientSecret_redacted(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	c := Config{ClientID: "client", ClientSecret: "super-secret"}

	assert.Equal(RedactedClientSecret, c.ClientSecret.String())
	assert.NotContains(fmt.Sprintf("%v", c), "super-secret")

	b, err := json.Marshal(c)
	require.NoError(err)
	assert.NotContains(string(b), "super-secret")
	assert.Contains(string(b), RedactedClientSecret)
}
