// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package http

import (
	"context"
	"crypto/tls"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testCertPEM(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw}))
}

func TestNewClient(t *testing.T) {
	t.Parallel()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	caPEM := testCertPEM(t, srv)

	tests := []struct {
		name           string
		opts           []Option
		wantIsErr      error
		wantMinVersion uint16
		wantRootCAs    bool
	}{
		{
			name:           "system-ca",
			wantMinVersion: tls.VersionTLS12,
		},
		{
			name:           "ca-cert",
			opts:           []Option{WithCACert(caPEM)},
			wantMinVersion: tls.VersionTLS12,
			wantRootCAs:    true,
		},
		{
			name:           "tls13",
			opts:           []Option{WithTLSMinVersion("tls13")},
			wantMinVersion: tls.VersionTLS13,
		},
		{
			name:           "empty-version-keeps-default",
			opts:           []Option{WithTLSMinVersion("")},
			wantMinVersion: tls.VersionTLS12,
		},
		{
			name:      "invalid-pem",
			opts:      []Option{WithCACert("not a pem")},
			wantIsErr: ErrInvalidCertificatePem,
		},
		{
			name:      "invalid-version",
			opts:      []Option{WithTLSMinVersion("ssl3")},
			wantIsErr: ErrInvalidTLSVersion,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			c, err := NewClient(tt.opts...)
			if tt.wantIsErr != nil {
				require.Error(err)
				assert.ErrorIs(err, tt.wantIsErr)
				assert.Nil(c)
				return
			}
			require.NoError(err)
			tr, ok := c.Transport.(*http.Transport)
			require.True(ok)
			require.NotNil(tr.TLSClientConfig)
			assert.Equal(tt.wantMinVersion, tr.TLSClientConfig.MinVersion)
			assert.Equal(tt.wantRootCAs, tr.TLSClientConfig.RootCAs != nil)
		})
	}

	t.Run("trusts-ca-cert", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		c, err := NewClient(WithCACert(caPEM))
		require.NoError(err)
		resp, err := c.Get(srv.URL)
		require.NoError(err)
		defer resp.Body.Close()
		assert.Equal(http.StatusNoContent, resp.StatusCode)
	})
}

func TestTLSVersion(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	v, err := TLSVersion("tls11")
	require.NoError(err)
	assert.Equal(uint16(tls.VersionTLS11), v)

	_, err = TLSVersion("")
	assert.ErrorIs(err, ErrInvalidTLSVersion)
}

func TestClientContext(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	c, err := NewClient()
	require.NoError(err)
	ctx := ClientContext(context.Background(), c)
	got, ok := ctx.Value(oauth2.HTTPClient).(*http.Client)
	require.True(ok)
	assert.Same(c, got)
}
