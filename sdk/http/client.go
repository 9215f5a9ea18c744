// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package http

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-secure-stdlib/tlsutil"
)

// DefaultTLSMinVersion is used unless WithTLSMinVersion says otherwise.
const DefaultTLSMinVersion = "tls12"

var (
	// ErrInvalidCertificatePem is returned when the CA PEM can't be parsed.
	ErrInvalidCertificatePem = errors.New("invalid certificate PEM")

	// ErrInvalidTLSVersion is returned for a TLS version name which isn't
	// one of tls10, tls11, tls12 or tls13.
	ErrInvalidTLSVersion = errors.New("invalid TLS version")
)

// TLSVersion returns the crypto/tls version for a name like "tls12".
func TLSVersion(name string) (uint16, error) {
	const op = "http.TLSVersion"
	v, ok := tlsutil.TLSLookup[name]
	if !ok {
		return 0, fmt.Errorf("%s: %q: %w", op, name, ErrInvalidTLSVersion)
	}
	return v, nil
}

// NewClient creates a new http client which will use the optional CA
// certificate PEM if provided, otherwise it will use the installed system CA
// chain.  The client is shared by the oauth2 token requests, the OIDC key set
// fetches and the AWS SDK clients.
//
// Supported options: WithCACert, WithTLSMinVersion
func NewClient(opt ...Option) (*http.Client, error) {
	const op = "http.NewClient"
	opts := getOpts(opt...)
	minVersion, err := TLSVersion(opts.withTLSMinVersion)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	tlsConfig := &tls.Config{
		MinVersion: minVersion,
	}
	if opts.withCACert != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(opts.withCACert)); !ok {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCertificatePem)
		}
		tlsConfig.RootCAs = certPool
	}

	tr := cleanhttp.DefaultPooledTransport()
	tr.TLSClientConfig = tlsConfig
	return &http.Client{
		Transport: tr,
	}, nil
}

// ClientContext is a helper function that returns a new Context that carries
// the provided HTTP client. This method sets the same context key used by the
// github.com/coreos/go-oidc/v3 and golang.org/x/oauth2 packages, so the
// returned context works for those packages as well.
func ClientContext(ctx context.Context, client *http.Client) context.Context {
	// simple to implement as a wrapper for the coreos package
	return oidc.ClientContext(ctx, client)
}
