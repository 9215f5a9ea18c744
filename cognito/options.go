// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cognito

import (
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

type options struct {
	withLogger              hclog.Logger
	withNow                 func() time.Time
	withIdentityProviderAPI IdentityProviderAPI
	withIdentityAPI         IdentityAPI
	withKeySet              gooidc.KeySet
}

func getDefaultOptions() options {
	return options{
		withLogger: hclog.NewNullLogger(),
		withNow:    time.Now,
	}
}

func getOpts(opt ...Option) options {
	opts := getDefaultOptions()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok && l != nil {
			v.withLogger = l
		}
	}
}

// WithNow provides an optional func for the current time, used when
// verifying tokens and checking credential expiry.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok && now != nil {
			v.withNow = now
		}
	}
}

// WithIdentityProviderAPI replaces the cognito-idp SDK client.
func WithIdentityProviderAPI(api IdentityProviderAPI) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok {
			v.withIdentityProviderAPI = api
		}
	}
}

// WithIdentityAPI replaces the cognito-identity SDK client.
func WithIdentityAPI(api IdentityAPI) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok {
			v.withIdentityAPI = api
		}
	}
}

// WithKeySet replaces the user pool's remote JWKS used to verify tokens.
func WithKeySet(ks gooidc.KeySet) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok {
			v.withKeySet = ks
		}
	}
}
