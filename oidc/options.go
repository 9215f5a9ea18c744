// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"time"

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

// authOptions is the set of available options for New
type authOptions struct {
	withLogger hclog.Logger
	withNow    func() time.Time
}

func authDefaults() authOptions {
	return authOptions{
		withLogger: hclog.NewNullLogger(),
		withNow:    time.Now,
	}
}

func getAuthOpts(opt ...Option) authOptions {
	opts := authDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger for: New, StartTestProvider
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if l == nil {
			return
		}
		switch v := o.(type) {
		case *authOptions:
			v.withLogger = l
		case *testProviderOptions:
			v.withLogger = l
		}
	}
}

// WithNow provides an optional func for the current time, used when
// verifying id_tokens and checking token expiry.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if v, ok := o.(*authOptions); ok && now != nil {
			v.withNow = now
		}
	}
}
