// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package http

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
	withCACert        string
	withTLSMinVersion string
}

func getDefaultOptions() options {
	return options{
		withTLSMinVersion: DefaultTLSMinVersion,
	}
}

func getOpts(opt ...Option) options {
	opts := getDefaultOptions()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithCACert provides an optional CA certificate PEM to trust instead of the
// system CA chain.
func WithCACert(pem string) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok {
			v.withCACert = pem
		}
	}
}

// WithTLSMinVersion provides an optional minimum TLS version, like "tls13".
// An empty version keeps the default.
func WithTLSMinVersion(version string) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok && version != "" {
			v.withTLSMinVersion = version
		}
	}
}
