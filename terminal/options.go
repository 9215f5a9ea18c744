// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package terminal

import "github.com/hashicorp/go-hclog"

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

// SecretReader reads one secret value without echoing it.
type SecretReader func() (string, error)

type options struct {
	withSecretReader SecretReader
	withLogger       hclog.Logger
	withPrompt       string
}

func getDefaultOptions() options {
	return options{
		withLogger: hclog.NewNullLogger(),
		withPrompt: "> ",
	}
}

func getOpts(opt ...Option) options {
	opts := getDefaultOptions()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithSecretReader reads secret inputs with r instead of the input stream.
// The cli passes a reader that disables terminal echo.  Lines already
// buffered from the input stream are still read from the stream.
func WithSecretReader(r SecretReader) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok {
			v.withSecretReader = r
		}
	}
}

// WithLogger provides an optional logger
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok && l != nil {
			v.withLogger = l
		}
	}
}

// WithPrompt overrides the "> " command prompt.
func WithPrompt(p string) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok {
			v.withPrompt = p
		}
	}
}
