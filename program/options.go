// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package program

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// DefaultInitialTimeout is how long after startup the InitialTimeout event
// fires.
const DefaultInitialTimeout = 1000 * time.Millisecond

// defaultEventBuffer is the capacity of the event queue.
const defaultEventBuffer = 64

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
	withLogger         hclog.Logger
	withInitialTimeout time.Duration
	withEventBuffer    int
}

func getDefaultOptions() options {
	return options{
		withLogger:         hclog.NewNullLogger(),
		withInitialTimeout: DefaultInitialTimeout,
		withEventBuffer:    defaultEventBuffer,
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

// WithInitialTimeout overrides DefaultInitialTimeout.
func WithInitialTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok {
			v.withInitialTimeout = d
		}
	}
}

// WithEventBuffer sets the capacity of the event queue.
func WithEventBuffer(n int) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok {
			v.withEventBuffer = n
		}
	}
}
