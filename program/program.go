// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package program runs the session state machine: a single goroutine applies
// one event at a time to the current session.Mode, publishes the resulting
// view and starts the effects the event required.  Effects run on their own
// goroutines and post their results back as events, so the loop never waits
// on the network.
package program

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/capsession/sdk/id"
	"github.com/hashicorp/capsession/session"
	"github.com/hashicorp/capsession/view"
	"github.com/hashicorp/go-hclog"
)

// InitFunc initializes the Authenticator and returns its startup handle.  An
// error is fatal: the program shows it and ignores every further event.
type InitFunc func(ctx context.Context) (session.Authenticator, session.Handle, error)

// Frame is a published snapshot: the mode and the view selected for it.
type Frame struct {
	Mode session.Mode
	View view.Node
}

// Program is the event loop.  A Program runs once.
type Program struct {
	init           InitFunc
	logger         hclog.Logger
	initialTimeout time.Duration

	events  chan session.Event
	frames  chan Frame
	done    chan struct{}
	current atomic.Value // Frame
	running atomic.Bool
	effects sync.WaitGroup
}

// New creates a Program.
//
// Supported options: WithLogger, WithInitialTimeout, WithEventBuffer
func New(initFn InitFunc, opt ...Option) (*Program, error) {
	const op = "program.New"
	if initFn == nil {
		return nil, fmt.Errorf("%s: init func is nil: %w", op, ErrNilParameter)
	}
	opts := getOpts(opt...)
	if opts.withInitialTimeout <= 0 {
		return nil, fmt.Errorf("%s: initial timeout must be positive: %w", op, ErrInvalidParameter)
	}
	if opts.withEventBuffer < 0 {
		return nil, fmt.Errorf("%s: event buffer must not be negative: %w", op, ErrInvalidParameter)
	}
	return &Program{
		init:           initFn,
		logger:         opts.withLogger,
		initialTimeout: opts.withInitialTimeout,
		events:         make(chan session.Event, opts.withEventBuffer),
		frames:         make(chan Frame, 1),
		done:           make(chan struct{}),
	}, nil
}

// Send queues an event.  It is safe to call from any goroutine and returns
// without queueing once the program has stopped.
func (p *Program) Send(ev session.Event) {
	if ev == nil {
		return
	}
	select {
	case p.events <- ev:
	case <-p.done:
	}
}

// Frames delivers published frames.  Only the newest unread frame is kept.
func (p *Program) Frames() <-chan Frame {
	return p.frames
}

// Current returns the most recently published frame.
func (p *Program) Current() (Frame, bool) {
	f, ok := p.current.Load().(Frame)
	return f, ok
}

// Run initializes the Authenticator and processes events until ctx is done.
// It returns ctx.Err() after every in-flight effect has finished.
func (p *Program) Run(ctx context.Context) error {
	const op = "program.(Program).Run"
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("%s: %w", op, ErrAlreadyRunning)
	}
	defer func() {
		close(p.done)
		p.effects.Wait()
	}()

	auth, h, err := p.init(ctx)
	mode := session.NewMode(h, err)
	if err != nil {
		p.logger.Error("authenticator initialization failed", "op", op, "error", err)
		p.publish(mode, nil)
		return p.absorb(ctx)
	}
	d, err := session.NewDispatcher(auth, session.WithLogger(p.logger.Named("dispatcher")))
	if err != nil {
		mode = session.NewMode(nil, err)
		p.logger.Error("dispatcher initialization failed", "op", op, "error", err)
		p.publish(mode, nil)
		return p.absorb(ctx)
	}
	p.publish(mode, auth)

	timer := time.AfterFunc(p.initialTimeout, func() {
		p.Send(session.InitialTimeout{})
	})
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-p.events:
			var effects []session.Effect
			mode, effects = d.UpdateMode(mode, ev)
			p.publish(mode, auth)
			for _, e := range effects {
				p.start(ctx, e)
			}
		}
	}
}

// absorb drains events without processing them until ctx is done.
func (p *Program) absorb(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-p.events:
			p.logger.Trace("ignoring event", "event", fmt.Sprintf("%T", ev))
		}
	}
}

// start runs e on its own goroutine and sends its event back to the loop.
func (p *Program) start(ctx context.Context, e session.Effect) {
	if e == nil {
		return
	}
	effectID, err := id.New("eff")
	if err != nil {
		effectID = "eff_unknown"
	}
	p.effects.Add(1)
	go func() {
		defer p.effects.Done()
		p.logger.Trace("effect started", "id", effectID)
		ev := e(ctx)
		if ev == nil {
			p.logger.Trace("effect finished without an event", "id", effectID)
			return
		}
		p.logger.Trace("effect finished", "id", effectID, "event", fmt.Sprintf("%T", ev))
		p.Send(ev)
	}()
}

// publish stores the frame for m and offers it on the frames channel,
// replacing an unread one.  Only the loop goroutine publishes.
func (p *Program) publish(m session.Mode, auth session.Authenticator) {
	f := Frame{Mode: m, View: view.Select(m, auth)}
	p.current.Store(f)
	select {
	case <-p.frames:
	default:
	}
	p.frames <- f
}
