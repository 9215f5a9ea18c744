// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// Dispatcher is the update function for the session state machine.  It is
// safe for concurrent use, but events for a single State must be dispatched
// one at a time.
type Dispatcher struct {
	auth   Authenticator
	logger hclog.Logger
}

// NewDispatcher creates a Dispatcher which delegates to auth.
//
// Supported options: WithLogger
func NewDispatcher(auth Authenticator, opt ...Option) (*Dispatcher, error) {
	const op = "session.NewDispatcher"
	if auth == nil {
		return nil, fmt.Errorf("%s: authenticator is nil: %w", op, ErrNilParameter)
	}
	opts := getOpts(opt...)
	return &Dispatcher{
		auth:   auth,
		logger: opts.withLogger,
	}, nil
}

// Update returns the state following ev and the effects ev requires.  It
// never fails; unknown events leave the state unchanged.
func (d *Dispatcher) Update(s State, ev Event) (State, []Effect) {
	next, effects, _ := d.update(s, ev)
	return next, effects
}

// update also reports whether the Authenticator reported a status.
func (d *Dispatcher) update(s State, ev Event) (State, []Effect, bool) {
	if d.logger.IsDebug() {
		d.logger.Debug("dispatch", describe(ev)...)
	}
	switch e := ev.(type) {
	case AuthEvent:
		r := d.auth.Update(e.Msg, s.Handle)
		s.Handle = r.Handle
		if r.Status == nil {
			return s, r.Effects, false
		}
		if !s.Status.Equal(*r.Status) {
			d.logger.Debug("status changed", "from", s.Status, "to", *r.Status)
		}
		s.Status = *r.Status
		return s, r.Effects, true

	case InitialTimeout:
		return s, []Effect{d.auth.Refresh()}, false

	case LogIn:
		return s, []Effect{d.auth.Login(s.Credentials())}, false

	case RespondWithNewPassword:
		// PasswordVerify isn't compared; a mismatch is the view's or the
		// provider's concern.
		if s.Password == "" {
			return s, nil, false
		}
		return s, []Effect{d.auth.RespondNewPassword(s.Password)}, false

	case TryAgain:
		return s.Clear(), []Effect{d.auth.Unauthed()}, false

	case LogOut:
		return s.Clear(), []Effect{d.auth.Logout()}, false

	case Refresh:
		return s, []Effect{d.auth.Refresh()}, false

	case UpdateUsername:
		s.Username = e.Value
		return s, nil, false

	case UpdatePassword:
		s.Password = e.Value
		return s, nil, false

	case UpdatePasswordVerification:
		s.PasswordVerify = e.Value
		return s, nil, false

	default:
		d.logger.Warn("ignoring unknown event", "event", fmt.Sprintf("%T", ev))
		return s, nil, false
	}
}

// UpdateMode is Update for the top level Mode.  Errored absorbs every event.
// Restoring becomes Ready on the initial timeout or as soon as the
// Authenticator reports a status, whichever comes first.
func (d *Dispatcher) UpdateMode(m Mode, ev Event) (Mode, []Effect) {
	switch cur := m.(type) {
	case Errored:
		return cur, nil
	case Restoring:
		next, effects, reported := d.update(cur.State, ev)
		if _, timedOut := ev.(InitialTimeout); timedOut || reported {
			return Ready{State: next}, effects
		}
		return Restoring{State: next}, effects
	case Ready:
		next, effects, _ := d.update(cur.State, ev)
		return Ready{State: next}, effects
	default:
		d.logger.Warn("ignoring event for unknown mode", "mode", fmt.Sprintf("%T", m))
		return m, nil
	}
}

// Drain runs effects one at a time on the calling goroutine, dispatching each
// resulting event, until no effects remain or ctx is done.  It's the
// synchronous counterpart of the program's event loop and is handy for
// scripts and tests.
func (d *Dispatcher) Drain(ctx context.Context, s State, effects []Effect) State {
	queue := append([]Effect(nil), effects...)
	for len(queue) > 0 {
		if ctx.Err() != nil {
			return s
		}
		e := queue[0]
		queue = queue[1:]
		if e == nil {
			continue
		}
		ev := e(ctx)
		if ev == nil {
			continue
		}
		var more []Effect
		s, more = d.Update(s, ev)
		queue = append(queue, more...)
	}
	return s
}

// describe returns the key/value pairs used to log an event.
func describe(ev Event) []interface{} {
	args := []interface{}{"event", fmt.Sprintf("%T", ev)}
	switch e := ev.(type) {
	case AuthEvent:
		args = append(args, "message", fmt.Sprintf("%T", e.Msg))
	case UpdateUsername:
		args = append(args, "value", e.Value)
	case UpdatePassword:
		args = append(args, "value", e.Value.String())
	case UpdatePasswordVerification:
		args = append(args, "value", e.Value.String())
	}
	return args
}
