// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package terminal is a line oriented front end for a program.Program.  It
// renders every published frame with view.Render and reads commands: the
// number of a control presses a button or edits an input, "q" quits.
//
//	Log In
//	  [1] Username:
//	  [2] Password:
//	  [3] <Log In>
//	> 1 alice
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hashicorp/capsession/program"
	"github.com/hashicorp/capsession/session"
	"github.com/hashicorp/capsession/view"
	"github.com/hashicorp/go-hclog"
)

// Frontend reads commands from an input stream and writes views to an
// output stream.
type Frontend struct {
	in         *bufio.Reader
	out        io.Writer
	readSecret SecretReader
	logger     hclog.Logger
	prompt     string
}

// New creates a Frontend.
//
// Supported options: WithSecretReader, WithLogger, WithPrompt
func New(in io.Reader, out io.Writer, opt ...Option) (*Frontend, error) {
	const op = "terminal.New"
	switch {
	case in == nil:
		return nil, fmt.Errorf("%s: input is nil: %w", op, ErrNilParameter)
	case out == nil:
		return nil, fmt.Errorf("%s: output is nil: %w", op, ErrNilParameter)
	}
	opts := getOpts(opt...)
	return &Frontend{
		in:         bufio.NewReader(in),
		out:        out,
		readSecret: opts.withSecretReader,
		logger:     opts.withLogger,
		prompt:     opts.withPrompt,
	}, nil
}

type readRequest struct {
	secret bool
}

type readResult struct {
	text string
	err  error
}

// Run shows frames and forwards the events of the selected controls to send
// until ctx is done, frames is closed, the input ends or the user quits.
// Commands refer to the most recently shown frame, so Run waits for the
// first frame before reading any input.
func (f *Frontend) Run(ctx context.Context, frames <-chan program.Frame, send func(session.Event)) error {
	const op = "terminal.(Frontend).Run"
	switch {
	case frames == nil:
		return fmt.Errorf("%s: frames is nil: %w", op, ErrNilParameter)
	case send == nil:
		return fmt.Errorf("%s: send func is nil: %w", op, ErrNilParameter)
	}

	var current view.Node
	select {
	case <-ctx.Done():
		return ctx.Err()
	case fr, ok := <-frames:
		if !ok {
			return nil
		}
		current = fr.View
	}
	var pending *view.Input
	if err := f.show(current, pending); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// a blocked read can't be interrupted, so the reader may outlive Run
	requests := make(chan readRequest)
	results := make(chan readResult, 1)
	go f.read(requests, results)
	defer close(requests)
	requests <- readRequest{}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case fr, ok := <-frames:
			if !ok {
				return nil
			}
			current = fr.View
			if err := f.show(current, pending); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}

		case r := <-results:
			if r.err != nil {
				if errors.Is(r.err, io.EOF) {
					return nil
				}
				return fmt.Errorf("%s: unable to read input: %w", op, r.err)
			}
			if pending != nil {
				in := *pending
				pending = nil
				if in.Secret && f.readSecret != nil {
					fmt.Fprintln(f.out)
				}
				f.logger.Debug("input submitted", "label", in.Label)
				send(in.OnInput(r.text))
			} else {
				quit, in, err := f.command(current, r.text, send)
				if quit {
					return nil
				}
				if err != nil {
					fmt.Fprintf(f.out, "%s\n", err)
				}
				pending = in
			}
			f.showPrompt(pending)
			requests <- readRequest{secret: pending != nil && pending.Secret}
		}
	}
}

// command runs one command line against n.  It returns the input to read a
// value for when the line selects an input without giving its value.
func (f *Frontend) command(n view.Node, line string, send func(session.Event)) (bool, *view.Input, error) {
	const op = "terminal.(Frontend).command"
	// only the separator is cut from the value, secrets are passed on as typed
	cmd, arg, hasArg := strings.Cut(strings.TrimLeft(line, " \t"), " ")
	cmd = strings.TrimSpace(cmd)
	switch cmd {
	case "":
		return false, nil, nil
	case "q", "quit":
		return true, nil, nil
	}
	controls := view.Controls(n)
	i, err := strconv.Atoi(cmd)
	if err != nil || i < 1 || i > len(controls) {
		return false, nil, fmt.Errorf("%s: %q: %w", op, cmd, ErrUnknownControl)
	}
	switch c := controls[i-1].(type) {
	case view.Button:
		f.logger.Debug("button pressed", "label", c.Label)
		send(c.OnPress)
		return false, nil, nil
	case view.Input:
		if c.OnInput == nil {
			return false, nil, fmt.Errorf("%s: %q is read only: %w", op, c.Label, ErrUnknownControl)
		}
		if !c.Secret {
			arg = strings.TrimSpace(arg)
		}
		if hasArg && arg != "" {
			f.logger.Debug("input submitted", "label", c.Label)
			send(c.OnInput(arg))
			return false, nil, nil
		}
		return false, &c, nil
	default:
		return false, nil, fmt.Errorf("%s: %q: %w", op, cmd, ErrUnknownControl)
	}
}

// read serves read requests until requests is closed.
func (f *Frontend) read(requests <-chan readRequest, results chan<- readResult) {
	for req := range requests {
		// lines typed ahead are already buffered and are read in order
		if req.secret && f.readSecret != nil && f.in.Buffered() == 0 {
			s, err := f.readSecret()
			results <- readResult{text: s, err: err}
			continue
		}
		line, err := f.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			results <- readResult{err: err}
			continue
		}
		results <- readResult{text: strings.TrimRight(line, "\r\n")}
	}
}

func (f *Frontend) show(n view.Node, pending *view.Input) error {
	if _, err := fmt.Fprintln(f.out); err != nil {
		return err
	}
	if err := view.Render(f.out, n); err != nil {
		return err
	}
	f.showPrompt(pending)
	return nil
}

func (f *Frontend) showPrompt(pending *view.Input) {
	if pending != nil {
		fmt.Fprintf(f.out, "%s: ", pending.Label)
		return
	}
	fmt.Fprint(f.out, f.prompt)
}
