// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cmdstate carries the settings and the process runner shared by the
// subcommands. The root command builds them once and stores them in the
// context handed to every action.
package cmdstate

import (
	"context"
	"errors"

	"github.com/matt-FFFFFF/launchkit/internal/config"
	"github.com/matt-FFFFFF/launchkit/internal/ctxlog"
	"github.com/matt-FFFFFF/launchkit/internal/subprocess"
	"github.com/matt-FFFFFF/launchkit/internal/workerpool"
)

// ErrNoState is returned when the context holds no command state.
var ErrNoState = errors.New("command state not initialised")

// State is shared by all subcommands of one invocation.
type State struct {
	Settings *config.Settings
	Runner   *subprocess.Runner
}

type contextKey struct{}

// Setup resolves the settings from src and the environment, applies a
// positive poolSize override, and stores the resulting state in ctx.
func Setup(ctx context.Context, src string, poolSize int) (context.Context, error) {
	s, err := config.LoadFrom(ctx, src)
	if err != nil {
		return ctx, err
	}

	if poolSize != 0 {
		s.ThreadPool = poolSize

		if err := s.Validate(); err != nil {
			return ctx, err
		}
	}

	opts := append(s.PoolOptions(), workerpool.WithLogger(ctxlog.Logger(ctx)))
	st := &State{
		Settings: s,
		Runner:   subprocess.New(workerpool.New(opts...)),
	}

	ctxlog.Debug(ctx, "command state ready", "threadPool", s.ThreadPool, "charset", s.Charset)

	return context.WithValue(ctx, contextKey{}, st), nil
}

// From returns the state stored by Setup.
func From(ctx context.Context) (*State, error) {
	st, ok := ctx.Value(contextKey{}).(*State)
	if !ok || st == nil {
		return nil, ErrNoState
	}

	return st, nil
}

// Teardown stops the pool of the stored state, if any. Queued work still runs.
func Teardown(ctx context.Context) {
	if st, err := From(ctx); err == nil {
		st.Runner.Pool().Close()
	}
}
