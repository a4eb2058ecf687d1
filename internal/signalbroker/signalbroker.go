// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package signalbroker listens for the signals that should end the launcher.
// By default these are SIGINT, SIGTERM and SIGQUIT.
//
// Watch is lenient with the first signal of each kind: it is logged and
// otherwise ignored, so children sharing the terminal get the chance to exit on
// their own. A repeated signal of the same kind cancels the context.
package signalbroker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/matt-FFFFFF/launchkit/internal/ctxlog"
)

var termSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGQUIT,
	os.Interrupt,
}

// New relays sigs, or the termination signals if none are given, to the
// returned channel. Call Stop to release it.
func New(ctx context.Context, sigs ...os.Signal) chan os.Signal {
	ch := make(chan os.Signal, 1)

	if len(sigs) == 0 {
		sigs = termSignals
	}

	ctxlog.Debug(ctx, "creating signal broker", "signals", sigs)
	signal.Notify(ch, sigs...)

	return ch
}

// Stop stops relaying signals to ch.
func Stop(ch chan os.Signal) {
	signal.Stop(ch)
}

// Watch reads sigCh until the second signal of one kind arrives, which calls
// cancel. It also returns when ctx is done or sigCh is closed.
func Watch(ctx context.Context, sigCh <-chan os.Signal, cancel context.CancelFunc) {
	seen := make(map[os.Signal]struct{})

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}

			logger := ctxlog.Logger(ctx).With("signal", sig.String())

			if _, ok := seen[sig]; ok {
				logger.Warn("second signal received, cancelling")
				cancel()

				return
			}

			logger.Warn("signal received, send again to cancel")

			seen[sig] = struct{}{}
		}
	}
}
