// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the launchkit command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/launchkit"
	"github.com/matt-FFFFFF/launchkit/cmd/launchkit/cmdstate"
	"github.com/matt-FFFFFF/launchkit/cmd/launchkit/settings"
	"github.com/matt-FFFFFF/launchkit/cmd/launchkit/substitute"
	"github.com/matt-FFFFFF/launchkit/cmd/launchkit/system"
	"github.com/matt-FFFFFF/launchkit/cmd/launchkit/tree"
	"github.com/matt-FFFFFF/launchkit/internal/config"
	"github.com/matt-FFFFFF/launchkit/internal/ctxlog"
	"github.com/matt-FFFFFF/launchkit/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

const (
	poolSizeFlag = "pool-size"
	settingsFlag = "settings"
)

// newRootCmd builds the root command. Flags keep parsed state, so each run
// needs a fresh tree.
func newRootCmd() *cli.Command {
	return &cli.Command{
		Commands: []*cli.Command{
			system.NewSystemCmd(),
			tree.NewListCmd(),
			tree.NewCopyCmd(),
			tree.NewDeleteCmd(),
			substitute.NewFilterCmd(),
			substitute.NewTranslateCmd(),
			settings.NewSettingsCmd(),
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    poolSizeFlag,
				Aliases: []string{"p"},
				Usage: "Set the number of worker threads used for process I/O. " +
					"Overrides " + config.ThreadPoolKey + ".",
				Value: 0,
			},
			&cli.StringFlag{
				Name:      settingsFlag,
				Aliases:   []string{"s"},
				Usage:     "YAML settings document, a local path or any go-getter source",
				TakesFile: true,
				OnlyOnce:  true,
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return cmdstate.Setup(ctx, cmd.String(settingsFlag), cmd.Int(poolSizeFlag))
		},
		After: func(ctx context.Context, _ *cli.Command) error {
			cmdstate.Teardown(ctx)
			return nil
		},
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		Name:      "launchkit",
		Description: `launchkit runs programs with their standard streams wired through a
worker pool, copies, lists and deletes directory trees, and expands placeholders in
configuration values.`,
		Usage:     "launchkit system -- echo hello",
		Version:   fmt.Sprintf("%s (commit: %s)", launchkit.Version, launchkit.Commit),
		Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
		Authors: []any{
			"Matt White (matt-FFFFFF)",
		},
		EnableShellCompletion: true,
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)
	defer cancel()

	sigCh := signalbroker.New(ctx)
	defer signalbroker.Stop(sigCh)

	go signalbroker.Watch(ctx, sigCh, cancel)

	err := newRootCmd().Run(ctx, os.Args) // exit codes are handled by the cli framework

	if ctx.Err() != nil {
		ctxlog.Logger(ctx).Error("command terminated due to cancellation", "error", ctx.Err())
		os.Exit(1)
	}

	if err != nil {
		ctxlog.Logger(ctx).Error("command execution failed", "error", err)
		os.Exit(1)
	}
}
