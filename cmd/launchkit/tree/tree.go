// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tree holds the file tree commands.
package tree

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/launchkit/internal/ctxlog"
	"github.com/matt-FFFFFF/launchkit/internal/filetree"
	"github.com/matt-FFFFFF/launchkit/internal/platform"
	"github.com/urfave/cli/v3"
)

const (
	pathArg    = "path"
	sourceArg  = "source"
	targetArg  = "target"
	cliExitStr = ""
)

// NewListCmd builds a command that prints every path below a directory, the directory first.
func NewListCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List a directory tree recursively",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      pathArg,
				UsageText: "PATH",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
		},
		Action: listAction,
	}
}

// NewCopyCmd builds a command that copies a directory tree or a file.
func NewCopyCmd() *cli.Command {
	return &cli.Command{
		Name:  "copy",
		Usage: "Copy a directory tree recursively",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      sourceArg,
				UsageText: "SOURCE",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
			&cli.StringArg{
				Name:      targetArg,
				UsageText: " TARGET",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
		},
		Action: copyAction,
	}
}

// NewDeleteCmd builds a command that removes a directory tree. Failures on single entries do not stop it.
func NewDeleteCmd() *cli.Command {
	return &cli.Command{
		Name:  "delete",
		Usage: "Delete a directory tree recursively",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      pathArg,
				UsageText: "PATH",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
		},
		Action: deleteAction,
	}
}

func listAction(ctx context.Context, cmd *cli.Command) error {
	root := platform.NativeSeparators(cmd.StringArg(pathArg))
	if root == "" {
		return cli.Exit("Please provide a path to list", 1)
	}

	paths, err := filetree.New(nil).RecursiveList(ctx, root)
	if err != nil {
		ctxlog.Error(ctx, fmt.Sprintf("Failed to list %s: %s", root, err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	w := cmd.Root().Writer
	for _, p := range paths {
		fmt.Fprintln(w, p) //nolint:errcheck
	}

	return nil
}

func copyAction(ctx context.Context, cmd *cli.Command) error {
	source := platform.NativeSeparators(cmd.StringArg(sourceArg))
	target := platform.NativeSeparators(cmd.StringArg(targetArg))

	if source == "" || target == "" {
		return cli.Exit("Please provide a source and a target", 1)
	}

	if err := filetree.New(nil).RecursiveCopyTo(ctx, source, target); err != nil {
		ctxlog.Error(ctx, fmt.Sprintf("Failed to copy %s to %s: %s", source, target, err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	return nil
}

func deleteAction(ctx context.Context, cmd *cli.Command) error {
	root := platform.NativeSeparators(cmd.StringArg(pathArg))
	if root == "" {
		return cli.Exit("Please provide a path to delete", 1)
	}

	err := filetree.New(nil).RecursiveDelete(ctx, root)
	if err == nil {
		return nil
	}

	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			ctxlog.Warn(ctx, "entry not deleted", "error", e)
		}
	}

	ctxlog.Error(ctx, fmt.Sprintf("Some entries below %s could not be deleted", root))

	return cli.Exit(cliExitStr, 1)
}
