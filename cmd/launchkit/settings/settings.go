// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package settings

import (
	"context"
	"errors"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/launchkit/cmd/launchkit/cmdstate"
	"github.com/urfave/cli/v3"
)

var (
	// ErrEncodeSettings is returned when the settings cannot be rendered as YAML.
	ErrEncodeSettings = errors.New("failed to encode settings")
	// ErrWriteSettings is returned when the settings cannot be written to stdout.
	ErrWriteSettings = errors.New("failed to write settings")
)

// NewSettingsCmd builds a command that prints the resolved settings.
func NewSettingsCmd() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show the resolved launcher settings",
		Description: `Show the settings in effect after applying the settings document,
the environment and the command line, as YAML.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			st, err := cmdstate.From(ctx)
			if err != nil {
				return err //nolint:wrapcheck
			}

			out, err := yaml.Marshal(st.Settings)
			if err != nil {
				return errors.Join(ErrEncodeSettings, err)
			}

			if _, err := cmd.Root().Writer.Write(out); err != nil {
				return errors.Join(ErrWriteSettings, err)
			}

			return nil
		},
	}
}
