// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package substitute holds the placeholder commands.
package substitute

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/launchkit/internal/bytecopy"
	"github.com/matt-FFFFFF/launchkit/internal/config"
	"github.com/matt-FFFFFF/launchkit/internal/ctxlog"
	"github.com/matt-FFFFFF/launchkit/internal/placeholder"
	"github.com/urfave/cli/v3"
)

const (
	valueArg    = "value"
	varsFlag    = "vars"
	varFlag     = "var"
	cliExitStr  = ""
	stdinSource = "-"

	// maxInput caps the value read from stdin.
	maxInput = 16 << 20
)

// ErrParseVars is returned when a variables document is not a flat YAML mapping.
var ErrParseVars = errors.New("failed to parse variables")

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:      varsFlag,
			Usage:     "YAML mapping of names to values, a local path or any go-getter source",
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.StringMapFlag{
			Name:  varFlag,
			Usage: "A name=value pair, overriding --vars. Specify multiple times for more pairs.",
		},
	}
}

func arguments() []cli.Argument {
	return []cli.Argument{
		&cli.StringArg{
			Name:      valueArg,
			UsageText: "VALUE",
		},
	}
}

// NewFilterCmd builds a command that expands ${name} placeholders.
func NewFilterCmd() *cli.Command {
	return &cli.Command{
		Name:  "filter",
		Usage: "Expand ${name} placeholders in a value",
		Description: `Replace every ${name} token whose name is defined with its value.
Replacement values are expanded again, unknown tokens are left as they are.
Use - as the value to read it from stdin.`,
		Flags:     flags(),
		Arguments: arguments(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, cmd, placeholder.Filter)
		},
	}
}

// NewTranslateCmd builds a command that replaces literal prefixes.
func NewTranslateCmd() *cli.Command {
	return &cli.Command{
		Name:  "translate",
		Usage: "Replace literal keys in a value, longest key first",
		Description: `Scan the value left to right and replace each position that starts
with a defined key by its value. Replaced text is not scanned again.
Use - as the value to read it from stdin.`,
		Flags:     flags(),
		Arguments: arguments(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, cmd, placeholder.Translate)
		},
	}
}

func run(ctx context.Context, cmd *cli.Command, fn func(string, map[string]string) string) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)

	vars, err := loadVars(ctx, cmd)
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	value, fromStdin, err := readValue(cmd)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to read value: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	out := fn(value, vars)

	if unresolved := placeholder.Tokens(out); len(unresolved) > 0 {
		logger.Warn("unresolved placeholders", "names", unresolved)
	}

	if !fromStdin {
		out += "\n"
	}

	if _, err := fmt.Fprint(cmd.Root().Writer, out); err != nil {
		return cli.Exit("Failed to write result: "+err.Error(), 1)
	}

	return nil
}

func loadVars(ctx context.Context, cmd *cli.Command) (map[string]string, error) {
	vars := make(map[string]string)

	if src := cmd.String(varsFlag); src != "" {
		data, err := config.Fetch(ctx, src)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		if err := yaml.Unmarshal(data, &vars); err != nil {
			return nil, errors.Join(ErrParseVars, err)
		}
	}

	maps.Copy(vars, cmd.StringMap(varFlag))

	return vars, nil
}

func readValue(cmd *cli.Command) (string, bool, error) {
	value := cmd.StringArg(valueArg)
	if value != stdinSource {
		return value, false, nil
	}

	data, err := bytecopy.ReadAllUpToMax(cmd.Root().Reader, maxInput)
	if err != nil {
		return "", true, err //nolint:wrapcheck
	}

	return string(data), true, nil
}
