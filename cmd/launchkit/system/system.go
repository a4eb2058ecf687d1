// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package system

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/launchkit/cmd/launchkit/cmdstate"
	"github.com/matt-FFFFFF/launchkit/internal/bytecopy"
	"github.com/matt-FFFFFF/launchkit/internal/capture"
	"github.com/matt-FFFFFF/launchkit/internal/ctxlog"
	"github.com/matt-FFFFFF/launchkit/internal/scoped"
	"github.com/matt-FFFFFF/launchkit/internal/subprocess"
	"github.com/urfave/cli/v3"
)

const (
	inputFlag   = "input"
	mergeFlag   = "merge"
	quietFlag   = "quiet"
	cliExitStr  = ""
	stdinSource = "-"

	// maxInput caps the stdin document held in memory.
	maxInput = 64 << 20

	// interruptedExitCode is returned when waiting is cancelled by a signal.
	interruptedExitCode = 130
)

var (
	succeeded = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failed    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	detail    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// NewSystemCmd builds a command that runs a program to completion and relays its output.
func NewSystemCmd() *cli.Command {
	return &cli.Command{
		Name:      "system",
		Usage:     "Run a program and wait for it to finish",
		ArgsUsage: "-- PROGRAM [ARGS...]",
		Description: `Run a program directly, without a shell, and wait for it to exit.
Its stdout and stderr are captured and written to this command's stdout and stderr.
The exit code of the program becomes the exit code of this command.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      inputFlag,
				Aliases:   []string{"i"},
				Usage:     "File fed to the program's stdin, - reads this command's stdin",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.BoolFlag{
				Name:        mergeFlag,
				Usage:       "Merge the program's stderr into its stdout",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.BoolFlag{
				Name:        quietFlag,
				Aliases:     []string{"q"},
				Usage:       "Do not print the summary line",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
		},
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)

	args := cmd.Args().Slice()
	if len(args) == 0 {
		logger.Error("Please provide a program to run.")
		return cli.Exit(cliExitStr, 1)
	}

	st, err := cmdstate.From(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	stdin, err := readInput(cmd)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to read input: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	stdout, stderr := capture.New(), capture.New()

	c := &subprocess.Command{
		Args:   args,
		Stdout: stdout,
		Stderr: stderr,
	}

	if cmd.Bool(mergeFlag) {
		c.Stderr = stdout
	}

	if stdin != nil {
		c.Stdin = bytes.NewReader(stdin)
	}

	start := time.Now()

	p, err := st.Runner.Start(ctx, c)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to start %s: %s", args[0], err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	select {
	case <-p.Done():
	case <-ctx.Done():
		logger.Error("Stopped waiting for the program, it may still be running.", "pid", p.Pid())
		return cli.Exit(cliExitStr, interruptedExitCode)
	}

	res := p.Wait()
	root := cmd.Root()

	_, _ = root.Writer.Write(stdout.Bytes())
	_, _ = root.ErrWriter.Write(stderr.Bytes())

	if res.RedirectErr != nil {
		logger.Warn("Output may be incomplete.", "error", res.RedirectErr)
	}

	if !cmd.Bool(quietFlag) {
		fmt.Fprintln(root.ErrWriter, summary(p, res, time.Since(start))) //nolint:errcheck
	}

	switch {
	case res.ExitCode == 0:
		return nil
	case res.ExitCode < 0:
		return cli.Exit(cliExitStr, 1)
	default:
		return cli.Exit(cliExitStr, res.ExitCode)
	}
}

func readInput(cmd *cli.Command) ([]byte, error) {
	src := cmd.String(inputFlag)

	switch src {
	case "":
		return nil, nil
	case stdinSource:
		return bytecopy.ReadAllUpToMax(cmd.Root().Reader, maxInput)
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return scoped.UseValue(f, func(f *os.File) ([]byte, error) {
		return bytecopy.ReadAllUpToMax(f, maxInput)
	})
}

func summary(p *subprocess.Process, res *subprocess.Result, elapsed time.Duration) string {
	status := succeeded.Render(fmt.Sprintf("✔ exit %d", res.ExitCode))
	if res.ExitCode != 0 {
		status = failed.Render(fmt.Sprintf("✘ exit %d", res.ExitCode))
	}

	return status + " " + detail.Render(fmt.Sprintf("pid %d, %s, %s", p.Pid(), elapsed.Round(time.Millisecond), p.ID()))
}
