// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package subprocess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"reflect"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/launchkit/internal/bytecopy"
	"github.com/matt-FFFFFF/launchkit/internal/capture"
	"github.com/matt-FFFFFF/launchkit/internal/ctxlog"
	"github.com/matt-FFFFFF/launchkit/internal/platform"
	"github.com/matt-FFFFFF/launchkit/internal/scoped"
	"github.com/matt-FFFFFF/launchkit/internal/workerpool"
	"github.com/oklog/ulid/v2"
)

const (
	// tailLength is how much of the last stderr line is logged for a failed process.
	tailLength = 120
	// DefaultWaitDelay bounds how long output is drained after the process exits.
	DefaultWaitDelay = 5 * time.Second
)

var (
	// ErrEmptyCommand is returned when a command has no arguments.
	ErrEmptyCommand = errors.New("command has no arguments")
	// ErrCouldNotStartProcess is returned when the process could not be spawned.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrFailedToCreatePipe is returned when an operating system pipe could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
	// ErrRedirect wraps each failure of a background redirection task.
	ErrRedirect = errors.New("stream redirection failed")
	// ErrWaitDelay is wrapped in Result.RedirectErr when output was still open
	// after the wait delay, usually because a background child inherited it.
	ErrWaitDelay = errors.New("output still open after process exit")
)

// LookPath resolves a command name to an executable. Replaced in tests.
var LookPath = exec.LookPath

// Command describes a process to start.
type Command struct {
	Args   []string          // Argument vector; Args[0] is the program.
	Stdin  io.Reader         // Fed to the child's stdin; nil gives an empty input.
	Stdout io.Writer         // Receives the child's stdout; nil discards it.
	Stderr io.Writer         // Receives the child's stderr; nil discards it, Stdout merges it.
	Dir    string            // Working directory; empty uses the runner's.
	Env    map[string]string // Added to the inherited environment.
}

// Result is the outcome of a finished process.
type Result struct {
	ExitCode    int    // Exit code, -1 if it could not be determined.
	StdOut      []byte // Captured stdout, for System and Launch.
	StdErr      []byte // Captured stderr, for System and Launch.
	Error       error  // Error waiting for the process, if any.
	RedirectErr error  // Failures of the redirection tasks, if any.
}

// Runner starts processes and runs their redirection tasks on a worker pool.
type Runner struct {
	pool      *workerpool.Pool
	dir       string
	env       map[string]string
	waitDelay time.Duration
}

// Option configures a Runner.
type Option func(r *Runner)

// WithDir sets the default working directory.
func WithDir(dir string) Option {
	return func(r *Runner) {
		r.dir = dir
	}
}

// WithEnv sets environment variables added to every command.
func WithEnv(env map[string]string) Option {
	return func(r *Runner) {
		r.env = env
	}
}

// WithWaitDelay sets how long the output of an exited process is drained
// before its pipes are closed. Zero waits for every writer to close them.
func WithWaitDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.waitDelay = d
	}
}

// New creates a Runner using pool. A nil pool gets a default sized pool of its own.
func New(pool *workerpool.Pool, opts ...Option) *Runner {
	if pool == nil {
		pool = workerpool.New()
	}

	r := &Runner{pool: pool, waitDelay: DefaultWaitDelay}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Pool returns the worker pool used by the runner.
func (r *Runner) Pool() *workerpool.Pool {
	return r.pool
}

// Start spawns c and returns once the process is running.
func (r *Runner) Start(ctx context.Context, c *Command) (*Process, error) {
	return r.start(ctx, c, nil, nil)
}

// Run spawns c and blocks until it has exited and its output is drained.
func (r *Runner) Run(ctx context.Context, c *Command) (*Result, error) {
	p, err := r.Start(ctx, c)
	if err != nil {
		return nil, err
	}

	return p.Wait(), nil
}

// System runs args to completion, capturing stdout and stderr in memory.
// A nil stdin gives the child an empty input.
func (r *Runner) System(ctx context.Context, args []string, stdin []byte) (*Result, error) {
	p, err := r.launch(ctx, args, stdin, nil)
	if err != nil {
		return nil, err
	}

	return p.Wait(), nil
}

// Launch starts args and returns immediately. Once the process has exited and
// its output is captured, the Process is done and onExit is called on a pool
// worker. A panic in onExit is logged and does not affect the Process.
func (r *Runner) Launch(ctx context.Context, args []string, stdin []byte, onExit func(*Result)) (*Process, error) {
	return r.launch(ctx, args, stdin, onExit)
}

func (r *Runner) launch(ctx context.Context, args []string, stdin []byte, onExit func(*Result)) (*Process, error) {
	stdout, stderr := capture.New(), capture.New()

	c := &Command{Args: args, Stdout: stdout, Stderr: stderr}
	if stdin != nil {
		c.Stdin = bytes.NewReader(stdin)
	}

	fill := func(res *Result) {
		res.StdOut = stdout.Bytes()
		res.StdErr = stderr.Bytes()

		if res.ExitCode != 0 {
			ctxlog.Debug(ctx, "process failed", "exitCode", res.ExitCode, "stderrTail", stderr.LastLine(tailLength))
		}
	}

	return r.start(ctx, c, fill, onExit)
}

// redirect is a background copy between the child and a caller stream.
type redirect struct {
	name   string
	task   workerpool.Task
	joined bool // exit is reported only after joined redirects finish
}

// start spawns c. Once it has exited, fill completes the result before the
// Process is done, and onExit is then called with it.
func (r *Runner) start(ctx context.Context, c *Command, fill, onExit func(*Result)) (*Process, error) {
	if c == nil || len(c.Args) == 0 {
		return nil, ErrEmptyCommand
	}

	path, err := LookPath(c.Args[0])
	if err != nil {
		return nil, errors.Join(ErrCouldNotStartProcess, err)
	}

	p := newProcess(c.Args)
	logger := ctxlog.Logger(ctx).With("launchID", p.ID(), "path", path)

	s := &streams{}

	redirects, err := s.wire(c)
	if err != nil {
		s.closeAll()
		return nil, err
	}

	logger.Debug("starting process", "args", c.Args, "redirects", len(redirects))

	ps, err := os.StartProcess(path, c.Args, &os.ProcAttr{
		Dir:   r.workDir(c),
		Env:   r.environ(c),
		Files: s.child[:],
	})

	// The child holds its own copies now.
	s.closeChild()

	if err != nil {
		s.closeParent()
		return nil, errors.Join(ErrCouldNotStartProcess, err)
	}

	p.pid = ps.Pid
	logger = logger.With("pid", ps.Pid)
	logger.Debug("process started")

	pending := make([]pendingRedirect, 0, len(redirects))

	for _, rd := range redirects {
		ch, err := r.pool.Submit(rd.task)
		if err != nil {
			abort(logger, ps)
			s.closeParent()

			return nil, errors.Join(ErrCouldNotStartProcess, err)
		}

		pending = append(pending, pendingRedirect{redirect: rd, result: ch})
	}

	// Submitted last so that, with FIFO dispatch, every redirection task is
	// already running or finished by the time this one blocks on them.
	_, err = r.pool.Submit(func() error {
		state, werr := ps.Wait()

		res := &Result{
			ExitCode:    exitCode(state, werr),
			Error:       werr,
			RedirectErr: collect(pending, r.waitDelay, s.closeParent),
		}

		logger.Debug("process finished", "exitCode", res.ExitCode, "redirectErr", res.RedirectErr)

		if fill != nil {
			fill(res)
		}

		p.finish(res)
		notify(logger, onExit, res)

		return werr
	})
	if err != nil {
		// Redirection tasks are queued, so the pipes are theirs to close.
		abort(logger, ps)
		return nil, errors.Join(ErrCouldNotStartProcess, err)
	}

	return p, nil
}

func (r *Runner) workDir(c *Command) string {
	if c.Dir != "" {
		return c.Dir
	}

	return r.dir
}

// environ returns the inherited environment with the runner's variables and
// then the command's variables taking precedence.
func (r *Runner) environ(c *Command) []string {
	overrides := make(map[string]string, len(r.env)+len(c.Env))
	maps.Copy(overrides, r.env)
	maps.Copy(overrides, c.Env)

	inherited := os.Environ()
	env := make([]string, 0, len(inherited)+len(overrides))

	for _, kv := range inherited {
		k, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[k]; ok {
			continue
		}

		env = append(env, kv)
	}

	for k, v := range overrides {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	return env
}

type pendingRedirect struct {
	redirect
	result <-chan error
}

// collect waits for the joined redirections and gathers every failure known
// at this point. The stdin feed is not joined: once the child has exited
// there is nothing left to feed, and its source may never reach EOF.
//
// A descendant of the child can hold its output pipes open long after the
// child exits. If the joined redirections are still running after delay,
// release closes the parent's ends so that they return.
func collect(pending []pendingRedirect, delay time.Duration, release func()) error {
	var (
		result  *multierror.Error
		timeout <-chan time.Time
		expired bool
	)

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		timeout = timer.C
	}

	for _, pr := range pending {
		var err error

		switch {
		case !pr.joined:
			select {
			case err = <-pr.result:
			default:
			}
		case expired:
			err = <-pr.result
		default:
			select {
			case err = <-pr.result:
			case <-timeout:
				expired = true
				release()

				result = multierror.Append(result, fmt.Errorf("%w: %w after %s", ErrRedirect, ErrWaitDelay, delay))
				err = <-pr.result
			}
		}

		// Reads cut short by release are covered by ErrWaitDelay.
		if expired && errors.Is(err, os.ErrClosed) {
			err = nil
		}

		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: %s: %w", ErrRedirect, pr.name, err))
		}
	}

	return result.ErrorOrNil()
}

// notify calls onExit, logging rather than propagating a panic.
func notify(logger *slog.Logger, onExit func(*Result), res *Result) {
	if onExit == nil {
		return
	}

	defer func() {
		if v := recover(); v != nil {
			logger.Error("exit callback panic", "panic", v)
		}
	}()

	onExit(res)
}

func exitCode(state *os.ProcessState, err error) int {
	if err != nil || state == nil {
		return -1
	}

	return state.ExitCode()
}

// abort kills a process that cannot be serviced and reaps it.
func abort(logger *slog.Logger, ps *os.Process) {
	if err := ps.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		logger.Error("process kill error", "error", err)
	}

	_, _ = ps.Wait()
}

// streams holds the files handed to the child and the parent's ends of its pipes.
type streams struct {
	child  [3]*os.File
	parent []io.Closer
}

// wire creates the child's standard streams for c and returns the
// redirection tasks that service them.
func (s *streams) wire(c *Command) ([]redirect, error) {
	var redirects []redirect

	// stdin: always a pipe, so a child without input reads EOF.
	rIn, wIn, err := os.Pipe()
	if err != nil {
		return nil, errors.Join(ErrFailedToCreatePipe, err)
	}

	s.child[0] = rIn

	if c.Stdin != nil {
		s.parent = append(s.parent, wIn)
		redirects = append(redirects, redirect{name: "stdin", task: feed(c.Stdin, wIn)})
	} else {
		scoped.Close(wIn)
	}

	merged := sameWriter(c.Stdout, c.Stderr)

	if c.Stdout != nil {
		rd, err := s.drain(1, "stdout", c.Stdout)
		if err != nil {
			return nil, err
		}

		redirects = append(redirects, rd)
	} else if s.child[1], err = devNull(); err != nil {
		return nil, err
	}

	switch {
	case merged:
		s.child[2] = s.child[1]
	case c.Stderr != nil:
		rd, err := s.drain(2, "stderr", c.Stderr)
		if err != nil {
			return nil, err
		}

		redirects = append(redirects, rd)
	default:
		if s.child[2], err = devNull(); err != nil {
			return nil, err
		}
	}

	return redirects, nil
}

func (s *streams) drain(fd int, name string, dst io.Writer) (redirect, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return redirect{}, errors.Join(ErrFailedToCreatePipe, err)
	}

	s.child[fd] = w
	s.parent = append(s.parent, r)

	return redirect{
		name:   name,
		joined: true,
		task: func() error {
			return scoped.Use(r, func(r *os.File) error {
				_, err := bytecopy.Copy(dst, r)
				return err
			})
		},
	}, nil
}

func feed(src io.Reader, w *os.File) workerpool.Task {
	return func() error {
		return scoped.Use(w, func(w *os.File) error {
			_, err := bytecopy.Copy(w, src)
			return err
		})
	}
}

func devNull() (*os.File, error) {
	f, err := os.OpenFile(platform.DevNull, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Join(ErrFailedToCreatePipe, err)
	}

	return f, nil
}

func (s *streams) closeChild() {
	for i, f := range s.child {
		if f == nil || (i == 2 && f == s.child[1]) {
			continue
		}

		scoped.Close(f)
	}
}

func (s *streams) closeParent() {
	scoped.CloseAll(s.parent...)
}

func (s *streams) closeAll() {
	s.closeChild()
	s.closeParent()
}

// sameWriter reports whether a and b are the same non-nil writer.
func sameWriter(a, b io.Writer) bool {
	if a == nil || b == nil {
		return false
	}

	t := reflect.TypeOf(a)
	if t != reflect.TypeOf(b) || !t.Comparable() {
		return false
	}

	return a == b
}

// Process is a running child started by a Runner.
type Process struct {
	id     ulid.ULID
	pid    int
	args   []string
	done   chan struct{}
	result *Result
}

func newProcess(args []string) *Process {
	return &Process{
		id:   ulid.Make(),
		args: args,
		done: make(chan struct{}),
	}
}

// ID returns a unique identifier for this launch, used in log records.
func (p *Process) ID() string {
	return p.id.String()
}

// Pid returns the operating system process id.
func (p *Process) Pid() int {
	return p.pid
}

// Args returns the argument vector the process was started with.
func (p *Process) Args() []string {
	return p.args
}

// Done is closed once the process has exited and its output is drained, or
// the wait delay has passed. It is closed before any exit callback runs.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until Done and returns the result.
func (p *Process) Wait() *Result {
	<-p.done
	return p.result
}

func (p *Process) finish(res *Result) {
	p.result = res
	close(p.done)
}
