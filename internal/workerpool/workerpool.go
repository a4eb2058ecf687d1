// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/matt-FFFFFF/launchkit/internal/ctxlog"
)

const (
	// DefaultSize is the number of workers used when no size is configured.
	DefaultSize = 16
	// DefaultIdleTimeout is how long a worker waits for work before exiting.
	DefaultIdleTimeout = 30 * time.Second
)

// ErrPoolClosed is returned when work is submitted to a closed pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a unit of background work.
type Task func() error

// TaskPanicError is delivered on a task's result channel when the task panics.
type TaskPanicError struct {
	Value any
}

// Error implements the error interface for TaskPanicError.
func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("worker pool task panic: %v", e.Value)
}

// Unwrap returns the panic value if it was an error.
func (e *TaskPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}

	return nil
}

// Stats is a point in time view of the pool.
type Stats struct {
	Size    int // Maximum number of workers
	Workers int // Workers currently alive
	Idle    int // Alive workers waiting for work
	Queued  int // Tasks waiting for a worker
}

type job struct {
	task   Task
	result chan error
}

// Pool is a bounded pool of worker goroutines with an unbounded queue.
// The zero value is not usable; create pools with New.
type Pool struct {
	size        int
	idleTimeout time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	queue   []job
	workers int
	started int
	idle    int
	closed  bool
	wake    chan struct{}
	exited  chan struct{}
}

// Option configures a Pool.
type Option func(p *Pool)

// WithSize sets the maximum number of workers. Values below one select DefaultSize.
func WithSize(n int) Option {
	return func(p *Pool) {
		if n < 1 {
			n = DefaultSize
		}

		p.size = n
	}
}

// WithIdleTimeout sets how long an idle worker lingers before exiting.
func WithIdleTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.idleTimeout = d
		}
	}
}

// WithLogger sets the logger used for worker lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a pool. No workers are started until work is submitted.
func New(opts ...Option) *Pool {
	p := &Pool{
		size:        DefaultSize,
		idleTimeout: DefaultIdleTimeout,
		logger:      ctxlog.DefaultLogger,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.wake = make(chan struct{}, p.size)
	p.exited = make(chan struct{})

	return p
}

// Size returns the maximum number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Submit queues task and returns a channel that receives its result exactly
// once. It never blocks.
func (p *Pool) Submit(task Task) (<-chan error, error) {
	result := make(chan error, 1)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	p.queue = append(p.queue, job{task: task, result: result})

	// Below size every task gets a fresh worker, even with idle ones around,
	// so tasks that wait on each other never share a worker.
	switch {
	case p.workers < p.size:
		p.workers++
		p.started++
		go p.work(p.started)
	case p.idle > 0:
		select {
		case p.wake <- struct{}{}:
		default:
			// Enough wake tokens are pending already.
		}
	}

	return result, nil
}

// Go submits fn and discards its outcome.
func (p *Pool) Go(fn func()) error {
	_, err := p.Submit(func() error {
		fn()
		return nil
	})

	return err
}

// Close stops the pool accepting work. Queued tasks still run.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	close(p.wake)

	if p.workers == 0 {
		close(p.exited)
	}
}

// Wait blocks until a closed pool has no workers left, or ctx is done.
func (p *Pool) Wait(ctx context.Context) error {
	select {
	case <-p.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck
	}
}

// Stats reports the current state of the pool.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Size:    p.size,
		Workers: p.workers,
		Idle:    p.idle,
		Queued:  len(p.queue),
	}
}

func (p *Pool) work(id int) {
	logger := p.logger.With("worker", id)
	logger.Debug("worker started")

	timer := time.NewTimer(p.idleTimeout)
	defer timer.Stop()

	for {
		p.mu.Lock()

		if len(p.queue) > 0 {
			j := p.queue[0]
			p.queue[0] = job{}
			p.queue = p.queue[1:]
			p.mu.Unlock()

			j.result <- run(j.task)

			continue
		}

		if p.closed {
			p.retire()
			p.mu.Unlock()
			logger.Debug("worker stopped, pool closed")

			return
		}

		p.idle++
		p.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}

		timer.Reset(p.idleTimeout)

		select {
		case <-p.wake:
			p.mu.Lock()
			p.idle--
			p.mu.Unlock()

		case <-timer.C:
			p.mu.Lock()
			p.idle--

			if len(p.queue) == 0 {
				p.retire()
				p.mu.Unlock()
				logger.Debug("worker stopped, idle timeout", "idleTimeout", p.idleTimeout)

				return
			}

			p.mu.Unlock()
		}
	}
}

// retire removes the calling worker. Must be called with the lock held.
func (p *Pool) retire() {
	p.workers--

	if p.closed && p.workers == 0 {
		close(p.exited)
	}
}

func run(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TaskPanicError{Value: r}
		}
	}()

	return task()
}
