// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

var errTask = errors.New("task failed")

func shutdown(t *testing.T, p *Pool) {
	t.Helper()

	p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, p.Wait(ctx), "pool workers did not exit")
}

func TestNew_Defaults(t *testing.T) {
	p := New()
	assert.Equal(t, DefaultSize, p.Size())
	assert.Equal(t, DefaultIdleTimeout, p.idleTimeout)

	assert.Equal(t, DefaultSize, New(WithSize(0)).Size())
	assert.Equal(t, DefaultSize, New(WithSize(-3)).Size())
	assert.Equal(t, 4, New(WithSize(4)).Size())
}

func TestSubmit_MoreTasksThanWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	const (
		size  = 3
		tasks = 50
	)

	p := New(WithSize(size))

	var (
		running    atomic.Int32
		maxRunning atomic.Int32
		done       atomic.Int32
	)

	results := make([]<-chan error, 0, tasks)

	for range tasks {
		ch, err := p.Submit(func() error {
			n := running.Add(1)
			defer running.Add(-1)

			for {
				m := maxRunning.Load()
				if n <= m || maxRunning.CompareAndSwap(m, n) {
					break
				}
			}

			time.Sleep(2 * time.Millisecond)
			done.Add(1)

			return nil
		})
		require.NoError(t, err)

		results = append(results, ch)
	}

	for _, ch := range results {
		require.NoError(t, <-ch)
	}

	assert.Equal(t, int32(tasks), done.Load())
	assert.LessOrEqual(t, maxRunning.Load(), int32(size), "pool ran more tasks at once than its size")
	assert.LessOrEqual(t, p.Stats().Workers, size)

	shutdown(t, p)
}

func TestSubmit_IdleWorkerDoesNotSerialise(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := New(WithSize(2))

	// Leave one worker idle.
	ch, err := p.Submit(func() error { return nil })
	require.NoError(t, err)
	require.NoError(t, <-ch)

	unblock := make(chan struct{})

	waiter, err := p.Submit(func() error {
		select {
		case <-unblock:
			return nil
		case <-time.After(2 * time.Second):
			return errTask
		}
	})
	require.NoError(t, err)

	require.NoError(t, p.Go(func() { close(unblock) }))
	require.NoError(t, <-waiter, "dependent tasks ran on the same worker")

	shutdown(t, p)
}

func TestSubmit_ReportsTaskError(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := New(WithSize(1))

	ch, err := p.Submit(func() error { return errTask })
	require.NoError(t, err)
	require.ErrorIs(t, <-ch, errTask)

	shutdown(t, p)
}

func TestSubmit_RecoversPanic(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := New(WithSize(1))

	ch, err := p.Submit(func() error { panic(errTask) })
	require.NoError(t, err)

	got := <-ch

	var panicErr *TaskPanicError

	require.ErrorAs(t, got, &panicErr)
	require.ErrorIs(t, got, errTask)

	// The worker survives the panic.
	ch, err = p.Submit(func() error { return nil })
	require.NoError(t, err)
	require.NoError(t, <-ch)

	shutdown(t, p)
}

func TestSubmit_NeverBlocks(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := New(WithSize(1))
	release := make(chan struct{})

	_, err := p.Submit(func() error {
		<-release
		return nil
	})
	require.NoError(t, err)

	submitted := make(chan struct{})

	go func() {
		defer close(submitted)

		for range 100 {
			_ = p.Go(func() {})
		}
	}()

	select {
	case <-submitted:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked while the only worker was busy")
	}

	// The first task may or may not have been taken by the worker yet.
	assert.GreaterOrEqual(t, p.Stats().Queued, 100)

	close(release)
	shutdown(t, p)
	assert.Equal(t, 0, p.Stats().Queued)
}

func TestIdleWorkersExit(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := New(WithSize(4), WithIdleTimeout(20*time.Millisecond))

	var wg sync.WaitGroup

	for range 4 {
		wg.Add(1)
		require.NoError(t, p.Go(func() {
			defer wg.Done()
			time.Sleep(5 * time.Millisecond)
		}))
	}

	wg.Wait()

	require.Eventually(t, func() bool {
		return p.Stats().Workers == 0
	}, 2*time.Second, 10*time.Millisecond, "idle workers should time out")

	// Work submitted after every worker has gone still runs.
	ch, err := p.Submit(func() error { return nil })
	require.NoError(t, err)
	require.NoError(t, <-ch)

	shutdown(t, p)
}

func TestClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := New(WithSize(1))
	release := make(chan struct{})

	var ran atomic.Int32

	_, err := p.Submit(func() error {
		<-release
		ran.Add(1)

		return nil
	})
	require.NoError(t, err)

	queued, err := p.Submit(func() error {
		ran.Add(1)
		return nil
	})
	require.NoError(t, err)

	p.Close()
	p.Close()

	_, err = p.Submit(func() error { return nil })
	require.ErrorIs(t, err, ErrPoolClosed)
	require.ErrorIs(t, p.Go(func() {}), ErrPoolClosed)

	close(release)
	require.NoError(t, <-queued, "queued work runs after close")

	shutdown(t, p)
	assert.Equal(t, int32(2), ran.Load())
}

func TestWait_ContextDone(t *testing.T) {
	p := New(WithSize(1))
	release := make(chan struct{})

	require.NoError(t, p.Go(func() { <-release }))
	p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, p.Wait(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, p.Wait(context.Background()))
}

func TestClose_WithoutWorkers(t *testing.T) {
	p := New()
	p.Close()

	require.NoError(t, p.Wait(context.Background()))
}

func TestSubmit_ConcurrentSubmitters(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := New(WithSize(8))

	var count atomic.Int64

	g, _ := errgroup.WithContext(context.Background())

	for range 16 {
		g.Go(func() error {
			for range 100 {
				ch, err := p.Submit(func() error {
					count.Add(1)
					return nil
				})
				if err != nil {
					return err
				}

				if err := <-ch; err != nil {
					return err
				}
			}

			return nil
		})
	}

	require.NoError(t, g.Wait())
	assert.Equal(t, int64(1600), count.Load())

	shutdown(t, p)
}
