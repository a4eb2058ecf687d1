// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package workerpool provides a bounded, elastic pool of goroutines for
// background I/O tasks.
//
// A pool starts workers on demand up to its size. The work queue is
// unbounded, so Submit never blocks: under sustained overload the queue grows
// instead of rejecting work. Workers that stay idle for the idle timeout exit,
// and are started again when new work arrives.
//
// Every submitted task reports its outcome on its own buffered result
// channel. Callers that treat a task as fire-and-forget simply never read it.
package workerpool
