// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package subprocess spawns child processes and wires their standard streams
// through a worker pool.
//
// A Command names its argument vector (no shell is involved) and optional
// stream targets. Each supplied target gets a redirection task on the pool:
// one feeding stdin, one draining stdout and, unless stderr shares the stdout
// target, one draining stderr. When Stdout and Stderr are the same writer the
// child is given a single pipe for both, so their output is interleaved as
// the child wrote it. A missing stdin target gives the child an empty input;
// missing output targets discard the output.
//
// A final task on the pool waits for the process, then for the output
// redirections, and only then reports the exit code. Failures inside the
// redirection tasks never change the exit code; they are collected on
// Result.RedirectErr.
//
// Started processes cannot be cancelled and no timeout is applied. Each
// process occupies one pool worker per active stream plus one for the exit
// wait; with a pool smaller than that, a child that blocks writing to an
// unserviced stream will not finish.
package subprocess
