// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package capture provides an in-memory sink for process output. It keeps
// every byte written and tracks the last complete line, which is handy for
// reporting why a process failed without dumping its whole output.
package capture
