// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a *slog.Logger in a context.Context.
//
// The default logger writes a human readable line per record to stderr,
// leaving stdout free for the output of launched processes. Its level comes
// from the <EXECUTABLE>_LOG_LEVEL environment variable, so a binary named
// launchkit reads LAUNCHKIT_LOG_LEVEL. Accepted values are DEBUG, INFO, WARN
// and ERROR; anything else selects WARN.
package ctxlog
