// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package color wraps strings in ANSI escape codes for the console log handler
// and the command-line output. Colour is disabled when NO_COLOR is set, forced
// when FORCE_COLOR is set, and otherwise follows whether stderr is a terminal.
package color
