// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package platform classifies the host operating system and builds
// platform correct command strings from a single canonical form.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var isWindows = Classify(runtime.GOOS)

// Classify reports whether an operating system name denotes Windows.
// The check is a case-insensitive prefix match.
func Classify(osName string) bool {
	return strings.HasPrefix(strings.ToLower(osName), "windows")
}

// IsWindows reports whether the host is Windows. It is decided once at start up.
func IsWindows() bool {
	return isWindows
}

// NativeSeparators rewrites every '/' and '\' in s to the host path separator.
func NativeSeparators(s string) string {
	return withSeparator(s, filepath.Separator)
}

// withSeparator works on bytes so that input which is not valid UTF-8
// passes through unchanged.
func withSeparator(s string, sep byte) string {
	b := []byte(s)

	for i, c := range b {
		if c == '/' || c == '\\' {
			b[i] = sep
		}
	}

	return string(b)
}

// DevNull is the name of the host's null device.
const DevNull = os.DevNull
