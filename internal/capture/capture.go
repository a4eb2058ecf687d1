// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package capture

import (
	"bytes"
	"io"
	"sync"
	"unicode/utf8"
)

var _ io.Writer = (*Buffer)(nil)

// Buffer is an io.Writer that stores everything written to it.
// It is safe for concurrent use.
type Buffer struct {
	mu       sync.RWMutex
	full     bytes.Buffer
	lastLine []byte
	partial  []byte
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

// Write implements io.Writer. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.full.Write(p)
	b.track(p)

	return len(p), nil
}

// track updates the last complete line. Must be called with the write lock held.
func (b *Buffer) track(p []byte) {
	i := bytes.LastIndexByte(p, '\n')
	if i < 0 {
		b.partial = append(b.partial, p...)
		return
	}

	// The line ending at i starts after the previous newline in p, or
	// continues the pending partial line if p holds no earlier newline.
	head := p[:i]
	if j := bytes.LastIndexByte(head, '\n'); j >= 0 {
		b.lastLine = append(b.lastLine[:0], head[j+1:]...)
	} else {
		b.lastLine = append(append(b.lastLine[:0], b.partial...), head...)
	}

	b.partial = append(b.partial[:0], p[i+1:]...)
}

// Bytes returns a copy of everything written so far.
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return bytes.Clone(b.full.Bytes())
}

// String returns everything written so far.
func (b *Buffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.full.String()
}

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.full.Len()
}

// LastLine returns the last complete line without its newline, truncated to
// at most maxLength bytes with a trailing "..." when maxLength is greater than
// three. Truncation never splits a UTF-8 encoded rune.
func (b *Buffer) LastLine(maxLength int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	line := b.lastLine
	if maxLength > 3 && len(line) > maxLength {
		cut := maxLength - 3

		// Back up to a rune boundary so that a multi-byte rune is not split.
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}

		return string(line[:cut]) + "..."
	}

	return string(line)
}

// Partial returns the data written after the last newline.
func (b *Buffer) Partial() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return string(b.partial)
}

// Reset discards everything written.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.full.Reset()
	b.lastLine = b.lastLine[:0]
	b.partial = b.partial[:0]
}
