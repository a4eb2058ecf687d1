// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errWrite = errors.New("write failed")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errWrite
}

func newTestLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	return slog.New(NewPrettyHandler(
		&slog.HandlerOptions{Level: level},
		WithDestinationWriter(buf),
		WithColour(false),
	))
}

func TestPrettyHandler_Line(t *testing.T) {
	var buf bytes.Buffer

	newTestLogger(&buf, slog.LevelInfo).Info("process finished", "pid", 42, "exitCode", 0)

	line := buf.String()
	require.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, "INFO: process finished ")
	assert.Contains(t, line, `"pid": 42`)
	assert.Contains(t, line, `"exitCode": 0`)
	assert.NotContains(t, line, `"msg"`)
	assert.NotContains(t, line, "\033[")
}

func TestPrettyHandler_NoAttrs(t *testing.T) {
	var buf bytes.Buffer

	newTestLogger(&buf, slog.LevelInfo).Warn("bare")

	assert.True(t, strings.HasSuffix(buf.String(), "WARN: bare\n"), buf.String())
}

func TestPrettyHandler_Level(t *testing.T) {
	var buf bytes.Buffer

	logger := newTestLogger(&buf, slog.LevelWarn)
	logger.Debug("hidden")
	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Error("shown")
	assert.Contains(t, buf.String(), "ERROR: shown")
}

func TestPrettyHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer

	logger := newTestLogger(&buf, slog.LevelDebug).
		With("component", "runner").
		WithGroup("proc")
	logger.Debug("started", "pid", 7)

	line := buf.String()
	assert.Contains(t, line, `"component": "runner"`)
	assert.Contains(t, line, `"proc": {`)
	assert.Contains(t, line, `"pid": 7`)
}

func TestPrettyHandler_WriteError(t *testing.T) {
	h := NewPrettyHandler(nil, WithDestinationWriter(failingWriter{}), WithColour(false))

	err := h.Handle(t.Context(), slog.Record{Message: "x", Level: slog.LevelError})
	require.ErrorIs(t, err, ErrIoWrite)
	require.ErrorIs(t, err, errWrite)
}

func TestPrettyHandler_Concurrent(t *testing.T) {
	var (
		buf bytes.Buffer
		mu  sync.Mutex
	)

	w := writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()

		return buf.Write(p)
	})

	logger := slog.New(NewPrettyHandler(
		&slog.HandlerOptions{Level: slog.LevelInfo},
		WithDestinationWriter(w),
		WithColour(false),
	))

	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()
			logger.With("worker", i).Info("tick", "n", i)
		}()
	}

	wg.Wait()

	assert.Len(t, strings.Split(strings.TrimSpace(buf.String()), "\n"), 20)
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) {
	return f(p)
}
