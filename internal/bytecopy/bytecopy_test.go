// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package bytecopy

import (
	"bytes"
	"crypto/rand"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type failingWriter struct {
	after int
	n     int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n+len(p) > w.after {
		return 0, errBoom
	}

	w.n += len(p)

	return len(p), nil
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	return len(p) / 2, nil
}

func TestCopy_Identity(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{name: "empty", size: 0},
		{name: "one byte", size: 1},
		{name: "below chunk", size: ChunkSize - 1},
		{name: "exact chunk", size: ChunkSize},
		{name: "several chunks", size: 3*ChunkSize + 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make([]byte, tt.size)
			_, err := rand.Read(in)
			require.NoError(t, err)

			var out bytes.Buffer

			n, err := Copy(&out, bytes.NewReader(in))
			require.NoError(t, err)
			assert.Equal(t, int64(tt.size), n)
			assert.Equal(t, in, out.Bytes())
		})
	}
}

func TestCopy_SmallReads(t *testing.T) {
	var out bytes.Buffer

	n, err := Copy(&out, iotest.OneByteReader(strings.NewReader("hello world")))
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)
	assert.Equal(t, "hello world", out.String())
}

func TestCopy_ReadError(t *testing.T) {
	src := io.MultiReader(strings.NewReader("abc"), iotest.ErrReader(errBoom))

	var out bytes.Buffer

	n, err := Copy(&out, src)
	require.ErrorIs(t, err, ErrRead)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, "abc", out.String())
}

func TestCopy_WriteError(t *testing.T) {
	in := bytes.Repeat([]byte("x"), 2*ChunkSize)

	n, err := Copy(&failingWriter{after: ChunkSize}, bytes.NewReader(in))
	require.ErrorIs(t, err, ErrWrite)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, int64(ChunkSize), n)
}

func TestCopy_ShortWrite(t *testing.T) {
	_, err := Copy(shortWriter{}, strings.NewReader("abcd"))
	require.ErrorIs(t, err, ErrWrite)
	require.ErrorIs(t, err, io.ErrShortWrite)
}

func TestReadAll(t *testing.T) {
	data, err := ReadAll(strings.NewReader("line1\nline2\n"))
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\n", string(data))
}

func TestReadAllUpToMax(t *testing.T) {
	data, err := ReadAllUpToMax(strings.NewReader("12345"), 5)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(data))

	data, err = ReadAllUpToMax(strings.NewReader("123456789"), 5)
	require.ErrorIs(t, err, ErrBufferOverflow)
	assert.Equal(t, "12345", string(data))
}
