// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package bytecopy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ChunkSize is the size of each read from the source stream.
const ChunkSize = 8 * 1024

var (
	// ErrRead is returned when the source stream could not be read.
	ErrRead = errors.New("failed to read from source")
	// ErrWrite is returned when the destination stream could not be written.
	ErrWrite = errors.New("failed to write to destination")
	// ErrBufferOverflow is returned by ReadAllUpToMax when the source holds more than the limit.
	ErrBufferOverflow = errors.New("input exceeds max size")
)

// Copy reads src in ChunkSize pieces until end of stream, writing each piece
// to dst as soon as it is read. It returns the number of bytes written.
// On failure the count reflects what reached dst before the error.
func Copy(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)

	var total int64

	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			total += int64(nw)

			if werr != nil {
				return total, errors.Join(ErrWrite, werr)
			}

			if nw != nr {
				return total, errors.Join(ErrWrite, io.ErrShortWrite)
			}
		}

		if rerr == io.EOF {
			return total, nil
		}

		if rerr != nil {
			return total, errors.Join(ErrRead, rerr)
		}
	}
}

// ReadAll drains src into memory.
func ReadAll(src io.Reader) ([]byte, error) {
	var buf bytes.Buffer

	if _, err := Copy(&buf, src); err != nil {
		return buf.Bytes(), err
	}

	return buf.Bytes(), nil
}

// ReadAllUpToMax drains src into memory, keeping at most maxBytes.
// If src holds more, the first maxBytes are returned with ErrBufferOverflow.
func ReadAllUpToMax(src io.Reader, maxBytes int64) ([]byte, error) {
	var buf bytes.Buffer

	n, err := Copy(&buf, io.LimitReader(src, maxBytes+1))
	if err != nil {
		return buf.Bytes(), err
	}

	if n > maxBytes {
		return buf.Bytes()[:maxBytes], fmt.Errorf("%w: %d bytes", ErrBufferOverflow, maxBytes)
	}

	return buf.Bytes(), nil
}
