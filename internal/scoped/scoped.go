// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package scoped runs an operation against a closable resource and releases
// the resource on every exit path. Release is best effort: a Close error
// never masks the outcome of the operation.
package scoped

import (
	"io"
	"reflect"
)

// Use calls fn with resource and closes resource afterwards, including when
// fn panics. The error returned is fn's error.
func Use[T io.Closer](resource T, fn func(T) error) error {
	defer Close(resource)

	return fn(resource)
}

// UseValue is Use for operations that produce a value.
func UseValue[T io.Closer, V any](resource T, fn func(T) (V, error)) (V, error) {
	defer Close(resource)

	return fn(resource)
}

// Close closes c and discards any error. A nil closer is ignored.
func Close(c io.Closer) {
	if isNil(c) {
		return
	}

	_ = c.Close()
}

// CloseAll closes each closer in order, discarding errors.
func CloseAll(cs ...io.Closer) {
	for _, c := range cs {
		Close(c)
	}
}

func isNil(c io.Closer) bool {
	if c == nil {
		return true
	}

	v := reflect.ValueOf(c)
	switch v.Kind() { //nolint:exhaustive
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
