// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config resolves the process wide launcher settings.
//
// Values are layered from lowest to highest priority: built in defaults, an
// optional YAML document keyed by setting name, and environment variables.
// The environment variable for a setting is its name upper cased with dots
// replaced by underscores, so launcher.thread.pool is read from
// LAUNCHER_THREAD_POOL.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/launchkit/internal/workerpool"
)

const (
	// ThreadPoolKey names the worker pool size setting.
	ThreadPoolKey = "launcher.thread.pool"
	// CharsetKey names the text charset setting.
	CharsetKey = "launcher.charset"
	// DefaultCharset is the only supported text charset.
	DefaultCharset = "UTF-8"
)

var (
	// ErrInvalidThreadPool is returned when the pool size is not a positive integer.
	ErrInvalidThreadPool = errors.New("invalid " + ThreadPoolKey)
	// ErrUnsupportedCharset is returned for any charset other than UTF-8.
	ErrUnsupportedCharset = errors.New("unsupported " + CharsetKey)
	// ErrParseSettings is returned when the YAML document cannot be decoded.
	ErrParseSettings = errors.New("failed to parse settings")
)

// LookupEnv reads environment variables. Replaced in tests.
var LookupEnv = os.LookupEnv

// Settings are the launcher settings.
type Settings struct {
	ThreadPool int    `yaml:"launcher.thread.pool"`
	Charset    string `yaml:"launcher.charset"`
}

// Default returns the built in settings.
func Default() *Settings {
	return &Settings{
		ThreadPool: workerpool.DefaultSize,
		Charset:    DefaultCharset,
	}
}

// EnvName returns the environment variable consulted for a setting key.
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// FromYAML overlays the settings present in data onto the defaults.
func FromYAML(data []byte) (*Settings, error) {
	s := Default()

	if len(data) == 0 {
		return s, nil
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errors.Join(ErrParseSettings, err)
	}

	return s, nil
}

// Load resolves the settings from defaults, the optional YAML document and
// the environment, then validates them.
func Load(data []byte) (*Settings, error) {
	s, err := FromYAML(data)
	if err != nil {
		return nil, err
	}

	if v, ok := LookupEnv(EnvName(ThreadPoolKey)); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, errors.Join(ErrInvalidThreadPool, err)
		}

		s.ThreadPool = n
	}

	if v, ok := LookupEnv(EnvName(CharsetKey)); ok && strings.TrimSpace(v) != "" {
		s.Charset = strings.TrimSpace(v)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate checks the settings and normalises the charset name.
func (s *Settings) Validate() error {
	if s.ThreadPool < 1 {
		return fmt.Errorf("%w: %d, must be at least 1", ErrInvalidThreadPool, s.ThreadPool)
	}

	switch strings.ToUpper(strings.ReplaceAll(s.Charset, "-", "")) {
	case "UTF8", "":
		s.Charset = DefaultCharset
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedCharset, s.Charset)
	}

	return nil
}

// PoolOptions returns the worker pool options implied by the settings.
func (s *Settings) PoolOptions() []workerpool.Option {
	return []workerpool.Option{workerpool.WithSize(s.ThreadPool)}
}
