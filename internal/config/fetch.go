// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter/v2"
	"github.com/matt-FFFFFF/launchkit/internal/ctxlog"
)

var (
	// ErrFetch is returned when a settings or variables document cannot be retrieved.
	ErrFetch = errors.New("failed to fetch document")
	// ErrDocumentNotFound is returned with ErrFetch when the source was
	// retrieved but holds no file of the requested name.
	ErrDocumentNotFound = errors.New("document not found in source")
)

const (
	getterSubdirSeparator = "//"
	getterQuerySeparator  = "?"
)

// source is a document location split into what go-getter retrieves and the
// file read from the result.
type source struct {
	dir    string // passed to go-getter in directory mode
	file   string // read from the retrieved directory
	remote bool   // not detected as a local path
}

// Fetch retrieves the document at src. Local paths and any source supported
// by go-getter are accepted, e.g. git::https://example.com/repo//launcher.yaml?ref=main.
// A remote source must name the file in its subdirectory part.
func Fetch(ctx context.Context, src string) ([]byte, error) {
	if src == "" {
		return nil, fmt.Errorf("%w: empty source", ErrFetch)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Join(ErrFetch, err)
	}

	loc, err := parseSource(src, wd)
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "launchkit-getter-*")
	if err != nil {
		return nil, errors.Join(ErrFetch, err)
	}

	defer os.RemoveAll(tmpDir) //nolint:errcheck

	ctxlog.Debug(ctx, "fetching document", "src", loc.dir, "file", loc.file, "remote", loc.remote)

	client := getter.Client{
		DisableSymlinks: true,
	}

	res, err := client.Get(ctx, &getter.Request{
		Src:     loc.dir,
		Dst:     filepath.Join(tmpDir, "g"),
		Pwd:     wd,
		GetMode: getter.ModeDir,
	})
	if err != nil {
		return nil, errors.Join(ErrFetch, err)
	}

	data, err := os.ReadFile(filepath.Join(res.Dst, loc.file))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w: %s in %s", ErrFetch, ErrDocumentNotFound, loc.file, loc.dir)
	}

	if err != nil {
		return nil, errors.Join(ErrFetch, err)
	}

	return data, nil
}

// parseSource decides how src is retrieved. A source go-getter detects as a
// local path is fetched as its parent directory; anything else has to carry
// the file in a "//" subdirectory.
func parseSource(src, wd string) (source, error) {
	local, err := getter.Detect(&getter.Request{Src: src, Pwd: wd}, &getter.FileGetter{})
	if err != nil {
		return source{}, errors.Join(ErrFetch, err)
	}

	if local {
		return source{dir: filepath.Dir(src), file: filepath.Base(src)}, nil
	}

	dir, file := splitGetterURL(src)
	if dir == "" {
		return source{}, fmt.Errorf("%w: no file named in source %s", ErrFetch, src)
	}

	return source{dir: dir, file: file, remote: true}, nil
}

// LoadFrom fetches src and resolves the settings from it. An empty src
// resolves the defaults and the environment only.
func LoadFrom(ctx context.Context, src string) (*Settings, error) {
	if src == "" {
		return Load(nil)
	}

	data, err := Fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	return Load(data)
}

// splitGetterURL splits a go-getter source into the directory source and the
// file named by the last element of its subdirectory. A query such as
// ?ref=main stays on the directory source. Both results are empty if the
// source has no subdirectory naming a file.
func splitGetterURL(src string) (string, string) {
	base, query, hasQuery := strings.Cut(src, getterQuerySeparator)

	i := strings.LastIndex(base, getterSubdirSeparator)
	// The "//" following a scheme does not start a subdirectory.
	if i < 0 || strings.HasSuffix(base[:i], ":") {
		return "", ""
	}

	subdir := base[i+len(getterSubdirSeparator):]
	if subdir == "" || strings.HasSuffix(subdir, "/") {
		return "", ""
	}

	dir := base[:i]
	if parent := path.Dir(subdir); parent != "." {
		dir += getterSubdirSeparator + parent
	}

	if hasQuery {
		dir += getterQuerySeparator + query
	}

	return dir, path.Base(subdir)
}
