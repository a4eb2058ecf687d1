// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package filetree

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/launchkit/internal/bytecopy"
	"github.com/matt-FFFFFF/launchkit/internal/ctxlog"
	"github.com/matt-FFFFFF/launchkit/internal/scoped"
	"github.com/spf13/afero"
)

var (
	// ErrFileCopy is returned when a file copy operation fails.
	ErrFileCopy = errors.New("file copy error")
	// ErrFilePath is returned when a path cannot be inspected.
	ErrFilePath = errors.New("file path error")
	// ErrFileDelete is returned for each node that could not be removed.
	ErrFileDelete = errors.New("file delete error")
)

// ownerRWX keeps copied directories writable so their children can be created.
const ownerRWX = 0o700

// FsFactory returns the filesystem used when New is given a nil filesystem.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// Tree exposes the recursive operations for paths on one filesystem.
type Tree struct {
	fs afero.Fs
}

// New returns a Tree operating on fs, or on FsFactory() if fs is nil.
func New(fs afero.Fs) *Tree {
	if fs == nil {
		fs = FsFactory()
	}

	return &Tree{fs: fs}
}

// Fs returns the underlying filesystem.
func (t *Tree) Fs() afero.Fs {
	return t.fs
}

// RecursiveList returns root followed by the recursive listing of each child,
// depth first. Children are visited in name order. A non-directory root
// yields a single element.
func (t *Tree) RecursiveList(ctx context.Context, root string) ([]string, error) {
	info, err := t.fs.Stat(root)
	if err != nil {
		return nil, errors.Join(ErrFilePath, err)
	}

	nodes := []string{root}
	if !info.IsDir() {
		return nodes, nil
	}

	children, err := afero.ReadDir(t.fs, root)
	if err != nil {
		return nil, errors.Join(ErrFilePath, err)
	}

	for _, child := range children {
		sub, err := t.RecursiveList(ctx, filepath.Join(root, child.Name()))
		if err != nil {
			return nil, err
		}

		nodes = append(nodes, sub...)
	}

	ctxlog.Debug(ctx, "listed tree", "root", root, "nodes", len(nodes))

	return nodes, nil
}

// RecursiveDelete removes root and everything below it, children first.
// A missing root is a no-op. A node that cannot be removed does not stop the
// walk; every such failure is collected in the returned *multierror.Error.
func (t *Tree) RecursiveDelete(ctx context.Context, root string) error {
	info, err := t.lstat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return errors.Join(ErrFileDelete, err)
	}

	var result *multierror.Error

	if info.IsDir() {
		children, err := afero.ReadDir(t.fs, root)
		if err != nil {
			result = multierror.Append(result, errors.Join(ErrFileDelete, err))
		}

		for _, child := range children {
			if err := t.RecursiveDelete(ctx, filepath.Join(root, child.Name())); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}

	if err := t.fs.Remove(root); err != nil && !errors.Is(err, fs.ErrNotExist) {
		ctxlog.Debug(ctx, "could not delete node", "path", root, "error", err)
		result = multierror.Append(result, errors.Join(ErrFileDelete, err))
	}

	return result.ErrorOrNil()
}

// RecursiveCopyTo copies root to target on the same filesystem. Directories
// are created and then populated child by child under the same names; files
// are copied byte for byte keeping their permission bits. A target equal to
// root, or inside a directory root, is rejected with ErrFilePath.
func (t *Tree) RecursiveCopyTo(ctx context.Context, root, target string) error {
	if within(root, target) {
		return fmt.Errorf("%w: cannot copy %s into itself at %s", ErrFilePath, root, target)
	}

	return t.copyTree(ctx, t.fs, root, target)
}

// RecursiveCopyBetween copies root from this tree's filesystem to target on dst.
func (t *Tree) RecursiveCopyBetween(ctx context.Context, dst afero.Fs, root, target string) error {
	return t.copyTree(ctx, dst, root, target)
}

func (t *Tree) copyTree(ctx context.Context, dst afero.Fs, root, target string) error {
	info, err := t.fs.Stat(root)
	if err != nil {
		return errors.Join(ErrFilePath, err)
	}

	if !info.IsDir() {
		return t.copyFile(dst, root, target, info.Mode())
	}

	if err := dst.MkdirAll(target, info.Mode().Perm()|ownerRWX); err != nil {
		return errors.Join(ErrFileCopy, err)
	}

	children, err := afero.ReadDir(t.fs, root)
	if err != nil {
		return errors.Join(ErrFilePath, err)
	}

	for _, child := range children {
		name := child.Name()
		if err := t.copyTree(ctx, dst, filepath.Join(root, name), filepath.Join(target, name)); err != nil {
			return err
		}
	}

	ctxlog.Debug(ctx, "copied directory", "from", root, "to", target, "children", len(children))

	return nil
}

func (t *Tree) copyFile(dst afero.Fs, from, to string, mode os.FileMode) error {
	in, err := t.fs.Open(from)
	if err != nil {
		return errors.Join(ErrFileCopy, err)
	}

	return scoped.Use(in, func(in afero.File) error {
		out, err := dst.OpenFile(to, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
		if err != nil {
			return errors.Join(ErrFileCopy, err)
		}

		return scoped.Use(out, func(out afero.File) error {
			if _, err := bytecopy.Copy(out, in); err != nil {
				return errors.Join(ErrFileCopy, err)
			}

			return nil
		})
	})
}

// within reports whether target is root or lies below it.
func within(root, target string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}

	absTarget, err := filepath.Abs(target)
	if err != nil {
		return false
	}

	rel, err := filepath.Rel(absRoot, absTarget)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// lstat does not follow a final symbolic link when the filesystem supports it,
// so deleting a link never descends into its target.
func (t *Tree) lstat(name string) (os.FileInfo, error) {
	if l, ok := t.fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(name)
		return info, err //nolint:wrapcheck
	}

	return t.fs.Stat(name) //nolint:wrapcheck
}
