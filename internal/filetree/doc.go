// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package filetree provides recursive list, delete and copy operations over a
// directory tree held in an afero filesystem.
//
// Traversal is plain recursion over the directory entries. Symbolic link
// cycles are not detected; a tree containing one will not terminate.
package filetree
