// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package bytecopy drains one stream into another in fixed size chunks,
// counting the bytes moved. It is the building block for the file tree
// operations and the subprocess stream redirection.
package bytecopy
