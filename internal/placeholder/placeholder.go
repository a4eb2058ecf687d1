// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package placeholder substitutes values into configuration strings.
//
// Filter expands ${name} tokens from a mapping. Translate performs literal
// prefix replacement for every key of a mapping. Neither modifies its input,
// and a name missing from the mapping is never an error: the token is left in
// the output as written.
package placeholder

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
)

// MaxExpansions bounds the substitutions performed by one Filter call.
// A mapping whose values reintroduce their own tokens would otherwise never
// terminate; once the bound is reached the remaining tokens are left as is.
const MaxExpansions = 4096

// tokenPattern matches ${name}, where name is one or more characters other than '}'.
var tokenPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Filter replaces each ${name} token whose name is in mapping with the mapped
// value. After a replacement the scan starts again from the beginning of the
// string, so values may themselves contain tokens. Tokens with unknown names
// are skipped and kept verbatim.
func Filter(value string, mapping map[string]string) string {
	pos := 0
	expansions := 0

	for pos < len(value) && expansions < MaxExpansions {
		loc := tokenPattern.FindStringSubmatchIndex(value[pos:])
		if loc == nil {
			break
		}

		start, end := pos+loc[0], pos+loc[1]
		name := value[pos+loc[2] : pos+loc[3]]

		replacement, ok := mapping[name]
		if !ok {
			pos = end
			continue
		}

		value = value[:start] + replacement + value[end:]
		pos = 0
		expansions++
	}

	return value
}

// Tokens returns the names of the ${name} tokens in value, in order of appearance.
func Tokens(value string) []string {
	matches := tokenPattern.FindAllStringSubmatch(value, -1)
	names := make([]string, 0, len(matches))

	for _, m := range matches {
		names = append(names, m[1])
	}

	return names
}

// Translate scans value left to right. At each position the longest mapping
// key that is a prefix of the remaining input is replaced by its value and
// the scan moves past it; otherwise the current character is copied and the
// scan advances by one. Empty keys never match.
func Translate(value string, mapping map[string]string) string {
	keys := make([]string, 0, len(mapping))

	for k := range mapping {
		if k != "" {
			keys = append(keys, k)
		}
	}

	if len(keys) == 0 {
		return value
	}

	// Longest first; equal lengths are distinct strings so their order never
	// affects which one matches.
	slices.SortFunc(keys, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), strings.Compare(a, b))
	})

	var out strings.Builder

	out.Grow(len(value))

	for rest := value; rest != ""; {
		matched := false

		for _, k := range keys {
			if strings.HasPrefix(rest, k) {
				out.WriteString(mapping[k])
				rest = rest[len(k):]
				matched = true

				break
			}
		}

		if !matched {
			out.WriteByte(rest[0])
			rest = rest[1:]
		}
	}

	return out.String()
}
