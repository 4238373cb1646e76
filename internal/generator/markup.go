// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generator

import (
	"regexp"
	"strings"
)

var (
	fenceOpenSVG = regexp.MustCompile("(?i)^```svg\\s*")
	fenceOpen    = regexp.MustCompile("^```\\s*")
	fenceClose   = regexp.MustCompile("\\s*```$")
	invalidChars = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRuns   = regexp.MustCompile(`-+`)
)

// CleanMarkup strips surrounding whitespace and Markdown code fences from
// model output. The result is not validated as SVG. Stripping repeats until
// nothing changes, so CleanMarkup(CleanMarkup(s)) == CleanMarkup(s).
func CleanMarkup(s string) string {
	for {
		next := stripFence(s)
		if next == s {
			return s
		}
		s = next
	}
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpenSVG.ReplaceAllString(s, "")
	s = fenceOpen.ReplaceAllString(s, "")
	return fenceClose.ReplaceAllString(s, "")
}

// SanitizeFilename lowercases s, replaces every character outside
// [a-z0-9-] with "-" and collapses runs of "-".
func SanitizeFilename(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = invalidChars.ReplaceAllString(s, "-")
	return hyphenRuns.ReplaceAllString(s, "-")
}
