// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug turns user supplied file names into short, key-safe slugs.
package slug

import (
	"path"
	"regexp"
	"strings"
)

// MaxLen caps the length of a generated slug.
const MaxLen = 48

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, space or hyphen.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s_-]`)
	// separators collapses runs of whitespace, underscores and hyphens into one hyphen.
	separators = regexp.MustCompile(`[\s_-]+`)
)

// Generate creates a slug from s, at most MaxLen bytes long.
// Example: "Cover (Final) 2026" → "cover-final-2026"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = separators.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	if len(result) > MaxLen {
		result = strings.TrimRight(result[:MaxLen], "-")
	}
	return result
}

// Filename splits a file name into the slug of its base name and its
// lowercased extension. Directory parts are dropped.
// Example: "shoot/Cover Final.JPG" → ("cover-final", ".jpg")
func Filename(name string) (base, ext string) {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	raw := path.Ext(name)
	ext = strings.ToLower(raw)
	if raw == name || !isExt(ext) {
		return Generate(name), ""
	}
	return Generate(strings.TrimSuffix(name, raw)), ext
}

func isExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 8 {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
