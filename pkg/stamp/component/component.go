// Package component maps manifest paths to the component that owns them.
package component

import "strings"

// System is the component that owns files at the top level of the scan root.
const System = "system"

// Separator is the path separator used in every manifest path.
const Separator = "/"

// Normalize converts a root-relative path to manifest form: forward
// slashes only, no leading "./".
func Normalize(path string) string {
	p := strings.ReplaceAll(path, `\`, Separator)
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return p
}

// Classify returns the component for a normalized relative path: the first
// segment of a nested path, or System for a file at the root.
func Classify(path string) string {
	first, _, nested := strings.Cut(path, Separator)
	if !nested {
		return System
	}
	return first
}

// FirstSegment returns the first segment of a normalized relative path.
func FirstSegment(path string) string {
	first, _, _ := strings.Cut(path, Separator)
	return first
}
