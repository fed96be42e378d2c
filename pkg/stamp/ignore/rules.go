// Package ignore decides which scanned paths are kept out of the manifest.
//
// Two sources feed one ordered rule list:
//   - a fixed exclusion set of top-level names, always checked first
//   - patterns loaded from an ignore file, evaluated in load order
//
// Patterns come in three kinds. A pattern ending in "/" excludes every
// path that starts with it. A pattern containing "*" is a shell glob
// matched against the whole path: "*" also crosses "/", "?" and "[...]"
// work as in fnmatch, and braces or an unclosed "[" match themselves.
// Anything else must equal the path exactly.
//
// Basic usage:
//
//	patterns, err := ignore.LoadFile(".gitignore")
//	if err != nil {
//	    return err
//	}
//	rules, err := ignore.NewBuilder().
//	    Fixed(".git", "tests").
//	    Patterns(patterns...).
//	    Build()
//	if err != nil {
//	    return err
//	}
//	if rules.Excluded("tests/foo.txt") {
//	    // skipped
//	}
package ignore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// ErrInvalidPattern indicates a glob pattern that could not be compiled.
var ErrInvalidPattern = errors.New("invalid ignore pattern")

// Kind identifies how a rule is matched against a path.
type Kind int

const (
	// KindSegment matches when the first path segment equals the pattern.
	KindSegment Kind = iota
	// KindPrefix matches when the path starts with the pattern.
	KindPrefix
	// KindGlob matches the full path with shell-glob semantics.
	KindGlob
	// KindLiteral matches when the path equals the pattern.
	KindLiteral
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindSegment:
		return "segment"
	case KindPrefix:
		return "prefix"
	case KindGlob:
		return "glob"
	case KindLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Rule is one compiled exclusion rule.
type Rule struct {
	Kind    Kind
	Pattern string

	glob glob.Glob
}

// String returns the rule as "kind:pattern".
func (r Rule) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.Pattern)
}

// Classify reports which kind of rule a raw ignore-file pattern becomes.
func Classify(pattern string) Kind {
	switch {
	case strings.HasSuffix(pattern, "/"):
		return KindPrefix
	case strings.Contains(pattern, "*"):
		return KindGlob
	default:
		return KindLiteral
	}
}

// compile builds a Rule from a raw pattern.
func compile(pattern string) (Rule, error) {
	r := Rule{Kind: Classify(pattern), Pattern: pattern}
	if r.Kind != KindGlob {
		return r, nil
	}

	// No separators: "*" matches across "/" like fnmatch.
	expr, err := translateFnmatch(pattern)
	if err == nil {
		r.glob, err = glob.Compile(expr)
	}
	if err != nil {
		// Match what cannot be expressed as a glob literally.
		if r.glob, err = glob.Compile(glob.QuoteMeta(pattern)); err != nil {
			return Rule{}, fmt.Errorf("%w %q: %w", ErrInvalidPattern, pattern, err)
		}
	}
	return r, nil
}

// matches reports whether the rule applies to a normalized path whose
// first segment is first.
func (r Rule) matches(path, first string) bool {
	switch r.Kind {
	case KindSegment:
		return first == r.Pattern
	case KindPrefix:
		return strings.HasPrefix(path, r.Pattern)
	case KindGlob:
		return r.glob != nil && r.glob.Match(path)
	case KindLiteral:
		return path == r.Pattern
	default:
		return false
	}
}
