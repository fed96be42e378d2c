// Package version implements the three-part component versions recorded
// in the manifest and the bump modes that advance them.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Default is the version assumed for a component that has never been versioned.
const Default = "0.0.0"

// ErrMalformedVersion is returned when a stored version does not parse
// as three dot-separated non-negative integers.
var ErrMalformedVersion = errors.New("malformed version")

// ErrInvalidMode is returned when a bump mode string is not recognized.
var ErrInvalidMode = errors.New("invalid bump mode")

// versionRegex matches "major.minor.revision" with no prefix or suffix.
var versionRegex = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)$`)

// Version is a parsed major.minor.revision triple.
type Version struct {
	Major    int
	Minor    int
	Revision int
}

// Parse parses a version string such as "1.4.7".
func Parse(s string) (Version, error) {
	matches := versionRegex.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return Version{}, fmt.Errorf("%w: %q", ErrMalformedVersion, s)
	}

	parts := [3]int{}
	for i := range parts {
		n, err := strconv.Atoi(matches[i+1])
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q: %w", ErrMalformedVersion, s, err)
		}
		parts[i] = n
	}

	return Version{Major: parts[0], Minor: parts[1], Revision: parts[2]}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the canonical "major.minor.revision" form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Revision)
}

// Bump returns the next version for the given mode. Lower-order parts
// are reset to zero.
func (v Version) Bump(mode Mode) Version {
	switch mode {
	case Major:
		return Version{Major: v.Major + 1}
	case Minor:
		return Version{Major: v.Major, Minor: v.Minor + 1}
	default:
		return Version{Major: v.Major, Minor: v.Minor, Revision: v.Revision + 1}
	}
}

// Compare returns -1 if v < other, 0 if equal, 1 if v > other.
func (v Version) Compare(other Version) int {
	switch {
	case v.Major != other.Major:
		return cmpInt(v.Major, other.Major)
	case v.Minor != other.Minor:
		return cmpInt(v.Minor, other.Minor)
	default:
		return cmpInt(v.Revision, other.Revision)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
