package version

import (
	"fmt"
	"strings"
)

// Mode selects which part of a version advances on a detected change.
type Mode int

const (
	// Revision bumps the last part: 1.4.7 -> 1.4.8.
	Revision Mode = iota
	// Minor bumps the middle part and resets revision: 1.4.7 -> 1.5.0.
	Minor
	// Major bumps the first part and resets the rest: 1.4.7 -> 2.0.0.
	Major
)

// Mode string constants.
const (
	modeMajor    = "major"
	modeMinor    = "minor"
	modeRevision = "revision"
	modePatch    = "patch"
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case Major:
		return modeMajor
	case Minor:
		return modeMinor
	default:
		return modeRevision
	}
}

// ParseMode parses "major", "minor" or "revision" (alias "patch"),
// case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case modeMajor:
		return Major, nil
	case modeMinor:
		return Minor, nil
	case modeRevision, modePatch:
		return Revision, nil
	default:
		return Revision, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Modes returns the accepted mode names, for help text and validation.
func Modes() []string {
	return []string{modeMajor, modeMinor, modeRevision}
}
