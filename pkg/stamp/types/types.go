// Package types provides small value types shared across stamp packages,
// along with size formatting helpers.
package types

import (
	"github.com/dustin/go-humanize"
)

// ScanError pairs a path with the error hit while scanning it.
type ScanError struct {
	// Path is the file or directory where the error occurred.
	Path string `json:"path" yaml:"path"`

	// Error is the error message.
	Error string `json:"error" yaml:"error"`
}

// FormatSize formats a byte count using binary (IEC) units, e.g. "1.5 MiB".
func FormatSize(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}

// Plural returns singular when n == 1, otherwise singular + "s".
func Plural(n int, singular string) string {
	if n == 1 {
		return singular
	}
	return singular + "s"
}
