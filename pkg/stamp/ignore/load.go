package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// ParseRules reads ignore patterns line by line. Surrounding whitespace
// is trimmed, blank lines and lines starting with "#" are skipped, and
// order is preserved.
func ParseRules(r io.Reader) ([]string, error) {
	s := bufio.NewScanner(r)
	patterns := make([]string, 0, 16)

	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}

	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("scan ignore rules: %w", err)
	}
	return patterns, nil
}

// LoadFile reads patterns from an ignore file. A missing file yields no
// patterns and no error.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("open ignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	patterns, err := ParseRules(f)
	if err != nil {
		return nil, fmt.Errorf("parse ignore file %s: %w", path, err)
	}
	return patterns, nil
}
