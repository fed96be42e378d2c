package ignore

import (
	"errors"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// maxClassRunes bounds how far a bracket range is expanded into a
// character list.
const maxClassRunes = 4096

var errUnsupportedClass = errors.New("unsupported bracket expression")

// translateFnmatch rewrites a shell (fnmatch) pattern into gobwas/glob
// syntax. Only "*", "?" and closed bracket expressions are special;
// braces, backslashes and an unclosed "[" match themselves.
func translateFnmatch(pattern string) (string, error) {
	var b strings.Builder
	literal := 0

	flush := func(end int) {
		if end > literal {
			b.WriteString(glob.QuoteMeta(pattern[literal:end]))
		}
	}

	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '*', '?':
			flush(i)
			b.WriteByte(pattern[i])
			literal = i + 1
		case '[':
			end := classEnd(pattern, i)
			if end < 0 {
				continue
			}
			flush(i)
			class, err := translateClass(pattern[i+1 : end])
			if err != nil {
				return "", err
			}
			b.WriteString(class)
			i = end
			literal = end + 1
		}
	}
	flush(len(pattern))

	return b.String(), nil
}

// classEnd returns the index of the "]" closing the bracket expression
// opened at start, or -1 when it is never closed. A "]" right after "["
// or "[!" is a member, not the terminator.
func classEnd(pattern string, start int) int {
	j := start + 1
	if j < len(pattern) && pattern[j] == '!' {
		j++
	}
	if j < len(pattern) && pattern[j] == ']' {
		j++
	}
	for j < len(pattern) && pattern[j] != ']' {
		j++
	}
	if j >= len(pattern) {
		return -1
	}
	return j
}

// translateClass converts the body of a bracket expression into a gobwas
// character list. Ranges are expanded because gobwas accepts a single
// range or a single list per class, not a mix.
func translateClass(body string) (string, error) {
	negate := strings.HasPrefix(body, "!")
	if negate {
		body = body[1:]
	}

	members := []rune(body)
	var set []rune
	for k := 0; k < len(members); k++ {
		if k+2 < len(members) && members[k+1] == '-' {
			lo, hi := members[k], members[k+2]
			if int(hi)-int(lo) >= maxClassRunes {
				return "", errUnsupportedClass
			}
			for r := lo; r <= hi; r++ {
				set = append(set, r)
			}
			k += 2
			continue
		}
		set = append(set, members[k])
	}

	slices.Sort(set)
	set = slices.Compact(set)
	if len(set) == 0 || len(set) > maxClassRunes {
		return "", errUnsupportedClass
	}

	// A "-" anywhere but first would read as a range.
	if i := slices.Index(set, '-'); i > 0 {
		set = append([]rune{'-'}, slices.Delete(set, i, i+1)...)
	}

	var b strings.Builder
	b.WriteByte('[')
	if negate {
		b.WriteByte('!')
	}
	for _, r := range set {
		switch r {
		case '\\', ']', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte(']')
	return b.String(), nil
}
