package ignore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBuild(t *testing.T, b *Builder) *RuleSet {
	t.Helper()
	rs, err := b.Build()
	require.NoError(t, err)
	return rs
}

func TestRuleSet_Excluded(t *testing.T) {
	t.Parallel()

	rs := mustBuild(t, NewBuilder().
		Fixed("tests", ".git").
		Patterns("build/", "*.tmp", "docs/*.md", "VERSION"))

	tests := []struct {
		path string
		want bool
	}{
		{path: "tests/foo.txt", want: true},
		{path: "tests/deep/nested/x.lua", want: true},
		{path: ".git/HEAD", want: true},
		{path: "build/out.bin", want: true},
		{path: "sub/build/out.bin", want: false},
		{path: "buildings/a.txt", want: false},
		{path: "scratch.tmp", want: true},
		{path: "core/cache/x.tmp", want: true},
		{path: "docs/readme.md", want: true},
		{path: "docs/api/readme.md", want: true},
		{path: "VERSION", want: true},
		{path: "core/VERSION", want: false},
		{path: "core/a.lua", want: false},
		{path: "testsuite/a.lua", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, rs.Excluded(tt.path))
		})
	}
}

func TestRuleSet_FixedSetWinsRegardlessOfPatterns(t *testing.T) {
	t.Parallel()

	patternSets := [][]string{
		nil,
		{"*"},
		{"other/"},
		{"tests/keep.txt"},
	}

	paths := []string{"tests/foo.txt", "tests", "tests/a/b/c"}

	for _, patterns := range patternSets {
		rs := mustBuild(t, NewBuilder().Patterns(patterns...).Fixed("tests"))
		for _, p := range paths {
			rule, ok := rs.Match(p)
			require.True(t, ok, "path %q with patterns %v", p, patterns)
			assert.Equal(t, KindSegment, rule.Kind, "fixed rule must match first for %q", p)
		}
	}
}

func TestRuleSet_NoMatchIsIncluded(t *testing.T) {
	t.Parallel()

	rs := mustBuild(t, NewBuilder().Fixed("tests").Patterns("build/", "*.log"))

	for _, p := range []string{"core/a.lua", "a.txt", "ui/icons/x.png", "logs/readme"} {
		assert.False(t, rs.Excluded(p), p)
	}
}

func TestRuleSet_FirstMatchInLoadOrder(t *testing.T) {
	t.Parallel()

	rs := mustBuild(t, NewBuilder().Patterns("core/a.lua", "core/*", "core/"))

	rule, ok := rs.Match("core/a.lua")
	require.True(t, ok)
	assert.Equal(t, KindLiteral, rule.Kind)

	rule, ok = rs.Match("core/b.lua")
	require.True(t, ok)
	assert.Equal(t, KindGlob, rule.Kind)
}

func TestRuleSet_NormalizesBackslashes(t *testing.T) {
	t.Parallel()

	rs := mustBuild(t, NewBuilder().Fixed("tests").Patterns("build/"))
	assert.True(t, rs.Excluded(`tests\foo.txt`))
	assert.True(t, rs.Excluded(`build\x.o`))
}

func TestBuilder_ResultIsIndependent(t *testing.T) {
	t.Parallel()

	b := NewBuilder().Fixed("tests")
	first := mustBuild(t, b)

	b.Fixed("core").Patterns("*.lua")
	second := mustBuild(t, b)

	assert.Equal(t, 1, first.Len())
	assert.False(t, first.Excluded("core/a.lua"))
	assert.Equal(t, 3, second.Len())
	assert.True(t, second.Excluded("core/a.lua"))
}

func TestRuleSet_RulesReturnsCopy(t *testing.T) {
	t.Parallel()

	rs := mustBuild(t, NewBuilder().Fixed("tests"))
	rules := rs.Rules()
	rules[0].Pattern = "mutated"

	assert.True(t, rs.Excluded("tests/x"))
}

func TestRuleSet_NilAndEmpty(t *testing.T) {
	t.Parallel()

	var nilSet *RuleSet
	assert.False(t, nilSet.Excluded("anything"))
	assert.False(t, nilSet.FixedExcluded("anything"))
	assert.False(t, Empty().Excluded("tests/x"))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindPrefix, Classify("build/"))
	assert.Equal(t, KindGlob, Classify("*.o"))
	assert.Equal(t, KindGlob, Classify("dir/*/x"))
	assert.Equal(t, KindLiteral, Classify("VERSION"))
	assert.Equal(t, KindPrefix, Classify("a*/"))
}

func TestParseRules(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"# comment",
		"",
		"build/",
		"   ",
		"*.tmp\r",
		"#another",
		"VERSION  ",
		"  # indented comment",
		"\tdocs/draft/",
	}, "\n")

	got, err := ParseRules(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"build/", "*.tmp", "VERSION", "docs/draft/"}, got)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file yields no patterns", func(t *testing.T) {
		t.Parallel()

		got, err := LoadFile(filepath.Join(t.TempDir(), "absent"))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("reads patterns in order", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".gitignore")
		require.NoError(t, os.WriteFile(path, []byte("b/\na/\n# c\n*.x\n"), 0o644))

		got, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"b/", "a/", "*.x"}, got)
	})

	t.Run("directory path is an error", func(t *testing.T) {
		t.Parallel()

		_, err := LoadFile(t.TempDir())
		assert.Error(t, err)
	})
}

func TestRuleSet_ShellGlobSemantics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{pattern: "*.bak[", path: "x.bak[", want: true},
		{pattern: "*.bak[", path: "core/y.bak[", want: true},
		{pattern: "*.bak[", path: "x.bak", want: false},
		{pattern: "assets/{old}*", path: "assets/{old}x", want: true},
		{pattern: "assets/{old}*", path: "assets/oldx", want: false},
		{pattern: "*.{c,h}", path: "a.{c,h}", want: true},
		{pattern: "*.{c,h}", path: "a.c", want: false},
		{pattern: "*.[ch]", path: "src/a.c", want: true},
		{pattern: "*.[ch]", path: "src/a.o", want: false},
		{pattern: "*.[!o]", path: "a.c", want: true},
		{pattern: "*.[!o]", path: "a.o", want: false},
		{pattern: "*/[a-cx-z]", path: "q/b", want: true},
		{pattern: "*/[a-cx-z]", path: "q/y", want: true},
		{pattern: "*/[a-cx-z]", path: "q/m", want: false},
		{pattern: "*.[_-]x", path: "a.-x", want: true},
		{pattern: "*.[_-]x", path: "a._x", want: true},
		{pattern: "*.[_-]x", path: "a.bx", want: false},
		{pattern: "*[]]", path: "x]", want: true},
		{pattern: "*?.txt", path: "a.txt", want: true},
		{pattern: "*?.txt", path: ".txt", want: false},
		{pattern: "docs/*", path: "docs/api/readme.md", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			t.Parallel()

			rs, err := NewBuilder().Patterns(tt.pattern).Build()
			require.NoError(t, err)
			assert.Equal(t, tt.want, rs.Excluded(tt.path))
		})
	}
}

func TestRuleSet_UnexpressibleGlobMatchesLiterally(t *testing.T) {
	t.Parallel()

	rs, err := NewBuilder().Patterns("*.[z-a]").Build()
	require.NoError(t, err)
	assert.True(t, rs.Excluded("*.[z-a]"))
	assert.False(t, rs.Excluded("x.b"))
}

func TestTranslateFnmatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "*.bak", want: "*.bak"},
		{in: "*.bak[", want: `*.bak\[`},
		{in: "a{b,c}*", want: `a\{b,c\}*`},
		{in: `*\d`, want: `*\\d`},
		{in: "*[!ba]", want: "*[!ab]"},
		{in: "*[a-c-]", want: "*[-abc]"},
		{in: "*[]!]", want: `*[\!\]]`},
	}

	for _, tt := range tests {
		got, err := translateFnmatch(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
