package component

import "testing"

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{path: "a.txt", want: System},
		{path: "a/b/c.txt", want: "a"},
		{path: "core/a.lua", want: "core"},
		{path: "README", want: System},
		{path: "data/x", want: "data"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.path); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: `core\lib\a.lua`, want: "core/lib/a.lua"},
		{in: "./core/a.lua", want: "core/a.lua"},
		{in: "core/a.lua", want: "core/a.lua"},
		{in: "a.txt", want: "a.txt"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFirstSegment(t *testing.T) {
	t.Parallel()

	if got := FirstSegment("tests/foo.txt"); got != "tests" {
		t.Errorf("FirstSegment() = %q, want %q", got, "tests")
	}
	if got := FirstSegment("top.txt"); got != "top.txt" {
		t.Errorf("FirstSegment() = %q, want %q", got, "top.txt")
	}
}
