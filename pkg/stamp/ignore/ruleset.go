package ignore

import (
	"github.com/jamesainslie/stamp/pkg/stamp/component"
)

// RuleSet is an immutable, ordered list of exclusion rules.
// It is safe for concurrent use.
type RuleSet struct {
	rules []Rule
	fixed map[string]struct{}
}

// Builder collects fixed names and patterns and produces a RuleSet.
// A Builder is not safe for concurrent use; the RuleSet it builds is.
type Builder struct {
	fixed    []string
	patterns []string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Fixed adds top-level names that are always excluded.
func (b *Builder) Fixed(names ...string) *Builder {
	for _, n := range names {
		n = component.Normalize(n)
		if n != "" {
			b.fixed = append(b.fixed, n)
		}
	}
	return b
}

// Patterns appends ignore-file patterns in load order.
func (b *Builder) Patterns(patterns ...string) *Builder {
	for _, p := range patterns {
		if p != "" {
			b.patterns = append(b.patterns, p)
		}
	}
	return b
}

// Build compiles the collected input. Segment rules always precede
// pattern rules. The Builder can be reused afterwards without affecting
// the returned RuleSet.
func (b *Builder) Build() (*RuleSet, error) {
	rs := &RuleSet{
		rules: make([]Rule, 0, len(b.fixed)+len(b.patterns)),
		fixed: make(map[string]struct{}, len(b.fixed)),
	}

	for _, name := range b.fixed {
		if _, dup := rs.fixed[name]; dup {
			continue
		}
		rs.fixed[name] = struct{}{}
		rs.rules = append(rs.rules, Rule{Kind: KindSegment, Pattern: name})
	}

	for _, p := range b.patterns {
		r, err := compile(p)
		if err != nil {
			return nil, err
		}
		rs.rules = append(rs.rules, r)
	}

	return rs, nil
}

// Empty returns a RuleSet that excludes nothing.
func Empty() *RuleSet {
	return &RuleSet{fixed: map[string]struct{}{}}
}

// Match returns the first rule that excludes path, if any.
func (rs *RuleSet) Match(path string) (Rule, bool) {
	if rs == nil {
		return Rule{}, false
	}

	path = component.Normalize(path)
	first := component.FirstSegment(path)

	for _, r := range rs.rules {
		if r.matches(path, first) {
			return r, true
		}
	}
	return Rule{}, false
}

// Excluded reports whether path is kept out of the manifest.
func (rs *RuleSet) Excluded(path string) bool {
	_, ok := rs.Match(path)
	return ok
}

// FixedExcluded reports whether the first segment of path is in the fixed
// set. The scanner uses it to prune whole directories.
func (rs *RuleSet) FixedExcluded(path string) bool {
	if rs == nil {
		return false
	}
	_, ok := rs.fixed[component.FirstSegment(component.Normalize(path))]
	return ok
}

// Rules returns a copy of the compiled rules in evaluation order.
func (rs *RuleSet) Rules() []Rule {
	if rs == nil {
		return nil
	}
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}
