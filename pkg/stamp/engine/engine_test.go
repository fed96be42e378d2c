package engine

import (
	"errors"
	"testing"

	"github.com/jamesainslie/stamp/pkg/stamp/manifest"
	"github.com/jamesainslie/stamp/pkg/stamp/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docWith(files map[string][]string, sizes map[string]int64, versions map[string]string) *manifest.Document {
	doc := manifest.NewDocument()
	for k, v := range files {
		doc.Files[k] = v
	}
	for k, v := range sizes {
		doc.Sizes[k] = v
	}
	for k, v := range versions {
		doc.Versions[k] = v
	}
	return doc
}

func TestUpdate_CoreScenario(t *testing.T) {
	prior := docWith(
		map[string][]string{"core": {"core/a.lua"}},
		map[string]int64{"core": 10},
		map[string]string{"core": "1.0.0"},
	)

	result, err := Update(
		map[string][]string{"core": {"core/a.lua", "core/b.lua"}},
		map[string]int64{"core": 25},
		prior,
		version.Minor,
	)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"core": "1.1.0"}, result.Document.Versions)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, Change{Component: "core", From: "1.0.0", To: "1.1.0"}, result.Changes[0])
	assert.Equal(t, []string{"core/a.lua", "core/b.lua"}, result.Document.Files["core"])
	assert.Equal(t, int64(25), result.Document.Sizes["core"])
	assert.Equal(t, 1, result.Components)
	assert.Equal(t, 2, result.Files)
}

func TestUpdate_Idempotent(t *testing.T) {
	modes := []version.Mode{version.Major, version.Minor, version.Revision}

	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			files := map[string][]string{
				"core":   {"core/a.lua", "core/b.lua"},
				"system": {"README.md"},
			}
			sizes := map[string]int64{"core": 25, "system": 3}

			first, err := Update(files, sizes, manifest.NewDocument(), mode)
			require.NoError(t, err)
			require.True(t, first.Changed())

			second, err := Update(files, sizes, first.Document, mode)
			require.NoError(t, err)

			assert.False(t, second.Changed())
			assert.Equal(t, first.Document.Versions, second.Document.Versions)
		})
	}
}

func TestUpdate_SizeOnlyChange(t *testing.T) {
	prior := docWith(
		map[string][]string{"core": {"core/a.lua"}},
		map[string]int64{"core": 10},
		map[string]string{"core": "2.3.4"},
	)

	result, err := Update(
		map[string][]string{"core": {"core/a.lua"}},
		map[string]int64{"core": 11},
		prior,
		version.Revision,
	)
	require.NoError(t, err)

	require.Len(t, result.Changes, 1)
	assert.Equal(t, "2.3.5", result.Document.Versions["core"])
}

func TestUpdate_OrderOnlyChange(t *testing.T) {
	prior := docWith(
		map[string][]string{"core": {"a", "b"}},
		map[string]int64{"core": 2},
		map[string]string{"core": "1.0.0"},
	)

	result, err := Update(
		map[string][]string{"core": {"b", "a"}},
		map[string]int64{"core": 2},
		prior,
		version.Revision,
	)
	require.NoError(t, err)

	assert.True(t, result.Changed())
	assert.Equal(t, "1.0.1", result.Document.Versions["core"])
}

func TestUpdate_BumpModes(t *testing.T) {
	tests := []struct {
		mode version.Mode
		want string
	}{
		{mode: version.Major, want: "2.0.0"},
		{mode: version.Minor, want: "1.5.0"},
		{mode: version.Revision, want: "1.4.8"},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			prior := docWith(nil, nil, map[string]string{"core": "1.4.7"})
			result, err := Update(
				map[string][]string{"core": {"core/x"}},
				map[string]int64{"core": 1},
				prior,
				tt.mode,
			)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Document.Versions["core"])
		})
	}
}

func TestUpdate_NewComponentStartsFromDefault(t *testing.T) {
	result, err := Update(
		map[string][]string{"plugins": {"plugins/x.lua"}},
		map[string]int64{"plugins": 4},
		manifest.NewDocument(),
		version.Revision,
	)
	require.NoError(t, err)

	require.Len(t, result.Changes, 1)
	assert.Equal(t, Change{Component: "plugins", From: version.Default, To: "0.0.1", New: true}, result.Changes[0])
}

func TestUpdate_NilPrior(t *testing.T) {
	result, err := Update(
		map[string][]string{"core": {"core/a"}},
		map[string]int64{"core": 1},
		nil,
		version.Major,
	)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", result.Document.Versions["core"])
	assert.Empty(t, result.Removed)
}

func TestUpdate_UnchangedComponentsKeepVersion(t *testing.T) {
	prior := docWith(
		map[string][]string{"core": {"core/a"}, "docs": {"docs/x"}},
		map[string]int64{"core": 1, "docs": 2},
		map[string]string{"core": "1.0.0", "docs": "0.3.1"},
	)

	result, err := Update(
		map[string][]string{"core": {"core/a", "core/b"}, "docs": {"docs/x"}},
		map[string]int64{"core": 3, "docs": 2},
		prior,
		version.Major,
	)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"core": "2.0.0", "docs": "0.3.1"}, result.Document.Versions)
	assert.Equal(t, []Change{{Component: "core", From: "1.0.0", To: "2.0.0"}}, result.Changes)
}

func TestUpdate_UnchangedUnversionedStaysUnset(t *testing.T) {
	// An empty component with no prior entry matches the defaults exactly.
	result, err := Update(
		map[string][]string{"empty": {}},
		map[string]int64{"empty": 0},
		manifest.NewDocument(),
		version.Revision,
	)
	require.NoError(t, err)

	assert.False(t, result.Changed())
	_, ok := result.Document.Versions["empty"]
	assert.False(t, ok)
	assert.Equal(t, []string{}, result.Document.Files["empty"])
}

func TestUpdate_StaleVersionsAreKept(t *testing.T) {
	prior := docWith(
		map[string][]string{"core": {"core/a"}, "legacy": {"legacy/old"}},
		map[string]int64{"core": 1, "legacy": 9},
		map[string]string{"core": "1.0.0", "legacy": "4.2.0"},
	)

	result, err := Update(
		map[string][]string{"core": {"core/a"}},
		map[string]int64{"core": 1},
		prior,
		version.Revision,
	)
	require.NoError(t, err)

	assert.Equal(t, "4.2.0", result.Document.Versions["legacy"])
	assert.NotContains(t, result.Document.Files, "legacy")
	assert.NotContains(t, result.Document.Sizes, "legacy")
	assert.Equal(t, []string{"legacy"}, result.Removed)
}

func TestUpdate_FilesAndSizesReplacedWholesale(t *testing.T) {
	prior := docWith(
		map[string][]string{"core": {"core/a"}},
		map[string]int64{"core": 1},
		map[string]string{"core": "1.0.0"},
	)

	newFiles := map[string][]string{"core": {"core/a"}, "system": {"README"}}
	newSizes := map[string]int64{"core": 1, "system": 5}

	result, err := Update(newFiles, newSizes, prior, version.Revision)
	require.NoError(t, err)

	assert.Equal(t, newFiles, result.Document.Files)
	assert.Equal(t, newSizes, result.Document.Sizes)

	// The result must not alias the caller's slices.
	newFiles["core"][0] = "mutated"
	assert.Equal(t, "core/a", result.Document.Files["core"][0])
}

func TestUpdate_MalformedVersionFailsFast(t *testing.T) {
	prior := docWith(
		map[string][]string{"core": {"core/a"}},
		map[string]int64{"core": 1},
		map[string]string{"core": "v1.2"},
	)

	result, err := Update(
		map[string][]string{"core": {"core/a", "core/b"}},
		map[string]int64{"core": 2},
		prior,
		version.Revision,
	)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errors.Is(err, version.ErrMalformedVersion))
	assert.Contains(t, err.Error(), "core")
}

func TestUpdate_MalformedVersionOfUnchangedComponentPassesThrough(t *testing.T) {
	prior := docWith(
		map[string][]string{"core": {"core/a"}},
		map[string]int64{"core": 1},
		map[string]string{"core": "nightly"},
	)

	result, err := Update(
		map[string][]string{"core": {"core/a"}},
		map[string]int64{"core": 1},
		prior,
		version.Revision,
	)
	require.NoError(t, err)
	assert.Equal(t, "nightly", result.Document.Versions["core"])
}

func TestUpdate_DoesNotMutatePrior(t *testing.T) {
	prior := docWith(
		map[string][]string{"core": {"core/a"}},
		map[string]int64{"core": 1},
		map[string]string{"core": "1.0.0"},
	)

	_, err := Update(
		map[string][]string{"core": {"core/b"}},
		map[string]int64{"core": 1},
		prior,
		version.Minor,
	)
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", prior.Versions["core"])
	assert.Equal(t, []string{"core/a"}, prior.Files["core"])
}

func TestUpdate_ChangesSortedByComponent(t *testing.T) {
	files := map[string][]string{"zeta": {"zeta/1"}, "alpha": {"alpha/1"}, "mid": {"mid/1"}}
	sizes := map[string]int64{"zeta": 1, "alpha": 1, "mid": 1}

	result, err := Update(files, sizes, nil, version.Revision)
	require.NoError(t, err)

	names := make([]string, 0, len(result.Changes))
	for _, c := range result.Changes {
		names = append(names, c.Component)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
	assert.Contains(t, result.ChangedSet(), "mid")
}

func TestUpdate_CarriesExtraKeys(t *testing.T) {
	prior := manifest.NewDocument()
	require.NoError(t, prior.SetExtra("name", []byte(`"pkg"`)))

	result, err := Update(map[string][]string{}, map[string]int64{}, prior, version.Revision)
	require.NoError(t, err)

	raw, ok := result.Document.Extra("name")
	require.True(t, ok)
	assert.JSONEq(t, `"pkg"`, string(raw))
}

func TestDetect(t *testing.T) {
	prior := docWith(
		map[string][]string{"a": {"a/1"}, "b": {"b/1"}},
		map[string]int64{"a": 1, "b": 1},
		nil,
	)

	changed := Detect(
		map[string][]string{"a": {"a/1"}, "b": {"b/1", "b/2"}, "c": {"c/1"}},
		map[string]int64{"a": 1, "b": 2, "c": 1},
		prior,
	)
	assert.Equal(t, []string{"b", "c"}, changed)
}

func TestPriorState_Defaults(t *testing.T) {
	st := priorState(manifest.NewDocument(), "missing")
	assert.Nil(t, st.files)
	assert.Equal(t, DefaultSize, st.size)
	assert.Equal(t, version.Default, st.version)
	assert.False(t, st.listed)

	st = priorState(nil, "missing")
	assert.Equal(t, version.Default, st.version)
}
