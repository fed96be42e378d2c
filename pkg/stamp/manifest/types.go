// Package manifest loads and persists the per-component install manifest.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Top-level keys owned by the store. Any other key is passed through.
const (
	KeyFiles    = "files"
	KeySizes    = "sizes"
	KeyVersions = "versions"
)

// Document is the manifest: per component its sorted file list, total size
// and version string. Versions are opaque here; the engine parses them.
type Document struct {
	Files    map[string][]string
	Sizes    map[string]int64
	Versions map[string]string

	// extra holds unknown top-level keys verbatim.
	extra map[string]json.RawMessage
}

// NewDocument returns an empty document with all maps allocated.
func NewDocument() *Document {
	return &Document{
		Files:    map[string][]string{},
		Sizes:    map[string]int64{},
		Versions: map[string]string{},
	}
}

// Components returns the sorted component names present in Files.
func (d *Document) Components() []string {
	names := make([]string, 0, len(d.Files))
	for name := range d.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FileCount returns the number of files across all components.
func (d *Document) FileCount() int {
	n := 0
	for _, files := range d.Files {
		n += len(files)
	}
	return n
}

// TotalSize returns the sum of all component sizes.
func (d *Document) TotalSize() int64 {
	var total int64
	for _, size := range d.Sizes {
		total += size
	}
	return total
}

// Extra returns the raw value of a pass-through key.
func (d *Document) Extra(key string) (json.RawMessage, bool) {
	raw, ok := d.extra[key]
	return raw, ok
}

// SetExtra stores a pass-through key. Reserved keys are rejected.
func (d *Document) SetExtra(key string, value json.RawMessage) error {
	switch key {
	case KeyFiles, KeySizes, KeyVersions:
		return fmt.Errorf("%q is a reserved manifest key", key)
	}
	if d.extra == nil {
		d.extra = map[string]json.RawMessage{}
	}
	d.extra[key] = value
	return nil
}

// CopyExtras copies the pass-through keys of src into d.
func (d *Document) CopyExtras(src *Document) {
	if src == nil || len(src.extra) == 0 {
		return
	}
	d.extra = make(map[string]json.RawMessage, len(src.extra))
	for k, v := range src.extra {
		d.extra[k] = append(json.RawMessage(nil), v...)
	}
}

// MarshalJSON writes the three owned keys plus any pass-through keys.
// encoding/json sorts map keys, so output is stable.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(d.extra)+3)
	for k, v := range d.extra {
		out[k] = v
	}
	out[KeyFiles] = nonNilFiles(d.Files)
	out[KeySizes] = nonNilSizes(d.Sizes)
	out[KeyVersions] = nonNilVersions(d.Versions)
	return json.Marshal(out)
}

// UnmarshalJSON reads a manifest. Missing owned keys decode as empty maps.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("manifest is not a JSON object")
	}

	doc := NewDocument()
	if err := decodeKey(raw, KeyFiles, &doc.Files); err != nil {
		return err
	}
	if err := decodeKey(raw, KeySizes, &doc.Sizes); err != nil {
		return err
	}
	if err := decodeKey(raw, KeyVersions, &doc.Versions); err != nil {
		return err
	}
	for k, v := range raw {
		switch k {
		case KeyFiles, KeySizes, KeyVersions:
			continue
		}
		if doc.extra == nil {
			doc.extra = map[string]json.RawMessage{}
		}
		doc.extra[k] = v
	}

	for comp, files := range doc.Files {
		if files == nil {
			doc.Files[comp] = []string{}
		}
	}

	*d = *doc
	return nil
}

func decodeKey(raw map[string]json.RawMessage, key string, dst interface{}) error {
	value, ok := raw[key]
	if !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(value, dst); err != nil {
		return fmt.Errorf("decoding %q: %w", key, err)
	}
	return nil
}

func nonNilFiles(m map[string][]string) map[string][]string {
	if m == nil {
		return map[string][]string{}
	}
	return m
}

func nonNilSizes(m map[string]int64) map[string]int64 {
	if m == nil {
		return map[string]int64{}
	}
	return m
}

func nonNilVersions(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
