package output

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// yamlOutput mirrors jsonOutput with yaml keys.
type yamlOutput struct {
	Components []ComponentRow `yaml:"components"`
	Changes    []yamlChange   `yaml:"changes"`
	Removed    []string       `yaml:"removed"`
	Stats      yamlStats      `yaml:"stats"`
	Meta       yamlMeta       `yaml:"meta"`
}

type yamlChange struct {
	Component string `yaml:"component"`
	From      string `yaml:"from"`
	To        string `yaml:"to"`
}

type yamlStats struct {
	FilesScanned int64  `yaml:"files_scanned"`
	BytesScanned int64  `yaml:"bytes_scanned"`
	Excluded     int64  `yaml:"excluded"`
	Skipped      int64  `yaml:"skipped"`
	Duration     string `yaml:"duration,omitempty"`
}

type yamlMeta struct {
	Kind       Kind     `yaml:"kind"`
	Root       string   `yaml:"root"`
	Manifest   string   `yaml:"manifest"`
	Mode       string   `yaml:"mode,omitempty"`
	DryRun     bool     `yaml:"dry_run"`
	Changed    int      `yaml:"changed"`
	TotalFiles int      `yaml:"total_files"`
	TotalSize  int64    `yaml:"total_size"`
	HistoryID  string   `yaml:"history_id,omitempty"`
	Warnings   []string `yaml:"warnings,omitempty"`
}

// YAMLFormatter formats output as YAML with the same structure as JSONFormatter.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Report) error {
	j := buildJSONOutput(r)

	out := yamlOutput{
		Components: j.Components,
		Removed:    j.Removed,
		Stats: yamlStats{
			FilesScanned: j.Stats.FilesScanned,
			BytesScanned: j.Stats.BytesScanned,
			Excluded:     j.Stats.Excluded,
			Skipped:      j.Stats.Skipped,
			Duration:     j.Stats.Duration,
		},
		Meta: yamlMeta{
			Kind:       j.Meta.Kind,
			Root:       j.Meta.Root,
			Manifest:   j.Meta.Manifest,
			Mode:       j.Meta.Mode,
			DryRun:     j.Meta.DryRun,
			Changed:    j.Meta.Changed,
			TotalFiles: j.Meta.TotalFiles,
			TotalSize:  j.Meta.TotalSize,
			HistoryID:  j.Meta.HistoryID,
			Warnings:   j.Meta.Warnings,
		},
	}
	out.Changes = make([]yamlChange, 0, len(j.Changes))
	for _, c := range j.Changes {
		out.Changes = append(out.Changes, yamlChange(c))
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(out); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
