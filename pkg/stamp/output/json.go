package output

import (
	"bytes"
	"encoding/json"
	"time"
)

// jsonOutput represents the full JSON output structure.
type jsonOutput struct {
	Components []ComponentRow `json:"components"`
	Changes    []jsonChange   `json:"changes"`
	Removed    []string       `json:"removed"`
	Stats      jsonStats      `json:"stats"`
	Meta       jsonMeta       `json:"meta"`
}

type jsonChange struct {
	Component string `json:"component"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// jsonStats represents scan statistics in JSON output.
type jsonStats struct {
	FilesScanned int64  `json:"files_scanned"`
	BytesScanned int64  `json:"bytes_scanned"`
	Excluded     int64  `json:"excluded"`
	Skipped      int64  `json:"skipped"`
	Duration     string `json:"duration,omitempty"`
}

// jsonMeta represents metadata in JSON output.
type jsonMeta struct {
	Kind       Kind     `json:"kind"`
	Root       string   `json:"root"`
	Manifest   string   `json:"manifest"`
	Mode       string   `json:"mode,omitempty"`
	DryRun     bool     `json:"dry_run"`
	Changed    int      `json:"changed"`
	TotalFiles int      `json:"total_files"`
	TotalSize  int64    `json:"total_size"`
	HistoryID  string   `json:"history_id,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// JSONFormatter formats output as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildJSONOutput(r))
}

func buildJSONOutput(r *Report) jsonOutput {
	components := r.Components
	if components == nil {
		components = []ComponentRow{}
	}

	changes := []jsonChange{}
	for _, c := range r.Changes() {
		changes = append(changes, jsonChange{Component: c.Name, From: displayVersion(c.From), To: c.To})
	}

	removed := r.Removed
	if removed == nil {
		removed = []string{}
	}

	return jsonOutput{
		Components: components,
		Changes:    changes,
		Removed:    removed,
		Stats: jsonStats{
			FilesScanned: r.Stats.FilesScanned,
			BytesScanned: r.Stats.BytesScanned,
			Excluded:     r.Stats.Excluded,
			Skipped:      r.Stats.Skipped,
			Duration:     formatDurationString(r.Stats.Duration),
		},
		Meta: jsonMeta{
			Kind:       r.Kind,
			Root:       r.Root,
			Manifest:   r.Manifest,
			Mode:       r.Mode,
			DryRun:     r.DryRun,
			Changed:    r.ChangedCount(),
			TotalFiles: r.TotalFiles(),
			TotalSize:  r.TotalSize(),
			HistoryID:  r.HistoryID,
			Warnings:   r.Warnings,
		},
	}
}

// formatDurationString formats a duration for machine-readable output.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
