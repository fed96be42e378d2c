package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/stamp/pkg/stamp/version"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatTable(r))

	if r.Kind != KindShow {
		w.WriteString(f.formatChanges(r))
	}
	if len(r.Removed) > 0 {
		w.WriteString(f.formatRemoved(r.Removed))
	}

	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")

	if len(r.Warnings) > 0 {
		w.WriteString(f.formatWarnings(r.Warnings))
	}
	return nil
}

// formatHeader builds the header box with run metadata.
func (f *PrettyFormatter) formatHeader(r *Report) string {
	var lines []string

	lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Root:"), ValueStyle.Render(r.Root)))
	lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Manifest:"), ValueStyle.Render(r.Manifest)))

	var info []string
	if r.Mode != "" {
		info = append(info, fmt.Sprintf("%s %s", LabelStyle.Render("Mode:"), ValueStyle.Render(r.Mode)))
	}
	if r.Kind != KindShow {
		info = append(info, fmt.Sprintf("%s %s", LabelStyle.Render("Scanned:"),
			ValueStyle.Render(fmt.Sprintf("%s files in %s",
				humanize.Comma(r.Stats.FilesScanned), formatDuration(r.Stats.Duration)))))
		if r.Stats.Excluded > 0 {
			info = append(info, MutedStyle.Render(fmt.Sprintf("%d excluded", r.Stats.Excluded)))
		}
	}
	if len(info) > 0 {
		lines = append(lines, strings.Join(info, "  "))
	}

	switch {
	case r.DryRun:
		lines = append(lines, WarningStyle.Bold(true).Render("Dry run: manifest not written"))
	case r.Kind == KindStatus:
		lines = append(lines, MutedStyle.Render("Status only: manifest not written"))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatTable builds the component table.
func (f *PrettyFormatter) formatTable(r *Report) string {
	if len(r.Components) == 0 {
		return MutedStyle.Render("  No components found") + "\n"
	}

	nameWidth := len("COMPONENT")
	sizeWidth := 8
	for _, c := range r.Components {
		nameWidth = max(nameWidth, len(c.Name))
		sizeWidth = max(sizeWidth, len(c.SizeHuman))
	}

	var sb strings.Builder
	sb.WriteString("  ")
	sb.WriteString(TableHeaderStyle.Render(padRight("COMPONENT", nameWidth)))
	sb.WriteString("  ")
	sb.WriteString(TableHeaderStyle.Render(padLeft("FILES", 7)))
	sb.WriteString("  ")
	sb.WriteString(TableHeaderStyle.Render(padLeft("SIZE", sizeWidth)))
	sb.WriteString("  ")
	sb.WriteString(TableHeaderStyle.Render("VERSION"))
	sb.WriteString("\n")

	for _, c := range r.Components {
		name := ValueStyle.Render(padRight(c.Name, nameWidth))
		if c.Changed {
			name = TitleStyle.Render(padRight(c.Name, nameWidth))
		}
		fmt.Fprintf(&sb, "  %s  %s  %s  %s\n",
			name,
			ValueStyle.Render(padLeft(humanize.Comma(int64(c.Files)), 7)),
			SizeStyle.Render(padLeft(c.SizeHuman, sizeWidth)),
			f.formatVersion(c))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatVersion(c ComponentRow) string {
	if c.Changed {
		return MutedStyle.Render(displayVersion(c.From)+" -> ") + VersionStyle.Render(c.To)
	}
	if c.To == "" {
		return MutedStyle.Render("-")
	}
	return ValueStyle.Render(c.To)
}

// formatChanges lists the version transitions, one per line.
func (f *PrettyFormatter) formatChanges(r *Report) string {
	changes := r.Changes()
	if len(changes) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n")
	for _, c := range changes {
		line := fmt.Sprintf("  %s: %s -> %s", c.Name, displayVersion(c.From), c.To)
		if c.Touched > 0 {
			line += MutedStyle.Render(fmt.Sprintf("  (%d touched)", c.Touched))
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (f *PrettyFormatter) formatRemoved(removed []string) string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(ErrorStyle.Render("  No longer present: " + strings.Join(removed, ", ")))
	sb.WriteString("\n")
	return sb.String()
}

// formatFooter builds the summary box.
func (f *PrettyFormatter) formatFooter(r *Report) string {
	var parts []string

	if r.Kind == KindShow {
		parts = append(parts, TitleStyle.Render(fmt.Sprintf("%d components", len(r.Components))))
	} else {
		summary := r.Summary()
		if r.ChangedCount() > 0 {
			parts = append(parts, SuccessStyle.Bold(true).Render(summary))
		} else {
			parts = append(parts, MutedStyle.Render(summary))
		}
	}

	parts = append(parts, fmt.Sprintf("%s %s", LabelStyle.Render("Files:"), ValueStyle.Render(humanize.Comma(int64(r.TotalFiles())))))
	parts = append(parts, fmt.Sprintf("%s %s", LabelStyle.Render("Total:"), SizeStyle.Render(humanize.IBytes(uint64(r.TotalSize())))))
	if r.HistoryID != "" {
		parts = append(parts, MutedStyle.Render("history: "+r.HistoryID))
	}

	return FooterBox.Render(strings.Join(parts, "  "))
}

func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder
	sb.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")
	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}
	return sb.String()
}

// displayVersion shows the implicit starting version for unversioned components.
func displayVersion(v string) string {
	if v == "" {
		return version.Default
	}
	return v
}

func padLeft(s string, width int) string {
	if lipgloss.Width(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-lipgloss.Width(s)) + s
}

func padRight(s string, width int) string {
	if lipgloss.Width(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-lipgloss.Width(s))
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
