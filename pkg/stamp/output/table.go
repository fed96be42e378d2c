package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// tableHeader is shared by the tabular formatters.
var tableHeader = []string{"COMPONENT", "FILES", "SIZE", "FROM", "TO", "CHANGED"}

func tableRow(c ComponentRow) []string {
	return []string{
		c.Name,
		strconv.Itoa(c.Files),
		strconv.FormatInt(c.Size, 10),
		c.From,
		c.To,
		strconv.FormatBool(c.Changed),
	}
}

// TSVFormatter formats output as tab-separated values.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString(strings.Join(tableHeader, "\t"))
	w.WriteString("\n")
	for _, c := range r.Components {
		fields := tableRow(c)
		for i, field := range fields {
			fields[i] = strings.ReplaceAll(field, "\t", " ")
		}
		w.WriteString(strings.Join(fields, "\t"))
		w.WriteString("\n")
	}
	return nil
}

// CSVFormatter formats output as comma-separated values with proper quoting.
// It uses encoding/csv for RFC 4180 compliant output.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Report) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(tableHeader); err != nil {
		return err
	}
	for _, c := range r.Components {
		if err := writer.Write(tableRow(c)); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// MarkdownFormatter formats output as a GitHub-flavored markdown table,
// suitable for release notes.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Report) error {
	if r.Kind != KindShow {
		fmt.Fprintf(w, "**%s**\n\n", r.Summary())
	}

	w.WriteString("| Component | Files | Size | Version |\n")
	w.WriteString("|-----------|------:|-----:|---------|\n")
	for _, c := range r.Components {
		ver := c.To
		if c.Changed {
			ver = fmt.Sprintf("%s → **%s**", displayVersion(c.From), c.To)
		}
		fmt.Fprintf(w, "| %s | %d | %s | %s |\n",
			escapeMarkdown(c.Name), c.Files, c.SizeHuman, ver)
	}

	if len(r.Removed) > 0 {
		w.WriteString("\nRemoved: ")
		w.WriteString(escapeMarkdown(strings.Join(r.Removed, ", ")))
		w.WriteString("\n")
	}
	return nil
}

func escapeMarkdown(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("tsv", func() Formatter {
		return &TSVFormatter{}
	})
	Register("csv", func() Formatter {
		return &CSVFormatter{}
	})
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

// Ensure the tabular formatters implement Formatter.
var (
	_ Formatter = (*TSVFormatter)(nil)
	_ Formatter = (*CSVFormatter)(nil)
	_ Formatter = (*MarkdownFormatter)(nil)
)
