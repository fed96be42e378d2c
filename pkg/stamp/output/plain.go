package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// PlainFormatter formats output as an aligned table without colors,
// followed by the summary and one "name: old -> new" line per change.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(tw, "COMPONENT\tFILES\tSIZE\tVERSION"); err != nil {
		return err
	}
	for _, c := range r.Components {
		ver := c.To
		if c.Changed {
			ver = displayVersion(c.From) + " -> " + c.To
		}
		if ver == "" {
			ver = "-"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", c.Name, c.Files, c.SizeHuman, ver); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.Kind == KindShow {
		return nil
	}

	w.WriteString("\n")
	w.WriteString(r.Summary())
	if r.DryRun {
		w.WriteString(" (dry run)")
	}
	w.WriteString("\n")
	for _, c := range r.Changes() {
		fmt.Fprintf(w, "%s: %s -> %s\n", c.Name, displayVersion(c.From), c.To)
	}
	for _, name := range r.Removed {
		fmt.Fprintf(w, "removed: %s\n", name)
	}
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
