// Package output renders query answers and comparison reports for the CLI.
package output

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/aleksaelezovic/hexastore/internal/compare"
	"github.com/aleksaelezovic/hexastore/pkg/rdf"
	"github.com/aleksaelezovic/hexastore/pkg/store"
)

// Formatter writes human-readable output
type Formatter struct {
	w        io.Writer
	useColor bool

	// MaxWidth is the maximum width of a table cell, 0 for unlimited
	MaxWidth int
	// TruncateString is appended to truncated cells
	TruncateString string
}

// NewFormatter creates a formatter writing to w
func NewFormatter(w io.Writer, useColor bool, maxWidth int) *Formatter {
	return &Formatter{
		w:              w,
		useColor:       useColor,
		MaxWidth:       maxWidth,
		TruncateString: "...",
	}
}

// Substitutions prints answers as a markdown table, one column per variable
func (f *Formatter) Substitutions(subs []rdf.Substitution) error {
	if len(subs) == 0 {
		_, err := fmt.Fprintln(f.w, "_No results_")
		return err
	}

	names := make(map[string]struct{})
	for _, sub := range subs {
		for name := range sub {
			names[name] = struct{}{}
		}
	}
	if len(names) == 0 {
		_, err := fmt.Fprintf(f.w, "_Pattern holds (%d)_\n", len(subs))
		return err
	}
	columns := slices.Sorted(maps.Keys(names))

	alignment := make([]tw.Align, len(columns))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	var sb strings.Builder
	table := tablewriter.NewTable(&sb,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)

	headers := make([]string, len(columns))
	for i, name := range columns {
		headers[i] = "?" + name
	}
	table.Header(headers)

	for _, sub := range subs {
		row := make([]string, len(columns))
		for i, name := range columns {
			if value, ok := sub[name]; ok {
				row[i] = f.truncate(value.String())
			}
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintf(&sb, "\n_%d rows_\n", len(subs))
	_, err := io.WriteString(f.w, sb.String())
	return err
}

// Atoms prints the stored triples in N-Triples syntax
func (f *Formatter) Atoms(atoms store.Atoms) error {
	for t := range atoms.All() {
		if _, err := fmt.Fprintln(f.w, t); err != nil {
			return err
		}
	}
	return nil
}

// Loaded reports the outcome of a load
func (f *Formatter) Loaded(read, distinct int, kind string) error {
	_, err := fmt.Fprintf(f.w, "%s %s triples read, %s distinct in the %s store\n",
		f.colorize("==", color.FgBlue),
		f.colorize(fmt.Sprint(read), color.FgCyan),
		f.colorize(fmt.Sprint(distinct), color.FgMagenta),
		kind)
	return err
}

// Comparison prints one block per query and a summary line
func (f *Formatter) Comparison(results []compare.Result, summary compare.Summary) error {
	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "%s Query: %s %s\n", f.colorize("===", color.FgYellow), r.Label, f.colorize("===", color.FgYellow))
		fmt.Fprintf(&sb, "    %s\n", r.Query)

		switch {
		case r.Err != nil:
			fmt.Fprintf(&sb, "%s %v\n", f.colorize("✗", color.FgRed, color.Bold), r.Err)
		case r.Identical():
			fmt.Fprintf(&sb, "%s identical, %d answers\n", f.colorize("✓", color.FgGreen, color.Bold), len(r.Actual))
		default:
			fmt.Fprintf(&sb, "%s differs: expected %d, got %d\n", f.colorize("✗", color.FgRed, color.Bold), len(r.Expected), len(r.Actual))
			for _, s := range r.Missing {
				fmt.Fprintf(&sb, "    %s %s\n", f.colorize("missing", color.FgRed), s)
			}
			for _, s := range r.Extra {
				fmt.Fprintf(&sb, "    %s %s\n", f.colorize("extra", color.FgMagenta), s)
			}
		}
		sb.WriteString("\n")
	}

	status := f.colorize("PASS", color.FgGreen, color.Bold)
	if summary.Differing > 0 || summary.Failed > 0 {
		status = f.colorize("FAIL", color.FgRed, color.Bold)
	}
	fmt.Fprintf(&sb, "%s %d identical, %d differing, %d failed\n", status, summary.Identical, summary.Differing, summary.Failed)

	_, err := io.WriteString(f.w, sb.String())
	return err
}

func (f *Formatter) truncate(s string) string {
	if f.MaxWidth <= 0 || len(s) <= f.MaxWidth {
		return s
	}
	cut := f.MaxWidth - len(f.TruncateString)
	if cut < 0 {
		cut = 0
	}
	return s[:cut] + f.TruncateString
}

// colorize wraps text in the given attributes when color output is enabled
func (f *Formatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(text)
}
