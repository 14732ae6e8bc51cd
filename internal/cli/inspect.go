package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datasweep/internal/core"
)

type inspectOptions struct {
	rows    int
	summary int
	clean   []string
	format  string
}

func newInspectCommand(root *options) *cobra.Command {
	opts := &inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Show a preview, column types and numeric summary of each file",
		Example: `  # Preview the first rows of a CSV file
  sweep inspect sales.csv

  # Preview after removing duplicates, as JSON
  sweep inspect --clean remove_duplicates --format json sales.xlsx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, root, opts, args)
		},
	}

	cmd.Flags().IntVarP(&opts.rows, "rows", "n", core.DefaultPreviewRows, "Rows to preview")
	cmd.Flags().IntVar(&opts.summary, "summary", core.DefaultSummaryColumns, "Numeric columns to summarize")
	cmd.Flags().StringSliceVar(&opts.clean, "clean", nil, "Cleaning operations to apply first (remove_duplicates, fill_missing)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runInspect(cmd *cobra.Command, root *options, opts *inspectOptions, paths []string) error {
	ops, err := parseCleaningOps(opts.clean)
	if err != nil {
		return err
	}
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown output format %q", opts.format)
	}

	plan := core.Plan{Clean: ops, PreviewRows: opts.rows, SummaryColumns: opts.summary}
	results, err := runFiles(cmd.Context(), root, paths, func(core.FileUnit) core.Plan { return plan })
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(toReports(results)); err != nil {
			return err
		}
	} else {
		for i, res := range results {
			if i > 0 {
				_, _ = fmt.Fprintln(out)
			}
			renderResult(out, res)
		}
	}
	return failureSummary(results)
}

// fileReport is the JSON shape of one inspected file.
type fileReport struct {
	core.FileResult
	Error string `json:"error,omitempty"`
}

func toReports(results []core.FileResult) []fileReport {
	out := make([]fileReport, len(results))
	for i, res := range results {
		out[i] = fileReport{FileResult: res}
		if res.Err != nil {
			out[i].Error = describeError(res.Err)
		}
	}
	return out
}

func renderResult(w io.Writer, res core.FileResult) {
	if res.Err != nil {
		_, _ = fmt.Fprintf(w, "%s: %s\n", res.Name, describeError(res.Err))
		return
	}

	_, _ = fmt.Fprintf(w, "%s (%d rows, %d columns)\n", res.Name, res.Rows, len(res.Columns))
	_, _ = fmt.Fprintf(w, "Size: %.1f KB\n", res.SizeKB)
	for _, warning := range res.Warnings {
		_, _ = fmt.Fprintf(w, "warning: %s\n", warning)
	}
	if res.Preview != nil {
		renderPreview(w, *res.Preview)
	}
	renderColumns(w, res.Columns)
	if len(res.Summary) > 0 {
		renderSummary(w, res.Summary)
	}
}

func renderPreview(w io.Writer, p core.PreviewTable) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(p.Columns))
	for i, name := range p.Columns {
		header[i] = name
	}
	t.AppendHeader(header)

	for _, cells := range p.Rows {
		row := make(table.Row, len(cells))
		for i, cell := range cells {
			if cell.IsMissing() {
				row[i] = "NULL"
			} else {
				row[i] = cell.String()
			}
		}
		t.AppendRow(row)
	}
	if p.Truncated {
		t.SetCaption("%d of %d rows", len(p.Rows), p.TotalRows)
	}
	t.Render()
}

func renderColumns(w io.Writer, cols []core.ColumnInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Type", "Missing"})
	for _, col := range cols {
		t.AppendRow(table.Row{col.Name, col.Type.String(), col.Missing})
	}
	t.Render()
}

func renderSummary(w io.Writer, series []core.Series) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Series", "Count", "Missing", "Mean", "Min", "Max"})
	for _, s := range series {
		st := s.Stats()
		if st.Count == 0 {
			t.AppendRow(table.Row{s.Name, st.Count, st.Missing, "-", "-", "-"})
			continue
		}
		t.AppendRow(table.Row{s.Name, st.Count, st.Missing, formatFloat(st.Mean), formatFloat(st.Min), formatFloat(st.Max)})
	}
	t.Render()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
