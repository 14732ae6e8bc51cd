package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datasweep/internal/core"
)

type convertOptions struct {
	clean   []string
	columns []string
	to      string
	outDir  string
	force   bool
}

func newConvertCommand(root *options) *cobra.Command {
	opts := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Clean, project and export files as CSV or Excel",
		Long: `Convert runs each file through decode, the requested cleaning operations
and column projection, then writes the result next to the other exports in
the output directory. Files fail independently.`,
		Example: `  # Convert an Excel workbook to CSV
  sweep convert report.xlsx

  # Deduplicate, fill gaps and keep two columns, as Excel
  sweep convert --clean remove_duplicates,fill_missing --columns id,amount --to excel -o out data.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, root, opts, args)
		},
	}

	cmd.Flags().StringSliceVar(&opts.clean, "clean", nil, "Cleaning operations in order (remove_duplicates, fill_missing)")
	cmd.Flags().StringSliceVar(&opts.columns, "columns", nil, "Columns to keep, in output order (default all)")
	cmd.Flags().StringVarP(&opts.to, "to", "t", "csv", "Output format: csv, excel")
	cmd.Flags().StringVarP(&opts.outDir, "out-dir", "o", ".", "Directory for converted files")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite existing files")

	return cmd
}

func runConvert(cmd *cobra.Command, root *options, opts *convertOptions, paths []string) error {
	ops, err := parseCleaningOps(opts.clean)
	if err != nil {
		return err
	}
	format, err := core.ParseFormat(opts.to)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	results, err := runFiles(cmd.Context(), root, paths, func(unit core.FileUnit) core.Plan {
		return core.Plan{
			Clean:    ops,
			Columns:  opts.columns,
			Format:   format,
			Filename: core.DefaultExportName(unit.Name, format),
		}
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i := range results {
		res := &results[i]
		if res.Err != nil {
			_, _ = fmt.Fprintf(out, "%s: %s\n", res.Name, describeError(res.Err))
			continue
		}
		for _, warning := range res.Warnings {
			_, _ = fmt.Fprintf(out, "%s: warning: %s\n", res.Name, warning)
		}
		dest := filepath.Join(opts.outDir, res.Export.Filename)
		if err := writeExport(dest, res.Export.Data, opts.force); err != nil {
			res.Err = err
			_, _ = fmt.Fprintf(out, "%s: %v\n", res.Name, err)
			continue
		}
		_, _ = fmt.Fprintf(out, "%s -> %s (%d rows)\n", res.Name, dest, res.Rows)
	}
	return failureSummary(results)
}

func writeExport(dest string, data []byte, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(dest, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s already exists (use --force to overwrite)", dest)
	}
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func parseCleaningOps(names []string) ([]core.CleaningOp, error) {
	ops := make([]core.CleaningOp, 0, len(names))
	for _, name := range names {
		op, err := core.ParseCleaningOp(name)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// failureSummary returns an error when any file failed so the process
// exits non-zero.
func failureSummary(results []core.FileResult) error {
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d files failed", failed, len(results))
}
