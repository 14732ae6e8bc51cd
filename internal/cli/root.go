// Package cli provides the sweep command-line interface over the core
// pipeline.
package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datasweep/internal/core"
	"github.com/JonMunkholm/datasweep/internal/logging"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// options are the persistent flags shared by every command.
type options struct {
	logLevel     string
	sanitizeUTF8 bool
	parallel     int
}

func (o *options) runner() *core.Runner {
	return &core.Runner{
		Codec:       core.Codec{SanitizeUTF8: o.sanitizeUTF8},
		Parallelism: o.parallel,
	}
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Inspect, clean and convert CSV and Excel files",
		Long: `sweep decodes CSV and Excel files, removes duplicate rows, fills missing
numbers with the column mean, keeps the columns you select and writes the
result as CSV or Excel.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), opts.logLevel, "text"))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&opts.sanitizeUTF8, "sanitize-utf8", false, "Replace invalid UTF-8 in CSV input with '?' instead of failing")
	rootCmd.PersistentFlags().IntVarP(&opts.parallel, "parallel", "p", 4, "Files processed at once")

	rootCmd.AddCommand(newInspectCommand(opts))
	rootCmd.AddCommand(newConvertCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln("Error:", err)
		return 1
	}
	return 0
}

// runFiles reads each path and runs the readable files through the plan
// built for them. A file that cannot be read gets a failed result in its
// slot and the others still run. Files are named by their base name.
func runFiles(ctx context.Context, root *options, paths []string, planFor func(core.FileUnit) core.Plan) ([]core.FileResult, error) {
	results := make([]core.FileResult, len(paths))
	jobs := make([]core.Job, 0, len(paths))
	slots := make([]int, 0, len(paths))
	for i, path := range paths {
		name := filepath.Base(path)
		data, err := os.ReadFile(path)
		if err != nil {
			results[i] = core.FileResult{Name: name, Stage: core.StageUploaded, Err: err}
			continue
		}
		unit := core.NewFileUnit(name, data)
		jobs = append(jobs, core.Job{Unit: unit, Plan: planFor(unit)})
		slots = append(slots, i)
	}
	if len(jobs) == 0 {
		return results, nil
	}

	ran, err := root.runner().Run(ctx, jobs)
	if err != nil {
		return nil, err
	}
	for j, res := range ran {
		results[slots[j]] = res
	}
	return results, nil
}

// describeError renders a file error for the terminal. Errors without a
// specific user message are shown as-is.
func describeError(err error) string {
	if core.IsUserFacing(err) {
		return core.FormatUserError(err)
	}
	return err.Error()
}
