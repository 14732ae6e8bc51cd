package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/datasweep/internal/logging"
)

// Plan is what to do with one file after decoding.
type Plan struct {
	Clean   []CleaningOp
	Columns []string // nil keeps every column
	// Format selects the export format. FormatUnknown skips the export,
	// which is how files are only inspected.
	Format         Format
	Filename       string
	PreviewRows    int
	SummaryColumns int
}

// Job pairs an uploaded file with its plan.
type Job struct {
	Unit FileUnit
	Plan Plan
}

// FileResult is the outcome for one file. Err is set when the file could
// not be carried through its plan; other files are unaffected.
type FileResult struct {
	Name     string        `json:"name"`
	Size     int64         `json:"size"`
	SizeKB   float64       `json:"size_kb"`
	Stage    Stage         `json:"stage"`
	Rows     int           `json:"rows"`
	Columns  []ColumnInfo  `json:"columns,omitempty"`
	Preview  *PreviewTable `json:"preview,omitempty"`
	Summary  []Series      `json:"summary,omitempty"`
	Cleaning []CleanReport `json:"cleaning,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Export   *EncodedFile  `json:"export,omitempty"`
	Err      error         `json:"-"`
}

// Runner processes batches of independent files.
type Runner struct {
	Codec Codec
	// Parallelism bounds how many files of one batch run at once.
	// Zero or less runs files one at a time.
	Parallelism int
	Limiter     *UploadLimiter
	Audit       AuditRecorder
}

// Run carries every job through its plan and returns results in job order.
// Only failure to admit the batch is returned as an error; per-file
// failures are reported in FileResult.Err.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]FileResult, error) {
	if r.Limiter == nil {
		return r.runBatch(ctx, jobs), nil
	}
	var results []FileResult
	err := r.Limiter.Do(ctx, func(ctx context.Context) error {
		results = r.runBatch(ctx, jobs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) runBatch(ctx context.Context, jobs []Job) []FileResult {
	batchID := uuid.NewString()
	ctx = ContextWithBatchID(ctx, batchID)
	logger := logging.WithFields(ctx, "batch_id", batchID)
	start := time.Now()
	logger.Info("batch started", "files", len(jobs))

	results := make([]FileResult, len(jobs))
	g := new(errgroup.Group)
	g.SetLimit(max(r.Parallelism, 1))

	for i, job := range jobs {
		g.Go(func() error {
			results[i] = r.runOne(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}

	entry := newAuditEntry(ctx, ActionBatch, "")
	entry.Detail = fmt.Sprintf("files=%d failed=%d", len(jobs), failed)
	entry.Failed = failed > 0
	recordAudit(ctx, r.Audit, entry)

	logger.Info("batch finished",
		"files", len(jobs),
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return results
}

func (r *Runner) runOne(ctx context.Context, job Job) (res FileResult) {
	res = FileResult{Name: job.Unit.Name, Size: job.Unit.Size, SizeKB: job.Unit.SizeKB(), Stage: StageUploaded}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	p := NewPipeline(job.Unit, WithCodec(r.Codec), WithAudit(r.Audit))
	defer func() {
		res.Stage = p.Stage()
		if res.Err != nil {
			logging.WithFields(ctx, "file", job.Unit.Name).Warn("file failed",
				"stage", res.Stage,
				"error", res.Err,
			)
		}
	}()

	if err := p.Decode(ctx); err != nil {
		res.Err = err
		return res
	}
	preview, _ := p.Preview(job.Plan.PreviewRows)
	res.Preview = &preview

	for _, op := range job.Plan.Clean {
		report, err := p.Clean(ctx, op)
		if err != nil {
			if !IsWarning(err) {
				res.Err = err
				return res
			}
			res.Warnings = append(res.Warnings, warningMessages(err)...)
		}
		res.Cleaning = append(res.Cleaning, report)
	}

	if err := p.Project(ctx, job.Plan.Columns); err != nil {
		res.Err = err
		return res
	}

	ds := p.Dataset()
	res.Rows = ds.RowCount()
	res.Columns, _ = p.Describe()
	res.Summary, _ = p.Summary(job.Plan.SummaryColumns)

	if job.Plan.Format == FormatUnknown {
		return res
	}
	file, err := p.Export(ctx, job.Plan.Format, job.Plan.Filename)
	if err != nil {
		res.Err = err
		return res
	}
	res.Export = &file
	return res
}

func warningMessages(err error) []string {
	if u, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, inner := range u.Unwrap() {
			out = append(out, warningMessages(inner)...)
		}
		return out
	}
	var empty *EmptyNumericColumnError
	if errors.As(err, &empty) {
		return []string{empty.Error()}
	}
	return []string{err.Error()}
}
