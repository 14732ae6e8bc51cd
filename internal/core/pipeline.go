package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/datasweep/internal/logging"
)

// Pipeline carries one file through decode, cleaning, projection and
// export. Each step is only allowed from certain stages:
//
//	Uploaded  --Decode-->  Decoded
//	Decoded   --Clean-->   Cleaned   (repeatable)
//	Decoded   --Project--> Projected (also from Cleaned, Projected, Exported)
//	Projected --Export-->  Exported  (repeatable)
//
// A Pipeline is not safe for concurrent use. Separate files use separate
// pipelines and share nothing.
type Pipeline struct {
	unit    FileUnit
	codec   Codec
	audit   AuditRecorder
	stage   Stage
	source  *Dataset
	current *Dataset
	reports []CleanReport
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithCodec sets the codec used to decode and encode.
func WithCodec(c Codec) PipelineOption {
	return func(p *Pipeline) { p.codec = c }
}

// WithAudit records every completed step.
func WithAudit(rec AuditRecorder) PipelineOption {
	return func(p *Pipeline) { p.audit = rec }
}

// NewPipeline starts a pipeline for unit in the Uploaded stage.
func NewPipeline(unit FileUnit, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{unit: unit, stage: StageUploaded}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Stage() Stage { return p.stage }

// Dataset returns the current dataset, or nil before a successful decode.
func (p *Pipeline) Dataset() *Dataset { return p.current }

// Reports returns the cleaning reports in the order operations ran.
func (p *Pipeline) Reports() []CleanReport {
	out := make([]CleanReport, len(p.reports))
	copy(out, p.reports)
	return out
}

func (p *Pipeline) logger(ctx context.Context) *slog.Logger {
	return logging.WithFields(ctx, "file", p.unit.Name, "stage", p.stage)
}

func (p *Pipeline) allow(action string, from ...Stage) error {
	for _, s := range from {
		if p.stage == s {
			return nil
		}
	}
	return &InvalidTransitionError{From: p.stage, Action: action}
}

// Decode parses the unit's bytes. On failure the pipeline stays Uploaded.
func (p *Pipeline) Decode(ctx context.Context) error {
	if err := p.allow("decode", StageUploaded); err != nil {
		return err
	}

	entry := newAuditEntry(ctx, ActionDecode, p.unit.Name)
	entry.Bytes = p.unit.Size

	ds, err := p.codec.Decode(p.unit.Data, p.unit.Ext)
	if err != nil {
		entry.Failed = true
		entry.Detail = err.Error()
		recordAudit(ctx, p.audit, entry)
		p.logger(ctx).Warn("decode failed", "error", err)
		return fmt.Errorf("%s: %w", p.unit.Name, err)
	}

	p.source, p.current = ds, ds
	p.stage = StageDecoded

	entry.Rows, entry.Columns = ds.RowCount(), ds.ColumnCount()
	recordAudit(ctx, p.audit, entry)
	p.logger(ctx).Debug("decoded", "rows", ds.RowCount(), "columns", ds.ColumnCount())
	return nil
}

// Clean applies op to the current dataset.
//
// Empty numeric columns do not stop the step: the dataset is updated, the
// pipeline moves to Cleaned and the joined column errors are returned.
func (p *Pipeline) Clean(ctx context.Context, op CleaningOp) (CleanReport, error) {
	if err := p.allow("clean", StageDecoded, StageCleaned); err != nil {
		return CleanReport{}, err
	}

	out, report, err := CleanWithReport(p.current, op)
	if err != nil && !IsWarning(err) {
		return report, err
	}

	p.current = out
	p.stage = StageCleaned
	p.reports = append(p.reports, report)

	entry := newAuditEntry(ctx, ActionClean, p.unit.Name)
	entry.Detail = string(op)
	if empty := EmptyColumns(err); len(empty) > 0 {
		entry.Detail += ": empty numeric columns " + strings.Join(empty, ", ")
	}
	entry.Rows, entry.Columns = out.RowCount(), out.ColumnCount()
	recordAudit(ctx, p.audit, entry)

	p.logger(ctx).Debug("cleaned",
		"op", op,
		"rows_removed", report.RowsRemoved,
		"cells_filled", report.CellsFilled,
	)
	return report, err
}

// Project keeps only the named columns. A nil selection keeps every column.
// Projecting again after an export projects the current dataset.
func (p *Pipeline) Project(ctx context.Context, columns []string) error {
	if err := p.allow("project", StageDecoded, StageCleaned, StageProjected, StageExported); err != nil {
		return err
	}

	out, err := Project(p.current, columns)
	if err != nil {
		return err
	}
	p.current = out
	p.stage = StageProjected

	entry := newAuditEntry(ctx, ActionProject, p.unit.Name)
	entry.Detail = strings.Join(out.ColumnNames(), ",")
	entry.Rows, entry.Columns = out.RowCount(), out.ColumnCount()
	recordAudit(ctx, p.audit, entry)
	return nil
}

// Export encodes the current dataset. Each call encodes afresh. An empty
// filename becomes the source name with the format's extension.
func (p *Pipeline) Export(ctx context.Context, format Format, filename string) (EncodedFile, error) {
	if err := p.allow("export", StageProjected, StageExported); err != nil {
		return EncodedFile{}, err
	}
	if filename == "" {
		filename = DefaultExportName(p.unit.Name, format)
	}

	file, err := p.codec.Export(p.current, format, filename)
	if err != nil {
		p.logger(ctx).Error("export failed", "format", format, "error", err)
		return EncodedFile{}, err
	}
	p.stage = StageExported

	entry := newAuditEntry(ctx, ActionExport, p.unit.Name)
	entry.Detail = file.Filename
	entry.Rows, entry.Columns = p.current.RowCount(), p.current.ColumnCount()
	entry.Bytes = int64(len(file.Data))
	recordAudit(ctx, p.audit, entry)
	return file, nil
}

// Preview returns the head of the decoded source dataset.
func (p *Pipeline) Preview(n int) (PreviewTable, error) {
	if p.source == nil {
		return PreviewTable{}, &InvalidTransitionError{From: p.stage, Action: "preview"}
	}
	return PreviewOf(p.source, n), nil
}

// Describe classifies the columns of the current dataset.
func (p *Pipeline) Describe() ([]ColumnInfo, error) {
	if p.current == nil {
		return nil, &InvalidTransitionError{From: p.stage, Action: "describe"}
	}
	return Describe(p.current), nil
}

// Summary returns the chartable numeric columns of the current dataset.
func (p *Pipeline) Summary(maxColumns int) ([]Series, error) {
	if p.current == nil {
		return nil, &InvalidTransitionError{From: p.stage, Action: "summarize"}
	}
	return NumericSummary(p.current, maxColumns), nil
}
