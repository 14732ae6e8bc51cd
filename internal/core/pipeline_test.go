package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScenarioPipeline(opts ...PipelineOption) *Pipeline {
	return NewPipeline(NewFileUnit("data.csv", []byte(scenarioCSV)), opts...)
}

func TestPipeline_FullRun(t *testing.T) {
	ctx := context.Background()
	audit := NewMemoryAuditLog(10)
	p := newScenarioPipeline(WithAudit(audit))
	assert.Equal(t, StageUploaded, p.Stage())
	assert.Nil(t, p.Dataset())

	require.NoError(t, p.Decode(ctx))
	assert.Equal(t, StageDecoded, p.Stage())

	_, err := p.Clean(ctx, OpRemoveDuplicates)
	require.NoError(t, err)
	report, err := p.Clean(ctx, OpFillMissingNumeric)
	require.NoError(t, err)
	assert.Equal(t, 1, report.CellsFilled)
	assert.Equal(t, StageCleaned, p.Stage())
	assert.Len(t, p.Reports(), 2)

	require.NoError(t, p.Project(ctx, []string{"b"}))
	assert.Equal(t, StageProjected, p.Stage())

	file, err := p.Export(ctx, FormatCSV, "")
	require.NoError(t, err)
	assert.Equal(t, StageExported, p.Stage())
	assert.Equal(t, "data.csv", file.Filename)
	assert.Equal(t, MIMETypeCSV, file.MIMEType)
	assert.Equal(t, "b\n5\n5\n5\n", string(file.Data))

	// Source stays as decoded.
	preview, err := p.Preview(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, preview.Columns)
	assert.True(t, preview.Rows[0][1].IsMissing())

	entries, err := audit.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, ActionExport, entries[0].Action)
	assert.Equal(t, ActionDecode, entries[4].Action)
	assert.Equal(t, 3, entries[4].Rows)
}

func TestPipeline_ExportRepeatable(t *testing.T) {
	ctx := context.Background()
	p := newScenarioPipeline()
	require.NoError(t, p.Decode(ctx))
	require.NoError(t, p.Project(ctx, nil))

	csvFile, err := p.Export(ctx, FormatCSV, "out.csv")
	require.NoError(t, err)
	xlsx, err := p.Export(ctx, FormatExcel, "")
	require.NoError(t, err)

	assert.Equal(t, "out.csv", csvFile.Filename)
	assert.Equal(t, "data.xlsx", xlsx.Filename)
	assert.Equal(t, MIMETypeExcel, xlsx.MIMEType)
	assert.Equal(t, StageExported, p.Stage())

	back, err := Decode(xlsx.Data, xlsx.Filename)
	require.NoError(t, err)
	assert.True(t, p.Dataset().Equal(back))
}

func TestPipeline_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	p := newScenarioPipeline()

	var ite *InvalidTransitionError

	_, err := p.Clean(ctx, OpRemoveDuplicates)
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, StageUploaded, ite.From)

	assert.True(t, errors.As(p.Project(ctx, nil), &ite))

	_, err = p.Export(ctx, FormatCSV, "")
	assert.True(t, errors.As(err, &ite))

	_, err = p.Preview(5)
	assert.True(t, errors.As(err, &ite))

	require.NoError(t, p.Decode(ctx))
	assert.True(t, errors.As(p.Decode(ctx), &ite), "decode runs once")

	_, err = p.Export(ctx, FormatCSV, "")
	assert.True(t, errors.As(err, &ite), "export needs a projection")

	require.NoError(t, p.Project(ctx, nil))
	_, err = p.Clean(ctx, OpRemoveDuplicates)
	assert.True(t, errors.As(err, &ite), "no cleaning after projection")
}

func TestPipeline_DecodeFailureStaysUploaded(t *testing.T) {
	ctx := context.Background()
	audit := NewMemoryAuditLog(10)
	p := NewPipeline(NewFileUnit("notes.txt", []byte("x")), WithAudit(audit))

	err := p.Decode(ctx)
	var ufe *UnsupportedFormatError
	require.True(t, errors.As(err, &ufe))
	assert.Contains(t, err.Error(), "notes.txt")
	assert.Equal(t, StageUploaded, p.Stage())

	entries, _ := audit.Recent(ctx, 0)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Failed)
}

func TestPipeline_DecodeUsesUnitExtension(t *testing.T) {
	ctx := context.Background()
	unit := NewFileUnit("DATA.CSV", []byte(scenarioCSV))
	assert.Equal(t, ".csv", unit.Ext)

	p := NewPipeline(unit)
	require.NoError(t, p.Decode(ctx))
	assert.Equal(t, 3, p.Dataset().RowCount())

	// A unit whose extension was recorded separately from its name.
	p = NewPipeline(FileUnit{Name: "upload", Ext: ".csv", Data: []byte(scenarioCSV)})
	require.NoError(t, p.Decode(ctx))
}

func TestPipeline_CleanWarningStillAdvances(t *testing.T) {
	ctx := context.Background()
	p := NewPipeline(NewFileUnit("w.csv", []byte("x,blank\n1,\n,\n3,\n")))
	require.NoError(t, p.Decode(ctx))

	_, err := p.Clean(ctx, OpFillMissingNumeric)
	require.Error(t, err)
	assert.True(t, IsWarning(err))
	assert.Equal(t, []string{"blank"}, EmptyColumns(err))
	assert.Equal(t, StageCleaned, p.Stage())

	x, _ := p.Dataset().Column("x")
	assert.True(t, x.Cells[1].Equal(Number(2)))
}

func TestPipeline_ProjectUnknownColumn(t *testing.T) {
	ctx := context.Background()
	p := newScenarioPipeline()
	require.NoError(t, p.Decode(ctx))

	err := p.Project(ctx, []string{"nope"})
	var uce *UnknownColumnError
	require.True(t, errors.As(err, &uce))
	assert.Equal(t, StageDecoded, p.Stage())
}

func TestPipeline_Summary(t *testing.T) {
	ctx := context.Background()
	p := newScenarioPipeline()

	_, err := p.Summary(0)
	assert.Error(t, err)

	require.NoError(t, p.Decode(ctx))
	series, err := p.Summary(0)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "a", series[0].Name)
	assert.Nil(t, series[1].Values[0])
}

func TestPipeline_AuditCarriesRequestMetadata(t *testing.T) {
	audit := NewMemoryAuditLog(4)
	ctx := ContextWithIPAddress(context.Background(), "10.0.0.1")
	ctx = ContextWithUserAgent(ctx, "curl/8")

	p := newScenarioPipeline(WithAudit(audit))
	require.NoError(t, p.Decode(ctx))

	entries, _ := audit.Recent(ctx, 1)
	require.Len(t, entries, 1)
	assert.Equal(t, "10.0.0.1", entries[0].IPAddress)
	assert.Equal(t, "curl/8", entries[0].UserAgent)
	assert.NotEmpty(t, entries[0].ID)
}
