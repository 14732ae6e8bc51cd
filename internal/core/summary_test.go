package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericSummary(t *testing.T) {
	ds := mustDataset(t, []string{"name", "x", "blank", "y", "z"},
		[]Cell{Text("a"), Number(1), Missing(), Number(10), Number(100)},
		[]Cell{Text("b"), Missing(), Missing(), Number(20), Number(200)},
	)

	series := NumericSummary(ds, 0)
	require.Len(t, series, DefaultSummaryColumns)
	assert.Equal(t, "x", series[0].Name)
	assert.Equal(t, "y", series[1].Name)

	require.NotNil(t, series[0].Values[0])
	assert.Equal(t, 1.0, *series[0].Values[0])
	assert.Nil(t, series[0].Values[1])
}

func TestNumericSummary_FewerColumns(t *testing.T) {
	ds := mustDataset(t, []string{"t", "n"}, []Cell{Text("a"), Number(1)})
	assert.Len(t, NumericSummary(ds, 2), 1)

	textOnly := mustDataset(t, []string{"t"}, []Cell{Text("a")})
	assert.Empty(t, NumericSummary(textOnly, 2))
}

func TestNumericSummary_Limit(t *testing.T) {
	ds := mustDataset(t, []string{"a", "b", "c"}, nums(1, 2, 3))
	assert.Len(t, NumericSummary(ds, 3), 3)
	assert.Len(t, NumericSummary(ds, 1), 1)
}

func TestSeries_Stats(t *testing.T) {
	ds := mustDataset(t, []string{"v"}, nums(2), []Cell{Missing()}, nums(4), nums(9))
	st := NumericSummary(ds, 1)[0].Stats()

	assert.Equal(t, 3, st.Count)
	assert.Equal(t, 1, st.Missing)
	assert.Equal(t, 5.0, st.Mean)
	assert.Equal(t, 2.0, st.Min)
	assert.Equal(t, 9.0, st.Max)
}

func TestPreview(t *testing.T) {
	rows := make([][]Cell, 8)
	for i := range rows {
		rows[i] = nums(float64(i))
	}
	ds := mustDataset(t, []string{"i"}, rows...)

	assert.Len(t, Preview(ds, 0), DefaultPreviewRows)
	assert.Len(t, Preview(ds, 3), 3)
	assert.Len(t, Preview(ds, 50), 8)

	table := PreviewOf(ds, 5)
	assert.Equal(t, []string{"i"}, table.Columns)
	assert.Equal(t, 8, table.TotalRows)
	assert.True(t, table.Truncated)
}

func TestDescribe(t *testing.T) {
	ds := mustDataset(t, []string{"n", "t", "e"},
		[]Cell{Number(1), Text("a"), Missing()},
		[]Cell{Missing(), Text("b"), Missing()},
	)
	info := Describe(ds)
	assert.Equal(t, []ColumnInfo{
		{Name: "n", Type: ColumnNumeric, Missing: 1},
		{Name: "t", Type: ColumnText, Missing: 0},
		{Name: "e", Type: ColumnEmpty, Missing: 2},
	}, info)
}
