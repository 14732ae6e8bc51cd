package core

// DefaultPreviewRows is the number of leading rows shown when a preview
// size is not given.
const DefaultPreviewRows = 5

// PreviewTable is the head of a dataset, ready for display.
type PreviewTable struct {
	Columns   []string `json:"columns"`
	Rows      [][]Cell `json:"rows"`
	TotalRows int      `json:"totalRows"`
	Truncated bool     `json:"truncated"`
}

// ColumnInfo describes one column for inspection.
type ColumnInfo struct {
	Name    string     `json:"name"`
	Type    ColumnType `json:"type"`
	Missing int        `json:"missing"`
}

// Preview returns the first n rows of ds. n <= 0 uses DefaultPreviewRows.
func Preview(ds *Dataset, n int) [][]Cell {
	if n <= 0 {
		n = DefaultPreviewRows
	}
	n = min(n, ds.RowCount())
	rows := make([][]Cell, n)
	for i := range rows {
		rows[i] = ds.Row(i)
	}
	return rows
}

// PreviewOf wraps Preview with the column names and row totals.
func PreviewOf(ds *Dataset, n int) PreviewTable {
	rows := Preview(ds, n)
	return PreviewTable{
		Columns:   ds.ColumnNames(),
		Rows:      rows,
		TotalRows: ds.RowCount(),
		Truncated: len(rows) < ds.RowCount(),
	}
}

// Describe classifies every column of ds.
func Describe(ds *Dataset) []ColumnInfo {
	out := make([]ColumnInfo, len(ds.columns))
	for i, col := range ds.columns {
		out[i] = ColumnInfo{Name: col.Name, Type: col.Type(), Missing: col.MissingCount()}
	}
	return out
}
