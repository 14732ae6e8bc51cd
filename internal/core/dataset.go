package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// CellKind tags the value held by a Cell.
type CellKind uint8

const (
	KindMissing CellKind = iota
	KindNumber
	KindText
)

func (k CellKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "missing"
	}
}

// Cell is a single dataset value: a number, a piece of text, or missing.
// The zero value is a missing cell.
type Cell struct {
	kind CellKind
	num  float64
	text string
}

// Missing returns a missing cell.
func Missing() Cell { return Cell{} }

// Number returns a numeric cell. NaN is treated as missing.
func Number(v float64) Cell {
	if math.IsNaN(v) {
		return Cell{}
	}
	return Cell{kind: KindNumber, num: v}
}

// Text returns a text cell.
func Text(s string) Cell { return Cell{kind: KindText, text: s} }

func (c Cell) Kind() CellKind  { return c.kind }
func (c Cell) IsMissing() bool { return c.kind == KindMissing }

// Float returns the numeric value and whether the cell is numeric.
func (c Cell) Float() (float64, bool) {
	return c.num, c.kind == KindNumber
}

// Equal reports whether two cells hold the same kind and value.
// Two missing cells are equal.
func (c Cell) Equal(o Cell) bool {
	if c.kind != o.kind {
		return false
	}
	switch c.kind {
	case KindNumber:
		return c.num == o.num
	case KindText:
		return c.text == o.text
	default:
		return true
	}
}

// String renders the cell the way it is written to CSV: numbers in their
// shortest exact form, text verbatim, missing as the empty string.
func (c Cell) String() string {
	switch c.kind {
	case KindNumber:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	case KindText:
		return c.text
	default:
		return ""
	}
}

// MarshalJSON encodes numbers as JSON numbers, text as strings and
// missing cells as null.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case KindNumber:
		if math.IsInf(c.num, 0) {
			return json.Marshal(c.String())
		}
		return json.Marshal(c.num)
	case KindText:
		return json.Marshal(c.text)
	default:
		return []byte("null"), nil
	}
}

// ColumnType is the derived classification of a column.
type ColumnType int

const (
	// ColumnEmpty holds no values at all.
	ColumnEmpty ColumnType = iota
	// ColumnNumeric holds at least one number and no text.
	ColumnNumeric
	// ColumnText holds at least one text cell.
	ColumnText
)

func (t ColumnType) String() string {
	switch t {
	case ColumnNumeric:
		return "numeric"
	case ColumnText:
		return "text"
	default:
		return "empty"
	}
}

func (t ColumnType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Column is a named, ordered sequence of cells.
type Column struct {
	Name  string
	Cells []Cell
}

// Type classifies the column from its cells.
func (c Column) Type() ColumnType {
	hasNumber := false
	for _, cell := range c.Cells {
		switch cell.kind {
		case KindText:
			return ColumnText
		case KindNumber:
			hasNumber = true
		}
	}
	if hasNumber {
		return ColumnNumeric
	}
	return ColumnEmpty
}

// MissingCount returns how many cells in the column are missing.
func (c Column) MissingCount() int {
	n := 0
	for _, cell := range c.Cells {
		if cell.kind == KindMissing {
			n++
		}
	}
	return n
}

func (c Column) clone() Column {
	cells := make([]Cell, len(c.Cells))
	copy(cells, c.Cells)
	return Column{Name: c.Name, Cells: cells}
}

var (
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrRaggedColumns   = errors.New("columns have different lengths")
)

// Dataset is an ordered collection of equal-length, uniquely named columns.
//
// A Dataset is never modified after construction. Every transformation in
// this package returns a new Dataset, so a value can be shared freely.
type Dataset struct {
	columns []Column
	index   map[string]int
	rows    int
}

// NewDataset validates and copies the given columns into a Dataset.
func NewDataset(columns []Column) (*Dataset, error) {
	cols := make([]Column, len(columns))
	for i, c := range columns {
		cols[i] = c.clone()
	}
	rows := 0
	if len(cols) > 0 {
		rows = len(cols[0].Cells)
	}
	return newDataset(cols, rows)
}

// newDataset takes ownership of cols without copying.
func newDataset(cols []Column, rows int) (*Dataset, error) {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := index[c.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		if len(c.Cells) != rows {
			return nil, fmt.Errorf("%w: column %q has %d cells, want %d",
				ErrRaggedColumns, c.Name, len(c.Cells), rows)
		}
		index[c.Name] = i
	}
	return &Dataset{columns: cols, index: index, rows: rows}, nil
}

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

func (d *Dataset) RowCount() int    { return d.rows }
func (d *Dataset) ColumnCount() int { return len(d.columns) }

// HasColumn reports whether a column with the given name exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column returns a copy of the named column.
func (d *Dataset) Column(name string) (Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return Column{}, false
	}
	return d.columns[i].clone(), true
}

// Columns returns copies of every column in order.
func (d *Dataset) Columns() []Column {
	out := make([]Column, len(d.columns))
	for i, c := range d.columns {
		out[i] = c.clone()
	}
	return out
}

// Row returns the cells of row i in column order.
func (d *Dataset) Row(i int) []Cell {
	row := make([]Cell, len(d.columns))
	for j, c := range d.columns {
		row[j] = c.Cells[i]
	}
	return row
}

// Rows returns every row in order.
func (d *Dataset) Rows() [][]Cell {
	out := make([][]Cell, d.rows)
	for i := range out {
		out[i] = d.Row(i)
	}
	return out
}

// Clone returns a deep copy of d.
func (d *Dataset) Clone() *Dataset {
	cols := make([]Column, len(d.columns))
	for i, c := range d.columns {
		cols[i] = c.clone()
	}
	index := make(map[string]int, len(d.index))
	for k, v := range d.index {
		index[k] = v
	}
	return &Dataset{columns: cols, index: index, rows: d.rows}
}

// Equal reports whether two datasets have the same columns in the same
// order holding equal cells.
func (d *Dataset) Equal(o *Dataset) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.rows != o.rows || len(d.columns) != len(o.columns) {
		return false
	}
	for i, c := range d.columns {
		oc := o.columns[i]
		if c.Name != oc.Name {
			return false
		}
		for r := range c.Cells {
			if !c.Cells[r].Equal(oc.Cells[r]) {
				return false
			}
		}
	}
	return true
}

// FromRows builds a dataset from a header and row-major records.
// Short rows are padded with missing cells; long rows are an error.
func FromRows(header []string, rows [][]Cell) (*Dataset, error) {
	cols := make([]Column, len(header))
	for j, name := range header {
		cols[j] = Column{Name: name, Cells: make([]Cell, len(rows))}
	}
	for i, row := range rows {
		if len(row) > len(header) {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", i+1, len(header), len(row))
		}
		for j, cell := range row {
			cols[j].Cells[i] = cell
		}
	}
	return newDataset(cols, len(rows))
}
