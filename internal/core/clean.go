package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
)

// CleaningOp names a cleaning transformation.
type CleaningOp string

const (
	OpRemoveDuplicates   CleaningOp = "remove_duplicates"
	OpFillMissingNumeric CleaningOp = "fill_missing"
)

// CleaningOps lists every supported operation in display order.
var CleaningOps = []CleaningOp{OpRemoveDuplicates, OpFillMissingNumeric}

// ParseCleaningOp resolves an operation name. Hyphens and case are ignored,
// and "fill_missing_numeric" is accepted as an alias.
func ParseCleaningOp(s string) (CleaningOp, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch norm {
	case string(OpRemoveDuplicates), "dedupe":
		return OpRemoveDuplicates, nil
	case string(OpFillMissingNumeric), "fill_missing_numeric":
		return OpFillMissingNumeric, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCleaningOp, s)
	}
}

// CleanReport describes what a cleaning operation changed.
type CleanReport struct {
	Op          CleaningOp         `json:"op"`
	RowsBefore  int                `json:"rowsBefore"`
	RowsRemoved int                `json:"rowsRemoved"`
	CellsFilled int                `json:"cellsFilled"`
	Means       map[string]float64 `json:"means,omitempty"`
}

// Clean applies op to ds and returns the new dataset.
func Clean(ds *Dataset, op CleaningOp) (*Dataset, error) {
	out, _, err := CleanWithReport(ds, op)
	return out, err
}

// CleanWithReport applies op and also reports what changed.
//
// For OpFillMissingNumeric the returned dataset is usable even when err is
// non-nil: columns with values are filled and err lists the columns that
// had none.
func CleanWithReport(ds *Dataset, op CleaningOp) (*Dataset, CleanReport, error) {
	switch op {
	case OpRemoveDuplicates:
		out := RemoveDuplicates(ds)
		return out, CleanReport{
			Op:          op,
			RowsBefore:  ds.RowCount(),
			RowsRemoved: ds.RowCount() - out.RowCount(),
		}, nil
	case OpFillMissingNumeric:
		return fillMissingNumeric(ds)
	default:
		return nil, CleanReport{Op: op}, fmt.Errorf("%w: %q", ErrUnknownCleaningOp, op)
	}
}

// RemoveDuplicates drops every row equal to an earlier row. Missing cells
// compare equal to each other. Column order and names are unchanged.
func RemoveDuplicates(ds *Dataset) *Dataset {
	seen := make(map[string]struct{}, ds.RowCount())
	keep := make([]int, 0, ds.RowCount())

	var b strings.Builder
	for i := 0; i < ds.RowCount(); i++ {
		b.Reset()
		for _, col := range ds.columns {
			writeCellKey(&b, col.Cells[i])
		}
		key := b.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}

	cols := make([]Column, len(ds.columns))
	for j, col := range ds.columns {
		cells := make([]Cell, len(keep))
		for k, i := range keep {
			cells[k] = col.Cells[i]
		}
		cols[j] = Column{Name: col.Name, Cells: cells}
	}
	out, _ := newDataset(cols, len(keep))
	return out
}

// writeCellKey appends an unambiguous encoding of c to b.
func writeCellKey(b *strings.Builder, c Cell) {
	switch c.kind {
	case KindNumber:
		v := c.num
		if v == 0 {
			v = 0 // folds -0 into 0
		}
		b.WriteByte('n')
		b.WriteString(strconv.FormatUint(math.Float64bits(v), 16))
		b.WriteByte(';')
	case KindText:
		b.WriteByte('t')
		b.WriteString(strconv.Itoa(len(c.text)))
		b.WriteByte(':')
		b.WriteString(c.text)
	default:
		b.WriteByte('m')
	}
}

// FillMissingNumeric replaces missing cells in numeric columns with the
// mean of that column's values. Text columns are unchanged.
//
// Columns without any value are left as they are and reported as
// *EmptyNumericColumnError, joined into err. The returned dataset is
// valid either way.
func FillMissingNumeric(ds *Dataset) (*Dataset, error) {
	out, _, err := fillMissingNumeric(ds)
	return out, err
}

func fillMissingNumeric(ds *Dataset) (*Dataset, CleanReport, error) {
	report := CleanReport{
		Op:         OpFillMissingNumeric,
		RowsBefore: ds.RowCount(),
		Means:      make(map[string]float64),
	}
	var errs []error

	cols := make([]Column, len(ds.columns))
	for j, col := range ds.columns {
		switch col.Type() {
		case ColumnText:
			cols[j] = col
			continue
		case ColumnEmpty:
			cols[j] = col
			if ds.RowCount() > 0 {
				errs = append(errs, &EmptyNumericColumnError{Column: col.Name})
			}
			continue
		}

		values := make(stats.Float64Data, 0, len(col.Cells))
		for _, cell := range col.Cells {
			if v, ok := cell.Float(); ok {
				values = append(values, v)
			}
		}
		mean, err := stats.Mean(values)
		if err != nil {
			errs = append(errs, &EmptyNumericColumnError{Column: col.Name})
			cols[j] = col
			continue
		}
		report.Means[col.Name] = mean

		cells := make([]Cell, len(col.Cells))
		for i, cell := range col.Cells {
			if cell.IsMissing() {
				cells[i] = Number(mean)
				report.CellsFilled++
			} else {
				cells[i] = cell
			}
		}
		cols[j] = Column{Name: col.Name, Cells: cells}
	}

	out, _ := newDataset(cols, ds.RowCount())
	return out, report, errors.Join(errs...)
}
