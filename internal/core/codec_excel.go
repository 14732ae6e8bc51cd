package core

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"
)

const excelSheet = "Sheet1"

// decodeExcel reads the first worksheet of an OOXML workbook. The first row
// is the header. String cells stay text even when they look numeric.
func (c Codec) decodeExcel(data []byte) (*Dataset, error) {
	fail := func(err error) (*Dataset, error) {
		return nil, &DecodeError{Format: FormatExcel, Err: err}
	}

	if len(data) == 0 {
		return fail(ErrEmptyFile)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return fail(fmt.Errorf("open workbook: %w", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fail(ErrEmptyFile)
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return fail(fmt.Errorf("read sheet %q: %w", sheet, err))
	}
	if len(rows) == 0 {
		return fail(ErrEmptyFile)
	}

	// GetRows stops at the last non-empty row. The sheet dimension keeps
	// trailing rows whose cells are all unset.
	dimRows := sheetRows(f, sheet)
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	header := make([]string, width)
	copy(header, rows[0])
	header = normalizeHeader(header)

	body := rows[1:]
	for len(body) < dimRows-1 {
		body = append(body, nil)
	}
	cols := make([]Column, width)
	for j, name := range header {
		cols[j] = Column{Name: name, Cells: make([]Cell, len(body))}
	}

	for i, row := range body {
		for j, value := range row {
			if value == "" {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return fail(err)
			}
			typ, err := f.GetCellType(sheet, ref)
			if err != nil {
				return fail(fmt.Errorf("cell %s: %w", ref, err))
			}
			cols[j].Cells[i] = excelCell(typ, value)
		}
	}

	ds, err := newDataset(cols, len(body))
	if err != nil {
		return fail(err)
	}
	return ds, nil
}

// sheetRows reads the last row of the used range recorded in the sheet. It
// returns zero when the sheet records none.
func sheetRows(f *excelize.File, sheet string) int {
	ref, err := f.GetSheetDimension(sheet)
	if err != nil || ref == "" {
		return 0
	}
	last := ref
	if i := strings.LastIndexByte(ref, ':'); i >= 0 {
		last = ref[i+1:]
	}
	_, rows, err := excelize.CellNameToCoordinates(last)
	if err != nil {
		return 0
	}
	return rows
}

func excelCell(typ excelize.CellType, value string) Cell {
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeDate:
		return Text(value)
	case excelize.CellTypeBool:
		if value == "1" || strings.EqualFold(value, "true") {
			return Text("TRUE")
		}
		return Text("FALSE")
	case excelize.CellTypeError:
		return Missing()
	default:
		return ParseCell(value)
	}
}

// encodeExcel writes ds to a single-sheet workbook. Missing cells are left
// unset; the sheet dimension records the full extent so trailing empty rows
// survive a round trip.
func encodeExcel(ds *Dataset) ([]byte, error) {
	fail := func(err error) ([]byte, error) {
		return nil, &EncodeError{Format: FormatExcel, Err: err}
	}

	f := excelize.NewFile()
	defer f.Close()

	for j, name := range ds.ColumnNames() {
		ref, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return fail(err)
		}
		if err := f.SetCellStr(excelSheet, ref, name); err != nil {
			return fail(err)
		}
	}

	for j, col := range ds.columns {
		for i, cell := range col.Cells {
			if cell.IsMissing() {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return fail(err)
			}
			if v, ok := cell.Float(); ok {
				if math.IsInf(v, 0) {
					return fail(fmt.Errorf("cell %s: infinite value cannot be stored", ref))
				}
				err = f.SetCellFloat(excelSheet, ref, v, -1, 64)
			} else {
				err = f.SetCellStr(excelSheet, ref, cell.String())
			}
			if err != nil {
				return fail(err)
			}
		}
	}

	if ds.ColumnCount() > 0 {
		last, err := excelize.CoordinatesToCellName(ds.ColumnCount(), ds.RowCount()+1)
		if err != nil {
			return fail(err)
		}
		if err := f.SetSheetDimension(excelSheet, "A1:"+last); err != nil {
			return fail(err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fail(err)
	}
	return buf.Bytes(), nil
}
