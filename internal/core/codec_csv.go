package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

func (c Codec) decodeCSV(data []byte) (*Dataset, error) {
	fail := func(err error) (*Dataset, error) {
		return nil, &DecodeError{Format: FormatCSV, Err: err}
	}

	if len(bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))) == 0 {
		return fail(ErrEmptyFile)
	}

	var r io.Reader = NewBOMSkippingReader(bytes.NewReader(data))
	if c.SanitizeUTF8 {
		r = NewStreamingUTF8Sanitizer(r)
	} else if !utf8.Valid(data) {
		return fail(ErrInvalidEncoding)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return fail(ErrEmptyFile)
	}
	if err != nil {
		return fail(fmt.Errorf("invalid csv header: %w", err))
	}
	header = normalizeHeader(header)

	raw := make([][]string, len(header))
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(fmt.Errorf("invalid csv: %w", err))
		}
		if len(record) > len(header) {
			row, _ := cr.FieldPos(0)
			return fail(fmt.Errorf("invalid csv: line %d: expected %d fields, saw %d",
				row, len(header), len(record)))
		}
		for j := range header {
			v := ""
			if j < len(record) {
				v = record[j]
			}
			raw[j] = append(raw[j], v)
		}
	}

	rows := 0
	if len(raw) > 0 {
		rows = len(raw[0])
	}
	cols := make([]Column, len(header))
	for j, name := range header {
		cols[j] = Column{Name: name, Cells: typeColumn(raw[j])}
	}
	ds, err := newDataset(cols, rows)
	if err != nil {
		return fail(err)
	}
	return ds, nil
}

// encodeCSV writes RFC 4180 CSV with LF record endings. CR bytes inside text
// are written as-is; a quoted CRLF reads back as LF.
func encodeCSV(ds *Dataset) ([]byte, error) {
	fail := func(err error) ([]byte, error) {
		return nil, &EncodeError{Format: FormatCSV, Err: err}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(ds.ColumnNames()); err != nil {
		return fail(err)
	}

	record := make([]string, ds.ColumnCount())
	for i := 0; i < ds.RowCount(); i++ {
		for j, col := range ds.columns {
			record[j] = col.Cells[i].String()
		}
		// A lone empty field would be written as a blank line, which
		// readers skip. Quote it so the row survives.
		if len(record) == 1 && record[0] == "" {
			w.Flush()
			buf.WriteString("\"\"\n")
			continue
		}
		if err := w.Write(record); err != nil {
			return fail(err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fail(err)
	}
	return buf.Bytes(), nil
}
