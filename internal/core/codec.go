package core

import (
	"path/filepath"
	"strings"
)

// Format is a tabular file format the codec can read and write.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatExcel
)

const (
	MIMETypeCSV   = "text/csv"
	MIMETypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatExcel:
		return "excel"
	default:
		return "unknown"
	}
}

// MIMEType returns the content type used when serving encoded bytes.
func (f Format) MIMEType() string {
	switch f {
	case FormatCSV:
		return MIMETypeCSV
	case FormatExcel:
		return MIMETypeExcel
	default:
		return "application/octet-stream"
	}
}

// Extension returns the file extension written for the format.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatExcel:
		return ".xlsx"
	default:
		return ""
	}
}

func (f Format) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// ParseFormat resolves an export format name. Accepted names are "csv",
// "excel" and "xlsx", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "excel", "xlsx":
		return FormatExcel, nil
	default:
		return FormatUnknown, &UnsupportedFormatError{Extension: s}
	}
}

// FormatForExtension resolves the input format for a file extension
// (with leading dot, any case).
func FormatForExtension(ext string) (Format, error) {
	switch strings.ToLower(ext) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xls":
		return FormatExcel, nil
	default:
		return FormatUnknown, &UnsupportedFormatError{Extension: ext}
	}
}

// extensionOf accepts a filename or a bare extension such as ".csv".
func extensionOf(nameOrExt string) string {
	return strings.ToLower(filepath.Ext(nameOrExt))
}

// Codec converts between file bytes and datasets. The zero value is ready
// to use and rejects invalid UTF-8 in CSV input.
type Codec struct {
	// SanitizeUTF8 replaces invalid UTF-8 bytes in CSV input with '?'
	// instead of failing the decode.
	SanitizeUTF8 bool
}

// Decode parses data according to the extension of nameOrExt.
func (c Codec) Decode(data []byte, nameOrExt string) (*Dataset, error) {
	format, err := FormatForExtension(extensionOf(nameOrExt))
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatCSV:
		return c.decodeCSV(data)
	default:
		return c.decodeExcel(data)
	}
}

// Encode serializes ds in the given format.
func (c Codec) Encode(ds *Dataset, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return encodeCSV(ds)
	case FormatExcel:
		return encodeExcel(ds)
	default:
		return nil, &UnsupportedFormatError{Extension: format.String()}
	}
}

var defaultCodec Codec

// Decode parses data with the default codec.
func Decode(data []byte, nameOrExt string) (*Dataset, error) {
	return defaultCodec.Decode(data, nameOrExt)
}

// Encode serializes ds with the default codec.
func Encode(ds *Dataset, format Format) ([]byte, error) {
	return defaultCodec.Encode(ds, format)
}

// EncodedFile is an export ready to hand to a caller.
type EncodedFile struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// Export encodes ds and names the result. An empty filename is left empty;
// callers usually pass DefaultExportName.
func Export(ds *Dataset, format Format, filename string) (EncodedFile, error) {
	return defaultCodec.Export(ds, format, filename)
}

// Export encodes ds and wraps it with its filename and content type.
func (c Codec) Export(ds *Dataset, format Format, filename string) (EncodedFile, error) {
	data, err := c.Encode(ds, format)
	if err != nil {
		return EncodedFile{}, err
	}
	return EncodedFile{Filename: filename, MIMEType: format.MIMEType(), Data: data}, nil
}

// DefaultExportName replaces the extension of a source filename with the
// one written for format.
func DefaultExportName(source string, format Format) string {
	base := filepath.Base(source)
	if base == "." || base == string(filepath.Separator) {
		base = "export"
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + format.Extension()
}
