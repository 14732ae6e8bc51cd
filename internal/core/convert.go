package core

// convert.go turns raw text from decoded files into typed cells, and typed
// audit values into their PostgreSQL representations.
//
// Raw values follow the conventions of common spreadsheet and dataframe tools:
//   - A fixed set of markers ("", "NA", "NaN", "null", "#N/A", ...) means missing
//   - Integers, decimals and scientific notation are numbers
//   - Everything else is text, kept verbatim
//
// ToPg* functions return pgtype values with Valid=false for empty input so
// the database stores NULL.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// missingMarkers are raw values read as missing cells. Matching is exact
// and case-sensitive.
var missingMarkers = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsMissingMarker reports whether s is read as a missing value.
func IsMissingMarker(s string) bool {
	_, ok := missingMarkers[s]
	return ok
}

// parseNumber returns the value of s when it is a plain decimal number.
// Surrounding whitespace is ignored.
func parseNumber(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	if !numericRegex.MatchString(t) {
		return 0, false
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseCell classifies a single raw value.
func ParseCell(s string) Cell {
	if IsMissingMarker(s) {
		return Missing()
	}
	if v, ok := parseNumber(s); ok {
		return Number(v)
	}
	return Text(s)
}

// typeColumn converts one column of raw values into cells.
//
// A column is numeric only when every non-missing value parses as a number.
// Otherwise every non-missing value is kept as text, so "1.0" in a mixed
// column is written back as "1.0".
func typeColumn(raw []string) []Cell {
	cells := make([]Cell, len(raw))
	numeric := true
	for i, s := range raw {
		if IsMissingMarker(s) {
			continue
		}
		v, ok := parseNumber(s)
		if !ok {
			numeric = false
			break
		}
		cells[i] = Number(v)
	}
	if numeric {
		return cells
	}
	for i, s := range raw {
		if IsMissingMarker(s) {
			cells[i] = Missing()
		} else {
			cells[i] = Text(s)
		}
	}
	return cells
}

// normalizeHeader gives blank names a positional "Unnamed: i" name and
// suffixes repeated names with ".1", ".2", ... so every name is unique.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	next := make(map[string]int)

	for i, name := range header {
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		candidate := name
		if used[candidate] {
			n := next[name]
			if n == 0 {
				n = 1
			}
			for {
				candidate = fmt.Sprintf("%s.%d", name, n)
				n++
				if !used[candidate] {
					break
				}
			}
			next[name] = n
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgInt4 converts an int to pgtype.Int4.
func ToPgInt4(i int) pgtype.Int4 {
	return pgtype.Int4{Int32: int32(i), Valid: true}
}

// ToPgInt8 converts an int64 to pgtype.Int8.
func ToPgInt8(i int64) pgtype.Int8 {
	return pgtype.Int8{Int64: i, Valid: true}
}

// ToPgUUID converts a uuid.UUID to pgtype.UUID.
// The nil UUID is stored as NULL.
func ToPgUUID(u uuid.UUID) pgtype.UUID {
	if u == uuid.Nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: u, Valid: true}
}

// PgUUIDToString converts a pgtype.UUID to its string representation.
// Returns empty string if the UUID is invalid.
func PgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
