// Package templates renders the upload page and its HTMX fragments. The
// components live in .templ files; run `templ generate` after editing them.
package templates

import (
	"fmt"
	"strconv"

	"github.com/JonMunkholm/datasweep/internal/core"
)

// IndexData is what the upload page needs to know about the server.
type IndexData struct {
	MaxFileSizeMB int64
	MaxFiles      int
	PreviewRows   int
}

func opLabel(op core.CleaningOp) string {
	switch op {
	case core.OpRemoveDuplicates:
		return "Remove duplicates"
	case core.OpFillMissingNumeric:
		return "Fill missing numbers with the column mean"
	}
	return string(op)
}

func formatKB(kb float64) string {
	return strconv.FormatFloat(kb, 'f', 1, 64)
}

// describeSeries is the one-line summary shown under a series name.
func describeSeries(s core.Series) string {
	st := s.Stats()
	return fmt.Sprintf("mean %s, min %s, max %s, missing %d",
		formatStat(st.Mean), formatStat(st.Min), formatStat(st.Max), st.Missing)
}

func formatStat(v float64) string {
	return core.Number(v).String()
}
