package core

import "github.com/montanaflynn/stats"

// DefaultSummaryColumns is how many numeric columns NumericSummary returns
// when no limit is given.
const DefaultSummaryColumns = 2

// Series is one numeric column prepared for charting. Missing cells are nil.
type Series struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// SeriesStats are descriptive statistics over the non-missing values.
type SeriesStats struct {
	Count   int     `json:"count"`
	Missing int     `json:"missing"`
	Mean    float64 `json:"mean"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// NumericSummary returns the first maxColumns numeric columns of ds in
// column order. Fewer are returned when ds has fewer numeric columns.
func NumericSummary(ds *Dataset, maxColumns int) []Series {
	if maxColumns <= 0 {
		maxColumns = DefaultSummaryColumns
	}

	out := make([]Series, 0, maxColumns)
	for _, col := range ds.columns {
		if len(out) == maxColumns {
			break
		}
		if col.Type() != ColumnNumeric {
			continue
		}
		values := make([]*float64, len(col.Cells))
		for i, cell := range col.Cells {
			if v, ok := cell.Float(); ok {
				values[i] = &v
			}
		}
		out = append(out, Series{Name: col.Name, Values: values})
	}
	return out
}

// Stats computes count, mean, min and max of the series values.
func (s Series) Stats() SeriesStats {
	data := make(stats.Float64Data, 0, len(s.Values))
	for _, v := range s.Values {
		if v != nil {
			data = append(data, *v)
		}
	}
	st := SeriesStats{Count: len(data), Missing: len(s.Values) - len(data)}
	if len(data) == 0 {
		return st
	}
	st.Mean, _ = data.Mean()
	st.Min, _ = data.Min()
	st.Max, _ = data.Max()
	return st
}
