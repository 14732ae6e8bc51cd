package core

import "fmt"

// Project returns a dataset with exactly the named columns, in the order
// given, and every row of ds. A nil selection keeps all columns.
func Project(ds *Dataset, names []string) (*Dataset, error) {
	if names == nil {
		return ds, nil
	}

	cols := make([]Column, 0, len(names))
	picked := make(map[string]bool, len(names))
	for _, name := range names {
		i, ok := ds.index[name]
		if !ok {
			return nil, &UnknownColumnError{Name: name}
		}
		if picked[name] {
			return nil, fmt.Errorf("%w: %q selected twice", ErrDuplicateColumn, name)
		}
		picked[name] = true
		cols = append(cols, ds.columns[i])
	}
	return newDataset(cols, ds.RowCount())
}
