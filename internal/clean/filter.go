package clean

import (
	"fmt"

	"github.com/JonMunkholm/dataprep/internal/table"
)

// FilterOptions selects rows by membership or by emptiness.
//
// In membership mode (the default) Allowed must be non-nil; an empty,
// non-nil list is valid and matches nothing. In emptiness mode Allowed is
// ignored and a row matches when the column is non-null.
type FilterOptions struct {
	Allowed     []any // values compared with table.Value.Equal
	Exclude     bool  // keep the rows that do not match
	OnEmptiness bool
}

// FilterRows returns a new table with the rows of t that match opts.
// t itself is left untouched.
func FilterRows(t *table.Table, column string, opts FilterOptions) (*table.Table, error) {
	col, err := t.Column(column)
	if err != nil {
		return nil, err
	}

	var match func(table.Value) bool
	if opts.OnEmptiness {
		match = func(v table.Value) bool { return !v.IsNull() }
	} else {
		if opts.Allowed == nil {
			return nil, fmt.Errorf("%w: a list of allowed values is required unless filtering on emptiness",
				table.ErrInvalidArgument)
		}
		allowed, err := toValues(opts.Allowed)
		if err != nil {
			return nil, err
		}
		match = func(v table.Value) bool { return contains(allowed, v) }
	}

	keep := make([]int, 0, col.Len())
	for i := 0; i < col.Len(); i++ {
		if match(col.Value(i)) != opts.Exclude {
			keep = append(keep, i)
		}
	}
	return t.Take(keep), nil
}

func toValues(xs []any) ([]table.Value, error) {
	out := make([]table.Value, len(xs))
	for i, x := range xs {
		v, err := table.ValueOf(x)
		if err != nil {
			return nil, fmt.Errorf("allowed value %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func contains(set []table.Value, v table.Value) bool {
	for _, s := range set {
		if s.Equal(v) {
			return true
		}
	}
	return false
}
