// Package clean filters and sanitizes tables.
//
// The package-level functions take a table and return the result, so the
// caller always holds the only live reference. Cleaner wraps them for a
// sequential chain of calls over one held table:
//
//	res := loader.LoadCSV(path, loader.Options{})
//	c, err := clean.FromResult(res)
//	if err != nil {
//	    return err
//	}
//	if _, err := c.FilterRows("status", clean.FilterOptions{Allowed: []any{"active"}}); err != nil {
//	    return err
//	}
//	if _, err := c.CleanColumn("name", []string{"'"}); err != nil {
//	    return err
//	}
//	tbl := c.Release()
package clean

import (
	"log/slog"

	"github.com/JonMunkholm/dataprep/internal/loader"
	"github.com/JonMunkholm/dataprep/internal/table"
)

// Cleaner holds at most one table and applies operations to it in place.
// A Cleaner is not safe for concurrent use.
type Cleaner struct {
	tbl    *table.Table
	logger *slog.Logger
}

// New returns a Cleaner holding t. A nil t gives an unloaded Cleaner.
func New(t *table.Table) *Cleaner {
	return &Cleaner{tbl: t, logger: slog.Default()}
}

// FromResult takes ownership of a successful load, or returns its error.
func FromResult(res loader.Result) (*Cleaner, error) {
	t, err := res.Unwrap()
	if err != nil {
		return nil, err
	}
	return New(t), nil
}

// WithLogger sets the logger used for operation traces.
func (c *Cleaner) WithLogger(l *slog.Logger) *Cleaner {
	c.logger = l
	return c
}

// Load replaces the held table with t.
func (c *Cleaner) Load(t *table.Table) {
	c.tbl = t
}

// Loaded reports whether a table is held.
func (c *Cleaner) Loaded() bool {
	return c.tbl != nil
}

// Table returns the held table.
func (c *Cleaner) Table() (*table.Table, error) {
	if c.tbl == nil {
		return nil, table.ErrNotLoaded
	}
	return c.tbl, nil
}

// Release hands the held table to the caller and leaves c unloaded.
func (c *Cleaner) Release() *table.Table {
	t := c.tbl
	c.tbl = nil
	return t
}

// FilterRows keeps the rows matching opts and returns the new held table.
func (c *Cleaner) FilterRows(column string, opts FilterOptions) (*table.Table, error) {
	t, err := c.Table()
	if err != nil {
		return nil, err
	}
	out, err := FilterRows(t, column, opts)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("rows filtered",
		"column", column,
		"exclude", opts.Exclude,
		"on_emptiness", opts.OnEmptiness,
		"before", t.NumRows(),
		"after", out.NumRows(),
	)
	c.tbl = out
	return out, nil
}

// SummarizeSpecialCharacters counts rows with special characters per text column.
func (c *Cleaner) SummarizeSpecialCharacters() (map[string]int, error) {
	t, err := c.Table()
	if err != nil {
		return nil, err
	}
	return SummarizeSpecialCharacters(t), nil
}

// FindSpecialCharacters lists the distinct special characters per text column.
func (c *Cleaner) FindSpecialCharacters() (map[string]CharSet, error) {
	t, err := c.Table()
	if err != nil {
		return nil, err
	}
	return FindSpecialCharacters(t), nil
}

// CleanColumn strips characters from one column of the held table.
func (c *Cleaner) CleanColumn(column string, characters []string) (*table.Table, error) {
	return c.CleanColumns([]Rule{{Column: column, Characters: characters}})
}

// CleanColumns applies rules in order to the held table.
func (c *Cleaner) CleanColumns(rules []Rule) (*table.Table, error) {
	t, err := c.Table()
	if err != nil {
		return nil, err
	}
	out, err := CleanColumns(t, rules)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("columns cleaned", "rules", len(rules))
	c.tbl = out
	return out, nil
}

// ToInteger converts columns of the held table to int64.
func (c *Cleaner) ToInteger(columns []string) (*table.Table, error) {
	t, err := c.Table()
	if err != nil {
		return nil, err
	}
	out, err := ToInteger(t, columns)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("columns converted to integer", "columns", columns)
	c.tbl = out
	return out, nil
}

// ReportOverlongValues reports rows of the held table longer than maxLength.
func (c *Cleaner) ReportOverlongValues(column string, maxLength int) (OverlongReport, error) {
	t, err := c.Table()
	if err != nil {
		return OverlongReport{}, err
	}
	report, err := ReportOverlongValues(t, column, maxLength)
	if err != nil {
		return OverlongReport{}, err
	}
	if !report.Found() {
		c.logger.Info(report.Notice)
	}
	return report, nil
}
