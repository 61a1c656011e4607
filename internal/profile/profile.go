// Package profile produces read-only diagnostic reports over a table:
// schema information, summary statistics, value counts and null counts.
package profile

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/JonMunkholm/dataprep/internal/table"
)

// Statistic row labels, in report order.
var (
	numericStats = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}
	textStats    = []string{"count", "unique", "top", "freq"}
)

// Profiler reports on a private copy of a table. Later changes to the
// source table are not visible to it.
type Profiler struct {
	tbl *table.Table
}

// New copies t into a new Profiler.
func New(t *table.Table) (*Profiler, error) {
	if t == nil {
		return nil, table.ErrNotLoaded
	}
	return &Profiler{tbl: t.Copy()}, nil
}

// ColumnInfo describes one column.
type ColumnInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	NonNull int    `json:"nonNull"`
}

// SchemaInfo describes the whole table.
type SchemaInfo struct {
	Rows    int          `json:"rows"`
	Columns []ColumnInfo `json:"columns"`
}

// ColumnCount pairs a column with a count.
type ColumnCount struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
}

// NullReport holds per-column null counts and their sum.
type NullReport struct {
	Columns []ColumnCount `json:"columns"`
	Total   int           `json:"total"`
}

// SchemaInfo returns column names, types and non-null counts.
func (p *Profiler) SchemaInfo() SchemaInfo {
	info := SchemaInfo{Rows: p.tbl.NumRows()}
	for _, c := range p.tbl.Columns() {
		info.Columns = append(info.Columns, ColumnInfo{
			Name:    c.Name(),
			Type:    c.Kind().String(),
			NonNull: c.Len() - c.NullCount(),
		})
	}
	return info
}

// ValueCounts returns the non-null count of each column.
func (p *Profiler) ValueCounts() []ColumnCount {
	counts := make([]ColumnCount, 0, p.tbl.NumCols())
	for _, c := range p.tbl.Columns() {
		counts = append(counts, ColumnCount{Column: c.Name(), Count: c.Len() - c.NullCount()})
	}
	return counts
}

// NullReport returns the null count of each column and the total.
func (p *Profiler) NullReport() NullReport {
	var r NullReport
	for _, c := range p.tbl.Columns() {
		n := c.NullCount()
		r.Columns = append(r.Columns, ColumnCount{Column: c.Name(), Count: n})
		r.Total += n
	}
	return r
}

// DescriptiveStatistics summarises the numeric columns with count, mean,
// sample standard deviation, min, quartiles and max. A table without
// numeric columns is summarised with count, unique, top and freq instead.
// The first column of the result holds the statistic labels.
func (p *Profiler) DescriptiveStatistics() (*table.Table, error) {
	if p.tbl.NumCols() == 0 {
		return nil, fmt.Errorf("%w: cannot describe a table without columns", table.ErrInvalidArgument)
	}

	var numeric []*table.Column
	for _, c := range p.tbl.Columns() {
		if c.Kind().Numeric() {
			numeric = append(numeric, c)
		}
	}
	if len(numeric) > 0 {
		return p.describe(numeric, numericStats, describeNumeric)
	}
	return p.describe(p.tbl.Columns(), textStats, describeText)
}

func (p *Profiler) describe(cols []*table.Column, labels []string, fn func(*table.Column) (*table.Column, error)) (*table.Table, error) {
	labelName := "statistic"
	for p.tbl.HasColumn(labelName) {
		labelName += "_"
	}
	labelValues := make([]any, len(labels))
	for i, l := range labels {
		labelValues[i] = l
	}
	labelCol, err := table.ColumnOf(labelName, labelValues...)
	if err != nil {
		return nil, err
	}

	out := []*table.Column{labelCol}
	for _, c := range cols {
		d, err := fn(c)
		if err != nil {
			return nil, fmt.Errorf("describe %q: %w", c.Name(), err)
		}
		out = append(out, d)
	}
	return table.New(out...)
}

func describeNumeric(c *table.Column) (*table.Column, error) {
	x := make([]float64, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		if v := c.Value(i); !v.IsNull() {
			x = append(x, v.AsFloat())
		}
	}
	sort.Float64s(x)

	nan := math.NaN()
	mean, std, lo, hi := nan, nan, nan, nan
	if n := len(x); n > 0 {
		mean = stat.Mean(x, nil)
		lo, hi = x[0], x[n-1]
		if n > 1 {
			std = stat.StdDev(x, nil)
		}
	}

	values := []table.Value{
		table.Float(float64(len(x))),
		table.Float(mean),
		table.Float(std),
		table.Float(lo),
		table.Float(quantile(x, 0.25)),
		table.Float(quantile(x, 0.50)),
		table.Float(quantile(x, 0.75)),
		table.Float(hi),
	}
	return table.NewColumn(c.Name(), table.KindFloat, values)
}

// quantile interpolates linearly between the closest ranks of sorted x,
// placing q at position q*(n-1).
func quantile(x []float64, q float64) float64 {
	n := len(x)
	if n == 0 {
		return math.NaN()
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return x[lo] + frac*(x[hi]-x[lo])
}

func describeText(c *table.Column) (*table.Column, error) {
	freq := make(map[string]int)
	var order []string
	count := 0
	for i := 0; i < c.Len(); i++ {
		v := c.Value(i)
		if v.IsNull() {
			continue
		}
		count++
		s := v.String()
		if freq[s] == 0 {
			order = append(order, s)
		}
		freq[s]++
	}

	values := []table.Value{
		table.Text(strconv.Itoa(count)),
		table.Text(strconv.Itoa(len(freq))),
		table.Null(),
		table.Null(),
	}
	top, best := "", 0
	for _, s := range order {
		if freq[s] > best {
			top, best = s, freq[s]
		}
	}
	if best > 0 {
		values[2] = table.Text(top)
		values[3] = table.Text(strconv.Itoa(best))
	}
	return table.NewColumn(c.Name(), table.KindText, values)
}
