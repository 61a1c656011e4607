package clean

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/JonMunkholm/dataprep/internal/table"
)

// nonNumeric matches anything that is not a digit, comma or period.
var nonNumeric = regexp.MustCompile(`[^0-9.,]`)

// ToInteger converts each named column to int64.
//
// Every value is rendered as text, stripped of all characters other than
// ASCII digits, ',' and '.', and parsed as a float that is then truncated.
// Empty results and nulls become 0. Signs are stripped along with other
// characters, so "-5" becomes 5.
//
// Commas are kept but not interpreted: "1,200" fails with a CoercionError
// rather than being read as a thousands separator or a decimal comma.
// Either every column is converted or t is left unchanged.
func ToInteger(t *table.Table, columns []string) (*table.Table, error) {
	converted := make([]*table.Column, 0, len(columns))
	for _, name := range columns {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		out, err := integerColumn(col)
		if err != nil {
			return nil, err
		}
		converted = append(converted, out)
	}
	for _, c := range converted {
		if err := t.Replace(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func integerColumn(col *table.Column) (*table.Column, error) {
	values := make([]table.Value, col.Len())
	for i, raw := range col.Strings() {
		s := nonNumeric.ReplaceAllString(raw, "")
		if s == "" || s == "nan" {
			s = "0"
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.Abs(f) >= math.MaxInt64 {
			return nil, &table.CoercionError{Column: col.Name(), Row: i, Text: s}
		}
		values[i] = table.Int(int64(f))
	}
	return table.NewColumn(col.Name(), table.KindInt, values)
}

// OverlongReport lists the rows whose value in Column is longer than
// MaxLength characters. When none are, Rows is empty and Notice says so.
type OverlongReport struct {
	Column    string
	MaxLength int
	Rows      *table.Table
	Notice    string
}

// Found reports whether any row exceeded the limit.
func (r OverlongReport) Found() bool {
	return r.Rows != nil && r.Rows.NumRows() > 0
}

// ReportOverlongValues selects the rows of t whose value in column, rendered
// as text, has more than maxLength characters. t is not modified. Nulls are
// measured as their text form "nan".
func ReportOverlongValues(t *table.Table, column string, maxLength int) (OverlongReport, error) {
	col, err := t.Column(column)
	if err != nil {
		return OverlongReport{}, err
	}

	var rows []int
	for i, s := range col.Strings() {
		if utf8.RuneCountInString(s) > maxLength {
			rows = append(rows, i)
		}
	}

	report := OverlongReport{Column: column, MaxLength: maxLength, Rows: t.Take(rows)}
	if len(rows) == 0 {
		report.Notice = fmt.Sprintf("no value in %q exceeds %d characters", column, maxLength)
	}
	return report, nil
}
