package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/dataprep/internal/encoding"
	"github.com/JonMunkholm/dataprep/internal/table"
)

// DefaultNAValues are the cell tokens read as null.
var DefaultNAValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// numericRegex matches integers, decimals and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

func parse(r io.Reader, opts Options) (*table.Table, error) {
	delim := opts.delimiter()
	if !validDelimiter(delim) {
		return nil, fmt.Errorf("%w: delimiter %q", table.ErrInvalidArgument, delim)
	}

	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1 // ragged rows are checked below
	cr.LazyQuotes = true    // bare quotes in unquoted fields are data

	records, err := cr.ReadAll()
	if err != nil {
		return nil, classifyReadError(err)
	}
	if isBlank(records) {
		return nil, fmt.Errorf("%w: no columns to parse", table.ErrEmptyData)
	}

	header := headerNames(records[0])
	rows := records[1:]
	for i, row := range rows {
		if len(row) > len(header) {
			return nil, fmt.Errorf("%w: expected %d fields in data row %d, saw %d",
				table.ErrParse, len(header), i+1, len(row))
		}
	}

	na := naSet(opts.NAValues)
	columns := make([]*table.Column, len(header))
	raw := make([]string, len(rows))
	for j, name := range header {
		for i, row := range rows {
			if j < len(row) {
				raw[i] = row[j]
			} else {
				raw[i] = ""
			}
		}
		col, err := inferColumn(name, raw, na)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", table.ErrUnexpected, err)
		}
		columns[j] = col
	}

	tbl, err := table.New(columns...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", table.ErrUnexpected, err)
	}
	return tbl, nil
}

func classifyReadError(err error) error {
	var perr *csv.ParseError
	switch {
	case errors.Is(err, ErrTooLarge):
		return err
	case errors.Is(err, encoding.ErrInvalidUTF8):
		return fmt.Errorf("%w: input is not valid UTF-8", table.ErrUnexpected)
	case errors.As(err, &perr):
		return fmt.Errorf("%w: %v", table.ErrParse, perr)
	default:
		return fmt.Errorf("%w: %v", table.ErrUnexpected, err)
	}
}

func validDelimiter(r rune) bool {
	return r != '"' && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}

// isBlank reports whether records hold no content at all.
func isBlank(records [][]string) bool {
	for _, rec := range records {
		for _, field := range rec {
			if strings.TrimSpace(field) != "" {
				return false
			}
		}
	}
	return true
}

// headerNames fills empty names with "Unnamed: i" and suffixes repeated
// names with ".1", ".2", ...
func headerNames(raw []string) []string {
	names := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	suffix := make(map[string]int)
	for i, h := range raw {
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for used[name] {
			suffix[h]++
			name = h + "." + strconv.Itoa(suffix[h])
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func naSet(values []string) map[string]struct{} {
	if values == nil {
		values = DefaultNAValues
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// inferColumn picks the narrowest kind that holds every non-null cell:
// int64, then float64, then text.
func inferColumn(name string, raw []string, na map[string]struct{}) (*table.Column, error) {
	values := make([]table.Value, len(raw))
	isInt, isFloat := true, true
	for i, s := range raw {
		if _, null := na[s]; null {
			continue
		}
		if isInt {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				values[i] = table.Int(n)
				continue
			}
			isInt = false
		}
		if isFloat && numericRegex.MatchString(s) {
			continue
		}
		isFloat = false
		break
	}

	switch {
	case isInt:
		return table.NewColumn(name, table.KindInt, values)
	case isFloat:
		for i, s := range raw {
			if _, null := na[s]; null {
				values[i] = table.Null()
				continue
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil && !errors.Is(err, strconv.ErrRange) {
				return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
			}
			values[i] = table.Float(f)
		}
		return table.NewColumn(name, table.KindFloat, values)
	default:
		for i, s := range raw {
			if _, null := na[s]; null {
				values[i] = table.Null()
			} else {
				values[i] = table.Text(s)
			}
		}
		return table.NewColumn(name, table.KindText, values)
	}
}
