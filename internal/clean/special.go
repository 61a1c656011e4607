package clean

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/JonMunkholm/dataprep/internal/table"
)

// specialChar matches one character that is neither a word character nor
// whitespace. Word characters are Unicode letters, digits and numerics plus
// underscore; whitespace includes the Unicode separators and the ASCII
// control separators 0x1C-0x1F.
var specialChar = regexp.MustCompile(`[^\p{L}\p{N}_\p{Z}\t\n\v\f\r\x{1c}-\x{1f}\x{85}]`)

// CharSet is a set of single characters.
type CharSet map[string]struct{}

// Sorted returns the characters in code point order.
func (s CharSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for ch := range s {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// Has reports whether ch is in the set.
func (s CharSet) Has(ch string) bool {
	_, ok := s[ch]
	return ok
}

// SummarizeSpecialCharacters counts, per text column, the rows whose value
// contains at least one special character. Columns with no such rows are
// omitted.
func SummarizeSpecialCharacters(t *table.Table) map[string]int {
	summary := make(map[string]int)
	for _, col := range t.Columns() {
		if col.Kind() != table.KindText {
			continue
		}
		n := 0
		for i := 0; i < col.Len(); i++ {
			if v := col.Value(i); !v.IsNull() && specialChar.MatchString(v.AsText()) {
				n++
			}
		}
		if n > 0 {
			summary[col.Name()] = n
		}
	}
	return summary
}

// FindSpecialCharacters returns, per text column, the distinct special
// characters found across its non-null values. Columns without any are
// omitted.
func FindSpecialCharacters(t *table.Table) map[string]CharSet {
	found := make(map[string]CharSet)
	for _, col := range t.Columns() {
		if col.Kind() != table.KindText {
			continue
		}
		var text strings.Builder
		for i := 0; i < col.Len(); i++ {
			if v := col.Value(i); !v.IsNull() {
				text.WriteString(v.AsText())
				text.WriteByte(' ')
			}
		}
		matches := specialChar.FindAllString(text.String(), -1)
		if len(matches) == 0 {
			continue
		}
		set := make(CharSet, len(matches))
		for _, m := range matches {
			set[m] = struct{}{}
		}
		found[col.Name()] = set
	}
	return found
}

// Rule names the characters to strip from one column.
type Rule struct {
	Column     string   `json:"column" validate:"required"`
	Characters []string `json:"characters" validate:"required,min=1"`
}

// CleanColumn removes every occurrence of the given characters from each
// text value of column. Non-text columns are left as they are. t is
// modified and returned.
func CleanColumn(t *table.Table, column string, characters []string) (*table.Table, error) {
	return CleanColumns(t, []Rule{{Column: column, Characters: characters}})
}

// CleanColumns applies the rules in order. All rules are validated before
// any column is changed.
func CleanColumns(t *table.Table, rules []Rule) (*table.Table, error) {
	patterns := make([]*regexp.Regexp, len(rules))
	for i, r := range rules {
		if _, err := t.Column(r.Column); err != nil {
			return nil, err
		}
		re, err := characterClass(r.Characters)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", r.Column, err)
		}
		patterns[i] = re
	}

	for i, r := range rules {
		col, err := t.Column(r.Column)
		if err != nil {
			return nil, err
		}
		if col.Kind() != table.KindText {
			continue
		}
		values := col.Values()
		for j, v := range values {
			if !v.IsNull() {
				values[j] = table.Text(patterns[i].ReplaceAllLiteralString(v.AsText(), ""))
			}
		}
		cleaned, err := table.NewColumn(col.Name(), table.KindText, values)
		if err != nil {
			return nil, err
		}
		if err := t.Replace(cleaned); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// characterClass builds a bracket expression matching any rune of chars.
// ASCII punctuation is escaped so that ']', '^', '-' and '\' stay literal.
func characterClass(chars []string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('[')
	n := 0
	for _, s := range chars {
		for _, r := range s {
			if isASCIIPunct(r) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
			n++
		}
	}
	b.WriteByte(']')
	if n == 0 {
		return nil, fmt.Errorf("%w: no characters to remove", table.ErrInvalidArgument)
	}
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", table.ErrInvalidArgument, err)
	}
	return re, nil
}

func isASCIIPunct(r rune) bool {
	return r >= '!' && r <= '/' || r >= ':' && r <= '@' || r >= '[' && r <= '`' || r >= '{' && r <= '~'
}
