package clean

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataprep/internal/table"
)

func TestToInteger(t *testing.T) {
	tbl := table.MustNew(table.MustColumnOf("amount", "1200", "", "nan", "45.9"))

	out, err := ToInteger(tbl, []string{"amount"})
	require.NoError(t, err)
	col, _ := out.Column("amount")
	assert.Equal(t, table.KindInt, col.Kind())
	assert.Equal(t, []string{"1200", "0", "0", "45"}, col.Strings())
}

func TestToInteger_StripsSymbolsAndNulls(t *testing.T) {
	tbl := table.MustNew(
		table.MustColumnOf("price", "$12.50", "USD 7", nil),
		table.MustColumnOf("qty", 3.0, nil, 9.99),
	)

	out, err := ToInteger(tbl, []string{"price", "qty"})
	require.NoError(t, err)
	assert.Equal(t, []string{"12", "7", "0"}, columnStrings(t, out, "price"))
	assert.Equal(t, []string{"3", "0", "9"}, columnStrings(t, out, "qty"))
}

func TestToInteger_ThousandsCommaFails(t *testing.T) {
	tbl := table.MustNew(
		table.MustColumnOf("ok", "1", "2"),
		table.MustColumnOf("bad", "1,200.50", "3"),
	)

	_, err := ToInteger(tbl, []string{"ok", "bad"})
	require.ErrorIs(t, err, table.ErrCoercion)

	var cerr *table.CoercionError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "bad", cerr.Column)
	assert.Equal(t, 0, cerr.Row)
	assert.Equal(t, "1,200.50", cerr.Text)

	col, _ := tbl.Column("ok")
	assert.Equal(t, table.KindText, col.Kind(), "failed call leaves the table unchanged")
}

func TestToInteger_UnknownColumn(t *testing.T) {
	_, err := ToInteger(table.MustNew(table.MustColumnOf("a", "1")), []string{"b"})
	assert.ErrorIs(t, err, table.ErrColumnNotFound)
}

func TestReportOverlongValues(t *testing.T) {
	tbl := table.MustNew(
		table.MustColumnOf("id", 1, 2),
		table.MustColumnOf("code", "ab", "abcdef"),
	)

	report, err := ReportOverlongValues(tbl, "code", 3)
	require.NoError(t, err)
	require.True(t, report.Found())
	assert.Equal(t, 1, report.Rows.NumRows())
	assert.Equal(t, []string{"abcdef"}, columnStrings(t, report.Rows, "code"))
	assert.Equal(t, []string{"2"}, columnStrings(t, report.Rows, "id"))
	assert.Empty(t, report.Notice)

	col, _ := tbl.Column("code")
	assert.Equal(t, table.KindText, col.Kind())
	assert.Equal(t, 2, tbl.NumRows())
}

func TestReportOverlongValues_NoneFound(t *testing.T) {
	tbl := table.MustNew(table.MustColumnOf("code", "ab", "cd"))

	report, err := ReportOverlongValues(tbl, "code", 5)
	require.NoError(t, err)
	assert.False(t, report.Found())
	assert.Contains(t, report.Notice, "5")
}

func TestReportOverlongValues_CountsCharactersNotBytes(t *testing.T) {
	tbl := table.MustNew(table.MustColumnOf("s", "ñññ"))

	report, err := ReportOverlongValues(tbl, "s", 3)
	require.NoError(t, err)
	assert.False(t, report.Found())
}
