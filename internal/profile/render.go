package profile

import (
	"fmt"
	"io"

	pretty "github.com/jedib0t/go-pretty/v6/table"

	"github.com/JonMunkholm/dataprep/internal/table"
)

// newWriter prints title on its own line above the table. go-pretty wraps
// titles to the table width, which splits them on narrow tables.
func newWriter(w io.Writer, title string) pretty.Writer {
	if title != "" {
		fmt.Fprintln(w, title)
	}
	tw := pretty.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(pretty.StyleLight)
	return tw
}

// WriteSchemaInfo prints the schema report.
func WriteSchemaInfo(w io.Writer, info SchemaInfo) {
	tw := newWriter(w, fmt.Sprintf("%d rows, %d columns", info.Rows, len(info.Columns)))
	tw.AppendHeader(pretty.Row{"#", "Column", "Non-Null", "Type"})
	for i, c := range info.Columns {
		tw.AppendRow(pretty.Row{i, c.Name, c.NonNull, c.Type})
	}
	tw.Render()
}

// WriteCounts prints one count per column.
func WriteCounts(w io.Writer, title string, counts []ColumnCount) {
	tw := newWriter(w, title)
	tw.AppendHeader(pretty.Row{"Column", "Count"})
	for _, c := range counts {
		tw.AppendRow(pretty.Row{c.Column, c.Count})
	}
	tw.Render()
}

// WriteNullReport prints null counts per column with the total as footer.
func WriteNullReport(w io.Writer, r NullReport) {
	tw := newWriter(w, "Null values per column")
	tw.AppendHeader(pretty.Row{"Column", "Nulls"})
	for _, c := range r.Columns {
		tw.AppendRow(pretty.Row{c.Column, c.Count})
	}
	tw.AppendFooter(pretty.Row{"Total", r.Total})
	tw.Render()
}

// WriteTable prints every row of t. Nulls print as NaN.
func WriteTable(w io.Writer, title string, t *table.Table) {
	tw := newWriter(w, title)
	header := pretty.Row{}
	for _, name := range t.Names() {
		header = append(header, name)
	}
	tw.AppendHeader(header)
	for i := 0; i < t.NumRows(); i++ {
		row := pretty.Row{}
		for _, v := range t.Row(i) {
			row = append(row, displayValue(v))
		}
		tw.AppendRow(row)
	}
	tw.Render()
}

func displayValue(v table.Value) string {
	if v.IsNull() {
		return "NaN"
	}
	if v.Kind() == table.KindFloat {
		return fmt.Sprintf("%.6g", v.AsFloat())
	}
	return v.String()
}
