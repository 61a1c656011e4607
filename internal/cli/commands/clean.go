package commands

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataprep/internal/clean"
	"github.com/JonMunkholm/dataprep/internal/profile"
	"github.com/JonMunkholm/dataprep/internal/table"
)

type cleanFlags struct {
	filter    string
	nonEmpty  string
	exclude   bool
	strip     []string
	toInt     []string
	maxLength []string
	special   bool
	output    string
}

// NewCleanCommand creates the clean command.
func NewCleanCommand() *cobra.Command {
	var f cleanFlags

	cmd := &cobra.Command{
		Use:   "clean FILE",
		Short: "Filter, strip and coerce a CSV file",
		Long: `Load a CSV file, apply cleaning steps and write the result as CSV.

Steps run in this order: row filter, character stripping, integer
conversion. Overlong value reports are printed to stderr after cleaning.
A failing step aborts the command and nothing is written.`,
		Example: `  # Keep active rows and strip quotes from names
  dataprep clean people.csv --filter status=active --strip "name='" -o out.csv

  # Drop rows with an empty email, convert amounts to integers
  dataprep clean people.csv --non-empty email --to-int amount

  # Report codes longer than 8 characters
  dataprep clean items.csv --max-length code=8 -o /dev/null`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd, args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.filter, "filter", "", "Keep rows whose column is one of the values (column=v1,v2)")
	flags.StringVar(&f.nonEmpty, "non-empty", "", "Keep rows whose column is not empty")
	flags.BoolVar(&f.exclude, "exclude", false, "Invert --filter or --non-empty")
	flags.StringArrayVar(&f.strip, "strip", nil, "Remove characters from a column (column=chars), repeatable")
	flags.StringSliceVar(&f.toInt, "to-int", nil, "Convert columns to integers")
	flags.StringArrayVar(&f.maxLength, "max-length", nil, "Report values longer than n characters (column=n), repeatable")
	flags.BoolVar(&f.special, "special", false, "Print the special characters found before stripping")
	flags.StringVarP(&f.output, "output", "o", "", "Output file (default: stdout)")
	cmd.MarkFlagsMutuallyExclusive("filter", "non-empty")
	return cmd
}

func runClean(cmd *cobra.Command, path string, f cleanFlags) error {
	rules, err := stripRules(f.strip)
	if err != nil {
		return err
	}
	limits, err := lengthLimits(f.maxLength)
	if err != nil {
		return err
	}

	t, err := loadTable(cmd, path)
	if err != nil {
		return err
	}
	g := GlobalsFrom(cmd.Context())
	c := clean.New(t).WithLogger(g.Logger)
	errOut := cmd.ErrOrStderr()

	if f.filter != "" || f.nonEmpty != "" {
		column, opts, err := filterOptions(t, f)
		if err != nil {
			return err
		}
		if _, err := c.FilterRows(column, opts); err != nil {
			return err
		}
	}

	if f.special {
		found, err := c.FindSpecialCharacters()
		if err != nil {
			return err
		}
		writeSpecial(errOut, found)
	}

	if len(rules) > 0 {
		if _, err := c.CleanColumns(rules); err != nil {
			return err
		}
	}

	if len(f.toInt) > 0 {
		if _, err := c.ToInteger(f.toInt); err != nil {
			return err
		}
	}

	for _, l := range limits {
		report, err := c.ReportOverlongValues(l.column, l.max)
		if err != nil {
			return err
		}
		if !report.Found() {
			g.Logger.Info(report.Notice)
			fmt.Fprintln(errOut, report.Notice)
			continue
		}
		profile.WriteTable(errOut, fmt.Sprintf("%q longer than %d characters", l.column, l.max), report.Rows)
	}

	result, err := c.Table()
	if err != nil {
		return err
	}
	return writeResult(cmd, result, f.output)
}

func writeResult(cmd *cobra.Command, t *table.Table, output string) error {
	delim := GlobalsFrom(cmd.Context()).Load.Delimiter
	if delim == 0 {
		delim = ','
	}

	if output == "" || output == "-" {
		return t.WriteCSV(cmd.OutOrStdout(), delim)
	}

	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := t.WriteCSV(file, delim); err != nil {
		file.Close()
		os.Remove(output)
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", output, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", t.NumRows(), output)
	return nil
}

func filterOptions(t *table.Table, f cleanFlags) (string, clean.FilterOptions, error) {
	if f.nonEmpty != "" {
		return f.nonEmpty, clean.FilterOptions{OnEmptiness: true, Exclude: f.exclude}, nil
	}

	column, raw, err := splitAssignment("filter", f.filter)
	if err != nil {
		return "", clean.FilterOptions{}, err
	}
	col, err := t.Column(column)
	if err != nil {
		return "", clean.FilterOptions{}, err
	}

	tokens := strings.Split(raw, ",")
	allowed := make([]any, 0, len(tokens))
	for _, tok := range tokens {
		allowed = append(allowed, filterValue(col.Kind(), tok))
	}
	return column, clean.FilterOptions{Allowed: allowed, Exclude: f.exclude}, nil
}

// filterValue reads tok as a number when the column is numeric so that
// "3" matches the integer 3. An empty token matches nulls.
func filterValue(kind table.Kind, tok string) any {
	if tok == "" {
		return nil
	}
	if kind.Numeric() {
		if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
			return i
		}
		if x, err := strconv.ParseFloat(tok, 64); err == nil {
			return x
		}
	}
	return tok
}

func stripRules(specs []string) ([]clean.Rule, error) {
	rules := make([]clean.Rule, 0, len(specs))
	for _, spec := range specs {
		column, chars, err := splitAssignment("strip", spec)
		if err != nil {
			return nil, err
		}
		if chars == "" {
			return nil, fmt.Errorf("%w: --strip %s names no characters", table.ErrInvalidArgument, column)
		}
		rule := clean.Rule{Column: column}
		for _, r := range chars {
			rule.Characters = append(rule.Characters, string(r))
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

type lengthLimit struct {
	column string
	max    int
}

func lengthLimits(specs []string) ([]lengthLimit, error) {
	limits := make([]lengthLimit, 0, len(specs))
	for _, spec := range specs {
		column, raw, err := splitAssignment("max-length", spec)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: --max-length %s needs a non-negative integer, got %q",
				table.ErrInvalidArgument, column, raw)
		}
		limits = append(limits, lengthLimit{column: column, max: n})
	}
	return limits, nil
}

func writeSpecial(w io.Writer, found map[string]clean.CharSet) {
	if len(found) == 0 {
		fmt.Fprintln(w, "no special characters found")
		return
	}
	counts := make([]profile.ColumnCount, 0, len(found))
	for _, name := range sortedKeys(found) {
		counts = append(counts, profile.ColumnCount{Column: name, Count: len(found[name])})
		fmt.Fprintf(w, "%s: %s\n", name, strings.Join(found[name].Sorted(), " "))
	}
	profile.WriteCounts(w, "Distinct special characters", counts)
}

func sortedKeys(m map[string]clean.CharSet) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
