package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataprep/internal/profile"
	"github.com/JonMunkholm/dataprep/internal/table"
)

// Reports accepted by --report, in the order "all" prints them.
var profileReports = []string{"schema", "describe", "counts", "nulls"}

// NewProfileCommand creates the profile command.
func NewProfileCommand() *cobra.Command {
	var (
		report string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "profile FILE",
		Short: "Print diagnostic reports for a CSV file",
		Long: `Load a CSV file and print read-only reports about it:

  schema    column names, inferred types and non-null counts
  describe  summary statistics of the numeric columns
  counts    non-null values per column
  nulls     null values per column and in total
  all       every report above (default)`,
		Example: `  # Every report as text tables
  dataprep profile people.csv

  # Null counts only, as JSON
  dataprep profile people.csv --report nulls --json

  # A semicolon separated file
  dataprep profile export.csv -d ';'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd, args[0], report, asJSON)
		},
	}

	cmd.Flags().StringVarP(&report, "report", "r", "all", "Report to print (schema|describe|counts|nulls|all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print reports as JSON")
	_ = cmd.RegisterFlagCompletionFunc("report", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return append([]string{"all"}, profileReports...), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func runProfile(cmd *cobra.Command, path, report string, asJSON bool) error {
	reports, err := selectReports(report)
	if err != nil {
		return err
	}

	t, err := loadTable(cmd, path)
	if err != nil {
		return err
	}
	p, err := profile.New(t)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	results := make(map[string]any, len(reports))
	for _, name := range reports {
		if asJSON {
			v, err := reportValue(p, name)
			if err != nil {
				return err
			}
			results[name] = v
			continue
		}
		if err := writeReport(out, p, name); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if len(reports) == 1 {
			return enc.Encode(results[reports[0]])
		}
		return enc.Encode(results)
	}
	return nil
}

func selectReports(report string) ([]string, error) {
	report = strings.ToLower(strings.TrimSpace(report))
	if report == "all" || report == "" {
		return profileReports, nil
	}
	for _, r := range profileReports {
		if r == report {
			return []string{r}, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown report %q", table.ErrInvalidArgument, report)
}

func writeReport(w io.Writer, p *profile.Profiler, name string) error {
	switch name {
	case "schema":
		profile.WriteSchemaInfo(w, p.SchemaInfo())
	case "counts":
		profile.WriteCounts(w, "Values per column", p.ValueCounts())
	case "nulls":
		profile.WriteNullReport(w, p.NullReport())
	case "describe":
		d, err := p.DescriptiveStatistics()
		if err != nil {
			return err
		}
		profile.WriteTable(w, "Summary statistics", d)
	}
	return nil
}

type describeJSON struct {
	Columns []string        `json:"columns"`
	Rows    [][]table.Value `json:"rows"`
}

func reportValue(p *profile.Profiler, name string) (any, error) {
	switch name {
	case "schema":
		return p.SchemaInfo(), nil
	case "counts":
		return p.ValueCounts(), nil
	case "nulls":
		return p.NullReport(), nil
	default:
		d, err := p.DescriptiveStatistics()
		if err != nil {
			return nil, err
		}
		out := describeJSON{Columns: d.Names(), Rows: make([][]table.Value, d.NumRows())}
		for i := range out.Rows {
			out.Rows[i] = d.Row(i)
		}
		return out, nil
	}
}
