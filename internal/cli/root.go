// Package cli provides the dataprep command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataprep/internal/cli/commands"
	"github.com/JonMunkholm/dataprep/internal/config"
	"github.com/JonMunkholm/dataprep/internal/core"
	"github.com/JonMunkholm/dataprep/internal/loader"
	"github.com/JonMunkholm/dataprep/internal/logging"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

type globalFlags struct {
	delimiter string
	encoding  string
	detect    bool
	lenient   bool
	format    string
	naValues  []string
	logLevel  string
	logFormat string
}

// NewRootCmd creates the root command with every subcommand attached.
// Flags not given on the command line fall back to the LOAD_* and LOG_*
// environment settings.
func NewRootCmd() *cobra.Command {
	var gf globalFlags

	rootCmd := &cobra.Command{
		Use:   "dataprep",
		Short: "Inspect and clean CSV files",
		Long: `dataprep loads delimited text files into typed tables, reports on their
contents and applies cleaning steps: row filters, special character
stripping and integer conversion.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			g, err := buildGlobals(cmd, gf)
			if err != nil {
				return err
			}
			cmd.SetContext(commands.WithGlobals(cmd.Context(), g))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&gf.delimiter, "delimiter", "d", ",", `Field delimiter ("tab" for tabs)`)
	pf.StringVarP(&gf.encoding, "encoding", "e", "", "Source encoding (default: utf-8)")
	pf.BoolVar(&gf.detect, "detect", false, "Detect the source encoding before reading")
	pf.BoolVar(&gf.lenient, "lenient", false, "Replace malformed characters instead of failing")
	pf.StringVar(&gf.format, "format", "", "Input format (default: from the file extension)")
	pf.StringSliceVar(&gf.naValues, "na", nil, "Tokens read as null (default: the standard NA tokens)")
	pf.StringVar(&gf.logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	pf.StringVar(&gf.logFormat, "log-format", "", "Log format (text|json)")
	rootCmd.MarkFlagsMutuallyExclusive("encoding", "detect")

	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit))
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewProfileCommand())
	rootCmd.AddCommand(commands.NewCleanCommand())

	return rootCmd
}

func buildGlobals(cmd *cobra.Command, gf globalFlags) (commands.Globals, error) {
	cfg, err := config.Load()
	if err != nil {
		return commands.Globals{}, err
	}

	flags := cmd.Flags()
	if !flags.Changed("delimiter") {
		gf.delimiter = cfg.Load.Delimiter
	}
	if !flags.Changed("detect") && !flags.Changed("encoding") {
		gf.detect = cfg.Load.DetectEncoding
	}
	if !flags.Changed("na") {
		gf.naValues = cfg.Load.NAValues
	}
	if gf.logLevel == "" {
		gf.logLevel = cfg.Logging.Level
	}
	if gf.logFormat == "" {
		gf.logFormat = cfg.Logging.Format
	}

	delim, err := commands.ParseDelimiter(gf.delimiter)
	if err != nil {
		return commands.Globals{}, err
	}

	return commands.Globals{
		Load: loader.Options{
			Delimiter:      delim,
			Encoding:       gf.encoding,
			DetectEncoding: gf.detect,
			Lenient:        gf.lenient,
			NAValues:       gf.naValues,
			MaxBytes:       cfg.Load.MaxFileSize,
		},
		Format: gf.format,
		Logger: logging.New(cmd.ErrOrStderr(), gf.logLevel, gf.logFormat),
	}, nil
}

// Execute runs the root command with args and returns the process exit
// code. Errors are printed to stderr in their user-facing form.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", describeError(err))
		return 1
	}
	return 0
}

func describeError(err error) string {
	if core.IsUserFacing(err) {
		return core.FormatUserError(err) + "\n  " + err.Error()
	}
	return err.Error()
}
