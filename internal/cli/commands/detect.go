package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataprep/internal/encoding"
	"github.com/JonMunkholm/dataprep/internal/table"
)

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "detect FILE",
		Short: "Guess the character encoding of a file",
		Long: `Guess the character encoding of a file from its bytes.

ASCII and UTF-8 with a byte order mark are recognised directly; anything
else is matched against known byte patterns and reported with a confidence.`,
		Example: `  # Print the most probable encoding
  dataprep detect export.csv

  # Print the guess as JSON
  dataprep detect export.csv --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args[0], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the guess as JSON")
	return cmd
}

func runDetect(cmd *cobra.Command, path string, asJSON bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", table.ErrNotFound, path)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	guess, err := encoding.DetectBytes(data)
	if err != nil {
		return err
	}
	GlobalsFrom(cmd.Context()).Logger.Debug("encoding detected",
		"path", path, "encoding", guess.Label, "confidence", guess.Confidence)

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(guess)
	}
	fmt.Fprintf(out, "%s: %s (confidence %d%%)\n", path, guess.Label, guess.Confidence)
	return nil
}
