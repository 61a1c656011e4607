// Package commands holds the subcommands of the dataprep CLI.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataprep/internal/loader"
	"github.com/JonMunkholm/dataprep/internal/table"
)

// Globals carries the settings shared by every subcommand.
type Globals struct {
	Load   loader.Options
	Format string
	Logger *slog.Logger
}

type globalsKey struct{}

// WithGlobals stores g in ctx.
func WithGlobals(ctx context.Context, g Globals) context.Context {
	return context.WithValue(ctx, globalsKey{}, g)
}

// GlobalsFrom returns the Globals stored in ctx, or defaults.
func GlobalsFrom(ctx context.Context) Globals {
	if ctx != nil {
		if g, ok := ctx.Value(globalsKey{}).(Globals); ok {
			return g
		}
	}
	return Globals{Format: loader.FormatCSV, Logger: slog.Default()}
}

// ParseDelimiter accepts a single character, or "tab" / `\t` for a tab.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "tab", `\t`:
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) || r == utf8.RuneError {
		return 0, fmt.Errorf("%w: delimiter must be a single character, got %q", table.ErrInvalidArgument, s)
	}
	return r, nil
}

// loadTable reads path with the global load options. The format defaults
// to the file extension when --format was not given.
func loadTable(cmd *cobra.Command, path string) (*table.Table, error) {
	g := GlobalsFrom(cmd.Context())
	format := g.Format
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	opts := g.Load
	opts.Logger = g.Logger
	return loader.LoadFile(path, format, opts).Unwrap()
}

// splitAssignment parses "name=value" flag values.
func splitAssignment(flag, s string) (string, string, error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("%w: --%s expects column=value, got %q", table.ErrInvalidArgument, flag, s)
	}
	return name, value, nil
}
