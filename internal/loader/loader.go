// Package loader reads delimited text files into tables.
//
// Loading never aborts the caller: every failure is reported as a Result
// with a nil Table, a categorised error (see package table) and a short
// diagnostic message. Callers must check Result.OK before using the table.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/JonMunkholm/dataprep/internal/encoding"
	"github.com/JonMunkholm/dataprep/internal/table"
)

// FormatCSV is the only input format the loader accepts.
const FormatCSV = "csv"

// DefaultDelimiter separates fields when Options.Delimiter is zero.
const DefaultDelimiter = ','

// ErrTooLarge is returned when the input exceeds Options.MaxBytes.
var ErrTooLarge = fmt.Errorf("%w: file too large", table.ErrInvalidArgument)

// Options controls how a file is parsed.
type Options struct {
	Delimiter rune // field separator, DefaultDelimiter if zero

	// Encoding names the source encoding. Empty means UTF-8.
	Encoding string

	// DetectEncoding sniffs the source encoding before reading and
	// overrides Encoding.
	DetectEncoding bool

	// Lenient replaces malformed UTF-8 instead of failing the load.
	Lenient bool

	// NAValues overrides the tokens read as null. Nil uses DefaultNAValues.
	NAValues []string

	// MaxBytes rejects larger inputs when positive.
	MaxBytes int64

	// Logger receives the diagnostic for failed loads. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return DefaultDelimiter
	}
	return o.Delimiter
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Result is the outcome of a load: either a Table or an error with a
// human-readable diagnostic.
type Result struct {
	Table   *table.Table
	Err     error
	Message string
	Path    string
}

// OK reports whether the load produced a table.
func (r Result) OK() bool {
	return r.Err == nil && r.Table != nil
}

// Unwrap returns the table or the load error.
func (r Result) Unwrap() (*table.Table, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Table, nil
}

// LoadFile loads path in the given format. Only "csv" is supported; other
// formats fail with table.ErrUnsupportedFormat without touching the file.
func LoadFile(path, format string, opts Options) Result {
	if !strings.EqualFold(strings.TrimSpace(format), FormatCSV) {
		return failed(opts, path, fmt.Errorf("%w: %q", table.ErrUnsupportedFormat, format),
			fmt.Sprintf("unsupported file type %q, expected %q", format, FormatCSV))
	}
	return LoadCSV(path, opts)
}

// LoadCSV reads the delimited file at path. The size limit is checked
// before any content is read, including for encoding detection.
func LoadCSV(path string, opts Options) Result {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return failed(opts, path, fmt.Errorf("%w: %s", table.ErrNotFound, path),
				fmt.Sprintf("the file at %s was not found", path))
		}
		return failed(opts, path, fmt.Errorf("%w: %v", table.ErrUnexpected, err),
			fmt.Sprintf("unexpected error: %v", err))
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil {
		if info.IsDir() {
			return failed(opts, path, fmt.Errorf("%w: %s is a directory", table.ErrUnexpected, path),
				fmt.Sprintf("unexpected error: %s is a directory", path))
		}
		if opts.MaxBytes > 0 && info.Size() > opts.MaxBytes {
			return failed(opts, path, ErrTooLarge,
				fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), opts.MaxBytes))
		}
	}

	var src io.Reader = f
	if opts.DetectEncoding {
		data, err := readAll(f, opts.MaxBytes)
		if err != nil {
			return failed(opts, path, err, diagnostic(err))
		}
		guess, err := encoding.DetectBytes(data)
		switch {
		case err == nil:
			opts.Encoding = guess.Label
		case errors.Is(err, table.ErrUndetectedEncoding):
			// Empty input; let the parser report it.
		default:
			return failed(opts, path, fmt.Errorf("%w: %v", table.ErrUnexpected, err),
				fmt.Sprintf("unexpected error: %v", err))
		}
		src = bytes.NewReader(data)
	}

	res := Read(src, opts)
	res.Path = path
	return res
}

// readAll reads r, failing with ErrTooLarge past max bytes when max is positive.
func readAll(r io.Reader, max int64) ([]byte, error) {
	if max > 0 {
		r = &limitedReader{r: r, remaining: max}
	}
	data, err := io.ReadAll(r)
	if err != nil && !errors.Is(err, ErrTooLarge) {
		err = fmt.Errorf("%w: %v", table.ErrUnexpected, err)
	}
	return data, err
}

// Read parses delimited text from r. It is the in-memory counterpart of
// LoadCSV used for uploaded content.
func Read(r io.Reader, opts Options) Result {
	if opts.MaxBytes > 0 {
		r = &limitedReader{r: r, remaining: opts.MaxBytes}
	}
	src, err := encoding.NewReader(r, opts.Encoding, opts.Lenient)
	if err != nil {
		return failed(opts, "", err, err.Error())
	}

	tbl, err := parse(src, opts)
	if err != nil {
		return failed(opts, "", err, diagnostic(err))
	}
	return Result{Table: tbl}
}

func diagnostic(err error) string {
	switch {
	case errors.Is(err, table.ErrEmptyData):
		return "the file is empty"
	case errors.Is(err, table.ErrParse):
		return fmt.Sprintf("error parsing the CSV file: %v", err)
	case errors.Is(err, ErrTooLarge):
		return "the file exceeds the size limit"
	default:
		return fmt.Sprintf("unexpected error: %v", err)
	}
}

func failed(opts Options, path string, err error, msg string) Result {
	opts.logger().Warn("load failed", "path", path, "error", err, "message", msg)
	return Result{Err: err, Message: msg, Path: path}
}

// limitedReader fails with ErrTooLarge once more than remaining bytes are read.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
