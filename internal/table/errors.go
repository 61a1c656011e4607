package table

// errors.go defines the error taxonomy shared by the loader, cleaner and
// profiler. Callers test for a category with errors.Is; the concrete error
// usually wraps the sentinel with column or file context.

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the input file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrEmptyData is returned when a file has no parseable content.
	ErrEmptyData = errors.New("empty file")

	// ErrParse is returned when the content is not valid delimited data.
	ErrParse = errors.New("invalid csv")

	// ErrUnsupportedFormat is returned when a format other than CSV is requested.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrInvalidArgument is returned when a required argument is missing or malformed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCoercion is returned when a value cannot be converted to the requested type.
	ErrCoercion = errors.New("invalid number")

	// ErrNotLoaded is returned when an operation runs before a table is held.
	ErrNotLoaded = errors.New("no table loaded")

	// ErrColumnNotFound is returned for a column reference missing from the table.
	ErrColumnNotFound = errors.New("column not found")

	// ErrUndetectedEncoding is returned when no encoding could be guessed.
	ErrUndetectedEncoding = errors.New("encoding error")

	// ErrUnexpected wraps any failure outside the categories above.
	ErrUnexpected = errors.New("unexpected error")
)

// CoercionError describes a value that could not be parsed as a number.
type CoercionError struct {
	Column string
	Row    int
	Text   string // cleaned text that failed to parse
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("invalid number in column %q at row %d: %q", e.Column, e.Row, e.Text)
}

// Unwrap lets errors.Is match ErrCoercion.
func (e *CoercionError) Unwrap() error {
	return ErrCoercion
}

// columnNotFound wraps ErrColumnNotFound with the missing name.
func columnNotFound(name string) error {
	return fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}
