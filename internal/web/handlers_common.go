package web

// handlers_common.go holds request decoding and response shaping shared by
// the handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/dataprep/internal/logging"
	"github.com/JonMunkholm/dataprep/internal/table"
)

// maxJSONBody bounds request bodies of the operation endpoints.
const maxJSONBody = 1 << 20

const (
	defaultRowLimit = 100
	maxRowLimit     = 10000
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError carries per-field messages and matches table.ErrInvalidArgument.
type validationError struct {
	fields map[string]string
}

func (e *validationError) Error() string {
	parts := make([]string, 0, len(e.fields))
	for f, m := range e.fields {
		parts = append(parts, f+": "+m)
	}
	return fmt.Sprintf("invalid argument: %s", strings.Join(parts, "; "))
}

func (e *validationError) Unwrap() error {
	return table.ErrInvalidArgument
}

// decodeJSON reads a JSON body into dst and validates its struct tags.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", table.ErrInvalidArgument)
		}
		return fmt.Errorf("%w: malformed JSON: %v", table.ErrInvalidArgument, err)
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", table.ErrInvalidArgument, err)
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Namespace()] = validationMessage(fe)
		}
		return &validationError{fields: fields}
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "min":
		return "must have at least " + fe.Param() + " element(s)"
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// parseIntParam parses a non-negative integer query parameter.
func parseIntParam(r *http.Request, name string, defaultVal int) (int, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %q", table.ErrInvalidArgument, name, val)
	}
	return i, nil
}

// parseDelimiter reads a single-character delimiter parameter. "tab" and
// "\t" name the tab character.
func parseDelimiter(r *http.Request, defaultVal rune) (rune, error) {
	val := r.URL.Query().Get("delimiter")
	switch val {
	case "":
		return defaultVal, nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(val) != 1 {
		return 0, fmt.Errorf("%w: delimiter must be a single character, got %q", table.ErrInvalidArgument, val)
	}
	d, _ := utf8.DecodeRuneInString(val)
	return d, nil
}

func parseBoolParam(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

// withSession puts the {id} route parameter into the logging context.
func withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		next.ServeHTTP(w, r.WithContext(logging.WithSession(r.Context(), id)))
	})
}

type columnJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// tableJSON is the wire form of a table slice.
type tableJSON struct {
	Columns   []columnJSON    `json:"columns"`
	Rows      [][]table.Value `json:"rows"`
	TotalRows int             `json:"totalRows"`
	Offset    int             `json:"offset"`
}

// newTableJSON renders rows [offset, offset+limit) of t.
func newTableJSON(t *table.Table, offset, limit int) tableJSON {
	out := tableJSON{
		Columns:   make([]columnJSON, 0, t.NumCols()),
		Rows:      [][]table.Value{},
		TotalRows: t.NumRows(),
		Offset:    offset,
	}
	for _, c := range t.Columns() {
		out.Columns = append(out.Columns, columnJSON{Name: c.Name(), Type: c.Kind().String()})
	}
	end := offset + limit
	if end > t.NumRows() {
		end = t.NumRows()
	}
	for i := offset; i < end; i++ {
		out.Rows = append(out.Rows, t.Row(i))
	}
	return out
}
