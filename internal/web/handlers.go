package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dataprep/internal/clean"
	"github.com/JonMunkholm/dataprep/internal/core"
	"github.com/JonMunkholm/dataprep/internal/encoding"
	"github.com/JonMunkholm/dataprep/internal/loader"
	"github.com/JonMunkholm/dataprep/internal/logging"
	"github.com/JonMunkholm/dataprep/internal/profile"
	"github.com/JonMunkholm/dataprep/internal/table"
)

// multipartSlack is added to the file size limit for multipart framing.
const multipartSlack = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":   "ok",
		"sessions": s.service.Len(),
		"loads":    s.service.Limiter().Status(),
	})
}

// handleDetectEncoding guesses the encoding of the request body.
func (s *Server) handleDetectEncoding(w http.ResponseWriter, r *http.Request) {
	body, _, err := s.uploadBody(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	guess, err := encoding.DetectBytes(data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, guess)
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"tables": s.service.List(r.Context())})
}

// handleLoadTable accepts either a raw CSV body or a multipart form with a
// "file" part. Query parameters: name, delimiter, encoding, detect, lenient.
func (s *Server) handleLoadTable(w http.ResponseWriter, r *http.Request) {
	delim, err := parseDelimiter(r, s.cfg.Load.DelimiterRune())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	body, filename, err := s.uploadBody(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer body.Close()

	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		name = filename
	}
	if name != "" {
		if ext := filepath.Ext(name); ext != "" && !strings.EqualFold(ext, "."+loader.FormatCSV) {
			s.respondError(w, r, fmt.Errorf("%w: %q", table.ErrUnsupportedFormat, strings.TrimPrefix(ext, ".")))
			return
		}
	}

	info, err := s.service.Load(r.Context(), body, core.LoadRequest{
		Name:           name,
		Delimiter:      delim,
		Encoding:       q.Get("encoding"),
		DetectEncoding: parseBoolParam(r, "detect"),
		Lenient:        parseBoolParam(r, "lenient"),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/tables/"+info.ID)
	writeJSONStatus(w, http.StatusCreated, info)
}

// uploadBody returns the uploaded content and, for multipart requests,
// the client's file name.
func (s *Server) uploadBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, error) {
	maxSize := s.cfg.Load.MaxFileSize

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
			return nil, "", fmt.Errorf("%w: no file provided", table.ErrInvalidArgument)
		}
		return tooLargeReader{http.MaxBytesReader(w, r.Body, maxSize)}, "", nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartSlack)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, "", loader.ErrTooLarge
		}
		return nil, "", fmt.Errorf("%w: invalid multipart form: %v", table.ErrInvalidArgument, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("%w: no file provided", table.ErrInvalidArgument)
	}
	if header.Size > maxSize {
		file.Close()
		return nil, "", loader.ErrTooLarge
	}
	return file, header.Filename, nil
}

// tooLargeReader reports an exceeded body limit as loader.ErrTooLarge.
type tooLargeReader struct {
	io.ReadCloser
}

func (t tooLargeReader) Read(p []byte) (int, error) {
	n, err := t.ReadCloser.Read(p)
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		err = loader.ErrTooLarge
	}
	return n, err
}

func (s *Server) handleTableInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.Info(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, info)
}

func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRows pages through the held table with offset and limit.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	offset, err := parseIntParam(r, "offset", 0)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	limit, err := parseIntParam(r, "limit", defaultRowLimit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if limit > maxRowLimit {
		limit = maxRowLimit
	}

	t, err := s.service.Rows(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, newTableJSON(t, offset, limit))
}

// handleExport streams the held table as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	delim, err := parseDelimiter(r, s.cfg.Load.DelimiterRune())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")

	t, err := s.service.Rows(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".csv"))
	if err := t.WriteCSV(w, delim); err != nil {
		logging.FromContext(r.Context()).Error("export failed", "error", err)
	}
}

type filterRequest struct {
	Column      string `json:"column" validate:"required"`
	Values      []any  `json:"values" validate:"required_without=OnEmptiness"`
	Exclude     bool   `json:"exclude"`
	OnEmptiness bool   `json:"onEmptiness"`
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	info, err := s.service.FilterRows(r.Context(), chi.URLParam(r, "id"), req.Column, clean.FilterOptions{
		Allowed:     req.Values,
		Exclude:     req.Exclude,
		OnEmptiness: req.OnEmptiness,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, info)
}

type cleanRequest struct {
	Rules []clean.Rule `json:"rules" validate:"required,min=1,dive"`
}

func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	var req cleanRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	info, err := s.service.CleanColumns(r.Context(), chi.URLParam(r, "id"), req.Rules)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, info)
}

type toIntegerRequest struct {
	Columns []string `json:"columns" validate:"required,min=1,dive,required"`
}

func (s *Server) handleToInteger(w http.ResponseWriter, r *http.Request) {
	var req toIntegerRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	info, err := s.service.ToInteger(r.Context(), chi.URLParam(r, "id"), req.Columns)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, info)
}

func (s *Server) handleSpecialCharacters(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.SpecialCharacters(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, report)
}

type overlongResponse struct {
	Column    string    `json:"column"`
	MaxLength int       `json:"maxLength"`
	Found     bool      `json:"found"`
	Notice    string    `json:"notice,omitempty"`
	Rows      tableJSON `json:"rows"`
}

func (s *Server) handleOverlong(w http.ResponseWriter, r *http.Request) {
	column := r.URL.Query().Get("column")
	if column == "" {
		s.respondError(w, r, fmt.Errorf("%w: column is required", table.ErrInvalidArgument))
		return
	}
	if r.URL.Query().Get("max") == "" {
		s.respondError(w, r, fmt.Errorf("%w: max is required", table.ErrInvalidArgument))
		return
	}
	maxLength, err := parseIntParam(r, "max", 0)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	report, err := s.service.OverlongValues(r.Context(), chi.URLParam(r, "id"), column, maxLength)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, overlongResponse{
		Column:    report.Column,
		MaxLength: report.MaxLength,
		Found:     report.Found(),
		Notice:    report.Notice,
		Rows:      newTableJSON(report.Rows, 0, report.Rows.NumRows()),
	})
}

// handleProfile serves one report: schema, describe, counts or nulls.
// With format=text the report is rendered as a text table.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	report := chi.URLParam(r, "report")
	asText := r.URL.Query().Get("format") == "text"

	p, err := s.service.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	switch report {
	case "schema":
		info := p.SchemaInfo()
		if asText {
			writeText(w, func(out io.Writer) { profile.WriteSchemaInfo(out, info) })
			return
		}
		writeJSON(w, info)
	case "counts":
		counts := p.ValueCounts()
		if asText {
			writeText(w, func(out io.Writer) { profile.WriteCounts(out, "Values per column", counts) })
			return
		}
		writeJSON(w, map[string]any{"columns": counts})
	case "nulls":
		nulls := p.NullReport()
		if asText {
			writeText(w, func(out io.Writer) { profile.WriteNullReport(out, nulls) })
			return
		}
		writeJSON(w, nulls)
	case "describe":
		d, err := p.DescriptiveStatistics()
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if asText {
			writeText(w, func(out io.Writer) { profile.WriteTable(out, "Summary statistics", d) })
			return
		}
		writeJSON(w, newTableJSON(d, 0, d.NumRows()))
	default:
		s.respondError(w, r, fmt.Errorf("%w: unknown report %q, expected schema, describe, counts or nulls",
			table.ErrInvalidArgument, report))
	}
}

func writeText(w http.ResponseWriter, render func(io.Writer)) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	render(w)
}
