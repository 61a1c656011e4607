package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataprep/internal/config"
	"github.com/JonMunkholm/dataprep/internal/core"
	"github.com/JonMunkholm/dataprep/internal/loader"
	"github.com/JonMunkholm/dataprep/internal/table"
)

const peopleCSV = "id,name,status,amount\n1,O'Brien,active,$1200\n2,Smith,closed,45.9\n3,Lee,active,\n"

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080, RequestTimeout: 5 * time.Second, ShutdownTimeout: time.Second},
		Load:    config.LoadConfig{Delimiter: ",", MaxFileSize: 1 << 20, MaxConcurrent: 2, MaxWaitTime: time.Second},
		Session: config.SessionConfig{TTL: time.Minute, SweepInterval: time.Minute, MaxSessions: 10},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	svc := core.NewService(core.Options{
		Load:               loader.Options{MaxBytes: cfg.Load.MaxFileSize},
		SessionTTL:         cfg.Session.TTL,
		MaxSessions:        cfg.Session.MaxSessions,
		MaxConcurrentLoads: cfg.Load.MaxConcurrent,
		MaxLoadWait:        cfg.Load.MaxWaitTime,
	})
	t.Cleanup(svc.Close)
	return NewServer(svc, cfg)
}

func do(t *testing.T, s *Server, method, path string, body io.Reader, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, s *Server, method, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return do(t, s, method, path, bytes.NewReader(b), "Content-Type", "application/json")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func loadPeople(t *testing.T, s *Server) string {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/tables?name=people.csv", strings.NewReader(peopleCSV))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	info := decode[core.SessionInfo](t, rec)
	assert.Equal(t, "/api/tables/"+info.ID, rec.Header().Get("Location"))
	return info.ID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])
}

func TestLoadAndCleanWorkflow(t *testing.T) {
	s := newTestServer(t, nil)
	id := loadPeople(t, s)
	base := "/api/tables/" + id

	rec := do(t, s, http.MethodGet, base+"/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[core.SessionInfo](t, rec)
	assert.Equal(t, 3, info.Rows)
	assert.Equal(t, "people.csv", info.Name)

	rec = do(t, s, http.MethodGet, base+"/special-characters", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	special := decode[core.SpecialCharacterReport](t, rec)
	assert.Equal(t, []string{"'"}, special.ByColumn["name"])

	rec = doJSON(t, s, http.MethodPost, base+"/filter", map[string]any{"column": "status", "values": []any{"active"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[core.SessionInfo](t, rec).Rows)

	rec = doJSON(t, s, http.MethodPost, base+"/clean", map[string]any{
		"rules": []map[string]any{{"column": "name", "characters": []string{"'"}}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, s, http.MethodPost, base+"/to-integer", map[string]any{"columns": []string{"amount"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, base+"/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "id,name,status,amount\n1,OBrien,active,1200\n3,Lee,active,0\n", rec.Body.String())

	rec = do(t, s, http.MethodGet, base+"/export?delimiter=tab", nil)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "id\tname\t"))

	rec = do(t, s, http.MethodDelete, base+"/", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, base+"/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SES001", decode[ErrorResponse](t, rec).Code)
}

func TestRows_Paging(t *testing.T) {
	s := newTestServer(t, nil)
	id := loadPeople(t, s)

	rec := do(t, s, http.MethodGet, "/api/tables/"+id+"/rows?offset=1&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Columns   []columnJSON `json:"columns"`
		Rows      [][]any      `json:"rows"`
		TotalRows int          `json:"totalRows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.TotalRows)
	assert.Equal(t, columnJSON{Name: "id", Type: "int64"}, got.Columns[0])
	require.Len(t, got.Rows, 1)
	assert.Equal(t, []any{float64(2), "Smith", "closed", "45.9"}, got.Rows[0])

	rec = do(t, s, http.MethodGet, "/api/tables/"+id+"/rows?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoad_Failures(t *testing.T) {
	cfg := testConfig()
	cfg.Load.MaxFileSize = 16
	s := newTestServer(t, cfg)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"no body", "/api/tables", "", http.StatusBadRequest, "FILE004"},
		{"too many fields", "/api/tables", "a,b\n1,2,3\n", http.StatusBadRequest, "FILE002"},
		{"blank", "/api/tables", "\n\n", http.StatusBadRequest, "FILE005"},
		{"too large", "/api/tables", strings.Repeat("x", 100), http.StatusRequestEntityTooLarge, "FILE001"},
		{"not csv", "/api/tables?name=book.xlsx", "a\n1\n", http.StatusUnsupportedMediaType, "FILE006"},
		{"bad delimiter", "/api/tables?delimiter=ab", "a\n1\n", http.StatusBadRequest, "VAL007"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, tt.path, strings.NewReader(tt.body))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestLoad_Multipart(t *testing.T) {
	s := newTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "scores.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("a;b\n1;2\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := do(t, s, http.MethodPost, "/api/tables?delimiter=%3B", &buf, "Content-Type", mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	info := decode[core.SessionInfo](t, rec)
	assert.Equal(t, "scores.csv", info.Name)
	assert.Equal(t, []string{"a", "b"}, info.Columns)
}

func TestOperations_Validation(t *testing.T) {
	s := newTestServer(t, nil)
	base := "/api/tables/" + loadPeople(t, s)

	rec := doJSON(t, s, http.MethodPost, base+"/filter", map[string]any{"column": "status"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "VAL007", resp.Code)
	assert.NotEmpty(t, resp.Fields)

	rec = doJSON(t, s, http.MethodPost, base+"/filter", map[string]any{"column": "status", "onEmptiness": true})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, s, http.MethodPost, base+"/clean", map[string]any{"rules": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, base+"/to-integer", strings.NewReader("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, base+"/to-integer", map[string]any{"columns": []string{"nope"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL005", decode[ErrorResponse](t, rec).Code)
}

func TestToInteger_CoercionFailure(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodPost, "/api/tables", strings.NewReader("amount\n\"1,200.50\"\n"))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[core.SessionInfo](t, rec).ID

	rec = doJSON(t, s, http.MethodPost, "/api/tables/"+id+"/to-integer", map[string]any{"columns": []string{"amount"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "VAL002", decode[ErrorResponse](t, rec).Code)
}

func TestOverlong(t *testing.T) {
	s := newTestServer(t, nil)
	base := "/api/tables/" + loadPeople(t, s)

	rec := do(t, s, http.MethodGet, base+"/overlong?column=name&max=5", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[overlongResponse](t, rec)
	assert.True(t, got.Found)
	assert.Equal(t, 1, got.Rows.TotalRows)

	rec = do(t, s, http.MethodGet, base+"/overlong?column=name&max=50", nil)
	got = decode[overlongResponse](t, rec)
	assert.False(t, got.Found)
	assert.NotEmpty(t, got.Notice)

	rec = do(t, s, http.MethodGet, base+"/overlong?column=name", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileReports(t *testing.T) {
	s := newTestServer(t, nil)
	base := "/api/tables/" + loadPeople(t, s)

	rec := do(t, s, http.MethodGet, base+"/profile/nulls", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode[map[string]any](t, rec)["total"])

	rec = do(t, s, http.MethodGet, base+"/profile/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decode[map[string]any](t, rec)["rows"])

	rec = do(t, s, http.MethodGet, base+"/profile/counts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, base+"/profile/describe", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[tableJSON](t, rec)
	assert.Equal(t, 8, d.TotalRows)
	assert.Equal(t, "statistic", d.Columns[0].Name)
	require.Len(t, d.Rows, 8)
	assert.Equal(t, table.Text("count"), d.Rows[0][0])
	assert.True(t, d.Rows[0][1].Kind().Numeric())

	rec = do(t, s, http.MethodGet, base+"/profile/describe?format=text", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, strings.ToLower(rec.Body.String()), "summary statistics")

	rec = do(t, s, http.MethodGet, base+"/profile/histogram", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectEncoding(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/api/encoding", strings.NewReader("a,b\n1,2\n"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ascii", decode[map[string]any](t, rec)["encoding"])

	rec = do(t, s, http.MethodPost, "/api/encoding", strings.NewReader("\xef\xbb\xbfa\n"))
	assert.Equal(t, "utf-8-sig", decode[map[string]any](t, rec)["encoding"])
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	s := newTestServer(t, cfg)

	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/api/tables", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/tables", nil, "X-API-Key", "secret").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", nil).Code)
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("1.2.3.4"))
	assert.True(t, rl.allow("1.2.3.4"))
	assert.False(t, rl.allow("1.2.3.4"))
	assert.True(t, rl.allow("5.6.7.8"))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("1.2.3.4"))
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RequestsPerMinute = 1
	s := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", nil).Code)
	rec := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE001", decode[ErrorResponse](t, rec).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrSessionNotFound, http.StatusNotFound},
		{loader.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{core.ErrTooManyLoads, http.StatusServiceUnavailable},
		{&table.CoercionError{Column: "a"}, http.StatusUnprocessableEntity},
		{table.ErrNotLoaded, http.StatusConflict},
		{fmt.Errorf("wrap: %w", table.ErrColumnNotFound), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
