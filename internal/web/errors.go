package web

// errors.go turns errors into JSON responses. The technical error is logged
// with the request id; the client gets the mapped message, action and code
// from core.MapError.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/dataprep/internal/core"
	"github.com/JonMunkholm/dataprep/internal/loader"
	"github.com/JonMunkholm/dataprep/internal/logging"
	"github.com/JonMunkholm/dataprep/internal/table"
)

var errRateLimited = errors.New("rate limit exceeded")

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// respondError logs err and writes the mapped user message with the status
// derived from the error category.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	level := logger.Warn
	if status >= http.StatusInternalServerError {
		level = logger.Error
	}
	level("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if errors.Is(err, core.ErrTooManyLoads) {
		w.Header().Set("Retry-After", "5")
	}

	resp := ErrorResponse{Error: err.Error(), Message: msg.Message, Action: msg.Action, Code: msg.Code}
	var verr *validationError
	if errors.As(err, &verr) {
		resp.Fields = verr.fields
	}
	if status >= http.StatusInternalServerError {
		resp.Error = msg.Message
	}
	writeJSONStatus(w, status, resp)
}

// respondErrorJSON writes msg without an underlying error, for middleware.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int) {
	writeJSONStatus(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor maps an error category to an HTTP status.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, loader.ErrTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyLoads), errors.Is(err, core.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, table.ErrCoercion), errors.Is(err, table.ErrUnexpected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, table.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, table.ErrNotLoaded):
		return http.StatusConflict
	case errors.Is(err, table.ErrEmptyData),
		errors.Is(err, table.ErrParse),
		errors.Is(err, table.ErrInvalidArgument),
		errors.Is(err, table.ErrColumnNotFound),
		errors.Is(err, table.ErrUndetectedEncoding):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
