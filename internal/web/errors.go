package web

// errors.go gives every failed request the same JSON shape.
//
// The technical error is logged with the request ID; the client gets the
// user message from core.MapError plus a code it can quote to support.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/tabdiff/internal/core"
	"github.com/JonMunkholm/tabdiff/internal/logging"
	"github.com/JonMunkholm/tabdiff/internal/mapping"
	"github.com/JonMunkholm/tabdiff/internal/source"
	"github.com/JonMunkholm/tabdiff/internal/store"
	"github.com/JonMunkholm/tabdiff/internal/table"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errInvalidID   = errors.New("invalid id")
	errInvalidBody = errors.New("invalid request body")
)

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Action    string `json:"action,omitempty"`
	Code      string `json:"code"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	// JobID names the failed comparison when one was recorded
	JobID string `json:"job_id,omitempty"`
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, table.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, core.ErrJobNotFound),
		errors.Is(err, core.ErrTaskNotFound),
		errors.Is(err, core.ErrMappingNotFound),
		errors.Is(err, source.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, table.ErrMalformedInput),
		errors.Is(err, mapping.ErrColumnNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrInvalidMapping),
		errors.Is(err, core.ErrInvalidTask),
		errors.Is(err, source.ErrInvalidURI),
		errors.Is(err, errInvalidID),
		errors.Is(err, errInvalidBody):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyComparisons):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondServiceError responds with the status statusFor chooses.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err, statusFor(err))
}

// respondError logs err and writes the mapped user message. Client errors
// carry the technical text as detail; server errors do not.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	writeJSONStatus(w, status, errorResponse(r, err, status))
}

func errorResponse(r *http.Request, err error, status int) ErrorResponse {
	msg := core.MapError(err)
	reqID := middleware.GetReqID(r.Context())

	log := logging.FromContext(r.Context())
	logFn := log.Warn
	if status >= http.StatusInternalServerError {
		logFn = log.Error
	}
	logFn("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	resp := ErrorResponse{
		Error:     msg.Message,
		Message:   msg.Message,
		Action:    msg.Action,
		Code:      msg.Code,
		RequestID: reqID,
	}
	if status < http.StatusInternalServerError {
		resp.Detail = err.Error()
	}
	return resp
}

// writeJSON encodes v with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON. Encoding errors are only logged since
// headers are already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
