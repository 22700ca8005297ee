package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yusufkecer/auth-backend/internal/domain"
	"github.com/yusufkecer/auth-backend/internal/middleware"
)

type errorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Detail  string            `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// errorWriter renders service errors. In development mode the full error
// chain is included in the response.
type errorWriter struct {
	logger *slog.Logger
	debug  bool
}

func (e errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		appErr = domain.Upstream(domain.ErrUpstream, "Internal server error", err)
	}

	if appErr.Status >= http.StatusInternalServerError {
		e.logger.ErrorContext(r.Context(), "request failed", "path", middleware.SanitizePath(r.URL.Path), "error", appErr.Err)
	}

	resp := errorResponse{Message: appErr.Message, Fields: appErr.Fields}
	if e.debug && appErr.Err != nil {
		resp.Detail = appErr.Err.Error()
	}
	writeJSON(w, appErr.Status, resp)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
