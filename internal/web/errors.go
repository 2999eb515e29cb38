package web

// errors.go turns handler errors into responses.
//
// Every error is logged with its technical text and request ID, then
// mapped through core.MapError so the client only sees the coded,
// user-facing message. HTMX-style requests (HX-Request: true) get an HTML
// alert fragment; API requests get JSON; anything else gets plain text.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/logging"
	"github.com/JonMunkholm/roster/internal/mail"
	"github.com/JonMunkholm/roster/internal/sheet"
	"github.com/JonMunkholm/roster/internal/web/templates"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var (
	errNoFile   = errors.New("no file provided")
	errBadLimit = errors.New("limit must be a positive integer")
)

// statusFor picks the HTTP status for a domain error.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrRowNotFound),
		errors.Is(err, mail.ErrBatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNoData),
		errors.Is(err, sheet.ErrEmptySheet),
		errors.Is(err, core.ErrNothingToExport),
		errors.Is(err, mail.ErrNoEmailColumn),
		errors.Is(err, mail.ErrNoSelection):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrParserBusy),
		errors.Is(err, mail.ErrRelayNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	logging.FromContext(r.Context()).Warn("request error",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	)

	switch {
	case isHTMX(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
	case wantsJSON(r):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
	default:
		http.Error(w, msg.Message+" ("+msg.Code+")", status)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode", "error", err)
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json") ||
		strings.HasPrefix(r.URL.Path, "/api/")
}
