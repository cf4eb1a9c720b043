package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusFor(err))
//  3. Error is mapped via core.MapError to get a user-friendly message
//  4. Technical error and code are logged with the request ID
//  5. User message is written as JSON for API clients, plain text otherwise

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"github.com/JonMunkholm/paraprep/internal/core"
	"github.com/JonMunkholm/paraprep/internal/logging"
	"github.com/JonMunkholm/paraprep/internal/prepare"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// errNoFile is returned when a required multipart file part is absent.
var errNoFile = errors.New("no file provided")

// respondError logs the technical error server-side and returns a
// user-friendly response.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if wantsJSON(r) {
		writeJSONStatus(w, r, statusCode, ErrorResponse{
			Error:   err.Error(),
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		})
		return
	}
	http.Error(w, userMsg.Message+" ("+userMsg.Code+")", statusCode)
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, prepare.ErrUnknownRecipe):
		return http.StatusNotFound
	case errors.Is(err, prepare.ErrTooManyRuns):
		return http.StatusServiceUnavailable
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoFile),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, http.ErrMissingFile):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrPrecondition),
		errors.Is(err, core.ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, fs.ErrNotExist):
		// The configured reference file is missing on the server
		return http.StatusInternalServerError
	}
	msg := err.Error()
	if strings.Contains(msg, "invalid csv") || strings.Contains(msg, "invalid spreadsheet") || strings.Contains(msg, "encoding error") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	// Check Accept header
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}

	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
