// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every handler in this application sends JSON back to the client, always
// wrapped in one of two envelopes:
//
//	{ "success": true,  "message": "...", "data": ..., "count": 2 }
//	{ "success": false, "error": "Not Found", "message": "..." }
//
// Validation failures carry "details" instead of "message".
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/school-api/internal/apperr"
)

// Success is the envelope for 2xx responses.
//
// Data has no omitempty: a delete answers with "data": null.
type Success struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
	Count   *int   `json:"count,omitempty"`
}

// Failure is the envelope for 4xx/5xx responses.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// msgInternal replaces the message of errors that carry no apperr kind.
const msgInternal = "Internal Server Error"

// ─────────────────────────────────────────────────────────────────────────────
// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
// ─────────────────────────────────────────────────────────────────────────────
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// OK builds a success envelope.
func OK(message string, data any) Success {
	return Success{Success: true, Message: message, Data: data}
}

// List builds a success envelope for a collection with its count.
func List[T any](items []T) Success {
	n := len(items)
	return Success{Success: true, Data: items, Count: &n}
}

// ─────────────────────────────────────────────────────────────────────────────
// Error maps err to its status code and failure envelope.
//
// Only apperr kinds are trusted to carry client-safe messages. Storage and
// connection errors expose their fixed Message, never the wrapped cause.
// Anything untagged becomes a generic 500.
// ─────────────────────────────────────────────────────────────────────────────
func Error(err error) (int, Failure) {
	e, ok := apperr.As(err)
	if !ok {
		return http.StatusInternalServerError, Failure{
			Error:   apperr.KindStorage.Title(),
			Message: msgInternal,
		}
	}

	f := Failure{Error: e.Kind.Title()}
	if e.Kind == apperr.KindValidation {
		f.Details = e.Message
	} else {
		f.Message = e.Message
	}
	return e.Kind.Status(), f
}

// WriteError logs server-side failures and writes the failure envelope.
func WriteError(w http.ResponseWriter, err error) {
	status, body := Error(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			slog.String("kind", apperr.KindOf(err).String()),
			slog.String("error", err.Error()))
	}
	WriteJSON(w, status, body)
}
