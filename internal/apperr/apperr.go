// Package apperr defines the closed set of errors the API can surface.
//
// Every error that crosses a package boundary on its way to the HTTP layer
// is an *Error carrying an explicit Kind. The transport layer maps the Kind
// to a status code exactly once (see Kind.Status), so no handler has to
// inspect message strings or driver-specific codes.
package apperr

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies an *Error.
type Kind int

const (
	// KindStorage is an unexpected document store failure. The client sees
	// only a fixed message; details stay in the server log.
	KindStorage Kind = iota
	// KindConfiguration means startup settings are missing or malformed.
	KindConfiguration
	// KindConnection means the store could not be reached after all retries.
	KindConnection
	// KindValidation is a client-fixable payload problem.
	KindValidation
	// KindNotFound means the requested record does not exist.
	KindNotFound
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Title is the short label written to the "error" field of a failure envelope.
func (k Kind) Title() string {
	switch k {
	case KindConfiguration:
		return "Configuration Error"
	case KindConnection:
		return "Connection Error"
	case KindValidation:
		return "Validation Error"
	case KindNotFound:
		return "Not Found"
	default:
		return "Storage Error"
	}
}

func (k Kind) String() string { return k.Title() }

// Error is the tagged error value. Err, when set, is the underlying cause and
// is never shown to clients.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Configuration reports every missing setting at once.
func Configuration(missing []string) *Error {
	return &Error{
		Kind:    KindConfiguration,
		Message: "missing required settings: " + strings.Join(missing, ", "),
		Details: missing,
	}
}

// Connection wraps the last failure seen by the bootstrapper.
func Connection(attempts int, err error) *Error {
	return &Error{
		Kind:    KindConnection,
		Message: fmt.Sprintf("could not connect to the document store after %d attempts", attempts),
		Err:     err,
	}
}

// Validation joins all violations into one message.
func Validation(violations []string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: strings.Join(violations, ", "),
		Details: violations,
	}
}

// NotFound names the resource and the id that was asked for.
func NotFound(resource, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s with ID %s not found", resource, id),
	}
}

// Storage hides err behind message.
func Storage(message string, err error) *Error {
	return &Error{Kind: KindStorage, Message: message, Err: err}
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, treating anything untagged as KindStorage.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindStorage
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
