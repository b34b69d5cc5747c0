// Package resource contains the CRUD HTTP handlers shared by every record
// type (students, teachers).
//
// HANDLER PATTERN USED HERE — THE CLOSURE / FACTORY PATTERN:
// ────────────────────────────────────────────────────────────
// Go's router expects handler functions with the signature:
//
//	func(http.ResponseWriter, *http.Request)
//
// To inject dependencies each factory accepts them (the service, the
// validator, the resource name) and returns a function with exactly that
// signature. The inner function closes over the dependencies:
//
//	router.HandleFunc("POST /api/students", resource.Create(students, v, "Student"))
//
// The factories are generic over R (record), C (create payload) and
// U (update payload), so one set of handlers serves both resources.
package resource

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/aanand-mishra/school-api/internal/apperr"
	"github.com/aanand-mishra/school-api/internal/utils/response"
	"github.com/pkg/errors"
)

// Service is what the handlers need from a resource service.
// *service.Service satisfies it.
type Service[R, C, U any] interface {
	Create(ctx context.Context, input C) (R, error)
	List(ctx context.Context) ([]R, error)
	Get(ctx context.Context, id string) (R, error)
	Update(ctx context.Context, id string, patch U) (R, error)
	Delete(ctx context.Context, id string) error
}

// Validator checks payloads and path ids. *validation.Validator satisfies it.
type Validator interface {
	Struct(payload any) error
	ID(id string) (string, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Create handles POST /api/{resource}.
//
// Request body (JSON):
//
//	{ "name": "Ana", "age": 10, "address": "1 Elm St" }
//
// Success response (201 Created):
//
//	{ "success": true, "message": "Student created successfully", "data": {...} }
//
// Error responses:
//
//	400 Bad Request  — empty body, malformed JSON, or failed validation
//	500 Internal     — store unreachable or store error
//
// ─────────────────────────────────────────────────────────────────────────────
func Create[R, C, U any](svc Service[R, C, U], v Validator, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a record", slog.String("resource", name))

		var input C
		if err := decodeBody(r, &input); err != nil {
			response.WriteError(w, err)
			return
		}

		if err := v.Struct(&input); err != nil {
			response.WriteError(w, err)
			return
		}

		rec, err := svc.Create(r.Context(), input)
		if err != nil {
			response.WriteError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusCreated,
			response.OK(name+" created successfully", rec))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// List handles GET /api/{resource}.
//
// Success response (200 OK):
//
//	{ "success": true, "count": 2, "data": [ {...}, {...} ] }
//
// Returns "data": [] (not null) when the collection is empty.
// ─────────────────────────────────────────────────────────────────────────────
func List[R, C, U any](svc Service[R, C, U], name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("listing records", slog.String("resource", name))

		recs, err := svc.List(r.Context())
		if err != nil {
			response.WriteError(w, err)
			return
		}
		if recs == nil {
			recs = []R{}
		}

		response.WriteJSON(w, http.StatusOK, response.List(recs))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Get handles GET /api/{resource}/{id}.
//
// Error responses:
//
//	404 Not Found    — no record with that id
//	500 Internal     — store error
//
// ─────────────────────────────────────────────────────────────────────────────
func Get[R, C, U any](svc Service[R, C, U], v Validator, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.PathValue("id") extracts the {id} segment registered in the
		// ServeMux pattern "GET /api/students/{id}".
		id, err := v.ID(r.PathValue("id"))
		if err != nil {
			response.WriteError(w, err)
			return
		}
		slog.Info("getting a record", slog.String("resource", name), slog.String("id", id))

		rec, err := svc.Get(r.Context(), id)
		if err != nil {
			response.WriteError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.OK("", rec))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/{resource}/{id}.
// Only the fields present in the body are changed; at least one is needed.
//
// Error responses:
//
//	400 Bad Request  — empty body, malformed JSON, no field, invalid field
//	404 Not Found    — no record with that id
//	500 Internal     — store error
//
// ─────────────────────────────────────────────────────────────────────────────
func Update[R, C, U any](svc Service[R, C, U], v Validator, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := v.ID(r.PathValue("id"))
		if err != nil {
			response.WriteError(w, err)
			return
		}
		slog.Info("updating a record", slog.String("resource", name), slog.String("id", id))

		var patch U
		if err := decodeBody(r, &patch); err != nil {
			response.WriteError(w, err)
			return
		}

		if err := v.Struct(&patch); err != nil {
			response.WriteError(w, err)
			return
		}

		rec, err := svc.Update(r.Context(), id, patch)
		if err != nil {
			response.WriteError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK,
			response.OK(name+" updated successfully", rec))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/{resource}/{id}.
//
// Success response (200 OK):
//
//	{ "success": true, "message": "Student deleted successfully", "data": null }
//
// ─────────────────────────────────────────────────────────────────────────────
func Delete[R, C, U any](svc Service[R, C, U], v Validator, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := v.ID(r.PathValue("id"))
		if err != nil {
			response.WriteError(w, err)
			return
		}
		slog.Info("deleting a record", slog.String("resource", name), slog.String("id", id))

		if err := svc.Delete(r.Context(), id); err != nil {
			response.WriteError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK,
			response.OK(name+" deleted successfully", nil))
	}
}

// decodeBody reads a JSON object into dst. Unknown fields are ignored.
// Empty and malformed bodies are client errors.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return apperr.Validation([]string{"request body is empty"})
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return apperr.Validation([]string{"request body must be a JSON object"})
		}
		return apperr.Validation([]string{typeErr.Field + " must be a " + jsonType(typeErr.Type)})
	}

	if err != nil {
		return apperr.Validation([]string{"malformed JSON: " + err.Error()})
	}
	return nil
}

// jsonType names the JSON value that decodes into t.
func jsonType(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}
