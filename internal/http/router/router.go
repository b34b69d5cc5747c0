// Package router assembles the route table and the middleware stack.
//
// Route table:
//
//	GET    /                    → API metadata
//	POST   /api/{resource}      → create
//	GET    /api/{resource}      → list
//	GET    /api/{resource}/{id} → get one
//	PUT    /api/{resource}/{id} → partial update
//	DELETE /api/{resource}/{id} → delete
//
// for resource = students, teachers.
package router

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/school-api/internal/http/handlers/resource"
	"github.com/aanand-mishra/school-api/internal/http/handlers/root"
	"github.com/aanand-mishra/school-api/internal/types"
	"github.com/gorilla/handlers"
)

const (
	apiName    = "Educational Games API"
	apiVersion = "1.0.0"

	studentsPath = "/api/students"
	teachersPath = "/api/teachers"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Students  resource.Service[types.Student, types.StudentInput, types.StudentPatch]
	Teachers  resource.Service[types.Teacher, types.TeacherInput, types.TeacherPatch]
	Validator resource.Validator

	// AllowedOrigins for CORS; empty means any origin.
	AllowedOrigins []string
	// AccessLog receives one combined-format line per request; nil disables it.
	AccessLog io.Writer
	Logger    *slog.Logger
}

// New returns the fully wrapped HTTP handler.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	// "{$}" matches "/" only, not every unmatched path.
	mux.HandleFunc("GET /{$}", root.New(apiName, apiVersion, map[string]string{
		"students": studentsPath,
		"teachers": teachersPath,
	}))

	mount(mux, studentsPath, "Student", d.Students, d.Validator)
	mount(mux, teachersPath, "Teacher", d.Teachers, d.Validator)

	return wrap(mux, d)
}

func mount[R, C, U any](mux *http.ServeMux, path, name string, svc resource.Service[R, C, U], v resource.Validator) {
	mux.HandleFunc("POST "+path, resource.Create(svc, v, name))
	mux.HandleFunc("GET "+path, resource.List(svc, name))
	mux.HandleFunc("GET "+path+"/{id}", resource.Get(svc, v, name))
	mux.HandleFunc("PUT "+path+"/{id}", resource.Update(svc, v, name))
	mux.HandleFunc("DELETE "+path+"/{id}", resource.Delete(svc, v, name))
}

// wrap applies, outermost first: panic recovery, CORS, access log.
func wrap(h http.Handler, d Deps) http.Handler {
	if d.AccessLog != nil {
		h = handlers.CombinedLoggingHandler(d.AccessLog, h)
	}

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	h = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(h)

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger}),
	)(h)
}

// recoveryLogger adapts slog to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	log *slog.Logger
}

func (l recoveryLogger) Println(v ...any) {
	for _, x := range v {
		if err, ok := x.(error); ok {
			l.log.Error("panic recovered", slog.String("error", err.Error()))
			return
		}
	}
	l.log.Error("panic recovered", slog.Any("value", v))
}
