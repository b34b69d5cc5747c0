// Package root serves the API metadata document at "/".
package root

import (
	"net/http"

	"github.com/aanand-mishra/school-api/internal/utils/response"
)

// Info describes the API.
type Info struct {
	Success   bool              `json:"success"`
	Name      string            `json:"name"`
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// New returns the handler for GET /.
func New(name, version string, endpoints map[string]string) http.HandlerFunc {
	info := Info{
		Success:   true,
		Name:      name,
		Message:   "Welcome to the " + name,
		Version:   version,
		Endpoints: endpoints,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, info)
	}
}
