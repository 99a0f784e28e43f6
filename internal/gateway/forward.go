package gateway

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/neexbeast/match-weather/internal/api"
	"github.com/neexbeast/match-weather/internal/apperr"
)

// Route describes one forwarding endpoint.
type Route struct {
	Command  string   // breaker name
	Path     string   // path on the service
	Required []string // query parameters that must be present
	Optional []string // query parameters passed through when present
}

// Forward returns a handler that relays the request to backend and writes
// the service's status and body unchanged.
func Forward(backend *Backend, route Route, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in := r.URL.Query()
		out := url.Values{}

		for _, name := range route.Required {
			v := strings.TrimSpace(in.Get(name))
			if v == "" {
				api.WriteError(w, r, log, apperr.Missing(name))
				return
			}
			out.Set(name, v)
		}
		for _, name := range route.Optional {
			if v := strings.TrimSpace(in.Get(name)); v != "" {
				out.Set(name, v)
			}
		}

		resp, err := backend.Get(r.Context(), route.Command, route.Path, out)
		if err != nil {
			api.WriteError(w, r, log, err)
			return
		}

		if resp.ContentType != "" {
			w.Header().Set("Content-Type", resp.ContentType)
		}
		w.WriteHeader(resp.Status)
		_, _ = w.Write(resp.Body)
	}
}
