package httpserver

import (
	"net/http"

	"cardbridge/backend/services/serial-bridge/internal/http/middleware"
)

// Routes defines HTTP endpoints.
type Routes struct {
	Health     http.Handler
	Login      http.Handler
	Status     http.Handler
	ListPorts  http.Handler
	SelectPort http.Handler
	Commands   http.Handler
	Console    http.Handler
}

// NewRouter sets up HTTP routing. Everything under /api except login sits
// behind the operator token check.
func NewRouter(routes Routes, verifier middleware.TokenVerifier) http.Handler {
	mux := http.NewServeMux()
	protect := middleware.Auth(verifier)

	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health.ServeHTTP))
	}
	if routes.Login != nil {
		mux.Handle("/api/login", method(http.MethodPost, routes.Login.ServeHTTP))
	}
	if routes.Status != nil {
		mux.Handle("/api/status", protect(method(http.MethodGet, routes.Status.ServeHTTP)))
	}
	if routes.ListPorts != nil {
		mux.Handle("/api/ports", protect(method(http.MethodGet, routes.ListPorts.ServeHTTP)))
	}
	if routes.SelectPort != nil {
		mux.Handle("/api/ports/select", protect(method(http.MethodPost, routes.SelectPort.ServeHTTP)))
	}
	if routes.Commands != nil {
		mux.Handle("/api/commands", protect(method(http.MethodPost, routes.Commands.ServeHTTP)))
	}
	if routes.Console != nil {
		mux.Handle("/api/console", protect(method(http.MethodGet, routes.Console.ServeHTTP)))
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
