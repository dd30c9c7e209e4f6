package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures and returns an HTTP ServeMux with all application routes.
func SetupRoutes(h *Handlers) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.HomeHandler)
	mux.HandleFunc("GET /chat", h.ChatPageHandler)
	mux.HandleFunc("GET /api/chat", h.ChatHandler)
	mux.HandleFunc("POST /api/register", h.RegisterHandler)
	mux.HandleFunc("GET /api/current_user", h.CurrentUserHandler)
	mux.HandleFunc("/health", HealthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}
