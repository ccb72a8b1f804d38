package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pilothq/sessiondock/internal/ratelimit"
)

// SetupRoutes configures all HTTP routes.
func (h *Handler) SetupRoutes(limiter *ratelimit.Limiter) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.Health).Methods("GET")

	api := r.PathPrefix("/v1").Subrouter()

	// Session mutation is rate limited; creation hits the provisioner.
	limited := api.PathPrefix("").Subrouter()
	limited.Use(RateLimitMiddleware(limiter))
	limited.HandleFunc("/sessions", h.CreateSession).Methods("POST")
	limited.HandleFunc("/sessions", h.CloseAllSessions).Methods("DELETE")
	limited.HandleFunc("/sessions/{id}", h.DeleteSession).Methods("DELETE")

	api.HandleFunc("/sessions", h.ListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}/screenshot", h.Screenshot).Methods("POST")
	api.HandleFunc("/sessions/{id}/artifacts", h.ListArtifacts).Methods("GET")

	api.HandleFunc("/active", h.GetActive).Methods("GET")
	api.HandleFunc("/active", h.SetActive).Methods("PUT")

	r.Use(corsMiddleware)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
