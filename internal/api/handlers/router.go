package handlers

import (
	"net/http"

	"charge-sentinel/internal/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

// NewRouter wires every route under /api/v1 plus /health and, when a registry is
// given, /metrics
func NewRouter(h *Handlers, registry *prometheus.Registry, allowedOrigins []string) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware(allowedOrigins))

	api := router.PathPrefix("/api/v1").Subrouter()

	// Events endpoints
	api.HandleFunc("/events/groups", h.GetEventGroups).Methods("GET")
	api.HandleFunc("/events", h.GetEvents).Methods("GET")
	api.HandleFunc("/events", h.IngestEvent).Methods("POST", "OPTIONS")

	// Incidents endpoints
	api.HandleFunc("/incidents/stats", h.GetIncidentStats).Methods("GET")
	api.HandleFunc("/incidents/export", h.ExportIncidents).Methods("GET")
	api.HandleFunc("/incidents/patterns", h.RecordPatterns).Methods("POST", "OPTIONS")
	api.HandleFunc("/incidents", h.GetIncidents).Methods("GET")
	api.HandleFunc("/incidents/{id}", h.GetIncident).Methods("GET")
	api.HandleFunc("/incidents/{id}/status", h.UpdateIncidentStatus).Methods("PATCH", "OPTIONS")
	api.HandleFunc("/incidents/{id}", h.DeleteIncident).Methods("DELETE", "OPTIONS")

	// Traffic endpoints
	api.HandleFunc("/traffic/stats", h.GetTrafficStats).Methods("GET")
	api.HandleFunc("/traffic/export", h.ExportTraffic).Methods("GET")
	api.HandleFunc("/traffic", h.GetTraffic).Methods("GET")

	// Rules
	api.HandleFunc("/rules", h.GetRules).Methods("GET")

	// Streams
	api.HandleFunc("/stream/incidents", h.StreamIncidents).Methods("GET")
	api.HandleFunc("/stream/traffic", h.StreamTraffic).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	if registry != nil {
		router.Handle("/metrics", metrics.Handler(registry)).Methods("GET")
	}

	return router
}

// corsMiddleware echoes an allowed Origin back; "*" in the list allows any origin
func corsMiddleware(allowedOrigins []string) mux.MiddlewareFunc {
	allowAny := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAny = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowOrigin := ""
			switch {
			case origin != "" && allowed[origin]:
				allowOrigin = origin
			case allowAny:
				allowOrigin = "*"
			}

			if allowOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
				w.Header().Set("Access-Control-Max-Age", "3600")
				if allowOrigin != "*" {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
