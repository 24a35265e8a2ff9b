package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/factorlab/internal/api/handlers"
	"github.com/wonny/factorlab/pkg/logger"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(labHandler *handlers.LabHandler, stream *Stream, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Definition endpoints
	api.HandleFunc("/definitions", labHandler.ListDefinitions).Methods("GET")
	api.HandleFunc("/definitions", labHandler.SaveDefinition).Methods("POST")
	api.HandleFunc("/definitions/{name}", labHandler.GetDefinition).Methods("GET")
	api.HandleFunc("/definitions/{name}", labHandler.DeleteDefinition).Methods("DELETE")

	// Engine read endpoints
	api.HandleFunc("/definitions/{name}/cross", labHandler.GetCross).Methods("GET")
	api.HandleFunc("/definitions/{name}/ic", labHandler.GetIC).Methods("GET")
	api.HandleFunc("/definitions/{name}/icir", labHandler.GetICIR).Methods("GET")
	api.HandleFunc("/definitions/{name}/summary", labHandler.GetSummary).Methods("GET")

	// Evaluation push feed
	if stream != nil {
		r.HandleFunc("/ws/evaluations", stream.Serve)
	}

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "factorlab-api",
	})
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics.
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
