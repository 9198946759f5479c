// Package api provides HTTP routing for the course assistant.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rachid48133/studygenie/internal/helper"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware attaches a request logger to the context and logs
// status and latency once the request is served.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := helper.RequestLogger("http")
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(logger.WithContext(r.Context())))

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("latency", time.Since(start)).
			Msg("Request served")
	})
}

// corsMiddleware adds CORS headers for browser clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter creates and configures the HTTP router.
func NewRouter(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	r.Use(loggingMiddleware)
	r.Use(corsMiddleware)

	r.HandleFunc("/health", handler.HandleHealth).Methods("GET")

	r.HandleFunc("/api/users/{userID}/courses/{courseID}", handler.HandleDelete).Methods("DELETE", "OPTIONS")

	c := r.PathPrefix("/api/users/{userID}/courses/{courseID}").Subrouter()
	c.HandleFunc("/index", handler.HandleIndex).Methods("POST", "OPTIONS")
	c.HandleFunc("/ask", handler.HandleAsk).Methods("POST", "OPTIONS")
	c.HandleFunc("/flashcards", handler.HandleFlashcards).Methods("POST", "OPTIONS")
	c.HandleFunc("/quiz", handler.HandleQuiz).Methods("POST", "OPTIONS")
	c.HandleFunc("/summary", handler.HandleSummary).Methods("POST", "OPTIONS")
	c.HandleFunc("/explain", handler.HandleExplain).Methods("POST", "OPTIONS")
	c.HandleFunc("/history", handler.HandleHistory).Methods("GET")

	return r
}
