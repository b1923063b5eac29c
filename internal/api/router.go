package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/autoinvest/backend/internal/api/auth"
	"github.com/wonny/autoinvest/backend/internal/api/handlers"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// Handlers groups every route handler
type Handlers struct {
	Auth          *handlers.AuthHandler
	Run           *handlers.RunHandler
	Config        *handlers.ConfigHandler
	Watchlist     *handlers.WatchlistHandler
	Logs          *handlers.LogsHandler
	Portfolio     *handlers.PortfolioHandler
	Notifications *handlers.NotificationHandler
	Events        http.Handler // websocket hub
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, issuer *auth.Issuer, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Token exchange stays outside the auth wall
	r.HandleFunc("/api/auth/token", h.Auth.Token).Methods("POST")

	// API v1
	api := r.PathPrefix("/api").Subrouter()
	api.Use(issuer.Middleware)

	// Runs
	api.HandleFunc("/status", h.Run.Status).Methods("GET")
	api.HandleFunc("/run", h.Run.Trigger).Methods("POST")

	// Config
	api.HandleFunc("/config", h.Config.Get).Methods("GET")
	api.HandleFunc("/config", h.Config.Put).Methods("PUT")

	// Watchlist
	api.HandleFunc("/watchlist", h.Watchlist.List).Methods("GET")
	api.HandleFunc("/watchlist", h.Watchlist.Create).Methods("POST")
	api.HandleFunc("/watchlist/{symbol}", h.Watchlist.Get).Methods("GET")
	api.HandleFunc("/watchlist/{symbol}", h.Watchlist.Update).Methods("PUT")
	api.HandleFunc("/watchlist/{symbol}", h.Watchlist.Delete).Methods("DELETE")

	// Audit trail
	api.HandleFunc("/logs", h.Logs.Analysis).Methods("GET")
	api.HandleFunc("/market-state-logs", h.Logs.MarketState).Methods("GET")
	api.HandleFunc("/runs", h.Logs.Runs).Methods("GET")

	// Portfolio & reservations
	api.HandleFunc("/portfolio", h.Portfolio.Portfolio).Methods("GET")
	api.HandleFunc("/reservations", h.Portfolio.Reservations).Methods("GET")
	api.HandleFunc("/reservations/{symbol}", h.Portfolio.CancelReservation).Methods("DELETE")

	// Notifications
	api.HandleFunc("/notifications/test", h.Notifications.Test).Methods("POST")

	// Live events
	if h.Events != nil {
		r.Handle("/ws/events", issuer.Middleware(h.Events)).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "autoinvest-api",
	})
}

// statusRecorder captures the response code for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the hijacker for websocket upgrades
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// websocket upgrades need the raw writer for Hijack
			if r.URL.Path == "/ws/events" {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
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
