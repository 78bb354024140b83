// Package http exposes the trip collection as a JSON API. Handlers stay
// thin: decode, call the service, encode; all domain rules live below.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tripledger/internal/services"
)

type Server struct {
	http.Server
	svc         *services.TripService
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc *services.TripService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:         svc,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/profile", s.wrap(s.handleGetProfile))
	mux.HandleFunc("PUT /api/profile", s.wrap(s.handleUpdateProfile))

	mux.HandleFunc("GET /api/trips", s.wrap(s.handleListTrips))
	mux.HandleFunc("POST /api/trips", s.wrap(s.handleCreateTrip))
	mux.HandleFunc("GET /api/trips/{id}", s.wrap(s.handleGetTrip))
	mux.HandleFunc("PUT /api/trips/{id}", s.wrap(s.handleUpdateTrip))
	mux.HandleFunc("DELETE /api/trips/{id}", s.wrap(s.handleDeleteTrip))
	mux.HandleFunc("GET /api/trips/{id}/dates", s.wrap(s.handleTripDates))

	mux.HandleFunc("POST /api/trips/{id}/members", s.wrap(s.handleAddMember))

	mux.HandleFunc("POST /api/trips/{id}/activities", s.wrap(s.handleAddActivity))
	mux.HandleFunc("PUT /api/trips/{id}/activities/{aid}", s.wrap(s.handleEditActivity))
	mux.HandleFunc("DELETE /api/trips/{id}/activities/{aid}", s.wrap(s.handleDeleteActivity))
	mux.HandleFunc("PUT /api/trips/{id}/activities:reorder", s.wrap(s.handleReorderActivities))

	mux.HandleFunc("POST /api/trips/{id}/expenses", s.wrap(s.handleAddExpense))
	mux.HandleFunc("PUT /api/trips/{id}/expenses/{eid}", s.wrap(s.handleEditExpense))
	mux.HandleFunc("DELETE /api/trips/{id}/expenses/{eid}", s.wrap(s.handleDeleteExpense))
	mux.HandleFunc("GET /api/trips/{id}/expenses/grouped", s.wrap(s.handleGroupedExpenses))
	mux.HandleFunc("GET /api/trips/{id}/expenses/stats", s.wrap(s.handleExpenseStats))
	mux.HandleFunc("GET /api/trips/{id}/settlement", s.wrap(s.handleSettlement))

	mux.HandleFunc("POST /api/trips/{id}/todos", s.wrap(s.handleAddTodo))
	mux.HandleFunc("POST /api/trips/{id}/todos/{tid}/toggle", s.wrap(s.handleToggleTodo))
	mux.HandleFunc("DELETE /api/trips/{id}/todos/{tid}", s.wrap(s.handleDeleteTodo))

	mux.HandleFunc("GET /api/trips/{id}/weather", s.wrap(s.handleWeather))

	return s
}

// Shutdown stops the rate limiter cleanup goroutine and drains the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// wrap adds security headers, rate limiting and request logging.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
