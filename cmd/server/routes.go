package main

import (
	"net/http"
	"strings"
	"time"
)

// setupRoutes registers all HTTP routes and middleware
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.config.MetricsEnabled {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("GET /api/references", s.handleListReferences)
	mux.HandleFunc("POST /api/references", s.handleAddReference)
	mux.HandleFunc("POST /api/references/youtube", s.handleAddYouTubeReference)
	mux.HandleFunc("GET /api/references/{id}", s.handleGetReference)
	mux.HandleFunc("DELETE /api/references/{id}", s.handleDeleteReference)
	mux.HandleFunc("POST /api/references/{id}/evaluate", s.handleEvaluate)
	mux.HandleFunc("POST /api/references/{id}/evaluate/track", s.handleEvaluateTrack)
	mux.HandleFunc("GET /api/references/{id}/attempts", s.handleListAttempts)

	mux.HandleFunc("POST /api/compare", s.handleCompare)

	return corsMiddleware(s.config.Origins())(s.loggingMiddleware(mux))
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				allowed = true
			} else {
				for _, allowedOrigin := range allowedOrigins {
					if allowedOrigin == origin {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						w.Header().Add("Vary", "Origin")
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// loggingMiddleware logs every request and records its latency. The
// endpoint label is the matched route pattern, so IDs do not explode
// metric cardinality.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		} else if i := strings.IndexByte(endpoint, ' '); i >= 0 {
			endpoint = endpoint[i+1:]
		}
		elapsed := time.Since(start)
		s.metrics.ObserveHTTPRequest(endpoint, r.Method, wrapped.statusCode, elapsed)
		s.log.Infof("%s %s from %s -> %d (%v)", r.Method, r.URL.Path, getClientIP(r), wrapped.statusCode, elapsed.Round(time.Millisecond))
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Infof("FretCoach server starting on %s", s.config.Addr)
	s.log.Infof("   Database:  %s", s.config.DBPath)
	s.log.Infof("   Estimator: %s (%.2f-%.2f Hz)", s.config.Estimator, s.config.MinHz, s.config.MaxHz)
	s.log.Infof("   CORS:      %v", s.config.Origins())

	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
