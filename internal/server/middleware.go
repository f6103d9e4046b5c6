package server

import (
	"net/http"
	"time"
)

// WithRateLimiter sets a custom rate limiter for the server. Tests use this
// to widen or tighten the limit.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) {
		s.rateLimiter = rl
	}
}

// WithSecurityConfig sets a custom security configuration for the server.
func WithSecurityConfig(config SecurityConfig) Option {
	return func(s *Server) {
		s.securityConfig = config
	}
}

// loggingMiddleware logs one line per request with the method, path, client
// address, and processing time.
func (s *Server) loggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		s.logger.Printf("%s %s from %s completed in %v", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start))
	}
}
