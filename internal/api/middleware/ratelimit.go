package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/roadsignal/roadsignal/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Requests per window
	RequestLimit int
	// Window duration
	WindowLength time.Duration
}

// Default rate limit configurations.
var (
	// RegisterRateLimit applies to device registration (10 req/min).
	RegisterRateLimit = RateLimitConfig{
		RequestLimit: 10,
		WindowLength: time.Minute,
	}

	// IngestRateLimit applies to hazard report and heartbeat endpoints.
	// Detection hardware reports every few seconds, so this is generous
	// (300 req/min).
	IngestRateLimit = RateLimitConfig{
		RequestLimit: 300,
		WindowLength: time.Minute,
	}

	// QueryRateLimit applies to geospatial and analytics queries (60 req/min).
	QueryRateLimit = RateLimitConfig{
		RequestLimit: 60,
		WindowLength: time.Minute,
	}

	// StandardRateLimit applies to standard endpoints (100 req/min).
	StandardRateLimit = RateLimitConfig{
		RequestLimit: 100,
		WindowLength: time.Minute,
	}
)

// RateLimitByIP creates a rate limiter middleware using client IP address.
// Uses X-Forwarded-For header if present (extracted by chi's RealIP middleware).
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceededHandler),
	)
}

// RateLimitByDevice creates a rate limiter middleware using the
// authenticated device ID. Falls back to IP-based rate limiting for
// unauthenticated requests.
func RateLimitByDevice(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(keyByDeviceOrIP),
		httprate.WithLimitHandler(rateLimitExceededHandler),
	)
}

// keyByDeviceOrIP returns the device ID if authenticated, otherwise the client IP.
func keyByDeviceOrIP(r *http.Request) (string, error) {
	// Try to get device ID from context (set by auth middleware)
	if deviceID := GetDeviceID(r.Context()); deviceID != "" {
		return "device:" + deviceID, nil
	}

	// Fall back to IP-based rate limiting
	return httprate.KeyByRealIP(r)
}

// rateLimitExceededHandler writes an RFC7807 Problem response when rate limit is exceeded.
func rateLimitExceededHandler(w http.ResponseWriter, r *http.Request) {
	traceID := GetRequestID(r.Context())

	problem := models.NewTooManyRequests(traceID, "Rate limit exceeded. Please try again later.")
	problem.Instance = r.URL.Path

	// Add Retry-After header (estimate based on window)
	// httprate doesn't expose exact reset time, so we use a conservative estimate
	w.Header().Set("Retry-After", strconv.Itoa(60)) // 60 seconds

	problem.Write(w)
}
