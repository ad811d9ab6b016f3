// Package api provides the HTTP API for RoadSignal.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/roadsignal/roadsignal/internal/alert"
	"github.com/roadsignal/roadsignal/internal/analytics"
	"github.com/roadsignal/roadsignal/internal/api/handler"
	"github.com/roadsignal/roadsignal/internal/api/middleware"
	"github.com/roadsignal/roadsignal/internal/auth"
	"github.com/roadsignal/roadsignal/internal/device"
	"github.com/roadsignal/roadsignal/internal/hazard"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version          string
	BuildTime        string
	Logger           zerolog.Logger
	ServiceName      string
	Metrics          *middleware.Metrics
	TokenService     *auth.TokenService
	DeviceService    *device.Service
	HazardService    *hazard.Service
	AlertService     *alert.Service
	AnalyticsService *analytics.Service
	DB               handler.Pinger
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "roadsignal-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.DB)
	deviceHandler := handler.NewDeviceHandler(cfg.DeviceService, cfg.TokenService)
	hazardHandler := handler.NewHazardHandler(cfg.HazardService)
	alertHandler := handler.NewAlertHandler(cfg.AlertService)
	analyticsHandler := handler.NewAnalyticsHandler(cfg.AnalyticsService)

	// Create auth middleware for destructive endpoints
	deviceAuth := middleware.DeviceAuth(cfg.TokenService)

	// Create rate limit middleware for different endpoint categories
	registerRateLimit := middleware.RateLimitByIP(middleware.RegisterRateLimit) // 10 req/min
	ingestRateLimit := middleware.RateLimitByIP(middleware.IngestRateLimit)     // 300 req/min
	queryRateLimit := middleware.RateLimitByIP(middleware.QueryRateLimit)       // 60 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	// Authenticated destructive endpoints rate-limit per device so a NATed
	// fleet does not share one bucket.
	deleteRateLimit := middleware.RateLimitByDevice(middleware.StandardRateLimit)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		// Device registry
		r.Route("/devices", func(r chi.Router) {
			r.With(registerRateLimit).Post("/register", deviceHandler.RegisterDevice)
			r.Route("/{deviceId}", func(r chi.Router) {
				r.With(standardRateLimit).Get("/", deviceHandler.GetDevice)
				r.With(ingestRateLimit).Post("/heartbeat", deviceHandler.Heartbeat)
				r.With(standardRateLimit).Get("/config", deviceHandler.GetConfig)
			})
		})

		// Hazard store - ingest gets the generous budget, queries the
		// stricter one
		r.Route("/hazards", func(r chi.Router) {
			r.With(ingestRateLimit).Post("/", hazardHandler.CreateHazard)
			r.With(queryRateLimit).Get("/", hazardHandler.ListHazards)
			r.With(queryRateLimit).Get("/nearby", hazardHandler.NearbyHazards)
			r.Route("/{hazardId}", func(r chi.Router) {
				r.With(standardRateLimit).Get("/", hazardHandler.GetHazard)
				r.With(deviceAuth, deleteRateLimit).Delete("/", hazardHandler.DeleteHazard)
			})
		})

		// Alert lifecycle
		r.Route("/alerts", func(r chi.Router) {
			r.With(ingestRateLimit).Post("/", alertHandler.CreateAlert)
			r.With(standardRateLimit).Get("/device/{deviceId}", alertHandler.ListDeviceAlerts)
			r.Route("/{alertId}", func(r chi.Router) {
				r.With(ingestRateLimit).Post("/acknowledge", alertHandler.AcknowledgeAlert)
				r.With(deviceAuth, deleteRateLimit).Delete("/", alertHandler.DeleteAlert)
			})
		})

		// Analytics (aggregate queries)
		r.Route("/analytics", func(r chi.Router) {
			r.Use(queryRateLimit)
			r.Get("/summary", analyticsHandler.Summary)
			r.Get("/trends", analyticsHandler.Trends)
			r.Get("/heatmap", analyticsHandler.Heatmap)
		})
	})

	return r
}
