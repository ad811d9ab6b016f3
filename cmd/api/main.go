// Package main provides the entrypoint for the RoadSignal API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadsignal/roadsignal/internal/alert"
	"github.com/roadsignal/roadsignal/internal/analytics"
	"github.com/roadsignal/roadsignal/internal/api"
	"github.com/roadsignal/roadsignal/internal/api/middleware"
	"github.com/roadsignal/roadsignal/internal/auth"
	"github.com/roadsignal/roadsignal/internal/database"
	"github.com/roadsignal/roadsignal/internal/device"
	"github.com/roadsignal/roadsignal/internal/hazard"
	"github.com/roadsignal/roadsignal/internal/notifier"
	"github.com/roadsignal/roadsignal/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "roadsignal-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting RoadSignal API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Initialize device token service (get signing key from environment)
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	tokenService := auth.NewTokenService(auth.TokenConfig{
		SigningKey: jwtSigningKey,
		Issuer:     "https://api.roadsignal.dev",
		Audience:   "roadsignal-api",
	})

	// Initialize alert transport and notifier
	publisher, closePublisher := buildPublisher(ctx, log)
	defer closePublisher()

	notifierMetrics, err := notifier.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize notifier metrics")
	}

	notifierService := notifier.NewService(notifier.ServiceConfig{
		Publisher: publisher,
		Logger:    log,
		Metrics:   notifierMetrics,
	})

	// Initialize domain services
	deviceService := device.NewService(device.NewPostgresRepository(pool))
	log.Info().Msg("device service initialized")

	alertService := alert.NewService(alert.NewPostgresRepository(pool), deviceService)
	log.Info().Msg("alert service initialized")

	hazardRepo := hazard.NewPostgresRepository(pool)
	hazardService := hazard.NewService(hazard.ServiceConfig{
		Repository: hazardRepo,
		Devices:    deviceService,
		Notifier:   notifierService,
		Alerts:     alertService,
		Logger:     log,
	})
	log.Info().Msg("hazard service initialized")

	analyticsService := analytics.NewService(analytics.ServiceConfig{
		Hazards:      hazardRepo,
		Alerts:       alert.NewPostgresRepository(pool),
		Verification: analytics.NewPostgresVerificationSource(pool),
	})
	log.Info().Msg("analytics service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:          Version,
		BuildTime:        BuildTime,
		Logger:           log,
		ServiceName:      serviceName,
		Metrics:          metrics,
		TokenService:     tokenService,
		DeviceService:    deviceService,
		HazardService:    hazardService,
		AlertService:     alertService,
		AnalyticsService: analyticsService,
		DB:               pool,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// buildPublisher selects the alert transport. The default is MQTT; set
// NOTIFIER_TRANSPORT=pubsub to publish via Google Cloud Pub/Sub instead.
// A broker that is down at startup is not fatal: the MQTT client keeps
// reconnecting and alerts are dropped until it succeeds.
func buildPublisher(ctx context.Context, log zerolog.Logger) (notifier.Publisher, func()) {
	if os.Getenv("NOTIFIER_TRANSPORT") == "pubsub" {
		projectID := os.Getenv("PUBSUB_PROJECT_ID")
		pub, err := notifier.NewPubSubPublisher(ctx, notifier.PubSubConfig{
			ProjectID: projectID,
			Logger:    log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub publisher")
		}
		log.Info().Str("project", projectID).Msg("pubsub alert transport initialized")
		return pub, func() {
			if err := pub.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close pubsub publisher")
			}
		}
	}

	brokerURL := os.Getenv("MQTT_BROKER_URL")
	if brokerURL == "" {
		brokerURL = "tcp://localhost:1883"
	}

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" {
		clientID = "roadsignal-api"
	}

	pub := notifier.NewMQTTPublisher(notifier.MQTTConfig{
		BrokerURL: brokerURL,
		ClientID:  clientID,
		Username:  os.Getenv("MQTT_USERNAME"),
		Password:  os.Getenv("MQTT_PASSWORD"),
	}, log)

	if err := pub.Connect(); err != nil {
		log.Warn().Err(err).Str("broker", brokerURL).
			Msg("mqtt broker unreachable, alerts dropped until reconnect")
	} else {
		log.Info().Str("broker", brokerURL).Msg("mqtt alert transport initialized")
	}

	return pub, pub.Close
}
