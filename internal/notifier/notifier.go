// Package notifier relays newly created hazards to an external
// publish/subscribe transport. Delivery is best effort: publishes run
// off the hazard write path and transport failures are logged, never
// surfaced to the caller that created the hazard.
package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// QoSAtLeastOnce is the quality-of-service level used for hazard
// notifications: delivered at least once while the transport is
// connected, lost when it is not.
const QoSAtLeastOnce byte = 1

// topicPrefix is the logical partition prefix; the full topic is
// alerts/<hazard_type>.
const topicPrefix = "alerts/"

// DefaultPublishTimeout bounds a single publish attempt so hazard
// creation latency stays insensitive to a slow broker.
const DefaultPublishTimeout = 5 * time.Second

// Publisher is the transport capability the notifier is handed at
// startup. Connect/disconnect lifecycle belongs to the host process.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, qos byte) error
	IsConnected() bool
}

// HazardAlert is the flat payload published for each new hazard.
type HazardAlert struct {
	HazardID   string  `json:"hazard_id"`
	HazardType string  `json:"hazard_type"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Timestamp  string  `json:"timestamp"` // ISO-8601
}

// Service publishes hazard alerts through a Publisher. A circuit breaker
// stops publish attempts against a transport that keeps failing so the
// timeout budget is not burned on every hazard.
type Service struct {
	publisher Publisher
	breaker   *gobreaker.CircuitBreaker[struct{}]
	logger    zerolog.Logger
	metrics   *Metrics
	timeout   time.Duration
}

// ServiceConfig holds configuration for the notifier service.
type ServiceConfig struct {
	Publisher Publisher
	Logger    zerolog.Logger

	// Metrics is optional; nil disables delivery metrics.
	Metrics *Metrics

	// PublishTimeout bounds each publish attempt. Zero means
	// DefaultPublishTimeout.
	PublishTimeout time.Duration
}

// NewService creates a new notifier service.
func NewService(cfg ServiceConfig) *Service {
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}

	logger := cfg.Logger

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "notifier",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("notifier circuit breaker state change")
		},
	})

	return &Service{
		publisher: cfg.Publisher,
		breaker:   breaker,
		logger:    logger,
		metrics:   cfg.Metrics,
		timeout:   timeout,
	}
}

// HazardCreated relays a newly created hazard off the caller's critical
// path. It returns immediately; the publish runs in its own goroutine
// with a bounded timeout.
func (s *Service) HazardCreated(id, hazardType string, lat, lon float64, ts time.Time) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.Publish(ctx, id, hazardType, lat, lon, ts)
	}()
}

// Publish sends one hazard alert to the transport. It reports whether
// the message was handed off; every failure mode is logged and swallowed.
func (s *Service) Publish(ctx context.Context, id, hazardType string, lat, lon float64, ts time.Time) bool {
	if !s.publisher.IsConnected() {
		s.logger.Warn().
			Str("hazard_id", id).
			Msg("transport not connected, hazard alert dropped")
		s.recordDropped("disconnected")
		return false
	}

	payload, err := json.Marshal(HazardAlert{
		HazardID:   id,
		HazardType: hazardType,
		Latitude:   lat,
		Longitude:  lon,
		Timestamp:  ts.UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("hazard_id", id).Msg("failed to encode hazard alert")
		s.recordDropped("encode")
		return false
	}

	topic := topicPrefix + hazardType

	start := time.Now()
	_, err = s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.publisher.Publish(ctx, topic, payload, QoSAtLeastOnce)
	})
	if s.metrics != nil {
		s.metrics.RecordPublish(topic, time.Since(start), err)
	}
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("hazard_id", id).
			Str("topic", topic).
			Msg("failed to publish hazard alert")
		return false
	}

	s.logger.Info().
		Str("hazard_id", id).
		Str("topic", topic).
		Msg("hazard alert published")
	return true
}

// IsConnected reports the transport's connection state.
func (s *Service) IsConnected() bool {
	return s.publisher.IsConnected()
}

func (s *Service) recordDropped(reason string) {
	if s.metrics != nil {
		s.metrics.RecordDropped(reason)
	}
}

