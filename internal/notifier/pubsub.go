package notifier

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubConfig holds configuration for the Pub/Sub transport.
type PubSubConfig struct {
	ProjectID string
	Logger    zerolog.Logger
}

// PubSubPublisher publishes hazard alerts to Google Cloud Pub/Sub. MQTT
// topic paths map onto Pub/Sub topic ids by replacing "/" with ".", so
// alerts/pothole publishes to the topic "alerts.pothole".
type PubSubPublisher struct {
	client *pubsub.Client
	logger zerolog.Logger

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewPubSubPublisher creates a Pub/Sub-backed publisher.
func NewPubSubPublisher(ctx context.Context, cfg PubSubConfig) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubPublisher{
		client:     client,
		logger:     cfg.Logger,
		publishers: make(map[string]*pubsub.Publisher),
	}, nil
}

// Publish sends payload to the topic and waits for the server's ack.
// The qos argument is accepted for Publisher compatibility; Pub/Sub is
// always at-least-once.
func (p *PubSubPublisher) Publish(ctx context.Context, topic string, payload []byte, _ byte) error {
	result := p.publisherFor(topic).Publish(ctx, &pubsub.Message{Data: payload})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// IsConnected reports whether the client is usable. The Pub/Sub client
// manages its own connections, so this is true until Close.
func (p *PubSubPublisher) IsConnected() bool {
	return p.client != nil
}

// Close stops all topic publishers and releases the client.
func (p *PubSubPublisher) Close() error {
	p.mu.Lock()
	for _, pub := range p.publishers {
		pub.Stop()
	}
	p.publishers = nil
	p.mu.Unlock()

	return p.client.Close()
}

func (p *PubSubPublisher) publisherFor(topic string) *pubsub.Publisher {
	id := strings.ReplaceAll(topic, "/", ".")

	p.mu.Lock()
	defer p.mu.Unlock()

	if pub, ok := p.publishers[id]; ok {
		return pub
	}

	pub := p.client.Publisher(id)
	p.publishers[id] = pub
	p.logger.Debug().Str("topic", id).Msg("created pubsub topic publisher")
	return pub
}
