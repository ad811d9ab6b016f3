package notifier

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTTConfig holds connection settings for the MQTT transport.
type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// KeepAlive and ConnectTimeout are in seconds; zero picks the
	// defaults below.
	KeepAlive      int
	ConnectTimeout int
}

const (
	defaultKeepAlive      = 30
	defaultConnectTimeout = 10
	disconnectQuiesceMS   = 250
)

// MQTTPublisher publishes hazard alerts over MQTT. It satisfies
// Publisher and reconnects automatically after broker outages.
type MQTTPublisher struct {
	client mqtt.Client
	logger zerolog.Logger
}

// NewMQTTPublisher builds an MQTT publisher; Connect must be called
// before the first publish.
func NewMQTTPublisher(cfg MQTTConfig, logger zerolog.Logger) *MQTTPublisher {
	keepAlive := cfg.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(time.Duration(keepAlive) * time.Second)
	opts.SetConnectTimeout(time.Duration(connectTimeout) * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info().Str("broker", cfg.BrokerURL).Msg("mqtt connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("mqtt connection lost")
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		logger.Info().Msg("mqtt reconnecting")
	})

	return &MQTTPublisher{
		client: mqtt.NewClient(opts),
		logger: logger,
	}
}

// Connect establishes the broker connection.
func (p *MQTTPublisher) Connect() error {
	token := p.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to mqtt broker: %w", err)
	}
	return nil
}

// Publish sends payload to topic, honoring ctx cancellation while the
// broker acknowledges the delivery.
func (p *MQTTPublisher) Publish(ctx context.Context, topic string, payload []byte, qos byte) error {
	token := p.client.Publish(topic, qos, false, payload)

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish to %s: %w", topic, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", topic, ctx.Err())
	}
}

// IsConnected reports whether the client currently has a broker
// connection.
func (p *MQTTPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close flushes in-flight messages and disconnects.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(disconnectQuiesceMS)
	p.logger.Info().Msg("mqtt disconnected")
}
