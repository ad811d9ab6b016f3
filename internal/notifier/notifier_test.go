package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu        sync.Mutex
	connected bool
	err       error
	topics    []string
	payloads  [][]byte
	qos       []byte
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload []byte, qos byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	f.qos = append(f.qos, qos)
	return nil
}

func (f *fakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakePublisher) published() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.topics)
}

func newTestService(pub Publisher) *Service {
	return NewService(ServiceConfig{
		Publisher: pub,
		Logger:    zerolog.Nop(),
	})
}

func TestServicePublish(t *testing.T) {
	t.Run("publishes alert payload to type topic", func(t *testing.T) {
		pub := &fakePublisher{connected: true}
		svc := newTestService(pub)

		ts := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
		ok := svc.Publish(context.Background(), "hz_123", "pothole", 12.9716, 77.5946, ts)

		require.True(t, ok)
		require.Equal(t, 1, pub.published())
		assert.Equal(t, "alerts/pothole", pub.topics[0])
		assert.Equal(t, QoSAtLeastOnce, pub.qos[0])

		var alert HazardAlert
		require.NoError(t, json.Unmarshal(pub.payloads[0], &alert))
		assert.Equal(t, "hz_123", alert.HazardID)
		assert.Equal(t, "pothole", alert.HazardType)
		assert.Equal(t, 12.9716, alert.Latitude)
		assert.Equal(t, 77.5946, alert.Longitude)
		assert.Equal(t, "2025-06-01T12:30:00Z", alert.Timestamp)
	})

	t.Run("drops alert when transport disconnected", func(t *testing.T) {
		pub := &fakePublisher{connected: false}
		svc := newTestService(pub)

		ok := svc.Publish(context.Background(), "hz_123", "pothole", 1, 2, time.Now())

		assert.False(t, ok)
		assert.Equal(t, 0, pub.published())
	})

	t.Run("swallows transport errors", func(t *testing.T) {
		pub := &fakePublisher{connected: true, err: errors.New("broker down")}
		svc := newTestService(pub)

		ok := svc.Publish(context.Background(), "hz_123", "ice", 1, 2, time.Now())

		assert.False(t, ok)
	})

	t.Run("breaker opens after repeated failures", func(t *testing.T) {
		pub := &fakePublisher{connected: true, err: errors.New("broker down")}
		svc := newTestService(pub)

		for i := 0; i < 10; i++ {
			svc.Publish(context.Background(), "hz_123", "ice", 1, 2, time.Now())
		}

		// Once the breaker is open the publisher is no longer called, but
		// the result to the caller is the same: logged and swallowed.
		ok := svc.Publish(context.Background(), "hz_123", "ice", 1, 2, time.Now())
		assert.False(t, ok)
	})
}

func TestServiceHazardCreated(t *testing.T) {
	t.Run("publishes asynchronously", func(t *testing.T) {
		pub := &fakePublisher{connected: true}
		svc := newTestService(pub)

		svc.HazardCreated("hz_async", "flood", 10, 20, time.Now())

		require.Eventually(t, func() bool {
			return pub.published() == 1
		}, time.Second, 10*time.Millisecond)
		assert.Equal(t, "alerts/flood", pub.topics[0])
	})

	t.Run("returns immediately when transport is down", func(t *testing.T) {
		pub := &fakePublisher{connected: false}
		svc := newTestService(pub)

		done := make(chan struct{})
		go func() {
			svc.HazardCreated("hz_down", "pothole", 10, 20, time.Now())
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("HazardCreated blocked on a disconnected transport")
		}
	})
}
