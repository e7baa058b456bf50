// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"postdeck/internal/metrics"
)

// channelPrefix namespaces postdeck channels on a shared Valkey.
const channelPrefix = "postdeck:"

// Publisher sends events to every subscriber of their topic.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Broker publishes and subscribes to events over Valkey pub/sub.
type Broker struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

// NewBroker creates a Broker on client. m may be nil.
func NewBroker(client *redis.Client, m *metrics.Metrics) *Broker {
	return &Broker{client: client, metrics: m}
}

// Channel returns the Valkey channel of a topic.
func Channel(topic string) string {
	return channelPrefix + topic
}

// Publish sends ev on its topic channel.
func (b *Broker) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.client.Publish(ctx, Channel(ev.Topic), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	if b.metrics != nil {
		b.metrics.EventsPublished.WithLabelValues(string(ev.Type)).Inc()
	}
	return nil
}

// Subscribe opens a pattern subscription on every postdeck channel.
func (b *Broker) Subscribe(ctx context.Context) *redis.PubSub {
	return b.client.PSubscribe(ctx, channelPrefix+"*")
}

// Notify publishes ev and logs instead of failing. Realtime delivery is
// best-effort; the database stays the source of truth.
func Notify(ctx context.Context, p Publisher, ev Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		slog.Warn("realtime publish failed", "type", ev.Type, "topic", ev.Topic, "error", err)
	}
}
