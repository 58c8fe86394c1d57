// Package bus wraps the shared publish/subscribe bus. Every process
// publishes mutations here and every process's fan-out subscribes, which is
// what decouples "who mutated state" from "who must be notified".
package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Config holds connection settings for the bus.
type Config struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Connect establishes the bus connection with reconnect handling.
func Connect(cfg Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("bus disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("bus reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("bus error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to bus: %w", err)
	}
	return nc, nil
}

// Publisher publishes JSON payloads on named channels.
type Publisher struct {
	nc *nats.Conn
}

// NewPublisher creates a publisher over an established connection.
func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

// Publish marshals v and publishes it on the channel.
func (p *Publisher) Publish(channel string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", channel, err)
	}
	if err := p.nc.Publish(channel, data); err != nil {
		return fmt.Errorf("publish on %s: %w", channel, err)
	}
	return nil
}

// Subscriber attaches handlers to named channels and tracks the
// subscriptions for teardown.
type Subscriber struct {
	nc   *nats.Conn
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber over an established connection.
func NewSubscriber(nc *nats.Conn) *Subscriber {
	return &Subscriber{nc: nc}
}

// Subscribe attaches handler to the channel. Handlers run on the bus
// client's delivery goroutine and must not block.
func (s *Subscriber) Subscribe(channel string, handler func(data []byte)) error {
	sub, err := s.nc.Subscribe(channel, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", channel, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes every channel this subscriber attached to.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Error().Err(err).Str("channel", sub.Subject).Msg("unsubscribe failed")
		}
	}
	s.subs = nil
}
