// Package events delivers committed domain events to a message broker and
// consumes payment outcomes published by the payment side.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

const (
	DriverNone  = "none"
	DriverKafka = "kafka"
	DriverNats  = "nats"
	DriverAmqp  = "amqp"
)

type Config struct {
	Driver string

	Brokers []string
	Topic   string

	NatsURL       string
	SubjectPrefix string

	AmqpURL  string
	Exchange string
}

// NewPublisher connects the sink selected by cfg.Driver. An empty driver
// disables publishing.
func NewPublisher(cfg Config, logger *slog.Logger) (domain.EventPublisher, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverNone:
		return NoopPublisher{}, nil
	case DriverKafka:
		if len(cfg.Brokers) == 0 {
			return nil, fmt.Errorf("kafka publisher: no brokers configured")
		}
		return NewKafkaPublisher(cfg.Brokers, cfg.Topic), nil
	case DriverNats:
		return DialNatsPublisher(cfg.NatsURL, cfg.SubjectPrefix, logger)
	case DriverAmqp:
		return DialAmqpPublisher(cfg.AmqpURL, cfg.Exchange)
	}

	return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, domain.Event) error { return nil }
func (NoopPublisher) Close() error                                { return nil }

func encode(event domain.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	return data, nil
}
