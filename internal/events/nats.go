package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/nats-io/nats.go"
)

const defaultSubjectPrefix = "seats.events"

type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NatsPublisher publishes each event on <prefix>.<event type>, e.g.
// seats.events.booking.confirmed.
type NatsPublisher struct {
	conn   natsConn
	prefix string
}

func DialNatsPublisher(url, prefix string, logger *slog.Logger) (*NatsPublisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}

	conn, err := nats.Connect(url,
		nats.Name("seat-reservation-engine"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return newNatsPublisher(conn, prefix), nil
}

func newNatsPublisher(conn natsConn, prefix string) *NatsPublisher {
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}

	return &NatsPublisher{conn: conn, prefix: prefix}
}

func (p *NatsPublisher) Publish(_ context.Context, event domain.Event) error {
	data, err := encode(event)
	if err != nil {
		return err
	}

	subject := p.prefix + "." + string(event.Type)

	err = p.conn.Publish(subject, data)
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	return nil
}

// Close flushes pending messages before disconnecting.
func (p *NatsPublisher) Close() error {
	return p.conn.Drain()
}
