package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/segmentio/kafka-go"
)

// PaymentOutcomeMessage is the payload expected on the payment outcome topic.
type PaymentOutcomeMessage struct {
	EventID   string    `json:"eventId"`
	BookingID uuid.UUID `json:"bookingId"`
	Outcome   string    `json:"outcome"`
}

type Reconciler interface {
	ReconcilePayment(ctx context.Context, bookingID uuid.UUID, outcome domain.PaymentOutcome) (*domain.Booking, error)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PaymentOutcomeConsumer commits an offset only after the outcome has been
// applied, so a crash redelivers the message. Reconciliation is idempotent.
type PaymentOutcomeConsumer struct {
	reader     messageReader
	reconciler Reconciler
	logger     *slog.Logger
}

func NewPaymentOutcomeConsumer(
	brokers []string,
	groupID, topic string,
	reconciler Reconciler,
	logger *slog.Logger) *PaymentOutcomeConsumer {

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		Topic:             topic,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	})

	return newPaymentOutcomeConsumer(reader, reconciler, logger)
}

func newPaymentOutcomeConsumer(
	reader messageReader,
	reconciler Reconciler,
	logger *slog.Logger) *PaymentOutcomeConsumer {

	return &PaymentOutcomeConsumer{
		reader:     reader,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Run consumes until ctx is done or an outcome cannot be applied for a reason
// other than the message itself.
func (c *PaymentOutcomeConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		err = c.handle(ctx, msg)
		if err != nil {
			return err
		}

		err = c.reader.CommitMessages(ctx, msg)
		if err != nil {
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}

func (c *PaymentOutcomeConsumer) handle(ctx context.Context, msg kafka.Message) error {
	logger := c.logger.With("partition", msg.Partition, "offset", msg.Offset)

	var payload PaymentOutcomeMessage

	err := json.Unmarshal(msg.Value, &payload)
	if err != nil {
		logger.Error("skipping malformed payment outcome", "error", err)
		return nil
	}

	outcome, err := domain.ParsePaymentOutcome(payload.Outcome)
	if err != nil {
		logger.Error("skipping payment outcome", "booking_id", payload.BookingID, "error", err)
		return nil
	}

	booking, err := c.reconciler.ReconcilePayment(ctx, payload.BookingID, outcome)
	switch {
	case err == nil:
		logger.Info("payment outcome applied",
			"event_id", payload.EventID,
			"booking_id", booking.ID,
			"outcome", outcome,
			"status", booking.Status,
			"payment_status", booking.PaymentStatus,
		)
		return nil
	case errors.Is(err, domain.ErrRecordNotFound), errors.Is(err, domain.ErrPaymentStateConflict):
		logger.Warn("dropping payment outcome",
			"event_id", payload.EventID,
			"booking_id", payload.BookingID,
			"outcome", outcome,
			"error", err,
		)
		return nil
	}

	return fmt.Errorf("reconcile booking %s: %w", payload.BookingID, err)
}

func (c *PaymentOutcomeConsumer) Close() error {
	return c.reader.Close()
}
