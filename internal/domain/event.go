package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSeatsLocked           EventType = "seats.locked"
	EventSeatsReleased         EventType = "seats.released"
	EventBookingCreated        EventType = "booking.created"
	EventBookingConfirmed      EventType = "booking.confirmed"
	EventBookingPaymentFailed  EventType = "booking.payment_failed"
	EventBookingCancelled      EventType = "booking.cancelled"
	EventBookingRefunded       EventType = "booking.refunded"
	EventBookingRefundRequired EventType = "booking.refund_required"
	EventLocksSwept            EventType = "locks.swept"
)

// Event is published after the transaction that caused it has committed.
type Event struct {
	ID         uuid.UUID  `json:"id"`
	Type       EventType  `json:"type"`
	ShowID     *uuid.UUID `json:"showId,omitempty"`
	BookingID  *uuid.UUID `json:"bookingId,omitempty"`
	SessionID  string     `json:"sessionId,omitempty"`
	Seats      []SeatID   `json:"seats,omitempty"`
	Count      int64      `json:"count,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// Key groups events of the same show (or booking) on ordered transports.
func (e Event) Key() string {
	switch {
	case e.ShowID != nil:
		return e.ShowID.String()
	case e.BookingID != nil:
		return e.BookingID.String()
	default:
		return string(e.Type)
	}
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
