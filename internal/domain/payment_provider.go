package domain

import (
	"errors"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
)

var ErrInvalidWebhook = errors.New("webhook payload could not be verified")

// PaymentEvent is a provider notification already mapped onto a booking.
type PaymentEvent struct {
	ID        string
	BookingID uuid.UUID
	Outcome   PaymentOutcome
	Reference string
}

type PaymentProvider interface {
	CreateCheckoutSession(booking *Booking) (*stripe.CheckoutSession, error)
	// ParseWebhookEvent verifies and decodes a provider notification. It
	// returns nil, nil for notifications that carry no payment outcome.
	ParseWebhookEvent(payload []byte, signature string) (*PaymentEvent, error)
}
