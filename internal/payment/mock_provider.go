package payment

import (
	"fmt"

	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/stripe/stripe-go/v82"
)

// MockPaymentProvider stands in for Stripe in local runs. Checkout sessions
// point at a fixed page and outcomes are delivered through the direct
// confirmation endpoint instead of webhooks.
type MockPaymentProvider struct {
	redirectUrl string
}

func NewMockPaymentProvider(redirectUrl string) *MockPaymentProvider {
	return &MockPaymentProvider{redirectUrl: redirectUrl}
}

func (m *MockPaymentProvider) CreateCheckoutSession(booking *domain.Booking) (*stripe.CheckoutSession, error) {
	id := "cs_mock_" + booking.ID.String()

	return &stripe.CheckoutSession{
		ID:                id,
		URL:               fmt.Sprintf("%s?session_id=%s", m.redirectUrl, id),
		ClientReferenceID: booking.ID.String(),
		Metadata:          map[string]string{metadataBookingID: booking.ID.String()},
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusUnpaid,
	}, nil
}

func (m *MockPaymentProvider) ParseWebhookEvent(payload []byte, signature string) (*domain.PaymentEvent, error) {
	return nil, fmt.Errorf("%w: webhooks are not accepted in mock payment mode", domain.ErrInvalidWebhook)
}
