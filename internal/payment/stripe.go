package payment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

const metadataBookingID = "booking_id"

type StripePaymentProvider struct {
	failureUrl    string
	successUrl    string
	webhookSecret string
	newSession    func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

func NewStripePaymentProvider(failureUrl, successUrl, webhookSecret string) *StripePaymentProvider {
	return &StripePaymentProvider{
		failureUrl:    failureUrl,
		successUrl:    successUrl,
		webhookSecret: webhookSecret,
		newSession:    session.New,
	}
}

func (s *StripePaymentProvider) CreateCheckoutSession(booking *domain.Booking) (*stripe.CheckoutSession, error) {
	return s.newSession(s.checkoutParams(booking))
}

func (s *StripePaymentProvider) checkoutParams(booking *domain.Booking) *stripe.CheckoutSessionParams {
	currency := strings.ToLower(booking.Currency)
	seats := strings.Join(domain.SeatStrings(booking.Seats), ", ")

	lineItems := []*stripe.CheckoutSessionLineItemParams{
		{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(toCents(booking.BaseAmount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("🎬 %s - Seats %s", booking.MovieTitle, seats)),
					Description: stripe.String(fmt.Sprintf(
						"Theater: %s • Hall: %s • Showtime: %s",
						booking.TheaterName,
						booking.HallName,
						booking.StartsAt.Format("Jan 2, 2006 15:04"),
					)),
				},
			},
			Quantity: stripe.Int64(1),
		},
	}

	if booking.ServiceCharge.IsPositive() {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(toCents(booking.ServiceCharge)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Service charge"),
				},
			},
			Quantity: stripe.Int64(1),
		})
	}

	metadata := map[string]string{
		metadataBookingID: booking.ID.String(),
		"show_id":         booking.ShowID.String(),
	}

	return &stripe.CheckoutSessionParams{
		LineItems:         lineItems,
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.successUrl),
		CancelURL:         stripe.String(s.failureUrl),
		Metadata:          metadata,
		ClientReferenceID: stripe.String(booking.ID.String()),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
}

// ParseWebhookEvent verifies the Stripe-Signature header and maps the event
// onto a booking outcome.
func (s *StripePaymentProvider) ParseWebhookEvent(payload []byte, signature string) (*domain.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidWebhook, err)
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:

		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidWebhook, err)
		}

		outcome, ok := checkoutOutcome(event.Type, cs.PaymentStatus)
		if !ok {
			return nil, nil
		}

		bookingID, err := bookingIDFrom(cs.Metadata, cs.ClientReferenceID)
		if err != nil {
			return nil, err
		}

		return &domain.PaymentEvent{
			ID:        event.ID,
			BookingID: bookingID,
			Outcome:   outcome,
			Reference: cs.ID,
		}, nil

	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidWebhook, err)
		}

		// Partial refunds leave the booking alone.
		if !charge.Refunded {
			return nil, nil
		}

		bookingID, err := bookingIDFrom(charge.Metadata, "")
		if err != nil {
			return nil, err
		}

		return &domain.PaymentEvent{
			ID:        event.ID,
			BookingID: bookingID,
			Outcome:   domain.OutcomeRefunded,
			Reference: charge.ID,
		}, nil
	}

	return nil, nil
}

func checkoutOutcome(
	eventType stripe.EventType,
	status stripe.CheckoutSessionPaymentStatus) (domain.PaymentOutcome, bool) {

	switch eventType {
	case stripe.EventTypeCheckoutSessionCompleted:
		// Delayed payment methods complete unpaid and report later.
		if status != stripe.CheckoutSessionPaymentStatusPaid {
			return "", false
		}
		return domain.OutcomeSucceeded, true
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		return domain.OutcomeSucceeded, true
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		return domain.OutcomeFailed, true
	case stripe.EventTypeCheckoutSessionExpired:
		return domain.OutcomeCanceled, true
	}

	return "", false
}

func bookingIDFrom(metadata map[string]string, fallback string) (uuid.UUID, error) {
	raw := metadata[metadataBookingID]
	if raw == "" {
		raw = fallback
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: missing booking id", domain.ErrInvalidWebhook)
	}

	return id, nil
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
