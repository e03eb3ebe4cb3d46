package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

var ErrPaymentsDisabled = errors.New("no payment provider configured")

type CheckoutSession struct {
	BookingID     uuid.UUID
	Reference     string
	RedirectURL   string
	HoldExpiresAt time.Time
}

// OpenCheckout starts a provider checkout for the owner's unpaid booking and
// covers its seats with payment holds for the payment window.
func (s *Service) OpenCheckout(ctx context.Context, bookingID uuid.UUID, userID int) (*CheckoutSession, error) {
	if s.provider == nil {
		return nil, ErrPaymentsDisabled
	}

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.UserID != userID {
		return nil, domain.ErrForbidden
	}

	if !booking.Payable() {
		return nil, domain.ErrBookingNotPayable
	}

	session, err := s.provider.CreateCheckoutSession(booking)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	expiresAt := s.now().Add(s.paymentHoldTTL)

	booking, err = s.store.UpdateBooking(ctx, bookingID, func(b *domain.Booking, inv *domain.ShowInventory) error {
		// The booking may have been reconciled while the provider was called.
		if !b.Payable() {
			return domain.ErrBookingNotPayable
		}

		b.PaymentReference = &session.ID
		inv.PlacePaymentHolds(b.Seats, b.ID, expiresAt)

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("checkout opened",
		"booking_id", booking.ID,
		"reference", session.ID,
		"hold_expires_at", expiresAt)

	return &CheckoutSession{
		BookingID:     booking.ID,
		Reference:     session.ID,
		RedirectURL:   session.URL,
		HoldExpiresAt: expiresAt,
	}, nil
}
