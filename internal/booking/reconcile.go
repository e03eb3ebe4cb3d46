package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

const retryInitialInterval = 50 * time.Millisecond

// transition records what applying an outcome did to a booking.
type transition struct {
	changed  bool
	event    domain.EventType
	anomaly  string
	released []domain.SeatID
}

// ReconcilePayment applies a payment provider outcome to a booking. Applying
// an outcome whose target state was already reached is a no-op, so
// redelivered notifications are safe. Contention is retried internally.
func (s *Service) ReconcilePayment(
	ctx context.Context,
	bookingID uuid.UUID,
	outcome domain.PaymentOutcome) (*domain.Booking, error) {

	outcome, err := domain.ParsePaymentOutcome(string(outcome))
	if err != nil {
		return nil, err
	}

	booking, _, err := s.reconcile(ctx, bookingID, outcome, nil)

	return booking, err
}

// ExpireUnpaidBookings cancels Pending, Unpaid bookings older than the payment
// timeout. Bookings whose checkout is still inside its payment hold are left
// for a later pass.
func (s *Service) ExpireUnpaidBookings(ctx context.Context) (int, error) {
	now := s.now()

	ids, err := s.store.ListUnpaidBookingsBefore(ctx, now.Add(-s.paymentTimeout), s.timeoutBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list unpaid bookings: %w", err)
	}

	expired := 0

	for _, id := range ids {
		_, changed, err := s.reconcile(ctx, id, domain.OutcomeCanceled, func(b *domain.Booking, inv *domain.ShowInventory) bool {
			return b.Payable() && !hasActivePaymentHold(inv, b.ID, s.now())
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return expired, err
			}

			s.logger.Error("failed to expire unpaid booking", "booking_id", id, "error", err)
			continue
		}

		if changed {
			expired++
		}
	}

	if expired > 0 {
		s.logger.Info("unpaid bookings expired", "count", expired)
	}

	return expired, nil
}

func (s *Service) reconcile(
	ctx context.Context,
	bookingID uuid.UUID,
	outcome domain.PaymentOutcome,
	guard func(b *domain.Booking, inv *domain.ShowInventory) bool) (*domain.Booking, bool, error) {

	var t transition

	op := func() (*domain.Booking, error) {
		t = transition{}

		b, err := s.store.UpdateBooking(ctx, bookingID, func(b *domain.Booking, inv *domain.ShowInventory) error {
			if guard != nil && !guard(b, inv) {
				return domain.ErrNoChange
			}

			t = applyOutcome(b, inv, outcome, s.now())
			if !t.changed {
				return domain.ErrNoChange
			}

			return nil
		})
		if err != nil {
			if errors.Is(err, domain.ErrTransactionAborted) {
				return nil, err
			}

			return nil, backoff.Permanent(err)
		}

		return b, nil
	}

	expBackOff := backoff.NewExponentialBackOff()
	expBackOff.InitialInterval = retryInitialInterval

	booking, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(expBackOff),
		backoff.WithMaxTries(s.retryAttempts))
	if err != nil {
		return nil, false, err
	}

	s.metrics.reconciled(ctx, string(outcome), t.changed)

	if t.anomaly != "" {
		s.logger.Warn("payment outcome anomaly",
			"booking_id", booking.ID,
			"outcome", outcome,
			"status", booking.Status,
			"payment_status", booking.PaymentStatus,
			"reason", t.anomaly)
	}

	if t.changed {
		s.logger.Info("payment reconciled",
			"booking_id", booking.ID,
			"outcome", outcome,
			"status", booking.Status,
			"payment_status", booking.PaymentStatus,
			"released_seats", domain.SeatStrings(t.released))
	}

	if t.event != "" {
		s.publish(ctx, domain.Event{
			Type:      t.event,
			ShowID:    ptr(booking.ShowID),
			BookingID: ptr(booking.ID),
			Seats:     t.released,
			Reason:    t.anomaly,
		})
	}

	return booking, t.changed, nil
}

// applyOutcome moves a booking (and its seats) to the state an outcome asks
// for. Unexpected combinations change nothing and are reported as anomalies.
func applyOutcome(
	b *domain.Booking,
	inv *domain.ShowInventory,
	outcome domain.PaymentOutcome,
	now time.Time) transition {

	switch b.Status {
	case domain.BookingStatusCancelled:
		return applyToCancelled(b, outcome)
	case domain.BookingStatusConfirmed:
		return applyToConfirmed(b, inv, outcome)
	}

	switch b.PaymentStatus {
	case domain.PaymentStatusUnpaid:
		switch outcome {
		case domain.OutcomeSucceeded:
			return confirm(b, inv, now)
		case domain.OutcomeFailed:
			b.PaymentStatus = domain.PaymentStatusFailed
			released := inv.ReleaseBookedSeats(b.Seats, b.ID)
			return transition{changed: true, event: domain.EventBookingPaymentFailed, released: released}
		case domain.OutcomeCanceled:
			b.Status = domain.BookingStatusCancelled
			released := inv.ReleaseBookedSeats(b.Seats, b.ID)
			return transition{changed: true, event: domain.EventBookingCancelled, released: released}
		case domain.OutcomeRefunded:
			return transition{anomaly: "refund reported for an unpaid booking"}
		}

	case domain.PaymentStatusFailed:
		switch outcome {
		case domain.OutcomeSucceeded:
			return confirm(b, inv, now)
		case domain.OutcomeFailed:
			return transition{}
		case domain.OutcomeCanceled:
			b.Status = domain.BookingStatusCancelled
			released := inv.ReleaseBookedSeats(b.Seats, b.ID)
			return transition{changed: true, event: domain.EventBookingCancelled, released: released}
		case domain.OutcomeRefunded:
			return transition{anomaly: "refund reported for a failed payment"}
		}
	}

	return transition{anomaly: fmt.Sprintf("unexpected state %s/%s", b.Status, b.PaymentStatus)}
}

// confirm marks a pending booking paid. Seats released by an earlier failure
// are taken back when still free; otherwise the booking is cancelled and the
// payment flagged for refund.
func confirm(b *domain.Booking, inv *domain.ShowInventory, now time.Time) transition {
	b.PaymentStatus = domain.PaymentStatusPaid

	if !inv.SeatsClaimable(b.Seats, b.ID, now) {
		b.Status = domain.BookingStatusCancelled
		released := inv.ReleaseBookedSeats(b.Seats, b.ID)

		return transition{
			changed:  true,
			event:    domain.EventBookingRefundRequired,
			anomaly:  "payment succeeded but the seats were taken",
			released: released,
		}
	}

	inv.ClaimSeats(b.Seats, b.ID)
	inv.DropPaymentHolds(b.ID)
	b.Status = domain.BookingStatusConfirmed

	return transition{changed: true, event: domain.EventBookingConfirmed}
}

func applyToConfirmed(b *domain.Booking, inv *domain.ShowInventory, outcome domain.PaymentOutcome) transition {
	switch outcome {
	case domain.OutcomeSucceeded:
		return transition{}
	case domain.OutcomeRefunded:
		b.Status = domain.BookingStatusCancelled
		b.PaymentStatus = domain.PaymentStatusRefunded
		released := inv.ReleaseBookedSeats(b.Seats, b.ID)
		return transition{changed: true, event: domain.EventBookingRefunded, released: released}
	default:
		return transition{anomaly: fmt.Sprintf("payment %s reported for a confirmed booking", outcome)}
	}
}

func applyToCancelled(b *domain.Booking, outcome domain.PaymentOutcome) transition {
	switch outcome {
	case domain.OutcomeSucceeded:
		if b.PaymentStatus == domain.PaymentStatusPaid || b.PaymentStatus == domain.PaymentStatusRefunded {
			return transition{}
		}

		b.PaymentStatus = domain.PaymentStatusPaid
		return transition{
			changed: true,
			event:   domain.EventBookingRefundRequired,
			anomaly: "payment succeeded for a cancelled booking",
		}
	case domain.OutcomeRefunded:
		if b.PaymentStatus != domain.PaymentStatusPaid {
			return transition{}
		}

		b.PaymentStatus = domain.PaymentStatusRefunded
		return transition{changed: true, event: domain.EventBookingRefunded}
	default:
		return transition{}
	}
}

func hasActivePaymentHold(inv *domain.ShowInventory, bookingID uuid.UUID, now time.Time) bool {
	for _, lock := range inv.Locks {
		h, ok := lock.Holder.(domain.PaymentHold)
		if ok && h.BookingID == bookingID && lock.Active(now) {
			return true
		}
	}

	return false
}
