package booking

import (
	"context"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

// CancelBooking marks a booking Cancelled and returns the seats it still owns
// to the show. The payment status is left alone; money moves back only
// through a refunded payment outcome.
func (s *Service) CancelBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	var (
		released []domain.SeatID
		changed  bool
	)

	booking, err := s.store.UpdateBooking(ctx, bookingID, func(b *domain.Booking, inv *domain.ShowInventory) error {
		if b.Status == domain.BookingStatusCancelled {
			return domain.ErrNoChange
		}

		released = inv.ReleaseBookedSeats(b.Seats, b.ID)
		b.Status = domain.BookingStatusCancelled
		changed = true

		return nil
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		return booking, nil
	}

	s.logger.Info("booking cancelled",
		"booking_id", booking.ID,
		"payment_status", booking.PaymentStatus,
		"released_seats", domain.SeatStrings(released))

	s.publish(ctx, domain.Event{
		Type:      domain.EventBookingCancelled,
		ShowID:    ptr(booking.ShowID),
		BookingID: ptr(booking.ID),
		Seats:     released,
	})

	return booking, nil
}
