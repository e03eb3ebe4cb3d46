package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type FinalizeInput struct {
	ShowID    uuid.UUID
	Seats     []domain.SeatID
	SessionID string
	UserID    int
	// BaseAmount defaults to the show's seat price times the seat count.
	BaseAmount *decimal.Decimal
	// SupersedesBookingID names the booking whose payment holds this
	// finalization may take over.
	SupersedesBookingID uuid.UUID
}

// ConfirmAndCreateBooking turns the caller's locks into a Pending booking.
// Either every requested seat is claimed or none is; the seats that blocked
// the attempt are returned in a *domain.SeatsUnavailableError.
func (s *Service) ConfirmAndCreateBooking(ctx context.Context, in FinalizeInput) (*domain.Booking, error) {
	seats, err := s.normalizeSeats(in.Seats)
	if err != nil {
		return nil, err
	}

	if in.SessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}

	if in.BaseAmount != nil && in.BaseAmount.IsNegative() {
		return nil, fmt.Errorf("%w: base amount must not be negative", ErrInvalidInput)
	}

	now := s.now()
	var notLocked []domain.SeatID

	booking, err := s.store.CreateBooking(ctx, in.ShowID, func(inv *domain.ShowInventory) (*domain.Booking, error) {
		if err := inv.ValidateSeats(seats); err != nil {
			return nil, err
		}

		before := len(inv.Locks)
		notLocked = inv.FinalizeCheck(seats, in.SessionID, in.SupersedesBookingID, s.holdOverride, now)

		if len(notLocked) > 0 {
			if len(inv.Locks) == before {
				return nil, domain.ErrNoChange
			}

			// Commit the purge of the rejected seats' stale locks, nothing else.
			return nil, nil
		}

		base := domain.DefaultBaseAmount(inv, len(seats))
		if in.BaseAmount != nil {
			base = *in.BaseAmount
		}

		b, err := domain.NewBooking(inv, in.UserID, seats, base, now)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
		}

		inv.ClaimSeats(seats, b.ID)

		return b, nil
	})
	if err != nil {
		return nil, err
	}

	if len(notLocked) > 0 {
		s.metrics.finalizeConflicts.Add(ctx, 1)
		s.logger.Debug("finalization rejected", "show_id", in.ShowID, "seats", notLocked)

		return nil, &domain.SeatsUnavailableError{Seats: notLocked}
	}

	s.metrics.finalized.Add(ctx, 1)
	s.logger.Info("booking created",
		"booking_id", booking.ID,
		"show_id", booking.ShowID,
		"user_id", booking.UserID,
		"seats", domain.SeatStrings(booking.Seats),
		"total", booking.TotalAmount.StringFixed(2))

	s.publish(ctx, domain.Event{
		Type:      domain.EventBookingCreated,
		ShowID:    ptr(booking.ShowID),
		BookingID: ptr(booking.ID),
		SessionID: in.SessionID,
		Seats:     booking.Seats,
	})

	return booking, nil
}
