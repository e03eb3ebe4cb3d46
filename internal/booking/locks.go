package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

type LockInput struct {
	ShowID    uuid.UUID
	Seats     []domain.SeatID
	SessionID string
	// TTL defaults to the configured checkout lock TTL when zero.
	TTL time.Duration
}

// LockSeats places checkout locks on all requested seats or on none of them.
// Conflicts are reported in the result; only a missing show or a malformed
// request is an error.
func (s *Service) LockSeats(ctx context.Context, in LockInput) (*domain.LockResult, error) {
	seats, err := s.normalizeSeats(in.Seats)
	if err != nil {
		return nil, err
	}

	if in.SessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}

	ttl := in.TTL
	if ttl < 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", ErrInvalidInput)
	}
	if ttl == 0 {
		ttl = s.lockTTL
	}

	var result domain.LockResult

	err = s.store.UpdateShow(ctx, in.ShowID, func(inv *domain.ShowInventory) error {
		if err := inv.ValidateSeats(seats); err != nil {
			return err
		}

		before := len(inv.Locks)
		result = inv.LockSeats(seats, in.SessionID, s.now(), ttl)

		// A rejected attempt that purged nothing has nothing to write.
		if !result.Success && len(inv.Locks) == before {
			return domain.ErrNoChange
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.lockAttempts.Add(ctx, 1)

	if !result.Success {
		s.metrics.lockConflicts.Add(ctx, 1)
		s.logger.Debug("seat lock rejected",
			"show_id", in.ShowID,
			"already_booked", result.AlreadyBooked,
			"already_locked", result.AlreadyLocked)

		return &result, nil
	}

	s.publish(ctx, domain.Event{
		Type:      domain.EventSeatsLocked,
		ShowID:    ptr(in.ShowID),
		SessionID: in.SessionID,
		Seats:     result.LockedSeats,
	})

	return &result, nil
}

// ReleaseSeats drops the session's checkout locks on the given seats, or on
// every seat of the show when none are given. It never touches booked seats
// or locks of other holders.
func (s *Service) ReleaseSeats(
	ctx context.Context,
	showID uuid.UUID,
	seats []domain.SeatID,
	sessionID string) ([]domain.SeatID, error) {

	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}

	seats = domain.NormalizeSeats(seats)
	released := []domain.SeatID{}

	err := s.store.UpdateShow(ctx, showID, func(inv *domain.ShowInventory) error {
		released = inv.ReleaseCheckoutLocks(seats, sessionID)
		if len(released) == 0 {
			return domain.ErrNoChange
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(released) > 0 {
		s.publish(ctx, domain.Event{
			Type:      domain.EventSeatsReleased,
			ShowID:    ptr(showID),
			SessionID: sessionID,
			Seats:     released,
		})
	}

	return released, nil
}

type SeatMap struct {
	Show  *domain.ShowInventory
	Seats []domain.SeatStatus
}

// SeatMap is a read-only view; expired locks are reported as available
// without being purged.
func (s *Service) SeatMap(ctx context.Context, showID uuid.UUID, sessionID string) (*SeatMap, error) {
	inv, err := s.store.GetShow(ctx, showID)
	if err != nil {
		return nil, err
	}

	return &SeatMap{
		Show:  inv,
		Seats: inv.SeatMap(sessionID, s.now()),
	}, nil
}

// SweepExpiredLocks removes every expired lock of every show.
func (s *Service) SweepExpiredLocks(ctx context.Context) (int64, error) {
	touched, err := s.store.SweepExpiredLocks(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep expired locks: %w", err)
	}

	if touched > 0 {
		s.metrics.locksSwept.Add(ctx, touched)
		s.logger.Info("expired locks swept", "shows", touched)
		s.publish(ctx, domain.Event{Type: domain.EventLocksSwept, Count: touched})
	}

	return touched, nil
}
