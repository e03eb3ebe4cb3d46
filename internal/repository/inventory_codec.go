package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

const (
	lockKindCheckout    = "checkout"
	lockKindPaymentHold = "payment_hold"
)

// lockRecord is the jsonb form of a seat lock. Expiry is kept in unix
// microseconds so the sweeper can compare it in SQL without casts losing
// precision.
type lockRecord struct {
	Seat        string     `json:"seat"`
	Kind        string     `json:"kind"`
	SessionID   string     `json:"session_id,omitempty"`
	BookingID   *uuid.UUID `json:"booking_id,omitempty"`
	ExpiresAtUs int64      `json:"expires_at_us"`
}

func encodeLocks(locks map[domain.SeatID]domain.SeatLock) (string, error) {
	seats := make([]domain.SeatID, 0, len(locks))
	for seat := range locks {
		seats = append(seats, seat)
	}
	domain.SortSeats(seats)

	records := make([]lockRecord, 0, len(locks))

	for _, seat := range seats {
		lock := locks[seat]
		rec := lockRecord{
			Seat:        string(seat),
			ExpiresAtUs: lock.ExpiresAt.UnixMicro(),
		}

		switch h := lock.Holder.(type) {
		case domain.Checkout:
			rec.Kind = lockKindCheckout
			rec.SessionID = h.SessionID
		case domain.PaymentHold:
			id := h.BookingID
			rec.Kind = lockKindPaymentHold
			rec.BookingID = &id
		default:
			return "", fmt.Errorf("unknown lock holder %T on seat %s", lock.Holder, seat)
		}

		records = append(records, rec)
	}

	b, err := json.Marshal(records)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func decodeLocks(data []byte) (map[domain.SeatID]domain.SeatLock, error) {
	var records []lockRecord

	if len(data) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode locks: %w", err)
		}
	}

	locks := make(map[domain.SeatID]domain.SeatLock, len(records))

	for _, rec := range records {
		lock := domain.SeatLock{
			Seat:      domain.SeatID(rec.Seat),
			ExpiresAt: time.UnixMicro(rec.ExpiresAtUs).UTC(),
		}

		switch rec.Kind {
		case lockKindCheckout:
			lock.Holder = domain.Checkout{SessionID: rec.SessionID}
		case lockKindPaymentHold:
			if rec.BookingID == nil {
				return nil, fmt.Errorf("payment hold on seat %s has no booking", rec.Seat)
			}
			lock.Holder = domain.PaymentHold{BookingID: *rec.BookingID}
		default:
			return nil, fmt.Errorf("unknown lock kind %q on seat %s", rec.Kind, rec.Seat)
		}

		locks[lock.Seat] = lock
	}

	return locks, nil
}

func encodeBookedSeats(booked map[domain.SeatID]uuid.UUID) (string, error) {
	if booked == nil {
		booked = map[domain.SeatID]uuid.UUID{}
	}

	b, err := json.Marshal(booked)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func decodeBookedSeats(data []byte) (map[domain.SeatID]uuid.UUID, error) {
	booked := make(map[domain.SeatID]uuid.UUID)

	if len(data) == 0 {
		return booked, nil
	}

	if err := json.Unmarshal(data, &booked); err != nil {
		return nil, fmt.Errorf("decode booked seats: %w", err)
	}

	return booked, nil
}
