package domain

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LockHolder owns a seat lock. It is either a Checkout (a buyer selecting
// seats) or a PaymentHold (a booking awaiting its payment).
type LockHolder interface {
	isLockHolder()
}

type Checkout struct {
	SessionID string
}

type PaymentHold struct {
	BookingID uuid.UUID
}

func (Checkout) isLockHolder()    {}
func (PaymentHold) isLockHolder() {}

type SeatLock struct {
	Seat      SeatID
	Holder    LockHolder
	ExpiresAt time.Time
}

// Active reports whether the lock still holds the seat at now. A lock that
// expires at t is free for other holders at any instant >= t.
func (l SeatLock) Active(now time.Time) bool {
	return now.Before(l.ExpiresAt)
}

func (l SeatLock) heldBy(sessionID string) bool {
	c, ok := l.Holder.(Checkout)
	return ok && c.SessionID == sessionID
}

// PaymentHoldOverride decides which payment holds a finalization may supersede.
type PaymentHoldOverride string

const (
	// OverrideSameBooking lets a finalization supersede only the payment hold
	// of the booking it names as superseded.
	OverrideSameBooking PaymentHoldOverride = "same-booking"
	// OverrideAnyHold lets any finalization supersede any payment hold.
	OverrideAnyHold PaymentHoldOverride = "any"
)

func (p PaymentHoldOverride) allows(hold, supersedes uuid.UUID) bool {
	if p == OverrideAnyHold {
		return true
	}

	return supersedes != uuid.Nil && hold == supersedes
}

func (p PaymentHoldOverride) Valid() bool {
	return p == OverrideSameBooking || p == OverrideAnyHold
}

// ShowInventory is the seat state of one screening. Every mutation of
// BookedSeats or Locks must happen while the store holds the row lock.
type ShowInventory struct {
	ID          uuid.UUID
	Rows        int
	Columns     int
	SeatPrice   decimal.Decimal
	Currency    string
	MovieTitle  string
	TheaterName string
	HallName    string
	StartsAt    time.Time
	BookedSeats map[SeatID]uuid.UUID
	Locks       map[SeatID]SeatLock
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type NewShowParams struct {
	Rows        int
	Columns     int
	SeatPrice   decimal.Decimal
	Currency    string
	MovieTitle  string
	TheaterName string
	HallName    string
	StartsAt    time.Time
}

func NewShowInventory(p NewShowParams) (*ShowInventory, error) {
	if p.Rows < 1 || p.Rows > maxRows {
		return nil, fmt.Errorf("rows must be between 1 and %d", maxRows)
	}
	if p.Columns < 1 {
		return nil, errors.New("columns must be positive")
	}
	if p.SeatPrice.IsNegative() {
		return nil, errors.New("seat price must not be negative")
	}

	currency := p.Currency
	if currency == "" {
		currency = "USD"
	}

	return &ShowInventory{
		ID:          uuid.New(),
		Rows:        p.Rows,
		Columns:     p.Columns,
		SeatPrice:   p.SeatPrice,
		Currency:    currency,
		MovieTitle:  p.MovieTitle,
		TheaterName: p.TheaterName,
		HallName:    p.HallName,
		StartsAt:    p.StartsAt,
		BookedSeats: make(map[SeatID]uuid.UUID),
		Locks:       make(map[SeatID]SeatLock),
	}, nil
}

func (inv *ShowInventory) Capacity() int {
	return inv.Rows * inv.Columns
}

func (inv *ShowInventory) HasSeat(seat SeatID) bool {
	row, col, err := seat.Position()
	if err != nil {
		return false
	}

	return row <= inv.Rows && col <= inv.Columns
}

// ValidateSeats returns ErrInvalidSeat naming the first seat outside the hall.
func (inv *ShowInventory) ValidateSeats(seats []SeatID) error {
	for _, s := range seats {
		if !inv.HasSeat(s) {
			return fmt.Errorf("%w: %s", ErrInvalidSeat, s)
		}
	}

	return nil
}

func (inv *ShowInventory) Clone() *ShowInventory {
	c := *inv
	c.BookedSeats = maps.Clone(inv.BookedSeats)
	c.Locks = maps.Clone(inv.Locks)

	if c.BookedSeats == nil {
		c.BookedSeats = make(map[SeatID]uuid.UUID)
	}
	if c.Locks == nil {
		c.Locks = make(map[SeatID]SeatLock)
	}

	return &c
}

// PurgeExpired drops every lock that is no longer active at now and returns
// the seats it freed.
func (inv *ShowInventory) PurgeExpired(now time.Time) []SeatID {
	var purged []SeatID

	for seat, lock := range inv.Locks {
		if !lock.Active(now) {
			delete(inv.Locks, seat)
			purged = append(purged, seat)
		}
	}

	SortSeats(purged)
	return purged
}

func (inv *ShowInventory) purgeExpiredSeats(seats []SeatID, now time.Time) {
	for _, seat := range seats {
		if lock, ok := inv.Locks[seat]; ok && !lock.Active(now) {
			delete(inv.Locks, seat)
		}
	}
}

func (inv *ShowInventory) ActiveLock(seat SeatID, now time.Time) (SeatLock, bool) {
	lock, ok := inv.Locks[seat]
	if !ok || !lock.Active(now) {
		return SeatLock{}, false
	}

	return lock, true
}

func (inv *ShowInventory) IsBooked(seat SeatID) bool {
	_, ok := inv.BookedSeats[seat]
	return ok
}

type LockResult struct {
	Success       bool
	LockedSeats   []SeatID
	AlreadyBooked []SeatID
	AlreadyLocked []SeatID
	ExpiresAt     time.Time
}

// LockSeats places checkout locks for sessionID on every seat or on none.
// Locks the same session already holds are refreshed.
func (inv *ShowInventory) LockSeats(seats []SeatID, sessionID string, now time.Time, ttl time.Duration) LockResult {
	inv.PurgeExpired(now)

	var res LockResult

	for _, seat := range seats {
		if inv.IsBooked(seat) {
			res.AlreadyBooked = append(res.AlreadyBooked, seat)
			continue
		}

		if lock, ok := inv.ActiveLock(seat, now); ok && !lock.heldBy(sessionID) {
			res.AlreadyLocked = append(res.AlreadyLocked, seat)
		}
	}

	if len(res.AlreadyBooked) > 0 || len(res.AlreadyLocked) > 0 {
		return res
	}

	expiresAt := now.Add(ttl)
	for _, seat := range seats {
		inv.Locks[seat] = SeatLock{
			Seat:      seat,
			Holder:    Checkout{SessionID: sessionID},
			ExpiresAt: expiresAt,
		}
	}

	res.Success = true
	res.LockedSeats = append([]SeatID(nil), seats...)
	res.ExpiresAt = expiresAt

	return res
}

// ReleaseCheckoutLocks removes the checkout locks of sessionID on the given
// seats, or on all seats when none are given. Other holders are untouched.
func (inv *ShowInventory) ReleaseCheckoutLocks(seats []SeatID, sessionID string) []SeatID {
	released := []SeatID{}

	if len(seats) == 0 {
		for seat, lock := range inv.Locks {
			if lock.heldBy(sessionID) {
				delete(inv.Locks, seat)
				released = append(released, seat)
			}
		}

		SortSeats(released)
		return released
	}

	for _, seat := range seats {
		if lock, ok := inv.Locks[seat]; ok && lock.heldBy(sessionID) {
			delete(inv.Locks, seat)
			released = append(released, seat)
		}
	}

	return released
}

// FinalizeCheck lists the seats a finalization by sessionID may not claim.
// Expired locks on the rejected seats are purged as a side effect.
func (inv *ShowInventory) FinalizeCheck(
	seats []SeatID,
	sessionID string,
	supersedes uuid.UUID,
	policy PaymentHoldOverride,
	now time.Time) []SeatID {

	var notLocked []SeatID

	for _, seat := range seats {
		if inv.IsBooked(seat) {
			notLocked = append(notLocked, seat)
			continue
		}

		lock, ok := inv.ActiveLock(seat, now)
		if !ok {
			notLocked = append(notLocked, seat)
			continue
		}

		switch h := lock.Holder.(type) {
		case Checkout:
			if h.SessionID != sessionID {
				notLocked = append(notLocked, seat)
			}
		case PaymentHold:
			if !policy.allows(h.BookingID, supersedes) {
				notLocked = append(notLocked, seat)
			}
		default:
			notLocked = append(notLocked, seat)
		}
	}

	if len(notLocked) > 0 {
		inv.purgeExpiredSeats(notLocked, now)
	}

	return notLocked
}

// ClaimSeats turns seats into permanent allocations of bookingID and drops
// every lock on them, whoever holds it.
func (inv *ShowInventory) ClaimSeats(seats []SeatID, bookingID uuid.UUID) {
	for _, seat := range seats {
		delete(inv.Locks, seat)
		inv.BookedSeats[seat] = bookingID
	}
}

// SeatsClaimable reports whether bookingID could take the seats back: none is
// booked by another booking and none carries an active lock of another holder.
func (inv *ShowInventory) SeatsClaimable(seats []SeatID, bookingID uuid.UUID, now time.Time) bool {
	for _, seat := range seats {
		if owner, ok := inv.BookedSeats[seat]; ok && owner != bookingID {
			return false
		}

		lock, ok := inv.ActiveLock(seat, now)
		if !ok {
			continue
		}

		if h, isHold := lock.Holder.(PaymentHold); !isHold || h.BookingID != bookingID {
			return false
		}
	}

	return true
}

// ReleaseBookedSeats frees the seats still allocated to bookingID and returns
// them. Seats since claimed by another booking are left alone.
func (inv *ShowInventory) ReleaseBookedSeats(seats []SeatID, bookingID uuid.UUID) []SeatID {
	released := []SeatID{}

	for _, seat := range seats {
		if owner, ok := inv.BookedSeats[seat]; ok && owner == bookingID {
			delete(inv.BookedSeats, seat)
			released = append(released, seat)
		}
	}

	inv.DropPaymentHolds(bookingID)

	return released
}

// PlacePaymentHolds locks the booking's own seats for the payment window.
func (inv *ShowInventory) PlacePaymentHolds(seats []SeatID, bookingID uuid.UUID, expiresAt time.Time) []SeatID {
	var held []SeatID

	for _, seat := range seats {
		if owner, ok := inv.BookedSeats[seat]; !ok || owner != bookingID {
			continue
		}

		inv.Locks[seat] = SeatLock{
			Seat:      seat,
			Holder:    PaymentHold{BookingID: bookingID},
			ExpiresAt: expiresAt,
		}
		held = append(held, seat)
	}

	return held
}

func (inv *ShowInventory) DropPaymentHolds(bookingID uuid.UUID) int {
	dropped := 0

	for seat, lock := range inv.Locks {
		if h, ok := lock.Holder.(PaymentHold); ok && h.BookingID == bookingID {
			delete(inv.Locks, seat)
			dropped++
		}
	}

	return dropped
}

// SeatMap renders every seat in row-major order from sessionID's point of view.
func (inv *ShowInventory) SeatMap(sessionID string, now time.Time) []SeatStatus {
	statuses := make([]SeatStatus, 0, inv.Capacity())

	for row := 1; row <= inv.Rows; row++ {
		for col := 1; col <= inv.Columns; col++ {
			id := NewSeatID(row, col)
			st := SeatStatus{ID: id, Row: row, Col: col, State: SeatAvailable}

			if inv.IsBooked(id) {
				st.State = SeatBooked
			} else if lock, ok := inv.ActiveLock(id, now); ok {
				expiresAt := lock.ExpiresAt
				st.LockExpiresAt = &expiresAt
				st.State = SeatLocked

				if sessionID != "" && lock.heldBy(sessionID) {
					st.State = SeatHeldByYou
				}
			}

			statuses = append(statuses, st)
		}
	}

	return statuses
}

// InventoryStore persists show inventories and bookings. Every callback runs
// inside one transaction holding the show's row lock; a callback error rolls
// the transaction back and is returned, except ErrNoChange which commits
// nothing and is swallowed.
type InventoryStore interface {
	CreateShow(ctx context.Context, inv *ShowInventory) error
	GetShow(ctx context.Context, showID uuid.UUID) (*ShowInventory, error)
	UpdateShow(ctx context.Context, showID uuid.UUID, fn func(inv *ShowInventory) error) error

	// CreateBooking persists the booking returned by fn together with the
	// inventory. A nil booking commits only the inventory changes.
	CreateBooking(ctx context.Context, showID uuid.UUID, fn func(inv *ShowInventory) (*Booking, error)) (*Booking, error)
	UpdateBooking(ctx context.Context, bookingID uuid.UUID, fn func(b *Booking, inv *ShowInventory) error) (*Booking, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error)

	// SweepExpiredLocks removes every lock expired at now from every show and
	// returns the number of shows it changed.
	SweepExpiredLocks(ctx context.Context, now time.Time) (int64, error)
	ListUnpaidBookingsBefore(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error)
}
