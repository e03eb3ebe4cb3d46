package repository

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

// MemoryInventoryStore is a single-process store. A callback works on copies
// that are committed only when it succeeds, mirroring a rolled back
// transaction on error.
type MemoryInventoryStore struct {
	mu       sync.Mutex
	shows    map[uuid.UUID]*domain.ShowInventory
	bookings map[uuid.UUID]*domain.Booking
	now      func() time.Time
}

func NewMemoryInventoryStore() *MemoryInventoryStore {
	return &MemoryInventoryStore{
		shows:    make(map[uuid.UUID]*domain.ShowInventory),
		bookings: make(map[uuid.UUID]*domain.Booking),
		now:      time.Now,
	}
}

func (m *MemoryInventoryStore) CreateShow(ctx context.Context, inv *domain.ShowInventory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.shows[inv.ID]; ok {
		return errors.New("show already exists")
	}

	now := m.now()
	inv.Version = 1
	inv.CreatedAt = now
	inv.UpdatedAt = now

	m.shows[inv.ID] = inv.Clone()

	return nil
}

func (m *MemoryInventoryStore) GetShow(ctx context.Context, showID uuid.UUID) (*domain.ShowInventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.shows[showID]
	if !ok {
		return nil, domain.ErrShowNotFound
	}

	return inv.Clone(), nil
}

func (m *MemoryInventoryStore) UpdateShow(
	ctx context.Context,
	showID uuid.UUID,
	fn func(inv *domain.ShowInventory) error) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.shows[showID]
	if !ok {
		return domain.ErrShowNotFound
	}

	inv := stored.Clone()

	err := fn(inv)
	if err != nil {
		return ignoreNoChange(err)
	}

	m.commitShow(inv)

	return nil
}

func (m *MemoryInventoryStore) CreateBooking(
	ctx context.Context,
	showID uuid.UUID,
	fn func(inv *domain.ShowInventory) (*domain.Booking, error)) (*domain.Booking, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.shows[showID]
	if !ok {
		return nil, domain.ErrShowNotFound
	}

	inv := stored.Clone()

	booking, err := fn(inv)
	if err != nil {
		return nil, ignoreNoChange(err)
	}

	if booking != nil {
		if _, exists := m.bookings[booking.ID]; exists {
			return nil, errors.New("booking already exists")
		}

		booking.UpdatedAt = booking.BookedAt
		m.bookings[booking.ID] = booking.Clone()
	}

	m.commitShow(inv)

	return booking, nil
}

func (m *MemoryInventoryStore) UpdateBooking(
	ctx context.Context,
	bookingID uuid.UUID,
	fn func(b *domain.Booking, inv *domain.ShowInventory) error) (*domain.Booking, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	storedBooking, ok := m.bookings[bookingID]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}

	storedShow, ok := m.shows[storedBooking.ShowID]
	if !ok {
		return nil, domain.ErrShowNotFound
	}

	booking := storedBooking.Clone()
	inv := storedShow.Clone()

	err := fn(booking, inv)
	if errors.Is(err, domain.ErrNoChange) {
		return storedBooking.Clone(), nil
	}
	if err != nil {
		return nil, err
	}

	booking.UpdatedAt = m.now()
	m.bookings[bookingID] = booking.Clone()
	m.commitShow(inv)

	return booking, nil
}

func (m *MemoryInventoryStore) GetBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}

	return b.Clone(), nil
}

func (m *MemoryInventoryStore) SweepExpiredLocks(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var touched int64

	for id, stored := range m.shows {
		inv := stored.Clone()

		if len(inv.PurgeExpired(now)) == 0 {
			continue
		}

		m.shows[id] = inv
		inv.Version++
		inv.UpdatedAt = m.now()
		touched++
	}

	return touched, nil
}

func (m *MemoryInventoryStore) ListUnpaidBookingsBefore(
	ctx context.Context,
	before time.Time,
	limit int) ([]uuid.UUID, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	var unpaid []*domain.Booking

	for _, b := range m.bookings {
		if b.Payable() && b.BookedAt.Before(before) {
			unpaid = append(unpaid, b)
		}
	}

	slices.SortFunc(unpaid, func(a, b *domain.Booking) int {
		return a.BookedAt.Compare(b.BookedAt)
	})

	ids := make([]uuid.UUID, 0, len(unpaid))
	for _, b := range unpaid {
		if limit > 0 && len(ids) == limit {
			break
		}
		ids = append(ids, b.ID)
	}

	return ids, nil
}

func (m *MemoryInventoryStore) commitShow(inv *domain.ShowInventory) {
	inv.Version++
	inv.UpdatedAt = m.now()
	m.shows[inv.ID] = inv.Clone()
}

func ignoreNoChange(err error) error {
	if errors.Is(err, domain.ErrNoChange) {
		return nil
	}

	return err
}
