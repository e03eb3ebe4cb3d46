package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockInventoryStore struct {
	mock.Mock
	domain.InventoryStore
}

func (m *MockInventoryStore) GetShow(ctx context.Context, showID uuid.UUID) (*domain.ShowInventory, error) {
	args := m.Called(ctx, showID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShowInventory), args.Error(1)
}

func (m *MockInventoryStore) UpdateBooking(
	ctx context.Context,
	bookingID uuid.UUID,
	fn func(b *domain.Booking, inv *domain.ShowInventory) error) (*domain.Booking, error) {

	args := m.Called(ctx, bookingID, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockInventoryStore) GetBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockInventoryStore) SweepExpiredLocks(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInventoryStore) ListUnpaidBookingsBefore(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}
