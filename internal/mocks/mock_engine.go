package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/booking"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockEngine struct {
	mock.Mock
	booking.Engine
}

func (m *MockEngine) CreateShow(ctx context.Context, params domain.NewShowParams) (*domain.ShowInventory, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShowInventory), args.Error(1)
}

func (m *MockEngine) SeatMap(ctx context.Context, showID uuid.UUID, sessionID string) (*booking.SeatMap, error) {
	args := m.Called(ctx, showID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.SeatMap), args.Error(1)
}

func (m *MockEngine) LockSeats(ctx context.Context, in booking.LockInput) (*domain.LockResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LockResult), args.Error(1)
}

func (m *MockEngine) ReleaseSeats(
	ctx context.Context,
	showID uuid.UUID,
	seats []domain.SeatID,
	sessionID string) ([]domain.SeatID, error) {

	args := m.Called(ctx, showID, seats, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatID), args.Error(1)
}

func (m *MockEngine) ConfirmAndCreateBooking(ctx context.Context, in booking.FinalizeInput) (*domain.Booking, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockEngine) GetBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockEngine) CancelBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockEngine) OpenCheckout(ctx context.Context, bookingID uuid.UUID, userID int) (*booking.CheckoutSession, error) {
	args := m.Called(ctx, bookingID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.CheckoutSession), args.Error(1)
}

func (m *MockEngine) ReconcilePayment(
	ctx context.Context,
	bookingID uuid.UUID,
	outcome domain.PaymentOutcome) (*domain.Booking, error) {

	args := m.Called(ctx, bookingID, outcome)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockEngine) SweepExpiredLocks(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEngine) ExpireUnpaidBookings(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
