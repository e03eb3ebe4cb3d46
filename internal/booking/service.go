// Package booking holds the seat inventory engine: checkout locks, booking
// finalization, payment reconciliation, cancellation and expiry sweeps.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

const (
	defaultLockTTL          = 5 * time.Minute
	defaultPaymentHoldTTL   = 15 * time.Minute
	defaultPaymentTimeout   = 15 * time.Minute
	defaultMaxSeats         = 10
	defaultRetryAttempts    = 5
	defaultTimeoutBatchSize = 100
)

var ErrInvalidInput = errors.New("invalid input")

type Service struct {
	store     domain.InventoryStore
	provider  domain.PaymentProvider
	publisher domain.EventPublisher
	logger    *slog.Logger
	metrics   *metrics
	now       func() time.Time

	lockTTL          time.Duration
	paymentHoldTTL   time.Duration
	paymentTimeout   time.Duration
	maxSeats         int
	holdOverride     domain.PaymentHoldOverride
	retryAttempts    uint
	timeoutBatchSize int
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithLockTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lockTTL = d
		}
	}
}

func WithPaymentHoldTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.paymentHoldTTL = d
		}
	}
}

func WithPaymentTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.paymentTimeout = d
		}
	}
}

func WithMaxSeatsPerRequest(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSeats = n
		}
	}
}

func WithPaymentHoldOverride(p domain.PaymentHoldOverride) Option {
	return func(s *Service) {
		if p.Valid() {
			s.holdOverride = p
		}
	}
}

func WithRetryAttempts(n uint) Option {
	return func(s *Service) {
		if n > 0 {
			s.retryAttempts = n
		}
	}
}

func WithPaymentProvider(p domain.PaymentProvider) Option {
	return func(s *Service) {
		s.provider = p
	}
}

func WithPublisher(p domain.EventPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func NewService(store domain.InventoryStore, logger *slog.Logger, opts ...Option) (*Service, error) {
	m, err := newMetrics()
	if err != nil {
		return nil, fmt.Errorf("create booking metrics: %w", err)
	}

	s := &Service{
		store:            store,
		publisher:        noopPublisher{},
		logger:           logger,
		metrics:          m,
		now:              time.Now,
		lockTTL:          defaultLockTTL,
		paymentHoldTTL:   defaultPaymentHoldTTL,
		paymentTimeout:   defaultPaymentTimeout,
		maxSeats:         defaultMaxSeats,
		holdOverride:     domain.OverrideSameBooking,
		retryAttempts:    defaultRetryAttempts,
		timeoutBatchSize: defaultTimeoutBatchSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Service) CreateShow(ctx context.Context, params domain.NewShowParams) (*domain.ShowInventory, error) {
	inv, err := domain.NewShowInventory(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	err = s.store.CreateShow(ctx, inv)
	if err != nil {
		return nil, err
	}

	s.logger.Info("show created", "show_id", inv.ID, "capacity", inv.Capacity())

	return inv, nil
}

func (s *Service) GetBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	return s.store.GetBooking(ctx, bookingID)
}

// normalizeSeats validates the seat list shape shared by lock and finalize.
func (s *Service) normalizeSeats(seats []domain.SeatID) ([]domain.SeatID, error) {
	seats = domain.NormalizeSeats(seats)

	if len(seats) == 0 {
		return nil, fmt.Errorf("%w: at least one seat is required", ErrInvalidInput)
	}

	if len(seats) > s.maxSeats {
		return nil, fmt.Errorf("%w: at most %d seats per request", ErrInvalidInput, s.maxSeats)
	}

	return seats, nil
}

func (s *Service) publish(ctx context.Context, event domain.Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}

	err := s.publisher.Publish(ctx, event)
	if err != nil {
		s.logger.Warn("failed to publish event", "type", event.Type, "event_id", event.ID, "error", err)
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.Event) error { return nil }
func (noopPublisher) Close() error                                { return nil }

func ptr[T any](v T) *T {
	return &v
}

// Engine is the surface the HTTP layer and workers drive.
type Engine interface {
	CreateShow(ctx context.Context, params domain.NewShowParams) (*domain.ShowInventory, error)
	SeatMap(ctx context.Context, showID uuid.UUID, sessionID string) (*SeatMap, error)
	LockSeats(ctx context.Context, in LockInput) (*domain.LockResult, error)
	ReleaseSeats(ctx context.Context, showID uuid.UUID, seats []domain.SeatID, sessionID string) ([]domain.SeatID, error)
	ConfirmAndCreateBooking(ctx context.Context, in FinalizeInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
	OpenCheckout(ctx context.Context, bookingID uuid.UUID, userID int) (*CheckoutSession, error)
	ReconcilePayment(ctx context.Context, bookingID uuid.UUID, outcome domain.PaymentOutcome) (*domain.Booking, error)
	SweepExpiredLocks(ctx context.Context) (int64, error)
	ExpireUnpaidBookings(ctx context.Context) (int, error)
}

var _ Engine = (*Service)(nil)
