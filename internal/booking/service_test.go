package booking_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/booking"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/metinatakli/seat-reservation-engine/internal/mocks"
	"github.com/metinatakli/seat-reservation-engine/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]domain.EventType, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type engineSuite struct {
	suite.Suite
	ctx       context.Context
	store     *repository.MemoryInventoryStore
	clock     *fakeClock
	publisher *recordingPublisher
	svc       *booking.Service
	show      *domain.ShowInventory
}

func (s *engineSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = repository.NewMemoryInventoryStore()
	s.clock = newFakeClock()
	s.publisher = &recordingPublisher{}
	s.svc = s.newService()

	show, err := s.svc.CreateShow(s.ctx, domain.NewShowParams{
		Rows:       5,
		Columns:    8,
		SeatPrice:  decimal.NewFromInt(10),
		MovieTitle: "Metropolis",
		StartsAt:   s.clock.Now().Add(48 * time.Hour),
	})
	s.Require().NoError(err)
	s.show = show
}

func (s *engineSuite) newService(opts ...booking.Option) *booking.Service {
	base := []booking.Option{
		booking.WithClock(s.clock.Now),
		booking.WithPublisher(s.publisher),
	}

	svc, err := booking.NewService(s.store, testLogger(), append(base, opts...)...)
	s.Require().NoError(err)

	return svc
}

func (s *engineSuite) lock(session string, ttl time.Duration, seats ...domain.SeatID) *domain.LockResult {
	res, err := s.svc.LockSeats(s.ctx, booking.LockInput{
		ShowID:    s.show.ID,
		Seats:     seats,
		SessionID: session,
		TTL:       ttl,
	})
	s.Require().NoError(err)
	return res
}

func (s *engineSuite) finalize(session string, seats ...domain.SeatID) (*domain.Booking, error) {
	return s.svc.ConfirmAndCreateBooking(s.ctx, booking.FinalizeInput{
		ShowID:    s.show.ID,
		Seats:     seats,
		SessionID: session,
		UserID:    42,
	})
}

func (s *engineSuite) mustBook(session string, seats ...domain.SeatID) *domain.Booking {
	s.Require().True(s.lock(session, time.Minute, seats...).Success)

	b, err := s.finalize(session, seats...)
	s.Require().NoError(err)

	return b
}

func (s *engineSuite) inventory() *domain.ShowInventory {
	inv, err := s.store.GetShow(s.ctx, s.show.ID)
	s.Require().NoError(err)
	return inv
}

func requireUnavailable(t *testing.T, err error, want ...domain.SeatID) {
	t.Helper()

	var unavailable *domain.SeatsUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, want, unavailable.Seats)
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(engineSuite))
}

func (s *engineSuite) TestEndToEndScenarios() {
	// 1. S1 locks A1,A2; S2 cannot take A1.
	res := s.lock("S1", 5*time.Second, "A1", "A2")
	s.True(res.Success)
	s.Equal([]domain.SeatID{"A1", "A2"}, res.LockedSeats)

	res = s.lock("S2", 5*time.Second, "A1")
	s.False(res.Success)
	s.Equal([]domain.SeatID{"A1"}, res.AlreadyLocked)

	// 2. After expiry and a sweep S2 gets A1.
	s.clock.Advance(5 * time.Second)
	touched, err := s.svc.SweepExpiredLocks(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), touched)
	s.Empty(s.inventory().Locks)

	res = s.lock("S2", 5*time.Second, "A1")
	s.True(res.Success)

	// 3. S1 locks again and finalizes once S2 gives A1 back.
	_, err = s.svc.ReleaseSeats(s.ctx, s.show.ID, nil, "S2")
	s.Require().NoError(err)
	s.Require().True(s.lock("S1", time.Minute, "A1", "A2").Success)

	b, err := s.finalize("S1", "A1", "A2")
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusPending, b.Status)
	s.Equal(domain.PaymentStatusUnpaid, b.PaymentStatus)
	s.Equal("20.00", b.BaseAmount.StringFixed(2))
	s.Equal("22.00", b.TotalAmount.StringFixed(2))

	inv := s.inventory()
	s.Equal(b.ID, inv.BookedSeats["A1"])
	s.Equal(b.ID, inv.BookedSeats["A2"])
	s.Empty(inv.Locks)

	// 4. Nobody else can finalize A1.
	_, err = s.finalize("S3", "A1")
	requireUnavailable(s.T(), err, "A1")

	// 5. Success twice leaves the same state.
	confirmed, err := s.svc.ReconcilePayment(s.ctx, b.ID, domain.OutcomeSucceeded)
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusConfirmed, confirmed.Status)
	s.Equal(domain.PaymentStatusPaid, confirmed.PaymentStatus)

	again, err := s.svc.ReconcilePayment(s.ctx, b.ID, domain.OutcomeSucceeded)
	s.Require().NoError(err)
	s.Equal(confirmed.Status, again.Status)
	s.Equal(confirmed.PaymentStatus, again.PaymentStatus)
	s.Equal(inv.BookedSeats, s.inventory().BookedSeats)
}

func (s *engineSuite) TestFailedPaymentFreesSeats() {
	b := s.mustBook("S1", "A1", "A2")

	failed, err := s.svc.ReconcilePayment(s.ctx, b.ID, domain.OutcomeFailed)
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusPending, failed.Status)
	s.Equal(domain.PaymentStatusFailed, failed.PaymentStatus)
	s.Empty(s.inventory().BookedSeats)

	res := s.lock("S9", time.Minute, "A1", "A2")
	s.True(res.Success)

	again, err := s.svc.ReconcilePayment(s.ctx, b.ID, domain.OutcomeFailed)
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusFailed, again.PaymentStatus)
	s.Contains(s.inventory().Locks, domain.SeatID("A1"))

	s.Equal([]domain.EventType{
		domain.EventSeatsLocked,
		domain.EventBookingCreated,
		domain.EventBookingPaymentFailed,
		domain.EventSeatsLocked,
	}, s.publisher.types())
}

func (s *engineSuite) TestLockValidation() {
	tests := []struct {
		name    string
		in      booking.LockInput
		wantErr error
	}{
		{
			name:    "no seats",
			in:      booking.LockInput{ShowID: s.show.ID, SessionID: "S1"},
			wantErr: booking.ErrInvalidInput,
		},
		{
			name:    "no session",
			in:      booking.LockInput{ShowID: s.show.ID, Seats: []domain.SeatID{"A1"}},
			wantErr: booking.ErrInvalidInput,
		},
		{
			name:    "negative ttl",
			in:      booking.LockInput{ShowID: s.show.ID, Seats: []domain.SeatID{"A1"}, SessionID: "S1", TTL: -time.Second},
			wantErr: booking.ErrInvalidInput,
		},
		{
			name: "too many seats",
			in: booking.LockInput{
				ShowID:    s.show.ID,
				Seats:     []domain.SeatID{"A1", "A2", "A3", "A4", "A5", "A6", "A7", "A8", "B1", "B2", "B3"},
				SessionID: "S1",
			},
			wantErr: booking.ErrInvalidInput,
		},
		{
			name:    "seat outside the hall",
			in:      booking.LockInput{ShowID: s.show.ID, Seats: []domain.SeatID{"F1"}, SessionID: "S1"},
			wantErr: domain.ErrInvalidSeat,
		},
		{
			name:    "unknown show",
			in:      booking.LockInput{ShowID: uuid.New(), Seats: []domain.SeatID{"A1"}, SessionID: "S1"},
			wantErr: domain.ErrRecordNotFound,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.svc.LockSeats(s.ctx, tt.in)
			s.ErrorIs(err, tt.wantErr)
		})
	}
}

func (s *engineSuite) TestLockDefaultsTTLAndDeduplicatesSeats() {
	res := s.lock("S1", 0, "a1", "A1", "b2")

	s.True(res.Success)
	s.Equal([]domain.SeatID{"A1", "B2"}, res.LockedSeats)
	s.Equal(s.clock.Now().Add(5*time.Minute), res.ExpiresAt)
}

func (s *engineSuite) TestSeatSpellingsShareOneSeat() {
	s.Require().True(s.lock("S1", time.Minute, "A1").Success)

	for _, alias := range []domain.SeatID{"A01", "a+1", " a001"} {
		res := s.lock("S2", time.Minute, alias)
		s.False(res.Success, alias)
		s.Equal([]domain.SeatID{"A1"}, res.AlreadyLocked, alias)

		_, err := s.finalize("S2", alias)
		requireUnavailable(s.T(), err, "A1")
	}

	b, err := s.finalize("S1", "A01")
	s.Require().NoError(err)
	s.Equal([]domain.SeatID{"A1"}, b.Seats)

	res := s.lock("S3", time.Minute, "A+1")
	s.False(res.Success)
	s.Equal([]domain.SeatID{"A1"}, res.AlreadyBooked)

	inv := s.inventory()
	s.Equal(map[domain.SeatID]uuid.UUID{"A1": b.ID}, inv.BookedSeats)
	s.Empty(inv.Locks)
}

func (s *engineSuite) TestTTLBoundary() {
	s.Require().True(s.lock("S1", 10*time.Second, "C3").Success)

	s.clock.Advance(10*time.Second - time.Nanosecond)
	s.False(s.lock("S2", time.Minute, "C3").Success)

	s.clock.Advance(time.Nanosecond)
	s.True(s.lock("S2", time.Minute, "C3").Success)
}

func (s *engineSuite) TestReleaseSymmetry() {
	before := s.inventory()

	s.Require().True(s.lock("S1", time.Minute, "D1", "D2").Success)

	released, err := s.svc.ReleaseSeats(s.ctx, s.show.ID, []domain.SeatID{"D1", "D2"}, "S1")
	s.Require().NoError(err)
	s.Equal([]domain.SeatID{"D1", "D2"}, released)

	after := s.inventory()
	s.Equal(before.Locks, after.Locks)
	s.Equal(before.BookedSeats, after.BookedSeats)

	released, err = s.svc.ReleaseSeats(s.ctx, s.show.ID, []domain.SeatID{"D1"}, "S1")
	s.Require().NoError(err)
	s.Empty(released)
}

func (s *engineSuite) TestReleaseIgnoresOtherSessions() {
	s.Require().True(s.lock("S1", time.Minute, "D1").Success)

	released, err := s.svc.ReleaseSeats(s.ctx, s.show.ID, []domain.SeatID{"D1"}, "S2")
	s.Require().NoError(err)
	s.Empty(released)
	s.Contains(s.inventory().Locks, domain.SeatID("D1"))
}

func (s *engineSuite) TestFinalizeRejectsWithoutLocks() {
	_, err := s.finalize("S1", "E1", "E2")
	requireUnavailable(s.T(), err, "E1", "E2")

	s.Require().True(s.lock("S1", time.Second, "E1").Success)
	s.Require().True(s.lock("S2", time.Minute, "E2").Success)
	s.clock.Advance(time.Second)

	_, err = s.finalize("S1", "E1", "E2")
	requireUnavailable(s.T(), err, "E1", "E2")

	inv := s.inventory()
	s.NotContains(inv.Locks, domain.SeatID("E1"), "expired lock of a rejected seat is purged")
	s.Contains(inv.Locks, domain.SeatID("E2"))
	s.Empty(inv.BookedSeats)
}

func (s *engineSuite) TestFinalizeUsesExplicitBaseAmount() {
	s.Require().True(s.lock("S1", time.Minute, "A1").Success)

	base := decimal.RequireFromString("15.50")
	b, err := s.svc.ConfirmAndCreateBooking(s.ctx, booking.FinalizeInput{
		ShowID:     s.show.ID,
		Seats:      []domain.SeatID{"A1"},
		SessionID:  "S1",
		UserID:     7,
		BaseAmount: &base,
	})
	s.Require().NoError(err)

	s.Equal("1.55", b.ServiceCharge.StringFixed(2))
	s.Equal("17.05", b.TotalAmount.StringFixed(2))
	s.Equal("Metropolis", b.MovieTitle)
}

func (s *engineSuite) TestConcurrentFinalizersNeverDoubleBook() {
	const buyers = 16
	seats := []domain.SeatID{"B1", "B2", "B3"}

	var wg sync.WaitGroup
	results := make(chan *domain.Booking, buyers)

	for i := range buyers {
		wg.Add(1)

		go func(session string) {
			defer wg.Done()

			res, err := s.svc.LockSeats(s.ctx, booking.LockInput{
				ShowID:    s.show.ID,
				Seats:     seats[i%2 : i%2+2],
				SessionID: session,
				TTL:       time.Minute,
			})
			if err != nil || !res.Success {
				return
			}

			b, err := s.svc.ConfirmAndCreateBooking(s.ctx, booking.FinalizeInput{
				ShowID:    s.show.ID,
				Seats:     res.LockedSeats,
				SessionID: session,
				UserID:    i + 1,
			})
			if err == nil {
				results <- b
			}
		}(uuid.NewString())
	}

	wg.Wait()
	close(results)

	owners := make(map[domain.SeatID]uuid.UUID)
	bookings := 0

	for b := range results {
		bookings++
		for _, seat := range b.Seats {
			_, taken := owners[seat]
			s.False(taken, "seat %s booked twice", seat)
			owners[seat] = b.ID
		}
	}

	s.GreaterOrEqual(bookings, 1)
	s.Equal(owners, s.inventory().BookedSeats)
}

func (s *engineSuite) TestDoubleSubmitCreatesOneBooking() {
	s.Require().True(s.lock("S1", time.Minute, "C1", "C2").Success)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.finalize("S1", "C1", "C2")

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if s.ErrorIs(err, domain.ErrSeatConflict) {
				conflicts++
			}
		}()
	}

	wg.Wait()

	s.Equal(1, successes)
	s.Equal(3, conflicts)
}

func (s *engineSuite) TestPaymentHoldOverridePolicy() {
	b := s.mustBook("S1", "A1")
	holder := b.ID

	// A hold left on a seat that is no longer booked, as after a manual
	// release, is the only case the override rule decides.
	s.Require().NoError(s.store.UpdateShow(s.ctx, s.show.ID, func(inv *domain.ShowInventory) error {
		delete(inv.BookedSeats, "A1")
		inv.Locks["A1"] = domain.SeatLock{
			Seat:      "A1",
			Holder:    domain.PaymentHold{BookingID: holder},
			ExpiresAt: s.clock.Now().Add(time.Hour),
		}
		return nil
	}))

	_, err := s.finalize("S2", "A1")
	requireUnavailable(s.T(), err, "A1")

	retry, err := s.svc.ConfirmAndCreateBooking(s.ctx, booking.FinalizeInput{
		ShowID:              s.show.ID,
		Seats:               []domain.SeatID{"A1"},
		SessionID:           "S2",
		UserID:              42,
		SupersedesBookingID: holder,
	})
	s.Require().NoError(err)
	s.Equal(retry.ID, s.inventory().BookedSeats["A1"])
	s.Empty(s.inventory().Locks)
}

func (s *engineSuite) TestAnyHoldOverridePolicy() {
	svc := s.newService(booking.WithPaymentHoldOverride(domain.OverrideAnyHold))

	s.Require().NoError(s.store.UpdateShow(s.ctx, s.show.ID, func(inv *domain.ShowInventory) error {
		inv.Locks["A5"] = domain.SeatLock{
			Seat:      "A5",
			Holder:    domain.PaymentHold{BookingID: uuid.New()},
			ExpiresAt: s.clock.Now().Add(time.Hour),
		}
		return nil
	}))

	b, err := svc.ConfirmAndCreateBooking(s.ctx, booking.FinalizeInput{
		ShowID:    s.show.ID,
		Seats:     []domain.SeatID{"A5"},
		SessionID: "anyone",
		UserID:    1,
	})
	s.Require().NoError(err)
	s.Equal(b.ID, s.inventory().BookedSeats["A5"])
}

func (s *engineSuite) TestPublishFailureDoesNotFailTheOperation() {
	publisher := new(mocks.MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))

	svc := s.newService(booking.WithPublisher(publisher))

	res, err := svc.LockSeats(s.ctx, booking.LockInput{ShowID: s.show.ID, Seats: []domain.SeatID{"B1"}, SessionID: "S1"})
	s.Require().NoError(err)
	s.True(res.Success)

	released, err := svc.ReleaseSeats(s.ctx, s.show.ID, nil, "S1")
	s.Require().NoError(err)
	s.Equal([]domain.SeatID{"B1"}, released)

	publisher.AssertCalled(s.T(), "Publish", mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
		return e.Type == domain.EventSeatsReleased && e.ID != uuid.Nil && !e.OccurredAt.IsZero()
	}))
}
