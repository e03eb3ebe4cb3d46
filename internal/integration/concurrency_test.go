package integration_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation-engine/internal/booking"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/metinatakli/seat-reservation-engine/internal/repository"
	"github.com/shopspring/decimal"
)

func (s *IntegrationSuite) newShow(rows, columns int) *domain.ShowInventory {
	show, err := s.app.Engine.CreateShow(context.Background(), domain.NewShowParams{
		Rows:       rows,
		Columns:    columns,
		SeatPrice:  decimal.NewFromInt(12),
		MovieTitle: "Dune",
		StartsAt:   time.Now().Add(24 * time.Hour),
	})
	s.Require().NoError(err)

	return show
}

func (s *IntegrationSuite) TestConcurrentFinalizationNeverDoubleBooks() {
	ctx := context.Background()
	show := s.newShow(1, 3)

	const buyers = 20

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		bookings  []*domain.Booking
		conflicts int
	)

	for i := range buyers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			session := fmt.Sprintf("session-%d", i)
			seats := []domain.SeatID{"A1", "A2"}

			res, err := s.app.Engine.LockSeats(ctx, booking.LockInput{ShowID: show.ID, Seats: seats, SessionID: session})
			if err != nil || !res.Success {
				mu.Lock()
				conflicts++
				mu.Unlock()
			}

			b, err := s.app.Engine.ConfirmAndCreateBooking(ctx, booking.FinalizeInput{
				ShowID:    show.ID,
				Seats:     seats,
				SessionID: session,
				UserID:    i + 1,
			})

			mu.Lock()
			defer mu.Unlock()

			var unavailable *domain.SeatsUnavailableError
			switch {
			case err == nil:
				bookings = append(bookings, b)
			case errors.As(err, &unavailable), errors.Is(err, domain.ErrTransactionAborted):
			default:
				s.T().Errorf("unexpected finalize error: %v", err)
			}
		}()
	}

	wg.Wait()

	s.Require().Len(bookings, 1)
	s.Equal(buyers-1, conflicts)

	inv, err := s.app.Store.GetShow(ctx, show.ID)
	s.Require().NoError(err)
	s.Len(inv.BookedSeats, 2)
	s.Equal(bookings[0].ID, inv.BookedSeats["A1"])
	s.Equal(bookings[0].ID, inv.BookedSeats["A2"])
	s.Empty(inv.Locks)
}

func (s *IntegrationSuite) TestConcurrentDisjointBookingsAllSucceed() {
	ctx := context.Background()
	show := s.newShow(2, 5)

	var (
		wg     sync.WaitGroup
		errsMu sync.Mutex
		errs   []error
	)

	for row := 1; row <= 2; row++ {
		for col := 1; col <= 5; col++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				seat := domain.NewSeatID(row, col)
				session := "session-" + string(seat)

				err := s.lockAndBook(ctx, show.ID, seat, session)
				if err != nil {
					errsMu.Lock()
					errs = append(errs, fmt.Errorf("%s: %w", seat, err))
					errsMu.Unlock()
				}
			}()
		}
	}

	wg.Wait()

	s.Empty(errs)

	inv, err := s.app.Store.GetShow(ctx, show.ID)
	s.Require().NoError(err)
	s.Len(inv.BookedSeats, 10)
}

// lockAndBook retries aborted transactions the way an HTTP client answering
// 503 Retry-After would.
func (s *IntegrationSuite) lockAndBook(ctx context.Context, showID uuid.UUID, seat domain.SeatID, session string) error {
	var err error

	for range 5 {
		var res *domain.LockResult

		res, err = s.app.Engine.LockSeats(ctx, booking.LockInput{ShowID: showID, Seats: []domain.SeatID{seat}, SessionID: session})
		if errors.Is(err, domain.ErrTransactionAborted) {
			continue
		}
		if err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("lock rejected: %+v", res)
		}

		_, err = s.app.Engine.ConfirmAndCreateBooking(ctx, booking.FinalizeInput{
			ShowID:    showID,
			Seats:     []domain.SeatID{seat},
			SessionID: session,
			UserID:    1,
		})
		if !errors.Is(err, domain.ErrTransactionAborted) {
			return err
		}
	}

	return err
}

func (s *IntegrationSuite) TestSweepRemovesExpiredLocks() {
	ctx := context.Background()
	show := s.newShow(1, 2)

	res, err := s.app.Engine.LockSeats(ctx, booking.LockInput{
		ShowID:    show.ID,
		Seats:     []domain.SeatID{"A1"},
		SessionID: "short-lived",
		TTL:       50 * time.Millisecond,
	})
	s.Require().NoError(err)
	s.Require().True(res.Success)

	_, err = s.app.Engine.LockSeats(ctx, booking.LockInput{
		ShowID:    show.ID,
		Seats:     []domain.SeatID{"A2"},
		SessionID: "long-lived",
	})
	s.Require().NoError(err)

	time.Sleep(100 * time.Millisecond)

	touched, err := s.app.Store.SweepExpiredLocks(ctx, time.Now())
	s.Require().NoError(err)
	s.GreaterOrEqual(touched, int64(1))

	inv, err := s.app.Store.GetShow(ctx, show.ID)
	s.Require().NoError(err)
	s.NotContains(inv.Locks, domain.SeatID("A1"))
	s.Contains(inv.Locks, domain.SeatID("A2"))

	s.Run("a second sweep finds nothing on this show", func() {
		_, err := s.app.Store.SweepExpiredLocks(ctx, time.Now())
		s.Require().NoError(err)

		again, err := s.app.Store.GetShow(ctx, show.ID)
		s.Require().NoError(err)
		s.Equal(inv.Version, again.Version)
	})
}

func (s *IntegrationSuite) TestUnknownRecords() {
	ctx := context.Background()

	_, err := s.app.Store.GetShow(ctx, uuid.New())
	s.ErrorIs(err, domain.ErrShowNotFound)

	_, err = s.app.Store.GetBooking(ctx, uuid.New())
	s.ErrorIs(err, domain.ErrBookingNotFound)

	_, err = s.app.Engine.ReconcilePayment(ctx, uuid.New(), domain.OutcomeSucceeded)
	s.ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *IntegrationSuite) TestRedisCoordination() {
	ctx := context.Background()

	s.Run("only one sweeper leads per interval", func() {
		first := repository.NewRedisLeaderLock(s.app.Redis, "worker-1")
		second := repository.NewRedisLeaderLock(s.app.Redis, "worker-2")

		ok, err := first.TryAcquire(ctx, time.Minute)
		s.Require().NoError(err)
		s.True(ok)

		ok, err = second.TryAcquire(ctx, time.Minute)
		s.Require().NoError(err)
		s.False(ok)

		s.Require().NoError(s.app.Redis.Del(ctx, "sweeper:leader").Err())
	})

	s.Run("webhook events are processed once until forgotten", func() {
		deduper := repository.NewRedisEventDeduper(s.app.Redis, time.Minute)
		eventID := "evt_" + uuid.NewString()

		first, err := deduper.FirstDelivery(ctx, eventID)
		s.Require().NoError(err)
		s.True(first)

		first, err = deduper.FirstDelivery(ctx, eventID)
		s.Require().NoError(err)
		s.False(first)

		s.Require().NoError(deduper.Forget(ctx, eventID))

		first, err = deduper.FirstDelivery(ctx, eventID)
		s.Require().NoError(err)
		s.True(first)
	})
}
