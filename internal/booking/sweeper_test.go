package booking_test

import (
	"context"
	"errors"
	"time"

	"github.com/metinatakli/seat-reservation-engine/internal/booking"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

type stubLeader struct {
	acquired bool
	err      error
	calls    int
}

func (l *stubLeader) TryAcquire(context.Context, time.Duration) (bool, error) {
	l.calls++
	return l.acquired, l.err
}

func (s *engineSuite) TestSweeperTick() {
	tests := []struct {
		name        string
		leader      *stubLeader
		wantSkipped bool
		wantSwept   int64
	}{
		{name: "without leader election", wantSwept: 1},
		{name: "leading instance sweeps", leader: &stubLeader{acquired: true}, wantSwept: 1},
		{name: "follower skips", leader: &stubLeader{acquired: false}, wantSkipped: true},
		{name: "leader check failure still sweeps", leader: &stubLeader{err: errors.New("redis down")}, wantSwept: 1},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			s.Require().True(s.lock("S1", time.Second, "A1").Success)
			s.clock.Advance(time.Second)

			var leader booking.LeaderLock
			if tt.leader != nil {
				leader = tt.leader
			}

			sw := booking.NewSweeper(s.svc, leader, time.Minute, testLogger())
			res := sw.Tick(s.ctx)

			s.Equal(tt.wantSkipped, res.Skipped)
			s.Equal(tt.wantSwept, res.ShowsSwept)

			if tt.wantSkipped {
				s.Contains(s.inventory().Locks, domain.SeatID("A1"))
			} else {
				s.Empty(s.inventory().Locks)
			}
		})
	}
}

func (s *engineSuite) TestSweeperRunStopsWithContext() {
	s.Require().True(s.lock("S1", time.Second, "A1").Success)
	s.clock.Advance(time.Second)

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)

	sw := booking.NewSweeper(s.svc, nil, 10*time.Millisecond, testLogger())
	go func() { done <- sw.Run(ctx) }()

	s.Eventually(func() bool {
		inv, err := s.store.GetShow(s.ctx, s.show.ID)
		return err == nil && len(inv.Locks) == 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	s.ErrorIs(<-done, context.Canceled)
}

func (s *engineSuite) TestSweepIsSafeAlongsideLocking() {
	s.Require().True(s.lock("S1", time.Second, "A1").Success)
	s.Require().True(s.lock("S2", time.Hour, "A2").Success)
	s.clock.Advance(time.Second)

	touched, err := s.svc.SweepExpiredLocks(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), touched)

	inv := s.inventory()
	s.NotContains(inv.Locks, domain.SeatID("A1"))
	s.Contains(inv.Locks, domain.SeatID("A2"))

	touched, err = s.svc.SweepExpiredLocks(s.ctx)
	s.Require().NoError(err)
	s.Zero(touched)
}
