package booking

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/metinatakli/seat-reservation-engine/internal/booking"

type metrics struct {
	lockAttempts       metric.Int64Counter
	lockConflicts      metric.Int64Counter
	finalized          metric.Int64Counter
	finalizeConflicts  metric.Int64Counter
	paymentsReconciled metric.Int64Counter
	locksSwept         metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	meter := otel.Meter(instrumentationName)

	var (
		m   metrics
		err error
	)

	m.lockAttempts, err = meter.Int64Counter("seats.lock.attempts",
		metric.WithDescription("Seat lock requests"))
	if err != nil {
		return nil, err
	}

	m.lockConflicts, err = meter.Int64Counter("seats.lock.conflicts",
		metric.WithDescription("Seat lock requests rejected because a seat was booked or locked"))
	if err != nil {
		return nil, err
	}

	m.finalized, err = meter.Int64Counter("bookings.finalized",
		metric.WithDescription("Bookings created from locked seats"))
	if err != nil {
		return nil, err
	}

	m.finalizeConflicts, err = meter.Int64Counter("bookings.finalize.conflicts",
		metric.WithDescription("Finalization attempts rejected with unavailable seats"))
	if err != nil {
		return nil, err
	}

	m.paymentsReconciled, err = meter.Int64Counter("payments.reconciled",
		metric.WithDescription("Payment outcomes applied to bookings"))
	if err != nil {
		return nil, err
	}

	m.locksSwept, err = meter.Int64Counter("locks.swept",
		metric.WithDescription("Show inventories cleaned by the expiry sweeper"))
	if err != nil {
		return nil, err
	}

	return &m, nil
}

func (m *metrics) reconciled(ctx context.Context, outcome string, changed bool) {
	m.paymentsReconciled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.Bool("changed", changed),
	))
}
