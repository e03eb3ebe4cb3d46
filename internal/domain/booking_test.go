package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookingAmounts(t *testing.T) {
	tests := []struct {
		name       string
		base       string
		wantCharge string
		wantTotal  string
	}{
		{name: "whole amount", base: "24", wantCharge: "2.40", wantTotal: "26.40"},
		{name: "rounds the service charge", base: "10.05", wantCharge: "1.01", wantTotal: "11.06"},
		{name: "free show", base: "0", wantCharge: "0.00", wantTotal: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newTestInventory(t)

			b, err := NewBooking(inv, 7, []SeatID{"A1", "A2"}, decimal.RequireFromString(tt.base), testNow)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCharge, b.ServiceCharge.StringFixed(2))
			assert.Equal(t, tt.wantTotal, b.TotalAmount.StringFixed(2))
			assert.Equal(t, BookingStatusPending, b.Status)
			assert.Equal(t, PaymentStatusUnpaid, b.PaymentStatus)
			assert.Equal(t, inv.ID, b.ShowID)
			assert.Equal(t, 7, b.UserID)
		})
	}

	t.Run("rejects a negative base amount", func(t *testing.T) {
		_, err := NewBooking(newTestInventory(t), 1, []SeatID{"A1"}, decimal.NewFromInt(-5), testNow)
		assert.Error(t, err)
	})
}

func TestDefaultBaseAmount(t *testing.T) {
	inv := newTestInventory(t)

	assert.Equal(t, "36", DefaultBaseAmount(inv, 3).String())
}

func TestParsePaymentOutcome(t *testing.T) {
	got, err := ParsePaymentOutcome(" Succeeded ")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, got)

	got, err = ParsePaymentOutcome("cancelled")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCanceled, got)

	_, err = ParsePaymentOutcome("pending")
	assert.ErrorIs(t, err, ErrInvalidOutcome)
}

func TestSeatIDs(t *testing.T) {
	assert.Equal(t, SeatID("C12"), NewSeatID(3, 12))

	row, col, err := SeatID("c12").Position()
	require.NoError(t, err)
	assert.Equal(t, 3, row)
	assert.Equal(t, 12, col)

	assert.Equal(t, []SeatID{"A1", "B2"}, NormalizeSeats([]SeatID{" a1", "B2", "A1"}))
	assert.Equal(t, []SeatID{"A1", "B2", "1A"}, NormalizeSeats([]SeatID{"A01", "a+1", "A1", "b002", "1a"}))
	assert.Equal(t, SeatID("C12"), SeatID(" c012").Canonical())

	seats := []SeatID{"B1", "A10", "A2"}
	SortSeats(seats)
	assert.Equal(t, []SeatID{"A2", "A10", "B1"}, seats)

	err = (&SeatsUnavailableError{Seats: []SeatID{"A1", "A2"}})
	assert.ErrorIs(t, err, ErrSeatConflict)
	assert.Equal(t, "seats unavailable: A1,A2", err.Error())
}
