package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

var serviceChargeRate = decimal.NewFromFloat(0.10)

type Booking struct {
	ID               uuid.UUID
	ShowID           uuid.UUID
	UserID           int
	Seats            []SeatID
	BaseAmount       decimal.Decimal
	ServiceCharge    decimal.Decimal
	TotalAmount      decimal.Decimal
	Currency         string
	Status           BookingStatus
	PaymentStatus    PaymentStatus
	PaymentReference *string
	MovieTitle       string
	TheaterName      string
	HallName         string
	StartsAt         time.Time
	BookedAt         time.Time
	UpdatedAt        time.Time
}

// NewBooking builds a Pending, Unpaid booking of seats in inv. The service
// charge is ten percent of base and both amounts are rounded to cents.
func NewBooking(inv *ShowInventory, userID int, seats []SeatID, base decimal.Decimal, now time.Time) (*Booking, error) {
	if base.IsNegative() {
		return nil, errors.New("base amount must not be negative")
	}

	base = base.Round(2)
	charge := base.Mul(serviceChargeRate).Round(2)

	return &Booking{
		ID:            uuid.New(),
		ShowID:        inv.ID,
		UserID:        userID,
		Seats:         append([]SeatID(nil), seats...),
		BaseAmount:    base,
		ServiceCharge: charge,
		TotalAmount:   base.Add(charge),
		Currency:      inv.Currency,
		Status:        BookingStatusPending,
		PaymentStatus: PaymentStatusUnpaid,
		MovieTitle:    inv.MovieTitle,
		TheaterName:   inv.TheaterName,
		HallName:      inv.HallName,
		StartsAt:      inv.StartsAt,
		BookedAt:      now,
		UpdatedAt:     now,
	}, nil
}

// DefaultBaseAmount prices seats at the show's per-seat price.
func DefaultBaseAmount(inv *ShowInventory, seats int) decimal.Decimal {
	return inv.SeatPrice.Mul(decimal.NewFromInt(int64(seats)))
}

// HoldsSeats reports whether the booking is expected to own its seats in the
// inventory.
func (b *Booking) HoldsSeats() bool {
	return b.Status != BookingStatusCancelled && b.PaymentStatus != PaymentStatusFailed
}

func (b *Booking) Payable() bool {
	return b.Status == BookingStatusPending && b.PaymentStatus == PaymentStatusUnpaid
}

func (b *Booking) Clone() *Booking {
	c := *b
	c.Seats = append([]SeatID(nil), b.Seats...)
	if b.PaymentReference != nil {
		ref := *b.PaymentReference
		c.PaymentReference = &ref
	}
	return &c
}
