// Package api holds the JSON request and response bodies of the HTTP API.
package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
	Seats     []string  `json:"seats,omitempty"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	RequestId        string            `json:"requestId"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

type CreateShowRequest struct {
	Rows        int             `json:"rows" validate:"required,min=1,max=26"`
	Columns     int             `json:"columns" validate:"required,min=1,max=100"`
	SeatPrice   decimal.Decimal `json:"seatPrice"`
	Currency    string          `json:"currency" validate:"omitempty,currency"`
	MovieTitle  string          `json:"movieTitle" validate:"required,max=200"`
	TheaterName string          `json:"theaterName" validate:"max=200"`
	HallName    string          `json:"hallName" validate:"max=100"`
	StartsAt    time.Time       `json:"startsAt" validate:"required"`
}

type ShowResponse struct {
	Id          uuid.UUID       `json:"id"`
	Rows        int             `json:"rows"`
	Columns     int             `json:"columns"`
	Capacity    int             `json:"capacity"`
	SeatPrice   decimal.Decimal `json:"seatPrice"`
	Currency    string          `json:"currency"`
	MovieTitle  string          `json:"movieTitle"`
	TheaterName string          `json:"theaterName"`
	HallName    string          `json:"hallName"`
	StartsAt    time.Time       `json:"startsAt"`
}

type Seat struct {
	Id            string     `json:"id"`
	Row           int        `json:"row"`
	Column        int        `json:"column"`
	State         string     `json:"state"`
	LockExpiresAt *time.Time `json:"lockExpiresAt,omitempty"`
}

type SeatMapResponse struct {
	Show      ShowResponse `json:"show"`
	Available int          `json:"available"`
	Seats     []Seat       `json:"seats"`
}

type LockSeatsRequest struct {
	Seats      []string `json:"seats" validate:"required,min=1,dive,seatid"`
	TtlSeconds *int     `json:"ttlSeconds,omitempty" validate:"omitempty,gt=0"`
}

type LockSeatsResponse struct {
	Success       bool       `json:"success"`
	LockedSeats   []string   `json:"lockedSeats"`
	AlreadyBooked []string   `json:"alreadyBooked"`
	AlreadyLocked []string   `json:"alreadyLocked"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

type ReleaseSeatsRequest struct {
	Seats []string `json:"seats" validate:"omitempty,dive,seatid"`
}

type ReleaseSeatsResponse struct {
	ReleasedSeats []string `json:"releasedSeats"`
}

type CreateBookingRequest struct {
	Seats               []string   `json:"seats" validate:"required,min=1,dive,seatid"`
	SupersedesBookingId *uuid.UUID `json:"supersedesBookingId,omitempty"`
}

type BookingResponse struct {
	Id               uuid.UUID       `json:"id"`
	ShowId           uuid.UUID       `json:"showId"`
	Seats            []string        `json:"seats"`
	BaseAmount       decimal.Decimal `json:"baseAmount"`
	ServiceCharge    decimal.Decimal `json:"serviceCharge"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	PaymentStatus    string          `json:"paymentStatus"`
	PaymentReference *string         `json:"paymentReference,omitempty"`
	MovieTitle       string          `json:"movieTitle"`
	TheaterName      string          `json:"theaterName"`
	HallName         string          `json:"hallName"`
	StartsAt         time.Time       `json:"startsAt"`
	BookedAt         time.Time       `json:"bookedAt"`
}

type CheckoutSessionResponse struct {
	BookingId     uuid.UUID `json:"bookingId"`
	RedirectUrl   string    `json:"redirectUrl"`
	HoldExpiresAt time.Time `json:"holdExpiresAt"`
}

type PaymentOutcomeRequest struct {
	Outcome string `json:"outcome" validate:"required,outcome"`
}

type SweepResponse struct {
	ShowsSwept      int64 `json:"showsSwept"`
	BookingsExpired int   `json:"bookingsExpired"`
}
