package app

import (
	"net/http"

	"github.com/metinatakli/seat-reservation-engine/api"
	"github.com/metinatakli/seat-reservation-engine/internal/booking"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

func (app *Application) CreateBooking(w http.ResponseWriter, r *http.Request) {
	showID, err := uuidParam(r, "showId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.CreateBookingRequest

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	in := booking.FinalizeInput{
		ShowID:    showID,
		Seats:     domain.SeatIDs(input.Seats),
		SessionID: app.checkoutSessionID(r),
		UserID:    app.contextGetUser(r).ID,
	}

	if input.SupersedesBookingId != nil {
		in.SupersedesBookingID = *input.SupersedesBookingId
	}

	b, err := app.engine.ConfirmAndCreateBooking(r.Context(), in)
	if err != nil {
		app.engineErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", "/v1/bookings/"+b.ID.String())

	err = app.writeJSON(w, http.StatusCreated, toBookingResponse(b), headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, ok := app.loadOwnedBooking(w, r)
	if !ok {
		return
	}

	err := app.writeJSON(w, http.StatusOK, toBookingResponse(b), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// CancelBooking is idempotent: cancelling a cancelled booking returns it
// unchanged.
func (app *Application) CancelBooking(w http.ResponseWriter, r *http.Request) {
	current, ok := app.loadOwnedBooking(w, r)
	if !ok {
		return
	}

	b, err := app.engine.CancelBooking(r.Context(), current.ID)
	if err != nil {
		app.engineErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toBookingResponse(b), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// loadOwnedBooking writes the error response itself when it returns false.
// Bookings of other users are reported as missing to non-admins.
func (app *Application) loadOwnedBooking(w http.ResponseWriter, r *http.Request) (*domain.Booking, bool) {
	bookingID, err := uuidParam(r, "bookingId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return nil, false
	}

	b, err := app.engine.GetBooking(r.Context(), bookingID)
	if err != nil {
		app.engineErrorResponse(w, r, err)
		return nil, false
	}

	u := app.contextGetUser(r)
	if b.UserID != u.ID && !u.IsAdmin() {
		app.notFoundResponse(w, r)
		return nil, false
	}

	return b, true
}

func toBookingResponse(b *domain.Booking) api.BookingResponse {
	return api.BookingResponse{
		Id:               b.ID,
		ShowId:           b.ShowID,
		Seats:            domain.SeatStrings(b.Seats),
		BaseAmount:       b.BaseAmount,
		ServiceCharge:    b.ServiceCharge,
		TotalAmount:      b.TotalAmount,
		Currency:         b.Currency,
		Status:           string(b.Status),
		PaymentStatus:    string(b.PaymentStatus),
		PaymentReference: b.PaymentReference,
		MovieTitle:       b.MovieTitle,
		TheaterName:      b.TheaterName,
		HallName:         b.HallName,
		StartsAt:         b.StartsAt,
		BookedAt:         b.BookedAt,
	}
}

