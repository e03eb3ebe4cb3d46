package app

import (
	"net/http"
	"time"

	"github.com/metinatakli/seat-reservation-engine/api"
	"github.com/metinatakli/seat-reservation-engine/internal/booking"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

func (app *Application) LockSeats(w http.ResponseWriter, r *http.Request) {
	showID, err := uuidParam(r, "showId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.LockSeatsRequest

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

	lockInput := booking.LockInput{
		ShowID:    showID,
		Seats:     domain.SeatIDs(input.Seats),
		SessionID: app.checkoutSessionID(r),
	}

	if input.TtlSeconds != nil {
		lockInput.TTL = time.Duration(*input.TtlSeconds) * time.Second
	}

	res, err := app.engine.LockSeats(r.Context(), lockInput)
	if err != nil {
		app.engineErrorResponse(w, r, err)
		return
	}

	resp := api.LockSeatsResponse{
		Success:       res.Success,
		LockedSeats:   domain.SeatStrings(res.LockedSeats),
		AlreadyBooked: domain.SeatStrings(res.AlreadyBooked),
		AlreadyLocked: domain.SeatStrings(res.AlreadyLocked),
	}

	status := http.StatusConflict
	if res.Success {
		status = http.StatusOK
		resp.ExpiresAt = &res.ExpiresAt
	}

	err = app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// ReleaseSeats drops the caller's locks on the listed seats, or on every seat
// of the show when the body is empty.
func (app *Application) ReleaseSeats(w http.ResponseWriter, r *http.Request) {
	showID, err := uuidParam(r, "showId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.ReleaseSeatsRequest

	err = app.readOptionalJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	released, err := app.engine.ReleaseSeats(r.Context(), showID, domain.SeatIDs(input.Seats), app.checkoutSessionID(r))
	if err != nil {
		app.engineErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, api.ReleaseSeatsResponse{ReleasedSeats: domain.SeatStrings(released)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
