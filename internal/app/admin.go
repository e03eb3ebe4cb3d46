package app

import (
	"net/http"

	"github.com/metinatakli/seat-reservation-engine/api"
)

// RunSweep runs the lock sweep and the unpaid booking timeout on demand.
func (app *Application) RunSweep(w http.ResponseWriter, r *http.Request) {
	swept, err := app.engine.SweepExpiredLocks(r.Context())
	if err != nil {
		app.engineErrorResponse(w, r, err)
		return
	}

	expired, err := app.engine.ExpireUnpaidBookings(r.Context())
	if err != nil {
		app.engineErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, api.SweepResponse{ShowsSwept: swept, BookingsExpired: expired}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
