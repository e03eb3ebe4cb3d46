package app

import (
	"net/http"

	"github.com/metinatakli/seat-reservation-engine/api"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

func (app *Application) CreateShow(w http.ResponseWriter, r *http.Request) {
	var input api.CreateShowRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	show, err := app.engine.CreateShow(r.Context(), domain.NewShowParams{
		Rows:        input.Rows,
		Columns:     input.Columns,
		SeatPrice:   input.SeatPrice,
		Currency:    input.Currency,
		MovieTitle:  input.MovieTitle,
		TheaterName: input.TheaterName,
		HallName:    input.HallName,
		StartsAt:    input.StartsAt,
	})
	if err != nil {
		app.engineErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, toShowResponse(show), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetSeatMap(w http.ResponseWriter, r *http.Request) {
	showID, err := uuidParam(r, "showId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	seatMap, err := app.engine.SeatMap(r.Context(), showID, app.checkoutSessionID(r))
	if err != nil {
		app.engineErrorResponse(w, r, err)
		return
	}

	resp := api.SeatMapResponse{
		Show:  toShowResponse(seatMap.Show),
		Seats: make([]api.Seat, 0, len(seatMap.Seats)),
	}

	for _, s := range seatMap.Seats {
		if s.State == domain.SeatAvailable {
			resp.Available++
		}

		resp.Seats = append(resp.Seats, api.Seat{
			Id:            string(s.ID),
			Row:           s.Row,
			Column:        s.Col,
			State:         string(s.State),
			LockExpiresAt: s.LockExpiresAt,
		})
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toShowResponse(show *domain.ShowInventory) api.ShowResponse {
	return api.ShowResponse{
		Id:          show.ID,
		Rows:        show.Rows,
		Columns:     show.Columns,
		Capacity:    show.Capacity(),
		SeatPrice:   show.SeatPrice,
		Currency:    show.Currency,
		MovieTitle:  show.MovieTitle,
		TheaterName: show.TheaterName,
		HallName:    show.HallName,
		StartsAt:    show.StartsAt,
	}
}
