package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/metinatakli/seat-reservation-engine/api"
	"github.com/metinatakli/seat-reservation-engine/internal/booking"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	appvalidator "github.com/metinatakli/seat-reservation-engine/internal/validator"
)

const (
	ErrInternalServer = "The server encountered a problem and could not process your request"
	ErrTryAgain       = "The request could not be completed, please try again"
)

func (app *Application) logError(r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.contextGetLogger(r).Error(err.Error(), "method", method, "uri", uri)
}

// The errorResponse() method is a generic helper for sending JSON-formatted error
// messages to the client with a given status code.
func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	app.writeError(w, r, status, api.ErrorResponse{Message: message})
}

func (app *Application) writeError(w http.ResponseWriter, r *http.Request, status int, resp api.ErrorResponse) {
	resp.RequestId = middleware.GetReqID(r.Context())
	resp.Timestamp = time.Now()

	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

func (app *Application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError, ErrInternalServer)
}

func (app *Application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "The requested resource not found"
	app.errorResponse(w, r, http.StatusNotFound, message)
}

func (app *Application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusMethodNotAllowed, "The method is not supported for this resource")
}

func (app *Application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *Application) unauthorizedAccessResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	app.errorResponse(w, r, http.StatusUnauthorized, "You must be authenticated to access this resource")
}

func (app *Application) invalidTokenResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	app.errorResponse(w, r, http.StatusUnauthorized, "Invalid or expired authentication token")
}

func (app *Application) forbiddenResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusForbidden, "You do not have permission to access this resource")
}

func (app *Application) conflictResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusConflict, err.Error())
}

func (app *Application) tryAgainResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.contextGetLogger(r).Warn("transaction aborted", "error", err)

	w.Header().Set("Retry-After", "1")
	app.errorResponse(w, r, http.StatusServiceUnavailable, ErrTryAgain)
}

func (app *Application) unprocessableResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
}

func (app *Application) failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		app.badRequestResponse(w, r, err)
		return
	}

	resp := api.ValidationErrorResponse{
		Message:   "One or more fields are invalid",
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
	}

	for _, fe := range verrs {
		resp.ValidationErrors = append(resp.ValidationErrors, api.ValidationError{
			Field: fe.Field(),
			Issue: appvalidator.ValidationMessage(fe),
		})
	}

	err = app.writeJSON(w, http.StatusUnprocessableEntity, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// engineErrorResponse maps errors returned by the booking engine to HTTP
// responses. Aborted transactions never carry seat details.
func (app *Application) engineErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var unavailable *domain.SeatsUnavailableError

	switch {
	case errors.Is(err, domain.ErrTransactionAborted):
		app.tryAgainResponse(w, r, err)
	case errors.As(err, &unavailable):
		app.writeError(w, r, http.StatusConflict, api.ErrorResponse{
			Message: domain.ErrSeatConflict.Error(),
			Seats:   domain.SeatStrings(unavailable.Seats),
		})
	case errors.Is(err, domain.ErrRecordNotFound):
		app.errorResponse(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		app.forbiddenResponse(w, r)
	case errors.Is(err, booking.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidSeat),
		errors.Is(err, domain.ErrInvalidOutcome):
		app.unprocessableResponse(w, r, err)
	case errors.Is(err, domain.ErrSeatConflict),
		errors.Is(err, domain.ErrBookingNotPayable),
		errors.Is(err, domain.ErrPaymentStateConflict):
		app.conflictResponse(w, r, err)
	case errors.Is(err, booking.ErrPaymentsDisabled):
		app.errorResponse(w, r, http.StatusServiceUnavailable, "Payments are not available")
	default:
		app.serverErrorResponse(w, r, err)
	}
}
