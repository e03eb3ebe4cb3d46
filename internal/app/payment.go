package app

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/metinatakli/seat-reservation-engine/api"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

const maxWebhookBytes = 65_536

type eventDeduper interface {
	FirstDelivery(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

func (app *Application) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	bookingID, err := uuidParam(r, "bookingId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	cs, err := app.engine.OpenCheckout(r.Context(), bookingID, app.contextGetUser(r).ID)
	if err != nil {
		app.engineErrorResponse(w, r, err)
		return
	}

	resp := api.CheckoutSessionResponse{
		BookingId:     cs.BookingID,
		RedirectUrl:   cs.RedirectURL,
		HoldExpiresAt: cs.HoldExpiresAt,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// ConfirmPaymentOutcome lets operators apply a payment outcome directly, for
// providers without webhooks and for manual repair.
func (app *Application) ConfirmPaymentOutcome(w http.ResponseWriter, r *http.Request) {
	bookingID, err := uuidParam(r, "bookingId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.PaymentOutcomeRequest

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

	outcome, err := domain.ParsePaymentOutcome(input.Outcome)
	if err != nil {
		app.unprocessableResponse(w, r, err)
		return
	}

	b, err := app.engine.ReconcilePayment(r.Context(), bookingID, outcome)
	if err != nil {
		app.engineErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toBookingResponse(b), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// StripeWebhook acknowledges every authentic event the booking state machine
// has accepted or rejected. Only store failures are answered with an error so
// the provider delivers the event again.
func (app *Application) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	event, err := app.paymentProvider.ParseWebhookEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		logger.Warn("rejected webhook", "error", err)
		app.badRequestResponse(w, r, err)
		return
	}

	if event == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	logger = logger.With("event_id", event.ID, "booking_id", event.BookingID, "outcome", event.Outcome)

	if app.deduper != nil {
		first, err := app.deduper.FirstDelivery(r.Context(), event.ID)
		if err != nil {
			logger.Warn("webhook deduplication unavailable", "error", err)
		} else if !first {
			logger.Info("duplicate webhook delivery ignored")
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	b, err := app.engine.ReconcilePayment(r.Context(), event.BookingID, event.Outcome)
	switch {
	case err == nil:
		logger.Info("payment outcome applied", "status", b.Status, "payment_status", b.PaymentStatus)
	case errors.Is(err, domain.ErrRecordNotFound), errors.Is(err, domain.ErrPaymentStateConflict):
		logger.Warn("payment outcome not applicable", "error", err)
	default:
		if app.deduper != nil {
			if ferr := app.deduper.Forget(r.Context(), event.ID); ferr != nil {
				logger.Error("failed to forget webhook event", "error", ferr)
			}
		}

		app.engineErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
