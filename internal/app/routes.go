package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
)

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)
	r.MethodNotAllowed(app.methodNotAllowedResponse)

	r.Use(middleware.RequestID)
	r.Use(otelchi.Middleware(apiServiceName, otelchi.WithChiRoutes(r)))
	r.Use(middleware.Logger)
	r.Use(app.requestLogger)
	r.Use(app.recoverPanic)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthcheck", app.GetHealth)

		if app.paymentProvider != nil {
			r.Post("/webhooks/stripe", app.StripeWebhook)
		}

		r.Group(func(r chi.Router) {
			r.Use(app.sessionManager.LoadAndSave)
			r.Use(app.ensureCheckoutSession)
			r.Use(app.authenticate)

			r.With(app.requireAdmin).Post("/shows", app.CreateShow)

			r.Route("/shows/{showId}", func(r chi.Router) {
				r.Get("/seats", app.GetSeatMap)
				r.Post("/locks", app.LockSeats)
				r.Delete("/locks", app.ReleaseSeats)
				r.With(app.requireAuthentication).Post("/bookings", app.CreateBooking)
			})

			r.Route("/bookings/{bookingId}", func(r chi.Router) {
				r.Use(app.requireAuthentication)

				r.Get("/", app.GetBooking)
				r.Post("/cancel", app.CancelBooking)
				r.Post("/checkout", app.CreateCheckoutSession)
				r.With(app.requireAdmin).Post("/payment-outcome", app.ConfirmPaymentOutcome)
			})

			r.With(app.requireAdmin).Post("/admin/sweeps", app.RunSweep)
		})
	})

	return r
}
