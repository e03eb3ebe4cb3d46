package app

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

const (
	userContextKey   = contextKey("user")
	loggerContextKey = contextKey("logger")

	// sessionKeyCheckout marks a session that has been issued to a browser so
	// its token can serve as the checkout session id.
	sessionKeyCheckout = "checkout"
)

const RoleAdmin = "admin"

type user struct {
	ID   int
	Role string
}

var anonymousUser = &user{}

func (u *user) IsAnonymous() bool {
	return u == anonymousUser
}

func (u *user) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (app *Application) contextSetUser(r *http.Request, u *user) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, u)
	return r.WithContext(ctx)
}

func (app *Application) contextGetUser(r *http.Request) *user {
	u, ok := r.Context().Value(userContextKey).(*user)
	if !ok {
		return anonymousUser
	}

	return u
}

func (app *Application) contextGetLogger(r *http.Request) *slog.Logger {
	logger, ok := r.Context().Value(loggerContextKey).(*slog.Logger)
	if !ok {
		return app.logger
	}

	return logger
}

// checkoutSessionID identifies the browser session that owns checkout locks.
func (app *Application) checkoutSessionID(r *http.Request) string {
	return app.sessionManager.Token(r.Context())
}
