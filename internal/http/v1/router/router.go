package router

import (
	"log/slog"
	"net/http"

	"ledger-auth/internal/http/v1/middleware"
)

// Gates are the authentication middlewares routers attach per route group.
type Gates struct {
	Token func(http.Handler) http.Handler
	Admin func(http.Handler) http.Handler
}

func NewGates(auth middleware.Authenticator, log *slog.Logger) Gates {
	return Gates{
		Token: middleware.RequireToken(auth, log),
		Admin: middleware.RequireAdmin(auth, log),
	}
}
