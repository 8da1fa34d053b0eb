package v1

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"ledger-auth/internal/http/v1/handler"
	authmw "ledger-auth/internal/http/v1/middleware"
	"ledger-auth/internal/http/v1/router"
	"ledger-auth/internal/lib/metrics"
)

type Router interface {
	SetupRoutes(r chi.Router)
}

type InviteService interface {
	handler.InviteManager
	handler.InviteSweeper
}

type RouterDependencies struct {
	Auth    authmw.Authenticator
	Users   handler.UserManager
	Teams   handler.TeamManager
	Invites InviteService
	Stats   handler.StatsGetter

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Ping     func(ctx context.Context) error

	CORSOrigins    []string
	RequestTimeout time.Duration
}

func SetupRoutes(r chi.Router, deps *RouterDependencies, log *slog.Logger) {
	gates := router.NewGates(deps.Auth, log)

	routers := []Router{
		router.NewUserRouter(deps.Users, gates, log),
		router.NewTeamRouter(deps.Teams, deps.Invites, gates, log),
		router.NewInviteRouter(deps.Invites, gates, log),
		router.NewAdminRouter(deps.Stats, deps.Invites, gates, log),
	}

	r.Route("/v1", func(r chi.Router) {
		for _, serviceRouter := range routers {
			serviceRouter.SetupRoutes(r)
		}
	})
}

// NewHandler builds the full HTTP surface: the shared middleware stack,
// health and metrics endpoints, and the /v1 API.
func NewHandler(deps *RouterDependencies, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if deps.RequestTimeout > 0 {
		r.Use(middleware.Timeout(deps.RequestTimeout))
	}
	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: deps.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
	r.Use(deps.Metrics.Middleware)

	r.Get("/health", handler.Health(deps.Ping, log))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	SetupRoutes(r, deps, log)

	return r
}
