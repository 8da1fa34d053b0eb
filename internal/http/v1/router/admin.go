package router

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"ledger-auth/internal/http/v1/handler"
)

type AdminRouter struct {
	handler *handler.AdminHandler
	gates   Gates
}

func NewAdminRouter(stats handler.StatsGetter, sweeper handler.InviteSweeper, gates Gates, log *slog.Logger) *AdminRouter {
	return &AdminRouter{
		handler: handler.NewAdminHandler(stats, sweeper, log),
		gates:   gates,
	}
}

func (ar *AdminRouter) SetupRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(ar.gates.Admin)

		r.Get("/stats", ar.handler.GetStats)
		r.Post("/invites/sweep", ar.handler.SweepInvites)
	})
}
