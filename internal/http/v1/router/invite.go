package router

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"ledger-auth/internal/http/v1/handler"
)

type InviteRouter struct {
	handler *handler.InviteHandler
	gates   Gates
}

func NewInviteRouter(invites handler.InviteManager, gates Gates, log *slog.Logger) *InviteRouter {
	return &InviteRouter{
		handler: handler.NewInviteHandler(invites, log),
		gates:   gates,
	}
}

func (ir *InviteRouter) SetupRoutes(r chi.Router) {
	r.Route("/invites", func(r chi.Router) {
		r.Use(ir.gates.Token)

		r.Get("/", ir.handler.ListMyInvites)
		r.Get("/{code}", ir.handler.GetInvite)
		r.Post("/{code}/accept", ir.handler.AcceptInvite)
		r.Delete("/{code}", ir.handler.CancelInvite)
	})
}
