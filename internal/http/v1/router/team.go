package router

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"ledger-auth/internal/http/v1/handler"
)

type TeamRouter struct {
	handler *handler.TeamHandler
	invites *handler.InviteHandler
	gates   Gates
}

func NewTeamRouter(teams handler.TeamManager, invites handler.InviteManager, gates Gates, log *slog.Logger) *TeamRouter {
	return &TeamRouter{
		handler: handler.NewTeamHandler(teams, log),
		invites: handler.NewInviteHandler(invites, log),
		gates:   gates,
	}
}

func (tr *TeamRouter) SetupRoutes(r chi.Router) {
	r.Route("/teams", func(r chi.Router) {
		r.Use(tr.gates.Token)

		r.Post("/", tr.handler.CreateTeam)
		r.Get("/", tr.handler.ListOwnedTeams)
		r.Get("/mine", tr.handler.GetMyTeam)
		r.Get("/joined", tr.handler.ListMyTeams)

		r.Route("/{teamID}", func(r chi.Router) {
			r.Get("/", tr.handler.GetTeam)
			r.Patch("/", tr.handler.RenameTeam)
			r.Delete("/", tr.handler.DeleteTeam)
			r.Post("/transfer", tr.handler.TransferOwnership)
			r.Post("/migrate", tr.handler.MigrateMembers)

			r.Get("/members", tr.handler.ListMembers)
			r.Post("/members", tr.handler.AddMember)
			r.Delete("/members/{userID}", tr.handler.RemoveMember)

			r.Post("/invites", tr.invites.CreateInvite)
			r.Get("/invites", tr.invites.ListTeamInvites)
		})
	})
}
