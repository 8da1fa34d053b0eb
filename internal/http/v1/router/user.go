package router

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"ledger-auth/internal/http/v1/handler"
)

type UserRouter struct {
	handler *handler.UserHandler
	gates   Gates
}

func NewUserRouter(users handler.UserManager, gates Gates, log *slog.Logger) *UserRouter {
	return &UserRouter{
		handler: handler.NewUserHandler(users, log),
		gates:   gates,
	}
}

func (ur *UserRouter) SetupRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(ur.gates.Admin)

			r.Post("/", ur.handler.CreateUser)
			r.Delete("/{userID}", ur.handler.DeleteUser)
		})

		r.Group(func(r chi.Router) {
			r.Use(ur.gates.Token)

			r.Get("/me", ur.handler.GetMe)
			r.Patch("/me", ur.handler.UpdateMe)
			r.Post("/me/token", ur.handler.RegenerateToken)
		})
	})

	r.With(ur.gates.Token).Post("/validate", ur.handler.Validate)
}
