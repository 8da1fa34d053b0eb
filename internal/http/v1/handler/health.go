package handler

import (
	"context"
	"log/slog"
	"net/http"

	"ledger-auth/internal/http/v1/response"
	"ledger-auth/internal/lib/logger/sl"
)

type HealthResponse struct {
	Status string `json:"status"`
}

// Health reports liveness. With a non-nil ping the database has to answer too.
func Health(ping func(ctx context.Context) error, log *slog.Logger) http.HandlerFunc {
	const op = "handler.Health"

	log = log.With(slog.String("op", op))

	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				log.Error("database ping failed", sl.Err(err))
				response.JSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
				return
			}
		}
		response.JSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
